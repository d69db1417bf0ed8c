package source

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Host is the only repository host references are accepted for
const Host = "github.com"

// ErrInvalidRef is returned when a repository reference cannot be parsed
var ErrInvalidRef = errors.New("invalid repository reference")

var (
	httpsPattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?github\.com/([^/?#]+)/([^/?#]+?)(?:\.git)?/?(?:[/?#].*)?$`)
	sshPattern   = regexp.MustCompile(`^git@github\.com:([^/]+)/([^/]+?)(?:\.git)?/?$`)
	shortPattern = regexp.MustCompile(`^([^/\s]+)/([^/\s]+)$`)

	// GitHub usernames/orgs: 1-39 alphanumeric or hyphen, not starting with hyphen
	validOwner = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]{0,38}$`)
	// GitHub repo names: 1-100 alphanumeric, hyphen, underscore, or dot
	validRepo = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,100}$`)
)

// Ref identifies a hosted repository
type Ref struct {
	Owner string
	Name  string
}

// String returns "owner/name"
func (r Ref) String() string {
	return r.Owner + "/" + r.Name
}

// CloneURL returns the anonymous HTTPS clone URL
func (r Ref) CloneURL() string {
	return fmt.Sprintf("https://%s/%s/%s.git", Host, r.Owner, r.Name)
}

// HTMLURL returns the repository's web URL
func (r Ref) HTMLURL() string {
	return fmt.Sprintf("https://%s/%s/%s", Host, r.Owner, r.Name)
}

// ParseRef accepts a GitHub web or clone URL (https or ssh) or an
// "owner/name" pair. Trailing path segments such as /tree/main are ignored.
func ParseRef(ref string) (Ref, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Ref{}, fmt.Errorf("%w: empty reference", ErrInvalidRef)
	}

	var m []string
	for _, p := range []*regexp.Regexp{httpsPattern, sshPattern, shortPattern} {
		if m = p.FindStringSubmatch(ref); m != nil {
			break
		}
	}
	if m == nil {
		return Ref{}, fmt.Errorf("%w: %q is not a GitHub repository URL", ErrInvalidRef, ref)
	}

	r := Ref{Owner: m[1], Name: strings.TrimSuffix(m[2], ".git")}
	if err := r.Validate(); err != nil {
		return Ref{}, err
	}
	return r, nil
}

// Validate checks owner and name against GitHub's naming rules
func (r Ref) Validate() error {
	if !validOwner.MatchString(r.Owner) {
		return fmt.Errorf("%w: invalid owner %q", ErrInvalidRef, r.Owner)
	}
	if !validRepo.MatchString(r.Name) || r.Name == "." || r.Name == ".." {
		return fmt.Errorf("%w: invalid repository name %q", ErrInvalidRef, r.Name)
	}
	return nil
}

package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const scratchPrefix = "repo-analyzer-"

// Scratch hands out uniquely named, request-scoped directories under a root
type Scratch struct {
	root string
}

// NewScratch creates a scratch area rooted at root; an empty root means the
// system temp directory.
func NewScratch(root string) *Scratch {
	if root == "" {
		root = os.TempDir()
	}
	return &Scratch{root: filepath.Clean(root)}
}

// Root returns the directory scratch locations are created in
func (s *Scratch) Root() string {
	return s.root
}

// Allocate returns a fresh path under the root. The path itself is not
// created so that a fetcher may create it.
func (s *Scratch) Allocate() (string, error) {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return "", fmt.Errorf("create scratch root %s: %w", s.root, err)
	}
	return filepath.Join(s.root, scratchPrefix+uuid.NewString()), nil
}

// Release removes a location handed out by Allocate, including any partial
// contents. Releasing a path that no longer exists succeeds.
func (s *Scratch) Release(path string) error {
	clean := filepath.Clean(path)
	if filepath.Dir(clean) != s.root || !strings.HasPrefix(filepath.Base(clean), scratchPrefix) {
		return fmt.Errorf("refusing to remove %s: not a scratch location under %s", path, s.root)
	}
	return os.RemoveAll(clean)
}

package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/denysvitali/repo-analyzer-go/pkg/config"
)

// Fetcher materializes a repository's files into dest
type Fetcher interface {
	Fetch(ctx context.Context, ref Ref, dest string) error
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, ref Ref, dest string) error

// Fetch calls f
func (f FetcherFunc) Fetch(ctx context.Context, ref Ref, dest string) error {
	return f(ctx, ref, dest)
}

// GitFetcher clones repositories with the git command line. Every Fetch
// runs its own git process, so nothing is shared between requests.
type GitFetcher struct {
	binary  string
	depth   int
	timeout time.Duration
	logger  *logrus.Logger
}

// NewGitFetcher creates a fetcher from configuration
func NewGitFetcher(cfg config.FetchConfig, logger *logrus.Logger) *GitFetcher {
	binary := cfg.GitBinary
	if binary == "" {
		binary = "git"
	}
	return &GitFetcher{
		binary:  binary,
		depth:   cfg.Depth,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Fetch clones ref into dest, which must not exist or be empty
func (f *GitFetcher) Fetch(ctx context.Context, ref Ref, dest string) error {
	ctx, span := otel.Tracer("repo-analyzer").Start(ctx, "git_clone")
	defer span.End()

	span.SetAttributes(
		attribute.String("repo", ref.String()),
		attribute.Int("depth", f.depth),
	)

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, f.binary, f.cloneArgs(ref, dest)...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.logger.Debugf("Cloning %s into %s", ref.CloneURL(), dest)
	start := time.Now()

	if err := cmd.Run(); err != nil {
		span.RecordError(err)
		if ctx.Err() != nil {
			return fmt.Errorf("git clone %s: %w", ref, ctx.Err())
		}
		return fmt.Errorf("git clone %s: %w: %s", ref, err, strings.TrimSpace(stderr.String()))
	}

	f.logger.WithFields(logrus.Fields{
		"repo":    ref.String(),
		"elapsed": time.Since(start),
	}).Debug("Clone finished")
	return nil
}

func (f *GitFetcher) cloneArgs(ref Ref, dest string) []string {
	args := []string{"clone", "--quiet", "--single-branch"}
	if f.depth > 0 {
		args = append(args, "--depth", strconv.Itoa(f.depth))
	}
	return append(args, "--", ref.CloneURL(), dest)
}

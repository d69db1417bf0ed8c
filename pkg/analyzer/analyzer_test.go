package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/repo-analyzer-go/pkg/config"
	"github.com/denysvitali/repo-analyzer-go/pkg/manifest"
	"github.com/denysvitali/repo-analyzer-go/pkg/source"
	"github.com/denysvitali/repo-analyzer-go/pkg/walker"
)

// populate returns a fetcher that writes files into the scratch location
func populate(t *testing.T, files map[string]string, calls *int, seen *string) source.Fetcher {
	return source.FetcherFunc(func(ctx context.Context, ref source.Ref, dest string) error {
		*calls++
		*seen = dest
		for p, content := range files {
			full := filepath.Join(dest, filepath.FromSlash(p))
			if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
				return err
			}
			if err := os.WriteFile(full, []byte(content), 0644); err != nil {
				return err
			}
		}
		return nil
	})
}

func newTestAnalyzer(t *testing.T, fetcher source.Fetcher) *Analyzer {
	cfg := config.Default()
	cfg.Scratch.Dir = t.TempDir()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	a, err := NewWithFetcher(cfg, logger, fetcher)
	require.NoError(t, err)
	return a
}

func scratchEntries(t *testing.T, a *Analyzer) []os.DirEntry {
	entries, err := os.ReadDir(a.ScratchRoot())
	require.NoError(t, err)
	return entries
}

func TestAnalyze_EndToEnd(t *testing.T) {
	var calls int
	var dest string
	a := newTestAnalyzer(t, populate(t, map[string]string{
		"README.md":    "hello",
		"package.json": `{"dependencies":{"a":"^1.0.0"}}`,
		"src/index.js": "console.log(1)",
	}, &calls, &dest))

	info, err := a.Analyze(context.Background(), "https://github.com/owner/repo")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	assert.Equal(t, "hello", info.ReadmeContent)
	assert.Equal(t, []manifest.Dependency{{Name: "a", Version: "^1.0.0"}}, info.ImportantLibraries.Dependencies)
	assert.Empty(t, info.ImportantLibraries.DevDependencies)
	assert.Equal(t, json.RawMessage(`{"dependencies":{"a":"^1.0.0"}}`), info.PackageJSON)

	require.Len(t, info.FileStructure, 3)
	assert.Equal(t, "README.md", info.FileStructure[0].Name)
	assert.Equal(t, walker.KindFile, info.FileStructure[0].Type)
	assert.Equal(t, "package.json", info.FileStructure[1].Name)
	assert.Equal(t, walker.KindFile, info.FileStructure[1].Type)
	src := info.FileStructure[2]
	assert.Equal(t, "src", src.Name)
	assert.Equal(t, walker.KindDirectory, src.Type)
	require.Len(t, src.Children, 1)
	assert.Equal(t, "index.js", src.Children[0].Name)

	assert.True(t, strings.HasPrefix(info.DirectoryGraph, walker.GraphHeader+"\n"))
	assert.Contains(t, info.DirectoryGraph, walker.NodeID("src")+" --> "+walker.NodeID("src/index.js"))
	assert.Equal(t, "├── 📄 README.md\n├── 📄 package.json\n└── 📁 src\n    └── 📄 index.js\n", info.TreeStructure)

	// scratch location is gone after success
	_, err = os.Stat(dest)
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, scratchEntries(t, a))

	stats := a.GetStats()
	assert.Equal(t, int64(1), stats.Analyses)
	assert.Equal(t, int64(0), stats.Failures)
}

func TestAnalyze_NoManifestNoReadme(t *testing.T) {
	var calls int
	var dest string
	a := newTestAnalyzer(t, populate(t, map[string]string{"main.go": "package main"}, &calls, &dest))

	info, err := a.Analyze(context.Background(), "owner/repo")
	require.NoError(t, err)

	assert.Equal(t, manifest.ReadmeNotFound, info.ReadmeContent)
	assert.Equal(t, manifest.NotFound, info.PackageJSON)
	assert.NotNil(t, info.ImportantLibraries.Dependencies)
	assert.Empty(t, info.ImportantLibraries.Dependencies)
	assert.NotNil(t, info.ImportantLibraries.DevDependencies)
	assert.Empty(t, info.ImportantLibraries.DevDependencies)
}

func TestAnalyze_InvalidReferenceNeverFetches(t *testing.T) {
	var calls int
	var dest string
	a := newTestAnalyzer(t, populate(t, nil, &calls, &dest))

	_, err := a.Analyze(context.Background(), "https://gitlab.com/owner/repo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidReference)
	assert.ErrorIs(t, err, source.ErrInvalidRef)
	assert.Equal(t, 0, calls)
	assert.Equal(t, int64(0), a.GetStats().Analyses)
}

func TestAnalyze_FetchFailureCleansUp(t *testing.T) {
	var dest string
	boom := errors.New("remote hung up")
	a := newTestAnalyzer(t, source.FetcherFunc(func(ctx context.Context, ref source.Ref, d string) error {
		dest = d
		// leave partial state behind
		require.NoError(t, os.MkdirAll(filepath.Join(d, ".git", "objects"), 0755))
		return boom
	}))

	_, err := a.Analyze(context.Background(), "owner/repo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, boom)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, scratchEntries(t, a))
	assert.Equal(t, int64(1), a.GetStats().Failures)
}

func TestAnalyze_WalkFailureCleansUp(t *testing.T) {
	var dest string
	a := newTestAnalyzer(t, source.FetcherFunc(func(ctx context.Context, ref source.Ref, d string) error {
		dest = d
		if err := os.MkdirAll(filepath.Join(d, "src"), 0755); err != nil {
			return err
		}
		return os.Symlink(filepath.Join(d, "gone"), filepath.Join(d, "src", "broken"))
	}))

	_, err := a.Analyze(context.Background(), "owner/repo")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWalk)

	var walkErr *walker.WalkError
	require.ErrorAs(t, err, &walkErr)
	assert.Equal(t, "src/broken", walkErr.Path)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAnalyze_MalformedManifestFails(t *testing.T) {
	var calls int
	var dest string
	a := newTestAnalyzer(t, populate(t, map[string]string{"package.json": "{nope"}, &calls, &dest))

	_, err := a.Analyze(context.Background(), "owner/repo")
	assert.ErrorIs(t, err, manifest.ErrMalformed)
	assert.Empty(t, scratchEntries(t, a))
}

func TestAnalyze_ConcurrentRequestsUseDistinctScratch(t *testing.T) {
	dests := make(chan string, 8)
	a := newTestAnalyzer(t, source.FetcherFunc(func(ctx context.Context, ref source.Ref, d string) error {
		dests <- d
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(d, ref.Name+".txt"), []byte(ref.Name), 0644)
	}))

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			info, err := a.Analyze(context.Background(), "owner/repo"+string(rune('a'+i)))
			if err == nil && len(info.FileStructure) != 1 {
				err = errors.New("unexpected tree")
			}
			errs <- err
		}(i)
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
	close(dests)

	seen := map[string]bool{}
	for d := range dests {
		assert.False(t, seen[d])
		seen[d] = true
	}
	assert.Len(t, seen, 8)
	assert.Equal(t, int64(8), a.GetStats().Analyses)
}

func TestAnalyzeDir_AnnotatePolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Scratch.Dir = t.TempDir()
	cfg.Walker.OnError = "annotate"
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	a, err := New(cfg, logger)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, "broken")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ok.txt"), []byte("ok"), 0644))

	info, err := a.AnalyzeDir(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, info.FileStructure, 2)
	assert.True(t, info.FileStructure[0].Unreadable)

	// the caller's directory is left alone
	_, err = os.Stat(filepath.Join(dir, "ok.txt"))
	assert.NoError(t, err)
}

func TestNew_RejectsBadWalkerPolicy(t *testing.T) {
	cfg := config.Default()
	cfg.Walker.OnError = "whatever"

	_, err := New(cfg, logrus.New())
	assert.Error(t, err)
}

func TestGetSystemResources(t *testing.T) {
	a := newTestAnalyzer(t, source.FetcherFunc(func(context.Context, source.Ref, string) error { return nil }))

	res := a.GetSystemResources()
	assert.GreaterOrEqual(t, res.CPUCount, 1)
	assert.Equal(t, a.ScratchRoot(), res.ScratchDir)
}

func TestAnalyze_LinksLeavingRepositoryAreNotRead(t *testing.T) {
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	leaked := filepath.Join(outside, "leak.json")
	require.NoError(t, os.WriteFile(secret, []byte("TOKEN=hunter2"), 0644))
	require.NoError(t, os.WriteFile(leaked, []byte(`{"dependencies":{"leak":"1.0.0"}}`), 0644))

	a := newTestAnalyzer(t, source.FetcherFunc(func(ctx context.Context, ref source.Ref, dest string) error {
		if err := os.MkdirAll(dest, 0755); err != nil {
			return err
		}
		if err := os.Symlink(secret, filepath.Join(dest, manifest.ReadmeFileName)); err != nil {
			return err
		}
		return os.Symlink(leaked, filepath.Join(dest, manifest.FileName))
	}))

	info, err := a.Analyze(context.Background(), "owner/repo")
	require.NoError(t, err)

	assert.Equal(t, manifest.ReadmeNotFound, info.ReadmeContent)
	assert.Equal(t, manifest.NotFound, info.PackageJSON)
	assert.Empty(t, info.ImportantLibraries.Dependencies)
	assert.Empty(t, scratchEntries(t, a))
}

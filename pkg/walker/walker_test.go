package walker

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files under root; paths ending in "/" become directories
func writeTree(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, filepath.FromSlash(p))
		if strings.HasSuffix(p, "/") {
			require.NoError(t, os.MkdirAll(full, 0755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte("content of "+p), 0644))
	}
}

func walk(t *testing.T, root string, opts Options) *Tree {
	t.Helper()
	tree, err := New(opts).Walk(context.Background(), root)
	require.NoError(t, err)
	return tree
}

func TestWalk_RootChildrenInListingOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "README.md", "package.json", "src/index.js")

	tree := walk(t, root, Options{})

	require.Len(t, tree.Children, 3)
	assert.Equal(t, "README.md", tree.Children[0].Name)
	assert.Equal(t, KindFile, tree.Children[0].Type)
	assert.Equal(t, "package.json", tree.Children[1].Name)
	assert.Equal(t, KindFile, tree.Children[1].Type)

	src := tree.Children[2]
	assert.Equal(t, "src", src.Name)
	assert.Equal(t, KindDirectory, src.Type)
	assert.Equal(t, "src", src.Path)
	require.Len(t, src.Children, 1)
	assert.Equal(t, "index.js", src.Children[0].Name)
	assert.Equal(t, "src/index.js", src.Children[0].Path)
	assert.Empty(t, src.Children[0].Children)
}

func TestWalk_ExcludedNamesAtAnyDepth(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"index.js",
		"node_modules/left-pad/index.js",
		".git/HEAD",
		"src/node_modules/dep/package.json",
		"src/app.js",
		"src/deep/dist/bundle.js",
	)

	tree := walk(t, root, Options{})

	var paths []string
	for v := range tree.All() {
		paths = append(paths, v.Node.Path)
	}
	assert.Equal(t, []string{"index.js", "src", "src/app.js", "src/deep"}, paths)

	text := RenderText(tree)
	graph := DescribeGraph(tree).String()
	for _, name := range []string{"node_modules", ".git", "dist", "left-pad", "bundle.js"} {
		assert.NotContains(t, text, name)
		assert.NotContains(t, graph, name)
	}
}

func TestWalk_CustomExclusions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "vendor/x.go", "node_modules/y.js", "main.go")

	tree := walk(t, root, Options{Exclude: []string{"vendor"}})

	var names []string
	for _, n := range tree.Children {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"main.go", "node_modules"}, names)
}

func TestWalk_NodeCountMatchesFilesystem(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"a.txt", "b/c.txt", "b/d/e.txt", "b/d/f/", "g/", "node_modules/h.js", "b/.git/config",
	)
	w := New(Options{})
	tree, err := w.Walk(context.Background(), root)
	require.NoError(t, err)

	expected := 0
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		require.NoError(t, err)
		if p == root {
			return nil
		}
		if w.Excluded(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		expected++
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, expected, tree.Len())
	assert.Equal(t, tree.Len(), strings.Count(RenderText(tree), "\n"))
	assert.Len(t, DescribeGraph(tree).Declarations, tree.Len())
}

func TestWalk_EmptyDirectory(t *testing.T) {
	tree := walk(t, t.TempDir(), Options{})

	assert.Empty(t, tree.Children)
	assert.Equal(t, "", RenderText(tree))
	assert.Equal(t, GraphHeader, DescribeGraph(tree).String())
}

func TestWalk_BrokenSymlinkIsFatalWhenStrict(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "src/ok.js")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "src", "dangling")))

	_, err := New(Options{}).Walk(context.Background(), root)
	require.Error(t, err)

	var walkErr *WalkError
	require.ErrorAs(t, err, &walkErr)
	assert.Equal(t, "src/dangling", walkErr.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestWalk_BrokenSymlinkAnnotated(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "src/ok.js")
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "src", "dangling")))

	tree := walk(t, root, Options{OnError: Annotate})

	src := tree.Children[0]
	require.Len(t, src.Children, 2)
	assert.Equal(t, "dangling", src.Children[0].Name)
	assert.True(t, src.Children[0].Unreadable)
	assert.False(t, src.Children[1].Unreadable)
}

func TestWalk_SymlinkedDirectoryNotDescended(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "real/file.txt")
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "loop")))

	tree := walk(t, root, Options{})

	require.Len(t, tree.Children, 2)
	link := tree.Children[0]
	assert.Equal(t, "loop", link.Name)
	assert.Equal(t, KindDirectory, link.Type)
	assert.True(t, link.Symlink)
	assert.Empty(t, link.Children)
	assert.Len(t, tree.Children[1].Children, 1)
}

func TestWalk_RootErrors(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "file.txt")

	_, err := New(Options{}).Walk(context.Background(), filepath.Join(root, "nope"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = New(Options{}).Walk(context.Background(), filepath.Join(root, "file.txt"))
	assert.Error(t, err)
}

func TestWalk_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a/b.txt")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Walk(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseErrorPolicy(t *testing.T) {
	p, err := ParseErrorPolicy("")
	require.NoError(t, err)
	assert.Equal(t, Strict, p)

	p, err = ParseErrorPolicy("Annotate")
	require.NoError(t, err)
	assert.Equal(t, Annotate, p)
	assert.Equal(t, "annotate", p.String())

	_, err = ParseErrorPolicy("skip")
	assert.Error(t, err)
}

func TestTree_AllIsRestartable(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a/b/c.txt", "d.txt")
	tree := walk(t, root, Options{})

	var first, second []Visit
	for v := range tree.All() {
		first = append(first, v)
	}
	for v := range tree.All() {
		second = append(second, v)
	}
	assert.Equal(t, first, second)

	require.Len(t, first, 4)
	assert.Equal(t, 0, first[0].Depth)
	assert.Nil(t, first[0].Parent)
	assert.Equal(t, 2, first[2].Depth)
	assert.Equal(t, "a/b", first[2].Parent.Path)
	assert.True(t, first[3].IsLast)
	assert.False(t, first[0].IsLast)

	count := 0
	for range tree.All() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
}

package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Kind distinguishes files from directories in the node tree
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// DefaultExclude lists the names that are never descended into or emitted
var DefaultExclude = []string{".git", "node_modules", ".next", "dist"}

// Node is a single file or directory found during a walk.
// Path is relative to the walked root and always slash-separated.
type Node struct {
	Name       string  `json:"name" yaml:"name"`
	Type       Kind    `json:"type" yaml:"type"`
	Path       string  `json:"path" yaml:"path"`
	Children   []*Node `json:"children,omitempty" yaml:"children,omitempty"`
	Symlink    bool    `json:"symlink,omitempty" yaml:"symlink,omitempty"`
	Unreadable bool    `json:"unreadable,omitempty" yaml:"unreadable,omitempty"`
}

// IsDir reports whether the node is a directory
func (n *Node) IsDir() bool {
	return n.Type == KindDirectory
}

// Tree is the result of walking a root directory
type Tree struct {
	Root     string
	Children []*Node
}

// Len returns the number of nodes in the tree
func (t *Tree) Len() int {
	count := 0
	for range t.All() {
		count++
	}
	return count
}

// ErrorPolicy controls what happens when an entry cannot be read
type ErrorPolicy int

const (
	// Strict fails the whole walk on the first unreadable entry
	Strict ErrorPolicy = iota
	// Annotate keeps unreadable entries in the tree, flagged as unreadable
	Annotate
)

// String returns the config name of the policy
func (p ErrorPolicy) String() string {
	switch p {
	case Annotate:
		return "annotate"
	default:
		return "strict"
	}
}

// ParseErrorPolicy parses "strict" or "annotate"
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return Strict, nil
	case "annotate":
		return Annotate, nil
	default:
		return Strict, fmt.Errorf("unknown walker error policy %q", s)
	}
}

// WalkError records the entry that could not be read
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("walk %s: %v", e.Path, e.Err)
}

func (e *WalkError) Unwrap() error {
	return e.Err
}

// Options configures a Walker
type Options struct {
	// Exclude overrides DefaultExclude when non-nil
	Exclude []string
	OnError ErrorPolicy
}

// Walker traverses a directory into a Tree. It holds no per-walk state and
// is safe for concurrent use.
type Walker struct {
	exclude map[string]struct{}
	onError ErrorPolicy
}

// New creates a walker
func New(opts Options) *Walker {
	names := opts.Exclude
	if names == nil {
		names = DefaultExclude
	}
	exclude := make(map[string]struct{}, len(names))
	for _, name := range names {
		exclude[name] = struct{}{}
	}
	return &Walker{exclude: exclude, onError: opts.OnError}
}

// Excluded reports whether name is skipped at every depth
func (w *Walker) Excluded(name string) bool {
	_, ok := w.exclude[name]
	return ok
}

// Walk reads root once and returns its node tree. Entries keep the order of
// os.ReadDir, which is sorted by name.
func (w *Walker) Walk(ctx context.Context, root string) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, &WalkError{Path: ".", Err: err}
	}
	if !info.IsDir() {
		return nil, &WalkError{Path: ".", Err: fmt.Errorf("%s is not a directory", root)}
	}

	children, err := w.walkDir(ctx, root, "")
	if err != nil {
		return nil, err
	}
	return &Tree{Root: root, Children: children}, nil
}

func (w *Walker) walkDir(ctx context.Context, dir, rel string) ([]*Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &WalkError{Path: displayPath(rel), Err: err}
	}

	nodes := make([]*Node, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if w.Excluded(name) {
			continue
		}

		childRel := path.Join(rel, name)
		fullPath := filepath.Join(dir, name)

		// Stat follows symlinks so a dangling link surfaces as an error
		info, err := os.Stat(fullPath)
		if err != nil {
			if w.onError == Annotate {
				nodes = append(nodes, &Node{Name: name, Type: KindFile, Path: childRel, Unreadable: true})
				continue
			}
			return nil, &WalkError{Path: childRel, Err: err}
		}

		node := &Node{
			Name:    name,
			Type:    KindFile,
			Path:    childRel,
			Symlink: entry.Type()&fs.ModeSymlink != 0,
		}
		if info.IsDir() {
			node.Type = KindDirectory
			if !node.Symlink {
				children, err := w.walkDir(ctx, fullPath, childRel)
				if err != nil {
					var walkErr *WalkError
					if w.onError != Annotate || !errors.As(err, &walkErr) {
						return nil, err
					}
					node.Unreadable = true
				}
				node.Children = children
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func displayPath(rel string) string {
	if rel == "" {
		return "."
	}
	return rel
}

package walker

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// GraphHeader opens every Mermaid graph description
const GraphHeader = "graph TD"

// Graph is a Mermaid flowchart of the containment hierarchy.
// Declarations and Edges hold bare lines; String adds indentation.
type Graph struct {
	Declarations []string
	Edges        []string
}

// DescribeGraph declares every node and links each directory to its
// immediate children.
func DescribeGraph(t *Tree) *Graph {
	g := &Graph{}
	for v := range t.All() {
		id := NodeID(v.Node.Path)
		g.Declarations = append(g.Declarations, fmt.Sprintf(`%s["%s %s"]`, id, Icon(v.Node), escapeLabel(v.Node.Name)))
		if v.Parent != nil {
			g.Edges = append(g.Edges, fmt.Sprintf("%s --> %s", NodeID(v.Parent.Path), id))
		}
	}
	return g
}

// String renders the header followed by declarations, then edges
func (g *Graph) String() string {
	var sb strings.Builder
	sb.WriteString(GraphHeader)
	for _, lines := range [][]string{g.Declarations, g.Edges} {
		for _, line := range lines {
			sb.WriteString("\n  ")
			sb.WriteString(line)
		}
	}
	return sb.String()
}

// NodeID derives a Mermaid-safe id from a relative path. Runes outside
// [A-Za-z0-9_] become underscores; a hash of the full path is appended so
// paths like "a-b" and "a_b" never share an id.
func NodeID(relPath string) string {
	var sb strings.Builder
	for _, r := range relPath {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	fmt.Fprintf(&sb, "_%016x", xxhash.Sum64String(relPath))
	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}

package walker

import "strings"

const (
	branchGlyph    = "├──"
	terminalGlyph  = "└──"
	branchIndent   = "│   "
	terminalIndent = "    "

	directoryIcon = "📁"
	fileIcon      = "📄"
)

// Icon returns the kind icon used in text and graph labels
func Icon(n *Node) string {
	if n.IsDir() {
		return directoryIcon
	}
	return fileIcon
}

// RenderText renders the tree the way the `tree` command does, one
// newline-terminated line per node.
func RenderText(t *Tree) string {
	var sb strings.Builder
	var lastAt []bool

	for v := range t.All() {
		lastAt = lastAt[:v.Depth]
		for _, last := range lastAt {
			if last {
				sb.WriteString(terminalIndent)
			} else {
				sb.WriteString(branchIndent)
			}
		}

		if v.IsLast {
			sb.WriteString(terminalGlyph)
		} else {
			sb.WriteString(branchGlyph)
		}
		sb.WriteString(" ")
		sb.WriteString(Icon(v.Node))
		sb.WriteString(" ")
		sb.WriteString(v.Node.Name)
		sb.WriteString("\n")

		lastAt = append(lastAt, v.IsLast)
	}
	return sb.String()
}

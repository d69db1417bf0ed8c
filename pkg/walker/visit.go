package walker

import "iter"

// Visit is one step of a depth-first, pre-order pass over a Tree
type Visit struct {
	Node   *Node
	Parent *Node // nil for entries directly under the root
	Depth  int
	IsLast bool // last entry among its siblings
}

// All yields every node of the tree in pre-order. The sequence can be
// ranged over any number of times and always produces the same visits.
func (t *Tree) All() iter.Seq[Visit] {
	return func(yield func(Visit) bool) {
		visitNodes(t.Children, nil, 0, yield)
	}
}

func visitNodes(nodes []*Node, parent *Node, depth int, yield func(Visit) bool) bool {
	for i, n := range nodes {
		if !yield(Visit{Node: n, Parent: parent, Depth: depth, IsLast: i == len(nodes)-1}) {
			return false
		}
		if len(n.Children) > 0 && !visitNodes(n.Children, n, depth+1, yield) {
			return false
		}
	}
	return true
}

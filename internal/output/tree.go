package output

import (
	"strings"

	"github.com/chazu/liftcab/pkg/design"
)

const (
	treeEdge  = "├── "
	treeLast  = "└── "
	treeVert  = "│   "
	treeSpace = "    "
)

// NodeLabel renders one tree line; DefaultNodeLabel is used when nil.
type NodeLabel func(id design.NodeID, n *design.Node) string

// DefaultNodeLabel shows "designation name", or the file name when the
// node has no designation.
func DefaultNodeLabel(_ design.NodeID, n *design.Node) string {
	if n.Designation == "" {
		return StyleDim.Render(n.FullName)
	}
	return StyleNoun.Render(n.Designation) + " " + n.Name
}

// RenderTree draws t with box-drawing characters, children in stored order.
func RenderTree(t *design.Tree, label NodeLabel) string {
	if label == nil {
		label = DefaultNodeLabel
	}
	var sb strings.Builder
	root := t.Root()
	sb.WriteString(label(root, t.Node(root)))
	sb.WriteString("\n")
	renderChildren(&sb, t, root, "", label)
	return sb.String()
}

func renderChildren(sb *strings.Builder, t *design.Tree, id design.NodeID, prefix string, label NodeLabel) {
	children := t.Node(id).Children
	for i, c := range children {
		last := i == len(children)-1
		edge, next := treeEdge, treeVert
		if last {
			edge, next = treeLast, treeSpace
		}
		sb.WriteString(StyleDim.Render(prefix + edge))
		sb.WriteString(label(c, t.Node(c)))
		sb.WriteString("\n")
		renderChildren(sb, t, c, prefix+next, label)
	}
}

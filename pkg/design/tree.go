package design

import "fmt"

// Tree owns every node of one hierarchy. Children are held as ordered
// handles; the parent handle is for lookup only.
type Tree struct {
	nodes []*Node
}

// New creates a tree whose root is a copy of root.
func New(root Node) *Tree {
	root.Children = nil
	root.Parent = None
	return &Tree{nodes: []*Node{&root}}
}

// Root returns the root handle.
func (t *Tree) Root() NodeID { return 0 }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node for id. It panics on a handle from another tree.
func (t *Tree) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		panic(fmt.Sprintf("design: node %d out of range", id))
	}
	return t.nodes[id]
}

// Parent returns the parent handle, or None for the root.
func (t *Tree) Parent(id NodeID) NodeID {
	return t.Node(id).Parent
}

// AddChild attaches a copy of child under parent. When parent already has a
// direct child with the same (Name, Designation), nothing is added and the
// existing handle is returned with added == false.
func (t *Tree) AddChild(parent NodeID, child Node) (id NodeID, added bool) {
	p := t.Node(parent)
	key := child.Key()
	for _, c := range p.Children {
		if t.nodes[c].Key() == key {
			return c, false
		}
	}

	child.Children = nil
	child.Parent = parent
	id = NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &child)
	p.Children = append(p.Children, id)
	return id, true
}

// FindInSubtree searches the subtree rooted at from, excluding from itself,
// for a node with the given designation and name.
func (t *Tree) FindInSubtree(from NodeID, designation, name string) (NodeID, bool) {
	want := Key{Name: name, Designation: designation}
	for _, c := range t.Node(from).Children {
		if t.nodes[c].Key() == want {
			return c, true
		}
		if id, ok := t.FindInSubtree(c, designation, name); ok {
			return id, true
		}
	}
	return None, false
}

// PostOrder calls fn for every node, children in stored order strictly
// before their parent. Traversal stops at the first error fn returns.
func (t *Tree) PostOrder(fn func(NodeID, *Node) error) error {
	return t.postOrder(t.Root(), fn)
}

func (t *Tree) postOrder(id NodeID, fn func(NodeID, *Node) error) error {
	n := t.Node(id)
	for _, c := range n.Children {
		if err := t.postOrder(c, fn); err != nil {
			return err
		}
	}
	return fn(id, n)
}

// Walk visits nodes in pre-order with their depth below the root.
func (t *Tree) Walk(fn func(id NodeID, n *Node, depth int)) {
	var visit func(NodeID, int)
	visit = func(id NodeID, depth int) {
		n := t.Node(id)
		fn(id, n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(t.Root(), 0)
}

// Children returns the direct children of id.
func (t *Tree) Children(id NodeID) []*Node {
	n := t.Node(id)
	out := make([]*Node, 0, len(n.Children))
	for _, c := range n.Children {
		out = append(out, t.nodes[c])
	}
	return out
}

package design

import "github.com/chazu/liftcab/pkg/gateway"

// NodeID addresses a node inside its Tree. The zero value is the root.
type NodeID int

// None is the parent handle of the root.
const None NodeID = -1

// Node mirrors one design unit in the store together with the values the
// export derives for it.
type Node struct {
	FullName    string // backing file in the store
	Designation string // marking, e.g. "500.00.00"
	Name        string
	IsLocal     bool // owned by the enclosing assembly, not a standard item
	IsDetail    bool

	// SpecificationSection is read only for local units.
	SpecificationSection string

	// Filled by the rename cascade.
	NewFullName       string
	NewDesignation    string
	NewName           string
	DXFPath           string
	PDFPath           string
	NativeDrawingPath string

	// Filled during export.
	DrawingReferences []string

	// Fastener pass only.
	Transform          gateway.Matrix
	NeedsRework        bool
	IsFastenerModifier bool

	Children []NodeID
	Parent   NodeID
}

// Key is the identity used for sibling deduplication.
type Key struct {
	Name        string
	Designation string
}

// Key returns the node's deduplication key.
func (n *Node) Key() Key {
	return Key{Name: n.Name, Designation: n.Designation}
}

// HasChildren reports whether the node is an assembly in the tree.
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// Exported reports whether the rename cascade produced output paths.
func (n *Node) Exported() bool {
	return n.NewFullName != ""
}

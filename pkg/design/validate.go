package design

import (
	"errors"
	"fmt"
)

// ValidationError reports a node whose derived output paths are partially
// set.
type ValidationError struct {
	Node    NodeID
	Name    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("node %d (%s): %s", e.Node, e.Name, e.Message)
}

// Validate checks tree-wide invariants: sibling keys are unique and the
// derived paths of each node are either all empty or all populated.
func Validate(t *Tree) error {
	var errs []error
	t.Walk(func(id NodeID, n *Node, _ int) {
		seen := make(map[Key]bool, len(n.Children))
		for _, c := range n.Children {
			k := t.Node(c).Key()
			if seen[k] {
				errs = append(errs, ValidationError{
					Node: id, Name: n.Name,
					Message: fmt.Sprintf("duplicate child %q %q", k.Designation, k.Name),
				})
			}
			seen[k] = true
		}

		set := 0
		for _, p := range []string{n.NewFullName, n.DXFPath, n.PDFPath, n.NativeDrawingPath} {
			if p != "" {
				set++
			}
		}
		if set != 0 && set != 4 {
			errs = append(errs, ValidationError{
				Node: id, Name: n.Name,
				Message: fmt.Sprintf("%d of 4 derived paths set", set),
			})
		}
	})
	return errors.Join(errs...)
}

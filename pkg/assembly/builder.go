// Package assembly mirrors the component hierarchy of an open design unit
// into a design.Tree.
package assembly

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/chazu/liftcab/pkg/design"
	"github.com/chazu/liftcab/pkg/gateway"
)

// SpecSectionProperty is the user property naming the specification
// section of a local unit.
const SpecSectionProperty = "Раздел спецификации"

// Builder reads a unit's components through the gateway.
type Builder struct {
	Log *log.Logger
}

// NewBuilder returns a builder logging to l; nil discards output.
func NewBuilder(l *log.Logger) *Builder {
	if l == nil {
		l = log.New(io.Discard)
	}
	return &Builder{Log: l}
}

// Build creates the tree for u. Excluded components are ignored. A
// component whose (designation, name) already appears below the same
// parent is skipped. Components with an empty designation are attached
// but never descended into, and details are never descended into. Any
// gateway error aborts the build.
func (b *Builder) Build(u gateway.Unit) (*design.Tree, error) {
	top := u.Top()
	info, err := top.Info()
	if err != nil {
		return nil, fmt.Errorf("read top part: %w", err)
	}
	root, err := nodeFrom(top, info)
	if err != nil {
		return nil, err
	}
	t := design.New(root)
	if err := b.attach(t, t.Root(), top); err != nil {
		return nil, err
	}
	b.Log.Debug("tree built", "unit", info.Marking, "nodes", t.Len())
	return t, nil
}

func (b *Builder) attach(t *design.Tree, parent design.NodeID, p gateway.Part) error {
	parts, err := p.Parts()
	if err != nil {
		return fmt.Errorf("list components of %q: %w", t.Node(parent).Name, err)
	}
	for _, c := range parts {
		info, err := c.Info()
		if err != nil {
			return fmt.Errorf("read component of %q: %w", t.Node(parent).Name, err)
		}
		if info.Excluded {
			continue
		}
		if _, dup := t.FindInSubtree(parent, info.Marking, info.Name); dup {
			b.Log.Debug("duplicate component", "marking", info.Marking, "name", info.Name)
			continue
		}
		n, err := nodeFrom(c, info)
		if err != nil {
			return err
		}
		id, _ := t.AddChild(parent, n)

		if info.Marking == "" || info.IsDetail {
			continue
		}
		if err := b.attach(t, id, c); err != nil {
			return err
		}
	}
	return nil
}

func nodeFrom(p gateway.Part, info gateway.PartInfo) (design.Node, error) {
	n := design.Node{
		FullName:    info.FileName,
		Designation: info.Marking,
		Name:        info.Name,
		IsLocal:     info.IsLocal,
		IsDetail:    info.IsDetail,
	}
	if info.IsLocal {
		sec, _, err := p.Property(SpecSectionProperty)
		if err != nil {
			return n, fmt.Errorf("read %q of %q: %w", SpecSectionProperty, info.Name, err)
		}
		n.SpecificationSection = sec
	}
	m, err := p.Placement()
	if err != nil {
		return n, fmt.Errorf("read placement of %q: %w", info.Name, err)
	}
	n.Transform = m
	return n, nil
}

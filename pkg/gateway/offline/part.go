package offline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/chazu/liftcab/pkg/gateway"
)

var errNested = errors.New("component of a nested unit is read-only")

// topPart is the root part of an open unit.
type topPart struct {
	u *unit
}

func (p *topPart) Info() (gateway.PartInfo, error) {
	if err := p.u.check(); err != nil {
		return gateway.PartInfo{}, err
	}
	d := p.u.doc
	return gateway.PartInfo{
		FileName: p.u.path,
		Marking:  d.Marking,
		Name:     d.Name,
		IsLocal:  d.Local,
		IsDetail: d.DocumentKind() == gateway.KindPart,
		Color:    d.Color,
	}, nil
}

func (p *topPart) Property(name string) (string, bool, error) {
	if err := p.u.check(); err != nil {
		return "", false, err
	}
	v, ok := p.u.doc.Properties[name]
	return v, ok, nil
}

func (p *topPart) Placement() (gateway.Matrix, error) { return gateway.Identity(), nil }

func (p *topPart) Parts() ([]gateway.Part, error) {
	if err := p.u.check(); err != nil {
		return nil, err
	}
	return components(p.u, p.u.doc, gateway.Identity()), nil
}

func (p *topPart) SetMarking(m string) error {
	if err := p.u.check(); err != nil {
		return err
	}
	p.u.doc.Marking = m
	return nil
}

func (p *topPart) SetName(n string) error {
	if err := p.u.check(); err != nil {
		return err
	}
	p.u.doc.Name = n
	return nil
}

func (p *topPart) SetFileName(string) error {
	return errors.New("top part file follows the document; use SaveAs")
}

func (p *topPart) SetExcluded(bool) error {
	return errors.New("top part cannot be excluded")
}

func (p *topPart) SetPlacement(gateway.Matrix) error {
	return errors.New("top part has a fixed placement")
}

// component is a placement of another unit file. owner is the open unit
// when doc belongs to it; for components of nested units it is still the
// open unit but doc is a copy read from disk, so edits are refused.
type component struct {
	owner *unit
	doc   *Document
	idx   int
	base  gateway.Matrix // placement of doc in the open unit
}

func components(owner *unit, doc *Document, base gateway.Matrix) []gateway.Part {
	out := make([]gateway.Part, 0, len(doc.Components))
	for i := range doc.Components {
		out = append(out, &component{owner: owner, doc: doc, idx: i, base: base})
	}
	return out
}

func (c *component) entry() *Component { return &c.doc.Components[c.idx] }

func (c *component) direct() bool { return c.doc == c.owner.doc }

func (c *component) ref() (*Document, error) {
	ref, err := ReadDocument(c.entry().File)
	if err != nil {
		return nil, fmt.Errorf("component %d: %w", c.idx, err)
	}
	return ref, nil
}

func (c *component) Info() (gateway.PartInfo, error) {
	if err := c.owner.check(); err != nil {
		return gateway.PartInfo{}, err
	}
	ref, err := c.ref()
	if err != nil {
		return gateway.PartInfo{}, err
	}
	e := c.entry()
	color := e.Color
	if color == 0 {
		color = ref.Color
	}
	return gateway.PartInfo{
		FileName: e.File,
		Marking:  ref.Marking,
		Name:     ref.Name,
		IsLocal:  e.Local || ref.Local,
		IsDetail: ref.DocumentKind() == gateway.KindPart,
		Excluded: e.Excluded,
		Color:    color,
	}, nil
}

func (c *component) Property(name string) (string, bool, error) {
	if err := c.owner.check(); err != nil {
		return "", false, err
	}
	if v, ok := c.entry().Properties[name]; ok {
		return v, true, nil
	}
	ref, err := c.ref()
	if err != nil {
		return "", false, err
	}
	v, ok := ref.Properties[name]
	return v, ok, nil
}

func (c *component) Placement() (gateway.Matrix, error) {
	return c.base.Mul(placementMatrix(c.entry().Placement)), nil
}

func (c *component) Parts() ([]gateway.Part, error) {
	if err := c.owner.check(); err != nil {
		return nil, err
	}
	ref, err := c.ref()
	if err != nil {
		return nil, err
	}
	m, _ := c.Placement()
	return components(c.owner, ref, m), nil
}

func (c *component) edit(fn func(*Component)) error {
	if err := c.owner.check(); err != nil {
		return err
	}
	if !c.direct() {
		return errNested
	}
	fn(c.entry())
	return nil
}

func (c *component) SetMarking(string) error {
	return errors.New("component marking belongs to its file; open it to change")
}

func (c *component) SetName(string) error {
	return errors.New("component name belongs to its file; open it to change")
}

func (c *component) SetFileName(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return c.edit(func(e *Component) { e.File = abs })
}

func (c *component) SetExcluded(excluded bool) error {
	return c.edit(func(e *Component) { e.Excluded = excluded })
}

func (c *component) SetPlacement(m gateway.Matrix) error {
	return c.edit(func(e *Component) { e.Placement = placementSlice(m) })
}

package offline

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/chazu/liftcab/pkg/gateway"
)

var errClosed = errors.New("document closed")

type unit struct {
	e        *Engine
	path     string
	doc      *Document
	readOnly bool
	closed   bool
}

var _ gateway.Unit = (*unit)(nil)

func (u *unit) Path() string               { return u.path }
func (u *unit) Kind() gateway.DocumentKind { return u.doc.DocumentKind() }
func (u *unit) Top() gateway.Part          { return &topPart{u: u} }

func (u *unit) check() error {
	if u.closed {
		return errClosed
	}
	return u.e.Ping()
}

func (u *unit) Variable(name string) (float64, bool, error) {
	if err := u.check(); err != nil {
		return 0, false, err
	}
	v, ok := u.doc.variable(name)
	if !ok {
		return 0, false, nil
	}
	return v.Value, true, nil
}

// SetVariable overrides a variable; an expression it carried is dropped.
func (u *unit) SetVariable(name string, value float64) (bool, error) {
	if err := u.check(); err != nil {
		return false, err
	}
	v, ok := u.doc.variable(name)
	if !ok {
		return false, nil
	}
	v.Value = value
	v.Expr = ""
	return true, nil
}

func (u *unit) Rebuild() error {
	if err := u.check(); err != nil {
		return err
	}
	if err := solveVariables(u.doc.Variables, u.e.eqTimeout); err != nil {
		return fmt.Errorf("rebuild %s: %w", u.label(), err)
	}
	for i := range u.doc.Booleans {
		b := &u.doc.Booleans[i]
		b.Error = ""
		if b.Excluded {
			continue
		}
		if err := checkBoolean(u.doc, *b); err != nil {
			b.Error = err.Error()
		}
	}
	return nil
}

func (u *unit) AttachedDocuments() ([]string, error) {
	if err := u.check(); err != nil {
		return nil, err
	}
	return append([]string(nil), u.doc.Drawings...), nil
}

func (u *unit) Projections() ([]string, error) {
	if err := u.check(); err != nil {
		return nil, err
	}
	return append([]string(nil), u.doc.Projections...), nil
}

func (u *unit) SetMaterial(name string, density float64) error {
	if err := u.check(); err != nil {
		return err
	}
	u.doc.Material = &Material{Name: name, Density: density}
	return nil
}

func (u *unit) Unfolded() (bool, error) {
	if err := u.check(); err != nil {
		return false, err
	}
	return u.doc.SheetMetal && u.doc.Unfolded, nil
}

func (u *unit) SetUnfolded(unfolded bool) error {
	if err := u.check(); err != nil {
		return err
	}
	if u.doc.SheetMetal {
		u.doc.Unfolded = unfolded
	}
	return nil
}

func (u *unit) AddPart(path string, placement gateway.Matrix) (gateway.Part, error) {
	if err := u.check(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if _, err := ReadDocument(abs); err != nil {
		return nil, fmt.Errorf("add part: %w", err)
	}
	u.doc.Components = append(u.doc.Components, Component{
		File:      abs,
		Placement: placementSlice(placement),
	})
	return &component{owner: u, doc: u.doc, idx: len(u.doc.Components) - 1, base: gateway.Identity()}, nil
}

func (u *unit) Subtract(tools []gateway.Part) (gateway.Feature, error) {
	if err := u.check(); err != nil {
		return nil, err
	}
	if u.Kind() != gateway.KindPart {
		return nil, fmt.Errorf("subtract: %s is not a part", u.label())
	}
	b := Boolean{}
	for _, t := range tools {
		c, ok := t.(*component)
		if !ok || c.doc != u.doc {
			return nil, errors.New("subtract: tool is not a component of this unit")
		}
		b.Tools = append(b.Tools, c.idx)
	}
	if err := checkBoolean(u.doc, b); err != nil {
		b.Error = err.Error()
	}
	u.doc.Booleans = append(u.doc.Booleans, b)
	return &feature{u: u, idx: len(u.doc.Booleans) - 1}, nil
}

// Save writes back to the current path. Read-only units refuse until
// SaveAs has moved them elsewhere.
func (u *unit) Save() error {
	if err := u.check(); err != nil {
		return err
	}
	if u.path == "" {
		return errors.New("save: unit has no path")
	}
	if u.readOnly {
		return fmt.Errorf("save %s: opened read-only", u.path)
	}
	return WriteDocument(u.path, u.doc)
}

func (u *unit) SaveAs(path string) error {
	if err := u.check(); err != nil {
		return err
	}
	if !hasExt(path, ExtPart, ExtAssembly) {
		return fmt.Errorf("save as %s: unsupported document type", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := WriteDocument(abs, u.doc); err != nil {
		return err
	}
	u.e.log.Debug("save as", "from", u.path, "to", abs)
	u.path = abs
	u.readOnly = false
	return nil
}

func (u *unit) Close(discard bool) error {
	if u.closed {
		return nil
	}
	var err error
	if !discard && !u.readOnly && u.path != "" {
		err = WriteDocument(u.path, u.doc)
	}
	u.closed = true
	u.e.track(-1)
	return err
}

func (u *unit) label() string {
	if u.path != "" {
		return filepath.Base(u.path)
	}
	return "unsaved unit"
}

type feature struct {
	u   *unit
	idx int
}

func (f *feature) Status() error {
	if msg := f.u.doc.Booleans[f.idx].Error; msg != "" {
		return errors.New(msg)
	}
	return nil
}

func (f *feature) SetExcluded(excluded bool) error {
	if err := f.u.check(); err != nil {
		return err
	}
	f.u.doc.Booleans[f.idx].Excluded = excluded
	return nil
}

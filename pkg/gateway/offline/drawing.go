package offline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/liftcab/pkg/gateway"
)

type drawing struct {
	e      *Engine
	path   string
	doc    *DrawingDocument
	closed bool
}

var _ gateway.Drawing = (*drawing)(nil)

func (d *drawing) check() error {
	if d.closed {
		return errClosed
	}
	return d.e.Ping()
}

func (d *drawing) Path() string { return d.path }

func (d *drawing) Views() ([]gateway.View, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	out := make([]gateway.View, 0, len(d.doc.Views))
	for i := range d.doc.Views {
		out = append(out, &view{d: d, idx: i})
	}
	return out, nil
}

// Rebuild fails when a visible associative view points at a missing unit.
func (d *drawing) Rebuild() error {
	if err := d.check(); err != nil {
		return err
	}
	for _, v := range d.doc.Views {
		if !v.Associative || v.Hidden {
			continue
		}
		if _, err := os.Stat(v.Source); err != nil {
			return fmt.Errorf("view %s: source %s: %w", v.Name, v.Source, gateway.ErrNotFound)
		}
	}
	return nil
}

// SaveAs writes a native copy for .cdw paths and plots the first visible
// associative view for .pdf paths.
func (d *drawing) SaveAs(path string) error {
	if err := d.check(); err != nil {
		return err
	}
	switch {
	case hasExt(path, ExtDrawing):
		return WriteDrawing(path, d.doc)
	case hasExt(path, ExtPDF):
		src := d.plotSource()
		if src == "" {
			return fmt.Errorf("save %s: drawing has no associative view", path)
		}
		doc, err := ReadDocument(src)
		if err != nil {
			return err
		}
		return plotSVG(doc, path, d.e.cells)
	}
	return fmt.Errorf("save %s: unsupported drawing format", path)
}

func (d *drawing) plotSource() string {
	var fallback string
	for _, v := range d.doc.Views {
		if !v.Associative {
			continue
		}
		if !v.Hidden {
			return v.Source
		}
		if fallback == "" {
			fallback = v.Source
		}
	}
	return fallback
}

func (d *drawing) Close(discard bool) error {
	if d.closed {
		return nil
	}
	var err error
	if !discard {
		err = WriteDrawing(d.path, d.doc)
	}
	d.closed = true
	d.e.track(-1)
	return err
}

type view struct {
	d   *drawing
	idx int
}

func (v *view) entry() *View { return &v.d.doc.Views[v.idx] }

func (v *view) Name() string      { return v.entry().Name }
func (v *view) Associative() bool { return v.entry().Associative }
func (v *view) Hidden() bool      { return v.entry().Hidden }
func (v *view) Source() string    { return v.entry().Source }

func (v *view) SetHidden(hidden bool) error {
	if err := v.d.check(); err != nil {
		return err
	}
	v.entry().Hidden = hidden
	return nil
}

func (v *view) SetSource(path string) error {
	if err := v.d.check(); err != nil {
		return err
	}
	if !v.entry().Associative {
		return fmt.Errorf("view %s is not associative", v.Name())
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	v.entry().Source = abs
	return nil
}

func (v *view) Update() error {
	if err := v.d.check(); err != nil {
		return err
	}
	e := v.entry()
	if !e.Associative {
		return nil
	}
	if _, err := ReadDocument(e.Source); err != nil {
		return fmt.Errorf("update view %s: %w", e.Name, err)
	}
	return nil
}

// sheet collects views until SaveDXF plots them.
type sheet struct {
	e      *Engine
	views  []gateway.ViewSpec
	closed bool
}

var _ gateway.Sheet = (*sheet)(nil)

func (s *sheet) AddView(spec gateway.ViewSpec) error {
	if s.closed {
		return errClosed
	}
	if err := s.e.Ping(); err != nil {
		return err
	}
	doc, err := ReadDocument(spec.Source)
	if err != nil {
		return fmt.Errorf("add view: %w", err)
	}
	if spec.Projection != "" {
		if !projectionKnown(doc, spec.Projection) {
			return fmt.Errorf("add view: projection %q not defined in %s", spec.Projection, filepath.Base(spec.Source))
		}
	}
	s.views = append(s.views, spec)
	return nil
}

// projectionKnown accepts a projection the document lists, with or without
// the '#' prefix used to address named projections.
func projectionKnown(d *Document, name string) bool {
	for _, p := range d.Projections {
		if p == name || "#"+p == name {
			return true
		}
	}
	return false
}

func (s *sheet) Rebuild() error {
	if s.closed {
		return errClosed
	}
	return s.e.Ping()
}

// SaveDXF plots the first view. Views of units that are not unfolded still
// plot their mid-thickness section.
func (s *sheet) SaveDXF(path string) error {
	if s.closed {
		return errClosed
	}
	if err := s.e.Ping(); err != nil {
		return err
	}
	if len(s.views) == 0 {
		return errors.New("save dxf: sheet has no views")
	}
	doc, err := ReadDocument(s.views[0].Source)
	if err != nil {
		return err
	}
	s.e.log.Debug("flat pattern", "source", s.views[0].Source, "projection", s.views[0].Projection, "path", path)
	return plotDXF(doc, path, s.e.cells)
}

func (s *sheet) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.e.track(-1)
	return nil
}

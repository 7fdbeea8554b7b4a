package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/chazu/liftcab/pkg/design"
	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/rename"
	"github.com/chazu/liftcab/pkg/subst"
)

// Artifacts writes the derived outputs of a saved unit: the flat pattern
// of a sheet-metal detail and the view-based drawing.
type Artifacts struct {
	Session     *gateway.Session
	Conventions rename.Conventions
	Log         *log.Logger
}

// NewArtifacts returns an exporter using s; a nil logger discards output.
func NewArtifacts(s *gateway.Session, conv rename.Conventions, l *log.Logger) *Artifacts {
	if l == nil {
		l = log.New(io.Discard)
	}
	return &Artifacts{Session: s, Conventions: conv, Log: l}
}

// FlatPatternProjection picks the projection for a flat pattern: the side
// named by the request when the unit defines it, else the unfold
// projection when defined, else the engine default ("").
func (a *Artifacts) FlatPatternProjection(u gateway.Unit, dict *subst.Dictionary) (string, error) {
	projections, err := u.Projections()
	if err != nil {
		return "", fmt.Errorf("list projections: %w", err)
	}
	if side, ok := dict.Get(a.Conventions.SideKey); ok && side != "" && slices.Contains(projections, side) {
		return side, nil
	}
	if p := a.Conventions.UnfoldProjection; p != "" && slices.Contains(projections, p) {
		return "#" + p, nil
	}
	return "", nil
}

// FlatPattern writes n.DXFPath from an unfolded associative view of u's
// current file.
func (a *Artifacts) FlatPattern(u gateway.Unit, n *design.Node, dict *subst.Dictionary) error {
	proj, err := a.FlatPatternProjection(u, dict)
	if err != nil {
		return err
	}
	return a.WriteFlatPattern(u.Path(), n.DXFPath, proj)
}

// WriteFlatPattern plots source unfolded at scale 1 into a DXF file through
// a transient sheet.
func (a *Artifacts) WriteFlatPattern(source, out, proj string) error {
	err := a.Session.WithSheet(func(sh gateway.Sheet) error {
		spec := gateway.ViewSpec{
			Name:       "User view",
			Source:     source,
			Projection: proj,
			Unfold:     true,
			Scale:      1,
		}
		if err := sh.AddView(spec); err != nil {
			return err
		}
		if err := sh.Rebuild(); err != nil {
			return err
		}
		return sh.SaveDXF(out)
	})
	if err != nil {
		return fmt.Errorf("flat pattern %s: %w", out, err)
	}
	a.Log.Debug("flat pattern written", "path", out, "projection", proj)
	return nil
}

// ViewDrawing rebinds the unit's drawing to n.NewFullName and writes it as
// PDF and as a native copy. The drawing is chosen by the unit's drawing
// index variable, rounded to the nearest integer, among n.DrawingReferences. A sheet-metal unit left
// unfolded is folded back and saved.
func (a *Artifacts) ViewDrawing(u gateway.Unit, n *design.Node) error {
	if len(n.DrawingReferences) == 0 {
		return nil
	}
	idx := 0
	if v, ok, err := u.Variable(a.Conventions.DrawingIndexVar); err != nil {
		return fmt.Errorf("read drawing index: %w", err)
	} else if ok {
		idx = int(math.Round(v))
	}
	if idx < 0 || idx >= len(n.DrawingReferences) {
		return fmt.Errorf("drawing index %d out of range (%d attached)", idx, len(n.DrawingReferences))
	}

	ref := n.DrawingReferences[idx]
	err := a.Session.WithDrawing(ref, func(d gateway.Drawing) error {
		if err := rebind(d, n.NewFullName); err != nil {
			return err
		}
		if err := d.SaveAs(n.PDFPath); err != nil {
			return err
		}
		if err := d.SaveAs(n.NativeDrawingPath); err != nil {
			return err
		}
		return foldBack(u)
	})
	if err != nil {
		return fmt.Errorf("drawing %s: %w", n.PDFPath, err)
	}
	a.Log.Debug("drawing written", "pdf", n.PDFPath, "native", n.NativeDrawingPath)
	return nil
}

// rebind points every associative view at source. Hidden views are shown
// for the update and hidden again afterwards.
func rebind(d gateway.Drawing, source string) error {
	views, err := d.Views()
	if err != nil {
		return err
	}
	var hidden []gateway.View
	for _, v := range views {
		if v.Hidden() {
			if err := v.SetHidden(false); err != nil {
				return err
			}
			hidden = append(hidden, v)
		}
		if !v.Associative() {
			continue
		}
		if err := v.SetSource(source); err != nil {
			return fmt.Errorf("view %s: %w", v.Name(), err)
		}
		if err := v.Update(); err != nil {
			return err
		}
	}
	if err := d.Rebuild(); err != nil {
		return err
	}
	for _, v := range hidden {
		if err := v.SetHidden(true); err != nil {
			return err
		}
	}
	return d.Rebuild()
}

func foldBack(u gateway.Unit) error {
	unfolded, err := u.Unfolded()
	if err != nil || !unfolded {
		return err
	}
	return errors.Join(u.SetUnfolded(false), u.Rebuild(), u.Save())
}

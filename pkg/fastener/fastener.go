// Package fastener inserts fastener geometry into the parts that carry it.
//
// An assembly marks the parts to be reworked and the fastener bodies that
// cut them by colour. Scan classifies the placed details of an open
// assembly; Insert then opens every rework target, places every fastener
// modifier at its assembly transform, subtracts them in one boolean and
// writes a fresh flat pattern next to the model.
package fastener

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/chazu/liftcab/pkg/design"
	"github.com/chazu/liftcab/pkg/export"
	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/rename"
)

// Side projections selected by the target's marking.
var sideProjections = []string{"R", "L"}

// Classification lists the coloured details of an assembly.
type Classification struct {
	Targets   []design.Node // parts to rework
	Modifiers []design.Node // fastener bodies to subtract
}

// Empty reports whether there is nothing to insert.
func (c Classification) Empty() bool {
	return len(c.Targets) == 0 || len(c.Modifiers) == 0
}

// TargetResult is the outcome for one rework target.
type TargetResult struct {
	Path     string
	DXFPath  string
	Inserted int  // modifiers placed
	Dropped  bool // boolean failed and was excluded
	Err      error
}

// Engine runs the fastener pass through a session.
type Engine struct {
	Session     *gateway.Session
	Conventions rename.Conventions
	Artifacts   *export.Artifacts
	Log         *log.Logger
}

// New wires an engine to s; a nil logger discards output.
func New(s *gateway.Session, conv rename.Conventions, l *log.Logger) *Engine {
	if l == nil {
		l = log.New(io.Discard)
	}
	return &Engine{
		Session:     s,
		Conventions: conv,
		Artifacts:   export.NewArtifacts(s, conv, l),
		Log:         l,
	}
}

// Scan walks the non-excluded components of u. Details are classified by
// colour; sub-assemblies are descended into.
func (e *Engine) Scan(u gateway.Unit) (Classification, error) {
	var c Classification
	err := e.scan(u.Top(), &c)
	return c, err
}

func (e *Engine) scan(p gateway.Part, c *Classification) error {
	parts, err := p.Parts()
	if err != nil {
		return err
	}
	for _, item := range parts {
		info, err := item.Info()
		if err != nil {
			return err
		}
		if info.Excluded {
			continue
		}
		if !info.IsDetail {
			if err := e.scan(item, c); err != nil {
				return err
			}
			continue
		}

		rework := info.Color == e.Conventions.ReworkColor
		modifier := info.Color == e.Conventions.FastenerColor
		if !rework && !modifier {
			continue
		}
		m, err := item.Placement()
		if err != nil {
			return fmt.Errorf("placement of %s: %w", info.FileName, err)
		}
		n := design.Node{
			FullName:           info.FileName,
			Designation:        info.Marking,
			Name:               info.Name,
			IsLocal:            info.IsLocal,
			IsDetail:           true,
			Transform:          m,
			NeedsRework:        rework,
			IsFastenerModifier: modifier,
		}
		if rework {
			c.Targets = append(c.Targets, n)
		}
		if modifier {
			c.Modifiers = append(c.Modifiers, n)
		}
	}
	return nil
}

// Insert cuts every modifier out of every distinct target. Each target is
// handled on its own; a failure is recorded and the next one proceeds.
func (e *Engine) Insert(c Classification) []TargetResult {
	if c.Empty() {
		return nil
	}
	seen := make(map[string]bool)
	var results []TargetResult
	for _, t := range c.Targets {
		key := strings.ToLower(t.FullName)
		if t.FullName == "" || seen[key] {
			continue
		}
		seen[key] = true

		r := e.rework(t, c.Modifiers)
		if r.Err != nil {
			e.Log.Warn("fastener insertion failed", "target", t.FullName, "err", r.Err)
		} else {
			e.Log.Info("fasteners inserted", "target", t.FullName, "count", r.Inserted, "dxf", r.DXFPath)
		}
		results = append(results, r)
	}
	return results
}

func (e *Engine) rework(t design.Node, modifiers []design.Node) TargetResult {
	r := TargetResult{Path: t.FullName}
	r.Err = e.Session.WithUnit(t.FullName, gateway.OpenOptions{Visible: true}, func(u gateway.Unit) error {
		var tools []gateway.Part
		for _, m := range modifiers {
			if m.FullName == "" {
				continue
			}
			p, err := u.AddPart(m.FullName, m.Transform)
			if err != nil {
				return fmt.Errorf("insert %s: %w", filepath.Base(m.FullName), err)
			}
			tools = append(tools, p)
		}
		r.Inserted = len(tools)

		if len(tools) > 0 {
			dropped, err := subtract(u, tools)
			if err != nil {
				return err
			}
			r.Dropped = dropped
		}
		if err := u.Rebuild(); err != nil {
			return err
		}
		// The sheet reads the unit from its file, so the cut body is
		// saved before it is plotted.
		if err := u.Save(); err != nil {
			return err
		}

		out, proj, err := e.flatPatternTarget(u)
		if err != nil {
			return err
		}
		r.DXFPath = out
		return e.Artifacts.WriteFlatPattern(u.Path(), out, proj)
	})
	return r
}

// subtract adds one difference of tools. A boolean that fails to build is
// suppressed with its tools so the part keeps its previous shape.
func subtract(u gateway.Unit, tools []gateway.Part) (dropped bool, err error) {
	f, err := u.Subtract(tools)
	if err != nil {
		return false, fmt.Errorf("subtract: %w", err)
	}
	if f.Status() == nil {
		return false, nil
	}
	errs := []error{f.SetExcluded(true)}
	for _, t := range tools {
		errs = append(errs, t.SetExcluded(true))
	}
	return true, errors.Join(errs...)
}

// flatPatternTarget names the DXF after the target's marking, or its file
// stem, in the model's directory. The projection is the side named in the
// marking, else the unfold projection, else the engine default.
func (e *Engine) flatPatternTarget(u gateway.Unit) (out, proj string, err error) {
	info, err := u.Top().Info()
	if err != nil {
		return "", "", err
	}
	stem := info.Marking
	if stem == "" {
		stem = strings.TrimSuffix(filepath.Base(u.Path()), filepath.Ext(u.Path()))
	}
	out = filepath.Join(filepath.Dir(u.Path()), stem+".dxf")

	projections, err := u.Projections()
	if err != nil {
		return "", "", err
	}
	for _, side := range sideProjections {
		if strings.Contains(info.Marking, side) && slices.Contains(projections, side) {
			return out, side, nil
		}
	}
	if p := e.Conventions.UnfoldProjection; p != "" && slices.Contains(projections, p) {
		return out, "#" + p, nil
	}
	return out, "", nil
}

package export

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/chazu/liftcab/pkg/design"
	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/rename"
	"github.com/chazu/liftcab/pkg/subst"
)

// NodeResult records the outcome of one node. Stage is the last stage
// reached; on failure it is the stage that failed.
type NodeResult struct {
	Node           design.NodeID
	Name           string
	Designation    string
	NewDesignation string
	NewFullName    string
	Stage          Stage
	Err            error
	Skipped        bool
}

// OK reports whether the node was processed without error.
func (r NodeResult) OK() bool { return r.Err == nil && !r.Skipped }

type nodeState int

const (
	unvisited nodeState = iota
	childrenProcessed
	nodeProcessed
	// nodeFailed nodes keep whatever paths they derived; parents still
	// relink to them.
	nodeFailed
)

// settled reports whether a node's processing has finished, successfully
// or not.
func (s nodeState) settled() bool { return s == nodeProcessed || s == nodeFailed }

// Scheduler processes a design tree bottom-up: every child is renamed,
// resized, saved and exported before its parent is opened, so parents can
// relink to the children's new files.
type Scheduler struct {
	Session     *gateway.Session
	Conventions rename.Conventions
	Artifacts   *Artifacts
	Log         *log.Logger
}

// NewScheduler wires a scheduler and its artifact exporter to s.
func NewScheduler(s *gateway.Session, conv rename.Conventions, l *log.Logger) *Scheduler {
	if l == nil {
		l = log.New(io.Discard)
	}
	return &Scheduler{
		Session:     s,
		Conventions: conv,
		Artifacts:   NewArtifacts(s, conv, l),
		Log:         l,
	}
}

// Run processes every node of t in post-order and returns one result per
// node in processing order. Failures are logged and recorded; traversal
// always continues.
func (s *Scheduler) Run(t *design.Tree, rc RequestContext) []NodeResult {
	results, _ := s.run(t, rc)
	return results
}

// run is Run that also returns the final state of every node by id.
func (s *Scheduler) run(t *design.Tree, rc RequestContext) ([]NodeResult, []nodeState) {
	cascade := rename.New(s.Conventions, rc.ExportDir)
	state := make([]nodeState, t.Len())
	results := make([]NodeResult, 0, t.Len())

	_ = t.PostOrder(func(id design.NodeID, n *design.Node) error {
		for _, c := range n.Children {
			if !state[c].settled() {
				panic(fmt.Sprintf("export: child %d of %q not processed before parent", c, n.Name))
			}
		}
		state[id] = childrenProcessed

		r := s.process(t, id, n, rc, cascade)
		r.NewDesignation = n.NewDesignation
		r.NewFullName = n.NewFullName
		results = append(results, r)
		if r.Err != nil {
			state[id] = nodeFailed
		} else {
			state[id] = nodeProcessed
		}

		switch {
		case r.Skipped:
			s.Log.Debug("node skipped", "name", n.Name, "designation", n.Designation)
		case r.Err != nil:
			s.Log.Warn("node failed", "name", n.Name, "designation", n.Designation, "stage", r.Stage, "err", r.Err)
		default:
			s.Log.Info("node exported", "designation", n.NewDesignation, "file", filepath.Base(n.NewFullName))
		}
		return nil
	})
	return results, state
}

func (s *Scheduler) process(t *design.Tree, id design.NodeID, n *design.Node, rc RequestContext, c *rename.Cascade) NodeResult {
	r := NodeResult{Node: id, Name: n.Name, Designation: n.Designation}
	if n.FullName == "" {
		r.Skipped = true
		return r
	}

	var err error
	if n.HasChildren() {
		r.Stage, err = s.assembly(t, id, n, rc, c)
	} else {
		r.Stage, err = s.leaf(n, rc, c)
	}
	if err != nil {
		r.Err = &NodeError{Node: id, Name: n.Name, Stage: r.Stage, Err: err}
	}
	return r
}

func (s *Scheduler) leaf(n *design.Node, rc RequestContext, c *rename.Cascade) (stage Stage, err error) {
	stage = StageOpen
	opts := gateway.OpenOptions{ReadOnly: true, Visible: true}
	err = s.Session.WithUnit(n.FullName, opts, func(u gateway.Unit) error {
		stage = StageReferences
		if err := s.references(u, n); err != nil {
			return err
		}
		stage = StageVariables
		if err := applyVariables(u, rc.Variables); err != nil {
			return err
		}
		stage = StageRename
		if err := c.Apply(n, rc.Replacements, u); err != nil {
			return err
		}
		stage = StageMaterial
		if err := s.material(u, rc.Replacements); err != nil {
			return err
		}
		stage = StageSave
		if err := u.SaveAs(n.NewFullName); err != nil {
			return err
		}

		stage = StageArtifacts
		var errs []error
		if s.Conventions.IsSheetMetal(n.Designation) {
			errs = append(errs, s.Artifacts.FlatPattern(u, n, rc.Replacements))
		}
		errs = append(errs, s.Artifacts.ViewDrawing(u, n))
		if err := errors.Join(errs...); err != nil {
			return err
		}
		stage = StageClose
		return nil
	})
	if err == nil {
		stage = StageDone
	}
	return stage, err
}

func (s *Scheduler) assembly(t *design.Tree, id design.NodeID, n *design.Node, rc RequestContext, c *rename.Cascade) (stage Stage, err error) {
	stage = StageOpen
	opts := gateway.OpenOptions{ReadOnly: true, Visible: false}
	err = s.Session.WithUnit(n.FullName, opts, func(u gateway.Unit) error {
		stage = StageReferences
		if err := s.references(u, n); err != nil {
			return err
		}
		stage = StageVariables
		if err := applyVariables(u, rc.Variables); err != nil {
			return err
		}
		stage = StageRename
		if err := c.Apply(n, rc.Replacements, u); err != nil {
			return err
		}
		stage = StageRelink
		if err := relink(u, t.Children(id), s.Log); err != nil {
			return err
		}
		if err := u.Rebuild(); err != nil {
			return err
		}
		stage = StageSave
		if err := u.SaveAs(n.NewFullName); err != nil {
			return err
		}
		stage = StageArtifacts
		if err := s.Artifacts.ViewDrawing(u, n); err != nil {
			return err
		}
		stage = StageClose
		return nil
	})
	if err == nil {
		stage = StageDone
	}
	return stage, err
}

// references records the unit's attached native drawings in stored order.
func (s *Scheduler) references(u gateway.Unit, n *design.Node) error {
	docs, err := u.AttachedDocuments()
	if err != nil {
		return err
	}
	n.DrawingReferences = n.DrawingReferences[:0]
	for _, d := range docs {
		if d != "" && strings.EqualFold(filepath.Ext(d), s.Conventions.NativeDrawingExt) {
			n.DrawingReferences = append(n.DrawingReferences, d)
		}
	}
	return nil
}

// applyVariables pushes every request variable the unit defines, then
// rebuilds.
func applyVariables(u gateway.Unit, vars *subst.Variables) error {
	var errs []error
	vars.Each(func(name string, value float64) {
		if _, err := u.SetVariable(name, value); err != nil {
			errs = append(errs, fmt.Errorf("set %s: %w", name, err))
		}
	})
	if err := errors.Join(errs...); err != nil {
		return err
	}
	return u.Rebuild()
}

// material replaces the unit's material with the requested one when the
// unit is flagged for it.
func (s *Scheduler) material(u gateway.Unit, dict *subst.Dictionary) error {
	flag, ok, err := u.Top().Property(s.Conventions.MaterialFlag)
	if err != nil || !ok || flag == "" {
		return err
	}
	name, ok := dict.Get(s.Conventions.MaterialKey)
	if !ok || name == "" {
		s.Log.Debug("material flag set but no material requested", "unit", filepath.Base(u.Path()))
		return nil
	}
	return u.SetMaterial(name, s.Conventions.MaterialDensity)
}

// relink rebinds each direct component whose file matches a child's
// original file to the child's new file. Children without a new file keep
// the old reference.
func relink(u gateway.Unit, children []*design.Node, l *log.Logger) error {
	parts, err := u.Top().Parts()
	if err != nil {
		return err
	}
	for _, p := range parts {
		info, err := p.Info()
		if err != nil {
			return err
		}
		for _, c := range children {
			if c.FullName == "" || c.NewFullName == "" || !strings.EqualFold(c.FullName, info.FileName) {
				continue
			}
			if err := p.SetFileName(c.NewFullName); err != nil {
				return fmt.Errorf("relink %s: %w", filepath.Base(info.FileName), err)
			}
			l.Debug("relinked", "from", filepath.Base(info.FileName), "to", filepath.Base(c.NewFullName))
			break
		}
	}
	return nil
}

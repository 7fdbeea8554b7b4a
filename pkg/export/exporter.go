package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chazu/liftcab/pkg/assembly"
	"github.com/chazu/liftcab/pkg/design"
	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/rename"
	"github.com/chazu/liftcab/pkg/report"
	"github.com/google/uuid"
)

// Recorder persists run history. Record errors are logged and never fail
// a run.
type Recorder interface {
	BeginRun(run RunInfo) error
	RecordPart(runID string, p PartOutcome) error
	EndRun(runID string, s *Summary) error
}

// RunInfo identifies a run.
type RunInfo struct {
	ID         string
	ReportPath string
	ExportDir  string
	Started    time.Time
}

// PartOutcome is the result of exporting one request part.
type PartOutcome struct {
	Group        string
	Source       string
	NewPathModel string
	Skipped      bool
	Err          error
	Nodes        []NodeResult
}

// Summary is the result of Exporter.Run.
type Summary struct {
	RunInfo
	Finished time.Time
	Parts    []PartOutcome
}

// Counts tallies node results across all parts.
func (s *Summary) Counts() (ok, failed, skipped int) {
	for _, p := range s.Parts {
		for _, n := range p.Nodes {
			switch {
			case n.Skipped:
				skipped++
			case n.Err != nil:
				failed++
			default:
				ok++
			}
		}
	}
	return ok, failed, skipped
}

// Exporter drives a whole request: every part of the report is opened,
// resized, mirrored into a tree and exported, and the report is saved
// with the new model paths.
type Exporter struct {
	Session     *gateway.Session
	Conventions rename.Conventions
	Ready       gateway.ReadyPolicy
	Recorder    Recorder
	Log         *log.Logger
}

// NewExporter returns an exporter with default readiness policy.
func NewExporter(s *gateway.Session, conv rename.Conventions, l *log.Logger) *Exporter {
	if l == nil {
		l = log.New(io.Discard)
	}
	return &Exporter{Session: s, Conventions: conv, Ready: gateway.DefaultReadyPolicy(), Log: l}
}

// Run exports every part of rep into exportDir. An unavailable engine, a
// busy session, a unit tree that cannot be read or a failure to save the
// report is returned as an error; everything else is recorded in the
// summary. On a run-level error the summary holds the parts done so far.
func (e *Exporter) Run(rep *report.Report, exportDir string) (*Summary, error) {
	release, err := e.Session.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	if err := gateway.Ready(e.Session.Gateway(), e.Ready); err != nil {
		return nil, err
	}

	sum := &Summary{RunInfo: RunInfo{
		ID:         uuid.NewString(),
		ReportPath: rep.Path(),
		ExportDir:  exportDir,
		Started:    time.Now(),
	}}
	e.record(func(r Recorder) error { return r.BeginRun(sum.RunInfo) })
	e.Log.Info("export started", "run", sum.ID, "report", rep.Path(), "parts", len(rep.Parts))

	sched := NewScheduler(e.Session, e.Conventions, e.Log)
	for _, part := range rep.Parts {
		out, err := e.runPart(sched, part, exportDir)
		sum.Parts = append(sum.Parts, out)
		e.record(func(r Recorder) error { return r.RecordPart(sum.ID, out) })
		if err != nil {
			return sum, fmt.Errorf("part %s: %w", part.Group, err)
		}
		if fatal(out) {
			return sum, fmt.Errorf("part %s: %w", part.Group, gateway.ErrUnavailable)
		}
	}

	sum.Finished = time.Now()
	if err := rep.Save(); err != nil {
		return sum, fmt.Errorf("save report: %w", err)
	}
	e.record(func(r Recorder) error { return r.EndRun(sum.ID, sum) })
	ok, failed, skipped := sum.Counts()
	e.Log.Info("export finished", "run", sum.ID, "ok", ok, "failed", failed, "skipped", skipped)
	return sum, nil
}

// runPart exports one part. A returned error aborts the run; it is set only
// when the part's unit tree cannot be read.
func (e *Exporter) runPart(sched *Scheduler, part *report.Part, exportDir string) (PartOutcome, error) {
	out := PartOutcome{Group: part.Group, Source: part.PathModel}
	skip := func(err error) (PartOutcome, error) {
		out.Skipped, out.Err = true, err
		e.Log.Warn("part skipped", "group", part.Group, "err", err)
		return out, nil
	}

	if part.PathModel == "" {
		return skip(fmt.Errorf("no model path: %w", ErrMissingSource))
	}
	if _, err := os.Stat(part.PathModel); err != nil {
		return skip(fmt.Errorf("%s: %w", part.PathModel, ErrMissingSource))
	}
	vars, err := part.Variables()
	if err != nil {
		return skip(err)
	}
	rc := RequestContext{
		Replacements: part.Replacements(),
		Variables:    vars,
		ExportDir:    exportDir,
	}

	var tree *design.Tree
	builder := assembly.NewBuilder(e.Log)
	err = e.Session.WithUnit(part.PathModel, gateway.OpenOptions{ReadOnly: true, Visible: true}, func(u gateway.Unit) error {
		if err := applyVariables(u, rc.Variables); err != nil {
			return err
		}
		var err error
		tree, err = builder.Build(u)
		return err
	})
	if err != nil {
		out.Err = fmt.Errorf("build tree: %w", err)
		e.Log.Error("part tree unreadable, aborting run", "group", part.Group, "err", err)
		return out, out.Err
	}

	out.Nodes = sched.Run(tree, rc)
	if err := design.Validate(tree); err != nil {
		e.Log.Warn("inconsistent tree after export", "group", part.Group, "err", err)
	}
	if root := tree.Node(tree.Root()); root.NewFullName != "" {
		part.NewPathModel = root.NewFullName
		out.NewPathModel = root.NewFullName
	}
	return out, nil
}

func (e *Exporter) record(fn func(Recorder) error) {
	if e.Recorder == nil {
		return
	}
	if err := fn(e.Recorder); err != nil {
		e.Log.Warn("ledger write failed", "err", err)
	}
}

// fatal reports whether the engine went away while processing the part.
func fatal(p PartOutcome) bool {
	if errors.Is(p.Err, gateway.ErrUnavailable) {
		return true
	}
	for _, n := range p.Nodes {
		if errors.Is(n.Err, gateway.ErrUnavailable) {
			return true
		}
	}
	return false
}

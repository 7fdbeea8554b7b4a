package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/chazu/liftcab/internal/config"
	"github.com/chazu/liftcab/pkg/assembly"
	"github.com/chazu/liftcab/pkg/design"
	"github.com/chazu/liftcab/pkg/export"
	"github.com/chazu/liftcab/pkg/fastener"
	"github.com/chazu/liftcab/pkg/gateway"
	"github.com/chazu/liftcab/pkg/gateway/offline"
	"github.com/chazu/liftcab/pkg/ledger"
	"github.com/chazu/liftcab/pkg/rename"
	"github.com/chazu/liftcab/pkg/report"
)

var errLedgerDisabled = errors.New("ledger is disabled in the configuration")

// App wires the configured engine, session and run ledger behind the CLI
// commands.
type App struct {
	cfg     *config.Config
	conv    rename.Conventions
	engine  *offline.Engine
	session *gateway.Session
	ledger  *ledger.Ledger // nil when disabled
	log     *log.Logger
}

// NewApp creates an App on the offline engine. Extra options configure the
// engine.
func NewApp(cfg *config.Config, l *log.Logger, opts ...offline.Option) (*App, error) {
	if l == nil {
		l = log.New(io.Discard)
	}
	opts = append([]offline.Option{offline.WithLogger(l)}, opts...)
	eng := offline.New(opts...)
	a := &App{
		cfg:     cfg,
		conv:    cfg.Conventions(),
		engine:  eng,
		session: gateway.NewSession(eng),
		log:     l,
	}
	if cfg.Ledger.Enabled {
		lg, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, err
		}
		a.ledger = lg
	}
	return a, nil
}

// Close releases the ledger.
func (a *App) Close() error {
	if a.ledger == nil {
		return nil
	}
	return a.ledger.Close()
}

// Export runs the newest request report found in reportsDir into
// exportDir. It returns a nil summary when there is nothing to export.
func (a *App) Export(reportsDir, exportDir string) (*export.Summary, error) {
	rep, err := report.LoadLatest(reportsDir)
	if err != nil {
		return nil, err
	}
	if len(rep.Parts) == 0 {
		a.log.Warn("no request parts found", "dir", reportsDir)
		return nil, nil
	}

	x := export.NewExporter(a.session, a.conv, a.log)
	x.Ready = a.cfg.ReadyPolicy()
	if a.ledger != nil {
		x.Recorder = a.ledger
	}
	return x.Run(rep, exportDir)
}

// Compose assembles the exported parts of the newest report into the cabin
// assembly.
func (a *App) Compose(reportsDir, exportDir string) (string, error) {
	rep, err := report.LoadLatest(reportsDir)
	if err != nil {
		return "", err
	}
	return export.ComposeCabin(a.session, rep, a.conv, exportDir)
}

// Fasteners scans an assembly for coloured details and cuts the fastener
// bodies out of the rework targets.
func (a *App) Fasteners(assemblyPath string) ([]fastener.TargetResult, error) {
	release, err := a.session.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	eng := fastener.New(a.session, a.conv, a.log)
	var c fastener.Classification
	err = a.session.WithUnit(assemblyPath, gateway.OpenOptions{ReadOnly: true}, func(u gateway.Unit) error {
		var err error
		c, err = eng.Scan(u)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.log.Info("assembly scanned", "targets", len(c.Targets), "modifiers", len(c.Modifiers))
	return eng.Insert(c), nil
}

// Tree mirrors a unit's component hierarchy without changing anything.
func (a *App) Tree(unitPath string) (*design.Tree, error) {
	release, err := a.session.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	var t *design.Tree
	err = a.session.WithUnit(unitPath, gateway.OpenOptions{ReadOnly: true}, func(u gateway.Unit) error {
		var err error
		t, err = assembly.NewBuilder(a.log).Build(u)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("read tree: %w", err)
	}
	return t, nil
}

// History lists the most recent export runs.
func (a *App) History(limit int) ([]ledger.Run, error) {
	if a.ledger == nil {
		return nil, errLedgerDisabled
	}
	return a.ledger.Runs(limit)
}

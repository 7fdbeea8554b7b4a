// Package offline implements the design gateway on plain files. Parts and
// assemblies are YAML documents whose variables may carry zygomys
// expressions; geometry is built with sdfx for booleans and flat output.
// It is the engine the CLI runs against and the double the pipeline tests
// use.
package offline

import (
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chazu/liftcab/pkg/gateway"
)

// Compile-time interface check.
var _ gateway.Gateway = (*Engine)(nil)

// Engine is a file-backed gateway. It is not safe for concurrent document
// use; a gateway.Session serialises callers.
type Engine struct {
	mu        sync.Mutex
	open      int
	down      bool
	log       *log.Logger
	cells     int
	eqTimeout time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger routes engine debug output to l.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithPlotCells sets the marching-squares resolution for DXF and drawing
// output.
func WithPlotCells(n int) Option {
	return func(e *Engine) { e.cells = n }
}

// WithEquationTimeout bounds each variable expression.
func WithEquationTimeout(d time.Duration) Option {
	return func(e *Engine) { e.eqTimeout = d }
}

// New returns a ready engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		log:       log.New(io.Discard),
		cells:     DefaultPlotCells,
		eqTimeout: DefaultEquationTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SetAvailable simulates the engine process going away or coming back.
func (e *Engine) SetAvailable(ok bool) {
	e.mu.Lock()
	e.down = !ok
	e.mu.Unlock()
}

// OpenCount returns the number of documents, drawings and sheets not yet
// closed.
func (e *Engine) OpenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.open
}

func (e *Engine) track(delta int) {
	e.mu.Lock()
	e.open += delta
	e.mu.Unlock()
}

// Ping implements gateway.Gateway.
func (e *Engine) Ping() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.down {
		return gateway.ErrUnavailable
	}
	return nil
}

// Open implements gateway.Gateway.
func (e *Engine) Open(path string, opts gateway.OpenOptions) (gateway.Unit, error) {
	if err := e.Ping(); err != nil {
		return nil, err
	}
	if !hasExt(path, ExtPart, ExtAssembly) {
		return nil, fmt.Errorf("open %s: unsupported document type", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	doc, err := ReadDocument(abs)
	if err != nil {
		return nil, err
	}
	e.track(1)
	e.log.Debug("open", "path", abs, "read_only", opts.ReadOnly, "visible", opts.Visible)
	return &unit{e: e, path: abs, doc: doc, readOnly: opts.ReadOnly}, nil
}

// NewAssembly implements gateway.Gateway. The unit has no path until
// SaveAs.
func (e *Engine) NewAssembly() (gateway.Unit, error) {
	if err := e.Ping(); err != nil {
		return nil, err
	}
	e.track(1)
	return &unit{e: e, doc: &Document{Kind: "assembly"}}, nil
}

// OpenDrawing implements gateway.Gateway.
func (e *Engine) OpenDrawing(path string) (gateway.Drawing, error) {
	if err := e.Ping(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	doc, err := ReadDrawing(abs)
	if err != nil {
		return nil, err
	}
	e.track(1)
	e.log.Debug("open drawing", "path", abs)
	return &drawing{e: e, path: abs, doc: doc}, nil
}

// NewSheet implements gateway.Gateway.
func (e *Engine) NewSheet() (gateway.Sheet, error) {
	if err := e.Ping(); err != nil {
		return nil, err
	}
	e.track(1)
	return &sheet{e: e}, nil
}

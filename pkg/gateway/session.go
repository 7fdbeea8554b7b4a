package gateway

import (
	"errors"
	"fmt"
	"sync"
)

// Session serialises access to one Gateway. At most one run may hold it;
// every document opened through it is closed when the callback returns.
type Session struct {
	gw Gateway
	mu sync.Mutex
}

// NewSession wraps gw.
func NewSession(gw Gateway) *Session {
	return &Session{gw: gw}
}

// Gateway returns the wrapped engine.
func (s *Session) Gateway() Gateway { return s.gw }

// Acquire claims the session. It fails with ErrBusy while another holder
// has not yet called the returned release function.
func (s *Session) Acquire() (release func(), err error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	var once sync.Once
	return func() { once.Do(s.mu.Unlock) }, nil
}

// WithUnit opens path, runs fn and closes the unit discarding unsaved
// changes, whatever fn returns.
func (s *Session) WithUnit(path string, opts OpenOptions, fn func(Unit) error) (err error) {
	u, err := s.gw.Open(path, opts)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if cerr := u.Close(true); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", path, cerr))
		}
	}()
	return fn(u)
}

// WithDrawing opens a drawing, runs fn and closes it discarding changes.
func (s *Session) WithDrawing(path string, fn func(Drawing) error) (err error) {
	d, err := s.gw.OpenDrawing(path)
	if err != nil {
		return fmt.Errorf("open drawing %s: %w", path, err)
	}
	defer func() {
		if cerr := d.Close(true); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close drawing %s: %w", path, cerr))
		}
	}()
	return fn(d)
}

// WithSheet creates a transient sheet, runs fn and closes it.
func (s *Session) WithSheet(fn func(Sheet) error) (err error) {
	sh, err := s.gw.NewSheet()
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	defer func() {
		if cerr := sh.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close sheet: %w", cerr))
		}
	}()
	return fn(sh)
}

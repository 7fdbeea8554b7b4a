package gateway

import (
	"fmt"
	"time"
)

// Readiness defaults.
const (
	DefaultReadyInterval = 500 * time.Millisecond
	DefaultReadyTimeout  = 60 * time.Second
)

// ReadyPolicy bounds the wait for an engine to accept calls.
type ReadyPolicy struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultReadyPolicy returns the 500ms / 60s policy.
func DefaultReadyPolicy() ReadyPolicy {
	return ReadyPolicy{Interval: DefaultReadyInterval, Timeout: DefaultReadyTimeout}
}

// WaitReady calls probe every Interval until it succeeds or Timeout
// elapses. On timeout the last probe error is wrapped in ErrUnavailable.
// A zero Interval or Timeout falls back to the default.
func WaitReady(probe func() error, p ReadyPolicy) error {
	if p.Interval <= 0 {
		p.Interval = DefaultReadyInterval
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultReadyTimeout
	}

	deadline := time.NewTimer(p.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(p.Interval)
	defer tick.Stop()

	var last error
	for {
		if last = probe(); last == nil {
			return nil
		}
		select {
		case <-deadline.C:
			return fmt.Errorf("%w: not ready after %s: %v", ErrUnavailable, p.Timeout, last)
		case <-tick.C:
		}
	}
}

// Ready waits for gw using the given policy.
func Ready(gw Gateway, p ReadyPolicy) error {
	return WaitReady(gw.Ping, p)
}

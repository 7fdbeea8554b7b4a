package offline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"
)

// DefaultEquationTimeout is the hard limit for one equation.
const DefaultEquationTimeout = 5 * time.Second

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type equationResult struct {
	value float64
	err   error
}

// solveVariables recomputes every variable that carries an expression, in
// table order. Each expression sees the values of all variables above it.
func solveVariables(vars []Variable, timeout time.Duration) error {
	var prelude strings.Builder
	for i := range vars {
		v := &vars[i]
		if strings.TrimSpace(v.Expr) != "" {
			val, err := evalWithTimeout(prelude.String()+v.Expr, timeout)
			if err != nil {
				return fmt.Errorf("variable %s: %w", v.Name, err)
			}
			v.Value = val
		}
		if identPattern.MatchString(v.Name) {
			fmt.Fprintf(&prelude, "(def %s %s)\n", v.Name, lispFloat(v.Value))
		}
	}
	return nil
}

// evalWithTimeout runs src in a fresh sandbox on its own goroutine. On
// timeout the goroutine is abandoned and its result dropped.
func evalWithTimeout(src string, timeout time.Duration) (float64, error) {
	if timeout <= 0 {
		timeout = DefaultEquationTimeout
	}
	ch := make(chan equationResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- equationResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()
		v, err := eval(src)
		ch <- equationResult{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		return res.value, res.err
	case <-timer.C:
		return 0, fmt.Errorf("evaluation timed out after %s", timeout)
	}
}

func eval(src string) (float64, error) {
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	if err := env.LoadString(src); err != nil {
		return 0, fmt.Errorf("parse: %w", err)
	}
	out, err := env.Run()
	if err != nil {
		return 0, err
	}
	switch v := out.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", out, out.SexpString(nil))
}

// lispFloat always renders a float literal so integer division never
// truncates.
func lispFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

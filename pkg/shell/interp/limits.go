package interp

import (
	"context"
	"errors"
	"fmt"
)

// Limits bounds the work a script may do. Zero fields take the defaults.
type Limits struct {
	MaxCommandCount   int
	MaxRecursionDepth int
	MaxIterations     int
}

// DefaultLimits returns the stock execution limits.
func DefaultLimits() Limits {
	return Limits{
		MaxCommandCount:   10000,
		MaxRecursionDepth: 100,
		MaxIterations:     10000,
	}
}

func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxCommandCount <= 0 {
		l.MaxCommandCount = def.MaxCommandCount
	}
	if l.MaxRecursionDepth <= 0 {
		l.MaxRecursionDepth = def.MaxRecursionDepth
	}
	if l.MaxIterations <= 0 {
		l.MaxIterations = def.MaxIterations
	}
	return l
}

// LimitError reports an exceeded execution limit. It is fatal: the script
// stops and Run returns it.
type LimitError struct {
	Limit string
	Max   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("execution limit exceeded: %s (%d)", e.Limit, e.Max)
}

var errCanceled = errors.New("execution canceled")

// budget is shared by a state and all of its subshell clones.
type budget struct {
	commands int
}

// tick charges one command dispatch against the budget.
func (r *Runner) tick(ctx context.Context, st *State) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", errCanceled, err)
	}
	st.budget.commands++
	if st.budget.commands > r.limits.MaxCommandCount {
		return &LimitError{Limit: "max command count", Max: r.limits.MaxCommandCount}
	}
	return nil
}

// enter checks the nesting depth before a function, subshell, source or
// eval body runs.
func (r *Runner) enter(st *State) error {
	if st.depth+1 > r.limits.MaxRecursionDepth {
		return &LimitError{Limit: "max recursion depth", Max: r.limits.MaxRecursionDepth}
	}
	return nil
}

// iterate charges one loop iteration; n is the loop's running count.
func (r *Runner) iterate(n int) error {
	if n > r.limits.MaxIterations {
		return &LimitError{Limit: "max loop iterations", Max: r.limits.MaxIterations}
	}
	return nil
}

package interp

import (
	"errors"
	"fmt"
)

// Control transfer travels up the call chain as error values. Loops
// consume BreakSignal and ContinueSignal, functions and sourced files
// consume ReturnSignal, subshells and the top level consume ExitSignal and
// ErrexitSignal. A LimitError is never consumed by script code.

// BreakSignal is raised by break N.
type BreakSignal struct{ N int }

func (s *BreakSignal) Error() string { return fmt.Sprintf("break %d", s.N) }

// ContinueSignal is raised by continue N.
type ContinueSignal struct{ N int }

func (s *ContinueSignal) Error() string { return fmt.Sprintf("continue %d", s.N) }

// ReturnSignal is raised by return.
type ReturnSignal struct{ Code int }

func (s *ReturnSignal) Error() string { return fmt.Sprintf("return %d", s.Code) }

// ExitSignal is raised by exit and by fatal expansion errors.
type ExitSignal struct{ Code int }

func (s *ExitSignal) Error() string { return fmt.Sprintf("exit %d", s.Code) }

// ErrexitSignal is raised when set -e sees a failing statement.
type ErrexitSignal struct{ Code int }

func (s *ErrexitSignal) Error() string { return fmt.Sprintf("errexit %d", s.Code) }

// errSyntaxAbort stops the enclosing script after a deferred syntax
// error has been reported.
var errSyntaxAbort = errors.New("syntax error")

// isFatal reports whether err must escape every script-level handler.
func isFatal(err error) bool {
	var le *LimitError
	if errors.As(err, &le) {
		return true
	}
	return errors.Is(err, errCanceled)
}

// exitCode folds a terminating signal into the status it stands for.
// ok is false for errors that are not terminating signals.
func exitCode(err error) (code int, ok bool) {
	var (
		ex *ExitSignal
		ee *ErrexitSignal
		rs *ReturnSignal
	)
	switch {
	case errors.As(err, &ex):
		return ex.Code, true
	case errors.As(err, &ee):
		return ee.Code, true
	case errors.As(err, &rs):
		return rs.Code, true
	case errors.Is(err, errSyntaxAbort):
		return 2, true
	}
	return 0, false
}

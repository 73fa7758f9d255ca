package interp

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/rcarmo/sandsh/pkg/shell/arith"
	"github.com/rcarmo/sandsh/pkg/shell/syntax"
)

// execCompound runs a compound command with its redirections applied.
func (r *Runner) execCompound(ctx context.Context, st *State, cmd syntax.Command) (int, error) {
	restore, err := r.applyRedirs(ctx, st, compoundRedirs(cmd))
	if err != nil {
		return r.expansionFailed(st, err)
	}
	defer restore()

	switch c := cmd.(type) {
	case *syntax.IfClause:
		return r.execIf(ctx, st, c)
	case *syntax.ForClause:
		if c.Select {
			return r.execSelect(ctx, st, c)
		}
		return r.execFor(ctx, st, c)
	case *syntax.CStyleFor:
		return r.execCFor(ctx, st, c)
	case *syntax.WhileClause:
		return r.execWhile(ctx, st, c)
	case *syntax.CaseClause:
		return r.execCase(ctx, st, c)
	case *syntax.Subshell:
		return r.execSubshell(ctx, st, c.Body)
	case *syntax.Group:
		return r.runStmts(ctx, st, c.Body)
	case *syntax.ArithCommand:
		return r.execArith(ctx, st, c)
	case *syntax.CondCommand:
		return r.execCond(ctx, st, c)
	}
	return 0, nil
}

func compoundRedirs(cmd syntax.Command) []*syntax.Redirect {
	switch c := cmd.(type) {
	case *syntax.IfClause:
		return c.Redirs
	case *syntax.ForClause:
		return c.Redirs
	case *syntax.CStyleFor:
		return c.Redirs
	case *syntax.WhileClause:
		return c.Redirs
	case *syntax.CaseClause:
		return c.Redirs
	case *syntax.Subshell:
		return c.Redirs
	case *syntax.Group:
		return c.Redirs
	case *syntax.ArithCommand:
		return c.Redirs
	case *syntax.CondCommand:
		return c.Redirs
	}
	return nil
}

// runCond runs the condition list of if, while and until; set -e does
// not apply inside it.
func (r *Runner) runCond(ctx context.Context, st *State, stmts []*syntax.Statement) (int, error) {
	st.noErrexit++
	defer func() { st.noErrexit-- }()
	return r.runStmts(ctx, st, stmts)
}

func (r *Runner) execIf(ctx context.Context, st *State, c *syntax.IfClause) (int, error) {
	status, err := r.runCond(ctx, st, c.Cond)
	if err != nil {
		return status, err
	}
	if status == 0 {
		return r.runStmts(ctx, st, c.Then)
	}
	for _, el := range c.Elifs {
		status, err = r.runCond(ctx, st, el.Cond)
		if err != nil {
			return status, err
		}
		if status == 0 {
			return r.runStmts(ctx, st, el.Then)
		}
	}
	if c.Else != nil {
		return r.runStmts(ctx, st, c.Else)
	}
	return 0, nil
}

// loopBody runs one iteration. done reports a break out of this loop;
// signals aimed at an enclosing loop come back as err.
func (r *Runner) loopBody(ctx context.Context, st *State, body []*syntax.Statement) (status int, done bool, err error) {
	st.loopDepth++
	status, err = r.runStmts(ctx, st, body)
	st.loopDepth--
	if err == nil {
		return status, false, nil
	}
	done, err = loopSignal(err)
	return status, done, err
}

func (r *Runner) execFor(ctx context.Context, st *State, c *syntax.ForClause) (int, error) {
	var items []string
	if c.InList {
		var err error
		if items, err = r.expandFields(ctx, st, c.Items); err != nil {
			return r.expansionFailed(st, err)
		}
	} else {
		items = append(items, st.positional...)
	}
	status := 0
	for i, item := range items {
		if err := r.iterate(i + 1); err != nil {
			return 1, err
		}
		if err := r.setValue(ctx, st, c.Var, item, false); err != nil {
			diag(st, "%s", err)
			return 1, nil
		}
		s, done, err := r.loopBody(ctx, st, c.Body)
		status = s
		if err != nil || done {
			return status, err
		}
	}
	return status, nil
}

// execSelect prints a numbered menu on standard error and reads choices
// from standard input until it is exhausted or the body breaks.
func (r *Runner) execSelect(ctx context.Context, st *State, c *syntax.ForClause) (int, error) {
	var items []string
	if c.InList {
		var err error
		if items, err = r.expandFields(ctx, st, c.Items); err != nil {
			return r.expansionFailed(st, err)
		}
	} else {
		items = append(items, st.positional...)
	}
	if len(items) == 0 {
		return 0, nil
	}
	status := 0
	for n := 1; ; n++ {
		if err := r.iterate(n); err != nil {
			return 1, err
		}
		var menu strings.Builder
		for i, item := range items {
			menu.WriteString(strconv.Itoa(i+1) + ") " + item + "\n")
		}
		ps3, ok := r.lookupScalar(st, "PS3")
		if !ok {
			ps3 = "#? "
		}
		menu.WriteString(ps3)
		st.errf(menu.String())
		line, ok, err := st.readUntil(0, '\n')
		if err != nil || (!ok && line == "") {
			st.errf("\n")
			return 1, nil
		}
		line = strings.TrimSpace(line)
		_ = r.setValue(ctx, st, "REPLY", line, false)
		choice := ""
		if k, err := strconv.Atoi(line); err == nil && k >= 1 && k <= len(items) {
			choice = items[k-1]
		}
		if err := r.setValue(ctx, st, c.Var, choice, false); err != nil {
			diag(st, "%s", err)
			return 1, nil
		}
		s, done, err := r.loopBody(ctx, st, c.Body)
		status = s
		if err != nil || done {
			return status, err
		}
	}
}

// arithFailed reports an arithmetic error in a (( )) or for (( )) header.
func (r *Runner) arithFailed(st *State, err error) (int, error) {
	if isFatal(err) {
		return 1, err
	}
	if _, ok := exitCode(err); ok {
		return 1, err
	}
	var xe *expandError
	if errors.As(err, &xe) && xe.fatal {
		return r.expansionFailed(st, err)
	}
	diag(st, "((: %s", err)
	return 1, nil
}

func (r *Runner) execCFor(ctx context.Context, st *State, c *syntax.CStyleFor) (int, error) {
	eval := func(e arith.Expr) (int64, error) {
		if e == nil {
			return 1, nil
		}
		return r.evalArith(ctx, st, e)
	}
	if c.Init != nil {
		if _, err := eval(c.Init); err != nil {
			return r.arithFailed(st, err)
		}
	}
	status := 0
	for n := 1; ; n++ {
		cond, err := eval(c.Cond)
		if err != nil {
			return r.arithFailed(st, err)
		}
		if cond == 0 {
			return status, nil
		}
		if err := r.iterate(n); err != nil {
			return 1, err
		}
		s, done, err := r.loopBody(ctx, st, c.Body)
		status = s
		if err != nil || done {
			return status, err
		}
		if c.Post != nil {
			if _, err := eval(c.Post); err != nil {
				return r.arithFailed(st, err)
			}
		}
	}
}

func (r *Runner) execWhile(ctx context.Context, st *State, c *syntax.WhileClause) (int, error) {
	status := 0
	for n := 1; ; n++ {
		st.loopDepth++
		cs, err := r.runCond(ctx, st, c.Cond)
		st.loopDepth--
		if err != nil {
			done, lerr := loopSignal(err)
			if lerr != nil || done {
				return status, lerr
			}
		} else if (cs == 0) == c.Until {
			return status, nil
		}
		if ierr := r.iterate(n); ierr != nil {
			return 1, ierr
		}
		if err != nil {
			// continue raised by the condition
			continue
		}
		s, done, err := r.loopBody(ctx, st, c.Body)
		status = s
		if err != nil || done {
			return status, err
		}
	}
}

// loopSignal consumes a break or continue aimed at the current loop.
// done reports a break; signals for outer loops come back decremented.
func loopSignal(err error) (bool, error) {
	var (
		bs *BreakSignal
		cs *ContinueSignal
	)
	switch {
	case errors.As(err, &bs):
		if bs.N > 1 {
			return true, &BreakSignal{N: bs.N - 1}
		}
		return true, nil
	case errors.As(err, &cs):
		if cs.N > 1 {
			return true, &ContinueSignal{N: cs.N - 1}
		}
		return false, nil
	}
	return false, err
}

func (r *Runner) execCase(ctx context.Context, st *State, c *syntax.CaseClause) (int, error) {
	word, err := r.expandString(ctx, st, c.Word)
	if err != nil {
		return r.expansionFailed(st, err)
	}
	status := 0
	matched := false
	for _, item := range c.Items {
		if !matched {
			for _, pw := range item.Patterns {
				pat, err := r.expandPattern(ctx, st, pw)
				if err != nil {
					return r.expansionFailed(st, err)
				}
				if matchPattern(pat, word, st.opts.Nocasematch) {
					matched = true
					break
				}
			}
			if !matched {
				continue
			}
		}
		status, err = r.runStmts(ctx, st, item.Body)
		if err != nil {
			return status, err
		}
		switch item.Term {
		case syntax.SemiAmp:
			// fall through into the next body without testing
		case syntax.DSemiAmp:
			matched = false
		default:
			return status, nil
		}
	}
	return status, nil
}

// execSubshell runs body on a copy of the state.
func (r *Runner) execSubshell(ctx context.Context, st *State, body []*syntax.Statement) (int, error) {
	if err := r.enter(st); err != nil {
		return 1, err
	}
	sub := st.clone()
	status, err := r.runStmts(ctx, sub, body)
	if err != nil {
		if isFatal(err) {
			return 1, err
		}
		if code, ok := exitCode(err); ok {
			status = code
		}
	}
	return r.runExitTrap(ctx, sub, status)
}

func (r *Runner) execArith(ctx context.Context, st *State, c *syntax.ArithCommand) (int, error) {
	if st.opts.Xtrace {
		prefix, _ := r.lookupScalar(st, "PS4")
		st.errf(prefix + "(( " + strings.TrimSpace(c.Src) + " ))\n")
	}
	n, err := r.evalArith(ctx, st, c.Expr)
	if err != nil {
		if isFatal(err) {
			return 1, err
		}
		var xe *expandError
		if errors.As(err, &xe) {
			return r.expansionFailed(st, err)
		}
		diag(st, "%s: %s", strings.TrimSpace(c.Src), err)
		return 1, nil
	}
	if n != 0 {
		return 0, nil
	}
	return 1, nil
}

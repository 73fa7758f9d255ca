package interp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"

	"github.com/rcarmo/sandsh/pkg/shell/syntax"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// condError makes a conditional expression return status 2.
type condError struct{ msg string }

func (e *condError) Error() string { return e.msg }

func (r *Runner) execCond(ctx context.Context, st *State, c *syntax.CondCommand) (int, error) {
	ok, err := r.evalCond(ctx, st, c.Expr)
	if err != nil {
		var ce *condError
		if errors.As(err, &ce) {
			if ce.msg != "" {
				diag(st, "%s", ce.msg)
			}
			return 2, nil
		}
		return r.expansionFailed(st, err)
	}
	if ok {
		return 0, nil
	}
	return 1, nil
}

func (r *Runner) condWord(ctx context.Context, st *State, x syntax.CondExpr) (string, error) {
	w, ok := x.(*syntax.CondWord)
	if !ok {
		return "", &condError{msg: "conditional binary operator expected"}
	}
	return r.expandString(ctx, st, w.Word)
}

func (r *Runner) evalCond(ctx context.Context, st *State, e syntax.CondExpr) (bool, error) {
	switch e := e.(type) {
	case *syntax.CondWord:
		s, err := r.expandString(ctx, st, e.Word)
		return s != "", err
	case *syntax.CondNot:
		ok, err := r.evalCond(ctx, st, e.X)
		return !ok, err
	case *syntax.CondParen:
		return r.evalCond(ctx, st, e.X)
	case *syntax.CondUnary:
		s, err := r.condWord(ctx, st, e.X)
		if err != nil {
			return false, err
		}
		return r.unaryTest(ctx, st, e.Op, s)
	case *syntax.CondBinary:
		return r.binaryCond(ctx, st, e)
	}
	return false, nil
}

func (r *Runner) binaryCond(ctx context.Context, st *State, e *syntax.CondBinary) (bool, error) {
	switch e.Op {
	case "&&":
		ok, err := r.evalCond(ctx, st, e.X)
		if err != nil || !ok {
			return false, err
		}
		return r.evalCond(ctx, st, e.Y)
	case "||":
		ok, err := r.evalCond(ctx, st, e.X)
		if err != nil || ok {
			return ok, err
		}
		return r.evalCond(ctx, st, e.Y)
	}

	left, err := r.condWord(ctx, st, e.X)
	if err != nil {
		return false, err
	}
	rw, ok := e.Y.(*syntax.CondWord)
	if !ok {
		return false, &condError{msg: "unexpected argument to conditional binary operator"}
	}
	switch e.Op {
	case "==", "=", "!=":
		pat, err := r.expandPattern(ctx, st, rw.Word)
		if err != nil {
			return false, err
		}
		m := matchPattern(pat, left, st.opts.Nocasematch)
		return m == (e.Op != "!="), nil
	case "=~":
		return r.regexMatch(ctx, st, left, rw.Word)
	}

	right, err := r.expandString(ctx, st, rw.Word)
	if err != nil {
		return false, err
	}
	switch e.Op {
	case "<":
		return left < right, nil
	case ">":
		return left > right, nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		a, err := r.evalArithString(ctx, st, left)
		if err != nil {
			return false, &condError{msg: left + ": " + err.Error()}
		}
		b, err := r.evalArithString(ctx, st, right)
		if err != nil {
			return false, &condError{msg: right + ": " + err.Error()}
		}
		return compareInts(e.Op, a, b), nil
	}
	return r.fileCompare(st, e.Op, left, right), nil
}

// regexMatch implements =~ and fills BASH_REMATCH.
func (r *Runner) regexMatch(ctx context.Context, st *State, s string, w *syntax.Word) (bool, error) {
	expr, err := r.expandRegex(ctx, st, w)
	if err != nil {
		return false, err
	}
	if st.opts.Nocasematch {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return false, &condError{}
	}
	m := re.FindStringSubmatch(s)
	if m == nil {
		_ = st.setArray("BASH_REMATCH", nil)
		return false, nil
	}
	_ = st.setArray("BASH_REMATCH", m)
	return true, nil
}

func compareInts(op string, a, b int64) bool {
	switch op {
	case "-eq":
		return a == b
	case "-ne":
		return a != b
	case "-lt":
		return a < b
	case "-le":
		return a <= b
	case "-gt":
		return a > b
	case "-ge":
		return a >= b
	}
	return false
}

// unaryTest evaluates the unary operators shared by [[ ]] and test.
func (r *Runner) unaryTest(ctx context.Context, st *State, op, s string) (bool, error) {
	switch op {
	case "-n":
		return s != "", nil
	case "-z":
		return s == "", nil
	case "-o":
		p := st.option(s)
		return p != nil && *p, nil
	case "-v":
		return r.varIsSet(ctx, st, s), nil
	case "-R":
		v := st.lookup(s)
		return v != nil && v.Nameref && v.Set, nil
	case "-t":
		return false, nil
	}
	return r.fileTest(st, op, s), nil
}

// varIsSet implements -v, which accepts name and name[subscript].
func (r *Runner) varIsSet(ctx context.Context, st *State, ref string) bool {
	name, sub, hasSub := splitRef(ref)
	if !hasSub {
		_, ok := r.lookupScalar(st, ref)
		if !ok {
			if resolved, err := st.resolve(name); err == nil {
				v := st.lookup(resolved)
				return v != nil && v.IsSet()
			}
		}
		return ok
	}
	resolved, err := st.resolve(name)
	if err != nil {
		return false
	}
	v := st.lookup(resolved)
	if sub == "@" || sub == "*" {
		return v.IsSet()
	}
	key, err := r.subscriptText(ctx, st, resolved, sub)
	if err != nil {
		return false
	}
	_, ok := v.Index(key)
	return ok
}

// fileTest evaluates a unary file operator against the filesystem.
func (r *Runner) fileTest(st *State, op, name string) bool {
	if name == "" {
		return false
	}
	switch name {
	case "/dev/null", "/dev/zero", "/dev/full", "/dev/stdin", "/dev/stdout", "/dev/stderr":
		switch op {
		case "-e", "-a", "-c", "-r", "-w":
			return true
		}
		return false
	}
	p := vfs.ResolvePath(st.cwd, name)
	info, err := r.fs.Stat(p)
	if err != nil {
		return false
	}
	switch op {
	case "-e", "-a":
		return true
	case "-f":
		return !info.IsDir
	case "-d":
		return info.IsDir
	case "-s":
		return info.Size > 0
	case "-r", "-w":
		return true
	case "-x":
		return info.IsDir || info.Mode&0o111 != 0
	case "-L", "-h":
		return info.Mode&fs.ModeSymlink != 0
	case "-p":
		return info.Mode&fs.ModeNamedPipe != 0
	case "-S":
		return info.Mode&fs.ModeSocket != 0
	case "-b":
		return info.Mode&fs.ModeDevice != 0 && info.Mode&fs.ModeCharDevice == 0
	case "-c":
		return info.Mode&fs.ModeCharDevice != 0
	case "-u":
		return info.Mode&fs.ModeSetuid != 0
	case "-g":
		return info.Mode&fs.ModeSetgid != 0
	case "-k":
		return info.Mode&fs.ModeSticky != 0
	case "-O", "-G":
		return true
	case "-N":
		return false
	}
	return false
}

// fileCompare implements -nt, -ot and -ef.
func (r *Runner) fileCompare(st *State, op, a, b string) bool {
	ia, errA := r.fs.Stat(vfs.ResolvePath(st.cwd, a))
	ib, errB := r.fs.Stat(vfs.ResolvePath(st.cwd, b))
	switch op {
	case "-nt":
		if errA != nil {
			return false
		}
		return errB != nil || ia.ModTime.After(ib.ModTime)
	case "-ot":
		if errB != nil {
			return false
		}
		return errA != nil || ia.ModTime.Before(ib.ModTime)
	case "-ef":
		return errA == nil && errB == nil && vfs.ResolvePath(st.cwd, a) == vfs.ResolvePath(st.cwd, b)
	}
	return false
}

// testInt parses an integer operand of the test builtin.
func testInt(s string) (int64, error) {
	n, err := strconv.ParseInt(trimBlanks(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: integer expression expected", s)
	}
	return n, nil
}

func trimBlanks(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}

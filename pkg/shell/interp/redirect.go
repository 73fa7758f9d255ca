package interp

import (
	"context"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/rcarmo/sandsh/pkg/shell/syntax"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// savedFD remembers a descriptor replaced by a redirection.
type savedFD struct {
	n   int
	e   *fdEntry
	had bool
}

// applyRedirs performs redirs in order and returns a function that puts
// the previous descriptors back. {var} allocations stay open.
func (r *Runner) applyRedirs(ctx context.Context, st *State, redirs []*syntax.Redirect) (func(), error) {
	if len(redirs) == 0 {
		return func() {}, nil
	}
	var saved []savedFD
	save := func(n int) {
		for _, s := range saved {
			if s.n == n {
				return
			}
		}
		e, ok := st.fds[n]
		saved = append(saved, savedFD{n: n, e: e, had: ok})
	}
	restore := func() {
		if st.keepRedirs {
			st.keepRedirs = false
			return
		}
		for i := len(saved) - 1; i >= 0; i-- {
			s := saved[i]
			if s.had {
				st.fds[s.n] = s.e
			} else {
				delete(st.fds, s.n)
			}
		}
	}
	for _, rd := range redirs {
		if err := r.redirect(ctx, st, rd, save); err != nil {
			restore()
			return func() {}, err
		}
	}
	return restore, nil
}

func inputOp(op syntax.TokenKind) bool {
	switch op {
	case syntax.Less, syntax.LessAnd, syntax.LessGreat, syntax.DLess, syntax.DLessDash, syntax.TLess:
		return true
	}
	return false
}

// redirectTarget expands a redirection word, which must yield one field.
func (r *Runner) redirectTarget(ctx context.Context, st *State, w *syntax.Word) (string, error) {
	fields, err := r.expandWord(ctx, st, w)
	if err != nil {
		return "", err
	}
	if len(fields) != 1 {
		return "", fmt.Errorf("%s: ambiguous redirect", w.Raw)
	}
	return fields[0], nil
}

func (r *Runner) redirect(ctx context.Context, st *State, rd *syntax.Redirect, save func(int)) error {
	n := rd.N
	if n < 0 {
		n = 1
		if inputOp(rd.Op) {
			n = 0
		}
	}
	if rd.VarName != "" {
		if closing(rd) {
			val, _ := r.lookupScalar(st, rd.VarName)
			fd, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("%s: Bad file descriptor", val)
			}
			delete(st.fds, fd)
			return nil
		}
		n = st.fds.free()
		if err := r.setValue(ctx, st, rd.VarName, strconv.Itoa(n), false); err != nil {
			return err
		}
	} else {
		save(n)
	}

	switch rd.Op {
	case syntax.DLess, syntax.DLessDash:
		body, err := r.expandString(ctx, st, rd.Heredoc)
		if err != nil {
			return err
		}
		st.fds[n] = newContent(body)
		return nil
	case syntax.TLess:
		s, err := r.expandString(ctx, st, rd.Target)
		if err != nil {
			return err
		}
		st.fds[n] = newContent(s + "\n")
		return nil
	}

	target, err := r.redirectTarget(ctx, st, rd.Target)
	if err != nil {
		return err
	}
	switch rd.Op {
	case syntax.Less:
		data, err := r.readPath(st, target)
		if err != nil {
			return fmt.Errorf("%s: %s", target, vfs.ErrorText(err))
		}
		st.fds[n] = newContent(data)
	case syntax.Great, syntax.Clobber, syntax.DGreat:
		e, err := r.openWrite(st, target, rd.Op != syntax.DGreat, rd.Op == syntax.Clobber)
		if err != nil {
			return err
		}
		st.fds[n] = e
	case syntax.AndGreat, syntax.AndDGreat:
		e, err := r.openWrite(st, target, rd.Op == syntax.AndGreat, false)
		if err != nil {
			return err
		}
		save(1)
		save(2)
		st.fds[1], st.fds[2] = e, e
	case syntax.LessGreat:
		e, err := r.openReadWrite(st, target)
		if err != nil {
			return err
		}
		st.fds[n] = e
	case syntax.GreatAnd, syntax.LessAnd:
		return r.dup(st, rd, n, target, save)
	}
	return nil
}

func closing(rd *syntax.Redirect) bool {
	return (rd.Op == syntax.GreatAnd || rd.Op == syntax.LessAnd) && rd.Target != nil && rd.Target.Raw == "-"
}

// dup handles n>&m, n<&m, n>&- and n>&m-.
func (r *Runner) dup(st *State, rd *syntax.Redirect, n int, target string, save func(int)) error {
	if target == "-" {
		delete(st.fds, n)
		return nil
	}
	move := strings.HasSuffix(target, "-")
	num := strings.TrimSuffix(target, "-")
	m, err := strconv.Atoi(num)
	if err != nil {
		if rd.Op == syntax.GreatAnd && rd.N < 0 && rd.VarName == "" {
			// >&file is &>file
			e, err := r.openWrite(st, target, true, false)
			if err != nil {
				return err
			}
			save(2)
			st.fds[1], st.fds[2] = e, e
			return nil
		}
		return fmt.Errorf("%s: ambiguous redirect", rd.Target.Raw)
	}
	e, ok := st.fds[m]
	if !ok {
		return fmt.Errorf("%d: Bad file descriptor", m)
	}
	st.fds[n] = e
	if move && m != n {
		save(m)
		delete(st.fds, m)
	}
	return nil
}

// devFD parses /dev/fd/N, /dev/stdin, /dev/stdout and /dev/stderr.
func devFD(name string) (int, bool) {
	switch name {
	case "/dev/stdin":
		return 0, true
	case "/dev/stdout":
		return 1, true
	case "/dev/stderr":
		return 2, true
	}
	if rest, ok := strings.CutPrefix(name, "/dev/fd/"); ok {
		n, err := strconv.Atoi(rest)
		return n, err == nil
	}
	return 0, false
}

// openWrite opens name for output, truncating unless appending.
func (r *Runner) openWrite(st *State, name string, truncate, force bool) (*fdEntry, error) {
	switch name {
	case "/dev/null":
		return &fdEntry{kind: fdNull}, nil
	case "/dev/full":
		return &fdEntry{kind: fdFull}, nil
	}
	if n, ok := devFD(name); ok {
		e, found := st.fds[n]
		if !found {
			return nil, fmt.Errorf("%s: Bad file descriptor", name)
		}
		return e, nil
	}
	p := vfs.ResolvePath(st.cwd, name)
	if r.fs.IsDir(p) {
		return nil, fmt.Errorf("%s: Is a directory", name)
	}
	if truncate {
		if st.opts.Noclobber && !force && r.fs.IsFile(p) {
			return nil, fmt.Errorf("%s: cannot overwrite existing file", name)
		}
		if err := r.fs.WriteFile(p, ""); err != nil {
			return nil, fmt.Errorf("%s: %s", name, vfs.ErrorText(err))
		}
	} else if !r.fs.Exists(p) {
		if err := r.fs.WriteFile(p, ""); err != nil {
			return nil, fmt.Errorf("%s: %s", name, vfs.ErrorText(err))
		}
	}
	return &fdEntry{kind: fdFile, path: p}, nil
}

// openReadWrite implements <>: the file is created when missing.
func (r *Runner) openReadWrite(st *State, name string) (*fdEntry, error) {
	if name == "/dev/null" {
		return &fdEntry{kind: fdNull}, nil
	}
	p := vfs.ResolvePath(st.cwd, name)
	data, err := r.fs.ReadFile(p)
	if err != nil {
		if r.fs.Exists(p) {
			return nil, fmt.Errorf("%s: %s", name, vfs.ErrorText(err))
		}
		if err := r.fs.WriteFile(p, ""); err != nil {
			return nil, fmt.Errorf("%s: %s", name, vfs.ErrorText(err))
		}
	}
	return &fdEntry{kind: fdReadWrite, data: data, path: p}, nil
}

// readPath reads a file for input, resolving the /dev names against the
// descriptor table.
func (r *Runner) readPath(st *State, name string) (string, error) {
	switch name {
	case "/dev/null", "/dev/zero", "/dev/full":
		return "", nil
	}
	if n, ok := devFD(name); ok {
		e, found := st.fds[n]
		if !found {
			return "", &fs.PathError{Op: "open", Path: name, Err: errBadFD}
		}
		if e.kind == fdBuffer {
			return e.buf.String(), nil
		}
		return st.readAll(n), nil
	}
	return r.fs.ReadFile(vfs.ResolvePath(st.cwd, name))
}

// procSub is an open process substitution.
type procSub struct {
	fd     int
	out    bool
	script *syntax.Script
	entry  *fdEntry
}

// procSubst sets up <(...) or >(...) and returns its /dev/fd path. Input
// substitutions run immediately; output ones run when the command that
// uses them finishes.
func (r *Runner) procSubst(ctx context.Context, st *State, p *syntax.ProcSubst) (string, error) {
	n := 63
	for ; n > 10; n-- {
		if _, used := st.fds[n]; !used {
			break
		}
	}
	ps := &procSub{fd: n, out: p.Out, script: p.Script}
	if p.Out {
		ps.entry = newBuffer()
	} else {
		if err := r.enter(st); err != nil {
			return "", err
		}
		sub := st.clone()
		buf := newBuffer()
		sub.fds[1] = buf
		if p.Script != nil {
			_, err := r.runStmts(ctx, sub, p.Script.Stmts)
			if err != nil && isFatal(err) {
				return "", err
			}
		}
		ps.entry = newContent(buf.buf.String())
	}
	st.fds[n] = ps.entry
	st.procs = append(st.procs, ps)
	return "/dev/fd/" + strconv.Itoa(n), nil
}

// closeProcs finishes the process substitutions opened since mark.
func (r *Runner) closeProcs(ctx context.Context, st *State, mark int) error {
	if len(st.procs) <= mark {
		return nil
	}
	pending := st.procs[mark:]
	st.procs = st.procs[:mark]
	for _, ps := range pending {
		if st.fds[ps.fd] == ps.entry {
			delete(st.fds, ps.fd)
		}
		if !ps.out || ps.script == nil {
			continue
		}
		if err := r.enter(st); err != nil {
			return err
		}
		sub := st.clone()
		sub.fds[0] = newContent(ps.entry.buf.String())
		if _, err := r.runStmts(ctx, sub, ps.script.Stmts); err != nil && isFatal(err) {
			return err
		}
	}
	return nil
}

// fdFS is the filesystem handed to commands: /dev paths resolve against
// the shell's descriptors, everything else goes to the real filesystem.
type fdFS struct {
	vfs.FS
	st *State
}

func (f *fdFS) ReadFile(name string) (string, error) {
	switch name {
	case "/dev/null", "/dev/zero", "/dev/full":
		return "", nil
	}
	if n, ok := devFD(name); ok {
		e, found := f.st.fds[n]
		if !found {
			return "", &fs.PathError{Op: "open", Path: name, Err: errBadFD}
		}
		if e.kind == fdBuffer {
			return e.buf.String(), nil
		}
		return f.st.readAll(n), nil
	}
	return f.FS.ReadFile(name)
}

func (f *fdFS) WriteFile(name, data string) error {
	if f.isDev(name) || name == "/dev/full" {
		return f.AppendFile(name, data)
	}
	return f.FS.WriteFile(name, data)
}

func (f *fdFS) AppendFile(name, data string) error {
	switch name {
	case "/dev/null":
		return nil
	case "/dev/full":
		return &fs.PathError{Op: "write", Path: name, Err: errNoSpace}
	}
	if n, ok := devFD(name); ok {
		if err := f.st.write(n, data); err != nil {
			return &fs.PathError{Op: "write", Path: name, Err: err}
		}
		return nil
	}
	return f.FS.AppendFile(name, data)
}

func (f *fdFS) Exists(name string) bool {
	if f.isDev(name) {
		return true
	}
	return f.FS.Exists(name)
}

func (f *fdFS) IsFile(name string) bool {
	if f.isDev(name) {
		return true
	}
	return f.FS.IsFile(name)
}

func (f *fdFS) isDev(name string) bool {
	switch name {
	case "/dev/null", "/dev/zero", "/dev/full":
		return true
	}
	if n, ok := devFD(name); ok {
		_, found := f.st.fds[n]
		return found
	}
	return false
}

package interp

import (
	"context"
	"regexp"
	"strings"

	"github.com/rcarmo/sandsh/pkg/shell/arith"
	"github.com/rcarmo/sandsh/pkg/shell/syntax"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// expandError is a failed expansion. Fatal ones (unset variables under
// set -u, ${x:?}) terminate the shell.
type expandError struct {
	msg   string
	fatal bool
}

func (e *expandError) Error() string { return e.msg }

// segment is a piece of an expanded word before field splitting.
type segment struct {
	text   string
	pat    string // text in pattern form: quoted characters escaped
	split  bool   // subject to IFS splitting
	quoted bool   // came from quotes; anchors an otherwise empty field
	glob   bool   // pat may carry active pattern characters
	brk    bool   // starts a new field ("$@" element boundary)
}

// mode describes the context a word part is expanded in.
type mode struct {
	quoted   bool // inside double quotes
	splitLit bool // literal text splits too (unquoted ${v:-default})
}

func quotedSeg(s string) segment {
	return segment{text: s, pat: escapeGlob(s), quoted: true}
}

// valueSeg wraps the result of an expansion.
func valueSeg(s string, m mode) segment {
	if m.quoted {
		return quotedSeg(s)
	}
	return segment{text: s, pat: s, split: true, glob: true}
}

// globSpecial lists the characters escapeGlob protects; & is included for
// the replacement text of ${v/p/r}.
const globSpecial = `*?[]\()|!@+^{}&`

// escapeGlob quotes every pattern character in s.
func escapeGlob(s string) string {
	if !strings.ContainsAny(s, globSpecial) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(globSpecial, s[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// segments expands word parts.
func (r *Runner) segments(ctx context.Context, st *State, parts []syntax.WordPart, m mode) ([]segment, error) {
	var segs []segment
	for _, part := range parts {
		switch p := part.(type) {
		case *syntax.Literal:
			switch {
			case m.quoted:
				segs = append(segs, quotedSeg(p.Value))
			case m.splitLit:
				segs = append(segs, segment{text: p.Value, pat: escapeGlob(p.Value), split: true})
			default:
				segs = append(segs, segment{text: p.Value, pat: escapeGlob(p.Value)})
			}
		case *syntax.SingleQuoted:
			segs = append(segs, quotedSeg(p.Value))
		case *syntax.Escaped:
			segs = append(segs, quotedSeg(p.Value))
		case *syntax.DoubleQuoted:
			inner, err := r.segments(ctx, st, p.Parts, mode{quoted: true})
			if err != nil {
				return nil, err
			}
			if len(p.Parts) == 0 {
				inner = append(inner, quotedSeg(""))
			}
			segs = append(segs, inner...)
		case *syntax.ParamExp:
			ps, err := r.paramSegments(ctx, st, p, m)
			if err != nil {
				return nil, err
			}
			segs = append(segs, ps...)
		case *syntax.CmdSubst:
			out, err := r.commandSubst(ctx, st, p.Script)
			if err != nil {
				return nil, err
			}
			segs = append(segs, valueSeg(out, m))
		case *syntax.ArithExp:
			n, err := r.evalArith(ctx, st, p.Expr)
			if err != nil {
				return nil, &expandError{msg: strings.TrimSpace(p.Src) + ": " + err.Error()}
			}
			segs = append(segs, valueSeg(itoa(n), m))
		case *syntax.Glob:
			if m.quoted {
				segs = append(segs, quotedSeg(p.Pattern))
				continue
			}
			segs = append(segs, segment{text: p.Pattern, pat: p.Pattern, glob: true})
		case *syntax.Tilde:
			segs = append(segs, quotedSeg(r.tildeValue(st, p.User)))
		case *syntax.ProcSubst:
			path, err := r.procSubst(ctx, st, p)
			if err != nil {
				return nil, err
			}
			segs = append(segs, quotedSeg(path))
		case *syntax.BraceExp:
			segs = append(segs, segment{text: p.Raw, pat: escapeGlob(p.Raw)})
		}
	}
	return segs, nil
}

func (r *Runner) ifs(st *State) string {
	v, ok := r.lookupScalar(st, "IFS")
	if !ok {
		return " \t\n"
	}
	return v
}

// field is one word after splitting.
type field struct {
	text string
	pat  string
	glob bool
}

// splitFields joins segments into fields, splitting splittable segments
// on IFS. The first piece of a split segment joins the field under
// construction and the last piece stays open for what follows.
func splitFields(segs []segment, ifs string) []field {
	var (
		fields  []field
		cur     field
		started bool
	)
	push := func() {
		fields = append(fields, cur)
		cur = field{}
		started = false
	}
	add := func(text, pat string, glob bool) {
		cur.text += text
		cur.pat += pat
		cur.glob = cur.glob || glob
	}
	for _, s := range segs {
		if s.brk && started {
			push()
		}
		if s.brk {
			started = false
		}
		if !s.split || ifs == "" {
			add(s.text, s.pat, s.glob)
			if s.quoted || s.text != "" {
				started = true
			}
			continue
		}
		if s.text == "" {
			continue
		}
		pieces, lead, trail := ifsSplit(s.text, ifs)
		if lead && started {
			push()
		}
		for i, p := range pieces {
			if i > 0 {
				push()
			}
			pat := p
			if !s.glob {
				pat = escapeGlob(p)
			}
			add(p, pat, s.glob)
			started = true
		}
		if trail && started {
			push()
		}
	}
	if started {
		push()
	}
	return fields
}

// ifsSplit splits s on the characters of ifs. Runs of IFS whitespace form
// one delimiter; each other IFS character delimits a field. lead and trail
// report delimiters at the ends of s.
func ifsSplit(s, ifs string) (pieces []string, lead, trail bool) {
	isWS := func(c byte) bool {
		return (c == ' ' || c == '\t' || c == '\n') && strings.IndexByte(ifs, c) >= 0
	}
	isDelim := func(c byte) bool { return strings.IndexByte(ifs, c) >= 0 }

	i := 0
	for i < len(s) && isWS(s[i]) {
		i++
	}
	lead = i > 0
	if i == len(s) {
		return nil, lead, false
	}
	start := i
	for i < len(s) {
		if !isDelim(s[i]) {
			i++
			continue
		}
		pieces = append(pieces, s[start:i])
		for i < len(s) && isWS(s[i]) {
			i++
		}
		if i < len(s) && isDelim(s[i]) && !isWS(s[i]) {
			i++
			for i < len(s) && isWS(s[i]) {
				i++
			}
		}
		if i == len(s) {
			return pieces, lead, true
		}
		start = i
	}
	pieces = append(pieces, s[start:])
	return pieces, lead, false
}

// expandFields performs the full expansion of words into argument fields.
func (r *Runner) expandFields(ctx context.Context, st *State, words []*syntax.Word) ([]string, error) {
	var out []string
	for _, w := range words {
		fs, err := r.expandWord(ctx, st, w)
		if err != nil {
			return nil, err
		}
		out = append(out, fs...)
	}
	return out, nil
}

func (r *Runner) expandWord(ctx context.Context, st *State, w *syntax.Word) ([]string, error) {
	var out []string
	ifs := r.ifs(st)
	for _, bw := range braceExpand(w) {
		segs, err := r.segments(ctx, st, bw.Parts, mode{})
		if err != nil {
			return nil, err
		}
		for _, f := range splitFields(segs, ifs) {
			if !f.glob || st.opts.Noglob || !vfs.HasMeta(f.pat) {
				out = append(out, f.text)
				continue
			}
			matches, err := vfs.GlobWith(r.fs, f.pat, st.cwd, vfs.GlobOptions{DotGlob: st.opts.Dotglob})
			if err == nil && len(matches) > 0 {
				out = append(out, matches...)
				continue
			}
			if !st.opts.Nullglob {
				out = append(out, f.text)
			}
		}
	}
	return out, nil
}

// expandCommandWords expands the name and arguments of a simple command.
// Arguments of declaration builtins that have assignment form are kept
// whole and returned by argument index.
func (r *Runner) expandCommandWords(ctx context.Context, st *State, c *syntax.SimpleCommand) ([]string, map[int]*syntax.Assignment, error) {
	if c.Name == nil {
		return nil, nil, nil
	}
	fields, err := r.expandWord(ctx, st, c.Name)
	if err != nil {
		return nil, nil, err
	}
	var decl map[int]*syntax.Assignment
	for i, w := range c.Args {
		if a, ok := c.DeclAssigns[i]; ok && len(fields) > 0 {
			text, err := r.declText(ctx, st, a)
			if err != nil {
				return nil, nil, err
			}
			if decl == nil {
				decl = map[int]*syntax.Assignment{}
			}
			decl[len(fields)-1] = a
			fields = append(fields, text)
			continue
		}
		fs, err := r.expandWord(ctx, st, w)
		if err != nil {
			return nil, nil, err
		}
		fields = append(fields, fs...)
	}
	return fields, decl, nil
}

// declText renders a declaration argument for display and tracing.
func (r *Runner) declText(ctx context.Context, st *State, a *syntax.Assignment) (string, error) {
	op := "="
	if a.Append {
		op = "+="
	}
	name := a.Name
	if a.Index != nil {
		name += "[" + a.Index.Raw + "]"
	}
	if a.IsArray {
		return name + op + "(...)", nil
	}
	val := ""
	if a.Value != nil {
		v, err := r.expandString(ctx, st, a.Value)
		if err != nil {
			return "", err
		}
		val = v
	}
	return name + op + val, nil
}

// expandString expands w to a single string, without splitting or
// pathname expansion.
func (r *Runner) expandString(ctx context.Context, st *State, w *syntax.Word) (string, error) {
	if w == nil {
		return "", nil
	}
	segs, err := r.segments(ctx, st, w.Parts, mode{})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, s := range segs {
		if s.brk && i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.text)
	}
	return b.String(), nil
}

// expandPattern expands w into pattern form: quoted parts match literally.
func (r *Runner) expandPattern(ctx context.Context, st *State, w *syntax.Word) (string, error) {
	if w == nil {
		return "", nil
	}
	segs, err := r.segments(ctx, st, w.Parts, mode{})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, s := range segs {
		if s.brk && i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.pat)
	}
	return b.String(), nil
}

// expandRegex expands the right side of =~: quoted parts match literally.
func (r *Runner) expandRegex(ctx context.Context, st *State, w *syntax.Word) (string, error) {
	segs, err := r.segments(ctx, st, w.Parts, mode{})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, s := range segs {
		if s.quoted {
			b.WriteString(regexp.QuoteMeta(s.text))
			continue
		}
		b.WriteString(s.text)
	}
	return b.String(), nil
}

// tildeValue expands ~, ~+, ~- and ~user.
func (r *Runner) tildeValue(st *State, user string) string {
	switch user {
	case "":
		if home, ok := r.lookupScalar(st, "HOME"); ok {
			return home
		}
		return "/home/user"
	case "+":
		return st.cwd
	case "-":
		if old, ok := r.lookupScalar(st, "OLDPWD"); ok {
			return old
		}
		return "~-"
	}
	if me, _ := r.lookupScalar(st, "USER"); me == user {
		if home, ok := r.lookupScalar(st, "HOME"); ok {
			return home
		}
	}
	if user == "root" {
		return "/root"
	}
	return "~" + user
}

// commandSubst runs script in a subshell and returns its output without
// trailing newlines.
func (r *Runner) commandSubst(ctx context.Context, st *State, script *syntax.Script) (string, error) {
	if script == nil {
		return "", nil
	}
	if file, ok := redirectOnly(script); ok {
		name, err := r.expandString(ctx, st, file)
		if err != nil {
			return "", err
		}
		data, err := r.readPath(st, name)
		if err != nil {
			diag(st, "%s: %s", name, vfs.ErrorText(err))
			st.lastSubst = 1
			return "", nil
		}
		return strings.TrimRight(data, "\n"), nil
	}
	if err := r.enter(st); err != nil {
		return "", err
	}
	sub := st.clone()
	buf := newBuffer()
	sub.fds[1] = buf
	status, err := r.runStmts(ctx, sub, script.Stmts)
	if err != nil {
		if isFatal(err) {
			return "", err
		}
		if code, ok := exitCode(err); ok {
			status = code
		}
	}
	status, err = r.runExitTrap(ctx, sub, status)
	if err != nil {
		return "", err
	}
	st.lastSubst = status
	return strings.TrimRight(buf.buf.String(), "\n"), nil
}

// redirectOnly recognises $(< file).
func redirectOnly(script *syntax.Script) (*syntax.Word, bool) {
	if len(script.Stmts) != 1 || len(script.Stmts[0].Pipelines) != 1 {
		return nil, false
	}
	pl := script.Stmts[0].Pipelines[0]
	if len(pl.Cmds) != 1 || pl.Negated {
		return nil, false
	}
	c, ok := pl.Cmds[0].(*syntax.SimpleCommand)
	if !ok || c.Name != nil || len(c.Assigns) > 0 || len(c.Redirs) != 1 {
		return nil, false
	}
	rd := c.Redirs[0]
	if rd.Op != syntax.Less || (rd.N != -1 && rd.N != 0) {
		return nil, false
	}
	return rd.Target, true
}

func (r *Runner) evalArith(ctx context.Context, st *State, e arith.Expr) (int64, error) {
	return arith.Eval(e, &arithEnv{r: r, ctx: ctx, st: st})
}

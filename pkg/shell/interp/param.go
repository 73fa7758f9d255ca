package interp

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rcarmo/sandsh/pkg/shell/syntax"
)

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// isSpecialParam reports whether name is a special or positional parameter.
func isSpecialParam(name string) bool {
	switch name {
	case "@", "*", "#", "?", "-", "$", "!", "0":
		return true
	}
	_, err := strconv.Atoi(name)
	return err == nil
}

// lookupScalar returns the value of a scalar reference: a special
// parameter, a dynamic variable, or a (nameref-resolved) variable, where
// arrays yield element 0.
func (r *Runner) lookupScalar(st *State, name string) (string, bool) {
	switch name {
	case "?":
		return strconv.Itoa(st.lastExit), true
	case "#":
		return strconv.Itoa(len(st.positional)), true
	case "$", "BASHPID", "PPID":
		return "1000", true
	case "!":
		if st.lastBg == 0 {
			return "", false
		}
		return strconv.Itoa(1000 + st.lastBg), true
	case "-":
		return st.optionFlags(), true
	case "0":
		return st.arg0, true
	case "@", "*":
		return strings.Join(st.positional, " "), len(st.positional) > 0
	}
	if n, err := strconv.Atoi(name); err == nil {
		if n >= 1 && n <= len(st.positional) {
			return st.positional[n-1], true
		}
		return "", false
	}
	if st.lookup(name) == nil {
		switch name {
		case "RANDOM":
			return strconv.Itoa(st.nextRandom()), true
		case "LINENO":
			return strconv.Itoa(st.line), true
		case "SECONDS":
			return strconv.Itoa(int(time.Since(st.start).Seconds())), true
		case "EPOCHSECONDS":
			return strconv.FormatInt(time.Now().Unix(), 10), true
		case "BASH_SUBSHELL":
			return strconv.Itoa(st.subshell), true
		case "FUNCNAME":
			if len(st.frames) == 0 {
				return "", false
			}
			return st.frames[len(st.frames)-1].name, true
		case "UID", "EUID":
			return "1000", true
		}
	}
	ref, err := st.resolve(name)
	if err != nil {
		return "", false
	}
	base, sub, hasSub := splitRef(ref)
	v := st.lookup(base)
	if v == nil {
		return "", false
	}
	if hasSub {
		return v.Index(sub)
	}
	if !v.IsSet() {
		return "", false
	}
	if v.Kind != KindScalar {
		return v.Index("0")
	}
	return v.Value, true
}

// paramValue is a parameter's value before an operator is applied.
type paramValue struct {
	vals  []string
	set   bool
	multi bool // expands to a list: $@ ${a[@]} $* ${a[*]}
	star  bool // list joins into one word when quoted
	name  string
	key   string // evaluated subscript, for ${a[k]:=v}
	v     *Var
	index bool
	// keys of an array list, parallel to vals
	keys []string
}

func (pv *paramValue) joined(sep string) string {
	return strings.Join(pv.vals, sep)
}

// null reports the unset-or-null condition of the :- family.
func (pv *paramValue) null(colon bool) bool {
	if !pv.set {
		return true
	}
	if !colon {
		return false
	}
	if pv.multi {
		return len(pv.vals) == 0 || pv.joined("") == ""
	}
	return len(pv.vals) == 0 || pv.vals[0] == ""
}

// paramSegments expands ${...}.
func (r *Runner) paramSegments(ctx context.Context, st *State, pe *syntax.ParamExp, m mode) ([]segment, error) {
	if pe.Bad != "" {
		return nil, &expandError{msg: pe.Bad + ": bad substitution"}
	}
	if pe.NamePrefix != 0 {
		var names []string
		for _, n := range st.varNames() {
			if strings.HasPrefix(n, pe.Name) {
				names = append(names, n)
			}
		}
		pv := &paramValue{vals: names, set: true, multi: true, star: pe.NamePrefix == '*'}
		return r.listSegments(st, pv, m), nil
	}
	if pe.Indirect && !pe.Keys {
		return r.indirect(ctx, st, pe, m)
	}

	pv, err := r.paramLookup(ctx, st, pe)
	if err != nil {
		return nil, err
	}

	if pe.Keys {
		keys := pv.keys
		pv = &paramValue{vals: keys, set: len(keys) > 0, multi: true, star: pe.IndexAll == '*'}
		return r.listSegments(st, pv, m), nil
	}

	if pe.Length {
		if !pv.set && st.opts.Nounset && !pv.multi {
			return nil, &expandError{msg: pe.Name + ": unbound variable", fatal: true}
		}
		n := 0
		if pv.multi {
			n = len(pv.vals)
		} else if len(pv.vals) > 0 {
			n = utf8.RuneCountInString(pv.vals[0])
		}
		return []segment{valueSeg(strconv.Itoa(n), m)}, nil
	}

	op := pe.Op
	if !pv.set && st.opts.Nounset && pe.Name != "@" && pe.Name != "*" {
		if op == nil || op.Kind > syntax.OpAlt {
			name := pe.Name
			if pe.Index != nil {
				name += "[" + pe.Index.Raw + "]"
			}
			return nil, &expandError{msg: name + ": unbound variable", fatal: true}
		}
	}
	if op == nil {
		return r.listSegments(st, pv, m), nil
	}

	switch op.Kind {
	case syntax.OpDefault:
		if pv.null(op.Colon) {
			return r.argSegments(ctx, st, op.Arg, m)
		}
		return r.listSegments(st, pv, m), nil
	case syntax.OpAlt:
		if !pv.null(op.Colon) {
			return r.argSegments(ctx, st, op.Arg, m)
		}
		if m.quoted {
			return []segment{quotedSeg("")}, nil
		}
		return nil, nil
	case syntax.OpAssign:
		if !pv.null(op.Colon) {
			return r.listSegments(st, pv, m), nil
		}
		val, err := r.expandString(ctx, st, op.Arg)
		if err != nil {
			return nil, err
		}
		if isSpecialParam(pe.Name) {
			return nil, &expandError{msg: "$" + pe.Name + ": cannot assign in this way"}
		}
		if pv.index {
			err = r.setElement(ctx, st, pv.name, pv.key, val, false)
		} else {
			err = r.setValue(ctx, st, pe.Name, val, false)
		}
		if err != nil {
			return nil, &expandError{msg: err.Error()}
		}
		if v := st.lookup(pv.name); v != nil && v.Integer {
			val, _ = r.lookupScalar(st, pe.Name)
		}
		return []segment{valueSeg(val, m)}, nil
	case syntax.OpError:
		if !pv.null(op.Colon) {
			return r.listSegments(st, pv, m), nil
		}
		msg := "parameter null or not set"
		if op.Arg != nil && len(op.Arg.Parts) > 0 {
			s, err := r.expandString(ctx, st, op.Arg)
			if err != nil {
				return nil, err
			}
			msg = s
		}
		return nil, &expandError{msg: pe.Name + ": " + msg, fatal: true}
	}

	vals, err := r.applyOp(ctx, st, pe, pv)
	if err != nil {
		return nil, err
	}
	pv.vals = vals
	return r.listSegments(st, pv, m), nil
}

// argSegments expands the word of ${v:-word} or ${v:+word}. Unquoted, its
// literal text is subject to splitting like the rest of the expansion.
func (r *Runner) argSegments(ctx context.Context, st *State, w *syntax.Word, m mode) ([]segment, error) {
	if w == nil || len(w.Parts) == 0 {
		if m.quoted {
			return []segment{quotedSeg("")}, nil
		}
		return nil, nil
	}
	sub := mode{quoted: m.quoted, splitLit: !m.quoted}
	segs, err := r.segments(ctx, st, w.Parts, sub)
	if err != nil {
		return nil, err
	}
	if m.quoted && len(segs) == 0 {
		segs = []segment{quotedSeg("")}
	}
	return segs, nil
}

// listSegments turns a parameter value into segments.
func (r *Runner) listSegments(st *State, pv *paramValue, m mode) []segment {
	if !pv.multi {
		s := ""
		if len(pv.vals) > 0 {
			s = pv.vals[0]
		}
		return []segment{valueSeg(s, m)}
	}
	if m.quoted && pv.star {
		sep := " "
		if ifs, ok := r.lookupScalar(st, "IFS"); ok {
			sep = ""
			if ifs != "" {
				sep = ifs[:1]
			}
		}
		return []segment{quotedSeg(pv.joined(sep))}
	}
	segs := make([]segment, 0, len(pv.vals))
	for i, v := range pv.vals {
		s := valueSeg(v, m)
		s.brk = i > 0
		segs = append(segs, s)
	}
	return segs
}

// paramLookup fetches the value a ParamExp refers to.
func (r *Runner) paramLookup(ctx context.Context, st *State, pe *syntax.ParamExp) (*paramValue, error) {
	name := pe.Name
	if name == "@" || name == "*" {
		vals := append([]string(nil), st.positional...)
		keys := make([]string, len(vals))
		for i := range vals {
			keys[i] = strconv.Itoa(i + 1)
		}
		return &paramValue{vals: vals, set: len(vals) > 0, multi: true, star: name == "*", keys: keys, name: name}, nil
	}
	if isSpecialParam(name) {
		v, ok := r.lookupScalar(st, name)
		return &paramValue{vals: []string{v}, set: ok, name: name}, nil
	}

	ref, err := st.resolve(name)
	if err != nil {
		return nil, &expandError{msg: err.Error()}
	}
	base, sub, hasSub := splitRef(ref)
	if pe.Index == nil && hasSub && (sub == "@" || sub == "*") {
		v := st.lookup(base)
		return &paramValue{vals: v.Values(), keys: v.Keys(), set: v.IsSet(), multi: true, star: sub == "*", name: base, v: v}, nil
	}
	v := st.lookup(base)
	pv := &paramValue{name: base, v: v}

	switch {
	case pe.IndexAll != 0:
		pv.multi, pv.star = true, pe.IndexAll == '*'
		pv.vals, pv.keys = v.Values(), v.Keys()
		pv.set = len(pv.vals) > 0
	case pe.Index != nil || hasSub:
		var key string
		if pe.Index != nil {
			key, err = r.subscript(ctx, st, base, pe.Index)
		} else {
			key, err = r.subscriptText(ctx, st, base, sub)
		}
		if err != nil {
			return nil, err
		}
		pv.index, pv.key = true, key
		s, ok := v.Index(key)
		pv.vals, pv.set = []string{s}, ok
	default:
		s, ok := r.lookupScalar(st, name)
		pv.vals, pv.set = []string{s}, ok
		if v != nil {
			pv.keys = v.Keys()
		}
	}
	return pv, nil
}

// indirect expands ${!ref...}: the value of ref names the parameter.
func (r *Runner) indirect(ctx context.Context, st *State, pe *syntax.ParamExp, m mode) ([]segment, error) {
	var target string
	if v := st.lookup(pe.Name); v != nil && v.Nameref && pe.Index == nil {
		// ${!ref} of a nameref is the name it refers to
		target = v.Value
		if pe.Op == nil {
			return []segment{valueSeg(target, m)}, nil
		}
	} else {
		inner := *pe
		inner.Indirect, inner.Op, inner.Length = false, nil, false
		pv, err := r.paramLookup(ctx, st, &inner)
		if err != nil {
			return nil, err
		}
		if !pv.set || len(pv.vals) == 0 {
			if st.opts.Nounset {
				return nil, &expandError{msg: pe.Name + ": unbound variable", fatal: true}
			}
			if pe.Op == nil {
				return r.listSegments(st, &paramValue{vals: []string{""}}, m), nil
			}
		}
		if len(pv.vals) > 0 {
			target = pv.vals[0]
		}
	}
	name, sub, hasSub := splitRef(target)
	if target != "" && !syntax.IsName(name) && !isSpecialParam(name) {
		return nil, &expandError{msg: target + ": invalid variable name"}
	}
	next := &syntax.ParamExp{Name: name, Op: pe.Op, Length: pe.Length}
	if hasSub {
		switch sub {
		case "@", "*":
			next.IndexAll = sub[0]
		default:
			next.Index = syntax.ParseWord(sub)
		}
	}
	if target == "" {
		next.Name = "_"
	}
	return r.paramSegments(ctx, st, next, m)
}

// subscript evaluates an array subscript: text for associative arrays,
// arithmetic otherwise.
func (r *Runner) subscript(ctx context.Context, st *State, name string, w *syntax.Word) (string, error) {
	if v := st.lookup(name); v != nil && v.Kind == KindAssoc {
		return r.expandString(ctx, st, w)
	}
	text, err := r.expandString(ctx, st, w)
	if err != nil {
		return "", err
	}
	return r.subscriptText(ctx, st, name, text)
}

func (r *Runner) subscriptText(ctx context.Context, st *State, name, text string) (string, error) {
	if v := st.lookup(name); v != nil && v.Kind == KindAssoc {
		return text, nil
	}
	if strings.TrimSpace(text) == "" {
		return "", &expandError{msg: name + "[]: bad array subscript"}
	}
	n, err := r.evalArithString(ctx, st, text)
	if err != nil {
		return "", &expandError{msg: text + ": " + err.Error()}
	}
	return itoa(n), nil
}

// applyOp applies the value-transforming operators element by element.
func (r *Runner) applyOp(ctx context.Context, st *State, pe *syntax.ParamExp, pv *paramValue) ([]string, error) {
	op := pe.Op
	each := func(f func(string) string) []string {
		out := make([]string, len(pv.vals))
		for i, v := range pv.vals {
			out[i] = f(v)
		}
		return out
	}
	switch op.Kind {
	case syntax.OpRemPrefix, syntax.OpRemLongPrefix, syntax.OpRemSuffix, syntax.OpRemLongSuffix:
		pat, err := r.expandPattern(ctx, st, op.Arg)
		if err != nil {
			return nil, err
		}
		long := op.Kind == syntax.OpRemLongPrefix || op.Kind == syntax.OpRemLongSuffix
		if op.Kind == syntax.OpRemPrefix || op.Kind == syntax.OpRemLongPrefix {
			return each(func(s string) string { return removePrefix(s, pat, long) }), nil
		}
		return each(func(s string) string { return removeSuffix(s, pat, long) }), nil

	case syntax.OpReplace, syntax.OpReplaceAll, syntax.OpReplacePrefix, syntax.OpReplaceSuffix:
		pat, err := r.expandPattern(ctx, st, op.Arg)
		if err != nil {
			return nil, err
		}
		repl := ""
		if op.HasRepl {
			if repl, err = r.expandPattern(ctx, st, op.Repl); err != nil {
				return nil, err
			}
		}
		at := anchorNone
		switch op.Kind {
		case syntax.OpReplacePrefix:
			at = anchorStart
		case syntax.OpReplaceSuffix:
			at = anchorEnd
		}
		all := op.Kind == syntax.OpReplaceAll
		return each(func(s string) string { return replacePattern(s, pat, repl, all, at) }), nil

	case syntax.OpUpperFirst, syntax.OpUpperAll, syntax.OpLowerFirst, syntax.OpLowerAll:
		pat := ""
		if op.Arg != nil && len(op.Arg.Parts) > 0 {
			p, err := r.expandPattern(ctx, st, op.Arg)
			if err != nil {
				return nil, err
			}
			pat = p
		}
		upper := op.Kind == syntax.OpUpperFirst || op.Kind == syntax.OpUpperAll
		all := op.Kind == syntax.OpUpperAll || op.Kind == syntax.OpLowerAll
		return each(func(s string) string { return convertCase(s, pat, upper, all) }), nil

	case syntax.OpSubstr:
		return r.substring(ctx, st, pe, pv)

	case syntax.OpTransform:
		return r.transform(st, pe, pv, op.Transform)
	}
	return pv.vals, nil
}

func convertCase(s, pat string, upper, all bool) string {
	var b strings.Builder
	for i, c := range s {
		if (all || i == 0) && (pat == "" || matchPattern(pat, string(c), false)) {
			if upper {
				c = unicode.ToUpper(c)
			} else {
				c = unicode.ToLower(c)
			}
		}
		b.WriteRune(c)
	}
	return b.String()
}

// substring implements ${v:off:len}, slicing characters of a scalar or
// elements of a list.
func (r *Runner) substring(ctx context.Context, st *State, pe *syntax.ParamExp, pv *paramValue) ([]string, error) {
	op := pe.Op
	off, err := r.evalArith(ctx, st, op.Offset)
	if err != nil {
		return nil, &expandError{msg: err.Error()}
	}
	var length int64
	if op.HasLength {
		if length, err = r.evalArith(ctx, st, op.Length); err != nil {
			return nil, &expandError{msg: err.Error()}
		}
	}

	if pv.multi {
		vals := pv.vals
		if pe.Name == "@" || pe.Name == "*" {
			vals = append([]string{st.arg0}, vals...)
		} else if pv.v != nil && pv.v.Kind == KindIndexed {
			// indexed arrays slice by subscript, not by position
			idx := pv.v.indices()
			if off < 0 && len(idx) > 0 {
				off += int64(idx[len(idx)-1]) + 1
			}
			var out []string
			for _, i := range idx {
				if int64(i) >= off {
					out = append(out, pv.v.Indexed[i])
				}
			}
			if off < 0 {
				out = nil
			}
			return sliceList(out, 0, length, op.HasLength)
		}
		n := int64(len(vals))
		if off < 0 {
			off += n
			if off < 0 {
				return nil, nil
			}
		}
		return sliceList(vals, off, length, op.HasLength)
	}

	s := ""
	if len(pv.vals) > 0 {
		s = pv.vals[0]
	}
	runes := []rune(s)
	n := int64(len(runes))
	if off < 0 {
		off += n
		if off < 0 {
			return []string{""}, nil
		}
	}
	if off > n {
		return []string{""}, nil
	}
	end := n
	if op.HasLength {
		if length < 0 {
			end = n + length
			if end < off {
				return nil, &expandError{msg: fmt.Sprintf("%d: substring expression < 0", length)}
			}
		} else if off+length < n {
			end = off + length
		}
	}
	return []string{string(runes[off:end])}, nil
}

func sliceList(vals []string, off, length int64, hasLength bool) ([]string, error) {
	n := int64(len(vals))
	if off > n {
		return nil, nil
	}
	end := n
	if hasLength {
		if length < 0 {
			return nil, &expandError{msg: fmt.Sprintf("%d: substring expression < 0", length)}
		}
		if off+length < n {
			end = off + length
		}
	}
	return vals[off:end], nil
}

// transform implements ${v@X}.
func (r *Runner) transform(st *State, pe *syntax.ParamExp, pv *paramValue, t byte) ([]string, error) {
	each := func(f func(string) string) []string {
		out := make([]string, len(pv.vals))
		for i, v := range pv.vals {
			out[i] = f(v)
		}
		return out
	}
	switch t {
	case 'Q':
		if !pv.set {
			return nil, nil
		}
		return each(shellQuote), nil
	case 'E':
		return each(syntax.DecodeANSIC), nil
	case 'P':
		return pv.vals, nil
	case 'U':
		return each(strings.ToUpper), nil
	case 'L':
		return each(strings.ToLower), nil
	case 'u':
		return each(func(s string) string { return convertCase(s, "", true, false) }), nil
	case 'a':
		flags := ""
		if pv.v != nil {
			flags = attrFlags(pv.v)
		}
		return each(func(string) string { return flags }), nil
	case 'A':
		if pv.v == nil || !pv.set {
			return []string{""}, nil
		}
		return []string{declareLine(pv.name, pv.v)}, nil
	case 'K', 'k':
		if pv.v == nil || pv.v.Kind == KindScalar || !pv.multi {
			return each(shellQuote), nil
		}
		var parts []string
		keys := pv.v.Keys()
		vals := pv.v.Values()
		for i, k := range keys {
			if t == 'K' {
				parts = append(parts, k+" "+shellQuote(vals[i]))
			} else {
				parts = append(parts, k, vals[i])
			}
		}
		if t == 'K' {
			return []string{strings.Join(parts, " ")}, nil
		}
		return parts, nil
	}
	return nil, &expandError{msg: fmt.Sprintf("${%s@%c}: bad substitution", pe.Name, t)}
}

// shellQuote quotes s for reuse as shell input.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// attrFlags renders the attribute letters of v.
func attrFlags(v *Var) string {
	var b strings.Builder
	switch v.Kind {
	case KindIndexed:
		b.WriteByte('a')
	case KindAssoc:
		b.WriteByte('A')
	}
	if v.Integer {
		b.WriteByte('i')
	}
	if v.Lower {
		b.WriteByte('l')
	}
	if v.Nameref {
		b.WriteByte('n')
	}
	if v.ReadOnly {
		b.WriteByte('r')
	}
	if v.Upper {
		b.WriteByte('u')
	}
	if v.Exported {
		b.WriteByte('x')
	}
	return b.String()
}

// declareLine renders v the way declare -p prints it.
func declareLine(name string, v *Var) string {
	flags := attrFlags(v)
	if flags == "" {
		flags = "-"
	}
	head := "declare -" + flags + " " + name
	switch v.Kind {
	case KindIndexed:
		var parts []string
		for _, i := range v.indices() {
			parts = append(parts, fmt.Sprintf("[%d]=%s", i, dquote(v.Indexed[i])))
		}
		return head + "=(" + strings.Join(parts, " ") + ")"
	case KindAssoc:
		keys := append([]string(nil), v.keys...)
		sort.Strings(keys)
		var parts []string
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("[%s]=%s", k, dquote(v.Assoc[k])))
		}
		if len(parts) == 0 {
			return head + "=()"
		}
		return head + "=(" + strings.Join(parts, " ") + " )"
	}
	if !v.Set {
		return head
	}
	return head + "=" + dquote(v.Value)
}

func dquote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")
	return `"` + r.Replace(s) + `"`
}

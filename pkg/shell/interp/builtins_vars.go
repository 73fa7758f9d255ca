package interp

import (
	"sort"
	"strconv"
	"strings"

	"github.com/rcarmo/sandsh/pkg/shell/syntax"
)

// declFlags are the attribute switches of declare and its relatives.
type declFlags struct {
	on, off map[byte]bool
	print   bool
	global  bool
	funcs   bool // -f
	fnames  bool // -F
}

func (f *declFlags) has(c byte) bool { return f.on[c] }

// parseDeclFlags consumes leading -x/+x options. allowed lists the
// attribute letters the builtin accepts.
func (b *builtinCall) parseDeclFlags(allowed string) (*declFlags, int, bool) {
	f := &declFlags{on: map[byte]bool{}, off: map[byte]bool{}}
	i := 0
	for ; i < len(b.args); i++ {
		arg := b.args[i]
		if _, isDecl := b.decl[i]; isDecl {
			break
		}
		if arg == "--" {
			i++
			break
		}
		if len(arg) < 2 || (arg[0] != '-' && arg[0] != '+') {
			break
		}
		for j := 1; j < len(arg); j++ {
			c := arg[j]
			switch {
			case c == 'p':
				f.print = true
			case c == 'g':
				f.global = true
			case c == 'f':
				f.funcs = true
			case c == 'F':
				f.fnames = true
			case strings.IndexByte(allowed, c) >= 0:
				if arg[0] == '-' {
					f.on[c] = true
				} else {
					f.off[c] = true
				}
			default:
				b.errorf("%s: invalid option", arg[:1]+string(c))
				return nil, 0, false
			}
		}
	}
	return f, i, true
}

// validName reports a bad identifier with the bash wording.
func (b *builtinCall) validName(name string) bool {
	if syntax.IsName(name) {
		return true
	}
	b.errorf("`%s': not a valid identifier", name)
	return false
}

// applyAttrs sets and clears attributes on v.
func applyAttrs(v *Var, f *declFlags) {
	for c := range f.on {
		switch c {
		case 'a':
			if v.Kind == KindScalar {
				v.toIndexed()
			}
		case 'A':
			v.toAssoc()
		case 'i':
			v.Integer = true
		case 'x':
			v.Exported = true
		case 'n':
			v.Nameref = true
		case 'l':
			v.Lower, v.Upper = true, false
		case 'u':
			v.Upper, v.Lower = true, false
		}
	}
	for c := range f.off {
		switch c {
		case 'i':
			v.Integer = false
		case 'x':
			v.Exported = false
		case 'n':
			v.Nameref = false
		case 'l':
			v.Lower = false
		case 'u':
			v.Upper = false
		}
	}
}

// builtinDeclare implements declare, typeset and local.
func builtinDeclare(b *builtinCall) (int, error) {
	st := b.st
	local := b.name == "local"
	if local && len(st.frames) == 0 {
		b.errorf("can only be used in a function")
		return 1, nil
	}
	f, start, ok := b.parseDeclFlags("aAilnrux")
	if !ok {
		return 2, nil
	}
	names := b.args[start:]
	if !local && !f.global && len(st.frames) > 0 {
		local = true
	}

	if f.funcs || f.fnames {
		return b.printFunctions(names, f.fnames), nil
	}
	if len(names) == 0 {
		return b.printDeclared(f), nil
	}
	if f.print {
		status := 0
		var out strings.Builder
		for _, name := range names {
			v := st.lookup(name)
			if v == nil {
				b.errorf("%s: not found", name)
				status = 1
				continue
			}
			out.WriteString(declareLine(name, v) + "\n")
		}
		if code := b.write(out.String()); code != 0 {
			return code, nil
		}
		return status, nil
	}

	status := 0
	for k, arg := range names {
		a := b.decl[start+k]
		name := arg
		if a != nil {
			name = a.Name
		} else if base, _, hasSub := splitRef(arg); hasSub {
			name = base
		}
		if !b.validName(name) {
			status = 1
			continue
		}
		var v *Var
		if local {
			v = st.declareLocal(name)
		} else if v = st.lookup(name); v == nil || f.global {
			v = st.globals[name]
			if v == nil {
				v = &Var{}
				st.globals[name] = v
			}
		}
		if v.ReadOnly && (a != nil || len(f.on) > 0 || len(f.off) > 0) && !f.on['r'] {
			b.errorf("%s: readonly variable", name)
			status = 1
			continue
		}
		if v.Kind == KindAssoc && f.on['a'] {
			b.errorf("%s: cannot convert associative to indexed array", name)
			status = 1
			continue
		}
		if v.Kind == KindIndexed && f.on['A'] {
			b.errorf("%s: cannot convert indexed to associative array", name)
			status = 1
			continue
		}
		applyAttrs(v, f)
		if a != nil {
			if f.on['n'] && !a.IsArray {
				// the value of a nameref is the name it refers to
				val, err := b.r.expandString(b.ctx, st, a.Value)
				if err != nil {
					return b.r.expansionFailed(st, err)
				}
				v.Value, v.Set = val, true
			} else if err := b.r.assign(b.ctx, st, a, local); err != nil {
				if _, ferr := b.r.expansionFailed(st, err); ferr != nil {
					return 1, ferr
				}
				status = 1
			}
		}
		if f.on['r'] {
			v.ReadOnly = true
		}
		if st.opts.Allexport && a != nil {
			v.Exported = true
		}
	}
	return status, nil
}

func (b *builtinCall) printDeclared(f *declFlags) int {
	var out strings.Builder
	for _, name := range b.st.varNames() {
		v := b.st.lookup(name)
		if !matchesFlags(v, f) {
			continue
		}
		if f.print || len(f.on) > 0 {
			out.WriteString(declareLine(name, v) + "\n")
			continue
		}
		if v.Kind == KindScalar {
			if v.Set {
				out.WriteString(name + "=" + shellValue(v.Value) + "\n")
			}
			continue
		}
		out.WriteString(strings.TrimPrefix(declareLine(name, v), "declare -"+attrFlags(v)+" ") + "\n")
	}
	return b.write(out.String())
}

func matchesFlags(v *Var, f *declFlags) bool {
	for c := range f.on {
		switch c {
		case 'a':
			if v.Kind != KindIndexed {
				return false
			}
		case 'A':
			if v.Kind != KindAssoc {
				return false
			}
		case 'i':
			if !v.Integer {
				return false
			}
		case 'x':
			if !v.Exported {
				return false
			}
		case 'r':
			if !v.ReadOnly {
				return false
			}
		case 'n':
			if !v.Nameref {
				return false
			}
		}
	}
	return true
}

// shellValue quotes a value for set output only when it needs it.
func shellValue(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`*?[]|&;<>(){}#~!=") {
		return s
	}
	return shellQuote(s)
}

func (b *builtinCall) printFunctions(names []string, namesOnly bool) int {
	st := b.st
	if len(names) == 0 {
		for name := range st.funcs {
			names = append(names, name)
		}
		sort.Strings(names)
	}
	status := 0
	var out strings.Builder
	for _, name := range names {
		fn := st.funcs[name]
		if fn == nil {
			status = 1
			continue
		}
		if namesOnly {
			out.WriteString("declare -f " + name + "\n")
			continue
		}
		out.WriteString(fn.Source + "\n")
	}
	if code := b.write(out.String()); code != 0 {
		return code
	}
	return status
}

// markNames applies export or readonly to each argument.
func (b *builtinCall) markNames(flag byte) (int, error) {
	st := b.st
	f, start, ok := b.parseDeclFlags("aAfn")
	if !ok {
		return 2, nil
	}
	names := b.args[start:]
	unmark := f.on['n'] && flag == 'x'
	if len(names) == 0 || f.print {
		var out strings.Builder
		for _, name := range st.varNames() {
			v := st.lookup(name)
			if (flag == 'x' && v.Exported) || (flag == 'r' && v.ReadOnly) {
				out.WriteString(declareLine(name, v) + "\n")
			}
		}
		return b.write(out.String()), nil
	}
	status := 0
	for k, arg := range names {
		a := b.decl[start+k]
		name := arg
		if a != nil {
			name = a.Name
		}
		if !b.validName(name) {
			status = 1
			continue
		}
		if f.funcs {
			if st.funcs[name] == nil {
				b.errorf("%s: not a function", name)
				status = 1
			}
			continue
		}
		if a != nil {
			if err := b.r.assign(b.ctx, st, a, false); err != nil {
				if _, ferr := b.r.expansionFailed(st, err); ferr != nil {
					return 1, ferr
				}
				status = 1
				continue
			}
		}
		v := st.ensure(name)
		if f.on['a'] && v.Kind == KindScalar {
			v.toIndexed()
		}
		if f.on['A'] {
			v.toAssoc()
		}
		switch {
		case unmark:
			v.Exported = false
		case flag == 'x':
			v.Exported = true
		case flag == 'r':
			v.ReadOnly = true
		}
	}
	return status, nil
}

func builtinExport(b *builtinCall) (int, error)   { return b.markNames('x') }
func builtinReadonly(b *builtinCall) (int, error) { return b.markNames('r') }

func builtinUnset(b *builtinCall) (int, error) {
	st := b.st
	mode := byte('v')
	args := b.args
	for len(args) > 0 && len(args[0]) > 1 && args[0][0] == '-' {
		for _, c := range args[0][1:] {
			switch c {
			case 'f', 'v', 'n':
				mode = byte(c)
			default:
				b.errorf("-%c: invalid option", c)
				return 2, nil
			}
		}
		args = args[1:]
	}
	status := 0
	for _, arg := range args {
		if mode == 'f' {
			delete(st.funcs, arg)
			continue
		}
		name, sub, hasSub := splitRef(arg)
		if !syntax.IsName(name) {
			b.errorf("`%s': not a valid identifier", arg)
			status = 1
			continue
		}
		target := name
		if mode != 'n' {
			ref, err := st.resolve(name)
			if err != nil {
				b.errorf("%s", err)
				status = 1
				continue
			}
			var refSub string
			var refHasSub bool
			target, refSub, refHasSub = splitRef(ref)
			if refHasSub && !hasSub {
				sub, hasSub = refSub, true
			}
		}
		if hasSub {
			if err := b.unsetElement(target, sub); err != nil {
				b.errorf("%s", err)
				status = 1
			}
			continue
		}
		if st.lookup(target) == nil && mode == 'v' && st.funcs[target] != nil {
			// unset with no variable of that name removes the function
			delete(st.funcs, target)
			continue
		}
		if err := st.unset(target); err != nil {
			b.errorf("%s", err)
			status = 1
		}
	}
	return status, nil
}

func (b *builtinCall) unsetElement(name, sub string) error {
	v := b.st.lookup(name)
	if v == nil {
		return nil
	}
	if v.ReadOnly {
		return &expandError{msg: name + ": cannot unset: readonly variable"}
	}
	switch v.Kind {
	case KindAssoc:
		if sub == "@" || sub == "*" {
			v.Assoc, v.keys = map[string]string{}, nil
			return nil
		}
		v.deleteKey(sub)
	case KindIndexed:
		if sub == "@" || sub == "*" {
			v.Indexed = map[int]string{}
			return nil
		}
		key, err := b.r.subscriptText(b.ctx, b.st, name, sub)
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(key)
		if err != nil {
			return &expandError{msg: sub + ": bad array subscript"}
		}
		if n < 0 {
			n += v.maxIndex() + 1
		}
		delete(v.Indexed, n)
	default:
		if sub == "0" || sub == "@" || sub == "*" {
			return b.st.unset(name)
		}
	}
	return nil
}

var setFlags = map[byte]string{
	'a': "allexport", 'e': "errexit", 'f': "noglob", 'n': "noexec",
	'u': "nounset", 'v': "verbose", 'x': "xtrace", 'C': "noclobber",
}

func builtinSet(b *builtinCall) (int, error) {
	st := b.st
	args := b.args
	if len(args) == 0 {
		var out strings.Builder
		for _, name := range st.varNames() {
			v := st.lookup(name)
			if v.Kind == KindScalar {
				if v.Set {
					out.WriteString(name + "=" + shellValue(v.Value) + "\n")
				}
				continue
			}
			out.WriteString(strings.TrimPrefix(declareLine(name, v), "declare -"+attrFlags(v)+" ") + "\n")
		}
		return b.write(out.String()), nil
	}
	for len(args) > 0 {
		arg := args[0]
		if arg == "--" {
			st.positional = append([]string(nil), args[1:]...)
			return 0, nil
		}
		if arg == "-" {
			st.opts.Xtrace, st.opts.Verbose = false, false
			args = args[1:]
			break
		}
		if len(arg) < 2 || (arg[0] != '-' && arg[0] != '+') {
			break
		}
		on := arg[0] == '-'
		args = args[1:]
		for j := 1; j < len(arg); j++ {
			c := arg[j]
			if c == 'o' {
				if len(args) == 0 {
					b.listOptions(on)
					continue
				}
				name := args[0]
				args = args[1:]
				p := st.option(name)
				if p == nil || !isSetOption(name) {
					b.errorf("%s: invalid option name", name)
					return 2, nil
				}
				*p = on
				continue
			}
			name, ok := setFlags[c]
			if !ok {
				b.errorf("%c%c: invalid option", arg[0], c)
				return 2, nil
			}
			*st.option(name) = on
		}
	}
	if len(args) > 0 {
		st.positional = append([]string(nil), args...)
	}
	return 0, nil
}

func isSetOption(name string) bool {
	for _, o := range setOptions {
		if o == name {
			return true
		}
	}
	return false
}

// listOptions prints set -o (human) or set +o (reusable) output.
func (b *builtinCall) listOptions(human bool) {
	var out strings.Builder
	for _, name := range setOptions {
		on := *b.st.option(name)
		switch {
		case human && on:
			out.WriteString(padRight(name, 15) + "\ton\n")
		case human:
			out.WriteString(padRight(name, 15) + "\toff\n")
		case on:
			out.WriteString("set -o " + name + "\n")
		default:
			out.WriteString("set +o " + name + "\n")
		}
	}
	b.write(out.String())
}

func padRight(s string, n int) string {
	for len(s) < n {
		s += " "
	}
	return s
}

func builtinShopt(b *builtinCall) (int, error) {
	st := b.st
	var set, unset, quiet, print bool
	args := b.args
	for len(args) > 0 && len(args[0]) > 1 && args[0][0] == '-' {
		for _, c := range args[0][1:] {
			switch c {
			case 's':
				set = true
			case 'u':
				unset = true
			case 'q':
				quiet = true
			case 'p':
				print = true
			case 'o':
			default:
				b.errorf("-%c: invalid option", c)
				return 2, nil
			}
		}
		args = args[1:]
	}
	names := args
	if len(names) == 0 {
		names = shoptOptions
	}
	status := 0
	var out strings.Builder
	for _, name := range names {
		p := st.option(name)
		if p == nil {
			b.errorf("%s: invalid shell option name", name)
			status = 1
			continue
		}
		switch {
		case set:
			*p = true
		case unset:
			*p = false
		default:
			if !*p {
				status = 1
			}
			if quiet {
				continue
			}
			state := "off"
			flag := "-u"
			if *p {
				state, flag = "on", "-s"
			}
			if print {
				out.WriteString("shopt " + flag + " " + name + "\n")
			} else {
				out.WriteString(padRight(name, 15) + "\t" + state + "\n")
			}
		}
	}
	if len(args) == 0 && !set && !unset {
		status = 0
	}
	if code := b.write(out.String()); code != 0 {
		return code, nil
	}
	return status, nil
}

package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// builtinEcho accepts only -n, -e and -E and combinations thereof.
func builtinEcho(b *builtinCall) (int, error) {
	noNewline := false
	escapes := false
	start := 0
	for i, arg := range b.args {
		if len(arg) < 2 || arg[0] != '-' || strings.Trim(arg[1:], "neE") != "" {
			break
		}
		for _, c := range arg[1:] {
			switch c {
			case 'n':
				noNewline = true
			case 'e':
				escapes = true
			case 'E':
				escapes = false
			}
		}
		start = i + 1
	}

	out := strings.Join(b.args[start:], " ")
	halt := false
	if escapes {
		out, halt = processEscapes(out, false)
	}
	if !noNewline && !halt {
		out += "\n"
	}
	return b.write(out), nil
}

// processEscapes expands backslash escapes for echo -e and printf %b.
// With bareOctal, \NNN is accepted without the leading zero. halt reports
// a \c, which ends all output.
func processEscapes(s string, bareOctal bool) (string, bool) {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			out.WriteByte(s[i])
			continue
		}
		c := s[i+1]
		if c == 'c' {
			return out.String(), true
		}
		if c == '0' || (bareOctal && c >= '1' && c <= '7') {
			j := i + 1
			if c == '0' {
				j++
			}
			val, n := octal(s[j:], 3)
			out.WriteByte(byte(val))
			i = j + n - 1
			continue
		}
		r, n, ok := simpleEscape(s[i:])
		if !ok {
			out.WriteByte('\\')
			continue
		}
		if r < utf8.RuneSelf || c == 'u' || c == 'U' {
			out.WriteRune(r)
		} else {
			out.WriteByte(byte(r))
		}
		i += n - 1
	}
	return out.String(), false
}

// simpleEscape decodes the escapes shared by echo, printf and %b, other
// than octal. n is the number of bytes consumed including the backslash.
func simpleEscape(s string) (r rune, n int, ok bool) {
	if len(s) < 2 {
		return 0, 0, false
	}
	switch s[1] {
	case 'a':
		return '\a', 2, true
	case 'b':
		return '\b', 2, true
	case 'e', 'E':
		return 0x1b, 2, true
	case 'f':
		return '\f', 2, true
	case 'n':
		return '\n', 2, true
	case 'r':
		return '\r', 2, true
	case 't':
		return '\t', 2, true
	case 'v':
		return '\v', 2, true
	case '\\':
		return '\\', 2, true
	case 'x':
		val, k := hexDigits(s[2:], 2)
		if k == 0 {
			return 0, 0, false
		}
		return rune(val), 2 + k, true
	case 'u', 'U':
		max := 4
		if s[1] == 'U' {
			max = 8
		}
		val, k := hexDigits(s[2:], max)
		if k == 0 {
			return 0, 0, false
		}
		return rune(val), 2 + k, true
	}
	return 0, 0, false
}

func octal(s string, max int) (val, n int) {
	for n < max && n < len(s) && s[n] >= '0' && s[n] <= '7' {
		val = val*8 + int(s[n]-'0')
		n++
	}
	return val, n
}

func hexDigits(s string, max int) (val, n int) {
	for n < max && n < len(s) {
		c := s[n]
		switch {
		case c >= '0' && c <= '9':
			val = val*16 + int(c-'0')
		case c >= 'a' && c <= 'f':
			val = val*16 + int(c-'a'+10)
		case c >= 'A' && c <= 'F':
			val = val*16 + int(c-'A'+10)
		default:
			return val, n
		}
		n++
	}
	return val, n
}

// printfState carries one printf invocation.
type printfState struct {
	b      *builtinCall
	out    strings.Builder
	args   []string
	argIdx int
	status int
	stop   bool
}

func builtinPrintf(b *builtinCall) (int, error) {
	args := b.args
	target := ""
	for len(args) > 0 {
		if args[0] == "-v" && len(args) > 1 {
			target = args[1]
			args = args[2:]
			continue
		}
		if args[0] == "--" {
			args = args[1:]
		}
		break
	}
	if len(args) == 0 {
		diag(b.st, "printf: usage: printf [-v var] format [arguments]")
		return 2, nil
	}
	if target != "" {
		if name, _, _ := splitRef(target); !b.validName(name) {
			return 2, nil
		}
	}

	p := &printfState{b: b, args: args[1:]}
	format := args[0]
	for {
		start := p.argIdx
		if !p.format(format) {
			return 1, nil
		}
		if p.stop || p.argIdx >= len(p.args) || p.argIdx == start {
			break
		}
	}

	if target != "" {
		if err := b.r.setValue(b.ctx, b.st, target, p.out.String(), false); err != nil {
			b.errorf("%s", err)
			return 1, nil
		}
		return p.status, nil
	}
	if code := b.write(p.out.String()); code != 0 {
		return code, nil
	}
	return p.status, nil
}

// format runs one pass over the format string. It reports false on an
// invalid conversion.
func (p *printfState) format(format string) bool {
	for i := 0; i < len(format); {
		c := format[i]
		if c == '\\' {
			if i+1 < len(format) && format[i+1] == 'c' {
				p.stop = true
				return true
			}
			if i+1 < len(format) && format[i+1] >= '0' && format[i+1] <= '7' {
				val, n := octal(format[i+1:], 3)
				p.out.WriteByte(byte(val))
				i += 1 + n
				continue
			}
			r, n, ok := simpleEscape(format[i:])
			if !ok {
				p.out.WriteByte('\\')
				i++
				continue
			}
			if r < utf8.RuneSelf || format[i+1] == 'u' || format[i+1] == 'U' {
				p.out.WriteRune(r)
			} else {
				p.out.WriteByte(byte(r))
			}
			i += n
			continue
		}
		if c != '%' {
			p.out.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			p.out.WriteByte('%')
			i += 2
			continue
		}
		spec, n, ok := parseFormatSpec(format[i:])
		if !ok {
			p.b.errorf("`%s': invalid format character", spec.raw[len(spec.raw)-1:])
			return false
		}
		p.printFormatted(spec)
		if p.stop {
			return true
		}
		i += n
	}
	return true
}

type formatSpec struct {
	flags     string
	width     int
	widthStar bool
	prec      int
	precStar  bool
	hasPrec   bool
	verb      byte
	raw       string
}

func parseFormatSpec(s string) (formatSpec, int, bool) {
	spec := formatSpec{}
	i := 1
	for i < len(s) && strings.IndexByte("-+ #0", s[i]) >= 0 {
		spec.flags += string(s[i])
		i++
	}
	if i < len(s) && s[i] == '*' {
		spec.widthStar = true
		i++
	} else {
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			spec.width = spec.width*10 + int(s[i]-'0')
			i++
		}
	}
	if i < len(s) && s[i] == '.' {
		spec.hasPrec = true
		i++
		if i < len(s) && s[i] == '*' {
			spec.precStar = true
			i++
		} else {
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				spec.prec = spec.prec*10 + int(s[i]-'0')
				i++
			}
		}
	}
	// length modifiers carry no meaning here
	for i < len(s) && strings.IndexByte("hlLjzt", s[i]) >= 0 {
		i++
	}
	if i >= len(s) {
		spec.raw = s + "%"
		return spec, i, false
	}
	spec.verb = s[i]
	spec.raw = s[:i+1]
	i++
	switch spec.verb {
	case 'd', 'i', 'o', 'u', 'x', 'X', 'f', 'F', 'e', 'E', 'g', 'G', 's', 'b', 'q', 'c':
		return spec, i, true
	}
	return spec, i, false
}

func (p *printfState) next() (string, bool) {
	if p.argIdx < len(p.args) {
		s := p.args[p.argIdx]
		p.argIdx++
		return s, true
	}
	return "", false
}

func (p *printfState) intArg() int64 {
	s, _ := p.next()
	n, err := parseIntArg(s)
	if err != nil {
		p.invalid(s, err)
	}
	return n
}

func (p *printfState) invalid(s string, err error) {
	if err == errRange {
		p.b.errorf("%s: Numerical result out of range", s)
	} else {
		p.b.errorf("%s: invalid number", s)
	}
	p.status = 1
}

func (p *printfState) printFormatted(spec formatSpec) {
	width, prec := spec.width, spec.prec
	flags := spec.flags
	if spec.widthStar {
		width = int(p.intArg())
		if width < 0 {
			flags += "-"
			width = -width
		}
	}
	hasPrec := spec.hasPrec
	if spec.precStar {
		prec = int(p.intArg())
		if prec < 0 {
			hasPrec = false
		}
	}
	arg, _ := p.next()

	switch spec.verb {
	case 'd', 'i':
		val, err := parseIntArg(arg)
		if err != nil {
			p.invalid(arg, err)
		}
		fmt.Fprintf(&p.out, buildFmtStr(flags, width, prec, hasPrec, 'd'), val)
	case 'o', 'u', 'x', 'X':
		val, err := parseIntArg(arg)
		if err != nil {
			p.invalid(arg, err)
		}
		verb := spec.verb
		if verb == 'u' {
			verb = 'd'
		}
		// negative values print as their two's complement
		fmt.Fprintf(&p.out, buildFmtStr(flags, width, prec, hasPrec, verb), uint64(val))
	case 'f', 'F', 'e', 'E', 'g', 'G':
		val, err := parseFloatArg(arg)
		if err != nil {
			p.invalid(arg, err)
		}
		verb := spec.verb
		if verb == 'F' {
			verb = 'f'
		}
		if !hasPrec && (verb == 'g' || verb == 'G') {
			prec, hasPrec = 6, true
		}
		fmt.Fprintf(&p.out, buildFmtStr(flags, width, prec, hasPrec, verb), val)
	case 's':
		fmt.Fprintf(&p.out, buildFmtStr(flags, width, prec, hasPrec, 's'), arg)
	case 'b':
		expanded, halt := processEscapes(arg, true)
		fmt.Fprintf(&p.out, buildFmtStr(flags, width, prec, hasPrec, 's'), expanded)
		if halt {
			p.stop = true
		}
	case 'q':
		fmt.Fprintf(&p.out, buildFmtStr(flags, width, 0, false, 's'), bashQuote(arg))
	case 'c':
		s := ""
		if arg != "" {
			_, n := utf8.DecodeRuneInString(arg)
			s = arg[:n]
		}
		fmt.Fprintf(&p.out, buildFmtStr(flags, width, 0, false, 's'), s)
	}
}

func buildFmtStr(flags string, width, prec int, hasPrec bool, verb byte) string {
	var b strings.Builder
	b.WriteByte('%')
	b.WriteString(flags)
	if width != 0 {
		b.WriteString(strconv.Itoa(width))
	}
	if hasPrec && prec >= 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(prec))
	}
	b.WriteByte(verb)
	return b.String()
}

var (
	errInvalidNum = fmt.Errorf("invalid number")
	errRange      = fmt.Errorf("out of range")
)

// parseIntArg reads a printf integer: decimal, 0x hex, leading-zero
// octal, or a quoted character. On error the valid prefix is returned.
func parseIntArg(s string) (int64, error) {
	s = strings.TrimLeft(s, " \t\n")
	if s == "" {
		return 0, nil
	}
	if s[0] == '\'' || s[0] == '"' {
		if len(s) == 1 {
			return 0, nil
		}
		r, _ := utf8.DecodeRuneInString(s[1:])
		return int64(r), nil
	}
	neg := false
	i := 0
	if s[0] == '+' || s[0] == '-' {
		neg = s[0] == '-'
		i++
	}
	base := uint64(10)
	if strings.HasPrefix(s[i:], "0x") || strings.HasPrefix(s[i:], "0X") {
		base = 16
		i += 2
	} else if strings.HasPrefix(s[i:], "0") && len(s) > i+1 {
		base = 8
		i++
	}
	var n uint64
	digits := 0
	overflow := false
	for ; i < len(s); i++ {
		d := digitValue(s[i])
		if d >= base {
			break
		}
		if n > (math.MaxUint64-d)/base {
			overflow = true
		}
		n = n*base + d
		digits++
	}
	if n > math.MaxInt64 && !(neg && n == 1<<63) {
		overflow = true
	}
	val := int64(n)
	if neg {
		val = -val
	}
	switch {
	case overflow:
		if neg {
			return math.MinInt64, errRange
		}
		return math.MaxInt64, errRange
	case i < len(s) || (digits == 0 && base != 8):
		return val, errInvalidNum
	}
	return val, nil
}

func digitValue(c byte) uint64 {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0')
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return uint64(c-'A') + 10
	}
	return 99
}

func parseFloatArg(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if s[0] == '\'' || s[0] == '"' {
		if len(s) == 1 {
			return 0, nil
		}
		r, _ := utf8.DecodeRuneInString(s[1:])
		return float64(r), nil
	}
	switch strings.ToLower(strings.TrimPrefix(s, "+")) {
	case "inf", "infinity":
		return math.Inf(1), nil
	case "-inf", "-infinity":
		return math.Inf(-1), nil
	}
	f, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
	if err != nil {
		if n, ierr := parseIntArg(s); ierr == nil {
			return float64(n), nil
		}
		return 0, errInvalidNum
	}
	return f, nil
}

// bashQuote quotes s for reuse as shell input, the way printf %q does.
func bashQuote(s string) string {
	if s == "" {
		return "''"
	}
	printable := true
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			printable = false
			break
		}
	}
	if !printable {
		var b strings.Builder
		b.WriteString("$'")
		for _, r := range s {
			switch r {
			case '\n':
				b.WriteString(`\n`)
			case '\t':
				b.WriteString(`\t`)
			case '\r':
				b.WriteString(`\r`)
			case 0x1b:
				b.WriteString(`\E`)
			case '\'':
				b.WriteString(`\'`)
			case '\\':
				b.WriteString(`\\`)
			default:
				if r < 0x20 || r == 0x7f {
					fmt.Fprintf(&b, `\%03o`, r)
				} else {
					b.WriteRune(r)
				}
			}
		}
		b.WriteByte('\'')
		return b.String()
	}
	var b strings.Builder
	for i, r := range s {
		if strings.ContainsRune(" \t'\"\\$`|&;<>()[]{}*?!#,^", r) || (r == '~' && i == 0) || (r == '=' && i == 0) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// readOpts are the parsed options of the read builtin.
type readOpts struct {
	raw      bool
	array    string
	delim    byte
	nchars   int // -n
	exact    bool
	fd       int
	timeout  bool
	zeroWait bool
}

func builtinRead(b *builtinCall) (int, error) {
	o := readOpts{delim: '\n', nchars: -1}
	args := b.args
	optArg := func(flag byte, rest string) (string, bool) {
		if rest != "" {
			return rest, true
		}
		if len(args) == 0 {
			b.errorf("-%c: option requires an argument", flag)
			return "", false
		}
		v := args[0]
		args = args[1:]
		return v, true
	}
	for len(args) > 0 && len(args[0]) > 1 && args[0][0] == '-' {
		arg := args[0]
		args = args[1:]
		if arg == "--" {
			break
		}
	flags:
		for j := 1; j < len(arg); j++ {
			c := arg[j]
			switch c {
			case 'r':
				o.raw = true
			case 's', 'e':
			case 'a', 'd', 'n', 'N', 'p', 't', 'u', 'i':
				v, ok := optArg(c, arg[j+1:])
				if !ok {
					return 2, nil
				}
				switch c {
				case 'a':
					o.array = v
				case 'd':
					o.delim = 0
					if v != "" {
						o.delim = v[0]
					}
				case 'n', 'N':
					n, err := strconv.Atoi(v)
					if err != nil || n < 0 {
						b.errorf("%s: invalid number", v)
						return 2, nil
					}
					o.nchars, o.exact = n, c == 'N'
				case 't':
					f, err := strconv.ParseFloat(v, 64)
					if err != nil || f < 0 {
						b.errorf("%s: invalid timeout specification", v)
						return 2, nil
					}
					o.timeout, o.zeroWait = true, f == 0
				case 'u':
					n, err := strconv.Atoi(v)
					if err != nil || n < 0 {
						b.errorf("%s: invalid file descriptor specification", v)
						return 1, nil
					}
					o.fd = n
				}
				// prompts are shown only on terminal input
				break flags
			default:
				b.errorf("-%c: invalid option", c)
				diag(b.st, "read: usage: read [-ers] [-a array] [-d delim] [-n nchars] [-N nchars] [-p prompt] [-t timeout] [-u fd] [name ...]")
				return 2, nil
			}
		}
	}
	names := args
	for _, name := range names {
		if base, _, _ := splitRef(name); !b.validName(base) {
			return 1, nil
		}
	}
	if o.array != "" && !b.validName(o.array) {
		return 1, nil
	}

	e, ok := b.st.fds[o.fd]
	if !ok || !e.readable() {
		b.errorf("%d: invalid file descriptor: Bad file descriptor", o.fd)
		return 1, nil
	}
	if o.zeroWait {
		if e.rest() == "" {
			return 1, nil
		}
		return 0, nil
	}

	text, escaped, eof := readInput(e, o)
	status := 0
	if eof {
		status = 1
	}

	if o.exact {
		name := "REPLY"
		if len(names) > 0 {
			name = names[0]
		}
		return b.readAssign(name, text, status)
	}
	if o.array != "" {
		fields := readSplit(text, escaped, b.r.ifs(b.st), -1)
		if err := b.st.setArray(o.array, fields); err != nil {
			b.errorf("%s", err)
			return 1, nil
		}
		return status, nil
	}
	if len(names) == 0 {
		return b.readAssign("REPLY", text, status)
	}
	fields := readSplit(text, escaped, b.r.ifs(b.st), len(names))
	for i, name := range names {
		val := ""
		if i < len(fields) {
			val = fields[i]
		}
		if code, err := b.readAssign(name, val, status); code != status || err != nil {
			return code, err
		}
	}
	return status, nil
}

func (b *builtinCall) readAssign(name, val string, status int) (int, error) {
	if err := b.r.setValue(b.ctx, b.st, name, val, false); err != nil {
		b.errorf("%s", err)
		return 1, nil
	}
	return status, nil
}

// readInput consumes one record from e. escaped marks the bytes of text
// that were protected by a backslash. eof reports that input ended
// before the delimiter.
func readInput(e *fdEntry, o readOpts) (text string, escaped []bool, eof bool) {
	rest := e.rest()
	var out strings.Builder
	i := 0
	count := 0
	for {
		if o.nchars >= 0 && count >= o.nchars {
			break
		}
		if i >= len(rest) {
			eof = true
			break
		}
		c := rest[i]
		if !o.exact && c == o.delim {
			i++
			break
		}
		if c == '\\' && !o.raw && !o.exact {
			if i+1 >= len(rest) {
				i++
				eof = true
				break
			}
			if rest[i+1] == '\n' {
				i += 2
				continue
			}
			out.WriteByte(rest[i+1])
			escaped = append(escaped, true)
			i += 2
			count++
			continue
		}
		_, size := utf8.DecodeRuneInString(rest[i:])
		out.WriteString(rest[i : i+size])
		for k := 0; k < size; k++ {
			escaped = append(escaped, false)
		}
		i += size
		count++
	}
	e.pos += i
	return out.String(), escaped, eof
}

// readSplit divides text into at most n fields using IFS; the last field
// takes the remainder of the line. n < 0 splits every field.
func readSplit(text string, escaped []bool, ifs string, n int) []string {
	isWS := func(i int) bool {
		return !escaped[i] && strings.IndexByte(ifs, text[i]) >= 0 && strings.IndexByte(" \t\n", text[i]) >= 0
	}
	isSep := func(i int) bool {
		return !escaped[i] && strings.IndexByte(ifs, text[i]) >= 0
	}
	var fields []string
	i := 0
	for i < len(text) && isWS(i) {
		i++
	}
	for i < len(text) {
		if n > 0 && len(fields) == n-1 {
			end := len(text)
			for end > i && isWS(end-1) {
				end--
			}
			// a lone trailing delimiter after the last field is dropped
			if end > i && isSep(end-1) && !isWS(end-1) {
				single := true
				for k := i; k < end-1; k++ {
					if isSep(k) {
						single = false
						break
					}
				}
				if single {
					end--
				}
			}
			fields = append(fields, text[i:end])
			return fields
		}
		start := i
		for i < len(text) && !isSep(i) {
			i++
		}
		fields = append(fields, text[start:i])
		for i < len(text) && isWS(i) {
			i++
		}
		if i < len(text) && isSep(i) {
			i++
			for i < len(text) && isWS(i) {
				i++
			}
		}
	}
	return fields
}

func builtinMapfile(b *builtinCall) (int, error) {
	var (
		trim   bool
		delim  = byte('\n')
		count  = -1
		origin = -1
		skip   int
		fd     int
	)
	args := b.args
	for len(args) > 0 && len(args[0]) > 1 && args[0][0] == '-' {
		arg := args[0]
		args = args[1:]
		if arg == "--" {
			break
		}
		for j := 1; j < len(arg); j++ {
			c := arg[j]
			if c == 't' {
				trim = true
				continue
			}
			if strings.IndexByte("dnOsuCc", c) < 0 {
				b.errorf("-%c: invalid option", c)
				return 2, nil
			}
			v := arg[j+1:]
			if v == "" {
				if len(args) == 0 {
					b.errorf("-%c: option requires an argument", c)
					return 2, nil
				}
				v, args = args[0], args[1:]
			}
			if c == 'd' {
				delim = 0
				if v != "" {
					delim = v[0]
				}
				break
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				b.errorf("%s: invalid number", v)
				return 1, nil
			}
			switch c {
			case 'n':
				count = n
			case 'O':
				origin = n
			case 's':
				skip = n
			case 'u':
				fd = n
			}
			break
		}
	}
	name := "MAPFILE"
	if len(args) > 0 {
		name = args[0]
	}
	if !b.validName(name) {
		return 1, nil
	}
	if _, ok := b.st.fds[fd]; !ok {
		b.errorf("%d: invalid file descriptor: Bad file descriptor", fd)
		return 1, nil
	}

	var lines []string
	for count < 0 || len(lines) < count {
		line, ok, err := b.st.readUntil(fd, delim)
		if err != nil || (!ok && line == "") {
			break
		}
		if skip > 0 {
			skip--
			continue
		}
		if ok && !trim {
			line += string(delim)
		}
		lines = append(lines, line)
	}

	if origin < 0 {
		if err := b.st.setArray(name, lines); err != nil {
			b.errorf("%s", err)
			return 1, nil
		}
		return 0, nil
	}
	for i, line := range lines {
		if err := b.st.setElem(name, strconv.Itoa(origin+i), line); err != nil {
			b.errorf("%s", err)
			return 1, nil
		}
	}
	return 0, nil
}

package syntax

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rcarmo/sandsh/pkg/shell/arith"
)

type wordCtx int

const (
	ctxUnquoted wordCtx = iota
	ctxDouble
	ctxHeredoc
	ctxParamArg
	ctxParamArgDQ
	ctxAssignValue
	ctxPattern
)

// ParseWord parses the raw text of a word token into its parts.
func ParseWord(raw string) *Word {
	return parseWordCtx(raw, ctxUnquoted)
}

// ParsePattern parses a case pattern or [[ ]] operand: like ParseWord but
// without brace expansion.
func ParsePattern(raw string) *Word {
	return parseWordCtx(raw, ctxPattern)
}

// ParseHeredoc parses a heredoc body with an unquoted delimiter, where only
// parameter, command and arithmetic expansion apply.
func ParseHeredoc(body string) *Word {
	return parseWordCtx(body, ctxHeredoc)
}

func parseWordCtx(raw string, ctx wordCtx) *Word {
	wp := &wordParser{src: raw, ctx: ctx}
	wp.parse()
	return &Word{Parts: wp.parts, Raw: raw}
}

type wordParser struct {
	src   string
	pos   int
	ctx   wordCtx
	lit   strings.Builder
	parts []WordPart
}

func (wp *wordParser) flush() {
	if wp.lit.Len() > 0 {
		wp.parts = append(wp.parts, &Literal{Value: wp.lit.String()})
		wp.lit.Reset()
	}
}

func (wp *wordParser) add(p WordPart) {
	wp.flush()
	wp.parts = append(wp.parts, p)
}

func (wp *wordParser) quotedCtx() bool {
	return wp.ctx == ctxDouble || wp.ctx == ctxHeredoc || wp.ctx == ctxParamArgDQ
}

func (wp *wordParser) parse() {
	for wp.pos < len(wp.src) {
		c := wp.src[wp.pos]
		if wp.quotedCtx() {
			wp.quotedChar(c)
			continue
		}
		wp.unquotedChar(c)
	}
	wp.flush()
}

func (wp *wordParser) quotedChar(c byte) {
	src := wp.src
	switch c {
	case '\\':
		if wp.pos+1 >= len(src) {
			wp.lit.WriteByte(c)
			wp.pos++
			return
		}
		n := src[wp.pos+1]
		switch {
		case n == '\n':
			wp.pos += 2
		case n == '$' || n == '`' || n == '\\' || (n == '"' && wp.ctx != ctxHeredoc):
			wp.lit.WriteByte(n)
			wp.pos += 2
		case wp.ctx == ctxParamArgDQ && n == '}':
			wp.lit.WriteByte(n)
			wp.pos += 2
		default:
			wp.lit.WriteByte(c)
			wp.pos++
		}
	case '$':
		wp.dollar()
	case '`':
		wp.backquote()
	case '"':
		if wp.ctx == ctxParamArgDQ {
			end, ok := scanQuoted(src, wp.pos)
			if ok {
				inner := parseWordCtx(src[wp.pos+1:end-1], ctxDouble)
				wp.add(&DoubleQuoted{Parts: inner.Parts})
				wp.pos = end
				return
			}
		}
		wp.lit.WriteByte(c)
		wp.pos++
	case '*', '?', '[':
		if wp.ctx == ctxParamArgDQ {
			wp.glob(c)
			return
		}
		wp.lit.WriteByte(c)
		wp.pos++
	default:
		wp.lit.WriteByte(c)
		wp.pos++
	}
}

func (wp *wordParser) unquotedChar(c byte) {
	src := wp.src
	switch c {
	case '\\':
		if wp.pos+1 >= len(src) {
			wp.lit.WriteByte(c)
			wp.pos++
			return
		}
		if src[wp.pos+1] == '\n' {
			wp.pos += 2
			return
		}
		_, size := utf8.DecodeRuneInString(src[wp.pos+1:])
		wp.add(&Escaped{Value: src[wp.pos+1 : wp.pos+1+size]})
		wp.pos += 1 + size
	case '\'':
		end := strings.IndexByte(src[wp.pos+1:], '\'')
		if end < 0 {
			wp.lit.WriteString(src[wp.pos:])
			wp.pos = len(src)
			return
		}
		wp.add(&SingleQuoted{Value: src[wp.pos+1 : wp.pos+1+end]})
		wp.pos += end + 2
	case '"':
		end, ok := scanQuoted(src, wp.pos)
		if !ok {
			wp.lit.WriteString(src[wp.pos:])
			wp.pos = len(src)
			return
		}
		inner := parseWordCtx(src[wp.pos+1:end-1], ctxDouble)
		wp.add(&DoubleQuoted{Parts: inner.Parts})
		wp.pos = end
	case '$':
		wp.dollar()
	case '`':
		wp.backquote()
	case '*', '?', '[', '+', '@', '!':
		wp.glob(c)
	case '{':
		if wp.ctx == ctxUnquoted && wp.brace() {
			return
		}
		wp.lit.WriteByte(c)
		wp.pos++
	case '~':
		if wp.tildeAllowed() && wp.tilde() {
			return
		}
		wp.lit.WriteByte(c)
		wp.pos++
	case '<', '>':
		if wp.pos+1 < len(src) && src[wp.pos+1] == '(' {
			end, ok := scanBalanced(src, wp.pos+1, '(', ')')
			if ok {
				inner := src[wp.pos+2 : end-1]
				wp.add(&ProcSubst{Out: c == '>', Src: inner, Script: parseNested(inner)})
				wp.pos = end
				return
			}
		}
		wp.lit.WriteByte(c)
		wp.pos++
	default:
		wp.lit.WriteByte(c)
		wp.pos++
	}
}

func (wp *wordParser) tildeAllowed() bool {
	if wp.ctx == ctxDouble || wp.ctx == ctxHeredoc {
		return false
	}
	if wp.pos == 0 {
		return true
	}
	if wp.ctx == ctxAssignValue {
		prev := wp.src[wp.pos-1]
		return prev == ':' || prev == '='
	}
	return false
}

func (wp *wordParser) tilde() bool {
	j := wp.pos + 1
	for j < len(wp.src) {
		c := wp.src[j]
		if c == '/' || (wp.ctx == ctxAssignValue && c == ':') {
			break
		}
		if !isNameChar(c) && c != '.' && c != '-' && c != '+' {
			return false
		}
		j++
	}
	wp.add(&Tilde{User: wp.src[wp.pos+1 : j]})
	wp.pos = j
	return true
}

func (wp *wordParser) glob(c byte) {
	src := wp.src
	if wp.pos+1 < len(src) && src[wp.pos+1] == '(' && strings.IndexByte("?*+@!", c) >= 0 {
		end, ok := scanBalanced(src, wp.pos+1, '(', ')')
		if ok {
			wp.add(&Glob{Pattern: src[wp.pos:end]})
			wp.pos = end
			return
		}
	}
	switch c {
	case '*', '?':
		wp.add(&Glob{Pattern: string(c)})
		wp.pos++
	case '[':
		if end := scanBracket(src, wp.pos); end > 0 {
			wp.add(&Glob{Pattern: src[wp.pos:end]})
			wp.pos = end
			return
		}
		wp.lit.WriteByte(c)
		wp.pos++
	default:
		wp.lit.WriteByte(c)
		wp.pos++
	}
}

// scanBracket returns the index past the ] closing a bracket expression at
// i, or -1 if there is none.
func scanBracket(src string, i int) int {
	j := i + 1
	if j < len(src) && (src[j] == '!' || src[j] == '^') {
		j++
	}
	if j < len(src) && src[j] == ']' {
		j++
	}
	for j < len(src) {
		switch src[j] {
		case ']':
			return j + 1
		case '[':
			if j+1 < len(src) && (src[j+1] == ':' || src[j+1] == '.' || src[j+1] == '=') {
				closer := string(src[j+1]) + "]"
				if k := strings.Index(src[j+2:], closer); k >= 0 {
					j += k + 4
					continue
				}
			}
		case '\\':
			j++
		case '/':
			return -1
		}
		j++
	}
	return -1
}

func (wp *wordParser) backquote() {
	end, ok := scanBackquote(wp.src, wp.pos)
	if !ok {
		wp.lit.WriteString(wp.src[wp.pos:])
		wp.pos = len(wp.src)
		return
	}
	inner := unescapeBackquote(wp.src[wp.pos+1 : end-1])
	wp.add(&CmdSubst{Src: inner, Script: parseNested(inner), Backquote: true})
	wp.pos = end
}

func unescapeBackquote(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && (s[i+1] == '$' || s[i+1] == '`' || s[i+1] == '\\') {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func (wp *wordParser) dollar() {
	src := wp.src
	i := wp.pos
	if i+1 >= len(src) {
		wp.lit.WriteByte('$')
		wp.pos++
		return
	}
	n := src[i+1]
	switch {
	case n == '(':
		end, ok := scanBalanced(src, i+1, '(', ')')
		if !ok {
			wp.lit.WriteString(src[i:])
			wp.pos = len(src)
			return
		}
		if i+2 < len(src) && src[i+2] == '(' && end-2 > i+2 && src[end-2] == ')' {
			inner := src[i+3 : end-2]
			if balancedParens(inner) {
				wp.add(&ArithExp{Src: inner, Expr: arith.Parse(inner)})
				wp.pos = end
				return
			}
		}
		inner := src[i+2 : end-1]
		wp.add(&CmdSubst{Src: inner, Script: parseNested(inner)})
		wp.pos = end
	case n == '{':
		end, ok := scanBalanced(src, i+1, '{', '}')
		if !ok {
			wp.lit.WriteString(src[i:])
			wp.pos = len(src)
			return
		}
		wp.add(parseParamBody(src[i+2:end-1], wp.quotedCtx()))
		wp.pos = end
	case n == '\'' && !wp.quotedCtx():
		j := i + 2
		for j < len(src) && src[j] != '\'' {
			if src[j] == '\\' {
				j++
			}
			j++
		}
		if j >= len(src) {
			wp.lit.WriteString(src[i:])
			wp.pos = len(src)
			return
		}
		wp.add(&SingleQuoted{Value: DecodeANSIC(src[i+2 : j]), Dollar: true})
		wp.pos = j + 1
	case n == '"' && !wp.quotedCtx():
		wp.pos++
	case isNameStart(n):
		j := i + 1
		for j < len(src) && isNameChar(src[j]) {
			j++
		}
		wp.add(&ParamExp{Name: src[i+1 : j], Short: true})
		wp.pos = j
	case n >= '0' && n <= '9' || strings.IndexByte("@*#?-$!", n) >= 0:
		wp.add(&ParamExp{Name: string(n), Short: true})
		wp.pos = i + 2
	default:
		wp.lit.WriteByte('$')
		wp.pos++
	}
}

func balancedParens(s string) bool {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// parseNested parses the body of a substitution. Syntax errors stay
// attached to the resulting statements.
func parseNested(src string) *Script {
	s, _ := Parse(src)
	return s
}

// brace tries to parse a brace expansion at the current position.
func (wp *wordParser) brace() bool {
	src := wp.src
	depth := 0
	var commas []int
	end := -1
	j := wp.pos
scan:
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case '\'', '"':
			e, ok := scanQuoted(src, j)
			if !ok {
				return false
			}
			j = e
			continue
		case '$':
			if j+1 < len(src) && (src[j+1] == '{' || src[j+1] == '(') {
				e, ok, _ := scanDollar(src, j)
				if !ok {
					return false
				}
				j = e
				continue
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				end = j
				break scan
			}
		case ',':
			if depth == 1 {
				commas = append(commas, j)
			}
		}
		j++
	}
	if end < 0 {
		return false
	}
	body := src[wp.pos+1 : end]
	if len(commas) == 0 {
		seq := parseBraceSeq(body)
		if seq == nil {
			return false
		}
		wp.add(&BraceExp{Seq: seq, Raw: src[wp.pos : end+1]})
		wp.pos = end + 1
		return true
	}
	var alts []*Word
	prev := wp.pos + 1
	for _, c := range append(commas, end) {
		alts = append(alts, parseWordCtx(src[prev:c], ctxUnquoted))
		prev = c + 1
	}
	wp.add(&BraceExp{Alts: alts, Raw: src[wp.pos : end+1]})
	wp.pos = end + 1
	return true
}

func parseBraceSeq(body string) *BraceSeq {
	parts := strings.Split(body, "..")
	if len(parts) != 2 && len(parts) != 3 {
		return nil
	}
	seq := &BraceSeq{Start: parts[0], End: parts[1], Step: 1}
	if len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil
		}
		seq.Step = n
	}
	_, err1 := strconv.Atoi(parts[0])
	_, err2 := strconv.Atoi(parts[1])
	if err1 == nil && err2 == nil {
		return seq
	}
	if len(parts[0]) == 1 && len(parts[1]) == 1 && isLetter(parts[0][0]) && isLetter(parts[1][0]) {
		seq.Chars = true
		return seq
	}
	return nil
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// parseParamBody parses the text between ${ and }.
func parseParamBody(body string, dq bool) *ParamExp {
	bad := &ParamExp{Bad: "${" + body + "}"}
	if body == "" {
		return bad
	}
	pe := &ParamExp{}
	s := body
	if s[0] == '#' && len(s) > 1 {
		if name, idx, all, rest, ok := paramName(s[1:]); ok && rest == "" {
			pe.Length = true
			pe.Name, pe.Index, pe.IndexAll = name, idx, all
			return pe
		}
	}
	if s[0] == '!' && len(s) > 1 {
		rest := s[1:]
		if n := len(rest); n > 1 && (rest[n-1] == '*' || rest[n-1] == '@') && IsName(rest[:n-1]) {
			pe.Name = rest[:n-1]
			pe.NamePrefix = rest[n-1]
			return pe
		}
		name, idx, all, tail, ok := paramName(rest)
		if !ok {
			return bad
		}
		if all != 0 && tail == "" {
			pe.Name, pe.IndexAll, pe.Keys = name, all, true
			return pe
		}
		pe.Indirect = true
		pe.Name, pe.Index, pe.IndexAll = name, idx, all
		s = tail
	} else {
		name, idx, all, tail, ok := paramName(s)
		if !ok {
			return bad
		}
		pe.Name, pe.Index, pe.IndexAll = name, idx, all
		s = tail
	}
	if s == "" {
		return pe
	}
	op, ok := parseParamOp(s, dq)
	if !ok {
		return bad
	}
	pe.Op = op
	return pe
}

// paramName reads a parameter name and optional subscript from the front
// of s.
func paramName(s string) (name string, idx *Word, all byte, rest string, ok bool) {
	if s == "" {
		return "", nil, 0, "", false
	}
	j := 0
	switch c := s[0]; {
	case isNameStart(c):
		for j < len(s) && isNameChar(s[j]) {
			j++
		}
	case c >= '0' && c <= '9':
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
		}
	case strings.IndexByte("@*#?-$!", c) >= 0:
		j = 1
	default:
		return "", nil, 0, "", false
	}
	name = s[:j]
	rest = s[j:]
	if rest != "" && rest[0] == '[' && IsName(name) {
		end, ok := scanBalanced(rest, 0, '[', ']')
		if !ok {
			return "", nil, 0, "", false
		}
		inner := rest[1 : end-1]
		switch inner {
		case "@", "*":
			all = inner[0]
		default:
			idx = parseWordCtx(inner, ctxAssignValue)
		}
		rest = rest[end:]
	}
	return name, idx, all, rest, true
}

var paramOps = []struct {
	text  string
	kind  ParamOpKind
	colon bool
}{
	{":-", OpDefault, true}, {":=", OpAssign, true}, {":?", OpError, true}, {":+", OpAlt, true},
	{"-", OpDefault, false}, {"=", OpAssign, false}, {"?", OpError, false}, {"+", OpAlt, false},
	{"##", OpRemLongPrefix, false}, {"#", OpRemPrefix, false},
	{"%%", OpRemLongSuffix, false}, {"%", OpRemSuffix, false},
	{"//", OpReplaceAll, false}, {"/#", OpReplacePrefix, false}, {"/%", OpReplaceSuffix, false}, {"/", OpReplace, false},
	{"^^", OpUpperAll, false}, {"^", OpUpperFirst, false},
	{",,", OpLowerAll, false}, {",", OpLowerFirst, false},
}

func parseParamOp(s string, dq bool) (*ParamOp, bool) {
	argCtx := ctxParamArg
	if dq {
		argCtx = ctxParamArgDQ
	}
	for _, def := range paramOps {
		if !strings.HasPrefix(s, def.text) {
			continue
		}
		arg := s[len(def.text):]
		op := &ParamOp{Kind: def.kind, Colon: def.colon}
		switch def.kind {
		case OpReplace, OpReplaceAll, OpReplacePrefix, OpReplaceSuffix:
			pat, repl, hasRepl := splitReplace(arg)
			op.Arg = parseWordCtx(pat, argCtx)
			if hasRepl {
				op.HasRepl = true
				op.Repl = parseWordCtx(repl, argCtx)
			}
		default:
			op.Arg = parseWordCtx(arg, argCtx)
		}
		return op, true
	}
	switch {
	case s[0] == ':':
		body := s[1:]
		off, length, hasLen := splitSubstr(body)
		op := &ParamOp{Kind: OpSubstr, Offset: arith.Parse(off)}
		if hasLen {
			op.HasLength = true
			op.Length = arith.Parse(length)
		}
		return op, true
	case s[0] == '@' && len(s) == 2 && strings.IndexByte("QEPAKaUuLk", s[1]) >= 0:
		return &ParamOp{Kind: OpTransform, Transform: s[1]}, true
	}
	return nil, false
}

func splitReplace(s string) (pat, repl string, ok bool) {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '\'', '"':
			if end, ok := scanQuoted(s, i); ok {
				i = end - 1
			}
		case '$':
			if end, ok, _ := scanDollar(s, i); ok && end > i+1 {
				i = end - 1
			}
		case '/':
			return s[:i], s[i+1:], true
		}
	}
	return s, "", false
}

func splitSubstr(s string) (off, length string, ok bool) {
	depth := 0
	ternary := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '?':
			ternary++
		case ':':
			if depth == 0 {
				if ternary > 0 {
					ternary--
					continue
				}
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}

// DecodeANSIC decodes the escape sequences of a $'...' string.
func DecodeANSIC(s string) string {
	if !strings.Contains(s, "\\") {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'e', 'E':
			b.WriteByte(0x1b)
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '\\', '\'', '"', '?':
			b.WriteByte(s[i])
		case 'c':
			if i+1 < len(s) {
				i++
				b.WriteByte(s[i] & 0x1f)
			}
		case 'x', 'u', 'U':
			max := map[byte]int{'x': 2, 'u': 4, 'U': 8}[s[i]]
			j := i + 1
			for j < len(s) && j-i-1 < max && isHex(s[j]) {
				j++
			}
			if j == i+1 {
				b.WriteByte('\\')
				b.WriteByte(s[i])
				continue
			}
			n, _ := strconv.ParseUint(s[i+1:j], 16, 32)
			if s[i] == 'x' {
				b.WriteByte(byte(n))
			} else {
				b.WriteRune(rune(n))
			}
			i = j - 1
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i
			for j < len(s) && j-i < 3 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(s[i:j], 8, 16)
			b.WriteByte(byte(n))
			i = j - 1
		default:
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// splitAssign reports whether text is an assignment word and returns its
// pieces.
func splitAssign(text string) (name, index string, hasIndex, appendOp bool, value string, ok bool) {
	j := 0
	for j < len(text) && isNameChar(text[j]) {
		j++
	}
	if j == 0 || !isNameStart(text[0]) || j >= len(text) {
		return
	}
	name = text[:j]
	rest := text[j:]
	if rest[0] == '[' {
		end, bok := scanBalanced(rest, 0, '[', ']')
		if !bok {
			return
		}
		index = rest[1 : end-1]
		hasIndex = true
		rest = rest[end:]
	}
	switch {
	case strings.HasPrefix(rest, "+="):
		appendOp = true
		value = rest[2:]
	case strings.HasPrefix(rest, "="):
		value = rest[1:]
	default:
		return
	}
	ok = true
	return
}

// IsAssignment reports whether a word has assignment form.
func IsAssignment(text string) bool {
	_, _, _, _, _, ok := splitAssign(text)
	return ok
}

// ParseAssignment parses an assignment word such as a=1, a[2]+=x or
// a=(x y). It returns nil if text is not an assignment.
func ParseAssignment(text string) *Assignment {
	name, index, hasIndex, appendOp, value, ok := splitAssign(text)
	if !ok {
		return nil
	}
	as := &Assignment{Name: name, Append: appendOp}
	if hasIndex {
		as.Index = parseWordCtx(index, ctxAssignValue)
	}
	if !hasIndex && len(value) >= 2 && value[0] == '(' && value[len(value)-1] == ')' {
		as.IsArray = true
		as.Elems = parseArrayElems(value[1 : len(value)-1])
		return as
	}
	as.Value = parseWordCtx(value, ctxAssignValue)
	return as
}

func parseArrayElems(src string) []*ArrayElem {
	toks, _ := Tokenize(src)
	var elems []*ArrayElem
	for _, t := range toks {
		switch t.Kind {
		case WordTok, Keyword, IONumber, IOVarName:
		default:
			continue
		}
		text := t.Text
		if text[0] == '[' {
			if end, ok := scanBalanced(text, 0, '[', ']'); ok && end < len(text) && text[end] == '=' {
				elems = append(elems, &ArrayElem{
					Key:   parseWordCtx(text[1:end-1], ctxAssignValue),
					Value: parseWordCtx(text[end+1:], ctxAssignValue),
				})
				continue
			}
		}
		elems = append(elems, &ArrayElem{Value: ParseWord(text)})
	}
	return elems
}

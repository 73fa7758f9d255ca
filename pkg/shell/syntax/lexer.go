package syntax

import (
	"strings"
)

type pendingHeredoc struct {
	tok   int
	delim string
	strip bool
}

type lexer struct {
	src  string
	pos  int
	line int
	col  int

	tokens   []Token
	tokStart int
	err      *SyntaxError

	cmdStart     bool
	afterFor     bool
	inCond       bool
	heredocNext  TokenKind
	heredocs     []pendingHeredoc
	regexPending bool
}

// Tokenize converts source text into a token slice terminated by EOF.
// On an unterminated construct the slice ends with an Error token and the
// returned error describes the problem.
func Tokenize(src string) ([]Token, error) {
	lx := &lexer{src: src, line: 1, col: 1, cmdStart: true}
	lx.run()
	if lx.err != nil {
		lx.tokStart = lx.pos
		lx.emit(Token{Kind: EOF, Line: lx.line, Col: lx.col})
		return lx.tokens, lx.err
	}
	return lx.tokens, nil
}

func (lx *lexer) peekAt(off int) byte {
	if lx.pos+off < len(lx.src) {
		return lx.src[lx.pos+off]
	}
	return 0
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.pos < len(lx.src); i++ {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.col = 1
		} else {
			lx.col++
		}
		lx.pos++
	}
}

func (lx *lexer) emit(tok Token) {
	tok.Pos, tok.End = lx.tokStart, lx.pos
	lx.tokens = append(lx.tokens, tok)
}

func (lx *lexer) fail(line, col int, msg string) {
	if lx.err == nil {
		lx.err = &SyntaxError{Line: line, Col: col, Msg: msg}
	}
	lx.emit(Token{Kind: Error, Text: msg, Line: line, Col: col})
}

func (lx *lexer) run() {
	for lx.err == nil {
		spaced := lx.skipBlanks()
		lx.tokStart = lx.pos
		if lx.pos >= len(lx.src) {
			lx.readHeredocs()
			lx.emit(Token{Kind: EOF, Line: lx.line, Col: lx.col})
			return
		}
		line, col := lx.line, lx.col
		c := lx.src[lx.pos]
		switch {
		case c == '#':
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.advance(1)
			}
			continue
		case c == '\n':
			lx.advance(1)
			lx.emit(Token{Kind: Newline, Text: "\n", Line: line, Col: col})
			lx.cmdStart = true
			lx.readHeredocs()
			continue
		}
		if (lx.cmdStart || lx.afterFor) && c == '(' && lx.peekAt(1) == '(' {
			if body, ok := lx.scanArith(); ok {
				lx.emit(Token{Kind: ArithCmd, Text: body, Line: line, Col: col, Spaced: spaced})
				lx.cmdStart = false
				lx.afterFor = false
				continue
			}
		}
		if kind, n := lx.operator(); n > 0 {
			lx.advance(n)
			lx.emit(Token{Kind: kind, Text: kind.String(), Line: line, Col: col, Spaced: spaced})
			lx.afterOperator(kind)
			continue
		}
		lx.readWordToken(line, col, spaced)
	}
}

// skipBlanks skips spaces, tabs and line continuations.
func (lx *lexer) skipBlanks() bool {
	skipped := false
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		if c == ' ' || c == '\t' || c == '\r' {
			lx.advance(1)
			skipped = true
			continue
		}
		if c == '\\' && lx.peekAt(1) == '\n' {
			lx.advance(2)
			skipped = true
			continue
		}
		break
	}
	return skipped
}

func (lx *lexer) afterOperator(kind TokenKind) {
	lx.afterFor = false
	switch kind {
	case DLess, DLessDash:
		lx.heredocNext = kind
		lx.cmdStart = false
	case Semi, Amp, AndAnd, OrOr, Pipe, PipeAmp, DSemi, SemiAmp, DSemiAmp, LParen, RParen:
		lx.cmdStart = true
	default:
		lx.cmdStart = false
	}
}

type opDef struct {
	text string
	kind TokenKind
}

// longest match first
var operators = []opDef{
	{";;&", DSemiAmp}, {"<<<", TLess}, {"<<-", DLessDash}, {"&>>", AndDGreat},
	{"&&", AndAnd}, {"||", OrOr}, {";;", DSemi}, {";&", SemiAmp}, {"|&", PipeAmp},
	{"<<", DLess}, {">>", DGreat}, {">|", Clobber}, {"<>", LessGreat},
	{"<&", LessAnd}, {">&", GreatAnd}, {"&>", AndGreat},
	{";", Semi}, {"&", Amp}, {"|", Pipe}, {"(", LParen}, {")", RParen},
	{"<", Less}, {">", Great},
}

func (lx *lexer) operator() (TokenKind, int) {
	rest := lx.src[lx.pos:]
	// process substitution starts a word, not a redirection
	if (rest[0] == '<' || rest[0] == '>') && len(rest) > 1 && rest[1] == '(' {
		return 0, 0
	}
	if lx.inCond && lx.regexPending {
		return 0, 0
	}
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			return op.kind, len(op.text)
		}
	}
	return 0, 0
}

// scanArith consumes "(( ... ))" and returns the inner text.
func (lx *lexer) scanArith() (string, bool) {
	depth := 0
	i := lx.pos + 2
	for i < len(lx.src) {
		c := lx.src[i]
		switch c {
		case '\\':
			i += 2
			continue
		case '\'', '"':
			end, ok := scanQuoted(lx.src, i)
			if !ok {
				return "", false
			}
			i = end
			continue
		case '(':
			depth++
		case ')':
			if depth == 0 {
				if i+1 < len(lx.src) && lx.src[i+1] == ')' {
					body := lx.src[lx.pos+2 : i]
					lx.advance(i + 2 - lx.pos)
					return body, true
				}
				return "", false
			}
			depth--
		}
		i++
	}
	return "", false
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNameChar(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// IsName reports whether s is a valid shell variable name.
func IsName(s string) bool {
	if s == "" || !isNameStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameChar(s[i]) {
			return false
		}
	}
	return true
}

func isMeta(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', ';', '&', '|', '<', '>', '(', ')':
		return true
	}
	return false
}

// assignPrefix reports whether a word so far has the form name=, name+=,
// name[...]= or name[...]+=, so that a following "(" opens an array literal.
func assignPrefix(w string) bool {
	if !strings.HasSuffix(w, "=") {
		return false
	}
	w = strings.TrimSuffix(w, "=")
	w = strings.TrimSuffix(w, "+")
	if i := strings.IndexByte(w, '['); i > 0 && strings.HasSuffix(w, "]") {
		w = w[:i]
	}
	return IsName(w)
}

func (lx *lexer) readWordToken(line, col int, spaced bool) {
	start := lx.pos
	i := lx.pos
	regex := lx.inCond && lx.regexPending
	depth := 0
	for i < len(lx.src) {
		c := lx.src[i]
		if regex {
			if c == '(' {
				depth++
				i++
				continue
			}
			if c == ')' && depth > 0 {
				depth--
				i++
				continue
			}
			if depth > 0 && c != '\\' && c != '\'' && c != '"' && c != '$' {
				if c == '\n' {
					break
				}
				i++
				continue
			}
			if c == '|' {
				i++
				continue
			}
		}
		if isMeta(c) {
			if (c == '<' || c == '>') && i+1 < len(lx.src) && lx.src[i+1] == '(' && i == start {
				end, ok := scanBalanced(lx.src, i+1, '(', ')')
				if !ok {
					lx.fail(line, col, "unexpected EOF while looking for matching `)'")
					return
				}
				i = end
				continue
			}
			if c == '(' {
				word := lx.src[start:i]
				if assignPrefix(word) || (i > start && strings.IndexByte("@!?*+", lx.src[i-1]) >= 0) {
					end, ok := scanBalanced(lx.src, i, '(', ')')
					if !ok {
						lx.fail(line, col, "unexpected EOF while looking for matching `)'")
						return
					}
					i = end
					continue
				}
			}
			break
		}
		switch c {
		case '\\':
			if i+1 < len(lx.src) {
				i += 2
			} else {
				i++
			}
			continue
		case '\'':
			end, ok := scanQuoted(lx.src, i)
			if !ok {
				lx.fail(line, col, "unexpected EOF while looking for matching `''")
				return
			}
			i = end
			continue
		case '"':
			end, ok := scanQuoted(lx.src, i)
			if !ok {
				lx.fail(line, col, "unexpected EOF while looking for matching `\"'")
				return
			}
			i = end
			continue
		case '`':
			end, ok := scanBackquote(lx.src, i)
			if !ok {
				lx.fail(line, col, "unexpected EOF while looking for matching ``'")
				return
			}
			i = end
			continue
		case '$':
			end, ok, closer := scanDollar(lx.src, i)
			if !ok {
				lx.fail(line, col, "unexpected EOF while looking for matching `"+closer+"'")
				return
			}
			i = end
			continue
		}
		i++
	}
	text := lx.src[start:i]
	next := byte(0)
	if i < len(lx.src) {
		next = lx.src[i]
	}
	lx.advance(i - start)

	kind := WordTok
	quotedDelim := false
	switch {
	case lx.heredocNext != 0:
		quotedDelim = lx.addHeredoc(text)
	case (next == '<' || next == '>') && isAllDigits(text):
		kind = IONumber
	case (next == '<' || next == '>') && len(text) > 2 && text[0] == '{' && text[len(text)-1] == '}' && IsName(text[1:len(text)-1]):
		kind = IOVarName
	case lx.cmdStart && reservedWords[text]:
		kind = Keyword
	case lx.inCond && text == "]]":
		kind = Keyword
	case (text == "do" || text == "{") && lx.loopHeaderEnds():
		kind = Keyword
	}
	lx.emit(Token{Kind: kind, Text: text, Line: line, Col: col, Spaced: spaced, HeredocQuoted: quotedDelim})

	lx.regexPending = false
	if lx.inCond && text == "=~" {
		lx.regexPending = true
	}
	lx.afterFor = false
	if kind == Keyword {
		switch text {
		case "[[":
			lx.inCond = true
			lx.cmdStart = false
		case "]]":
			lx.inCond = false
			lx.cmdStart = false
		case "for", "select":
			lx.afterFor = true
			lx.cmdStart = false
		case "case", "function":
			lx.cmdStart = false
		case "}", "fi", "done", "esac":
			lx.cmdStart = false
		default:
			lx.cmdStart = true
		}
		return
	}
	lx.cmdStart = false
}

// loopHeaderEnds reports whether the previous tokens form a header that may
// be followed directly by a body, as in "for x do", "for ((...)) do" or
// "function f {".
func (lx *lexer) loopHeaderEnds() bool {
	n := len(lx.tokens)
	if n >= 1 && lx.tokens[n-1].Kind == ArithCmd {
		return true
	}
	if n >= 2 && lx.tokens[n-1].Kind == WordTok {
		prev := lx.tokens[n-2]
		return prev.Kind == Keyword && (prev.Text == "for" || prev.Text == "select" || prev.Text == "function")
	}
	return false
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// addHeredoc registers the delimiter word about to be emitted as the
// target of a pending heredoc body.
func (lx *lexer) addHeredoc(raw string) bool {
	strip := lx.heredocNext == DLessDash
	lx.heredocNext = 0
	delim, quoted := heredocDelimiter(raw)
	lx.heredocs = append(lx.heredocs, pendingHeredoc{tok: len(lx.tokens), delim: delim, strip: strip})
	return quoted
}

func heredocDelimiter(raw string) (string, bool) {
	var b strings.Builder
	quoted := false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '\'', '"':
			quoted = true
			end := strings.IndexByte(raw[i+1:], c)
			if end < 0 {
				b.WriteString(raw[i+1:])
				i = len(raw)
				continue
			}
			b.WriteString(raw[i+1 : i+1+end])
			i += end + 1
		case '\\':
			quoted = true
			if i+1 < len(raw) {
				b.WriteByte(raw[i+1])
				i++
			}
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), quoted
}

// readHeredocs consumes the bodies of all heredocs opened on the line that
// just ended.
func (lx *lexer) readHeredocs() {
	if len(lx.heredocs) == 0 {
		return
	}
	for _, hd := range lx.heredocs {
		var body strings.Builder
		for lx.pos < len(lx.src) {
			end := strings.IndexByte(lx.src[lx.pos:], '\n')
			var line string
			if end < 0 {
				line = lx.src[lx.pos:]
				lx.advance(len(line))
			} else {
				line = lx.src[lx.pos : lx.pos+end]
				lx.advance(end + 1)
			}
			check := line
			if hd.strip {
				check = strings.TrimLeft(line, "\t")
			}
			if check == hd.delim {
				break
			}
			if hd.strip {
				line = strings.TrimLeft(line, "\t")
			}
			body.WriteString(line)
			body.WriteByte('\n')
		}
		if hd.tok < len(lx.tokens) {
			lx.tokens[hd.tok].Heredoc = body.String()
			lx.tokens[hd.tok].HasHeredoc = true
		}
	}
	lx.heredocs = nil
}

// scanQuoted returns the index just past the quote that closes the one at i.
func scanQuoted(src string, i int) (int, bool) {
	q := src[i]
	j := i + 1
	for j < len(src) {
		c := src[j]
		if q == '\'' {
			if c == '\'' {
				return j + 1, true
			}
			j++
			continue
		}
		switch c {
		case '\\':
			j += 2
			continue
		case '"':
			return j + 1, true
		case '`':
			end, ok := scanBackquote(src, j)
			if !ok {
				return 0, false
			}
			j = end
			continue
		case '$':
			end, ok, _ := scanDollar(src, j)
			if !ok {
				return 0, false
			}
			j = end
			continue
		}
		j++
	}
	return 0, false
}

func scanBackquote(src string, i int) (int, bool) {
	j := i + 1
	for j < len(src) {
		switch src[j] {
		case '\\':
			j += 2
			continue
		case '`':
			return j + 1, true
		}
		j++
	}
	return 0, false
}

// scanDollar returns the index just past a $-introduced construct at i.
func scanDollar(src string, i int) (int, bool, string) {
	if i+1 >= len(src) {
		return i + 1, true, ""
	}
	switch src[i+1] {
	case '(':
		end, ok := scanBalanced(src, i+1, '(', ')')
		return end, ok, ")"
	case '{':
		end, ok := scanBalanced(src, i+1, '{', '}')
		return end, ok, "}"
	case '\'':
		j := i + 2
		for j < len(src) {
			if src[j] == '\\' {
				j += 2
				continue
			}
			if src[j] == '\'' {
				return j + 1, true, ""
			}
			j++
		}
		return 0, false, "'"
	case '"':
		end, ok := scanQuoted(src, i+1)
		return end, ok, "\""
	}
	return i + 1, true, ""
}

// scanBalanced scans from the opening delimiter at i to just past its match,
// honouring quotes and nested substitutions.
func scanBalanced(src string, i int, open, close byte) (int, bool) {
	depth := 0
	j := i
	for j < len(src) {
		c := src[j]
		switch c {
		case '\\':
			j += 2
			continue
		case '\'':
			end, ok := scanQuoted(src, j)
			if !ok {
				return 0, false
			}
			j = end
			continue
		case '"':
			end, ok := scanQuoted(src, j)
			if !ok {
				return 0, false
			}
			j = end
			continue
		case '`':
			end, ok := scanBackquote(src, j)
			if !ok {
				return 0, false
			}
			j = end
			continue
		case '#':
			// comments inside $( ... ) run to end of line
			if open == '(' && j > 0 && (src[j-1] == ' ' || src[j-1] == '\t' || src[j-1] == '\n') {
				for j < len(src) && src[j] != '\n' {
					j++
				}
				continue
			}
		case '$':
			if j+1 < len(src) && (src[j+1] == '(' || src[j+1] == '{') {
				end, ok, _ := scanDollar(src, j)
				if !ok {
					return 0, false
				}
				j = end
				continue
			}
		}
		if c == open {
			depth++
		} else if c == close {
			depth--
			if depth == 0 {
				return j + 1, true
			}
		}
		j++
	}
	return 0, false
}

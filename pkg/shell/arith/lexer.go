package arith

import "strings"

type tokKind int

const (
	tEOF tokKind = iota
	tNumber
	tIdent
	tParam // $name, ${...}
	tCmd   // $(...), `...`
	tOp
	tInvalid
)

type token struct {
	kind   tokKind
	text   string
	pos    int
	spaced bool
}

// longest first
var arithOps = []string{
	"<<=", ">>=",
	"**", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "^=", "|=",
	"+", "-", "*", "/", "%", "<", ">", "!", "~", "&", "^", "|",
	"?", ":", "=", ",", "(", ")", "[", "]",
}

func lex(src string) []token {
	var toks []token
	i := 0
	for {
		start := i
		for i < len(src) && (src[i] == ' ' || src[i] == '\t' || src[i] == '\n' || src[i] == '\r') {
			i++
		}
		spaced := i > start
		if i >= len(src) {
			toks = append(toks, token{kind: tEOF, pos: i, spaced: spaced})
			return toks
		}
		c := src[i]
		switch {
		case c >= '0' && c <= '9':
			j := i
			for j < len(src) && (isAlnum(src[j]) || src[j] == '#' || src[j] == '@' || src[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tNumber, text: src[i:j], pos: i, spaced: spaced})
			i = j
		case isIdentStart(c):
			j := i
			for j < len(src) && (isAlnum(src[j]) || src[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tIdent, text: src[i:j], pos: i, spaced: spaced})
			i = j
		case c == '$':
			j := scanDollar(src, i)
			kind := tParam
			if j > i+1 && src[i+1] == '(' {
				kind = tCmd
			}
			toks = append(toks, token{kind: kind, text: src[i:j], pos: i, spaced: spaced})
			i = j
		case c == '`':
			j := strings.IndexByte(src[i+1:], '`')
			if j < 0 {
				j = len(src)
			} else {
				j = i + 1 + j + 1
			}
			toks = append(toks, token{kind: tCmd, text: src[i:j], pos: i, spaced: spaced})
			i = j
		case c == '\\' && i+1 < len(src):
			// a backslash-quoted character is taken literally
			toks = append(toks, token{kind: tInvalid, text: src[i : i+2], pos: i, spaced: spaced})
			i += 2
		case c == '"':
			// double quotes are transparent in arithmetic
			i++
		default:
			op := ""
			for _, o := range arithOps {
				if strings.HasPrefix(src[i:], o) {
					op = o
					break
				}
			}
			if op == "" {
				toks = append(toks, token{kind: tInvalid, text: src[i : i+1], pos: i, spaced: spaced})
				i++
				continue
			}
			toks = append(toks, token{kind: tOp, text: op, pos: i, spaced: spaced})
			i += len(op)
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// scanDollar returns the end of a $ construct starting at i.
func scanDollar(src string, i int) int {
	if i+1 >= len(src) {
		return i + 1
	}
	switch c := src[i+1]; {
	case c == '{' || c == '(':
		closer := byte('}')
		if c == '(' {
			closer = ')'
		}
		depth := 0
		for j := i + 1; j < len(src); j++ {
			switch src[j] {
			case c:
				depth++
			case closer:
				depth--
				if depth == 0 {
					return j + 1
				}
			case '\'':
				if k := strings.IndexByte(src[j+1:], '\''); k >= 0 {
					j += k + 1
				}
			}
		}
		return len(src)
	case isIdentStart(c):
		j := i + 1
		for j < len(src) && (isAlnum(src[j]) || src[j] == '_') {
			j++
		}
		return j
	case (c >= '0' && c <= '9') || strings.IndexByte("@*#?-$!", c) >= 0:
		return i + 2
	}
	return i + 1
}

package vfs

import (
	"regexp"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/pattern"
)

// Pattern is a compiled shell pattern. Besides *, ? and bracket
// expressions it understands the extended groups ?(..), *(..), +(..),
// @(..) and !(..). The whole string must match, and * and ? match any
// character including a slash.
type Pattern struct {
	seq *patSeq
}

// patSeq is a run of nodes. tail[i] matches nodes[i:] when no negation
// occurs in that suffix.
type patSeq struct {
	nodes []patNode
	tail  []*regexp.Regexp
}

type patNode struct {
	lit  string // plain pattern text when op is 0
	re   *regexp.Regexp
	op   byte
	alts []*patSeq
}

var (
	patMu    sync.Mutex
	patCache = map[string]*Pattern{}
)

// CompilePattern compiles pat, reusing earlier compilations.
func CompilePattern(pat string, nocase bool) (*Pattern, error) {
	key := pat
	if nocase {
		key = "\x00i" + pat
	}
	patMu.Lock()
	defer patMu.Unlock()
	if p, ok := patCache[key]; ok {
		return p, nil
	}
	seq, err := parseSeq(pat, nocase)
	if err != nil {
		return nil, err
	}
	p := &Pattern{seq: seq}
	if len(patCache) > 1024 {
		patCache = map[string]*Pattern{}
	}
	patCache[key] = p
	return p, nil
}

// Match reports whether the whole of s matches.
func (p *Pattern) Match(s string) bool {
	return p.seq.match(s)
}

func parseSeq(pat string, nocase bool) (*patSeq, error) {
	seq := &patSeq{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			seq.nodes = append(seq.nodes, patNode{lit: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(pat); i++ {
		c := pat[i]
		switch {
		case c == '\\' && i+1 < len(pat):
			lit.WriteString(pat[i : i+2])
			i++
		case c == '\\':
			lit.WriteString(`\\`)
		case c == '[':
			end := bracketEnd(pat, i)
			if end < 0 {
				lit.WriteString(`\[`)
				continue
			}
			lit.WriteString(pat[i : end+1])
			i = end
		case strings.IndexByte("?*+@!", c) >= 0 && i+1 < len(pat) && pat[i+1] == '(':
			end, alts := groupEnd(pat, i+1)
			if end < 0 {
				lit.WriteByte(c)
				continue
			}
			flush()
			n := patNode{op: c}
			for _, a := range alts {
				sub, err := parseSeq(a, nocase)
				if err != nil {
					return nil, err
				}
				n.alts = append(n.alts, sub)
			}
			seq.nodes = append(seq.nodes, n)
			i = end
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	for i := range seq.nodes {
		n := &seq.nodes[i]
		if n.op != 0 {
			continue
		}
		re, err := compileExpr(n.lit, nocase)
		if err != nil {
			return nil, err
		}
		n.re = re
	}
	seq.tail = make([]*regexp.Regexp, len(seq.nodes)+1)
	for i := len(seq.nodes); i >= 0; i-- {
		if i < len(seq.nodes) && hasNegation(seq.nodes[i]) {
			break
		}
		expr, err := seqExpr(seq.nodes[i:])
		if err != nil {
			return nil, err
		}
		re, err := anchored(expr, nocase)
		if err != nil {
			return nil, err
		}
		seq.tail[i] = re
	}
	return seq, nil
}

// bracketEnd returns the index of the ] closing the bracket expression
// opened at i, or -1.
func bracketEnd(pat string, i int) int {
	j := i + 1
	if j < len(pat) && (pat[j] == '!' || pat[j] == '^') {
		j++
	}
	if j < len(pat) && pat[j] == ']' {
		j++
	}
	for ; j < len(pat); j++ {
		switch {
		case pat[j] == '\\':
			j++
		case strings.HasPrefix(pat[j:], "[:"):
			if k := strings.Index(pat[j+2:], ":]"); k >= 0 {
				j += k + 3
			}
		case pat[j] == ']':
			return j
		}
	}
	return -1
}

// groupEnd splits the group whose ( is at open into its alternatives and
// returns the index of the closing ), or -1.
func groupEnd(pat string, open int) (int, []string) {
	depth := 0
	start := open + 1
	var alts []string
	for j := open; j < len(pat); j++ {
		switch pat[j] {
		case '\\':
			j++
		case '[':
			if k := bracketEnd(pat, j); k >= 0 {
				j = k
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return j, append(alts, pat[start:j])
			}
		case '|':
			if depth == 1 {
				alts = append(alts, pat[start:j])
				start = j + 1
			}
		}
	}
	return -1, nil
}

func hasNegation(n patNode) bool {
	if n.op == '!' {
		return true
	}
	for _, a := range n.alts {
		for _, m := range a.nodes {
			if hasNegation(m) {
				return true
			}
		}
	}
	return false
}

// seqExpr renders nodes, which hold no negation, as an unanchored regexp.
func seqExpr(nodes []patNode) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		if n.op == 0 {
			expr, err := pattern.Regexp(n.lit, 0)
			if err != nil {
				return "", err
			}
			b.WriteString("(?:" + expr + ")")
			continue
		}
		b.WriteString("(?:")
		for i, a := range n.alts {
			if i > 0 {
				b.WriteByte('|')
			}
			expr, err := seqExpr(a.nodes)
			if err != nil {
				return "", err
			}
			b.WriteString(expr)
		}
		b.WriteByte(')')
		switch n.op {
		case '?', '*', '+':
			b.WriteByte(n.op)
		}
	}
	return b.String(), nil
}

func compileExpr(lit string, nocase bool) (*regexp.Regexp, error) {
	expr, err := pattern.Regexp(lit, 0)
	if err != nil {
		return nil, err
	}
	return anchored(expr, nocase)
}

func anchored(expr string, nocase bool) (*regexp.Regexp, error) {
	flags := "(?s)"
	if nocase {
		flags = "(?si)"
	}
	return regexp.Compile(flags + "^(?:" + expr + ")$")
}

func (s *patSeq) match(str string) bool {
	return s.matchFrom(0, str)
}

func (s *patSeq) matchFrom(i int, str string) bool {
	if re := s.tail[i]; re != nil {
		return re.MatchString(str)
	}
	n := s.nodes[i]
	for _, k := range boundaries(str) {
		if n.match(str[:k]) && s.matchFrom(i+1, str[k:]) {
			return true
		}
	}
	return false
}

func (n patNode) match(str string) bool {
	switch n.op {
	case 0:
		return n.re.MatchString(str)
	case '@':
		return n.matchAlt(str)
	case '?':
		return str == "" || n.matchAlt(str)
	case '!':
		return !n.matchAlt(str)
	case '*':
		return str == "" || n.matchRepeat(str)
	case '+':
		return n.matchRepeat(str)
	}
	return false
}

func (n patNode) matchAlt(str string) bool {
	for _, a := range n.alts {
		if a.match(str) {
			return true
		}
	}
	return false
}

// matchRepeat reports whether str splits into one or more non-empty
// pieces that each match an alternative.
func (n patNode) matchRepeat(str string) bool {
	if n.matchAlt(str) {
		return true
	}
	for _, k := range boundaries(str) {
		if k == 0 || k == len(str) {
			continue
		}
		if n.matchAlt(str[:k]) && n.matchRepeat(str[k:]) {
			return true
		}
	}
	return false
}

// boundaries returns the byte offsets of rune starts in s, plus len(s).
func boundaries(s string) []int {
	b := make([]int, 0, len(s)+1)
	for i := range s {
		b = append(b, i)
	}
	return append(b, len(s))
}

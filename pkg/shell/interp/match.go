package interp

import (
	"strings"
	"unicode/utf8"

	"github.com/rcarmo/sandsh/pkg/vfs"
)

// matchPattern reports whether s matches the shell pattern pat. A pattern
// that fails to compile matches only itself.
func matchPattern(pat, s string, nocase bool) bool {
	if !vfs.HasMeta(pat) {
		lit := vfs.Unescape(pat)
		if nocase {
			return strings.EqualFold(lit, s)
		}
		return lit == s
	}
	p, err := vfs.CompilePattern(pat, nocase)
	if err != nil {
		return vfs.Unescape(pat) == s
	}
	return p.Match(s)
}

// boundaries returns the byte offsets of rune starts in s, plus len(s).
func boundaries(s string) []int {
	b := make([]int, 0, len(s)+1)
	for i := range s {
		b = append(b, i)
	}
	return append(b, len(s))
}

func removePrefix(s, pat string, longest bool) string {
	bs := boundaries(s)
	if longest {
		for i := len(bs) - 1; i >= 0; i-- {
			if matchPattern(pat, s[:bs[i]], false) {
				return s[bs[i]:]
			}
		}
		return s
	}
	for _, i := range bs {
		if matchPattern(pat, s[:i], false) {
			return s[i:]
		}
	}
	return s
}

func removeSuffix(s, pat string, longest bool) string {
	bs := boundaries(s)
	if longest {
		for _, i := range bs {
			if matchPattern(pat, s[i:], false) {
				return s[:i]
			}
		}
		return s
	}
	for i := len(bs) - 1; i >= 0; i-- {
		if matchPattern(pat, s[bs[i]:], false) {
			return s[:bs[i]]
		}
	}
	return s
}

// anchor selects where a replacement pattern may match.
type anchor uint8

const (
	anchorNone anchor = iota
	anchorStart
	anchorEnd
)

// replacePattern replaces the longest match of pat at the earliest
// position, or every non-overlapping match when all is set. An & in repl
// stands for the matched text.
func replacePattern(s, pat, repl string, all bool, at anchor) string {
	if pat == "" {
		switch at {
		case anchorStart:
			return expandAmp(repl, "") + s
		case anchorEnd:
			return s + expandAmp(repl, "")
		}
		return s
	}
	bs := boundaries(s)
	var b strings.Builder
	last := 0
	for si := 0; si < len(bs); si++ {
		start := bs[si]
		if start < last {
			continue
		}
		if at == anchorStart && start != 0 {
			break
		}
		end := -1
		for ei := len(bs) - 1; ei >= si; ei-- {
			if at == anchorEnd && bs[ei] != len(s) {
				continue
			}
			if matchPattern(pat, s[start:bs[ei]], false) {
				end = bs[ei]
				break
			}
		}
		if end < 0 {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(expandAmp(repl, s[start:end]))
		last = end
		if !all {
			break
		}
		if end == start {
			// an empty match must still make progress
			if start < len(s) {
				_, size := utf8.DecodeRuneInString(s[start:])
				b.WriteString(s[start : start+size])
				last = start + size
			}
		}
	}
	b.WriteString(s[last:])
	return b.String()
}

// expandAmp substitutes the matched text for unescaped & in repl, which
// is in pattern form, and removes the escaping.
func expandAmp(repl, match string) string {
	if !strings.ContainsAny(repl, "&\\") {
		return repl
	}
	var b strings.Builder
	for i := 0; i < len(repl); i++ {
		switch {
		case repl[i] == '\\' && i+1 < len(repl):
			b.WriteByte(repl[i+1])
			i++
		case repl[i] == '&':
			b.WriteString(match)
		default:
			b.WriteByte(repl[i])
		}
	}
	return b.String()
}

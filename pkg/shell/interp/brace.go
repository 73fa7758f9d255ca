package interp

import (
	"strconv"

	"github.com/rcarmo/sandsh/pkg/shell/syntax"
)

// maxBraceWords bounds the number of words one brace expansion produces.
const maxBraceWords = 1 << 16

// braceExpand expands the brace expressions of w into separate words,
// left to right.
func braceExpand(w *syntax.Word) []*syntax.Word {
	budget := maxBraceWords
	return braceWords(w, &budget)
}

func braceWords(w *syntax.Word, budget *int) []*syntax.Word {
	for i, part := range w.Parts {
		b, ok := part.(*syntax.BraceExp)
		if !ok {
			continue
		}
		var alts [][]syntax.WordPart
		if b.Seq != nil {
			vals := braceSeq(b.Seq, *budget)
			if vals == nil {
				// out of range sequences stay literal
				alts = [][]syntax.WordPart{{&syntax.Literal{Value: b.Raw}}}
			}
			for _, v := range vals {
				alts = append(alts, []syntax.WordPart{&syntax.Literal{Value: v}})
			}
		} else {
			for _, a := range b.Alts {
				alts = append(alts, a.Parts)
			}
		}
		var out []*syntax.Word
		for _, alt := range alts {
			if *budget <= 0 {
				break
			}
			parts := make([]syntax.WordPart, 0, len(w.Parts)+len(alt))
			parts = append(parts, w.Parts[:i]...)
			parts = append(parts, alt...)
			parts = append(parts, w.Parts[i+1:]...)
			out = append(out, braceWords(&syntax.Word{Parts: parts, Raw: w.Raw}, budget)...)
		}
		return out
	}
	*budget--
	return []*syntax.Word{w}
}

// braceSeq generates {x..y..step}. Numeric sequences keep zero padding
// when either end is written with a leading zero.
func braceSeq(seq *syntax.BraceSeq, limit int) []string {
	step := seq.Step
	if step < 0 {
		step = -step
	}
	if step == 0 {
		step = 1
	}
	if seq.Chars {
		a, b := int(seq.Start[0]), int(seq.End[0])
		var out []string
		if a <= b {
			for c := a; c <= b && len(out) < limit; c += step {
				out = append(out, string(rune(c)))
			}
		} else {
			for c := a; c >= b && len(out) < limit; c -= step {
				out = append(out, string(rune(c)))
			}
		}
		return out
	}
	a, err1 := strconv.Atoi(seq.Start)
	b, err2 := strconv.Atoi(seq.End)
	if err1 != nil || err2 != nil {
		return nil
	}
	width := 0
	if padded(seq.Start) || padded(seq.End) {
		width = max(len(seq.Start), len(seq.End))
	}
	format := func(n int) string {
		s := strconv.Itoa(n)
		if width == 0 {
			return s
		}
		neg := n < 0
		if neg {
			s = s[1:]
		}
		w := width
		if neg {
			w--
		}
		for len(s) < w {
			s = "0" + s
		}
		if neg {
			s = "-" + s
		}
		return s
	}
	var out []string
	if a <= b {
		for n := a; n <= b && len(out) < limit; n += step {
			out = append(out, format(n))
		}
	} else {
		for n := a; n >= b && len(out) < limit; n -= step {
			out = append(out, format(n))
		}
	}
	return out
}

func padded(s string) bool {
	if s != "" && s[0] == '-' {
		s = s[1:]
	}
	return len(s) > 1 && s[0] == '0'
}

// Package textutil provides shared helpers for the text commands.
package textutil

import (
	"errors"
	"strconv"
	"strings"
)

var (
	errRange = errors.New("invalid range")
	errKey   = errors.New("invalid key")
)

// Range is a 1-based inclusive span. End is 0 for an open end.
type Range struct {
	Start int
	End   int
}

// ParseRanges parses a comma-separated list of ranges (1-based, inclusive).
// Supports N, N-, -M, and N-M forms.
func ParseRanges(spec string) ([]Range, error) {
	if spec == "" {
		return nil, errRange
	}
	var ranges []Range
	for _, part := range strings.Split(spec, ",") {
		if part == "" {
			return nil, errRange
		}
		if strings.Contains(part, "-") {
			lo, hi, err := parseRangePart(part)
			if err != nil {
				return nil, err
			}
			ranges = append(ranges, Range{Start: lo, End: hi})
			continue
		}
		val, err := strconv.Atoi(part)
		if err != nil || val <= 0 {
			return nil, errRange
		}
		ranges = append(ranges, Range{Start: val, End: val})
	}
	return ranges, nil
}

func parseRangePart(part string) (int, int, error) {
	lo, hi, _ := strings.Cut(part, "-")
	if lo == "" && hi == "" {
		return 0, 0, errRange
	}
	start, end := 1, 0
	var err error
	if lo != "" {
		if start, err = strconv.Atoi(lo); err != nil || start <= 0 {
			return 0, 0, errRange
		}
	}
	if hi != "" {
		if end, err = strconv.Atoi(hi); err != nil || end <= 0 || end < start {
			return 0, 0, errRange
		}
	}
	return start, end, nil
}

// selected reports which of n 1-based positions the ranges cover.
func selected(ranges []Range, n int) []bool {
	sel := make([]bool, n+1)
	for _, r := range ranges {
		end := r.End
		if end == 0 || end > n {
			end = n
		}
		for i := r.Start; i <= end; i++ {
			sel[i] = true
		}
	}
	return sel
}

// BuildFieldFunc builds a projection for delimited fields. Fields are
// emitted in input order, each at most once. Lines without the delimiter
// pass through unless suppress is set.
func BuildFieldFunc(ranges []Range, delimiter rune, outputDelimiter string, suppress bool) func(line string) (string, bool) {
	if outputDelimiter == "" {
		outputDelimiter = string(delimiter)
	}
	return func(line string) (string, bool) {
		fields := strings.Split(line, string(delimiter))
		if len(fields) <= 1 {
			return line, !suppress
		}
		sel := selected(ranges, len(fields))
		out := make([]string, 0, len(fields))
		for i, f := range fields {
			if sel[i+1] {
				out = append(out, f)
			}
		}
		return strings.Join(out, outputDelimiter), true
	}
}

// BuildCharFunc builds a projection for 1-based character ranges.
func BuildCharFunc(ranges []Range) func(line string) string {
	return func(line string) string {
		runes := []rune(line)
		sel := selected(ranges, len(runes))
		var out strings.Builder
		for i, r := range runes {
			if sel[i+1] {
				out.WriteRune(r)
			}
		}
		return out.String()
	}
}

// BuildByteFunc builds a projection for 1-based byte ranges.
func BuildByteFunc(ranges []Range) func(line string) string {
	return func(line string) string {
		sel := selected(ranges, len(line))
		var out strings.Builder
		for i := 0; i < len(line); i++ {
			if sel[i+1] {
				out.WriteByte(line[i])
			}
		}
		return out.String()
	}
}

func isBlank(c byte) bool { return c == ' ' || c == '\t' }

// NormalizeLine applies skip fields/characters for uniq-style comparisons.
func NormalizeLine(line string, skipFields, skipChars int) string {
	i := 0
	for f := 0; f < skipFields; f++ {
		for i < len(line) && isBlank(line[i]) {
			i++
		}
		for i < len(line) && !isBlank(line[i]) {
			i++
		}
	}
	line = line[i:]
	if skipChars > 0 {
		runes := []rune(line)
		if skipChars >= len(runes) {
			return ""
		}
		line = string(runes[skipChars:])
	}
	return line
}

// ParseKeySpec parses a sort -k spec (field[.char][,field[.char]]) and
// returns the start field and character; the end is ignored.
func ParseKeySpec(spec string) (int, int, error) {
	if spec == "" {
		return 0, 0, errKey
	}
	start, _, _ := strings.Cut(spec, ",")
	start = strings.TrimRight(start, "bdfgiMnrRV")
	fieldStr, charStr, hasChar := strings.Cut(start, ".")
	field, err := strconv.Atoi(fieldStr)
	if err != nil || field <= 0 {
		return 0, 0, errKey
	}
	char := 0
	if hasChar {
		char, err = strconv.Atoi(charStr)
		if err != nil || char <= 0 {
			return 0, 0, errKey
		}
	}
	return field, char, nil
}

// ExtractKey extracts the key starting at field/char for sort. With no
// separator, fields are runs of non-blanks and the key runs to the end
// of the line.
func ExtractKey(line string, field, char int, sep string) string {
	if field <= 0 {
		return line
	}
	var rest string
	if sep == "" {
		i := 0
		for f := 1; f < field; f++ {
			for i < len(line) && isBlank(line[i]) {
				i++
			}
			for i < len(line) && !isBlank(line[i]) {
				i++
			}
		}
		rest = strings.TrimLeft(line[i:], " \t")
	} else {
		parts := strings.SplitN(line, sep, field)
		if len(parts) < field {
			return ""
		}
		rest = parts[field-1]
	}
	if char > 0 {
		runes := []rune(rest)
		if char > len(runes) {
			return ""
		}
		rest = string(runes[char-1:])
	}
	return rest
}

// ParseSet expands a tr-style set: ranges (a-z), POSIX classes
// ([:digit:]) and backslash escapes.
func ParseSet(spec string) ([]rune, error) {
	var out []rune
	runes := unescape([]rune(spec))
	for i := 0; i < len(runes); i++ {
		if runes[i] == '[' && i+1 < len(runes) && runes[i+1] == ':' {
			rest := string(runes[i+2:])
			if end := strings.Index(rest, ":]"); end > 0 {
				if chars := posixClass(rest[:end]); chars != nil {
					out = append(out, chars...)
					i += 2 + len([]rune(rest[:end])) + 1
					continue
				}
			}
		}
		if i+2 < len(runes) && runes[i+1] == '-' {
			start, end := runes[i], runes[i+2]
			if end < start {
				return nil, errRange
			}
			out = append(out, span(start, end)...)
			i += 2
			continue
		}
		out = append(out, runes[i])
	}
	return out, nil
}

func unescape(in []rune) []rune {
	out := make([]rune, 0, len(in))
	for i := 0; i < len(in); i++ {
		if in[i] != '\\' || i+1 >= len(in) {
			out = append(out, in[i])
			continue
		}
		i++
		switch in[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case 'f':
			out = append(out, '\f')
		case 'v':
			out = append(out, '\v')
		case 'a':
			out = append(out, '\a')
		case 'b':
			out = append(out, '\b')
		default:
			if in[i] >= '0' && in[i] <= '7' {
				v := in[i] - '0'
				for n := 1; n < 3 && i+1 < len(in) && in[i+1] >= '0' && in[i+1] <= '7'; n++ {
					i++
					v = v*8 + in[i] - '0'
				}
				out = append(out, v)
				continue
			}
			out = append(out, in[i])
		}
	}
	return out
}

func span(lo, hi rune) []rune {
	r := make([]rune, 0, hi-lo+1)
	for c := lo; c <= hi; c++ {
		r = append(r, c)
	}
	return r
}

func concat(parts ...[]rune) []rune {
	var out []rune
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func posixClass(name string) []rune {
	switch name {
	case "alnum":
		return concat(span('0', '9'), span('A', 'Z'), span('a', 'z'))
	case "alpha":
		return concat(span('A', 'Z'), span('a', 'z'))
	case "digit":
		return span('0', '9')
	case "lower":
		return span('a', 'z')
	case "upper":
		return span('A', 'Z')
	case "space":
		return []rune{'\t', '\n', '\v', '\f', '\r', ' '}
	case "blank":
		return []rune{'\t', ' '}
	case "print":
		return span(32, 126)
	case "graph":
		return span(33, 126)
	case "cntrl":
		return append(span(0, 31), 127)
	case "punct":
		return concat(span(33, 47), span(58, 64), span(91, 96), span(123, 126))
	case "xdigit":
		return concat(span('0', '9'), span('A', 'F'), span('a', 'f'))
	}
	return nil
}

// ComplementSet returns the complement of the set across bytes 0-255.
func ComplementSet(set map[rune]bool) []rune {
	out := make([]rune, 0, 256)
	for i := 0; i < 256; i++ {
		r := rune(i)
		if !set[r] {
			out = append(out, r)
		}
	}
	return out
}

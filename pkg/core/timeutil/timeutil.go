// Package timeutil parses the duration strings accepted by sleep and the
// configuration timeout.
package timeutil

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Infinite is the duration of "infinity".
const Infinite = time.Duration(math.MaxInt64)

var errEmpty = errors.New("empty duration")

var units = map[byte]time.Duration{
	's': time.Second,
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
}

// Term is one number and its unit, as in the "30m" of "1h30m".
type Term struct {
	Value float64
	Unit  byte
}

// DurationSpec is a parsed duration together with the terms it was
// written as. An infinite duration has no terms.
type DurationSpec struct {
	Duration time.Duration
	Terms    []Term
}

// ParseDuration parses one or more numbers, each with an optional s, m, h
// or d suffix, and sums them. A bare number counts seconds. "inf" and
// "infinity" yield Infinite.
func ParseDuration(value string) (DurationSpec, error) {
	s := strings.TrimSpace(value)
	switch s {
	case "":
		return DurationSpec{}, errEmpty
	case "inf", "infinity":
		return DurationSpec{Duration: Infinite}, nil
	}
	var spec DurationSpec
	total := 0.0
	for s != "" {
		i := 0
		for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.') {
			i++
		}
		n, err := strconv.ParseFloat(s[:i], 64)
		if i == 0 || err != nil {
			return DurationSpec{}, fmt.Errorf("%q: %w", value, strconv.ErrSyntax)
		}
		unit := byte('s')
		if i < len(s) {
			unit = s[i]
			i++
		}
		mult, ok := units[unit]
		if !ok {
			return DurationSpec{}, fmt.Errorf("%q: %w", value, strconv.ErrSyntax)
		}
		total += n * float64(mult)
		spec.Terms = append(spec.Terms, Term{Value: n, Unit: unit})
		s = s[i:]
	}
	spec.Duration = Infinite
	if total < float64(Infinite) {
		spec.Duration = time.Duration(total)
	}
	return spec, nil
}

// FormatDuration writes spec back term by term with explicit units.
func FormatDuration(spec DurationSpec) string {
	if len(spec.Terms) == 0 {
		if spec.Duration == Infinite {
			return "infinity"
		}
		return spec.Duration.String()
	}
	var b strings.Builder
	for _, t := range spec.Terms {
		b.WriteString(strconv.FormatFloat(t.Value, 'f', -1, 64))
		b.WriteByte(t.Unit)
	}
	return b.String()
}

// Package tr implements the tr command.
package tr

import (
	"io"
	"strings"

	"github.com/rcarmo/sandsh/pkg/core"
	"github.com/rcarmo/sandsh/pkg/core/textutil"
)

// Run executes the tr command with the given arguments. Input is always
// standard input.
func Run(stdio *core.Stdio, env *core.Env, args []string) int {
	var complement, deleteSet, squeeze bool
	operands, code := core.ParseBoolFlags(stdio, "tr", args, map[byte]*bool{
		'c': &complement,
		'd': &deleteSet,
		's': &squeeze,
	}, map[byte]byte{'C': 'c'})
	if code != core.ExitSuccess {
		return code
	}

	needed := 2
	if deleteSet || (squeeze && len(operands) == 1) {
		needed = 1
	}
	if deleteSet && squeeze {
		needed = 2
	}
	if len(operands) < needed {
		return core.UsageError(stdio, "tr", "missing operand")
	}
	if len(operands) > needed {
		return core.UsageError(stdio, "tr", "extra operand '"+operands[needed]+"'")
	}

	fromRunes, err := textutil.ParseSet(operands[0])
	if err != nil {
		return core.UsageError(stdio, "tr", "invalid set")
	}
	fromSet := toSet(fromRunes)
	if complement {
		fromRunes = textutil.ComplementSet(fromSet)
		fromSet = toSet(fromRunes)
	}

	var toRunes []rune
	if len(operands) > 1 {
		if toRunes, err = textutil.ParseSet(operands[1]); err != nil {
			return core.UsageError(stdio, "tr", "invalid set")
		}
	}
	translate := !deleteSet && len(toRunes) > 0
	squeezeSet := fromSet
	if translate || (deleteSet && squeeze) {
		squeezeSet = toSet(toRunes)
	}

	buf := new(strings.Builder)
	if _, err := io.Copy(buf, stdio.In); err != nil {
		stdio.Errorf("tr: %v\n", err)
		return core.ExitFailure
	}

	var out strings.Builder
	var prev rune
	hasPrev := false
	for _, r := range buf.String() {
		if deleteSet && fromSet[r] {
			continue
		}
		if translate && fromSet[r] {
			idx := indexRune(fromRunes, r)
			if idx >= len(toRunes) {
				idx = len(toRunes) - 1
			}
			r = toRunes[idx]
		}
		if squeeze && hasPrev && r == prev && squeezeSet[r] {
			continue
		}
		out.WriteRune(r)
		prev = r
		hasPrev = true
	}
	stdio.Print(out.String())
	return core.ExitSuccess
}

func toSet(runes []rune) map[rune]bool {
	set := make(map[rune]bool, len(runes))
	for _, r := range runes {
		set[r] = true
	}
	return set
}

// indexRune returns the last position of r, so later mappings win.
func indexRune(list []rune, r rune) int {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i] == r {
			return i
		}
	}
	return len(list)
}

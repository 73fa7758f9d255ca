package textutil_test

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/rcarmo/sandsh/pkg/core/textutil"
)

func TestParseRanges(t *testing.T) {
	r, err := textutil.ParseRanges("1,3-4,-2,5-")
	be.Err(t, err, nil)
	be.Equal(t, r, []textutil.Range{
		{Start: 1, End: 1}, {Start: 3, End: 4}, {Start: 1, End: 2}, {Start: 5, End: 0},
	})

	for _, bad := range []string{"", "0", "3-1", "a", "1,,2", "-"} {
		_, err := textutil.ParseRanges(bad)
		be.Err(t, err, "invalid range")
	}
}

func TestFieldAndChars(t *testing.T) {
	r, _ := textutil.ParseRanges("2-")
	fields := textutil.BuildFieldFunc(r, ',', "", false)
	out, ok := fields("a,b,c")
	be.Equal(t, out, "b,c")
	be.True(t, ok)

	chars := textutil.BuildCharFunc(r)
	be.Equal(t, chars("héllo"), "éllo")
	bytes := textutil.BuildByteFunc(r)
	be.Equal(t, bytes("abc"), "bc")
}

func TestNormalizeLine(t *testing.T) {
	be.Equal(t, textutil.NormalizeLine("a b c", 1, 0), " b c")
	be.Equal(t, textutil.NormalizeLine("  a b", 2, 0), "")
	be.Equal(t, textutil.NormalizeLine("abc", 0, 1), "bc")
	be.Equal(t, textutil.NormalizeLine("abc", 0, 5), "")
}

func TestKeys(t *testing.T) {
	field, char, err := textutil.ParseKeySpec("2.3n,4")
	be.Err(t, err, nil)
	be.Equal(t, field, 2)
	be.Equal(t, char, 3)

	_, _, err = textutil.ParseKeySpec("x")
	be.Err(t, err, "invalid key")

	be.Equal(t, textutil.ExtractKey("a  bc d", 2, 0, ""), "bc d")
	be.Equal(t, textutil.ExtractKey("a,bc,d", 2, 2, ","), "c,d")
	be.Equal(t, textutil.ExtractKey("a", 3, 0, ","), "")
}

func TestParseSet(t *testing.T) {
	set, err := textutil.ParseSet(`a-c[:digit:]\n`)
	be.Err(t, err, nil)
	be.Equal(t, string(set), "abc0123456789\n")

	_, err = textutil.ParseSet("z-a")
	be.Err(t, err, "invalid range")

	be.Equal(t, len(textutil.ComplementSet(map[rune]bool{'a': true})), 255)
}

package vfs_test

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func TestPattern(t *testing.T) {
	tests := []struct {
		pat  string
		s    string
		want bool
	}{
		{"*.go", "a.go", true},
		{"*.go", "dir/a.go", true},
		{"a?c", "abc", true},
		{"[!a]x", "bx", true},
		{"[!a]x", "ax", false},
		{"[[:digit:]]*", "7up", true},
		{`a\*`, "a*", true},
		{`a\*`, "ab", false},
		{"[unclosed", "[unclosed", true},
		{"@(x|y).go", "y.go", true},
		{"@(x|y).go", "z.go", false},
		{"+(ab)", "ababab", true},
		{"+(ab)", "", false},
		{"*(ab)c", "c", true},
		{"*(ab)c", "ababc", true},
		{"?(a)b", "b", true},
		{"?(a)b", "aab", false},
		{"+(a|b)c", "abbac", true},
		{"!(*.txt)", "notes.md", true},
		{"!(*.txt)", "notes.txt", false},
		{"!(x)", "", true},
		{"a!(b)c", "adc", true},
		{"a!(b)c", "abc", false},
		{"@(a|!(b))", "z", true},
		{"@(a|!(b))", "b", false},
		{"x+(1|2)!(3)", "x12", true},
		{"x+(1|2)!(3)", "x123", true},
		{"x+(1|2)!(3)", "x13", false},
		{"@(a", "@(a", true},
	}
	for _, tt := range tests {
		t.Run(tt.pat+"/"+tt.s, func(t *testing.T) {
			p, err := vfs.CompilePattern(tt.pat, false)
			be.Err(t, err, nil)
			be.Equal(t, p.Match(tt.s), tt.want)
		})
	}
}

func TestPatternNoCase(t *testing.T) {
	p, err := vfs.CompilePattern("@(readme|notes).MD", true)
	be.Err(t, err, nil)
	be.True(t, p.Match("README.md"))
	be.True(t, !p.Match("todo.md"))
}

func TestPatternError(t *testing.T) {
	_, err := vfs.CompilePattern("[z-a]", false)
	be.True(t, err != nil)
}

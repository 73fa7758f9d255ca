package arith_test

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/nalgeon/be"

	"github.com/rcarmo/sandsh/pkg/shell/arith"
)

type mapEnv struct {
	vars  map[string]string
	assoc map[string]map[string]string
}

func newEnv() *mapEnv {
	return &mapEnv{vars: map[string]string{}, assoc: map[string]map[string]string{}}
}

func (m *mapEnv) Get(name string) (string, bool) {
	v, ok := m.vars[name]
	return v, ok
}

func (m *mapEnv) Set(name string, v int64) error {
	if name == "RO" {
		return fmt.Errorf("%s: readonly variable", name)
	}
	m.vars[name] = strconv.FormatInt(v, 10)
	return nil
}

func (m *mapEnv) GetIndex(name, key string) (string, bool) {
	if a, ok := m.assoc[name]; ok {
		v, ok := a[key]
		return v, ok
	}
	v, ok := m.vars[name+"["+key+"]"]
	return v, ok
}

func (m *mapEnv) SetIndex(name, key string, v int64) error {
	if a, ok := m.assoc[name]; ok {
		a[key] = strconv.FormatInt(v, 10)
		return nil
	}
	m.vars[name+"["+key+"]"] = strconv.FormatInt(v, 10)
	return nil
}

func (m *mapEnv) IsAssoc(name string) bool {
	_, ok := m.assoc[name]
	return ok
}

func (m *mapEnv) Expand(src string) (string, error) {
	switch {
	case len(src) > 3 && src[:2] == "${":
		return m.vars[src[2:len(src)-1]], nil
	case len(src) > 2 && src[:2] == "$(":
		return "7\n", nil
	case len(src) > 1 && src[0] == '$':
		return m.vars[src[1:]], nil
	}
	return "", nil
}

func TestEval(t *testing.T) {
	tests := []struct {
		expr string
		want int64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"2 ** 3 ** 2", 512},
		{"-2 ** 2", 4},
		{"7 / 2", 3},
		{"-7 % 3", -1},
		{"1 << 4", 16},
		{"0xff", 255},
		{"0X1f", 31},
		{"017", 15},
		{"2#1010", 10},
		{"16#FF", 255},
		{"36#z", 35},
		{"64#_", 63},
		{"64#@", 62},
		{"62#Z", 61},
		{"1 < 2 && 2 < 3", 1},
		{"0 || 0", 0},
		{"!5", 0},
		{"~0", -1},
		{"5 & 3 | 8 ^ 1", 9},
		{"1 ? 2 : 3", 2},
		{"0 ? 2 : 3", 3},
		{"1, 2, 3", 3},
		{"", 0},
		{"  ", 0},
		{"3 == 3", 1},
		{"3 != 3", 0},
		{"$(echo 7) + 1", 8},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := arith.EvalString(tc.expr, newEnv())
			be.Err(t, err, nil)
			be.Equal(t, got, tc.want)
		})
	}
}

func TestParseShapes(t *testing.T) {
	tern, ok := arith.Parse("1 ? 2 : 3").(*arith.Ternary)
	be.True(t, ok)
	got, err := arith.Eval(tern, newEnv())
	be.Err(t, err, nil)
	be.Equal(t, got, int64(2))

	as, ok := arith.Parse("x = 5").(*arith.Assignment)
	be.True(t, ok)
	v, ok := as.Target.(*arith.Variable)
	be.True(t, ok)
	be.Equal(t, v.Name, "x")

	post, ok := arith.Parse("x++").(*arith.Unary)
	be.True(t, ok)
	be.True(t, post.Postfix)
	be.Equal(t, post.Op, "++")

	pre, ok := arith.Parse("++x").(*arith.Unary)
	be.True(t, ok)
	be.True(t, !pre.Postfix)
	be.Equal(t, pre.Op, "++")

	_, ok = arith.Parse("${a}${b}").(*arith.Concat)
	be.True(t, ok)
}

func TestVariables(t *testing.T) {
	env := newEnv()
	env.vars["a"] = "3"
	env.vars["b"] = "a + 1"
	env.vars["empty"] = ""

	got, err := arith.EvalString("b * 2", env)
	be.Err(t, err, nil)
	be.Equal(t, got, int64(8))

	got, err = arith.EvalString("unset + empty + 1", env)
	be.Err(t, err, nil)
	be.Equal(t, got, int64(1))

	got, err = arith.EvalString("x = 5, x += 2, x", env)
	be.Err(t, err, nil)
	be.Equal(t, got, int64(7))
	be.Equal(t, env.vars["x"], "7")

	got, err = arith.EvalString("a++", env)
	be.Err(t, err, nil)
	be.Equal(t, got, int64(3))
	be.Equal(t, env.vars["a"], "4")

	got, err = arith.EvalString("--a", env)
	be.Err(t, err, nil)
	be.Equal(t, got, int64(3))
}

func TestConcatAssignment(t *testing.T) {
	env := newEnv()
	env.vars["a"] = "fo"
	env.vars["b"] = "o"
	_, err := arith.EvalString("${a}${b}=5", env)
	be.Err(t, err, nil)
	be.Equal(t, env.vars["foo"], "5")

	env.vars["i"] = "2"
	_, err = arith.EvalString("x$i = 9", env)
	be.Err(t, err, nil)
	be.Equal(t, env.vars["x2"], "9")
}

func TestArrays(t *testing.T) {
	env := newEnv()
	_, err := arith.EvalString("arr[1+1] = 4", env)
	be.Err(t, err, nil)
	be.Equal(t, env.vars["arr[2]"], "4")

	got, err := arith.EvalString("arr[2] * 2", env)
	be.Err(t, err, nil)
	be.Equal(t, got, int64(8))

	env.assoc["m"] = map[string]string{"key one": "5"}
	got, err = arith.EvalString("m[key one] + 1", env)
	be.Err(t, err, nil)
	be.Equal(t, got, int64(6))
}

func TestErrors(t *testing.T) {
	tests := []struct {
		expr string
		msg  string
	}{
		{"1 / 0", "division by 0"},
		{"5 % 0", "division by 0"},
		{"2 ** -1", "exponent less than 0"},
		{"09", "value too great for base"},
		{"1 +", "operand expected"},
		{"1 = 2", "attempted assignment to non-variable"},
		{"65#1", "invalid arithmetic base"},
		{"2#2", "value too great for base"},
		{"1 2", "syntax error"},
		{"(1 + 2", "missing"},
	}
	for _, tc := range tests {
		t.Run(tc.expr, func(t *testing.T) {
			_, err := arith.EvalString(tc.expr, newEnv())
			be.Err(t, err, tc.msg)
		})
	}
}

func TestLazySyntaxError(t *testing.T) {
	// the malformed branch is never evaluated
	got, err := arith.EvalString("1 ? 2 : (3 +)", newEnv())
	be.Err(t, err, nil)
	be.Equal(t, got, int64(2))

	got, err = arith.EvalString("0 && (1 / 0)", newEnv())
	be.Err(t, err, nil)
	be.Equal(t, got, int64(0))

	_, err = arith.EvalString("0 ? 2 : (3 +)", newEnv())
	be.Err(t, err, "operand expected")
}

func TestRecursionLimit(t *testing.T) {
	env := newEnv()
	env.vars["a"] = "b"
	env.vars["b"] = "a"
	_, err := arith.EvalString("a", env)
	be.Err(t, err, "recursion level exceeded")
}

func TestEnvErrorPassesThrough(t *testing.T) {
	_, err := arith.EvalString("RO = 1", newEnv())
	be.Err(t, err, "readonly variable")
}

func TestPurity(t *testing.T) {
	env := newEnv()
	env.vars["n"] = "6"
	for _, src := range []string{"n * 7 - 3", "n > 3 ? n << 2 : -n", "(n ^ 5) % 4", "16#ff / n"} {
		e := arith.Parse(src)
		first, err1 := arith.Eval(e, env)
		second, err2 := arith.Eval(e, env)
		be.Err(t, err1, nil)
		be.Err(t, err2, nil)
		be.Equal(t, first, second)
	}
}

func FuzzParse(f *testing.F) {
	f.Add("1 + 2")
	f.Add("a ? b : c")
	f.Add("${a}${b}=5")
	f.Add("x[1+(2]")
	f.Add("((((")
	f.Fuzz(func(t *testing.T, src string) {
		e := arith.Parse(src)
		if e == nil {
			t.Fatalf("Parse(%q) returned nil", src)
		}
		_, _ = arith.Eval(e, newEnv())
	})
}

package interp

import (
	"errors"
	"fmt"
)

var testUnary = map[string]bool{
	"-a": true, "-b": true, "-c": true, "-d": true, "-e": true, "-f": true,
	"-g": true, "-h": true, "-k": true, "-p": true, "-r": true, "-s": true,
	"-t": true, "-u": true, "-w": true, "-x": true, "-G": true, "-L": true,
	"-N": true, "-O": true, "-S": true, "-z": true, "-n": true, "-o": true,
	"-v": true, "-R": true,
}

var testBinary = map[string]bool{
	"=": true, "==": true, "!=": true, "<": true, ">": true,
	"-eq": true, "-ne": true, "-lt": true, "-le": true, "-gt": true, "-ge": true,
	"-nt": true, "-ot": true, "-ef": true,
}

// builtinTest implements test and [.
func builtinTest(b *builtinCall) (int, error) {
	args := b.args
	if b.name == "[" {
		if len(args) == 0 || args[len(args)-1] != "]" {
			b.errorf("missing `]'")
			return 2, nil
		}
		args = args[:len(args)-1]
	}
	t := &testEval{b: b, args: args}
	ok, err := t.eval()
	if err != nil {
		var ce *condError
		if errors.As(err, &ce) {
			b.errorf("%s", ce.msg)
			return 2, nil
		}
		return 2, err
	}
	if ok {
		return 0, nil
	}
	return 1, nil
}

type testEval struct {
	b    *builtinCall
	args []string
	pos  int
}

func testErr(format string, args ...any) error {
	return &condError{msg: fmt.Sprintf(format, args...)}
}

// eval applies the POSIX rules that decide by argument count, falling
// back to the full grammar for longer expressions.
func (t *testEval) eval() (bool, error) {
	a := t.args
	switch len(a) {
	case 0:
		return false, nil
	case 1:
		return a[0] != "", nil
	case 2:
		if a[0] == "!" {
			return a[1] == "", nil
		}
		if testUnary[a[0]] {
			return t.unary(a[0], a[1])
		}
		return false, testErr("%s: unary operator expected", a[0])
	case 3:
		if testBinary[a[1]] {
			return t.binary(a[0], a[1], a[2])
		}
		if a[1] == "-a" || a[1] == "-o" {
			break
		}
		if a[0] == "!" {
			ok, err := t.sub(a[1:]).eval()
			return !ok, err
		}
		if a[0] == "(" && a[2] == ")" {
			return a[1] != "", nil
		}
		return false, testErr("%s: binary operator expected", a[1])
	case 4:
		if a[0] == "!" {
			ok, err := t.sub(a[1:]).eval()
			return !ok, err
		}
		if a[0] == "(" && a[3] == ")" {
			return t.sub(a[1:3]).eval()
		}
	}
	ok, err := t.or()
	if err != nil {
		return false, err
	}
	if t.pos < len(t.args) {
		return false, testErr("too many arguments")
	}
	return ok, nil
}

func (t *testEval) sub(args []string) *testEval {
	return &testEval{b: t.b, args: args}
}

func (t *testEval) peek() (string, bool) {
	if t.pos < len(t.args) {
		return t.args[t.pos], true
	}
	return "", false
}

func (t *testEval) or() (bool, error) {
	left, err := t.and()
	if err != nil {
		return false, err
	}
	for {
		if s, ok := t.peek(); !ok || s != "-o" {
			return left, nil
		}
		t.pos++
		right, err := t.and()
		if err != nil {
			return false, err
		}
		left = left || right
	}
}

func (t *testEval) and() (bool, error) {
	left, err := t.not()
	if err != nil {
		return false, err
	}
	for {
		if s, ok := t.peek(); !ok || s != "-a" {
			return left, nil
		}
		t.pos++
		right, err := t.not()
		if err != nil {
			return false, err
		}
		left = left && right
	}
}

func (t *testEval) not() (bool, error) {
	if s, ok := t.peek(); ok && s == "!" {
		t.pos++
		v, err := t.not()
		return !v, err
	}
	return t.primary()
}

func (t *testEval) primary() (bool, error) {
	s, ok := t.peek()
	if !ok {
		return false, testErr("argument expected")
	}
	if s == "(" {
		t.pos++
		v, err := t.or()
		if err != nil {
			return false, err
		}
		if c, ok := t.peek(); !ok || c != ")" {
			return false, testErr("`)' expected")
		}
		t.pos++
		return v, nil
	}
	rest := len(t.args) - t.pos
	if rest >= 3 && testBinary[t.args[t.pos+1]] {
		left, op, right := t.args[t.pos], t.args[t.pos+1], t.args[t.pos+2]
		t.pos += 3
		return t.binary(left, op, right)
	}
	if testUnary[s] && rest >= 2 {
		t.pos += 2
		return t.unary(s, t.args[t.pos-1])
	}
	t.pos++
	return s != "", nil
}

func (t *testEval) unary(op, arg string) (bool, error) {
	if op == "-a" {
		op = "-e"
	}
	return t.b.r.unaryTest(t.b.ctx, t.b.st, op, arg)
}

func (t *testEval) binary(left, op, right string) (bool, error) {
	switch op {
	case "=", "==":
		return left == right, nil
	case "!=":
		return left != right, nil
	case "<":
		return left < right, nil
	case ">":
		return left > right, nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		a, err := testInt(left)
		if err != nil {
			return false, &condError{msg: err.Error()}
		}
		b, err := testInt(right)
		if err != nil {
			return false, &condError{msg: err.Error()}
		}
		return compareInts(op, a, b), nil
	}
	return t.b.r.fileCompare(t.b.st, op, left, right), nil
}

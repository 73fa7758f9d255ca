package arith

import (
	"strconv"
	"strings"
)

// MaxDepth bounds the recursive evaluation of variables whose values are
// themselves expressions.
const MaxDepth = 1024

// Env gives the evaluator access to shell state.
type Env interface {
	// Get returns the value of a scalar variable, or element 0 of an array.
	Get(name string) (string, bool)
	Set(name string, v int64) error
	GetIndex(name, key string) (string, bool)
	SetIndex(name, key string, v int64) error
	IsAssoc(name string) bool
	// Expand performs parameter or command substitution on src, which is
	// a $... or `...` construct.
	Expand(src string) (string, error)
}

// Eval evaluates an expression.
func Eval(e Expr, env Env) (int64, error) {
	ev := &evaluator{env: env}
	return ev.eval(e)
}

// EvalString parses and evaluates src.
func EvalString(src string, env Env) (int64, error) {
	return Eval(Parse(src), env)
}

type evaluator struct {
	env   Env
	depth int
}

func (ev *evaluator) eval(e Expr) (int64, error) {
	switch e := e.(type) {
	case *Number:
		return ParseNumber(e.Text)
	case *Variable:
		v, _ := ev.env.Get(e.Name)
		return ev.valueOf(v, e.Name)
	case *ArrayElement:
		key, err := ev.key(e)
		if err != nil {
			return 0, err
		}
		v, _ := ev.env.GetIndex(e.Name, key)
		return ev.valueOf(v, e.Name)
	case *ParamSubst:
		v, err := ev.env.Expand(e.Src)
		if err != nil {
			return 0, err
		}
		return ev.valueOf(v, e.Src)
	case *CommandSubst:
		v, err := ev.env.Expand("$(" + e.Src + ")")
		if err != nil {
			return 0, err
		}
		return ev.valueOf(strings.TrimSpace(v), e.Src)
	case *Concat:
		text, err := ev.concatText(e)
		if err != nil {
			return 0, err
		}
		if isName(text) {
			v, _ := ev.env.Get(text)
			return ev.valueOf(v, text)
		}
		return ev.valueOf(text, text)
	case *Group:
		return ev.eval(e.X)
	case *SyntaxError:
		return 0, &Error{Msg: e.Msg, Token: e.Token}
	case *Unary:
		return ev.unary(e)
	case *Binary:
		return ev.binary(e)
	case *Ternary:
		c, err := ev.eval(e.Cond)
		if err != nil {
			return 0, err
		}
		if c != 0 {
			return ev.eval(e.Then)
		}
		return ev.eval(e.Else)
	case *Assignment:
		return ev.assign(e)
	}
	return 0, &Error{Msg: "syntax error in expression"}
}

// valueOf converts a variable's text to a number, evaluating it as an
// expression when it is not a plain literal.
func (ev *evaluator) valueOf(v, token string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	if n, err := ParseNumber(v); err == nil {
		return n, nil
	}
	ev.depth++
	defer func() { ev.depth-- }()
	if ev.depth > MaxDepth {
		return 0, &Error{Msg: "expression recursion level exceeded", Token: token}
	}
	return ev.eval(Parse(v))
}

func (ev *evaluator) concatText(c *Concat) (string, error) {
	var b strings.Builder
	for _, part := range c.Parts {
		switch p := part.(type) {
		case *Number:
			b.WriteString(p.Text)
		case *Variable:
			b.WriteString(p.Name)
		case *ParamSubst:
			v, err := ev.env.Expand(p.Src)
			if err != nil {
				return "", err
			}
			b.WriteString(v)
		case *CommandSubst:
			v, err := ev.env.Expand("$(" + p.Src + ")")
			if err != nil {
				return "", err
			}
			b.WriteString(strings.TrimSpace(v))
		case *ArrayElement:
			b.WriteString(p.Name + "[" + p.IndexSrc + "]")
		}
	}
	return b.String(), nil
}

func (ev *evaluator) key(e *ArrayElement) (string, error) {
	if ev.env.IsAssoc(e.Name) {
		if strings.ContainsAny(e.IndexSrc, "$`") {
			return ev.env.Expand(e.IndexSrc)
		}
		return e.IndexSrc, nil
	}
	n, err := ev.eval(e.Index)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n, 10), nil
}

// lvalue is a resolved assignment target.
type lvalue struct {
	name   string
	key    string
	hasKey bool
}

func (ev *evaluator) lvalue(e Expr, token string) (lvalue, error) {
	switch e := e.(type) {
	case *Variable:
		return lvalue{name: e.Name}, nil
	case *ArrayElement:
		k, err := ev.key(e)
		if err != nil {
			return lvalue{}, err
		}
		return lvalue{name: e.Name, key: k, hasKey: true}, nil
	case *Concat, *ParamSubst:
		var text string
		var err error
		if c, ok := e.(*Concat); ok {
			text, err = ev.concatText(c)
		} else {
			text, err = ev.env.Expand(e.(*ParamSubst).Src)
		}
		if err != nil {
			return lvalue{}, err
		}
		text = strings.TrimSpace(text)
		if isName(text) {
			return lvalue{name: text}, nil
		}
		if i := strings.IndexByte(text, '['); i > 0 && strings.HasSuffix(text, "]") && isName(text[:i]) {
			el := &ArrayElement{Name: text[:i], IndexSrc: text[i+1 : len(text)-1]}
			el.Index = Parse(el.IndexSrc)
			return ev.lvalue(el, token)
		}
	}
	return lvalue{}, &Error{Msg: "attempted assignment to non-variable", Token: token}
}

func (ev *evaluator) load(lv lvalue) (int64, error) {
	var v string
	if lv.hasKey {
		v, _ = ev.env.GetIndex(lv.name, lv.key)
	} else {
		v, _ = ev.env.Get(lv.name)
	}
	return ev.valueOf(v, lv.name)
}

func (ev *evaluator) store(lv lvalue, n int64) error {
	if lv.hasKey {
		return ev.env.SetIndex(lv.name, lv.key, n)
	}
	return ev.env.Set(lv.name, n)
}

func (ev *evaluator) unary(e *Unary) (int64, error) {
	switch e.Op {
	case "++", "--":
		lv, err := ev.lvalue(e.X, e.Op)
		if err != nil {
			return 0, err
		}
		old, err := ev.load(lv)
		if err != nil {
			return 0, err
		}
		n := old + 1
		if e.Op == "--" {
			n = old - 1
		}
		if err := ev.store(lv, n); err != nil {
			return 0, err
		}
		if e.Postfix {
			return old, nil
		}
		return n, nil
	}
	x, err := ev.eval(e.X)
	if err != nil {
		return 0, err
	}
	switch e.Op {
	case "-":
		return -x, nil
	case "!":
		return boolInt(x == 0), nil
	case "~":
		return ^x, nil
	}
	return x, nil
}

func (ev *evaluator) binary(e *Binary) (int64, error) {
	x, err := ev.eval(e.X)
	if err != nil {
		return 0, err
	}
	switch e.Op {
	case "&&":
		if x == 0 {
			return 0, nil
		}
		y, err := ev.eval(e.Y)
		return boolInt(y != 0), err
	case "||":
		if x != 0 {
			return 1, nil
		}
		y, err := ev.eval(e.Y)
		return boolInt(y != 0), err
	}
	y, err := ev.eval(e.Y)
	if err != nil {
		return 0, err
	}
	return apply(e.Op, x, y, e.Rest)
}

func apply(op string, x, y int64, rest string) (int64, error) {
	switch op {
	case ",":
		return y, nil
	case "+":
		return x + y, nil
	case "-":
		return x - y, nil
	case "*":
		return x * y, nil
	case "/", "%":
		if y == 0 {
			return 0, &Error{Msg: "division by 0", Token: rest}
		}
		if op == "/" {
			return x / y, nil
		}
		return x % y, nil
	case "**":
		if y < 0 {
			return 0, &Error{Msg: "exponent less than 0", Token: rest}
		}
		r := int64(1)
		for ; y > 0; y-- {
			r *= x
		}
		return r, nil
	case "<<":
		return x << (uint64(y) & 63), nil
	case ">>":
		return x >> (uint64(y) & 63), nil
	case "&":
		return x & y, nil
	case "|":
		return x | y, nil
	case "^":
		return x ^ y, nil
	case "==":
		return boolInt(x == y), nil
	case "!=":
		return boolInt(x != y), nil
	case "<":
		return boolInt(x < y), nil
	case "<=":
		return boolInt(x <= y), nil
	case ">":
		return boolInt(x > y), nil
	case ">=":
		return boolInt(x >= y), nil
	}
	return 0, &Error{Msg: "syntax error: invalid arithmetic operator", Token: op}
}

func (ev *evaluator) assign(e *Assignment) (int64, error) {
	lv, err := ev.lvalue(e.Target, e.Rest)
	if err != nil {
		return 0, err
	}
	v, err := ev.eval(e.Value)
	if err != nil {
		return 0, err
	}
	if e.Op != "=" {
		old, err := ev.load(lv)
		if err != nil {
			return 0, err
		}
		if v, err = apply(strings.TrimSuffix(e.Op, "="), old, v, e.Rest); err != nil {
			return 0, err
		}
	}
	if err := ev.store(lv, v); err != nil {
		return 0, err
	}
	return v, nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func isName(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isAlnum(s[i]) && s[i] != '_' {
			return false
		}
	}
	return true
}

// ParseNumber converts an arithmetic literal: decimal, 0x hex, leading-zero
// octal or base#digits with bases 2 through 64.
func ParseNumber(s string) (int64, error) {
	if s == "" {
		return 0, &Error{Msg: "syntax error: operand expected"}
	}
	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
		if s == "" {
			return 0, &Error{Msg: "syntax error: operand expected"}
		}
	}
	base := uint64(10)
	digits := s
	switch {
	case strings.Contains(s, "#"):
		i := strings.IndexByte(s, '#')
		b, err := strconv.Atoi(s[:i])
		if err != nil || b < 2 || b > 64 {
			return 0, &Error{Msg: "invalid arithmetic base", Token: s}
		}
		base = uint64(b)
		digits = s[i+1:]
		if digits == "" {
			return 0, &Error{Msg: "invalid integer constant", Token: s}
		}
	case len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X'):
		base = 16
		digits = s[2:]
		if digits == "" {
			return 0, &Error{Msg: "invalid integer constant", Token: s}
		}
	case len(s) > 1 && s[0] == '0':
		base = 8
		digits = s[1:]
	}
	var n uint64
	for i := 0; i < len(digits); i++ {
		d, ok := digitValue(digits[i], base)
		if !ok {
			return 0, &Error{Msg: "invalid number", Token: s}
		}
		if d >= base {
			return 0, &Error{Msg: "value too great for base", Token: s}
		}
		n = n*base + d
	}
	if neg {
		return -int64(n), nil
	}
	return int64(n), nil
}

func digitValue(c byte, base uint64) (uint64, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0'), true
	case c >= 'a' && c <= 'z':
		return uint64(c-'a') + 10, true
	case c >= 'A' && c <= 'Z':
		if base <= 36 {
			return uint64(c-'A') + 10, true
		}
		return uint64(c-'A') + 36, true
	case c == '@':
		return 62, true
	case c == '_':
		return 63, true
	}
	return 0, false
}

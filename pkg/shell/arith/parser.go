package arith

import "strings"

type parser struct {
	src  string
	toks []token
	pos  int
}

// Parse parses src into an expression tree. It never fails; malformed
// input yields SyntaxError nodes. Empty input parses as zero.
func Parse(src string) Expr {
	p := &parser{src: src, toks: lex(src)}
	if p.peek().kind == tEOF {
		return &Number{Text: "0"}
	}
	e := p.comma()
	if t := p.peek(); t.kind != tEOF {
		return &SyntaxError{Msg: "syntax error in expression", Token: p.rest(t)}
	}
	return e
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tOp && t.text == op
}

func (p *parser) rest(t token) string {
	if t.pos >= len(p.src) {
		return ""
	}
	return strings.TrimSpace(p.src[t.pos:])
}

func (p *parser) comma() Expr {
	x := p.assign()
	for p.isOp(",") {
		p.next()
		rest := p.rest(p.peek())
		y := p.assign()
		x = &Binary{Op: ",", X: x, Y: y, Rest: rest}
	}
	return x
}

var assignOps = map[string]bool{
	"=": true, "+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
	"<<=": true, ">>=": true, "&=": true, "^=": true, "|=": true,
}

func (p *parser) assign() Expr {
	x := p.ternary()
	t := p.peek()
	if t.kind == tOp && assignOps[t.text] {
		p.next()
		y := p.assign()
		return &Assignment{Op: t.text, Target: x, Value: y, Rest: p.rest(t)}
	}
	return x
}

func (p *parser) ternary() Expr {
	cond := p.binary(0)
	if !p.isOp("?") {
		return cond
	}
	p.next()
	then := p.assign()
	if !p.isOp(":") {
		return &SyntaxError{Msg: "`:' expected for conditional expression", Token: p.rest(p.peek())}
	}
	p.next()
	els := p.assign()
	return &Ternary{Cond: cond, Then: then, Else: els}
}

// binary operator levels, lowest precedence first
var levels = [][]string{
	{"||"},
	{"&&"},
	{"|"},
	{"^"},
	{"&"},
	{"==", "!="},
	{"<", "<=", ">", ">="},
	{"<<", ">>"},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) binary(level int) Expr {
	if level >= len(levels) {
		return p.power()
	}
	x := p.binary(level + 1)
	for {
		t := p.peek()
		if t.kind != tOp || !inLevel(levels[level], t.text) {
			return x
		}
		p.next()
		operand := p.peek()
		var y Expr
		if !startsOperand(operand) {
			y = &SyntaxError{Msg: "syntax error: operand expected", Token: p.rest(t)}
		} else {
			y = p.binary(level + 1)
		}
		x = &Binary{Op: t.text, X: x, Y: y, Rest: p.rest(operand)}
	}
}

func inLevel(ops []string, op string) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func startsOperand(t token) bool {
	switch t.kind {
	case tNumber, tIdent, tParam, tCmd:
		return true
	case tOp:
		switch t.text {
		case "(", "+", "-", "!", "~", "++", "--":
			return true
		}
	}
	return false
}

func (p *parser) power() Expr {
	x := p.unary()
	if p.isOp("**") {
		t := p.next()
		operand := p.peek()
		if !startsOperand(operand) {
			return &Binary{Op: "**", X: x, Y: &SyntaxError{Msg: "syntax error: operand expected", Token: p.rest(t)}}
		}
		y := p.power()
		return &Binary{Op: "**", X: x, Y: y, Rest: p.rest(operand)}
	}
	return x
}

func (p *parser) unary() Expr {
	t := p.peek()
	if t.kind == tOp {
		switch t.text {
		case "++", "--":
			p.next()
			return &Unary{Op: t.text, X: p.unary()}
		case "+", "-", "!", "~":
			p.next()
			if !startsOperand(p.peek()) {
				return &SyntaxError{Msg: "syntax error: operand expected", Token: p.rest(p.peek())}
			}
			return &Unary{Op: t.text, X: p.unary()}
		}
	}
	return p.postfix()
}

func (p *parser) postfix() Expr {
	x := p.primary()
	if _, bad := x.(*SyntaxError); bad {
		return x
	}
	t := p.peek()
	if t.kind == tOp && (t.text == "++" || t.text == "--") {
		p.next()
		return &Unary{Op: t.text, X: x, Postfix: true}
	}
	return x
}

func (p *parser) primary() Expr {
	t := p.peek()
	var x Expr
	switch t.kind {
	case tNumber:
		p.next()
		x = &Number{Text: t.text}
	case tIdent:
		p.next()
		x = p.subscript(t.text)
	case tParam:
		p.next()
		x = &ParamSubst{Src: t.text}
	case tCmd:
		p.next()
		src := t.text
		if strings.HasPrefix(src, "$(") {
			src = strings.TrimSuffix(src[2:], ")")
		} else {
			src = strings.TrimSuffix(src[1:], "`")
		}
		x = &CommandSubst{Src: src}
	case tOp:
		if t.text == "(" {
			p.next()
			inner := p.comma()
			if !p.isOp(")") {
				return &SyntaxError{Msg: "missing `)'", Token: p.rest(p.peek())}
			}
			p.next()
			return &Group{X: inner}
		}
		return &SyntaxError{Msg: "syntax error: operand expected", Token: p.rest(t)}
	case tEOF:
		return &SyntaxError{Msg: "syntax error: operand expected", Token: p.rest(t)}
	default:
		p.next()
		return &SyntaxError{Msg: "syntax error: invalid arithmetic operator", Token: p.rest(t)}
	}
	return p.concat(x)
}

// concat collects primaries that directly follow x with no whitespace.
func (p *parser) concat(x Expr) Expr {
	parts := []Expr{x}
	for {
		t := p.peek()
		if t.spaced {
			break
		}
		var next Expr
		switch t.kind {
		case tNumber:
			next = &Number{Text: t.text}
		case tIdent:
			next = &Variable{Name: t.text}
		case tParam:
			next = &ParamSubst{Src: t.text}
		case tCmd:
			next = &CommandSubst{Src: strings.TrimSuffix(strings.TrimPrefix(t.text, "$("), ")")}
		}
		if next == nil {
			break
		}
		p.next()
		if v, ok := next.(*Variable); ok {
			next = p.subscript(v.Name)
		}
		parts = append(parts, next)
	}
	if len(parts) == 1 {
		return x
	}
	return &Concat{Parts: parts}
}

func (p *parser) subscript(name string) Expr {
	if !p.isOp("[") || p.peek().spaced {
		return &Variable{Name: name}
	}
	open := p.next()
	depth := 0
	end := -1
	for j := open.pos; j < len(p.src) && end < 0; j++ {
		switch p.src[j] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				end = j
			}
		}
	}
	if end < 0 {
		return &SyntaxError{Msg: "syntax error: `]' expected", Token: p.rest(open)}
	}
	for p.peek().kind != tEOF && p.peek().pos <= end {
		p.next()
	}
	idxSrc := strings.TrimSpace(p.src[open.pos+1 : end])
	return &ArrayElement{Name: name, Index: Parse(idxSrc), IndexSrc: idxSrc}
}

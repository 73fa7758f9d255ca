package syntax

import (
	"strings"

	"github.com/rcarmo/sandsh/pkg/shell/arith"
)

func (p *parser) ifClause() (*IfClause, error) {
	p.next() // if
	cl := &IfClause{}
	var err error
	if cl.Cond, err = p.condList("then"); err != nil {
		return nil, err
	}
	if cl.Then, err = p.body("elif", "else", "fi"); err != nil {
		return nil, err
	}
	for guard := 0; guard < maxLoop && p.isKeyword("elif"); guard++ {
		p.next()
		el := &Elif{}
		if el.Cond, err = p.condList("then"); err != nil {
			return nil, err
		}
		if el.Then, err = p.body("elif", "else", "fi"); err != nil {
			return nil, err
		}
		cl.Elifs = append(cl.Elifs, el)
	}
	if p.isKeyword("else") {
		p.next()
		if cl.Else, err = p.body("fi"); err != nil {
			return nil, err
		}
	}
	if err := p.expectWord("fi"); err != nil {
		return nil, err
	}
	return cl, nil
}

// condList parses a non-empty list terminated by the keyword end, which is
// consumed.
func (p *parser) condList(end string) ([]*Statement, error) {
	stmts, err := p.list([]string{end})
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 || !p.isKeyword(end) {
		return nil, p.unexpected(p.peek())
	}
	p.next()
	return stmts, nil
}

// body parses a non-empty list ending before one of the stop keywords. An
// empty body is reported against the token that follows it.
func (p *parser) body(stop ...string) ([]*Statement, error) {
	stmts, err := p.list(stop)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return nil, p.unexpected(p.peek())
	}
	return stmts, nil
}

func (p *parser) forClause() (Command, error) {
	kw := p.next()
	line := kw.Line
	if p.peek().Kind == ArithCmd && kw.Text == "for" {
		return p.cStyleFor(line)
	}
	name := p.peek()
	if name.Kind != WordTok || !IsName(name.Text) {
		return nil, p.unexpected(name)
	}
	p.next()
	cl := &ForClause{Var: name.Text, Select: kw.Text == "select", Line: line}

	// tentatively look past newlines for "in"; without it the newlines are
	// left for the separator handling below
	save := p.pos
	p.skipNewlines()
	if p.isWord("in") {
		p.next()
		cl.InList = true
		for guard := 0; guard < maxLoop; guard++ {
			t := p.peek()
			if t.Kind != WordTok && t.Kind != Keyword && t.Kind != IONumber {
				break
			}
			p.next()
			cl.Items = append(cl.Items, ParseWord(t.Text))
		}
	} else {
		p.pos = save
	}
	switch p.peek().Kind {
	case Semi, Newline:
		p.next()
	}
	p.skipNewlines()
	var err error
	if cl.Body, err = p.doGroup(); err != nil {
		return nil, err
	}
	return cl, nil
}

// doGroup parses "do LIST done", or "{ LIST }" as bash allows.
func (p *parser) doGroup() ([]*Statement, error) {
	end := "done"
	switch {
	case p.isWord("do"):
	case p.isWord("{"):
		end = "}"
	default:
		return nil, p.unexpected(p.peek())
	}
	p.next()
	stmts, err := p.body(end)
	if err != nil {
		return nil, err
	}
	if err := p.expectWord(end); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *parser) cStyleFor(line int) (*CStyleFor, error) {
	t := p.next()
	parts := splitArithHeader(t.Text)
	if len(parts) != 3 {
		return nil, &SyntaxError{Line: t.Line, Col: t.Col, Msg: "syntax error: arithmetic expression required"}
	}
	cl := &CStyleFor{Line: line}
	exprs := []*arith.Expr{&cl.Init, &cl.Cond, &cl.Post}
	for i, src := range parts {
		if strings.TrimSpace(src) != "" {
			*exprs[i] = arith.Parse(src)
		}
	}
	if p.peek().Kind == Semi {
		p.next()
	}
	p.skipNewlines()
	if !p.isWord("do") && !p.isWord("{") {
		return nil, p.unexpected(p.peek())
	}
	p.next()
	stmts, err := p.list([]string{"done", "}"})
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return nil, p.unexpected(p.peek())
	}
	// the body may close with done or } interchangeably
	if !p.isWord("done") && !p.isWord("}") {
		return nil, p.unexpected(p.peek())
	}
	p.next()
	cl.Body = stmts
	return cl, nil
}

// splitArithHeader splits "init; cond; post" at top-level semicolons.
func splitArithHeader(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ';':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

func (p *parser) whileClause() (*WhileClause, error) {
	kw := p.next()
	cl := &WhileClause{Until: kw.Text == "until"}
	var err error
	if cl.Cond, err = p.condList("do"); err != nil {
		return nil, err
	}
	if cl.Body, err = p.body("done"); err != nil {
		return nil, err
	}
	if err := p.expectWord("done"); err != nil {
		return nil, err
	}
	return cl, nil
}

func (p *parser) caseClause() (*CaseClause, error) {
	p.next() // case
	w := p.peek()
	if w.Kind != WordTok && w.Kind != Keyword && w.Kind != IONumber {
		return nil, p.unexpected(w)
	}
	p.next()
	cl := &CaseClause{Word: ParsePattern(w.Text)}
	p.skipNewlines()
	if err := p.expectWord("in"); err != nil {
		return nil, err
	}
	terminated := true
	for guard := 0; guard < maxLoop; guard++ {
		p.skipNewlines()
		if p.isKeyword("esac") {
			p.next()
			return cl, nil
		}
		if !terminated {
			return nil, p.unexpected(p.peek())
		}
		item := &CaseItem{Term: EOF}
		if p.peek().Kind == LParen {
			p.next()
		}
		for pg := 0; pg < maxLoop; pg++ {
			t := p.peek()
			if t.Kind != WordTok && t.Kind != Keyword && t.Kind != IONumber {
				return nil, p.unexpected(t)
			}
			p.next()
			item.Patterns = append(item.Patterns, ParsePattern(t.Text))
			if p.peek().Kind != Pipe {
				break
			}
			p.next()
		}
		if p.peek().Kind != RParen {
			return nil, p.unexpected(p.peek())
		}
		p.next()
		var err error
		item.Body, err = p.list([]string{"esac"}, DSemi, SemiAmp, DSemiAmp, RParen)
		if err != nil {
			return nil, err
		}
		switch k := p.peek().Kind; k {
		case DSemi, SemiAmp, DSemiAmp:
			p.next()
			item.Term = k
			terminated = true
		case RParen:
			return nil, p.unexpected(p.peek())
		default:
			terminated = false
		}
		cl.Items = append(cl.Items, item)
	}
	return nil, p.unexpected(p.peek())
}

func (p *parser) subshell() (*Subshell, error) {
	p.next() // (
	stmts, err := p.list(nil, RParen)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 || p.peek().Kind != RParen {
		return nil, p.unexpected(p.peek())
	}
	p.next()
	return &Subshell{Body: stmts}, nil
}

func (p *parser) group() (*Group, error) {
	p.next() // {
	stmts, err := p.body("}")
	if err != nil {
		return nil, err
	}
	if err := p.expectWord("}"); err != nil {
		return nil, err
	}
	return &Group{Body: stmts}, nil
}

func (p *parser) functionDef() (*FunctionDef, error) {
	line := p.peek().Line
	start := p.peek().Pos
	if p.isKeyword("function") {
		p.next()
		name := p.peek()
		if (name.Kind != WordTok && name.Kind != Keyword) || !IsFuncName(name.Text) {
			return nil, p.unexpected(name)
		}
		p.next()
		if p.peek().Kind == LParen && p.peekAt(1).Kind == RParen {
			p.next()
			p.next()
		}
		return p.functionBody(name.Text, line, start)
	}
	name := p.next()
	p.next() // (
	p.next() // )
	return p.functionBody(name.Text, line, start)
}

func (p *parser) functionBody(name string, line, start int) (*FunctionDef, error) {
	p.skipNewlines()
	var body Command
	var err error
	t := p.peek()
	switch {
	case p.isWord("{"):
		body, err = p.group()
	case t.Kind == LParen:
		body, err = p.subshell()
	case t.Kind == Keyword && t.Text == "if":
		body, err = p.ifClause()
	case t.Kind == Keyword && (t.Text == "for" || t.Text == "select"):
		body, err = p.forClause()
	case t.Kind == Keyword && (t.Text == "while" || t.Text == "until"):
		body, err = p.whileClause()
	case t.Kind == Keyword && t.Text == "case":
		body, err = p.caseClause()
	case t.Kind == Keyword && t.Text == "[[":
		body, err = p.condCommand()
	case t.Kind == ArithCmd:
		p.next()
		body = &ArithCommand{Src: t.Text, Expr: arith.Parse(t.Text), Line: t.Line}
	default:
		return nil, p.unexpected(t)
	}
	if err != nil {
		return nil, err
	}
	fn := &FunctionDef{Name: name, Body: body, Line: line}
	for guard := 0; guard < maxLoop; guard++ {
		t := p.peek()
		if t.Kind != IONumber && t.Kind != IOVarName && !t.Kind.IsRedirect() {
			break
		}
		r, err := p.redirect()
		if err != nil {
			return nil, err
		}
		fn.Redirs = append(fn.Redirs, r)
	}
	if end := p.toks[p.pos-1].End; end >= start && end <= len(p.src) {
		fn.Source = p.src[start:end]
	}
	return fn, nil
}

var condUnaryOps = map[string]bool{
	"-a": true, "-b": true, "-c": true, "-d": true, "-e": true, "-f": true, "-g": true,
	"-h": true, "-k": true, "-p": true, "-r": true, "-s": true, "-t": true, "-u": true,
	"-w": true, "-x": true, "-G": true, "-L": true, "-N": true, "-O": true, "-S": true,
	"-z": true, "-n": true, "-o": true, "-v": true, "-R": true,
}

var condBinaryOps = map[string]bool{
	"==": true, "=": true, "!=": true, "=~": true, "<": true, ">": true,
	"-eq": true, "-ne": true, "-lt": true, "-le": true, "-gt": true, "-ge": true,
	"-nt": true, "-ot": true, "-ef": true,
}

func (p *parser) condCommand() (*CondCommand, error) {
	kw := p.next() // [[
	p.skipNewlines()
	if p.isKeyword("]]") {
		return nil, p.unexpected(p.peek())
	}
	expr, err := p.condOr()
	if err != nil {
		return nil, err
	}
	p.skipNewlines()
	if !p.isWord("]]") {
		return nil, p.unexpected(p.peek())
	}
	p.next()
	return &CondCommand{Expr: expr, Line: kw.Line}, nil
}

func (p *parser) condOr() (CondExpr, error) {
	x, err := p.condAnd()
	if err != nil {
		return nil, err
	}
	for guard := 0; guard < maxLoop; guard++ {
		p.skipNewlines()
		if p.peek().Kind != OrOr {
			break
		}
		p.next()
		p.skipNewlines()
		y, err := p.condAnd()
		if err != nil {
			return nil, err
		}
		x = &CondBinary{Op: "||", X: x, Y: y}
	}
	return x, nil
}

func (p *parser) condAnd() (CondExpr, error) {
	x, err := p.condNot()
	if err != nil {
		return nil, err
	}
	for guard := 0; guard < maxLoop; guard++ {
		p.skipNewlines()
		if p.peek().Kind != AndAnd {
			break
		}
		p.next()
		p.skipNewlines()
		y, err := p.condNot()
		if err != nil {
			return nil, err
		}
		x = &CondBinary{Op: "&&", X: x, Y: y}
	}
	return x, nil
}

func (p *parser) condNot() (CondExpr, error) {
	if p.isWord("!") {
		p.next()
		x, err := p.condNot()
		if err != nil {
			return nil, err
		}
		return &CondNot{X: x}, nil
	}
	return p.condPrimary()
}

func (p *parser) condWord() (Token, bool) {
	t := p.peek()
	switch t.Kind {
	case WordTok, Keyword, IONumber:
		if t.Text == "]]" {
			return t, false
		}
		p.next()
		return t, true
	}
	return t, false
}

func (p *parser) condPrimary() (CondExpr, error) {
	if p.peek().Kind == LParen {
		p.next()
		x, err := p.condOr()
		if err != nil {
			return nil, err
		}
		if p.peek().Kind != RParen {
			return nil, p.unexpected(p.peek())
		}
		p.next()
		return &CondParen{X: x}, nil
	}
	first, ok := p.condWord()
	if !ok {
		return nil, p.unexpected(first)
	}
	if condUnaryOps[first.Text] {
		if nt := p.peek(); (nt.Kind == WordTok || nt.Kind == Keyword) && nt.Text != "]]" {
			p.next()
			return &CondUnary{Op: first.Text, X: &CondWord{Word: ParsePattern(nt.Text)}}, nil
		}
	}
	x := &CondWord{Word: ParsePattern(first.Text)}
	t := p.peek()
	var op string
	switch {
	case t.Kind == Less:
		op = "<"
	case t.Kind == Great:
		op = ">"
	case (t.Kind == WordTok || t.Kind == Keyword) && condBinaryOps[t.Text]:
		op = t.Text
	default:
		return x, nil
	}
	p.next()
	y, ok := p.condWord()
	if !ok {
		return nil, p.unexpected(y)
	}
	return &CondBinary{Op: op, X: x, Y: &CondWord{Word: ParsePattern(y.Text)}}, nil
}

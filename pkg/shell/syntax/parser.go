package syntax

import (
	"fmt"
	"strings"

	"github.com/rcarmo/sandsh/pkg/shell/arith"
)

// maxLoop bounds every list-building loop in the parser.
const maxLoop = 1 << 20

var declBuiltins = map[string]bool{
	"declare": true, "typeset": true, "local": true, "export": true, "readonly": true,
}

type parser struct {
	src  string
	toks []Token
	pos  int
}

// Parse parses a whole script. A syntax error does not stop parsing: the
// statements of the line it occurs on are replaced by a placeholder
// carrying the error, and parsing resumes at the next line. The first such
// error is also returned.
func Parse(src string) (*Script, error) {
	toks, _ := Tokenize(src)
	p := &parser{src: src, toks: toks}
	script := &Script{}
	var first error
	lineStart := 0
	fail := func(serr *SyntaxError, line int) {
		if first == nil {
			first = serr
		}
		script.Stmts = append(script.Stmts[:lineStart], &Statement{Err: serr, Line: line})
		lineStart = len(script.Stmts)
	}
	for guard := 0; guard < maxLoop; guard++ {
		before := p.pos
		p.skipNewlines()
		if p.pos > before {
			lineStart = len(script.Stmts)
		}
		if p.peek().Kind == EOF {
			break
		}
		start := p.pos
		stmt, err := p.statement()
		if err != nil {
			serr := asSyntaxError(err, p.peek())
			fail(serr, serr.Line)
			p.recover(start)
			continue
		}
		script.Stmts = append(script.Stmts, stmt)
		if !p.endStatement() {
			tok := p.peek()
			fail(p.unexpected(tok), tok.Line)
			p.recover(p.pos)
		}
	}
	return script, first
}

func asSyntaxError(err error, tok Token) *SyntaxError {
	if se, ok := err.(*SyntaxError); ok {
		return se
	}
	return &SyntaxError{Line: tok.Line, Col: tok.Col, Msg: err.Error()}
}

// recover skips to the token after the next newline, always making
// progress past start.
func (p *parser) recover(start int) {
	if p.pos <= start {
		p.pos = start + 1
	}
	for p.pos < len(p.toks) {
		k := p.toks[p.pos].Kind
		if k == EOF {
			return
		}
		p.pos++
		if k == Newline {
			return
		}
	}
	p.pos = len(p.toks) - 1
}

func (p *parser) peek() Token {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) peekAt(n int) Token {
	if p.pos+n < len(p.toks) {
		return p.toks[p.pos+n]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) next() Token {
	t := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) skipNewlines() {
	for p.peek().Kind == Newline {
		p.next()
	}
}

// isWord reports whether the current token is a word or keyword with the
// given text.
func (p *parser) isWord(text string) bool {
	t := p.peek()
	return (t.Kind == WordTok || t.Kind == Keyword) && t.Text == text
}

func (p *parser) isKeyword(text string) bool {
	t := p.peek()
	return t.Kind == Keyword && t.Text == text
}

func (p *parser) unexpected(t Token) *SyntaxError {
	switch t.Kind {
	case EOF:
		return &SyntaxError{Line: t.Line, Col: t.Col, Msg: "syntax error: unexpected end of file"}
	case Error:
		return &SyntaxError{Line: t.Line, Col: t.Col, Msg: t.Text}
	}
	return &SyntaxError{Line: t.Line, Col: t.Col, Msg: fmt.Sprintf("syntax error near unexpected token `%s'", t.Display())}
}

func (p *parser) expectWord(text string) error {
	if !p.isWord(text) {
		return p.unexpected(p.peek())
	}
	p.next()
	return nil
}

// endStatement consumes the separator after a top-level statement.
func (p *parser) endStatement() bool {
	switch p.peek().Kind {
	case Semi, Amp:
		p.next()
		return true
	case Newline, EOF:
		return true
	}
	return false
}

// statement parses one and-or list including a trailing & marker.
func (p *parser) statement() (*Statement, error) {
	first := p.peek()
	stmt := &Statement{Line: first.Line}
	pl, err := p.pipeline()
	if err != nil {
		return nil, err
	}
	stmt.Pipelines = append(stmt.Pipelines, pl)
	for guard := 0; guard < maxLoop; guard++ {
		k := p.peek().Kind
		if k != AndAnd && k != OrOr {
			break
		}
		p.next()
		p.skipNewlines()
		pl, err := p.pipeline()
		if err != nil {
			return nil, err
		}
		stmt.Ops = append(stmt.Ops, k)
		stmt.Pipelines = append(stmt.Pipelines, pl)
	}
	if p.pos > 0 {
		last := p.toks[p.pos-1]
		if last.End >= first.Pos && last.End <= len(p.src) {
			stmt.Source = strings.TrimSpace(p.src[first.Pos:last.End])
		}
	}
	if p.peek().Kind == Amp {
		stmt.Background = true
	}
	return stmt, nil
}

func (p *parser) pipeline() (*Pipeline, error) {
	pl := &Pipeline{}
	if p.isKeyword("time") {
		p.next()
		pl.Timed = true
		if p.isWord("-p") {
			p.next()
		}
	}
	for p.isKeyword("!") {
		p.next()
		pl.Negated = !pl.Negated
	}
	for guard := 0; guard < maxLoop; guard++ {
		cmd, err := p.command()
		if err != nil {
			return nil, err
		}
		pl.Cmds = append(pl.Cmds, cmd)
		k := p.peek().Kind
		if k != Pipe && k != PipeAmp {
			break
		}
		p.next()
		pl.PipeStderr = append(pl.PipeStderr, k == PipeAmp)
		p.skipNewlines()
	}
	return pl, nil
}

func (p *parser) command() (Command, error) {
	t := p.peek()
	switch t.Kind {
	case Keyword:
		var cmd Command
		var err error
		switch t.Text {
		case "if":
			cmd, err = p.ifClause()
		case "for", "select":
			cmd, err = p.forClause()
		case "while", "until":
			cmd, err = p.whileClause()
		case "case":
			cmd, err = p.caseClause()
		case "{":
			cmd, err = p.group()
		case "[[":
			cmd, err = p.condCommand()
		case "function":
			return p.functionDef()
		default:
			return nil, p.unexpected(t)
		}
		if err != nil {
			return nil, err
		}
		return cmd, p.compoundRedirs(cmd)
	case LParen:
		cmd, err := p.subshell()
		if err != nil {
			return nil, err
		}
		return cmd, p.compoundRedirs(cmd)
	case ArithCmd:
		p.next()
		cmd := &ArithCommand{Src: t.Text, Expr: arith.Parse(t.Text), Line: t.Line}
		return cmd, p.compoundRedirs(cmd)
	case WordTok:
		if p.peekAt(1).Kind == LParen && p.peekAt(2).Kind == RParen && IsFuncName(t.Text) {
			return p.functionDef()
		}
		return p.simpleCommand()
	case IONumber, IOVarName:
		return p.simpleCommand()
	}
	if t.Kind.IsRedirect() {
		return p.simpleCommand()
	}
	return nil, p.unexpected(t)
}

// IsFuncName reports whether s can name a function.
func IsFuncName(s string) bool {
	if s == "" || IsReserved(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '$', '\'', '"', '`', '=', '\\', '/', '(', ')', '<', '>', ';', '&', '|', ' ':
			return false
		}
	}
	return true
}

func (p *parser) simpleCommand() (*SimpleCommand, error) {
	cmd := &SimpleCommand{Line: p.peek().Line}
	decl := false
	for guard := 0; guard < maxLoop; guard++ {
		t := p.peek()
		switch {
		case t.Kind == WordTok || (t.Kind == Keyword && cmd.Name != nil):
			p.next()
			if cmd.Name == nil {
				if as := ParseAssignment(t.Text); as != nil {
					cmd.Assigns = append(cmd.Assigns, as)
					continue
				}
				cmd.Name = ParseWord(t.Text)
				decl = declBuiltins[t.Text]
				continue
			}
			if decl {
				if as := ParseAssignment(t.Text); as != nil {
					if cmd.DeclAssigns == nil {
						cmd.DeclAssigns = map[int]*Assignment{}
					}
					cmd.DeclAssigns[len(cmd.Args)] = as
				}
			}
			cmd.Args = append(cmd.Args, ParseWord(t.Text))
		case t.Kind == IONumber || t.Kind == IOVarName || t.Kind.IsRedirect():
			r, err := p.redirect()
			if err != nil {
				return nil, err
			}
			cmd.Redirs = append(cmd.Redirs, r)
		default:
			if t.Kind == Error || (cmd.Name == nil && len(cmd.Assigns) == 0 && len(cmd.Redirs) == 0) {
				return nil, p.unexpected(t)
			}
			return cmd, nil
		}
	}
	return cmd, nil
}

func (p *parser) redirect() (*Redirect, error) {
	r := &Redirect{N: -1}
	t := p.peek()
	switch t.Kind {
	case IONumber:
		p.next()
		fmt.Sscan(t.Text, &r.N)
	case IOVarName:
		p.next()
		r.VarName = t.Text[1 : len(t.Text)-1]
	}
	op := p.next()
	if !op.Kind.IsRedirect() {
		return nil, p.unexpected(op)
	}
	r.Op = op.Kind
	target := p.peek()
	if target.Kind != WordTok && target.Kind != Keyword && target.Kind != IONumber {
		return nil, p.unexpected(target)
	}
	p.next()
	r.Target = ParseWord(target.Text)
	if r.Op == DLess || r.Op == DLessDash {
		if target.HeredocQuoted {
			r.Heredoc = &Word{Parts: []WordPart{&SingleQuoted{Value: target.Heredoc}}, Raw: target.Heredoc}
		} else {
			r.Heredoc = ParseHeredoc(target.Heredoc)
		}
	}
	return r, nil
}

func (p *parser) compoundRedirs(cmd Command) error {
	var list *[]*Redirect
	switch c := cmd.(type) {
	case *IfClause:
		list = &c.Redirs
	case *ForClause:
		list = &c.Redirs
	case *CStyleFor:
		list = &c.Redirs
	case *WhileClause:
		list = &c.Redirs
	case *CaseClause:
		list = &c.Redirs
	case *Subshell:
		list = &c.Redirs
	case *Group:
		list = &c.Redirs
	case *ArithCommand:
		list = &c.Redirs
	case *CondCommand:
		list = &c.Redirs
	default:
		return nil
	}
	for guard := 0; guard < maxLoop; guard++ {
		t := p.peek()
		if t.Kind != IONumber && t.Kind != IOVarName && !t.Kind.IsRedirect() {
			break
		}
		r, err := p.redirect()
		if err != nil {
			return err
		}
		*list = append(*list, r)
	}
	return nil
}

// list parses statements until one of the stop words (as keywords) or a
// stop token kind is reached.
func (p *parser) list(stopWords []string, stopKinds ...TokenKind) ([]*Statement, error) {
	var stmts []*Statement
	for guard := 0; guard < maxLoop; guard++ {
		p.skipNewlines()
		t := p.peek()
		if t.Kind == EOF || t.Kind == Error {
			return stmts, nil
		}
		if t.Kind == Keyword && contains(stopWords, t.Text) {
			return stmts, nil
		}
		if containsKind(stopKinds, t.Kind) {
			return stmts, nil
		}
		before := p.pos
		stmt, err := p.statement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		switch p.peek().Kind {
		case Semi, Amp, Newline:
			p.next()
		case EOF:
		default:
			if !containsKind(stopKinds, p.peek().Kind) && !(p.peek().Kind == Keyword && contains(stopWords, p.peek().Text)) {
				return nil, p.unexpected(p.peek())
			}
		}
		if p.pos == before {
			break
		}
	}
	return stmts, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsKind(list []TokenKind, k TokenKind) bool {
	for _, v := range list {
		if v == k {
			return true
		}
	}
	return false
}

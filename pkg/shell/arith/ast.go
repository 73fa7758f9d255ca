// Package arith parses and evaluates shell arithmetic expressions as used
// by $(( )), (( )), let and the C-style for loop.
//
// Parsing never fails: malformed input produces SyntaxError nodes which
// only report an error if evaluation reaches them.
package arith

import "fmt"

// Expr is an arithmetic expression node.
type Expr interface {
	exprNode()
}

func (*Number) exprNode()       {}
func (*Variable) exprNode()     {}
func (*Binary) exprNode()       {}
func (*Unary) exprNode()        {}
func (*Ternary) exprNode()      {}
func (*Assignment) exprNode()   {}
func (*ArrayElement) exprNode() {}
func (*CommandSubst) exprNode() {}
func (*ParamSubst) exprNode()   {}
func (*Group) exprNode()        {}
func (*Concat) exprNode()       {}
func (*SyntaxError) exprNode()  {}

// Number is a literal as written; it is converted when evaluated.
type Number struct {
	Text string
}

type Variable struct {
	Name string
}

// Binary is a binary operation. Rest is the source text from the right
// operand onward, used in diagnostics.
type Binary struct {
	Op   string
	X, Y Expr
	Rest string
}

// Unary is a prefix or postfix operation. ++ and -- require an lvalue.
type Unary struct {
	Op      string
	X       Expr
	Postfix bool
}

type Ternary struct {
	Cond, Then, Else Expr
}

// Assignment is target op value where op is = or a compound operator.
type Assignment struct {
	Op     string
	Target Expr
	Value  Expr
	Rest   string
}

// ArrayElement is name[index]. IndexSrc keeps the subscript text for
// associative arrays.
type ArrayElement struct {
	Name     string
	Index    Expr
	IndexSrc string
}

// CommandSubst is $(...) or `...` inside an expression.
type CommandSubst struct {
	Src string
}

// ParamSubst is $name or ${...} inside an expression.
type ParamSubst struct {
	Src string
}

type Group struct {
	X Expr
}

// Concat is a run of primaries written without whitespace, such as
// ${a}${b} or x$i. Its text may name a variable.
type Concat struct {
	Parts []Expr
}

// SyntaxError is a deferred parse error.
type SyntaxError struct {
	Msg   string
	Token string
}

// Error is an evaluation failure.
type Error struct {
	Msg   string
	Token string
}

func (e *Error) Error() string {
	if e.Token == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s (error token is \"%s\")", e.Msg, e.Token)
}

package syntax

import (
	"fmt"

	"github.com/rcarmo/sandsh/pkg/shell/arith"
)

// SyntaxError describes a parse failure. Errors found inside a statement
// are attached to that statement and only reported when it is reached.
type SyntaxError struct {
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Script is a parsed program.
type Script struct {
	Stmts []*Statement
}

// Statement is an and-or list of pipelines.
type Statement struct {
	Pipelines  []*Pipeline
	Ops        []TokenKind // AndAnd or OrOr, len(Pipelines)-1
	Background bool
	Err        *SyntaxError
	Source     string
	Line       int
}

// Pipeline is a sequence of commands joined by | or |&.
type Pipeline struct {
	Cmds       []Command
	PipeStderr []bool // entry i set when command i is followed by |&
	Negated    bool
	Timed      bool
}

// Command is one of the command node types below.
type Command interface {
	commandNode()
}

func (*SimpleCommand) commandNode() {}
func (*FunctionDef) commandNode()   {}
func (*IfClause) commandNode()      {}
func (*ForClause) commandNode()     {}
func (*CStyleFor) commandNode()     {}
func (*WhileClause) commandNode()   {}
func (*CaseClause) commandNode()    {}
func (*Subshell) commandNode()      {}
func (*Group) commandNode()         {}
func (*ArithCommand) commandNode()  {}
func (*CondCommand) commandNode()   {}

// SimpleCommand is a command name with arguments, prefix assignments and
// redirections. DeclAssigns holds the arguments of declaration builtins
// (declare, local, export, ...) that have assignment form, keyed by their
// index in Args.
type SimpleCommand struct {
	Assigns     []*Assignment
	Name        *Word
	Args        []*Word
	DeclAssigns map[int]*Assignment
	Redirs      []*Redirect
	Line        int
}

// Assignment is name=value, name+=value, name[k]=value or name=(...).
type Assignment struct {
	Name    string
	Index   *Word
	Append  bool
	Value   *Word
	IsArray bool
	Elems   []*ArrayElem
}

// ArrayElem is one element of an array literal; Key is set for [k]=v.
type ArrayElem struct {
	Key   *Word
	Value *Word
}

// Redirect is a single I/O redirection.
type Redirect struct {
	Op      TokenKind
	N       int // explicit descriptor, -1 when absent
	VarName string
	Target  *Word

	// heredoc body; nil for other operators
	Heredoc *Word
}

// FunctionDef binds a function name to a compound command.
type FunctionDef struct {
	Name   string
	Body   Command
	Redirs []*Redirect
	Line   int
	Source string
}

// Elif is one elif branch of an IfClause.
type Elif struct {
	Cond []*Statement
	Then []*Statement
}

type IfClause struct {
	Cond   []*Statement
	Then   []*Statement
	Elifs  []*Elif
	Else   []*Statement
	Redirs []*Redirect
}

// ForClause is for NAME [in WORDS]; do ...; done. Select is set for the
// select variant.
type ForClause struct {
	Var    string
	Items  []*Word
	InList bool
	Select bool
	Body   []*Statement
	Redirs []*Redirect
	Line   int
}

// CStyleFor is for ((init; cond; post)). Nil expressions are empty.
type CStyleFor struct {
	Init   arith.Expr
	Cond   arith.Expr
	Post   arith.Expr
	Body   []*Statement
	Redirs []*Redirect
	Line   int
}

type WhileClause struct {
	Until  bool
	Cond   []*Statement
	Body   []*Statement
	Redirs []*Redirect
}

type CaseClause struct {
	Word   *Word
	Items  []*CaseItem
	Redirs []*Redirect
}

// CaseItem is one pattern list and its body. Term is DSemi, SemiAmp or
// DSemiAmp; the last item may have EOF as its terminator.
type CaseItem struct {
	Patterns []*Word
	Body     []*Statement
	Term     TokenKind
}

type Subshell struct {
	Body   []*Statement
	Redirs []*Redirect
}

type Group struct {
	Body   []*Statement
	Redirs []*Redirect
}

type ArithCommand struct {
	Src    string
	Expr   arith.Expr
	Redirs []*Redirect
	Line   int
}

type CondCommand struct {
	Expr   CondExpr
	Redirs []*Redirect
	Line   int
}

// CondExpr is a node of a [[ ]] expression.
type CondExpr interface {
	condNode()
}

func (*CondBinary) condNode() {}
func (*CondUnary) condNode()  {}
func (*CondNot) condNode()    {}
func (*CondParen) condNode()  {}
func (*CondWord) condNode()   {}

// CondBinary covers &&, || and the binary test operators.
type CondBinary struct {
	Op   string
	X, Y CondExpr
}

type CondUnary struct {
	Op string
	X  CondExpr
}

type CondNot struct {
	X CondExpr
}

type CondParen struct {
	X CondExpr
}

type CondWord struct {
	Word *Word
}

// Word is a sequence of parts that expand and join into one or more
// fields.
type Word struct {
	Parts []WordPart
	Raw   string
}

// WordPart is one of the part types below.
type WordPart interface {
	wordPart()
}

func (*Literal) wordPart()      {}
func (*SingleQuoted) wordPart() {}
func (*DoubleQuoted) wordPart() {}
func (*Escaped) wordPart()      {}
func (*ParamExp) wordPart()     {}
func (*CmdSubst) wordPart()     {}
func (*ArithExp) wordPart()     {}
func (*Glob) wordPart()         {}
func (*BraceExp) wordPart()     {}
func (*Tilde) wordPart()        {}
func (*ProcSubst) wordPart()    {}

type Literal struct {
	Value string
}

// SingleQuoted is '...' or a decoded $'...'.
type SingleQuoted struct {
	Value  string
	Dollar bool
}

type DoubleQuoted struct {
	Parts []WordPart
}

// Escaped is a backslash-quoted character outside double quotes.
type Escaped struct {
	Value string
}

// CmdSubst is $(...) or `...`.
type CmdSubst struct {
	Src       string
	Script    *Script
	Backquote bool
}

type ArithExp struct {
	Src  string
	Expr arith.Expr
}

// Glob is an unquoted pattern fragment: *, ?, a bracket expression or an
// extended glob group.
type Glob struct {
	Pattern string
}

// BraceExp is {a,b,c} or a {x..y[..step]} sequence.
type BraceExp struct {
	Alts []*Word
	Seq  *BraceSeq
	Raw  string
}

type BraceSeq struct {
	Start, End string
	Step       int
	Chars      bool
}

// Tilde is ~ or ~user at the start of a word.
type Tilde struct {
	User string
}

// ProcSubst is <(...) or >(...).
type ProcSubst struct {
	Out    bool
	Src    string
	Script *Script
}

// ParamOpKind identifies a ${...} operator.
type ParamOpKind int

const (
	OpDefault       ParamOpKind = iota + 1 // -
	OpAssign                               // =
	OpError                                // ?
	OpAlt                                  // +
	OpRemPrefix                            // #
	OpRemLongPrefix                        // ##
	OpRemSuffix                            // %
	OpRemLongSuffix                        // %%
	OpReplace                              // /
	OpReplaceAll                           // //
	OpReplacePrefix                        // /#
	OpReplaceSuffix                        // /%
	OpUpperFirst                           // ^
	OpUpperAll                             // ^^
	OpLowerFirst                           // ,
	OpLowerAll                             // ,,
	OpSubstr                               // :offset:length
	OpTransform                            // @X
)

// ParamExp is $name or ${...}.
type ParamExp struct {
	Name  string
	Index *Word
	// IndexAll is '@' or '*' for name[@] / name[*]
	IndexAll byte
	Short    bool

	Length     bool
	Indirect   bool
	NamePrefix byte // '*' or '@' for ${!prefix*}
	Keys       bool // ${!name[@]}

	Op *ParamOp
	// Bad holds the source of an invalid expansion, reported when evaluated.
	Bad string
}

type ParamOp struct {
	Kind      ParamOpKind
	Colon     bool
	Arg       *Word
	Repl      *Word
	HasRepl   bool
	Offset    arith.Expr
	Length    arith.Expr
	HasLength bool
	Transform byte
}

package syntax_test

import (
	"testing"

	"github.com/nalgeon/be"
	"github.com/rcarmo/sandsh/pkg/shell/syntax"
)

func kinds(toks []syntax.Token) []syntax.TokenKind {
	out := make([]syntax.TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeKeywordPosition(t *testing.T) {
	toks, err := syntax.Tokenize("echo if; if x; then y; fi")
	be.Err(t, err, nil)
	be.Equal(t, kinds(toks), []syntax.TokenKind{
		syntax.WordTok, syntax.WordTok, syntax.Semi,
		syntax.Keyword, syntax.WordTok, syntax.Semi,
		syntax.Keyword, syntax.WordTok, syntax.Semi,
		syntax.Keyword, syntax.EOF,
	})
	be.Equal(t, toks[1].Text, "if")
	be.Equal(t, toks[3].Line, 1)
	be.Equal(t, toks[3].Col, 10)
}

func TestTokenizeOperators(t *testing.T) {
	toks, err := syntax.Tokenize("cat <<<x 2>&1 &>>log | wc >|out")
	be.Err(t, err, nil)
	be.Equal(t, kinds(toks), []syntax.TokenKind{
		syntax.WordTok, syntax.TLess, syntax.WordTok,
		syntax.IONumber, syntax.GreatAnd, syntax.WordTok,
		syntax.AndDGreat, syntax.WordTok, syntax.Pipe,
		syntax.WordTok, syntax.Clobber, syntax.WordTok, syntax.EOF,
	})
}

func TestTokenizeLines(t *testing.T) {
	toks, err := syntax.Tokenize("a\n  b")
	be.Err(t, err, nil)
	be.Equal(t, toks[2].Text, "b")
	be.Equal(t, toks[2].Line, 2)
	be.Equal(t, toks[2].Col, 3)
}

func TestTokenizeUnterminated(t *testing.T) {
	tests := map[string]string{
		"echo 'abc":  "matching `''",
		`echo "abc`:  "matching `\"'",
		"echo $(abc": "matching `)'",
		"echo `abc":  "matching ``'",
	}
	for src, want := range tests {
		t.Run(src, func(t *testing.T) {
			_, err := syntax.Tokenize(src)
			be.Err(t, err, want)
		})
	}
}

func TestParseEmptyBodies(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"if true; then fi", "near unexpected token `fi'"},
		{"if true; then elif true; then :; fi", "near unexpected token `elif'"},
		{"if true; then :; elif true; then else :; fi", "near unexpected token `else'"},
		{"if true; then :; else fi", "near unexpected token `fi'"},
		{"while true; do done", "near unexpected token `done'"},
		{"until true; do done", "near unexpected token `done'"},
		{"for x in a; do done", "near unexpected token `done'"},
		{"{ }", "near unexpected token `}'"},
		{"case x in a) echo a b) echo b;; esac", "near unexpected token `)'"},
		{"if true; then :", "unexpected end of file"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := syntax.Parse(tt.src)
			be.Err(t, err, tt.want)
		})
	}
}

func TestParseDefersErrors(t *testing.T) {
	script, err := syntax.Parse("echo a\nif true; then fi\necho b\n")
	be.Err(t, err, "`fi'")
	be.Equal(t, len(script.Stmts), 3)
	be.Equal(t, script.Stmts[0].Err, (*syntax.SyntaxError)(nil))
	be.True(t, script.Stmts[1].Err != nil)
	be.Equal(t, script.Stmts[1].Line, 2)
	be.Equal(t, script.Stmts[2].Err, (*syntax.SyntaxError)(nil))
}

func TestParseErrorTakesLine(t *testing.T) {
	tests := []struct {
		src  string
		errs []bool
	}{
		{"echo 'abc", []bool{true}},
		{"echo a | cat \"b", []bool{true}},
		{"echo a; echo $(b", []bool{true}},
		{"echo a\necho b; fi\necho c", []bool{false, true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			script, err := syntax.Parse(tt.src)
			be.True(t, err != nil)
			be.Equal(t, len(script.Stmts), len(tt.errs))
			for i, want := range tt.errs {
				be.Equal(t, script.Stmts[i].Err != nil, want)
			}
		})
	}
}

func TestParseStatement(t *testing.T) {
	script, err := syntax.Parse("! a | b && c || d &")
	be.Err(t, err, nil)
	be.Equal(t, len(script.Stmts), 1)
	stmt := script.Stmts[0]
	be.True(t, stmt.Background)
	be.Equal(t, stmt.Ops, []syntax.TokenKind{syntax.AndAnd, syntax.OrOr})
	be.True(t, stmt.Pipelines[0].Negated)
	be.Equal(t, len(stmt.Pipelines[0].Cmds), 2)
	be.Equal(t, stmt.Source, "! a | b && c || d")
}

func TestParseFor(t *testing.T) {
	script, err := syntax.Parse("for x in a b; do echo $x; done")
	be.Err(t, err, nil)
	fc := script.Stmts[0].Pipelines[0].Cmds[0].(*syntax.ForClause)
	be.Equal(t, fc.Var, "x")
	be.True(t, fc.InList)
	be.Equal(t, len(fc.Items), 2)
	be.Equal(t, len(fc.Body), 1)

	script, err = syntax.Parse("for x\ndo :; done")
	be.Err(t, err, nil)
	fc = script.Stmts[0].Pipelines[0].Cmds[0].(*syntax.ForClause)
	be.True(t, !fc.InList)

	for _, src := range []string{
		"for ((i=0; i<3; i++)) do echo $i; done",
		"for ((i=0; i<3; i++)) { echo $i; }",
		"for ((i=0; i<3; i++)); do echo $i; }",
	} {
		script, err = syntax.Parse(src)
		be.Err(t, err, nil)
		cf := script.Stmts[0].Pipelines[0].Cmds[0].(*syntax.CStyleFor)
		be.True(t, cf.Init != nil && cf.Cond != nil && cf.Post != nil)
		be.Equal(t, len(cf.Body), 1)
	}
}

func TestParseCase(t *testing.T) {
	script, err := syntax.Parse("case $x in a|b) echo ab;; (c) echo c;& *) echo d;;& esac")
	be.Err(t, err, nil)
	cc := script.Stmts[0].Pipelines[0].Cmds[0].(*syntax.CaseClause)
	be.Equal(t, len(cc.Items), 3)
	be.Equal(t, len(cc.Items[0].Patterns), 2)
	be.Equal(t, cc.Items[0].Term, syntax.DSemi)
	be.Equal(t, cc.Items[1].Term, syntax.SemiAmp)
	be.Equal(t, cc.Items[2].Term, syntax.DSemiAmp)
}

func TestParseFunction(t *testing.T) {
	script, err := syntax.Parse("f() { echo hi; } >out")
	be.Err(t, err, nil)
	fn := script.Stmts[0].Pipelines[0].Cmds[0].(*syntax.FunctionDef)
	be.Equal(t, fn.Name, "f")
	be.Equal(t, len(fn.Redirs), 1)
	g := fn.Body.(*syntax.Group)
	be.Equal(t, len(g.Redirs), 0)

	script, err = syntax.Parse("function g { :; }")
	be.Err(t, err, nil)
	fn = script.Stmts[0].Pipelines[0].Cmds[0].(*syntax.FunctionDef)
	be.Equal(t, fn.Name, "g")
}

func TestParseCompoundRedirs(t *testing.T) {
	script, err := syntax.Parse("{ echo a; echo b; } >out 2>&1")
	be.Err(t, err, nil)
	g := script.Stmts[0].Pipelines[0].Cmds[0].(*syntax.Group)
	be.Equal(t, len(g.Redirs), 2)
	inner := g.Body[0].Pipelines[0].Cmds[0].(*syntax.SimpleCommand)
	be.Equal(t, len(inner.Redirs), 0)
}

func TestParseAssignments(t *testing.T) {
	script, err := syntax.Parse(`a=1 b+=2 c[3]=x d=('' "" [5]=y) cmd`)
	be.Err(t, err, nil)
	sc := script.Stmts[0].Pipelines[0].Cmds[0].(*syntax.SimpleCommand)
	be.Equal(t, len(sc.Assigns), 4)
	be.Equal(t, sc.Assigns[0].Name, "a")
	be.True(t, sc.Assigns[1].Append)
	be.True(t, sc.Assigns[2].Index != nil)
	be.True(t, sc.Assigns[3].IsArray)
	be.Equal(t, len(sc.Assigns[3].Elems), 3)
	be.True(t, sc.Assigns[3].Elems[2].Key != nil)
	be.Equal(t, sc.Name.Raw, "cmd")
}

func TestParseWord(t *testing.T) {
	w := syntax.ParseWord("$x")
	be.Equal(t, len(w.Parts), 1)
	pe := w.Parts[0].(*syntax.ParamExp)
	be.Equal(t, pe.Name, "x")
	be.True(t, pe.Short)

	be.True(t, syntax.IsName("_a1"))
	be.True(t, !syntax.IsName("1a"))
	be.True(t, syntax.IsAssignment("x+=1"))
	be.True(t, !syntax.IsAssignment("=x"))
}

func FuzzParse(f *testing.F) {
	for _, seed := range []string{
		"echo hi",
		"if true; then echo; fi",
		"for ((;;)) { :; }",
		"case x in (a) ;; esac",
		"a=(1 2 [5]=3)",
		"cat <<EOF\n$x\nEOF\n",
		"[[ a =~ (b|c)+ ]]",
		"f() { ( echo ); } >&2",
		"echo ${x:-${y/a/b}} $((1+2)) $(echo `echo`)",
	} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, src string) {
		script, _ := syntax.Parse(src)
		if script == nil {
			t.Fatal("nil script")
		}
	})
}

// Package syntax implements tokenizing and parsing of bash-like shell scripts.
package syntax

import "fmt"

// TokenKind identifies the lexical class of a token.
type TokenKind int

const (
	EOF TokenKind = iota
	Error
	Newline
	WordTok
	Keyword
	IONumber  // 2 in 2>file
	IOVarName // {fd} in {fd}>file
	ArithCmd  // body of (( ... ))

	// control operators
	Semi     // ;
	Amp      // &
	AndAnd   // &&
	OrOr     // ||
	Pipe     // |
	PipeAmp  // |&
	DSemi    // ;;
	SemiAmp  // ;&
	DSemiAmp // ;;&
	LParen   // (
	RParen   // )

	// redirection operators
	Less      // <
	Great     // >
	DGreat    // >>
	Clobber   // >|
	LessGreat // <>
	LessAnd   // <&
	GreatAnd  // >&
	AndGreat  // &>
	AndDGreat // &>>
	DLess     // <<
	DLessDash // <<-
	TLess     // <<<
)

var kindNames = map[TokenKind]string{
	EOF:       "EOF",
	Error:     "error",
	Newline:   "newline",
	WordTok:   "word",
	Keyword:   "keyword",
	IONumber:  "io-number",
	IOVarName: "io-varname",
	ArithCmd:  "((",
	Semi:      ";",
	Amp:       "&",
	AndAnd:    "&&",
	OrOr:      "||",
	Pipe:      "|",
	PipeAmp:   "|&",
	DSemi:     ";;",
	SemiAmp:   ";&",
	DSemiAmp:  ";;&",
	LParen:    "(",
	RParen:    ")",
	Less:      "<",
	Great:     ">",
	DGreat:    ">>",
	Clobber:   ">|",
	LessGreat: "<>",
	LessAnd:   "<&",
	GreatAnd:  ">&",
	AndGreat:  "&>",
	AndDGreat: "&>>",
	DLess:     "<<",
	DLessDash: "<<-",
	TLess:     "<<<",
}

func (k TokenKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(k))
}

// IsRedirect reports whether the kind is a redirection operator.
func (k TokenKind) IsRedirect() bool {
	return k >= Less && k <= TLess
}

// Token is a single lexical unit. Heredoc bodies are attached to the
// delimiter word that follows a << or <<- operator.
type Token struct {
	Kind TokenKind
	Text string
	Line int
	Col  int
	Pos  int // byte offsets into the source
	End  int

	// set on heredoc delimiter words
	Heredoc       string
	HeredocQuoted bool
	HasHeredoc    bool

	// whitespace preceded the token on the same line
	Spaced bool
}

// Display returns the token the way bash names it in diagnostics.
func (t Token) Display() string {
	switch t.Kind {
	case EOF:
		return "EOF"
	case Newline:
		return "newline"
	case WordTok, Keyword, IONumber, IOVarName, Error:
		return t.Text
	case ArithCmd:
		return "(("
	}
	return t.Kind.String()
}

var reservedWords = map[string]bool{
	"if": true, "then": true, "elif": true, "else": true, "fi": true,
	"for": true, "in": true, "do": true, "done": true,
	"while": true, "until": true, "case": true, "esac": true,
	"function": true, "select": true, "time": true,
	"{": true, "}": true, "!": true, "[[": true, "]]": true,
}

// IsReserved reports whether s is a shell reserved word.
func IsReserved(s string) bool {
	return reservedWords[s]
}

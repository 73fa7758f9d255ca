package interp_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"github.com/rcarmo/sandsh/pkg/shell/interp"
	"github.com/rcarmo/sandsh/pkg/testutil"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

func TestWordSplitting(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "quoted suffix joins last field",
			Script:  `a="1 2"; b="3 4"; printf '<%s>' $a"$b"; echo`,
			WantOut: "<1><23 4>\n",
		},
		{
			Name:    "unquoted pair",
			Script:  `a="1 2"; b="3 4"; printf '<%s>' $a$b; echo`,
			WantOut: "<1><23><4>\n",
		},
		{
			Name:    "trailing quoted empty",
			Script:  `a="1 2"; printf '<%s>' $a""; echo`,
			WantOut: "<1><2>\n",
		},
		{
			Name:    "quoted empty anchors field",
			Script:  `x=" a"; printf '<%s>' ""$x; echo`,
			WantOut: "<><a>\n",
		},
		{
			Name:    "empty unquoted yields nothing",
			Script:  `e=; printf '<%s>' x $e y; echo`,
			WantOut: "<x><y>\n",
		},
		{
			Name:    "custom IFS",
			Script:  `IFS=:; v="a::b"; printf '<%s>' $v; echo`,
			WantOut: "<a><><b>\n",
		},
		{
			Name:    "quoted default never splits",
			Script:  `IFS=x; printf '<%s>' ${v:-"AxBxC"}; echo`,
			WantOut: "<AxBxC>\n",
		},
		{
			Name:    "glob",
			Script:  "echo *.txt; echo *.none",
			Files:   map[string]string{"b.txt": "", "a.txt": "", "c.log": ""},
			WantOut: "a.txt b.txt\n*.none\n",
		},
		{
			Name:    "nullglob",
			Script:  "shopt -s nullglob; echo x *.none y",
			WantOut: "x y\n",
		},
		{
			Name:    "brace",
			Script:  "echo {a,b}{1..3} {5..1..2}",
			WantOut: "a1 a2 a3 b1 b2 b3 5 3 1\n",
		},
		{
			Name:    "tilde",
			Script:  "echo ~ ~/x",
			WantOut: "/home/user /home/user/x\n",
		},
	}
	testutil.RunScriptTests(t, tests)
}

func TestArrays(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "empty elements survive",
			Script:  `arr=('' ''); echo ${#arr[@]}; printf '<%s>' "${arr[@]}"; echo`,
			WantOut: "2\n<><>\n",
		},
		{
			Name:    "at ignores IFS",
			Script:  `arr=("a b" "c:d" ""); IFS=:; printf '<%s>' "${arr[@]}"; echo`,
			WantOut: "<a b><c:d><>\n",
		},
		{
			Name:    "star joins with IFS",
			Script:  `arr=("a b" c d); IFS=:; echo "${arr[*]}"`,
			WantOut: "a b:c:d\n",
		},
		{
			Name:    "keyed and appended",
			Script:  `a=([2]=x y); a+=(z); echo ${!a[@]} ${a[@]}`,
			WantOut: "2 3 4 x y z\n",
		},
		{
			Name:    "unset array falls back to scalar",
			Script:  `s=one; echo "${s[@]}" ${#s[@]}`,
			WantOut: "one 1\n",
		},
		{
			Name:    "associative",
			Script:  `declare -A m=([k]=v [a]=b); m[n]=1; echo ${m[k]} ${m[n]} ${#m[@]}`,
			WantOut: "v 1 3\n",
		},
		{
			Name:    "nameref to array",
			Script:  `arr=(1 2 3); declare -n r=arr; echo "${r[@]}" ${#r[@]}`,
			WantOut: "1 2 3 3\n",
		},
	}
	testutil.RunScriptTests(t, tests)
}

func TestParameters(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "operators",
			Script:  `s=hello.tar.gz; echo ${s%%.*} ${s#*.} ${#s} ${s/l/L} ${s//l/L} ${s:1:3} ${u:-def} ${s^^}`,
			WantOut: "hello tar.gz 12 heLlo.tar.gz heLLo.tar.gz ell def HELLO.TAR.GZ\n",
		},
		{
			Name:    "assign default",
			Script:  `echo ${v:=set}; echo $v`,
			WantOut: "set\nset\n",
		},
		{
			Name:     "error message",
			Script:   "echo ${x:?is required}; echo after",
			WantCode: 1,
			WantOut:  "",
			WantErr:  "x: is required",
		},
		{
			Name:     "nounset",
			Script:   "set -u; echo $nope; echo after",
			WantCode: 1,
			WantOut:  "",
			WantErr:  "nope: unbound variable",
		},
		{
			Name:    "command substitution strips newlines",
			Script:  `x=$(printf 'a\n\n'); echo "[$x]"`,
			WantOut: "[a]\n",
		},
		{
			Name:    "positional",
			Script:  `set -- a "b c" d; echo $# "$2"; shift 2; echo $@`,
			WantOut: "3 b c\nd\n",
		},
		{
			Name:    "lineno",
			Script:  "echo $LINENO\n\necho $LINENO",
			WantOut: "1\n3\n",
		},
	}
	testutil.RunScriptTests(t, tests)
}

func TestArithmetic(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "operators",
			Script:  "x=5; echo $(( x += 2, x * 2 )) $(( 2**10 )) $(( 0x1f + 010 + 2#101 )) $(( 1 ? 2 : 3 ))",
			WantOut: "14 1024 44 2\n",
		},
		{
			Name:    "increments",
			Script:  "i=1; echo $(( i++ )) $(( ++i )) $i",
			WantOut: "1 3 3\n",
		},
		{
			Name:    "unevaluated branch",
			Script:  "echo $(( 1 ? 5 : 3 + ))",
			WantOut: "5\n",
		},
		{
			Name:     "division by zero",
			Script:   "echo $(( 1 / 0 ))",
			WantCode: 1,
			WantOut:  "",
			WantErr:  "division by 0",
		},
		{
			Name:     "octal digits",
			Script:   "echo $(( 09 ))",
			WantCode: 1,
			WantOut:  "",
			WantErr:  "value too great for base",
		},
		{
			Name:    "arithmetic command",
			Script:  "(( 3 > 2 )) && echo yes; (( 0 )); echo $?",
			WantOut: "yes\n1\n",
		},
		{
			Name:    "let",
			Script:  "let 'a = 4 * 2' b=a+1; echo $a $b",
			WantOut: "8 9\n",
		},
	}
	testutil.RunScriptTests(t, tests)
}

func TestControlFlow(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "if elif else",
			Script:  "x=2; if [ $x = 1 ]; then echo one; elif [ $x = 2 ]; then echo two; else echo other; fi",
			WantOut: "two\n",
		},
		{
			Name:    "case fall through",
			Script:  "case b in a) echo a;; b) echo b;& c) echo c;;& *) echo any;; esac",
			WantOut: "b\nc\nany\n",
		},
		{
			Name:    "case patterns",
			Script:  "for f in x.go y.txt z; do case $f in *.go|*.c) echo code;; *.txt) echo text;; *) echo other;; esac; done",
			WantOut: "code\ntext\nother\n",
		},
		{
			Name:    "c style for",
			Script:  "for ((i=0; i<3; i++)); do printf %s $i; done; echo",
			WantOut: "012\n",
		},
		{
			Name:    "c style for with braces",
			Script:  "for ((i=0; i<2; i++)) { echo $i; }",
			WantOut: "0\n1\n",
		},
		{
			Name:    "for over positionals",
			Script:  "set -- a b; for x; do echo $x; done",
			WantOut: "a\nb\n",
		},
		{
			Name:    "while and until",
			Script:  "n=0; while [ $n -lt 3 ]; do n=$((n+1)); done; until [ $n -eq 0 ]; do n=$((n-1)); done; echo $n",
			WantOut: "0\n",
		},
		{
			Name:    "break and continue levels",
			Script:  "for i in 1 2; do for j in a b; do [ $j = b ] && continue 2; [ $i = 2 ] && break 2; echo $i$j; done; done",
			WantOut: "1a\n",
		},
		{
			Name:    "cond",
			Script:  `[[ abc == a* ]] && echo glob; [[ abc =~ ^a(b)c$ ]] && echo ${BASH_REMATCH[1]}; [[ -z "" && ! -n "" ]] && echo empty; [[ 10 -gt 9 ]] && echo num`,
			WantOut: "glob\nb\nempty\nnum\n",
		},
		{
			Name:    "test builtin",
			Script:  `[ -d . ] && [ -f f ] && [ ! -e nope ] && test "a" != "b" -a 2 -le 3 && echo ok`,
			Files:   map[string]string{"f": "x"},
			WantOut: "ok\n",
		},
		{
			Name:     "test syntax error",
			Script:   "[ 1 -eq ]",
			WantCode: 2,
			WantOut:  "",
			WantErr:  "[:",
		},
		{
			Name:    "pipestatus",
			Script:  "true | false | true; echo ${PIPESTATUS[@]}",
			WantOut: "0 1 0\n",
		},
		{
			Name:    "pipefail",
			Script:  "set -o pipefail; false | true; echo $?",
			WantOut: "1\n",
		},
		{
			Name:    "negation",
			Script:  "! false; echo $?",
			WantOut: "0\n",
		},
		{
			Name:    "subshell isolation",
			Script:  "x=1; (x=2; cd /; echo $x); echo $x $PWD",
			WantOut: "2\n1 /work\n",
		},
		{
			Name:    "pre truncation",
			Script:  "echo old > f; { cat_f=$(while read l; do echo $l; done < f); echo \"[$cat_f]\"; } > f; while read l; do echo $l; done < f",
			WantOut: "[]\n",
		},
	}
	testutil.RunScriptTests(t, tests)
}

func TestErrexit(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "short circuit",
			Script:  "set -e; false && true; echo ok",
			WantOut: "ok\n",
		},
		{
			Name:     "failure stops",
			Script:   "set -e; false; echo ok",
			WantCode: 1,
			WantOut:  "",
		},
		{
			Name:    "if condition",
			Script:  "set -e; if false; then :; fi; echo ok",
			WantOut: "ok\n",
		},
		{
			Name:    "negated",
			Script:  "set -e; ! true; echo ok",
			WantOut: "ok\n",
		},
		{
			Name:     "inside function",
			Script:   "set -e; f() { false; echo no; }; f; echo no",
			WantCode: 1,
			WantOut:  "",
		},
		{
			Name:    "err trap",
			Script:  "trap 'echo err $?' ERR; false; echo after",
			WantOut: "err 1\nafter\n",
		},
		{
			Name:     "exit in err trap",
			Script:   "trap 'exit 4' ERR; false; echo no",
			WantCode: 4,
		},
	}
	testutil.RunScriptTests(t, tests)
}

func TestFunctions(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "local and return",
			Script:  "f() { local x=in; echo $x; return 3; }; x=out; f; echo $? $x",
			WantOut: "in\n3 out\n",
		},
		{
			Name:    "recursion",
			Script:  "fact() { if (( $1 <= 1 )); then echo 1; return; fi; local n=$(fact $(( $1 - 1 ))); echo $(( $1 * n )); }; fact 5",
			WantOut: "120\n",
		},
		{
			Name:    "arguments",
			Script:  `f() { echo $# "$1" $0; }; f "a b" c`,
			WantOut: "2 a b bash\n",
		},
		{
			Name:    "redirected body",
			Script:  "f() { echo inside; } > out; f; while read l; do echo got $l; done < out",
			WantOut: "got inside\n",
		},
		{
			Name:     "return outside function",
			Script:   "return 1",
			WantCode: 1,
			WantOut:  "",
			WantErr:  "can only `return' from a function or sourced script",
		},
		{
			Name:     "exit",
			Script:   "echo a; exit 4; echo b",
			WantCode: 4,
			WantOut:  "a\n",
		},
		{
			Name:    "exit trap",
			Script:  "trap 'echo bye' EXIT; echo hi",
			WantOut: "hi\nbye\n",
		},
	}
	testutil.RunScriptTests(t, tests)
}

func TestRedirections(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "append and read",
			Script:  "echo a > f; echo b >> f; while read l; do echo [$l]; done < f",
			WantOut: "[a]\n[b]\n",
		},
		{
			Name:    "stderr to stdout",
			Script:  "nosuch 2>&1; echo $?",
			WantOut: "bash: nosuch: command not found\n127\n",
		},
		{
			Name:    "dev null",
			Script:  "nosuch 2>/dev/null; echo done",
			WantOut: "done\n",
		},
		{
			Name:     "dev full",
			Script:   "echo hi > /dev/full",
			WantCode: 1,
			WantOut:  "",
			WantErr:  "write error: No space left on device",
		},
		{
			Name:    "noclobber",
			Script:  "set -C; echo a > f; echo b > f; echo $?; echo c >| f; while read l; do echo $l; done < f",
			WantOut: "1\nc\n",
			WantErr: "f: cannot overwrite existing file",
		},
		{
			Name:    "fd variable",
			Script:  "exec {fd}>out; echo $fd; echo hi >&$fd; exec {fd}>&-; while read l; do echo $l; done < out",
			WantOut: "10\nhi\n",
		},
		{
			Name:     "closed descriptor",
			Script:   "echo hi >&7",
			WantCode: 1,
			WantOut:  "",
			WantErr:  "7: Bad file descriptor",
		},
		{
			Name:    "here document",
			Script:  "name=you\nwhile read l; do echo \"[$l]\"; done <<EOF\nhi $name\n'lit'\nEOF\n",
			WantOut: "[hi you]\n['lit']\n",
		},
		{
			Name:    "quoted here document",
			Script:  "while read -r l; do echo \"$l\"; done <<'EOF'\n$HOME\nEOF\n",
			WantOut: "$HOME\n",
		},
		{
			Name:    "here string",
			Script:  "read a b <<< 'one two three'; echo \"$b\"",
			WantOut: "two three\n",
		},
		{
			Name:    "process substitution",
			Script:  "while read l; do echo $l; done < <(echo one; echo two)",
			WantOut: "one\ntwo\n",
		},
		{
			Name:    "missing input",
			Script:  "read x < nope; echo $?",
			WantOut: "1\n",
			WantErr: "nope: No such file or directory",
		},
		{
			Name:     "directory target",
			Script:   "echo x > .",
			WantCode: 1,
			WantOut:  "",
			WantErr:  ".: Is a directory",
		},
	}
	testutil.RunScriptTests(t, tests)
}

func TestAssignments(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "append",
			Script:  "s=a; s+=b; declare -i n=2; n+=3; echo $s $n",
			WantOut: "ab 5\n",
		},
		{
			Name:    "subscript",
			Script:  "a[1]=x; i=2; a[i+1]=y; echo ${a[1]} ${a[3]} ${#a[@]}",
			WantOut: "x y 2\n",
		},
		{
			Name:     "readonly",
			Script:   "readonly r=1; r=2; echo $? $r",
			WantOut:  "1 1\n",
			WantErr:  "r: readonly variable",
			WantCode: 0,
		},
		{
			Name:    "readonly prefix continues",
			Script:  `show() { echo "$r $x"; }; readonly r=1; r=2 x=3 show; echo "${x-unset}"`,
			WantOut: "1 3\nunset\n",
			WantErr: "r: readonly variable",
		},
		{
			Name:    "prefix is temporary",
			Script:  `f() { echo $v; }; v=old; v=new f; echo $v`,
			WantOut: "new\nold\n",
		},
		{
			Name:    "nameref",
			Script:  "declare -n ref=target; ref=val; echo $target",
			WantOut: "val\n",
		},
		{
			Name:     "nameref cycle",
			Script:   "declare -n a=b; declare -n b=a; a=1",
			WantCode: 1,
			WantOut:  "",
			WantErr:  "circular name reference",
		},
		{
			Name:    "case attributes",
			Script:  "declare -u up=abc; declare -l lo=ABC; echo $up $lo",
			WantOut: "ABC abc\n",
		},
	}
	testutil.RunScriptTests(t, tests)
}

func TestBuiltins(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:    "echo",
			Script:  `echo -n a; echo -e 'b\tc'; echo -E 'd\te'`,
			WantOut: "ab\tc\nd\\te\n",
		},
		{
			Name:    "printf",
			Script:  `printf '%5s|%-3d|%x|%05.1f\n' ab 7 255 3.14159; printf '%s\n' a b`,
			WantOut: "   ab|7  |ff|003.1\na\nb\n",
		},
		{
			Name:    "printf to variable",
			Script:  "printf -v out '%s-%s' a b; echo $out",
			WantOut: "a-b\n",
		},
		{
			Name:    "read exact count",
			Script:  `read -N 5 v; echo "$v:$?"`,
			Input:   "he llo world\n",
			WantOut: "he ll:0\n",
		},
		{
			Name:    "read exact count ignores delimiter",
			Script:  `read -N 5 v; printf '%s|' "$v"`,
			Input:   "ab\ncdef",
			WantOut: "ab\ncd|",
		},
		{
			Name:    "read raw with IFS",
			Script:  `IFS=: read -r x y <<< 'a:b\c'; echo "$x|$y"`,
			WantOut: "a|b\\c\n",
		},
		{
			Name:    "read at eof",
			Script:  `read x; echo "$? $x"`,
			Input:   "partial",
			WantOut: "1 partial\n",
		},
		{
			Name:    "mapfile",
			Script:  "mapfile -t lines < f; echo ${#lines[@]} ${lines[1]}",
			Files:   map[string]string{"f": "x\ny\n"},
			WantOut: "2 y\n",
		},
		{
			Name:    "cd and pwd",
			Script:  "cd sub && pwd && cd - >/dev/null && pwd",
			Files:   map[string]string{"sub/": ""},
			WantOut: "/work/sub\n/work\n",
		},
		{
			Name:     "cd missing",
			Script:   "cd nowhere",
			WantCode: 1,
			WantOut:  "",
			WantErr:  "cd: nowhere: No such file or directory",
		},
		{
			Name:    "eval and source",
			Script:  "source lib.sh; greet you; echo $libvar; eval 'y=5; echo $((y*2))'",
			Files:   map[string]string{"lib.sh": "greet() { echo hello $1; }\nlibvar=set\n"},
			WantOut: "hello you\nset\n10\n",
		},
		{
			Name:    "script file",
			Script:  "./bin/hi.sh arg; echo $?",
			Files:   map[string]string{"bin/hi.sh": "echo script $1\nexit 3\n"},
			WantOut: "script arg\n3\n",
		},
		{
			Name:    "getopts",
			Script:  `set -- -a -b val file; while getopts ab: opt; do echo "$opt ${OPTARG-}"; done; shift $((OPTIND-1)); echo $1`,
			WantOut: "a \nb val\nfile\n",
		},
		{
			Name:    "type",
			Script:  "type echo if",
			WantOut: "echo is a shell builtin\nif is a shell keyword\n",
		},
		{
			Name:    "command skips functions",
			Script:  "echo() { :; }; command echo real",
			WantOut: "real\n",
		},
		{
			Name:     "unset",
			Script:   "x=1; f() { :; }; unset x; unset -f f; echo ${x-gone}; f",
			WantCode: 127,
			WantOut:  "gone\n",
			WantErr:  "f: command not found",
		},
		{
			Name:    "export",
			Script:  "export A=1; declare -p A",
			WantOut: "declare -x A=\"1\"\n",
		},
		{
			Name:     "not found",
			Script:   "nosuch arg",
			WantCode: 127,
			WantOut:  "",
			WantErr:  "bash: nosuch: command not found",
		},
	}
	testutil.RunScriptTests(t, tests)
}

func TestSyntaxErrors(t *testing.T) {
	tests := []testutil.ScriptTestCase{
		{
			Name:     "empty then",
			Script:   "echo before\nif true; then fi\necho after",
			WantCode: 2,
			WantOut:  "before\n",
			WantErr:  "bash: line 2: syntax error near unexpected token `fi'",
		},
		{
			Name:     "empty else",
			Script:   "if true; then :; else fi",
			WantCode: 2,
			WantOut:  "",
			WantErr:  "`fi'",
		},
		{
			Name:     "unterminated quote",
			Script:   "echo 'abc",
			WantCode: 2,
			WantOut:  "",
			WantErr:  "unexpected EOF",
		},
		{
			Name:     "unterminated substitution",
			Script:   "echo start $(echo hi",
			WantCode: 2,
			WantOut:  "",
			WantErr:  "bash: line 1: ",
		},
		{
			Name:     "error drops the whole line",
			Script:   "echo one\necho two; echo \"three\necho four",
			WantCode: 2,
			WantOut:  "one\n",
			WantErr:  "unexpected EOF",
		},
	}
	testutil.RunScriptTests(t, tests)
}

func TestLimits(t *testing.T) {
	tests := []struct {
		name   string
		script string
		limits interp.Limits
		limit  string
	}{
		{"iterations", "while true; do :; done", interp.Limits{MaxIterations: 3}, "max loop iterations"},
		{"recursion", "f() { f; }; f", interp.Limits{MaxRecursionDepth: 5}, "max recursion depth"},
		{"commands", "for i in 1 2 3 4 5 6; do echo $i; done", interp.Limits{MaxCommandCount: 4}, "max command count"},
		{"not trappable", "( while true; do :; done ) || echo caught", interp.Limits{MaxIterations: 3}, "max loop iterations"},
		{"exit trap", "trap 'while :; do :; done' EXIT; echo hi", interp.Limits{MaxIterations: 3}, "max loop iterations"},
		{"err trap", "trap 'while :; do :; done' ERR; false; echo caught", interp.Limits{MaxIterations: 3}, "max loop iterations"},
		{"subshell exit trap", "( trap 'while :; do :; done' EXIT; true ) || echo caught", interp.Limits{MaxIterations: 3}, "max loop iterations"},
		{"substitution exit trap", "x=$(trap 'f() { f; }; f' EXIT); echo caught", interp.Limits{MaxRecursionDepth: 5}, "max recursion depth"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := interp.New(interp.WithLimits(tt.limits))
			res, err := r.Run(context.Background(), tt.script)
			var le *interp.LimitError
			be.True(t, errors.As(err, &le))
			be.Equal(t, le.Limit, tt.limit)
			be.True(t, !strings.Contains(res.Stdout, "caught"))
		})
	}
}

func TestLimitMessage(t *testing.T) {
	err := &interp.LimitError{Limit: "max loop iterations", Max: 3}
	be.Equal(t, err.Error(), "execution limit exceeded: max loop iterations (3)")
	be.Equal(t, interp.DefaultLimits(), interp.Limits{
		MaxCommandCount:   10000,
		MaxRecursionDepth: 100,
		MaxIterations:     10000,
	})
}

func TestCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := interp.New().Run(ctx, "echo hi")
	be.True(t, errors.Is(err, context.Canceled))
}

func TestRunnerState(t *testing.T) {
	fsys := testutil.MemFSWithFiles(t, testutil.WorkDir, map[string]string{"sub/": ""})
	r := interp.New(interp.WithFS(fsys), interp.WithDir(testutil.WorkDir), interp.WithArgs("script", "p1"))
	ctx := context.Background()

	res, err := r.Run(ctx, "f() { :; }; x=5; cd sub; echo $0 $1")
	be.Err(t, err, nil)
	be.Equal(t, res.Stdout, "script p1\n")
	v, ok := r.Get("x")
	be.True(t, ok)
	be.Equal(t, v, "5")
	be.Equal(t, r.Dir(), "/work/sub")
	be.Equal(t, r.Functions(), []string{"f"})
	be.Equal(t, r.Exited(), false)

	res, err = r.Run(ctx, "echo $x; exit 3")
	be.Err(t, err, nil)
	be.Equal(t, res.Stdout, "5\n")
	be.Equal(t, res.ExitCode, 3)
	be.True(t, r.Exited())
}

func TestEnv(t *testing.T) {
	res, err := interp.New(interp.WithEnv(map[string]string{"USER": "alice", "EXTRA": "1"})).
		Run(context.Background(), "echo $USER $EXTRA $HOSTNAME $HOME")
	be.Err(t, err, nil)
	be.Equal(t, res.Stdout, "alice 1 sandbox /home/user\n")
}

func TestCommands(t *testing.T) {
	upper := interp.CommandFunc{CmdName: "upper", Fn: func(_ context.Context, cc *interp.CommandContext) interp.ExecResult {
		return interp.ExecResult{Stdout: strings.ToUpper(cc.Stdin)}
	}}
	env := interp.CommandFunc{CmdName: "getenv", Fn: func(_ context.Context, cc *interp.CommandContext) interp.ExecResult {
		return interp.ExecResult{Stdout: cc.Env[cc.Args[0]] + "\n"}
	}}
	nested := interp.CommandFunc{CmdName: "nested", Fn: func(ctx context.Context, cc *interp.CommandContext) interp.ExecResult {
		return cc.Exec(ctx, "echo from $PWD")
	}}
	write := interp.CommandFunc{CmdName: "write", Fn: func(_ context.Context, cc *interp.CommandContext) interp.ExecResult {
		if err := cc.FS.WriteFile(vfs.ResolvePath(cc.Dir, cc.Args[0]), "data"); err != nil {
			return interp.ExecResult{Stderr: err.Error() + "\n", ExitCode: 1}
		}
		return interp.ExecResult{ExitCode: 2}
	}}
	tests := []testutil.ScriptTestCase{
		{
			Name:    "stdin",
			Script:  "echo hi | upper",
			WantOut: "HI\n",
		},
		{
			Name:    "exported prefix",
			Script:  "FOO=bar getenv FOO; getenv FOO",
			WantOut: "bar\n\n",
		},
		{
			Name:    "exec callback",
			Script:  "nested",
			WantOut: "from /work\n",
		},
		{
			Name:    "filesystem and status",
			Script:  "write out.txt; echo $?",
			WantOut: "2\n",
			Check: func(t *testing.T, fsys vfs.FS) {
				testutil.AssertFileContent(t, fsys, "/work/out.txt", "data")
			},
		},
		{
			Name:    "functions shadow commands",
			Script:  "upper() { echo fn; }; echo x | upper",
			WantOut: "fn\n",
		},
	}
	testutil.RunScriptTests(t, tests, interp.WithCommands(upper, env, nested, write))
}

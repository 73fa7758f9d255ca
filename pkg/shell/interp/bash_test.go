package interp_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rcarmo/sandsh/pkg/shell/interp"
	"github.com/rcarmo/sandsh/pkg/testutil"
)

func TestCompareBash(t *testing.T) {
	scripts := []string{
		`a="1 2"; b="3 4"; printf '<%s>' $a"$b" $a$b $a""; echo`,
		`arr=('' '' x); echo ${#arr[@]}; printf '<%s>' "${arr[@]}"; echo`,
		`IFS=:; v="a::b:"; printf '<%s>' $v; echo`,
		`set -e; false && true; echo ok`,
		`set -e; false; echo ok`,
		`for ((i=0; i<5; i+=2)); do printf '%d,' $i; done; echo`,
		`case abc in a*) echo 1;& x) echo 2;;& *c) echo 3;; esac`,
		`f() { local v=$1; (( v > 1 )) || { echo 1; return; }; echo $(( v * $(f $((v-1))) )); }; f 6`,
		`s=Hello.World; echo ${s,,} ${s^} ${s%.*} ${s#*.} ${#s} ${s:2} ${s: -3}`,
		`x=7; echo $(( x<<2 | 1 )) $(( x > 3 ? x-- : 0 )) $x $(( 8#17 + 16#ff ))`,
		`true | false | true; echo ${PIPESTATUS[@]}; set -o pipefail; false | true; echo $?`,
		`read -N 3 a; read b; echo "$a|$b"`,
		`while IFS== read -r k v; do echo "$k -> $v"; done < conf`,
		`printf '%-4s|%4d|%o|%e\n' ab 42 8 1500`,
		`declare -A m; m[x]=1; m[y]=2; echo ${#m[@]} ${m[y]}`,
		`echo {1..3}{a,b} {z..x}`,
		`exit 3`,
	}
	for _, src := range scripts {
		t.Run(src, func(t *testing.T) {
			testutil.CompareBash(t, src, "abcdef\nrest\n", map[string]string{"conf": "a=1\nb=2=3\n"})
		})
	}
}

func FuzzRun(f *testing.F) {
	f.Add("echo $((1+2)) ${x:-y} \"$@\"")
	f.Add("for i in 1 2; do case $i in 1) echo a;; esac; done")
	f.Add("f() { f; }; f")
	f.Add("while :; do :; done")
	f.Fuzz(func(t *testing.T, src string) {
		src = testutil.ClampString(src, testutil.MaxFuzzBytes)
		r := interp.New(interp.WithLimits(interp.Limits{
			MaxCommandCount:   200,
			MaxRecursionDepth: 10,
			MaxIterations:     50,
		}))
		_, err := r.Run(context.Background(), src)
		var le *interp.LimitError
		if err != nil && !errors.As(err, &le) {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

package interp

import (
	"context"

	"github.com/rcarmo/sandsh/pkg/shell/arith"
	"github.com/rcarmo/sandsh/pkg/shell/syntax"
)

// arithEnv exposes shell variables to the arithmetic evaluator.
type arithEnv struct {
	r   *Runner
	ctx context.Context
	st  *State
}

func (e *arithEnv) Get(name string) (string, bool) {
	return e.r.lookupScalar(e.st, name)
}

func (e *arithEnv) Set(name string, v int64) error {
	return e.r.setValue(e.ctx, e.st, name, itoa(v), false)
}

func (e *arithEnv) GetIndex(name, key string) (string, bool) {
	ref, err := e.st.resolve(name)
	if err != nil {
		return "", false
	}
	return e.st.lookup(ref).Index(key)
}

func (e *arithEnv) SetIndex(name, key string, v int64) error {
	ref, err := e.st.resolve(name)
	if err != nil {
		return err
	}
	return e.st.setElem(ref, key, itoa(v))
}

func (e *arithEnv) IsAssoc(name string) bool {
	ref, err := e.st.resolve(name)
	if err != nil {
		return false
	}
	v := e.st.lookup(ref)
	return v != nil && v.Kind == KindAssoc
}

func (e *arithEnv) Expand(src string) (string, error) {
	return e.r.expandString(e.ctx, e.st, syntax.ParseWord(src))
}

// evalArithString evaluates arithmetic source text.
func (r *Runner) evalArithString(ctx context.Context, st *State, src string) (int64, error) {
	return arith.EvalString(src, &arithEnv{r: r, ctx: ctx, st: st})
}

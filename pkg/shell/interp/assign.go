package interp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcarmo/sandsh/pkg/shell/syntax"
)

// setValue assigns val to the variable ref names, following namerefs and
// honouring the integer attribute.
func (r *Runner) setValue(ctx context.Context, st *State, name, val string, appendOp bool) error {
	ref, err := st.resolve(name)
	if err != nil {
		return err
	}
	base, sub, hasSub := splitRef(ref)
	if hasSub {
		key, err := r.subscriptText(ctx, st, base, sub)
		if err != nil {
			return err
		}
		return r.setElement(ctx, st, base, key, val, appendOp)
	}
	v := st.lookup(base)
	switch {
	case v != nil && v.Integer:
		n, err := r.integerValue(ctx, st, v.String(), val, appendOp)
		if err != nil {
			return err
		}
		val = n
	case appendOp:
		val = v.String() + val
	}
	return st.setScalar(base, val)
}

// setElement assigns val to name[key]; key is already evaluated.
func (r *Runner) setElement(ctx context.Context, st *State, name, key, val string, appendOp bool) error {
	v := st.lookup(name)
	cur, _ := v.Index(key)
	switch {
	case v != nil && v.Integer:
		n, err := r.integerValue(ctx, st, cur, val, appendOp)
		if err != nil {
			return err
		}
		val = n
	case appendOp:
		val = cur + val
	}
	return st.setElem(name, key, val)
}

// integerValue evaluates an assignment to an integer variable.
func (r *Runner) integerValue(ctx context.Context, st *State, cur, val string, appendOp bool) (string, error) {
	expr := val
	if appendOp {
		if cur == "" {
			cur = "0"
		}
		expr = "(" + cur + ")+(" + val + ")"
	}
	n, err := r.evalArithString(ctx, st, expr)
	if err != nil {
		return "", &expandError{msg: val + ": " + err.Error()}
	}
	return itoa(n), nil
}

// assign performs one assignment word. With local set the name is
// created in the current function scope first.
func (r *Runner) assign(ctx context.Context, st *State, a *syntax.Assignment, local bool) error {
	if local && len(st.frames) > 0 {
		st.declareLocal(a.Name)
	}
	if a.IsArray {
		return r.assignArray(ctx, st, a)
	}
	val, err := r.expandString(ctx, st, a.Value)
	if err != nil {
		return err
	}
	if a.Index != nil {
		ref, err := st.resolve(a.Name)
		if err != nil {
			return err
		}
		base, _, _ := splitRef(ref)
		key, err := r.subscript(ctx, st, base, a.Index)
		if err != nil {
			return err
		}
		return r.setElement(ctx, st, base, key, val, a.Append)
	}
	return r.setValue(ctx, st, a.Name, val, a.Append)
}

// assignArray handles name=(...) and name+=(...).
func (r *Runner) assignArray(ctx context.Context, st *State, a *syntax.Assignment) error {
	ref, err := st.resolve(a.Name)
	if err != nil {
		return err
	}
	base, _, hasSub := splitRef(ref)
	if hasSub || a.Index != nil {
		return fmt.Errorf("%s: cannot assign list to array member", a.Name)
	}
	v := st.ensure(base)
	if v.ReadOnly {
		return &readonlyError{name: base}
	}
	if v.Kind == KindAssoc {
		return r.assignAssoc(ctx, st, v, a)
	}

	elems := map[int]string{}
	next := 0
	if a.Append {
		v.toIndexed()
		for k, s := range v.Indexed {
			elems[k] = s
		}
		next = v.maxIndex() + 1
	}
	store := func(i int, s string) error {
		if v.Integer {
			cur := elems[i]
			n, err := r.integerValue(ctx, st, cur, s, false)
			if err != nil {
				return err
			}
			s = n
		}
		elems[i] = v.transform(s)
		return nil
	}
	for _, el := range a.Elems {
		if el.Key != nil {
			text, err := r.expandString(ctx, st, el.Key)
			if err != nil {
				return err
			}
			key, err := r.subscriptText(ctx, st, base, text)
			if err != nil {
				return err
			}
			var i int
			fmt.Sscan(key, &i)
			if i < 0 {
				i += next
				if i < 0 {
					return fmt.Errorf("%s: bad array subscript", key)
				}
			}
			val, err := r.expandString(ctx, st, el.Value)
			if err != nil {
				return err
			}
			if err := store(i, val); err != nil {
				return err
			}
			next = i + 1
			continue
		}
		fields, err := r.expandWord(ctx, st, el.Value)
		if err != nil {
			return err
		}
		for _, f := range fields {
			if err := store(next, f); err != nil {
				return err
			}
			next++
		}
	}
	v.Kind = KindIndexed
	v.Value, v.Set = "", false
	v.Indexed = elems
	return nil
}

// assignAssoc fills an associative array from [k]=v elements or from an
// alternating key value list.
func (r *Runner) assignAssoc(ctx context.Context, st *State, v *Var, a *syntax.Assignment) error {
	if !a.Append {
		v.Assoc, v.keys = map[string]string{}, nil
	}
	var list []string
	for _, el := range a.Elems {
		if el.Key != nil {
			key, err := r.expandString(ctx, st, el.Key)
			if err != nil {
				return err
			}
			val, err := r.expandString(ctx, st, el.Value)
			if err != nil {
				return err
			}
			v.setKey(key, v.transform(val))
			continue
		}
		fields, err := r.expandWord(ctx, st, el.Value)
		if err != nil {
			return err
		}
		list = append(list, fields...)
	}
	for i := 0; i < len(list); i += 2 {
		val := ""
		if i+1 < len(list) {
			val = list[i+1]
		}
		v.setKey(list[i], v.transform(val))
	}
	return nil
}

// prefixAssign applies the assignments that precede a command name. They
// are exported to the command and undone when it finishes.
func (r *Runner) prefixAssign(ctx context.Context, st *State, assigns []*syntax.Assignment) (func(), error) {
	type saved struct {
		name  string
		scope map[string]*Var
		old   *Var
	}
	var undo []saved
	restore := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			s := undo[i]
			if s.old == nil {
				delete(s.scope, s.name)
				continue
			}
			s.scope[s.name] = s.old
		}
	}
	for _, a := range assigns {
		scope := st.globals
		for i := len(st.frames) - 1; i >= 0; i-- {
			if _, ok := st.frames[i].vars[a.Name]; ok {
				scope = st.frames[i].vars
				break
			}
		}
		s := saved{name: a.Name, scope: scope}
		if old, ok := scope[a.Name]; ok {
			s.old = old
			scope[a.Name] = old.clone()
		}
		undo = append(undo, s)
		if err := r.assign(ctx, st, a, false); err != nil {
			var ro *readonlyError
			if errors.As(err, &ro) {
				diag(st, "%s", err)
				continue
			}
			restore()
			return func() {}, err
		}
		if v := st.lookup(a.Name); v != nil {
			v.Exported = true
		}
	}
	return restore, nil
}

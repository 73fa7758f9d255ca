package interp

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// VarKind is the storage shape of a variable.
type VarKind uint8

const (
	KindScalar VarKind = iota
	KindIndexed
	KindAssoc
)

// Var is a shell variable. Indexed arrays are sparse.
type Var struct {
	Kind    VarKind
	Value   string
	Set     bool // a scalar holds a value; false for declared-only names
	Indexed map[int]string
	Assoc   map[string]string
	keys    []string // assoc insertion order

	Exported bool
	ReadOnly bool
	Integer  bool
	Nameref  bool
	Lower    bool
	Upper    bool
}

func (v *Var) clone() *Var {
	c := *v
	if v.Indexed != nil {
		c.Indexed = make(map[int]string, len(v.Indexed))
		for k, s := range v.Indexed {
			c.Indexed[k] = s
		}
	}
	if v.Assoc != nil {
		c.Assoc = make(map[string]string, len(v.Assoc))
		for k, s := range v.Assoc {
			c.Assoc[k] = s
		}
		c.keys = append([]string(nil), v.keys...)
	}
	return &c
}

// IsSet reports whether the variable holds any value.
func (v *Var) IsSet() bool {
	if v == nil {
		return false
	}
	switch v.Kind {
	case KindIndexed:
		return len(v.Indexed) > 0
	case KindAssoc:
		return len(v.Assoc) > 0
	}
	return v.Set
}

// String returns the scalar value, or element 0 for arrays.
func (v *Var) String() string {
	if v == nil {
		return ""
	}
	switch v.Kind {
	case KindIndexed:
		return v.Indexed[0]
	case KindAssoc:
		return v.Assoc["0"]
	}
	return v.Value
}

func (v *Var) indices() []int {
	idx := make([]int, 0, len(v.Indexed))
	for k := range v.Indexed {
		idx = append(idx, k)
	}
	sort.Ints(idx)
	return idx
}

// Keys returns the subscripts in order: ascending indices for indexed
// arrays, insertion order for associative arrays, "0" for a set scalar.
func (v *Var) Keys() []string {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindIndexed:
		idx := v.indices()
		keys := make([]string, len(idx))
		for i, n := range idx {
			keys[i] = strconv.Itoa(n)
		}
		return keys
	case KindAssoc:
		return append([]string(nil), v.keys...)
	}
	if v.Set {
		return []string{"0"}
	}
	return nil
}

// Values returns the element values in key order.
func (v *Var) Values() []string {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case KindIndexed:
		idx := v.indices()
		vals := make([]string, len(idx))
		for i, n := range idx {
			vals[i] = v.Indexed[n]
		}
		return vals
	case KindAssoc:
		vals := make([]string, len(v.keys))
		for i, k := range v.keys {
			vals[i] = v.Assoc[k]
		}
		return vals
	}
	if v.Set {
		return []string{v.Value}
	}
	return nil
}

// Index returns the element at key and whether it exists.
func (v *Var) Index(key string) (string, bool) {
	if v == nil {
		return "", false
	}
	switch v.Kind {
	case KindIndexed:
		n, err := strconv.Atoi(key)
		if err != nil {
			return "", false
		}
		if n < 0 {
			n += v.maxIndex() + 1
		}
		s, ok := v.Indexed[n]
		return s, ok
	case KindAssoc:
		s, ok := v.Assoc[key]
		return s, ok
	}
	if key == "0" || key == "-1" {
		return v.Value, v.Set
	}
	return "", false
}

func (v *Var) maxIndex() int {
	max := -1
	for k := range v.Indexed {
		if k > max {
			max = k
		}
	}
	return max
}

// toIndexed converts a scalar into an indexed array holding it at 0.
func (v *Var) toIndexed() {
	if v.Kind != KindScalar {
		return
	}
	v.Kind = KindIndexed
	v.Indexed = map[int]string{}
	if v.Set {
		v.Indexed[0] = v.Value
	}
	v.Value, v.Set = "", false
}

func (v *Var) toAssoc() {
	if v.Kind == KindAssoc {
		return
	}
	old := v.Values()
	v.Kind = KindAssoc
	v.Assoc = map[string]string{}
	v.keys = nil
	v.Indexed = nil
	if len(old) > 0 {
		v.setKey("0", old[0])
	}
	v.Value, v.Set = "", false
}

func (v *Var) setKey(key, val string) {
	if _, ok := v.Assoc[key]; !ok {
		v.keys = append(v.keys, key)
	}
	v.Assoc[key] = val
}

func (v *Var) deleteKey(key string) {
	if _, ok := v.Assoc[key]; !ok {
		return
	}
	delete(v.Assoc, key)
	for i, k := range v.keys {
		if k == key {
			v.keys = append(v.keys[:i], v.keys[i+1:]...)
			break
		}
	}
}

// transform applies the case attributes to a value being stored.
func (v *Var) transform(s string) string {
	switch {
	case v.Lower:
		return strings.ToLower(s)
	case v.Upper:
		return strings.ToUpper(s)
	}
	return s
}

// lookup finds name in the innermost scope that defines it, without
// following namerefs.
func (st *State) lookup(name string) *Var {
	for i := len(st.frames) - 1; i >= 0; i-- {
		if v, ok := st.frames[i].vars[name]; ok {
			return v
		}
	}
	return st.globals[name]
}

// ensure returns the variable for name, creating a global when absent.
func (st *State) ensure(name string) *Var {
	if v := st.lookup(name); v != nil {
		return v
	}
	v := &Var{}
	st.globals[name] = v
	return v
}

// splitRef splits "name[sub]" into its parts.
func splitRef(ref string) (name, sub string, hasSub bool) {
	i := strings.IndexByte(ref, '[')
	if i > 0 && strings.HasSuffix(ref, "]") {
		return ref[:i], ref[i+1 : len(ref)-1], true
	}
	return ref, "", false
}

// resolve follows namerefs from name to the final target reference, which
// may carry a subscript.
func (st *State) resolve(name string) (string, error) {
	seen := map[string]bool{}
	ref := name
	for {
		base, _, hasSub := splitRef(ref)
		if hasSub {
			return ref, nil
		}
		v := st.lookup(base)
		if v == nil || !v.Nameref || !v.Set || v.Value == "" {
			return ref, nil
		}
		if seen[base] {
			return "", fmt.Errorf("%s: circular name reference", name)
		}
		seen[base] = true
		ref = v.Value
	}
}

// readonlyError rejects a write to a readonly variable.
type readonlyError struct{ name string }

func (e *readonlyError) Error() string { return e.name + ": readonly variable" }

// setScalar stores value into the variable named by a resolved reference.
func (st *State) setScalar(ref, value string) error {
	name, sub, hasSub := splitRef(ref)
	if hasSub {
		return st.setElem(name, sub, value)
	}
	v := st.ensure(name)
	if v.ReadOnly {
		return &readonlyError{name: name}
	}
	value = v.transform(value)
	switch v.Kind {
	case KindIndexed:
		v.Indexed[0] = value
	case KindAssoc:
		v.setKey("0", value)
	default:
		v.Value, v.Set = value, true
	}
	if st.opts.Allexport {
		v.Exported = true
	}
	return nil
}

// setElem stores value at sub of the array name. Indexed subscripts must
// already be evaluated to decimal text.
func (st *State) setElem(name, sub, value string) error {
	v := st.ensure(name)
	if v.ReadOnly {
		return &readonlyError{name: name}
	}
	value = v.transform(value)
	if v.Kind == KindAssoc {
		v.setKey(sub, value)
		return nil
	}
	n, err := strconv.Atoi(sub)
	if err != nil {
		return fmt.Errorf("%s: bad array subscript", sub)
	}
	v.toIndexed()
	if n < 0 {
		n += v.maxIndex() + 1
		if n < 0 {
			return fmt.Errorf("%s[%s]: bad array subscript", name, sub)
		}
	}
	v.Indexed[n] = value
	if st.opts.Allexport {
		v.Exported = true
	}
	return nil
}

// unset removes name from the innermost scope that defines it.
func (st *State) unset(name string) error {
	for i := len(st.frames) - 1; i >= 0; i-- {
		if v, ok := st.frames[i].vars[name]; ok {
			if v.ReadOnly {
				return fmt.Errorf("%s: cannot unset: readonly variable", name)
			}
			delete(st.frames[i].vars, name)
			return nil
		}
	}
	if v, ok := st.globals[name]; ok {
		if v.ReadOnly {
			return fmt.Errorf("%s: cannot unset: readonly variable", name)
		}
		delete(st.globals, name)
	}
	return nil
}

// declareLocal creates name in the current function scope.
func (st *State) declareLocal(name string) *Var {
	f := st.frames[len(st.frames)-1]
	if v, ok := f.vars[name]; ok {
		return v
	}
	v := &Var{}
	f.vars[name] = v
	return v
}

// varNames returns every visible variable name, sorted.
func (st *State) varNames() []string {
	seen := map[string]bool{}
	for name := range st.globals {
		seen[name] = true
	}
	for _, f := range st.frames {
		for name := range f.vars {
			seen[name] = true
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// environ returns the exported scalar variables.
func (st *State) environ() map[string]string {
	env := map[string]string{}
	for _, name := range st.varNames() {
		v := st.lookup(name)
		if v.Exported && v.Kind == KindScalar && v.Set {
			env[name] = v.Value
		}
	}
	return env
}

// setArray replaces name with an indexed array of vals.
func (st *State) setArray(name string, vals []string) error {
	v := st.ensure(name)
	if v.ReadOnly {
		return &readonlyError{name: name}
	}
	v.Kind = KindIndexed
	v.Value, v.Set = "", false
	v.Assoc, v.keys = nil, nil
	v.Indexed = make(map[int]string, len(vals))
	for i, s := range vals {
		v.Indexed[i] = v.transform(s)
	}
	return nil
}

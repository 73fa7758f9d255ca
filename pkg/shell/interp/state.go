package interp

import (
	"time"

	"github.com/rcarmo/sandsh/pkg/shell/syntax"
	"github.com/rcarmo/sandsh/pkg/vfs"
)

// Options holds the set -o and shopt switches.
type Options struct {
	Errexit   bool
	Nounset   bool
	Pipefail  bool
	Noclobber bool
	Noexec    bool
	Noglob    bool
	Verbose   bool
	Xtrace    bool
	Allexport bool

	Nullglob    bool
	Dotglob     bool
	Nocasematch bool
	Extglob     bool
}

// frame is the local scope of a function call.
type frame struct {
	name string
	vars map[string]*Var
}

// State is the mutable context of one shell. Subshells run on a clone.
type State struct {
	fs vfs.FS

	globals    map[string]*Var
	frames     []*frame
	funcs      map[string]*syntax.FunctionDef
	positional []string
	arg0       string
	opts       Options
	cwd        string
	fds        fdTable
	traps      map[string]string
	procs      []*procSub

	// keepRedirs makes the pending redirection restore a no-op (exec).
	keepRedirs bool

	budget *budget
	depth  int

	lastExit   int
	lastSubst  int
	lastBg     int
	loopDepth  int
	funcDepth  int
	srcDepth   int
	noErrexit  int
	subshell   int
	line       int
	start      time.Time
	rand       uint32
	getoptsPos int
	// lastGetopts is the OPTIND value getopts last stored
	lastGetopts string
}

func newState(fsys vfs.FS) *State {
	return &State{
		fs:      fsys,
		globals: map[string]*Var{},
		funcs:   map[string]*syntax.FunctionDef{},
		cwd:     "/",
		fds: fdTable{
			0: newContent(""),
			1: newBuffer(),
			2: newBuffer(),
		},
		traps:  map[string]string{},
		budget: &budget{},
		arg0:   "bash",
		start:  time.Now(),
		rand:   0x2545f491,
	}
}

// clone returns a subshell copy. The command budget and open descriptor
// entries are shared; everything else is copied.
func (st *State) clone() *State {
	c := *st
	c.globals = make(map[string]*Var, len(st.globals))
	for k, v := range st.globals {
		c.globals[k] = v.clone()
	}
	c.frames = make([]*frame, len(st.frames))
	for i, f := range st.frames {
		nf := &frame{name: f.name, vars: make(map[string]*Var, len(f.vars))}
		for k, v := range f.vars {
			nf.vars[k] = v.clone()
		}
		c.frames[i] = nf
	}
	c.funcs = make(map[string]*syntax.FunctionDef, len(st.funcs))
	for k, v := range st.funcs {
		c.funcs[k] = v
	}
	c.positional = append([]string(nil), st.positional...)
	c.fds = st.fds.clone()
	c.procs = nil
	c.traps = map[string]string{}
	for k, v := range st.traps {
		// EXIT traps are not inherited by subshells
		if k != "EXIT" {
			c.traps[k] = v
		}
	}
	c.subshell++
	c.depth++
	return &c
}

// nextRandom advances the RANDOM generator.
func (st *State) nextRandom() int {
	x := st.rand
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	st.rand = x
	return int(x % 32768)
}

// optionFlags renders the $- value.
func (st *State) optionFlags() string {
	flags := ""
	for _, f := range []struct {
		on bool
		c  byte
	}{
		{st.opts.Allexport, 'a'},
		{st.opts.Errexit, 'e'},
		{st.opts.Noglob, 'f'},
		{true, 'h'},
		{st.opts.Noexec, 'n'},
		{st.opts.Nounset, 'u'},
		{st.opts.Verbose, 'v'},
		{st.opts.Xtrace, 'x'},
		{true, 'B'},
		{st.opts.Noclobber, 'C'},
	} {
		if f.on {
			flags += string(f.c)
		}
	}
	return flags
}

// setOptions lists the names accepted by set -o, in display order.
var setOptions = []string{
	"allexport", "errexit", "noclobber", "noexec", "noglob", "nounset",
	"pipefail", "verbose", "xtrace",
}

// shoptOptions lists the names accepted by shopt.
var shoptOptions = []string{"dotglob", "extglob", "nocasematch", "nullglob"}

// option returns the switch called name, or nil.
func (st *State) option(name string) *bool {
	switch name {
	case "allexport":
		return &st.opts.Allexport
	case "errexit":
		return &st.opts.Errexit
	case "noclobber":
		return &st.opts.Noclobber
	case "noexec":
		return &st.opts.Noexec
	case "noglob":
		return &st.opts.Noglob
	case "nounset":
		return &st.opts.Nounset
	case "pipefail":
		return &st.opts.Pipefail
	case "verbose":
		return &st.opts.Verbose
	case "xtrace":
		return &st.opts.Xtrace
	case "dotglob":
		return &st.opts.Dotglob
	case "extglob":
		return &st.opts.Extglob
	case "nocasematch":
		return &st.opts.Nocasematch
	case "nullglob":
		return &st.opts.Nullglob
	}
	return nil
}

package interp

import (
	"errors"
	"sort"
	"strings"
)

var (
	errBadFD   = errors.New("Bad file descriptor")
	errNoSpace = errors.New("No space left on device")
)

type fdKind uint8

const (
	fdBuffer    fdKind = iota // captured output
	fdContent                 // readable text
	fdFile                    // writes append to a path
	fdReadWrite               // readable text whose writes append to a path
	fdNull
	fdFull
)

// fdEntry is an open descriptor. Duplicated descriptors share an entry,
// and with it the read position.
type fdEntry struct {
	kind fdKind
	buf  *strings.Builder
	data string
	pos  int
	path string
}

func newBuffer() *fdEntry {
	return &fdEntry{kind: fdBuffer, buf: &strings.Builder{}}
}

func newContent(data string) *fdEntry {
	return &fdEntry{kind: fdContent, data: data}
}

func (e *fdEntry) readable() bool {
	switch e.kind {
	case fdContent, fdReadWrite, fdNull, fdFull:
		return true
	}
	return false
}

// rest returns the unread input.
func (e *fdEntry) rest() string {
	if e.pos >= len(e.data) {
		return ""
	}
	return e.data[e.pos:]
}

// fdTable maps descriptor numbers to entries.
type fdTable map[int]*fdEntry

func (t fdTable) clone() fdTable {
	c := make(fdTable, len(t))
	for k, v := range t {
		c[k] = v
	}
	return c
}

// free returns the lowest unused descriptor at or above 10.
func (t fdTable) free() int {
	n := 10
	for {
		if _, ok := t[n]; !ok {
			return n
		}
		n++
	}
}

func (t fdTable) numbers() []int {
	ns := make([]int, 0, len(t))
	for n := range t {
		ns = append(ns, n)
	}
	sort.Ints(ns)
	return ns
}

// write sends s to descriptor fd.
func (st *State) write(fd int, s string) error {
	e, ok := st.fds[fd]
	if !ok {
		return errBadFD
	}
	switch e.kind {
	case fdBuffer:
		e.buf.WriteString(s)
	case fdFile, fdReadWrite:
		if s == "" {
			return nil
		}
		return st.fs.AppendFile(e.path, s)
	case fdNull:
	case fdFull:
		return errNoSpace
	default:
		return errBadFD
	}
	return nil
}

// out writes to standard output, ignoring errors. Builtins that must
// report write failures call write directly.
func (st *State) out(s string) {
	_ = st.write(1, s)
}

// errf writes a diagnostic to standard error.
func (st *State) errf(s string) {
	_ = st.write(2, s)
}

// readAll consumes the rest of fd's input.
func (st *State) readAll(fd int) string {
	e, ok := st.fds[fd]
	if !ok || !e.readable() {
		return ""
	}
	s := e.rest()
	e.pos = len(e.data)
	return s
}

// readUntil consumes input up to and including delim. ok is false when
// the input ended before delim was seen.
func (st *State) readUntil(fd int, delim byte) (line string, ok bool, err error) {
	e, found := st.fds[fd]
	if !found || !e.readable() {
		return "", false, errBadFD
	}
	rest := e.rest()
	i := strings.IndexByte(rest, delim)
	if i < 0 {
		e.pos = len(e.data)
		return rest, false, nil
	}
	e.pos += i + 1
	return rest[:i], true, nil
}

// readN consumes up to n bytes of input.
func (st *State) readN(fd, n int) (string, error) {
	e, found := st.fds[fd]
	if !found || !e.readable() {
		return "", errBadFD
	}
	rest := e.rest()
	if n > len(rest) {
		n = len(rest)
	}
	e.pos += n
	return rest[:n], nil
}

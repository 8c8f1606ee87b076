package nmr

import (
	"errors"
	"strings"
)

// Status is a set of error flags. Flags compose: a single Status may carry
// several of them. The zero Status means success and is never returned as
// an error.
type Status uint32

const (
	// StatusStale means the operation ran but the result reflects an old or
	// empty state.
	StatusStale Status = 1 << iota
	// StatusInvalidParam means a request was structurally invalid.
	StatusInvalidParam
	// StatusAlloc means a buffer could not be allocated.
	StatusAlloc
	// StatusIO means an I/O operation failed.
	StatusIO
	// StatusIOWrongSize means an input had an unexpected size.
	StatusIOWrongSize
	// StatusIOOpen means a file could not be opened.
	StatusIOOpen
	// StatusIOClose means a file could not be closed.
	StatusIOClose
	// StatusMissingCollaborator means a required collaborator was nil.
	StatusMissingCollaborator
)

var statusNames = []struct {
	flag Status
	name string
}{
	{StatusStale, "stale data"},
	{StatusInvalidParam, "invalid parameter"},
	{StatusAlloc, "allocation failure"},
	{StatusIO, "I/O failure"},
	{StatusIOWrongSize, "wrong size"},
	{StatusIOOpen, "open failure"},
	{StatusIOClose, "close failure"},
	{StatusMissingCollaborator, "missing collaborator"},
}

// Error implements error.
func (s Status) Error() string {
	if s == 0 {
		return "ok"
	}

	var parts []string
	for _, n := range statusNames {
		if s&n.flag != 0 {
			parts = append(parts, n.name)
		}
	}

	return strings.Join(parts, ", ")
}

// Has reports whether every flag of f is set in s.
func (s Status) Has(f Status) bool {
	return f != 0 && s&f == f
}

// Is lets errors.Is match a Status against any flag subset it contains.
func (s Status) Is(target error) bool {
	t, ok := target.(Status)
	return ok && s.Has(t)
}

// StatusOf returns the union of all Status flags found in err's chain.
// A nil error yields 0; an error with no Status yields 0 as well.
func StatusOf(err error) Status {
	var st Status
	for err != nil {
		if s, ok := err.(Status); ok {
			st |= s
		}

		if j, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range j.Unwrap() {
				st |= StatusOf(e)
			}
			return st
		}

		err = errors.Unwrap(err)
	}

	return st
}

// Package serr has the errors returned by the plyfin server service layer.
// Service calls return an Error made of a message and the sentinel errors that
// describe its kind, so callers can branch with errors.Is and still get at a
// compile or parse error with errors.As.
package serr

import "errors"

var (
	ErrBadCredentials = errors.New("the supplied username/password combination is incorrect")
	ErrNotFound       = errors.New("the requested entity could not be found")
	ErrAlreadyExists  = errors.New("an entity with the same name already exists")
	ErrDB             = errors.New("an error occured with the DB")
	ErrBadArgument    = errors.New("one or more of the arguments is invalid")
	ErrBodyUnmarshal  = errors.New("malformed data in request")
	ErrTooLarge       = errors.New("the data is larger than the server accepts")
	ErrGrammar        = errors.New("the grammar could not be compiled")
	ErrInput          = errors.New("the input does not match the grammar")
)

// Error is a message along with every error that caused it. errors.Is and
// errors.As check all of the causes, in order. Create one with New or WrapDB.
type Error struct {
	msg    string
	causes []error
}

// New returns an Error with the given message and causes. msg may be empty, in
// which case the Error reads as its first cause.
func New(msg string, causes ...error) Error {
	return Error{msg: msg, causes: append([]error(nil), causes...)}
}

// WrapDB returns an Error caused by err and ErrDB.
func WrapDB(msg string, err error) Error {
	return New(msg, err, ErrDB)
}

// Error gives the message followed by the text of the first cause.
func (e Error) Error() string {
	switch {
	case len(e.causes) == 0:
		return e.msg
	case e.msg == "":
		return e.causes[0].Error()
	default:
		return e.msg + ": " + e.causes[0].Error()
	}
}

// Unwrap returns the causes of e.
func (e Error) Unwrap() []error {
	return e.causes
}

// Is reports whether any cause of e is target. errors.Is in Go 1.19 does not
// follow an Unwrap that returns a slice, so e does it itself.
func (e Error) Is(target error) bool {
	for _, c := range e.causes {
		if errors.Is(c, target) {
			return true
		}
	}
	return false
}

// As sets target to the first cause that errors.As can convert.
func (e Error) As(target any) bool {
	for _, c := range e.causes {
		if errors.As(c, target) {
			return true
		}
	}
	return false
}

package configtree

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTag       = errors.New("unknown tag")
	ErrUnexpectedIndent = errors.New("more tabs than required")
	ErrMissingDelimiter = errors.New("no +, -, : symbol found")
	ErrOpen             = errors.New("cannot open file")
	ErrShape            = errors.New("config shape")
)

// ParseError reports a malformed document. Kind is one of the sentinel
// errors above and is returned by Unwrap so callers can use errors.Is.
type ParseError struct {
	Source string
	Line   int
	Kind   error
	Msg    string
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Source != "" {
		msg = e.Source + ": " + msg
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Kind }

package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type Code int

const (
	CodeInternal Code = iota
	CodeInvalidArgument
	CodeNotFound

	// Question retrieval.
	CodeFetch
	CodeNoResults
	CodeInvalidCategory

	// Reveal time.
	CodeReactionQuery
	CodePersistence

	// Leaderboard rendering, never fatal.
	CodeLookup
)

var code2message = map[Code]string{
	CodeInternal:        "Something went wrong",
	CodeInvalidArgument: "Invalid argument",
	CodeNotFound:        "Not found",
	CodeFetch:           "There was a problem getting the response",
	CodeNoResults:       "No results were returned",
	CodeInvalidCategory: "Invalid category id. Try !trivia --cats for a list of valid categories.",
	CodeReactionQuery:   "There was a problem updating the scores",
	CodePersistence:     "There was a problem updating the scores",
	CodeLookup:          "Could not resolve user",
}

var code2http = map[Code]int{
	CodeInvalidArgument: http.StatusBadRequest,
	CodeInvalidCategory: http.StatusBadRequest,
	CodeNotFound:        http.StatusNotFound,
	CodeNoResults:       http.StatusNotFound,
	CodeLookup:          http.StatusNotFound,
	CodeFetch:           http.StatusBadGateway,
	CodeReactionQuery:   http.StatusBadGateway,
	CodeInternal:        http.StatusInternalServerError,
	CodePersistence:     http.StatusInternalServerError,
}

func (c Code) String() string {
	switch c {
	case CodeInvalidArgument:
		return "invalid_argument"
	case CodeNotFound:
		return "not_found"
	case CodeFetch:
		return "fetch"
	case CodeNoResults:
		return "no_results"
	case CodeInvalidCategory:
		return "invalid_category"
	case CodeReactionQuery:
		return "reaction_query"
	case CodePersistence:
		return "persistence"
	case CodeLookup:
		return "lookup"
	default:
		return "internal"
	}
}

// Error is an error with a code and a message that is safe to show in a chat channel.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	err     error
}

func New(code Code, opts ...Option) *Error {
	e := &Error{
		Code:    code,
		Message: code2message[code],
	}

	for _, opt := range opts {
		opt.apply(e)
	}

	return e
}

func (e *Error) Error() string {
	s := fmt.Sprintf("code: %s, message: %s", e.Code, e.Message)
	if e.err != nil {
		s += fmt.Sprintf(", err: %s", e.err)
	}

	return s
}

func (e *Error) Unwrap() error {
	return e.err
}

func (e *Error) HTTPStatusCode() int {
	if c, ok := code2http[e.Code]; ok {
		return c
	}

	return http.StatusInternalServerError
}

func Convert(err error) *Error {
	var e *Error
	if !errors.As(err, &e) {
		return Internal(err)
	}

	return e
}

// Is reports whether any error in err's chain is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

func Internal(err error) *Error {
	return New(CodeInternal, WithCause(err))
}

type Option interface {
	apply(*Error)
}

type optionFunc func(*Error)

func (f optionFunc) apply(e *Error) {
	f(e)
}

func WithCause(err error) Option {
	return optionFunc(func(e *Error) {
		e.err = err
	})
}

func WithMessagef(format string, args ...any) Option {
	return optionFunc(func(e *Error) {
		e.Message = fmt.Sprintf(format, args...)
	})
}

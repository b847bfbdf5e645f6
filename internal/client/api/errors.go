package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrAuth               = errors.New("not authorized")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrValidation         = errors.New("invalid input")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrNetwork            = errors.New("network failure")
	ErrServer             = errors.New("server failure")
)

// Error is returned by every Client operation that fails. Kind is one of the
// sentinel errors above, so callers can use errors.Is(err, api.ErrNotFound).
type Error struct {
	Kind    error
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool { return e.Kind == target }

func (e *Error) Unwrap() error { return e.Err }

// IsForbidden reports whether err is an authorization failure caused by a
// missing permission rather than a missing or invalid token.
func IsForbidden(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == ErrAuth && apiErr.Status == http.StatusForbidden
}

func validationError(op, msg string) error {
	return &Error{Kind: ErrValidation, Op: op, Message: msg}
}

// classify maps a non-2xx response to the error taxonomy. Register and login
// report every client-side rejection as an auth failure.
func classify(op string, status int, msg string) error {
	e := &Error{Op: op, Status: status, Message: msg}
	lower := strings.ToLower(msg)
	switch {
	case status >= 500:
		e.Kind = ErrServer
	case op == opRegister || op == opLogin:
		e.Kind = ErrAuth
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = ErrAuth
	case status == http.StatusNotFound:
		e.Kind = ErrNotFound
	case status == http.StatusConflict:
		e.Kind = ErrConflict
	case strings.Contains(lower, "insufficient points"):
		e.Kind = ErrInsufficientPoints
	case strings.Contains(lower, "already enrolled"), strings.Contains(lower, "already exists"):
		e.Kind = ErrConflict
	case status >= 400:
		e.Kind = ErrValidation
	default:
		e.Kind = ErrServer
	}
	return e
}

// Package resource models the lifecycle of a remotely fetched value.
//
// A Resource is always in exactly one of three states: Loading (no data yet),
// Success (holding data) or Error (holding a message). Values are immutable;
// a state change is a new Resource assigned in place of the old one. The zero
// value is Loading.
package resource

// State enumerates the three variants of a Resource.
type State uint8

const (
	StateLoading State = iota
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

type Resource[T any] struct {
	state State
	data  T
	msg   string
}

func Loading[T any]() Resource[T] {
	return Resource[T]{state: StateLoading}
}

func Success[T any](data T) Resource[T] {
	return Resource[T]{state: StateSuccess, data: data}
}

// Failure builds the Error variant. An empty message is replaced so the
// variant always carries something renderable.
func Failure[T any](msg string) Resource[T] {
	if msg == "" {
		msg = "unknown error"
	}
	return Resource[T]{state: StateError, msg: msg}
}

func (r Resource[T]) State() State { return r.state }

func (r Resource[T]) IsLoading() bool { return r.state == StateLoading }
func (r Resource[T]) IsSuccess() bool { return r.state == StateSuccess }
func (r Resource[T]) IsError() bool   { return r.state == StateError }

// Data returns the payload and true only in the Success state.
func (r Resource[T]) Data() (T, bool) {
	if r.state != StateSuccess {
		var zero T
		return zero, false
	}
	return r.data, true
}

// Err returns the message and true only in the Error state.
func (r Resource[T]) Err() (string, bool) {
	if r.state != StateError {
		return "", false
	}
	return r.msg, true
}

// Match dispatches on the active state. All three handlers are required, so a
// caller cannot forget a variant.
func Match[T, R any](r Resource[T], onLoading func() R, onSuccess func(T) R, onError func(string) R) R {
	switch r.state {
	case StateSuccess:
		return onSuccess(r.data)
	case StateError:
		return onError(r.msg)
	default:
		return onLoading()
	}
}

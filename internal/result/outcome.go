package result

import "fmt"

// Outcome is the terminal result of one operation: a kind plus either a
// payload (Success) or a human-readable message (everything else).
type Outcome[T any] struct {
	Kind    Kind
	Data    T
	Message string
}

// Succeeded wraps data in a Success outcome.
func Succeeded[T any](data T) Outcome[T] {
	return Outcome[T]{Kind: Success, Data: data}
}

// BadRequestf reports malformed or missing caller input.
func BadRequestf[T any](format string, args ...any) Outcome[T] {
	return Outcome[T]{Kind: BadRequest, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf reports that a referenced entity does not exist.
func NotFoundf[T any](format string, args ...any) Outcome[T] {
	return Outcome[T]{Kind: NotFound, Message: fmt.Sprintf(format, args...)}
}

// Failedf reports an operation that was attempted and rejected.
func Failedf[T any](format string, args ...any) Outcome[T] {
	return Outcome[T]{Kind: Failed, Message: fmt.Sprintf(format, args...)}
}

func (o Outcome[T]) OK() bool { return o.Kind == Success }

// Recast carries a non-success outcome over to another payload type. The
// payload of a Success outcome is dropped, so callers should only use it on
// failures.
func Recast[U, T any](o Outcome[T]) Outcome[U] {
	return Outcome[U]{Kind: o.Kind, Message: o.Message}
}

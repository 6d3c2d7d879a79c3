// Package result provides a two-variant outcome type used by step handlers
// instead of bare (value, error) pairs, so that failures can be composed as data.
package result

import (
	"errors"
	"fmt"
)

// Result holds either a success value or a failure error. The zero value is a
// success holding the zero T.
type Result[T any] struct {
	value T
	err   error
}

// Ok wraps a success value.
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Err wraps a failure. A nil error is replaced with a generic one so that Err
// never produces a success by accident.
func Err[T any](err error) Result[T] {
	if err == nil {
		err = errors.New("unspecified failure")
	}
	return Result[T]{err: err}
}

// Errf builds a failure from a formatted message.
func Errf[T any](format string, args ...any) Result[T] {
	return Err[T](fmt.Errorf(format, args...))
}

// IsOk reports whether r holds a success value.
func (r Result[T]) IsOk() bool { return r.err == nil }

// IsErr reports whether r holds a failure.
func (r Result[T]) IsErr() bool { return r.err != nil }

// Value returns the success value, or the zero T for a failure.
func (r Result[T]) Value() T { return r.value }

// Error returns the failure, or nil for a success.
func (r Result[T]) Error() error { return r.err }

// Unwrap converts r into the conventional (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	return r.value, r.err
}

// UnwrapOr returns the success value or def.
func (r Result[T]) UnwrapOr(def T) T {
	if r.err != nil {
		return def
	}
	return r.value
}

// Any erases the value type, used when handing typed stage outcomes to the executor.
func (r Result[T]) Any() Result[any] {
	if r.err != nil {
		return Result[any]{err: r.err}
	}
	return Result[any]{value: r.value}
}

// String renders Ok(v) or Err(e).
func (r Result[T]) String() string {
	if r.err != nil {
		return fmt.Sprintf("Err(%v)", r.err)
	}
	return fmt.Sprintf("Ok(%v)", r.value)
}

// From lifts a (value, error) pair into a Result.
func From[T any](value T, err error) Result[T] {
	if err != nil {
		return Err[T](err)
	}
	return Ok(value)
}

// Map applies f to a success value and passes failures through unchanged.
func Map[T, U any](r Result[T], f func(T) U) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return Ok(f(r.value))
}

// AndThen sequences f after r, short-circuiting on the first failure.
func AndThen[T, U any](r Result[T], f func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Result[U]{err: r.err}
	}
	return f(r.value)
}

// OrElse recovers a failure by calling f with the error; successes are returned as is.
func OrElse[T any](r Result[T], f func(error) Result[T]) Result[T] {
	if r.err != nil {
		return f(r.err)
	}
	return r
}

// MapErr rewrites a failure and leaves successes untouched.
func MapErr[T any](r Result[T], f func(error) error) Result[T] {
	if r.err != nil {
		return Err[T](f(r.err))
	}
	return r
}

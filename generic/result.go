package generic

import "fmt"

// Result carries a (T, error) pair as a single value, e.g. over a channel.
type Result[T any] struct {
	Value T
	Error error
}

func NewResult[T any](value T, err error) Result[T] {
	return Result[T]{Value: value, Error: err}
}

func (r Result[T]) IsOk() bool {
	return r.Error == nil
}

func (r Result[T]) IsErr() bool {
	return r.Error != nil
}

// Parts splits the Result back into the usual (T, error) return.
func (r Result[T]) Parts() (T, error) {
	return r.Value, r.Error
}

// Unwrap returns value, panicking if err is not nil. For calls that cannot fail in practice.
func Unwrap[T any](value T, err error) T {
	Unwrap_(err)
	return value
}

// Unwrap_ panics if err is not nil.
func Unwrap_(err error) {
	if err != nil {
		panic(fmt.Errorf("unexpected error: %w", err))
	}
}

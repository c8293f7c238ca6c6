package generic

// Option is a value that may be absent, for lookups where absence is an ordinary outcome rather than a failure.
type Option[T any] struct {
	value T
	ok    bool
}

func Some[T any](value T) Option[T] {
	return Option[T]{value: value, ok: true}
}

func None[T any]() Option[T] {
	return Option[T]{}
}

// Get returns the value and whether it is present, in the style of a map lookup.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.ok
}

func (o Option[T]) IsSome() bool {
	return o.ok
}

func (o Option[T]) IsNone() bool {
	return !o.ok
}

// Or returns the value if present, otherwise fallback.
func (o Option[T]) Or(fallback T) T {
	if o.ok {
		return o.value
	}
	return fallback
}

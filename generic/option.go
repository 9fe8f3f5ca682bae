package generic

type Option[T any] struct {
	Value    T
	hasValue bool
}

// Get returns the contained value and whether there was one, for use in if-statements.
func (o Option[T]) Get() (T, bool) {
	return o.Value, o.hasValue
}

// IsNone returns true if this Option[T] does not have a value.
func (o Option[T]) IsNone() bool {
	return !o.hasValue
}

// Filter returns the option itself if it has a value that satisfies the predicate, otherwise None.
func (o Option[T]) Filter(f func(T) bool) Option[T] {
	if o.hasValue && f(o.Value) {
		return o
	}
	return None[T]()
}

// Some constructs an Option[T] that has a value.
func Some[T any](value T) Option[T] {
	return Option[T]{Value: value, hasValue: true}
}

// None constructs an Option[T] that does not have a value.
func None[T any]() Option[T] {
	return Option[T]{hasValue: false}
}

// FromPair constructs an Option[T] from the common (value, ok) return convention.
func FromPair[T any](value T, ok bool) Option[T] {
	if ok {
		return Some(value)
	}
	return None[T]()
}

// Unwrap_ panics if err is not nil, for registration in init and Must* helpers.
func Unwrap_(err error) {
	if err != nil {
		panic(err)
	}
}

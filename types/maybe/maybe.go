// Package maybe wraps values that may be absent, such as columns from
// an outer join.
package maybe

type Maybe[T any] struct {
	value T
	valid bool
}

// SqlNull adapts the value/valid pair of the database/sql null types.
func SqlNull[T any](value T, valid bool) Maybe[T] {
	return Maybe[T]{
		value: value,
		valid: valid,
	}
}

func (m Maybe[T]) IsValid() bool {
	return m.valid
}

func (m Maybe[T]) Value() T {
	return m.value
}

func (m Maybe[T]) ValueOrDefault(defaultValue T) T {
	if m.valid {
		return m.value
	}
	return defaultValue
}

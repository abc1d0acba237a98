// Package assert panics when an internal invariant is broken. It is for
// conditions the program guarantees itself, never for validating input.
package assert

import (
	"fmt"
)

// Length panics unless value is exactly expected bytes long
func Length(value string, expected int) {
	if len(value) != expected {
		msg := fmt.Sprintf("assert.Length expected %d actual %d", expected, len(value))
		panic(msg)
	}
}

// NotZero panics when value is the zero value of its type
func NotZero[T comparable](value T, name string) {
	var zero T
	if value == zero {
		panic(fmt.Sprintf("assert.NotZero %s is zero", name))
	}
}

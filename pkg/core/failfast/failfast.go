// Package failfast panics on programmer errors such as nil dependencies.
package failfast

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrViolation is wrapped by every value this package panics with
var ErrViolation = errors.New("fail-fast")

// If panics if condition is false
// Allows formatted messages with args
func If(condition bool, message string, args ...interface{}) {
	if !condition {
		panic(fmt.Errorf("%w: %s", ErrViolation, fmt.Sprintf(message, args...)))
	}
}

// NotNil panics if ptr is nil
// Handles both untyped nil and typed nil pointers, funcs, maps and interfaces
func NotNil(ptr interface{}, name string) {
	if isNil(ptr) {
		panic(fmt.Errorf("%w: %s is nil", ErrViolation, name))
	}
}

func isNil(ptr interface{}) bool {
	if ptr == nil {
		return true
	}
	v := reflect.ValueOf(ptr)
	switch v.Kind() {
	case reflect.Ptr, reflect.Func, reflect.Map, reflect.Chan, reflect.Interface, reflect.Slice:
		return v.IsNil()
	}
	return false
}

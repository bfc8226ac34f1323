package registry

import (
	"errors"
	"fmt"
)

// ErrUnsupported is returned when no native registry exists on this platform.
var ErrUnsupported = errors.New("registry: native registry not available on this platform")

// NotFoundError indicates that a key (Name == "") or a value does not exist.
type NotFoundError struct {
	Path string
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("registry: key %s not found", e.Path)
	}
	return fmt.Sprintf("registry: value %s in %s not found", e.Name, e.Path)
}

// AccessDeniedError indicates the store rejected an open or write.
type AccessDeniedError struct {
	Path string
	Name string
	Err  error
}

func (e *AccessDeniedError) Error() string {
	target := e.Path
	if e.Name != "" {
		target = e.Path + `\` + e.Name
	}
	if e.Err != nil {
		return fmt.Sprintf("registry: access to %s denied: %v", target, e.Err)
	}
	return fmt.Sprintf("registry: access to %s denied", target)
}

func (e *AccessDeniedError) Unwrap() error { return e.Err }

// TypeError indicates that a value exists with an unexpected kind.
type TypeError struct {
	Path string
	Name string
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("registry: value %s in %s is %s, want %s", e.Name, e.Path, e.Got, e.Want)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsKeyAbsent reports whether err signals a missing key.
func IsKeyAbsent(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target) && target.Name == ""
}

// IsValueAbsent reports whether err signals a missing value in an existing key.
func IsValueAbsent(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target) && target.Name != ""
}

// IsAccessDenied reports whether err is (or wraps) an AccessDeniedError.
func IsAccessDenied(err error) bool {
	var target *AccessDeniedError
	return errors.As(err, &target)
}

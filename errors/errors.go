// Package errors defines the failure kinds shared by every fallible
// operation in mesh3mf.
package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an error.
type Kind uint8

// Error kinds.
const (
	// KindIo reports a failure of the underlying byte source or ZIP codec.
	KindIo Kind = iota
	// KindInvalidStructure reports a container that is not a valid OPC package.
	KindInvalidStructure
	// KindValidation reports a violated well-formedness or semantic rule.
	KindValidation
	// KindResourceNotFound reports a failed lookup by id or name.
	KindResourceNotFound
	// KindEncryption reports a failed cryptographic primitive.
	KindEncryption
)

func (k Kind) String() string {
	return map[Kind]string{
		KindIo:               "io",
		KindInvalidStructure: "invalid structure",
		KindValidation:       "validation",
		KindResourceNotFound: "resource not found",
		KindEncryption:       "encryption",
	}[k]
}

// Error is the concrete error type returned across the module.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("mesh3mf: %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("mesh3mf: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// KindOf returns the kind of err if it is (or wraps) an *Error.
// The second result reports whether a kind was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// IoErr wraps a system cause as an io-kind error.
func IoErr(cause error) error {
	return &Error{Kind: KindIo, Message: "read/write failed", Cause: cause}
}

// Iof formats an io-kind error with a cause.
func Iof(cause error, format string, args ...interface{}) error {
	return &Error{Kind: KindIo, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// InvalidStructuref formats an invalid-structure error.
func InvalidStructuref(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidStructure, Message: fmt.Sprintf(format, args...)}
}

// Validationf formats a validation error.
func Validationf(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf formats a resource-not-found error.
func NotFoundf(format string, args ...interface{}) error {
	return &Error{Kind: KindResourceNotFound, Message: fmt.Sprintf(format, args...)}
}

// Encryptionf formats an encryption error.
func Encryptionf(format string, args ...interface{}) error {
	return &Error{Kind: KindEncryption, Message: fmt.Sprintf(format, args...)}
}

// Encryption wraps a cause as an encryption error.
func Encryption(cause error, msg string) error {
	return &Error{Kind: KindEncryption, Message: msg, Cause: cause}
}

// ParseAttr reports an attribute whose raw value could not be parsed.
func ParseAttr(name, raw string) error {
	return Validationf("invalid value for attribute %s: %q", name, raw)
}

// MissingAttr reports a mandatory attribute that is absent.
func MissingAttr(name string) error {
	return Validationf("missing required attribute %s", name)
}

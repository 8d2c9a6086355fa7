package serial

import (
	"errors"
	"fmt"
)

// Common serialization error types
var (
	// ErrEncoding is returned when a value tree cannot be rendered to text or bytes
	ErrEncoding = errors.New("encoding failed")

	// ErrDecoding is returned when input is not well-formed JSON
	ErrDecoding = errors.New("decoding failed")

	// ErrAttributeSkipped is attached to every per-attribute coercion failure
	ErrAttributeSkipped = errors.New("attribute coercion skipped")

	// ErrGraph is returned when a persistence context refuses to create or locate a node
	ErrGraph = errors.New("graph construction failed")

	// ErrTypeMismatch is returned when a wire value does not fit the attribute kind
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrUnrepresentable is returned when a value has no JSON representation
	ErrUnrepresentable = errors.New("value not representable as JSON")

	// ErrInvalidTarget is returned when a decode target is not a non-nil pointer to a struct
	ErrInvalidTarget = errors.New("invalid decode target")

	// ErrNotStruct is returned when a schema is requested for a non-struct type
	ErrNotStruct = errors.New("type is not a struct")

	// ErrUnknownType is returned when a registry lookup fails
	ErrUnknownType = errors.New("unknown type")

	// ErrAlreadyRegistered is returned when a type name is registered twice
	ErrAlreadyRegistered = errors.New("type already registered")
)

// EncodingError wraps a failure of the underlying JSON encoder.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: %v", ErrEncoding, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// DecodingError reports malformed input. Offset is the byte offset reached
// by the tokenizer when the error was detected.
type DecodingError struct {
	Offset int64
	Err    error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("%s at offset %d: %v", ErrDecoding, e.Offset, e.Err)
}

func (e *DecodingError) Unwrap() error { return e.Err }

func (e *DecodingError) Is(target error) bool { return target == ErrDecoding }

// CoercionError describes one attribute that was skipped while populating an object.
type CoercionError struct {
	Type      string
	Attribute string
	Key       string
	Err       error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("%s: %s.%s (key %q): %v", ErrAttributeSkipped, e.Type, e.Attribute, e.Key, e.Err)
}

func (e *CoercionError) Unwrap() error { return e.Err }

func (e *CoercionError) Is(target error) bool { return target == ErrAttributeSkipped }

// GraphError reports a persistence context failure for a single node.
type GraphError struct {
	Entity string
	Key    string
	Err    error
}

func (e *GraphError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s: entity %s (key %q): %v", ErrGraph, e.Entity, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: entity %s: %v", ErrGraph, e.Entity, e.Err)
}

func (e *GraphError) Unwrap() error { return e.Err }

func (e *GraphError) Is(target error) bool { return target == ErrGraph }

func mismatch(expected string, raw Value) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, expected, raw.Kind())
}

// IsDecodingError returns true if the error is a malformed-input error
func IsDecodingError(err error) bool {
	return errors.Is(err, ErrDecoding)
}

// IsEncodingError returns true if the error came from the JSON encoder
func IsEncodingError(err error) bool {
	return errors.Is(err, ErrEncoding)
}

// IsGraphError returns true if a persistence context failed
func IsGraphError(err error) bool {
	return errors.Is(err, ErrGraph)
}

// IsAttributeSkipped returns true if the error reports skipped attributes
func IsAttributeSkipped(err error) bool {
	return errors.Is(err, ErrAttributeSkipped)
}

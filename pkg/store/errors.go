package store

import "errors"

// Common store error types
var (
	// ErrNotFound is returned by a Backend when no body is stored for a node
	ErrNotFound = errors.New("node not found")

	// ErrNotEntity is returned when a registered type does not implement serial.Entity
	ErrNotEntity = errors.New("registered type is not an entity")

	// ErrClosed is returned when a closed backend is used
	ErrClosed = errors.New("store is closed")

	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")
)

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUniqueViolation checks if an error is a unique constraint violation
func IsUniqueViolation(err error) bool {
	return errors.Is(err, ErrUniqueViolation)
}

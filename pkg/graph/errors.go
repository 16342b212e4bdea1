package graph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrVertexNotFound      = errors.New("vertex not found")
	ErrEdgeNotFound        = errors.New("edge not found")
	ErrConstraintViolation = errors.New("constraint violation")
	ErrReadOnlyTxn         = errors.New("write in read-only transaction")
	ErrTxnClosed           = errors.New("transaction is closed")
	ErrUnknownLabel        = errors.New("unknown label")
)

// StorageError provides structured error information for storage operations.
type StorageError struct {
	Op     string // Operation that failed (e.g., "CreateVertex", "DeleteEdge")
	Entity string // "vertex", "edge", "label"
	ID     int64
	Field  string
	Cause  error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	switch {
	case e.ID != 0 && e.Field != "":
		return fmt.Sprintf("%s %s %d (field %s): %v", e.Op, e.Entity, e.ID, e.Field, e.Cause)
	case e.ID != 0:
		return fmt.Sprintf("%s %s %d: %v", e.Op, e.Entity, e.ID, e.Cause)
	case e.Field != "":
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Field, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building StorageErrors.
type ErrorBuilder struct {
	err StorageError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: StorageError{Op: op}}
}

// Vertex sets the entity to "vertex" with the given ID.
func (b *ErrorBuilder) Vertex(id VertexID) *ErrorBuilder {
	b.err.Entity = "vertex"
	b.err.ID = int64(id)
	return b
}

// Edge sets the entity to "edge" with the given ID.
func (b *ErrorBuilder) Edge(id EdgeID) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = int64(id)
	return b
}

// Label sets the entity to "label".
func (b *ErrorBuilder) Label(name string) *ErrorBuilder {
	b.err.Entity = "label"
	b.err.Field = name
	return b
}

// Field sets the field name for property operations.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder {
	b.err.Field = name
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// VertexNotFoundError creates a vertex not found error.
func VertexNotFoundError(id VertexID) error {
	return NewError("get").Vertex(id).Cause(ErrVertexNotFound).Err()
}

// EdgeNotFoundError creates an edge not found error.
func EdgeNotFoundError(id EdgeID) error {
	return NewError("get").Edge(id).Cause(ErrEdgeNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrVertexNotFound) || errors.Is(err, ErrEdgeNotFound)
}

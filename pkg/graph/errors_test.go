package graph

import (
	"errors"
	"strings"
	"testing"
)

func TestStorageError_Unwrap(t *testing.T) {
	err := VertexNotFoundError(42)
	if !errors.Is(err, ErrVertexNotFound) {
		t.Error("expected errors.Is to match ErrVertexNotFound")
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should be true")
	}
	if !strings.Contains(err.Error(), "vertex 42") {
		t.Errorf("unexpected message %q", err.Error())
	}

	var serr *StorageError
	if !errors.As(err, &serr) || serr.Op != "get" {
		t.Errorf("expected StorageError with op get, got %v", err)
	}
}

func TestErrorBuilder_Field(t *testing.T) {
	err := NewError("SetVertexProperty").Vertex(7).Field("name").Cause(ErrConstraintViolation).Err()
	want := "SetVertexProperty vertex 7 (field name): constraint violation"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if IsNotFound(err) {
		t.Error("constraint violation is not a not-found error")
	}
}

func TestEdgeOther(t *testing.T) {
	e := &Edge{Src: 1, Dst: 2}
	if e.Other(1) != 2 || e.Other(2) != 1 {
		t.Error("Other returned the wrong endpoint")
	}
}

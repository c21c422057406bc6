package geom

import (
	"errors"
	"fmt"
)

// ErrCapacityExceeded is returned when a shape does not fit in the batch.
var ErrCapacityExceeded = errors.New("geom: batch capacity exceeded")

// ErrInvalidCapacity is returned by Validate when a batch was built with a
// non-positive capacity.
var ErrInvalidCapacity = errors.New("geom: invalid batch capacity")

// Kind names the exhausted resource in a CapacityError.
type Kind uint8

const (
	// KindVertices reports the vertex buffer as full.
	KindVertices Kind = iota
	// KindIndices reports the index buffer as full.
	KindIndices
)

// String returns "vertices" or "indices".
func (k Kind) String() string {
	switch k {
	case KindVertices:
		return "vertices"
	case KindIndices:
		return "indices"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// CapacityError describes a rejected append.
type CapacityError struct {
	Kind      Kind
	Requested int // total count the append would have produced
	Capacity  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("geom: batch capacity exceeded: %d %s requested, capacity %d",
		e.Requested, e.Kind, e.Capacity)
}

// Unwrap returns ErrCapacityExceeded.
func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

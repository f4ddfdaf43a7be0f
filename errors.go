package tilecanvas

import (
	"errors"
	"fmt"
)

// Sentinel errors. Matched with errors.Is.
var (
	// ErrAtlasFull is returned by the slot allocator and atlas manager when
	// every layer is saturated.
	ErrAtlasFull = errors.New("tilecanvas: atlas is full")

	// ErrPartialLoad is returned when not every decoded tile found a slot.
	// The caller must free the tile keys it did allocate.
	ErrPartialLoad = errors.New("tilecanvas: partial load, some tiles did not get a slot")

	// ErrCancelled is returned for queued-but-not-started decode jobs
	// rejected by CancelPending.
	ErrCancelled = errors.New("tilecanvas: decode job cancelled")

	// ErrDisposed is returned for all jobs rejected after Dispose.
	ErrDisposed = errors.New("tilecanvas: decoder pool disposed")
)

// DecodeError reports a network or decode failure for one (image, lod) pair.
// It is never wrapped around ErrCancelled/ErrDisposed — those are returned
// directly.
type DecodeError struct {
	ImageID ImageID
	LOD     int
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tilecanvas: decode image %d lod %d: %s: %v", e.ImageID, e.LOD, e.Message, e.Err)
	}
	return fmt.Sprintf("tilecanvas: decode image %d lod %d: %s", e.ImageID, e.LOD, e.Message)
}

func (e *DecodeError) Unwrap() error { return e.Err }

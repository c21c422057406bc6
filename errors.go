// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package drawq

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSize is returned when a renderer is created or resized
	// with a zero width or height.
	ErrInvalidSize = errors.New("drawq: width and height must be non-zero")

	// ErrFrameSkipped marks a frame that was abandoned for a recoverable
	// reason: the surface was lost, outdated or had no image ready. The
	// next RenderFrame may succeed.
	ErrFrameSkipped = errors.New("drawq: frame skipped")

	// ErrClosed is returned by operations on a closed Renderer.
	ErrClosed = errors.New("drawq: renderer is closed")

	// ErrNoHALDevice is returned by NewFromProvider when the provider does
	// not expose HAL device and queue objects.
	ErrNoHALDevice = errors.New("drawq: provider does not expose a hal.Device and hal.Queue")
)

// Stage identifies the step of a frame that failed.
type Stage int

const (
	// StageAcquire is surface image acquisition.
	StageAcquire Stage = iota

	// StageUpload is the copy of queued shapes into the GPU buffers.
	// Recording the shape pass itself cannot fail.
	StageUpload

	// StageText is text layout, atlas upload and the text render pass.
	StageText

	// StagePresent is command submission and presentation.
	StagePresent
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageAcquire:
		return "acquire"
	case StageUpload:
		return "upload"
	case StageText:
		return "text"
	case StagePresent:
		return "present"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// FrameError reports a failed frame. A frame that fails is never presented.
type FrameError struct {
	Stage Stage
	Err   error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("drawq: frame %s: %v", e.Stage, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err only skipped a frame. Any other
// RenderFrame error means the renderer must be recreated.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrFrameSkipped)
}

// frameError wraps err for stage.
func frameError(stage Stage, err error) error {
	return &FrameError{Stage: stage, Err: err}
}

// skippedFrame wraps a recoverable cause for stage.
func skippedFrame(stage Stage, cause error) error {
	return &FrameError{Stage: stage, Err: errors.Join(ErrFrameSkipped, cause)}
}

package shaping

import (
	"errors"
	"fmt"
)

// Sentinel errors for the shaping package.
var (
	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("shaping: empty font data")

	// ErrNoFace is returned when an operation needs a font and none is loaded.
	ErrNoFace = errors.New("shaping: no font face loaded")

	// ErrInvalidMetrics is returned for a non-positive or non-finite font size
	// or line height.
	ErrInvalidMetrics = errors.New("shaping: invalid metrics")

	// ErrAtlasFull is returned when a glyph does not fit even in an atlas of
	// the maximum size.
	ErrAtlasFull = errors.New("shaping: glyph atlas full")
)

// FontError reports a font that could not be parsed.
type FontError struct {
	Index int // position of the font in load order
	Err   error
}

func (e *FontError) Error() string {
	return fmt.Sprintf("shaping: font %d: %v", e.Index, e.Err)
}

func (e *FontError) Unwrap() error { return e.Err }

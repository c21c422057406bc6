package text

import "github.com/gogpu/drawq/shaping"

// StoreOption configures a Store during creation.
type StoreOption func(*storeOptions)

type storeOptions struct {
	lineHeight   float32
	defaultScale float32
	resolution   shaping.Resolution
}

func defaultStoreOptions() storeOptions {
	return storeOptions{
		lineHeight:   shaping.DefaultLineHeight,
		defaultScale: 1,
	}
}

// WithLineHeight sets the line height as a factor of the font size.
// Non-positive values are ignored.
func WithLineHeight(factor float32) StoreOption {
	return func(o *storeOptions) {
		if factor > 0 {
			o.lineHeight = factor
		}
	}
}

// WithDefaultScale sets the scale used when a queue call passes a
// non-positive scale. Non-positive values are ignored.
func WithDefaultScale(scale float32) StoreOption {
	return func(o *storeOptions) {
		if scale > 0 {
			o.defaultScale = scale
		}
	}
}

// WithResolution sets the initial viewport resolution.
func WithResolution(width, height uint32) StoreOption {
	return func(o *storeOptions) {
		o.resolution = shaping.Resolution{Width: width, Height: height}
	}
}

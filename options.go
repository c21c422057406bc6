package drawq

import (
	"log/slog"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/drawq/geom"
	"github.com/gogpu/drawq/shaping"
)

// Option configures a Renderer during creation.
//
// Example:
//
//	r, err := drawq.New(device, queue, surface, 800, 600,
//	    drawq.WithBufferCapacity(1024, 2048),
//	    drawq.WithClearColor(geom.RGBA(0.1, 0.1, 0.1, 1)),
//	)
type Option func(*options)

// options holds optional configuration for Renderer creation.
type options struct {
	maxVertices int
	maxIndices  int
	clearColor  geom.Color
	format      gputypes.TextureFormat
	presentMode gputypes.PresentMode
	adapter     hal.Adapter
	fonts       [][]byte
	lineHeight  float32
	atlasSize   int
	atlasMax    int
	spirv       bool
	logger      *slog.Logger
}

// defaultOptions returns the default renderer options.
func defaultOptions() options {
	return options{
		maxVertices: geom.DefaultMaxVertices,
		maxIndices:  geom.DefaultMaxIndices,
		clearColor:  geom.Black,
		format:      gputypes.TextureFormatUndefined, // chosen from the surface
		presentMode: gputypes.PresentModeFifo,
		lineHeight:  shaping.DefaultLineHeight,
		atlasSize:   shaping.DefaultAtlasSize,
		atlasMax:    shaping.MaxAtlasSize,
	}
}

// WithBufferCapacity sets the capacity of the shape vertex and index
// buffers. Shapes beyond it are rejected with geom.ErrCapacityExceeded.
// Non-positive values keep the defaults (256 vertices, 512 indices).
func WithBufferCapacity(vertices, indices int) Option {
	return func(o *options) {
		if vertices > 0 {
			o.maxVertices = vertices
		}
		if indices > 0 {
			o.maxIndices = indices
		}
	}
}

// WithClearColor sets the color the shape pass clears the target to.
func WithClearColor(c geom.Color) Option {
	return func(o *options) {
		o.clearColor = c
	}
}

// WithSurfaceFormat forces the surface texture format. Without it the
// first sRGB format reported for the surface is used.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithPresentMode sets the surface present mode. Default is Fifo.
func WithPresentMode(m gputypes.PresentMode) Option {
	return func(o *options) {
		o.presentMode = m
	}
}

// WithAdapter supplies the adapter the device was opened from, so the
// surface format can be chosen from its surface capabilities.
func WithAdapter(a hal.Adapter) Option {
	return func(o *options) {
		o.adapter = a
	}
}

// WithFonts replaces the default Go Regular face with the given font
// files. The first font is primary, the rest are fallbacks.
func WithFonts(fonts ...[]byte) Option {
	return func(o *options) {
		o.fonts = fonts
	}
}

// WithLineHeight sets the line height as a multiple of the font size.
func WithLineHeight(factor float32) Option {
	return func(o *options) {
		if factor > 0 {
			o.lineHeight = factor
		}
	}
}

// WithAtlasSize sets the initial and maximum side length of the glyph
// atlas in pixels.
func WithAtlasSize(initial, maxSize int) Option {
	return func(o *options) {
		o.atlasSize = initial
		o.atlasMax = maxSize
	}
}

// WithSPIRVShaders compiles the WGSL shaders to SPIR-V with naga before
// creating shader modules, for backends that only accept SPIR-V.
func WithSPIRVShaders(enabled bool) Option {
	return func(o *options) {
		o.spirv = enabled
	}
}

// WithLogger sets the logger for the Renderer's own messages: creation,
// frame results and skipped handles. Without it the package logger from
// SetLogger is used. Messages from the GPU layer (surface configuration,
// pipeline creation, atlas growth) always go to the SetLogger logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

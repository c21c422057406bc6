// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package drawq

import (
	"fmt"
	"log/slog"

	"github.com/chewxy/math32"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/drawq/geom"
	"github.com/gogpu/drawq/internal/gpu"
	"github.com/gogpu/drawq/shaping"
	"github.com/gogpu/drawq/text"
)

// FrameStats describes the last frame passed to RenderFrame.
type FrameStats struct {
	// Vertices and Indices are the shape geometry uploaded.
	Vertices int
	Indices  int

	// TextAreas is the number of queued text entries, Glyphs the number of
	// glyph quads they produced.
	TextAreas int
	Glyphs    int

	// Presented is true when the frame reached the screen.
	Presented bool

	// Skipped is true when the frame was abandoned for a recoverable reason.
	Skipped bool
}

// Renderer queues shapes and text for one frame and draws them to a surface
// with all shapes beneath all text.
//
// Typical use:
//
//	r.QueueRectangle(50, 50, 100, 80, geom.Red)
//	r.QueueText("Hello", text.Pt(100, 300), 32, geom.White)
//	if err := r.RenderFrame(); err != nil && !drawq.IsRecoverable(err) {
//	    return err
//	}
//
// Renderer is NOT thread-safe. Queue calls and RenderFrame must come from
// the goroutine that owns the frame loop.
type Renderer struct {
	device hal.Device
	queue  hal.Queue

	surface *gpu.Surface
	shapes  *gpu.ShapePipeline
	glyphs  *gpu.TextPipeline

	batch  *geom.Batch
	store  *text.Store
	camera geom.Camera2D

	opts  options
	log   *slog.Logger
	stats FrameStats

	// inflight holds submitted command buffers until the queue reports
	// them complete.
	inflight []submission

	closed bool
}

// New creates a Renderer drawing to surface with the given device and queue.
// The surface is configured for width x height.
func New(device hal.Device, queue hal.Queue, surface hal.Surface, width, height uint32, opts ...Option) (*Renderer, error) {
	if width == 0 || height == 0 {
		return nil, ErrInvalidSize
	}
	if device == nil || queue == nil || surface == nil {
		return nil, fmt.Errorf("drawq: device, queue and surface are required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger
	if log == nil {
		log = Logger()
	}

	fs, err := shaping.NewFontSystem(o.fonts...)
	if err != nil {
		return nil, fmt.Errorf("drawq: load fonts: %w", err)
	}

	var supported []gputypes.TextureFormat
	if o.adapter != nil {
		if caps := o.adapter.SurfaceCapabilities(surface); caps != nil {
			supported = caps.Formats
		}
	}
	format := gpu.ChooseFormat(supported, o.format)

	r := &Renderer{
		device: device,
		queue:  queue,
		batch:  geom.NewBatch(o.maxVertices, o.maxIndices),
		store: text.NewStore(fs,
			text.WithLineHeight(o.lineHeight),
			text.WithResolution(width, height)),
		camera: geom.NewCamera2D(float32(width), float32(height)),
		opts:   o,
		log:    log,
	}

	r.surface, err = gpu.NewSurface(device, surface, width, height, format, o.presentMode)
	if err != nil {
		return nil, fmt.Errorf("drawq: %w", err)
	}

	cfg := gpu.PipelineConfig{Format: format, SPIRV: o.spirv}
	r.shapes, err = gpu.NewShapePipeline(device, queue, cfg, o.maxVertices, o.maxIndices)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("drawq: %w", err)
	}
	if err := r.applyView(); err != nil {
		r.Close()
		return nil, fmt.Errorf("drawq: %w", err)
	}
	r.glyphs, err = gpu.NewTextPipeline(device, queue, cfg, fs, shaping.NewAtlas(o.atlasSize, o.atlasMax))
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("drawq: %w", err)
	}

	log.Info("drawq: renderer created",
		"width", width, "height", height, "format", format,
		"maxVertices", o.maxVertices, "maxIndices", o.maxIndices)
	return r, nil
}

// NewFromProvider creates a Renderer on a device shared by a gogpu
// application. The provider's Device and Queue must be HAL objects, either
// directly or through HalDevice() any and HalQueue() any accessors. The
// provider's surface format is used unless WithSurfaceFormat is given.
func NewFromProvider(provider gpucontext.DeviceProvider, surface hal.Surface, width, height uint32, opts ...Option) (*Renderer, error) {
	if provider == nil {
		return nil, ErrNoHALDevice
	}
	device, queue, ok := halObjects(provider)
	if !ok {
		return nil, ErrNoHALDevice
	}

	pre := make([]Option, 0, 2+len(opts))
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		pre = append(pre, WithSurfaceFormat(f))
	}
	if a, ok := provider.Adapter().(hal.Adapter); ok && a != nil {
		pre = append(pre, WithAdapter(a))
	}
	info := provider.AdapterInfo()
	Logger().Debug("drawq: using provider device", "adapter", info.Name, "type", info.Type)
	return New(device, queue, surface, width, height, append(pre, opts...)...)
}

// halObjects extracts hal.Device and hal.Queue from a provider.
func halObjects(provider gpucontext.DeviceProvider) (hal.Device, hal.Queue, bool) {
	device, dok := provider.Device().(hal.Device)
	queue, qok := provider.Queue().(hal.Queue)
	if dok && qok && device != nil && queue != nil {
		return device, queue, true
	}

	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, nil, false
	}
	device, dok = hp.HalDevice().(hal.Device)
	queue, qok = hp.HalQueue().(hal.Queue)
	if !dok || !qok || device == nil || queue == nil {
		return nil, nil, false
	}
	return device, queue, true
}

// QueueRectangle queues an axis-aligned rectangle with its top-left corner
// at (x, y). It fails with geom.ErrCapacityExceeded when the shape buffers
// are full; the frame's other shapes are kept.
func (r *Renderer) QueueRectangle(x, y, w, h float32, c geom.Color) error {
	return r.batch.QueueRectangle(x, y, w, h, c)
}

// QueueSquare queues a square with its top-left corner at (x, y).
func (r *Renderer) QueueSquare(x, y, size float32, c geom.Color) error {
	return r.batch.QueueSquare(x, y, size, c)
}

// QueueCircle queues a filled circle approximated by 32 segments.
func (r *Renderer) QueueCircle(cx, cy, radius float32, c geom.Color) error {
	return r.batch.QueueCircle(cx, cy, radius, c)
}

// QueueText shapes s and draws it this frame with its top-left corner at
// pos. Shaping happens on every call, so text that is drawn every frame
// unchanged should use CreateCachedText instead.
func (r *Renderer) QueueText(s string, pos text.Point, size float32, c geom.Color) error {
	return r.store.QueueText(s, pos, size, c, 1)
}

// QueueTextScaled is QueueText with an explicit scale factor.
func (r *Renderer) QueueTextScaled(s string, pos text.Point, size float32, c geom.Color, scale float32) error {
	return r.store.QueueText(s, pos, size, c, scale)
}

// CreateCachedText shapes s once and returns a handle for drawing it in
// later frames. Nothing is drawn until QueueCachedText is called.
func (r *Renderer) CreateCachedText(s string, size float32) (text.Handle, error) {
	return r.store.CreateCachedText(s, size)
}

// UpdateCachedText re-shapes the text behind h. A non-nil size replaces
// the font size. Unknown handles are ignored and report false.
func (r *Renderer) UpdateCachedText(h text.Handle, s string, size *float32) (bool, error) {
	return r.store.UpdateCachedText(h, s, size)
}

// QueueCachedText draws the cached text h this frame. Unknown handles are
// skipped and report false.
func (r *Renderer) QueueCachedText(h text.Handle, pos text.Point, c geom.Color, scale float32) bool {
	if !r.store.QueueCachedText(h, pos, c, scale) {
		r.log.Debug("drawq: unknown cached text handle skipped", "handle", h)
		return false
	}
	return true
}

// Batch returns the shape batch of the current frame.
func (r *Renderer) Batch() *geom.Batch { return r.batch }

// TextStore returns the text store of the renderer.
func (r *Renderer) TextStore() *text.Store { return r.store }

// Size returns the configured surface size.
func (r *Renderer) Size() (width, height uint32) { return r.surface.Size() }

// Format returns the surface texture format.
func (r *Renderer) Format() gputypes.TextureFormat { return r.surface.Format() }

// FrameStats returns statistics about the last RenderFrame call.
func (r *Renderer) FrameStats() FrameStats { return r.stats }

// AspectRatio returns the surface width divided by its height.
func (r *Renderer) AspectRatio() float32 {
	w, h := r.surface.Size()
	return float32(w) / float32(h)
}

// CreateCamera returns a camera at the origin sized to the surface.
func (r *Renderer) CreateCamera() geom.Camera2D {
	w, h := r.surface.Size()
	return geom.NewCamera2D(float32(w), float32(h))
}

// Camera returns the camera the next frame is drawn with.
func (r *Renderer) Camera() geom.Camera2D { return r.camera }

// SetCamera changes the view for subsequent frames. Shapes and text are
// panned together by the camera position; a camera larger than the surface
// shows more of the world at once. A camera without a positive extent is
// rejected with ErrInvalidSize.
func (r *Renderer) SetCamera(c geom.Camera2D) error {
	if r.closed {
		return ErrClosed
	}
	if !c.Valid() {
		return ErrInvalidSize
	}
	r.camera = c
	if err := r.applyView(); err != nil {
		return fmt.Errorf("drawq: set camera: %w", err)
	}
	return nil
}

// view returns the camera as the visible region handed to both pipelines.
func (r *Renderer) view() shaping.Resolution {
	return shaping.Resolution{
		Width:  uint32(math32.Ceil(r.camera.Width)),  //nolint:gosec // positive, checked by Valid
		Height: uint32(math32.Ceil(r.camera.Height)), //nolint:gosec // positive, checked by Valid
		X:      r.camera.X,
		Y:      r.camera.Y,
	}
}

// applyView hands the camera to the text store, then writes the shape
// uniform. The store is updated before the fallible uniform write.
func (r *Renderer) applyView() error {
	res := r.view()
	r.store.Resize(res.Width, res.Height)
	r.store.SetOrigin(res.X, res.Y)
	return r.shapes.SetView(res)
}

// Resize reconfigures the surface and updates the viewport used to place
// shapes and text. The camera takes the new size and keeps its position.
// Zero dimensions are rejected with ErrInvalidSize.
func (r *Renderer) Resize(width, height uint32) error {
	if r.closed {
		return ErrClosed
	}
	if width == 0 || height == 0 {
		return ErrInvalidSize
	}
	if err := r.surface.Configure(width, height); err != nil {
		return fmt.Errorf("drawq: resize: %w", err)
	}
	r.camera.Resize(float32(width), float32(height))
	if err := r.applyView(); err != nil {
		return fmt.Errorf("drawq: resize: %w", err)
	}
	return nil
}

// Close waits for the GPU and releases every resource the Renderer
// created. The device, queue and surface are not destroyed. Close is
// idempotent.
func (r *Renderer) Close() {
	if r.closed {
		return
	}
	r.closed = true
	if err := r.device.WaitIdle(); err != nil {
		r.log.Warn("drawq: wait idle on close", "err", err)
	}
	r.releaseAll()
	if r.glyphs != nil {
		r.glyphs.Destroy()
	}
	if r.shapes != nil {
		r.shapes.Destroy()
	}
	if r.surface != nil {
		r.surface.Unconfigure()
	}
	r.batch.Clear()
	r.store.ClearFrame()
}

// Package drawq is a per-frame 2D draw queue on top of gogpu/wgpu.
//
// Applications queue colored rectangles, squares and circles, and text,
// then call RenderFrame once per frame. The Renderer uploads the queued
// geometry, draws all shapes, draws all text on top, presents the surface
// and clears the queues for the next frame.
//
// # Packages
//
//   - geom: the shape batch and its GPU vertex layout
//   - shaping: fonts, shaped text buffers, the glyph atlas and glyph layout
//   - text: the text store holding per-frame and cached text
//   - drawq (this package): the frame orchestrator
//
// # Text
//
// QueueText shapes its string on every call. Text that is drawn unchanged
// across frames should be shaped once with CreateCachedText and drawn with
// QueueCachedText; UpdateCachedText re-shapes it in place. Cached handles
// are dense, start at zero and are never invalidated.
//
// # Errors
//
// Shape queue calls fail with geom.ErrCapacityExceeded when the fixed
// shape buffers are full. RenderFrame returns *FrameError; IsRecoverable
// tells a skipped frame (stale or busy surface) from a fatal one.
//
// # Logging
//
// drawq is silent by default. Call SetLogger with a *slog.Logger to enable
// diagnostics.
package drawq

// Package geom batches 2D shapes into GPU-ready triangle lists.
//
// A Batch accumulates vertices and indices for rectangles, squares and
// circles queued during a frame. Capacity is fixed at construction and
// matches the size of the GPU buffers the batch is uploaded into, so every
// append is checked before anything is written: a shape either fits whole
// or the call returns an error wrapping [ErrCapacityExceeded] and the batch
// is left unchanged.
//
// Vertex layout (24 bytes, little-endian):
//
//	position (vec2<f32>) = 8 bytes  (location 0)
//	color    (vec4<f32>) = 16 bytes (location 1)
//
// Camera2D describes the visible region of pixel space. The renderer feeds
// its position and extent to both pipelines so shapes and text pan together.
//
// Batch is NOT thread-safe. It is meant to be filled and drained by a single
// frame loop.
package geom

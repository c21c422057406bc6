// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package drawq

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/drawq/internal/gpu"
)

// A frame moves through three stages, each its own type:
//
//	acquiredFrame --renderShapes--> shapedFrame --renderText--> composedFrame --present
//
// Only an acquired frame can record shapes, only a frame with shapes
// recorded can record text and only a composed frame can be presented, so
// text always lands on top of the shapes.

// frame is the state shared by every stage.
type frame struct {
	r       *Renderer
	target  *gpu.SurfaceFrame
	encoder hal.CommandEncoder
}

type acquiredFrame struct{ f *frame }

type shapedFrame struct{ f *frame }

type composedFrame struct{ f *frame }

// submission is a command buffer handed to the queue and not yet freed.
type submission struct {
	index   uint64
	encoder hal.CommandEncoder
	cmd     hal.CommandBuffer
}

// RenderFrame draws every queued shape, then every queued text, presents the
// result and clears the frame's queues.
//
// Errors are *FrameError values. When IsRecoverable reports true the frame
// was skipped (the surface was reconfigured or had no image) and the next
// call may succeed. The queues are cleared whatever the outcome.
func (r *Renderer) RenderFrame() error {
	if r.closed {
		return ErrClosed
	}
	defer r.clearTransientState()

	r.stats = FrameStats{
		Vertices:  r.batch.VertexCount(),
		Indices:   r.batch.IndexCount(),
		TextAreas: r.store.QueuedCount(),
	}
	r.releaseCompleted()

	acquired, err := r.acquire()
	if err != nil {
		r.stats.Skipped = IsRecoverable(err)
		return err
	}
	shaped, err := acquired.renderShapes()
	if err != nil {
		acquired.f.abort()
		return err
	}
	composed, err := shaped.renderText()
	if err != nil {
		shaped.f.abort()
		return err
	}
	if err := composed.present(); err != nil {
		r.stats.Skipped = IsRecoverable(err)
		return err
	}
	r.stats.Presented = true
	r.log.Debug("drawq: frame presented",
		"vertices", r.stats.Vertices, "indices", r.stats.Indices,
		"textAreas", r.stats.TextAreas, "glyphs", r.stats.Glyphs)
	return nil
}

// clearTransientState empties the shape batch, then the text store's
// per-frame pools.
func (r *Renderer) clearTransientState() {
	r.batch.Clear()
	r.store.ClearFrame()
}

// acquire gets the next surface image and opens a command encoder.
func (r *Renderer) acquire() (acquiredFrame, error) {
	target, err := r.surface.Acquire()
	if err != nil {
		return acquiredFrame{}, r.acquireFailed(err)
	}

	encoder, err := r.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "drawq_frame_encoder",
	})
	if err != nil {
		r.surface.Discard(target)
		return acquiredFrame{}, frameError(StageAcquire, fmt.Errorf("create command encoder: %w", err))
	}
	if err := encoder.BeginEncoding("drawq_frame"); err != nil {
		encoder.Destroy()
		r.surface.Discard(target)
		return acquiredFrame{}, frameError(StageAcquire, fmt.Errorf("begin encoding: %w", err))
	}
	return acquiredFrame{f: &frame{r: r, target: target, encoder: encoder}}, nil
}

// acquireFailed turns an acquire error into a skipped or fatal frame error,
// reconfiguring the surface when the swapchain went stale.
func (r *Renderer) acquireFailed(err error) error {
	switch gpu.ClassifyAcquireError(err) {
	case gpu.AcquireReconfigure:
		r.log.Warn("drawq: surface stale, reconfiguring and skipping frame", "err", err)
		if cerr := r.surface.Reconfigure(); cerr != nil {
			return frameError(StageAcquire, errors.Join(err, cerr))
		}
		return skippedFrame(StageAcquire, err)
	case gpu.AcquireSkip:
		r.log.Warn("drawq: no surface image available, skipping frame", "err", err)
		return skippedFrame(StageAcquire, err)
	default:
		return frameError(StageAcquire, err)
	}
}

// renderShapes uploads the batch and records the clearing shape pass.
// The pass always runs so the target is cleared even without shapes.
func (a acquiredFrame) renderShapes() (shapedFrame, error) {
	f := a.f
	r := f.r

	if r.batch.Empty() {
		r.shapes.Reset()
	} else {
		if err := r.batch.Validate(); err != nil {
			return shapedFrame{}, frameError(StageUpload, err)
		}
		vertices, indices := r.batch.Take()
		if err := r.shapes.Upload(vertices, indices); err != nil {
			return shapedFrame{}, frameError(StageUpload, err)
		}
	}

	c := r.opts.clearColor
	rp := f.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "drawq_shape_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       f.target.View,
			LoadOp:     gputypes.LoadOpClear,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: float64(c[0]), G: float64(c[1]), B: float64(c[2]), A: float64(c[3])},
		}},
	})
	r.shapes.RecordDraws(rp)
	rp.End()
	return shapedFrame{f: f}, nil
}

// renderText prepares the queued text and records it in a second pass
// that loads the shape pass output.
func (s shapedFrame) renderText() (composedFrame, error) {
	f := s.f
	r := f.r

	if err := r.store.Prepare(r.glyphs); err != nil {
		return composedFrame{}, frameError(StageText, err)
	}
	r.stats.Glyphs = r.glyphs.QuadCount()

	rp := f.encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "drawq_text_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    f.target.View,
			LoadOp:  gputypes.LoadOpLoad,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	r.glyphs.Render(rp)
	rp.End()
	return composedFrame{f: f}, nil
}

// present submits the frame's single command buffer and presents the
// surface image once.
func (c composedFrame) present() error {
	f := c.f
	r := f.r

	cmd, err := f.encoder.EndEncoding()
	if err != nil {
		f.abort()
		return frameError(StagePresent, fmt.Errorf("end encoding: %w", err))
	}
	index, err := r.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		r.device.FreeCommandBuffer(cmd)
		f.encoder.Destroy()
		r.surface.Discard(f.target)
		return frameError(StagePresent, fmt.Errorf("submit: %w", err))
	}
	r.inflight = append(r.inflight, submission{index: index, encoder: f.encoder, cmd: cmd})

	err = r.queue.Present(r.surface.Raw(), f.target.Texture, nil)
	r.surface.Release(f.target)
	if err != nil {
		if gpu.ClassifyAcquireError(err) == gpu.AcquireReconfigure {
			if cerr := r.surface.Reconfigure(); cerr != nil {
				return frameError(StagePresent, errors.Join(err, cerr))
			}
			return skippedFrame(StagePresent, err)
		}
		return frameError(StagePresent, fmt.Errorf("present: %w", err))
	}
	if f.target.Suboptimal {
		r.log.Debug("drawq: suboptimal surface, reconfiguring")
		if err := r.surface.Reconfigure(); err != nil {
			r.log.Warn("drawq: reconfigure suboptimal surface", "err", err)
		}
	}
	return nil
}

// abort drops a frame that will not be presented.
func (f *frame) abort() {
	f.encoder.DiscardEncoding()
	f.encoder.Destroy()
	f.r.surface.Discard(f.target)
}

// releaseCompleted frees command buffers the GPU has finished with.
func (r *Renderer) releaseCompleted() {
	if len(r.inflight) == 0 {
		return
	}
	done := r.queue.PollCompleted()
	n := 0
	for _, s := range r.inflight {
		if s.index <= done {
			r.device.FreeCommandBuffer(s.cmd)
			s.encoder.Destroy()
			continue
		}
		r.inflight[n] = s
		n++
	}
	clear(r.inflight[n:])
	r.inflight = r.inflight[:n]
}

// releaseAll frees every outstanding command buffer. The caller must have
// waited for the device to go idle.
func (r *Renderer) releaseAll() {
	for _, s := range r.inflight {
		r.device.FreeCommandBuffer(s.cmd)
		s.encoder.Destroy()
	}
	r.inflight = nil
}

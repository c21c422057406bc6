package gpu

import (
	"testing"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// createNoopDevice opens a device on the noop backend.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue, func()) {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		t.Fatal("no noop adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	cleanup := func() {
		openDev.Device.Destroy()
		instance.Destroy()
	}
	return openDev.Device, openDev.Queue, cleanup
}

// readBuffer returns the first size bytes of a noop buffer.
func readBuffer(t *testing.T, device hal.Device, buf hal.Buffer, size int) []byte {
	t.Helper()
	m, err := device.MapBuffer(buf, 0, uint64(size))
	if err != nil {
		t.Fatalf("MapBuffer: %v", err)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(m.Ptr), size))
	return out
}

// drawCall is one DrawIndexed recorded by recordingPass.
type drawCall struct {
	pipeline   hal.RenderPipeline
	indexCount uint32
}

// recordingPass records the draw-related calls of a render pass. Methods
// not overridden panic through the nil embedded interface.
type recordingPass struct {
	hal.RenderPassEncoder

	pipeline hal.RenderPipeline
	draws    []drawCall
	ended    bool
}

func (r *recordingPass) SetPipeline(p hal.RenderPipeline)                        { r.pipeline = p }
func (r *recordingPass) SetBindGroup(uint32, hal.BindGroup, []uint32)            {}
func (r *recordingPass) SetVertexBuffer(uint32, hal.Buffer, uint64)              {}
func (r *recordingPass) SetIndexBuffer(hal.Buffer, gputypes.IndexFormat, uint64) {}
func (r *recordingPass) End()                                                    { r.ended = true }

func (r *recordingPass) DrawIndexed(indexCount, _, _ uint32, _ int32, _ uint32) {
	r.draws = append(r.draws, drawCall{pipeline: r.pipeline, indexCount: indexCount})
}

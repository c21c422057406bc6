package drawq

import (
	"errors"
	"image"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/drawq/geom"
	"github.com/gogpu/drawq/text"
)

// testSurface is a noop surface whose acquire results can be scripted.
type testSurface struct {
	*noop.Surface

	acquireErrs []error
	configures  int
	discards    int
}

func (s *testSurface) Configure(device hal.Device, cfg *hal.SurfaceConfiguration) error {
	s.configures++
	return s.Surface.Configure(device, cfg)
}

func (s *testSurface) AcquireTexture(fence hal.Fence) (*hal.AcquiredSurfaceTexture, error) {
	if len(s.acquireErrs) > 0 {
		err := s.acquireErrs[0]
		s.acquireErrs = s.acquireErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return s.Surface.AcquireTexture(fence)
}

func (s *testSurface) DiscardTexture(t hal.SurfaceTexture) {
	s.discards++
	s.Surface.DiscardTexture(t)
}

// countingQueue counts submissions and presents and can inject failures.
type countingQueue struct {
	hal.Queue

	submits  int
	presents int

	writeTextureErr error
	writeBufferErr  error
	presentErr      error
}

func (q *countingQueue) WriteBuffer(buf hal.Buffer, offset uint64, data []byte) error {
	if q.writeBufferErr != nil {
		return q.writeBufferErr
	}
	return q.Queue.WriteBuffer(buf, offset, data)
}

func (q *countingQueue) Submit(cmds []hal.CommandBuffer) (uint64, error) {
	q.submits++
	return q.Queue.Submit(cmds)
}

func (q *countingQueue) Present(s hal.Surface, t hal.SurfaceTexture, damage []image.Rectangle) error {
	if q.presentErr != nil {
		return q.presentErr
	}
	q.presents++
	return q.Queue.Present(s, t, damage)
}

func (q *countingQueue) WriteTexture(dst *hal.ImageCopyTexture, data []byte, layout *hal.ImageDataLayout, size *hal.Extent3D) error {
	if q.writeTextureErr != nil {
		return q.writeTextureErr
	}
	return q.Queue.WriteTexture(dst, data, layout, size)
}

type testEnv struct {
	device  hal.Device
	adapter hal.Adapter
	queue   *countingQueue
	surface *testSurface
}

// newTestEnv opens a noop device with a scriptable surface and queue.
func newTestEnv(t *testing.T) *testEnv {
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
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return &testEnv{
		device:  openDev.Device,
		adapter: adapters[0].Adapter,
		queue:   &countingQueue{Queue: openDev.Queue},
		surface: &testSurface{Surface: &noop.Surface{}},
	}
}

func newTestRenderer(t *testing.T, opts ...Option) (*Renderer, *testEnv) {
	t.Helper()
	env := newTestEnv(t)
	r, err := New(env.device, env.queue, env.surface, 800, 600, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(r.Close)
	return r, env
}

func TestNewInvalidSize(t *testing.T) {
	env := newTestEnv(t)
	for _, size := range [][2]uint32{{0, 600}, {800, 0}, {0, 0}} {
		_, err := New(env.device, env.queue, env.surface, size[0], size[1])
		if !errors.Is(err, ErrInvalidSize) {
			t.Errorf("New(%d, %d) err = %v, want ErrInvalidSize", size[0], size[1], err)
		}
	}
}

func TestNewSurfaceFormat(t *testing.T) {
	tests := []struct {
		name string
		opts func(env *testEnv) []Option
		want gputypes.TextureFormat
	}{
		{
			name: "default srgb",
			opts: func(*testEnv) []Option { return nil },
			want: gputypes.TextureFormatBGRA8UnormSrgb,
		},
		{
			name: "adapter capabilities",
			opts: func(env *testEnv) []Option { return []Option{WithAdapter(env.adapter)} },
			want: gputypes.TextureFormatBGRA8Unorm,
		},
		{
			name: "forced",
			opts: func(env *testEnv) []Option {
				return []Option{WithAdapter(env.adapter), WithSurfaceFormat(gputypes.TextureFormatRGBA8Unorm)}
			},
			want: gputypes.TextureFormatRGBA8Unorm,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			r, err := New(env.device, env.queue, env.surface, 800, 600, tt.opts(env)...)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer r.Close()
			if got := r.Format(); got != tt.want {
				t.Errorf("Format = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRenderFrameShapes(t *testing.T) {
	r, env := newTestRenderer(t)

	if err := r.QueueRectangle(0, 0, 10, 10, geom.RGBA(1, 0, 0, 1)); err != nil {
		t.Fatal(err)
	}
	if err := r.QueueCircle(50, 50, 5, geom.RGBA(0, 1, 0, 1)); err != nil {
		t.Fatal(err)
	}
	if r.Batch().VertexCount() != 37 || r.Batch().IndexCount() != 102 {
		t.Fatalf("batch = %d vertices, %d indices; want 37, 102",
			r.Batch().VertexCount(), r.Batch().IndexCount())
	}

	if err := r.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if r.Batch().VertexCount() != 0 || r.Batch().IndexCount() != 0 {
		t.Error("batch not cleared after frame")
	}
	stats := r.FrameStats()
	if !stats.Presented || stats.Skipped {
		t.Errorf("stats = %+v, want presented", stats)
	}
	if stats.Vertices != 37 || stats.Indices != 102 {
		t.Errorf("stats = %+v, want 37 vertices and 102 indices", stats)
	}
	if env.queue.submits != 1 || env.queue.presents != 1 {
		t.Errorf("submits = %d, presents = %d; want 1, 1", env.queue.submits, env.queue.presents)
	}
}

func TestRenderFrameEmpty(t *testing.T) {
	r, env := newTestRenderer(t)

	if err := r.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if env.queue.presents != 1 {
		t.Errorf("presents = %d, want 1", env.queue.presents)
	}
	if got := r.FrameStats(); got.Glyphs != 0 || got.Indices != 0 {
		t.Errorf("stats = %+v, want empty frame", got)
	}
}

func TestRenderFrameText(t *testing.T) {
	r, _ := newTestRenderer(t)

	h0, err := r.CreateCachedText("Rectangle | Square | Circle", 16)
	if err != nil {
		t.Fatal(err)
	}
	h1, err := r.CreateCachedText("unused", 16)
	if err != nil {
		t.Fatal(err)
	}
	if h0 != 0 || h1 != 1 {
		t.Fatalf("handles = %d, %d; want 0, 1", h0, h1)
	}
	if err := r.QueueText("Hello, WGPU!", text.Pt(100, 300), 32, geom.White); err != nil {
		t.Fatal(err)
	}
	if !r.QueueCachedText(h0, text.Pt(350, 350), geom.Yellow, 1) {
		t.Fatal("QueueCachedText rejected a valid handle")
	}
	if r.QueueCachedText(text.Handle(42), text.Pt(0, 0), geom.White, 1) {
		t.Error("QueueCachedText accepted an unknown handle")
	}

	if err := r.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	stats := r.FrameStats()
	if stats.TextAreas != 2 {
		t.Errorf("TextAreas = %d, want 2", stats.TextAreas)
	}
	if stats.Glyphs == 0 {
		t.Error("no glyphs rendered")
	}

	store := r.TextStore()
	if store.ImmediateCount() != 0 || store.QueuedCount() != 0 {
		t.Errorf("immediate = %d, queued = %d after frame; want 0, 0",
			store.ImmediateCount(), store.QueuedCount())
	}
	if store.CachedCount() != 2 {
		t.Errorf("CachedCount = %d, want 2", store.CachedCount())
	}
}

func TestUpdateCachedText(t *testing.T) {
	r, _ := newTestRenderer(t)

	a, _ := r.CreateCachedText("first", 16)
	b, _ := r.CreateCachedText("second", 16)

	size := float32(20)
	ok, err := r.UpdateCachedText(a, "new", &size)
	if err != nil || !ok {
		t.Fatalf("UpdateCachedText = %v, %v", ok, err)
	}
	store := r.TextStore()
	if s, _ := store.CachedText(a); s != "new" {
		t.Errorf("text(a) = %q, want %q", s, "new")
	}
	if got, _ := store.CachedSize(a); got != 20 {
		t.Errorf("size(a) = %v, want 20", got)
	}
	if s, _ := store.CachedText(b); s != "second" {
		t.Errorf("text(b) = %q, want unchanged", s)
	}

	ok, err = r.UpdateCachedText(text.Handle(7), "x", nil)
	if ok || err != nil {
		t.Errorf("unknown handle update = %v, %v; want false, nil", ok, err)
	}
}

func TestRenderFrameRecoverableAcquire(t *testing.T) {
	tests := []struct {
		name        string
		cause       error
		reconfigure bool
	}{
		{"outdated", hal.ErrSurfaceOutdated, true},
		{"lost", hal.ErrSurfaceLost, true},
		{"not ready", hal.ErrNotReady, false},
		{"timeout", hal.ErrTimeout, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, env := newTestRenderer(t)
			configured := env.surface.configures
			env.surface.acquireErrs = []error{tt.cause}

			if err := r.QueueSquare(10, 10, 20, geom.Red); err != nil {
				t.Fatal(err)
			}
			if err := r.QueueText("skipped", text.Pt(0, 0), 16, geom.White); err != nil {
				t.Fatal(err)
			}

			err := r.RenderFrame()
			if !IsRecoverable(err) {
				t.Fatalf("err = %v, want recoverable", err)
			}
			if !errors.Is(err, tt.cause) {
				t.Errorf("err = %v, want cause %v", err, tt.cause)
			}
			var fe *FrameError
			if !errors.As(err, &fe) || fe.Stage != StageAcquire {
				t.Errorf("err = %v, want *FrameError at acquire", err)
			}
			if reconfigured := env.surface.configures > configured; reconfigured != tt.reconfigure {
				t.Errorf("reconfigured = %v, want %v", reconfigured, tt.reconfigure)
			}
			if env.queue.presents != 0 {
				t.Error("skipped frame was presented")
			}
			if !r.Batch().Empty() || r.TextStore().QueuedCount() != 0 {
				t.Error("transient state survived a skipped frame")
			}
			if !r.FrameStats().Skipped {
				t.Error("stats do not report the skip")
			}

			if err := r.RenderFrame(); err != nil {
				t.Fatalf("next RenderFrame: %v", err)
			}
		})
	}
}

func TestRenderFrameFatalAcquire(t *testing.T) {
	for _, cause := range []error{hal.ErrDeviceOutOfMemory, hal.ErrDeviceLost, errors.New("driver exploded")} {
		r, env := newTestRenderer(t)
		env.surface.acquireErrs = []error{cause}
		if err := r.QueueCircle(100, 100, 10, geom.Blue); err != nil {
			t.Fatal(err)
		}

		err := r.RenderFrame()
		if err == nil || IsRecoverable(err) {
			t.Fatalf("err = %v, want fatal", err)
		}
		if !errors.Is(err, cause) {
			t.Errorf("err = %v, want cause %v", err, cause)
		}
		if !r.Batch().Empty() {
			t.Error("batch not cleared after fatal frame")
		}
	}
}

func TestRenderFrameTextFailureNotPresented(t *testing.T) {
	r, env := newTestRenderer(t)
	injected := errors.New("texture upload failed")
	env.queue.writeTextureErr = injected

	if err := r.QueueRectangle(0, 0, 10, 10, geom.Red); err != nil {
		t.Fatal(err)
	}
	if err := r.QueueText("boom", text.Pt(10, 10), 16, geom.White); err != nil {
		t.Fatal(err)
	}

	err := r.RenderFrame()
	var fe *FrameError
	if !errors.As(err, &fe) || fe.Stage != StageText {
		t.Fatalf("err = %v, want *FrameError at text stage", err)
	}
	if !errors.Is(err, injected) {
		t.Errorf("err = %v, want injected cause", err)
	}
	if IsRecoverable(err) {
		t.Error("text failure reported as recoverable")
	}
	if env.queue.submits != 0 || env.queue.presents != 0 {
		t.Errorf("submits = %d, presents = %d; want 0, 0", env.queue.submits, env.queue.presents)
	}
	if env.surface.discards != 1 {
		t.Errorf("discards = %d, want 1", env.surface.discards)
	}
	if !r.Batch().Empty() || r.TextStore().ImmediateCount() != 0 {
		t.Error("transient state survived a failed frame")
	}
}

func TestRenderFramePresentOutdated(t *testing.T) {
	r, env := newTestRenderer(t)
	env.queue.presentErr = hal.ErrSurfaceOutdated
	configured := env.surface.configures

	err := r.RenderFrame()
	if !IsRecoverable(err) {
		t.Fatalf("err = %v, want recoverable", err)
	}
	var fe *FrameError
	if !errors.As(err, &fe) || fe.Stage != StagePresent {
		t.Errorf("err = %v, want *FrameError at present", err)
	}
	if env.surface.configures != configured+1 {
		t.Error("surface not reconfigured after outdated present")
	}
}

func TestQueueCapacity(t *testing.T) {
	r, _ := newTestRenderer(t, WithBufferCapacity(8, 12))

	for i := range 2 {
		if err := r.QueueRectangle(float32(i*20), 0, 10, 10, geom.Red); err != nil {
			t.Fatalf("rectangle %d: %v", i, err)
		}
	}
	err := r.QueueRectangle(40, 0, 10, 10, geom.Red)
	if !errors.Is(err, geom.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if r.Batch().VertexCount() != 8 || r.Batch().IndexCount() != 12 {
		t.Errorf("batch changed by rejected shape: %d/%d", r.Batch().VertexCount(), r.Batch().IndexCount())
	}
	if err := r.RenderFrame(); err != nil {
		t.Fatalf("RenderFrame at full capacity: %v", err)
	}
}

func TestResize(t *testing.T) {
	r, _ := newTestRenderer(t)

	if err := r.Resize(0, 100); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Resize(0, 100) err = %v, want ErrInvalidSize", err)
	}
	if err := r.Resize(1024, 768); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if w, h := r.Size(); w != 1024 || h != 768 {
		t.Errorf("Size = %dx%d, want 1024x768", w, h)
	}
	if res := r.TextStore().Resolution(); res.Width != 1024 || res.Height != 768 {
		t.Errorf("store resolution = %+v, want 1024x768", res)
	}
}

func TestRenderFrameUploadFailure(t *testing.T) {
	r, env := newTestRenderer(t)
	if err := r.QueueRectangle(0, 0, 10, 10, geom.Red); err != nil {
		t.Fatal(err)
	}
	errWrite := errors.New("write failed")
	env.queue.writeBufferErr = errWrite

	err := r.RenderFrame()
	var fe *FrameError
	if !errors.As(err, &fe) || fe.Stage != StageUpload {
		t.Fatalf("RenderFrame err = %v, want FrameError at StageUpload", err)
	}
	if !errors.Is(err, errWrite) || IsRecoverable(err) {
		t.Errorf("err = %v, want fatal wrapping %v", err, errWrite)
	}
	if env.queue.presents != 0 || env.surface.discards != 1 {
		t.Errorf("presents = %d, discards = %d; want 0 and 1", env.queue.presents, env.surface.discards)
	}
	if !r.Batch().Empty() {
		t.Error("batch not cleared after failed frame")
	}
}

func TestResizeUniformFailureKeepsStoreInSync(t *testing.T) {
	r, env := newTestRenderer(t)
	errWrite := errors.New("write failed")
	env.queue.writeBufferErr = errWrite

	if err := r.Resize(1024, 768); !errors.Is(err, errWrite) {
		t.Fatalf("Resize err = %v, want %v", err, errWrite)
	}
	if w, h := r.Size(); w != 1024 || h != 768 {
		t.Errorf("Size = %dx%d, want 1024x768", w, h)
	}
	if res := r.TextStore().Resolution(); res.Width != 1024 || res.Height != 768 {
		t.Errorf("store resolution = %+v, want 1024x768 after failed uniform write", res)
	}
}

func TestCamera(t *testing.T) {
	r, _ := newTestRenderer(t)

	c := r.CreateCamera()
	if c.Width != 800 || c.Height != 600 || c.X != 0 || c.Y != 0 {
		t.Fatalf("CreateCamera = %+v, want 800x600 at origin", c)
	}
	if got, want := r.AspectRatio(), float32(800)/600; got != want {
		t.Errorf("AspectRatio = %v, want %v", got, want)
	}
	if r.Camera() != c {
		t.Errorf("Camera = %+v, want %+v", r.Camera(), c)
	}

	tests := []struct {
		name    string
		cam     geom.Camera2D
		wantErr error
	}{
		{"panned", c.WithPosition(900, 100), nil},
		{"zoomed out", geom.NewCamera2D(1600, 1200), nil},
		{"zero width", geom.NewCamera2D(0, 600), ErrInvalidSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.SetCamera(tt.cam)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetCamera err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			res := r.TextStore().Resolution()
			if res.X != tt.cam.X || res.Y != tt.cam.Y ||
				float32(res.Width) != tt.cam.Width || float32(res.Height) != tt.cam.Height {
				t.Errorf("store view = %+v, want camera %+v", res, tt.cam)
			}
		})
	}
}

func TestCameraPansText(t *testing.T) {
	r, _ := newTestRenderer(t)

	frame := func() int {
		t.Helper()
		if err := r.QueueText("pan", text.Pt(1000, 50), 24, geom.White); err != nil {
			t.Fatal(err)
		}
		if err := r.RenderFrame(); err != nil {
			t.Fatalf("RenderFrame: %v", err)
		}
		return r.FrameStats().Glyphs
	}

	if n := frame(); n != 0 {
		t.Fatalf("glyphs right of the view = %d, want 0", n)
	}
	if err := r.SetCamera(r.Camera().WithPosition(900, 0)); err != nil {
		t.Fatal(err)
	}
	if n := frame(); n == 0 {
		t.Fatal("text inside the panned view produced no glyphs")
	}

	if err := r.Resize(1024, 768); err != nil {
		t.Fatal(err)
	}
	if c := r.Camera(); c.X != 900 || c.Width != 1024 || c.Height != 768 {
		t.Errorf("camera after Resize = %+v, want 1024x768 at x=900", c)
	}
}

func TestClose(t *testing.T) {
	r, _ := newTestRenderer(t)
	if err := r.RenderFrame(); err != nil {
		t.Fatal(err)
	}
	r.Close()
	r.Close()
	if err := r.RenderFrame(); !errors.Is(err, ErrClosed) {
		t.Errorf("RenderFrame after Close err = %v, want ErrClosed", err)
	}
	if err := r.Resize(10, 10); !errors.Is(err, ErrClosed) {
		t.Errorf("Resize after Close err = %v, want ErrClosed", err)
	}
	if len(r.inflight) != 0 {
		t.Errorf("inflight = %d after Close, want 0", len(r.inflight))
	}
}

// testProvider exposes HAL objects the way a gogpu application does.
type testProvider struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
	direct bool
}

func (p *testProvider) Device() gpucontext.Device {
	if p.direct {
		return p.device
	}
	return nil
}

func (p *testProvider) Queue() gpucontext.Queue {
	if p.direct {
		return p.queue
	}
	return nil
}

func (p *testProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p *testProvider) Adapter() gpucontext.Adapter           { return nil }
func (p *testProvider) AdapterInfo() gpucontext.AdapterInfo   { return gpucontext.AdapterInfo{Name: "noop"} }
func (p *testProvider) HalDevice() any                        { return p.device }
func (p *testProvider) HalQueue() any                         { return p.queue }

// opaqueProvider exposes no HAL objects.
type opaqueProvider struct{ testProvider }

func (opaqueProvider) HalDevice() any { return nil }
func (opaqueProvider) HalQueue() any  { return nil }

func TestNewFromProvider(t *testing.T) {
	for _, direct := range []bool{true, false} {
		env := newTestEnv(t)
		p := &testProvider{
			device: env.device,
			queue:  env.queue,
			format: gputypes.TextureFormatRGBA8UnormSrgb,
			direct: direct,
		}
		r, err := NewFromProvider(p, env.surface, 640, 480)
		if err != nil {
			t.Fatalf("NewFromProvider(direct=%v): %v", direct, err)
		}
		if r.Format() != gputypes.TextureFormatRGBA8UnormSrgb {
			t.Errorf("Format = %v, want provider format", r.Format())
		}
		r.Close()
	}

	env := newTestEnv(t)
	_, err := NewFromProvider(&opaqueProvider{}, env.surface, 640, 480)
	if !errors.Is(err, ErrNoHALDevice) {
		t.Errorf("err = %v, want ErrNoHALDevice", err)
	}
}

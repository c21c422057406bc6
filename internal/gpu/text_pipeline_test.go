package gpu

import (
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/drawq/geom"
	"github.com/gogpu/drawq/shaping"
)

func newTestTextPipeline(t *testing.T, format gputypes.TextureFormat, atlas *shaping.Atlas) (*TextPipeline, *shaping.FontSystem) {
	t.Helper()
	device, queue, cleanup := createNoopDevice(t)
	t.Cleanup(cleanup)
	fs, err := shaping.NewFontSystem()
	if err != nil {
		t.Fatalf("NewFontSystem: %v", err)
	}
	p, err := NewTextPipeline(device, queue, PipelineConfig{Format: format}, fs, atlas)
	if err != nil {
		t.Fatalf("NewTextPipeline: %v", err)
	}
	t.Cleanup(p.Destroy)
	return p, fs
}

func textArea(t *testing.T, fs *shaping.FontSystem, s string, size float32) shaping.TextArea {
	t.Helper()
	buf, err := shaping.NewBuffer(fs, shaping.NewMetrics(size))
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	buf.SetText(fs, s)
	return shaping.TextArea{
		Buffer: buf,
		Left:   100,
		Top:    300,
		Scale:  1,
		Bounds: shaping.Unbounded(),
		Color:  geom.White,
	}
}

func TestNewTextPipelineNilFontSystem(t *testing.T) {
	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	if _, err := NewTextPipeline(device, queue, PipelineConfig{}, nil, nil); err == nil {
		t.Error("expected error for nil font system")
	}
}

func TestTextPipelinePrepareAndRender(t *testing.T) {
	p, fs := newTestTextPipeline(t, gputypes.TextureFormatBGRA8UnormSrgb, nil)

	areas := []shaping.TextArea{textArea(t, fs, "Hello, WGPU!", 32)}
	if err := p.Prepare(areas, shaping.Resolution{Width: 800, Height: 600}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// "Hello, WGPU!" has 11 inked glyphs; the space has no coverage.
	if got := p.QuadCount(); got != 11 {
		t.Errorf("QuadCount = %d, want 11", got)
	}
	if p.atlasTex == nil || p.atlasTexSize != p.Atlas().Size() {
		t.Errorf("atlas texture size = %d, want %d", p.atlasTexSize, p.Atlas().Size())
	}
	if region, resized := p.Atlas().Dirty(); !region.Empty() || resized {
		t.Error("atlas still dirty after Prepare")
	}

	rp := &recordingPass{}
	p.Render(rp)
	if len(rp.draws) != 1 {
		t.Fatalf("draws = %d, want 1", len(rp.draws))
	}
	if want := uint32(p.QuadCount() * 6); rp.draws[0].indexCount != want {
		t.Errorf("indexCount = %d, want %d", rp.draws[0].indexCount, want)
	}
}

func TestTextPipelineEmptyPrepare(t *testing.T) {
	p, _ := newTestTextPipeline(t, gputypes.TextureFormatBGRA8Unorm, nil)

	if err := p.Prepare(nil, shaping.Resolution{Width: 800, Height: 600}); err != nil {
		t.Fatalf("Prepare(nil): %v", err)
	}
	rp := &recordingPass{}
	p.Render(rp)
	if len(rp.draws) != 0 {
		t.Errorf("draws = %d for empty frame, want 0", len(rp.draws))
	}
}

func TestTextPipelineBuffersGrow(t *testing.T) {
	p, fs := newTestTextPipeline(t, gputypes.TextureFormatBGRA8Unorm, nil)

	long := ""
	for range 20 {
		long += "abcdefgh"
	}
	areas := []shaping.TextArea{textArea(t, fs, long, 12)}
	areas[0].Left = 0
	areas[0].Top = 20
	if err := p.Prepare(areas, shaping.Resolution{Width: 4096, Height: 600}); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if p.QuadCount() <= minTextQuads {
		t.Fatalf("QuadCount = %d, need more than %d for this test", p.QuadCount(), minTextQuads)
	}
	if p.quadCap < p.QuadCount() {
		t.Errorf("quadCap = %d < QuadCount %d", p.quadCap, p.QuadCount())
	}
	if p.quadCap%minTextQuads != 0 {
		t.Errorf("quadCap = %d, want a doubling of %d", p.quadCap, minTextQuads)
	}
}

func TestTextPipelineAtlasGrowthRecreatesTexture(t *testing.T) {
	atlas := shaping.NewAtlas(32, 512)
	p, fs := newTestTextPipeline(t, gputypes.TextureFormatBGRA8Unorm, atlas)

	res := shaping.Resolution{Width: 800, Height: 600}
	if err := p.Prepare([]shaping.TextArea{textArea(t, fs, "a", 12)}, res); err != nil {
		t.Fatal(err)
	}
	first := p.atlasTexSize

	if err := p.Prepare([]shaping.TextArea{textArea(t, fs, "Rectangle | Square | Circle", 32)}, res); err != nil {
		t.Fatal(err)
	}
	if atlas.Size() <= first {
		t.Fatalf("atlas did not grow: %d", atlas.Size())
	}
	if p.atlasTexSize != atlas.Size() {
		t.Errorf("atlas texture size = %d, want %d", p.atlasTexSize, atlas.Size())
	}
}

func TestAppendQuadIndices(t *testing.T) {
	data := appendQuadIndices(nil, 2)
	if len(data) != 12*4 {
		t.Fatalf("len = %d, want 48", len(data))
	}
	want := []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6, 4, 6, 7}
	if got := geom.IndexBytes(want); string(got) != string(data) {
		t.Error("index pattern mismatch")
	}
}

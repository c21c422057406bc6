package gpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/drawq/geom"
	"github.com/gogpu/drawq/shaping"
)

// textVertexStride is the byte stride per vertex in the text pipeline.
// Layout per vertex:
//
//	position (vec2<f32>) = 8 bytes  (location 0)
//	uv       (vec2<f32>) = 8 bytes  (location 1)
//	color    (vec4<f32>) = 16 bytes (location 2)
//
// Total = 32 bytes per vertex.
const textVertexStride = 32

// minTextQuads is the initial quad capacity of the text buffers.
const minTextQuads = 64

// TextPipeline turns the text areas of a frame into textured quads.
//
// Prepare lays the areas out, uploads new glyphs to the atlas texture and
// fills the vertex and index buffers. Render records the draw into an open
// render pass. Buffers and the atlas texture grow on demand.
//
// TextPipeline is NOT thread-safe.
type TextPipeline struct {
	device hal.Device
	queue  hal.Queue

	fs    *shaping.FontSystem
	atlas *shaping.Atlas
	srgb  bool

	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline
	sampler       hal.Sampler

	uniformBuf hal.Buffer
	vertexBuf  hal.Buffer
	indexBuf   hal.Buffer
	quadCap    int

	atlasTex     hal.Texture
	atlasView    hal.TextureView
	atlasTexSize int
	bindGroup    hal.BindGroup

	quads      []shaping.GlyphQuad
	vertexData []byte
	indexData  []byte
	indexCount uint32
}

// NewTextPipeline creates the text pipeline, its sampler and uniform buffer.
// Glyphs are shaped with fs and cached in atlas.
func NewTextPipeline(device hal.Device, queue hal.Queue, cfg PipelineConfig, fs *shaping.FontSystem, atlas *shaping.Atlas) (*TextPipeline, error) {
	if fs == nil {
		return nil, fmt.Errorf("text pipeline: %w", shaping.ErrNoFace)
	}
	if atlas == nil {
		atlas = shaping.NewAtlas(0, 0)
	}
	p := &TextPipeline{
		device: device,
		queue:  queue,
		fs:     fs,
		atlas:  atlas,
		srgb:   cfg.Format.IsSrgb(),
	}
	if err := p.createPipeline(cfg); err != nil {
		p.Destroy()
		return nil, err
	}
	return p, nil
}

func (p *TextPipeline) createPipeline(cfg PipelineConfig) error {
	shader, err := createShaderModule(p.device, "text_shader", textShaderSource, cfg.SPIRV)
	if err != nil {
		return err
	}
	p.shader = shader

	// Bind group layout:
	//   Binding 0: Screen uniform (vertex)
	//   Binding 1: coverage atlas (texture_2d, fragment)
	//   Binding 2: sampler (fragment)
	uniformLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "text_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create text uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "text_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("create text pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	sampler, err := p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "text_atlas_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("create text sampler: %w", err)
	}
	p.sampler = sampler

	blend := gputypes.BlendStateAlpha()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "text_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    textVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    cfg.Format,
					Blend:     &blend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create text pipeline: %w", err)
	}
	p.pipeline = pipeline

	p.uniformBuf, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "text_screen_uniform",
		Size:  screenUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create text uniform buffer: %w", err)
	}
	return nil
}

// Atlas returns the glyph atlas backing the pipeline.
func (p *TextPipeline) Atlas() *shaping.Atlas { return p.atlas }

// QuadCount returns the number of glyph quads prepared for the next Render.
func (p *TextPipeline) QuadCount() int { return len(p.quads) }

// Prepare lays out areas for a viewport of res and uploads everything the
// next Render needs.
func (p *TextPipeline) Prepare(areas []shaping.TextArea, res shaping.Resolution) error {
	p.indexCount = 0

	var err error
	p.quads, err = shaping.AppendLayout(p.quads[:0], p.fs, p.atlas, areas, res)
	if err != nil {
		return fmt.Errorf("text layout: %w", err)
	}
	if err := p.syncAtlas(); err != nil {
		return err
	}
	if err := p.queue.WriteBuffer(p.uniformBuf, 0, makeScreenUniform(res)); err != nil {
		return fmt.Errorf("write text uniform: %w", err)
	}
	if len(p.quads) == 0 {
		return nil
	}
	if err := p.ensureQuadCapacity(len(p.quads)); err != nil {
		return err
	}

	p.vertexData = p.appendVertexData(p.vertexData[:0], p.quads)
	if err := p.queue.WriteBuffer(p.vertexBuf, 0, p.vertexData); err != nil {
		return fmt.Errorf("write text vertices: %w", err)
	}
	p.indexData = appendQuadIndices(p.indexData[:0], len(p.quads))
	if err := p.queue.WriteBuffer(p.indexBuf, 0, p.indexData); err != nil {
		return fmt.Errorf("write text indices: %w", err)
	}
	p.indexCount = uint32(len(p.quads) * 6) //nolint:gosec // bounded by quad capacity
	return nil
}

// Render records the prepared glyph quads into rp. It is a no-op when
// nothing was prepared.
func (p *TextPipeline) Render(rp hal.RenderPassEncoder) {
	if p.indexCount == 0 || p.bindGroup == nil {
		return
	}
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.bindGroup, nil)
	rp.SetVertexBuffer(0, p.vertexBuf, 0)
	rp.SetIndexBuffer(p.indexBuf, gputypes.IndexFormatUint32, 0)
	rp.DrawIndexed(p.indexCount, 1, 0, 0, 0)
}

// syncAtlas mirrors the CPU atlas page into the atlas texture. The texture
// is recreated when the page grew, otherwise only the dirty rows are written.
func (p *TextPipeline) syncAtlas() error {
	size := p.atlas.Size()
	region, resized := p.atlas.Dirty()
	if p.atlasTex == nil || p.atlasTexSize != size {
		if err := p.createAtlasTexture(size); err != nil {
			return err
		}
		region, resized = p.atlas.Image().Rect, true
	}
	if resized {
		region = p.atlas.Image().Rect
	}
	if region.Empty() {
		return nil
	}

	img := p.atlas.Image()
	rows := image.Rect(0, region.Min.Y, size, region.Max.Y)
	data := img.Pix[rows.Min.Y*img.Stride : rows.Max.Y*img.Stride]
	err := p.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  p.atlasTex,
			MipLevel: 0,
			Origin:   hal.Origin3D{Y: uint32(rows.Min.Y)}, //nolint:gosec // inside the atlas
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(img.Stride), //nolint:gosec // atlas stride fits uint32
			RowsPerImage: uint32(rows.Dy()),  //nolint:gosec // atlas height fits uint32
		},
		&hal.Extent3D{Width: uint32(size), Height: uint32(rows.Dy()), DepthOrArrayLayers: 1}, //nolint:gosec // atlas size fits uint32
	)
	if err != nil {
		return fmt.Errorf("upload glyph atlas: %w", err)
	}
	p.atlas.MarkClean()
	return nil
}

// createAtlasTexture replaces the atlas texture, its view and the bind
// group that references them.
func (p *TextPipeline) createAtlasTexture(size int) error {
	p.destroyAtlasTexture()

	side := uint32(size) //nolint:gosec // atlas size always fits uint32
	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "text_atlas",
		Size:          hal.Extent3D{Width: side, Height: side, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatR8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create atlas texture: %w", err)
	}
	p.atlasTex = tex

	view, err := p.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "text_atlas_view",
		Format:        gputypes.TextureFormatR8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		return fmt.Errorf("create atlas texture view: %w", err)
	}
	p.atlasView = view

	p.bindGroup, err = p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "text_bind_group",
		Layout: p.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: p.uniformBuf.NativeHandle(), Offset: 0, Size: screenUniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: p.atlasView.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("create text bind group: %w", err)
	}
	p.atlasTexSize = size
	slogger().Debug("text atlas texture created", "size", size)
	return nil
}

func (p *TextPipeline) destroyAtlasTexture() {
	if p.bindGroup != nil {
		p.device.DestroyBindGroup(p.bindGroup)
		p.bindGroup = nil
	}
	if p.atlasView != nil {
		p.device.DestroyTextureView(p.atlasView)
		p.atlasView = nil
	}
	if p.atlasTex != nil {
		p.device.DestroyTexture(p.atlasTex)
		p.atlasTex = nil
	}
	p.atlasTexSize = 0
}

// ensureQuadCapacity grows the vertex and index buffers to hold n quads.
// Capacity doubles so a growing scene reallocates O(log n) times.
func (p *TextPipeline) ensureQuadCapacity(n int) error {
	if n <= p.quadCap {
		return nil
	}
	newCap := max(p.quadCap, minTextQuads)
	for newCap < n {
		newCap *= 2
	}

	if p.vertexBuf != nil {
		p.device.DestroyBuffer(p.vertexBuf)
		p.vertexBuf = nil
	}
	if p.indexBuf != nil {
		p.device.DestroyBuffer(p.indexBuf)
		p.indexBuf = nil
	}
	p.quadCap = 0

	var err error
	p.vertexBuf, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "text_vertices",
		Size:  uint64(newCap) * 4 * textVertexStride, //nolint:gosec // positive
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create text vertex buffer: %w", err)
	}
	p.indexBuf, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "text_indices",
		Size:  uint64(newCap) * 6 * geom.IndexSize, //nolint:gosec // positive
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create text index buffer: %w", err)
	}
	p.quadCap = newCap
	slogger().Debug("text buffers grown", "quads", newCap)
	return nil
}

// Destroy releases all GPU resources. Safe to call multiple times.
func (p *TextPipeline) Destroy() {
	if p.device == nil {
		return
	}
	p.destroyAtlasTexture()
	if p.indexBuf != nil {
		p.device.DestroyBuffer(p.indexBuf)
		p.indexBuf = nil
	}
	if p.vertexBuf != nil {
		p.device.DestroyBuffer(p.vertexBuf)
		p.vertexBuf = nil
	}
	p.quadCap = 0
	if p.uniformBuf != nil {
		p.device.DestroyBuffer(p.uniformBuf)
		p.uniformBuf = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.uniformLayout != nil {
		p.device.DestroyBindGroupLayout(p.uniformLayout)
		p.uniformLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
	p.indexCount = 0
}

// textVertexLayout returns the vertex buffer layout for glyph quads.
func textVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: textVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},  // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1},  // uv
				{Format: gputypes.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2}, // color
			},
		},
	}
}

// appendVertexData encodes four vertices per quad in TL, TR, BR, BL order.
func (p *TextPipeline) appendVertexData(dst []byte, quads []shaping.GlyphQuad) []byte {
	var v [textVertexStride]byte
	for i := range quads {
		q := &quads[i]
		c := q.Color
		if p.srgb {
			c = c.Linear()
		}
		corners := [4][4]float32{
			{q.X0, q.Y0, q.U0, q.V0},
			{q.X1, q.Y0, q.U1, q.V0},
			{q.X1, q.Y1, q.U1, q.V1},
			{q.X0, q.Y1, q.U0, q.V1},
		}
		for _, k := range corners {
			putFloats(v[0:16], k[:])
			putFloats(v[16:32], c[:])
			dst = append(dst, v[:]...)
		}
	}
	return dst
}

// appendQuadIndices emits two triangles per quad.
func appendQuadIndices(dst []byte, numQuads int) []byte {
	var b [4]byte
	for i := range numQuads {
		base := uint32(i * 4) //nolint:gosec // bounded by quad capacity
		for _, off := range [6]uint32{0, 1, 2, 0, 2, 3} {
			binary.LittleEndian.PutUint32(b[:], base+off)
			dst = append(dst, b[:]...)
		}
	}
	return dst
}

func putFloats(buf []byte, vals []float32) {
	for i, f := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
}

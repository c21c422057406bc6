package gpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/drawq/geom"
	"github.com/gogpu/drawq/shaping"
)

// screenUniformSize is the byte size of the Screen uniform shared by both
// pipelines: vec2<f32> view size + vec2<f32> view origin.
const screenUniformSize = 16

// PipelineConfig selects the render target format and shader encoding.
type PipelineConfig struct {
	// Format is the color target format. It must match the surface.
	Format gputypes.TextureFormat

	// SPIRV compiles the WGSL shaders to SPIR-V with naga before creating
	// the shader modules.
	SPIRV bool
}

// ShapePipeline draws the frame's shape batch in one indexed draw.
//
// Vertex and index buffers are allocated once with a fixed capacity and
// overwritten at offset 0 every frame.
//
// ShapePipeline is NOT thread-safe.
type ShapePipeline struct {
	device hal.Device
	queue  hal.Queue

	shader        hal.ShaderModule
	uniformLayout hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	pipeline      hal.RenderPipeline

	vertexBuf  hal.Buffer
	indexBuf   hal.Buffer
	uniformBuf hal.Buffer
	bindGroup  hal.BindGroup

	maxVertices int
	maxIndices  int
	indexCount  uint32

	staging []byte
}

// NewShapePipeline creates the shape pipeline and its buffers.
func NewShapePipeline(device hal.Device, queue hal.Queue, cfg PipelineConfig, maxVertices, maxIndices int) (*ShapePipeline, error) {
	if maxVertices <= 0 || maxIndices <= 0 {
		return nil, fmt.Errorf("shape pipeline: %w", geom.ErrInvalidCapacity)
	}
	p := &ShapePipeline{
		device:      device,
		queue:       queue,
		maxVertices: maxVertices,
		maxIndices:  maxIndices,
	}
	if err := p.createPipeline(cfg); err != nil {
		p.Destroy()
		return nil, err
	}
	if err := p.createBuffers(); err != nil {
		p.Destroy()
		return nil, err
	}
	slogger().Debug("shape pipeline created",
		"format", cfg.Format, "maxVertices", maxVertices, "maxIndices", maxIndices)
	return p, nil
}

func (p *ShapePipeline) createPipeline(cfg PipelineConfig) error {
	shader, err := createShaderModule(p.device, "shape_shader", shapeShaderSource, cfg.SPIRV)
	if err != nil {
		return err
	}
	p.shader = shader

	uniformLayout, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "shape_uniform_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create shape uniform layout: %w", err)
	}
	p.uniformLayout = uniformLayout

	pipeLayout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "shape_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.uniformLayout},
	})
	if err != nil {
		return fmt.Errorf("create shape pipeline layout: %w", err)
	}
	p.pipeLayout = pipeLayout

	blend := gputypes.BlendStateAlpha()
	pipeline, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "shape_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    shapeVertexLayout(),
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
		return fmt.Errorf("create shape pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

func (p *ShapePipeline) createBuffers() error {
	var err error
	p.vertexBuf, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "shape_vertices",
		Size:  uint64(p.maxVertices) * geom.VertexSize, //nolint:gosec // positive, checked in constructor
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create shape vertex buffer: %w", err)
	}

	p.indexBuf, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "shape_indices",
		Size:  uint64(p.maxIndices) * geom.IndexSize, //nolint:gosec // positive, checked in constructor
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create shape index buffer: %w", err)
	}

	p.uniformBuf, err = p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "shape_screen_uniform",
		Size:  screenUniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create shape uniform buffer: %w", err)
	}

	p.bindGroup, err = p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "shape_bind_group",
		Layout: p.uniformLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: p.uniformBuf.NativeHandle(), Offset: 0, Size: screenUniformSize,
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("create shape bind group: %w", err)
	}
	return nil
}

// SetView writes the visible region used to map pixels to clip space:
// width x height pixels starting at world point (x, y).
func (p *ShapePipeline) SetView(res shaping.Resolution) error {
	if err := p.queue.WriteBuffer(p.uniformBuf, 0, makeScreenUniform(res)); err != nil {
		return fmt.Errorf("write shape uniform: %w", err)
	}
	return nil
}

// Upload writes the frame's geometry at offset 0 of the vertex and index
// buffers. Geometry beyond the buffer capacity is rejected, never truncated.
func (p *ShapePipeline) Upload(vertices []geom.Vertex, indices []uint32) error {
	if len(vertices) > p.maxVertices {
		return &geom.CapacityError{Kind: geom.KindVertices, Requested: len(vertices), Capacity: p.maxVertices}
	}
	if len(indices) > p.maxIndices {
		return &geom.CapacityError{Kind: geom.KindIndices, Requested: len(indices), Capacity: p.maxIndices}
	}
	p.indexCount = 0
	if len(indices) == 0 {
		return nil
	}

	p.staging = geom.AppendVertexBytes(p.staging[:0], vertices)
	if err := p.queue.WriteBuffer(p.vertexBuf, 0, p.staging); err != nil {
		return fmt.Errorf("write shape vertices: %w", err)
	}
	p.staging = geom.AppendIndexBytes(p.staging[:0], indices)
	if err := p.queue.WriteBuffer(p.indexBuf, 0, p.staging); err != nil {
		return fmt.Errorf("write shape indices: %w", err)
	}
	p.indexCount = uint32(len(indices)) //nolint:gosec // bounded by maxIndices
	return nil
}

// IndexCount returns the number of indices the next RecordDraws draws.
func (p *ShapePipeline) IndexCount() uint32 { return p.indexCount }

// Reset forgets the uploaded geometry.
func (p *ShapePipeline) Reset() { p.indexCount = 0 }

// RecordDraws records one indexed draw over the uploaded geometry.
// It is a no-op when nothing was uploaded.
func (p *ShapePipeline) RecordDraws(rp hal.RenderPassEncoder) {
	if p.indexCount == 0 {
		return
	}
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, p.bindGroup, nil)
	rp.SetVertexBuffer(0, p.vertexBuf, 0)
	rp.SetIndexBuffer(p.indexBuf, gputypes.IndexFormatUint32, 0)
	rp.DrawIndexed(p.indexCount, 1, 0, 0, 0)
}

// Destroy releases all GPU resources in reverse creation order. Safe to
// call multiple times.
func (p *ShapePipeline) Destroy() {
	if p.device == nil {
		return
	}
	if p.bindGroup != nil {
		p.device.DestroyBindGroup(p.bindGroup)
		p.bindGroup = nil
	}
	if p.uniformBuf != nil {
		p.device.DestroyBuffer(p.uniformBuf)
		p.uniformBuf = nil
	}
	if p.indexBuf != nil {
		p.device.DestroyBuffer(p.indexBuf)
		p.indexBuf = nil
	}
	if p.vertexBuf != nil {
		p.device.DestroyBuffer(p.vertexBuf)
		p.vertexBuf = nil
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

// shapeVertexLayout returns the vertex buffer layout for geom.Vertex.
func shapeVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: geom.VertexSize,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x4, Offset: 8, ShaderLocation: 1}, // color
			},
		},
	}
}

// makeScreenUniform encodes the Screen uniform.
func makeScreenUniform(res shaping.Resolution) []byte {
	buf := make([]byte, screenUniformSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(res.Width)))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(float32(res.Height)))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(res.X))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(res.Y))
	return buf
}

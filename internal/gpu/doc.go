// Package gpu drives the HAL objects behind the draw queue.
//
// It owns two render pipelines and the surface wrapper:
//
//   - ShapePipeline: solid-colored triangles from geom.Batch, uploaded into
//     fixed-capacity vertex and index buffers and drawn with one
//     DrawIndexed call.
//   - TextPipeline: glyph quads sampled from a single-channel coverage atlas
//     that mirrors shaping.Atlas. It implements text.Preparer.
//   - Surface: swapchain configuration, image acquisition and the
//     classification of acquire failures into reconfigure, skip or fatal.
//
// Both pipelines map pixel coordinates to clip space through a 16-byte
// screen-size uniform. Shaders are WGSL; with PipelineConfig.SPIRV they are
// compiled to SPIR-V with naga first.
//
// All types in this package are NOT thread-safe. The package logger set
// with SetLogger is.
package gpu

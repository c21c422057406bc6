package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// WGSL shader sources for the draw queue pipelines.
// These are compiled at build time using go:embed directives.

//go:embed shaders/shape.wgsl
var shapeShaderSource string

//go:embed shaders/text.wgsl
var textShaderSource string

// ShapeShaderSource returns the WGSL source of the shape pipeline.
func ShapeShaderSource() string { return shapeShaderSource }

// TextShaderSource returns the WGSL source of the text pipeline.
func TextShaderSource() string { return textShaderSource }

// compileSPIRV compiles WGSL to SPIR-V words with naga.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: SPIR-V length %d is not word aligned", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return code, nil
}

// createShaderModule creates a shader module from WGSL, or from SPIR-V
// compiled with naga when spirv is set.
func createShaderModule(device hal.Device, label, wgsl string, spirv bool) (hal.ShaderModule, error) {
	if wgsl == "" {
		return nil, fmt.Errorf("%s: shader source is empty", label)
	}
	source := hal.ShaderSource{WGSL: wgsl}
	if spirv {
		code, err := compileSPIRV(wgsl)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		source = hal.ShaderSource{SPIRV: code}
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: source,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	return module, nil
}

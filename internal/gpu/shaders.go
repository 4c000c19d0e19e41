package gpu

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/ifft/internal/gpu/fftcompute"
)

// WGSL sources for the FFT pipelines.
// CPU mirrors of each shader live in fftcompute/kernels.go.

//go:embed shaders/fft_stage.wgsl
var shaderFFTStage string

//go:embed shaders/normalize.wgsl
var shaderNormalize string

//go:embed shaders/normalize_inplace.wgsl
var shaderNormalizeInPlace string

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

// shaderSource returns src specialized for the given workgroup size.
// The shaders are written for fftcompute.WorkgroupSize; both the attribute
// and the row stride used to linearize 2D dispatches are rewritten.
func shaderSource(src string, wgSize uint32) string {
	if wgSize == fftcompute.WorkgroupSize {
		return src
	}
	src = strings.ReplaceAll(src, "@workgroup_size(256)", fmt.Sprintf("@workgroup_size(%d)", wgSize))
	return strings.ReplaceAll(src, "groups_x * 256u", fmt.Sprintf("groups_x * %du", wgSize))
}

// compileSPIRV compiles WGSL source to little-endian SPIR-V words with naga.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}
	if len(spirvBytes) < 4 || len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile shader: malformed SPIR-V (%d bytes)", len(spirvBytes))
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	if words[0] != spirvMagic {
		return nil, fmt.Errorf("compile shader: invalid SPIR-V magic 0x%08X", words[0])
	}
	return words, nil
}

// createShaderModule creates a shader module from WGSL, or from SPIR-V
// precompiled on the host when precompile is set.
func createShaderModule(device hal.Device, label, wgsl string, precompile bool) (hal.ShaderModule, error) {
	source := hal.ShaderSource{WGSL: wgsl}
	if precompile {
		words, err := compileSPIRV(wgsl)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", label, err)
		}
		source = hal.ShaderSource{SPIRV: words}
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: source,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module %s: %w", label, err)
	}
	slogger().Debug("fft: shader module created",
		"label", label,
		"spirv", precompile,
		"shader_bytes", len(wgsl))
	return module, nil
}

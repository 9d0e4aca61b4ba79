// Package effect compiles WGSL effect sources and reflects their
// parameters, vertex streams and sampler units.
//
// An effect is a WGSL module holding exactly one vertex and one fragment
// entry point: a single technique with a single pass. Module-scope
// resources in bind group 0 become effect parameters. A trailing
// "// semantic: NAME" comment on the declaration gives a parameter its
// semantic:
//
//	@group(0) @binding(0) var<uniform> world_view_projection: mat4x4<f32>; // semantic: WORLDVIEWPROJECTION
//	@group(0) @binding(1) var diffuse_sampler: sampler;
//	@group(0) @binding(2) var diffuse_texture: texture_2d<f32>;
package effect

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/gapi"
)

// Compile errors.
var (
	// ErrTechniqueCount is returned when the module lacks a vertex or a
	// fragment entry point.
	ErrTechniqueCount = errors.New("effect: effect must have exactly one technique")

	// ErrPassCount is returned when the module declares more than one
	// entry point for a stage.
	ErrPassCount = errors.New("effect: technique must have exactly one pass")

	// ErrEntryPoint is returned when the requested entry points do not
	// match the declared ones.
	ErrEntryPoint = errors.New("effect: entry point not found")

	// ErrBindGroup is returned for resources outside bind group 0.
	ErrBindGroup = errors.New("effect: only bind group 0 is supported")

	// ErrParamType is returned for module variables of unsupported type.
	ErrParamType = errors.New("effect: unsupported parameter type")
)

// TextureDim is the dimension of a texture parameter.
type TextureDim uint8

// Texture dimensions.
const (
	TextureDimNone TextureDim = iota
	TextureDim2D
	TextureDim3D
	TextureDimCube
)

// Param is a reflected effect parameter.
type Param struct {
	Name     string
	Semantic string
	Type     gapi.EffectParamType
	// NumElements is zero for non-array parameters.
	NumElements uint32
	Binding     uint32
	// Offset is the byte offset of the parameter inside the uniform block.
	// Only value parameters have one.
	Offset uint32
	// Size is the byte size of the parameter in the uniform block.
	Size uint32
	// Stride is the uniform array element stride.
	Stride     uint32
	TextureDim TextureDim
}

// Desc returns the backend-neutral description of p.
func (p *Param) Desc() gapi.EffectParamDesc {
	return gapi.EffectParamDesc{
		Name:        p.Name,
		Semantic:    p.Semantic,
		Type:        p.Type,
		NumElements: p.NumElements,
	}
}

// IsValue reports whether p lives in the uniform block.
func (p *Param) IsValue() bool {
	return p.Type != gapi.ParamSampler && p.Type != gapi.ParamTexture
}

// Stream is a reflected vertex input.
type Stream struct {
	Name          string
	Location      uint32
	Semantic      gapi.Semantic
	SemanticIndex uint32
}

// SamplerUnit pairs a sampler parameter with a texture it samples.
type SamplerUnit struct {
	Sampler string
	Texture string
}

// Program is a compiled and reflected effect.
type Program struct {
	Source        string
	VertexEntry   string
	FragmentEntry string
	SPIRV         []uint32

	Params  []Param
	Streams []Stream
	Units   []SamplerUnit

	// UniformSize is the byte size of the uniform block.
	UniformSize uint32
}

// Param returns the parameter called name, or nil.
func (p *Program) Param(name string) *Param {
	for i := range p.Params {
		if p.Params[i].Name == name {
			return &p.Params[i]
		}
	}
	return nil
}

// SPIRVFunc translates WGSL source to SPIR-V words.
type SPIRVFunc func(source string) ([]uint32, error)

// NagaSPIRV compiles WGSL with naga.
func NagaSPIRV(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, err
	}
	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// Compile checks the technique structure of source, reflects it and
// translates it with toSPIRV. A nil toSPIRV selects NagaSPIRV.
// Compilation diagnostics are returned as a single error.
func Compile(source, vertexEntry, fragmentEntry string, toSPIRV SPIRVFunc) (*Program, error) {
	if toSPIRV == nil {
		toSPIRV = NagaSPIRV
	}
	m, err := reflectModule(source)
	if err != nil {
		return nil, err
	}
	if len(m.vertex) == 0 || len(m.fragment) == 0 {
		return nil, ErrTechniqueCount
	}
	if len(m.vertex) > 1 || len(m.fragment) > 1 {
		return nil, ErrPassCount
	}
	if m.vertex[0] != vertexEntry {
		return nil, fmt.Errorf("%w: vertex entry %q, module declares %q", ErrEntryPoint, vertexEntry, m.vertex[0])
	}
	if m.fragment[0] != fragmentEntry {
		return nil, fmt.Errorf("%w: fragment entry %q, module declares %q", ErrEntryPoint, fragmentEntry, m.fragment[0])
	}

	streams, err := m.vertexStreams(vertexEntry)
	if err != nil {
		return nil, err
	}

	words, err := toSPIRV(source)
	if err != nil {
		return nil, fmt.Errorf("effect: compile: %w", err)
	}

	prog := &Program{
		Source:        source,
		VertexEntry:   vertexEntry,
		FragmentEntry: fragmentEntry,
		SPIRV:         words,
		Params:        m.params,
		Streams:       streams,
		Units:         m.units,
	}
	prog.UniformSize = layoutUniforms(prog.Params)
	return prog, nil
}

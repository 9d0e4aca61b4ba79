package gapi

import (
	"fmt"
	"math"
)

// Volume is a sub-region of one mip level of a texture.
type Volume struct {
	X, Y, Z              uint32
	Width, Height, Depth uint32
}

// RGBA is a linear floating point color.
type RGBA struct {
	R, G, B, A float32
}

// ClearBuffer selects the buffers affected by Clear.
type ClearBuffer uint32

// Clear buffer bits.
const (
	ClearColor ClearBuffer = 1 << iota
	ClearDepth
	ClearStencil
)

// BufferFlags modifies vertex and index buffer creation.
type BufferFlags uint32

// Buffer flags.
const (
	// BufferFlagDynamic marks a buffer that is rewritten often.
	BufferFlagDynamic BufferFlags = 1 << iota
	// BufferFlagIndex32 selects 32-bit indices for an index buffer.
	BufferFlagIndex32
)

// VertexType is the data type of one vertex attribute.
type VertexType uint8

// Vertex attribute types.
const (
	VertexFloat1 VertexType = iota
	VertexFloat2
	VertexFloat3
	VertexFloat4
	VertexUChar4N
	numVertexTypes
)

// Size returns the attribute size in bytes.
func (t VertexType) Size() uint32 {
	switch t {
	case VertexFloat1, VertexUChar4N:
		return 4
	case VertexFloat2:
		return 8
	case VertexFloat3:
		return 12
	case VertexFloat4:
		return 16
	}
	panic(fmt.Sprintf("gapi: invalid vertex type %d", t))
}

// Valid reports whether t is a known vertex type.
func (t VertexType) Valid() bool { return t < numVertexTypes }

// Semantic names the meaning of a vertex stream.
type Semantic uint8

// Vertex semantics.
const (
	SemanticUnknown Semantic = iota
	SemanticPosition
	SemanticNormal
	SemanticTangent
	SemanticBinormal
	SemanticColor
	SemanticTexCoord
)

var semanticNames = [...]string{
	SemanticUnknown:  "UNKNOWN",
	SemanticPosition: "POSITION",
	SemanticNormal:   "NORMAL",
	SemanticTangent:  "TANGENT",
	SemanticBinormal: "BINORMAL",
	SemanticColor:    "COLOR",
	SemanticTexCoord: "TEXCOORD",
}

func (s Semantic) String() string {
	if int(s) < len(semanticNames) {
		return semanticNames[s]
	}
	return fmt.Sprintf("Semantic(%d)", s)
}

// VertexInput binds one vertex attribute to a range of a vertex buffer.
type VertexInput struct {
	Buffer        ResourceID
	Offset        uint32
	Stride        uint32
	Type          VertexType
	Semantic      Semantic
	SemanticIndex uint32
}

// PrimitiveType is the topology used by Draw and DrawIndexed.
type PrimitiveType uint8

// Primitive types.
const (
	PrimitivePoints PrimitiveType = iota
	PrimitiveLines
	PrimitiveLineStrips
	PrimitiveTriangles
	PrimitiveTriangleStrips
	PrimitiveTriangleFans
)

// VertexCount returns the number of vertices needed for count primitives.
// The second result is false for a zero count, an unknown type or a
// vertex count that overflows.
func (p PrimitiveType) VertexCount(count uint32) (uint32, bool) {
	if count == 0 {
		return 0, false
	}
	n := uint64(count)
	switch p {
	case PrimitivePoints:
	case PrimitiveLines:
		n *= 2
	case PrimitiveLineStrips:
		n++
	case PrimitiveTriangles:
		n *= 3
	case PrimitiveTriangleStrips, PrimitiveTriangleFans:
		n += 2
	default:
		return 0, false
	}
	if n > math.MaxUint32 {
		return 0, false
	}
	return uint32(n), true
}

// EffectParamType is the type of an effect parameter.
type EffectParamType uint8

// Effect parameter types.
const (
	ParamUnknown EffectParamType = iota
	ParamFloat1
	ParamFloat2
	ParamFloat3
	ParamFloat4
	ParamMatrix4
	ParamInt
	ParamBool
	ParamSampler
	ParamTexture
)

var paramTypeNames = [...]string{
	ParamUnknown: "unknown",
	ParamFloat1:  "float",
	ParamFloat2:  "float2",
	ParamFloat3:  "float3",
	ParamFloat4:  "float4",
	ParamMatrix4: "matrix4",
	ParamInt:     "int",
	ParamBool:    "bool",
	ParamSampler: "sampler",
	ParamTexture: "texture",
}

func (t EffectParamType) String() string {
	if int(t) < len(paramTypeNames) {
		return paramTypeNames[t]
	}
	return fmt.Sprintf("EffectParamType(%d)", t)
}

// DataSize returns the number of bytes SetParamData expects for one
// element of this type. Sampler parameters take a 4-byte sampler
// ResourceID; texture parameters take a 4-byte texture ResourceID.
func (t EffectParamType) DataSize() uint32 {
	switch t {
	case ParamFloat1, ParamInt, ParamBool, ParamSampler, ParamTexture:
		return 4
	case ParamFloat2:
		return 8
	case ParamFloat3:
		return 12
	case ParamFloat4:
		return 16
	case ParamMatrix4:
		return 64
	}
	return 0
}

// EffectParamDesc describes one effect parameter.
type EffectParamDesc struct {
	Name     string
	Semantic string
	Type     EffectParamType
	// NumElements is zero for scalars and the declared length for arrays.
	NumElements uint32
}

// DataSize returns the total byte size SetParamData expects.
func (d EffectParamDesc) DataSize() uint32 {
	n := d.NumElements
	if n == 0 {
		n = 1
	}
	return n * d.Type.DataSize()
}

// EffectStreamDesc describes one vertex input consumed by an effect.
type EffectStreamDesc struct {
	Semantic      Semantic
	SemanticIndex uint32
}

// DeviceStatus is the state reported by CheckDevice.
type DeviceStatus uint8

// Device states.
const (
	// DeviceOK means the device can render.
	DeviceOK DeviceStatus = iota
	// DeviceLost means the device is gone and cannot be reset yet.
	DeviceLost
	// DeviceNotReset means the device can be reset now.
	DeviceNotReset
)

func (s DeviceStatus) String() string {
	switch s {
	case DeviceOK:
		return "ok"
	case DeviceLost:
		return "lost"
	case DeviceNotReset:
		return "not-reset"
	}
	return fmt.Sprintf("DeviceStatus(%d)", s)
}

// Stats counts native work issued by a backend.
type Stats struct {
	DrawCalls      uint64
	SkippedDraws   uint64
	Submits        uint64
	PipelineHits   uint64
	PipelineMisses uint64
	Resets         uint64
}

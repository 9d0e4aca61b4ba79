package gapi

import (
	"errors"
	"fmt"
)

// ResourceID identifies a resource inside one backend resource table.
// IDs are assigned by the client; the backend never invents them.
type ResourceID uint32

// InvalidResourceID is never a valid handle.
const InvalidResourceID ResourceID = 0xffffffff

// ParseError is the result code of a mutating GAPI operation.
type ParseError int

// Result codes.
const (
	ParseNoError ParseError = iota
	ParseInvalidArguments
)

// ErrInvalidArguments is the error form of ParseInvalidArguments.
var ErrInvalidArguments = errors.New("gapi: invalid arguments")

// String returns the name of the result code.
func (e ParseError) String() string {
	switch e {
	case ParseNoError:
		return "NoError"
	case ParseInvalidArguments:
		return "InvalidArguments"
	default:
		return fmt.Sprintf("ParseError(%d)", int(e))
	}
}

// Err converts the code to an error, nil for ParseNoError.
func (e ParseError) Err() error {
	if e == ParseNoError {
		return nil
	}
	if e == ParseInvalidArguments {
		return ErrInvalidArguments
	}
	return fmt.Errorf("gapi: %s", e)
}

// GAPI is the backend-neutral command interface. The command decoder
// calls it with already validated, strongly typed arguments; every
// mutating operation reports a ParseError and leaves state untouched
// when it fails.
//
// Implementations are not safe for concurrent use. All calls must be
// serialized onto the rendering goroutine.
type GAPI interface {
	// Initialize creates the device and the frame targets.
	Initialize() error
	// Destroy releases every resource and the device.
	Destroy()
	// BeginFrame starts recording a frame.
	BeginFrame()
	// EndFrame submits the recorded frame.
	EndFrame()
	// CheckDevice polls the device state and runs the lost/reset cycle.
	CheckDevice() DeviceStatus
	// Clear clears the selected buffers of the current target.
	Clear(buffers ClearBuffer, color RGBA, depth float32, stencil uint32)

	CreateVertexBuffer(id ResourceID, size uint32, flags BufferFlags) ParseError
	DestroyVertexBuffer(id ResourceID) ParseError
	SetVertexBufferData(id ResourceID, offset uint32, data []byte) ParseError
	GetVertexBufferData(id ResourceID, offset uint32, data []byte) ParseError

	CreateIndexBuffer(id ResourceID, size uint32, flags BufferFlags) ParseError
	DestroyIndexBuffer(id ResourceID) ParseError
	SetIndexBufferData(id ResourceID, offset uint32, data []byte) ParseError
	GetIndexBufferData(id ResourceID, offset uint32, data []byte) ParseError

	CreateVertexStruct(id ResourceID, inputCount uint32) ParseError
	DestroyVertexStruct(id ResourceID) ParseError
	SetVertexInput(id ResourceID, index uint32, input VertexInput) ParseError
	SetVertexStruct(id ResourceID) ParseError

	// Draw draws count primitives starting at vertex first.
	Draw(prim PrimitiveType, first, count uint32) ParseError
	// DrawIndexed draws count primitives reading indices from indexBuffer
	// starting at index first. minIndex and maxIndex bound the vertices
	// referenced by the indices.
	DrawIndexed(prim PrimitiveType, indexBuffer ResourceID, first, count, minIndex, maxIndex uint32) ParseError

	CreateEffect(id ResourceID, vertexEntry, fragmentEntry, source string) ParseError
	DestroyEffect(id ResourceID) ParseError
	SetEffect(id ResourceID) ParseError
	GetParamCount(id ResourceID) (uint32, ParseError)
	CreateParam(paramID, effectID ResourceID, index uint32) ParseError
	CreateParamByName(paramID, effectID ResourceID, name string) ParseError
	DestroyParam(id ResourceID) ParseError
	SetParamData(id ResourceID, data []byte) ParseError
	GetParamDesc(id ResourceID) (EffectParamDesc, ParseError)
	GetStreamCount(id ResourceID) (uint32, ParseError)
	GetStreamDesc(id ResourceID, index uint32) (EffectStreamDesc, ParseError)

	CreateTexture2D(id ResourceID, width, height, levels uint32, format TextureFormat, flags TextureFlags) ParseError
	CreateTexture3D(id ResourceID, width, height, depth, levels uint32, format TextureFormat, flags TextureFlags) ParseError
	CreateTextureCube(id ResourceID, side, levels uint32, format TextureFormat, flags TextureFlags) ParseError
	SetTextureData(id ResourceID, vol Volume, level uint32, face CubeFace, rowPitch, slicePitch uint32, data []byte) ParseError
	GetTextureData(id ResourceID, vol Volume, level uint32, face CubeFace, rowPitch, slicePitch uint32, data []byte) ParseError
	DestroyTexture(id ResourceID) ParseError

	CreateSampler(id ResourceID) ParseError
	DestroySampler(id ResourceID) ParseError
	SetSamplerStates(id ResourceID, states SamplerStates) ParseError
	SetSamplerBorderColor(id ResourceID, color RGBA) ParseError
	SetSamplerTexture(id, textureID ResourceID) ParseError

	SetScissor(enable bool, x, y, width, height uint32)
	SetViewport(x, y, width, height uint32, zMin, zMax float32)
	SetPointLineRaster(lineSmooth, pointSprite bool, pointSize float32)
	SetPolygonRaster(fillMode PolygonMode, cullMode FaceCullMode)
	SetPolygonOffset(slope, units float32)
	SetAlphaTest(enable bool, reference float32, fn Comparison)
	SetDepthTest(enable, writeEnable bool, fn Comparison)
	SetStencilTest(state StencilState)
	SetColorWrite(red, green, blue, alpha, dither bool)
	SetBlending(state BlendState)
	SetBlendingColor(color RGBA)
}

// EffectValidator is implemented by backends whose compiled effects can
// become invalid independently of the parameter graph, for example
// across a device reset. The renderer consults it before reusing cached
// parameter bindings.
type EffectValidator interface {
	// EffectGeneration returns a counter that changes whenever the
	// native objects of the effect are rebuilt, and whether the effect
	// is currently usable.
	EffectGeneration(id ResourceID) (gen uint64, valid bool)
}

// StatsReporter is implemented by backends that count native work.
type StatsReporter interface {
	Stats() Stats
}

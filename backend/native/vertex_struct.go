package native

import (
	"math"

	"github.com/gogpu/gapi"
)

// vertexStruct binds vertex inputs to vertex buffers.
type vertexStruct struct {
	inputs []gapi.VertexInput
}

// CreateVertexStruct creates a vertex struct with inputCount unassigned
// inputs.
func (g *GAPI) CreateVertexStruct(id gapi.ResourceID, inputCount uint32) gapi.ParseError {
	if inputCount == 0 {
		return gapi.ParseInvalidArguments
	}
	vs := &vertexStruct{inputs: make([]gapi.VertexInput, inputCount)}
	for i := range vs.inputs {
		vs.inputs[i].Buffer = gapi.InvalidResourceID
	}
	if !g.vertexStructs.Create(id, vs) {
		return gapi.ParseInvalidArguments
	}
	return gapi.ParseNoError
}

// DestroyVertexStruct destroys a vertex struct. Destroying the current
// one leaves no vertex struct bound.
func (g *GAPI) DestroyVertexStruct(id gapi.ResourceID) gapi.ParseError {
	if !g.vertexStructs.Destroy(id) {
		return gapi.ParseInvalidArguments
	}
	g.purgePipelines(func(k pipelineKey) bool { return k.vertexStruct == id })
	if id == g.currentVertexStruct {
		g.validateStreams = true
	}
	return gapi.ParseNoError
}

// SetVertexInput assigns input index of a vertex struct.
func (g *GAPI) SetVertexInput(id gapi.ResourceID, index uint32, input gapi.VertexInput) gapi.ParseError {
	vs := g.vertexStructs.Get(id)
	if vs == nil || index >= uint32(len(vs.inputs)) || !input.Type.Valid() {
		return gapi.ParseInvalidArguments
	}
	vs.inputs[index] = input
	g.purgePipelines(func(k pipelineKey) bool { return k.vertexStruct == id })
	if id == g.currentVertexStruct {
		g.validateStreams = true
	}
	return gapi.ParseNoError
}

// SetVertexStruct makes a vertex struct current.
func (g *GAPI) SetVertexStruct(id gapi.ResourceID) gapi.ParseError {
	g.currentVertexStruct = id
	g.validateStreams = true
	return gapi.ParseNoError
}

// validateStreamsNow recomputes the number of vertices every input of the
// current vertex struct can supply.
func (g *GAPI) validateStreamsNow() {
	g.validateStreams = false
	g.streamsValid = false
	g.maxVertices = 0

	vs := g.vertexStructs.Get(g.currentVertexStruct)
	if vs == nil {
		return
	}
	limit := uint32(math.MaxUint32)
	for i := range vs.inputs {
		in := &vs.inputs[i]
		vb := g.vertexBuffers.Get(in.Buffer)
		if vb == nil {
			gapi.Logger().Debug("native: vertex input without buffer", "struct", g.currentVertexStruct, "input", i)
			return
		}
		size := uint32(len(vb.shadow))
		switch {
		case in.Offset > size:
			limit = 0
		case in.Stride == 0:
			// A zero stride repeats one element for every vertex.
		default:
			limit = min(limit, (size-in.Offset)/in.Stride)
		}
	}
	g.maxVertices = limit
	g.streamsValid = true
}

package native

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gapi"
)

// bufferObject is a native buffer with a CPU shadow copy. Reads are served
// from the shadow; writes update the shadow and upload the touched range.
type bufferObject struct {
	native hal.Buffer
	shadow []byte
	flags  gapi.BufferFlags
}

type vertexBuffer struct{ bufferObject }

type indexBuffer struct{ bufferObject }

// bufferAlignment is the size and offset granularity of queue writes.
const bufferAlignment = 4

// maxBufferSize is the WebGPU default buffer size limit. Larger requests
// are rejected before the shadow is allocated.
const maxBufferSize = 256 << 20

func bufferSizeOK(size uint32) bool {
	return size != 0 && size <= maxBufferSize
}

func (g *GAPI) createBuffer(name string, size uint32, usage gputypes.BufferUsage) (hal.Buffer, error) {
	return g.device.CreateBuffer(&hal.BufferDescriptor{
		Label: g.label(name),
		Size:  uint64(alignUp(max(size, bufferAlignment), bufferAlignment)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
}

func alignUp(v, a uint32) uint32 {
	return (v + a - 1) &^ (a - 1)
}

// upload writes the aligned range covering [offset, offset+n) from the
// shadow to the native buffer.
func (g *GAPI) upload(b *bufferObject, offset, n uint32) {
	if g.lost || b.native == nil || n == 0 {
		return
	}
	g.beforeWrite(b)
	start := offset &^ (bufferAlignment - 1)
	end := alignUp(offset+n, bufferAlignment)
	data := make([]byte, end-start)
	copy(data, b.shadow[start:min(end, uint32(len(b.shadow)))])
	g.queue.WriteBuffer(b.native, uint64(start), data)
}

func rangeOK(size, offset uint32, n int) bool {
	return offset <= size && uint64(n) <= uint64(size-offset)
}

// --- Vertex buffers ---

// CreateVertexBuffer creates a vertex buffer of size bytes.
func (g *GAPI) CreateVertexBuffer(id gapi.ResourceID, size uint32, flags gapi.BufferFlags) gapi.ParseError {
	if !bufferSizeOK(size) || g.vertexBuffers.Get(id) != nil {
		return gapi.ParseInvalidArguments
	}
	vb := &vertexBuffer{bufferObject{shadow: make([]byte, size), flags: flags}}
	if !g.lost {
		buf, err := g.createBuffer("vertex_buffer", size, gputypes.BufferUsageVertex)
		if err != nil {
			gapi.Logger().Warn("native: create vertex buffer failed", "id", id, "err", err)
			return gapi.ParseInvalidArguments
		}
		vb.native = buf
	}
	if !g.vertexBuffers.Create(id, vb) {
		g.releaseVertexBuffer(vb)
		return gapi.ParseInvalidArguments
	}
	g.validateStreams = true
	return gapi.ParseNoError
}

// DestroyVertexBuffer destroys a vertex buffer.
func (g *GAPI) DestroyVertexBuffer(id gapi.ResourceID) gapi.ParseError {
	if !g.vertexBuffers.Destroy(id) {
		return gapi.ParseInvalidArguments
	}
	g.validateStreams = true
	return gapi.ParseNoError
}

// SetVertexBufferData writes data at offset.
func (g *GAPI) SetVertexBufferData(id gapi.ResourceID, offset uint32, data []byte) gapi.ParseError {
	vb := g.vertexBuffers.Get(id)
	if vb == nil || !rangeOK(uint32(len(vb.shadow)), offset, len(data)) {
		return gapi.ParseInvalidArguments
	}
	copy(vb.shadow[offset:], data)
	g.upload(&vb.bufferObject, offset, uint32(len(data)))
	return gapi.ParseNoError
}

// GetVertexBufferData reads len(data) bytes at offset.
func (g *GAPI) GetVertexBufferData(id gapi.ResourceID, offset uint32, data []byte) gapi.ParseError {
	vb := g.vertexBuffers.Get(id)
	if vb == nil || !rangeOK(uint32(len(vb.shadow)), offset, len(data)) {
		return gapi.ParseInvalidArguments
	}
	copy(data, vb.shadow[offset:])
	return gapi.ParseNoError
}

func (g *GAPI) releaseVertexBuffer(vb *vertexBuffer) {
	g.releaseBuffer(&vb.bufferObject)
}

// --- Index buffers ---

// CreateIndexBuffer creates an index buffer of size bytes. Indices are
// 16 bit unless flags has BufferFlagIndex32.
func (g *GAPI) CreateIndexBuffer(id gapi.ResourceID, size uint32, flags gapi.BufferFlags) gapi.ParseError {
	if !bufferSizeOK(size) || g.indexBuffers.Get(id) != nil {
		return gapi.ParseInvalidArguments
	}
	ib := &indexBuffer{bufferObject{shadow: make([]byte, size), flags: flags}}
	if !g.lost {
		buf, err := g.createBuffer("index_buffer", size, gputypes.BufferUsageIndex)
		if err != nil {
			gapi.Logger().Warn("native: create index buffer failed", "id", id, "err", err)
			return gapi.ParseInvalidArguments
		}
		ib.native = buf
	}
	if !g.indexBuffers.Create(id, ib) {
		g.releaseIndexBuffer(ib)
		return gapi.ParseInvalidArguments
	}
	return gapi.ParseNoError
}

// DestroyIndexBuffer destroys an index buffer.
func (g *GAPI) DestroyIndexBuffer(id gapi.ResourceID) gapi.ParseError {
	if !g.indexBuffers.Destroy(id) {
		return gapi.ParseInvalidArguments
	}
	return gapi.ParseNoError
}

// SetIndexBufferData writes data at offset.
func (g *GAPI) SetIndexBufferData(id gapi.ResourceID, offset uint32, data []byte) gapi.ParseError {
	ib := g.indexBuffers.Get(id)
	if ib == nil || !rangeOK(uint32(len(ib.shadow)), offset, len(data)) {
		return gapi.ParseInvalidArguments
	}
	copy(ib.shadow[offset:], data)
	g.upload(&ib.bufferObject, offset, uint32(len(data)))
	return gapi.ParseNoError
}

// GetIndexBufferData reads len(data) bytes at offset.
func (g *GAPI) GetIndexBufferData(id gapi.ResourceID, offset uint32, data []byte) gapi.ParseError {
	ib := g.indexBuffers.Get(id)
	if ib == nil || !rangeOK(uint32(len(ib.shadow)), offset, len(data)) {
		return gapi.ParseInvalidArguments
	}
	copy(data, ib.shadow[offset:])
	return gapi.ParseNoError
}

func (g *GAPI) releaseIndexBuffer(ib *indexBuffer) {
	g.releaseBuffer(&ib.bufferObject)
}

func (ib *indexBuffer) indexFormat() (gputypes.IndexFormat, uint32) {
	if ib.flags&gapi.BufferFlagIndex32 != 0 {
		return gputypes.IndexFormatUint32, 4
	}
	return gputypes.IndexFormatUint16, 2
}

// indexCount returns the number of whole indices the buffer holds.
func (ib *indexBuffer) indexCount() uint32 {
	_, size := ib.indexFormat()
	return uint32(len(ib.shadow)) / size
}

func (g *GAPI) releaseBuffer(b *bufferObject) {
	native := b.native
	b.native = nil
	if native == nil {
		return
	}
	g.retire(b, func() { g.device.DestroyBuffer(native) })
}

package renderer

import (
	"fmt"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/param"
)

// MatrixLoadOrder is the memory order an effect expects for matrices.
// Matrix params always hold row-major values.
type MatrixLoadOrder uint8

// Matrix load orders.
const (
	// ColumnMajor transposes matrices when they are bound. WGSL matrices
	// are column-major.
	ColumnMajor MatrixLoadOrder = iota
	// RowMajor binds matrices unchanged.
	RowMajor
)

// Effect is a compiled effect with its effect-global params.
type Effect struct {
	*param.Object
	r     *Renderer
	id    gapi.ResourceID
	order MatrixLoadOrder
	// orderChanges counts SetMatrixLoadOrder calls that changed the order.
	orderChanges uint64

	params  []effectParam
	streams []gapi.EffectStreamDesc
}

// effectParam is one shader parameter and the backend handle that sets it.
type effectParam struct {
	desc gapi.EffectParamDesc
	id   gapi.ResourceID
}

// NewEffect compiles an effect.
func (r *Renderer) NewEffect(name, vertexEntry, fragmentEntry, source string) (*Effect, error) {
	e := &Effect{Object: param.NewObject(name), r: r, id: r.allocID()}
	if err := r.g.CreateEffect(e.id, vertexEntry, fragmentEntry, source).Err(); err != nil {
		r.releaseID(e.id)
		return nil, fmt.Errorf("renderer: create effect %q: %w", name, err)
	}
	n, perr := r.g.GetParamCount(e.id)
	if err := perr.Err(); err != nil {
		e.destroyNative()
		return nil, err
	}
	for i := range n {
		p := effectParam{id: r.allocID()}
		if err := r.g.CreateParam(p.id, e.id, i).Err(); err != nil {
			r.releaseID(p.id)
			e.destroyNative()
			return nil, fmt.Errorf("renderer: effect %q param %d: %w", name, i, err)
		}
		e.params = append(e.params, p)
		desc, perr := r.g.GetParamDesc(p.id)
		if err := perr.Err(); err != nil {
			e.destroyNative()
			return nil, err
		}
		e.params[len(e.params)-1].desc = desc
	}
	sn, perr := r.g.GetStreamCount(e.id)
	if err := perr.Err(); err != nil {
		e.destroyNative()
		return nil, err
	}
	for i := range sn {
		s, perr := r.g.GetStreamDesc(e.id, i)
		if err := perr.Err(); err != nil {
			e.destroyNative()
			return nil, err
		}
		e.streams = append(e.streams, s)
	}
	return e, nil
}

// ID returns the backend effect ID.
func (e *Effect) ID() gapi.ResourceID { return e.id }

// MatrixLoadOrder returns the matrix order of the effect.
func (e *Effect) MatrixLoadOrder() MatrixLoadOrder { return e.order }

// SetMatrixLoadOrder sets the matrix order of the effect.
func (e *Effect) SetMatrixLoadOrder(o MatrixLoadOrder) {
	if e.order == o {
		return
	}
	e.order = o
	e.orderChanges++
}

// ChangeCount counts structural changes of the effect params and matrix
// order changes, both of which invalidate cached bindings.
func (e *Effect) ChangeCount() uint64 {
	return e.Object.ChangeCount() + e.orderChanges
}

// ParamDescs returns the shader parameters of the effect.
func (e *Effect) ParamDescs() []gapi.EffectParamDesc {
	out := make([]gapi.EffectParamDesc, len(e.params))
	for i, p := range e.params {
		out[i] = p.desc
	}
	return out
}

// Streams returns the vertex inputs the effect reads.
func (e *Effect) Streams() []gapi.EffectStreamDesc {
	return append([]gapi.EffectStreamDesc(nil), e.streams...)
}

// CreateUniformParams creates an effect-global param for every value
// shader parameter, with the shader semantic, so the effect supplies
// defaults for anything the other scopes leave out. Existing params are
// kept.
func (e *Effect) CreateUniformParams() error {
	for _, p := range e.params {
		if e.Param(p.desc.Name) != nil {
			continue
		}
		t := paramType(p.desc.Type)
		if t == param.TypeUnknown || t == param.TypeSampler || t == param.TypeTexture {
			continue
		}
		var (
			created *param.Param
			err     error
		)
		if p.desc.NumElements > 0 {
			created, err = e.CreateArray(p.desc.Name, t, int(p.desc.NumElements))
		} else {
			created, err = e.CreateParam(p.desc.Name, t)
		}
		if err != nil {
			return err
		}
		if p.desc.Semantic != "" {
			created.SetSemantic(p.desc.Semantic)
		}
	}
	return nil
}

func (e *Effect) destroyNative() {
	for _, p := range e.params {
		e.r.g.DestroyParam(p.id)
		e.r.releaseID(p.id)
	}
	e.params = nil
	e.r.g.DestroyEffect(e.id)
	e.r.releaseID(e.id)
}

// Destroy destroys the effect and detaches its params.
func (e *Effect) Destroy() {
	if e.Destroyed() {
		return
	}
	e.destroyNative()
	e.Object.Destroy()
}

// Material pairs an effect with material params.
type Material struct {
	*param.Object
	effect *Effect
}

// NewMaterial creates a material drawn with effect.
func (r *Renderer) NewMaterial(name string, effect *Effect) *Material {
	return &Material{Object: param.NewObject(name), effect: effect}
}

// Effect returns the effect of the material.
func (m *Material) Effect() *Effect { return m.effect }

// SetEffect replaces the effect of the material.
func (m *Material) SetEffect(e *Effect) { m.effect = e }

// Buffer is a vertex or index buffer.
type Buffer struct {
	r         *Renderer
	id        gapi.ResourceID
	index     bool
	size      uint32
	destroyed bool
}

// NewVertexBuffer creates a vertex buffer holding data.
func (r *Renderer) NewVertexBuffer(data []byte, flags gapi.BufferFlags) (*Buffer, error) {
	b := &Buffer{r: r, id: r.allocID(), size: uint32(len(data))}
	if err := r.g.CreateVertexBuffer(b.id, b.size, flags).Err(); err != nil {
		r.releaseID(b.id)
		return nil, fmt.Errorf("renderer: create vertex buffer: %w", err)
	}
	if err := b.SetData(0, data); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

// NewIndexBuffer creates an index buffer holding data. Indices are 16
// bits unless flags has BufferFlagIndex32.
func (r *Renderer) NewIndexBuffer(data []byte, flags gapi.BufferFlags) (*Buffer, error) {
	b := &Buffer{r: r, id: r.allocID(), index: true, size: uint32(len(data))}
	if err := r.g.CreateIndexBuffer(b.id, b.size, flags).Err(); err != nil {
		r.releaseID(b.id)
		return nil, fmt.Errorf("renderer: create index buffer: %w", err)
	}
	if err := b.SetData(0, data); err != nil {
		b.Destroy()
		return nil, err
	}
	return b, nil
}

// ID returns the backend buffer ID.
func (b *Buffer) ID() gapi.ResourceID { return b.id }

// Size returns the buffer size in bytes.
func (b *Buffer) Size() uint32 { return b.size }

// SetData writes data at offset.
func (b *Buffer) SetData(offset uint32, data []byte) error {
	if b.index {
		return b.r.g.SetIndexBufferData(b.id, offset, data).Err()
	}
	return b.r.g.SetVertexBufferData(b.id, offset, data).Err()
}

// Destroy destroys the buffer.
func (b *Buffer) Destroy() {
	if b.destroyed {
		return
	}
	b.destroyed = true
	if b.index {
		b.r.g.DestroyIndexBuffer(b.id)
	} else {
		b.r.g.DestroyVertexBuffer(b.id)
	}
	b.r.releaseID(b.id)
}

// Stream is one vertex input of a stream bank.
type Stream struct {
	Buffer        *Buffer
	Offset        uint32
	Stride        uint32
	Type          gapi.VertexType
	Semantic      gapi.Semantic
	SemanticIndex uint32
}

// StreamBank binds vertex buffers to vertex semantics. It owns a backend
// vertex struct.
type StreamBank struct {
	*param.Object
	r       *Renderer
	id      gapi.ResourceID
	streams []Stream
}

// NewStreamBank creates a stream bank with the given streams.
func (r *Renderer) NewStreamBank(name string, streams ...Stream) (*StreamBank, error) {
	sb := &StreamBank{Object: param.NewObject(name), r: r, id: r.allocID(), streams: make([]Stream, len(streams))}
	if err := r.g.CreateVertexStruct(sb.id, uint32(len(streams))).Err(); err != nil {
		r.releaseID(sb.id)
		return nil, fmt.Errorf("renderer: create stream bank %q: %w", name, err)
	}
	for i, s := range streams {
		if err := sb.SetStream(i, s); err != nil {
			sb.Destroy()
			return nil, err
		}
	}
	return sb, nil
}

// ID returns the backend vertex struct ID.
func (sb *StreamBank) ID() gapi.ResourceID { return sb.id }

// Streams returns the streams of the bank.
func (sb *StreamBank) Streams() []Stream {
	return append([]Stream(nil), sb.streams...)
}

// SetStream replaces stream i.
func (sb *StreamBank) SetStream(i int, s Stream) error {
	if i < 0 || i >= len(sb.streams) || s.Buffer == nil || s.Buffer.index {
		return fmt.Errorf("renderer: stream %d of %q: %w", i, sb.Name(), gapi.ErrInvalidArguments)
	}
	err := sb.r.g.SetVertexInput(sb.id, uint32(i), gapi.VertexInput{
		Buffer:        s.Buffer.id,
		Offset:        s.Offset,
		Stride:        s.Stride,
		Type:          s.Type,
		Semantic:      s.Semantic,
		SemanticIndex: s.SemanticIndex,
	}).Err()
	if err != nil {
		return err
	}
	sb.streams[i] = s
	return nil
}

// Destroy destroys the vertex struct and detaches the params.
func (sb *StreamBank) Destroy() {
	if sb.Destroyed() {
		return
	}
	sb.r.g.DestroyVertexStruct(sb.id)
	sb.r.releaseID(sb.id)
	sb.Object.Destroy()
}

// Primitive is drawable geometry: a stream bank, an optional index buffer
// and the range to draw.
type Primitive struct {
	*param.Object
	bank           *StreamBank
	indexBuffer    *Buffer
	primitiveType  gapi.PrimitiveType
	primitiveCount uint32
	vertexCount    uint32
	startIndex     uint32
}

// NewPrimitive creates a primitive drawing primitiveCount primitives from
// bank. vertexCount bounds the vertices an index buffer may reference.
func (r *Renderer) NewPrimitive(name string, bank *StreamBank, prim gapi.PrimitiveType, primitiveCount, vertexCount uint32) *Primitive {
	return &Primitive{
		Object:         param.NewObject(name),
		bank:           bank,
		primitiveType:  prim,
		primitiveCount: primitiveCount,
		vertexCount:    vertexCount,
	}
}

// StreamBank returns the stream bank of the primitive.
func (p *Primitive) StreamBank() *StreamBank { return p.bank }

// SetIndexBuffer makes the primitive indexed; nil draws it unindexed.
func (p *Primitive) SetIndexBuffer(b *Buffer) { p.indexBuffer = b }

// SetRange sets the first vertex or index and the primitive count.
func (p *Primitive) SetRange(start, primitiveCount uint32) {
	p.startIndex, p.primitiveCount = start, primitiveCount
}

// DrawElement draws a primitive with a material. Its own params override
// the primitive's and the material's.
type DrawElement struct {
	*param.Object
	primitive *Primitive
	material  *Material
	cache     ParamCache
}

// NewDrawElement creates a draw element.
func (r *Renderer) NewDrawElement(name string, prim *Primitive, mat *Material) *DrawElement {
	return &DrawElement{Object: param.NewObject(name), primitive: prim, material: mat}
}

// Primitive returns the primitive of the draw element.
func (de *DrawElement) Primitive() *Primitive { return de.primitive }

// Material returns the material of the draw element.
func (de *DrawElement) Material() *Material { return de.material }

// SetMaterial replaces the material.
func (de *DrawElement) SetMaterial(m *Material) { de.material = m }

// Sampler is a backend sampler.
type Sampler struct {
	r         *Renderer
	id        gapi.ResourceID
	destroyed bool
}

// NewSampler creates a sampler with the given states reading texture.
// texture may be nil.
func (r *Renderer) NewSampler(states gapi.SamplerStates, texture *Texture) (*Sampler, error) {
	s := &Sampler{r: r, id: r.allocID()}
	if err := r.g.CreateSampler(s.id).Err(); err != nil {
		r.releaseID(s.id)
		return nil, fmt.Errorf("renderer: create sampler: %w", err)
	}
	if err := r.g.SetSamplerStates(s.id, states).Err(); err != nil {
		s.Destroy()
		return nil, err
	}
	if texture != nil {
		if err := r.g.SetSamplerTexture(s.id, texture.id).Err(); err != nil {
			s.Destroy()
			return nil, err
		}
	}
	return s, nil
}

// ID returns the backend sampler ID.
func (s *Sampler) ID() gapi.ResourceID { return s.id }

// Destroy destroys the sampler.
func (s *Sampler) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.r.g.DestroySampler(s.id)
	s.r.releaseID(s.id)
}

// Texture is a backend texture.
type Texture struct {
	r         *Renderer
	id        gapi.ResourceID
	destroyed bool
}

// ID returns the backend texture ID.
func (t *Texture) ID() gapi.ResourceID { return t.id }

// Destroy destroys the texture.
func (t *Texture) Destroy() {
	if t.destroyed {
		return
	}
	t.destroyed = true
	t.r.g.DestroyTexture(t.id)
	t.r.releaseID(t.id)
}

package renderer

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/param"
)

// Versioned is an object with a monotonic change counter.
type Versioned interface {
	comparable
	ChangeCount() uint64
}

// ChangeTracker remembers the identity and change count of the last object
// it was updated with.
type ChangeTracker[T Versioned] struct {
	obj   T
	count uint64
	set   bool
}

// NeedsUpdate reports whether obj differs from the tracked object or has
// changed since.
func (c *ChangeTracker[T]) NeedsUpdate(obj T) bool {
	if !c.set || c.obj != obj {
		return true
	}
	var zero T
	return obj != zero && obj.ChangeCount() != c.count
}

// Update tracks obj.
func (c *ChangeTracker[T]) Update(obj T) {
	var zero T
	c.obj, c.set, c.count = obj, true, 0
	if obj != zero {
		c.count = obj.ChangeCount()
	}
}

// ParamCache holds the bindings of one draw element's effect parameters.
type ParamCache struct {
	effect      ChangeTracker[*Effect]
	drawElement ChangeTracker[*DrawElement]
	element     ChangeTracker[*Primitive]
	streamBank  ChangeTracker[*StreamBank]
	material    ChangeTracker[*Material]
	override    ChangeTracker[*param.Object]

	// generation is the backend generation of the effect the handlers
	// were built for.
	generation uint64
	handlers   []handler
	rebuilds   uint64
}

// Rebuilds returns the number of times the bindings were resolved.
func (c *ParamCache) Rebuilds() uint64 { return c.rebuilds }

// ValidateAndCacheParams rebuilds the bindings when any scope changed
// identity or structure, or the backend rebuilt the effect. It reports
// whether a rebuild happened.
func (c *ParamCache) ValidateAndCacheParams(r *Renderer, effect *Effect, drawElement *DrawElement, element *Primitive, streamBank *StreamBank, material *Material, override *param.Object) bool {
	var gen uint64
	if r.validator != nil {
		gen, _ = r.validator.EffectGeneration(effect.id)
	}
	if !c.effect.NeedsUpdate(effect) && !c.drawElement.NeedsUpdate(drawElement) &&
		!c.element.NeedsUpdate(element) && !c.streamBank.NeedsUpdate(streamBank) &&
		!c.material.NeedsUpdate(material) && !c.override.NeedsUpdate(override) &&
		gen == c.generation {
		return false
	}

	scopes := make([]*param.Object, 0, 6)
	for _, o := range []*param.Object{
		override,
		objectOf(drawElement),
		objectOf(element),
		objectOf(streamBank),
		objectOf(material),
		objectOf(effect),
	} {
		if o != nil {
			scopes = append(scopes, o)
		}
	}
	c.handlers = bindParams(r, effect, scopes, c.handlers[:0])

	c.effect.Update(effect)
	c.drawElement.Update(drawElement)
	c.element.Update(element)
	c.streamBank.Update(streamBank)
	c.material.Update(material)
	c.override.Update(override)
	c.generation = gen
	c.rebuilds++
	return true
}

// objectOf returns the param object embedded in a scope, nil for a nil
// scope.
func objectOf[T interface {
	comparable
	scope() *param.Object
}](s T) *param.Object {
	var zero T
	if s == zero {
		return nil
	}
	return s.scope()
}

func (e *Effect) scope() *param.Object       { return e.Object }
func (m *Material) scope() *param.Object     { return m.Object }
func (sb *StreamBank) scope() *param.Object  { return sb.Object }
func (p *Primitive) scope() *param.Object    { return p.Object }
func (de *DrawElement) scope() *param.Object { return de.Object }

// bindParams resolves every shader parameter of effect against scopes.
func bindParams(r *Renderer, effect *Effect, scopes []*param.Object, handlers []handler) []handler {
	for _, ep := range effect.params {
		desc := ep.desc
		src := resolve(desc, scopes)
		switch {
		case src != nil && desc.NumElements > 0:
			handlers = append(handlers, handler{
				kind: param.TypeArray, elem: paramType(desc.Type), name: desc.Name,
				id: ep.id, src: src, transpose: effect.order == ColumnMajor,
			})
		case src != nil:
			handlers = append(handlers, handler{
				kind: src.Type(), name: desc.Name,
				id: ep.id, src: src, transpose: effect.order == ColumnMajor,
			})
		case desc.Type == gapi.ParamSampler:
			handlers = append(handlers, handler{
				kind: param.TypeSampler, name: desc.Name, id: ep.id, fixed: r.errorSampler,
			})
			gapi.Logger().Debug("renderer: sampler unmatched, error sampler bound", "effect", effect.Name(), "param", desc.Name)
		default:
			gapi.Logger().Debug("renderer: param unmatched", "effect", effect.Name(), "param", desc.Name)
		}
	}
	return handlers
}

// resolve finds the param bound to desc: by exact name across all scopes,
// then by semantic across all scopes. Params of an incompatible type are
// skipped.
func resolve(desc gapi.EffectParamDesc, scopes []*param.Object) *param.Param {
	for _, s := range scopes {
		if p := s.Param(desc.Name); p != nil && compatible(p, desc) {
			return p
		}
	}
	if desc.Semantic == "" {
		return nil
	}
	for _, s := range scopes {
		if p := s.ParamBySemantic(desc.Semantic); p != nil && compatible(p, desc) {
			return p
		}
	}
	return nil
}

func compatible(p *param.Param, desc gapi.EffectParamDesc) bool {
	if desc.NumElements == 0 {
		return p.Type() != param.TypeArray && p.Type().EffectType() == desc.Type
	}
	if p.Type() != param.TypeArray || p.ElemType().EffectType() != desc.Type {
		return false
	}
	if uint32(p.Len()) != desc.NumElements {
		gapi.Logger().Warn("renderer: array size mismatch, binding skipped",
			"param", desc.Name, "shader", desc.NumElements, "param_len", p.Len())
		return false
	}
	return true
}

// paramType is the param type binding to an effect parameter type.
func paramType(t gapi.EffectParamType) param.Type {
	switch t {
	case gapi.ParamFloat1:
		return param.TypeFloat
	case gapi.ParamFloat2:
		return param.TypeFloat2
	case gapi.ParamFloat3:
		return param.TypeFloat3
	case gapi.ParamFloat4:
		return param.TypeFloat4
	case gapi.ParamMatrix4:
		return param.TypeMatrix4
	case gapi.ParamInt:
		return param.TypeInt
	case gapi.ParamBool:
		return param.TypeBool
	case gapi.ParamSampler:
		return param.TypeSampler
	case gapi.ParamTexture:
		return param.TypeTexture
	}
	return param.TypeUnknown
}

// handler pushes the value of one param into one effect parameter.
type handler struct {
	kind param.Type
	// elem is the element type of an array handler.
	elem      param.Type
	name      string
	id        gapi.ResourceID
	src       *param.Param
	transpose bool
	// fixed is the resource bound when src is nil.
	fixed gapi.ResourceID
	buf   []byte
}

// data encodes the current value in the layout SetParamData expects.
func (h *handler) data() []byte {
	h.buf = h.buf[:0]
	if h.src == nil {
		h.buf = binary.LittleEndian.AppendUint32(h.buf, uint32(h.fixed))
		return h.buf
	}
	if h.kind == param.TypeArray {
		for i := range h.src.Len() {
			h.buf = appendValue(h.buf, h.elem, h.src.Element(i), h.transpose)
		}
		return h.buf
	}
	h.buf = appendValue(h.buf, h.kind, h.src, h.transpose)
	return h.buf
}

func appendValue(buf []byte, kind param.Type, p *param.Param, transpose bool) []byte {
	switch kind {
	case param.TypeFloat, param.TypeFloat2, param.TypeFloat3, param.TypeFloat4:
		for _, f := range p.Floats() {
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	case param.TypeMatrix4:
		m := p.Floats()
		for i := range 16 {
			f := m[i]
			if transpose {
				f = m[(i%4)*4+i/4]
			}
			buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
		}
	case param.TypeInt:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(p.Int()))
	case param.TypeBool:
		var v uint32
		if p.Bool() {
			v = 1
		}
		buf = binary.LittleEndian.AppendUint32(buf, v)
	case param.TypeSampler, param.TypeTexture:
		buf = binary.LittleEndian.AppendUint32(buf, uint32(p.Resource()))
	}
	return buf
}

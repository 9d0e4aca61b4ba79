// Package param provides typed, named values that feed effect parameters.
//
// A Param belongs to exactly one Object. Destroying the Object, or
// removing the Param from it, clears the back-reference: the Param stays
// usable as a value but reports !Valid() and is never bound again.
//
// Every Param counts its value changes and every Object counts its
// structural changes (params added, removed or renamed), so caches can
// compare counters instead of contents.
package param

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/gapi"
)

// Errors returned by Param and Object.
var (
	// ErrTypeMismatch is returned when a value does not fit the param type.
	ErrTypeMismatch = errors.New("param: type mismatch")

	// ErrDuplicate is returned when an object already has a param of that name.
	ErrDuplicate = errors.New("param: duplicate name")

	// ErrInvalidType is returned for types a param cannot be created with.
	ErrInvalidType = errors.New("param: invalid type")

	// ErrDestroyed is returned when adding params to a destroyed object.
	ErrDestroyed = errors.New("param: object destroyed")
)

// Type is the type tag of a Param.
type Type uint8

// Param types.
const (
	TypeUnknown Type = iota
	TypeFloat
	TypeFloat2
	TypeFloat3
	TypeFloat4
	TypeMatrix4
	TypeInt
	TypeBool
	TypeSampler
	TypeTexture
	TypeArray
)

var typeNames = [...]string{
	TypeUnknown: "unknown",
	TypeFloat:   "float",
	TypeFloat2:  "float2",
	TypeFloat3:  "float3",
	TypeFloat4:  "float4",
	TypeMatrix4: "matrix4",
	TypeInt:     "int",
	TypeBool:    "bool",
	TypeSampler: "sampler",
	TypeTexture: "texture",
	TypeArray:   "array",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// Components returns the number of floats of a float or matrix type, zero
// for the other types.
func (t Type) Components() int {
	switch t {
	case TypeFloat:
		return 1
	case TypeFloat2:
		return 2
	case TypeFloat3:
		return 3
	case TypeFloat4:
		return 4
	case TypeMatrix4:
		return 16
	}
	return 0
}

// EffectType returns the effect parameter type a param of type t binds
// to. Arrays report ParamUnknown; their element type decides.
func (t Type) EffectType() gapi.EffectParamType {
	switch t {
	case TypeFloat:
		return gapi.ParamFloat1
	case TypeFloat2:
		return gapi.ParamFloat2
	case TypeFloat3:
		return gapi.ParamFloat3
	case TypeFloat4:
		return gapi.ParamFloat4
	case TypeMatrix4:
		return gapi.ParamMatrix4
	case TypeInt:
		return gapi.ParamInt
	case TypeBool:
		return gapi.ParamBool
	case TypeSampler:
		return gapi.ParamSampler
	case TypeTexture:
		return gapi.ParamTexture
	}
	return gapi.ParamUnknown
}

func (t Type) element() bool {
	return t > TypeUnknown && t < TypeArray
}

// Param is a typed named value.
type Param struct {
	name     string
	semantic string
	typ      Type
	elem     Type

	floats []float32
	i      int32
	b      bool
	id     gapi.ResourceID
	elems  []*Param

	changes uint64
	owner   *Object
	// parent is the array holding an element param.
	parent *Param
}

func newParam(name string, t Type) *Param {
	p := &Param{name: name, typ: t, id: gapi.InvalidResourceID}
	if n := t.Components(); n > 0 {
		p.floats = make([]float32, n)
	}
	return p
}

// Name returns the param name.
func (p *Param) Name() string { return p.name }

// Semantic returns the upper-case semantic, empty when unset.
func (p *Param) Semantic() string { return p.semantic }

// SetSemantic sets the semantic the param binds by when no name matches.
// Semantics compare case-insensitively.
func (p *Param) SetSemantic(s string) {
	p.semantic = strings.ToUpper(s)
	if o := p.Owner(); o != nil {
		o.changes++
	}
}

// Type returns the param type.
func (p *Param) Type() Type { return p.typ }

// ElemType returns the element type of an array, TypeUnknown otherwise.
func (p *Param) ElemType() Type { return p.elem }

// Len returns the number of elements of an array, zero otherwise.
func (p *Param) Len() int { return len(p.elems) }

// Element returns element i of an array.
func (p *Param) Element(i int) *Param { return p.elems[i] }

// ChangeCount returns the number of value changes. Writing an array
// element also counts as a change of the array.
func (p *Param) ChangeCount() uint64 { return p.changes }

// Owner returns the object holding the param, nil once detached.
func (p *Param) Owner() *Object {
	if p.parent != nil {
		return p.parent.Owner()
	}
	return p.owner
}

// Valid reports whether the param still belongs to a live object.
func (p *Param) Valid() bool { return p.Owner() != nil }

func (p *Param) changed() {
	p.changes++
	if p.parent != nil {
		p.parent.changed()
	}
}

// SetFloats sets a float or matrix param. Matrices are given in row-major
// order.
func (p *Param) SetFloats(v ...float32) error {
	if n := p.typ.Components(); n == 0 || len(v) != n {
		return fmt.Errorf("%w: %s param %q given %d floats", ErrTypeMismatch, p.typ, p.name, len(v))
	}
	copy(p.floats, v)
	p.changed()
	return nil
}

// Floats returns a copy of the value of a float or matrix param.
func (p *Param) Floats() []float32 {
	return append([]float32(nil), p.floats...)
}

// SetInt sets an int param.
func (p *Param) SetInt(v int32) error {
	if p.typ != TypeInt {
		return fmt.Errorf("%w: %s param %q given int", ErrTypeMismatch, p.typ, p.name)
	}
	p.i = v
	p.changed()
	return nil
}

// Int returns the value of an int param.
func (p *Param) Int() int32 { return p.i }

// SetBool sets a bool param.
func (p *Param) SetBool(v bool) error {
	if p.typ != TypeBool {
		return fmt.Errorf("%w: %s param %q given bool", ErrTypeMismatch, p.typ, p.name)
	}
	p.b = v
	p.changed()
	return nil
}

// Bool returns the value of a bool param.
func (p *Param) Bool() bool { return p.b }

// SetResource sets the sampler or texture a sampler or texture param
// refers to.
func (p *Param) SetResource(id gapi.ResourceID) error {
	if p.typ != TypeSampler && p.typ != TypeTexture {
		return fmt.Errorf("%w: %s param %q given resource", ErrTypeMismatch, p.typ, p.name)
	}
	p.id = id
	p.changed()
	return nil
}

// Resource returns the resource of a sampler or texture param,
// InvalidResourceID when unset.
func (p *Param) Resource() gapi.ResourceID { return p.id }

// String formats the param for logs.
func (p *Param) String() string {
	if p.typ == TypeArray {
		return fmt.Sprintf("%s %s[%d]", p.name, p.elem, len(p.elems))
	}
	return fmt.Sprintf("%s %s", p.name, p.typ)
}

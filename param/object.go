package param

import (
	"fmt"
	"strings"
)

// Object is an ordered collection of uniquely named params.
//
// Object is not safe for concurrent use.
type Object struct {
	name      string
	params    []*Param
	byName    map[string]*Param
	changes   uint64
	destroyed bool
}

// NewObject creates an empty object.
func NewObject(name string) *Object {
	return &Object{name: name, byName: make(map[string]*Param)}
}

// Name returns the object name.
func (o *Object) Name() string { return o.name }

// ChangeCount returns the number of structural changes: params created,
// removed or given a semantic, and destruction.
func (o *Object) ChangeCount() uint64 { return o.changes }

// Destroyed reports whether Destroy was called.
func (o *Object) Destroyed() bool { return o.destroyed }

// CreateParam adds a param of type t.
func (o *Object) CreateParam(name string, t Type) (*Param, error) {
	if !t.element() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, t)
	}
	p := newParam(name, t)
	if err := o.add(p); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateArray adds an array of n params of type elem.
func (o *Object) CreateArray(name string, elem Type, n int) (*Param, error) {
	if !elem.element() || n <= 0 {
		return nil, fmt.Errorf("%w: array of %d %s", ErrInvalidType, n, elem)
	}
	p := newParam(name, TypeArray)
	p.elem = elem
	p.elems = make([]*Param, n)
	for i := range p.elems {
		e := newParam(fmt.Sprintf("%s[%d]", name, i), elem)
		e.parent = p
		p.elems[i] = e
	}
	if err := o.add(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (o *Object) add(p *Param) error {
	if o.destroyed {
		return ErrDestroyed
	}
	if _, ok := o.byName[p.name]; ok {
		return fmt.Errorf("%w: %q in %q", ErrDuplicate, p.name, o.name)
	}
	if o.byName == nil {
		o.byName = make(map[string]*Param)
	}
	p.owner = o
	o.byName[p.name] = p
	o.params = append(o.params, p)
	o.changes++
	return nil
}

// Param returns the param called name, or nil.
func (o *Object) Param(name string) *Param {
	if o == nil {
		return nil
	}
	return o.byName[name]
}

// ParamBySemantic returns the first param with the given semantic, or nil.
func (o *Object) ParamBySemantic(semantic string) *Param {
	if o == nil || semantic == "" {
		return nil
	}
	semantic = strings.ToUpper(semantic)
	for _, p := range o.params {
		if p.semantic == semantic {
			return p
		}
	}
	return nil
}

// RemoveParam detaches the param called name. It reports whether the
// param existed.
func (o *Object) RemoveParam(name string) bool {
	p, ok := o.byName[name]
	if !ok {
		return false
	}
	delete(o.byName, name)
	for i, q := range o.params {
		if q == p {
			o.params = append(o.params[:i], o.params[i+1:]...)
			break
		}
	}
	p.owner = nil
	o.changes++
	return true
}

// Params returns the params in creation order.
func (o *Object) Params() []*Param {
	return append([]*Param(nil), o.params...)
}

// Destroy detaches every param. The object accepts no new params.
func (o *Object) Destroy() {
	if o.destroyed {
		return
	}
	for _, p := range o.params {
		p.owner = nil
	}
	o.params = nil
	clear(o.byName)
	o.destroyed = true
	o.changes++
}

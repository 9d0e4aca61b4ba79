// Package renderer draws parameterized geometry through a gapi.GAPI.
//
// Effects, materials, stream banks, primitives and draw elements are each
// a param.Object. When an element is drawn, every effect parameter is
// resolved against the scopes
//
//	override, draw element, primitive, stream bank, material, effect
//
// first by exact name, then by semantic. The resolved bindings are cached
// per draw element and only rebuilt when one of the scopes changes.
package renderer

import (
	"errors"
	"fmt"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/param"
)

// Errors returned by the renderer.
var (
	// ErrNoEffect is returned when a draw element has no usable effect.
	ErrNoEffect = errors.New("renderer: draw element has no effect")

	// ErrNoGeometry is returned when a draw element has no primitive or
	// stream bank.
	ErrNoGeometry = errors.New("renderer: draw element has no geometry")

	// ErrDestroyed is returned when a destroyed object is used.
	ErrDestroyed = errors.New("renderer: object destroyed")
)

// Renderer owns the resource IDs it allocates on one backend.
//
// Renderer is not safe for concurrent use.
type Renderer struct {
	g         gapi.GAPI
	validator gapi.EffectValidator
	nextID    gapi.ResourceID
	free      []gapi.ResourceID

	errorTexture gapi.ResourceID
	errorSampler gapi.ResourceID

	ready bool
}

// New creates a renderer on an initialized backend. It creates the error
// sampler bound to sampler parameters nothing else matches.
func New(g gapi.GAPI) (*Renderer, error) {
	r := &Renderer{g: g}
	r.validator, _ = g.(gapi.EffectValidator)
	if err := r.createErrorSampler(); err != nil {
		return nil, err
	}
	return r, nil
}

// GAPI returns the backend.
func (r *Renderer) GAPI() gapi.GAPI { return r.g }

// allocID returns an ID unused in every table of the backend. Released
// IDs are handed out again before new ones.
func (r *Renderer) allocID() gapi.ResourceID {
	if n := len(r.free); n > 0 {
		id := r.free[n-1]
		r.free = r.free[:n-1]
		return id
	}
	id := r.nextID
	r.nextID++
	return id
}

// releaseID makes id available to allocID. The backend object must be
// gone.
func (r *Renderer) releaseID(id gapi.ResourceID) {
	r.free = append(r.free, id)
}

// ErrorSampler returns the sampler bound to unmatched sampler parameters.
func (r *Renderer) ErrorSampler() gapi.ResourceID { return r.errorSampler }

const errorTextureSize = 8

// createErrorSampler creates a magenta and black checkerboard and a point
// sampler reading it.
func (r *Renderer) createErrorSampler() error {
	r.errorTexture = r.allocID()
	if err := r.g.CreateTexture2D(r.errorTexture, errorTextureSize, errorTextureSize, 1, gapi.FormatARGB8, 0).Err(); err != nil {
		return fmt.Errorf("renderer: create error texture: %w", err)
	}
	texels := make([]byte, errorTextureSize*errorTextureSize*4)
	for y := range errorTextureSize {
		for x := range errorTextureSize {
			o := (y*errorTextureSize + x) * 4
			// B, G, R, A
			texels[o+3] = 0xff
			if (x/2+y/2)%2 == 0 {
				texels[o], texels[o+2] = 0xff, 0xff
			}
		}
	}
	vol := gapi.Volume{Width: errorTextureSize, Height: errorTextureSize, Depth: 1}
	if err := r.g.SetTextureData(r.errorTexture, vol, 0, gapi.FacePositiveX, errorTextureSize*4, 0, texels).Err(); err != nil {
		return fmt.Errorf("renderer: fill error texture: %w", err)
	}

	r.errorSampler = r.allocID()
	if err := r.g.CreateSampler(r.errorSampler).Err(); err != nil {
		return fmt.Errorf("renderer: create error sampler: %w", err)
	}
	states := gapi.DefaultSamplerStates()
	states.MagFilter, states.MinFilter, states.MipFilter = gapi.FilterPoint, gapi.FilterPoint, gapi.FilterNone
	if err := r.g.SetSamplerStates(r.errorSampler, states).Err(); err != nil {
		return err
	}
	return r.g.SetSamplerTexture(r.errorSampler, r.errorTexture).Err()
}

// Close destroys the error sampler. Objects created by the renderer must
// be destroyed by their owners first.
func (r *Renderer) Close() {
	r.g.DestroySampler(r.errorSampler)
	r.g.DestroyTexture(r.errorTexture)
	r.releaseID(r.errorSampler)
	r.releaseID(r.errorTexture)
}

// BeginFrame polls the device and starts a frame. It reports whether the
// device can render; draws are skipped until it can.
func (r *Renderer) BeginFrame() bool {
	r.ready = r.g.CheckDevice() == gapi.DeviceOK
	if r.ready {
		r.g.BeginFrame()
	}
	return r.ready
}

// EndFrame submits the frame.
func (r *Renderer) EndFrame() {
	if r.ready {
		r.g.EndFrame()
	}
	r.ready = false
}

// Render draws one draw element. Params of override take precedence over
// every other scope; override may be nil. A draw is skipped, without
// error, while the device is not ready or the effect is unusable.
func (r *Renderer) Render(de *DrawElement, override *param.Object) error {
	if !r.ready {
		return nil
	}
	if de.Destroyed() {
		return ErrDestroyed
	}
	mat := de.material
	if mat == nil || mat.effect == nil || mat.effect.Destroyed() {
		return ErrNoEffect
	}
	prim := de.primitive
	if prim == nil || prim.Destroyed() || prim.bank == nil || prim.bank.Destroyed() {
		return ErrNoGeometry
	}
	eff := mat.effect
	if r.validator != nil {
		if _, ok := r.validator.EffectGeneration(eff.id); !ok {
			gapi.Logger().Debug("renderer: effect not usable, draw skipped", "effect", eff.Name())
			return nil
		}
	}

	de.cache.ValidateAndCacheParams(r, eff, de, prim, prim.bank, mat, override)
	for i := range de.cache.handlers {
		h := &de.cache.handlers[i]
		if err := r.g.SetParamData(h.id, h.data()).Err(); err != nil {
			gapi.Logger().Warn("renderer: set param failed", "effect", eff.Name(), "param", h.name, "err", err)
		}
	}

	if err := r.g.SetEffect(eff.id).Err(); err != nil {
		return err
	}
	if err := r.g.SetVertexStruct(prim.bank.id).Err(); err != nil {
		return err
	}
	if prim.indexBuffer != nil {
		maxIndex := prim.vertexCount - 1
		if prim.vertexCount == 0 {
			maxIndex = 0
		}
		return r.g.DrawIndexed(prim.primitiveType, prim.indexBuffer.id, prim.startIndex, prim.primitiveCount, 0, maxIndex).Err()
	}
	return r.g.Draw(prim.primitiveType, prim.startIndex, prim.primitiveCount).Err()
}

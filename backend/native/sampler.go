package native

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gapi"
)

// sampler holds sampler states and the texture it samples. Native
// samplers are immutable, so a state change marks the sampler dirty and
// the native object is rebuilt when an effect binds it.
type sampler struct {
	states  gapi.SamplerStates
	border  gapi.RGBA
	texture gapi.ResourceID

	native hal.Sampler
	dirty  bool
}

// CreateSampler creates a sampler with default states and no texture.
func (g *GAPI) CreateSampler(id gapi.ResourceID) gapi.ParseError {
	s := &sampler{
		states:  gapi.DefaultSamplerStates(),
		texture: gapi.InvalidResourceID,
		dirty:   true,
	}
	if !g.samplers.Create(id, s) {
		return gapi.ParseInvalidArguments
	}
	g.validateEffect = true
	return gapi.ParseNoError
}

// DestroySampler destroys a sampler.
func (g *GAPI) DestroySampler(id gapi.ResourceID) gapi.ParseError {
	if !g.samplers.Destroy(id) {
		return gapi.ParseInvalidArguments
	}
	g.validateEffect = true
	return gapi.ParseNoError
}

// SetSamplerStates replaces the states of a sampler.
func (g *GAPI) SetSamplerStates(id gapi.ResourceID, states gapi.SamplerStates) gapi.ParseError {
	s := g.samplers.Get(id)
	if s == nil {
		return gapi.ParseInvalidArguments
	}
	if states.AddressU > gapi.AddressClampToBorder || states.AddressV > gapi.AddressClampToBorder ||
		states.AddressW > gapi.AddressClampToBorder || states.MagFilter > gapi.FilterLinear ||
		states.MinFilter > gapi.FilterLinear || states.MipFilter > gapi.FilterLinear {
		panic("native: invalid sampler states")
	}
	s.states = states
	s.dirty = true
	g.validateEffect = true
	return gapi.ParseNoError
}

// SetSamplerBorderColor sets the border color used by border addressing.
func (g *GAPI) SetSamplerBorderColor(id gapi.ResourceID, color gapi.RGBA) gapi.ParseError {
	s := g.samplers.Get(id)
	if s == nil {
		return gapi.ParseInvalidArguments
	}
	s.border = color
	s.dirty = true
	g.validateEffect = true
	return gapi.ParseNoError
}

// SetSamplerTexture sets the texture a sampler samples. The texture does
// not need to exist yet; it is resolved when an effect binds the sampler.
func (g *GAPI) SetSamplerTexture(id, textureID gapi.ResourceID) gapi.ParseError {
	s := g.samplers.Get(id)
	if s == nil {
		return gapi.ParseInvalidArguments
	}
	s.texture = textureID
	g.validateEffect = true
	return gapi.ParseNoError
}

// bindSampler returns the native sampler of s, rebuilding it when its
// states changed.
func (g *GAPI) bindSampler(s *sampler) (hal.Sampler, error) {
	if !s.dirty && s.native != nil {
		return s.native, nil
	}
	g.releaseNativeSampler(s)
	st := s.states
	desc := &hal.SamplerDescriptor{
		Label:        g.label("sampler"),
		AddressModeU: addressMode(st.AddressU),
		AddressModeV: addressMode(st.AddressV),
		AddressModeW: addressMode(st.AddressW),
		MagFilter:    filterMode(st.MagFilter),
		MinFilter:    filterMode(st.MinFilter),
		MipmapFilter: filterMode(st.MipFilter),
	}
	native, err := g.device.CreateSampler(desc)
	if err != nil {
		return nil, err
	}
	s.native = native
	s.dirty = false
	return native, nil
}

func (g *GAPI) releaseSampler(s *sampler) {
	g.releaseNativeSampler(s)
}

func (g *GAPI) releaseNativeSampler(s *sampler) {
	native := s.native
	s.native = nil
	s.dirty = true
	if native == nil {
		return
	}
	g.retire(s, func() { g.device.DestroySampler(native) })
}

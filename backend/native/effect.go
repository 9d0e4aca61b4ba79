package native

import (
	"encoding/binary"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/internal/effect"
)

// effectObject is a compiled effect with its parameter values. The values
// survive device loss; the native objects do not.
type effectObject struct {
	program *effect.Program
	// values is the CPU copy of the uniform block.
	values []byte
	// bound holds the sampler or texture bound to each sampler and
	// texture parameter, indexed like program.Params.
	bound []gapi.ResourceID
	// refs holds the samplers and textures the bind group references.
	refs        []any
	valuesDirty bool
	generation  uint64
	// params lists the effect params that refer to this effect.
	params map[*effectParam]struct{}

	module    hal.ShaderModule
	bgl       hal.BindGroupLayout
	layout    hal.PipelineLayout
	uniforms  hal.Buffer
	bindGroup hal.BindGroup
}

// effectParam is a handle to one parameter of an effect. It is detached
// when its effect is destroyed.
type effectParam struct {
	effect *effectObject
	index  int
}

func (p *effectParam) param() *effect.Param {
	return &p.effect.program.Params[p.index]
}

// CreateEffect compiles an effect from WGSL source with one vertex and one
// fragment entry point.
func (g *GAPI) CreateEffect(id gapi.ResourceID, vertexEntry, fragmentEntry, source string) gapi.ParseError {
	if g.effects.Get(id) != nil {
		return gapi.ParseInvalidArguments
	}
	prog, err := g.programs.Compile(source, vertexEntry, fragmentEntry, g.opts.spirv)
	if err != nil {
		gapi.Logger().Warn("native: effect compilation failed", "id", id, "err", err)
		return gapi.ParseInvalidArguments
	}
	e := &effectObject{
		program: prog,
		values:  make([]byte, prog.UniformSize),
		bound:   make([]gapi.ResourceID, len(prog.Params)),
		params:  make(map[*effectParam]struct{}),
	}
	for i := range e.bound {
		e.bound[i] = gapi.InvalidResourceID
	}
	if !g.lost {
		if err := g.createEffectNatives(e); err != nil {
			gapi.Logger().Warn("native: create effect failed", "id", id, "err", err)
			return gapi.ParseInvalidArguments
		}
	}
	if !g.effects.Create(id, e) {
		g.releaseEffect(e)
		return gapi.ParseInvalidArguments
	}
	g.generation++
	e.generation = g.generation
	return gapi.ParseNoError
}

// DestroyEffect destroys an effect. Its params stay in the table but no
// longer accept data.
func (g *GAPI) DestroyEffect(id gapi.ResourceID) gapi.ParseError {
	if !g.effects.Destroy(id) {
		return gapi.ParseInvalidArguments
	}
	g.purgePipelines(func(k pipelineKey) bool { return k.effect == id })
	if id == g.currentEffect {
		g.validateEffect = true
	}
	return gapi.ParseNoError
}

// SetEffect makes an effect current.
func (g *GAPI) SetEffect(id gapi.ResourceID) gapi.ParseError {
	g.currentEffect = id
	g.validateEffect = true
	return gapi.ParseNoError
}

// GetParamCount returns the number of parameters of an effect.
func (g *GAPI) GetParamCount(id gapi.ResourceID) (uint32, gapi.ParseError) {
	e := g.effects.Get(id)
	if e == nil {
		return 0, gapi.ParseInvalidArguments
	}
	return uint32(len(e.program.Params)), gapi.ParseNoError
}

// CreateParam creates a handle to parameter index of an effect.
func (g *GAPI) CreateParam(paramID, effectID gapi.ResourceID, index uint32) gapi.ParseError {
	e := g.effects.Get(effectID)
	if e == nil || index >= uint32(len(e.program.Params)) {
		return gapi.ParseInvalidArguments
	}
	return g.createParam(paramID, e, int(index))
}

// CreateParamByName creates a handle to the parameter called name.
func (g *GAPI) CreateParamByName(paramID, effectID gapi.ResourceID, name string) gapi.ParseError {
	e := g.effects.Get(effectID)
	if e == nil {
		return gapi.ParseInvalidArguments
	}
	for i := range e.program.Params {
		if e.program.Params[i].Name == name {
			return g.createParam(paramID, e, i)
		}
	}
	return gapi.ParseInvalidArguments
}

func (g *GAPI) createParam(id gapi.ResourceID, e *effectObject, index int) gapi.ParseError {
	p := &effectParam{effect: e, index: index}
	if !g.params.Create(id, p) {
		return gapi.ParseInvalidArguments
	}
	e.params[p] = struct{}{}
	return gapi.ParseNoError
}

// DestroyParam destroys a parameter handle.
func (g *GAPI) DestroyParam(id gapi.ResourceID) gapi.ParseError {
	if !g.params.Destroy(id) {
		return gapi.ParseInvalidArguments
	}
	return gapi.ParseNoError
}

func (g *GAPI) releaseParam(p *effectParam) {
	if p.effect != nil {
		delete(p.effect.params, p)
		p.effect = nil
	}
}

// SetParamData sets the value of a parameter. Value parameters take
// tightly packed elements; sampler and texture parameters take the
// little-endian resource ID to bind.
func (g *GAPI) SetParamData(id gapi.ResourceID, data []byte) gapi.ParseError {
	p := g.params.Get(id)
	if p == nil || p.effect == nil {
		return gapi.ParseInvalidArguments
	}
	e := p.effect
	desc := p.param()
	if !desc.IsValue() {
		if len(data) != 4 {
			return gapi.ParseInvalidArguments
		}
		e.bound[p.index] = gapi.ResourceID(binary.LittleEndian.Uint32(data))
		if e == g.effects.Get(g.currentEffect) {
			g.validateEffect = true
		}
		return gapi.ParseNoError
	}
	if !desc.Pack(e.values[desc.Offset:], data) {
		return gapi.ParseInvalidArguments
	}
	e.valuesDirty = true
	return gapi.ParseNoError
}

// GetParamDesc describes a parameter.
func (g *GAPI) GetParamDesc(id gapi.ResourceID) (gapi.EffectParamDesc, gapi.ParseError) {
	p := g.params.Get(id)
	if p == nil || p.effect == nil {
		return gapi.EffectParamDesc{}, gapi.ParseInvalidArguments
	}
	return p.param().Desc(), gapi.ParseNoError
}

// GetStreamCount returns the number of vertex inputs of an effect.
func (g *GAPI) GetStreamCount(id gapi.ResourceID) (uint32, gapi.ParseError) {
	e := g.effects.Get(id)
	if e == nil {
		return 0, gapi.ParseInvalidArguments
	}
	return uint32(len(e.program.Streams)), gapi.ParseNoError
}

// GetStreamDesc describes vertex input index of an effect.
func (g *GAPI) GetStreamDesc(id gapi.ResourceID, index uint32) (gapi.EffectStreamDesc, gapi.ParseError) {
	e := g.effects.Get(id)
	if e == nil || index >= uint32(len(e.program.Streams)) {
		return gapi.EffectStreamDesc{}, gapi.ParseInvalidArguments
	}
	s := e.program.Streams[index]
	return gapi.EffectStreamDesc{Semantic: s.Semantic, SemanticIndex: s.SemanticIndex}, gapi.ParseNoError
}

// EffectGeneration reports the generation of the native objects of an
// effect and whether they are usable.
func (g *GAPI) EffectGeneration(id gapi.ResourceID) (uint64, bool) {
	e := g.effects.Get(id)
	if e == nil {
		return 0, false
	}
	return e.generation, !g.lost && e.module != nil
}

// --- Native objects ---

func (g *GAPI) createEffectNatives(e *effectObject) error {
	prog := e.program
	module, err := g.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  g.label("effect"),
		Source: hal.ShaderSource{SPIRV: prog.SPIRV},
	})
	if err != nil {
		return fmt.Errorf("create shader module: %w", err)
	}
	e.module = module

	entries := make([]gputypes.BindGroupLayoutEntry, 0, len(prog.Params))
	for i := range prog.Params {
		p := &prog.Params[i]
		entry := gputypes.BindGroupLayoutEntry{
			Binding:    p.Binding,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
		}
		switch p.Type {
		case gapi.ParamSampler:
			entry.Sampler = &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering}
		case gapi.ParamTexture:
			entry.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: viewDimension(p.TextureDim),
			}
		default:
			entry.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		}
		entries = append(entries, entry)
	}
	bgl, err := g.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   g.label("effect_layout"),
		Entries: entries,
	})
	if err != nil {
		g.releaseEffectNatives(e)
		return fmt.Errorf("create bind group layout: %w", err)
	}
	e.bgl = bgl

	layout, err := g.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            g.label("effect_pipeline_layout"),
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		g.releaseEffectNatives(e)
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	e.layout = layout

	if prog.UniformSize > 0 {
		buf, err := g.device.CreateBuffer(&hal.BufferDescriptor{
			Label: g.label("effect_uniforms"),
			Size:  uint64(prog.UniformSize),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			g.releaseEffectNatives(e)
			return fmt.Errorf("create uniform buffer: %w", err)
		}
		e.uniforms = buf
		e.valuesDirty = true
	}
	return nil
}

func viewDimension(d effect.TextureDim) gputypes.TextureViewDimension {
	switch d {
	case effect.TextureDim3D:
		return gputypes.TextureViewDimension3D
	case effect.TextureDimCube:
		return gputypes.TextureViewDimensionCube
	}
	return gputypes.TextureViewDimension2D
}

// releaseEffectNatives releases the native objects of e in reverse
// creation order. It is safe on partially created effects.
func (g *GAPI) releaseEffectNatives(e *effectObject) {
	module, bgl, layout, uniforms, bindGroup := e.module, e.bgl, e.layout, e.uniforms, e.bindGroup
	e.module, e.bgl, e.layout, e.uniforms, e.bindGroup = nil, nil, nil, nil, nil
	if module == nil && bgl == nil && layout == nil && uniforms == nil && bindGroup == nil {
		return
	}
	g.retire(e, func() {
		if bindGroup != nil {
			g.device.DestroyBindGroup(bindGroup)
		}
		if uniforms != nil {
			g.device.DestroyBuffer(uniforms)
		}
		if layout != nil {
			g.device.DestroyPipelineLayout(layout)
		}
		if bgl != nil {
			g.device.DestroyBindGroupLayout(bgl)
		}
		if module != nil {
			g.device.DestroyShaderModule(module)
		}
	})
}

func (g *GAPI) releaseEffect(e *effectObject) {
	for p := range e.params {
		p.effect = nil
	}
	clear(e.params)
	g.releaseEffectNatives(e)
}

// beginEffect rebuilds the bind group of e from the current samplers and
// textures. Dirty samplers are recreated with their current states.
func (g *GAPI) beginEffect(e *effectObject) error {
	prog := e.program
	entries := make([]gputypes.BindGroupEntry, 0, len(prog.Params))
	var refs []any
	for i := range prog.Params {
		p := &prog.Params[i]
		entry := gputypes.BindGroupEntry{Binding: p.Binding}
		switch p.Type {
		case gapi.ParamSampler:
			native := g.fallback.sampler
			if s := g.samplers.Get(e.bound[i]); s != nil {
				ns, err := g.bindSampler(s)
				if err != nil {
					return fmt.Errorf("create sampler: %w", err)
				}
				native = ns
				refs = append(refs, s)
			}
			entry.Resource = gputypes.SamplerBinding{Sampler: native.NativeHandle()}
		case gapi.ParamTexture:
			view := g.fallback.view(p.TextureDim)
			if t := g.textureFor(e, i); t != nil && t.view != nil && t.dim == p.TextureDim {
				view = t.view
				refs = append(refs, t)
			}
			entry.Resource = gputypes.TextureViewBinding{TextureView: view.NativeHandle()}
		default:
			entry.Resource = gputypes.BufferBinding{
				Buffer: e.uniforms.NativeHandle(),
				Offset: uint64(p.Offset),
				Size:   uint64(p.Size),
			}
		}
		entries = append(entries, entry)
	}

	bindGroup, err := g.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   g.label("effect_bind_group"),
		Layout:  e.bgl,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	if old := e.bindGroup; old != nil {
		g.retire(e, func() { g.device.DestroyBindGroup(old) })
	}
	e.bindGroup = bindGroup
	e.refs = refs
	return nil
}

// textureFor resolves the texture of texture parameter index: an explicit
// binding wins, otherwise the texture of a sampler that samples it.
func (g *GAPI) textureFor(e *effectObject, index int) *texture {
	if t := g.textures.Get(e.bound[index]); t != nil {
		return t
	}
	name := e.program.Params[index].Name
	for _, unit := range e.program.Units {
		if unit.Texture != name {
			continue
		}
		for i := range e.program.Params {
			if e.program.Params[i].Name != unit.Sampler {
				continue
			}
			if s := g.samplers.Get(e.bound[i]); s != nil {
				if t := g.textures.Get(s.texture); t != nil {
					return t
				}
			}
		}
	}
	return nil
}

// flushUniforms uploads the uniform block when parameter values changed.
func (g *GAPI) flushUniforms(e *effectObject) {
	if !e.valuesDirty || e.uniforms == nil {
		return
	}
	g.beforeWrite(e)
	g.queue.WriteBuffer(e.uniforms, 0, e.values)
	e.valuesDirty = false
}

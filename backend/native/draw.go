package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gapi"
)

// drawStream binds one effect stream to the vertex buffer feeding it.
type drawStream struct {
	buffer *vertexBuffer
	offset uint32
}

// Draw draws count primitives starting at vertex first.
func (g *GAPI) Draw(prim gapi.PrimitiveType, first, count uint32) gapi.ParseError {
	vertices, ok := prim.VertexCount(count)
	if !ok {
		return gapi.ParseInvalidArguments
	}
	topo, ok := topology(prim)
	if !ok {
		return gapi.ParseInvalidArguments
	}
	if g.lost || !g.initialized {
		g.stats.SkippedDraws++
		return gapi.ParseNoError
	}
	if !g.validate() {
		return gapi.ParseInvalidArguments
	}
	if first > g.maxVertices || vertices > g.maxVertices-first {
		gapi.Logger().Debug("native: draw out of range", "first", first, "vertices", vertices, "max", g.maxVertices)
		return gapi.ParseInvalidArguments
	}
	rp, err := g.bindDraw(topo, gputypes.IndexFormatUint16, nil)
	if err != nil {
		gapi.Logger().Warn("native: draw failed", "err", err)
		return gapi.ParseInvalidArguments
	}
	rp.Draw(vertices, 1, first, 0)
	g.stats.DrawCalls++
	return gapi.ParseNoError
}

// DrawIndexed draws count primitives with indices read from indexBuffer
// starting at index first. Every index must lie in [minIndex, maxIndex]
// and maxIndex must address a vertex every stream can supply.
func (g *GAPI) DrawIndexed(prim gapi.PrimitiveType, indexBuffer gapi.ResourceID, first, count, minIndex, maxIndex uint32) gapi.ParseError {
	indices, ok := prim.VertexCount(count)
	if !ok {
		return gapi.ParseInvalidArguments
	}
	topo, ok := topology(prim)
	if !ok {
		return gapi.ParseInvalidArguments
	}
	ib := g.indexBuffers.Get(indexBuffer)
	if ib == nil || minIndex > maxIndex {
		return gapi.ParseInvalidArguments
	}
	total := ib.indexCount()
	if first > total || indices > total-first {
		return gapi.ParseInvalidArguments
	}
	if g.lost || !g.initialized {
		g.stats.SkippedDraws++
		return gapi.ParseNoError
	}
	if !g.validate() {
		return gapi.ParseInvalidArguments
	}
	if maxIndex >= g.maxVertices {
		gapi.Logger().Debug("native: indexed draw out of range", "maxIndex", maxIndex, "max", g.maxVertices)
		return gapi.ParseInvalidArguments
	}
	format, _ := ib.indexFormat()
	rp, err := g.bindDraw(topo, format, ib)
	if err != nil {
		gapi.Logger().Warn("native: indexed draw failed", "err", err)
		return gapi.ParseInvalidArguments
	}
	rp.DrawIndexed(indices, 1, first, 0, 0)
	g.stats.DrawCalls++
	return gapi.ParseNoError
}

// validate runs the deferred stream and effect validation and reports
// whether both are usable.
func (g *GAPI) validate() bool {
	if g.validateStreams {
		g.validateStreamsNow()
	}
	if g.validateEffect {
		g.validateEffectNow()
	}
	return g.streamsValid && g.effectValid
}

func (g *GAPI) validateEffectNow() {
	g.validateEffect = false
	g.effectValid = false
	e := g.effects.Get(g.currentEffect)
	if e == nil || e.module == nil {
		return
	}
	if err := g.beginEffect(e); err != nil {
		gapi.Logger().Warn("native: effect validation failed", "effect", g.currentEffect, "err", err)
		return
	}
	g.effectValid = true
}

// vertexLayouts matches the streams of e to the inputs of the current
// vertex struct by semantic. Each input gets its own buffer slot.
func (g *GAPI) vertexLayouts(e *effectObject) ([]gputypes.VertexBufferLayout, []drawStream, error) {
	vs := g.vertexStructs.Get(g.currentVertexStruct)
	streams := e.program.Streams
	layouts := make([]gputypes.VertexBufferLayout, 0, len(streams))
	bound := make([]drawStream, 0, len(streams))
	for _, s := range streams {
		var in *gapi.VertexInput
		for i := range vs.inputs {
			if vs.inputs[i].Semantic == s.Semantic && vs.inputs[i].SemanticIndex == s.SemanticIndex {
				in = &vs.inputs[i]
				break
			}
		}
		if in == nil {
			return nil, nil, fmt.Errorf("no vertex input for %s%d", s.Semantic, s.SemanticIndex)
		}
		layouts = append(layouts, gputypes.VertexBufferLayout{
			ArrayStride: uint64(in.Stride),
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{{
				Format:         vertexFormat(in.Type),
				Offset:         0,
				ShaderLocation: s.Location,
			}},
		})
		bound = append(bound, drawStream{buffer: g.vertexBuffers.Get(in.Buffer), offset: in.Offset})
	}
	return layouts, bound, nil
}

// bindDraw sets the pipeline, bind group and vertex buffers of the next
// draw on the open render pass.
func (g *GAPI) bindDraw(topo gputypes.PrimitiveTopology, indexFormat gputypes.IndexFormat, ib *indexBuffer) (hal.RenderPassEncoder, error) {
	e := g.effects.Get(g.currentEffect)
	layouts, streams, err := g.vertexLayouts(e)
	if err != nil {
		return nil, err
	}

	key := pipelineKey{
		effect:       g.currentEffect,
		generation:   e.generation,
		vertexStruct: g.currentVertexStruct,
		layout:       hashLayouts(layouts),
		state:        g.state.pipeline,
		topology:     topo,
		indexFormat:  indexFormat,
	}
	// The stencil reference is dynamic state.
	key.state.stencil.Ref = 0
	pipeline, err := g.pipelines.getOrCreate(key, func() (hal.RenderPipeline, error) {
		return g.createPipeline(e, layouts, topo)
	})
	if err != nil {
		return nil, err
	}

	// Uniform uploads may split the pass, so they go before it is opened.
	g.flushUniforms(e)
	rp, err := g.ensurePass()
	if err != nil {
		return nil, err
	}

	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, e.bindGroup, nil)
	g.markUsed(e)
	for _, ref := range e.refs {
		g.markUsed(ref)
	}
	for slot, s := range streams {
		rp.SetVertexBuffer(uint32(slot), s.buffer.native, uint64(s.offset))
		g.markUsed(&s.buffer.bufferObject)
	}
	if ib != nil {
		rp.SetIndexBuffer(ib.native, indexFormat, 0)
		g.markUsed(&ib.bufferObject)
	}
	return rp, nil
}

func (g *GAPI) createPipeline(e *effectObject, layouts []gputypes.VertexBufferLayout, topo gputypes.PrimitiveTopology) (hal.RenderPipeline, error) {
	st := g.state.pipeline
	depthCompare := gputypes.CompareFunctionAlways
	if st.depthEnable {
		depthCompare = compareFunc(st.depthFunc)
	}
	stencil := st.stencil
	front, back := stencilFace(stencil.CW), stencilFace(stencil.CW)
	if stencil.SeparateCCW {
		// Counter-clockwise triangles face the viewer.
		front = stencilFace(stencil.CCW)
	}
	readMask, writeMask := stencil.ReadMask, stencil.WriteMask
	if !stencil.Enable {
		front = stencilFace(gapi.StencilFace{Func: gapi.CompareAlways})
		back = front
		writeMask = 0
	}

	p, err := g.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  g.label("pipeline"),
		Layout: e.layout,
		Vertex: hal.VertexState{
			Module:     e.module,
			EntryPoint: e.program.VertexEntry,
			Buffers:    layouts,
		},
		Fragment: &hal.FragmentState{
			Module:     e.module,
			EntryPoint: e.program.FragmentEntry,
			Targets: []gputypes.ColorTargetState{{
				Format:    g.opts.colorFormat,
				Blend:     blendState(st.blend),
				WriteMask: st.colorMask,
			}},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            gputypes.TextureFormatDepth24PlusStencil8,
			DepthWriteEnabled: st.depthEnable && st.depthWrite,
			DepthCompare:      depthCompare,
			StencilFront:      front,
			StencilBack:       back,
			StencilReadMask:   readMask,
			StencilWriteMask:  writeMask,
		},
		Multisample: gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
		Primitive: gputypes.PrimitiveState{
			Topology: topo,
			CullMode: cullMode(st.cull),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create render pipeline: %w", err)
	}
	return p, nil
}

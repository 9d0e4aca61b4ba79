package native

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/backend"
	"github.com/gogpu/gapi/internal/effect"
	"github.com/gogpu/gapi/internal/resource"
)

func init() {
	backend.Register(backend.NameNative, func() gapi.GAPI {
		return NewStandalone()
	})
}

// pipelineState is the render state baked into a native pipeline.
type pipelineState struct {
	cull        gapi.FaceCullMode
	depthEnable bool
	depthWrite  bool
	depthFunc   gapi.Comparison
	stencil     gapi.StencilState
	blend       gapi.BlendState
	colorMask   gputypes.ColorWriteMask
}

// renderState is the full client-visible render state.
type renderState struct {
	pipeline pipelineState

	viewportX, viewportY uint32
	viewportW, viewportH uint32
	zMin, zMax           float32

	scissorEnable bool
	scissorX      uint32
	scissorY      uint32
	scissorW      uint32
	scissorH      uint32

	blendColor gapi.RGBA

	// States without a WebGPU pipeline counterpart are retained so that
	// State reports what the client set.
	alphaTestEnable bool
	alphaRef        float32
	alphaFunc       gapi.Comparison
	lineSmooth      bool
	pointSprite     bool
	pointSize       float32
	fillMode        gapi.PolygonMode
	offsetSlope     float32
	offsetUnits     float32
	dither          bool
}

func defaultRenderState(width, height uint32) renderState {
	return renderState{
		pipeline: pipelineState{
			cull:        gapi.CullCW,
			depthEnable: true,
			depthWrite:  true,
			depthFunc:   gapi.CompareLess,
			stencil: gapi.StencilState{
				ReadMask:  0xff,
				WriteMask: 0xff,
				CW:        gapi.StencilFace{Func: gapi.CompareAlways},
				CCW:       gapi.StencilFace{Func: gapi.CompareAlways},
			},
			blend: gapi.BlendState{
				ColorEq: gapi.BlendEqAdd, ColorSrc: gapi.BlendOne, ColorDst: gapi.BlendZero,
				AlphaEq: gapi.BlendEqAdd, AlphaSrc: gapi.BlendOne, AlphaDst: gapi.BlendZero,
			},
			colorMask: gputypes.ColorWriteMaskAll,
		},
		viewportW: width,
		viewportH: height,
		zMax:      1,
		alphaFunc: gapi.CompareAlways,
		pointSize: 1,
		fillMode:  gapi.PolygonFill,
	}
}

// GAPI is the HAL implementation of gapi.GAPI.
//
// GAPI is not safe for concurrent use.
type GAPI struct {
	ctx     *Context
	ownsCtx bool
	device  hal.Device
	queue   hal.Queue
	opts    options

	programs *effect.Cache

	vertexBuffers *resource.Table[vertexBuffer]
	indexBuffers  *resource.Table[indexBuffer]
	vertexStructs *resource.Table[vertexStruct]
	effects       *resource.Table[effectObject]
	params        *resource.Table[effectParam]
	textures      *resource.Table[texture]
	samplers      *resource.Table[sampler]

	currentVertexStruct gapi.ResourceID
	currentEffect       gapi.ResourceID
	validateStreams     bool
	validateEffect      bool
	streamsValid        bool
	effectValid         bool
	maxVertices         uint32

	state renderState

	target    frameTarget
	fallback  fallbackResources
	pipelines *pipelineCache
	frame     frameRecorder

	initialized  bool
	lost         bool
	submitFailed bool
	generation   uint64

	stats gapi.Stats
}

var (
	_ gapi.GAPI            = (*GAPI)(nil)
	_ gapi.EffectValidator = (*GAPI)(nil)
	_ gapi.StatsReporter   = (*GAPI)(nil)
)

// New creates a backend that renders with ctx. The caller keeps
// ownership of ctx.
func New(ctx *Context) *GAPI {
	g := &GAPI{
		ctx:                 ctx,
		opts:                ctx.opts,
		currentVertexStruct: gapi.InvalidResourceID,
		currentEffect:       gapi.InvalidResourceID,
	}
	g.device = ctx.device
	g.queue = ctx.queue
	g.programs = effect.NewCache(g.opts.programCacheSize)
	g.vertexBuffers = resource.NewTable(g.releaseVertexBuffer)
	g.indexBuffers = resource.NewTable(g.releaseIndexBuffer)
	g.vertexStructs = resource.NewTable[vertexStruct](nil)
	g.effects = resource.NewTable(g.releaseEffect)
	g.params = resource.NewTable(g.releaseParam)
	g.textures = resource.NewTable(g.releaseTexture)
	g.samplers = resource.NewTable(g.releaseSampler)
	g.pipelines = newPipelineCache()
	g.state = defaultRenderState(g.opts.width, g.opts.height)
	return g
}

// NewStandalone creates a backend that opens its own device during
// Initialize and closes it in Destroy.
func NewStandalone(opts ...Option) *GAPI {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	g := New(&Context{opts: o})
	g.ownsCtx = true
	return g
}

// Initialize creates the frame targets. A standalone backend opens its
// device first.
func (g *GAPI) Initialize() error {
	if g.initialized {
		return nil
	}
	if g.ownsCtx && g.ctx.device == nil {
		ctx, err := NewContext(func(o *options) { *o = g.opts })
		if err != nil {
			return err
		}
		g.ctx = ctx
		g.device, g.queue = ctx.device, ctx.queue
	}
	if g.device == nil || g.queue == nil {
		return ErrNilDevice
	}
	if g.opts.width == 0 || g.opts.height == 0 {
		return ErrInvalidDimensions
	}
	if err := g.createDevicePool(); err != nil {
		return err
	}
	g.initialized = true
	g.validateStreams = true
	g.validateEffect = true
	gapi.Logger().Info("native: initialized", "width", g.opts.width, "height", g.opts.height)
	return nil
}

// Destroy releases every resource. A standalone backend also closes its
// device.
func (g *GAPI) Destroy() {
	if !g.initialized {
		return
	}
	g.discardFrame()
	g.params.DestroyAll()
	g.effects.DestroyAll()
	g.samplers.DestroyAll()
	g.textures.DestroyAll()
	g.vertexStructs.DestroyAll()
	g.vertexBuffers.DestroyAll()
	g.indexBuffers.DestroyAll()
	g.pipelines.reset(g.device)
	g.releaseTargets()
	g.runRetired()
	g.programs.Clear()
	g.initialized = false
	if g.ownsCtx {
		g.ctx.Close()
		g.device, g.queue = nil, nil
	}
}

// Stats returns counters of native work.
func (g *GAPI) Stats() gapi.Stats {
	s := g.stats
	s.PipelineHits, s.PipelineMisses = g.pipelines.stats()
	return s
}

// Size returns the size of the back buffer.
func (g *GAPI) Size() (width, height uint32) {
	return g.opts.width, g.opts.height
}

// label prefixes a native object label.
func (g *GAPI) label(name string) string {
	return g.opts.label + "_" + name
}

// --- Render state ---

// SetScissor sets the scissor rectangle.
func (g *GAPI) SetScissor(enable bool, x, y, width, height uint32) {
	s := &g.state
	s.scissorEnable, s.scissorX, s.scissorY, s.scissorW, s.scissorH = enable, x, y, width, height
	g.applyDynamic()
}

// SetViewport sets the viewport.
func (g *GAPI) SetViewport(x, y, width, height uint32, zMin, zMax float32) {
	s := &g.state
	s.viewportX, s.viewportY, s.viewportW, s.viewportH = x, y, width, height
	s.zMin, s.zMax = zMin, zMax
	g.applyDynamic()
}

// SetPointLineRaster sets point and line rasterization state.
func (g *GAPI) SetPointLineRaster(lineSmooth, pointSprite bool, pointSize float32) {
	g.state.lineSmooth, g.state.pointSprite, g.state.pointSize = lineSmooth, pointSprite, pointSize
}

// SetPolygonRaster sets the fill and cull modes.
func (g *GAPI) SetPolygonRaster(fillMode gapi.PolygonMode, cullMode gapi.FaceCullMode) {
	if fillMode > gapi.PolygonFill || cullMode > gapi.CullCCW {
		panic("native: invalid polygon raster state")
	}
	g.state.fillMode = fillMode
	g.state.pipeline.cull = cullMode
}

// SetPolygonOffset sets the depth bias.
func (g *GAPI) SetPolygonOffset(slope, units float32) {
	g.state.offsetSlope, g.state.offsetUnits = slope, units
}

// SetAlphaTest sets the alpha test.
func (g *GAPI) SetAlphaTest(enable bool, reference float32, fn gapi.Comparison) {
	if fn > gapi.CompareAlways {
		panic("native: invalid alpha test function")
	}
	g.state.alphaTestEnable, g.state.alphaRef, g.state.alphaFunc = enable, reference, fn
}

// SetDepthTest sets the depth test.
func (g *GAPI) SetDepthTest(enable, writeEnable bool, fn gapi.Comparison) {
	if fn > gapi.CompareAlways {
		panic("native: invalid depth test function")
	}
	p := &g.state.pipeline
	p.depthEnable, p.depthWrite, p.depthFunc = enable, writeEnable, fn
}

// SetStencilTest sets the stencil test.
func (g *GAPI) SetStencilTest(state gapi.StencilState) {
	for _, f := range []gapi.StencilFace{state.CW, state.CCW} {
		if f.Func > gapi.CompareAlways || f.Pass > gapi.StencilDecWrap ||
			f.Fail > gapi.StencilDecWrap || f.ZFail > gapi.StencilDecWrap {
			panic("native: invalid stencil state")
		}
	}
	g.state.pipeline.stencil = state
	g.applyDynamic()
}

// SetColorWrite sets the color write mask.
func (g *GAPI) SetColorWrite(red, green, blue, alpha, dither bool) {
	g.state.pipeline.colorMask = colorWriteMask(red, green, blue, alpha)
	g.state.dither = dither
}

// SetBlending sets the blending state.
func (g *GAPI) SetBlending(state gapi.BlendState) {
	for _, f := range []gapi.BlendFunc{state.ColorSrc, state.ColorDst, state.AlphaSrc, state.AlphaDst} {
		if f > gapi.BlendInvColor {
			panic("native: invalid blend function")
		}
	}
	if state.ColorEq > gapi.BlendEqMax || state.AlphaEq > gapi.BlendEqMax {
		panic("native: invalid blend equation")
	}
	g.state.pipeline.blend = state
}

// SetBlendingColor sets the constant blend color.
func (g *GAPI) SetBlendingColor(color gapi.RGBA) {
	g.state.blendColor = color
	g.applyDynamic()
}

package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/internal/effect"
)

// frameTarget is the back buffer the backend renders into.
type frameTarget struct {
	color     hal.Texture
	colorView hal.TextureView
	depth     hal.Texture
	depthView hal.TextureView
}

// fallbackResources are bound to sampler and texture parameters that
// have nothing valid bound, so a missing texture never invalidates a draw.
type fallbackResources struct {
	textures [3]hal.Texture
	views    [3]hal.TextureView
	sampler  hal.Sampler
}

func (f *fallbackResources) view(d effect.TextureDim) hal.TextureView {
	switch d {
	case effect.TextureDim3D:
		return f.views[1]
	case effect.TextureDimCube:
		return f.views[2]
	}
	return f.views[0]
}

// clearRequest is a clear folded into the load operations of the next
// render pass.
type clearRequest struct {
	buffers gapi.ClearBuffer
	color   gapi.RGBA
	depth   float32
	stencil uint32
}

// frameRecorder holds the commands recorded since the last submit.
type frameRecorder struct {
	inFrame bool
	encoder hal.CommandEncoder
	pass    hal.RenderPassEncoder
	clear   clearRequest
	// used holds the resources referenced by the open encoder.
	used map[any]struct{}
	// retired destroys native objects once the open encoder is submitted.
	retired []func()
}

// --- Device pool ---

// createDevicePool creates the frame targets and the fallback resources.
// On failure everything it created is released.
func (g *GAPI) createDevicePool() error {
	if err := g.createTargets(); err != nil {
		g.releaseTargets()
		return err
	}
	return nil
}

func (g *GAPI) createTargets() error {
	size := hal.Extent3D{Width: g.opts.width, Height: g.opts.height, DepthOrArrayLayers: 1}
	var err error
	t := &g.target
	t.color, err = g.device.CreateTexture(&hal.TextureDescriptor{
		Label:         g.label("back_buffer"),
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        g.opts.colorFormat,
		Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("native: create back buffer: %w", err)
	}
	t.colorView, err = g.device.CreateTextureView(t.color, &hal.TextureViewDescriptor{Label: g.label("back_buffer_view")})
	if err != nil {
		return fmt.Errorf("native: create back buffer view: %w", err)
	}
	t.depth, err = g.device.CreateTexture(&hal.TextureDescriptor{
		Label:         g.label("depth_stencil"),
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatDepth24PlusStencil8,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("native: create depth buffer: %w", err)
	}
	t.depthView, err = g.device.CreateTextureView(t.depth, &hal.TextureViewDescriptor{Label: g.label("depth_stencil_view")})
	if err != nil {
		return fmt.Errorf("native: create depth buffer view: %w", err)
	}

	f := &g.fallback
	dims := [3]struct {
		dim    gputypes.TextureDimension
		view   gputypes.TextureViewDimension
		layers uint32
	}{
		{gputypes.TextureDimension2D, gputypes.TextureViewDimension2D, 1},
		{gputypes.TextureDimension3D, gputypes.TextureViewDimension3D, 1},
		{gputypes.TextureDimension2D, gputypes.TextureViewDimensionCube, gapi.NumCubeFaces},
	}
	white := []byte{0xff, 0xff, 0xff, 0xff}
	for i, d := range dims {
		f.textures[i], err = g.device.CreateTexture(&hal.TextureDescriptor{
			Label:         g.label("fallback_texture"),
			Size:          hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: d.layers},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     d.dim,
			Format:        gputypes.TextureFormatBGRA8Unorm,
			Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("native: create fallback texture: %w", err)
		}
		f.views[i], err = g.device.CreateTextureView(f.textures[i], &hal.TextureViewDescriptor{
			Label:           g.label("fallback_view"),
			Format:          gputypes.TextureFormatBGRA8Unorm,
			Dimension:       d.view,
			Aspect:          gputypes.TextureAspectAll,
			MipLevelCount:   1,
			ArrayLayerCount: d.layers,
		})
		if err != nil {
			return fmt.Errorf("native: create fallback view: %w", err)
		}
		for layer := range d.layers {
			g.queue.WriteTexture(
				&hal.ImageCopyTexture{Texture: f.textures[i], Origin: hal.Origin3D{Z: layer}, Aspect: gputypes.TextureAspectAll},
				white,
				&hal.ImageDataLayout{BytesPerRow: 4, RowsPerImage: 1},
				&hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
			)
		}
	}
	f.sampler, err = g.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        g.label("fallback_sampler"),
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return fmt.Errorf("native: create fallback sampler: %w", err)
	}
	return nil
}

// releaseTargets destroys the frame targets and fallback resources. It is
// safe on partially created targets.
func (g *GAPI) releaseTargets() {
	d := g.device
	f := &g.fallback
	if f.sampler != nil {
		d.DestroySampler(f.sampler)
	}
	for i := range f.views {
		if f.views[i] != nil {
			d.DestroyTextureView(f.views[i])
		}
		if f.textures[i] != nil {
			d.DestroyTexture(f.textures[i])
		}
	}
	*f = fallbackResources{}

	t := &g.target
	if t.depthView != nil {
		d.DestroyTextureView(t.depthView)
	}
	if t.depth != nil {
		d.DestroyTexture(t.depth)
	}
	if t.colorView != nil {
		d.DestroyTextureView(t.colorView)
	}
	if t.color != nil {
		d.DestroyTexture(t.color)
	}
	*t = frameTarget{}
}

// --- Frames ---

// BeginFrame starts a frame. Commands are recorded lazily.
func (g *GAPI) BeginFrame() {
	if g.lost || !g.initialized {
		return
	}
	g.frame.inFrame = true
}

// EndFrame submits the commands recorded during the frame.
func (g *GAPI) EndFrame() {
	if !g.frame.inFrame {
		return
	}
	g.frame.inFrame = false
	if g.lost {
		return
	}
	if err := g.flush(); err != nil {
		gapi.Logger().Warn("native: frame submit failed", "err", err)
	}
}

// Clear clears the selected buffers of the back buffer. The clear takes
// effect before any draw that follows it.
func (g *GAPI) Clear(buffers gapi.ClearBuffer, color gapi.RGBA, depth float32, stencil uint32) {
	if g.lost || !g.initialized || buffers == 0 {
		return
	}
	g.endPass()
	c := &g.frame.clear
	c.buffers |= buffers
	if buffers&gapi.ClearColor != 0 {
		c.color = color
	}
	if buffers&gapi.ClearDepth != 0 {
		c.depth = depth
	}
	if buffers&gapi.ClearStencil != 0 {
		c.stencil = stencil
	}
}

func (g *GAPI) ensureEncoder() (hal.CommandEncoder, error) {
	if g.frame.encoder != nil {
		return g.frame.encoder, nil
	}
	enc, err := g.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: g.label("frame_encoder")})
	if err != nil {
		return nil, fmt.Errorf("native: create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(g.label("frame")); err != nil {
		return nil, fmt.Errorf("native: begin encoding: %w", err)
	}
	g.frame.encoder = enc
	if g.frame.used == nil {
		g.frame.used = make(map[any]struct{})
	}
	return enc, nil
}

// ensurePass returns the open render pass, beginning one with the pending
// clear folded into its load operations.
func (g *GAPI) ensurePass() (hal.RenderPassEncoder, error) {
	if g.frame.pass != nil {
		return g.frame.pass, nil
	}
	enc, err := g.ensureEncoder()
	if err != nil {
		return nil, err
	}
	c := g.frame.clear
	g.frame.clear = clearRequest{}

	colorLoad, depthLoad, stencilLoad := gputypes.LoadOpLoad, gputypes.LoadOpLoad, gputypes.LoadOpLoad
	if c.buffers&gapi.ClearColor != 0 {
		colorLoad = gputypes.LoadOpClear
	}
	if c.buffers&gapi.ClearDepth != 0 {
		depthLoad = gputypes.LoadOpClear
	}
	if c.buffers&gapi.ClearStencil != 0 {
		stencilLoad = gputypes.LoadOpClear
	}
	g.frame.pass = enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: g.label("frame_pass"),
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    g.target.colorView,
			LoadOp:  colorLoad,
			StoreOp: gputypes.StoreOpStore,
			ClearValue: gputypes.Color{
				R: float64(c.color.R), G: float64(c.color.G), B: float64(c.color.B), A: float64(c.color.A),
			},
		}},
		DepthStencilAttachment: &hal.RenderPassDepthStencilAttachment{
			View:              g.target.depthView,
			DepthLoadOp:       depthLoad,
			DepthStoreOp:      gputypes.StoreOpStore,
			DepthClearValue:   c.depth,
			StencilLoadOp:     stencilLoad,
			StencilStoreOp:    gputypes.StoreOpStore,
			StencilClearValue: c.stencil,
		},
	})
	g.applyDynamic()
	return g.frame.pass, nil
}

// applyDynamic sets the render state that is not part of a pipeline on the
// open pass.
func (g *GAPI) applyDynamic() {
	rp := g.frame.pass
	if rp == nil {
		return
	}
	s := &g.state
	w, h := g.opts.width, g.opts.height
	vx, vy := min(s.viewportX, w), min(s.viewportY, h)
	rp.SetViewport(float32(vx), float32(vy),
		float32(min(s.viewportW, w-vx)), float32(min(s.viewportH, h-vy)),
		s.zMin, s.zMax)
	if s.scissorEnable {
		sx, sy := min(s.scissorX, w), min(s.scissorY, h)
		rp.SetScissorRect(sx, sy, min(s.scissorW, w-sx), min(s.scissorH, h-sy))
	} else {
		rp.SetScissorRect(0, 0, w, h)
	}
	rp.SetStencilReference(s.pipeline.stencil.Ref)
	c := s.blendColor
	rp.SetBlendConstant(&gputypes.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B), A: float64(c.A)})
}

func (g *GAPI) endPass() {
	if g.frame.pass != nil {
		g.frame.pass.End()
		g.frame.pass = nil
	}
}

// flush submits the recorded commands, waits for them and runs the
// retired destroys. A pending clear is recorded first.
func (g *GAPI) flush() error {
	if g.frame.clear.buffers != 0 {
		if _, err := g.ensurePass(); err != nil {
			return err
		}
	}
	g.endPass()
	enc := g.frame.encoder
	if enc == nil {
		g.runRetired()
		return nil
	}
	g.frame.encoder = nil
	clear(g.frame.used)
	defer g.runRetired()

	cmdBuf, err := enc.EndEncoding()
	if err != nil {
		g.submitFailed = true
		return fmt.Errorf("native: end encoding: %w", err)
	}
	defer g.device.FreeCommandBuffer(cmdBuf)

	fence, err := g.device.CreateFence()
	if err != nil {
		return fmt.Errorf("native: create fence: %w", err)
	}
	defer g.device.DestroyFence(fence)

	if err := g.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		g.submitFailed = true
		return fmt.Errorf("native: submit: %w", err)
	}
	g.stats.Submits++
	ok, err := g.device.Wait(fence, 1, g.opts.waitTimeout)
	if err != nil {
		g.submitFailed = true
		return fmt.Errorf("native: wait: %w", err)
	}
	if !ok {
		g.submitFailed = true
		return ErrSubmitTimeout
	}
	return nil
}

// discardFrame drops the recorded commands without submitting them.
func (g *GAPI) discardFrame() {
	if g.frame.pass != nil {
		g.frame.pass.End()
		g.frame.pass = nil
	}
	if g.frame.encoder != nil {
		g.frame.encoder.DiscardEncoding()
		g.frame.encoder = nil
	}
	clear(g.frame.used)
	g.frame.clear = clearRequest{}
	g.runRetired()
}

func (g *GAPI) runRetired() {
	retired := g.frame.retired
	g.frame.retired = nil
	for _, fn := range retired {
		fn()
	}
}

// markUsed records that the open encoder references obj.
func (g *GAPI) markUsed(obj any) {
	if g.frame.used != nil {
		g.frame.used[obj] = struct{}{}
	}
}

// beforeWrite submits the recorded commands when they reference obj, so
// a queue write cannot overtake the draws recorded before it.
func (g *GAPI) beforeWrite(obj any) {
	if g.frame.encoder == nil {
		return
	}
	if _, ok := g.frame.used[obj]; !ok {
		return
	}
	if err := g.flush(); err != nil {
		gapi.Logger().Warn("native: flush before write failed", "err", err)
	}
}

// retire runs destroy now, or after the next submit when the open encoder
// references obj. A nil obj is retired whenever an encoder is open.
func (g *GAPI) retire(obj any, destroy func()) {
	if g.frame.encoder != nil {
		if _, ok := g.frame.used[obj]; ok || obj == nil {
			g.frame.retired = append(g.frame.retired, destroy)
			return
		}
	}
	destroy()
}

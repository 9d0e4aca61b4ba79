package native

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gapi"
)

// probe returns the device state reported by the configured probe. The
// default reports DeviceNotReset after a failed submit.
func (g *GAPI) probe() gapi.DeviceStatus {
	if g.opts.probe != nil {
		return g.opts.probe()
	}
	if g.submitFailed {
		return gapi.DeviceNotReset
	}
	return gapi.DeviceOK
}

// CheckDevice polls the device and runs the lost/reset cycle. It returns
// DeviceOK when the device can render.
//
// A lost device is released once and stays lost until the probe reports
// it can be reset; a failed reset is retried on the next call.
func (g *GAPI) CheckDevice() gapi.DeviceStatus {
	if !g.initialized {
		return gapi.DeviceLost
	}
	switch g.probe() {
	case gapi.DeviceLost:
		if !g.lost {
			g.OnLostDevice()
		}
		return gapi.DeviceLost
	case gapi.DeviceNotReset:
		if !g.lost {
			g.OnLostDevice()
		}
	default:
		if !g.lost {
			return gapi.DeviceOK
		}
	}
	if err := g.OnResetDevice(); err != nil {
		gapi.Logger().Warn("native: device reset failed", "err", err)
		return gapi.DeviceNotReset
	}
	return gapi.DeviceOK
}

// OnLostDevice releases every native object of the device pool. Logical
// resources keep the state needed to rebuild them.
func (g *GAPI) OnLostDevice() {
	if g.lost {
		return
	}
	g.discardFrame()
	g.frame.inFrame = false
	g.pipelines.reset(g.device)
	g.effects.Each(func(_ gapi.ResourceID, e *effectObject) bool {
		g.releaseEffectNatives(e)
		e.refs = nil
		return true
	})
	g.textures.Each(func(_ gapi.ResourceID, t *texture) bool {
		if t.devicePool() {
			g.releaseNativeTexture(t)
		}
		return true
	})
	g.samplers.Each(func(_ gapi.ResourceID, s *sampler) bool {
		g.releaseNativeSampler(s)
		return true
	})
	g.releaseTargets()
	g.lost = true
	g.streamsValid, g.effectValid = false, false
	gapi.Logger().Warn("native: device lost")
}

// OnResetDevice recreates the device pool from the retained state. It
// either recreates everything or releases what it created and leaves the
// backend lost.
func (g *GAPI) OnResetDevice() error {
	if !g.lost {
		return nil
	}
	if err := g.createDevicePool(); err != nil {
		return err
	}

	var (
		buffers  []*bufferObject
		textures []*texture
		effects  []*effectObject
		errs     []error
	)
	restoreBuffer := func(b *bufferObject, name string, usage gputypes.BufferUsage) bool {
		if b.native == nil {
			buf, err := g.createBuffer(name, uint32(len(b.shadow)), usage)
			if err != nil {
				errs = append(errs, fmt.Errorf("restore %s: %w", name, err))
				return false
			}
			b.native = buf
			buffers = append(buffers, b)
		}
		data := make([]byte, alignUp(uint32(len(b.shadow)), bufferAlignment))
		copy(data, b.shadow)
		g.queue.WriteBuffer(b.native, 0, data)
		return true
	}
	g.vertexBuffers.Each(func(_ gapi.ResourceID, vb *vertexBuffer) bool {
		return restoreBuffer(&vb.bufferObject, "vertex_buffer", gputypes.BufferUsageVertex)
	})
	if len(errs) == 0 {
		g.indexBuffers.Each(func(_ gapi.ResourceID, ib *indexBuffer) bool {
			return restoreBuffer(&ib.bufferObject, "index_buffer", gputypes.BufferUsageIndex)
		})
	}
	if len(errs) == 0 {
		g.textures.Each(func(id gapi.ResourceID, t *texture) bool {
			if t.native != nil {
				if t.stale {
					g.uploadShadow(t)
				}
				return true
			}
			if err := g.createNativeTexture(t); err != nil {
				errs = append(errs, fmt.Errorf("restore texture %d: %w", id, err))
				return false
			}
			textures = append(textures, t)
			return true
		})
	}
	if len(errs) == 0 {
		g.effects.Each(func(id gapi.ResourceID, e *effectObject) bool {
			if err := g.createEffectNatives(e); err != nil {
				errs = append(errs, fmt.Errorf("restore effect %d: %w", id, err))
				return false
			}
			effects = append(effects, e)
			return true
		})
	}

	if err := errors.Join(errs...); err != nil {
		for _, e := range effects {
			g.releaseEffectNatives(e)
		}
		for _, t := range textures {
			g.releaseNativeTexture(t)
		}
		for _, b := range buffers {
			g.releaseBuffer(b)
		}
		g.releaseTargets()
		return fmt.Errorf("native: reset device: %w", err)
	}

	g.effects.Each(func(_ gapi.ResourceID, e *effectObject) bool {
		g.generation++
		e.generation = g.generation
		return true
	})
	g.lost = false
	g.submitFailed = false
	g.validateStreams = true
	g.validateEffect = true
	g.stats.Resets++
	gapi.Logger().Info("native: device reset")
	return nil
}

package main

import (
	"context"
	"errors"

	"github.com/gogpu/gogpu"
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/backend/native"
)

// runWindow opens a gogpu window and renders the scene with the window's
// device. Frames go to the backend's own back buffer.
func runWindow(ctx context.Context, cfg Config) error {
	app := gogpu.NewApp(gogpu.DefaultConfig().
		WithTitle("gapidemo").
		WithSize(int(cfg.Width), int(cfg.Height)))

	var (
		g      *native.GAPI
		d      *demo
		frame  int
		runErr error
	)
	app.OnDraw(func(_ *gogpu.Context) {
		if ctx.Err() != nil || runErr != nil {
			app.Quit()
			return
		}
		if d == nil {
			provider := app.GPUContextProvider()
			if provider == nil {
				return
			}
			if g, runErr = openShared(provider, cfg); runErr != nil {
				app.Quit()
				return
			}
			if d, runErr = newDemo(ctx, g, cfg); runErr != nil {
				app.Quit()
				return
			}
		}
		if runErr = d.frame(frame); runErr != nil {
			app.Quit()
			return
		}
		frame++
		if cfg.Frames > 0 && frame >= cfg.Frames {
			app.Quit()
		}
	})

	err := app.Run()
	if d != nil {
		d.report()
		d.close()
	}
	if g != nil {
		g.Destroy()
	}
	return errors.Join(err, runErr)
}

// openShared creates a native backend on the provider's device, falling
// back to a standalone device when the provider does not expose its HAL
// objects.
func openShared(provider gpucontext.DeviceProvider, cfg Config) (*native.GAPI, error) {
	opts := []native.Option{native.WithSize(cfg.Width, cfg.Height), native.WithLabel("gapidemo")}
	ctx, err := native.NewContextFromProvider(provider, opts...)
	var g *native.GAPI
	switch {
	case errors.Is(err, native.ErrProviderNotHAL):
		gapi.Logger().Info("gapidemo: window device not shareable, using a standalone device")
		g = native.NewStandalone(opts...)
	case err != nil:
		return nil, err
	default:
		g = native.New(ctx)
	}
	if err := g.Initialize(); err != nil {
		return nil, err
	}
	return g, nil
}

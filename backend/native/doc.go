// Package native implements gapi.GAPI on the pure Go WebGPU HAL
// (github.com/gogpu/wgpu/hal).
//
// # Validation
//
// The backend keeps two dirty flags. Changing the current vertex struct,
// or any buffer it reads from, marks the streams for validation;
// changing the current effect, or creating, destroying or modifying any
// sampler or texture, marks the effect. Both are validated by the next
// Draw or DrawIndexed, so bulk state changes never produce invalid
// intermediate native state.
//
// # Device loss
//
// CheckDevice polls the device once per frame. When the device is lost
// the backend releases every object of the device pool (effect programs,
// dynamic and render surface textures, frame targets, pipelines) but
// keeps the logical resources and the data needed to rebuild them.
// A reset either rebuilds all of them or none, and draws are skipped
// while no device is available.
//
// # Usage
//
//	ctx, err := native.NewContext(native.WithSize(1280, 720))
//	if err != nil {
//	    return err
//	}
//	g := native.New(ctx)
//	if err := g.Initialize(); err != nil {
//	    return err
//	}
//	defer g.Destroy()
package native

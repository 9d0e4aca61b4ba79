// Package gapi defines a backend-neutral GPU command interface.
//
// # Overview
//
// A client creates resources (vertex and index buffers, vertex structs,
// textures, samplers, effects) under IDs it chooses, sets render state and
// issues draws through the [GAPI] interface. A backend translates the
// commands into native device calls. Backends are chosen at runtime
// through the backend registry:
//
//	import (
//	    "github.com/gogpu/gapi/backend"
//	    _ "github.com/gogpu/gapi/backend/native"
//	)
//
//	g, err := backend.InitDefault()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer g.Destroy()
//
// # Errors
//
// Mutating operations return a [ParseError]. Errors never abort the
// command stream: a failed command is a no-op and the caller decides how
// to report it. Device loss is not reported per call; [GAPI.CheckDevice]
// polls for it once per frame and drives the lost/reset cycle.
//
// # Packages
//
//   - backend: runtime backend registry
//   - backend/native: backend on the gogpu/wgpu HAL
//   - param: typed, change-counted parameters
//   - renderer: parameter binding and the per-draw parameter cache
package gapi

// Package backend selects a gapi.GAPI implementation at runtime.
//
// # Backend Registration
//
// Backends register a factory from an init() function. Importing the
// native backend registers it under the name "native":
//
//	import _ "github.com/gogpu/gapi/backend/native"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name. Both return an uninitialized backend;
// InitDefault and Init also call Initialize:
//
//	g, err := backend.InitDefault()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer g.Destroy()
//
// # Available Backends
//
// - "native": WebGPU HAL device via gogpu/wgpu (Vulkan by default)
package backend

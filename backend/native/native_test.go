package native

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/backend"
)

const colorSource = `
@group(0) @binding(0) var<uniform> world_view_projection: mat4x4<f32>; // semantic: WorldViewProjection
@group(0) @binding(1) var<uniform> tint: vec4<f32>;

struct VertexInput {
    @location(0) position: vec3<f32>,
}

@vertex
fn vs_main(input: VertexInput) -> @builtin(position) vec4<f32> {
    return world_view_projection * vec4<f32>(input.position, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return tint;
}
`

const texturedSource = `
@group(0) @binding(0) var<uniform> tint: vec4<f32>;
@group(0) @binding(1) var diffuse_sampler: sampler;
@group(0) @binding(2) var diffuse_texture: texture_2d<f32>;

struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) texcoord0: vec2<f32>,
}

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) uv: vec2<f32>,
}

@vertex
fn vs_main(input: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = vec4<f32>(input.position, 1.0);
    out.uv = input.texcoord0;
    return out;
}

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(diffuse_texture, diffuse_sampler, input.uv) * tint;
}
`

// fakeSPIRV returns a bare SPIR-V header; the noop device never looks
// past it.
func fakeSPIRV(string) ([]uint32, error) { return []uint32{0x07230203}, nil }

// createNoopDevice creates a noop device and queue for testing.
func createNoopDevice(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		openDev.Device.Destroy()
		instance.Destroy()
	})
	return openDev.Device, openDev.Queue
}

// countingDevice counts native textures and buffers and can fail the
// n-th texture creation.
type countingDevice struct {
	hal.Device

	texturesCreated   int
	texturesDestroyed int
	buffersCreated    int
	buffersDestroyed  int
	// failTexture fails the texture creation with this 1-based number.
	failTexture int
}

var errInjected = errors.New("injected failure")

func (d *countingDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.failTexture > 0 && d.texturesCreated+1 == d.failTexture {
		d.failTexture = 0
		return nil, errInjected
	}
	tex, err := d.Device.CreateTexture(desc)
	if err == nil {
		d.texturesCreated++
	}
	return tex, err
}

func (d *countingDevice) DestroyTexture(tex hal.Texture) {
	d.texturesDestroyed++
	d.Device.DestroyTexture(tex)
}

func (d *countingDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	buf, err := d.Device.CreateBuffer(desc)
	if err == nil {
		d.buffersCreated++
	}
	return buf, err
}

func (d *countingDevice) DestroyBuffer(buf hal.Buffer) {
	d.buffersDestroyed++
	d.Device.DestroyBuffer(buf)
}

func (d *countingDevice) liveTextures() int { return d.texturesCreated - d.texturesDestroyed }

func (d *countingDevice) liveBuffers() int { return d.buffersCreated - d.buffersDestroyed }

// newTestGAPI returns an initialized backend on a counting noop device.
func newTestGAPI(t *testing.T, opts ...Option) (*GAPI, *countingDevice) {
	t.Helper()
	device, queue := createNoopDevice(t)
	counting := &countingDevice{Device: device}
	opts = append([]Option{WithCompiler(fakeSPIRV), WithSize(64, 32)}, opts...)
	ctx, err := NewContextFromDevice(counting, queue, opts...)
	if err != nil {
		t.Fatalf("NewContextFromDevice() error = %v", err)
	}
	g := New(ctx)
	if err := g.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(g.Destroy)
	return g, counting
}

func mustOK(t *testing.T, what string, e gapi.ParseError) {
	t.Helper()
	if e != gapi.ParseNoError {
		t.Fatalf("%s = %v, want NoError", what, e)
	}
}

func idBytes(id gapi.ResourceID) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(id))
}

func floatBytes(v ...float32) []byte {
	out := make([]byte, 0, 4*len(v))
	for _, f := range v {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

func TestInitialize(t *testing.T) {
	g, dev := newTestGAPI(t)

	if w, h := g.Size(); w != 64 || h != 32 {
		t.Errorf("Size() = %dx%d, want 64x32", w, h)
	}
	// Back buffer, depth buffer and three fallback textures.
	if got := dev.liveTextures(); got != 5 {
		t.Errorf("live textures after Initialize = %d, want 5", got)
	}
	if err := g.Initialize(); err != nil {
		t.Errorf("second Initialize() error = %v", err)
	}
	if got := g.CheckDevice(); got != gapi.DeviceOK {
		t.Errorf("CheckDevice() = %v, want ok", got)
	}
}

func TestInitializeErrors(t *testing.T) {
	device, queue := createNoopDevice(t)

	if _, err := NewContextFromDevice(nil, queue); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewContextFromDevice(nil) error = %v, want ErrNilDevice", err)
	}

	ctx, err := NewContextFromDevice(device, queue, WithSize(0, 10))
	if err != nil {
		t.Fatalf("NewContextFromDevice() error = %v", err)
	}
	g := New(ctx)
	if err := g.Initialize(); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Initialize() error = %v, want ErrInvalidDimensions", err)
	}
}

func TestDestroyReleasesEverything(t *testing.T) {
	device, queue := createNoopDevice(t)
	dev := &countingDevice{Device: device}
	ctx, err := NewContextFromDevice(dev, queue, WithCompiler(fakeSPIRV))
	if err != nil {
		t.Fatalf("NewContextFromDevice() error = %v", err)
	}
	g := New(ctx)
	if err := g.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	mustOK(t, "CreateVertexBuffer", g.CreateVertexBuffer(1, 64, 0))
	mustOK(t, "CreateIndexBuffer", g.CreateIndexBuffer(2, 12, 0))
	mustOK(t, "CreateTexture2D", g.CreateTexture2D(3, 8, 8, 4, gapi.FormatARGB8, 0))
	mustOK(t, "CreateTextureCube", g.CreateTextureCube(4, 4, 1, gapi.FormatXRGB8, gapi.TextureFlagDynamic))
	mustOK(t, "CreateEffect", g.CreateEffect(5, "vs_main", "fs_main", colorSource))
	mustOK(t, "CreateSampler", g.CreateSampler(6))

	g.Destroy()

	if got := dev.liveTextures(); got != 0 {
		t.Errorf("live textures after Destroy = %d, want 0", got)
	}
	if got := dev.liveBuffers(); got != 0 {
		t.Errorf("live buffers after Destroy = %d, want 0", got)
	}
	// Destroy is idempotent.
	g.Destroy()
}

func TestRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.NameNative) {
		t.Fatalf("backend %q not registered", backend.NameNative)
	}
	b := backend.Get(backend.NameNative)
	if _, ok := b.(*GAPI); !ok {
		t.Errorf("Get(%q) = %T, want *GAPI", backend.NameNative, b)
	}
}

func TestStandaloneDestroyWithoutInitialize(t *testing.T) {
	g := NewStandalone(WithSize(16, 16))
	// Never initialized: Destroy must not touch a device.
	g.Destroy()
	if w, h := g.Size(); w != 16 || h != 16 {
		t.Errorf("Size() = %dx%d, want 16x16", w, h)
	}
}

func TestRenderStateValidation(t *testing.T) {
	g, _ := newTestGAPI(t)

	tests := []struct {
		name string
		fn   func()
	}{
		{"cull mode", func() { g.SetPolygonRaster(gapi.PolygonFill, gapi.FaceCullMode(42)) }},
		{"depth func", func() { g.SetDepthTest(true, true, gapi.Comparison(42)) }},
		{"blend func", func() { g.SetBlending(gapi.BlendState{Enable: true, ColorSrc: gapi.BlendFunc(99)}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected panic", tt.name)
				}
			}()
			tt.fn()
		})
	}
}

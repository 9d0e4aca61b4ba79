package renderer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"math"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/backend/native"
	"github.com/gogpu/gapi/param"
)

const testSource = `
@group(0) @binding(0) var<uniform> world_view_projection: mat4x4<f32>; // semantic: WorldViewProjection
@group(0) @binding(1) var<uniform> tint: vec4<f32>;
@group(0) @binding(2) var<uniform> lights: array<vec4<f32>, 2>;
@group(0) @binding(3) var diffuse_sampler: sampler;
@group(0) @binding(4) var diffuse_texture: texture_2d<f32>;

struct VertexInput {
    @location(0) position: vec3<f32>,
}

struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
}

@vertex
fn vs_main(input: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = world_view_projection * vec4<f32>(input.position, 1.0);
    return out;
}

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(diffuse_texture, diffuse_sampler, vec2<f32>(0.5, 0.5)) * tint + lights[0] + lights[1];
}
`

func fakeSPIRV(string) ([]uint32, error) { return []uint32{0x07230203}, nil }

// recordingGAPI records the data pushed into effect params and the draws.
type recordingGAPI struct {
	gapi.GAPI
	validator gapi.EffectValidator
	params    map[gapi.ResourceID][]byte
	draws     int
	indexed   int
}

func (r *recordingGAPI) SetParamData(id gapi.ResourceID, data []byte) gapi.ParseError {
	r.params[id] = append([]byte(nil), data...)
	return r.GAPI.SetParamData(id, data)
}

func (r *recordingGAPI) Draw(prim gapi.PrimitiveType, first, count uint32) gapi.ParseError {
	r.draws++
	return r.GAPI.Draw(prim, first, count)
}

func (r *recordingGAPI) DrawIndexed(prim gapi.PrimitiveType, ib gapi.ResourceID, first, count, minIndex, maxIndex uint32) gapi.ParseError {
	r.indexed++
	return r.GAPI.DrawIndexed(prim, ib, first, count, minIndex, maxIndex)
}

func (r *recordingGAPI) EffectGeneration(id gapi.ResourceID) (uint64, bool) {
	return r.validator.EffectGeneration(id)
}

func newTestRenderer(t *testing.T, opts ...native.Option) (*Renderer, *recordingGAPI, *native.GAPI) {
	t.Helper()
	instance, err := noop.API{}.CreateInstance(nil)
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

	opts = append([]native.Option{native.WithCompiler(fakeSPIRV), native.WithSize(32, 32)}, opts...)
	ctx, err := native.NewContextFromDevice(openDev.Device, openDev.Queue, opts...)
	if err != nil {
		t.Fatalf("NewContextFromDevice() error = %v", err)
	}
	g := native.New(ctx)
	if err := g.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(g.Destroy)

	rec := &recordingGAPI{GAPI: g, validator: g, params: make(map[gapi.ResourceID][]byte)}
	r, err := New(rec)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(r.Close)
	return r, rec, g
}

// scene is a triangle drawn with the test effect.
type scene struct {
	effect   *Effect
	material *Material
	prim     *Primitive
	de       *DrawElement
}

func newScene(t *testing.T, r *Renderer) *scene {
	t.Helper()
	e, err := r.NewEffect("test", "vs_main", "fs_main", testSource)
	if err != nil {
		t.Fatalf("NewEffect() error = %v", err)
	}
	vb, err := r.NewVertexBuffer(floats(0, 0, 0, 1, 0, 0, 0, 1, 0), 0)
	if err != nil {
		t.Fatalf("NewVertexBuffer() error = %v", err)
	}
	bank, err := r.NewStreamBank("bank", Stream{
		Buffer: vb, Stride: 12, Type: gapi.VertexFloat3, Semantic: gapi.SemanticPosition,
	})
	if err != nil {
		t.Fatalf("NewStreamBank() error = %v", err)
	}
	mat := r.NewMaterial("material", e)
	prim := r.NewPrimitive("triangle", bank, gapi.PrimitiveTriangles, 1, 3)
	return &scene{effect: e, material: mat, prim: prim, de: r.NewDrawElement("de", prim, mat)}
}

func floats(v ...float32) []byte {
	out := make([]byte, 0, 4*len(v))
	for _, f := range v {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(f))
	}
	return out
}

func (s *scene) paramID(t *testing.T, name string) gapi.ResourceID {
	t.Helper()
	for _, p := range s.effect.params {
		if p.desc.Name == name {
			return p.id
		}
	}
	t.Fatalf("effect has no param %q", name)
	return gapi.InvalidResourceID
}

func mustParam(t *testing.T, o *param.Object, name string, typ param.Type, v ...float32) *param.Param {
	t.Helper()
	p, err := o.CreateParam(name, typ)
	if err != nil {
		t.Fatalf("CreateParam(%s) error = %v", name, err)
	}
	if len(v) > 0 {
		if err := p.SetFloats(v...); err != nil {
			t.Fatalf("SetFloats(%s) error = %v", name, err)
		}
	}
	return p
}

func render(t *testing.T, r *Renderer, de *DrawElement, override *param.Object) {
	t.Helper()
	if !r.BeginFrame() {
		t.Fatal("BeginFrame() = false")
	}
	if err := r.Render(de, override); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	r.EndFrame()
}

func TestRenderBindsByNameThenSemantic(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)

	mustParam(t, s.material.Object, "tint", param.TypeFloat4, 1, 0.5, 0.25, 1)
	m := make([]float32, 16)
	for i := range m {
		m[i] = float32(i)
	}
	wvp := mustParam(t, s.de.Object, "camera", param.TypeMatrix4, m...)
	wvp.SetSemantic("WorldViewProjection")

	render(t, r, s.de, nil)

	if got := rec.params[s.paramID(t, "tint")]; !bytes.Equal(got, floats(1, 0.5, 0.25, 1)) {
		t.Errorf("tint data = %v", got)
	}
	// Row-major params are transposed for the column-major effect.
	want := make([]float32, 16)
	for i := range want {
		want[i] = m[(i%4)*4+i/4]
	}
	if got := rec.params[s.paramID(t, "world_view_projection")]; !bytes.Equal(got, floats(want...)) {
		t.Errorf("world_view_projection data = %v, want %v", got, floats(want...))
	}
	if rec.draws != 1 {
		t.Errorf("draws = %d, want 1", rec.draws)
	}
}

func TestScopePrecedence(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)
	tintID := s.paramID(t, "tint")

	mustParam(t, s.effect.Object, "tint", param.TypeFloat4, 1, 1, 1, 1)
	mustParam(t, s.material.Object, "tint", param.TypeFloat4, 2, 2, 2, 2)
	mustParam(t, s.prim.bank.Object, "tint", param.TypeFloat4, 3, 3, 3, 3)
	mustParam(t, s.prim.Object, "tint", param.TypeFloat4, 4, 4, 4, 4)
	mustParam(t, s.de.Object, "tint", param.TypeFloat4, 5, 5, 5, 5)
	override := param.NewObject("override")
	mustParam(t, override, "tint", param.TypeFloat4, 6, 6, 6, 6)

	steps := []struct {
		name   string
		remove *param.Object
		want   float32
	}{
		{"override", nil, 6},
		{"draw element", override, 5},
		{"primitive", s.de.Object, 4},
		{"stream bank", s.prim.Object, 3},
		{"material", s.prim.bank.Object, 2},
		{"effect", s.material.Object, 1},
	}
	for _, st := range steps {
		if st.remove != nil {
			st.remove.RemoveParam("tint")
		}
		render(t, r, s.de, override)
		if got := rec.params[tintID]; !bytes.Equal(got, floats(st.want, st.want, st.want, st.want)) {
			t.Errorf("%s: tint data = %v, want %v", st.name, got, st.want)
		}
	}
}

func TestNameBeatsSemantic(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)

	bySemantic := mustParam(t, s.de.Object, "camera", param.TypeMatrix4)
	bySemantic.SetSemantic("WORLDVIEWPROJECTION")
	m := make([]float32, 16)
	m[0] = 9
	mustParam(t, s.material.Object, "world_view_projection", param.TypeMatrix4, m...)

	render(t, r, s.de, nil)
	if got := rec.params[s.paramID(t, "world_view_projection")]; !bytes.Equal(got, floats(m...)) {
		t.Errorf("world_view_projection bound by semantic over an exact name: %v", got)
	}
}

func TestTypeMismatchSkipped(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)

	mustParam(t, s.de.Object, "tint", param.TypeFloat3, 9, 9, 9)
	mustParam(t, s.material.Object, "tint", param.TypeFloat4, 2, 2, 2, 2)

	render(t, r, s.de, nil)
	if got := rec.params[s.paramID(t, "tint")]; !bytes.Equal(got, floats(2, 2, 2, 2)) {
		t.Errorf("tint data = %v, want the float4 material param", got)
	}
}

func TestArrayBinding(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)
	lightsID := s.paramID(t, "lights")

	if _, err := s.de.CreateArray("lights", param.TypeFloat4, 3); err != nil {
		t.Fatalf("CreateArray() error = %v", err)
	}
	render(t, r, s.de, nil)
	if _, ok := rec.params[lightsID]; ok {
		t.Error("array with mismatched size was bound")
	}

	lights, err := s.material.CreateArray("lights", param.TypeFloat4, 2)
	if err != nil {
		t.Fatalf("CreateArray() error = %v", err)
	}
	_ = lights.Element(0).SetFloats(1, 2, 3, 4)
	_ = lights.Element(1).SetFloats(5, 6, 7, 8)
	render(t, r, s.de, nil)
	if got := rec.params[lightsID]; !bytes.Equal(got, floats(1, 2, 3, 4, 5, 6, 7, 8)) {
		t.Errorf("lights data = %v", got)
	}
}

func TestErrorSamplerBound(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)

	render(t, r, s.de, nil)
	got := rec.params[s.paramID(t, "diffuse_sampler")]
	if want := binary.LittleEndian.AppendUint32(nil, uint32(r.ErrorSampler())); !bytes.Equal(got, want) {
		t.Errorf("diffuse_sampler data = %v, want the error sampler %v", got, want)
	}
	// Unmatched value params are left alone.
	if _, ok := rec.params[s.paramID(t, "tint")]; ok {
		t.Error("unmatched tint was set")
	}

	sampler, err := r.NewSampler(gapi.DefaultSamplerStates(), nil)
	if err != nil {
		t.Fatalf("NewSampler() error = %v", err)
	}
	p, _ := s.material.CreateParam("diffuse_sampler", param.TypeSampler)
	_ = p.SetResource(sampler.ID())
	render(t, r, s.de, nil)
	got = rec.params[s.paramID(t, "diffuse_sampler")]
	if want := binary.LittleEndian.AppendUint32(nil, uint32(sampler.ID())); !bytes.Equal(got, want) {
		t.Errorf("diffuse_sampler data = %v, want %v", got, want)
	}
}

func TestParamCacheRebuilds(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)
	tint := mustParam(t, s.material.Object, "tint", param.TypeFloat4, 1, 1, 1, 1)

	render(t, r, s.de, nil)
	render(t, r, s.de, nil)
	if n := s.de.cache.Rebuilds(); n != 1 {
		t.Fatalf("Rebuilds() after two identical draws = %d, want 1", n)
	}

	// Value changes are pushed without a rebuild.
	_ = tint.SetFloats(0, 0, 0, 1)
	render(t, r, s.de, nil)
	if n := s.de.cache.Rebuilds(); n != 1 {
		t.Errorf("Rebuilds() after value change = %d, want 1", n)
	}
	if got := rec.params[s.paramID(t, "tint")]; !bytes.Equal(got, floats(0, 0, 0, 1)) {
		t.Errorf("tint data = %v after value change", got)
	}

	steps := []struct {
		name   string
		change func()
	}{
		{"param added", func() { mustParam(t, s.prim.Object, "unused", param.TypeFloat) }},
		{"material swapped", func() { s.de.SetMaterial(r.NewMaterial("other", s.effect)) }},
		{"matrix order", func() { s.effect.SetMatrixLoadOrder(RowMajor) }},
	}
	want := uint64(1)
	for _, st := range steps {
		st.change()
		render(t, r, s.de, nil)
		want++
		if n := s.de.cache.Rebuilds(); n != want {
			t.Errorf("%s: Rebuilds() = %d, want %d", st.name, n, want)
		}
	}

	// A different override object is a different scope.
	render(t, r, s.de, param.NewObject("override"))
	if n := s.de.cache.Rebuilds(); n != want+1 {
		t.Errorf("override: Rebuilds() = %d, want %d", n, want+1)
	}
}

func TestMatrixLoadOrderRowMajor(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)
	s.effect.SetMatrixLoadOrder(RowMajor)

	m := make([]float32, 16)
	m[1] = 7
	mustParam(t, s.material.Object, "world_view_projection", param.TypeMatrix4, m...)
	render(t, r, s.de, nil)
	if got := rec.params[s.paramID(t, "world_view_projection")]; !bytes.Equal(got, floats(m...)) {
		t.Errorf("row-major matrix transposed: %v", got)
	}
}

func TestEffectRebuiltAfterReset(t *testing.T) {
	status := gapi.DeviceOK
	r, _, g := newTestRenderer(t, native.WithDeviceProbe(func() gapi.DeviceStatus { return status }))
	s := newScene(t, r)

	render(t, r, s.de, nil)
	status = gapi.DeviceLost
	if r.BeginFrame() {
		t.Fatal("BeginFrame() = true on a lost device")
	}
	// Skipped while the device is lost.
	if err := r.Render(s.de, nil); err != nil {
		t.Errorf("Render() on lost device error = %v", err)
	}
	r.EndFrame()

	status = gapi.DeviceNotReset
	render(t, r, s.de, nil)
	if n := s.de.cache.Rebuilds(); n != 2 {
		t.Errorf("Rebuilds() after reset = %d, want 2", n)
	}
	if n := g.Stats().Resets; n != 1 {
		t.Errorf("Resets = %d, want 1", n)
	}
}

func TestRenderErrors(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)

	r.BeginFrame()
	defer r.EndFrame()

	noMaterial := r.NewDrawElement("bare", s.prim, nil)
	if err := r.Render(noMaterial, nil); !errors.Is(err, ErrNoEffect) {
		t.Errorf("Render() without material error = %v, want ErrNoEffect", err)
	}
	noGeometry := r.NewDrawElement("bare", nil, s.material)
	if err := r.Render(noGeometry, nil); !errors.Is(err, ErrNoGeometry) {
		t.Errorf("Render() without primitive error = %v, want ErrNoGeometry", err)
	}
	destroyed := r.NewDrawElement("destroyed", s.prim, s.material)
	destroyed.Destroy()
	if err := r.Render(destroyed, nil); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Render() of destroyed element error = %v, want ErrDestroyed", err)
	}
	s.effect.Destroy()
	if err := r.Render(s.de, nil); !errors.Is(err, ErrNoEffect) {
		t.Errorf("Render() with destroyed effect error = %v, want ErrNoEffect", err)
	}
	if rec.draws != 0 {
		t.Errorf("draws = %d, want 0", rec.draws)
	}
}

func TestRenderIndexed(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)
	ib, err := r.NewIndexBuffer([]byte{0, 0, 1, 0, 2, 0, 0, 0}, 0)
	if err != nil {
		t.Fatalf("NewIndexBuffer() error = %v", err)
	}
	s.prim.SetIndexBuffer(ib)

	render(t, r, s.de, nil)
	if rec.indexed != 1 || rec.draws != 0 {
		t.Errorf("indexed/plain draws = %d/%d, want 1/0", rec.indexed, rec.draws)
	}
}

func TestRenderNotReady(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)

	// No BeginFrame.
	if err := r.Render(s.de, nil); err != nil {
		t.Errorf("Render() outside a frame error = %v", err)
	}
	if rec.draws != 0 {
		t.Error("draw issued outside a frame")
	}
}

func TestCreateUniformParams(t *testing.T) {
	r, rec, _ := newTestRenderer(t)
	s := newScene(t, r)

	if err := s.effect.CreateUniformParams(); err != nil {
		t.Fatalf("CreateUniformParams() error = %v", err)
	}
	wvp := s.effect.Param("world_view_projection")
	if wvp == nil || wvp.Semantic() != "WORLDVIEWPROJECTION" {
		t.Fatalf("world_view_projection param = %v", wvp)
	}
	if p := s.effect.Param("lights"); p == nil || p.Len() != 2 {
		t.Errorf("lights param = %v, want array of 2", p)
	}
	if s.effect.Param("diffuse_sampler") != nil {
		t.Error("sampler param created")
	}

	render(t, r, s.de, nil)
	if _, ok := rec.params[s.paramID(t, "tint")]; !ok {
		t.Error("tint not bound to the effect default")
	}
}

func TestDestroyedIDsReused(t *testing.T) {
	r, _, _ := newTestRenderer(t)

	tests := []struct {
		name   string
		create func() (gapi.ResourceID, func())
	}{
		{"effect", func() (gapi.ResourceID, func()) {
			e, err := r.NewEffect("test", "vs_main", "fs_main", testSource)
			if err != nil {
				t.Fatalf("NewEffect() error = %v", err)
			}
			return e.ID(), e.Destroy
		}},
		{"vertex buffer", func() (gapi.ResourceID, func()) {
			b, err := r.NewVertexBuffer(floats(1, 2, 3), 0)
			if err != nil {
				t.Fatalf("NewVertexBuffer() error = %v", err)
			}
			return b.ID(), b.Destroy
		}},
		{"index buffer", func() (gapi.ResourceID, func()) {
			b, err := r.NewIndexBuffer([]byte{0, 0, 1, 0}, 0)
			if err != nil {
				t.Fatalf("NewIndexBuffer() error = %v", err)
			}
			return b.ID(), b.Destroy
		}},
		{"sampler", func() (gapi.ResourceID, func()) {
			s, err := r.NewSampler(gapi.DefaultSamplerStates(), nil)
			if err != nil {
				t.Fatalf("NewSampler() error = %v", err)
			}
			return s.ID(), s.Destroy
		}},
		{"texture", func() (gapi.ResourceID, func()) {
			tex, err := r.NewTextureFromImage(image.NewNRGBA(image.Rect(0, 0, 2, 2)), 1)
			if err != nil {
				t.Fatalf("NewTextureFromImage() error = %v", err)
			}
			return tex.ID(), tex.Destroy
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, destroy := tt.create()
			destroy()
			// A second Destroy must not release the ID twice.
			destroy()
			again, destroyAgain := tt.create()
			if again != id {
				t.Errorf("ID after Destroy = %d, want %d", again, id)
			}
			other, destroyOther := tt.create()
			if other == again {
				t.Errorf("live objects share ID %d", other)
			}
			destroyOther()
			destroyAgain()
		})
	}
}

func TestFailedCreateReleasesID(t *testing.T) {
	r, _, _ := newTestRenderer(t)
	b, err := r.NewVertexBuffer(floats(1), 0)
	if err != nil {
		t.Fatalf("NewVertexBuffer() error = %v", err)
	}
	next := b.ID() + 1

	if _, err := r.NewVertexBuffer(nil, 0); err == nil {
		t.Fatal("NewVertexBuffer(nil) succeeded")
	}
	if _, err := r.NewEffect("bad", "vs", "fs", "not an effect"); err == nil {
		t.Fatal("NewEffect() compiled an invalid effect")
	}
	b2, err := r.NewVertexBuffer(floats(1), 0)
	if err != nil {
		t.Fatalf("NewVertexBuffer() error = %v", err)
	}
	if b2.ID() != next {
		t.Errorf("ID after failed creates = %d, want %d", b2.ID(), next)
	}
}

package effect

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/gapi"
)

const texturedSource = `
@group(0) @binding(0) var<uniform> world_view_projection: mat4x4<f32>; // semantic: WorldViewProjection
@group(0) @binding(1) var<uniform> tint: vec4<f32>;
@group(0) @binding(2) var diffuse_sampler: sampler;
@group(0) @binding(3) var diffuse_texture: texture_2d<f32>;

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
    out.clip = world_view_projection * vec4<f32>(input.position, 1.0);
    out.uv = input.texcoord0;
    return out;
}

@fragment
fn fs_main(input: VertexOutput) -> @location(0) vec4<f32> {
    return textureSample(diffuse_texture, diffuse_sampler, input.uv) * tint;
}
`

// fakeSPIRV stands in for naga when only reflection is under test.
func fakeSPIRV(string) ([]uint32, error) { return []uint32{0x07230203}, nil }

func TestCompileReflects(t *testing.T) {
	prog, err := Compile(texturedSource, "vs_main", "fs_main", fakeSPIRV)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}

	wantParams := []struct {
		name     string
		semantic string
		typ      gapi.EffectParamType
		binding  uint32
	}{
		{"world_view_projection", "WORLDVIEWPROJECTION", gapi.ParamMatrix4, 0},
		{"tint", "", gapi.ParamFloat4, 1},
		{"diffuse_sampler", "", gapi.ParamSampler, 2},
		{"diffuse_texture", "", gapi.ParamTexture, 3},
	}
	if len(prog.Params) != len(wantParams) {
		t.Fatalf("len(Params) = %d, want %d", len(prog.Params), len(wantParams))
	}
	for i, w := range wantParams {
		p := prog.Params[i]
		if p.Name != w.name || p.Semantic != w.semantic || p.Type != w.typ || p.Binding != w.binding {
			t.Errorf("Params[%d] = %+v, want %+v", i, p, w)
		}
	}
	if prog.Param("diffuse_texture").TextureDim != TextureDim2D {
		t.Error("diffuse_texture should be 2D")
	}

	wantStreams := []Stream{
		{Name: "position", Location: 0, Semantic: gapi.SemanticPosition},
		{Name: "texcoord0", Location: 1, Semantic: gapi.SemanticTexCoord},
	}
	if len(prog.Streams) != len(wantStreams) {
		t.Fatalf("Streams = %+v, want %+v", prog.Streams, wantStreams)
	}
	for i := range wantStreams {
		if prog.Streams[i] != wantStreams[i] {
			t.Errorf("Streams[%d] = %+v, want %+v", i, prog.Streams[i], wantStreams[i])
		}
	}

	if len(prog.Units) != 1 || prog.Units[0] != (SamplerUnit{Sampler: "diffuse_sampler", Texture: "diffuse_texture"}) {
		t.Errorf("Units = %+v", prog.Units)
	}
	if prog.UniformSize != 512 {
		t.Errorf("UniformSize = %d, want 512", prog.UniformSize)
	}
}

func TestCompileLocationArguments(t *testing.T) {
	src := `
@vertex fn vs(@builtin(vertex_index) vi: u32, @location(0) in_position: vec4<f32>, @location(3) color1: vec4<f32>) -> @builtin(position) vec4<f32> {
    return in_position + color1 * f32(vi);
}
@fragment fn fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`
	prog, err := Compile(src, "vs", "fs", fakeSPIRV)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	want := []Stream{
		{Name: "in_position", Location: 0, Semantic: gapi.SemanticPosition},
		{Name: "color1", Location: 3, Semantic: gapi.SemanticColor, SemanticIndex: 1},
	}
	if len(prog.Streams) != 2 || prog.Streams[0] != want[0] || prog.Streams[1] != want[1] {
		t.Errorf("Streams = %+v, want %+v", prog.Streams, want)
	}
	if prog.UniformSize != 0 {
		t.Errorf("UniformSize = %d, want 0", prog.UniformSize)
	}
}

func TestCompileTechniqueStructure(t *testing.T) {
	fragment := "@fragment fn fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }\n"
	vertex := "@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }\n"
	vertex2 := "@vertex fn vs2() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }\n"

	tests := []struct {
		name   string
		source string
		vs, fs string
		want   error
	}{
		{"no fragment", vertex, "vs", "fs", ErrTechniqueCount},
		{"no vertex", fragment, "vs", "fs", ErrTechniqueCount},
		{"two vertex", vertex + vertex2 + fragment, "vs", "fs", ErrPassCount},
		{"wrong vertex name", vertex + fragment, "main", "fs", ErrEntryPoint},
		{"wrong fragment name", vertex + fragment, "vs", "main", ErrEntryPoint},
		{"commented entry ignored", "// @vertex fn old() {}\n" + vertex + fragment, "vs", "fs", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.source, tt.vs, tt.fs, fakeSPIRV)
			if !errors.Is(err, tt.want) {
				t.Errorf("Compile() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompileIgnoresComments(t *testing.T) {
	entries := `
@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
@fragment fn fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`
	tests := []struct {
		name       string
		source     string
		wantParams []string
		semantic   string
	}{
		{
			name:       "line commented var",
			source:     "// @group(0) @binding(0) var<uniform> old_tint: vec4<f32>;\n@group(0) @binding(1) var<uniform> tint: vec4<f32>;\n" + entries,
			wantParams: []string{"tint"},
		},
		{
			name:       "block commented var",
			source:     "/* @group(0) @binding(0) var<uniform> old: mat4x4<f32>; // semantic: World */\n@group(0) @binding(1) var<uniform> wvp: mat4x4<f32>; // semantic: WorldViewProjection\n" + entries,
			wantParams: []string{"wvp"},
			semantic:   "WORLDVIEWPROJECTION",
		},
		{
			name:   "block commented entry point",
			source: "/*\n@vertex fn old() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }\n*/\n" + entries,
		},
		{
			name:       "commented var in group 1",
			source:     "// @group(1) @binding(0) var<uniform> far: f32;\n@group(0) @binding(0) var<uniform> near: f32;\n" + entries,
			wantParams: []string{"near"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, err := Compile(tt.source, "vs", "fs", fakeSPIRV)
			if err != nil {
				t.Fatalf("Compile() error = %v", err)
			}
			var names []string
			for _, p := range prog.Params {
				names = append(names, p.Name)
			}
			if fmt.Sprint(names) != fmt.Sprint(tt.wantParams) {
				t.Errorf("Params = %v, want %v", names, tt.wantParams)
			}
			if len(prog.Params) > 0 && prog.Params[0].Semantic != tt.semantic {
				t.Errorf("Semantic = %q, want %q", prog.Params[0].Semantic, tt.semantic)
			}
		})
	}
}

func TestCompileSamplerUnits(t *testing.T) {
	src := `
@group(0) @binding(0) var s: sampler;
@group(0) @binding(1) var a: texture_2d<f32>;
@group(0) @binding(2) var b: texture_cube<f32>;

fn shade(uv: vec2<f32>) -> vec4<f32> {
    return textureSample(a, s, uv);
}

@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
@fragment fn fs() -> @location(0) vec4<f32> {
    // textureSample(b, s, vec3<f32>(0.0))
    return shade(vec2<f32>(0.5)) + textureSample(a, s, vec2<f32>(0.0));
}
`
	prog, err := Compile(src, "vs", "fs", fakeSPIRV)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	want := []SamplerUnit{{Sampler: "s", Texture: "a"}}
	if fmt.Sprint(prog.Units) != fmt.Sprint(want) {
		t.Errorf("Units = %+v, want %+v", prog.Units, want)
	}
	if d := prog.Param("b").TextureDim; d != TextureDimCube {
		t.Errorf("TextureDim = %v, want %v", d, TextureDimCube)
	}
}

func TestCompileRejectsParams(t *testing.T) {
	entries := `
@vertex fn vs() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
@fragment fn fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`
	tests := []struct {
		name string
		decl string
		want error
	}{
		{"group 1", "@group(1) @binding(0) var<uniform> a: f32;", ErrBindGroup},
		{"mat3", "@group(0) @binding(0) var<uniform> a: mat3x3<f32>;", ErrParamType},
		{"depth texture", "@group(0) @binding(0) var a: texture_depth_2d;", ErrParamType},
		{"comparison sampler", "@group(0) @binding(0) var a: sampler_comparison;", ErrParamType},
		{"array texture", "@group(0) @binding(0) var a: texture_2d_array<f32>;", ErrParamType},
		{"storage buffer", "@group(0) @binding(0) var<storage, read> a: array<f32>;", ErrParamType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.decl+entries, "vs", "fs", fakeSPIRV)
			if !errors.Is(err, tt.want) {
				t.Errorf("Compile() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompileDiagnostics(t *testing.T) {
	failing := func(string) ([]uint32, error) {
		return nil, fmt.Errorf("line 3: unknown identifier 'foo'")
	}
	_, err := Compile(texturedSource, "vs_main", "fs_main", failing)
	if err == nil || !strings.Contains(err.Error(), "unknown identifier") {
		t.Errorf("Compile() error = %v, want compiler diagnostic", err)
	}
}

func TestNagaCompile(t *testing.T) {
	prog, err := Compile(texturedSource, "vs_main", "fs_main", nil)
	if err != nil {
		t.Fatalf("Compile() with naga error = %v", err)
	}
	if len(prog.SPIRV) == 0 || prog.SPIRV[0] != 0x07230203 {
		t.Errorf("SPIR-V does not start with the magic number")
	}
}

func TestLayoutUniforms(t *testing.T) {
	params := []Param{
		{Name: "a", Type: gapi.ParamFloat1},
		{Name: "s", Type: gapi.ParamSampler},
		{Name: "lights", Type: gapi.ParamFloat4, NumElements: 4},
		{Name: "weights", Type: gapi.ParamFloat1, NumElements: 3},
	}
	size := layoutUniforms(params)

	want := []struct{ offset, size, stride uint32 }{
		{0, 4, 4},
		{0, 0, 0},
		{256, 64, 16},
		{512, 48, 16},
	}
	for i, w := range want {
		p := params[i]
		if p.Offset != w.offset || p.Size != w.size || p.Stride != w.stride {
			t.Errorf("%s: offset=%d size=%d stride=%d, want %+v", p.Name, p.Offset, p.Size, p.Stride, w)
		}
	}
	if size != 768 {
		t.Errorf("block size = %d, want 768", size)
	}
}

func TestPackUnpack(t *testing.T) {
	params := []Param{{Name: "weights", Type: gapi.ParamFloat1, NumElements: 3}}
	layoutUniforms(params)
	p := params[0]

	src := []byte{1, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 3}
	dst := make([]byte, p.Size)
	if !p.Pack(dst, src) {
		t.Fatal("Pack() = false")
	}
	if dst[16] != 2 || dst[32] != 3 || dst[4] != 0 {
		t.Errorf("Pack did not apply the array stride: %v", dst)
	}
	back := make([]byte, len(src))
	if !p.Unpack(back, dst) || !bytes.Equal(back, src) {
		t.Errorf("Unpack() = %v, want %v", back, src)
	}
	if p.Pack(dst, src[:8]) {
		t.Error("Pack accepted short data")
	}
}

func TestSemanticFromName(t *testing.T) {
	tests := []struct {
		name  string
		want  gapi.Semantic
		index uint32
	}{
		{"position", gapi.SemanticPosition, 0},
		{"in_normal", gapi.SemanticNormal, 0},
		{"texcoord1", gapi.SemanticTexCoord, 1},
		{"uv_2", gapi.SemanticTexCoord, 2},
		{"Color", gapi.SemanticColor, 0},
		{"bitangent", gapi.SemanticBinormal, 0},
		{"weights", gapi.SemanticUnknown, 0},
	}
	for _, tt := range tests {
		s, idx := SemanticFromName(tt.name)
		if s != tt.want || idx != tt.index {
			t.Errorf("SemanticFromName(%q) = %v, %d; want %v, %d", tt.name, s, idx, tt.want, tt.index)
		}
	}
}

func TestCache(t *testing.T) {
	compiles := 0
	counting := func(string) ([]uint32, error) {
		compiles++
		return []uint32{1}, nil
	}
	c := NewCache(4)

	a, err := c.Compile(texturedSource, "vs_main", "fs_main", counting)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := c.Compile(texturedSource, "vs_main", "fs_main", counting)
	if a != b || compiles != 1 {
		t.Errorf("second Compile missed the cache: compiles = %d", compiles)
	}
	if hits, misses := c.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses; want 1, 1", hits, misses)
	}

	if _, err := c.Compile("not an effect", "vs", "fs", counting); err == nil {
		t.Error("invalid effect compiled")
	}
	if c.Len() != 1 {
		t.Errorf("failed compile was cached: Len() = %d", c.Len())
	}

	for i := range 6 {
		src := fmt.Sprintf("// variant %d\n%s", i, texturedSource)
		if _, err := c.Compile(src, "vs_main", "fs_main", counting); err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() > 4 {
		t.Errorf("Len() = %d, want at most the soft limit 4", c.Len())
	}
}

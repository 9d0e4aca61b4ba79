package effect

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gogpu/gapi"
)

var (
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	semanticRe     = regexp.MustCompile(`semantic:\s*(\w+)`)
	declRe         = regexp.MustCompile(`\bvar(?:\s*<[^>]*>)?\s+([A-Za-z_]\w*)\s*:`)
	trailingRe     = regexp.MustCompile(`^(.*?)(\d+)$`)
)

type module struct {
	ir       *ir.Module
	vertex   []string
	fragment []string
	params   []Param
	units    []SamplerUnit
}

// reflectModule parses and lowers source with naga and collects entry
// points, group 0 resources and the texture/sampler pairs sampled by any
// function.
func reflectModule(source string) (*module, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("effect: parse: %w", err)
	}
	mod, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("effect: parse: %w", err)
	}
	m := &module{ir: mod}

	for i := range mod.EntryPoints {
		ep := &mod.EntryPoints[i]
		switch ep.Stage {
		case ir.StageVertex:
			m.vertex = append(m.vertex, ep.Name)
		case ir.StageFragment:
			m.fragment = append(m.fragment, ep.Name)
		}
	}

	semantics := semanticComments(source)
	for i := range mod.GlobalVariables {
		gv := &mod.GlobalVariables[i]
		if gv.Binding == nil {
			continue
		}
		p, err := m.param(gv)
		if err != nil {
			return nil, err
		}
		if m.findParam(p.Name) != nil {
			return nil, fmt.Errorf("effect: duplicate parameter %q", p.Name)
		}
		p.Semantic = semantics[p.Name]
		m.params = append(m.params, p)
	}

	seen := make(map[SamplerUnit]bool)
	collect := func(f *ir.Function) {
		for _, e := range f.Expressions {
			s, ok := e.Kind.(ir.ExprImageSample)
			if !ok {
				continue
			}
			tex, ok1 := m.global(f, s.Image)
			smp, ok2 := m.global(f, s.Sampler)
			if !ok1 || !ok2 {
				continue
			}
			u := SamplerUnit{Sampler: smp, Texture: tex}
			if !seen[u] {
				seen[u] = true
				m.units = append(m.units, u)
			}
		}
	}
	for i := range mod.EntryPoints {
		collect(&mod.EntryPoints[i].Function)
	}
	for i := range mod.Functions {
		collect(&mod.Functions[i])
	}
	return m, nil
}

func (m *module) findParam(name string) *Param {
	for i := range m.params {
		if m.params[i].Name == name {
			return &m.params[i]
		}
	}
	return nil
}

// global resolves expression h of f to the name of the module variable it
// refers to.
func (m *module) global(f *ir.Function, h ir.ExpressionHandle) (string, bool) {
	for int(h) < len(f.Expressions) {
		switch k := f.Expressions[h].Kind.(type) {
		case ir.ExprGlobalVariable:
			if int(k.Variable) >= len(m.ir.GlobalVariables) {
				return "", false
			}
			return m.ir.GlobalVariables[k.Variable].Name, true
		case ir.ExprLoad:
			h = k.Pointer
		default:
			return "", false
		}
	}
	return "", false
}

func (m *module) param(gv *ir.GlobalVariable) (Param, error) {
	p := Param{Name: gv.Name, Binding: gv.Binding.Binding}
	if gv.Binding.Group != 0 {
		return p, fmt.Errorf("%w: %s is in group %d", ErrBindGroup, gv.Name, gv.Binding.Group)
	}
	inner := m.ir.Types[gv.Type].Inner

	switch gv.Space {
	case ir.SpaceUniform:
		if a, ok := inner.(ir.ArrayType); ok {
			if a.Size.Constant == nil || *a.Size.Constant == 0 {
				return p, fmt.Errorf("%w: %s is not a sized array", ErrParamType, gv.Name)
			}
			p.NumElements = *a.Size.Constant
			inner = m.ir.Types[a.Base].Inner
		}
		t, ok := valueType(inner)
		if !ok {
			return p, fmt.Errorf("%w: %s: %T", ErrParamType, gv.Name, inner)
		}
		p.Type = t
		return p, nil

	case ir.SpaceHandle:
		switch t := inner.(type) {
		case ir.SamplerType:
			if !t.Comparison {
				p.Type = gapi.ParamSampler
				return p, nil
			}
		case ir.ImageType:
			if t.Class != ir.ImageClassSampled || t.Arrayed || t.Multisampled || t.SampledKind != ir.ScalarFloat {
				break
			}
			switch t.Dim {
			case ir.Dim2D:
				p.TextureDim = TextureDim2D
			case ir.Dim3D:
				p.TextureDim = TextureDim3D
			case ir.DimCube:
				p.TextureDim = TextureDimCube
			default:
				return p, fmt.Errorf("%w: %s: unsupported texture dimension", ErrParamType, gv.Name)
			}
			p.Type = gapi.ParamTexture
			return p, nil
		}
		return p, fmt.Errorf("%w: %s: %T", ErrParamType, gv.Name, inner)
	}
	return p, fmt.Errorf("%w: %s in address space %d", ErrParamType, gv.Name, gv.Space)
}

// valueType maps a uniform type to a parameter type. WGSL has no
// host-shareable bool, so u32 carries booleans.
func valueType(inner ir.TypeInner) (gapi.EffectParamType, bool) {
	f32 := ir.ScalarType{Kind: ir.ScalarFloat, Width: 4}
	switch t := inner.(type) {
	case ir.ScalarType:
		switch t {
		case f32:
			return gapi.ParamFloat1, true
		case ir.ScalarType{Kind: ir.ScalarSint, Width: 4}:
			return gapi.ParamInt, true
		case ir.ScalarType{Kind: ir.ScalarUint, Width: 4}:
			return gapi.ParamBool, true
		}
	case ir.VectorType:
		if t.Scalar != f32 {
			break
		}
		switch t.Size {
		case ir.Vec2:
			return gapi.ParamFloat2, true
		case ir.Vec3:
			return gapi.ParamFloat3, true
		case ir.Vec4:
			return gapi.ParamFloat4, true
		}
	case ir.MatrixType:
		if t.Scalar == f32 && t.Columns == ir.Vec4 && t.Rows == ir.Vec4 {
			return gapi.ParamMatrix4, true
		}
	}
	return 0, false
}

// semanticComments maps module variable names to the semantic named in a
// trailing "// semantic: NAME" comment on their declaration line.
// Declarations inside comments are not matched.
func semanticComments(source string) map[string]string {
	out := make(map[string]string)
	source = blockCommentRe.ReplaceAllString(source, "")
	for _, line := range strings.Split(source, "\n") {
		code, comment, ok := strings.Cut(line, "//")
		if !ok {
			continue
		}
		s := semanticRe.FindStringSubmatch(comment)
		if s == nil {
			continue
		}
		if d := declRe.FindStringSubmatch(code); d != nil {
			out[d[1]] = strings.ToUpper(s[1])
		}
	}
	return out
}

// vertexStreams returns the @location inputs of the vertex entry point,
// following struct-typed arguments.
func (m *module) vertexStreams(entry string) ([]Stream, error) {
	for i := range m.ir.EntryPoints {
		ep := &m.ir.EntryPoints[i]
		if ep.Stage != ir.StageVertex || ep.Name != entry {
			continue
		}
		var streams []Stream
		for _, arg := range ep.Function.Arguments {
			if err := m.collectInput(arg.Name, arg.Type, arg.Binding, &streams); err != nil {
				return nil, err
			}
		}
		return streams, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryPoint, entry)
}

func (m *module) collectInput(name string, typ ir.TypeHandle, binding *ir.Binding, streams *[]Stream) error {
	if binding != nil {
		// Builtins such as vertex_index are not streams.
		if b, ok := (*binding).(ir.LocationBinding); ok {
			s := Stream{Name: name, Location: b.Location}
			s.Semantic, s.SemanticIndex = SemanticFromName(name)
			*streams = append(*streams, s)
		}
		return nil
	}
	st, ok := m.ir.Types[typ].Inner.(ir.StructType)
	if !ok {
		return fmt.Errorf("effect: vertex input %q has no @location", name)
	}
	for _, member := range st.Members {
		if err := m.collectInput(member.Name, member.Type, member.Binding, streams); err != nil {
			return err
		}
	}
	return nil
}

var semanticPrefixes = []struct {
	prefix   string
	semantic gapi.Semantic
}{
	{"position", gapi.SemanticPosition},
	{"pos", gapi.SemanticPosition},
	{"normal", gapi.SemanticNormal},
	{"tangent", gapi.SemanticTangent},
	{"binormal", gapi.SemanticBinormal},
	{"bitangent", gapi.SemanticBinormal},
	{"color", gapi.SemanticColor},
	{"colour", gapi.SemanticColor},
	{"texcoord", gapi.SemanticTexCoord},
	{"uv", gapi.SemanticTexCoord},
}

// SemanticFromName derives a vertex semantic from an input name such as
// "position", "in_normal" or "texcoord1". A trailing number is the
// semantic index.
func SemanticFromName(name string) (gapi.Semantic, uint32) {
	n := strings.ToLower(name)
	for _, p := range []string{"in_", "a_", "v_"} {
		n = strings.TrimPrefix(n, p)
	}
	n = strings.TrimSuffix(n, "_")
	var index uint32
	if m := trailingRe.FindStringSubmatch(n); m != nil {
		v, err := strconv.ParseUint(m[2], 10, 32)
		if err == nil {
			index = uint32(v)
			n = strings.TrimSuffix(m[1], "_")
		}
	}
	for _, sp := range semanticPrefixes {
		if n == sp.prefix {
			return sp.semantic, index
		}
	}
	return gapi.SemanticUnknown, index
}

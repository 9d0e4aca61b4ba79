package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gapi"
)

// Enum translation tables. Invalid values come from a trusted decoder
// and are programming errors, so lookups panic instead of reporting.

func textureFormat(f gapi.TextureFormat) gputypes.TextureFormat {
	switch f {
	case gapi.FormatXRGB8, gapi.FormatARGB8:
		// D3D ARGB8 is stored B, G, R, A in memory.
		return gputypes.TextureFormatBGRA8Unorm
	case gapi.FormatABGR16F:
		return gputypes.TextureFormatRGBA16Float
	case gapi.FormatR32F:
		return gputypes.TextureFormatR32Float
	case gapi.FormatABGR32F:
		return gputypes.TextureFormatRGBA32Float
	case gapi.FormatDXT1:
		return gputypes.TextureFormatBC1RGBAUnorm
	case gapi.FormatDXT3:
		return gputypes.TextureFormatBC2RGBAUnorm
	case gapi.FormatDXT5:
		return gputypes.TextureFormatBC3RGBAUnorm
	}
	panic(fmt.Sprintf("native: invalid texture format %d", f))
}

func vertexFormat(t gapi.VertexType) gputypes.VertexFormat {
	switch t {
	case gapi.VertexFloat1:
		return gputypes.VertexFormatFloat32
	case gapi.VertexFloat2:
		return gputypes.VertexFormatFloat32x2
	case gapi.VertexFloat3:
		return gputypes.VertexFormatFloat32x3
	case gapi.VertexFloat4:
		return gputypes.VertexFormatFloat32x4
	case gapi.VertexUChar4N:
		return gputypes.VertexFormatUnorm8x4
	}
	panic(fmt.Sprintf("native: invalid vertex type %d", t))
}

func topology(p gapi.PrimitiveType) (gputypes.PrimitiveTopology, bool) {
	switch p {
	case gapi.PrimitivePoints:
		return gputypes.PrimitiveTopologyPointList, true
	case gapi.PrimitiveLines:
		return gputypes.PrimitiveTopologyLineList, true
	case gapi.PrimitiveLineStrips:
		return gputypes.PrimitiveTopologyLineStrip, true
	case gapi.PrimitiveTriangles:
		return gputypes.PrimitiveTopologyTriangleList, true
	case gapi.PrimitiveTriangleStrips:
		return gputypes.PrimitiveTopologyTriangleStrip, true
	}
	// WebGPU has no triangle fans.
	return 0, false
}

var compareFuncs = [...]gputypes.CompareFunction{
	gapi.CompareNever:    gputypes.CompareFunctionNever,
	gapi.CompareLess:     gputypes.CompareFunctionLess,
	gapi.CompareEqual:    gputypes.CompareFunctionEqual,
	gapi.CompareLEqual:   gputypes.CompareFunctionLessEqual,
	gapi.CompareGreater:  gputypes.CompareFunctionGreater,
	gapi.CompareNotEqual: gputypes.CompareFunctionNotEqual,
	gapi.CompareGEqual:   gputypes.CompareFunctionGreaterEqual,
	gapi.CompareAlways:   gputypes.CompareFunctionAlways,
}

func compareFunc(c gapi.Comparison) gputypes.CompareFunction {
	return compareFuncs[c]
}

var stencilOps = [...]hal.StencilOperation{
	gapi.StencilKeep:      hal.StencilOperationKeep,
	gapi.StencilZero:      hal.StencilOperationZero,
	gapi.StencilReplace:   hal.StencilOperationReplace,
	gapi.StencilIncNoWrap: hal.StencilOperationIncrementClamp,
	gapi.StencilDecNoWrap: hal.StencilOperationDecrementClamp,
	gapi.StencilInvert:    hal.StencilOperationInvert,
	gapi.StencilIncWrap:   hal.StencilOperationIncrementWrap,
	gapi.StencilDecWrap:   hal.StencilOperationDecrementWrap,
}

func stencilFace(f gapi.StencilFace) hal.StencilFaceState {
	return hal.StencilFaceState{
		Compare:     compareFunc(f.Func),
		FailOp:      stencilOps[f.Fail],
		DepthFailOp: stencilOps[f.ZFail],
		PassOp:      stencilOps[f.Pass],
	}
}

var blendFactors = [...]gputypes.BlendFactor{
	gapi.BlendZero:             gputypes.BlendFactorZero,
	gapi.BlendOne:              gputypes.BlendFactorOne,
	gapi.BlendSrcColor:         gputypes.BlendFactorSrc,
	gapi.BlendInvSrcColor:      gputypes.BlendFactorOneMinusSrc,
	gapi.BlendSrcAlpha:         gputypes.BlendFactorSrcAlpha,
	gapi.BlendInvSrcAlpha:      gputypes.BlendFactorOneMinusSrcAlpha,
	gapi.BlendDstAlpha:         gputypes.BlendFactorDstAlpha,
	gapi.BlendInvDstAlpha:      gputypes.BlendFactorOneMinusDstAlpha,
	gapi.BlendDstColor:         gputypes.BlendFactorDst,
	gapi.BlendInvDstColor:      gputypes.BlendFactorOneMinusDst,
	gapi.BlendSrcAlphaSaturate: gputypes.BlendFactorSrcAlphaSaturated,
	gapi.BlendColor:            gputypes.BlendFactorConstant,
	gapi.BlendInvColor:         gputypes.BlendFactorOneMinusConstant,
}

var blendOps = [...]gputypes.BlendOperation{
	gapi.BlendEqAdd:    gputypes.BlendOperationAdd,
	gapi.BlendEqSub:    gputypes.BlendOperationSubtract,
	gapi.BlendEqRevSub: gputypes.BlendOperationReverseSubtract,
	gapi.BlendEqMin:    gputypes.BlendOperationMin,
	gapi.BlendEqMax:    gputypes.BlendOperationMax,
}

func blendState(b gapi.BlendState) *gputypes.BlendState {
	if !b.Enable {
		return nil
	}
	color := gputypes.BlendComponent{
		SrcFactor: blendFactors[b.ColorSrc],
		DstFactor: blendFactors[b.ColorDst],
		Operation: blendOps[b.ColorEq],
	}
	alpha := color
	if b.SeparateAlpha {
		alpha = gputypes.BlendComponent{
			SrcFactor: blendFactors[b.AlphaSrc],
			DstFactor: blendFactors[b.AlphaDst],
			Operation: blendOps[b.AlphaEq],
		}
	}
	return &gputypes.BlendState{Color: color, Alpha: alpha}
}

func cullMode(c gapi.FaceCullMode) gputypes.CullMode {
	switch c {
	case gapi.CullNone:
		return gputypes.CullModeNone
	case gapi.CullCW:
		// Counter-clockwise is front facing, so clockwise faces are back faces.
		return gputypes.CullModeBack
	case gapi.CullCCW:
		return gputypes.CullModeFront
	}
	panic(fmt.Sprintf("native: invalid cull mode %d", c))
}

func addressMode(a gapi.AddressMode) gputypes.AddressMode {
	switch a {
	case gapi.AddressWrap:
		return gputypes.AddressModeRepeat
	case gapi.AddressMirroredRepeat:
		return gputypes.AddressModeMirrorRepeat
	case gapi.AddressClampToEdge, gapi.AddressClampToBorder:
		// WebGPU has no border addressing; the border color is kept on
		// the sampler but edge clamping is the closest native mode.
		return gputypes.AddressModeClampToEdge
	}
	panic(fmt.Sprintf("native: invalid address mode %d", a))
}

func filterMode(f gapi.FilterMode) gputypes.FilterMode {
	if f == gapi.FilterLinear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

func colorWriteMask(r, g, b, a bool) gputypes.ColorWriteMask {
	var m gputypes.ColorWriteMask
	if r {
		m |= gputypes.ColorWriteMaskRed
	}
	if g {
		m |= gputypes.ColorWriteMaskGreen
	}
	if b {
		m |= gputypes.ColorWriteMaskBlue
	}
	if a {
		m |= gputypes.ColorWriteMaskAlpha
	}
	return m
}

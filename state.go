package gapi

// AddressMode controls texture coordinate wrapping.
type AddressMode uint8

// Address modes.
const (
	AddressWrap AddressMode = iota
	AddressMirroredRepeat
	AddressClampToEdge
	AddressClampToBorder
)

// FilterMode selects texture filtering. FilterNone is only meaningful
// for the mip filter, where it disables mipmapping.
type FilterMode uint8

// Filter modes.
const (
	FilterNone FilterMode = iota
	FilterPoint
	FilterLinear
)

// SamplerStates is the full addressing and filtering state of a sampler.
type SamplerStates struct {
	AddressU, AddressV, AddressW AddressMode
	MagFilter                    FilterMode
	MinFilter                    FilterMode
	MipFilter                    FilterMode
	MaxAnisotropy                uint32
}

// DefaultSamplerStates returns the state of a freshly created sampler.
func DefaultSamplerStates() SamplerStates {
	return SamplerStates{
		AddressU:      AddressWrap,
		AddressV:      AddressWrap,
		AddressW:      AddressWrap,
		MagFilter:     FilterLinear,
		MinFilter:     FilterLinear,
		MipFilter:     FilterPoint,
		MaxAnisotropy: 1,
	}
}

// Comparison is a depth, stencil or alpha test function.
type Comparison uint8

// Comparison functions.
const (
	CompareNever Comparison = iota
	CompareLess
	CompareEqual
	CompareLEqual
	CompareGreater
	CompareNotEqual
	CompareGEqual
	CompareAlways
)

// StencilOp is the action taken on the stencil buffer.
type StencilOp uint8

// Stencil operations.
const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncNoWrap
	StencilDecNoWrap
	StencilInvert
	StencilIncWrap
	StencilDecWrap
)

// StencilFace is the stencil test of one polygon winding.
type StencilFace struct {
	Func  Comparison
	Pass  StencilOp
	Fail  StencilOp
	ZFail StencilOp
}

// StencilState is the whole stencil test group.
type StencilState struct {
	Enable      bool
	SeparateCCW bool
	Ref         uint32
	ReadMask    uint32
	WriteMask   uint32
	CW          StencilFace
	// CCW is used only when SeparateCCW is set.
	CCW StencilFace
}

// BlendFunc is a blending factor.
type BlendFunc uint8

// Blend factors.
const (
	BlendZero BlendFunc = iota
	BlendOne
	BlendSrcColor
	BlendInvSrcColor
	BlendSrcAlpha
	BlendInvSrcAlpha
	BlendDstAlpha
	BlendInvDstAlpha
	BlendDstColor
	BlendInvDstColor
	BlendSrcAlphaSaturate
	BlendColor
	BlendInvColor
)

// BlendEq is a blending equation.
type BlendEq uint8

// Blend equations.
const (
	BlendEqAdd BlendEq = iota
	BlendEqSub
	BlendEqRevSub
	BlendEqMin
	BlendEqMax
)

// BlendState is the whole blending group.
type BlendState struct {
	Enable        bool
	SeparateAlpha bool
	ColorEq       BlendEq
	ColorSrc      BlendFunc
	ColorDst      BlendFunc
	// Alpha fields are used only when SeparateAlpha is set.
	AlphaEq  BlendEq
	AlphaSrc BlendFunc
	AlphaDst BlendFunc
}

// PolygonMode is the polygon fill mode.
type PolygonMode uint8

// Polygon modes.
const (
	PolygonPoint PolygonMode = iota
	PolygonLine
	PolygonFill
)

// FaceCullMode selects which winding is culled.
type FaceCullMode uint8

// Cull modes.
const (
	CullNone FaceCullMode = iota
	CullCW
	CullCCW
)

package gapi

import "fmt"

// TextureFormat is the texel format of a texture.
type TextureFormat uint8

// Texture formats.
const (
	FormatUnknown TextureFormat = iota
	FormatXRGB8
	FormatARGB8
	FormatABGR16F
	FormatR32F
	FormatABGR32F
	FormatDXT1
	FormatDXT3
	FormatDXT5
	numTextureFormats
)

// BlockInfo describes the storage block of a format. Uncompressed
// formats have 1x1 blocks.
type BlockInfo struct {
	BytesPerBlock uint32
	Width         uint32
	Height        uint32
}

var formatBlocks = [numTextureFormats]BlockInfo{
	FormatXRGB8:   {4, 1, 1},
	FormatARGB8:   {4, 1, 1},
	FormatABGR16F: {8, 1, 1},
	FormatR32F:    {4, 1, 1},
	FormatABGR32F: {16, 1, 1},
	FormatDXT1:    {8, 4, 4},
	FormatDXT3:    {16, 4, 4},
	FormatDXT5:    {16, 4, 4},
}

var formatNames = [numTextureFormats]string{
	FormatUnknown: "UNKNOWN",
	FormatXRGB8:   "XRGB8",
	FormatARGB8:   "ARGB8",
	FormatABGR16F: "ABGR16F",
	FormatR32F:    "R32F",
	FormatABGR32F: "ABGR32F",
	FormatDXT1:    "DXT1",
	FormatDXT3:    "DXT3",
	FormatDXT5:    "DXT5",
}

// Valid reports whether f names a concrete format.
func (f TextureFormat) Valid() bool {
	return f > FormatUnknown && f < numTextureFormats
}

// Block returns the block geometry of f. It panics on an invalid format.
func (f TextureFormat) Block() BlockInfo {
	if !f.Valid() {
		panic(fmt.Sprintf("gapi: invalid texture format %d", f))
	}
	return formatBlocks[f]
}

// Compressed reports whether f is a block-compressed format.
func (f TextureFormat) Compressed() bool {
	return f == FormatDXT1 || f == FormatDXT3 || f == FormatDXT5
}

func (f TextureFormat) String() string {
	if f < numTextureFormats {
		return formatNames[f]
	}
	return fmt.Sprintf("TextureFormat(%d)", f)
}

// TextureFlags modifies texture creation.
type TextureFlags uint32

// Texture flags.
const (
	// TextureFlagDynamic marks a texture that is rewritten every frame.
	// Dynamic textures live in the device pool and are rebuilt on reset.
	TextureFlagDynamic TextureFlags = 1 << iota
	// TextureFlagRenderSurface marks a texture usable as a render target.
	TextureFlagRenderSurface
)

// CubeFace selects the face of a cube texture. 2D and 3D textures
// use FacePositiveX.
type CubeFace uint8

// Cube faces.
const (
	FacePositiveX CubeFace = iota
	FaceNegativeX
	FacePositiveY
	FaceNegativeY
	FacePositiveZ
	FaceNegativeZ
	NumCubeFaces = 6
)

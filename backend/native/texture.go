package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gapi"
	"github.com/gogpu/gapi/internal/effect"
	"github.com/gogpu/gapi/internal/volume"
)

// Texture size limits, from the WebGPU default limits.
const (
	maxTextureSize   = 8192
	maxTexture3DSize = 2048
)

// maxLevelBytes bounds the shadow of one mip level so that level offsets
// and pitches stay in 32 bits.
const maxLevelBytes = 1 << 30

// texture is a logical texture. The shadow holds every face and level,
// tightly packed, and survives device loss.
type texture struct {
	dim    effect.TextureDim
	width  uint32
	height uint32
	depth  uint32
	levels uint32
	format gapi.TextureFormat
	flags  gapi.TextureFlags
	shadow [][]byte

	native hal.Texture
	view   hal.TextureView
	// stale is set when the shadow was written while the device was lost
	// and the native texture survived.
	stale bool
}

func (t *texture) faces() uint32 {
	if t.dim == effect.TextureDimCube {
		return gapi.NumCubeFaces
	}
	return 1
}

// devicePool reports whether the native texture is released on device loss.
func (t *texture) devicePool() bool {
	return t.flags&(gapi.TextureFlagDynamic|gapi.TextureFlagRenderSurface) != 0
}

func (t *texture) levelInfo(level uint32) volume.MipLevelInfo {
	return volume.MakeMipLevelInfo(t.format, t.width, t.height, t.depth, level)
}

func (t *texture) image(face gapi.CubeFace, level uint32) []byte {
	return t.shadow[uint32(face)*t.levels+level]
}

func levelVolume(info volume.MipLevelInfo) gapi.Volume {
	return gapi.Volume{Width: info.Width, Height: info.Height, Depth: info.Depth}
}

func maxLevels(size uint32) uint32 {
	n := uint32(1)
	for size > 1 {
		size >>= 1
		n++
	}
	return n
}

// CreateTexture2D creates a 2D texture.
func (g *GAPI) CreateTexture2D(id gapi.ResourceID, width, height, levels uint32, format gapi.TextureFormat, flags gapi.TextureFlags) gapi.ParseError {
	if width == 0 || height == 0 || width > maxTextureSize || height > maxTextureSize {
		return gapi.ParseInvalidArguments
	}
	return g.createTexture(id, &texture{
		dim: effect.TextureDim2D, width: width, height: height, depth: 1,
		levels: levels, format: format, flags: flags,
	}, max(width, height))
}

// CreateTexture3D creates a volume texture. Block compressed formats are
// not supported for volumes.
func (g *GAPI) CreateTexture3D(id gapi.ResourceID, width, height, depth, levels uint32, format gapi.TextureFormat, flags gapi.TextureFlags) gapi.ParseError {
	if width == 0 || height == 0 || depth == 0 ||
		width > maxTexture3DSize || height > maxTexture3DSize || depth > maxTexture3DSize {
		return gapi.ParseInvalidArguments
	}
	if format.Valid() && format.Compressed() {
		return gapi.ParseInvalidArguments
	}
	return g.createTexture(id, &texture{
		dim: effect.TextureDim3D, width: width, height: height, depth: depth,
		levels: levels, format: format, flags: flags,
	}, max(width, height, depth))
}

// CreateTextureCube creates a cube texture with square faces.
func (g *GAPI) CreateTextureCube(id gapi.ResourceID, side, levels uint32, format gapi.TextureFormat, flags gapi.TextureFlags) gapi.ParseError {
	if side == 0 || side > maxTextureSize {
		return gapi.ParseInvalidArguments
	}
	return g.createTexture(id, &texture{
		dim: effect.TextureDimCube, width: side, height: side, depth: 1,
		levels: levels, format: format, flags: flags,
	}, side)
}

func (g *GAPI) createTexture(id gapi.ResourceID, t *texture, largest uint32) gapi.ParseError {
	if !t.format.Valid() || t.levels == 0 || t.levels > maxLevels(largest) {
		return gapi.ParseInvalidArguments
	}
	if g.textures.Get(id) != nil || volume.LevelSize(t.levelInfo(0)) > maxLevelBytes {
		return gapi.ParseInvalidArguments
	}
	t.shadow = make([][]byte, t.faces()*t.levels)
	for face := range t.faces() {
		for level := range t.levels {
			t.shadow[face*t.levels+level] = make([]byte, volume.LevelSize(t.levelInfo(level)))
		}
	}
	if !g.lost {
		if err := g.createNativeTexture(t); err != nil {
			gapi.Logger().Warn("native: create texture failed", "id", id, "err", err)
			return gapi.ParseInvalidArguments
		}
	}
	if !g.textures.Create(id, t) {
		g.releaseTexture(t)
		return gapi.ParseInvalidArguments
	}
	g.validateEffect = true
	return gapi.ParseNoError
}

// createNativeTexture creates the native texture and view of t and
// uploads its shadow.
func (g *GAPI) createNativeTexture(t *texture) error {
	desc := &hal.TextureDescriptor{
		Label: g.label("texture"),
		Size: hal.Extent3D{
			Width:              t.width,
			Height:             t.height,
			DepthOrArrayLayers: t.depth,
		},
		MipLevelCount: t.levels,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        textureFormat(t.format),
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc,
	}
	viewDim := gputypes.TextureViewDimension2D
	layers := uint32(1)
	switch t.dim {
	case effect.TextureDim3D:
		desc.Dimension = gputypes.TextureDimension3D
		viewDim = gputypes.TextureViewDimension3D
	case effect.TextureDimCube:
		desc.Size.DepthOrArrayLayers = gapi.NumCubeFaces
		viewDim = gputypes.TextureViewDimensionCube
		layers = gapi.NumCubeFaces
	}
	if t.flags&gapi.TextureFlagRenderSurface != 0 {
		desc.Usage |= gputypes.TextureUsageRenderAttachment
	}

	tex, err := g.device.CreateTexture(desc)
	if err != nil {
		return fmt.Errorf("create texture: %w", err)
	}
	view, err := g.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           g.label("texture_view"),
		Format:          desc.Format,
		Dimension:       viewDim,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   t.levels,
		ArrayLayerCount: layers,
	})
	if err != nil {
		g.device.DestroyTexture(tex)
		return fmt.Errorf("create texture view: %w", err)
	}
	t.native, t.view = tex, view
	g.uploadShadow(t)
	return nil
}

// uploadShadow copies every face and level of the shadow to the native
// texture.
func (g *GAPI) uploadShadow(t *texture) {
	for face := range t.faces() {
		for level := range t.levels {
			info := t.levelInfo(level)
			g.uploadTexture(t, levelVolume(info), level, gapi.CubeFace(face))
		}
	}
	t.stale = false
}

// uploadTexture copies vol of one face and level from the shadow to the
// native texture.
func (g *GAPI) uploadTexture(t *texture, vol gapi.Volume, level uint32, face gapi.CubeFace) {
	if t.native == nil {
		return
	}
	info := t.levelInfo(level)
	levelTI := volume.MakePackedTransferInfo(info, levelVolume(info))
	offset := volume.Offset(info, vol, levelTI)
	regionTI := volume.MakeTransferInfo(info, vol, levelTI.RowPitch, levelTI.SlicePitch)
	data := t.image(face, level)[offset : offset+regionTI.TotalSize]

	origin := hal.Origin3D{X: vol.X, Y: vol.Y, Z: vol.Z}
	if t.dim == effect.TextureDimCube {
		origin.Z = uint32(face)
	}
	g.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.native,
			MipLevel: level,
			Origin:   origin,
			Aspect:   gputypes.TextureAspectAll,
		},
		data,
		&hal.ImageDataLayout{
			BytesPerRow:  levelTI.RowPitch,
			RowsPerImage: info.Height / info.BlockSizeY,
		},
		&hal.Extent3D{Width: vol.Width, Height: vol.Height, DepthOrArrayLayers: vol.Depth},
	)
}

// textureRegion validates a transfer and returns the level geometry and
// the transfer layouts of the client buffer and the shadow.
func (t *texture) textureRegion(vol gapi.Volume, level uint32, face gapi.CubeFace, rowPitch, slicePitch uint32, n int) (info volume.MipLevelInfo, client, shadow volume.TransferInfo, ok bool) {
	if level >= t.levels || uint32(face) >= t.faces() {
		return info, client, shadow, false
	}
	info = t.levelInfo(level)
	if !volume.CheckVolume(info, vol) {
		return info, client, shadow, false
	}
	client = volume.MakeTransferInfo(info, vol, rowPitch, slicePitch)
	if !volume.CheckTransferInfo(client, vol.Depth) || uint64(n) < uint64(client.TotalSize) {
		return info, client, shadow, false
	}
	levelTI := volume.MakePackedTransferInfo(info, levelVolume(info))
	shadow = volume.MakeTransferInfo(info, vol, levelTI.RowPitch, levelTI.SlicePitch)
	return info, client, shadow, true
}

// SetTextureData writes vol of one level and face from data, laid out
// with the given pitches.
func (g *GAPI) SetTextureData(id gapi.ResourceID, vol gapi.Volume, level uint32, face gapi.CubeFace, rowPitch, slicePitch uint32, data []byte) gapi.ParseError {
	t := g.textures.Get(id)
	if t == nil {
		return gapi.ParseInvalidArguments
	}
	info, client, shadow, ok := t.textureRegion(vol, level, face, rowPitch, slicePitch, len(data))
	if !ok {
		return gapi.ParseInvalidArguments
	}
	levelTI := volume.MakePackedTransferInfo(info, levelVolume(info))
	dst := t.image(face, level)[volume.Offset(info, vol, levelTI):]
	volume.TransferVolume(vol, info, dst, shadow, data, client)

	switch {
	case t.native == nil:
	case g.lost:
		t.stale = true
	default:
		g.beforeWrite(t)
		g.uploadTexture(t, vol, level, face)
	}
	g.validateEffect = true
	return gapi.ParseNoError
}

// GetTextureData reads vol of one level and face into data, laid out
// with the given pitches.
func (g *GAPI) GetTextureData(id gapi.ResourceID, vol gapi.Volume, level uint32, face gapi.CubeFace, rowPitch, slicePitch uint32, data []byte) gapi.ParseError {
	t := g.textures.Get(id)
	if t == nil {
		return gapi.ParseInvalidArguments
	}
	info, client, shadow, ok := t.textureRegion(vol, level, face, rowPitch, slicePitch, len(data))
	if !ok {
		return gapi.ParseInvalidArguments
	}
	levelTI := volume.MakePackedTransferInfo(info, levelVolume(info))
	src := t.image(face, level)[volume.Offset(info, vol, levelTI):]
	volume.TransferVolume(vol, info, data, client, src, shadow)
	return gapi.ParseNoError
}

// DestroyTexture destroys a texture. Samplers that reference it fall
// back to the default texture.
func (g *GAPI) DestroyTexture(id gapi.ResourceID) gapi.ParseError {
	if !g.textures.Destroy(id) {
		return gapi.ParseInvalidArguments
	}
	g.validateEffect = true
	return gapi.ParseNoError
}

func (g *GAPI) releaseTexture(t *texture) {
	g.releaseNativeTexture(t)
}

func (g *GAPI) releaseNativeTexture(t *texture) {
	tex, view := t.native, t.view
	t.native, t.view = nil, nil
	if tex == nil {
		return
	}
	g.retire(t, func() {
		g.device.DestroyTextureView(view)
		g.device.DestroyTexture(tex)
	})
}

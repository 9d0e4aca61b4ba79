// Package volume computes mip level geometry and copies texel volumes
// between buffers with different row and slice pitches.
package volume

import (
	"math"

	"github.com/gogpu/gapi"
)

// MipLevelInfo is the block-aligned geometry of one mip level.
type MipLevelInfo struct {
	BlockBPP   uint32
	BlockSizeX uint32
	BlockSizeY uint32
	Width      uint32
	Height     uint32
	Depth      uint32
}

// TransferInfo describes the memory layout of a volume in a buffer.
type TransferInfo struct {
	// RowSize is the number of bytes in one row of blocks.
	RowSize uint32
	// RowPitch is the distance between two rows.
	RowPitch uint32
	// SliceSize is the number of bytes spanned by one slice.
	SliceSize uint32
	// SlicePitch is the distance between two slices.
	SlicePitch uint32
	// TotalSize is the number of bytes spanned by the whole volume.
	TotalSize uint32
	// Packed is set when rows and slices are contiguous.
	Packed bool
	// Overflow is set when the volume spans more than 32 bits of bytes.
	// SliceSize and TotalSize are meaningless then.
	Overflow bool
}

func roundUp(v, block uint32) uint32 {
	return (v + block - 1) / block * block
}

// MakeMipLevelInfo derives the geometry of mip level level of a texture
// with the given base dimensions. Dimensions are clamped to 1 and then
// rounded up to the block size of the format.
func MakeMipLevelInfo(format gapi.TextureFormat, width, height, depth, level uint32) MipLevelInfo {
	b := format.Block()
	return MipLevelInfo{
		BlockBPP:   b.BytesPerBlock,
		BlockSizeX: b.Width,
		BlockSizeY: b.Height,
		Width:      roundUp(max(1, width>>level), b.Width),
		Height:     roundUp(max(1, height>>level), b.Height),
		Depth:      max(1, depth>>level),
	}
}

// CheckVolume reports whether vol is non-empty, block aligned and lies
// entirely inside the level.
func CheckVolume(info MipLevelInfo, vol gapi.Volume) bool {
	if vol.Width == 0 || vol.Height == 0 || vol.Depth == 0 {
		return false
	}
	if vol.X%info.BlockSizeX != 0 || vol.Width%info.BlockSizeX != 0 {
		return false
	}
	if vol.Y%info.BlockSizeY != 0 || vol.Height%info.BlockSizeY != 0 {
		return false
	}
	// Compare against the remaining extent so the sums cannot overflow.
	return vol.X < info.Width && vol.Width <= info.Width-vol.X &&
		vol.Y < info.Height && vol.Height <= info.Height-vol.Y &&
		vol.Z < info.Depth && vol.Depth <= info.Depth-vol.Z
}

// MakeTransferInfo describes vol laid out with the given pitches.
func MakeTransferInfo(info MipLevelInfo, vol gapi.Volume, rowPitch, slicePitch uint32) TransferInfo {
	rowSize := vol.Width / info.BlockSizeX * info.BlockBPP
	rows := uint64(vol.Height / info.BlockSizeY)
	sliceSize := uint64(rowSize)
	if rows > 0 {
		sliceSize = (rows-1)*uint64(rowPitch) + uint64(rowSize)
	}
	total := sliceSize
	if vol.Depth > 0 && sliceSize <= math.MaxUint32 {
		total = uint64(vol.Depth-1)*uint64(slicePitch) + sliceSize
	}
	return TransferInfo{
		RowSize:    rowSize,
		RowPitch:   rowPitch,
		SliceSize:  uint32(sliceSize),
		SlicePitch: slicePitch,
		TotalSize:  uint32(total),
		Packed:     rowSize == rowPitch && (vol.Depth == 1 || sliceSize == uint64(slicePitch)),
		Overflow:   total > math.MaxUint32,
	}
}

// MakePackedTransferInfo describes vol laid out without padding.
func MakePackedTransferInfo(info MipLevelInfo, vol gapi.Volume) TransferInfo {
	rowSize := vol.Width / info.BlockSizeX * info.BlockBPP
	sliceSize := vol.Height / info.BlockSizeY * rowSize
	return MakeTransferInfo(info, vol, rowSize, sliceSize)
}

// CheckTransferInfo reports whether the pitches can hold the rows and
// slices they describe and the whole span is addressable.
func CheckTransferInfo(ti TransferInfo, depth uint32) bool {
	if ti.Overflow || ti.RowPitch < ti.RowSize {
		return false
	}
	return depth <= 1 || ti.SlicePitch >= ti.SliceSize
}

// LevelSize returns the packed byte size of a whole mip level.
func LevelSize(info MipLevelInfo) uint64 {
	return uint64(info.Width/info.BlockSizeX*info.BlockBPP) *
		uint64(info.Height/info.BlockSizeY) * uint64(info.Depth)
}

// Offset returns the byte offset of the origin of vol inside a buffer
// laid out with the pitches of ti.
func Offset(info MipLevelInfo, vol gapi.Volume, ti TransferInfo) uint32 {
	return vol.Z*ti.SlicePitch +
		vol.Y/info.BlockSizeY*ti.RowPitch +
		vol.X/info.BlockSizeX*info.BlockBPP
}

// TransferVolume copies the texels of vol from src to dst. Both buffers
// start at the origin of the volume and must hold TotalSize bytes of
// their transfer info. A single copy is used when both sides are packed.
func TransferVolume(vol gapi.Volume, info MipLevelInfo, dst []byte, dstTI TransferInfo, src []byte, srcTI TransferInfo) {
	if dstTI.Packed && srcTI.Packed {
		copy(dst[:srcTI.TotalSize], src[:srcTI.TotalSize])
		return
	}
	rows := vol.Height / info.BlockSizeY
	rowSize := srcTI.RowSize
	for z := range vol.Depth {
		d := dst[z*dstTI.SlicePitch:]
		s := src[z*srcTI.SlicePitch:]
		for y := range rows {
			copy(d[y*dstTI.RowPitch:y*dstTI.RowPitch+rowSize], s[y*srcTI.RowPitch:y*srcTI.RowPitch+rowSize])
		}
	}
}

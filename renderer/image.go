package renderer

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/gogpu/gapi"
)

// UploadImage creates 2D texture id from img with levels mip levels, zero
// for the full chain. The format must be FormatARGB8 or FormatXRGB8;
// smaller levels are scaled from the base image.
func UploadImage(g gapi.GAPI, id gapi.ResourceID, img image.Image, format gapi.TextureFormat, levels uint32) error {
	if format != gapi.FormatARGB8 && format != gapi.FormatXRGB8 {
		return fmt.Errorf("renderer: upload image as %s: %w", format, gapi.ErrInvalidArguments)
	}
	b := img.Bounds()
	w, h := uint32(b.Dx()), uint32(b.Dy())
	if w == 0 || h == 0 {
		return fmt.Errorf("renderer: upload empty image: %w", gapi.ErrInvalidArguments)
	}
	full := mipCount(max(w, h))
	if levels == 0 || levels > full {
		levels = full
	}
	if err := g.CreateTexture2D(id, w, h, levels, format, 0).Err(); err != nil {
		return fmt.Errorf("renderer: create image texture: %w", err)
	}

	base := image.NewNRGBA(image.Rect(0, 0, int(w), int(h)))
	draw.Draw(base, base.Bounds(), img, b.Min, draw.Src)
	level := base
	for l := range levels {
		if l > 0 {
			lw, lh := max(1, w>>l), max(1, h>>l)
			level = image.NewNRGBA(image.Rect(0, 0, int(lw), int(lh)))
			draw.BiLinear.Scale(level, level.Bounds(), base, base.Bounds(), draw.Src, nil)
		}
		texels := argbTexels(level, format == gapi.FormatXRGB8)
		lb := level.Bounds()
		vol := gapi.Volume{Width: uint32(lb.Dx()), Height: uint32(lb.Dy()), Depth: 1}
		if err := g.SetTextureData(id, vol, l, gapi.FacePositiveX, vol.Width*4, 0, texels).Err(); err != nil {
			g.DestroyTexture(id)
			return fmt.Errorf("renderer: upload level %d: %w", l, err)
		}
	}
	return nil
}

// NewTextureFromImage uploads img into a new texture.
func (r *Renderer) NewTextureFromImage(img image.Image, levels uint32) (*Texture, error) {
	t := &Texture{r: r, id: r.allocID()}
	if err := UploadImage(r.g, t.id, img, gapi.FormatARGB8, levels); err != nil {
		r.releaseID(t.id)
		return nil, err
	}
	return t, nil
}

func mipCount(size uint32) uint32 {
	n := uint32(1)
	for size > 1 {
		size >>= 1
		n++
	}
	return n
}

// argbTexels converts an NRGBA image to little-endian ARGB8 texels, which
// are stored as B, G, R, A bytes.
func argbTexels(img *image.NRGBA, opaque bool) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*4)
	for y := range b.Dy() {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			a := row[x+3]
			if opaque {
				a = 0xff
			}
			out = append(out, row[x+2], row[x+1], row[x], a)
		}
	}
	return out
}

package analyzer

import (
	"fmt"
	"image"
	"image/color"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
	xdraw "golang.org/x/image/draw"
)

// Isolate keeps the pixels of img selected by mask and paints every other pixel opaque black.
// The result is a three-channel (opaque) image with the same dimensions as img.
func Isolate(img image.Image, mask *Mask) (*image.RGBA, error) {
	bounds := img.Bounds()
	if mask == nil || mask.Width != bounds.Dx() || mask.Height != bounds.Dy() {
		got := "nil"
		if mask != nil {
			got = fmt.Sprintf("%dx%d", mask.Width, mask.Height)
		}
		return nil, apperrors.NewDimensionMismatchError(
			fmt.Sprintf("mask %s does not match image %dx%d", got, bounds.Dx(), bounds.Dy()), nil)
	}

	out := toRGB(img)
	for y := 0; y < mask.Height; y++ {
		for x := 0; x < mask.Width; x++ {
			if !mask.At(x, y) {
				out.SetRGBA(x, y, opaqueBlack)
			}
		}
	}
	return out, nil
}

// toRGB copies img into an origin-anchored RGBA with alpha forced to opaque.
// Color samples of translucent sources are kept un-premultiplied, then alpha is dropped.
func toRGB(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		xdraw.Draw(out, out.Bounds(), img, bounds.Min, xdraw.Src)
		return out
	}

	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			c := color.NRGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)
			i := out.PixOffset(x, y)
			out.Pix[i+0] = c.R
			out.Pix[i+1] = c.G
			out.Pix[i+2] = c.B
			out.Pix[i+3] = 0xff
		}
	}
	return out
}

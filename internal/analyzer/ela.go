package analyzer

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
	"github.com/gen2brain/jpegli"
)

// stdlibRecompressor round-trips through image/jpeg (4:2:0 chroma subsampling)
type stdlibRecompressor struct{}

// NewStdlibRecompressor creates the default JPEG recompressor
func NewStdlibRecompressor() Recompressor {
	return stdlibRecompressor{}
}

func (stdlibRecompressor) Name() string { return string(CodecStdlib) }

func (stdlibRecompressor) Recompress(img *image.RGBA, quality int) (image.Image, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return jpeg.Decode(&buf)
}

// jpegliRecompressor encodes with jpegli and decodes with image/jpeg
type jpegliRecompressor struct{}

// NewJpegliRecompressor creates a recompressor backed by the jpegli encoder
func NewJpegliRecompressor() Recompressor {
	return jpegliRecompressor{}
}

func (jpegliRecompressor) Name() string { return string(CodecJpegli) }

func (jpegliRecompressor) Recompress(img *image.RGBA, quality int) (image.Image, error) {
	var buf bytes.Buffer
	err := jpegli.Encode(&buf, img, &jpegli.EncodingOptions{
		Quality:           quality,
		ChromaSubsampling: image.YCbCrSubsampleRatio420,
	})
	if err != nil {
		return nil, err
	}
	return jpeg.Decode(&buf)
}

// NewRecompressor returns the recompressor for codec
func NewRecompressor(codec Codec) (Recompressor, error) {
	switch codec {
	case CodecStdlib, "":
		return NewStdlibRecompressor(), nil
	case CodecJpegli:
		return NewJpegliRecompressor(), nil
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported codec %q", codec), nil)
}

type errorLevelAnalyzer struct {
	recompressor Recompressor
}

// NewErrorLevelAnalyzer creates an analyzer that recompresses with r
func NewErrorLevelAnalyzer(r Recompressor) ErrorLevelAnalyzer {
	if r == nil {
		r = NewStdlibRecompressor()
	}
	return &errorLevelAnalyzer{recompressor: r}
}

// Analyze recompresses img at quality, takes the per-channel absolute difference
// against the original and rescales it so the largest difference becomes 255.
// Quality outside [1, 100] is clamped.
func (e *errorLevelAnalyzer) Analyze(img image.Image, quality int) (*ELAResult, error) {
	quality = clampInt(quality, 1, 100)

	original := toRGB(img)
	decoded, err := e.recompressor.Recompress(original, quality)
	if err != nil {
		return nil, apperrors.NewCodecError(fmt.Sprintf("%s recompression failed", e.recompressor.Name()), err)
	}
	if decoded.Bounds().Dx() != original.Rect.Dx() || decoded.Bounds().Dy() != original.Rect.Dy() {
		return nil, apperrors.NewCodecError(
			fmt.Sprintf("%s recompression changed dimensions from %dx%d to %dx%d", e.recompressor.Name(),
				original.Rect.Dx(), original.Rect.Dy(), decoded.Bounds().Dx(), decoded.Bounds().Dy()), nil)
	}
	recompressed := toRGB(decoded)

	out := image.NewRGBA(original.Rect)
	var maxDiff uint8
	var sum uint64
	width, height := original.Rect.Dx(), original.Rect.Dy()
	for y := 0; y < height; y++ {
		a := original.Pix[y*original.Stride : y*original.Stride+width*4]
		b := recompressed.Pix[y*recompressed.Stride : y*recompressed.Stride+width*4]
		d := out.Pix[y*out.Stride : y*out.Stride+width*4]
		for i := 0; i < len(a); i += 4 {
			for ch := 0; ch < 3; ch++ {
				diff := absDiff(a[i+ch], b[i+ch])
				d[i+ch] = diff
				sum += uint64(diff)
				if diff > maxDiff {
					maxDiff = diff
				}
			}
			d[i+3] = 0xff
		}
	}

	scale := uint32(maxDiff)
	if scale == 0 {
		scale = 1
	}
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i+0] = uint8(uint32(out.Pix[i+0]) * 255 / scale)
		out.Pix[i+1] = uint8(uint32(out.Pix[i+1]) * 255 / scale)
		out.Pix[i+2] = uint8(uint32(out.Pix[i+2]) * 255 / scale)
	}

	var mean float64
	if n := width * height * 3; n > 0 {
		mean = float64(sum) / float64(n)
	}

	return &ELAResult{Image: out, MaxDiff: maxDiff, MeanDiff: mean}, nil
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

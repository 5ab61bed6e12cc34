package analyzer

import (
	"fmt"
	"image"
	"math"
	"sort"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
)

// segmenter implements Segmenter by thresholding the upsampled richness field
type segmenter struct {
	scorer    TextureScorer
	patchSize int
}

// NewSegmenter creates a segmenter scoring patches of patchSize pixels
func NewSegmenter(scorer TextureScorer, patchSize int) Segmenter {
	return &segmenter{scorer: scorer, patchSize: patchSize}
}

// Segment labels every pixel whose upsampled richness is at or above the
// thresholdPercentile-th percentile as rich; the poor mask is its exact complement.
func (s *segmenter) Segment(img image.Image, thresholdPercentile float64) (*Segmentation, error) {
	if math.IsNaN(thresholdPercentile) || thresholdPercentile < 0 || thresholdPercentile > 100 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("threshold percentile must be within [0, 100], got %g", thresholdPercentile), nil)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, apperrors.NewValidationError("image has no pixels", nil)
	}

	richness, err := s.scorer.Score(img, s.patchSize)
	if err != nil {
		return nil, err
	}

	field := upsampleBilinear(richness, width, height)
	threshold := percentile(field, thresholdPercentile)

	rich := NewMask(width, height)
	for i, v := range field {
		rich.bits[i] = v >= threshold
	}

	return &Segmentation{
		Rich:      rich,
		Poor:      rich.Not(),
		Threshold: threshold,
		Richness:  richness,
	}, nil
}

// upsampleBilinear resizes the richness map to width x height using pixel-center
// aligned bilinear interpolation with edge clamping. An empty map yields all zeros.
func upsampleBilinear(m *RichnessMap, width, height int) []float64 {
	out := make([]float64, width*height)
	if m.Empty() {
		return out
	}

	xs := bilinearTaps(m.Cols, width)
	ys := bilinearTaps(m.Rows, height)

	// horizontal pass, one row of the source map at a time
	horiz := make([]float64, m.Rows*width)
	for r := 0; r < m.Rows; r++ {
		src := m.Values[r*m.Cols : (r+1)*m.Cols]
		dst := horiz[r*width : (r+1)*width]
		for x, tap := range xs {
			dst[x] = tap.mix(src[tap.lo], src[tap.hi])
		}
	}

	for y, tap := range ys {
		top := horiz[tap.lo*width : (tap.lo+1)*width]
		bottom := horiz[tap.hi*width : (tap.hi+1)*width]
		dst := out[y*width : (y+1)*width]
		for x := range dst {
			dst[x] = tap.mix(top[x], bottom[x])
		}
	}
	return out
}

type bilinearTap struct {
	lo, hi int
	t      float64
}

func (tap bilinearTap) mix(a, b float64) float64 {
	return a + tap.t*(b-a)
}

func bilinearTaps(in, out int) []bilinearTap {
	taps := make([]bilinearTap, out)
	scale := float64(in) / float64(out)
	for i := range taps {
		src := (float64(i)+0.5)*scale - 0.5
		lo := math.Floor(src)
		t := src - lo
		l := int(lo)
		taps[i] = bilinearTap{
			lo: clampInt(l, 0, in-1),
			hi: clampInt(l+1, 0, in-1),
			t:  t,
		}
	}
	return taps
}

// percentile returns the p-th percentile of values using linear interpolation
// between the closest ranks, matching numpy's default method.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	t := pos - float64(lo)
	a, b := sorted[lo], sorted[lo+1]
	if t >= 0.5 {
		return b - (b-a)*(1-t)
	}
	return a + (b-a)*t
}

package analyzer

import (
	"image"
	"image/draw"
	"math"
)

const (
	lbpRadius = 2
	lbpPoints = 8 * lbpRadius

	// lbpNonUniform is the code shared by every pattern with more than two transitions
	lbpNonUniform = lbpPoints + 1
)

// lbpOffsets holds the (row, col) sample offsets of the circular neighborhood.
// Offsets are rounded to 5 decimals so that axis-aligned samples land exactly on pixels.
var lbpRowOffsets, lbpColOffsets = func() (dr, dc [lbpPoints]float64) {
	for i := 0; i < lbpPoints; i++ {
		angle := 2 * math.Pi * float64(i) / float64(lbpPoints)
		dr[i] = round5(-lbpRadius * math.Sin(angle))
		dc[i] = round5(lbpRadius * math.Cos(angle))
	}
	return dr, dc
}()

func round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// toGray converts any image to an origin-anchored 8-bit luma image
func toGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	if g, ok := img.(*image.Gray); ok && bounds.Min == (image.Point{}) {
		return g
	}
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

// lbpImage computes rotation-invariant uniform LBP codes (radius 2, 16 points)
type lbpImage struct {
	gray   *image.Gray
	border BorderMode
	width  int
	height int
}

func newLBPImage(gray *image.Gray, border BorderMode) *lbpImage {
	b := gray.Bounds()
	return &lbpImage{gray: gray, border: border, width: b.Dx(), height: b.Dy()}
}

// pixel returns the luma at integer (r, c), resolving out-of-range samples with the border mode
func (l *lbpImage) pixel(r, c int) float64 {
	if r < 0 || r >= l.height || c < 0 || c >= l.width {
		if l.border == BorderConstant {
			return 0
		}
		r = clampInt(r, 0, l.height-1)
		c = clampInt(c, 0, l.width-1)
	}
	return float64(l.gray.Pix[r*l.gray.Stride+c])
}

// sample bilinearly interpolates the luma at fractional (r, c).
// Equal corner values interpolate to exactly that value.
func (l *lbpImage) sample(r, c float64) float64 {
	minR, minC := math.Floor(r), math.Floor(c)
	maxR, maxC := math.Ceil(r), math.Ceil(c)
	dr, dc := r-minR, c-minC

	tl := l.pixel(int(minR), int(minC))
	tr := l.pixel(int(minR), int(maxC))
	bl := l.pixel(int(maxR), int(minC))
	br := l.pixel(int(maxR), int(maxC))

	top := tl + dc*(tr-tl)
	bottom := bl + dc*(br-bl)
	return top + dr*(bottom-top)
}

// code returns the LBP code of pixel (r, c): the number of neighbors at least as bright
// as the center when the circular pattern has at most two transitions, otherwise 17.
func (l *lbpImage) code(r, c int) uint8 {
	center := l.pixel(r, c)

	var signed [lbpPoints]bool
	for i := 0; i < lbpPoints; i++ {
		v := l.sample(float64(r)+lbpRowOffsets[i], float64(c)+lbpColOffsets[i])
		signed[i] = v-center >= 0
	}

	changes := 0
	for i := 0; i < lbpPoints-1; i++ {
		if signed[i] != signed[i+1] {
			changes++
		}
	}
	if changes > 2 {
		return lbpNonUniform
	}

	var ones uint8
	for _, s := range signed {
		if s {
			ones++
		}
	}
	return ones
}

// computeRows fills codes for rows [startY, endY)
func (l *lbpImage) computeRows(codes []uint8, startY, endY int) {
	for r := startY; r < endY; r++ {
		row := codes[r*l.width : (r+1)*l.width]
		for c := range row {
			row[c] = l.code(r, c)
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

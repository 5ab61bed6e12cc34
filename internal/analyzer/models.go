package analyzer

import (
	"image"
	"image/color"
	"time"
)

// Label names one of the six artifacts produced by an analysis run
type Label string

const (
	LabelRichMask    Label = "rich_mask"
	LabelPoorMask    Label = "poor_mask"
	LabelRichTexture Label = "rich_texture"
	LabelPoorTexture Label = "poor_texture"
	LabelRichELA     Label = "rich_ela"
	LabelPoorELA     Label = "poor_ela"
)

// Labels lists every artifact label in output order
var Labels = []Label{
	LabelRichMask,
	LabelPoorMask,
	LabelRichTexture,
	LabelPoorTexture,
	LabelRichELA,
	LabelPoorELA,
}

var fileNames = map[Label]string{
	LabelRichMask:    "rich_texture_mask.png",
	LabelPoorMask:    "poor_texture_mask.png",
	LabelRichTexture: "rich_texture.png",
	LabelPoorTexture: "poor_texture.png",
	LabelRichELA:     "rich_texture_ela.png",
	LabelPoorELA:     "poor_texture_ela.png",
}

// FileName returns the fixed file name a sink stores the artifact under
func (l Label) FileName() string {
	return fileNames[l]
}

// RichnessMap holds one texture-richness score per complete patch, row-major
type RichnessMap struct {
	Rows      int
	Cols      int
	PatchSize int
	Values    []float64
}

// At returns the score of the patch at row r, column c
func (m *RichnessMap) At(r, c int) float64 {
	return m.Values[r*m.Cols+c]
}

// Empty reports whether the map has no patches (patch larger than the image)
func (m *RichnessMap) Empty() bool {
	return m.Rows == 0 || m.Cols == 0
}

// Mask is a full-resolution boolean region mask
type Mask struct {
	Width  int
	Height int
	bits   []bool
}

// NewMask allocates an all-false mask
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		bits:   make([]bool, width*height),
	}
}

func (m *Mask) At(x, y int) bool {
	return m.bits[y*m.Width+x]
}

func (m *Mask) Set(x, y int, v bool) {
	m.bits[y*m.Width+x] = v
}

// Not returns the logical complement of the mask
func (m *Mask) Not() *Mask {
	out := NewMask(m.Width, m.Height)
	for i, v := range m.bits {
		out.bits[i] = !v
	}
	return out
}

// Count returns the number of set pixels
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.bits {
		if v {
			n++
		}
	}
	return n
}

// Image renders the mask as an 8-bit grayscale image (255 set, 0 clear)
func (m *Mask) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.bits {
		if v {
			img.Pix[(i/m.Width)*img.Stride+i%m.Width] = 255
		}
	}
	return img
}

// Segmentation is the result of splitting an image into rich and poor regions
type Segmentation struct {
	Rich      *Mask
	Poor      *Mask
	Threshold float64
	Richness  *RichnessMap
}

// ELAResult is a brightness-normalized error level image plus its raw statistics
type ELAResult struct {
	Image    *image.RGBA
	MaxDiff  uint8
	MeanDiff float64
}

// ELAStats summarizes one ELA branch
type ELAStats struct {
	MaxDiff  uint8   `json:"max_diff"`
	MeanDiff float64 `json:"mean_diff"`
}

// Artifact is one labelled image produced by a run
type Artifact struct {
	Label Label
	Image image.Image
}

// AnalysisOutput holds all six artifacts of one run in label order, plus diagnostics
type AnalysisOutput struct {
	Artifacts []Artifact

	Width          int
	Height         int
	RichnessRows   int
	RichnessCols   int
	Threshold      float64
	RichFraction   float64
	RichELA        ELAStats
	PoorELA        ELAStats
	ProcessingTime time.Duration
	Timestamp      time.Time
}

// Get returns the artifact image for a label
func (o *AnalysisOutput) Get(label Label) (image.Image, bool) {
	for _, a := range o.Artifacts {
		if a.Label == label {
			return a.Image, true
		}
	}
	return nil, false
}

var opaqueBlack = color.RGBA{A: 0xff}

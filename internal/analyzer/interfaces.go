package analyzer

import (
	"context"
	"image"
)

// ImageAnalyzer runs the full texture segmentation + error level analysis pipeline
type ImageAnalyzer interface {
	Analyze(ctx context.Context, img image.Image, options AnalysisOptions) (*AnalysisOutput, error)

	// Lifecycle management
	Close() error
}

// TextureScorer computes the per-patch richness field of an image
type TextureScorer interface {
	Score(img image.Image, patchSize int) (*RichnessMap, error)
}

// Segmenter splits an image into complementary rich and poor masks
type Segmenter interface {
	Segment(img image.Image, thresholdPercentile float64) (*Segmentation, error)
}

// ErrorLevelAnalyzer recompresses an image and returns the normalized difference
type ErrorLevelAnalyzer interface {
	Analyze(img image.Image, quality int) (*ELAResult, error)
}

// Recompressor performs an in-memory lossy encode/decode round trip
type Recompressor interface {
	Recompress(img *image.RGBA, quality int) (image.Image, error)
	Name() string
}

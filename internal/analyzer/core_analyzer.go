package analyzer

import (
	"context"
	"errors"
	"image"
	"time"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
	"github.com/anime-shed/image-forensics-go/internal/logger"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// coreAnalyzer implements ImageAnalyzer and orchestrates all components
type coreAnalyzer struct {
	workerPool *WorkerPool
	scorers    map[BorderMode]TextureScorer
}

// NewImageAnalyzer creates a new image analyzer with all components
func NewImageAnalyzer() (ImageAnalyzer, error) {
	workerPool := NewWorkerPool(0) // Use default CPU count
	workerPool.Start()

	return &coreAnalyzer{
		workerPool: workerPool,
		scorers: map[BorderMode]TextureScorer{
			BorderReplicate: NewTextureScorer(workerPool, BorderReplicate),
			BorderConstant:  NewTextureScorer(workerPool, BorderConstant),
		},
	}, nil
}

// branchResult is what one Isolate -> ELA chain produces
type branchResult struct {
	isolated *image.RGBA
	ela      *ELAResult
}

// Analyze segments img into rich and poor texture regions, isolates each region and
// runs error level analysis on both. Any failure aborts the run with no partial output.
func (ca *coreAnalyzer) Analyze(ctx context.Context, img image.Image, options AnalysisOptions) (*AnalysisOutput, error) {
	start := time.Now()

	if err := options.Validate(); err != nil {
		return nil, err
	}
	if img == nil {
		return nil, apperrors.NewValidationError("image is required", nil)
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	recompressor, err := NewRecompressor(options.Codec)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	log := logger.WithFields(logrus.Fields{
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
		"codec":  recompressor.Name(),
		"border": options.Border.String(),
	})

	seg, err := NewSegmenter(ca.scorerFor(options.Border), options.PatchSize).Segment(img, options.ThresholdPercentile)
	if err != nil {
		return nil, err
	}
	richFraction := float64(seg.Rich.Count()) / float64(bounds.Dx()*bounds.Dy())
	log.WithFields(logrus.Fields{
		"richness_rows": seg.Richness.Rows,
		"richness_cols": seg.Richness.Cols,
		"threshold":     seg.Threshold,
		"rich_fraction": richFraction,
	}).Debug("Texture segmentation complete")

	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	ela := NewErrorLevelAnalyzer(recompressor)
	var rich, poor branchResult

	g, gctx := errgroup.WithContext(ctx)
	if !options.Concurrent {
		g.SetLimit(1)
	}
	g.Go(func() error {
		return runBranch(gctx, img, seg.Rich, ela, options.ELAQuality, &rich)
	})
	g.Go(func() error {
		return runBranch(gctx, img, seg.Poor, ela, options.ELAQuality, &poor)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"rich_max_diff": rich.ela.MaxDiff,
		"poor_max_diff": poor.ela.MaxDiff,
	}).Debug("Error level analysis complete")

	return &AnalysisOutput{
		Artifacts: []Artifact{
			{Label: LabelRichMask, Image: seg.Rich.Image()},
			{Label: LabelPoorMask, Image: seg.Poor.Image()},
			{Label: LabelRichTexture, Image: rich.isolated},
			{Label: LabelPoorTexture, Image: poor.isolated},
			{Label: LabelRichELA, Image: rich.ela.Image},
			{Label: LabelPoorELA, Image: poor.ela.Image},
		},
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		RichnessRows:   seg.Richness.Rows,
		RichnessCols:   seg.Richness.Cols,
		Threshold:      seg.Threshold,
		RichFraction:   richFraction,
		RichELA:        ELAStats{MaxDiff: rich.ela.MaxDiff, MeanDiff: rich.ela.MeanDiff},
		PoorELA:        ELAStats{MaxDiff: poor.ela.MaxDiff, MeanDiff: poor.ela.MeanDiff},
		ProcessingTime: time.Since(start),
		Timestamp:      start,
	}, nil
}

func runBranch(ctx context.Context, img image.Image, mask *Mask, ela ErrorLevelAnalyzer, quality int, out *branchResult) error {
	isolated, err := Isolate(img, mask)
	if err != nil {
		return err
	}
	if err := checkContext(ctx); err != nil {
		return err
	}
	result, err := ela.Analyze(isolated, quality)
	if err != nil {
		return err
	}
	out.isolated = isolated
	out.ela = result
	return nil
}

func (ca *coreAnalyzer) scorerFor(border BorderMode) TextureScorer {
	if s, ok := ca.scorers[border]; ok {
		return s
	}
	return ca.scorers[BorderReplicate]
}

// checkContext converts a finished context into a typed error
func checkContext(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError("analysis deadline exceeded", err)
	default:
		return apperrors.NewInternalError("analysis cancelled", err)
	}
}

// Close releases the worker pool
func (ca *coreAnalyzer) Close() error {
	if ca.workerPool != nil {
		ca.workerPool.Close()
	}
	return nil
}

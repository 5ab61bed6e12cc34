package service

import (
	"context"
	"io"
	"time"

	"github.com/anime-shed/image-forensics-go/internal/analyzer"
	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
	"github.com/anime-shed/image-forensics-go/internal/logger"
	"github.com/anime-shed/image-forensics-go/internal/observer"
	"github.com/anime-shed/image-forensics-go/internal/repository"
	"github.com/anime-shed/image-forensics-go/internal/storage"
	"github.com/anime-shed/image-forensics-go/pkg/models"
	"github.com/anime-shed/image-forensics-go/pkg/validation"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ForensicsService loads an image, runs segmentation + ELA and stores the artifacts
type ForensicsService interface {
	AnalyzeLocation(ctx context.Context, location, outputPrefix string, options analyzer.AnalysisOptions) (*models.AnalysisResponse, error)
	AnalyzeUpload(ctx context.Context, reader io.Reader, outputPrefix string, options analyzer.AnalysisOptions) (*models.AnalysisResponse, error)

	ValidateLocation(location string) error
}

// forensicsService implements ForensicsService over a single analyzer and sink
type forensicsService struct {
	imageRepo       repository.ImageRepository
	analyzer        analyzer.ImageAnalyzer
	sink            storage.ArtifactSink
	events          observer.Subject
	imageValidator  *validation.ImageValidator
	analysisTimeout time.Duration
}

// NewImageAnalysisService creates a new forensics service.
// A nil publisher disables events; a non-positive timeout leaves the caller's deadline alone.
func NewImageAnalysisService(
	imageRepository repository.ImageRepository,
	imageAnalyzer analyzer.ImageAnalyzer,
	sink storage.ArtifactSink,
	events observer.Subject,
	analysisTimeout time.Duration,
) ForensicsService {
	return &forensicsService{
		imageRepo:       imageRepository,
		analyzer:        imageAnalyzer,
		sink:            sink,
		events:          events,
		imageValidator:  validation.NewImageValidator(),
		analysisTimeout: analysisTimeout,
	}
}

// AnalyzeLocation runs a forensics pass over the image at a URL, blob URL or local path
func (s *forensicsService) AnalyzeLocation(ctx context.Context, location, outputPrefix string, options analyzer.AnalysisOptions) (*models.AnalysisResponse, error) {
	if err := s.ValidateLocation(location); err != nil {
		return nil, err
	}
	return s.run(ctx, location, outputPrefix, options, func() (*repository.LoadedImage, error) {
		return s.imageRepo.FetchImage(ctx, location)
	})
}

// AnalyzeUpload runs a forensics pass over an uploaded image stream
func (s *forensicsService) AnalyzeUpload(ctx context.Context, reader io.Reader, outputPrefix string, options analyzer.AnalysisOptions) (*models.AnalysisResponse, error) {
	return s.run(ctx, "upload", outputPrefix, options, func() (*repository.LoadedImage, error) {
		return s.imageRepo.DecodeUpload(reader)
	})
}

// ValidateLocation validates the image location
func (s *forensicsService) ValidateLocation(location string) error {
	return s.imageRepo.ValidateLocation(location)
}

func (s *forensicsService) run(
	ctx context.Context,
	source, outputPrefix string,
	options analyzer.AnalysisOptions,
	load func() (*repository.LoadedImage, error),
) (*models.AnalysisResponse, error) {
	// Fail fast before touching the network or the disk
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if err := validation.ValidateOutputPrefix(outputPrefix); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	if outputPrefix == "" {
		outputPrefix = id
	}
	start := time.Now()
	s.publish(ctx, observer.AnalysisEvent{EventType: observer.AnalysisStarted, RequestID: id, Source: source})

	fail := func(stage string, err error) (*models.AnalysisResponse, error) {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:      observer.AnalysisFailed,
			RequestID:      id,
			Source:         source,
			ProcessingTime: time.Since(start),
			ErrorMessage:   err.Error(),
			Metadata:       map[string]interface{}{"stage": stage},
		})
		return nil, err
	}

	loaded, err := load()
	if err != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:    observer.ImageLoadFailed,
			RequestID:    id,
			Source:       source,
			ErrorMessage: err.Error(),
		})
		return fail("load", err)
	}
	bounds := loaded.Image.Bounds()
	s.publish(ctx, observer.AnalysisEvent{
		EventType: observer.ImageLoaded,
		RequestID: id,
		Source:    source,
		Success:   true,
		Metadata: map[string]interface{}{
			"width":  bounds.Dx(),
			"height": bounds.Dy(),
			"kind":   loaded.Kind,
		},
	})

	if err := s.imageValidator.ValidateDimensions(bounds.Dx(), bounds.Dy()); err != nil {
		return fail("validate", err)
	}
	var warnings []string
	for _, issue := range s.imageValidator.Inspect(bounds.Dx(), bounds.Dy(), options.PatchSize) {
		warnings = append(warnings, issue.Message)
	}

	analysisCtx := ctx
	if s.analysisTimeout > 0 {
		var cancel context.CancelFunc
		analysisCtx, cancel = context.WithTimeout(ctx, s.analysisTimeout)
		defer cancel()
	}

	output, err := s.analyzer.Analyze(analysisCtx, loaded.Image, options)
	if err != nil {
		return fail("analyze", err)
	}

	locations, err := s.sink.Store(ctx, outputPrefix, output.Artifacts)
	if err != nil {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.NewStorageError("failed to store artifacts", err)
		}
		return fail("store", err)
	}
	s.publish(ctx, observer.AnalysisEvent{
		EventType: observer.ArtifactsStored,
		RequestID: id,
		Source:    source,
		Success:   true,
		Metadata: map[string]interface{}{
			"artifact_count": len(locations),
			"sink":           s.sink.Name(),
			"prefix":         outputPrefix,
		},
	})

	elapsed := time.Since(start)
	response := &models.AnalysisResponse{
		ID:                id,
		Source:            source,
		Timestamp:         output.Timestamp,
		ProcessingTimeSec: elapsed.Seconds(),
		Artifacts:         locations,
		Diagnostics:       toDiagnostics(output, options),
		Warnings:          warnings,
	}

	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		RequestID:      id,
		Source:         source,
		ProcessingTime: elapsed,
		Success:        true,
		Metadata:       map[string]interface{}{"rich_fraction": output.RichFraction},
	})

	logger.WithFields(logrus.Fields{
		"request_id":    id,
		"source":        source,
		"sink":          s.sink.Name(),
		"rich_fraction": output.RichFraction,
		"duration_ms":   elapsed.Milliseconds(),
	}).Debug("Forensics run stored")

	return response, nil
}

func (s *forensicsService) publish(ctx context.Context, event observer.AnalysisEvent) {
	if s.events == nil {
		return
	}
	s.events.NotifyObservers(ctx, event)
}

func toDiagnostics(output *analyzer.AnalysisOutput, options analyzer.AnalysisOptions) models.Diagnostics {
	return models.Diagnostics{
		Width:        output.Width,
		Height:       output.Height,
		RichnessRows: output.RichnessRows,
		RichnessCols: output.RichnessCols,
		Threshold:    output.Threshold,
		RichFraction: output.RichFraction,
		RichELA:      models.ELASummary{MaxDiff: output.RichELA.MaxDiff, MeanDiff: output.RichELA.MeanDiff},
		PoorELA:      models.ELASummary{MaxDiff: output.PoorELA.MaxDiff, MeanDiff: output.PoorELA.MeanDiff},
		PatchSize:    options.PatchSize,
		Percentile:   options.ThresholdPercentile,
		Quality:      options.ELAQuality,
		Codec:        string(options.Codec),
		Border:       options.Border.String(),
	}
}

package analyzer

import (
	"fmt"
	"strings"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
)

// BorderMode selects how LBP samples falling outside the image are resolved
type BorderMode int

const (
	// BorderReplicate clamps samples to the nearest edge pixel
	BorderReplicate BorderMode = iota
	// BorderConstant treats every outside sample as 0
	BorderConstant
)

func (b BorderMode) String() string {
	if b == BorderConstant {
		return "constant"
	}
	return "replicate"
}

// ParseBorderMode accepts "replicate" or "constant"
func ParseBorderMode(s string) (BorderMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "replicate":
		return BorderReplicate, nil
	case "constant":
		return BorderConstant, nil
	}
	return BorderReplicate, fmt.Errorf("unknown border mode %q", s)
}

// Codec selects the lossy codec used for the recompression step
type Codec string

const (
	CodecStdlib Codec = "stdlib"
	CodecJpegli Codec = "jpegli"
)

// ParseCodec accepts "stdlib" or "jpegli"
func ParseCodec(s string) (Codec, error) {
	switch Codec(strings.ToLower(strings.TrimSpace(s))) {
	case "", CodecStdlib:
		return CodecStdlib, nil
	case CodecJpegli:
		return CodecJpegli, nil
	}
	return CodecStdlib, fmt.Errorf("unknown codec %q", s)
}

const (
	DefaultPatchSize           = 8
	DefaultThresholdPercentile = 70.0
	DefaultELAQuality          = 90
)

// AnalysisOptions provides flexible configuration for a forensics run
type AnalysisOptions struct {
	PatchSize           int
	ThresholdPercentile float64
	ELAQuality          int

	Border BorderMode
	Codec  Codec

	// Concurrent runs the rich and poor Isolate->ELA branches in parallel
	Concurrent bool
}

// DefaultOptions returns default analysis options
func DefaultOptions() AnalysisOptions {
	return AnalysisOptions{
		PatchSize:           DefaultPatchSize,
		ThresholdPercentile: DefaultThresholdPercentile,
		ELAQuality:          DefaultELAQuality,
		Border:              BorderReplicate,
		Codec:               CodecStdlib,
		Concurrent:          true,
	}
}

func (opts AnalysisOptions) WithQuality(quality int) AnalysisOptions {
	opts.ELAQuality = quality
	return opts
}

func (opts AnalysisOptions) WithPercentile(percentile float64) AnalysisOptions {
	opts.ThresholdPercentile = percentile
	return opts
}

func (opts AnalysisOptions) WithPatchSize(size int) AnalysisOptions {
	opts.PatchSize = size
	return opts
}

func (opts AnalysisOptions) WithBorder(border BorderMode) AnalysisOptions {
	opts.Border = border
	return opts
}

func (opts AnalysisOptions) WithCodec(codec Codec) AnalysisOptions {
	opts.Codec = codec
	return opts
}

// Sequential disables branch parallelism
func (opts AnalysisOptions) Sequential() AnalysisOptions {
	opts.Concurrent = false
	return opts
}

// Validate rejects out-of-range parameters before any processing happens
func (opts AnalysisOptions) Validate() error {
	if opts.PatchSize < 1 {
		return apperrors.NewValidationError(fmt.Sprintf("patch size must be a positive integer, got %d", opts.PatchSize), nil)
	}
	if opts.ThresholdPercentile < 0 || opts.ThresholdPercentile > 100 || opts.ThresholdPercentile != opts.ThresholdPercentile {
		return apperrors.NewValidationError(fmt.Sprintf("threshold percentile must be within [0, 100], got %g", opts.ThresholdPercentile), nil)
	}
	if opts.ELAQuality < 1 || opts.ELAQuality > 100 {
		return apperrors.NewValidationError(fmt.Sprintf("ELA quality must be within [1, 100], got %d", opts.ELAQuality), nil)
	}
	switch opts.Codec {
	case CodecStdlib, CodecJpegli:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unsupported codec %q", opts.Codec), nil)
	}
	return nil
}

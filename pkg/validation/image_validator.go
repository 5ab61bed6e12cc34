package validation

import (
	"fmt"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
)

// ImageLimits bounds the dimensions of images accepted for analysis
type ImageLimits struct {
	// JPEG cannot encode a side longer than 65535
	MaxWidth  int
	MaxHeight int

	// Upper bound on width*height; the pipeline holds several full-size buffers
	MaxTotalPixels int
}

// DefaultImageLimits returns the default image limits
func DefaultImageLimits() ImageLimits {
	return ImageLimits{
		MaxWidth:       65535,
		MaxHeight:      65535,
		MaxTotalPixels: 100_000_000,
	}
}

// Issue is a non-fatal observation about an input image
type Issue struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "warning", "info"
}

// ImageValidator checks decoded images before they enter the pipeline
type ImageValidator struct {
	limits ImageLimits
}

// NewImageValidator creates an image validator with default limits
func NewImageValidator() *ImageValidator {
	return &ImageValidator{limits: DefaultImageLimits()}
}

// NewImageValidatorWithLimits creates an image validator with custom limits
func NewImageValidatorWithLimits(limits ImageLimits) *ImageValidator {
	return &ImageValidator{limits: limits}
}

// ValidateDimensions rejects empty images and images beyond the configured limits
func (iv *ImageValidator) ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return apperrors.NewValidationError("Image has no pixels", nil).
			WithDetails("dimensions %dx%d", width, height)
	}
	if iv.limits.MaxWidth > 0 && width > iv.limits.MaxWidth {
		return apperrors.NewValidationError(fmt.Sprintf("Image width %d exceeds the limit of %d", width, iv.limits.MaxWidth), nil)
	}
	if iv.limits.MaxHeight > 0 && height > iv.limits.MaxHeight {
		return apperrors.NewValidationError(fmt.Sprintf("Image height %d exceeds the limit of %d", height, iv.limits.MaxHeight), nil)
	}
	if iv.limits.MaxTotalPixels > 0 && width*height > iv.limits.MaxTotalPixels {
		return apperrors.NewValidationError(fmt.Sprintf("Image has %d pixels, limit is %d", width*height, iv.limits.MaxTotalPixels), nil)
	}
	return nil
}

// Inspect reports how the patch grid will treat an image of the given size
func (iv *ImageValidator) Inspect(width, height, patchSize int) []Issue {
	var issues []Issue
	if patchSize <= 0 {
		return issues
	}

	if width < patchSize || height < patchSize {
		issues = append(issues, Issue{
			Type:     "patch_larger_than_image",
			Message:  fmt.Sprintf("Image %dx%d is smaller than one %dpx patch; every pixel is treated as rich", width, height, patchSize),
			Severity: "warning",
		})
		return issues
	}

	if width%patchSize != 0 || height%patchSize != 0 {
		issues = append(issues, Issue{
			Type: "partial_patches",
			Message: fmt.Sprintf("Right %dpx and bottom %dpx are not scored and take their richness from neighboring patches",
				width%patchSize, height%patchSize),
			Severity: "info",
		})
	}
	return issues
}

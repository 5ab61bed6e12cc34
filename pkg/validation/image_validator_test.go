package validation

import (
	"testing"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
)

func TestNewImageValidator(t *testing.T) {
	validator := NewImageValidator()
	if validator == nil {
		t.Fatal("Expected non-nil image validator")
	}
	if validator.limits != DefaultImageLimits() {
		t.Errorf("Expected default limits, got %+v", validator.limits)
	}
}

func TestValidateDimensions(t *testing.T) {
	validator := NewImageValidatorWithLimits(ImageLimits{MaxWidth: 100, MaxHeight: 80, MaxTotalPixels: 6000})

	tests := []struct {
		name          string
		width, height int
		wantErr       bool
	}{
		{"valid", 64, 64, false},
		{"single pixel", 1, 1, false},
		{"zero width", 0, 10, true},
		{"negative height", 10, -1, true},
		{"too wide", 101, 10, true},
		{"too tall", 10, 81, true},
		{"too many pixels", 100, 61, true},
		{"at every limit", 100, 60, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateDimensions(tt.width, tt.height)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateDimensions(%d, %d) error = %v, wantErr %v", tt.width, tt.height, err, tt.wantErr)
			}
			if err != nil && !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestValidateDimensions_ZeroLimitsDisableChecks(t *testing.T) {
	validator := NewImageValidatorWithLimits(ImageLimits{})
	if err := validator.ValidateDimensions(100000, 100000); err != nil {
		t.Errorf("Expected no limit, got %v", err)
	}
}

func TestInspect(t *testing.T) {
	validator := NewImageValidator()

	tests := []struct {
		name          string
		width, height int
		patch         int
		wantTypes     []string
	}{
		{"exact grid", 64, 32, 8, nil},
		{"partial patches", 65, 32, 8, []string{"partial_patches"}},
		{"smaller than patch", 5, 40, 8, []string{"patch_larger_than_image"}},
		{"invalid patch", 64, 64, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := validator.Inspect(tt.width, tt.height, tt.patch)
			if len(issues) != len(tt.wantTypes) {
				t.Fatalf("got %d issues (%+v), want %d", len(issues), issues, len(tt.wantTypes))
			}
			for i, issue := range issues {
				if issue.Type != tt.wantTypes[i] {
					t.Errorf("issue %d type = %s, want %s", i, issue.Type, tt.wantTypes[i])
				}
			}
		})
	}
}

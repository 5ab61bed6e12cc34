package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors(t *testing.T) {
	cause := stderrors.New("boom")

	tests := []struct {
		name       string
		err        *AppError
		wantType   ErrorType
		wantStatus int
	}{
		{"validation", NewValidationError("bad quality", nil), ErrorTypeValidation, http.StatusBadRequest},
		{"decode", NewDecodeError("not an image", cause), ErrorTypeDecode, http.StatusUnprocessableEntity},
		{"dimension", NewDimensionMismatchError("mask 4x4 vs image 8x8", nil), ErrorTypeDimensionMismatch, http.StatusBadRequest},
		{"codec", NewCodecError("encode failed", cause), ErrorTypeCodec, http.StatusInternalServerError},
		{"network", NewNetworkError("fetch failed", cause), ErrorTypeNetwork, http.StatusBadGateway},
		{"storage", NewStorageError("upload failed", cause), ErrorTypeStorage, http.StatusBadGateway},
		{"timeout", NewTimeoutError("deadline", cause), ErrorTypeTimeout, http.StatusGatewayTimeout},
		{"not found", NewNotFoundError("missing", nil), ErrorTypeNotFound, http.StatusNotFound},
		{"internal", NewInternalError("oops", nil), ErrorTypeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Expected type %s, got %s", tt.wantType, tt.err.Type)
			}
			if tt.err.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, tt.err.StatusCode)
			}
		})
	}
}

func TestAppError_ErrorString(t *testing.T) {
	err := NewCodecError("encode failed", stderrors.New("short write"))
	want := "codec: encode failed (caused by: short write)"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}

	plain := NewValidationError("quality out of range", nil)
	if plain.Error() != "validation: quality out of range" {
		t.Errorf("Unexpected error string: %q", plain.Error())
	}
}

func TestIsType_WrappedChain(t *testing.T) {
	base := NewDecodeError("not an image", nil)
	wrapped := fmt.Errorf("loading input: %w", base)

	if !IsType(wrapped, ErrorTypeDecode) {
		t.Error("Expected wrapped decode error to be detected")
	}
	if IsType(wrapped, ErrorTypeCodec) {
		t.Error("Did not expect codec type")
	}
	if GetStatusCode(wrapped) != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", GetStatusCode(wrapped))
	}
	if GetStatusCode(stderrors.New("plain")) != http.StatusInternalServerError {
		t.Error("Expected plain errors to map to 500")
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root")
	err := NewStorageError("upload failed", cause)
	if !stderrors.Is(err, cause) {
		t.Error("Expected errors.Is to reach the cause")
	}
}

func TestWithDetails(t *testing.T) {
	base := NewDimensionMismatchError("mask does not match image", nil)
	detailed := base.WithDetails("mask %dx%d, image %dx%d", 4, 4, 8, 8)

	if detailed.Details != "mask 4x4, image 8x8" {
		t.Errorf("Unexpected details: %q", detailed.Details)
	}
	if base.Details != "" {
		t.Error("WithDetails must not mutate the receiver")
	}
}

package validation

import (
	"net/url"
	"path/filepath"
	"strings"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
)

// LocationKind tells the repository which source can load a location
type LocationKind int

const (
	LocationUnknown LocationKind = iota
	LocationHTTP
	LocationBlob
	LocationLocal
)

func (k LocationKind) String() string {
	switch k {
	case LocationHTTP:
		return "http"
	case LocationBlob:
		return "blob"
	case LocationLocal:
		return "local"
	}
	return "unknown"
}

const blobHostSuffix = ".blob.core.windows.net"

// URLValidator validates image locations: http(s) URLs, Azure blob URLs and local paths
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	allowLocal     bool
}

// NewURLValidator creates a new URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// AllowLocalPaths returns a copy of the validator that also accepts filesystem paths
func (v *URLValidator) AllowLocalPaths() *URLValidator {
	cp := *v
	cp.allowLocal = true
	return &cp
}

// ValidateImageURL validates if the provided URL is acceptable for image processing
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	_, err := v.validateURL(imageURL)
	return err
}

// Classify validates location and reports which kind of source serves it
func (v *URLValidator) Classify(location string) (LocationKind, error) {
	trimmed := strings.TrimSpace(location)
	if trimmed == "" {
		return LocationUnknown, apperrors.NewValidationError("Image location cannot be empty", nil)
	}

	if !looksLikeURL(trimmed) {
		if !v.allowLocal {
			return LocationUnknown, apperrors.NewValidationError("Local paths are not accepted", nil).
				WithDetails("location %q", trimmed)
		}
		if strings.ContainsRune(trimmed, 0) {
			return LocationUnknown, apperrors.NewValidationError("Invalid path", nil)
		}
		return LocationLocal, nil
	}

	parsed, err := v.validateURL(trimmed)
	if err != nil {
		return LocationUnknown, err
	}
	if strings.HasSuffix(strings.ToLower(parsed.Hostname()), blobHostSuffix) {
		return LocationBlob, nil
	}
	return LocationHTTP, nil
}

// ValidateOutputPrefix rejects prefixes that would escape the sink root
func ValidateOutputPrefix(prefix string) error {
	if prefix == "" {
		return nil
	}
	if filepath.IsAbs(prefix) || strings.HasPrefix(prefix, "/") {
		return apperrors.NewValidationError("Output prefix must be relative", nil)
	}
	for _, part := range strings.FieldsFunc(prefix, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return apperrors.NewValidationError("Output prefix must not contain '..'", nil)
		}
	}
	return nil
}

func (v *URLValidator) validateURL(imageURL string) (*url.URL, error) {
	if strings.TrimSpace(imageURL) == "" {
		return nil, apperrors.NewValidationError("URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, apperrors.NewValidationError("Invalid URL format", err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return nil, apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return nil, apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Host) {
		return nil, apperrors.NewValidationError("URL host not allowed", nil)
	}

	return parsedURL, nil
}

// looksLikeURL reports whether s carries a scheme separator
func looksLikeURL(s string) bool {
	i := strings.Index(s, "://")
	// a single letter before ':' is a windows drive, not a scheme
	return i > 1
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}

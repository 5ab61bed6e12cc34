package repository

import (
	"bufio"
	"context"
	"image"
	"io"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
	"github.com/anime-shed/image-forensics-go/internal/storage"
	"github.com/anime-shed/image-forensics-go/pkg/validation"
)

// LocalOpener opens images from the filesystem
type LocalOpener interface {
	Open(path string) (image.Image, error)
}

// Sources groups the backends a repository dispatches to. Nil entries are disabled.
type Sources struct {
	HTTP  storage.ImageFetcher
	Blob  storage.BlobStorage
	Local LocalOpener
}

// imageRepository implements ImageRepository by dispatching on the location kind
type imageRepository struct {
	sources   Sources
	validator *validation.URLValidator
}

// NewImageRepository creates a repository over the given sources
func NewImageRepository(sources Sources) ImageRepository {
	validator := validation.NewURLValidator()
	if sources.Local != nil {
		validator = validator.AllowLocalPaths()
	}
	return &imageRepository{sources: sources, validator: validator}
}

// FetchImage retrieves and decodes the image at location
func (r *imageRepository) FetchImage(ctx context.Context, location string) (*LoadedImage, error) {
	kind, err := r.validator.Classify(location)
	if err != nil {
		return nil, err
	}

	var img image.Image
	switch {
	case kind == validation.LocationBlob && r.sources.Blob != nil:
		img, err = r.sources.Blob.GetImage(ctx, location)
	case kind == validation.LocationBlob || kind == validation.LocationHTTP:
		// public blobs are plain HTTP downloads
		if r.sources.HTTP == nil {
			return nil, r.unavailable(kind)
		}
		img, err = r.sources.HTTP.FetchImage(ctx, location)
	case kind == validation.LocationLocal && r.sources.Local != nil:
		img, err = r.sources.Local.Open(location)
	default:
		return nil, r.unavailable(kind)
	}
	if err != nil {
		return nil, err
	}

	return &LoadedImage{Image: img, Source: location, Kind: kind.String()}, nil
}

// DecodeUpload decodes an uploaded image stream
func (r *imageRepository) DecodeUpload(reader io.Reader) (*LoadedImage, error) {
	br := bufio.NewReader(reader)
	if _, err := br.Peek(1); err != nil {
		return nil, apperrors.NewValidationError("uploaded image is empty", ErrEmptyUpload)
	}

	img, format, err := storage.DecodeImage(br)
	if err != nil {
		return nil, err
	}
	return &LoadedImage{Image: img, Source: "upload", Kind: "upload", Format: format}, nil
}

// ValidateLocation validates if the provided location is acceptable
func (r *imageRepository) ValidateLocation(location string) error {
	_, err := r.validator.Classify(location)
	return err
}

func (r *imageRepository) unavailable(kind validation.LocationKind) error {
	return apperrors.NewValidationError("no image source configured for location", ErrSourceUnavailable).
		WithDetails("kind %s", kind)
}

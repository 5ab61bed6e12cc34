package repository

import (
	"context"
	"image"
	"io"
)

// ImageRepository defines the interface for image data access operations
type ImageRepository interface {
	// FetchImage loads an image from an http(s) URL, an Azure blob URL or a local path
	FetchImage(ctx context.Context, location string) (*LoadedImage, error)

	// DecodeUpload decodes an image from an uploaded stream
	DecodeUpload(r io.Reader) (*LoadedImage, error)

	// ValidateLocation validates if the provided location is acceptable
	ValidateLocation(location string) error
}

// LoadedImage is a decoded input image plus where it came from
type LoadedImage struct {
	Image  image.Image
	Source string
	Kind   string
	Format string
}

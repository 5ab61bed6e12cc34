package storage

import (
	"errors"
	"image"
	"io/fs"
	"os"

	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
	"github.com/disintegration/imaging"
)

// LocalImageSource opens images from the local filesystem
type LocalImageSource struct{}

// NewLocalImageSource creates a filesystem image source
func NewLocalImageSource() *LocalImageSource {
	return &LocalImageSource{}
}

// Open reads and decodes the image at path. EXIF orientation is not applied.
func (s *LocalImageSource) Open(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("image file not found", err).WithDetails("path %q", path)
		}
		return nil, apperrors.NewStorageError("cannot access image file", err)
	}
	if info.IsDir() {
		return nil, apperrors.NewValidationError("image path is a directory", nil).WithDetails("path %q", path)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to decode image", err).WithDetails("path %q", path)
	}
	return img, nil
}

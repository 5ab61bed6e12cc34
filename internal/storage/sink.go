package storage

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path"
	"path/filepath"

	"github.com/anime-shed/image-forensics-go/internal/analyzer"
	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
	"github.com/anime-shed/image-forensics-go/pkg/models"
	"github.com/disintegration/imaging"
)

// ArtifactSink persists the six artifacts of a run under a prefix
type ArtifactSink interface {
	Store(ctx context.Context, prefix string, artifacts []analyzer.Artifact) ([]models.ArtifactLocation, error)
	Name() string
}

// LocalSink writes PNG artifacts into <root>/<prefix>/
type LocalSink struct {
	root string
}

// NewLocalSink creates a sink rooted at dir
func NewLocalSink(dir string) *LocalSink {
	return &LocalSink{root: dir}
}

func (s *LocalSink) Name() string { return "local" }

func (s *LocalSink) Store(ctx context.Context, prefix string, artifacts []analyzer.Artifact) ([]models.ArtifactLocation, error) {
	dir := filepath.Join(s.root, filepath.FromSlash(prefix))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.NewStorageError("failed to create output directory", err).WithDetails("dir %q", dir)
	}

	locations := make([]models.ArtifactLocation, 0, len(artifacts))
	for _, a := range artifacts {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.NewTimeoutError("storing artifacts cancelled", err)
		}

		file := filepath.Join(dir, a.Label.FileName())
		if err := imaging.Save(a.Image, file); err != nil {
			return nil, apperrors.NewStorageError("failed to write artifact", err).WithDetails("file %q", file)
		}
		locations = append(locations, models.ArtifactLocation{
			Label:    string(a.Label),
			FileName: a.Label.FileName(),
			Location: file,
		})
	}
	return locations, nil
}

// AzureSink uploads PNG artifacts as <prefix>/<file name> blobs in one container
type AzureSink struct {
	storage   BlobStorage
	container string
}

// NewAzureSink creates a sink writing into container
func NewAzureSink(storage BlobStorage, container string) *AzureSink {
	return &AzureSink{storage: storage, container: container}
}

func (s *AzureSink) Name() string { return "azure" }

func (s *AzureSink) Store(ctx context.Context, prefix string, artifacts []analyzer.Artifact) ([]models.ArtifactLocation, error) {
	locations := make([]models.ArtifactLocation, 0, len(artifacts))
	var buf bytes.Buffer
	for _, a := range artifacts {
		buf.Reset()
		if err := png.Encode(&buf, a.Image); err != nil {
			return nil, apperrors.NewStorageError("failed to encode artifact", err).WithDetails("label %s", a.Label)
		}

		name := path.Join(prefix, a.Label.FileName())
		location, err := s.storage.PutBlob(ctx, s.container, name, buf.Bytes(), "image/png")
		if err != nil {
			return nil, err
		}
		locations = append(locations, models.ArtifactLocation{
			Label:    string(a.Label),
			FileName: a.Label.FileName(),
			Location: location,
		})
	}
	return locations, nil
}

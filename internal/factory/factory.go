package factory

import (
	"fmt"

	"github.com/anime-shed/image-forensics-go/internal/analyzer"
	"github.com/anime-shed/image-forensics-go/internal/config"
	"github.com/anime-shed/image-forensics-go/internal/repository"
	"github.com/anime-shed/image-forensics-go/internal/storage"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// AnalyzerFactory creates analyzers and the default options they run with
type AnalyzerFactory interface {
	CreateAnalyzer() (analyzer.ImageAnalyzer, error)
	DefaultOptions() (analyzer.AnalysisOptions, error)
}

// StorageFactory creates image sources and artifact sinks
type StorageFactory interface {
	CreateSources(allowLocal bool) (repository.Sources, error)
	CreateSink(storageType StorageType) (storage.ArtifactSink, error)
}

// analyzerFactory implements AnalyzerFactory
type analyzerFactory struct {
	cfg *config.Config
}

// NewAnalyzerFactory creates a new analyzer factory
func NewAnalyzerFactory(cfg *config.Config) AnalyzerFactory {
	return &analyzerFactory{cfg: cfg}
}

func (f *analyzerFactory) CreateAnalyzer() (analyzer.ImageAnalyzer, error) {
	return analyzer.NewImageAnalyzer()
}

// DefaultOptions converts the configured analysis defaults into options
func (f *analyzerFactory) DefaultOptions() (analyzer.AnalysisOptions, error) {
	border, err := analyzer.ParseBorderMode(f.cfg.LBPBorder)
	if err != nil {
		return analyzer.AnalysisOptions{}, err
	}
	codec, err := analyzer.ParseCodec(f.cfg.ELACodec)
	if err != nil {
		return analyzer.AnalysisOptions{}, err
	}

	opts := analyzer.DefaultOptions().
		WithPatchSize(f.cfg.PatchSize).
		WithPercentile(f.cfg.ThresholdPercentile).
		WithQuality(f.cfg.ELAQuality).
		WithBorder(border).
		WithCodec(codec)
	return opts, opts.Validate()
}

// storageFactory implements StorageFactory.
// The blob client is shared between the blob source and the azure sink.
type storageFactory struct {
	cfg  *config.Config
	blob storage.BlobStorage
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateSources builds the HTTP source, the blob source when azure credentials are
// configured, and the filesystem source when allowLocal is set
func (f *storageFactory) CreateSources(allowLocal bool) (repository.Sources, error) {
	opts := storage.DefaultHTTPFetcherOptions()
	opts.Timeout = f.cfg.ImageFetchTimeout

	sources := repository.Sources{HTTP: storage.NewHTTPImageFetcherWithOptions(opts)}
	if f.cfg.Azure.Enabled() {
		blob, err := f.blobStorage()
		if err != nil {
			return repository.Sources{}, err
		}
		sources.Blob = blob
	}
	if allowLocal {
		sources.Local = storage.NewLocalImageSource()
	}
	return sources, nil
}

// CreateSink creates an artifact sink based on the specified type
func (f *storageFactory) CreateSink(storageType StorageType) (storage.ArtifactSink, error) {
	switch storageType {
	case LocalStorage:
		return storage.NewLocalSink(f.cfg.OutputDir), nil
	case AzureStorage:
		if f.cfg.Azure.Container == "" {
			return nil, fmt.Errorf("azure sink requires a container")
		}
		blob, err := f.blobStorage()
		if err != nil {
			return nil, err
		}
		return storage.NewAzureSink(blob, f.cfg.Azure.Container), nil
	default:
		return nil, fmt.Errorf("unsupported sink type: %s", storageType)
	}
}

func (f *storageFactory) blobStorage() (storage.BlobStorage, error) {
	if f.blob != nil {
		return f.blob, nil
	}
	blob, err := storage.NewAzureStorage(f.cfg.Azure.AccountName, f.cfg.Azure.AccountKey)
	if err != nil {
		return nil, err
	}
	f.blob = blob
	return blob, nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	AnalyzerFactory AnalyzerFactory
	StorageFactory  StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		AnalyzerFactory: NewAnalyzerFactory(cfg),
		StorageFactory:  NewStorageFactory(cfg),
	}
}

package container

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/anime-shed/image-forensics-go/internal/analyzer"
	"github.com/anime-shed/image-forensics-go/internal/config"
	"github.com/anime-shed/image-forensics-go/internal/factory"
	"github.com/anime-shed/image-forensics-go/internal/logger"
	"github.com/anime-shed/image-forensics-go/internal/observer"
	"github.com/anime-shed/image-forensics-go/internal/repository"
	"github.com/anime-shed/image-forensics-go/internal/service"
	"github.com/anime-shed/image-forensics-go/internal/storage"
	"github.com/anime-shed/image-forensics-go/internal/transport"
)

// Options tunes how the container builds the graph
type Options struct {
	// AllowLocalPaths lets the repository open filesystem paths
	AllowLocalPaths bool
}

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	imageAnalyzer    analyzer.ImageAnalyzer
	imageRepository  repository.ImageRepository
	sink             storage.ArtifactSink
	metrics          *observer.MetricsObserver
	forensicsService service.ForensicsService
	defaultOptions   analyzer.AnalysisOptions

	handlerOnce sync.Once
	handler     http.Handler
}

// NewContainer creates a new dependency injection container for the HTTP server
func NewContainer(cfg *config.Config) (*Container, error) {
	return NewContainerWithOptions(cfg, Options{})
}

// NewContainerWithOptions builds the dependency graph from cfg
func NewContainerWithOptions(cfg *config.Config, opts Options) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	components := factory.NewComponentFactory(cfg)

	defaultOptions, err := components.AnalyzerFactory.DefaultOptions()
	if err != nil {
		return nil, fmt.Errorf("invalid analysis defaults: %w", err)
	}

	sources, err := components.StorageFactory.CreateSources(opts.AllowLocalPaths)
	if err != nil {
		return nil, fmt.Errorf("failed to create image sources: %w", err)
	}
	sink, err := components.StorageFactory.CreateSink(factory.StorageType(cfg.Sink))
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact sink: %w", err)
	}

	imageAnalyzer, err := components.AnalyzerFactory.CreateAnalyzer()
	if err != nil {
		return nil, err
	}

	metrics := observer.NewMetricsObserver()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	imageRepository := repository.NewImageRepository(sources)
	forensicsService := service.NewImageAnalysisService(imageRepository, imageAnalyzer, sink, publisher, cfg.AnalysisTimeout)

	return &Container{
		config:           cfg,
		imageAnalyzer:    imageAnalyzer,
		imageRepository:  imageRepository,
		sink:             sink,
		metrics:          metrics,
		forensicsService: forensicsService,
		defaultOptions:   defaultOptions,
	}, nil
}

// Handler returns the HTTP handler, building the gin engine on first use
func (c *Container) Handler() http.Handler {
	c.handlerOnce.Do(func() {
		c.handler = transport.NewHandler(c.forensicsService, c.metrics, c.defaultOptions, c.config)
	})
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the forensics service
func (c *Container) Service() service.ForensicsService {
	return c.forensicsService
}

// DefaultOptions returns the analysis options built from the configuration
func (c *Container) DefaultOptions() analyzer.AnalysisOptions {
	return c.defaultOptions
}

// Metrics returns the metrics observer
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Close releases the analyzer worker pool
func (c *Container) Close() error {
	return c.imageAnalyzer.Close()
}

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anime-shed/image-forensics-go/internal/analyzer"
	"github.com/anime-shed/image-forensics-go/internal/config"
	apperrors "github.com/anime-shed/image-forensics-go/internal/errors"
	"github.com/anime-shed/image-forensics-go/internal/logger"
	"github.com/anime-shed/image-forensics-go/internal/observer"
	"github.com/anime-shed/image-forensics-go/internal/service"
	"github.com/anime-shed/image-forensics-go/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health endpoint
var Version = "1.0.0"

// MetricsSource exposes collected run metrics
type MetricsSource interface {
	Snapshot() observer.MetricsSnapshot
}

type handler struct {
	svc      service.ForensicsService
	metrics  MetricsSource
	defaults analyzer.AnalysisOptions
	cfg      *config.Config
}

func NewHandler(svc service.ForensicsService, metrics MetricsSource, defaults analyzer.AnalysisOptions, cfg *config.Config) http.Handler {
	h := &handler{svc: svc, metrics: metrics, defaults: defaults, cfg: cfg}
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", h.metricsSnapshot)
	r.POST("/analyze", h.analyzeLocation)
	r.POST("/analyze/upload", h.analyzeUpload)

	return r
}

func (h *handler) analyzeLocation(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	logRequestStart(c)

	var req models.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError("invalid request format", err))
		return
	}

	options := h.options(req.Quality, req.ThresholdPercentile, req.PatchSize)
	resp, err := h.svc.AnalyzeLocation(ctx, req.Source, req.OutputPrefix, options)
	if err != nil {
		respondError(c, err)
		return
	}

	logCompleted(resp, time.Since(startTime))
	c.JSON(http.StatusOK, resp)
}

func (h *handler) analyzeUpload(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	logRequestStart(c)

	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, bindError("multipart field 'image' is required", err))
		return
	}
	var req models.UploadRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, bindError("invalid form fields", err))
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, apperrors.NewInternalError("failed to open upload", err))
		return
	}
	defer f.Close()

	options := h.options(req.Quality, req.ThresholdPercentile, req.PatchSize)
	resp, err := h.svc.AnalyzeUpload(ctx, f, req.OutputPrefix, options)
	if err != nil {
		respondError(c, err)
		return
	}

	logger.WithField("file_name", file.Filename).Debug("Upload analyzed")
	logCompleted(resp, time.Since(startTime))
	c.JSON(http.StatusOK, resp)
}

// options overlays per-request overrides on the configured defaults
func (h *handler) options(quality *int, percentile *float64, patchSize *int) analyzer.AnalysisOptions {
	opts := h.defaults
	if quality != nil {
		opts = opts.WithQuality(*quality)
	}
	if percentile != nil {
		opts = opts.WithPercentile(*percentile)
	}
	if patchSize != nil {
		opts = opts.WithPatchSize(*patchSize)
	}
	return opts
}

func (h *handler) metricsSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Snapshot())
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "available",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   Version,
	})
}

func logRequestStart(c *gin.Context) {
	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	}).Info("Processing forensics request")
}

func logCompleted(resp *models.AnalysisResponse, duration time.Duration) {
	logger.WithFields(logrus.Fields{
		"id":                 resp.ID,
		"source":             resp.Source,
		"processing_time_ms": duration.Milliseconds(),
		"rich_fraction":      resp.Diagnostics.RichFraction,
		"rich_ela_max":       resp.Diagnostics.RichELA.MaxDiff,
		"poor_ela_max":       resp.Diagnostics.PoorELA.MaxDiff,
	}).Info("Forensics request completed successfully")
}

func bindError(message string, err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &apperrors.AppError{
			Type:       apperrors.ErrorTypeValidation,
			Message:    fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
			StatusCode: http.StatusRequestEntityTooLarge,
			Cause:      err,
		}
	}
	return apperrors.NewValidationError(message, err)
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)
	body := models.ErrorResponse{Error: http.StatusText(code), Message: err.Error()}
	if appErr, ok := apperrors.As(err); ok {
		body.Message = appErr.Message
		body.Details = appErr.Details
	}

	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, body)
}

package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AnalysisEvent represents a forensics run event
type AnalysisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id,omitempty"`
	Source         string                 `json:"source"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of analysis event
type EventType string

const (
	// AnalysisStarted when analysis begins
	AnalysisStarted EventType = "analysis_started"
	// AnalysisCompleted when the pipeline finishes and artifacts are stored
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when any stage fails
	AnalysisFailed EventType = "analysis_failed"
	// ImageLoaded when the input image is decoded
	ImageLoaded EventType = "image_loaded"
	// ImageLoadFailed when the input image cannot be fetched or decoded
	ImageLoadFailed EventType = "image_load_failed"
	// ArtifactsStored when the sink accepted all six artifacts
	ArtifactsStored EventType = "artifacts_stored"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

// LoggingObserver logs analysis events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles analysis events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"source":          event.Source,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalysisStarted:
		entry.Info("Forensic analysis started")
	case AnalysisCompleted:
		entry.Info("Forensic analysis completed")
	case AnalysisFailed:
		entry.Error("Forensic analysis failed")
	case ImageLoaded:
		entry.Debug("Image loaded")
	case ImageLoadFailed:
		entry.Error("Image load failed")
	case ArtifactsStored:
		entry.Debug("Artifacts stored")
	default:
		entry.Info("Analysis event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsSnapshot is a point-in-time copy of the collected counters
type MetricsSnapshot struct {
	TotalAnalyses      int64   `json:"total_analyses"`
	SuccessfulAnalyses int64   `json:"successful_analyses"`
	FailedAnalyses     int64   `json:"failed_analyses"`
	ImageLoadFailures  int64   `json:"image_load_failures"`
	ArtifactsStored    int64   `json:"artifacts_stored"`
	TotalProcessingMs  int64   `json:"total_processing_ms"`
	AvgProcessingMs    float64 `json:"avg_processing_ms"`
	AvgRichFraction    float64 `json:"avg_rich_fraction"`
}

// MetricsObserver collects metrics from analysis events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalAnalyses       int64
	successfulAnalyses  int64
	failedAnalyses      int64
	imageLoadFailures   int64
	artifactsStored     int64
	totalProcessingTime time.Duration
	richFractionSum     float64
	richFractionCount   int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles analysis events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalysisStarted:
		o.totalAnalyses++
	case AnalysisCompleted:
		o.successfulAnalyses++
		o.totalProcessingTime += event.ProcessingTime
		if f, ok := event.Metadata["rich_fraction"].(float64); ok {
			o.richFractionSum += f
			o.richFractionCount++
		}
	case AnalysisFailed:
		o.failedAnalyses++
	case ImageLoadFailed:
		o.imageLoadFailures++
	case ArtifactsStored:
		if n, ok := event.Metadata["artifact_count"].(int); ok {
			o.artifactsStored += int64(n)
		}
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// Snapshot returns current metrics
func (o *MetricsObserver) Snapshot() MetricsSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := MetricsSnapshot{
		TotalAnalyses:      o.totalAnalyses,
		SuccessfulAnalyses: o.successfulAnalyses,
		FailedAnalyses:     o.failedAnalyses,
		ImageLoadFailures:  o.imageLoadFailures,
		ArtifactsStored:    o.artifactsStored,
		TotalProcessingMs:  o.totalProcessingTime.Milliseconds(),
	}
	if o.successfulAnalyses > 0 {
		s.AvgProcessingMs = float64(o.totalProcessingTime.Milliseconds()) / float64(o.successfulAnalyses)
	}
	if o.richFractionCount > 0 {
		s.AvgRichFraction = o.richFractionSum / float64(o.richFractionCount)
	}
	return s
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers fans the event out to all observers concurrently and
// returns once every observer has handled it
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, observer := range observers {
		wg.Add(1)
		go func(obs Observer) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
	wg.Wait()
}

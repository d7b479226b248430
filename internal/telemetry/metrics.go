package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pipeline's application metrics.
type Metrics struct {
	RequestCounter     metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	DocumentsIngested  metric.Int64Counter
	IndexBuildDuration metric.Float64Histogram
	ChunksIndexed      metric.Int64Counter
	AskDuration        metric.Float64Histogram
}

// InitMetrics registers all instruments on the global meter.
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("docuchat-backend")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	documentsIngested, err := meter.Int64Counter(
		"ingest.documents.total",
		metric.WithDescription("Total documents landed in the store"),
	)
	if err != nil {
		return nil, err
	}

	indexBuildDuration, err := meter.Float64Histogram(
		"index.build.duration",
		metric.WithDescription("Vector index build duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunksIndexed, err := meter.Int64Counter(
		"index.chunks.total",
		metric.WithDescription("Total chunks embedded into indexes"),
	)
	if err != nil {
		return nil, err
	}

	askDuration, err := meter.Float64Histogram(
		"chat.ask.duration",
		metric.WithDescription("End-to-end ask duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:     requestCounter,
		RequestDuration:    requestDuration,
		DocumentsIngested:  documentsIngested,
		IndexBuildDuration: indexBuildDuration,
		ChunksIndexed:      chunksIndexed,
		AskDuration:        askDuration,
	}, nil
}

// RecordRequest records HTTP request metrics.
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordIngest records documents landed in the store by source kind.
func (m *Metrics) RecordIngest(kind string, count int64) {
	m.DocumentsIngested.Add(context.Background(), count,
		metric.WithAttributes(attribute.String("ingest.kind", kind)))
}

// RecordIndexBuild records one rebuild of the vector index.
func (m *Metrics) RecordIndexBuild(duration float64, chunks int64) {
	m.IndexBuildDuration.Record(context.Background(), duration)
	m.ChunksIndexed.Add(context.Background(), chunks)
}

// RecordAsk records one completed or failed ask.
func (m *Metrics) RecordAsk(duration float64, status string) {
	m.AskDuration.Record(context.Background(), duration,
		metric.WithAttributes(attribute.String("chat.status", status)))
}

package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
// Make fields public so they can be accessed from other packages.
type AppMetrics struct {
	RouteJobsTotal             metric.Int64Counter
	SourceQueriesTotal         metric.Int64Counter
	SourceQueryDurationSeconds metric.Float64Histogram
	UpstreamRetriesTotal       metric.Int64Counter
	MergeFallbacksTotal        metric.Int64Counter
}

var (
	// Global instance of AppMetrics (initialized once)
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments ONLY ONCE.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("TripForge")
		var err error
		m := &AppMetrics{}

		m.RouteJobsTotal, err = meter.Int64Counter(
			"route_jobs_total",
			metric.WithDescription("Total number of route generation jobs reaching a terminal state"),
			metric.WithUnit("{job}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create route_jobs_total: %v", err)
		}

		m.SourceQueriesTotal, err = meter.Int64Counter(
			"source_queries_total",
			metric.WithDescription("Total number of per-source pipeline runs, by outcome"),
			metric.WithUnit("{query}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create source_queries_total: %v", err)
		}

		m.SourceQueryDurationSeconds, err = meter.Float64Histogram(
			"source_query_duration_seconds",
			metric.WithDescription("Duration of one source's full pipeline stage in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create source_query_duration_seconds: %v", err)
		}

		m.UpstreamRetriesTotal, err = meter.Int64Counter(
			"upstream_retries_total",
			metric.WithDescription("Total number of retried upstream text-generation calls"),
			metric.WithUnit("{retry}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create upstream_retries_total: %v", err)
		}

		m.MergeFallbacksTotal, err = meter.Int64Counter(
			"merge_fallbacks_total",
			metric.WithDescription("Merges that fell back to popularity ranking because no source supplied endpoint coordinates"),
			metric.WithUnit("{merge}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create merge_fallbacks_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		// This indicates a programming error - InitAppMetrics must be called at startup.
		panic("metrics instruments not initialized. Call metrics.InitAppMetrics() first.")
	}
	return appMetrics
}

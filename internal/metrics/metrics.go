package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisorbrief_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"stage"},
	)

	StageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisorbrief_stage_failures_total",
			Help: "Total number of failed pipeline stages",
		},
		[]string{"stage", "kind"},
	)

	ExternalCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisorbrief_external_calls_total",
			Help: "Calls made to external collaborators",
		},
		[]string{"service", "status"},
	)

	RetainedItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisorbrief_retained_items_total",
			Help: "Source items retained by the date filter, by topic and tier",
		},
		[]string{"topic", "tier"},
	)

	CitationsInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisorbrief_citations_inserted_total",
			Help: "Citation markers inserted into briefing sections",
		},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisorbrief_pipeline_runs_total",
			Help: "Completed pipeline runs by outcome",
		},
		[]string{"status"},
	)
)

// RecordStage records the outcome of one stage run.
func RecordStage(stage string, took time.Duration, err error, kind string) {
	StageDuration.WithLabelValues(stage).Observe(took.Seconds())
	if err != nil {
		StageFailures.WithLabelValues(stage, kind).Inc()
	}
}

// RecordExternal counts one collaborator call.
func RecordExternal(service string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	ExternalCalls.WithLabelValues(service, status).Inc()
}

// Serve exposes the default registry on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

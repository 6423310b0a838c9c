package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AnswersRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcat_answers_recorded_total",
			Help: "Answer events written, by result",
		},
		[]string{"result"},
	)

	MasteryUpdateFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mcat_mastery_updates_failed_total",
			Help: "Concept mastery increments that failed",
		},
	)

	Aggregations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcat_progress_aggregations_total",
			Help: "Hierarchical progress aggregations, by outcome",
		},
		[]string{"outcome"},
	)

	AggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mcat_progress_aggregation_duration_seconds",
			Help:    "Duration of hierarchical progress aggregations",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
	)

	QuizSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcat_quiz_sessions_total",
			Help: "Quiz session lifecycle events",
		},
		[]string{"event"},
	)
)

// Registry holds every collector of the application
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		AnswersRecorded,
		MasteryUpdateFailures,
		Aggregations,
		AggregationDuration,
		QuizSessions,
	)
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))

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

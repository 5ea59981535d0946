package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsClient is the counter surface the server and worker report through.
type MetricsClient interface {
	IncrementServerRequestCounter(status string)
	IncrementQueuePushCounter(outcome string)
	IncrementRenditionCounter(status string)
	IncrementJobCounter(outcome string)
}

// DefaultMetricsClient holds all the Prometheus metrics for the application.
type DefaultMetricsClient struct {
	QueuePushCounter     *prometheus.CounterVec
	ServerRequestCounter *prometheus.CounterVec
	RenditionCounter     *prometheus.CounterVec
	JobCounter           *prometheus.CounterVec
}

// NewDefaultMetricsClient initializes and registers Prometheus metrics.
func NewDefaultMetricsClient() (*DefaultMetricsClient, error) {
	metrics := &DefaultMetricsClient{
		QueuePushCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_processing_jobs_enqueued_total",
				Help: "Total number of processing jobs submitted to the queue",
			},
			[]string{"outcome"},
		),
		ServerRequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "server_request_total",
				Help: "Total number of server requests",
			},
			[]string{"status"},
		),
		RenditionCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_renditions_total",
				Help: "Total number of rendition jobs by terminal status",
			},
			[]string{"status"},
		),
		JobCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "media_processing_jobs_total",
				Help: "Total number of processing jobs by overall outcome",
			},
			[]string{"outcome"},
		),
	}

	collectors := []prometheus.Collector{
		metrics.QueuePushCounter,
		metrics.ServerRequestCounter,
		metrics.RenditionCounter,
		metrics.JobCounter,
	}
	for _, collector := range collectors {
		if err := prometheus.Register(collector); err != nil {
			Logger.Error("Failed to register metric", zap.Error(err))
			return nil, err
		}
	}

	return metrics, nil
}

func (m *DefaultMetricsClient) IncrementServerRequestCounter(status string) {
	m.ServerRequestCounter.WithLabelValues(status).Inc()
}

func (m *DefaultMetricsClient) IncrementQueuePushCounter(outcome string) {
	m.QueuePushCounter.WithLabelValues(outcome).Inc()
}

func (m *DefaultMetricsClient) IncrementRenditionCounter(status string) {
	m.RenditionCounter.WithLabelValues(status).Inc()
}

func (m *DefaultMetricsClient) IncrementJobCounter(outcome string) {
	m.JobCounter.WithLabelValues(outcome).Inc()
}

// StartMetricsServer exposes Prometheus metrics until the context is
// cancelled.
func StartMetricsServer(ctx context.Context, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		Logger.Info("Starting metrics server", zap.String("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			Logger.Error("Metrics server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			Logger.Error("Failed to gracefully shutdown metrics server", zap.Error(err))
		}
	}()
}

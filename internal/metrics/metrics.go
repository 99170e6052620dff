package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics holds all Prometheus metrics for the bot.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	AnalysesTotal  *prometheus.CounterVec   // labels: pair, source
	FetchesTotal   *prometheus.CounterVec   // labels: provider, result
	FetchDur       *prometheus.HistogramVec // labels: provider
	DeliveredTotal *prometheus.CounterVec   // labels: kind, result
	ChartFailures  prometheus.Counter
	BatchRuns      *prometheus.CounterVec // labels: trigger
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxpulse_analyses_total",
			Help: "Completed pair analyses by data source (real or demo)",
		}, []string{"pair", "source"}),
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxpulse_fetches_total",
			Help: "Market data fetches by provider and result",
		}, []string{"provider", "result"}),
		FetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fxpulse_fetch_duration_seconds",
			Help:    "Market data fetch latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		DeliveredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxpulse_deliveries_total",
			Help: "Outbound chat messages by kind (text, photo) and result",
		}, []string{"kind", "result"}),
		ChartFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fxpulse_chart_failures_total",
			Help: "Chart renders that failed and fell back to text",
		}),
		BatchRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fxpulse_batch_runs_total",
			Help: "All-pairs batches by trigger (command, digest)",
		}, []string{"trigger"}),
	}

	reg.MustRegister(
		m.AnalysesTotal,
		m.FetchesTotal,
		m.FetchDur,
		m.DeliveredTotal,
		m.ChartFailures,
		m.BatchRuns,
	)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (m *Metrics) ObserveAnalysis(pair, source string) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(pair, source).Inc()
}

func (m *Metrics) ObserveFetch(provider string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(provider, result(err)).Inc()
	m.FetchDur.WithLabelValues(provider).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveDelivery(kind string, err error) {
	if m == nil {
		return
	}
	m.DeliveredTotal.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) ObserveChartFailure() {
	if m == nil {
		return
	}
	m.ChartFailures.Inc()
}

func (m *Metrics) ObserveBatch(trigger string) {
	if m == nil {
		return
	}
	m.BatchRuns.WithLabelValues(trigger).Inc()
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics server backed by gatherer.
func NewServer(addr string, gatherer prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	logger := log.With().Str("component", "metrics").Logger()
	go func() {
		logger.Info().Str("addr", s.addr).Msg("Metrics server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the server mux, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

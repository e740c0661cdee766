package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fin_advisor_build_info",
			Help: "Build information of the financial advisor service",
		},
		[]string{"version"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fin_advisor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fin_advisor_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fin_advisor_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fin_advisor_llm_requests_total",
			Help: "Total number of LLM completions by adapter and outcome",
		},
		[]string{"adapter", "status"},
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fin_advisor_llm_request_duration_seconds",
			Help:    "Duration of LLM completions in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"adapter"},
	)

	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fin_advisor_llm_tokens_total",
			Help: "Total number of LLM tokens by direction",
		},
		[]string{"direction"},
	)

	MetaPromptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fin_advisor_meta_prompts_total",
			Help: "Meta-prompts generated, by result (rendered, empty, fallback, cached)",
		},
		[]string{"result"},
	)

	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fin_advisor_dataset_rows",
			Help: "Rows loaded per profile dataset",
		},
		[]string{"table"},
	)
)

// RecordLLMRequest records the outcome and latency of one completion.
func RecordLLMRequest(adapter string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	LLMRequestsTotal.WithLabelValues(adapter, status).Inc()
	LLMRequestDuration.WithLabelValues(adapter).Observe(duration.Seconds())
}

// RecordLLMTokens records token usage reported by the provider.
func RecordLLMTokens(input, output int64) {
	LLMTokensTotal.WithLabelValues("input").Add(float64(input))
	LLMTokensTotal.WithLabelValues("output").Add(float64(output))
}

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Use the route pattern if available, otherwise use the path
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := strconv.Itoa(ww.Status())
		duration := time.Since(start).Seconds()

		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

package metrics

import (
	"net/http"
	"time"

	"cscript/pkg/engine"
	"cscript/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder counts context operations. It implements engine.Observer and
// can be shared by any number of contexts.
type Recorder struct {
	operationsTotal   *prometheus.CounterVec
	errorsTotal       *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.DefaultRegisterer
// to expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		operationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cscript_operations_total",
				Help: "Total number of context operations",
			},
			[]string{"op", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cscript_errors_total",
				Help: "Failed context operations by error kind",
			},
			[]string{"op", "kind"},
		),
		operationDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cscript_operation_duration_seconds",
				Help:    "Context operation duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"op"},
		),
	}
}

func (r *Recorder) OperationFinished(op engine.Operation, elapsed time.Duration, err *engine.ScriptError) {
	result := "ok"
	if err != nil {
		result = "error"
		r.errorsTotal.WithLabelValues(string(op), string(err.Kind)).Inc()
	}
	r.operationsTotal.WithLabelValues(string(op), result).Inc()
	r.operationDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
}

// HandlerOptions tunes the /metrics router. Zero values disable the
// corresponding middleware.
type HandlerOptions struct {
	RateLimit      int           // requests per RateWindow per client IP
	RateWindow     time.Duration // defaults to one minute
	AllowedOrigins []string      // CORS origins for browser dashboards
}

// Handler serves the collectors gathered by g on /metrics.
func Handler(g prometheus.Gatherer, opts HandlerOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(logger.Middleware)

	if opts.RateLimit > 0 {
		window := opts.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		r.Use(httprate.LimitByIP(opts.RateLimit, window))
	}

	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "OPTIONS"},
			MaxAge:         300,
		}))
	}

	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}

package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "carehub"

var (
	httpBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	dbBuckets   = []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5}
	jobBuckets  = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60}
)

// Prom holds every collector both binaries export. A nil *Prom is valid and
// records nothing.
type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	JobDuration  *prometheus.HistogramVec
	JobResults   *prometheus.CounterVec
	JobsInFlight prometheus.Gauge

	PaymentEvents *prometheus.CounterVec
	AuthAttempts  *prometheus.CounterVec
}

func counterVec(subsystem, name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
	}, labels)
}

func histogramVec(subsystem, name, help string, buckets []float64, labels ...string) *prometheus.HistogramVec {
	return prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help, Buckets: buckets,
	}, labels)
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: counterVec("http", "requests_total",
			"HTTP requests by route template and status.", "method", "route", "status"),
		RequestsDuration: histogramVec("http", "request_duration_seconds",
			"HTTP request latency.", httpBuckets, "method", "route", "status"),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http", Name: "in_flight_requests",
			Help: "Requests currently being served.",
		}, []string{"method", "route"}),

		DbQueryDuration: histogramVec("db", "query_duration_seconds",
			"Repository operation latency; status is ok, miss or error.", dbBuckets, "op", "status"),
		DbErrorsTotal: counterVec("db", "errors_total",
			"Driver and server errors by repository operation and class.", "op", "class"),

		JobDuration: histogramVec("jobs", "duration_seconds",
			"Job run time by type and result.", jobBuckets, "job_type", "result"),
		JobResults: counterVec("jobs", "results_total",
			"Job runs by type and result (done, retry, dead_lettered).", "job_type", "result"),
		JobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "jobs", Name: "in_flight",
			Help: "Jobs executing in this process.",
		}),

		PaymentEvents: counterVec("payments", "webhook_events_total",
			"Gateway events by kind and reconcile outcome.", "kind", "outcome"),
		AuthAttempts: counterVec("auth", "attempts_total",
			"Auth flow operations by result.", "op", "result"),
	}

	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.JobDuration, p.JobResults, p.JobsInFlight,
		p.PaymentEvents, p.AuthAttempts,
	)
	return p
}

// GinHandleMiddleware labels by route template so path ids do not explode
// cardinality. Requests that match no route share one label.
func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		inFlight := p.InFlight.WithLabelValues(method, route)
		inFlight.Inc()
		defer inFlight.Dec()
		start := time.Now()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(time.Since(start).Seconds())
	}
}

func (p *Prom) ObservePaymentEvent(kind, outcome string) {
	if p != nil {
		p.PaymentEvents.WithLabelValues(kind, outcome).Inc()
	}
}

func (p *Prom) ObserveAuth(op, result string) {
	if p != nil {
		p.AuthAttempts.WithLabelValues(op, result).Inc()
	}
}

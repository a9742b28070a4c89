package observe

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetsim/fleetsim/sim"
)

var (
	// Registry is the dedicated Prometheus registry for fleetsim.
	Registry = prometheus.NewRegistry()

	// StepsTotal counts Advance calls across all runs.
	StepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "fleetsim_steps_total", Help: "Simulation steps advanced."},
	)
	// ActiveRuns is the number of simulations between started and a terminal report.
	ActiveRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "fleetsim_active_runs", Help: "Simulations currently running."},
	)
	// RunsTotal counts finished runs by terminal kind.
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fleetsim_runs_total", Help: "Finished simulations by outcome."},
		[]string{"outcome"},
	)
	// Orders tracks order counts of running simulations by status.
	Orders = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "fleetsim_orders", Help: "Orders of running simulations by status."},
		[]string{"simulation_id", "status"},
	)

	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers every collector on Registry. Safe to call repeatedly.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(StepsTotal, ActiveRuns, RunsTotal, Orders)
		Registry.MustRegister(HTTPRequests, HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	RegisterDefault()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// MetricsSink mirrors progress reports into the collectors above.
type MetricsSink struct{}

func (MetricsSink) Report(p sim.Progress) {
	id := p.SimulationID.String()
	switch p.Kind {
	case sim.ProgressStarted:
		ActiveRuns.Inc()
	case sim.ProgressStep:
		StepsTotal.Inc()
	}
	if p.Kind.Terminal() {
		ActiveRuns.Dec()
		RunsTotal.WithLabelValues(string(p.Kind)).Inc()
		Orders.DeletePartialMatch(prometheus.Labels{"simulation_id": id})
		return
	}
	Orders.WithLabelValues(id, "open").Set(float64(p.OpenOrders))
	Orders.WithLabelValues(id, "pickup").Set(float64(p.InPickup))
	Orders.WithLabelValues(id, "transit").Set(float64(p.InTransit))
	Orders.WithLabelValues(id, "closed").Set(float64(p.ClosedOrders))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument records request count and latency for h under the route pattern path.
// Websocket routes should not be wrapped: the recorder hides http.Hijacker.
func Instrument(path string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		status := strconv.Itoa(rec.status)
		HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		HTTPDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

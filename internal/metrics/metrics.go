package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Registrations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "retreat", Name: "registrations_total", Help: "Registered participants by category code",
	}, []string{"code"})
	Scans = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "retreat", Name: "scans_total", Help: "Processed badge scans by mode and outcome",
	}, []string{"mode", "outcome"})
	Signals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "retreat", Name: "presence_signals_total", Help: "Presence signals emitted by type",
	}, []string{"type"})
	Reduce = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "retreat", Name: "snapshot_reduce_seconds", Help: "Time spent reducing a snapshot",
		Buckets: prometheus.DefBuckets,
	})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "retreat", Name: "handler_errors_total", Help: "HTTP handler errors with a 5xx status",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "retreat", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Registrations, Scans, Signals, Reduce, HandlerErrors, DBPing)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveReduce(d time.Duration) { Reduce.Observe(d.Seconds()) }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

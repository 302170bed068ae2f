package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    JobDuration = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "gammadesk",
            Subsystem: "jobs",
            Name:      "duration_seconds",
            Help:      "Duration of scheduled jobs",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"job"},
    )

    JobErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "gammadesk",
            Subsystem: "jobs",
            Name:      "errors_total",
            Help:      "Failed scheduled job items",
        },
        []string{"job"},
    )

    AvailableExpirations = prometheus.NewGaugeVec(
        prometheus.GaugeOpts{
            Namespace: "gammadesk",
            Subsystem: "jobs",
            Name:      "available_expirations",
            Help:      "Upcoming expirations with positions data, per watchlist symbol",
        },
        []string{"symbol"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(JobDuration, JobErrors, AvailableExpirations)
    })
}

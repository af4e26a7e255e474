package syncqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// syncEnqueued counts newly created sync items.
	syncEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "review_sync_enqueued_total",
		Help: "Total number of review sync items created",
	})

	// syncJobs counts finished sync jobs by outcome.
	syncJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "review_sync_jobs_total",
		Help: "Total number of finished review sync jobs by outcome",
	}, []string{"outcome"}) // outcome: completed, failed, stuck

	// syncDuration tracks how long one sync job takes.
	syncDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "review_sync_job_duration_seconds",
		Help:    "Time taken by one review sync job",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
	})

	// syncInFlight tracks jobs running in this process.
	syncInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "review_sync_in_flight",
		Help: "Number of review sync jobs running in this process",
	})
)

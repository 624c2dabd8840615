package jobs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resynth_jobs_submitted_total",
			Help: "Total number of background jobs started",
		},
		[]string{"kind"},
	)

	jobsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resynth_jobs_rejected_total",
			Help: "Total number of background jobs rejected because another job was active",
		},
		[]string{"kind"},
	)

	jobsFinishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resynth_jobs_finished_total",
			Help: "Total number of background jobs finished, by outcome",
		},
		[]string{"kind", "outcome"},
	)

	jobProgressRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resynth_job_progress_ratio",
			Help: "Progress of the active background job between 0 and 1",
		},
	)

	jobActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "resynth_job_active",
			Help: "1 while a background job is running",
		},
	)
)

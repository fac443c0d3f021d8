package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DailyPoolTotal is the total pool of the most recent daily aggregation.
	DailyPoolTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prizepool_daily_total",
		Help: "Total daily prize pool of the last aggregation run",
	})

	CampaignDebits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prizepool_campaign_debits_total",
			Help: "Campaign ledger debits performed by the daily aggregation",
		},
		[]string{"status"}, // debited, exhausted, failed
	)

	AggregationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prizepool_aggregation_runs_total",
			Help: "Daily aggregation runs by outcome",
		},
		[]string{"outcome"}, // created, skipped, failed
	)

	CampaignActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_activations_total",
			Help: "Payment-driven campaign activations",
		},
		[]string{"outcome"}, // activated, duplicate, failed
	)

	AttemptsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "puzzle_attempts_total",
			Help: "Puzzle attempts by scoring outcome",
		},
		[]string{"outcome"}, // first_solve, repeat_solve, unscored
	)

	PayoutsDistributed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payouts_distributed_total",
		Help: "Payout records written by the weekly distributor",
	})

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prizepool_job_duration_seconds",
			Help:    "Duration of scheduled jobs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"job"},
	)
)

func RecordJobDuration(job string, seconds float64) {
	JobDuration.WithLabelValues(job).Observe(seconds)
}

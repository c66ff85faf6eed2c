package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	Submissions         prometheus.Counter
	BoardingPassesSent  prometheus.Counter
	ArrivalsSent        prometheus.Counter
	SendFailures        *prometheus.CounterVec
	EnqueueFailures     prometheus.Counter
	JobsClaimed         prometheus.Counter
	JobsRequeued        prometheus.Counter
	FallbackAssignments *prometheus.CounterVec
	ClaimCycleTime      prometheus.Histogram
	ErrorsCount         *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates metrics registered on reg. Tests pass a fresh
// registry so repeated construction does not panic on duplicate registration.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Submissions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "The total number of accepted submissions",
		}),
		BoardingPassesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "boarding_passes_sent_total",
			Help:      "The total number of boarding notifications sent",
		}),
		ArrivalsSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "arrivals_sent_total",
			Help:      "The total number of arrival notifications sent",
		}),
		SendFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "The total number of failed mail sends",
		}, []string{"notification", "kind"}),
		EnqueueFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enqueue_failures_total",
			Help:      "Arrival jobs that could not be written to the queue store",
		}),
		JobsClaimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_claimed_total",
			Help:      "The total number of arrival jobs claimed for dispatch",
		}),
		JobsRequeued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_requeued_total",
			Help:      "The total number of arrival jobs put back after a failed send",
		}),
		FallbackAssignments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_assignments_total",
			Help:      "Flights synthesized because the flight source could not be used",
		}, []string{"reason"}),
		ClaimCycleTime: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "claim_cycle_seconds",
			Help:      "Time taken by one claim and dispatch cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		agreementsTotal,
		agreementStepFailuresTotal,
		agreementDuration,
	)
}

var (
	// outcome: success|rejected|failed|conflict
	agreementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agreements_total",
			Help:      "Agreement creation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	agreementStepFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agreement_step_failures_total",
			Help:      "Agreement side-effect failures by step and financial phase.",
		},
		[]string{"step", "phase"},
	)

	agreementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agreement_duration_seconds",
			Help:      "Duration of agreement creation in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"outcome"},
	)
)

func IncAgreement(outcome string) {
	agreementsTotal.WithLabelValues(norm(outcome)).Inc()
}

func IncAgreementStepFailure(step, phase string) {
	agreementStepFailuresTotal.WithLabelValues(norm(step), norm(phase)).Inc()
}

func ObserveAgreementDuration(outcome string, seconds float64) {
	agreementDuration.WithLabelValues(norm(outcome)).Observe(seconds)
}

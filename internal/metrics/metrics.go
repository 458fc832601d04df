package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ConversionsTotal counts finished conversions by outcome.
var ConversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "daybook",
	Name:      "conversions_total",
	Help:      "Total daybook conversions by status.",
}, []string{"status"})

var RowsEmitted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "daybook",
	Name:      "rows_emitted_total",
	Help:      "Total NDJSON rows written.",
})

// EntriesSkipped counts ledger entries dropped because they were not mappings.
var EntriesSkipped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "daybook",
	Name:      "entries_skipped_total",
	Help:      "Total malformed ledger entries skipped during flattening.",
})

var ConversionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "daybook",
	Name:      "conversion_duration_seconds",
	Help:      "Time spent converting one daybook document.",
	Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
})

// ObserveSuccess records a completed conversion.
func ObserveSuccess(rows, skipped int, elapsed time.Duration) {
	ConversionsTotal.WithLabelValues(StatusSuccess).Inc()
	RowsEmitted.Add(float64(rows))
	EntriesSkipped.Add(float64(skipped))
	ConversionDuration.Observe(elapsed.Seconds())
}

func ObserveFailure(elapsed time.Duration) {
	ConversionsTotal.WithLabelValues(StatusFailed).Inc()
	ConversionDuration.Observe(elapsed.Seconds())
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful loads.
	OutcomeSuccess = "success"
	// OutcomeError labels loads aborted by a read failure.
	OutcomeError = "error"
)

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconcile_timeline",
			Name:      "loads_total",
			Help:      "Total number of log loads, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	loadDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reconcile_timeline",
			Name:      "load_seconds",
			Help:      "Time spent reassembling, classifying and correlating both logs.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	recordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconcile_timeline",
			Name:      "records_total",
			Help:      "Reassembled log records by process and result.",
		},
		[]string{"process", "result"},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconcile_timeline",
			Name:      "events_total",
			Help:      "Stored events by kind.",
		},
		[]string{"kind"},
	)

	dispatchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconcile_timeline",
			Name:      "dispatch_total",
			Help:      "Interaction inputs dispatched to the query engine.",
		},
		[]string{"input"},
	)

	dispatchDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "reconcile_timeline",
			Name:      "dispatch_seconds",
			Help:      "Latency of a single interaction dispatch.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		},
	)

	causalLinksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reconcile_timeline",
			Name:      "causal_link_attempts_total",
			Help:      "Directional counterpart lookups by origin kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
)

// Register attaches reconcile-timeline collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		loadsTotal,
		loadDurationSeconds,
		recordsTotal,
		eventsTotal,
		dispatchTotal,
		dispatchDurationSeconds,
		causalLinksTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveLoad records a load duration and outcome label.
func ObserveLoad(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	loadsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	loadDurationSeconds.Observe(duration.Seconds())
}

// AddRecords counts records of process with result ("parsed", "malformed", "irrelevant", "out_of_window").
func AddRecords(process, result string, n int) {
	if n <= 0 {
		return
	}
	recordsTotal.WithLabelValues(process, result).Add(float64(n))
}

// AddEvents counts stored events of kind.
func AddEvents(kind string, n int) {
	if n <= 0 {
		return
	}
	eventsTotal.WithLabelValues(kind).Add(float64(n))
}

// ObserveDispatch records one interaction input.
func ObserveDispatch(input string, duration time.Duration) {
	dispatchTotal.WithLabelValues(input).Inc()
	if duration < 0 {
		duration = 0
	}
	dispatchDurationSeconds.Observe(duration.Seconds())
}

// ObserveCausalLink records a counterpart lookup.
func ObserveCausalLink(kind string, found bool) {
	outcome := "not_found"
	if found {
		outcome = "found"
	}
	causalLinksTotal.WithLabelValues(kind, outcome).Inc()
}

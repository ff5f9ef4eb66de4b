package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "symbolicator_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})

	TriggersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symbolicator_triggers_total",
		Help: "Total number of recomputation triggers accepted by workers.",
	})

	TriggersCoalescedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symbolicator_triggers_coalesced_total",
		Help: "Total number of triggers absorbed by an already pending pass.",
	})

	PassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symbolicator_passes_total",
		Help: "Total number of recomputation passes by result.",
	}, []string{"result"})

	PassDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "symbolicator_pass_seconds",
		Help:    "Time spent on one recomputation pass.",
		Buckets: prometheus.DefBuckets,
	})

	CommittedSymbols = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "symbolicator_committed_symbols",
		Help: "Number of definitions in the committed symbol table.",
	}, []string{"project"})

	SinkDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symbolicator_sink_dropped_total",
		Help: "Total number of outcomes the diagnostics sink refused.",
	})

	DiagnosticsQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "symbolicator_diagnostics_queue_depth",
		Help: "Current number of outcomes waiting to be published.",
	})

	DiagnosticsPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symbolicator_diagnostics_published_total",
		Help: "Total number of publishDiagnostics notifications sent.",
	})

	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "symbolicator_requests_total",
		Help: "Total number of JSON-RPC messages handled by method and status.",
	}, []string{"method", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "symbolicator_request_seconds",
		Help:    "Time spent handling a JSON-RPC message.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	OpenProjects = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "symbolicator_open_projects",
		Help: "Number of projects with a live worker.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "symbolicator_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})
)

// Pass result labels.
const (
	ResultCommitted = "committed"
	ResultRejected  = "rejected"
	ResultFailed    = "failed"
)

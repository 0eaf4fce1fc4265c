package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	sessionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "synth_session_state",
		Help: "Current session state (1 for the active state, 0 otherwise)",
	}, []string{"state"})

	stateTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_session_transitions_total",
		Help: "Total number of session state transitions",
	}, []string{"from", "to"})

	commandQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "synth_command_queue_depth",
		Help: "Commands waiting for the engine worker",
	})

	commandsDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synth_commands_discarded_total",
		Help: "Commands dropped at session teardown before they ran",
	})

	// Initialize metrics
	initializeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_initialize_total",
		Help: "Total number of engine initializations",
	}, []string{"status"})

	initializeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "synth_initialize_duration_seconds",
		Help:    "Engine initialization latency including provisioning",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
	})

	// Synthesis metrics
	synthesisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_synthesis_total",
		Help: "Total number of synthesis requests",
	}, []string{"status"})

	synthesisLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "synth_synthesis_latency_seconds",
		Help:    "Synthesis latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	})

	synthesizedAudio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "synth_audio_duration_seconds",
		Help:    "Duration of synthesized audio written to disk",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	// Provisioning metrics
	provisioningRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_provisioning_total",
		Help: "Asset provisioning outcomes",
	}, []string{"outcome"}) // outcome: skipped, copied, failed

	provisionedFiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synth_provisioned_files_total",
		Help: "Engine data files copied from the bundle",
	})

	provisionedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "synth_provisioned_bytes_total",
		Help: "Bytes copied from the bundle",
	})

	// Engine handle metrics
	liveHandles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "synth_engine_handles_live",
		Help: "Engine handles created and not yet released",
	})

	handleReleases = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_engine_releases_total",
		Help: "Engine handle releases by path",
	}, []string{"path"}) // path: explicit, finalizer

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})
)

// RecordState marks state as the current session state
func RecordState(all []string, current string) {
	for _, s := range all {
		v := 0.0
		if s == current {
			v = 1
		}
		sessionState.WithLabelValues(s).Set(v)
	}
}

// RecordTransition counts a state transition
func RecordTransition(from, to string) {
	stateTransitions.WithLabelValues(from, to).Inc()
}

// SetQueueDepth reports the number of pending commands
func SetQueueDepth(n int) {
	commandQueueDepth.Set(float64(n))
}

// RecordDiscarded counts commands dropped at teardown
func RecordDiscarded(n int) {
	commandsDiscarded.Add(float64(n))
}

// RecordInitialize records one initialization outcome
func RecordInitialize(success bool, took time.Duration) {
	initializeLatency.Observe(took.Seconds())
	initializeRequests.WithLabelValues(status(success)).Inc()
}

// RecordSynthesis records one synthesis outcome
func RecordSynthesis(success bool, took time.Duration) {
	synthesisLatency.Observe(took.Seconds())
	synthesisRequests.WithLabelValues(status(success)).Inc()
}

// RecordAudioDuration records the length of a synthesized file
func RecordAudioDuration(d time.Duration) {
	synthesizedAudio.Observe(d.Seconds())
}

// RecordProvisioning records a provisioning run
func RecordProvisioning(outcome string, files int, bytes int64) {
	provisioningRuns.WithLabelValues(outcome).Inc()
	provisionedFiles.Add(float64(files))
	provisionedBytes.Add(float64(bytes))
}

// RecordHandleCreated tracks a newly created engine handle
func RecordHandleCreated() {
	liveHandles.Inc()
}

// RecordHandleReleased tracks the destruction of an engine handle
func RecordHandleReleased(path string) {
	liveHandles.Dec()
	handleReleases.WithLabelValues(path).Inc()
}

// RecordError records an error
func RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

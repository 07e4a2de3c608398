package playback

import "github.com/prometheus/client_golang/prometheus"

// Reasons a session ended, used as the "reason" label.
const (
	endStopped   = "stopped"
	endReplaced  = "replaced"
	endEOF       = "eof"
	endReadError = "read_error"
)

var (
	sessionsLoaded = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "timemachine_sessions_loaded_total", Help: "Recordings loaded for playback"},
	)
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "timemachine_transitions_total", Help: "Transport state transitions"},
		[]string{"status"},
	)
	chunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "timemachine_chunks_total", Help: "Sample chunks emitted"},
	)
	bytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "timemachine_bytes_read_total", Help: "Sample bytes read from recordings"},
	)
	endedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "timemachine_sessions_ended_total", Help: "Sessions ended, by reason"},
		[]string{"reason"},
	)
	openHandles = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "timemachine_open_file_handles", Help: "Recording files currently open"},
	)
)

// RegisterMetrics registers the playback collectors with reg.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(sessionsLoaded, transitionsTotal, chunksTotal, bytesTotal, endedTotal, openHandles)
}

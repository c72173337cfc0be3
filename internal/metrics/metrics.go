// Package metrics exposes the Prometheus instruments shared by the segmenter,
// the transcribers and the job processor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "segscribe"

type Metrics struct {
	// Segmenter
	SegmentsProduced    prometheus.Counter
	TailSegmentsDropped prometheus.Counter
	DroppedAudioSeconds prometheus.Counter

	// Transcriber
	TranscriptionAttempts *prometheus.CounterVec
	BackoffSeconds        *prometheus.CounterVec
	SegmentResults        *prometheus.CounterVec

	// Jobs
	Jobs        *prometheus.CounterVec
	JobDuration prometheus.Histogram

	// Notifications
	NotificationErrors *prometheus.CounterVec
}

// New registers every instrument on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SegmentsProduced: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_produced_total",
			Help:      "Total number of audio segments produced by the segmenter",
		}),
		TailSegmentsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tail_segments_dropped_total",
			Help:      "Total number of trailing segments discarded for being too short",
		}),
		DroppedAudioSeconds: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_audio_seconds_total",
			Help:      "Seconds of audio discarded with short trailing segments",
		}),
		TranscriptionAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_attempts_total",
			Help:      "Transcription API attempts that were retried, by outcome",
		}, []string{"outcome"}),
		BackoffSeconds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_backoff_seconds_total",
			Help:      "Seconds spent waiting between transcription attempts, by reason",
		}, []string{"reason"}),
		SegmentResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segment_results_total",
			Help:      "Per-segment transcription results, by status",
		}, []string{"status"}),
		Jobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Transcription jobs finished, by status",
		}, []string{"status"}),
		JobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of transcription jobs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 3600},
		}),
		NotificationErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_errors_total",
			Help:      "Failed transcript notifications, by channel",
		}, []string{"channel"}),
	}
}

// NewRegistry returns a registry preloaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

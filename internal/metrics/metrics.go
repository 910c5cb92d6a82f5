package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "blogsmith"

// Recorder counts generations and transcriptions by outcome. A nil Recorder is a no-op.
type Recorder struct {
	generations           *prometheus.CounterVec
	generationDuration    *prometheus.HistogramVec
	transcriptions        *prometheus.CounterVec
	transcriptionDuration prometheus.Histogram
}

// NewRecorder registers the blogsmith collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Blog generation requests by input mode and outcome.",
		}, []string{"mode", "outcome"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time spent in the generation service.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
		}, []string{"mode"}),
		transcriptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Audio transcription requests by outcome.",
		}, []string{"outcome"}),
		transcriptionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Time spent converting and transcribing audio.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
	reg.MustRegister(r.generations, r.generationDuration, r.transcriptions, r.transcriptionDuration)
	return r
}

// ObserveGeneration records one generation. d is zero when no service call was made.
func (r *Recorder) ObserveGeneration(mode, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.generations.WithLabelValues(mode, outcome).Inc()
	if d > 0 {
		r.generationDuration.WithLabelValues(mode).Observe(d.Seconds())
	}
}

// ObserveTranscription records one transcription. d is zero when no service call was made.
func (r *Recorder) ObserveTranscription(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.transcriptions.WithLabelValues(outcome).Inc()
	if d > 0 {
		r.transcriptionDuration.Observe(d.Seconds())
	}
}

package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	frames        *prometheus.CounterVec
	rateLimited   prometheus.Counter
	overflows     prometheus.Counter
	chords        prometheus.Counter
	faults        *prometheus.CounterVec
	heldNotes     prometheus.Gauge
	sourcesOnline prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keystream_frames_total",
			Help: "Frames received from the transport by parse status",
		}, []string{"status"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keystream_rate_limited_total",
			Help: "Note-ons dropped by the batch rate limiter",
		}),
		overflows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keystream_batch_overflow_total",
			Help: "Batches flushed early because they reached the size limit",
		}),
		chords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keystream_chords_total",
			Help: "Chords published to batched subscribers",
		}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keystream_subscriber_faults_total",
			Help: "Subscriber panics recovered by the bus",
		}, []string{"pool"}),
		heldNotes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keystream_held_notes",
			Help: "Notes currently held",
		}),
		sourcesOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keystream_sources_connected",
			Help: "Connected input sources",
		}),
	}
	reg.MustRegister(m.frames, m.rateLimited, m.overflows, m.chords, m.faults, m.heldNotes, m.sourcesOnline)
	return m
}

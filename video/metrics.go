package video

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_frames_dispatched_total",
		Help: "Frames handed to workers.",
	})

	framesCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_frames_committed_total",
		Help: "Frames written to the output in order.",
	})

	detectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tracker_detections_total",
		Help: "Committed frames with a detected object.",
	})

	pendingFrames = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_reassembly_pending_frames",
		Help: "Frames finished by workers and waiting for an earlier frame.",
	})

	detectDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tracker_detect_duration_seconds",
		Help:    "Time spent analyzing a single frame.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	sessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_sessions_total",
		Help: "Tracking sessions by outcome.",
	}, []string{"result"})
)

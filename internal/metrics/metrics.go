// Package metrics defines the Prometheus collectors of the thumbnail service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "framethumb"

var (
	// RendersTotal counts finished render requests by format and outcome.
	RendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "renders_total",
		Help:      "Total thumbnail render requests by format and outcome",
	}, []string{"format", "outcome"})

	// StageDuration tracks the duration of each render stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Duration of render pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2.0, 14), // 1ms to ~8s
	}, []string{"stage"})

	// OutputBytes tracks the size of encoded thumbnails.
	OutputBytes = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "output_bytes",
		Help:      "Size of encoded thumbnails",
		Buckets:   prometheus.ExponentialBuckets(1024, 2.0, 14), // 1KiB to 8MiB
	}, []string{"format"})

	// SubtitleDegraded counts requests that fell back to no subtitle overlay.
	SubtitleDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subtitle_degraded_total",
		Help:      "Requests rendered without their subtitle overlay",
	}, []string{"reason"})

	// HDR10Frames counts decoded frames carrying HDR10 side data.
	HDR10Frames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hdr10_frames_total",
		Help:      "Decoded frames detected as HDR10 (not tone mapped)",
	})

	// InFlight tracks renders currently holding a render slot.
	InFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "renders_in_flight",
		Help:      "Renders currently in progress",
	})
)

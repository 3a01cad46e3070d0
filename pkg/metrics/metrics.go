package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveCalls tracks telephony streams currently bridged to the AI.
	ActiveCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "echobridge_active_calls",
		Help: "Number of calls currently in progress",
	})

	// MediaFramesForwarded counts caller audio frames relayed to the AI leg.
	MediaFramesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "echobridge_media_frames_forwarded_total",
		Help: "Caller audio frames forwarded to the realtime AI",
	})

	// MediaFramesDropped counts frames discarded because the AI leg was
	// not ready to receive audio.
	MediaFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "echobridge_media_frames_dropped_total",
		Help: "Caller audio frames dropped while the AI socket was not open",
	})

	// AIReconnects counts reconnect attempts against the realtime AI.
	AIReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "echobridge_ai_reconnects_total",
		Help: "Reconnect attempts to the realtime AI backend",
	})

	// Escalations counts calls handed off to a human, labelled by reason.
	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "echobridge_escalations_total",
		Help: "Calls escalated to a human operator",
	}, []string{"reason"})

	// ResponseConfidence observes the confidence score of each AI response.
	ResponseConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "echobridge_response_confidence",
		Help:    "Grounding confidence of completed AI responses",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
)

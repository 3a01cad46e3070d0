package bridge

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/internal/models"
	"github.com/code-100-precent/echobridge/pkg/collab"
	"github.com/code-100-precent/echobridge/pkg/conversation"
	"github.com/code-100-precent/echobridge/pkg/events"
	"github.com/code-100-precent/echobridge/pkg/logger"
	"github.com/code-100-precent/echobridge/pkg/metrics"
	"github.com/code-100-precent/echobridge/pkg/realtime"
	"github.com/code-100-precent/echobridge/pkg/telephony"
)

// CallSession pairs one telephony stream with one AI session and routes
// everything between them: audio both ways, transcripts to the sinks,
// confidence scoring and the escalation decision per completed response.
type CallSession struct {
	callID   string
	streamID string
	teamID   string

	manager *Manager
	rt      *realtime.Session
	conv    *conversation.Context
	out     *telephony.Writer

	ctx    context.Context
	cancel context.CancelFunc

	mu               sync.Mutex
	escalationReason string
	endOnce          sync.Once
}

// ForwardAudio relays decoded caller audio to the AI leg. Frames are
// dropped when the AI socket is not open.
func (c *CallSession) ForwardAudio(pcm []byte) bool {
	c.manager.recordings.AppendAudio(c.callID, pcm)
	return c.rt.SendAudio(pcm)
}

// End finishes the call exactly once: the AI session is closed (which
// cancels any pending reconnect timer), the recording is flushed and the
// call record is finalized.
func (c *CallSession) End() {
	c.endOnce.Do(func() {
		c.cancel()
		_ = c.rt.Close()

		if err := c.manager.recordings.Finish(c.callID); err != nil {
			logger.Warn("recording flush failed", zap.String("call_id", c.callID), zap.Error(err))
		}
		c.manager.trigger.Release(c.callID)
		c.manager.release(c.streamID)

		status := models.CallStatusCompleted
		c.mu.Lock()
		reason := c.escalationReason
		c.mu.Unlock()
		if reason != "" {
			status = models.CallStatusEscalated
		}
		if c.manager.db != nil {
			if err := models.FinishCallRecord(c.manager.db, c.callID, status, reason); err != nil {
				logger.Warn("call record update failed", zap.String("call_id", c.callID), zap.Error(err))
			}
		}

		metrics.ActiveCalls.Dec()
		c.manager.bus.Publish(events.Event{
			Type:   events.EventCallEnded,
			CallID: c.callID,
			Payload: map[string]any{
				"status": status,
				"reason": reason,
			},
		})
		logger.Info("call ended",
			zap.String("call_id", c.callID), zap.String("status", status))
	})
}

// onAudioOut plays AI audio back to the caller.
func (c *CallSession) onAudioOut(mulaw []byte) {
	c.out.SendMedia(c.streamID, mulaw)
}

// onCallerUtterance records what the caller said, refreshes the
// knowledge context from it, and checks for an explicit handoff request.
func (c *CallSession) onCallerUtterance(text string) {
	c.manager.transcripts.Record(c.callID, models.SpeakerCaller, text, 0)

	// retrieval must not block the AI event loop
	go func() {
		candidates := collab.SearchSoft(c.ctx, c.manager.knowledge, text, c.teamID, c.manager.topK)
		c.conv.SetCandidates(candidates)
	}()

	// only the phrase rules can fire on caller text
	if d, ok := conversation.Evaluate(text, conversation.Score{Overall: 1.0}); ok {
		c.escalate(d)
	}
}

// onAssistantResponse scores a completed response against the knowledge
// context and decides on escalation.
func (c *CallSession) onAssistantResponse(text string) {
	score := conversation.ScoreResponse(text, c.conv.Candidates())
	c.conv.Attribute(score.Sources)
	metrics.ResponseConfidence.Observe(score.Overall)

	c.manager.transcripts.Record(c.callID, models.SpeakerAssistant, text, score.Overall)
	c.manager.bus.Publish(events.Event{
		Type:   events.EventResponseCompleted,
		CallID: c.callID,
		Payload: map[string]any{
			"confidence": score.Overall,
			"fallback":   score.Fallback,
			"sources":    score.Sources,
		},
	})

	if d, ok := conversation.Evaluate(text, score); ok {
		c.escalate(d)
	}
}

func (c *CallSession) escalate(d conversation.Decision) {
	c.mu.Lock()
	if c.escalationReason == "" {
		c.escalationReason = d.Reason
	}
	c.mu.Unlock()

	c.manager.bus.Publish(events.Event{
		Type:    events.EventCallEscalated,
		CallID:  c.callID,
		Payload: map[string]any{"reason": d.Reason, "priority": d.Priority},
	})
	c.manager.trigger.Escalate(c.ctx, c.callID, c.teamID, d, c.rt)
}

// onTerminal runs when AI reconnection is exhausted: audio forwarding
// simply ceases, the telephony leg stays up.
func (c *CallSession) onTerminal() {
	logger.Error("ai leg terminally disconnected, audio bridging stopped",
		zap.String("call_id", c.callID))
	c.manager.bus.Publish(events.Event{
		Type:   events.EventAIReconnectFailed,
		CallID: c.callID,
	})
}

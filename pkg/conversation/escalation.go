package conversation

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/collab"
	"github.com/code-100-precent/echobridge/pkg/logger"
	"github.com/code-100-precent/echobridge/pkg/metrics"
)

// Escalation reasons.
const (
	ReasonExplicitRequest = "explicit_request"
	ReasonLowConfidence   = "low_confidence"
	ReasonFrustration     = "frustration"
)

const (
	escalateConfidenceCutoff = 0.2
	escalateFallbackCutoff   = 0.4
)

var handoffPhrases = []string{
	"talk to a human",
	"speak with an agent",
	"speak to an agent",
	"representative",
	"manager",
	"operator",
	"real person",
	"human agent",
}

var frustrationPhrases = []string{
	"terrible",
	"useless",
	"stupid bot",
	"not helping",
	"waste of time",
	"ridiculous",
}

// Decision describes why and how urgently a call should be escalated.
type Decision struct {
	Reason   string
	Priority string
	Context  string
}

// Evaluate applies the escalation rules in strict order: an explicit
// handoff request wins regardless of confidence, then the confidence
// rules, then frustration wording.
func Evaluate(text string, score Score) (Decision, bool) {
	lowered := strings.ToLower(text)

	for _, phrase := range handoffPhrases {
		if strings.Contains(lowered, phrase) {
			return Decision{Reason: ReasonExplicitRequest, Priority: "high", Context: text}, true
		}
	}
	if score.Overall < escalateConfidenceCutoff {
		return Decision{Reason: ReasonLowConfidence, Priority: "normal", Context: text}, true
	}
	if score.Fallback && score.Overall < escalateFallbackCutoff {
		return Decision{Reason: ReasonLowConfidence, Priority: "normal", Context: text}, true
	}
	for _, phrase := range frustrationPhrases {
		if strings.Contains(lowered, phrase) {
			return Decision{Reason: ReasonFrustration, Priority: "high", Context: text}, true
		}
	}
	return Decision{}, false
}

// HandoffAcknowledger lets the trigger tell the AI session to acknowledge
// the pending transfer instead of continuing the original task.
type HandoffAcknowledger interface {
	AcknowledgeHandoff(reason string) error
}

// Trigger forwards an escalation decision to the transfer queue, at most
// once per call.
type Trigger struct {
	queue collab.TransferQueue

	mu    sync.Mutex
	fired map[string]struct{}
}

func NewTrigger(queue collab.TransferQueue) *Trigger {
	return &Trigger{queue: queue, fired: make(map[string]struct{})}
}

// Escalate sends the transfer request and instructs the session to
// acknowledge the handoff. A queue failure drops the request softly; the
// bridge keeps running.
func (t *Trigger) Escalate(ctx context.Context, callID, teamID string, d Decision, ack HandoffAcknowledger) {
	t.mu.Lock()
	if _, done := t.fired[callID]; done {
		t.mu.Unlock()
		return
	}
	t.fired[callID] = struct{}{}
	t.mu.Unlock()

	metrics.Escalations.WithLabelValues(d.Reason).Inc()
	logger.Info("escalating call",
		zap.String("call_id", callID),
		zap.String("reason", d.Reason),
		zap.String("priority", d.Priority))

	err := t.queue.Request(ctx, collab.TransferRequest{
		CallID:   callID,
		TeamID:   teamID,
		Reason:   d.Reason,
		Priority: d.Priority,
		Context:  d.Context,
	})
	if err != nil {
		logger.Warn("transfer request dropped", zap.String("call_id", callID), zap.Error(err))
	}

	if ack != nil {
		if err := ack.AcknowledgeHandoff(d.Reason); err != nil {
			logger.Warn("handoff acknowledgement failed", zap.String("call_id", callID), zap.Error(err))
		}
	}
}

// Release forgets a call so its id can be reused after the call ends.
func (t *Trigger) Release(callID string) {
	t.mu.Lock()
	delete(t.fired, callID)
	t.mu.Unlock()
}

package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/collab"
	"github.com/code-100-precent/echobridge/pkg/logger"
)

func init() {
	logger.Lg = zap.NewNop()
}

func TestExplicitRequestAlwaysEscalates(t *testing.T) {
	// high confidence does not matter when the caller asks for a human
	d, ok := Evaluate("I want to talk to a human", Score{Overall: 1.0})
	require.True(t, ok)
	assert.Equal(t, ReasonExplicitRequest, d.Reason)
	assert.Equal(t, "high", d.Priority)
}

func TestLowConfidenceEscalates(t *testing.T) {
	d, ok := Evaluate("let me check on that for you", Score{Overall: 0.15, Fallback: true})
	require.True(t, ok)
	assert.Equal(t, ReasonLowConfidence, d.Reason)
}

func TestFallbackRuleBoundary(t *testing.T) {
	// 0.45 is below the fallback threshold but at or above the 0.4 cutoff,
	// so the fallback rule must not fire
	_, ok := Evaluate("here is what I found", Score{Overall: 0.45, Fallback: true})
	assert.False(t, ok)

	d, ok := Evaluate("here is what I found", Score{Overall: 0.35, Fallback: true})
	require.True(t, ok)
	assert.Equal(t, ReasonLowConfidence, d.Reason)
}

func TestFrustrationEscalates(t *testing.T) {
	d, ok := Evaluate("this is useless, nothing works", Score{Overall: 0.9})
	require.True(t, ok)
	assert.Equal(t, ReasonFrustration, d.Reason)
}

func TestNoEscalationOnNormalText(t *testing.T) {
	_, ok := Evaluate("your order will arrive tomorrow", Score{Overall: 0.8})
	assert.False(t, ok)
}

type fakeQueue struct {
	requests []collab.TransferRequest
	err      error
}

func (f *fakeQueue) Request(_ context.Context, req collab.TransferRequest) error {
	f.requests = append(f.requests, req)
	return f.err
}

type fakeAck struct {
	reasons []string
}

func (f *fakeAck) AcknowledgeHandoff(reason string) error {
	f.reasons = append(f.reasons, reason)
	return nil
}

func TestTriggerFiresOncePerCall(t *testing.T) {
	q := &fakeQueue{}
	ack := &fakeAck{}
	trigger := NewTrigger(q)

	d := Decision{Reason: ReasonExplicitRequest, Priority: "high"}
	trigger.Escalate(context.Background(), "c1", "team-1", d, ack)
	trigger.Escalate(context.Background(), "c1", "team-1", d, ack)

	require.Len(t, q.requests, 1)
	assert.Equal(t, "c1", q.requests[0].CallID)
	assert.Equal(t, []string{ReasonExplicitRequest}, ack.reasons)

	// a different call is independent
	trigger.Escalate(context.Background(), "c2", "team-1", d, ack)
	assert.Len(t, q.requests, 2)
}

func TestTriggerSurvivesQueueFailure(t *testing.T) {
	q := &fakeQueue{err: errors.New("queue down")}
	trigger := NewTrigger(q)

	assert.NotPanics(t, func() {
		trigger.Escalate(context.Background(), "c1", "team-1",
			Decision{Reason: ReasonLowConfidence, Priority: "normal"}, nil)
	})
}

func TestTriggerRelease(t *testing.T) {
	q := &fakeQueue{}
	trigger := NewTrigger(q)

	d := Decision{Reason: ReasonFrustration, Priority: "high"}
	trigger.Escalate(context.Background(), "c1", "team-1", d, nil)
	trigger.Release("c1")
	trigger.Escalate(context.Background(), "c1", "team-1", d, nil)

	assert.Len(t, q.requests, 2)
}

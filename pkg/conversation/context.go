// Package conversation tracks per-call knowledge context and decides,
// per completed AI response, how grounded the answer was and whether the
// call should be handed to a human.
package conversation

import (
	"sync"

	"github.com/code-100-precent/echobridge/pkg/collab"
)

// Relevance cutoffs for admitting candidates into a call's context.
// Products are admitted more eagerly than general documents.
const (
	productRelevanceCutoff = 0.1
	generalRelevanceCutoff = 0.3
)

// Context holds the knowledge candidates currently in play for one call.
// It is attached to the call, not to the AI socket, so it survives a
// transient reconnect.
type Context struct {
	mu                  sync.Mutex
	callID              string
	teamID              string
	candidates          []collab.Candidate
	confidenceThreshold float64
	attributedSources   map[string]struct{}
}

func NewContext(callID, teamID string, confidenceThreshold float64) *Context {
	if confidenceThreshold <= 0 {
		confidenceThreshold = 0.5
	}
	return &Context{
		callID:              callID,
		teamID:              teamID,
		confidenceThreshold: confidenceThreshold,
		attributedSources:   make(map[string]struct{}),
	}
}

func (c *Context) CallID() string { return c.callID }
func (c *Context) TeamID() string { return c.teamID }

// SetCandidates replaces the context's candidates, admitting only those
// above the relevance cutoff for their kind.
func (c *Context) SetCandidates(candidates []collab.Candidate) {
	kept := make([]collab.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		cutoff := generalRelevanceCutoff
		if cand.Kind == "product" {
			cutoff = productRelevanceCutoff
		}
		if cand.Relevance > cutoff {
			kept = append(kept, cand)
		}
	}

	c.mu.Lock()
	c.candidates = kept
	c.mu.Unlock()
}

// Candidates returns a snapshot of the admitted candidates.
func (c *Context) Candidates() []collab.Candidate {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]collab.Candidate, len(c.candidates))
	copy(out, c.candidates)
	return out
}

// ConfidenceThreshold is the per-call threshold from the prompt bundle.
func (c *Context) ConfidenceThreshold() float64 {
	return c.confidenceThreshold
}

// Attribute records source ids referenced by a response. It returns the
// ids that were newly attributed to this call.
func (c *Context) Attribute(sourceIDs []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var fresh []string
	for _, id := range sourceIDs {
		if _, seen := c.attributedSources[id]; !seen {
			c.attributedSources[id] = struct{}{}
			fresh = append(fresh, id)
		}
	}
	return fresh
}

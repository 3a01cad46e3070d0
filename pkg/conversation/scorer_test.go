package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-100-precent/echobridge/pkg/collab"
)

func TestScoreNoCandidates(t *testing.T) {
	score := ScoreResponse("I'm not sure about that.", nil)
	assert.InDelta(t, 0.2, score.Overall, 1e-9)
	assert.Zero(t, score.KnowledgeBased)
	assert.True(t, score.Fallback)
	assert.Empty(t, score.Sources)
}

func TestScoreAllCandidatesReferenced(t *testing.T) {
	candidates := []collab.Candidate{
		{ID: "d1", Title: "Refund Policy", Body: "Refunds available within thirty days"},
		{ID: "d2", Title: "Shipping Times", Body: "Standard shipping takes five business days"},
	}
	text := "Our refund policy allows refunds within thirty days, and standard shipping takes five business days."

	score := ScoreResponse(text, candidates)
	assert.InDelta(t, 1.0, score.Overall, 1e-9)
	assert.InDelta(t, 1.0, score.KnowledgeBased, 1e-9)
	assert.False(t, score.Fallback)
	assert.Equal(t, []string{"d1", "d2"}, score.Sources)
}

func TestScorePartialReference(t *testing.T) {
	candidates := []collab.Candidate{
		{ID: "d1", Title: "Refund Policy", Body: "Refunds available within thirty days"},
		{ID: "d2", Title: "Warranty Coverage", Body: "Hardware warranty lasts two years"},
	}
	text := "You can get a refund under our refund policy within thirty days."

	score := ScoreResponse(text, candidates)
	require.Equal(t, []string{"d1"}, score.Sources)
	assert.InDelta(t, 0.5, score.KnowledgeBased, 1e-9)
	assert.InDelta(t, 0.7, score.Overall, 1e-9)
	assert.False(t, score.Fallback)
}

func TestCandidateNeedsMinimumOverlap(t *testing.T) {
	// eleven significant words, so four must match; one match is not enough
	cand := collab.Candidate{
		ID:    "d1",
		Title: "Premium Support Plan",
		Body:  "Enterprise customers receive dedicated support engineers around the clock",
	}
	score := ScoreResponse("we offer premium things", []collab.Candidate{cand})
	assert.Empty(t, score.Sources)
}

func TestCandidateWithNoSignificantWords(t *testing.T) {
	cand := collab.Candidate{ID: "d1", Title: "a b c", Body: "of to it"}
	score := ScoreResponse("anything at all", []collab.Candidate{cand})
	assert.Empty(t, score.Sources)
}

func TestContextRelevanceCutoffs(t *testing.T) {
	ctx := NewContext("c1", "team-1", 0.5)
	ctx.SetCandidates([]collab.Candidate{
		{ID: "p1", Kind: "product", Relevance: 0.15},  // above product cutoff
		{ID: "p2", Kind: "product", Relevance: 0.05},  // below product cutoff
		{ID: "d1", Kind: "document", Relevance: 0.35}, // above general cutoff
		{ID: "d2", Kind: "document", Relevance: 0.2},  // below general cutoff
	})

	kept := ctx.Candidates()
	require.Len(t, kept, 2)
	assert.Equal(t, "p1", kept[0].ID)
	assert.Equal(t, "d1", kept[1].ID)
}

func TestContextAttribute(t *testing.T) {
	ctx := NewContext("c1", "team-1", 0)
	assert.InDelta(t, 0.5, ctx.ConfidenceThreshold(), 1e-9)

	fresh := ctx.Attribute([]string{"d1", "d2"})
	assert.Equal(t, []string{"d1", "d2"}, fresh)

	fresh = ctx.Attribute([]string{"d2", "d3"})
	assert.Equal(t, []string{"d3"}, fresh)
}

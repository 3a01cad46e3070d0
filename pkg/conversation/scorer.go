package conversation

import (
	"math"
	"strings"

	"github.com/code-100-precent/echobridge/pkg/collab"
)

// Score is the grounding verdict for one completed AI response.
type Score struct {
	Overall        float64
	KnowledgeBased float64
	Fallback       bool
	Sources        []string
}

const (
	significantWordMinLen = 3   // words must be longer than this to count
	referenceOverlapRatio = 0.3 // share of significant words that must appear
	confidenceFloor       = 0.2 // base confidence added to the grounding ratio
	fallbackThreshold     = 0.5
)

// ScoreResponse measures how much of the assistant text is grounded in
// the call's knowledge candidates. The heuristic is deliberately literal
// keyword overlap, not semantic similarity.
func ScoreResponse(text string, candidates []collab.Candidate) Score {
	lowered := strings.ToLower(text)

	var sources []string
	for _, cand := range candidates {
		if candidateReferenced(lowered, cand) {
			sources = append(sources, cand.ID)
		}
	}

	ratio := 0.0
	if len(candidates) > 0 {
		ratio = float64(len(sources)) / float64(len(candidates))
	}
	overall := math.Min(ratio+confidenceFloor, 1.0)

	return Score{
		Overall:        overall,
		KnowledgeBased: ratio,
		Fallback:       overall < fallbackThreshold,
		Sources:        sources,
	}
}

// candidateReferenced reports whether enough of a candidate's significant
// words appear in the (already lowercased) assistant text.
func candidateReferenced(loweredText string, cand collab.Candidate) bool {
	words := significantWords(cand.Title + " " + cand.Body)
	if len(words) == 0 {
		return false
	}

	matched := 0
	for _, w := range words {
		if strings.Contains(loweredText, w) {
			matched++
		}
	}

	required := int(math.Ceil(float64(len(words)) * referenceOverlapRatio))
	if required < 1 {
		required = 1
	}
	return matched >= required
}

func significantWords(s string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if len(w) > significantWordMinLen {
			words = append(words, w)
		}
	}
	return words
}

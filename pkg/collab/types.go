// Package collab holds REST clients for the services the bridge consults
// while a call is in flight: knowledge retrieval, prompt construction and
// the human-transfer queue. All clients fail soft; a collaborator outage
// must never take down the audio path.
package collab

// Candidate is one ranked knowledge entry offered to a call's context.
type Candidate struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"` // document / product / faq
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Relevance float64 `json:"relevance"`
}

// PromptBundle is the per-call prompt configuration built by the prompt
// service.
type PromptBundle struct {
	SystemPrompt        string  `json:"system_prompt"`
	Context             string  `json:"context"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// TransferRequest asks the queue service to hand a call to a human.
type TransferRequest struct {
	CallID   string `json:"call_id"`
	TeamID   string `json:"team_id"`
	Reason   string `json:"reason"`
	Priority string `json:"priority"`
	Context  string `json:"context"`
}

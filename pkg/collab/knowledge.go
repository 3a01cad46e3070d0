package collab

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/config"
	"github.com/code-100-precent/echobridge/pkg/logger"
)

// KnowledgeRetriever returns ranked knowledge candidates for a query.
type KnowledgeRetriever interface {
	Search(ctx context.Context, query, teamID string, limit int) ([]Candidate, error)
}

type restKnowledgeRetriever struct {
	client  *resty.Client
	baseURL string
}

// NewKnowledgeRetriever builds the REST client for the knowledge service.
func NewKnowledgeRetriever(cfg *config.CollaboratorConfig) KnowledgeRetriever {
	client := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json")
	return &restKnowledgeRetriever{client: client, baseURL: cfg.KnowledgeURL}
}

type searchRequest struct {
	Query  string `json:"query"`
	TeamID string `json:"team_id"`
	Limit  int    `json:"limit"`
}

type searchResponse struct {
	Candidates []Candidate `json:"candidates"`
}

func (r *restKnowledgeRetriever) Search(ctx context.Context, query, teamID string, limit int) ([]Candidate, error) {
	if r.baseURL == "" {
		return nil, nil
	}

	var result searchResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(searchRequest{Query: query, TeamID: teamID, Limit: limit}).
		SetResult(&result).
		Post(r.baseURL + "/api/v1/knowledge/search")
	if err != nil {
		return nil, fmt.Errorf("knowledge search: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("knowledge search: status %d", resp.StatusCode())
	}
	return result.Candidates, nil
}

// SearchSoft is the fail-soft variant used on the call path: an outage
// yields an empty context instead of an error.
func SearchSoft(ctx context.Context, kr KnowledgeRetriever, query, teamID string, limit int) []Candidate {
	candidates, err := kr.Search(ctx, query, teamID, limit)
	if err != nil {
		logger.Warn("knowledge retrieval failed, continuing without context",
			zap.String("team_id", teamID), zap.Error(err))
		return nil
	}
	return candidates
}

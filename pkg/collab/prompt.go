package collab

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/cache"
	"github.com/code-100-precent/echobridge/pkg/config"
	"github.com/code-100-precent/echobridge/pkg/logger"
)

// defaultPrompt is used when the prompt service is unreachable.
var defaultPrompt = PromptBundle{
	SystemPrompt:        "You are a helpful customer service agent. Answer briefly and politely.",
	ConfidenceThreshold: 0.5,
}

// PromptBuilder assembles the per-call system prompt and context.
type PromptBuilder interface {
	Build(ctx context.Context, callID, teamID, campaignID, templateID string) (PromptBundle, error)
}

type restPromptBuilder struct {
	client   *resty.Client
	baseURL  string
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewPromptBuilder builds the REST client for the prompt service.
// Prompt bundles are cached per team/campaign/template since they change
// rarely relative to call volume.
func NewPromptBuilder(cfg *config.CollaboratorConfig, c cache.Cache) PromptBuilder {
	client := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json")
	return &restPromptBuilder{client: client, baseURL: cfg.PromptURL, cache: c, cacheTTL: cfg.PromptCacheTTL}
}

type promptRequest struct {
	CallID     string `json:"call_id"`
	TeamID     string `json:"team_id"`
	CampaignID string `json:"campaign_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

func (p *restPromptBuilder) Build(ctx context.Context, callID, teamID, campaignID, templateID string) (PromptBundle, error) {
	if p.baseURL == "" {
		return defaultPrompt, nil
	}

	cacheKey := fmt.Sprintf("prompt:%s:%s:%s", teamID, campaignID, templateID)
	if p.cache != nil {
		if raw, ok := p.cache.Get(ctx, cacheKey); ok {
			var bundle PromptBundle
			if err := sonic.UnmarshalString(raw, &bundle); err == nil {
				return bundle, nil
			}
		}
	}

	var bundle PromptBundle
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(promptRequest{CallID: callID, TeamID: teamID, CampaignID: campaignID, TemplateID: templateID}).
		SetResult(&bundle).
		Post(p.baseURL + "/api/v1/prompts/build")
	if err != nil {
		return PromptBundle{}, fmt.Errorf("prompt build: %w", err)
	}
	if resp.IsError() {
		return PromptBundle{}, fmt.Errorf("prompt build: status %d", resp.StatusCode())
	}

	if p.cache != nil {
		if raw, err := sonic.MarshalString(bundle); err == nil {
			p.cache.Set(ctx, cacheKey, raw, p.cacheTTL)
		}
	}
	return bundle, nil
}

// BuildSoft falls back to the default prompt when the prompt service fails.
func BuildSoft(ctx context.Context, pb PromptBuilder, callID, teamID, campaignID, templateID string) PromptBundle {
	bundle, err := pb.Build(ctx, callID, teamID, campaignID, templateID)
	if err != nil {
		logger.Warn("prompt build failed, using default prompt",
			zap.String("call_id", callID), zap.Error(err))
		return defaultPrompt
	}
	return bundle
}

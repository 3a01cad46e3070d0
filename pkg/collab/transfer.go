package collab

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/config"
	"github.com/code-100-precent/echobridge/pkg/logger"
)

// TransferQueue hands calls off to a human operator queue.
type TransferQueue interface {
	Request(ctx context.Context, req TransferRequest) error
}

type restTransferQueue struct {
	client  *resty.Client
	baseURL string
	enabled bool
}

// NewTransferQueue builds the REST client for the transfer service.
func NewTransferQueue(cfg *config.CollaboratorConfig) TransferQueue {
	client := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetHeader("Content-Type", "application/json")
	return &restTransferQueue{client: client, baseURL: cfg.TransferURL, enabled: cfg.TransferEnabled}
}

func (t *restTransferQueue) Request(ctx context.Context, req TransferRequest) error {
	if !t.enabled || t.baseURL == "" {
		logger.Info("transfer disabled, dropping request",
			zap.String("call_id", req.CallID), zap.String("reason", req.Reason))
		return nil
	}

	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(req).
		Post(t.baseURL + "/api/v1/transfers")
	if err != nil {
		return fmt.Errorf("transfer request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("transfer request: status %d", resp.StatusCode())
	}
	return nil
}

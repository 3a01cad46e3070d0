package collab

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/cache"
	"github.com/code-100-precent/echobridge/pkg/config"
	"github.com/code-100-precent/echobridge/pkg/logger"
)

func init() {
	logger.Lg = zap.NewNop()
}

func collabConfig(url string) *config.CollaboratorConfig {
	return &config.CollaboratorConfig{
		KnowledgeURL:    url,
		PromptURL:       url,
		TransferURL:     url,
		RequestTimeout:  2 * time.Second,
		PromptCacheTTL:  time.Minute,
		RetrievalTopK:   5,
		TransferEnabled: true,
	}
}

func TestKnowledgeSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/knowledge/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"id":"d1","kind":"document","title":"Refund Policy","body":"Refunds within thirty days","relevance":0.8}]}`))
	}))
	defer srv.Close()

	kr := NewKnowledgeRetriever(collabConfig(srv.URL))
	candidates, err := kr.Search(context.Background(), "refund", "team-1", 5)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Refund Policy", candidates[0].Title)
	assert.InDelta(t, 0.8, candidates[0].Relevance, 1e-9)
}

func TestKnowledgeSearchSoftFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	kr := NewKnowledgeRetriever(collabConfig(srv.URL))
	candidates := SearchSoft(context.Background(), kr, "refund", "team-1", 5)
	assert.Empty(t, candidates)
}

func TestPromptBuildAndCache(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"system_prompt":"You help team one.","context":"ctx","confidence_threshold":0.6}`))
	}))
	defer srv.Close()

	pb := NewPromptBuilder(collabConfig(srv.URL), cache.NewGoCache(time.Minute))

	bundle, err := pb.Build(context.Background(), "c1", "team-1", "camp-1", "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, "You help team one.", bundle.SystemPrompt)
	assert.InDelta(t, 0.6, bundle.ConfidenceThreshold, 1e-9)

	// second build for the same team/campaign/template comes from cache
	_, err = pb.Build(context.Background(), "c2", "team-1", "camp-1", "tpl-1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestPromptBuildSoftFallsBack(t *testing.T) {
	cfg := collabConfig("http://127.0.0.1:1")
	cfg.RequestTimeout = 200 * time.Millisecond
	pb := NewPromptBuilder(cfg, nil)

	bundle := BuildSoft(context.Background(), pb, "c1", "team-1", "", "")
	assert.NotEmpty(t, bundle.SystemPrompt)
	assert.InDelta(t, 0.5, bundle.ConfidenceThreshold, 1e-9)
}

func TestTransferRequest(t *testing.T) {
	var got TransferRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/transfers", r.URL.Path)
		require.NoError(t, decodeJSON(r, &got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	tq := NewTransferQueue(collabConfig(srv.URL))
	err := tq.Request(context.Background(), TransferRequest{
		CallID: "c1", TeamID: "team-1", Reason: "explicit_request", Priority: "high",
	})
	require.NoError(t, err)
	assert.Equal(t, "explicit_request", got.Reason)
}

func TestTransferDisabledDropsQuietly(t *testing.T) {
	cfg := collabConfig("http://127.0.0.1:1")
	cfg.TransferEnabled = false
	tq := NewTransferQueue(cfg)
	assert.NoError(t, tq.Request(context.Background(), TransferRequest{CallID: "c1"}))
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	buf := make([]byte, r.ContentLength)
	if _, err := io.ReadFull(r.Body, buf); err != nil {
		return err
	}
	return sonic.Unmarshal(buf, v)
}

func TestTransferServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tq := NewTransferQueue(collabConfig(srv.URL))
	err := tq.Request(context.Background(), TransferRequest{CallID: "c1"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}

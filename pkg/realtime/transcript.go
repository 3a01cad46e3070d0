package realtime

import (
	"strings"
	"sync"

	"github.com/spf13/cast"
)

// transcriptStore accumulates streamed text fragments per response id
// until the response completes.
type transcriptStore struct {
	mu      sync.Mutex
	pending map[string]*strings.Builder
}

func newTranscriptStore() *transcriptStore {
	return &transcriptStore{pending: make(map[string]*strings.Builder)}
}

func (t *transcriptStore) append(responseID, fragment string) {
	if responseID == "" || fragment == "" {
		return
	}
	t.mu.Lock()
	b, ok := t.pending[responseID]
	if !ok {
		b = &strings.Builder{}
		t.pending[responseID] = b
	}
	b.WriteString(fragment)
	t.mu.Unlock()
}

// consume removes and returns the accumulated text for a response id.
func (t *transcriptStore) consume(responseID string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.pending[responseID]
	if !ok {
		return ""
	}
	delete(t.pending, responseID)
	return b.String()
}

func (t *transcriptStore) reset() {
	t.mu.Lock()
	t.pending = make(map[string]*strings.Builder)
	t.mu.Unlock()
}

// finalizeTranscript assembles the assistant's final text for a completed
// response. Precedence: accumulated streamed fragments, then a plain text
// field on the completion payload, then a list of text segments on that
// field, then the first textual segment found in the structured output
// items. Returns ok=false when nothing textual could be recovered.
func finalizeTranscript(accumulated string, payload map[string]any) (string, bool) {
	if accumulated != "" {
		return accumulated, true
	}

	resp := cast.ToStringMap(payload["response"])

	if text, ok := resp["text"]; ok {
		if s := cast.ToString(text); s != "" {
			return s, true
		}
		if segments, err := cast.ToSliceE(text); err == nil {
			var parts []string
			for _, seg := range segments {
				if s := cast.ToString(seg); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, " "), true
			}
		}
	}

	for _, item := range cast.ToSlice(resp["output"]) {
		itemMap := cast.ToStringMap(item)
		for _, part := range cast.ToSlice(itemMap["content"]) {
			partMap := cast.ToStringMap(part)
			if s := cast.ToString(partMap["text"]); s != "" {
				return s, true
			}
			if s := cast.ToString(partMap["transcript"]); s != "" {
				return s, true
			}
		}
	}

	return "", false
}

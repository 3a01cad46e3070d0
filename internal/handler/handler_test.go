package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/code-100-precent/echobridge/internal/models"
	"github.com/code-100-precent/echobridge/pkg/bridge"
	"github.com/code-100-precent/echobridge/pkg/collab"
	"github.com/code-100-precent/echobridge/pkg/config"
	"github.com/code-100-precent/echobridge/pkg/logger"
	"github.com/code-100-precent/echobridge/pkg/realtime"
)

func init() {
	logger.Lg = zap.NewNop()
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.CallRecord{}, &models.TranscriptEntry{}))
	return db
}

type stubPrompts struct{}

func (stubPrompts) Build(context.Context, string, string, string, string) (collab.PromptBundle, error) {
	return collab.PromptBundle{SystemPrompt: "help the caller", ConfidenceThreshold: 0.5}, nil
}

type stubKnowledge struct{}

func (stubKnowledge) Search(context.Context, string, string, int) ([]collab.Candidate, error) {
	return nil, nil
}

type stubTransfer struct{}

func (stubTransfer) Request(context.Context, collab.TransferRequest) error { return nil }

// aiConn records every outbound frame the bridge writes to the AI leg.
type aiConn struct {
	closeOnce sync.Once
	closed    chan struct{}

	mu      sync.Mutex
	written [][]byte
}

func newAIConn() *aiConn {
	return &aiConn{closed: make(chan struct{})}
}

func (a *aiConn) ReadMessage() (int, []byte, error) {
	<-a.closed
	return 0, nil, errors.New("connection closed")
}

func (a *aiConn) WriteMessage(_ int, data []byte) error {
	a.mu.Lock()
	a.written = append(a.written, append([]byte(nil), data...))
	a.mu.Unlock()
	return nil
}

func (a *aiConn) Close() error {
	a.closeOnce.Do(func() { close(a.closed) })
	return nil
}

func (a *aiConn) audioAppendCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, frame := range a.written {
		if strings.Contains(string(frame), "input_audio_buffer.append") {
			n++
		}
	}
	return n
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Mode: "release"},
		Bridge: config.BridgeConfig{
			AIEndpoint:     "wss://example.test/v1/realtime",
			CallSampleRate: 8000,
			AISampleRate:   24000,
			ReconnectBase:  time.Millisecond,
			MaxReconnects:  5,
			AudioQueueSize: 64,
		},
		Collaborator: config.CollaboratorConfig{RetrievalTopK: 5},
	}
}

func TestHealthEndpoint(t *testing.T) {
	db := testDB(t)
	cfg := testConfig()
	m := bridge.NewManager(cfg, bridge.Deps{
		DB: db, Knowledge: stubKnowledge{}, Prompts: stubPrompts{}, Transfer: stubTransfer{},
		Dialer: func(context.Context, string, http.Header) (realtime.Conn, error) {
			return newAIConn(), nil
		},
	})
	router := NewRouter(cfg, m, db)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestGetCallEndpoints(t *testing.T) {
	db := testDB(t)
	cfg := testConfig()
	m := bridge.NewManager(cfg, bridge.Deps{DB: db, Knowledge: stubKnowledge{}, Prompts: stubPrompts{}, Transfer: stubTransfer{}})
	router := NewRouter(cfg, m, db)

	require.NoError(t, models.CreateCallRecord(db, &models.CallRecord{CallID: "CA1", TeamID: "team-1"}))
	require.NoError(t, models.AppendTranscript(db, &models.TranscriptEntry{
		CallID: "CA1", Speaker: models.SpeakerCaller, Text: "hello",
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/calls/CA1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"team_id":"team-1"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/calls/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/calls/CA1/transcripts", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"hello"`)
}

func TestMediaStreamEndToEnd(t *testing.T) {
	db := testDB(t)
	cfg := testConfig()

	gate := make(chan struct{})
	ai := newAIConn()
	m := bridge.NewManager(cfg, bridge.Deps{
		DB: db, Knowledge: stubKnowledge{}, Prompts: stubPrompts{}, Transfer: stubTransfer{},
		Dialer: func(context.Context, string, http.Header) (realtime.Conn, error) {
			<-gate
			return ai, nil
		},
	})
	router := NewRouter(cfg, m, db)
	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/media-stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"connected"}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"start","start":{"streamSid":"MZ1","callSid":"CA1","customParameters":{"teamId":"team-1"}}}`)))

	// the AI dial is still gated: these frames must be dropped, with no
	// audio reaching the AI leg and no error surfaced
	frame := base64.StdEncoding.EncodeToString(make([]byte, 160))
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"event":"media","media":{"payload":"`+frame+`"}}`)))
	}

	require.Eventually(t, func() bool { return m.ActiveCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, ai.audioAppendCount())

	close(gate)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"stop"}`)))

	require.Eventually(t, func() bool { return m.ActiveCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, ai.audioAppendCount())

	rec, err := models.GetCallRecordByCallID(db, "CA1")
	require.NoError(t, err)
	assert.Equal(t, models.CallStatusCompleted, rec.Status)
}

// Package bridge owns the per-call pairing of telephony stream and
// realtime AI session, keyed by stream id.
package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/code-100-precent/echobridge/internal/models"
	"github.com/code-100-precent/echobridge/pkg/collab"
	"github.com/code-100-precent/echobridge/pkg/config"
	"github.com/code-100-precent/echobridge/pkg/conversation"
	"github.com/code-100-precent/echobridge/pkg/events"
	"github.com/code-100-precent/echobridge/pkg/logger"
	"github.com/code-100-precent/echobridge/pkg/metrics"
	"github.com/code-100-precent/echobridge/pkg/realtime"
	"github.com/code-100-precent/echobridge/pkg/sinks"
	"github.com/code-100-precent/echobridge/pkg/telephony"
)

// Manager owns the table of live call sessions. There is exactly one
// CallSession per live stream id; the table is the only state shared
// across calls.
type Manager struct {
	cfg         *config.Config
	db          *gorm.DB
	knowledge   collab.KnowledgeRetriever
	prompts     collab.PromptBuilder
	trigger     *conversation.Trigger
	transcripts sinks.TranscriptSink
	recordings  sinks.RecordingSink
	bus         *events.Bus
	dialer      realtime.Dialer
	topK        int

	mu       sync.RWMutex
	sessions map[string]*CallSession
}

// Deps bundles the manager's collaborators.
type Deps struct {
	DB          *gorm.DB
	Knowledge   collab.KnowledgeRetriever
	Prompts     collab.PromptBuilder
	Transfer    collab.TransferQueue
	Transcripts sinks.TranscriptSink
	Recordings  sinks.RecordingSink
	Bus         *events.Bus
	Dialer      realtime.Dialer // nil means the real websocket dialer
}

func NewManager(cfg *config.Config, deps Deps) *Manager {
	transcripts := deps.Transcripts
	if transcripts == nil {
		transcripts = sinks.NopTranscriptSink{}
	}
	recordings := deps.Recordings
	if recordings == nil {
		recordings = sinks.NopRecordingSink{}
	}
	bus := deps.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	return &Manager{
		cfg:         cfg,
		db:          deps.DB,
		knowledge:   deps.Knowledge,
		prompts:     deps.Prompts,
		trigger:     conversation.NewTrigger(deps.Transfer),
		transcripts: transcripts,
		recordings:  recordings,
		bus:         bus,
		dialer:      deps.Dialer,
		topK:        cfg.Collaborator.RetrievalTopK,
		sessions:    make(map[string]*CallSession),
	}
}

// StartCall creates the CallSession for a freshly started stream and
// opens its AI leg. The AI connect happens asynchronously; media frames
// arriving before the socket is open are dropped by the session.
func (m *Manager) StartCall(ctx context.Context, streamID, callID string, params map[string]string, out *telephony.Writer) (telephony.Call, error) {
	if streamID == "" {
		return nil, fmt.Errorf("start event without stream id")
	}
	if callID == "" {
		callID = uuid.NewString()
	}
	teamID := params["teamId"]

	m.mu.Lock()
	if _, exists := m.sessions[streamID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("stream %s already has a live call", streamID)
	}
	// reserve the slot before the slow prompt call
	m.sessions[streamID] = nil
	m.mu.Unlock()

	prompt := collab.BuildSoft(ctx, m.prompts, callID, teamID, params["campaignId"], params["templateId"])

	callCtx, cancel := context.WithCancel(context.Background())
	cs := &CallSession{
		callID:   callID,
		streamID: streamID,
		teamID:   teamID,
		manager:  m,
		conv:     conversation.NewContext(callID, teamID, prompt.ConfidenceThreshold),
		out:      out,
		ctx:      callCtx,
		cancel:   cancel,
	}

	instructions := prompt.SystemPrompt
	if prompt.Context != "" {
		instructions += "\n\n" + prompt.Context
	}
	cs.rt = realtime.NewSession(callID, realtime.Config{
		URL:            m.cfg.Bridge.AIEndpoint,
		APIKey:         m.cfg.Bridge.APIKey,
		Model:          m.cfg.Bridge.Model,
		Voice:          m.cfg.Bridge.Voice,
		Instructions:   instructions,
		Greeting:       m.cfg.Bridge.Greeting,
		CallSampleRate: m.cfg.Bridge.CallSampleRate,
		AISampleRate:   m.cfg.Bridge.AISampleRate,
		ReconnectBase:  m.cfg.Bridge.ReconnectBase,
		MaxReconnects:  m.cfg.Bridge.MaxReconnects,
		QueueSize:      m.cfg.Bridge.AudioQueueSize,
	}, realtime.Handlers{
		OnAudioOut:          cs.onAudioOut,
		OnCallerUtterance:   cs.onCallerUtterance,
		OnAssistantResponse: cs.onAssistantResponse,
		OnTerminal:          cs.onTerminal,
	}, m.dialer)

	m.mu.Lock()
	m.sessions[streamID] = cs
	m.mu.Unlock()

	if m.db != nil {
		err := models.CreateCallRecord(m.db, &models.CallRecord{
			CallID:     callID,
			StreamID:   streamID,
			TeamID:     teamID,
			CampaignID: params["campaignId"],
			TemplateID: params["templateId"],
		})
		if err != nil {
			logger.Warn("call record insert failed", zap.String("call_id", callID), zap.Error(err))
		}
	}

	metrics.ActiveCalls.Inc()
	m.bus.Publish(events.Event{
		Type:    events.EventCallStarted,
		CallID:  callID,
		Payload: map[string]any{"stream_id": streamID, "team_id": teamID},
	})
	logger.Info("call started",
		zap.String("call_id", callID),
		zap.String("stream_id", streamID),
		zap.String("team_id", teamID))

	go cs.rt.ConnectWithRetry(callCtx)
	return cs, nil
}

// Lookup returns the live session for a stream id.
func (m *Manager) Lookup(streamID string) (*CallSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cs, ok := m.sessions[streamID]
	return cs, ok && cs != nil
}

// ActiveCount returns the number of live call sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, cs := range m.sessions {
		if cs != nil {
			n++
		}
	}
	return n
}

func (m *Manager) release(streamID string) {
	m.mu.Lock()
	delete(m.sessions, streamID)
	m.mu.Unlock()
}

// Shutdown ends every live call.
func (m *Manager) Shutdown() {
	m.mu.RLock()
	live := make([]*CallSession, 0, len(m.sessions))
	for _, cs := range m.sessions {
		if cs != nil {
			live = append(live, cs)
		}
	}
	m.mu.RUnlock()

	for _, cs := range live {
		cs.End()
	}
}

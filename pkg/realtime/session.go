// Package realtime owns the persistent socket to the conversational AI
// backend: its protocol state machine, bounded reconnection, transcript
// assembly and the audio transcoding between the telephony leg and the
// AI leg.
package realtime

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/audio"
	"github.com/code-100-precent/echobridge/pkg/logger"
	"github.com/code-100-precent/echobridge/pkg/metrics"
)

// State is the socket lifecycle state of a session.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosing
)

var ErrSessionClosed = errors.New("realtime session closed")

// Conn is the subset of the websocket connection the session uses.
// Tests substitute an in-memory implementation.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a connection to the AI backend.
type Dialer func(ctx context.Context, url string, header http.Header) (Conn, error)

// DefaultDialer dials over a real websocket.
func DefaultDialer(ctx context.Context, url string, header http.Header) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	return conn, err
}

// Config controls one session's AI leg.
type Config struct {
	URL            string
	APIKey         string
	Model          string
	Voice          string
	Instructions   string
	Greeting       string
	CallSampleRate int
	AISampleRate   int
	ReconnectBase  time.Duration
	MaxReconnects  int
	QueueSize      int
}

// Handlers receive the session's outputs. All callbacks run on the
// session's read goroutine and must not block.
type Handlers struct {
	OnAudioOut          func(mulaw []byte)
	OnCallerUtterance   func(text string)
	OnAssistantResponse func(text string)
	OnTerminal          func()
}

// Session owns one call's socket to the AI backend. It is created in
// StateDisconnected; Connect establishes the socket and every successful
// connect replays the session configuration.
type Session struct {
	cfg      Config
	callID   string
	dialer   Dialer
	handlers Handlers

	transcripts *transcriptStore

	outCh chan []byte
	done  chan struct{}

	mu             sync.Mutex
	state          State
	conn           Conn
	attempts       int
	greetingSent   bool
	terminal       bool
	closed         bool
	reconnectTimer *time.Timer
	callCtx        context.Context
}

func NewSession(callID string, cfg Config, handlers Handlers, dialer Dialer) *Session {
	if dialer == nil {
		dialer = DefaultDialer
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	s := &Session{
		cfg:         cfg,
		callID:      callID,
		dialer:      dialer,
		handlers:    handlers,
		transcripts: newTranscriptStore(),
		outCh:       make(chan []byte, cfg.QueueSize),
		done:        make(chan struct{}),
	}
	go s.writeLoop()
	return s
}

// State returns the current socket lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Terminal reports whether reconnection has been exhausted for good.
func (s *Session) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// Connect dials the AI backend and configures the session. The context
// bounds the call's lifetime and is reused for reconnect dials.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.state = StateConnecting
	s.callCtx = ctx
	s.mu.Unlock()

	conn, err := s.dialer(ctx, s.dialURL(), s.dialHeader())
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return ErrSessionClosed
	}
	s.conn = conn
	s.state = StateConnected
	s.attempts = 0
	first := !s.greetingSent
	s.greetingSent = true
	s.mu.Unlock()

	go s.readLoop(conn)

	if err := s.sendControl(newSessionUpdate(s.cfg)); err != nil {
		return err
	}
	if first {
		greeting := s.cfg.Greeting
		if greeting == "" {
			greeting = "Greet the caller warmly and ask how you can help."
		}
		if err := s.sendControl(newResponseCreate(greeting)); err != nil {
			return err
		}
	}

	logger.Info("ai session connected", zap.String("call_id", s.callID))
	return nil
}

// ConnectWithRetry dials the backend and hands a failed initial dial to
// the same bounded reconnect policy used for mid-call drops.
func (s *Session) ConnectWithRetry(ctx context.Context) {
	if err := s.Connect(ctx); err != nil && !errors.Is(err, ErrSessionClosed) {
		logger.Warn("initial ai connect failed",
			zap.String("call_id", s.callID), zap.Error(err))
		s.scheduleReconnect()
	}
}

func (s *Session) dialURL() string {
	if s.cfg.Model == "" {
		return s.cfg.URL
	}
	return s.cfg.URL + "?model=" + s.cfg.Model
}

func (s *Session) dialHeader() http.Header {
	h := http.Header{}
	if s.cfg.APIKey != "" {
		h.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}
	h.Set("OpenAI-Beta", "realtime=v1")
	return h
}

// SendAudio forwards one caller audio buffer (PCM16 at the call rate) to
// the AI leg. It never blocks: when the socket is not open or the queue
// is full the frame is dropped and false is returned.
func (s *Session) SendAudio(pcm []byte) bool {
	s.mu.Lock()
	open := s.state == StateConnected
	s.mu.Unlock()
	if !open {
		metrics.MediaFramesDropped.Inc()
		return false
	}

	resampled := audio.ResampleLinear(pcm, s.cfg.CallSampleRate, s.cfg.AISampleRate)
	data, err := sonic.Marshal(newAudioAppend(base64.StdEncoding.EncodeToString(resampled)))
	if err != nil {
		return false
	}

	select {
	case s.outCh <- data:
		metrics.MediaFramesForwarded.Inc()
		return true
	default:
		metrics.MediaFramesDropped.Inc()
		return false
	}
}

// AcknowledgeHandoff asks the AI to acknowledge a pending human transfer
// instead of continuing its original task.
func (s *Session) AcknowledgeHandoff(reason string) error {
	instruction := "The caller is being transferred to a human agent. Briefly acknowledge the handoff, reassure them someone will assist shortly, and do not continue the previous task."
	if reason == "" {
		return s.sendControl(newResponseCreate(instruction))
	}
	return s.sendControl(newResponseCreate(instruction + " Transfer reason: " + reason + "."))
}

func (s *Session) sendControl(v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case s.outCh <- data:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// writeLoop is the session's single socket writer.
func (s *Session) writeLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.outCh:
			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ai write failed", zap.String("call_id", s.callID), zap.Error(err))
			}
		}
	}
}

func (s *Session) readLoop(conn Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleSocketClosed(conn, err)
			return
		}
		ev, perr := ParseEvent(data)
		if perr != nil {
			logger.Warn("skipping malformed ai event",
				zap.String("call_id", s.callID), zap.Error(perr))
			continue
		}
		s.dispatch(ev)
	}
}

func (s *Session) dispatch(ev Event) {
	switch ev.Kind {
	case KindSessionCreated, KindSessionUpdated, KindResponseCreated:
		logger.Debug("ai lifecycle event",
			zap.String("call_id", s.callID), zap.String("type", ev.Type))

	case KindAudioDelta:
		pcm, err := base64.StdEncoding.DecodeString(ev.Delta)
		if err != nil {
			logger.Warn("bad audio delta", zap.String("call_id", s.callID), zap.Error(err))
			return
		}
		downsampled := audio.ResampleLinear(pcm, s.cfg.AISampleRate, s.cfg.CallSampleRate)
		if s.handlers.OnAudioOut != nil {
			s.handlers.OnAudioOut(audio.EncodeBuffer(downsampled))
		}

	case KindAudioTranscriptDelta, KindTextDelta:
		s.transcripts.append(ev.ResponseID, ev.Delta)

	case KindInputTranscriptionCompleted:
		if s.handlers.OnCallerUtterance != nil {
			s.handlers.OnCallerUtterance(ev.Transcript)
		}

	case KindResponseDone:
		accumulated := s.transcripts.consume(ev.ResponseID)
		text, ok := finalizeTranscript(accumulated, ev.Payload)
		if !ok {
			logger.Warn("no transcript text recoverable",
				zap.String("call_id", s.callID),
				zap.String("response_id", ev.ResponseID),
				zap.Any("payload", ev.Payload))
		}
		if s.handlers.OnAssistantResponse != nil {
			s.handlers.OnAssistantResponse(text)
		}

	case KindSpeechStarted, KindSpeechStopped:
		logger.Debug("turn taking", zap.String("call_id", s.callID), zap.String("type", ev.Type))

	case KindError:
		logger.Error("ai backend error",
			zap.String("call_id", s.callID), zap.Any("payload", ev.Payload))

	default:
		logger.Debug("unrecognized ai event",
			zap.String("call_id", s.callID), zap.String("type", ev.Type))
	}
}

// handleSocketClosed runs the bounded reconnection policy when the
// socket drops while the call is still active.
func (s *Session) handleSocketClosed(conn Conn, err error) {
	s.mu.Lock()
	if s.closed || s.conn != conn {
		s.mu.Unlock()
		return
	}
	s.conn = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	logger.Warn("ai socket closed unexpectedly",
		zap.String("call_id", s.callID), zap.Error(err))
	s.scheduleReconnect()
}

func (s *Session) scheduleReconnect() {
	s.mu.Lock()
	if s.closed || s.terminal {
		s.mu.Unlock()
		return
	}
	s.attempts++
	if s.attempts > s.cfg.MaxReconnects {
		s.terminal = true
		s.mu.Unlock()
		logger.Error("ai reconnects exhausted, audio bridge stopping",
			zap.String("call_id", s.callID), zap.Int("attempts", s.cfg.MaxReconnects))
		if s.handlers.OnTerminal != nil {
			s.handlers.OnTerminal()
		}
		return
	}
	attempt := s.attempts
	delay := s.cfg.ReconnectBase * time.Duration(attempt)
	s.reconnectTimer = time.AfterFunc(delay, s.reconnect)
	s.mu.Unlock()

	metrics.AIReconnects.Inc()
	logger.Info("scheduling ai reconnect",
		zap.String("call_id", s.callID),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay))
}

func (s *Session) reconnect() {
	s.mu.Lock()
	if s.closed || s.terminal {
		s.mu.Unlock()
		return
	}
	ctx := s.callCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.Connect(ctx); err != nil {
		logger.Warn("ai reconnect failed", zap.String("call_id", s.callID), zap.Error(err))
		s.scheduleReconnect()
	}
}

// Close tears the session down: the pending reconnect timer is cancelled
// first so it can never fire against released state.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = StateClosing
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	close(s.done)
	var err error
	if conn != nil {
		err = conn.Close()
	}
	s.transcripts.reset()

	s.mu.Lock()
	s.state = StateDisconnected
	s.mu.Unlock()
	return err
}

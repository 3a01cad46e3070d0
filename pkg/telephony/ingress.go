package telephony

import (
	"context"
	"encoding/base64"

	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/audio"
	"github.com/code-100-precent/echobridge/pkg/logger"
)

// IngressState tracks where a media stream is in its lifecycle.
type IngressState int

const (
	StateIdle IngressState = iota
	StateConnected
	StateStreaming
	StateStopped
)

// Call is the bridge-side handle the ingress forwards audio into.
type Call interface {
	// ForwardAudio relays decoded caller audio (PCM16 at the call rate)
	// to the AI leg. It reports whether the frame was actually forwarded.
	ForwardAudio(pcm []byte) bool
	// End tears the call down.
	End()
}

// CallController creates calls when a stream starts. Implemented by the
// bridge's session manager.
type CallController interface {
	StartCall(ctx context.Context, streamID, callID string, params map[string]string, out *Writer) (Call, error)
}

// Ingress runs the inbound state machine for one telephony socket:
// Idle -> Connected -> Streaming -> Stopped.
type Ingress struct {
	conn       Conn
	writer     *Writer
	controller CallController

	state    IngressState
	streamID string
	call     Call
}

func NewIngress(conn Conn, controller CallController, queueSize int) *Ingress {
	return &Ingress{
		conn:       conn,
		writer:     NewWriter(conn, queueSize),
		controller: controller,
		state:      StateIdle,
	}
}

// State is exposed for tests; Run is single-goroutine so no locking.
func (in *Ingress) State() IngressState { return in.state }

// Run reads the socket until the stream stops or the transport closes.
// A transport close mid-stream is treated the same as an explicit stop.
func (in *Ingress) Run(ctx context.Context) {
	defer in.teardown()

	for {
		_, data, err := in.conn.ReadMessage()
		if err != nil {
			if in.state == StateStreaming {
				logger.Info("transport closed mid-stream, stopping call",
					zap.String("stream_id", in.streamID))
			}
			return
		}

		ev, perr := ParseMediaEvent(data)
		if perr != nil {
			logger.Warn("skipping malformed media event", zap.Error(perr))
			continue
		}

		if done := in.handle(ctx, ev); done {
			return
		}
	}
}

func (in *Ingress) handle(ctx context.Context, ev MediaEvent) bool {
	switch ev.Kind {
	case KindConnected:
		if in.state != StateIdle {
			logger.Warn("unexpected connected event", zap.Int("state", int(in.state)))
			return false
		}
		in.state = StateConnected
		logger.Info("media stream connected")

	case KindStart:
		if in.state != StateConnected {
			logger.Warn("unexpected start event", zap.Int("state", int(in.state)))
			return false
		}
		call, err := in.controller.StartCall(ctx, ev.StreamID, ev.CallID, ev.Params, in.writer)
		if err != nil {
			logger.Error("failed to start call",
				zap.String("stream_id", ev.StreamID), zap.Error(err))
			return true
		}
		in.streamID = ev.StreamID
		in.call = call
		in.state = StateStreaming
		logger.Info("media stream started",
			zap.String("stream_id", ev.StreamID), zap.String("call_id", ev.CallID))

	case KindMedia:
		if in.state != StateStreaming {
			return false
		}
		mulaw, err := base64.StdEncoding.DecodeString(ev.Payload)
		if err != nil {
			logger.Warn("bad media payload", zap.String("stream_id", in.streamID), zap.Error(err))
			return false
		}
		// frames the AI leg cannot take right now are dropped, not queued
		in.call.ForwardAudio(audio.DecodeBuffer(mulaw))

	case KindStop:
		if in.state != StateStreaming {
			return false
		}
		in.state = StateStopped
		logger.Info("media stream stopped", zap.String("stream_id", in.streamID))
		return true

	default:
		logger.Debug("unrecognized media event", zap.String("event", ev.EventName))
	}
	return false
}

func (in *Ingress) teardown() {
	if in.call != nil {
		in.call.End()
		in.call = nil
	}
	in.writer.Close()
	_ = in.conn.Close()
	if in.state == StateStreaming {
		in.state = StateStopped
	}
}

package telephony

import (
	"encoding/base64"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/logger"
)

// Conn is the subset of the websocket connection the ingress and writer
// use. Tests substitute an in-memory implementation.
type Conn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type outboundMedia struct {
	Event     string      `json:"event"`
	StreamSID string      `json:"streamSid"`
	Media     wirePayload `json:"media"`
}

// Writer is the single-goroutine outbound leg of a telephony socket.
// Sends never block the caller; frames are dropped when the queue is
// full so a slow socket cannot add latency to the AI leg.
type Writer struct {
	conn Conn
	ch   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func NewWriter(conn Conn, queueSize int) *Writer {
	if queueSize <= 0 {
		queueSize = 256
	}
	w := &Writer{
		conn: conn,
		ch:   make(chan []byte, queueSize),
		done: make(chan struct{}),
	}
	go w.loop()
	return w
}

func (w *Writer) loop() {
	for {
		select {
		case <-w.done:
			return
		case msg := <-w.ch:
			if err := w.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("telephony write failed", zap.Error(err))
			}
		}
	}
}

// SendMedia plays companded audio back to the caller.
func (w *Writer) SendMedia(streamID string, mulaw []byte) {
	msg, err := sonic.Marshal(outboundMedia{
		Event:     "media",
		StreamSID: streamID,
		Media:     wirePayload{Payload: base64.StdEncoding.EncodeToString(mulaw)},
	})
	if err != nil {
		return
	}
	select {
	case w.ch <- msg:
	case <-w.done:
	default:
		logger.Debug("telephony outbound queue full, dropping frame",
			zap.String("stream_id", streamID))
	}
}

// Close stops the writer loop. The connection itself is owned by the
// ingress and closed there.
func (w *Writer) Close() {
	w.closeOnce.Do(func() { close(w.done) })
}

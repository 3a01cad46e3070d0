package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/pkg/bridge"
	"github.com/code-100-precent/echobridge/pkg/logger"
	"github.com/code-100-precent/echobridge/pkg/telephony"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// the telephony provider connects from its own cloud, not a browser
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MediaStreamHandler upgrades the telephony connection and runs one
// ingress state machine per socket.
type MediaStreamHandler struct {
	manager   *bridge.Manager
	queueSize int
}

func NewMediaStreamHandler(manager *bridge.Manager, queueSize int) *MediaStreamHandler {
	return &MediaStreamHandler{manager: manager, queueSize: queueSize}
}

func (h *MediaStreamHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("media stream upgrade failed", zap.Error(err))
		return
	}

	// the socket outlives the HTTP exchange; run the state machine on a
	// background context until the stream closes
	ingress := telephony.NewIngress(conn, h.manager, h.queueSize)
	ingress.Run(context.Background())
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/code-100-precent/echobridge/pkg/bridge"
	"github.com/code-100-precent/echobridge/pkg/config"
)

// NewRouter wires the HTTP surface: the media-stream socket, call
// queries, health and metrics.
func NewRouter(cfg *config.Config, manager *bridge.Manager, db *gorm.DB) *gin.Engine {
	if cfg.Server.Mode != "dev" && cfg.Server.Mode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"active_calls": manager.ActiveCount(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	media := NewMediaStreamHandler(manager, cfg.Bridge.AudioQueueSize)
	r.GET("/ws/media-stream", media.Handle)

	calls := NewCallHandler(db)
	api := r.Group("/api/v1")
	{
		api.GET("/calls/:callId", calls.GetCall)
		api.GET("/calls/:callId/transcripts", calls.GetTranscripts)
	}

	return r
}

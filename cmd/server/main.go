package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/code-100-precent/echobridge/cmd/bootstrap"
	"github.com/code-100-precent/echobridge/internal/handler"
	"github.com/code-100-precent/echobridge/pkg/bridge"
	"github.com/code-100-precent/echobridge/pkg/cache"
	"github.com/code-100-precent/echobridge/pkg/collab"
	"github.com/code-100-precent/echobridge/pkg/config"
	"github.com/code-100-precent/echobridge/pkg/events"
	"github.com/code-100-precent/echobridge/pkg/logger"
	"github.com/code-100-precent/echobridge/pkg/sinks"
	"github.com/code-100-precent/echobridge/pkg/utils"
)

func main() {
	utils.LoadEnv(os.Getenv("APP_ENV"))

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&cfg.Log, cfg.Server.Mode); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := bootstrap.SetupDatabase(&cfg.Database)
	if err != nil {
		logger.Fatal("setup database", zap.Error(err))
	}

	c, err := cache.New(&cfg.Cache)
	if err != nil {
		logger.Fatal("setup cache", zap.Error(err))
	}
	defer c.Close()

	var transcripts sinks.TranscriptSink = sinks.NopTranscriptSink{}
	if cfg.Bridge.TranscriptEnabled {
		transcripts = sinks.NewDBTranscriptSink(db)
	}
	var recordings sinks.RecordingSink = sinks.NopRecordingSink{}
	if cfg.Bridge.RecordingEnabled {
		recordings = sinks.NewWAVRecordingSink(cfg.Bridge.RecordingDir, cfg.Bridge.CallSampleRate)
	}

	manager := bridge.NewManager(cfg, bridge.Deps{
		DB:          db,
		Knowledge:   collab.NewKnowledgeRetriever(&cfg.Collaborator),
		Prompts:     collab.NewPromptBuilder(&cfg.Collaborator, c),
		Transfer:    collab.NewTransferQueue(&cfg.Collaborator),
		Transcripts: transcripts,
		Recordings:  recordings,
		Bus:         events.NewBus(),
	})

	router := handler.NewRouter(cfg, manager, db)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	manager.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

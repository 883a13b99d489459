package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/jmfer1/go-emergency-alerts/internal/alerting"
	"github.com/jmfer1/go-emergency-alerts/internal/api"
	"github.com/jmfer1/go-emergency-alerts/internal/config"
	"github.com/jmfer1/go-emergency-alerts/internal/fcm"
	"github.com/jmfer1/go-emergency-alerts/internal/logging"
	"github.com/jmfer1/go-emergency-alerts/internal/repository"
	"github.com/jmfer1/go-emergency-alerts/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Broadcaster for realtime websocket listeners
	broadcaster := ws.NewBroadcaster()

	annotator := alerting.NewGeminiAnnotator(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, cfg.Gemini.Model, cfg.Gemini.Timeout)

	var sender alerting.PushSender = alerting.LogSender{}
	var verifier api.TokenVerifier
	if cfg.Firebase.CredentialsFile != "" {
		client, err := fcm.NewClient(ctx, cfg.Firebase.CredentialsFile)
		if err != nil {
			logging.Fatalf("Failed to initialize firebase: %v", err)
		}
		sender = client
		verifier = client
	} else {
		slog.Warn("FIREBASE_CREDENTIALS not set, push notifications will only be logged")
	}

	dispatcher := alerting.NewDispatcher(sender, cfg.Worker.Count, cfg.Worker.BufferSize, cfg.Alerting.PushTimeout)
	dispatcher.Start(ctx)

	svc := alerting.NewService(db, db, annotator, dispatcher, broadcaster, cfg.Alerting.RadiusKm)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	var authMiddleware gin.HandlerFunc
	if cfg.Firebase.AuthRequired {
		authMiddleware = api.AuthMiddleware(verifier)
	}

	handler := api.NewHandler(svc, db, annotator, ws.NewHandler(broadcaster))
	handler.RegisterRoutes(router, authMiddleware)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Drain HTTP first so in-flight dispatches finish their sends.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	dispatcher.Stop()
	broadcaster.Close() // Close all streams gracefully
	cancel()

	slog.Info("shutdown complete")
}

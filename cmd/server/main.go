package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmarceau/streamgate/internal/broadcast"
	"github.com/dmarceau/streamgate/internal/config"
	"github.com/dmarceau/streamgate/internal/downloader"
	"github.com/dmarceau/streamgate/internal/gate"
	httpapp "github.com/dmarceau/streamgate/internal/http"
	"github.com/dmarceau/streamgate/internal/logger"
	"github.com/dmarceau/streamgate/internal/registry"
	"github.com/dmarceau/streamgate/internal/storage"
	"github.com/dmarceau/streamgate/internal/store"
	"github.com/dmarceau/streamgate/internal/ytdlp"
)

func main() {
	cfg := config.Load()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Work dir for in-flight downloads. Leftovers from a previous run are
	// orphans; clear them on boot.
	if err := storage.CleanupDir(cfg.TmpDir); err != nil {
		appLogger.Warn("Failed to clear work dir", "error", err)
	}
	if err := storage.EnsureDir(cfg.TmpDir); err != nil {
		appLogger.Error("Failed to create work dir", "error", err)
		os.Exit(1)
	}

	// Initialize the download pipeline
	reg := registry.New(cfg.JobRetention)
	hub := broadcast.NewHub()
	g := gate.New(cfg.MaxConcurrent, cfg.MaxBandwidth)
	invoker := ytdlp.New(cfg.YTDLPPath, cfg.FFmpegPath, cfg.CookiesFile)
	orchestrator := downloader.New(cfg, invoker, reg, hub, g, appLogger)

	// Initialize Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Routes
	h := httpapp.NewHandler(orchestrator, reg, hub, g, invoker, db, cfg)
	h.RegisterRoutes(r)

	// Start Server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

package httpapp

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmarceau/streamgate/internal/broadcast"
	"github.com/dmarceau/streamgate/internal/config"
	"github.com/dmarceau/streamgate/internal/downloader"
	"github.com/dmarceau/streamgate/internal/gate"
	"github.com/dmarceau/streamgate/internal/logger"
	"github.com/dmarceau/streamgate/internal/registry"
	"github.com/dmarceau/streamgate/internal/store"
)

type Handler struct {
	Orchestrator *downloader.Orchestrator
	Registry     *registry.Registry
	Hub          *broadcast.Hub
	Gate         *gate.Gate
	Runner       downloader.Runner
	DB           *store.DB
	Config       *config.Config
	Logger       *logger.Logger

	limiters *limiterPool
}

func NewHandler(o *downloader.Orchestrator, reg *registry.Registry, hub *broadcast.Hub, g *gate.Gate, runner downloader.Runner, db *store.DB, cfg *config.Config) *Handler {
	return &Handler{
		Orchestrator: o,
		Registry:     reg,
		Hub:          hub,
		Gate:         g,
		Runner:       runner,
		DB:           db,
		Config:       cfg,
		Logger:       logger.Default().WithComponent("http"),
		limiters:     newLimiterPool(cfg.RateLimitRPM),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Healthz)

	r.Group(func(r chi.Router) {
		r.Use(h.Authenticate)
		r.Use(h.RateLimit)
		r.Use(h.LogRequests)

		r.Post("/api/download", h.Download)
		r.Get("/api/progress/{id}", h.Progress)
		r.Get("/api/jobs", h.Jobs)
		r.Get("/api/formats", h.Formats)
		r.Get("/ws", h.WebSocket)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Post("/api/keys", h.CreateKey)
			r.Get("/api/keys", h.ListKeys)
			r.Delete("/api/keys/{id}", h.DeleteKey)
		})
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

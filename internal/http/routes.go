package httpapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmarceau/streamgate/internal/constants"
	"github.com/dmarceau/streamgate/internal/downloader"
	"github.com/dmarceau/streamgate/internal/http/dto"
	"github.com/dmarceau/streamgate/internal/registry"
)

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Download runs the whole pipeline inside the request: the response streams
// the finished file. The job id is exposed in a header up front so clients
// can follow progress on a second connection while this one blocks.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	var req dto.DownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": dto.ToMap(errs)})
		return
	}

	job := h.Orchestrator.Create(downloader.Request{URL: req.URL, FormatID: req.FormatID})
	w.Header().Set("X-Job-Id", job.ID)

	streamed, err := h.Orchestrator.Run(r.Context(), job.ID, w)
	if err != nil && !streamed {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		h.writeError(w, status, err.Error())
	}
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.Registry.Get(id)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, dto.NewJobResponse(job))
}

func (h *Handler) Jobs(w http.ResponseWriter, r *http.Request) {
	stats := h.Gate.Stats()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"active":      stats.Active,
		"queued":      stats.Queued,
		"active_jobs": stats.ActiveJobs,
		"tracked":     h.Registry.Len(),
	})
}

// Formats lists the source's downloadable variants. Listings are cached so
// repeated calls for the same URL skip the probe.
func (h *Handler) Formats(w http.ResponseWriter, r *http.Request) {
	mediaURL := r.URL.Query().Get("url")
	req := dto.DownloadRequest{URL: mediaURL}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": dto.ToMap(errs)})
		return
	}

	if cached, err := h.DB.GetFormatCache(mediaURL); err == nil && cached != nil {
		w.Header().Set("Content-Type", constants.MimeTypeJSON)
		w.Write(cached)
		return
	}

	meta, err := h.Runner.Probe(r.Context(), mediaURL)
	if err != nil {
		h.writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	payload, err := json.Marshal(map[string]interface{}{
		"url":     mediaURL,
		"title":   meta.Title,
		"formats": meta.Formats,
	})
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.DB.SetFormatCache(mediaURL, payload, constants.DefaultCacheTTL); err != nil {
		h.Logger.Warn("Failed to cache format listing", "error", err)
	}

	w.Header().Set("Content-Type", constants.MimeTypeJSON)
	w.Write(payload)
}

func (h *Handler) CreateKey(w http.ResponseWriter, r *http.Request) {
	var req dto.KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		h.writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": dto.ToMap(errs)})
		return
	}

	key, err := h.DB.CreateKey(req.Name)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, key)
}

func (h *Handler) ListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.DB.ListKeys()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, keys)
}

func (h *Handler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.DB.DeleteKey(id); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

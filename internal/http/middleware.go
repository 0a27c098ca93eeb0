package httpapp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmarceau/streamgate/internal/store"
)

type ctxKey string

const (
	ctxKeyID    ctxKey = "key_id"
	ctxKeyAdmin ctxKey = "key_admin"
)

func keyFromRequest(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	// WebSocket clients cannot set headers from browsers; accept a query
	// parameter there.
	return r.URL.Query().Get("api_key")
}

// Authenticate resolves the caller's API key. The bootstrap key from config
// grants admin; all other keys must exist in the store and not be revoked.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := keyFromRequest(r)
		if key == "" {
			h.writeError(w, http.StatusUnauthorized, "missing API key")
			return
		}

		ctx := r.Context()
		if h.Config.APIKey != "" && key == h.Config.APIKey {
			ctx = context.WithValue(ctx, ctxKeyID, "bootstrap")
			ctx = context.WithValue(ctx, ctxKeyAdmin, true)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		record, err := h.DB.GetByKey(key)
		if err != nil {
			h.writeError(w, http.StatusInternalServerError, "key lookup failed")
			return
		}
		if record == nil || record.Revoked {
			h.writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		go func(id string) {
			if err := h.DB.IncrementKeyUsage(id); err != nil {
				h.Logger.Warn("Failed to count key usage", "error", err)
			}
		}(record.ID)

		ctx = context.WithValue(ctx, ctxKeyID, record.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if admin, _ := r.Context().Value(ctxKeyAdmin).(bool); !admin {
			h.writeError(w, http.StatusForbidden, "admin key required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limiterPool keeps one token bucket per API key id.
type limiterPool struct {
	mu       sync.Mutex
	rpm      int
	limiters map[string]*rate.Limiter
}

func newLimiterPool(rpm int) *limiterPool {
	if rpm < 1 {
		rpm = 1
	}
	return &limiterPool{
		rpm:      rpm,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (p *limiterPool) get(id string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	lim, ok := p.limiters[id]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(p.rpm)), p.rpm)
		p.limiters[id] = lim
	}
	return lim
}

func (h *Handler) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := r.Context().Value(ctxKeyID).(string)
		if !h.limiters.get(id).Allow() {
			w.Header().Set("Retry-After", "1")
			h.writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// Hijack hands the connection to wrapped handlers; the WebSocket upgrade
// needs it from inside this middleware.
func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not support hijacking")
	}
	return hj.Hijack()
}

// LogRequests emits one structured line per request and persists the entry
// best-effort after the response is written.
func (h *Handler) LogRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		keyID, _ := r.Context().Value(ctxKeyID).(string)
		h.Logger.Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", duration,
			"key", keyID,
		)

		entry := &store.RequestLogEntry{
			KeyID:      keyID,
			Method:     r.Method,
			Path:       r.URL.Path,
			Status:     rec.status,
			DurationMs: duration.Milliseconds(),
		}
		go func() {
			if err := h.DB.InsertRequestLog(entry); err != nil {
				h.Logger.Warn("Failed to persist request log", "error", err)
			}
		}()
	})
}

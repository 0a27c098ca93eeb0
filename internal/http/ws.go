package httpapp

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dmarceau/streamgate/internal/constants"
	"github.com/dmarceau/streamgate/internal/http/dto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type subscribeMessage struct {
	Action string `json:"action"`
	JobID  string `json:"job_id"`
}

// WebSocket pushes one JSON job snapshot per update for a subscribed job.
// The client opens the socket and sends {"action":"subscribe","job_id":...};
// the stream ends after the terminal snapshot or on disconnect.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var msg subscribeMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return
	}
	if msg.Action != "subscribe" || msg.JobID == "" {
		conn.WriteJSON(map[string]string{"error": "expected subscribe message with job_id"})
		return
	}

	sub := h.Hub.Subscribe(msg.JobID, constants.SubscriberBuffer)
	defer sub.Close()

	// Snapshot first so subscribers joining mid-download see current state
	// immediately. Events published before this point are not replayed, and
	// buffered events older than the snapshot are dropped below so the
	// client never observes state moving backwards.
	var lastSeen time.Time
	if job, err := h.Registry.Get(msg.JobID); err == nil {
		if err := conn.WriteJSON(dto.NewJobResponse(job)); err != nil {
			return
		}
		if job.Status.Terminal() {
			return
		}
		lastSeen = job.UpdatedAt
	}

	// Reader pump: the only reads left are control frames and disconnects.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Close()
				return
			}
		}
	}()

	for job := range sub.C {
		if !job.UpdatedAt.After(lastSeen) {
			continue
		}
		lastSeen = job.UpdatedAt
		if err := conn.WriteJSON(dto.NewJobResponse(job)); err != nil {
			return
		}
		if job.Status.Terminal() {
			return
		}
	}
}

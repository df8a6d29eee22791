package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/campuskit/attendance-service/internal/realtime"
	"github.com/campuskit/attendance-service/internal/utils"
)

// keep-alive comment interval; proxies drop idle SSE connections.
const eventsHeartbeat = 25 * time.Second

type EventsController struct {
	notifier realtime.Notifier
}

func NewEventsController(notifier realtime.Notifier) *EventsController {
	return &EventsController{notifier: notifier}
}

// StreamHandler serves GET /api/v1/events as a server-sent event
// stream. Each event's SSE "event" field is the topic and the data is
// the JSON-encoded payload.
func (c *EventsController) StreamHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondErrorWithCode(w, http.StatusInternalServerError, utils.ErrCodeInternal, "Streaming unsupported", nil)
		return
	}

	events, cancel, err := c.notifier.Subscribe(r.Context())
	if err != nil {
		utils.Logger.Errorf("event subscribe failed: %v", err)
		utils.RespondErrorWithCode(w, http.StatusServiceUnavailable, utils.ErrCodeStoreUnavailable, "Event stream unavailable", nil)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(eventsHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				utils.Logger.Errorf("event marshal failed: %v", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Topic, payload)
			flusher.Flush()
		}
	}
}

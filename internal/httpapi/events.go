package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// events godoc
// @Summary      Stream status changes
// @Description  Server-sent events; each "status" event carries a types.Status. Intermediate states may be skipped.
// @Tags         status
// @Produce      text/event-stream
// @Success      200
// @Router       /events [get]
func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	updates, unsubscribe := h.svc.Subscribe()
	defer unsubscribe()
	eventSubscribers.Inc()
	defer eventSubscribers.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := time.NewTicker(eventsKeepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-serverBaseCtx.Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case st, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(st)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

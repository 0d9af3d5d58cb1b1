package httpserver

import (
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"wordrace/events"
)

// streamEvents writes each event as one `data: <json>` SSE frame until a
// terminal event arrives, the sink closes, or the client disconnects.
// Delivery is fire-and-forget: a dropped client never stops the race.
func streamEvents(w http.ResponseWriter, r *http.Request, feed <-chan events.Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case e, open := <-feed:
			if !open {
				return
			}
			frame, err := events.Marshal(e)
			if err != nil {
				log.WithError(err).WithField("event_type", e.Type()).Error("Failed to marshal event")
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
				return
			}
			flusher.Flush()
			if events.Terminal(e) {
				return
			}
		}
	}
}

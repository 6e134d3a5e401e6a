package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/joseph-ayodele/faktur-sorter/internal/progress"
)

// Events streams the job's progress as Server-Sent Events: history first,
// then live events until the job ends or the client goes away. Each event
// is named after its type ("log" or "progress").
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r, CodeJobNotFound)
	if !ok {
		return
	}
	if _, err := h.jobs.Get(r.Context(), id); err != nil {
		h.notFoundOrInternal(w, r, err, CodeJobNotFound)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, CodeInternalError, "Streaming unsupported")
		return
	}

	events, cancel := h.jobs.Events(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-events:
			if !open {
				_, _ = fmt.Fprint(w, "event: end\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if err := writeEvent(w, ev); err != nil {
				h.logger.Debug("event stream closed", "job_id", id.String(), "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev progress.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

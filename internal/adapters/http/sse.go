package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/docintel/internal/core/domain"
)

// streamEvents sends progress as server-sent events until the document's
// terminal event. A finished document replays its recorded events.
func (rt *Router) streamEvents(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Progress == nil {
		writeError(w, r, http.StatusServiceUnavailable, "progress streaming is not configured")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, "streaming is not supported")
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))

	// Subscribe before looking for a stored result so that a run finishing
	// in between is not missed.
	events, cancel := rt.deps.Progress.Subscribe(id)
	defer cancel()

	var replay []domain.ProgressEvent
	if rt.deps.Results != nil {
		if result, err := rt.deps.Results.GetProcessingResult(r.Context(), id); err == nil {
			replay = result.ProgressEvents
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if rt.deps.Metrics != nil {
		rt.deps.Metrics.StreamOpened()
		defer rt.deps.Metrics.StreamClosed()
	}

	if replay != nil {
		for _, event := range replay {
			if err := writeEvent(w, event); err != nil {
				return
			}
		}
		_, _ = io.WriteString(w, "event: done\ndata: {}\n\n")
		flusher.Flush()
		return
	}

	keepAlive := time.NewTicker(rt.opts.KeepAlive)
	defer keepAlive.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-events:
			if !open {
				_, _ = io.WriteString(w, "event: done\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			if err := writeEvent(w, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w io.Writer, event domain.ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: progress\ndata: %s\n\n", payload)
	return err
}

// Package transport encodes an events.Channel as a server-sent-event
// stream, the sole consumer of the engine's event channel.
package transport

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/paperrag/agent/internal/events"
)

// WriteSSE drains ch and writes each event as:
//
//	event: <type>\n
//	data: <json>\n\n
//
// flushing after every event, mirroring the teacher's sendEvent helper but
// generalized to drain a typed channel instead of being called ad hoc. The
// connection is expected to close (by the caller) after Done or when ctx/r
// signals client disconnect; on disconnect this function calls ch.Cancel()
// so the producer observes cancellation at its next emission point.
func WriteSSE(w http.ResponseWriter, r *http.Request, ch *events.Channel) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("transport.WriteSSE: ResponseWriter does not support flushing")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case ev, ok := <-ch.Events():
			if !ok {
				return nil
			}
			if err := writeEvent(w, ev); err != nil {
				ch.Cancel()
				return fmt.Errorf("transport.WriteSSE: %w", err)
			}
			flusher.Flush()
		case <-ctx.Done():
			ch.Cancel()
			return ctx.Err()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev events.Event) error {
	var payload interface{}
	switch ev.Type {
	case events.TypeStatus:
		payload = ev.Status
	case events.TypeContent:
		payload = ev.Content
	case events.TypeSources:
		payload = ev.Sources
	case events.TypeMetadata:
		payload = ev.Metadata
	case events.TypeError:
		payload = ev.Error
	case events.TypeDone:
		payload = struct{}{}
	default:
		payload = struct{}{}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

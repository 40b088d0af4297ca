package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/session"
	"github.com/go-chi/chi/v5"
)

// streamBuffer bounds the pending messages of one SSE client.
const streamBuffer = 10

// streamMessage is one SSE payload.
type streamMessage struct {
	Status    string                    `json:"status"`
	Diff      *domain.ConfigurationDiff `json:"diff,omitempty"`
	Preview   *domain.ConfigurationDiff `json:"preview,omitempty"`
	Selected  string                    `json:"selected,omitempty"`
	Traversed []string                  `json:"traversed"`
}

// Stream handles GET /sessions/{id}/stream (SSE). Every observable change of the
// session is sent as a diff against the configuration the client saw last.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("Stream: streaming not supported")
		return
	}

	sessionID := chi.URLParam(r, "id")
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ch := make(chan session.View, streamBuffer)
	unsubscribe := sess.Subscribe(func(v session.View) {
		select {
		case ch <- v:
		default:
			s.logger.Warn("SSE: client buffer full, dropping message", "session_id", sessionID)
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	initial := sess.Snapshot()
	last := initial.Current
	if err := writeEvent(w, "snapshot", toMessage(nil, initial)); err != nil {
		return
	}
	flusher.Flush()
	s.logger.Info("SSE: client subscribed", "session_id", sessionID)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "session_id", sessionID)
			return
		case v := <-ch:
			if err := writeEvent(w, "update", toMessage(last, v)); err != nil {
				return
			}
			last = v.Current
			flusher.Flush()
		}
	}
}

func toMessage(last *domain.Configuration, v session.View) streamMessage {
	msg := streamMessage{
		Status:    v.Status,
		Diff:      domain.Diff(last, v.Current),
		Selected:  v.Selected,
		Traversed: v.History.Traversed,
	}
	if v.Preview != nil {
		msg.Preview = domain.Diff(v.Current, v.Preview)
	}
	return msg
}

func writeEvent(w http.ResponseWriter, name string, msg streamMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}

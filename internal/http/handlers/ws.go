package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"reportd/internal/domain"
	"reportd/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// pushFrame is the push channel's wire shape. Deliberately different field
// names from the poll endpoint; client adapters normalize both.
type pushFrame struct {
	Type            string `json:"type"`
	Status          string `json:"status,omitempty"`
	Progress        int    `json:"progress,omitempty"`
	StatusDisplay   string `json:"status_display,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
	ResultReference string `json:"result_reference,omitempty"`
}

// ReportChannel upgrades the connection and streams job status frames until
// the job reaches a terminal stage or the peer goes away.
func (a *App) ReportChannel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")

	// Subscribe before reading the row: a transition published while the
	// snapshot is being read is then buffered and delivered after it,
	// instead of falling into the gap and stranding the client on
	// heartbeats. Subscribing to an unknown job is undone by cancel.
	events, cancel := a.Hub.Subscribe(jobID)
	defer cancel()

	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("handlers: job lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.Logger.Warn().Err(err).Str("job_id", jobID).Msg("handlers: websocket upgrade failed")
		return
	}
	defer conn.Close()

	locale := middleware.LocaleFromContext(r.Context())
	snapshot := pushFrame{
		Type:            "status",
		Status:          string(job.Stage),
		Progress:        job.Progress,
		StatusDisplay:   job.Stage.Display(locale),
		ErrorMessage:    job.ErrorMessage,
		ResultReference: job.ResultKey,
	}
	if err := conn.WriteJSON(snapshot); err != nil {
		return
	}
	if job.Stage.Terminal() {
		a.closeNormally(conn, jobID)
		return
	}

	// Reader loop only exists to observe the peer closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(a.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-done:
			return
		case <-heartbeat.C:
			if err := conn.WriteJSON(pushFrame{Type: "heartbeat"}); err != nil {
				return
			}
		case ev := <-events:
			frame := pushFrame{
				Type:            "status",
				Status:          ev.Status,
				Progress:        ev.Progress,
				StatusDisplay:   ev.StatusDisplay,
				ErrorMessage:    ev.ErrorMessage,
				ResultReference: ev.ResultReference,
			}
			if err := conn.WriteJSON(frame); err != nil {
				return
			}
			if domain.Stage(ev.Status).Terminal() {
				a.closeNormally(conn, jobID)
				return
			}
		}
	}
}

func (a *App) closeNormally(conn *websocket.Conn, jobID string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)); err != nil {
		a.Logger.Debug().Err(err).Str("job_id", jobID).Msg("handlers: close frame failed")
	}
}

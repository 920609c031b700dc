package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"reportd/internal/domain"
	"reportd/internal/notify"
	"reportd/internal/observability"
	"reportd/internal/storage"
)

// App carries the dependencies shared by all handlers. Everything is
// injected; handlers hold no globals.
type App struct {
	Jobs      domain.JobRepository
	Companies domain.CompanyRepository
	Store     *storage.FileStore
	Hub       *notify.Hub
	Logger    zerolog.Logger
	Observer  *observability.Observer
	WSBaseURL string
	Heartbeat time.Duration
}

// NewApp wires an App, applying defaults for optional pieces.
func NewApp(jobs domain.JobRepository, companies domain.CompanyRepository, store *storage.FileStore, hub *notify.Hub, logger zerolog.Logger) *App {
	return &App{
		Jobs:      jobs,
		Companies: companies,
		Store:     store,
		Hub:       hub,
		Logger:    logger,
		Observer:  observability.NewNoop(),
		Heartbeat: 15 * time.Second,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"code": code, "message": message})
}

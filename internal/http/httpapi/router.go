package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"reportd/internal/http/handlers"
	"reportd/internal/middleware"
)

// RouterOptions carries the cross-cutting pieces the router wires in front
// of the handlers.
type RouterOptions struct {
	DefaultLocale string
	CountryLookup middleware.CountryLookup
	CORSOrigins   []string
}

func NewRouter(app *handlers.App, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(app.Logger),
		middleware.CORS(opts.CORSOrigins),
		middleware.Localize(opts.DefaultLocale, opts.CountryLookup),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/reports", func(r chi.Router) {
		r.Post("/", app.CreateReport)
		r.Get("/{job_id}/status", app.ReportStatus)
		r.Get("/{job_id}/ws", app.ReportChannel)
		r.Get("/{job_id}/download", app.ReportDownload)
	})

	r.Get("/v1/companies/{id}", app.GetCompany)

	return r
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"reportd/internal/domain"
	"reportd/internal/middleware"
)

type createReportRequest struct {
	TargetID int64 `json:"target_id"`
}

type createReportResponse struct {
	JobID          string `json:"job_id"`
	ChannelAddress string `json:"channel_address,omitempty"`
}

// statusResponse is the poll endpoint's wire shape. Field names differ from
// the push channel's; client-side adapters normalize both.
type statusResponse struct {
	ID         string `json:"id"`
	State      string `json:"state"`
	Pct        int    `json:"pct"`
	StateLabel string `json:"state_label"`
	Error      string `json:"error,omitempty"`
	Artifact   string `json:"artifact,omitempty"`
}

// CreateReport starts a report generation job for a company.
func (a *App) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.TargetID <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "target_id must be a positive integer")
		return
	}
	if _, err := a.Companies.GetByID(r.Context(), req.TargetID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "unknown company")
			return
		}
		a.Logger.Error().Err(err).Int64("company_id", req.TargetID).Msg("handlers: company lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to start report")
		return
	}

	job := &domain.Job{
		ID:        uuid.NewString(),
		CompanyID: req.TargetID,
		Stage:     domain.StagePending,
		Progress:  0,
		Locale:    middleware.LocaleFromContext(r.Context()),
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Int64("company_id", req.TargetID).Msg("handlers: create job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to start report")
		return
	}
	a.Observer.JobStarted(r.Context())

	resp := createReportResponse{JobID: job.ID}
	if a.WSBaseURL != "" {
		resp.ChannelAddress = a.WSBaseURL + "/v1/reports/" + job.ID + "/ws"
	}
	a.json(w, http.StatusAccepted, resp)
}

// ReportStatus serves the pull channel.
func (a *App) ReportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
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

	locale := middleware.LocaleFromContext(r.Context())
	a.json(w, http.StatusOK, statusResponse{
		ID:         job.ID,
		State:      string(job.Stage),
		Pct:        job.Progress,
		StateLabel: job.Stage.Display(locale),
		Error:      job.ErrorMessage,
		Artifact:   job.ResultKey,
	})
}

// ReportDownload streams a completed report bundle.
func (a *App) ReportDownload(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
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
	if job.Stage != domain.StageCompleted || job.ResultKey == "" {
		a.error(w, http.StatusConflict, "not_ready", "report is not completed")
		return
	}

	data, err := a.Store.Read(r.Context(), job.ResultKey)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", jobID).Str("key", job.ResultKey).Msg("handlers: read bundle failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to read report bundle")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="report-`+job.ID+`.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"reportd/internal/domain"
)

// GetCompany serves company metadata. The client package caches these
// responses with a TTL.
func (a *App) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "company id must be a positive integer")
		return
	}
	company, err := a.Companies.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "company not found")
			return
		}
		a.Logger.Error().Err(err).Int64("company_id", id).Msg("handlers: company lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load company")
		return
	}
	a.json(w, http.StatusOK, company)
}

package handlers

import (
	"database/sql"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/ridewell/benefit-api/internal/api"
	"github.com/ridewell/benefit-api/internal/authz"
	"github.com/ridewell/benefit-api/internal/ingest"
	"github.com/ridewell/benefit-api/internal/repository"
)

// BulkHandler exposes CSV bulk onboarding. Authentication and role
// checks run as middleware before this handler; tenant resolution and
// the pipeline itself run here. Any failure up to tenant resolution
// rejects the whole request; after that, rows fail independently.
type BulkHandler struct {
	pipeline *ingest.Pipeline
	profiles repository.ProfileRepository
	logger   zerolog.Logger
}

func NewBulkHandler(pipeline *ingest.Pipeline, profiles repository.ProfileRepository, logger zerolog.Logger) *BulkHandler {
	return &BulkHandler{
		pipeline: pipeline,
		profiles: profiles,
		logger:   logger.With().Str("handler", "bulk").Logger(),
	}
}

func (h *BulkHandler) BulkCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.ErrInvalidJWT)
		return
	}

	// Every row in this batch is stamped with the uploader's own
	// company; uploaded data cannot address another tenant.
	profile, err := h.profiles.GetProfileByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.WriteError(w, http.StatusForbidden, api.ErrProfileNotFound)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Msg("profile lookup failed")
		api.WriteError(w, http.StatusInternalServerError, api.ErrProfileFetchFailed)
		return
	}
	if profile.CompanyID == "" {
		api.WriteError(w, http.StatusForbidden, api.ErrNoCompany)
		return
	}

	content, err := ingest.CSVFromRequest(r)
	if err != nil {
		writeInputError(w, err)
		return
	}

	rows, err := ingest.ParseCSV(content, "email")
	if err != nil {
		writeInputError(w, err)
		return
	}

	report := h.pipeline.Run(r.Context(), profile.CompanyID, rows)
	api.WriteJSON(w, http.StatusOK, report)
}

// writeInputError surfaces input-shape failures as 400s with their
// structured code; anything else is an unexpected dependency failure.
func writeInputError(w http.ResponseWriter, err error) {
	var apiErr api.Error
	if errors.As(err, &apiErr) {
		api.WriteError(w, http.StatusBadRequest, apiErr)
		return
	}
	api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
}

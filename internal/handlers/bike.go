package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/ridewell/benefit-api/internal/api"
	"github.com/ridewell/benefit-api/internal/repository"
)

type BikeHandler struct {
	bikes  repository.BikeRepository
	logger zerolog.Logger
}

func NewBikeHandler(bikes repository.BikeRepository, logger zerolog.Logger) *BikeHandler {
	return &BikeHandler{
		bikes:  bikes,
		logger: logger.With().Str("handler", "bike").Logger(),
	}
}

func (h *BikeHandler) ListBikes(w http.ResponseWriter, r *http.Request) {
	bikes, err := h.bikes.ListBikes(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list bikes")
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return
	}
	api.WriteJSON(w, http.StatusOK, bikes)
}

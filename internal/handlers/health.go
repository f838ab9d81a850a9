package handlers

import (
	"net/http"

	"github.com/ridewell/benefit-api/internal/api"
)

// HealthCheck returns a simple JSON status
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

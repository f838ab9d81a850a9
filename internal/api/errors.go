package api

import (
	"encoding/json"
	"net/http"
)

// Error is the structured error body every endpoint returns on failure.
type Error struct {
	Code   string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Centralized error vocabulary. Codes are stable API surface; handlers
// must not invent ad-hoc strings.
var (
	ErrInvalidJWT       = Error{Code: "invalid_jwt"}
	ErrForbidden        = Error{Code: "forbidden", Reason: "no_permission_to_access_this_data"}
	ErrRoleLookupFailed = Error{Code: "role_lookup_failed"}

	ErrMissingBoundary = Error{Code: "missing_boundary"}
	ErrNoFile          = Error{Code: "no_file"}
	ErrEmptyCSV        = Error{Code: "empty_csv"}
	ErrNoRows          = Error{Code: "no_rows"}
	ErrMissingHeader   = Error{Code: "missing_header"}

	ErrNotFound = Error{Code: "not_found"}

	ErrNotInvited    = Error{Code: "not_invited"}
	ErrEmailRequired = Error{Code: "email_required"}
	ErrOTPSendFailed = Error{Code: "otp_send_failed"}
	ErrInvalidOTP    = Error{Code: "invalid_otp"}

	ErrProfileFetchFailed = Error{Code: "profile_fetch_failed"}
	ErrProfileNotFound    = Error{Code: "profile_not_found"}
	ErrNoCompany          = Error{Code: "no_company_assigned"}

	ErrInvalidPayload     = Error{Code: "invalid_payload"}
	ErrBenefitNotFound    = Error{Code: "benefit_not_found"}
	ErrBenefitFrozen      = Error{Code: "benefit_frozen"}
	ErrInvalidStep        = Error{Code: "invalid_step"}
	ErrInvalidTransition  = Error{Code: "invalid_transition"}
	ErrDependencyFailed   = Error{Code: "dependency_failed"}
)

func (e Error) Error() string {
	if e.Reason != "" {
		return e.Code + ": " + e.Reason
	}
	return e.Code
}

// WriteJSON encodes obj with the given status code.
func WriteJSON(w http.ResponseWriter, status int, obj interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(obj)
}

// WriteError emits a structured error body.
func WriteError(w http.ResponseWriter, status int, apiErr Error) {
	WriteJSON(w, status, apiErr)
}

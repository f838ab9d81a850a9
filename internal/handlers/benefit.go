package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/ridewell/benefit-api/internal/api"
	"github.com/ridewell/benefit-api/internal/authz"
	"github.com/ridewell/benefit-api/internal/models"
	"github.com/ridewell/benefit-api/internal/repository"
)

// BenefitHandler drives the guided enrollment workflow: employee
// self-service progression, the contract signing chain, and the HR
// administrative actions. Statuses are never written directly; every
// response re-derives them from the record's facts.
type BenefitHandler struct {
	benefits repository.BenefitRepository
	bikes    repository.BikeRepository
	logger   zerolog.Logger
}

func NewBenefitHandler(benefits repository.BenefitRepository, bikes repository.BikeRepository, logger zerolog.Logger) *BenefitHandler {
	return &BenefitHandler{
		benefits: benefits,
		bikes:    bikes,
		logger:   logger.With().Str("handler", "benefit").Logger(),
	}
}

// benefitResponse is the read model: the stored record plus its derived
// benefit status.
type benefitResponse struct {
	models.BikeBenefit
	BenefitStatus models.BenefitStatus `json:"benefit_status"`
}

func writeBenefit(w http.ResponseWriter, b models.BikeBenefit) {
	api.WriteJSON(w, http.StatusOK, benefitResponse{
		BikeBenefit:   b,
		BenefitStatus: models.DeriveBenefitStatus(b),
	})
}

// GetBenefit returns the caller's enrollment, creating the implicit
// inactive record on first access.
func (h *BenefitHandler) GetBenefit(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.ErrInvalidJWT)
		return
	}

	benefit, ok := h.loadOrCreate(w, r, userID)
	if !ok {
		return
	}
	writeBenefit(w, benefit)
}

type chooseBikeRequest struct {
	BikeID string `json:"bike_id"`
}

func (h *BenefitHandler) ChooseBike(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.ErrInvalidJWT)
		return
	}

	var req chooseBikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BikeID == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidPayload)
		return
	}

	if _, err := h.bikes.GetBikeByID(r.Context(), req.BikeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.WriteError(w, http.StatusNotFound, api.ErrNotFound)
			return
		}
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return
	}

	benefit, ok := h.loadOrCreate(w, r, userID)
	if !ok {
		return
	}
	if !h.stepAllowed(w, benefit, models.StepChooseBike) {
		return
	}

	h.applyStep(w, r, benefit, func() (models.BikeBenefit, error) {
		return h.benefits.ChooseBike(r.Context(), userID, req.BikeID)
	})
}

func (h *BenefitHandler) BookLiveTest(w http.ResponseWriter, r *http.Request) {
	h.selfStep(w, r, models.StepBookLiveTest, h.benefits.BookLiveTest)
}

func (h *BenefitHandler) Commit(w http.ResponseWriter, r *http.Request) {
	h.selfStep(w, r, models.StepCommitToBike, h.benefits.Commit)
}

func (h *BenefitHandler) RequestContract(w http.ResponseWriter, r *http.Request) {
	h.selfStep(w, r, models.StepSignContract, h.benefits.RequestContract)
}

// CheckInLiveTest records arrival at the live test. It is not a step
// change, so only the booking and freeze invariants apply.
func (h *BenefitHandler) CheckInLiveTest(w http.ResponseWriter, r *http.Request) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.ErrInvalidJWT)
		return
	}

	benefit, ok := h.loadBenefit(w, r, userID)
	if !ok {
		return
	}
	if benefit.IsFrozen() {
		api.WriteError(w, http.StatusConflict, api.ErrBenefitFrozen)
		return
	}
	if benefit.Step == nil || *benefit.Step != models.StepBookLiveTest || benefit.LiveTestWhatsAppSentAt == nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidStep)
		return
	}

	h.applyStep(w, r, benefit, func() (models.BikeBenefit, error) {
		return h.benefits.CheckInLiveTest(r.Context(), userID)
	})
}

// contractTargets maps endpoint actions to target contract statuses.
var contractTargets = map[string]models.ContractStatus{
	"view":          models.ContractViewedByEmployee,
	"sign-employee": models.ContractSignedByEmployee,
	"sign-employer": models.ContractSignedByEmployer,
	"approve":       models.ContractApproved,
	"terminate":     models.ContractTerminated,
}

var employeeContractActions = map[string]bool{
	"view":          true,
	"sign-employee": true,
}

// ContractAction advances the caller's own contract (view, sign-employee).
func (h *BenefitHandler) ContractAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	if !employeeContractActions[action] {
		api.WriteError(w, http.StatusNotFound, api.ErrNotFound)
		return
	}

	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.ErrInvalidJWT)
		return
	}
	h.applyContract(w, r, userID, action)
}

// EmployerContractAction lets HR act on an employee's contract
// (sign-employer, approve, terminate). Role gating runs as middleware.
func (h *BenefitHandler) EmployerContractAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	if employeeContractActions[action] {
		api.WriteError(w, http.StatusNotFound, api.ErrNotFound)
		return
	}
	if _, ok := contractTargets[action]; !ok {
		api.WriteError(w, http.StatusNotFound, api.ErrNotFound)
		return
	}

	userID := mux.Vars(r)["userID"]
	if userID == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidPayload)
		return
	}
	h.applyContract(w, r, userID, action)
}

func (h *BenefitHandler) applyContract(w http.ResponseWriter, r *http.Request, userID, action string) {
	target := contractTargets[action]

	benefit, ok := h.loadBenefit(w, r, userID)
	if !ok {
		return
	}
	if benefit.IsFrozen() {
		api.WriteError(w, http.StatusConflict, api.ErrBenefitFrozen)
		return
	}

	if err := models.ValidateContractTransition(benefit.ContractStatus, target); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidTransition)
		return
	}

	updated, err := h.benefits.UpdateContractStatus(r.Context(), benefit.ID, benefit.ContractStatus, target)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// A concurrent writer moved the contract first.
			api.WriteError(w, http.StatusConflict, api.ErrInvalidTransition)
			return
		}
		h.logger.Error().Err(err).Str("user_id", userID).Str("action", action).Msg("contract update failed")
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return
	}

	if err := models.ValidateContractTimestamps(updated); err != nil {
		h.logger.Warn().Err(err).Str("benefit_id", updated.ID).Msg("contract timestamps drifted from signing order")
	}

	writeBenefit(w, updated)
}

// Deliver marks the bike handed over (HR action on a target employee).
func (h *BenefitHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if userID == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidPayload)
		return
	}

	benefit, ok := h.loadBenefit(w, r, userID)
	if !ok {
		return
	}
	if !h.stepAllowed(w, benefit, models.StepPickupDelivery) {
		return
	}

	h.applyStep(w, r, benefit, func() (models.BikeBenefit, error) {
		return h.benefits.MarkDelivered(r.Context(), userID)
	})
}

// Terminate administratively freezes the benefit. Repeating the call is
// a no-op: the timestamp is set once.
func (h *BenefitHandler) Terminate(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if userID == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidPayload)
		return
	}

	updated, err := h.benefits.Terminate(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.WriteError(w, http.StatusNotFound, api.ErrBenefitNotFound)
			return
		}
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return
	}
	writeBenefit(w, updated)
}

func (h *BenefitHandler) FileInsuranceClaim(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if userID == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidPayload)
		return
	}

	updated, err := h.benefits.FileInsuranceClaim(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either no benefit, or already terminated.
			if _, getErr := h.benefits.GetBenefitByUserID(r.Context(), userID); getErr == nil {
				api.WriteError(w, http.StatusConflict, api.ErrBenefitFrozen)
				return
			}
			api.WriteError(w, http.StatusNotFound, api.ErrBenefitNotFound)
			return
		}
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return
	}
	writeBenefit(w, updated)
}

// selfStep runs a caller-owned step advance with the shared guards.
func (h *BenefitHandler) selfStep(
	w http.ResponseWriter,
	r *http.Request,
	step models.BikeStep,
	mutate func(ctx context.Context, userID string) (models.BikeBenefit, error),
) {
	userID, ok := authz.UserIDFromRequest(r)
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, api.ErrInvalidJWT)
		return
	}

	benefit, ok := h.loadOrCreate(w, r, userID)
	if !ok {
		return
	}
	if !h.stepAllowed(w, benefit, step) {
		return
	}

	h.applyStep(w, r, benefit, func() (models.BikeBenefit, error) {
		return mutate(r.Context(), userID)
	})
}

// stepAllowed enforces the freeze invariant and forward step ordering.
func (h *BenefitHandler) stepAllowed(w http.ResponseWriter, benefit models.BikeBenefit, step models.BikeStep) bool {
	if benefit.IsFrozen() {
		api.WriteError(w, http.StatusConflict, api.ErrBenefitFrozen)
		return false
	}
	if !benefit.CanAdvanceStep(step) {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidStep)
		return false
	}
	return true
}

// applyStep executes a guarded mutation. The repository guards re-check
// the freeze invariant in the UPDATE predicate, so a record frozen
// between load and write surfaces as a conflict, not a lost update.
func (h *BenefitHandler) applyStep(w http.ResponseWriter, r *http.Request, benefit models.BikeBenefit, mutate func() (models.BikeBenefit, error)) {
	updated, err := mutate()
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.WriteError(w, http.StatusConflict, api.ErrBenefitFrozen)
			return
		}
		h.logger.Error().Err(err).Str("benefit_id", benefit.ID).Msg("benefit update failed")
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return
	}
	writeBenefit(w, updated)
}

func (h *BenefitHandler) loadBenefit(w http.ResponseWriter, r *http.Request, userID string) (models.BikeBenefit, bool) {
	benefit, err := h.benefits.GetBenefitByUserID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.WriteError(w, http.StatusNotFound, api.ErrBenefitNotFound)
			return models.BikeBenefit{}, false
		}
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return models.BikeBenefit{}, false
	}
	return benefit, true
}

func (h *BenefitHandler) loadOrCreate(w http.ResponseWriter, r *http.Request, userID string) (models.BikeBenefit, bool) {
	benefit, err := h.benefits.GetBenefitByUserID(r.Context(), userID)
	if errors.Is(err, sql.ErrNoRows) {
		benefit, err = h.benefits.CreateBenefit(r.Context(), userID)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("user_id", userID).Msg("benefit load failed")
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return models.BikeBenefit{}, false
	}
	return benefit, true
}

package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/ridewell/benefit-api/internal/api"
	"github.com/ridewell/benefit-api/internal/repository"
)

type CompanyHandler struct {
	companies repository.CompanyRepository
	logger    zerolog.Logger
}

type companyRequest struct {
	Name                  string  `json:"name"`
	MonthlyBenefitSubsidy float64 `json:"monthly_benefit_subsidy"`
	ContractMonths        int     `json:"contract_months"`
}

func NewCompanyHandler(companies repository.CompanyRepository, logger zerolog.Logger) *CompanyHandler {
	return &CompanyHandler{
		companies: companies,
		logger:    logger.With().Str("handler", "company").Logger(),
	}
}

func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidPayload)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.MonthlyBenefitSubsidy < 0 || req.ContractMonths < 0 {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidPayload)
		return
	}
	if req.ContractMonths == 0 {
		req.ContractMonths = 36
	}

	company, err := h.companies.CreateCompany(r.Context(), req.Name, req.MonthlyBenefitSubsidy, req.ContractMonths)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to create company")
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return
	}

	api.WriteJSON(w, http.StatusCreated, company)
}

func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidPayload)
		return
	}

	company, err := h.companies.GetCompanyByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.WriteError(w, http.StatusNotFound, api.ErrNotFound)
			return
		}
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return
	}

	api.WriteJSON(w, http.StatusOK, company)
}

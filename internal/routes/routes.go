package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/ridewell/benefit-api/internal/authz"
	"github.com/ridewell/benefit-api/internal/handlers"
	"github.com/ridewell/benefit-api/internal/models"
)

// NewRouter sets up the API routes
func NewRouter(
	roleStore authz.RoleStore,
	ingestRoles []models.UserRole,
	bulk *handlers.BulkHandler,
	register *handlers.RegisterHandler,
	benefit *handlers.BenefitHandler,
	company *handlers.CompanyHandler,
	bike *handlers.BikeHandler,
	logger zerolog.Logger,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public passwordless registration endpoints
	router.HandleFunc("/api/register", register.Register).Methods(http.MethodPost)
	router.HandleFunc("/api/verify", register.Verify).Methods(http.MethodPost)

	// Everything below requires a decoded bearer credential.
	authed := router.PathPrefix("/api").Subrouter()
	authed.Use(authz.DecodeJWT)

	hrOnly := authz.RequireRole(roleStore, ingestRoles, logger)
	adminOnly := authz.RequireRole(roleStore, []models.UserRole{models.RoleAdmin}, logger)

	// Bulk onboarding: role-gated both by the embedded claim and the
	// authoritative role store.
	ingestRouter := authed.PathPrefix("/bulk-create").Subrouter()
	ingestRouter.Use(hrOnly)
	ingestRouter.HandleFunc("", bulk.BulkCreate).Methods(http.MethodPost)

	// Catalog
	authed.HandleFunc("/bikes", bike.ListBikes).Methods(http.MethodGet)

	// Employee self-service enrollment workflow
	authed.HandleFunc("/benefit", benefit.GetBenefit).Methods(http.MethodGet)
	authed.HandleFunc("/benefit/choose-bike", benefit.ChooseBike).Methods(http.MethodPost)
	authed.HandleFunc("/benefit/live-test", benefit.BookLiveTest).Methods(http.MethodPost)
	authed.HandleFunc("/benefit/live-test/check-in", benefit.CheckInLiveTest).Methods(http.MethodPost)
	authed.HandleFunc("/benefit/commit", benefit.Commit).Methods(http.MethodPost)
	authed.HandleFunc("/benefit/contract/request", benefit.RequestContract).Methods(http.MethodPost)
	authed.HandleFunc("/benefit/contract/{action}", benefit.ContractAction).Methods(http.MethodPost)

	// HR administrative actions on a target employee
	hrRouter := authed.PathPrefix("/employees/{userID}/benefit").Subrouter()
	hrRouter.Use(hrOnly)
	hrRouter.HandleFunc("/deliver", benefit.Deliver).Methods(http.MethodPost)
	hrRouter.HandleFunc("/terminate", benefit.Terminate).Methods(http.MethodPost)
	hrRouter.HandleFunc("/insurance-claim", benefit.FileInsuranceClaim).Methods(http.MethodPost)
	hrRouter.HandleFunc("/contract/{action}", benefit.EmployerContractAction).Methods(http.MethodPost)

	// Company administration
	companyRouter := authed.PathPrefix("/companies").Subrouter()
	companyRouter.Handle("", adminOnly(http.HandlerFunc(company.CreateCompany))).Methods(http.MethodPost)
	companyRouter.Handle("/{id}", hrOnly(http.HandlerFunc(company.GetCompany))).Methods(http.MethodGet)

	return router
}

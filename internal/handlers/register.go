package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/ridewell/benefit-api/internal/api"
	"github.com/ridewell/benefit-api/internal/models"
	"github.com/ridewell/benefit-api/internal/notification"
	"github.com/ridewell/benefit-api/internal/repository"
)

// RegisterHandler implements passwordless sign-in: an invited employee
// requests a 6-digit code by email, then exchanges it for a token. Only
// invited addresses can register; the invite carries the company the
// resulting profile is scoped to.
type RegisterHandler struct {
	invites  repository.InviteRepository
	profiles repository.ProfileRepository
	roles    repository.RoleRepository
	otps     repository.OTPRepository
	mailer   notification.OTPMailer
	otpTTL   time.Duration
	jwtSecret string
	logger    zerolog.Logger
}

func NewRegisterHandler(
	invites repository.InviteRepository,
	profiles repository.ProfileRepository,
	roles repository.RoleRepository,
	otps repository.OTPRepository,
	mailer notification.OTPMailer,
	otpTTL time.Duration,
	jwtSecret string,
	logger zerolog.Logger,
) *RegisterHandler {
	return &RegisterHandler{
		invites:   invites,
		profiles:  profiles,
		roles:     roles,
		otps:      otps,
		mailer:    mailer,
		otpTTL:    otpTTL,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("handler", "register").Logger(),
	}
}

type registerRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Register sends a sign-in code to an invited email address.
func (h *RegisterHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidPayload)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrEmailRequired)
		return
	}

	if _, err := h.invites.FindInviteByEmail(r.Context(), email); err != nil {
		if errors.Is(err, models.ErrInviteNotFound) {
			api.WriteError(w, http.StatusForbidden, api.ErrNotInvited)
			return
		}
		h.logger.Error().Err(err).Msg("invite lookup failed")
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return
	}

	code, err := generateOTPCode()
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, api.ErrOTPSendFailed)
		return
	}
	hash, err := bcryptHash(code)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, api.ErrOTPSendFailed)
		return
	}

	if _, err := h.otps.CreateCode(r.Context(), email, hash, time.Now().Add(h.otpTTL)); err != nil {
		h.logger.Error().Err(err).Msg("failed to store otp code")
		api.WriteError(w, http.StatusInternalServerError, api.ErrOTPSendFailed)
		return
	}

	if err := h.mailer.SendOTP(email, code); err != nil {
		h.logger.Error().Err(err).Str("email", email).Msg("failed to send otp email")
		api.WriteError(w, http.StatusInternalServerError, api.ErrOTPSendFailed)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "OTP sent to email",
		"email":   email,
	})
}

// Verify redeems a sign-in code, creating the profile on first use, and
// returns a signed token.
func (h *RegisterHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidPayload)
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	code := strings.TrimSpace(req.Code)
	if email == "" || code == "" {
		api.WriteError(w, http.StatusBadRequest, api.ErrInvalidPayload)
		return
	}

	stored, err := h.otps.LatestActiveCode(r.Context(), email, time.Now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.WriteError(w, http.StatusUnauthorized, api.ErrInvalidOTP)
			return
		}
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return
	}
	if !bcryptCompare(stored.CodeHash, code) {
		api.WriteError(w, http.StatusUnauthorized, api.ErrInvalidOTP)
		return
	}
	if err := h.otps.ConsumeCode(r.Context(), stored.ID); err != nil {
		// Consumed by a concurrent redeem; the code is spent either way.
		api.WriteError(w, http.StatusUnauthorized, api.ErrInvalidOTP)
		return
	}

	profile, err := h.profiles.GetProfileByEmail(r.Context(), email)
	switch {
	case err == nil:
	case errors.Is(err, sql.ErrNoRows):
		profile, err = h.createProfile(r, email)
		if err != nil {
			if errors.Is(err, models.ErrInviteNotFound) {
				api.WriteError(w, http.StatusForbidden, api.ErrNotInvited)
				return
			}
			h.logger.Error().Err(err).Msg("failed to create profile")
			api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
			return
		}
	default:
		api.WriteError(w, http.StatusInternalServerError, api.ErrProfileFetchFailed)
		return
	}

	role := h.primaryRole(r, profile.UserID)
	token, err := h.signToken(profile, role)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, api.ErrDependencyFailed)
		return
	}

	api.WriteJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *RegisterHandler) createProfile(r *http.Request, email string) (models.Profile, error) {
	invite, err := h.invites.FindInviteByEmail(r.Context(), email)
	if err != nil {
		return models.Profile{}, err
	}

	profile, err := h.profiles.CreateProfile(r.Context(), models.Profile{
		UserID:    uuid.NewString(),
		Email:     email,
		Status:    models.ProfileActive,
		CompanyID: invite.CompanyID,
	})
	if err != nil {
		return models.Profile{}, err
	}

	if err := h.roles.AssignRole(r.Context(), profile.UserID, models.RoleEmployee); err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

// primaryRole picks the most privileged assigned role for the claim.
// The claim is convenience only; authorization re-checks the role store.
func (h *RegisterHandler) primaryRole(r *http.Request, userID string) models.UserRole {
	roles, err := h.roles.ListRoles(r.Context(), userID)
	if err != nil || len(roles) == 0 {
		return models.RoleEmployee
	}
	for _, candidate := range []models.UserRole{models.RoleAdmin, models.RoleHR} {
		for _, role := range roles {
			if role == candidate {
				return candidate
			}
		}
	}
	return models.RoleEmployee
}

func (h *RegisterHandler) signToken(profile models.Profile, role models.UserRole) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   profile.UserID,
		"email": profile.Email,
		"tid":   profile.CompanyID,
		"role":  string(role),
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString([]byte(h.jwtSecret))
}

// generateOTPCode returns a uniformly random 6-digit code.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

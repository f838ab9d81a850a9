package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ridewell/benefit-api/internal/models"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

func TestDecodeJWT(t *testing.T) {
	var gotUserID string
	var gotRole models.UserRole
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromRequest(r)
		gotRole, _ = RoleFromRequest(r)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid bearer populates identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.MapClaims{
			"sub":  "user-1",
			"role": "HR",
		}))
		rec := httptest.NewRecorder()

		DecodeJWT(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", gotUserID)
		assert.Equal(t, models.RoleHR, gotRole, "role claim is normalized")
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()

		DecodeJWT(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_jwt")
	})

	t.Run("malformed token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not.a.jwt")
		rec := httptest.NewRecorder()

		DecodeJWT(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token without subject", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signedToken(t, jwt.MapClaims{"role": "hr"}))
		rec := httptest.NewRecorder()

		DecodeJWT(next).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

type fakeRoleStore struct {
	hasRole bool
	err     error
}

func (s *fakeRoleStore) HasAnyRole(context.Context, string, []models.UserRole) (bool, error) {
	return s.hasRole, s.err
}

func identityRequest(role models.UserRole) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	return req.WithContext(WithIdentity(req.Context(), "user-1", "u@x.com", role))
}

func TestRequireRole(t *testing.T) {
	allowed := []models.UserRole{models.RoleHR, models.RoleAdmin}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("claim and store agree", func(t *testing.T) {
		mw := RequireRole(&fakeRoleStore{hasRole: true}, allowed, zerolog.Nop())
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, identityRequest(models.RoleHR))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("claim outside allow-list", func(t *testing.T) {
		mw := RequireRole(&fakeRoleStore{hasRole: true}, allowed, zerolog.Nop())
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, identityRequest(models.RoleEmployee))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("store is authoritative over a stale claim", func(t *testing.T) {
		mw := RequireRole(&fakeRoleStore{hasRole: false}, allowed, zerolog.Nop())
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, identityRequest(models.RoleHR))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("store failure is a server error", func(t *testing.T) {
		mw := RequireRole(&fakeRoleStore{err: errors.New("timeout")}, allowed, zerolog.Nop())
		rec := httptest.NewRecorder()
		mw(next).ServeHTTP(rec, identityRequest(models.RoleHR))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "role_lookup_failed")
	})
}

package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ridewell/benefit-api/internal/models"
)

type fakeInviteRepo struct {
	memInviteStore
}

func (f *fakeInviteRepo) ListInvitesByCompany(_ context.Context, companyID string) ([]models.ProfileInvite, error) {
	var out []models.ProfileInvite
	for _, invite := range f.invites {
		if invite.CompanyID == companyID {
			out = append(out, invite)
		}
	}
	return out, nil
}

type fakeRoleRepo struct {
	roles map[string][]models.UserRole
}

func (f *fakeRoleRepo) HasAnyRole(_ context.Context, userID string, roles []models.UserRole) (bool, error) {
	return models.HasAnyRole(f.roles[userID], roles), nil
}

func (f *fakeRoleRepo) AssignRole(_ context.Context, userID string, role models.UserRole) error {
	f.roles[userID] = append(f.roles[userID], role)
	return nil
}

func (f *fakeRoleRepo) ListRoles(_ context.Context, userID string) ([]models.UserRole, error) {
	return f.roles[userID], nil
}

type fakeOTPRepo struct {
	codes  []models.OTPCode
	nextID int
}

func (f *fakeOTPRepo) CreateCode(_ context.Context, email, codeHash string, expiresAt time.Time) (models.OTPCode, error) {
	f.nextID++
	code := models.OTPCode{
		ID:        fmt.Sprintf("otp-%d", f.nextID),
		Email:     email,
		CodeHash:  codeHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	f.codes = append(f.codes, code)
	return code, nil
}

func (f *fakeOTPRepo) LatestActiveCode(_ context.Context, email string, now time.Time) (models.OTPCode, error) {
	for i := len(f.codes) - 1; i >= 0; i-- {
		code := f.codes[i]
		if strings.EqualFold(code.Email, email) && !code.IsUsed() && !code.IsExpired(now) {
			return code, nil
		}
	}
	return models.OTPCode{}, sql.ErrNoRows
}

func (f *fakeOTPRepo) ConsumeCode(_ context.Context, id string) error {
	for i := range f.codes {
		if f.codes[i].ID == id {
			if f.codes[i].ConsumedAt != nil {
				return sql.ErrNoRows
			}
			now := time.Now()
			f.codes[i].ConsumedAt = &now
			return nil
		}
	}
	return sql.ErrNoRows
}

type fakeMailer struct {
	sentTo   []string
	lastCode string
}

func (f *fakeMailer) SendOTP(email, code string) error {
	f.sentTo = append(f.sentTo, email)
	f.lastCode = code
	return nil
}

type registerFixture struct {
	handler  *RegisterHandler
	invites  *fakeInviteRepo
	profiles *fakeProfileRepo
	roles    *fakeRoleRepo
	mailer   *fakeMailer
}

func newRegisterFixture() *registerFixture {
	invites := &fakeInviteRepo{memInviteStore{invites: map[string]models.ProfileInvite{
		"jane@x.com": {ID: "invite-1", CompanyID: "company-a", Email: "jane@x.com"},
	}}}
	profiles := &fakeProfileRepo{profiles: map[string]models.Profile{}}
	roles := &fakeRoleRepo{roles: map[string][]models.UserRole{}}
	mailer := &fakeMailer{}

	handler := NewRegisterHandler(
		invites, profiles, roles, &fakeOTPRepo{}, mailer,
		10*time.Minute, "test-secret", zerolog.Nop(),
	)
	return &registerFixture{handler: handler, invites: invites, profiles: profiles, roles: roles, mailer: mailer}
}

func jsonRequest(path string, payload interface{}) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegister_SendsCodeToInvitedEmail(t *testing.T) {
	f := newRegisterFixture()

	rec := httptest.NewRecorder()
	f.handler.Register(rec, jsonRequest("/api/register", map[string]string{"email": " Jane@X.com "}))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.mailer.sentTo, 1)
	assert.Equal(t, "jane@x.com", f.mailer.sentTo[0])
	assert.Len(t, f.mailer.lastCode, 6)
}

func TestRegister_RejectsUninvitedEmail(t *testing.T) {
	f := newRegisterFixture()

	rec := httptest.NewRecorder()
	f.handler.Register(rec, jsonRequest("/api/register", map[string]string{"email": "stranger@x.com"}))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_invited")
	assert.Empty(t, f.mailer.sentTo)
}

func TestRegister_RequiresEmail(t *testing.T) {
	f := newRegisterFixture()

	rec := httptest.NewRecorder()
	f.handler.Register(rec, jsonRequest("/api/register", map[string]string{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "email_required")
}

func TestVerify_RedeemsCodeAndCreatesProfile(t *testing.T) {
	f := newRegisterFixture()

	rec := httptest.NewRecorder()
	f.handler.Register(rec, jsonRequest("/api/register", map[string]string{"email": "jane@x.com"}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.Verify(rec, jsonRequest("/api/verify", map[string]string{
		"email": "jane@x.com",
		"code":  f.mailer.lastCode,
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["token"])

	token, err := jwt.Parse(resp["token"], func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "jane@x.com", claims["email"])
	assert.Equal(t, "company-a", claims["tid"], "profile inherits the invite's company")
	assert.Equal(t, "employee", claims["role"])

	profile, err := f.profiles.GetProfileByEmail(context.Background(), "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, "company-a", profile.CompanyID)
	assert.Contains(t, f.roles.roles[profile.UserID], models.RoleEmployee)
}

func TestVerify_RejectsWrongCode(t *testing.T) {
	f := newRegisterFixture()

	rec := httptest.NewRecorder()
	f.handler.Register(rec, jsonRequest("/api/register", map[string]string{"email": "jane@x.com"}))
	require.Equal(t, http.StatusOK, rec.Code)

	wrong := "000000"
	if f.mailer.lastCode == wrong {
		wrong = "000001"
	}

	rec = httptest.NewRecorder()
	f.handler.Verify(rec, jsonRequest("/api/verify", map[string]string{"email": "jane@x.com", "code": wrong}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_otp")
}

func TestVerify_CodeIsSingleUse(t *testing.T) {
	f := newRegisterFixture()

	rec := httptest.NewRecorder()
	f.handler.Register(rec, jsonRequest("/api/register", map[string]string{"email": "jane@x.com"}))
	require.Equal(t, http.StatusOK, rec.Code)

	payload := map[string]string{"email": "jane@x.com", "code": f.mailer.lastCode}

	rec = httptest.NewRecorder()
	f.handler.Verify(rec, jsonRequest("/api/verify", payload))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.Verify(rec, jsonRequest("/api/verify", payload))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerify_MissingCode(t *testing.T) {
	f := newRegisterFixture()

	rec := httptest.NewRecorder()
	f.handler.Verify(rec, jsonRequest("/api/verify", map[string]string{"email": "nobody@x.com", "code": "123456"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_otp")
}

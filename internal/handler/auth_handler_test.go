package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/admission-agent-api/internal/models"
	appErrors "github.com/noah-isme/admission-agent-api/pkg/errors"
)

type fakeAuthSrv struct {
	signups []models.SignupRequest
	logouts []models.LogoutRequest
}

func (f *fakeAuthSrv) Signup(_ context.Context, req models.SignupRequest) (*models.Session, error) {
	f.signups = append(f.signups, req)
	return &models.Session{TokenPair: models.TokenPair{AccessToken: "access"}, User: models.UserInfo{Email: req.Email, Role: req.Role}}, nil
}

func (f *fakeAuthSrv) Login(context.Context, models.LoginRequest) (*models.Session, error) {
	return nil, appErrors.ErrInvalidCredentials
}

func (f *fakeAuthSrv) RefreshToken(context.Context, models.RefreshTokenRequest) (*models.TokenPair, error) {
	return &models.TokenPair{AccessToken: "next"}, nil
}

func (f *fakeAuthSrv) Logout(_ context.Context, _ string, req models.LogoutRequest) error {
	f.logouts = append(f.logouts, req)
	return nil
}

func (f *fakeAuthSrv) ChangePassword(context.Context, string, models.ChangePasswordRequest) error {
	return nil
}

func (f *fakeAuthSrv) Me(_ context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID, Role: models.RoleStudent}, nil
}

func TestAuthHandlerSignupPassesInviteToService(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)

	c, rec := newGinContext(http.MethodPost, "/auth/signup", []byte(`{"email":"a@b.com","password":"secret1","full_name":"Rahim","role":"ADMIN","invite_code":"abc"}`))
	c.Request.Header.Set("User-Agent", "smoke/1.0")
	handler.Signup(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, srv.signups, 1)
	assert.Equal(t, models.RoleAdmin, srv.signups[0].Role)
	assert.Equal(t, "abc", srv.signups[0].InviteCode)
	assert.Equal(t, "smoke/1.0", srv.signups[0].Client.UserAgent)
	assert.Equal(t, "access", decodeEnvelope(t, rec).Data["access_token"])
}

func TestAuthHandlerSignupRejectsBadJSON(t *testing.T) {
	srv := &fakeAuthSrv{}
	c, rec := newGinContext(http.MethodPost, "/auth/signup", []byte(`{"email":`))
	NewAuthHandler(srv).Signup(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, srv.signups)
}

func TestAuthHandlerLoginFailure(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})

	c, rec := newGinContext(http.MethodPost, "/auth/login", []byte(`{"email":"a@b.com","password":"wrong"}`))
	handler.Login(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandlerMe(t *testing.T) {
	handler := NewAuthHandler(&fakeAuthSrv{})

	c, rec := newGinContext(http.MethodGet, "/auth/me", nil)
	handler.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newGinContext(http.MethodGet, "/auth/me", nil)
	asStudent(c)
	handler.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", decodeEnvelope(t, rec).Data["id"])
}

func TestAuthHandlerLogoutRequiresToken(t *testing.T) {
	srv := &fakeAuthSrv{}
	handler := NewAuthHandler(srv)

	c, rec := newGinContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":`))
	asStudent(c)
	handler.Logout(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newGinContext(http.MethodPost, "/auth/logout", []byte(`{"refresh_token":"raw"}`))
	asStudent(c)
	handler.Logout(c)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, srv.logouts, 1)
	assert.Equal(t, "raw", srv.logouts[0].RefreshToken)
}

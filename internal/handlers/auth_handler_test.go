package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nimasrn/cash-ledger/internal/auth"
	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/internal/services"
	xhttp "github.com/nimasrn/cash-ledger/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuthHandler_Register(t *testing.T) {
	t.Run("registered", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc)

		svc.On("Register", mock.Anything, model.RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "secret1"}).
			Return(&model.AuthResult{
				Token:     "tok",
				ExpiresAt: time.Now().Add(time.Hour),
				User:      &model.User{ID: "u1", Name: "Asha", Email: "asha@example.com", PasswordHash: "hash"},
			}, nil)

		body := []byte(`{"name":"Asha","email":"asha@example.com","password":"secret1"}`)
		ctx := setupTestContext("POST", "/api/auth/register", body)
		handler.Register(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		var response map[string]any
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
		assert.Equal(t, true, response["success"])
		assert.Equal(t, "tok", response["token"])
		assert.Equal(t, "User registered successfully", response["message"])
		user := response["user"].(map[string]any)
		assert.Equal(t, "u1", user["id"])
		assert.NotContains(t, user, "passwordHash")
	})

	t.Run("already exists", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc)
		svc.On("Register", mock.Anything, mock.Anything).Return(nil, services.ErrUserExists)

		ctx := setupTestContext("POST", "/api/auth/register", []byte(`{"name":"A","email":"a@b.co","password":"secret1"}`))
		handler.Register(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.JSONEq(t, `{"error":"User already exists"}`, string(ctx.Response.Body()))
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc)
		svc.On("Login", mock.Anything, model.LoginRequest{Email: "asha@example.com", Password: "secret1"}).
			Return(&model.AuthResult{Token: "tok", User: &model.User{ID: "u1"}}, nil)

		ctx := setupTestContext("POST", "/api/auth/login", []byte(`{"email":"asha@example.com","password":"secret1"}`))
		handler.Login(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var response map[string]any
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &response))
		assert.Equal(t, "Login successful", response["message"])
	})

	t.Run("invalid credentials", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc)
		svc.On("Login", mock.Anything, mock.Anything).Return(nil, services.ErrInvalidCredentials)

		ctx := setupTestContext("POST", "/api/auth/login", []byte(`{"email":"x@example.com","password":"nope"}`))
		handler.Login(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, string(ctx.Response.Body()))
	})

	t.Run("locked", func(t *testing.T) {
		svc := new(MockAuthService)
		handler := NewAuthHandler(svc)
		svc.On("Login", mock.Anything, mock.Anything).
			Return(nil, &services.LockedError{RetryAfter: 90*time.Second + 200*time.Millisecond})

		ctx := setupTestContext("POST", "/api/auth/login", []byte(`{"email":"x@example.com","password":"nope"}`))
		handler.Login(ctx)

		assert.Equal(t, 429, ctx.Response.StatusCode())
		assert.Equal(t, "91", string(ctx.Response.Header.Peek("Retry-After")))
	})
}

func TestAuthHandler_LogoutAndMe(t *testing.T) {
	svc := new(MockAuthService)
	handler := NewAuthHandler(svc)

	svc.On("Logout", mock.Anything, mock.MatchedBy(func(s *auth.Session) bool {
		return s.UserID == testOwner && s.TokenID == "jti-1"
	})).Return(nil)
	svc.On("Me", mock.Anything, testOwner).Return(&model.User{ID: testOwner, Name: "Asha"}, nil)

	ctx := withSession(setupTestContext("POST", "/api/auth/logout", nil), testOwner)
	handler.Logout(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())

	ctx = withSession(setupTestContext("GET", "/api/auth/me", nil), testOwner)
	handler.Me(ctx)
	assert.Equal(t, 200, ctx.Response.StatusCode())
	var user model.User
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &user))
	assert.Equal(t, "Asha", user.Name)

	ctx = setupTestContext("POST", "/api/auth/logout", nil)
	handler.Logout(ctx)
	assert.Equal(t, xhttp.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestRequireAuth(t *testing.T) {
	authn := new(MockAuthenticator)
	authn.On("Authenticate", mock.Anything, "good").Return(&auth.Session{UserID: testOwner, TokenID: "j"}, nil)
	authn.On("Authenticate", mock.Anything, "revoked").Return(nil, auth.ErrSessionRevoked)

	var seen string
	h := RequireAuth(authn)(func(ctx *xhttp.RequestCtx) {
		seen = ownerID(ctx)
		ctx.SetStatusCode(xhttp.StatusOK)
	})

	t.Run("no header", func(t *testing.T) {
		ctx := setupTestContext("GET", "/api/customers", nil)
		h(ctx)
		assert.Equal(t, 401, ctx.Response.StatusCode())
		assert.JSONEq(t, `{"error":"Not authorized, no valid token"}`, string(ctx.Response.Body()))
	})

	t.Run("revoked session", func(t *testing.T) {
		ctx := setupTestContext("GET", "/api/customers", nil)
		ctx.Request.Header.Set("Authorization", "Bearer revoked")
		h(ctx)
		assert.Equal(t, 401, ctx.Response.StatusCode())
	})

	t.Run("valid session", func(t *testing.T) {
		ctx := setupTestContext("GET", "/api/customers", nil)
		ctx.Request.Header.Set("Authorization", "Bearer good")
		h(ctx)
		assert.Equal(t, 200, ctx.Response.StatusCode())
		assert.Equal(t, testOwner, seen)
	})
}

package handlers

import (
	"context"
	"time"

	"github.com/nimasrn/cash-ledger/internal/auth"
	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/internal/services"
	xhttp "github.com/nimasrn/cash-ledger/pkg/http"
)

type AuthService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResult, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.AuthResult, error)
	Logout(ctx context.Context, session *auth.Session) error
	Me(ctx context.Context, userID string) (*model.User, error)
}

type AuthHandler struct {
	svc AuthService
}

func RegisterAuthRoutes(e *xhttp.Group, h *AuthHandler, requireAuth xhttp.MiddlewareFunc) {
	e.POST("/auth/register", h.Register)
	e.POST("/auth/login", h.Login)
	e.POST("/auth/logout", requireAuth(h.Logout))
	e.GET("/auth/me", requireAuth(h.Me))
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{
		svc: authService,
	}
}

type authResponse struct {
	Success   bool        `json:"success"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
	Message   string      `json:"message"`
}

func newAuthResponse(res *model.AuthResult, msg string) authResponse {
	return authResponse{
		Success:   true,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt.UTC(),
		User:      res.User,
		Message:   msg,
	}
}

func (h *AuthHandler) Register(ctx *xhttp.RequestCtx) {
	var req model.RegisterRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.svc.Register(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, newAuthResponse(res, "User registered successfully"))
}

func (h *AuthHandler) Login(ctx *xhttp.RequestCtx) {
	var req model.LoginRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	res, err := h.svc.Login(ctx, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, newAuthResponse(res, "Login successful"))
}

func (h *AuthHandler) Logout(ctx *xhttp.RequestCtx) {
	session, ok := currentSession(ctx)
	if !ok {
		writeServiceError(ctx, services.ErrUnauthenticated)
		return
	}
	if err := h.svc.Logout(ctx, session); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) Me(ctx *xhttp.RequestCtx) {
	user, err := h.svc.Me(ctx, ownerID(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, user)
}

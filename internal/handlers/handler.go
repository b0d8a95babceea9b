package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"

	"github.com/nimasrn/cash-ledger/internal/auth"
	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/internal/services"
	xhttp "github.com/nimasrn/cash-ledger/pkg/http"
	"github.com/nimasrn/cash-ledger/pkg/logger"
)

const (
	msgUnauthorized    = "Not authorized, no valid token"
	msgNotFound        = "Customer not found"
	msgInternal        = "Internal server error"
	msgUserExists      = "User already exists"
	msgBadCredentials  = "Invalid credentials"
	msgTooManyAttempts = "Too many failed login attempts, try again later"
)

type messageResponse struct {
	Message string `json:"message"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeServiceError maps a service error onto its status code. Store
// failures are logged here and answered with a generic message.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	var (
		verr   *model.ValidationError
		locked *services.LockedError
	)
	switch {
	case errors.As(err, &verr):
		writeError(ctx, xhttp.StatusBadRequest, verr.Message)
	case errors.As(err, &locked):
		secs := int(math.Ceil(locked.RetryAfter.Seconds()))
		ctx.Response.Header.Set("Retry-After", strconv.Itoa(secs))
		writeError(ctx, xhttp.StatusTooManyRequests, msgTooManyAttempts)
	case errors.Is(err, services.ErrNotFound):
		writeError(ctx, xhttp.StatusNotFound, msgNotFound)
	case errors.Is(err, services.ErrUserExists):
		writeError(ctx, xhttp.StatusBadRequest, msgUserExists)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(ctx, xhttp.StatusBadRequest, msgBadCredentials)
	case errors.Is(err, services.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrSessionRevoked):
		writeError(ctx, xhttp.StatusUnauthorized, msgUnauthorized)
	default:
		logger.Error("request failed",
			"method", string(ctx.Method()),
			"path", string(ctx.Path()),
			"request_id", xhttp.RequestID(ctx),
			"error", err)
		writeError(ctx, xhttp.StatusInternalServerError, msgInternal)
	}
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func pathParam(ctx *xhttp.RequestCtx, name string) string {
	v, _ := ctx.UserValue(name).(string)
	return v
}

package handlers

import (
	"context"

	"github.com/nimasrn/cash-ledger/internal/auth"
	xhttp "github.com/nimasrn/cash-ledger/pkg/http"
)

const sessionUserValue = "auth.session"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Session, error)
}

// RequireAuth rejects requests without a live bearer session and stores
// the session on the request for the handlers behind it.
func RequireAuth(a Authenticator) xhttp.MiddlewareFunc {
	return func(next xhttp.RequestHandler) xhttp.RequestHandler {
		return func(ctx *xhttp.RequestCtx) {
			token, ok := auth.BearerToken(string(ctx.Request.Header.Peek("Authorization")))
			if !ok {
				writeError(ctx, xhttp.StatusUnauthorized, msgUnauthorized)
				return
			}
			session, err := a.Authenticate(ctx, token)
			if err != nil {
				writeServiceError(ctx, err)
				return
			}
			ctx.SetUserValue(sessionUserValue, session)
			next(ctx)
		}
	}
}

func currentSession(ctx *xhttp.RequestCtx) (*auth.Session, bool) {
	s, ok := ctx.UserValue(sessionUserValue).(*auth.Session)
	return s, ok && s != nil && s.UserID != ""
}

// ownerID returns the authenticated user's id, or "" when the request
// never went through RequireAuth.
func ownerID(ctx *xhttp.RequestCtx) string {
	if s, ok := currentSession(ctx); ok {
		return s.UserID
	}
	return ""
}

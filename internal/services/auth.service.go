package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimasrn/cash-ledger/internal/auth"
	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/internal/repository"
	"github.com/nimasrn/cash-ledger/pkg/logger"
	"github.com/nimasrn/cash-ledger/pkg/prom"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

type AuthService struct {
	users    UserRepository
	hasher   *auth.PasswordHasher
	tokens   *auth.TokenIssuer
	sessions *auth.SessionStore
	guard    *auth.LoginGuard
}

func NewAuthService(users UserRepository, hasher *auth.PasswordHasher, tokens *auth.TokenIssuer, sessions *auth.SessionStore, guard *auth.LoginGuard) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		guard:    guard,
	}
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, storeErr("find user", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrUserExists
		}
		return nil, storeErr("create user", err)
	}

	logger.Info("user registered", "user_id", user.ID)
	return s.startSession(ctx, user)
}

// Login verifies credentials. Unknown emails and wrong passwords are not
// distinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.AuthResult, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	email := req.Email

	if retry, err := s.guard.Check(ctx, email); err != nil {
		if errors.Is(err, auth.ErrLocked) {
			return nil, &LockedError{RetryAfter: retry}
		}
		return nil, storeErr("check login lock", err)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, storeErr("find user", err)
	}

	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	if err := s.hasher.Verify(hash, req.Password); err != nil {
		prom.IncLoginFailure()
		locked, gerr := s.guard.Fail(ctx, email)
		if gerr != nil {
			logger.Warn("failed to record login failure", "error", gerr)
		}
		if locked {
			prom.IncLoginLockout()
			logger.Warn("login locked after repeated failures", "email", email)
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.guard.Reset(ctx, email); err != nil {
		logger.Warn("failed to reset login failures", "error", err)
	}
	return s.startSession(ctx, user)
}

// Logout ends the session behind the current token.
func (s *AuthService) Logout(ctx context.Context, session *auth.Session) error {
	if session == nil {
		return ErrUnauthenticated
	}
	if err := s.sessions.Revoke(ctx, session.TokenID); err != nil {
		return storeErr("revoke session", err)
	}
	logger.Info("user logged out", "user_id", session.UserID)
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, storeErr("find user", err)
	}
	return user, nil
}

func (s *AuthService) startSession(ctx context.Context, user *model.User) (*model.AuthResult, error) {
	token, claims, err := s.tokens.Issue(user.ID, user.Name)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Create(ctx, claims); err != nil {
		return nil, storeErr("create session", err)
	}
	return &model.AuthResult{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      user,
	}, nil
}

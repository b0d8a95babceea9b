package auth

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/cash-ledger/pkg/redis"
)

const sessionKeyPrefix = "session:"

// Session is the server side state behind a bearer token.
type Session struct {
	UserID    string
	TokenID   string
	ExpiresAt time.Time
}

// SessionStore keeps one redis key per issued token. A token is only
// accepted while its key exists, so deleting the key logs the token out.
type SessionStore struct {
	redis redis.RedisAdapter
	now   func() time.Time
}

func NewSessionStore(adapter redis.RedisAdapter) *SessionStore {
	return &SessionStore{redis: adapter, now: time.Now}
}

func (s *SessionStore) Create(ctx context.Context, claims *Claims) error {
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return ErrSessionRevoked
	}
	return s.redis.Set(sessionKeyPrefix+claims.ID, []byte(claims.Subject), ttl)
}

// Validate checks that the token's session is still live and bound to the
// same user.
func (s *SessionStore) Validate(ctx context.Context, claims *Claims) (*Session, error) {
	owner, err := s.redis.Get(sessionKeyPrefix + claims.ID)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return nil, ErrSessionRevoked
		}
		return nil, err
	}
	if string(owner) != claims.Subject {
		return nil, ErrSessionRevoked
	}
	return &Session{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *SessionStore) Revoke(ctx context.Context, tokenID string) error {
	return s.redis.Del(sessionKeyPrefix + tokenID)
}

// Authenticator turns a raw bearer token into a live session.
type Authenticator struct {
	tokens   *TokenIssuer
	sessions *SessionStore
}

func NewAuthenticator(tokens *TokenIssuer, sessions *SessionStore) *Authenticator {
	return &Authenticator{tokens: tokens, sessions: sessions}
}

func (a *Authenticator) Authenticate(ctx context.Context, token string) (*Session, error) {
	claims, err := a.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return a.sessions.Validate(ctx, claims)
}

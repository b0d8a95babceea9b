package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nimasrn/cash-ledger/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newRedis(t *testing.T) (redis.RedisAdapter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	a, err := redis.NewRedisAdapter(t.Name(), "", &redis.Options{Addrs: []string{mr.Addr()}})
	require.NoError(t, err)
	return a, mr
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, "cash-ledger", time.Hour)
	require.NoError(t, err)

	token, claims, err := issuer.Issue("user-1", "Asha")
	require.NoError(t, err)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, "user-1", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)

	parsed, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", parsed.Subject)
	assert.Equal(t, claims.ID, parsed.ID)
	assert.Equal(t, "Asha", parsed.Name)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, "cash-ledger", time.Hour)
	require.NoError(t, err)
	token, _, err := issuer.Issue("user-1", "")
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := issuer.Parse("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenIssuer("another-secret-0123456789", "cash-ledger", time.Hour)
		require.NoError(t, err)
		_, err = other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewTokenIssuer(testSecret, "someone-else", time.Hour)
		require.NoError(t, err)
		_, err = other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past, err := NewTokenIssuer(testSecret, "cash-ledger", time.Minute)
		require.NoError(t, err)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, _, err := past.Issue("user-1", "")
		require.NoError(t, err)

		_, err = issuer.Parse(old)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("alg none", func(t *testing.T) {
		claims := jwt.RegisteredClaims{
			Issuer:    "cash-ledger",
			Subject:   "user-1",
			ID:        "x",
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = issuer.Parse(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	_, err := NewTokenIssuer("  ", "cash-ledger", time.Hour)
	assert.ErrorIs(t, err, ErrMissingSecret)

	i, err := NewTokenIssuer(testSecret, "cash-ledger", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultTokenTTL, i.TTL())
}

func TestBearerToken(t *testing.T) {
	tok, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", tok)

	tok, ok = BearerToken("bearer   xyz ")
	assert.True(t, ok)
	assert.Equal(t, "xyz", tok)

	_, ok = BearerToken("Basic dXNlcg==")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
}

func TestPasswordHasher(t *testing.T) {
	h := NewPasswordHasher(4)

	hash, err := h.Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.NoError(t, h.Verify(hash, "secret1"))
	assert.ErrorIs(t, h.Verify(hash, "wrong"), ErrPasswordMismatch)
	assert.ErrorIs(t, h.Verify("", "secret1"), ErrPasswordMismatch)

	_, err = h.Hash("")
	assert.Error(t, err)
}

func TestSessionStore_Lifecycle(t *testing.T) {
	adapter, mr := newRedis(t)
	ctx := context.Background()

	issuer, err := NewTokenIssuer(testSecret, "cash-ledger", time.Hour)
	require.NoError(t, err)
	sessions := NewSessionStore(adapter)
	authn := NewAuthenticator(issuer, sessions)

	token, claims, err := issuer.Issue("user-1", "")
	require.NoError(t, err)

	_, err = authn.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionRevoked, "a token without a session is not accepted")

	require.NoError(t, sessions.Create(ctx, claims))
	assert.True(t, mr.Exists("session:"+claims.ID))

	s, err := authn.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, claims.ID, s.TokenID)

	require.NoError(t, sessions.Revoke(ctx, claims.ID))
	_, err = authn.Authenticate(ctx, token)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestSessionStore_ExpiresWithToken(t *testing.T) {
	adapter, mr := newRedis(t)
	ctx := context.Background()

	issuer, err := NewTokenIssuer(testSecret, "cash-ledger", time.Hour)
	require.NoError(t, err)
	sessions := NewSessionStore(adapter)

	_, claims, err := issuer.Issue("user-1", "")
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, claims))

	mr.FastForward(61 * time.Minute)
	_, err = sessions.Validate(ctx, claims)
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestLoginGuard(t *testing.T) {
	adapter, mr := newRedis(t)
	ctx := context.Background()
	guard := NewLoginGuard(adapter, 3, 10*time.Minute)

	for i := 0; i < 2; i++ {
		locked, err := guard.Fail(ctx, "a@example.com")
		require.NoError(t, err)
		assert.False(t, locked)
	}
	_, err := guard.Check(ctx, "a@example.com")
	assert.NoError(t, err)

	locked, err := guard.Fail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, locked)

	retry, err := guard.Check(ctx, "a@example.com")
	assert.ErrorIs(t, err, ErrLocked)
	assert.Greater(t, retry, time.Duration(0))

	_, err = guard.Check(ctx, "b@example.com")
	assert.NoError(t, err, "locks are per email")

	mr.FastForward(11 * time.Minute)
	_, err = guard.Check(ctx, "a@example.com")
	assert.NoError(t, err)
}

func TestLoginGuard_ResetClearsFailures(t *testing.T) {
	adapter, _ := newRedis(t)
	ctx := context.Background()
	guard := NewLoginGuard(adapter, 2, time.Minute)

	locked, err := guard.Fail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, guard.Reset(ctx, "a@example.com"))

	locked, err = guard.Fail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.False(t, locked, "counter starts over after a successful login")
}

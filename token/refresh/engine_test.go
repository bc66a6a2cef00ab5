package refresh_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/internal/securetoken"
	"github.com/jrsteele09/go-sso-server/token"
	"github.com/jrsteele09/go-sso-server/token/keys"
	"github.com/jrsteele09/go-sso-server/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-sso-server/token/refresh/repofake"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://sso.example.com"
	testAudience = "sso-apps"
	testUserID   = "user-1"
	testClientID = "crm"
)

type testFixture struct {
	repo   *refreshrepofake.FakeRefreshTokenRepo
	issuer *token.Issuer
	engine *refresh.Engine
	now    time.Time
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		repo: refreshrepofake.NewFakeRefreshTokenRepo(),
		now:  time.Now(),
	}
	clock := func() time.Time { return f.now }

	kp, err := keys.GenerateRSAKeyPair("test-kid", 2048)
	require.NoError(t, err)
	f.issuer = token.NewIssuer(testIssuer, testAudience, token.WithNowFunc(clock))
	require.NoError(t, f.issuer.LoadKey(kp))

	cfg := config.NewWithOverrides(map[string]string{
		"ACCESS_TOKEN_TTL":  "15m",
		"REFRESH_TOKEN_TTL": "1h",
	})
	f.engine, err = refresh.NewEngine(f.repo, f.issuer, cfg, refresh.WithNowFunc(clock))
	require.NoError(t, err)
	return f
}

func (f *testFixture) recordFor(t *testing.T, plaintext string) *refresh.Record {
	t.Helper()
	rec, err := f.repo.GetByHash(context.Background(), securetoken.Hash(plaintext))
	require.NoError(t, err)
	return rec
}

func TestIssue(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	pair, err := f.engine.Issue(ctx, testUserID, testClientID, refresh.Meta{IP: "10.0.0.1", UserAgent: "test"})
	require.NoError(t, err)
	require.Equal(t, "Bearer", pair.TokenType)
	require.Equal(t, int64(900), pair.ExpiresIn)
	require.NotEmpty(t, pair.RefreshToken)

	rec := f.recordFor(t, pair.RefreshToken)
	require.NotEqual(t, pair.RefreshToken, rec.TokenHash)
	require.Empty(t, rec.PreviousTokenID)
	require.NotEmpty(t, rec.ChainID)
	require.Equal(t, "10.0.0.1", rec.IP)
	require.Equal(t, f.now.Add(time.Hour), rec.ExpiresAt)

	claims, err := f.issuer.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testUserID, claims.Subject)
	require.Equal(t, testClientID, claims.ClientID)

	_, err = f.engine.Issue(ctx, "", testClientID, refresh.Meta{})
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestRotate_Succeeds(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	t0, err := f.engine.Issue(ctx, testUserID, testClientID, refresh.Meta{})
	require.NoError(t, err)

	t1, err := f.engine.Rotate(ctx, t0.RefreshToken, refresh.Meta{})
	require.NoError(t, err)
	require.NotEqual(t, t0.RefreshToken, t1.RefreshToken)

	old := f.recordFor(t, t0.RefreshToken)
	next := f.recordFor(t, t1.RefreshToken)
	require.True(t, old.Revoked)
	require.False(t, next.Revoked)
	require.Equal(t, old.ID, next.PreviousTokenID)
	require.Equal(t, old.ChainID, next.ChainID)
	require.Equal(t, testClientID, next.ClientID)

	claims, err := f.issuer.Verify(t1.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testUserID, claims.Subject)
}

func TestRotate_ReuseRevokesChain(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	t0, err := f.engine.Issue(ctx, testUserID, testClientID, refresh.Meta{})
	require.NoError(t, err)
	other, err := f.engine.Issue(ctx, testUserID, testClientID, refresh.Meta{})
	require.NoError(t, err)

	t1, err := f.engine.Rotate(ctx, t0.RefreshToken, refresh.Meta{})
	require.NoError(t, err)

	_, err = f.engine.Rotate(ctx, t0.RefreshToken, refresh.Meta{})
	require.ErrorIs(t, err, apperrors.ErrTokenReuseDetected)

	_, err = f.engine.Rotate(ctx, t1.RefreshToken, refresh.Meta{})
	require.ErrorIs(t, err, apperrors.ErrTokenReuseDetected)
	require.True(t, f.recordFor(t, t1.RefreshToken).Revoked)

	// A separate chain for the same user is untouched.
	_, err = f.engine.Rotate(ctx, other.RefreshToken, refresh.Meta{})
	require.NoError(t, err)
}

func TestRotate_Failures(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	t.Run("unknown token", func(t *testing.T) {
		_, err := f.engine.Rotate(ctx, "not-a-token", refresh.Meta{})
		require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := f.engine.Rotate(ctx, "", refresh.Meta{})
		require.ErrorIs(t, err, apperrors.ErrInvalidRefreshToken)
	})

	t.Run("expired token", func(t *testing.T) {
		pair, err := f.engine.Issue(ctx, testUserID, testClientID, refresh.Meta{})
		require.NoError(t, err)

		start := f.now
		f.now = start.Add(time.Hour)
		defer func() { f.now = start }()

		_, err = f.engine.Rotate(ctx, pair.RefreshToken, refresh.Meta{})
		require.ErrorIs(t, err, apperrors.ErrRefreshTokenExpired)
	})
}

func TestRotate_ConcurrentExactlyOneWins(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	t0, err := f.engine.Issue(ctx, testUserID, testClientID, refresh.Meta{})
	require.NoError(t, err)

	const attempts = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		reuseErr int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.Rotate(ctx, t0.RefreshToken, refresh.Meta{})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
			} else if apperrors.Is(err, apperrors.ErrTokenReuseDetected) {
				reuseErr++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, success)
	require.Equal(t, attempts-1, reuseErr)
}

func TestRevoke_Idempotent(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	pair, err := f.engine.Issue(ctx, testUserID, testClientID, refresh.Meta{})
	require.NoError(t, err)
	rec := f.recordFor(t, pair.RefreshToken)

	require.NoError(t, f.engine.RevokeOne(ctx, rec.ID))
	require.NoError(t, f.engine.RevokeOne(ctx, rec.ID))
	require.NoError(t, f.engine.RevokeOne(ctx, "missing"))
	require.True(t, f.recordFor(t, pair.RefreshToken).Revoked)

	require.NoError(t, f.engine.RevokeByToken(ctx, pair.RefreshToken))
	require.NoError(t, f.engine.RevokeByToken(ctx, "unknown"))
}

func TestRevokeAllForUser(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	a, err := f.engine.Issue(ctx, testUserID, testClientID, refresh.Meta{})
	require.NoError(t, err)
	b, err := f.engine.Issue(ctx, testUserID, "hr", refresh.Meta{})
	require.NoError(t, err)
	c, err := f.engine.Issue(ctx, "user-2", testClientID, refresh.Meta{})
	require.NoError(t, err)

	require.NoError(t, f.engine.RevokeAllForUser(ctx, testUserID))
	require.NoError(t, f.engine.RevokeAllForUser(ctx, testUserID))

	require.True(t, f.recordFor(t, a.RefreshToken).Revoked)
	require.True(t, f.recordFor(t, b.RefreshToken).Revoked)
	require.False(t, f.recordFor(t, c.RefreshToken).Revoked)
}

func TestCleanupExpired(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	_, err := f.engine.Issue(ctx, testUserID, testClientID, refresh.Meta{})
	require.NoError(t, err)
	f.now = f.now.Add(2 * time.Hour)
	_, err = f.engine.Issue(ctx, testUserID, testClientID, refresh.Meta{})
	require.NoError(t, err)

	n, err := f.engine.CleanupExpired(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, 1, f.repo.Len())

	n, err = f.engine.CleanupExpired(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Zero(t, n)
}

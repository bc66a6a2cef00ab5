package authcodes_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-sso-server/authcodes"
	authcoderepofake "github.com/jrsteele09/go-sso-server/authcodes/repofake"
	"github.com/jrsteele09/go-sso-server/internal/config"
	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/stretchr/testify/require"
)

const (
	testUserID      = "U1"
	testTenantID    = "T1"
	testAppID       = "crm"
	testRedirectURI = "https://crm.example.com/callback"
)

type testFixture struct {
	repo   *authcoderepofake.FakeAuthCodeRepo
	broker *authcodes.Broker
	now    time.Time
}

func setupTestFixture(t *testing.T, options ...authcodes.BrokerOption) *testFixture {
	t.Helper()

	f := &testFixture{
		repo: authcoderepofake.NewFakeAuthCodeRepo(),
		now:  time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	cfg := config.NewWithOverrides(map[string]string{
		"AUTH_CODE_TTL":       "5m",
		"STRICT_REDIRECT_URI": "true",
	})
	options = append([]authcodes.BrokerOption{authcodes.WithNowFunc(func() time.Time { return f.now })}, options...)

	var err error
	f.broker, err = authcodes.NewBroker(f.repo, cfg, options...)
	require.NoError(t, err)
	return f
}

func TestGenerate(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	code, err := f.broker.Generate(ctx, testUserID, testTenantID, testAppID, testRedirectURI)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(code, authcodes.CodePrefix))

	rec, err := f.repo.GetByCode(ctx, code)
	require.NoError(t, err)
	require.Equal(t, f.now.Add(5*time.Minute), rec.ExpiresAt)
	require.False(t, rec.Used)

	_, err = f.broker.Generate(ctx, testUserID, "", testAppID, testRedirectURI)
	require.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestValidate_SingleUse(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	code, err := f.broker.Generate(ctx, testUserID, testTenantID, testAppID, testRedirectURI)
	require.NoError(t, err)

	identity, err := f.broker.Validate(ctx, code, testAppID, "")
	require.NoError(t, err)
	require.Equal(t, testUserID, identity.UserID)
	require.Equal(t, testTenantID, identity.TenantID)
	require.Equal(t, testAppID, identity.AppID)

	_, err = f.broker.Validate(ctx, code, testAppID, "")
	require.ErrorIs(t, err, apperrors.ErrCodeAlreadyUsed)
}

func TestValidate_Failures(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	t.Run("unknown code", func(t *testing.T) {
		_, err := f.broker.Validate(ctx, "ac_missing", testAppID, "")
		require.ErrorIs(t, err, apperrors.ErrInvalidCode)
	})

	t.Run("malformed code", func(t *testing.T) {
		_, err := f.broker.Validate(ctx, "missing", testAppID, "")
		require.ErrorIs(t, err, apperrors.ErrInvalidCode)
	})

	t.Run("app mismatch", func(t *testing.T) {
		code, err := f.broker.Generate(ctx, testUserID, testTenantID, testAppID, testRedirectURI)
		require.NoError(t, err)

		_, err = f.broker.Validate(ctx, code, "hr", "")
		require.ErrorIs(t, err, apperrors.ErrAppMismatch)

		// The mismatch does not burn the code for its own app.
		_, err = f.broker.Validate(ctx, code, testAppID, "")
		require.NoError(t, err)
	})

	t.Run("redirect mismatch", func(t *testing.T) {
		code, err := f.broker.Generate(ctx, testUserID, testTenantID, testAppID, testRedirectURI)
		require.NoError(t, err)

		_, err = f.broker.Validate(ctx, code, testAppID, "https://evil.example.com/callback")
		require.ErrorIs(t, err, apperrors.ErrRedirectMismatch)

		_, err = f.broker.Validate(ctx, code, testAppID, testRedirectURI)
		require.NoError(t, err)
	})

	t.Run("expired code is deleted", func(t *testing.T) {
		code, err := f.broker.Generate(ctx, testUserID, testTenantID, testAppID, testRedirectURI)
		require.NoError(t, err)

		start := f.now
		f.now = start.Add(5 * time.Minute)
		defer func() { f.now = start }()

		_, err = f.broker.Validate(ctx, code, testAppID, "")
		require.ErrorIs(t, err, apperrors.ErrCodeExpired)
		_, err = f.broker.Validate(ctx, code, testAppID, "")
		require.ErrorIs(t, err, apperrors.ErrInvalidCode)
	})
}

func TestValidate_RedirectNotEnforcedWhenLenient(t *testing.T) {
	f := setupTestFixture(t, authcodes.WithStrictRedirect(false))
	ctx := context.Background()

	code, err := f.broker.Generate(ctx, testUserID, testTenantID, testAppID, testRedirectURI)
	require.NoError(t, err)

	_, err = f.broker.Validate(ctx, code, testAppID, "https://other.example.com/callback")
	require.NoError(t, err)
}

func TestValidate_ConcurrentExactlyOneWins(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	code, err := f.broker.Generate(ctx, testUserID, testTenantID, testAppID, testRedirectURI)
	require.NoError(t, err)

	const attempts = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		used    int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.broker.Validate(ctx, code, testAppID, "")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
			} else if apperrors.Is(err, apperrors.ErrCodeAlreadyUsed) {
				used++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, success)
	require.Equal(t, attempts-1, used)
}

func TestCleanupExpiredOrUsed(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	used, err := f.broker.Generate(ctx, testUserID, testTenantID, testAppID, "")
	require.NoError(t, err)
	_, err = f.broker.Validate(ctx, used, testAppID, "")
	require.NoError(t, err)

	_, err = f.broker.Generate(ctx, testUserID, testTenantID, testAppID, "")
	require.NoError(t, err)

	f.now = f.now.Add(time.Minute)
	_, err = f.broker.Generate(ctx, testUserID, testTenantID, testAppID, "")
	require.NoError(t, err)

	f.now = f.now.Add(4*time.Minute + 30*time.Second)
	n, err := f.broker.CleanupExpiredOrUsed(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
	require.Equal(t, 1, f.repo.Len())
}

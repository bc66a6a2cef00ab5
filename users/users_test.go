package users_test

import (
	"context"
	"testing"

	apperrors "github.com/jrsteele09/go-sso-server/internal/errors"
	"github.com/jrsteele09/go-sso-server/users"
	fakeuserrepo "github.com/jrsteele09/go-sso-server/users/repofake"
	"github.com/stretchr/testify/require"
)

func TestPasswordHash(t *testing.T) {
	hash, err := users.HashPassword("Password123")
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash("Password123", hash))
	require.False(t, users.CheckPasswordHash("password123", hash))
}

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Password123"))
	require.Error(t, users.ValidatePasswordStrength("Pass1"))
	require.Error(t, users.ValidatePasswordStrength("password123"))
	require.Error(t, users.ValidatePasswordStrength("PASSWORD123"))
	require.Error(t, users.ValidatePasswordStrength("PasswordXYZ"))
}

func TestParseStatus(t *testing.T) {
	st, err := users.ParseStatus("Suspended")
	require.NoError(t, err)
	require.Equal(t, users.StatusSuspended, st)

	_, err = users.ParseStatus("deleted")
	require.Error(t, err)
}

func TestFakeUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := fakeuserrepo.NewFakeUserRepo()

	u := &users.User{Email: " John.Doe@Example.com ", Name: "John"}
	require.NoError(t, repo.Create(ctx, u))
	require.NotEmpty(t, u.ID)
	require.True(t, u.Active())

	got, err := repo.GetByEmail(ctx, "john.doe@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	require.Error(t, repo.Create(ctx, &users.User{Email: "john.doe@example.com"}))

	require.NoError(t, repo.SetStatus(ctx, u.ID, users.StatusSuspended))
	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.Active())

	_, err = repo.GetByID(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.ErrorIs(t, repo.SetStatus(ctx, "missing", users.StatusActive), apperrors.ErrNotFound)
}

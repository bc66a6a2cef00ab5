package securetoken_test

import (
	"encoding/base64"
	"testing"

	"github.com/jrsteele09/go-sso-server/internal/securetoken"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	a, err := securetoken.Generate(32)
	require.NoError(t, err)
	b, err := securetoken.Generate(32)
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err)
	require.Len(t, raw, 32)

	def, err := securetoken.Generate(0)
	require.NoError(t, err)
	require.Len(t, def, base64.RawURLEncoding.EncodedLen(securetoken.DefaultLength))
}

func TestHash(t *testing.T) {
	require.Equal(t, securetoken.Hash("abc"), securetoken.Hash("abc"))
	require.NotEqual(t, securetoken.Hash("abc"), securetoken.Hash("abd"))
	require.Len(t, securetoken.Hash("abc"), 64)
}

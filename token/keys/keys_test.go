package keys_test

import (
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-sso-server/token/keys"
	"github.com/stretchr/testify/require"
)

const testKeyID = "test-key-1"

func TestGenerateRSAKeyPair(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair(testKeyID, 1024)
	require.NoError(t, err)
	require.Equal(t, 2048, kp.PrivateKey.N.BitLen(), "bits below 2048 are raised")
	require.Equal(t, keys.RS256, kp.Algorithm)

	_, err = keys.GenerateRSAKeyPair("", 2048)
	require.Error(t, err)
}

func TestToJWK(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair(testKeyID, 2048)
	require.NoError(t, err)

	jwk := kp.ToJWK()
	require.Equal(t, "RSA", jwk.Kty)
	require.Equal(t, "sig", jwk.Use)
	require.Equal(t, testKeyID, jwk.Kid)
	require.Equal(t, "AQAB", jwk.E)

	n, err := base64.RawURLEncoding.DecodeString(jwk.N)
	require.NoError(t, err)
	require.Equal(t, 0, new(big.Int).SetBytes(n).Cmp(kp.PublicKey.N))
}

func TestPEMRoundTrip(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair(testKeyID, 2048)
	require.NoError(t, err)

	t.Run("pkcs8", func(t *testing.T) {
		pemBytes, err := kp.ExportPrivateKeyPEM()
		require.NoError(t, err)

		loaded, err := keys.LoadRSAKeyPairPEM(testKeyID, pemBytes)
		require.NoError(t, err)
		require.True(t, loaded.PrivateKey.Equal(kp.PrivateKey))
	})

	t.Run("pkcs1", func(t *testing.T) {
		pemBytes := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(kp.PrivateKey)})

		loaded, err := keys.LoadRSAKeyPairPEM(testKeyID, pemBytes)
		require.NoError(t, err)
		require.True(t, loaded.PublicKey.Equal(kp.PublicKey))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := keys.LoadRSAKeyPairPEM(testKeyID, []byte("not pem"))
		require.Error(t, err)
	})
}

func TestKeyPairSigner(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair(testKeyID, 2048)
	require.NoError(t, err)
	signer := keys.NewKeyPairSigner(kp)

	raw, err := signer.Sign(jwt.MapClaims{"sub": "user-1"})
	require.NoError(t, err)

	parsed, err := jwt.Parse(raw, signer.GetVerificationKey)
	require.NoError(t, err)
	require.Equal(t, testKeyID, parsed.Header["kid"])
	require.Equal(t, "RS256", parsed.Header["alg"])

	t.Run("rejects foreign kid", func(t *testing.T) {
		other, err := keys.GenerateRSAKeyPair("other-key", 2048)
		require.NoError(t, err)
		foreign, err := keys.NewKeyPairSigner(other).Sign(jwt.MapClaims{"sub": "user-1"})
		require.NoError(t, err)

		_, err = jwt.Parse(foreign, signer.GetVerificationKey)
		require.Error(t, err)
	})

	t.Run("rejects HMAC", func(t *testing.T) {
		hs, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte("secret"))
		require.NoError(t, err)

		_, err = jwt.Parse(hs, signer.GetVerificationKey)
		require.Error(t, err)
	})

	jwks := signer.JWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, testKeyID, jwks.Keys[0].Kid)
}

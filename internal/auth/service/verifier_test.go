package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/scrollvite/internal/auth/domain"
	"github.com/smallbiznis/scrollvite/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testSecret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func newVerifier(t *testing.T, issuer string) domain.Verifier {
	t.Helper()
	v, err := NewJWTVerifier(config.Config{AuthJWTSecret: testSecret, AuthJWTIssuer: issuer}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return v
}

func TestVerifyValidToken(t *testing.T) {
	v := newVerifier(t, "")
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub":   "user-1",
		"email": "priya@example.com",
		"roles": []string{"Buyer"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	p, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.Subject)
	assert.Equal(t, "priya@example.com", p.Email)
	assert.Equal(t, []string{"buyer"}, p.Roles)
	assert.Equal(t, "priya", p.DisplayName())
}

func TestVerifyDefaultsToBuyerRole(t *testing.T) {
	v := newVerifier(t, "")
	token := sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	p, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.RoleBuyer}, p.Roles)
}

func TestVerifyRejects(t *testing.T) {
	v := newVerifier(t, "https://id.scrollvite.com")
	future := time.Now().Add(time.Hour).Unix()

	cases := map[string]string{
		"empty": "",
		"wrong secret": sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{
			"sub": "user-1", "exp": future, "iss": "https://id.scrollvite.com",
		}),
		"expired": sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"sub": "user-1", "exp": time.Now().Add(-time.Minute).Unix(), "iss": "https://id.scrollvite.com",
		}),
		"no expiry": sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"sub": "user-1", "iss": "https://id.scrollvite.com",
		}),
		"wrong issuer": sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"sub": "user-1", "exp": future, "iss": "https://evil.example.com",
		}),
		"no subject": sign(t, jwt.SigningMethodHS256, []byte(testSecret), jwt.MapClaims{
			"exp": future, "iss": "https://id.scrollvite.com",
		}),
		"alg none": sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{
			"sub": "user-1", "exp": future, "iss": "https://id.scrollvite.com",
		}),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		})
	}
}

func TestNewJWTVerifierRequiresSecretInProduction(t *testing.T) {
	_, err := NewJWTVerifier(config.Config{Environment: "production"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

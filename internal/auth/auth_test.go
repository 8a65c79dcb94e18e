package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NordCoder/Studiobell/internal/testutil"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestParseAndValidate(t *testing.T) {
	tok, err := testutil.Token(42, secret, time.Minute)
	require.NoError(t, err)

	claims, err := ParseAndValidate(tok, secret)
	require.NoError(t, err)
	id, err := claims.RecipientID()
	require.NoError(t, err)
	assert.EqualValues(t, 42, id)
}

func TestParse_Rejects(t *testing.T) {
	expired, err := testutil.Token(42, secret, -time.Minute)
	require.NoError(t, err)

	other, err := testutil.Token(42, []byte("other"), time.Minute)
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(secret)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "42"}).SignedString(secret)
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"expired":    expired,
		"bad secret": other,
		"no subject": noSub,
		"no expiry":  noExp,
		"garbage":    "a.b.c",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAndValidate(tok, secret)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/stream?access_token=q", nil)
	assert.Equal(t, "q", BearerToken(r))

	r.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "h", BearerToken(r))

	r.Header.Set("Authorization", "Basic h")
	assert.Empty(t, BearerToken(r))
}

package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ParseAndValidate checks an HS256 access token and returns its claims.
// Tokens are issued by the studio app; this service only verifies them.
func ParseAndValidate(token string, secret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	t, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !t.Valid {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.RecipientID(); err != nil {
		return nil, err
	}
	return &claims, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// EventSource cannot set headers, so the access_token query parameter is accepted too.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}

package testutil

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token signs an HS256 access token for recipientID the way the studio app does.
func Token(recipientID int64, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(recipientID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

package auth

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenInvalid = errors.New("invalid token")

// AccessClaims carries the recipient id in the standard subject claim.
type AccessClaims struct {
	jwt.RegisteredClaims
}

func (c *AccessClaims) RecipientID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrTokenInvalid
	}
	return id, nil
}

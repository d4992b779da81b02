package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredentials is returned for an unknown admin or a wrong password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// AdminClaims is the payload of an admin session token.
type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AdminSession is an issued admin token.
type AdminSession struct {
	Token     string
	ExpiresAt time.Time
}

// IssueAdmin signs an admin session token.
func IssueAdmin(username, issuer, key string, ttl time.Duration) (AdminSession, error) {
	exp := time.Now().Add(ttl)
	claims := AdminClaims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return AdminSession{}, err
	}
	return AdminSession{Token: token, ExpiresAt: exp}, nil
}

// ParseAdmin validates an admin token and returns its claims.
func ParseAdmin(tokenStr, key, issuer string) (AdminClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	})
	if err != nil {
		return AdminClaims{}, err
	}
	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok || !parsed.Valid {
		return AdminClaims{}, ErrInvalidToken
	}
	if claims.Role != "admin" {
		return AdminClaims{}, errors.New("not an admin token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return AdminClaims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}

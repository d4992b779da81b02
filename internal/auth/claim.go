package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformedToken means the credential could not be parsed into a claim.
	ErrMalformedToken = errors.New("malformed token")
	// ErrInvalidToken means the credential parsed but failed verification (signature, expiry, issuer).
	ErrInvalidToken = errors.New("invalid token")
)

// Claim is the identity a bearer credential asserts.
type Claim struct {
	SRCode   string
	FullName string
	Type     string
}

// Decoder resolves a bearer credential to a claimed identity.
type Decoder interface {
	Decode(token string) (Claim, error)
}

// identityClaims is the payload carried in the middle token segment.
type identityClaims struct {
	SRCode   string `json:"srcode"`
	FullName string `json:"fullname"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

func (c *identityClaims) claim() (Claim, error) {
	srcode := strings.TrimSpace(c.SRCode)
	if srcode == "" {
		return Claim{}, fmt.Errorf("%w: missing srcode", ErrMalformedToken)
	}
	typ := strings.TrimSpace(c.Type)
	if typ == "" {
		typ = "student"
	}
	return Claim{SRCode: srcode, FullName: strings.TrimSpace(c.FullName), Type: typ}, nil
}

// PassthroughDecoder trusts the claim without checking the signature or the header.
// Only suitable for development and tests.
type PassthroughDecoder struct{}

// NewPassthroughDecoder creates a decoder that skips verification.
func NewPassthroughDecoder() *PassthroughDecoder {
	return &PassthroughDecoder{}
}

// Decode reads the identity from the middle segment of a three-segment token.
func (d *PassthroughDecoder) Decode(token string) (Claim, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return Claim{}, fmt.Errorf("%w: expected three segments", ErrMalformedToken)
	}
	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return Claim{}, fmt.Errorf("%w: payload is not base64url: %v", ErrMalformedToken, err)
	}
	var claims identityClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claim{}, fmt.Errorf("%w: payload is not a claim record: %v", ErrMalformedToken, err)
	}
	return claims.claim()
}

// VerifyingDecoder checks an HS256 signature, expiry and (optionally) issuer before trusting the claim.
type VerifyingDecoder struct {
	key    []byte
	parser *jwt.Parser
}

// NewVerifyingDecoder creates a decoder bound to a signing key.
func NewVerifyingDecoder(key, issuer string) (*VerifyingDecoder, error) {
	if key == "" {
		return nil, errors.New("token signing key required")
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	return &VerifyingDecoder{key: []byte(key), parser: jwt.NewParser(opts...)}, nil
}

// Decode verifies the token and returns its claim.
func (d *VerifyingDecoder) Decode(token string) (Claim, error) {
	var claims identityClaims
	_, err := d.parser.ParseWithClaims(strings.TrimSpace(token), &claims, func(*jwt.Token) (interface{}, error) {
		return d.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claim{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claim{}, fmt.Errorf("%w: token expired", ErrInvalidToken)
		}
		return Claim{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims.claim()
}

// NewDecoder picks a decoder for the configured mode ("verify" or "passthrough").
func NewDecoder(mode, key, issuer string) (Decoder, error) {
	switch strings.ToLower(mode) {
	case "verify":
		return NewVerifyingDecoder(key, issuer)
	case "passthrough", "":
		return NewPassthroughDecoder(), nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}

// IssueIdentity signs an identity credential. Used by tests and tooling that mint student cards.
func IssueIdentity(c Claim, issuer, key string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := identityClaims{
		SRCode:   c.SRCode,
		FullName: c.FullName,
		Type:     c.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   c.SRCode,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

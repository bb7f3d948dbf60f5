// Package apitoken mints and validates the bearer tokens issuers use to call
// the issuance API. Tokens are HS256 JWTs carrying the issuer identity as
// subject; they authenticate API callers and have nothing to do with
// credential signatures.
package apitoken

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "skillchain/pkg/domain-errors"
)

// Claims are the JWT claims for issuer API tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// Service handles API token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
	tokenTTL   time.Duration
}

// NewService constructs a token service with the given HS256 signing key.
func NewService(signingKey string, issuer string, tokenTTL time.Duration) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		tokenTTL:   tokenTTL,
	}
}

// MintToken creates a signed API token for an issuer identity.
func (s *Service) MintToken(identity string, now time.Time) (string, error) {
	if identity == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "issuer identity is required")
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign api token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and validates a bearer token, returning the issuer
// identity it was minted for.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid api token")
	}
	if !token.Valid || claims.Subject == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid api token")
	}
	return claims.Subject, nil
}

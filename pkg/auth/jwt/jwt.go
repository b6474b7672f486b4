package jwt

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// TokenTypeAccess a access token
	TokenTypeAccess string = "access_token"

	// TokenTypeRefresh a refresh token
	TokenTypeRefresh string = "refresh_token"
)

const (
	// AccessTokenTTL is the lifetime of an access token
	AccessTokenTTL = time.Hour

	// RefreshTokenTTL is the lifetime of a refresh token
	RefreshTokenTTL = time.Hour * 24 * 30
)

// Claims our JWT can have
type Claims struct {
	TokenType string `json:"tkt,omitempty"`
	gojwt.RegisteredClaims
}

// now is overridden in tests
var now = time.Now

// Sign issues a signed HS256 token of tokenType for the given subject
func Sign(subject string, tokenType string, ttl time.Duration, secret string) (string, error) {
	issuedAt := now()

	claims := Claims{
		TokenType: tokenType,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.New().String(),
			IssuedAt:  gojwt.NewNumericDate(issuedAt),
			NotBefore: gojwt.NewNumericDate(issuedAt),
			ExpiresAt: gojwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Verify checks the signature, expiry and the token type of a token string
func Verify(token string, tokenType string, secret string) (*Claims, error) {
	claims := Claims{}

	parsed, err := gojwt.ParseWithClaims(token, &claims, func(t *gojwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}), gojwt.WithTimeFunc(now))
	if err != nil {
		return nil, err
	}

	if !parsed.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	if tokenType != "" && claims.TokenType != tokenType {
		return nil, fmt.Errorf("wrong token type")
	}

	return &claims, nil
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/passgate/internal/common"
)

// StateClaims travel in the short-lived cookie set before redirecting to a
// provider. Nonce is echoed back by the provider as the state parameter;
// Verifier is the PKCE code verifier for providers that need one.
type StateClaims struct {
	jwt.RegisteredClaims
	Provider string `json:"prv"`
	Nonce    string `json:"nonce"`
	Verifier string `json:"pkce,omitempty"`
}

// GenerateStateToken signs claims for provider with HS256.
func GenerateStateToken(provider, nonce, verifier string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Provider: provider,
		Nonce:    nonce,
		Verifier: verifier,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseStateToken validates the signature and expiry of a state token.
// Expired tokens yield common.ErrTokenExpired, anything else that fails
// yields an error wrapping common.ErrInvalidToken.
func ParseStateToken(tokenString string, secretKey []byte) (*StateClaims, error) {
	claims := &StateClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

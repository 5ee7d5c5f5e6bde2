package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/passgate/internal/common"
)

func TestGenerateAndParseState_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateStateToken("twitter", "nonce-1", "verifier-1", secret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateStateToken error: %v", err)
	}

	claims, err := ParseStateToken(tok, secret)
	if err != nil {
		t.Fatalf("ParseStateToken error: %v", err)
	}
	if claims.Provider != "twitter" || claims.Nonce != "nonce-1" || claims.Verifier != "verifier-1" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestParseState_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")
	tok, err := GenerateStateToken("facebook", "n", "", secret, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateStateToken error: %v", err)
	}

	_, err = ParseStateToken(tok, secret)
	if !errors.Is(err, common.ErrTokenExpired) {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestParseState_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateStateToken("facebook", "n", "", []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateStateToken error: %v", err)
	}

	_, err = ParseStateToken(tok, []byte("wrong-secret"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestParseState_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := ParseStateToken("not.a.jwt", []byte("k"))
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

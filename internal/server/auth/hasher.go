// Package auth holds the credential primitives used by the strategies:
// salted password hashing and the signed OAuth state token.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/passgate/internal/common"
)

// Hash algorithm names accepted by NewHasher.
const (
	HashHMACSHA256 = "hmac-sha256"
	HashArgon2id   = "argon2id"
)

// Hasher is a pure, deterministic salted hash. The stored form of a password
// is salt ‖ Hash(password, salt) where the salt is exactly SALT_LEN
// characters long.
type Hasher interface {
	Hash(password, salt string) string
}

// HMACHasher computes hex(HMAC-SHA256(key=salt, password)), the layout used
// by deployd user collections, so existing password fields keep verifying.
type HMACHasher struct{}

func (HMACHasher) Hash(password, salt string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(password))
	return hex.EncodeToString(mac.Sum(nil))
}

// Argon2Hasher derives an argon2id key from the password and salt and
// returns it base64 encoded.
type Argon2Hasher struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
}

// NewArgon2Hasher returns an Argon2Hasher with OWASP-recommended parameters.
func NewArgon2Hasher() *Argon2Hasher {
	return &Argon2Hasher{Time: 1, Memory: 64 * 1024, Threads: 4, KeyLen: 32}
}

func (h *Argon2Hasher) Hash(password, salt string) string {
	key := argon2.IDKey([]byte(password), []byte(salt), h.Time, h.Memory, h.Threads, h.KeyLen)
	return base64.RawStdEncoding.EncodeToString(key)
}

// NewHasher returns the hasher registered under name.
func NewHasher(name string) (Hasher, error) {
	switch name {
	case "", HashHMACSHA256:
		return HMACHasher{}, nil
	case HashArgon2id:
		return NewArgon2Hasher(), nil
	default:
		return nil, fmt.Errorf("%w: unknown password hash %q", common.ErrInvalidConfig, name)
	}
}

// VerifySalted splits stored at saltLen, rehashes candidate with the salt
// and compares the results in constant time. A stored value that is not
// longer than saltLen never verifies.
func VerifySalted(h Hasher, saltLen int, stored, candidate string) bool {
	if saltLen <= 0 || len(stored) <= saltLen {
		return false
	}
	salt, hash := stored[:saltLen], stored[saltLen:]
	return subtle.ConstantTimeCompare([]byte(hash), []byte(h.Hash(candidate, salt))) == 1
}

// NewSaltedPassword draws a random salt of saltLen characters and returns
// the stored form of password.
func NewSaltedPassword(h Hasher, saltLen int, password string) (string, error) {
	salt, err := common.MakeRandString(saltLen)
	if err != nil {
		return "", err
	}
	return salt + h.Hash(password, salt), nil
}

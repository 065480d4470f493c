package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher turns plaintext passwords into one-way digests
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// BcryptHasher implements Hasher with bcrypt
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher with the given cost, clamped to bcrypt's range
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return BcryptHasher{Cost: cost}
}

func (h BcryptHasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", &ValidationError{Field: "jelszo", Message: "password is longer than 72 bytes"}
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

func (h BcryptHasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

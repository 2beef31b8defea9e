package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MaxSecretBytes is the bcrypt input limit. Longer secrets are truncated, so
// two secrets sharing their first 72 bytes verify as the same secret.
const MaxSecretBytes = 72

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = bcrypt.DefaultCost

const dummySecret = "timing-equaliser-not-a-real-account"

// Hasher hashes and verifies secrets with bcrypt at a fixed cost.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher returns a Hasher for the given cost. Zero selects DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d outside [%d,%d]", ErrInvalidConfig, cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummySecret), cost)
	if err != nil {
		return nil, fmt.Errorf("security: prepare dummy hash: %w", err)
	}
	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Cost returns the configured work factor.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns the salted bcrypt hash of secret.
func (h *Hasher) Hash(secret []byte) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(truncate(secret), h.cost)
	if err != nil {
		return "", fmt.Errorf("security: hash secret: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether secret matches hash. The comparison is constant time
// with respect to the secret; malformed hashes never match.
func (h *Hasher) Verify(secret []byte, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), truncate(secret))
	if err == nil {
		return true
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		// Malformed hash: pay for one comparison like a mismatch would.
		_ = bcrypt.CompareHashAndPassword(h.dummy, truncate(secret))
	}
	return false
}

// VerifyDummy performs a full comparison against an internal hash and always
// reports false. Used when no principal exists for the supplied username.
func (h *Hasher) VerifyDummy(secret []byte) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, truncate(secret))
	return false
}

func truncate(secret []byte) []byte {
	if len(secret) > MaxSecretBytes {
		return secret[:MaxSecretBytes]
	}
	return secret
}

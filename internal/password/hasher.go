// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"golang.org/x/crypto/bcrypt"
)

// MaxBytes is the longest password bcrypt accepts.
const MaxBytes = 72

// Hasher turns plaintext passwords into bcrypt digests and checks them.
// It is safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher returns a bcrypt hasher using cost, clamped to the valid range.
// A zero cost selects bcrypt.DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost {
		cost = bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted digest; two calls with the same input never match.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches digest. Malformed digests and
// passwords longer than MaxBytes never match.
func (h *Hasher) Verify(plaintext, digest string) bool {
	if len(plaintext) > MaxBytes {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// Cost returns the bcrypt cost used for new digests.
func (h *Hasher) Cost() int {
	return h.cost
}

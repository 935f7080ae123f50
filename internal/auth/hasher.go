package auth

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// PasswordHasher hashes and verifies passwords with bcrypt. The adaptive cost
// makes each call CPU-expensive, so all hashing work passes through a
// weighted semaphore: a burst of registrations or login attempts saturates
// the hasher, not the request-dispatch path.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewPasswordHasher creates a hasher with the given bcrypt cost and a bound
// on concurrently executing hash operations.
func NewPasswordHasher(cost, maxConcurrent int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &PasswordHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Hash derives a salted digest from the plaintext. Two calls with the same
// plaintext yield different digests (bcrypt embeds a fresh random salt).
// It fails only on internal errors, never because of password content.
func (h *PasswordHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire hashing slot: %w", err)
	}
	defer h.sem.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether the plaintext matches the stored digest. It returns
// false for any mismatch, including malformed digests, and never errors.
// bcrypt's comparison is constant-time over the derived key.
func (h *PasswordHasher) Verify(ctx context.Context, plaintext, digest string) bool {
	if plaintext == "" || digest == "" {
		return false
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

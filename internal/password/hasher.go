// Package password hashes and verifies passwords and recovery answers.
package password

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 10

// MaxLength is the longest plaintext in bytes bcrypt accepts.
const MaxLength = 72

// ErrTooLong is returned for plaintexts longer than MaxLength bytes.
var ErrTooLong = fmt.Errorf("plaintext exceeds %d bytes", MaxLength)

// Hasher is a bcrypt based one-way hasher. Hashing is CPU bound, so the
// number of concurrent Hash and Verify calls is capped by a weighted
// semaphore; callers waiting for a slot honor ctx cancellation.
type Hasher struct {
	cost  int
	slots *semaphore.Weighted
}

// NewHasher creates a Hasher with the given bcrypt cost and concurrency
// limit. workers <= 0 means GOMAXPROCS.
func NewHasher(cost int, workers int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	return &Hasher{
		cost:  cost,
		slots: semaphore.NewWeighted(int64(workers)),
	}, nil
}

// Hash returns a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if len(plaintext) > MaxLength {
		return "", ErrTooLong
	}
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("acquire hashing slot: %w", err)
	}
	defer h.slots.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash: %w", err)
	}

	return string(hash), nil
}

// Verify reports whether plaintext matches hash. A mismatch is not an
// error; a malformed hash or a plaintext over MaxLength is.
func (h *Hasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	if len(plaintext) > MaxLength {
		return false, ErrTooLong
	}
	if err := h.slots.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("acquire hashing slot: %w", err)
	}
	defer h.slots.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to verify hash: %w", err)
	}

	return true, nil
}

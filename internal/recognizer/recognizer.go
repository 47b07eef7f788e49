package recognizer

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"facemark/internal/directory"
)

// Frame is an opaque encoded-image payload, typically a base64 data URL
// captured by the caller's camera.
type Frame string

// Match is a resolved identity with the recognizer's confidence.
type Match struct {
	StudentID  string
	Similarity float64
}

// ErrNoMatch is the explicit no-match outcome. Callers surface it as an
// advisory failure; the ledger never sees unresolved frames.
var ErrNoMatch = errors.New("no matching student found")

// Recognizer resolves a captured frame to a registered student. The
// attendance engine trusts the result and performs no biometric work of
// its own, so any implementation can be substituted without touching the
// ledger.
type Recognizer interface {
	Identify(ctx context.Context, frame Frame, pool []directory.Student) (Match, error)
}

// Simulated picks uniformly among the pool behind a pass/fail gate, the
// demo stand-in for a real recognizer.
type Simulated struct {
	mu       sync.Mutex
	rng      *rand.Rand
	passRate float64
}

// NewSimulated creates a simulated recognizer that matches with the
// given probability. A non-positive rate always misses, >= 1 always
// matches when students exist.
func NewSimulated(passRate float64, seed int64) *Simulated {
	return &Simulated{
		rng:      rand.New(rand.NewSource(seed)),
		passRate: passRate,
	}
}

// Identify returns a random student from the pool, or ErrNoMatch when
// the pool is empty or the gate fails.
func (s *Simulated) Identify(_ context.Context, _ Frame, pool []directory.Student) (Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(pool) == 0 {
		return Match{}, ErrNoMatch
	}
	if s.rng.Float64() >= s.passRate {
		return Match{}, ErrNoMatch
	}
	picked := pool[s.rng.Intn(len(pool))]
	return Match{StudentID: picked.ID, Similarity: 0.80 + 0.19*s.rng.Float64()}, nil
}

package diagnostics

import (
	"math"
	"math/rand"
	"sync"
)

// Distance estimator constants.
const (
	BaseDistance    = 8000
	DistanceUnit    = "km"
	bonusThreshold  = 0.7
	bonusRate       = 0.5
	penaltyExponent = 1.2
	jitterMin       = 0.95
	jitterSpan      = 0.10
)

// RandomSource supplies uniform values in [0, 1) for distance jitter.
// *rand.Rand satisfies it, but is not safe for concurrent use; share a
// LockedSource instead.
type RandomSource interface {
	Float64() float64
}

// NewSource returns an unsynchronised generator for use by a single goroutine.
func NewSource(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// LockedSource is a seeded generator guarded by a mutex.
type LockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewLockedSource creates a LockedSource seeded with seed.
func NewLockedSource(seed int64) *LockedSource {
	return &LockedSource{rnd: rand.New(rand.NewSource(seed))}
}

// Reseed restarts the sequence from seed.
func (l *LockedSource) Reseed(seed int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rnd.Seed(seed)
}

// Float64 returns the next value from the underlying generator.
func (l *LockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.Float64()
}

// Jitter draws a multiplicative factor in [0.95, 1.05) from src.
// A nil src yields the neutral factor 1.0.
func Jitter(src RandomSource) float64 {
	if src == nil {
		return 1.0
	}
	return jitterMin + jitterSpan*src.Float64()
}

// BaseEstimate converts a score into remaining distance before jitter.
// Scores are clamped to [0, 1].
func BaseEstimate(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	score = clamp01(score)
	if score >= bonusThreshold {
		return int(BaseDistance * (1 + (score-bonusThreshold)*bonusRate))
	}
	return int(BaseDistance * math.Pow(score, penaltyExponent))
}

// EstimateDistance converts a health score into an estimated remaining
// distance, applying jitter from src and truncating toward zero.
func EstimateDistance(score float64, src RandomSource) int {
	d := int(float64(BaseEstimate(score)) * Jitter(src))
	if d < 0 {
		return 0
	}
	return d
}

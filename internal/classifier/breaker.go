package classifier

import (
	"log/slog"
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// breaker fast-fails calls after maxFailures consecutive errors. Once
// resetTimeout has passed it admits a single trial call; every other caller
// is refused until that call reports back.
type breaker struct {
	maxFailures  int
	resetTimeout time.Duration
	log          *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	state    breakerState
	failures int
	openedAt time.Time
}

func newBreaker(maxFailures int, resetTimeout time.Duration, log *slog.Logger) *breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &breaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		log:          log,
		now:          time.Now,
	}
}

// allow reports whether a call may proceed. A true result must be followed
// by exactly one of success, failure or release.
func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case stateClosed:
		return true
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.resetTimeout {
			return false
		}
		b.state = stateHalfOpen
		b.log.Info("breaker_half_open", "failures", b.failures)
		return true
	default:
		return false
	}
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != stateClosed {
		b.log.Info("breaker_closed")
	}
	b.state = stateClosed
	b.failures = 0
}

func (b *breaker) failure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.log.Warn("classifier_failure", "failures", b.failures, "err", err)
	if b.state == stateHalfOpen || b.failures >= b.maxFailures {
		if b.state != stateOpen {
			b.log.Error("breaker_opened", "max_failures", b.maxFailures, "from", b.state.String())
		}
		b.state = stateOpen
		b.openedAt = b.now()
	}
}

// release ends an admitted call that said nothing about the service, such
// as one abandoned by its caller. A pending trial goes back to open so the
// next caller after it may try again.
func (b *breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == stateHalfOpen {
		b.state = stateOpen
	}
}

func (b *breaker) current() breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

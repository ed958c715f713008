// Package circuit implements a small circuit breaker used around external
// provider calls (Firecrawl, LLM APIs). An open breaker fails fast so the
// enhancement chain can move on to its next provider instead of waiting out
// another timeout.
package circuit

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker rejects a call without executing it.
var ErrOpen = errors.New("circuit breaker open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// Breaker tracks consecutive failures for one named provider.
type Breaker struct {
	mu           sync.Mutex
	name         string
	maxFailures  int
	resetTimeout time.Duration

	st       state
	failures int
	openedAt time.Time
}

// New creates a breaker that opens after maxFailures consecutive failures and
// allows a probe call after resetTimeout.
func New(name string, maxFailures int, resetTimeout time.Duration) *Breaker {
	if maxFailures <= 0 {
		maxFailures = 3
	}
	if resetTimeout <= 0 {
		resetTimeout = 30 * time.Second
	}
	return &Breaker{name: name, maxFailures: maxFailures, resetTimeout: resetTimeout}
}

// Name returns the provider name this breaker guards.
func (b *Breaker) Name() string { return b.name }

// Execute runs fn unless the breaker is open, recording the outcome.
func (b *Breaker) Execute(fn func() error) error {
	if !b.allow() {
		return ErrOpen
	}
	err := fn()
	b.record(err == nil)
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st {
	case stateClosed:
		return true
	case stateOpen:
		if time.Since(b.openedAt) >= b.resetTimeout {
			b.st = stateHalfOpen
			return true
		}
		return false
	default: // half-open: allow the single probe in flight
		return true
	}
}

func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		b.st = stateClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.st == stateHalfOpen || b.failures >= b.maxFailures {
		b.st = stateOpen
		b.openedAt = time.Now()
	}
}

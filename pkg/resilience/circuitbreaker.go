// Package resilience provides the breaker that guards the query cache and
// the exponential-backoff retry used for Redis connects and Kafka publishes.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned without calling the guarded function.
var ErrCircuitOpen = errors.New("circuit open")

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a Breaker. Zero values take the defaults below.
type BreakerConfig struct {
	// FailureThreshold consecutive failures trip the breaker open.
	FailureThreshold int
	// Cooldown is how long an open breaker rejects calls before it lets
	// trial calls through.
	Cooldown time.Duration
	// HalfOpenTrials bounds the calls admitted while half-open.
	HalfOpenTrials int
	// IsFailure decides which errors count against the backend. The default
	// ignores context.Canceled.
	IsFailure func(error) bool
	// OnStateChange runs with the breaker's lock held and must not call back
	// into it.
	OnStateChange func(name string, from, to State)
	Now           func() time.Time
}

const (
	defaultFailureThreshold = 5
	defaultCooldown         = 30 * time.Second
	defaultHalfOpenTrials   = 1
)

func countsAsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// BreakerStats is a point-in-time view for stats endpoints.
type BreakerStats struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Rejected            uint64    `json:"rejected"`
	OpenedAt            time.Time `json:"opened_at,omitzero"`
}

// Breaker stops calling a failing backend for a cooldown, then admits a
// bounded number of trial calls and closes again on the first success.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	trials   int
	rejected uint64
}

func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}
	if cfg.HalfOpenTrials <= 0 {
		cfg.HalfOpenTrials = defaultHalfOpenTrials
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = countsAsFailure
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Breaker{
		name:   name,
		cfg:    cfg,
		logger: slog.Default().With("component", "breaker", "breaker", name),
	}
}

func (b *Breaker) Name() string { return b.name }

// Do runs fn when the breaker admits it and records the outcome. A rejected
// call returns an error wrapping ErrCircuitOpen.
func (b *Breaker) Do(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	err := fn()
	b.Record(err)
	return err
}

// Allow admits or rejects one call. Every admitted call must be followed by
// exactly one Record.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		wait := b.cfg.Cooldown - b.cfg.Now().Sub(b.openedAt)
		if wait > 0 {
			b.rejected++
			return fmt.Errorf("%w: %s for another %v", ErrCircuitOpen, b.name, wait.Round(time.Millisecond))
		}
		b.setState(StateHalfOpen)
		b.trials = 1
		b.logger.Info("cooldown elapsed, trying backend")
	case StateHalfOpen:
		if b.trials >= b.cfg.HalfOpenTrials {
			b.rejected++
			return fmt.Errorf("%w: %s awaiting trial call", ErrCircuitOpen, b.name)
		}
		b.trials++
	}
	return nil
}

// Record reports the outcome of an admitted call.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.cfg.IsFailure(err) {
		if b.state == StateHalfOpen {
			b.logger.Info("backend recovered")
			b.setState(StateClosed)
		}
		b.failures = 0
		return
	}
	b.failures++
	switch {
	case b.state == StateHalfOpen:
		b.trip()
		b.logger.Warn("trial call failed, reopening", "error", err)
	case b.state == StateClosed && b.failures >= b.cfg.FailureThreshold:
		b.trip()
		b.logger.Warn("tripped open", "consecutive_failures", b.failures, "cooldown", b.cfg.Cooldown, "error", err)
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := BreakerStats{
		Name:                b.name,
		State:               b.state.String(),
		ConsecutiveFailures: b.failures,
		Rejected:            b.rejected,
	}
	if b.state != StateClosed {
		st.OpenedAt = b.openedAt
	}
	return st
}

// Reset closes the breaker and clears its failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.trials = 0
	b.setState(StateClosed)
}

func (b *Breaker) trip() {
	b.openedAt = b.cfg.Now()
	b.trials = 0
	b.setState(StateOpen)
}

func (b *Breaker) setState(to State) {
	from := b.state
	b.state = to
	if from != to && b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}

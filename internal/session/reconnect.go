package session

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/vitaminmoo/neuromenu/internal/menu"
)

// Reconnect delays.
const (
	InitialBackoff    = 1 * time.Second
	MaxBackoff        = 30 * time.Second
	BackoffMultiplier = 2.0
	JitterFactor      = 0.25
)

// Backoff calculates exponential backoff delays with jitter.
type Backoff struct {
	mu sync.Mutex

	current    time.Duration
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64
	attempts   int

	rng *rand.Rand
}

// BackoffConfig customizes a Backoff. Zero fields take the package defaults;
// a negative Jitter turns jitter off.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// NewBackoff creates a backoff calculator.
func NewBackoff(cfg BackoffConfig) *Backoff {
	if cfg.Initial <= 0 {
		cfg.Initial = InitialBackoff
	}
	if cfg.Max <= 0 {
		cfg.Max = MaxBackoff
	}
	if cfg.Multiplier <= 1 {
		cfg.Multiplier = BackoffMultiplier
	}
	switch {
	case cfg.Jitter == 0:
		cfg.Jitter = JitterFactor
	case cfg.Jitter < 0:
		cfg.Jitter = 0
	}
	return &Backoff{
		current:    cfg.Initial,
		initial:    cfg.Initial,
		max:        cfg.Max,
		multiplier: cfg.Multiplier,
		jitter:     cfg.Jitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next delay and advances the backoff.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	delay := b.current
	if b.jitter > 0 {
		delay += time.Duration(float64(b.current) * b.jitter * b.rng.Float64())
	}

	b.attempts++
	next := time.Duration(float64(b.current) * b.multiplier)
	if next > b.max {
		next = b.max
	}
	b.current = next
	return delay
}

// Reset returns to the initial delay. Call after a successful connection.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current = b.initial
	b.attempts = 0
}

// Attempts returns the number of delays handed out since the last reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// KeepConnected connects and reconnects after every lost link until ctx is
// done. It gives up early only when the transport itself is unavailable.
func (c *Controller) KeepConnected(ctx context.Context, b *Backoff) error {
	if b == nil {
		b = NewBackoff(BackoffConfig{})
	}
	for {
		err := c.Connect(ctx)
		switch {
		case err == nil, errors.Is(err, ErrAlreadyConnected):
			b.Reset()
			select {
			case <-c.SessionEnded():
			case <-ctx.Done():
				return ctx.Err()
			}
		case errors.Is(err, ErrTransportUnavailable), errors.Is(err, ErrStopped):
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := b.Next()
		c.logf(menu.SeverityInfo, "reconnecting in %s", delay.Round(100*time.Millisecond))
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

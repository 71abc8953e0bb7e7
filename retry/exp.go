// Package retry provides backoff sequences for repeated attempts
package retry

import (
	"context"
	"time"
)

// ExpConfig is used to configure exponential backoff
type ExpConfig struct {
	Min   time.Duration
	Max   time.Duration
	Scale float64
}

// Exponential contains the current state of the backoff logic
type Exponential struct {
	config  ExpConfig
	current time.Duration
}

// DefaultExpBackoffConfig is a suggested configuration
var DefaultExpBackoffConfig = ExpConfig{
	Min:   10 * time.Millisecond,
	Max:   1 * time.Minute,
	Scale: 2.0,
}

// NewExpBackoff creates new expBackoff
func NewExpBackoff(config ExpConfig) *Exponential {
	return &Exponential{
		config:  config,
		current: config.Min,
	}
}

// Backoff returns the duration to wait and updates the inner state
func (b *Exponential) Backoff() time.Duration {
	beforeScale := b.current
	b.current = time.Duration(float64(b.current) * b.config.Scale)
	if b.current > b.config.Max {
		b.current = b.config.Max
	}
	return beforeScale
}

// Reset resets the backoff state
func (b *Exponential) Reset() {
	b.current = b.config.Min
}

// Sleep waits for the next backoff delay or until the context is closed,
// whichever comes first. Returns the context error in the latter case.
func (b *Exponential) Sleep(ctx context.Context) error {
	t := time.NewTimer(b.Backoff())
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

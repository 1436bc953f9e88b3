// Package connector implements the Connector boundary (spec §6): the only
// surface that performs external I/O under an approved commitment. It
// wraps every outbound call in a circuit breaker plus bounded retry so a
// failing external system degrades to Denied(Internal) rather than
// hanging a worldline's serialized queue.
package connector

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/accordant-systems/accord/pkg/models"
)

// Receipt is the Connector's success result (spec §6 "ConnectorReceipt").
type Receipt struct {
	ExternalRef string
	ExecutedAt  time.Time
}

// Executor performs the side effect a single approved commitment carries.
// An implementation is free to call out to any external system; it is
// never handed runtime state beyond the commitment itself (spec §5
// "Ownership": connector adapters hold only read-only views).
type Executor interface {
	Execute(ctx context.Context, commitmentID models.ContentHash, decl models.CommitmentDeclaration) (Receipt, error)
}

// Connector wraps an Executor with a circuit breaker and retry policy, the
// same two-layer resilience shape as the teacher's Slack client wraps a
// bare HTTP call with a per-call timeout — generalized here to a breaker
// plus backoff since the Connector boundary, unlike a single Slack post,
// must not let one external system's outage back up every worldline's
// queue behind it.
type Connector struct {
	exec    Executor
	breaker *gobreaker.CircuitBreaker
	backoff func() backoff.BackOff
}

// Config tunes the breaker and retry policy. Zero values fall back to
// conservative defaults.
type Config struct {
	Name                string
	MaxRequests         uint32        // half-open trial requests before closing
	Interval            time.Duration // closed-state failure-count reset window
	Timeout             time.Duration // open-state duration before half-open
	ConsecutiveFailures uint32        // failures before tripping open
	MaxElapsedTime      time.Duration // total retry budget per Execute call
}

func New(exec Executor, cfg Config) *Connector {
	if cfg.Name == "" {
		cfg.Name = "connector"
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxElapsedTime == 0 {
		cfg.MaxElapsedTime = 10 * time.Second
	}

	breakerSettings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
	}

	return &Connector{
		exec:    exec,
		breaker: gobreaker.NewCircuitBreaker(breakerSettings),
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = cfg.MaxElapsedTime
			return b
		},
	}
}

// Execute runs the wrapped Executor through the circuit breaker, retrying
// transient (Retryable) failures with exponential backoff. A tripped
// breaker surfaces as KindInternalFailure; a RuntimeError from the
// executor (non-retryable, or the last one when retries run out) is
// returned with its own Kind; any other error is wrapped as
// KindInternalFailure.
func (c *Connector) Execute(ctx context.Context, commitmentID models.ContentHash, decl models.CommitmentDeclaration) (Receipt, error) {
	var receipt Receipt
	op := func() error {
		result, err := c.breaker.Execute(func() (interface{}, error) {
			return c.exec.Execute(ctx, commitmentID, decl)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(models.WrapRuntimeError(models.KindInternalFailure, "connector circuit open", err))
			}
			var rerr *models.RuntimeError
			if errors.As(err, &rerr) && !rerr.Retryable() {
				return backoff.Permanent(rerr)
			}
			return err
		}
		receipt = result.(Receipt)
		return nil
	}

	if err := backoff.Retry(op, backoff.WithContext(c.backoff(), ctx)); err != nil {
		var rerr *models.RuntimeError
		if errors.As(err, &rerr) {
			return Receipt{}, rerr
		}
		return Receipt{}, models.WrapRuntimeError(models.KindInternalFailure, "connector execution failed", err)
	}
	return receipt, nil
}

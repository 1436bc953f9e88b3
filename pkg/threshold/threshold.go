// Package threshold implements the Threshold Engine (C4): m-of-n,
// role-quorum, and single-signer co-signature commitments (spec §4.4).
package threshold

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/accordant-systems/accord/pkg/canonical"
	"github.com/accordant-systems/accord/pkg/journal"
	"github.com/accordant-systems/accord/pkg/metrics"
	"github.com/accordant-systems/accord/pkg/models"
)

// Store is the persistence port threshold commitments are kept in.
type Store interface {
	Put(c models.ThresholdCommitment) error
	Get(id models.ContentHash) (models.ThresholdCommitment, bool, error)
}

// Engine is the C4 component surface.
type Engine struct {
	mu      sync.Mutex
	store   Store
	journal *journal.Journal
	sf      singleflight.Group
	metrics *metrics.Registry
}

func New(store Store, j *journal.Journal) *Engine {
	return &Engine{store: store, journal: j}
}

// WithMetrics attaches the collector Sign records co-signature collection
// time against once a commitment reaches quorum. Returns the Engine for
// chaining at construction time.
func (e *Engine) WithMetrics(m *metrics.Registry) *Engine {
	e.metrics = m
	return e
}

// Create opens a new ThresholdCommitment awaiting signatures. Its id is
// content-addressed over description, policy, and creation time; because
// the creation time is part of the hash, repeated Create calls with the
// same description and policy open separate commitments.
func (e *Engine) Create(description string, policy models.ThresholdPolicy, deadline *time.Time, value *int64) (models.ContentHash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c := models.ThresholdCommitment{
		ActionDescription: description,
		Policy:            policy,
		Deadline:          deadline,
		Value:             value,
		State:             models.ThresholdCollecting,
		CreatedAt:         time.Now(),
	}
	c.ID = hashCommitment(c)

	if err := e.store.Put(c); err != nil {
		return models.ContentHash{}, fmt.Errorf("threshold: create: %w", err)
	}
	e.receipt(c, "threshold_created", description)
	return c.ID, nil
}

// Sign records a signature against an open commitment. Concurrent
// duplicate Sign calls from the same signer collapse onto one in-flight
// call through singleflight; calls from distinct signers are serialized by
// the engine mutex, so two signers racing on the satisfying signature
// can't both observe ThresholdMet and double-fire downstream effects.
func (e *Engine) Sign(id models.ContentHash, sig models.Signature) (models.SignResult, error) {
	v, err, _ := e.sf.Do(id.String()+"|"+string(sig.Signer), func() (interface{}, error) {
		return e.signLocked(id, sig)
	})
	if err != nil {
		return models.SignResult{}, err
	}
	return v.(models.SignResult), nil
}

func (e *Engine) signLocked(id models.ContentHash, sig models.Signature) (models.SignResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok, err := e.store.Get(id)
	if err != nil {
		return models.SignResult{}, fmt.Errorf("threshold: lookup %s: %w", id, err)
	}
	if !ok {
		return models.SignResult{}, models.NewRuntimeError(models.KindValidationFailure, fmt.Sprintf("unknown threshold commitment %s", id))
	}

	if c.State.Terminal() {
		return terminalResult(c), nil
	}

	// Lazy deadline check: a sign on an expired commitment transitions it
	// to Expired without recording the signature (spec §4.4 invariants).
	if c.Deadline != nil && time.Now().After(*c.Deadline) {
		c.State = models.ThresholdExpired
		if err := e.store.Put(c); err != nil {
			return models.SignResult{}, fmt.Errorf("threshold: persist expiration: %w", err)
		}
		e.receipt(c, "threshold_expired", "deadline passed on sign")
		return models.SignResult{Outcome: models.SignExpired}, nil
	}

	c.Signatures = append(c.Signatures, sig)
	count := len(distinctSignerCount(c.Signatures))

	if c.IsMet() {
		c.State = models.ThresholdSatisfied
		if err := e.store.Put(c); err != nil {
			return models.SignResult{}, fmt.Errorf("threshold: persist satisfaction: %w", err)
		}
		e.receipt(c, "threshold_satisfied", "policy satisfied")
		e.metrics.ObserveThresholdCollection(time.Since(c.CreatedAt))
		return models.SignResult{Outcome: models.SignThresholdMet, Count: count}, nil
	}

	if err := e.store.Put(c); err != nil {
		return models.SignResult{}, fmt.Errorf("threshold: persist signature: %w", err)
	}
	e.receipt(c, "threshold_signed", fmt.Sprintf("signature %d accepted", count))
	return models.SignResult{Outcome: models.SignAccepted, Count: count}, nil
}

func distinctSignerCount(sigs []models.Signature) map[models.WorldlineId]bool {
	out := make(map[models.WorldlineId]bool, len(sigs))
	for _, s := range sigs {
		out[s.Signer] = true
	}
	return out
}

func terminalResult(c models.ThresholdCommitment) models.SignResult {
	switch c.State {
	case models.ThresholdSatisfied:
		return models.SignResult{Outcome: models.SignAlreadySatisfied, Count: len(distinctSignerCount(c.Signatures))}
	case models.ThresholdExpired:
		return models.SignResult{Outcome: models.SignExpired}
	default:
		return models.SignResult{Outcome: models.SignRejected}
	}
}

// Reject transitions an open commitment to Rejected.
func (e *Engine) Reject(id models.ContentHash, reason string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, ok, err := e.store.Get(id)
	if err != nil {
		return fmt.Errorf("threshold: lookup %s: %w", id, err)
	}
	if !ok {
		return models.NewRuntimeError(models.KindValidationFailure, fmt.Sprintf("unknown threshold commitment %s", id))
	}
	if c.State.Terminal() {
		return nil
	}
	c.State = models.ThresholdRejected
	c.RejectedReason = reason
	if err := e.store.Put(c); err != nil {
		return fmt.Errorf("threshold: persist rejection: %w", err)
	}
	e.receipt(c, "threshold_rejected", reason)
	return nil
}

// ExpireStale scans the given candidate ids and transitions any
// past-deadline, non-terminal commitment to Expired, returning the ids
// that were newly expired.
func (e *Engine) ExpireStale(candidateIDs []models.ContentHash) ([]models.ContentHash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	var expired []models.ContentHash
	for _, id := range candidateIDs {
		c, ok, err := e.store.Get(id)
		if err != nil {
			return expired, fmt.Errorf("threshold: lookup %s: %w", id, err)
		}
		if !ok || c.State.Terminal() || c.Deadline == nil || !now.After(*c.Deadline) {
			continue
		}
		c.State = models.ThresholdExpired
		if err := e.store.Put(c); err != nil {
			return expired, fmt.Errorf("threshold: persist expiration: %w", err)
		}
		e.receipt(c, "threshold_expired", "swept by expire_stale")
		expired = append(expired, id)
	}
	return expired, nil
}

func (e *Engine) receipt(c models.ThresholdCommitment, stage, message string) {
	if e.journal == nil {
		return
	}
	_, _ = e.journal.Append("", stage, true, message, nil, map[string]string{"threshold_id": c.ID.String()})
}

func hashCommitment(c models.ThresholdCommitment) models.ContentHash {
	enc := canonical.NewEncoder()
	enc.String("description", c.ActionDescription)
	enc.String("policy_kind", string(c.Policy.Kind))
	enc.Int64("policy_m", int64(c.Policy.M))
	enc.Int64("policy_n", int64(c.Policy.N))
	enc.Int64("created_at_unix_nano", c.CreatedAt.UnixNano())
	return models.ContentHash(canonical.SumEncoder(enc))
}

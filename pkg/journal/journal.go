// Package journal implements the hash-chained, append-only audit log that
// every other component records its consequential actions into (spec §3,
// §4.7).
package journal

import (
	"fmt"
	"sync"
	"time"

	"github.com/accordant-systems/accord/pkg/canonical"
	"github.com/accordant-systems/accord/pkg/metrics"
	"github.com/accordant-systems/accord/pkg/models"
)

// Store is the persistence port a Journal is built on. MemoryStore in this
// package backs tests and single-process deployments; a Postgres-backed
// one would append to an ent-managed table with a unique constraint on
// Sequence.
type Store interface {
	Append(entry models.JournalEntry) error
	Latest() (models.JournalEntry, bool, error)
	List(from, to uint64) ([]models.JournalEntry, error)
}

// Journal appends entries to Store under a single writer lock, chaining
// each entry's Hash from the previous entry's Hash so any gap or
// substitution breaks the chain (spec §4.7 "Hash chain verification").
type Journal struct {
	mu      sync.Mutex
	store   Store
	metrics *metrics.Registry
}

func New(store Store) *Journal {
	return &Journal{store: store}
}

// WithMetrics attaches the collector Append increments on every
// successful write. Returns the Journal for chaining at construction
// time.
func (j *Journal) WithMetrics(m *metrics.Registry) *Journal {
	j.metrics = m
	return j
}

// Append appends one record. Sequence, PreviousHash and Hash are computed
// here; the caller supplies only the semantic fields.
func (j *Journal) Append(actor models.WorldlineId, stage string, success bool, message string, commitmentID *models.ContentHash, payload map[string]string) (models.JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	prevHash := models.ZeroHash
	seq := uint64(1)
	if latest, ok, err := j.store.Latest(); err != nil {
		return models.JournalEntry{}, fmt.Errorf("journal: read latest: %w", err)
	} else if ok {
		prevHash = latest.Hash
		seq = latest.Sequence + 1
	}

	entry := models.JournalEntry{
		Sequence:     seq,
		Timestamp:    time.Now(),
		Actor:        actor,
		Stage:        stage,
		Success:      success,
		Message:      message,
		CommitmentID: commitmentID,
		Payload:      payload,
		PreviousHash: prevHash,
	}
	entry.Hash = models.ContentHash(hashEntry(entry))

	if err := j.store.Append(entry); err != nil {
		return models.JournalEntry{}, fmt.Errorf("journal: append: %w", err)
	}
	j.metrics.RecordJournalAppend()
	return entry, nil
}

// LatestHash returns the tip of the chain, or the zero hash if the journal
// is empty.
func (j *Journal) LatestHash() (models.ContentHash, error) {
	latest, ok, err := j.store.Latest()
	if err != nil {
		return models.ContentHash{}, err
	}
	if !ok {
		return models.ZeroHash, nil
	}
	return latest.Hash, nil
}

// List returns entries with sequence in [from, to].
func (j *Journal) List(from, to uint64) ([]models.JournalEntry, error) {
	return j.store.List(from, to)
}

// ValidateChain recomputes every entry's hash from its fields and checks
// PreviousHash linkage and strictly increasing sequence numbers.
func ValidateChain(entries []models.JournalEntry) error {
	prev := models.ZeroHash
	var prevSeq uint64
	for i, e := range entries {
		if i > 0 && e.Sequence != prevSeq+1 {
			return fmt.Errorf("journal: sequence gap at entry %d: expected %d, got %d", i, prevSeq+1, e.Sequence)
		}
		if e.PreviousHash != prev {
			return fmt.Errorf("journal: broken chain at sequence %d: previous_hash mismatch", e.Sequence)
		}
		want := models.ContentHash(hashEntry(models.JournalEntry{
			Sequence:     e.Sequence,
			Timestamp:    e.Timestamp,
			Actor:        e.Actor,
			Stage:        e.Stage,
			Success:      e.Success,
			Message:      e.Message,
			CommitmentID: e.CommitmentID,
			Payload:      e.Payload,
			PreviousHash: e.PreviousHash,
		}))
		if want != e.Hash {
			return fmt.Errorf("journal: tampered entry at sequence %d: hash mismatch", e.Sequence)
		}
		prev = e.Hash
		prevSeq = e.Sequence
	}
	return nil
}

func hashEntry(e models.JournalEntry) canonical.Hash256 {
	enc := canonical.NewEncoder()
	enc.Uint64("sequence", e.Sequence)
	enc.Int64("timestamp_unix_nano", e.Timestamp.UnixNano())
	enc.String("actor", string(e.Actor))
	enc.String("stage", e.Stage)
	enc.Bool("success", e.Success)
	enc.String("message", e.Message)
	if e.CommitmentID != nil {
		enc.String("commitment_id", e.CommitmentID.String())
	}
	enc.StringMap("payload", e.Payload)
	enc.RawBytes("previous_hash", e.PreviousHash[:])
	return canonical.SumEncoder(enc)
}

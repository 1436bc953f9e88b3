package journal

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accordant-systems/accord/pkg/models"
)

type memStore struct {
	mu      sync.Mutex
	entries []models.JournalEntry
}

func (m *memStore) Append(e models.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) Latest() (models.JournalEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return models.JournalEntry{}, false, nil
	}
	return m.entries[len(m.entries)-1], true, nil
}

func (m *memStore) List(from, to uint64) ([]models.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.JournalEntry
	for _, e := range m.entries {
		if e.Sequence >= from && e.Sequence <= to {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestAppendChainsHashes(t *testing.T) {
	store := &memStore{}
	j := New(store)

	e1, err := j.Append("wl-a", "graph_append", true, "node appended", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ZeroHash, e1.PreviousHash)
	assert.Equal(t, uint64(1), e1.Sequence)

	e2, err := j.Append("wl-a", "threshold_signed", true, "signed", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, e1.Hash, e2.PreviousHash)
	assert.Equal(t, uint64(2), e2.Sequence)

	entries, err := j.List(1, 2)
	require.NoError(t, err)
	require.NoError(t, ValidateChain(entries))
}

func TestValidateChainDetectsTamper(t *testing.T) {
	store := &memStore{}
	j := New(store)

	_, err := j.Append("wl-a", "graph_append", true, "node appended", nil, nil)
	require.NoError(t, err)
	_, err = j.Append("wl-a", "threshold_signed", true, "signed", nil, nil)
	require.NoError(t, err)

	entries, err := j.List(1, 2)
	require.NoError(t, err)
	entries[0].Message = "tampered"

	err = ValidateChain(entries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tampered entry")
}

func TestValidateChainDetectsGap(t *testing.T) {
	store := &memStore{}
	j := New(store)
	_, err := j.Append("wl-a", "graph_append", true, "1", nil, nil)
	require.NoError(t, err)
	_, err = j.Append("wl-a", "graph_append", true, "2", nil, nil)
	require.NoError(t, err)
	_, err = j.Append("wl-a", "graph_append", true, "3", nil, nil)
	require.NoError(t, err)

	entries, err := j.List(1, 3)
	require.NoError(t, err)
	spliced := []models.JournalEntry{entries[0], entries[2]}

	err = ValidateChain(spliced)
	require.Error(t, err)
	assert.Contains(t, err.Error(), fmt.Sprintf("sequence gap"))
}

func TestLatestHashEmptyJournal(t *testing.T) {
	j := New(&memStore{})
	h, err := j.LatestHash()
	require.NoError(t, err)
	assert.Equal(t, models.ZeroHash, h)
}

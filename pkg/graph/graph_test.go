package graph

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accordant-systems/accord/pkg/models"
)

func TestAppendIntentNoParents(t *testing.T) {
	g := New(NewMemoryStore())
	id, err := g.Append("wl-1", models.NodeContent{
		Kind:   models.NodeIntent,
		Intent: &models.IntentContent{Description: "do a thing", Confidence: 0.9},
	}, nil, time.Now(), models.TierT0)
	require.NoError(t, err)
	assert.False(t, id.IsZero())
}

func TestAppendNonIntentRequiresParent(t *testing.T) {
	g := New(NewMemoryStore())
	_, err := g.Append("wl-1", models.NodeContent{
		Kind:      models.NodeInference,
		Inference: &models.InferenceContent{Summary: "x"},
	}, nil, time.Now(), models.TierT0)
	require.Error(t, err)
}

func TestAppendChainExtendsHead(t *testing.T) {
	g := New(NewMemoryStore())
	t0 := time.Now()

	intentID, err := g.Append("wl-1", models.NodeContent{
		Kind:   models.NodeIntent,
		Intent: &models.IntentContent{Description: "do a thing"},
	}, nil, t0, models.TierT0)
	require.NoError(t, err)

	infID, err := g.Append("wl-1", models.NodeContent{
		Kind:      models.NodeInference,
		Inference: &models.InferenceContent{Summary: "plan"},
	}, []models.ContentHash{intentID}, t0.Add(time.Second), models.TierT0)
	require.NoError(t, err)
	assert.False(t, infID.IsZero())

	heads, err := g.ChainsFor("wl-1")
	require.NoError(t, err)
	assert.Equal(t, []models.ContentHash{infID}, heads)
}

func TestAppendRejectsOrphan(t *testing.T) {
	g := New(NewMemoryStore())
	t0 := time.Now()

	intentID, err := g.Append("wl-1", models.NodeContent{
		Kind:   models.NodeIntent,
		Intent: &models.IntentContent{Description: "a"},
	}, nil, t0, models.TierT0)
	require.NoError(t, err)

	_, err = g.Append("wl-1", models.NodeContent{
		Kind:      models.NodeInference,
		Inference: &models.InferenceContent{Summary: "plan"},
	}, []models.ContentHash{intentID}, t0.Add(time.Second), models.TierT0)
	require.NoError(t, err)

	// Now try to attach a Delta directly off the already-superseded Intent
	// head instead of the current Inference head: rejected as an orphan.
	_, err = g.Append("wl-1", models.NodeContent{
		Kind:  models.NodeDelta,
		Delta: &models.DeltaContent{Description: "d"},
	}, []models.ContentHash{intentID}, t0.Add(2*time.Second), models.TierT0)
	require.Error(t, err)
}

func TestAppendRejectsTierRegression(t *testing.T) {
	g := New(NewMemoryStore())
	t0 := time.Now()
	intentID, err := g.Append("wl-1", models.NodeContent{
		Kind:   models.NodeIntent,
		Intent: &models.IntentContent{Description: "a"},
	}, nil, t0, models.TierT2)
	require.NoError(t, err)

	_, err = g.Append("wl-1", models.NodeContent{
		Kind:      models.NodeInference,
		Inference: &models.InferenceContent{Summary: "b"},
	}, []models.ContentHash{intentID}, t0.Add(time.Second), models.TierT0)
	require.Error(t, err)
}

func TestValidateChainDetectsTamperedNode(t *testing.T) {
	store := NewMemoryStore()
	g := New(store)
	t0 := time.Now()

	intentID, err := g.Append("wl-1", models.NodeContent{
		Kind:   models.NodeIntent,
		Intent: &models.IntentContent{Description: "a"},
	}, nil, t0, models.TierT0)
	require.NoError(t, err)

	infID, err := g.Append("wl-1", models.NodeContent{
		Kind:      models.NodeInference,
		Inference: &models.InferenceContent{Summary: "b"},
	}, []models.ContentHash{intentID}, t0.Add(time.Second), models.TierT0)
	require.NoError(t, err)

	require.NoError(t, g.ValidateChain(infID))

	tampered := store.nodes[intentID]
	tampered.Content.Intent.Description = "tampered"
	store.nodes[intentID] = tampered

	err = g.ValidateChain(infID)
	require.Error(t, err)
}

func TestLatestStableRequiresCommitmentOrLater(t *testing.T) {
	g := New(NewMemoryStore())
	t0 := time.Now()
	_, err := g.Append("wl-1", models.NodeContent{
		Kind:   models.NodeIntent,
		Intent: &models.IntentContent{Description: "a"},
	}, nil, t0, models.TierT0)
	require.NoError(t, err)

	_, found, err := g.LatestStable("wl-1")
	require.NoError(t, err)
	assert.False(t, found, "an Intent-only chain has nothing stable yet")
}

package canonical

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accordant-systems/accord/pkg/models"
)

func intentNode() models.WllNode {
	return models.WllNode{
		WorldlineID: "wl-alpha",
		Timestamp:   time.Unix(1700000000, 0).UTC(),
		Content: models.NodeContent{
			Kind: models.NodeIntent,
			Intent: &models.IntentContent{
				Description: "transfer funds",
				Confidence:  0.92,
				Metadata:    map[string]string{"b": "2", "a": "1"},
			},
		},
	}
}

func TestHashNodeDeterministic(t *testing.T) {
	n1 := intentNode()
	n2 := intentNode()

	h1 := HashNode(n1)
	h2 := HashNode(n2)

	assert.Equal(t, h1, h2, "identical nodes must hash identically")
}

func TestHashNodeMetadataOrderIndependent(t *testing.T) {
	a := intentNode()
	b := intentNode()
	b.Content.Intent.Metadata = map[string]string{"a": "1", "b": "2"}

	require.Equal(t, HashNode(a), HashNode(b), "map field order must not affect the hash")
}

func TestHashNodeSensitiveToContent(t *testing.T) {
	a := intentNode()
	b := intentNode()
	b.Content.Intent.Description = "drain funds"

	assert.NotEqual(t, HashNode(a), HashNode(b))
}

func TestHashNodeSensitiveToParents(t *testing.T) {
	a := intentNode()
	b := intentNode()
	b.ParentIDs = []models.ContentHash{{1, 2, 3}}

	assert.NotEqual(t, HashNode(a), HashNode(b))
}

func TestHashNodeParentOrderMatters(t *testing.T) {
	a := intentNode()
	a.ParentIDs = []models.ContentHash{{1}, {2}}
	b := intentNode()
	b.ParentIDs = []models.ContentHash{{2}, {1}}

	assert.NotEqual(t, HashNode(a), HashNode(b), "parent order is causally meaningful and must not be normalized away")
}

func TestContentHashRoundTrip(t *testing.T) {
	n := intentNode()
	h := HashNode(n)

	parsed, err := models.ContentHashFromHex(h.String())
	require.NoError(t, err)
	assert.Equal(t, models.ContentHash(h), parsed)
}

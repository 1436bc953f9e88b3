package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accordant-systems/accord/pkg/models"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	hash := models.ContentHash{1, 2, 3, 4}
	sig := Sign(kp, hash)

	assert.True(t, Verify(kp.PublicKey, hash, sig))
}

func TestVerifyRejectsTamperedHash(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	hash := models.ContentHash{1, 2, 3}
	sig := Sign(kp, hash)

	tampered := hash
	tampered[0] = 0xFF

	assert.False(t, Verify(kp.PublicKey, tampered, sig))
}

func TestBindUnknownWorldline(t *testing.T) {
	reg := NewMemoryRegistry()
	rerr := Bind(reg, "wl-ghost", models.ContentHash{}, nil)
	require.NotNil(t, rerr)
	assert.Equal(t, models.KindAuthorizationFailure, rerr.Kind)
}

func TestBindRevokedWorldline(t *testing.T) {
	reg := NewMemoryRegistry()
	kp, err := Generate()
	require.NoError(t, err)

	id := Derive(models.IdentityMaterial{Kind: models.MaterialPublicKey, Bytes: kp.PublicKey})
	require.NoError(t, reg.Register(models.WorldlineRecord{
		ID:       id,
		Material: models.IdentityMaterial{Kind: models.MaterialPublicKey, Bytes: kp.PublicKey},
	}))
	require.NoError(t, reg.Revoke(id))

	hash := models.ContentHash{9, 9}
	sig := Sign(kp, hash)

	rerr := Bind(reg, id, hash, sig)
	require.NotNil(t, rerr)
	assert.Equal(t, models.KindAuthorizationFailure, rerr.Kind)
}

func TestBindValidSignature(t *testing.T) {
	reg := NewMemoryRegistry()
	kp, err := Generate()
	require.NoError(t, err)

	id := Derive(models.IdentityMaterial{Kind: models.MaterialPublicKey, Bytes: kp.PublicKey})
	require.NoError(t, reg.Register(models.WorldlineRecord{
		ID:       id,
		Material: models.IdentityMaterial{Kind: models.MaterialPublicKey, Bytes: kp.PublicKey},
	}))

	hash := models.ContentHash{5, 5, 5}
	sig := Sign(kp, hash)

	assert.Nil(t, Bind(reg, id, hash, sig))
}

func TestReincarnateIncrementsCounter(t *testing.T) {
	reg := NewMemoryRegistry()
	kp1, _ := Generate()
	id := Derive(models.IdentityMaterial{Kind: models.MaterialPublicKey, Bytes: kp1.PublicKey})
	require.NoError(t, reg.Register(models.WorldlineRecord{
		ID:       id,
		Material: models.IdentityMaterial{Kind: models.MaterialPublicKey, Bytes: kp1.PublicKey},
	}))

	kp2, _ := Generate()
	rec, err := reg.Reincarnate(id, models.IdentityMaterial{Kind: models.MaterialPublicKey, Bytes: kp2.PublicKey})
	require.NoError(t, err)
	assert.Equal(t, models.Incarnation(2), rec.Incarnation)
}

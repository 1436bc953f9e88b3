// Package identity derives and verifies the genesis-linked identity of
// Resonators (Worldlines) and signs/verifies the content hashes produced by
// pkg/canonical.
package identity

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/accordant-systems/accord/pkg/models"
)

// KeyPair is a Resonator's signing identity. PrivateKey is held only by the
// Resonator itself; the registry stores PublicKey inside IdentityMaterial.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// Generate creates a fresh Ed25519 keypair for a new Resonator incarnation.
func Generate() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("identity: generate keypair: %w", err)
	}
	return KeyPair{PublicKey: pub, PrivateKey: priv}, nil
}

// Derive computes a WorldlineId from identity material (spec §3
// "Worldline identity derived from cryptographic material, not role or
// position"). The id is stable across re-incarnation as long as the
// underlying material (genesis hash or public key) is unchanged.
func Derive(material models.IdentityMaterial) models.WorldlineId {
	sum := blake2b.Sum256(material.Bytes)
	return models.WorldlineId(fmt.Sprintf("wl_%x", sum[:16]))
}

// Sign produces a detached signature over a content hash.
func Sign(kp KeyPair, hash models.ContentHash) []byte {
	return ed25519.Sign(kp.PrivateKey, hash[:])
}

// Verify checks a detached signature against a content hash and the
// claimed public key. Callers must independently confirm pub belongs to
// the claimed WorldlineId via the registry before trusting this result.
func Verify(pub ed25519.PublicKey, hash models.ContentHash, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, hash[:], sig)
}

// Registry resolves a WorldlineId to its current, non-revoked identity
// record (spec §4.1 "Identity Binding": the Gate must reject declarations
// from unknown or revoked worldlines).
type Registry interface {
	Lookup(id models.WorldlineId) (models.WorldlineRecord, bool)
	Register(rec models.WorldlineRecord) error
	Revoke(id models.WorldlineId) error
	Reincarnate(id models.WorldlineId, material models.IdentityMaterial) (models.WorldlineRecord, error)
}

// Bind verifies that id is known, not revoked, and that sig over hash
// validates against its registered public key material. The Commitment
// Gate's Identity Binding stage does not call Bind: it checks only that
// the declarer is registered and not revoked, through Registry.Lookup.
func Bind(reg Registry, id models.WorldlineId, hash models.ContentHash, sig []byte) *models.RuntimeError {
	rec, ok := reg.Lookup(id)
	if !ok {
		return models.NewRuntimeError(models.KindAuthorizationFailure, "unknown worldline")
	}
	if rec.Revoked {
		return models.NewRuntimeError(models.KindAuthorizationFailure, "worldline revoked")
	}
	if rec.Material.Kind != models.MaterialPublicKey {
		return models.NewRuntimeError(models.KindAuthorizationFailure, "worldline identity material is not a public key")
	}
	if !Verify(ed25519.PublicKey(rec.Material.Bytes), hash, sig) {
		return models.NewRuntimeError(models.KindAuthorizationFailure, "signature verification failed")
	}
	return nil
}

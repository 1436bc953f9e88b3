package threshold

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/accordant-systems/accord/pkg/models"
)

func TestMofNSatisfaction(t *testing.T) {
	e := New(NewMemoryStore(), nil)
	id, err := e.Create("payout", models.ThresholdPolicy{Kind: models.PolicyMofN, M: 2, N: 3}, nil, nil)
	require.NoError(t, err)

	res, err := e.Sign(id, models.Signature{Signer: "wl-a", At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.SignAccepted, res.Outcome)
	assert.Equal(t, 1, res.Count)

	res, err = e.Sign(id, models.Signature{Signer: "wl-b", At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.SignThresholdMet, res.Outcome)
	assert.Equal(t, 2, res.Count)

	res, err = e.Sign(id, models.Signature{Signer: "wl-c", At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.SignAlreadySatisfied, res.Outcome)
}

func TestDuplicateSignerDoesNotDoubleCount(t *testing.T) {
	e := New(NewMemoryStore(), nil)
	id, err := e.Create("payout", models.ThresholdPolicy{Kind: models.PolicyMofN, M: 2, N: 3}, nil, nil)
	require.NoError(t, err)

	_, err = e.Sign(id, models.Signature{Signer: "wl-a", At: time.Now()})
	require.NoError(t, err)
	res, err := e.Sign(id, models.Signature{Signer: "wl-a", At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.SignAccepted, res.Outcome)
	assert.Equal(t, 1, res.Count, "the same signer signing twice must not count twice")
}

func TestRoleQuorumRequiresEachRole(t *testing.T) {
	e := New(NewMemoryStore(), nil)
	id, err := e.Create("deploy", models.ThresholdPolicy{Kind: models.PolicyRoleQuorum, Roles: []models.RoleId{"governor", "auditor"}}, nil, nil)
	require.NoError(t, err)

	governor := models.RoleId("governor")
	res, err := e.Sign(id, models.Signature{Signer: "wl-a", Role: &governor, At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.SignAccepted, res.Outcome)

	auditor := models.RoleId("auditor")
	res, err = e.Sign(id, models.Signature{Signer: "wl-b", Role: &auditor, At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.SignThresholdMet, res.Outcome)
}

func TestSignOnExpiredDeadlineDoesNotRecord(t *testing.T) {
	e := New(NewMemoryStore(), nil)
	past := time.Now().Add(-time.Hour)
	id, err := e.Create("payout", models.ThresholdPolicy{Kind: models.PolicySingleSigner}, &past, nil)
	require.NoError(t, err)

	res, err := e.Sign(id, models.Signature{Signer: "wl-a", At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.SignExpired, res.Outcome)

	res, err = e.Sign(id, models.Signature{Signer: "wl-a", At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.SignExpired, res.Outcome, "already-expired commitments stay terminal")
}

func TestRejectIsTerminal(t *testing.T) {
	e := New(NewMemoryStore(), nil)
	id, err := e.Create("payout", models.ThresholdPolicy{Kind: models.PolicySingleSigner}, nil, nil)
	require.NoError(t, err)

	require.NoError(t, e.Reject(id, "policy violation"))

	res, err := e.Sign(id, models.Signature{Signer: "wl-a", At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, models.SignRejected, res.Outcome)
}

func TestExpireStaleSweepsPastDeadline(t *testing.T) {
	e := New(NewMemoryStore(), nil)
	past := time.Now().Add(-time.Minute)
	id, err := e.Create("payout", models.ThresholdPolicy{Kind: models.PolicySingleSigner}, &past, nil)
	require.NoError(t, err)

	expired, err := e.ExpireStale([]models.ContentHash{id})
	require.NoError(t, err)
	assert.Equal(t, []models.ContentHash{id}, expired)
}

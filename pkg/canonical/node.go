package canonical

import (
	"fmt"
	"math"

	"github.com/accordant-systems/accord/pkg/models"
)

// HashNode computes the content address of a WllNode: BLAKE3-256 over the
// canonical encoding of every field except Signature (the signature covers
// the hash, not the other way around) and the node's own ID (which is
// derived from this hash).
func HashNode(n models.WllNode) models.ContentHash {
	e := NewEncoder()
	e.String("worldline", string(n.WorldlineID))
	e.StringSlice("parents", parentStrings(n.ParentIDs))
	e.Int64("timestamp_unix_nano", n.Timestamp.UnixNano())
	e.String("tier", n.GovernanceTier.String())
	encodeContent(e, n.Content)
	return models.ContentHash(SumEncoder(e))
}

func parentStrings(parents []models.ContentHash) []string {
	out := make([]string, len(parents))
	for i, p := range parents {
		out[i] = p.String()
	}
	return out
}

// encodeContent canonicalizes the tagged-union NodeContent by kind, so a
// changed field on a payload type a node doesn't carry never perturbs its
// hash.
func encodeContent(e *Encoder, c models.NodeContent) {
	e.String("kind", string(c.Kind))
	switch c.Kind {
	case models.NodeIntent:
		p := c.Intent
		e.String("description", p.Description)
		e.Uint64("confidence_bits", floatBits(p.Confidence))
		e.StringMap("metadata", p.Metadata)
	case models.NodeInference:
		p := c.Inference
		e.String("summary", p.Summary)
		e.Uint64("confidence_bits", floatBits(p.Confidence))
	case models.NodeDelta:
		p := c.Delta
		e.String("description", p.Description)
		e.StringMap("fields", p.Fields)
	case models.NodeEvidence:
		p := c.Evidence
		e.String("source", p.Source)
		e.StringMap("payload", p.Payload)
	case models.NodeCommitment:
		p := c.Commitment
		e.String("commitment_id", p.CommitmentID.String())
		e.String("declarer", string(p.Declarer))
		e.String("decision", string(p.Decision))
		e.String("reason", p.Reason)
		conds := NewEncoder()
		for _, cond := range p.Conditions {
			conds.String("kind", string(cond.Kind))
			conds.Uint64("fraction_bits", floatBits(cond.Fraction))
			conds.Int64("duration_ns", int64(cond.Duration))
		}
		e.Sub("conditions", conds)
	case models.NodeConsequence:
		p := c.Consequence
		e.String("commitment_id", p.CommitmentID.String())
		e.String("outcome", p.Outcome)
		e.Int64("executed_at_unix_nano", p.ExecutedAt.UnixNano())
	default:
		panic(fmt.Sprintf("canonical: unknown node content kind %q", c.Kind))
	}
}

// floatBits gives a deterministic, exact bit encoding for a float64 field —
// canonical encoding never formats floats as decimal text, which is not
// round-trip stable across implementations.
func floatBits(f float64) uint64 {
	return math.Float64bits(f)
}

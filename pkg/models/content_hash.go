package models

import (
	"encoding/hex"
	"errors"
)

var errInvalidHashLength = errors.New("content hash must be exactly 32 bytes")

// ContentHash is a 32-byte BLAKE3-256 hash, used as the primary key for
// every Context Graph node and every journal entry (spec §3).
type ContentHash [32]byte

// ZeroHash is the sentinel used as previous_hash for the first journal
// entry. Root Intent nodes have no parents rather than a ZeroHash parent.
var ZeroHash ContentHash

func (h ContentHash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether h is the zero hash.
func (h ContentHash) IsZero() bool { return h == ZeroHash }

// ContentHashFromHex parses a hex-encoded 32-byte hash.
func ContentHashFromHex(s string) (ContentHash, error) {
	var h ContentHash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, err
	}
	if len(b) != len(h) {
		return h, errInvalidHashLength
	}
	copy(h[:], b)
	return h, nil
}

// MarshalJSON encodes the hash as a hex string, matching the receipt
// format's "bit-exact, for replay" wire representation (spec §6) rather
// than the default [32]byte-as-number-array encoding.
func (h ContentHash) MarshalJSON() ([]byte, error) {
	return []byte(`"` + h.String() + `"`), nil
}

func (h *ContentHash) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return errors.New("content hash must be a JSON string")
	}
	parsed, err := ContentHashFromHex(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

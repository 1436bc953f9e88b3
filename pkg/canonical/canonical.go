// Package canonical implements deterministic encoding and content-addressed
// hashing for context-graph nodes and journal entries.
//
// Every hash in this system is BLAKE3-256 over a canonical byte encoding:
// map keys sorted, floats as fixed-width IEEE-754 bit patterns rather than
// decimal text, explicit field tags instead of
// struct-field order. Two callers that construct equal values in any order
// must get the same hash.
package canonical

import (
	"encoding/binary"
	"fmt"
	"sort"

	"lukechampine.com/blake3"
)

// Encoder builds a canonical byte stream incrementally. It is not safe for
// concurrent use; build one per encode.
type Encoder struct {
	buf []byte
}

func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// Bytes returns the accumulated canonical encoding.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// writeLenPrefixed appends a uvarint length followed by the raw bytes, so
// concatenated fields can never collide ("ab"+"c" vs "a"+"bc").
func (e *Encoder) writeLenPrefixed(b []byte) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(b)))
	e.buf = append(e.buf, tmp[:n]...)
	e.buf = append(e.buf, b...)
}

// String appends a tagged, length-prefixed string field.
func (e *Encoder) String(tag string, v string) *Encoder {
	e.writeLenPrefixed([]byte(tag))
	e.writeLenPrefixed([]byte(v))
	return e
}

// RawBytes appends a tagged, length-prefixed raw byte field.
func (e *Encoder) RawBytes(tag string, v []byte) *Encoder {
	e.writeLenPrefixed([]byte(tag))
	e.writeLenPrefixed(v)
	return e
}

// Uint64 appends a tagged fixed-width integer field.
func (e *Encoder) Uint64(tag string, v uint64) *Encoder {
	e.writeLenPrefixed([]byte(tag))
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
	return e
}

// Int64 appends a tagged fixed-width signed integer field.
func (e *Encoder) Int64(tag string, v int64) *Encoder {
	return e.Uint64(tag, uint64(v))
}

// Bool appends a tagged single-byte boolean field.
func (e *Encoder) Bool(tag string, v bool) *Encoder {
	e.writeLenPrefixed([]byte(tag))
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
	return e
}

// StringSlice appends a tagged field of strings, order-preserved: order is
// meaningful for things like ParentIDs and must not be resorted.
func (e *Encoder) StringSlice(tag string, v []string) *Encoder {
	e.writeLenPrefixed([]byte(tag))
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(v)))
	e.buf = append(e.buf, tmp[:n]...)
	for _, s := range v {
		e.writeLenPrefixed([]byte(s))
	}
	return e
}

// StringMap appends a tagged field of key/value string pairs, sorted by key
// so insertion order never affects the hash.
func (e *Encoder) StringMap(tag string, v map[string]string) *Encoder {
	e.writeLenPrefixed([]byte(tag))
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(len(keys)))
	e.buf = append(e.buf, tmp[:n]...)
	for _, k := range keys {
		e.writeLenPrefixed([]byte(k))
		e.writeLenPrefixed([]byte(v[k]))
	}
	return e
}

// Sub appends a tagged nested encoder's output, length-prefixed so its
// boundary is unambiguous within the parent stream.
func (e *Encoder) Sub(tag string, v *Encoder) *Encoder {
	e.writeLenPrefixed([]byte(tag))
	e.writeLenPrefixed(v.Bytes())
	return e
}

// Hash256 is a 32-byte BLAKE3 digest.
type Hash256 [32]byte

// Sum hashes an already-canonicalized byte stream.
func Sum(b []byte) Hash256 {
	return Hash256(blake3.Sum256(b))
}

// SumEncoder is a convenience for Sum(e.Bytes()).
func SumEncoder(e *Encoder) Hash256 {
	return Sum(e.Bytes())
}

func (h Hash256) String() string {
	return fmt.Sprintf("%x", h[:])
}

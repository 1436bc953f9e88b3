package models

import "time"

// JournalEntry (AuditRecord) is spec §3/§4.7's hash-chained log entry.
type JournalEntry struct {
	Sequence     uint64
	Timestamp    time.Time
	Actor        WorldlineId
	Stage        string
	Success      bool
	Message      string
	CommitmentID *ContentHash
	Payload      map[string]string
	PreviousHash ContentHash
	Hash         ContentHash
}

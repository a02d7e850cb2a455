package models

import (
	"encoding/json"
	"time"
)

// OperationKind names the remote collection a pending operation writes to
type OperationKind string

const (
	OpSettings   OperationKind = "settings"
	OpProgress   OperationKind = "progress"
	OpStatistics OperationKind = "statistics"
	OpResults    OperationKind = "results"
)

// Coalesces reports whether a newer operation for the same document replaces
// an older pending one. Results are append-only and never coalesce.
func (k OperationKind) Coalesces() bool {
	return k != OpResults
}

// Valid reports whether k is a known kind
func (k OperationKind) Valid() bool {
	switch k {
	case OpSettings, OpProgress, OpStatistics, OpResults:
		return true
	}
	return false
}

// PendingOperation is a write made locally that still has to reach the
// remote document store
type PendingOperation struct {
	ID         int64           `json:"id" db:"id"`
	Kind       OperationKind   `json:"kind" db:"kind"`
	UserID     string          `json:"user_id" db:"user_id"`
	DocID      string          `json:"doc_id" db:"doc_id"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"` // stamp of the payload
	RetryCount int             `json:"retry_count" db:"retry_count"`
	LastError  string          `json:"last_error" db:"last_error"`
	Version    int64           `json:"version" db:"version"` // bumped each time a newer payload replaces this one
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Timestamped is implemented by every record that syncs with last-write-wins
type Timestamped interface {
	Stamp() time.Time
}

// StampPrecision is the finest time resolution every backend preserves
const StampPrecision = time.Millisecond

// NormalizeStamp converts t to the form stamps are stored and compared in
func NormalizeStamp(t time.Time) time.Time {
	return t.UTC().Truncate(StampPrecision)
}

// Now returns the current time as a normalized stamp
func Now() time.Time {
	return NormalizeStamp(time.Now())
}

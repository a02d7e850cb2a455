// Package remote is the client side of the hosted document store that holds
// per-user settings, progress, statistics and session results.
//
// Documents live under users/{uid}/{collection}/{id}. Every document carries
// its JSON body and the timestamp of the write that produced it; the
// timestamp is what reconciliation compares.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/spellsync/pkg/models"
)

var (
	// ErrNotFound is returned when a document does not exist remotely
	ErrNotFound = errors.New("remote document not found")
	// ErrUnavailable wraps transport and connectivity failures. Operations that
	// fail with it may be retried later.
	ErrUnavailable = errors.New("remote store unavailable")
)

// Collection names
const (
	CollectionSettings   = "settings"
	CollectionProgress   = "progress"
	CollectionStatistics = "statistics"
	CollectionResults    = "results"
)

// DocRef addresses one document
type DocRef struct {
	UserID     string
	Collection string
	ID         string
}

// Path returns the slash separated document path
func (r DocRef) Path() string {
	return "users/" + r.UserID + "/" + r.Collection + "/" + r.ID
}

func (r DocRef) String() string {
	return r.Path()
}

// RefFor builds the document reference a pending operation writes to
func RefFor(op models.PendingOperation) DocRef {
	return DocRef{UserID: op.UserID, Collection: string(op.Kind), ID: op.DocID}
}

// Document is a stored JSON body with its write timestamp
type Document struct {
	Ref       DocRef
	Data      json.RawMessage
	UpdatedAt time.Time
}

// Decode unmarshals the document body into v
func (d Document) Decode(v interface{}) error {
	if err := json.Unmarshal(d.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", d.Ref, err)
	}
	return nil
}

// NewDocument encodes v as the body of a document
func NewDocument(ref DocRef, v interface{}, updatedAt time.Time) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode %s: %w", ref, err)
	}
	return Document{Ref: ref, Data: data, UpdatedAt: updatedAt}, nil
}

// DocumentStore is implemented by every remote backend
type DocumentStore interface {
	Get(ctx context.Context, ref DocRef) (Document, error)
	Set(ctx context.Context, doc Document) error
	List(ctx context.Context, userID, collection string) ([]Document, error)
	Delete(ctx context.Context, ref DocRef) error
	Ping(ctx context.Context) error
	Close() error
}

// IsUnavailable reports whether err is a retryable connectivity failure
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

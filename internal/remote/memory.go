package remote

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	errOffline  = errors.New("offline")
	errInjected = errors.New("injected failure")
)

// MemoryStore keeps documents in process. It backs tests and offline runs and
// can simulate a lost connection.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string]Document
	offline bool
	failN   int
	calls   int
}

// NewMemoryStore returns an empty, online store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

// SetOffline toggles simulated connectivity loss
func (m *MemoryStore) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// FailNext makes the next n calls fail with ErrUnavailable
func (m *MemoryStore) FailNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failN = n
}

// Calls returns the number of calls the store received
func (m *MemoryStore) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// check must be called with the write lock held
func (m *MemoryStore) check(ctx context.Context, op string) error {
	m.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.offline {
		return unavailable(op, errOffline)
	}
	if m.failN > 0 {
		m.failN--
		return unavailable(op, errInjected)
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, ref DocRef) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "get"); err != nil {
		return Document{}, err
	}
	doc, ok := m.docs[ref.Path()]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDoc(doc), nil
}

func (m *MemoryStore) Set(ctx context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "set"); err != nil {
		return err
	}
	m.docs[doc.Ref.Path()] = cloneDoc(doc)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, userID, collection string) ([]Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "list"); err != nil {
		return nil, err
	}
	var docs []Document
	for _, doc := range m.docs {
		if doc.Ref.UserID == userID && doc.Ref.Collection == collection {
			docs = append(docs, cloneDoc(doc))
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Ref.ID < docs[j].Ref.ID })
	return docs, nil
}

func (m *MemoryStore) Delete(ctx context.Context, ref DocRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(ctx, "delete"); err != nil {
		return err
	}
	delete(m.docs, ref.Path())
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.check(ctx, "ping")
}

func (m *MemoryStore) Close() error { return nil }

func cloneDoc(d Document) Document {
	out := d
	out.Data = append([]byte(nil), d.Data...)
	return out
}

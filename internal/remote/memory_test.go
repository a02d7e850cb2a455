package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestDocRefPath(t *testing.T) {
	ref := DocRef{UserID: "u1", Collection: CollectionProgress, ID: "en_animals"}
	assert.Equal(t, "users/u1/progress/en_animals", ref.Path())
	assert.Equal(t, ref.Path(), ref.String())
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ref := DocRef{UserID: "u1", Collection: CollectionSettings, ID: "current"}
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := store.Get(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)

	doc, err := NewDocument(ref, sample{Name: "a", Value: 1}, at)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, doc))

	got, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.True(t, at.Equal(got.UpdatedAt))

	var out sample
	require.NoError(t, got.Decode(&out))
	assert.Equal(t, sample{Name: "a", Value: 1}, out)

	require.NoError(t, store.Delete(ctx, ref))
	_, err = store.Get(ctx, ref)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreListIsScoped(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	at := time.Now()

	for _, ref := range []DocRef{
		{UserID: "u1", Collection: CollectionResults, ID: "b"},
		{UserID: "u1", Collection: CollectionResults, ID: "a"},
		{UserID: "u2", Collection: CollectionResults, ID: "c"},
		{UserID: "u1", Collection: CollectionProgress, ID: "d"},
	} {
		doc, err := NewDocument(ref, sample{Name: ref.ID}, at)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, doc))
	}

	docs, err := store.List(ctx, "u1", CollectionResults)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].Ref.ID)
	assert.Equal(t, "b", docs[1].Ref.ID)
}

func TestMemoryStoreOffline(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SetOffline(true)

	err := store.Ping(ctx)
	assert.True(t, IsUnavailable(err))

	_, err = store.List(ctx, "u1", CollectionSettings)
	assert.ErrorIs(t, err, ErrUnavailable)

	store.SetOffline(false)
	assert.NoError(t, store.Ping(ctx))
}

func TestMemoryStoreFailNext(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.FailNext(2)

	assert.True(t, IsUnavailable(store.Ping(ctx)))
	assert.True(t, IsUnavailable(store.Ping(ctx)))
	assert.NoError(t, store.Ping(ctx))
	assert.Equal(t, 3, store.Calls())
}

func TestMemoryStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewMemoryStore().Ping(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsUnavailable(err))
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	ref := DocRef{UserID: "u1", Collection: CollectionSettings, ID: "current"}

	doc := Document{Ref: ref, Data: []byte(`{"name":"x"}`), UpdatedAt: time.Now()}
	require.NoError(t, store.Set(ctx, doc))
	doc.Data[2] = 'N'

	got, err := store.Get(ctx, ref)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x"}`, string(got.Data))
}

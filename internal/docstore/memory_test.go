package docstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhabedank/fin-advisor/internal/docstore"
)

func TestDocstore_Memory_InsertFind(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := docstore.NewMemoryStore()

	ids, err := store.Insert(ctx, "chat_history",
		docstore.Document{"user_id": "a", "message": "hi", "timestamp": "2024-01-01T00:00:02.000000Z"},
		docstore.Document{"user_id": "b", "message": "yo", "timestamp": "2024-01-01T00:00:01.000000Z"},
		docstore.Document{"_id": "fixed", "user_id": "a", "message": "bye", "timestamp": "2024-01-01T00:00:03.000000Z"},
	)
	require.NoError(t, err)
	require.Len(t, ids, 3)
	assert.NotEmpty(t, ids[0])
	assert.Equal(t, "fixed", ids[2])

	docs, err := store.Find(ctx, "chat_history", docstore.Filter{"user_id": "a"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "hi", docs[0].String("message"))

	docs, err = store.Find(ctx, "chat_history", nil, docstore.SortBy("timestamp", true), docstore.Limit(2))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "bye", docs[0].String("message"))
	assert.Equal(t, "hi", docs[1].String("message"))

	names, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"chat_history"}, names)
}

func TestDocstore_Memory_ReadsAreCopies(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := docstore.NewMemoryStore()
	_, err := store.Insert(ctx, "users", docstore.Document{"username": "sam"})
	require.NoError(t, err)

	doc, err := store.FindOne(ctx, "users", docstore.Filter{"username": "sam"})
	require.NoError(t, err)
	doc["username"] = "mutated"

	_, err = store.FindOne(ctx, "users", docstore.Filter{"username": "sam"})
	require.NoError(t, err)
}

func TestDocstore_Memory_Update(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	store := docstore.NewMemoryStore()

	res, err := store.Update(ctx, "users", docstore.Filter{"username": "sam"}, docstore.Document{"disabled": true}, false)
	require.NoError(t, err)
	assert.Zero(t, res.MatchedCount)

	res, err = store.Update(ctx, "users", docstore.Filter{"username": "sam"}, docstore.Document{"disabled": false}, true)
	require.NoError(t, err)
	assert.NotEmpty(t, res.UpsertedID)

	res, err = store.Update(ctx, "users", docstore.Filter{"username": "sam"}, docstore.Document{"disabled": true}, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.MatchedCount)

	doc, err := store.FindOne(ctx, "users", docstore.Filter{"disabled": true})
	require.NoError(t, err)
	assert.Equal(t, "sam", doc.String("username"))

	_, err = store.FindOne(ctx, "users", docstore.Filter{"username": "nobody"})
	require.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestDocstore_Filter_NumericEquality(t *testing.T) {
	t.Parallel()

	doc := docstore.Document{"score": float64(700), "name": "x"}
	assert.True(t, docstore.Filter{"score": 700}.Matches(doc))
	assert.False(t, docstore.Filter{"score": 701}.Matches(doc))
	assert.False(t, docstore.Filter{"missing": "x"}.Matches(doc))
	assert.True(t, docstore.Filter(nil).Matches(doc))
}

func TestDocstore_Memory_Drop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := docstore.NewMemoryStore()
	_, err := store.Insert(ctx, "products", docstore.Document{"product_id": "P1"}, docstore.Document{"product_id": "P2"})
	require.NoError(t, err)

	n, err := store.Drop(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	collections, err := store.Collections(ctx)
	require.NoError(t, err)
	assert.NotContains(t, collections, "products")

	n, err = store.Drop(ctx, "products")
	require.NoError(t, err)
	assert.Zero(t, n)
}

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alimasry/boxesnlines/annotation"
)

func TestMemoryStore_GetMissing(t *testing.T) {
	s := NewMemoryStore()
	m, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestMemoryStore_SetAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "doc1", sampleMap()))
	got, err := s.Get(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, sampleMap(), got)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	m := sampleMap()
	require.NoError(t, s.Set(ctx, "doc1", m))
	r := annotation.NewRange(1, 0, 1, 10)
	m[r.Key()][0].Text = "mutated after set"

	got, err := s.Get(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "first", got[r.Key()][0].Text)

	got[r.Key()][0].Text = "mutated after get"
	again, err := s.Get(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, "first", again[r.Key()][0].Text)
}

func TestMemoryStore_NormalizesAuthor(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	r := annotation.NewRange(0, 0, 0, 2)

	require.NoError(t, s.Set(ctx, "doc1", annotation.Map{r.Key(): {{Range: r, Text: "x"}}}))
	got, err := s.Get(ctx, "doc1")
	require.NoError(t, err)
	assert.Equal(t, annotation.DefaultAuthor, got[r.Key()][0].Author)
}

package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemory_UpsertAndQueryTopK(t *testing.T) {
	s := NewInMemory(3)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0, 0}, Metadata: map[string]any{"doc_id": "d1"}},
		{ID: "b", Vector: []float32{0, 1, 0}, Metadata: map[string]any{"doc_id": "d1"}},
		{ID: "c", Vector: []float32{-1, 0, 0}, Metadata: map[string]any{"doc_id": "d2"}},
	}))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 2, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "a", results[0].ID)
}

func TestInMemory_DeleteByDocIDRemovesOnlyMatchingPoints(t *testing.T) {
	s := NewInMemory(2)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]any{"doc_id": "d1"}},
		{ID: "b", Vector: []float32{0, 1}, Metadata: map[string]any{"doc_id": "d2"}},
	}))

	require.NoError(t, s.DeleteByDocID(ctx, "d1"))

	results, err := s.Query(ctx, []float32{1, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "b", results[0].ID)
}

func TestInMemory_FilterEqAndNe(t *testing.T) {
	s := NewInMemory(2)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]any{"difficulty": "beginner"}},
		{ID: "b", Vector: []float32{1, 0}, Metadata: map[string]any{"difficulty": "advanced"}},
	}))

	eq, err := s.Query(ctx, []float32{1, 0}, 10, Filter{Eq: map[string]string{"difficulty": "beginner"}})
	require.NoError(t, err)
	require.Len(t, eq, 1)
	require.Equal(t, "a", eq[0].ID)

	ne, err := s.Query(ctx, []float32{1, 0}, 10, Filter{Ne: map[string]string{"difficulty": "beginner"}})
	require.NoError(t, err)
	require.Len(t, ne, 1)
	require.Equal(t, "b", ne[0].ID)
}

func TestInMemory_FilterInAndAndOr(t *testing.T) {
	s := NewInMemory(2)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]any{"quadra": "alpha", "difficulty": "beginner"}},
		{ID: "b", Vector: []float32{1, 0}, Metadata: map[string]any{"quadra": "beta", "difficulty": "beginner"}},
		{ID: "c", Vector: []float32{1, 0}, Metadata: map[string]any{"quadra": "gamma", "difficulty": "advanced"}},
	}))

	in, err := s.Query(ctx, []float32{1, 0}, 10, Filter{In: map[string][]string{"quadra": {"alpha", "beta"}}})
	require.NoError(t, err)
	require.Len(t, in, 2)

	and, err := s.Query(ctx, []float32{1, 0}, 10, Filter{
		And: []Filter{
			{In: map[string][]string{"quadra": {"alpha", "beta"}}},
			{Eq: map[string]string{"difficulty": "beginner"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, and, 2)

	or, err := s.Query(ctx, []float32{1, 0}, 10, Filter{
		Or: []Filter{
			{Eq: map[string]string{"quadra": "gamma"}},
			{Eq: map[string]string{"quadra": "alpha"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, or, 2)
}

func TestInMemory_ContainsOnArrayCapableBackend(t *testing.T) {
	s := NewInMemory(2)
	require.True(t, s.ArrayCapability())
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]any{"types_discussed": []string{"INTJ", "ENFP"}}},
		{ID: "b", Vector: []float32{1, 0}, Metadata: map[string]any{"types_discussed": []string{"ISTP"}}},
	}))

	results, err := s.Query(ctx, []float32{1, 0}, 10, Filter{Contains: map[string]string{"types_discussed": "INTJ"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].ID)
}

func TestInMemory_ContainsEmulatedOnNoArraySupportBackend(t *testing.T) {
	s := NewInMemoryNoArraySupport(2)
	require.False(t, s.ArrayCapability())
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, []Point{
		{ID: "a", Vector: []float32{1, 0}, Metadata: map[string]any{"types_discussed": []string{"INTJ", "ENFP"}}},
		{ID: "b", Vector: []float32{1, 0}, Metadata: map[string]any{"types_discussed": []string{"ISTP"}}},
	}))

	results, err := s.Query(ctx, []float32{1, 0}, 10, Filter{Contains: map[string]string{"types_discussed": "INTJ"}})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "a", results[0].ID)
}

func TestFilter_IsEmpty(t *testing.T) {
	require.True(t, Filter{}.IsEmpty())
	require.False(t, Filter{Eq: map[string]string{"k": "v"}}.IsEmpty())
}

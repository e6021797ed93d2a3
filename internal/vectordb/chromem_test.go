package vectordb

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deterministicVector produces a normalized vector from text. Similar
// texts share positions and therefore score higher.
func deterministicVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	for i, ch := range text {
		vec[(int(ch)+i)%dims] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

func newTestChromem(t *testing.T, dir string) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore("macbot", 16, dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.EnsureIndex(context.Background()))
	return s
}

func textRecord(id, file string, idx int, content string) Record {
	return Record{
		ID:     id,
		Values: deterministicVector(content, 16),
		Metadata: Metadata{
			FileName:   file,
			ChunkIndex: idx,
			Content:    content,
		},
	}
}

func TestChromemStore_UpsertAndQuery(t *testing.T) {
	ctx := context.Background()
	s := newTestChromem(t, "")

	recs := []Record{
		textRecord("a-0", "witches.txt", 0, "Double, double toil and trouble; fire burn and cauldron bubble"),
		textRecord("a-1", "witches.txt", 1, "By the pricking of my thumbs, something wicked this way comes"),
		textRecord("b-0", "lady.txt", 0, "Out, damned spot! out, I say!"),
	}
	require.NoError(t, s.Upsert(ctx, recs))
	assert.Equal(t, 3, s.Count())

	matches, err := s.Query(ctx, deterministicVector("Out, damned spot! out, I say!", 16), 2, nil)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "b-0", matches[0].ID)
	assert.Equal(t, "lady.txt", matches[0].FileName)

	filtered, err := s.Query(ctx, deterministicVector("anything", 16), 10, &Filter{FileName: "witches.txt"})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)
	for _, m := range filtered {
		assert.Equal(t, "witches.txt", m.FileName)
	}
}

func TestChromemStore_UpsertOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestChromem(t, "")
	require.NoError(t, s.Upsert(ctx, []Record{textRecord("a-0", "a.txt", 0, "first")}))
	require.NoError(t, s.Upsert(ctx, []Record{textRecord("a-0", "a.txt", 0, "second")}))
	assert.Equal(t, 1, s.Count())
}

func TestChromemStore_DimensionGuard(t *testing.T) {
	s := newTestChromem(t, "")
	matches, err := s.Query(context.Background(), []float32{1, 2}, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)

	err = s.Upsert(context.Background(), []Record{{ID: "x", Values: []float32{1}}})
	assert.Error(t, err)
}

func TestChromemStore_DeleteByFileName(t *testing.T) {
	ctx := context.Background()
	s := newTestChromem(t, "")

	var recs []Record
	for i := 0; i < 7; i++ {
		recs = append(recs, textRecord(fmt.Sprintf("x-%d", i), "x.txt", i, fmt.Sprintf("chunk number %d", i)))
	}
	recs = append(recs, textRecord("y-0", "y.txt", 0, "other file"))
	require.NoError(t, s.Upsert(ctx, recs))

	n, err := s.DeleteByFileName(ctx, "x.txt")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, 1, s.Count())

	n, err = s.DeleteByFileName(ctx, "x.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestChromemStore_Sample(t *testing.T) {
	ctx := context.Background()
	s := newTestChromem(t, "")

	sample, err := s.Sample(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, sample)

	require.NoError(t, s.Upsert(ctx, []Record{
		textRecord("a-0", "a.txt", 0, "one"),
		textRecord("a-1", "a.txt", 1, "two"),
		textRecord("b-0", "b.txt", 0, "three"),
	}))
	sample, err = s.Sample(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, sample, 2)
}

func TestChromemStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := newTestChromem(t, dir)
	require.NoError(t, s.Upsert(ctx, []Record{textRecord("a-0", "a.txt", 0, "Is this a dagger")}))

	reopened := newTestChromem(t, dir)
	assert.Equal(t, 1, reopened.Count())
	matches, err := reopened.Query(ctx, deterministicVector("Is this a dagger", 16), 1, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "Is this a dagger", matches[0].Content)
}

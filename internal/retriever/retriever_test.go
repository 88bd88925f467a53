package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragsql/ragsql/internal/storage"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, f.err
}

type fakeIndex struct {
	records  []*storage.ScoredRecord
	err      error
	gotK     int
	gotQuery []float32
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, k int) ([]*storage.ScoredRecord, error) {
	f.gotQuery = vector
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	if len(f.records) > k {
		return f.records[:k], nil
	}
	return f.records, nil
}

func record(id string, score float32) *storage.ScoredRecord {
	return &storage.ScoredRecord{
		EmbeddingRecord: storage.EmbeddingRecord{
			DocumentID:   id,
			RenderedText: "Table: " + id,
		},
		Score: score,
	}
}

func TestRetrieveOrdersAndLimits(t *testing.T) {
	idx := &fakeIndex{records: []*storage.ScoredRecord{
		record("sales.contracts", 0.91),
		record("public.invoices", 0.85),
		record("public.users", 0.40),
	}}
	emb := &fakeEmbedder{vector: []float32{0.1, 0.2}}

	r := New(emb, idx, 2, nil)
	docs, err := r.Retrieve(context.Background(), "active contracts that have not been invoiced")
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, 2, idx.gotK)
	assert.Equal(t, emb.vector, idx.gotQuery)
	assert.Equal(t, "sales.contracts", docs[0].DocumentID)
	assert.Equal(t, "public.invoices", docs[1].DocumentID)
	// Non-increasing score order is preserved from the index.
	assert.GreaterOrEqual(t, docs[0].Score, docs[1].Score)
}

func TestNewClampsTopK(t *testing.T) {
	for _, topK := range []int{0, -1} {
		idx := &fakeIndex{records: []*storage.ScoredRecord{record("sales.contracts", 0.9)}}
		r := New(&fakeEmbedder{vector: []float32{1}}, idx, topK, nil)

		docs, err := r.Retrieve(context.Background(), "anything")
		require.NoError(t, err)
		assert.Equal(t, 1, idx.gotK, "topK %d should be clamped to 1", topK)
		assert.Len(t, docs, 1)
	}
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r := New(&fakeEmbedder{vector: []float32{1}}, &fakeIndex{}, 3, nil)

	docs, err := r.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, docs)
	assert.NotNil(t, docs)
}

func TestRetrieveEmbedderError(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("rate limited")}
	r := New(emb, &fakeIndex{}, 3, nil)

	_, err := r.Retrieve(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed question")
}

func TestRetrieveIndexError(t *testing.T) {
	idx := &fakeIndex{err: errors.New("connection refused")}
	r := New(&fakeEmbedder{vector: []float32{1}}, idx, 3, nil)

	_, err := r.Retrieve(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query index")
}

package memory

import (
	"context"
	"fmt"
	"hash/fnv"
)

// MockEmbedder is a deterministic embedder for tests. Texts sharing words get
// closer vectors than unrelated texts.
type MockEmbedder struct {
	Dim int
	Err error
}

// Embed hashes each word into a fixed-dimension bag-of-words vector.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	dim := m.Dim
	if dim <= 0 {
		dim = 32
	}

	vec := make([]float32, dim)
	word := make([]byte, 0, 16)
	flush := func() {
		if len(word) == 0 {
			return
		}
		h := fnv.New32a()
		h.Write(word)
		vec[int(h.Sum32())%dim]++
		word = word[:0]
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == ' ' || c == '\n' || c == '\t' {
			flush()
			continue
		}
		word = append(word, c)
	}
	flush()
	return vec, nil
}

// FailingStore is a VectorStore whose operations always fail.
type FailingStore struct {
	Err error
}

func (f *FailingStore) failure() error {
	if f.Err != nil {
		return f.Err
	}
	return fmt.Errorf("mock store error")
}

func (f *FailingStore) Upsert(context.Context, string, []Point) error { return f.failure() }

func (f *FailingStore) Search(context.Context, string, []float32, int, float32) ([]SearchResult, error) {
	return nil, f.failure()
}

func (f *FailingStore) CreateCollection(context.Context, string, uint64) error { return f.failure() }

var (
	_ Embedder    = (*MockEmbedder)(nil)
	_ VectorStore = (*FailingStore)(nil)
)

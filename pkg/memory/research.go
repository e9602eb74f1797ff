package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultCollection is where research snippets are stored.
const DefaultCollection = "research_snippets"

// Snippet is a stored piece of completed research.
type Snippet struct {
	Query           string  `json:"query"`
	Content         string  `json:"content"`
	Source          string  `json:"source"`
	ValidationScore float64 `json:"validation_score"`
	Timestamp       string  `json:"timestamp"`
	// Score is the similarity score when returned from a search.
	Score float32 `json:"score,omitempty"`
}

// ResearchMemory stores and recalls research snippets semantically. Snippets
// are embedded by query plus content so recall matches either.
type ResearchMemory struct {
	store      VectorStore
	embedder   Embedder
	collection string
}

// NewResearchMemory creates a ResearchMemory over a vector store and embedder.
// An empty collection selects DefaultCollection.
func NewResearchMemory(store VectorStore, embedder Embedder, collection string) *ResearchMemory {
	if collection == "" {
		collection = DefaultCollection
	}
	return &ResearchMemory{
		store:      store,
		embedder:   embedder,
		collection: collection,
	}
}

// Initialize ensures the collection exists, probing the embedder for the
// vector dimension. Creation failures are tolerated when the collection
// already answers searches.
func (m *ResearchMemory) Initialize(ctx context.Context) error {
	vec, err := m.embedder.Embed(ctx, "dimension probe")
	if err != nil {
		return fmt.Errorf("failed to get embedding dimension: %w", err)
	}

	if err := m.store.CreateCollection(ctx, m.collection, uint64(len(vec))); err != nil {
		if _, searchErr := m.store.Search(ctx, m.collection, vec, 1, 0.0); searchErr == nil {
			return nil // collection already exists
		}
		return err
	}
	return nil
}

// StoreSnippet persists a research snippet.
func (m *ResearchMemory) StoreSnippet(ctx context.Context, snippet Snippet) error {
	if snippet.Timestamp == "" {
		snippet.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	vector, err := m.embedder.Embed(ctx, snippet.Query+"\n"+snippet.Content)
	if err != nil {
		return fmt.Errorf("failed to embed snippet: %w", err)
	}

	point := Point{
		ID:     uuid.NewString(),
		Vector: vector,
		Payload: map[string]interface{}{
			"query":            snippet.Query,
			"content":          snippet.Content,
			"source":           snippet.Source,
			"validation_score": snippet.ValidationScore,
			"timestamp":        snippet.Timestamp,
		},
	}

	if err := m.store.Upsert(ctx, m.collection, []Point{point}); err != nil {
		return fmt.Errorf("failed to store snippet: %w", err)
	}
	return nil
}

// SearchSimilar returns up to limit snippets semantically similar to query.
func (m *ResearchMemory) SearchSimilar(ctx context.Context, query string, limit int) ([]Snippet, error) {
	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := m.store.Search(ctx, m.collection, vector, limit, 0.0)
	if err != nil {
		return nil, fmt.Errorf("failed to search snippets: %w", err)
	}

	snippets := make([]Snippet, 0, len(results))
	for _, r := range results {
		snippets = append(snippets, Snippet{
			Query:           payloadString(r.Point.Payload, "query"),
			Content:         payloadString(r.Point.Payload, "content"),
			Source:          payloadString(r.Point.Payload, "source"),
			ValidationScore: payloadFloat(r.Point.Payload, "validation_score"),
			Timestamp:       payloadString(r.Point.Payload, "timestamp"),
			Score:           r.Score,
		})
	}
	return snippets, nil
}

func payloadString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadFloat(payload map[string]interface{}, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

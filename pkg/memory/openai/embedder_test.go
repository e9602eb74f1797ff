package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewEmbedderDefaultsModel(t *testing.T) {
	e := NewEmbedder("key", "", "")
	if e.model != "text-embedding-3-small" {
		t.Errorf("model = %q", e.model)
	}

	e = NewEmbedder("key", "text-embedding-3-large", "")
	if e.model != "text-embedding-3-large" {
		t.Errorf("model = %q", e.model)
	}
}

func TestEmbedderUsesBaseURL(t *testing.T) {
	var gotPath, gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		var body struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotModel = body.Model

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": []float64{0.1, 0.2, 0.3}},
			},
			"model": body.Model,
		})
	}))
	defer srv.Close()

	e := NewEmbedder("test-key", "text-embedding-3-small", srv.URL)
	vector, err := e.Embed(context.Background(), "research notes")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vector) != 3 || vector[0] != 0.1 {
		t.Errorf("vector = %v", vector)
	}
	if gotPath != "/embeddings" {
		t.Errorf("path = %q", gotPath)
	}
	if gotModel != "text-embedding-3-small" {
		t.Errorf("model = %q", gotModel)
	}
}

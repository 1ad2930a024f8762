package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeOllama(t *testing.T) (*httptest.Server, *OllamaEmbedder) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		count := 1
		if list, ok := req.Input.([]any); ok {
			count = len(list)
		}
		resp := ollamaEmbedResponse{Embeddings: make([][]float32, count)}
		for i := range resp.Embeddings {
			vec := make([]float32, EmbeddingDimensions)
			for j := range vec {
				vec[j] = float32(i+1) * 0.01
			}
			resp.Embeddings[i] = vec
		}
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, NewOllamaEmbedderWithConfig(srv.URL, DefaultModel)
}

func TestOllamaEmbed(t *testing.T) {
	_, embedder := newFakeOllama(t)

	embedding, err := embedder.Embed(context.Background(), "function LoginUser authenticates a user")
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(embedding) != EmbeddingDimensions {
		t.Errorf("Embed() got %d dimensions, want %d", len(embedding), EmbeddingDimensions)
	}
}

func TestOllamaEmbedBatch(t *testing.T) {
	_, embedder := newFakeOllama(t)

	texts := []string{
		"OrderService places and cancels orders",
		"validate_email checks email format",
		"PAGE_SIZE pagination constant",
	}
	embeddings, err := embedder.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch() error: %v", err)
	}
	if len(embeddings) != len(texts) {
		t.Errorf("EmbedBatch() got %d embeddings, want %d", len(embeddings), len(texts))
	}
	for i, emb := range embeddings {
		if len(emb) != EmbeddingDimensions {
			t.Errorf("EmbedBatch()[%d] got %d dimensions, want %d", i, len(emb), EmbeddingDimensions)
		}
	}

	if got, err := embedder.EmbedBatch(context.Background(), nil); err != nil || got != nil {
		t.Errorf("EmbedBatch(nil) = %v, %v", got, err)
	}
}

func TestPrepareEntityContent(t *testing.T) {
	content := PrepareEntityContent(
		"OrderService",
		"Coordinates order placement",
		[]string{"order", "service", "place"},
		"App\\Services\\OrderService",
	)
	want := "OrderService\nCoordinates order placement\nKeywords: order, service, place\nApp\\Services\\OrderService"
	if content != want {
		t.Errorf("content = %q, want %q", content, want)
	}

	// A bare constant with no analysis yet embeds as just its name.
	if got := PrepareEntityContent("MAX_RETRIES", "", nil, "MAX_RETRIES"); got != "MAX_RETRIES" {
		t.Errorf("minimal content = %q", got)
	}
}

func TestContentHashChangesWithContent(t *testing.T) {
	a := ContentHash("OrderService\nCoordinates order placement")
	b := ContentHash("OrderService\nCancels orders")
	if a == b {
		t.Error("different content must hash differently")
	}
	if len(a) != 16 {
		t.Errorf("hash length = %d, want 16", len(a))
	}
	if a != ContentHash("OrderService\nCoordinates order placement") {
		t.Error("hash must be stable")
	}
}

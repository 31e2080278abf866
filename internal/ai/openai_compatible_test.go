package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteSendsSamplingParameters(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hi there"}}]}`))
	}))
	defer server.Close()

	client := NewOpenAICompatibleClient(ChatConfig{BaseURL: server.URL, APIKey: "gsk-test", Model: "llama-3.1-8b-instant"})
	got, err := client.Complete(context.Background(), CompletionRequest{
		Messages:    []ChatMessage{{Role: "system", Content: "be nice"}, {Role: "user", Content: "hello"}},
		Temperature: Float(0.5),
		MaxTokens:   800,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there", got)

	assert.Equal(t, "llama-3.1-8b-instant", body["model"])
	assert.InDelta(t, 0.5, body["temperature"], 1e-9)
	assert.InDelta(t, 800, body["max_tokens"], 1e-9)
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestCompleteWithoutKeyIsNotConfigured(t *testing.T) {
	client := NewOpenAICompatibleClient(ChatConfig{Model: "m"})
	_, err := client.Complete(context.Background(), CompletionRequest{Messages: []ChatMessage{{Role: "user", Content: "x"}}})
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.False(t, client.Configured())
}

func TestCompletePropagatesProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := NewOpenAICompatibleClient(ChatConfig{BaseURL: server.URL, APIKey: "k", Model: "m"})
	_, err := client.Complete(context.Background(), CompletionRequest{Messages: []ChatMessage{{Role: "user", Content: "x"}}})
	require.Error(t, err)
}

func embeddingServer(t *testing.T, rateLimitFirst bool) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if rateLimitFirst && n == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"slow down"}}`))
			return
		}
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		// answer in reverse order to prove results are re-sorted by index
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = item{Object: "embedding", Index: j, Embedding: []float64{float64(len(req.Input[j])), 1}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "m",
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestEmbedDocumentsPreservesOrderAcrossBatches(t *testing.T) {
	server, calls := embeddingServer(t, false)
	e := NewOpenAIEmbedder(EmbeddingConfig{BaseURL: server.URL, APIKey: "k", Model: "m", BatchSize: 2, Concurrency: 3})

	texts := make([]string, 5)
	for i := range texts {
		texts[i] = fmt.Sprintf("%0*d", i+1, 0)
	}
	vectors, err := e.EmbedDocuments(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 5)
	for i, v := range vectors {
		assert.Equal(t, float32(i+1), v[0], "vector %d out of order", i)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestEmbedQueryRetriesOnRateLimit(t *testing.T) {
	server, calls := embeddingServer(t, true)
	e := NewOpenAIEmbedder(EmbeddingConfig{BaseURL: server.URL, APIKey: "k", Model: "m"})

	v, err := e.EmbedQuery(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, v)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestEmbedQueryRejectsBlank(t *testing.T) {
	e := NewOpenAIEmbedder(EmbeddingConfig{APIKey: "k", Model: "m"})
	_, err := e.EmbedQuery(context.Background(), "   ")
	assert.Error(t, err)
}

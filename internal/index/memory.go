package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"pdfchat/internal/model"
)

type entry struct {
	chunk  model.Chunk
	vector []float32
}

// Memory is a brute-force cosine index. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries []entry
	dim     int
}

func NewMemory() *Memory {
	return &Memory{}
}

// Build pairs chunks with their vectors into a fresh index.
func Build(chunks []model.Chunk, vectors [][]float32) (*Memory, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("%w: %d chunks, %d vectors", ErrLengthMismatch, len(chunks), len(vectors))
	}
	m := NewMemory()
	for i := range chunks {
		if len(vectors[i]) == 0 {
			return nil, fmt.Errorf("%w: chunk %d has an empty vector", ErrDimensionMismatch, i)
		}
		if m.dim == 0 {
			m.dim = len(vectors[i])
		}
		if len(vectors[i]) != m.dim {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(vectors[i]), m.dim)
		}
		m.entries = append(m.entries, entry{chunk: chunks[i], vector: vectors[i]})
	}
	return m, nil
}

func (m *Memory) Merge(_ context.Context, fresh *Memory) error {
	if fresh == nil || fresh == m {
		return nil
	}
	incoming, dim := fresh.snapshot()
	if len(incoming) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dim != 0 && dim != m.dim {
		return fmt.Errorf("%w: index has %d dimensions, document has %d", ErrDimensionMismatch, m.dim, dim)
	}
	m.dim = dim
	m.entries = append(m.entries, incoming...)
	return nil
}

func (m *Memory) Search(_ context.Context, query []float32, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.entries) == 0 {
		return nil, nil
	}
	if len(query) != m.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d", ErrDimensionMismatch, len(query), m.dim)
	}

	scored := make([]model.ScoredChunk, len(m.entries))
	for i, e := range m.entries {
		scored[i] = model.ScoredChunk{Chunk: e.chunk, Score: cosineSimilarity(query, e.vector)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k], nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *Memory) snapshot() ([]entry, int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entry, len(m.entries))
	copy(out, m.entries)
	return out, m.dim
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

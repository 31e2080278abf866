package cache

import (
	"context"
	"sync"

	"pdfchat/internal/model"
)

// MemoryHistory is the in-process history store used when Redis is not configured.
type MemoryHistory struct {
	mu    sync.RWMutex
	turns map[string][]model.Turn
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{turns: make(map[string][]model.Turn)}
}

func (h *MemoryHistory) Append(_ context.Context, sessionID string, turn model.Turn) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns[sessionID] = append(h.turns[sessionID], turn)
	return nil
}

func (h *MemoryHistory) Recent(_ context.Context, sessionID string, n int) ([]model.Turn, error) {
	if n <= 0 {
		return nil, nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	all := h.turns[sessionID]
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]model.Turn, len(all))
	copy(out, all)
	return out, nil
}

func (h *MemoryHistory) DeleteHistory(_ context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.turns, sessionID)
	return nil
}

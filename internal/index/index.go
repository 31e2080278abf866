// Package index holds per-session embedding indexes. A document is first built into a
// fresh Memory index and then merged into the session's index, so retrieval always
// spans every document uploaded to the session.
package index

import (
	"context"
	"errors"

	"pdfchat/internal/model"
)

var (
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrLengthMismatch    = errors.New("chunk and vector counts differ")
)

type Index interface {
	// Merge appends every entry of fresh. Existing entries are never replaced.
	Merge(ctx context.Context, fresh *Memory) error
	// Search returns up to k chunks ordered by descending similarity.
	Search(ctx context.Context, query []float32, k int) ([]model.ScoredChunk, error)
	Len(ctx context.Context) (int, error)
}

// Factory creates the empty index backing a new session.
type Factory func(sessionID string) Index

func MemoryFactory() Factory {
	return func(string) Index { return NewMemory() }
}

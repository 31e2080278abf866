package app

import (
	"context"

	"pdfchat/internal/ai"
	"pdfchat/internal/model"
)

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Completer interface {
	Configured() bool
	Complete(ctx context.Context, req ai.CompletionRequest) (string, error)
}

type HistoryStore interface {
	Append(ctx context.Context, sessionID string, turn model.Turn) error
	Recent(ctx context.Context, sessionID string, n int) ([]model.Turn, error)
	DeleteHistory(ctx context.Context, sessionID string) error
}

type CodeStore interface {
	Append(ctx context.Context, email string, rec model.CodeRecord) error
	List(ctx context.Context, purpose model.CodePurpose, email string) ([]model.CodeRecord, error)
	// MarkUsed reports false when the record was already used.
	MarkUsed(ctx context.Context, purpose model.CodePurpose, email, id string) (bool, error)
}

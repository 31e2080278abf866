package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"pdfchat/internal/model"
)

const (
	qdrantUpsertBatch   = 100
	qdrantRollbackWait  = 10 * time.Second
	payloadSessionID    = "session_id"
	payloadUploadID     = "upload_id"
	payloadText         = "text"
	payloadSource       = "source"
	payloadDocument     = "document"
	payloadChunkOrdinal = "ordinal"
)

// QdrantClient is the subset of *qdrant.Client the store uses.
type QdrantClient interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, request *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
}

// QdrantStore keeps every session in one collection, partitioned by a session_id payload field.
// Each merged document also carries an upload_id so a partially written upload can be removed.
type QdrantStore struct {
	client     QdrantClient
	collection string
	dim        int
	newBackOff func() backoff.BackOff
}

func NewQdrantStore(client QdrantClient, collection string, dim int) *QdrantStore {
	return &QdrantStore{client: client, collection: collection, dim: dim, newBackOff: upsertBackOff}
}

func upsertBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 20 * time.Second
	return b
}

// EnsureCollection creates the collection and its session_id payload index. Safe to call repeatedly.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("check qdrant collection failed: %w", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create qdrant collection failed: %w", err)
	}
	for _, field := range []string{payloadSessionID, payloadUploadID} {
		_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create qdrant payload index %s failed: %w", field, err)
		}
	}
	return nil
}

func (s *QdrantStore) Factory() Factory {
	return func(sessionID string) Index {
		return &qdrantIndex{store: s, sessionID: sessionID}
	}
}

type qdrantIndex struct {
	store     *QdrantStore
	sessionID string
}

func (q *qdrantIndex) Merge(ctx context.Context, fresh *Memory) error {
	if fresh == nil {
		return nil
	}
	entries, dim := fresh.snapshot()
	if len(entries) == 0 {
		return nil
	}
	if dim != q.store.dim {
		return fmt.Errorf("%w: collection has %d dimensions, document has %d", ErrDimensionMismatch, q.store.dim, dim)
	}

	uploadID := uuid.NewString()
	for i := 0; i < len(entries); i += qdrantUpsertBatch {
		end := min(i+qdrantUpsertBatch, len(entries))
		points := make([]*qdrant.PointStruct, 0, end-i)
		for _, e := range entries[i:end] {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(uuid.NewString()),
				Vectors: qdrant.NewVectors(e.vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					payloadSessionID:    q.sessionID,
					payloadUploadID:     uploadID,
					payloadText:         e.chunk.Text,
					payloadSource:       e.chunk.Source,
					payloadDocument:     e.chunk.Document,
					payloadChunkOrdinal: e.chunk.Ordinal,
				}),
			})
		}
		if err := q.upsertWithRetry(ctx, points); err != nil {
			err = fmt.Errorf("upsert qdrant batch %d-%d failed: %w", i, end, err)
			return errors.Join(err, q.rollback(ctx, uploadID))
		}
	}
	return nil
}

// rollback deletes every point written by one upload. It runs even when ctx was
// cancelled, bounded by its own timeout.
func (q *qdrantIndex) rollback(ctx context.Context, uploadID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), qdrantRollbackWait)
	defer cancel()

	_, err := q.store.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.store.collection,
		Wait:           qdrant.PtrOf(true),
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(payloadSessionID, q.sessionID),
				qdrant.NewMatch(payloadUploadID, uploadID),
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("rollback qdrant upload %s failed: %w", uploadID, err)
	}
	return nil
}

func (q *qdrantIndex) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	return backoff.Retry(func() error {
		_, err := q.store.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.store.collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		return err
	}, backoff.WithContext(q.store.newBackOff(), ctx))
}

func (q *qdrantIndex) Search(ctx context.Context, query []float32, k int) ([]model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != q.store.dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d", ErrDimensionMismatch, len(query), q.store.dim)
	}
	results, err := q.store.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.store.collection,
		Query:          qdrant.NewQuery(query...),
		Filter:         q.filter(),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	out := make([]model.ScoredChunk, 0, len(results))
	for _, r := range results {
		p := r.GetPayload()
		out = append(out, model.ScoredChunk{
			Chunk: model.Chunk{
				Text:     p[payloadText].GetStringValue(),
				Source:   p[payloadSource].GetStringValue(),
				Document: int(p[payloadDocument].GetIntegerValue()),
				Ordinal:  int(p[payloadChunkOrdinal].GetIntegerValue()),
			},
			Score: r.GetScore(),
		})
	}
	return out, nil
}

func (q *qdrantIndex) Len(ctx context.Context) (int, error) {
	n, err := q.store.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.store.collection,
		Filter:         q.filter(),
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count failed: %w", err)
	}
	return int(n), nil
}

func (q *qdrantIndex) filter() *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(payloadSessionID, q.sessionID)},
	}
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"pdfchat/internal/model"
)

// HistoryCache keeps each session's chat turns in a Redis list, oldest first.
type HistoryCache struct {
	client     *redisv9.Client
	keyPrefix  string
	historyTTL time.Duration
	maxTurns   int64
}

// NewHistoryCache builds a Redis-backed history. A zero ttl keeps history until the key is
// removed; maxTurns caps the stored list so long sessions do not grow without bound.
func NewHistoryCache(client *redisv9.Client, keyPrefix string, historyTTL time.Duration, maxTurns int) *HistoryCache {
	if keyPrefix == "" {
		keyPrefix = "pdfchat"
	}
	if maxTurns <= 0 {
		maxTurns = 100
	}
	return &HistoryCache{
		client:     client,
		keyPrefix:  keyPrefix,
		historyTTL: historyTTL,
		maxTurns:   int64(maxTurns),
	}
}

func (c *HistoryCache) Append(ctx context.Context, sessionID string, turn model.Turn) error {
	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal history turn failed: %w", err)
	}
	key := c.historyKey(sessionID)
	_, err = c.client.TxPipelined(ctx, func(p redisv9.Pipeliner) error {
		p.RPush(ctx, key, payload)
		p.LTrim(ctx, key, -c.maxTurns, -1)
		if c.historyTTL > 0 {
			p.Expire(ctx, key, c.historyTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis append history failed: %w", err)
	}
	return nil
}

// Recent returns at most n of the latest turns in chronological order.
func (c *HistoryCache) Recent(ctx context.Context, sessionID string, n int) ([]model.Turn, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := c.client.LRange(ctx, c.historyKey(sessionID), int64(-n), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get history failed: %w", err)
	}
	turns := make([]model.Turn, 0, len(raw))
	for _, item := range raw {
		var turn model.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal cached history failed: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (c *HistoryCache) DeleteHistory(ctx context.Context, sessionID string) error {
	if err := c.client.Del(ctx, c.historyKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete history failed: %w", err)
	}
	return nil
}

func (c *HistoryCache) historyKey(sessionID string) string {
	return fmt.Sprintf("%s:chat:history:%s", c.keyPrefix, sessionID)
}

package repository

import (
	"context"
	"encoding/json"
	"fmt"

	redisv9 "github.com/redis/go-redis/v9"

	"pdfchat/internal/model"
)

// RedisCodeRepository stores records as an append-only JSON list per (purpose, email) and
// tracks redemption in a companion set, so claiming a code is a single atomic SADD.
type RedisCodeRepository struct {
	client    *redisv9.Client
	keyPrefix string
}

func NewRedisCodeRepository(client *redisv9.Client, keyPrefix string) *RedisCodeRepository {
	if keyPrefix == "" {
		keyPrefix = "pdfchat"
	}
	return &RedisCodeRepository{client: client, keyPrefix: keyPrefix}
}

func (r *RedisCodeRepository) Append(ctx context.Context, email string, rec model.CodeRecord) error {
	rec.Used = false
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal code record failed: %w", err)
	}
	if err := r.client.RPush(ctx, r.listKey(rec.Purpose, email), payload).Err(); err != nil {
		return fmt.Errorf("redis append code failed: %w", err)
	}
	return nil
}

func (r *RedisCodeRepository) List(ctx context.Context, purpose model.CodePurpose, email string) ([]model.CodeRecord, error) {
	var (
		listCmd *redisv9.StringSliceCmd
		usedCmd *redisv9.StringSliceCmd
	)
	_, err := r.client.Pipelined(ctx, func(p redisv9.Pipeliner) error {
		listCmd = p.LRange(ctx, r.listKey(purpose, email), 0, -1)
		usedCmd = p.SMembers(ctx, r.usedKey(purpose, email))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis list codes failed: %w", err)
	}

	used := make(map[string]struct{}, len(usedCmd.Val()))
	for _, id := range usedCmd.Val() {
		used[id] = struct{}{}
	}
	raw := listCmd.Val()
	out := make([]model.CodeRecord, 0, len(raw))
	for _, item := range raw {
		var rec model.CodeRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal code record failed: %w", err)
		}
		_, rec.Used = used[rec.ID]
		out = append(out, rec)
	}
	return out, nil
}

func (r *RedisCodeRepository) MarkUsed(ctx context.Context, purpose model.CodePurpose, email, id string) (bool, error) {
	added, err := r.client.SAdd(ctx, r.usedKey(purpose, email), id).Result()
	if err != nil {
		return false, fmt.Errorf("redis mark code used failed: %w", err)
	}
	return added == 1, nil
}

func (r *RedisCodeRepository) listKey(purpose model.CodePurpose, email string) string {
	return fmt.Sprintf("%s:otp:%s:%s", r.keyPrefix, purpose, email)
}

func (r *RedisCodeRepository) usedKey(purpose model.CodePurpose, email string) string {
	return fmt.Sprintf("%s:otp:used:%s:%s", r.keyPrefix, purpose, email)
}

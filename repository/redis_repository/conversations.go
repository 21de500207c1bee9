package redis_repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/newsrag/models"
)

const sessionKeyPrefix = "session:"

// redisConversationRepository stores each session as an ordered redis list
// of serialized turns. The list TTL slides forward on every append, so a
// session stays alive as long as it is active.
type redisConversationRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisConversationRepository(client *redis.Client, ttl time.Duration) *redisConversationRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &redisConversationRepository{
		client: client,
		ttl:    ttl,
	}
}

// AddMessage pushes a turn to the tail of the session's list and resets the
// expiration. RPUSH is atomic per key, so concurrent appenders never lose
// updates.
func (r *redisConversationRepository) AddMessage(ctx context.Context, sessionID, role, text string) error {
	key := sessionKeyPrefix + sessionID

	data, err := json.Marshal(models.Turn{Role: role, Text: text})
	if err != nil {
		return err
	}

	if err := r.client.RPush(ctx, key, data).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, r.ttl).Err()
}

// History returns the full ordered turn list. Unknown and expired sessions
// both read as empty, not as an error.
func (r *redisConversationRepository) History(ctx context.Context, sessionID string) ([]models.Turn, error) {
	key := sessionKeyPrefix + sessionID

	vals, err := r.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []models.Turn{}, nil
		}
		return nil, err
	}

	turns := make([]models.Turn, 0, len(vals))
	for _, v := range vals {
		var turn models.Turn
		if err := json.Unmarshal([]byte(v), &turn); err != nil {
			return nil, err
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Clear deletes the session's list immediately, independent of TTL.
// Clearing a nonexistent session is a no-op.
func (r *redisConversationRepository) Clear(ctx context.Context, sessionID string) error {
	key := sessionKeyPrefix + sessionID

	if err := r.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

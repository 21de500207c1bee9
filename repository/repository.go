package repository

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/newsrag/config"
	"github.com/mohammad-safakhou/newsrag/models"
	"github.com/mohammad-safakhou/newsrag/repository/redis_repository"
)

// ConversationRepository defines the interface for session history storage.
// A session exists only once its first turn is appended; every append slides
// the expiration window forward.
type ConversationRepository interface {
	AddMessage(ctx context.Context, sessionID, role, text string) error
	History(ctx context.Context, sessionID string) ([]models.Turn, error)
	Clear(ctx context.Context, sessionID string) error
}

type RepoType string

const (
	RepoTypeRedis RepoType = "redis"
)

func NewConversationRepository(ctx context.Context, t RepoType, cfg config.RedisConfig) (ConversationRepository, error) {
	switch t {
	case RepoTypeRedis:
		c, err := redis_repository.Conn(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return redis_repository.NewRedisConversationRepository(c, cfg.SessionTTL), nil
	}
	return nil, fmt.Errorf("invalid repository type: %s", t)
}

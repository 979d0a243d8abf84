package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/vatbridge/vatbridge/internal/models"
)

// RedisStore keeps session records in Redis with a TTL, for deployments
// where the server process restarts mid-session. The record still dies
// with the TTL; there is no durable persistence.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) Save(ctx context.Context, sess *models.Session) error {
	dataJSON, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	key := fmt.Sprintf("session:%s", sess.ID)
	if err := s.client.Set(ctx, key, dataJSON, s.ttl).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to store session")
		return fmt.Errorf("failed to store session: %w", err)
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*models.Session, error) {
	key := fmt.Sprintf("session:%s", id)

	dataJSON, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(dataJSON), &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &sess, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	key := fmt.Sprintf("session:%s", id)

	if err := s.client.Del(ctx, key).Err(); err != nil {
		s.logger.WithError(err).Error("Failed to delete session")
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}

package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGuard stores fired markers as Redis keys, keeping them out of the
// subject records. Markers have no expiry: a condition-based automation
// fires once per subject for its lifetime.
type RedisGuard struct {
	client redis.UniversalClient
}

// NewRedisGuard connects to Redis using a redis:// URL.
func NewRedisGuard(ctx context.Context, redisURL string) (*RedisGuard, error) {
	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisGuard{client: client}, nil
}

func markerKey(automationID, subjectID string) string {
	return "donorpilot:dedup:" + automationID + ":" + subjectID
}

func (g *RedisGuard) IsProcessed(ctx context.Context, automationID, subjectID string) (bool, error) {
	count, err := g.client.Exists(ctx, markerKey(automationID, subjectID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check marker: %w", err)
	}

	return count > 0, nil
}

func (g *RedisGuard) MarkProcessed(ctx context.Context, automationID, subjectID string) error {
	err := g.client.SetNX(ctx, markerKey(automationID, subjectID), "1", 0).Err()
	if err != nil {
		return fmt.Errorf("failed to set marker: %w", err)
	}

	return nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}

// Package contextstore persists the per-user conversation context between
// turns. Two implementations: Redis for deployments, in-memory for local
// runs and tests.
package contextstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jarvishq/jarvis-server/internal/domain/convo"
	"github.com/jarvishq/jarvis-server/internal/infrastructure/logger"
	"github.com/jarvishq/jarvis-server/internal/utils/platformerrors"
)

const keyPrefix = "jarvis:ctx:"

// RedisStore keeps contexts as JSON values with a TTL; expiry is native so
// no sweeping is needed.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ convo.Store = (*RedisStore)(nil)

// NewRedisStore connects and pings the Redis backend.
func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log := logger.GetLogger()
	log.Info().Str("addr", addr).Msg("Successfully connected to Redis context store")
	return &RedisStore{client: client, ttl: ttl}, nil
}

func (s *RedisStore) Load(ctx context.Context, identity string) (*convo.Context, error) {
	raw, err := s.client.Get(ctx, keyPrefix+identity).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal,
			"failed to load conversation context",
			err,
			"b8c3e5d7-1f6a-4b9c-8d3e-5a7f9b2c4001",
		)
	}

	var c convo.Context
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeInternal,
			"failed to decode conversation context",
			err,
			"b8c3e5d7-1f6a-4b9c-8d3e-5a7f9b2c4002",
		)
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, identity string, c *convo.Context) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeInternal,
			"failed to encode conversation context",
			err,
			"b8c3e5d7-1f6a-4b9c-8d3e-5a7f9b2c4003",
		)
	}

	if err := s.client.Set(ctx, keyPrefix+identity, raw, s.ttl).Err(); err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal,
			"failed to save conversation context",
			err,
			"b8c3e5d7-1f6a-4b9c-8d3e-5a7f9b2c4004",
		)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, identity string) error {
	if err := s.client.Del(ctx, keyPrefix+identity).Err(); err != nil {
		return platformerrors.NewError(
			ctx,
			platformerrors.LayerInfrastructure,
			platformerrors.ErrorTypeExternal,
			"failed to clear conversation context",
			err,
			"b8c3e5d7-1f6a-4b9c-8d3e-5a7f9b2c4005",
		)
	}
	return nil
}

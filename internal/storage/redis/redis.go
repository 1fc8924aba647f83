package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("key not found")

// releaseScript deletes the lock only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Cache represents redis client
type Cache struct {
	client *redis.Client
	logger *zap.Logger
}

func New(addr, password string, db int, logger *zap.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	// check connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("successfully connected to Redis")

	return &Cache{
		client: client,
		logger: logger,
	}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	err := c.client.Set(ctx, key, value, ttl).Err()
	if err != nil {
		c.logger.Error("failed to set string",
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("set string: %w", err)
	}

	return nil
}

func (c *Cache) GetString(ctx context.Context, key string) (string, error) {
	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		c.logger.Error("failed to get string",
			zap.String("key", key),
			zap.Error(err),
		)
		return "", fmt.Errorf("get string: %w", err)
	}

	return value, nil
}

// IncrementWithExpiry increments counter and refreshes its TTL
func (c *Cache) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, ttl)

	_, err := pipe.Exec(ctx)
	if err != nil {
		c.logger.Error("failed to increment with expiry",
			zap.String("key", key),
			zap.Error(err),
		)
		return 0, fmt.Errorf("increment with expiry: %w", err)
	}

	return incrCmd.Val(), nil
}

// TryLock takes key for ttl if nobody holds it. The returned token is needed
// to release it.
func (c *Cache) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		c.logger.Error("failed to acquire lock",
			zap.String("key", key),
			zap.Error(err),
		)
		return "", false, fmt.Errorf("try lock: %w", err)
	}

	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

func (c *Cache) Unlock(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, c.client, []string{key}, token).Err(); err != nil {
		c.logger.Error("failed to release lock",
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("unlock: %w", err)
	}

	return nil
}

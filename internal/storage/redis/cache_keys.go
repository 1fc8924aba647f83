package redis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	ProximityLockTTL   = 5 * time.Minute
	RateLimitWindowTTL = 1 * time.Minute
)

func ProximityCursorKey() string {
	return "alerts:proximity:last_run"
}

func ProximityLockKey() string {
	return "alerts:proximity:lock"
}

func RateLimitKey(client string) string {
	return fmt.Sprintf("ratelimit:cron:%s", client)
}

// ProximityCursor returns the start time of the last completed matcher run.
func (c *Cache) ProximityCursor(ctx context.Context) (time.Time, bool, error) {
	raw, err := c.GetString(ctx, ProximityCursorKey())
	if errors.Is(err, ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parse proximity cursor %q: %w", raw, err)
	}

	return t, true, nil
}

func (c *Cache) SetProximityCursor(ctx context.Context, t time.Time) error {
	return c.SetString(ctx, ProximityCursorKey(), t.UTC().Format(time.RFC3339Nano), 0)
}

func (c *Cache) IncrementClientRateLimit(ctx context.Context, client string) (int64, error) {
	return c.IncrementWithExpiry(ctx, RateLimitKey(client), RateLimitWindowTTL)
}

func (c *Cache) TryProximityLock(ctx context.Context) (string, bool, error) {
	return c.TryLock(ctx, ProximityLockKey(), ProximityLockTTL)
}

func (c *Cache) ReleaseProximityLock(ctx context.Context, token string) error {
	return c.Unlock(ctx, ProximityLockKey(), token)
}

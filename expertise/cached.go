package expertise

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/minexpert/bidwar/logger"
)

const cacheKeyPrefix = "bidwar:expertise:"

// CachedDirectory fronts a slower Directory with a Redis cache-aside lookup.
// Redis failures degrade to the backing directory; they never fail a lookup.
type CachedDirectory struct {
	redis *redis.Client
	next  Directory
	ttl   time.Duration
	log   logger.Logger
}

// NewCachedDirectory wraps next with a Redis cache whose entries live for ttl.
func NewCachedDirectory(client *redis.Client, next Directory, ttl time.Duration, log logger.Logger) *CachedDirectory {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &CachedDirectory{redis: client, next: next, ttl: ttl, log: log}
}

// Specialization returns the cached specialization, or asks the backing directory and caches the answer.
func (d *CachedDirectory) Specialization(ctx context.Context, consultantID string) (string, error) {
	cacheKey := cacheKeyPrefix + consultantID
	val, err := d.redis.Get(ctx, cacheKey).Result()
	if err == nil {
		return val, nil
	}
	if !errors.Is(err, redis.Nil) {
		d.log.Warn("expertise cache read failed", logger.Fields{"consultant_id": consultantID, "error": err.Error()})
	}

	spec, err := d.next.Specialization(ctx, consultantID)
	if err != nil {
		return "", fmt.Errorf("lookup specialization: %w", err)
	}

	if err := d.redis.Set(ctx, cacheKey, spec, d.ttl).Err(); err != nil {
		d.log.Warn("expertise cache write failed", logger.Fields{"consultant_id": consultantID, "error": err.Error()})
	}
	return spec, nil
}

// Invalidate drops a consultant's cached specialization.
func (d *CachedDirectory) Invalidate(ctx context.Context, consultantID string) error {
	if err := d.redis.Del(ctx, cacheKeyPrefix+consultantID).Err(); err != nil {
		return fmt.Errorf("invalidate expertise cache: %w", err)
	}
	return nil
}

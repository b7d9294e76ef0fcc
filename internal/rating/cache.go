package rating

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uvgride/grouprides/internal/domain"
	"github.com/uvgride/grouprides/internal/observability"
)

const summaryKeyPrefix = "grouprides:rating:summary:"

// SummaryCache holds recently computed driver summaries
type SummaryCache interface {
	Get(ctx context.Context, driverID int64) (domain.RatingSummary, bool, error)
	Set(ctx context.Context, summary domain.RatingSummary) error
	Delete(ctx context.Context, driverID int64) error
}

// NopCache never stores anything
type NopCache struct{}

func (NopCache) Get(context.Context, int64) (domain.RatingSummary, bool, error) {
	return domain.RatingSummary{}, false, nil
}

func (NopCache) Set(context.Context, domain.RatingSummary) error { return nil }

func (NopCache) Delete(context.Context, int64) error { return nil }

// RedisCache stores summaries as JSON with a TTL. Writers delete the entry
// after every accepted rating and readers refill it from the stored rows.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a summary cache on client
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// ConnectRedis opens a client and verifies the server answers
func ConnectRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func summaryKey(driverID int64) string {
	return summaryKeyPrefix + strconv.FormatInt(driverID, 10)
}

func (c *RedisCache) Get(ctx context.Context, driverID int64) (domain.RatingSummary, bool, error) {
	data, err := c.client.Get(ctx, summaryKey(driverID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observability.RatingCacheHits.WithLabelValues("miss").Inc()
			return domain.RatingSummary{}, false, nil
		}
		observability.RatingCacheHits.WithLabelValues("error").Inc()
		return domain.RatingSummary{}, false, fmt.Errorf("failed to read rating summary from Redis: %w", err)
	}

	var s domain.RatingSummary
	if err := json.Unmarshal(data, &s); err != nil {
		observability.RatingCacheHits.WithLabelValues("error").Inc()
		return domain.RatingSummary{}, false, fmt.Errorf("failed to unmarshal rating summary: %w", err)
	}
	observability.RatingCacheHits.WithLabelValues("hit").Inc()
	return s, true, nil
}

func (c *RedisCache) Set(ctx context.Context, summary domain.RatingSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal rating summary: %w", err)
	}
	if err := c.client.Set(ctx, summaryKey(summary.DriverID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write rating summary to Redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, driverID int64) error {
	if err := c.client.Del(ctx, summaryKey(driverID)).Err(); err != nil {
		return fmt.Errorf("failed to delete rating summary from Redis: %w", err)
	}
	return nil
}

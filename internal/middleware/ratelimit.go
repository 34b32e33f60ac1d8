package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nestling-app/nestling-api/internal/database"
	"github.com/nestling-app/nestling-api/internal/models"
	"github.com/nestling-app/nestling-api/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

const defaultRatelimitRate = "10-S"

// RedisRateLimiter wraps the Redis client backing the rate limiter store.
type RedisRateLimiter struct {
	client *redis.Client
}

// NewRedisRateLimiter connects to Redis and verifies the connection.
func NewRedisRateLimiter(redisURL string) (*RedisRateLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisRateLimiter{client: client}, nil
}

// Client exposes the underlying Redis client for the limiter store.
func (r *RedisRateLimiter) Client() *redis.Client {
	return r.client
}

// Ping checks if Redis is reachable.
func (r *RedisRateLimiter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (r *RedisRateLimiter) Close() error {
	return r.client.Close()
}

// RateLimitFromDB returns middleware that rate-limits by client IP using
// ulule/limiter with Redis, loading the rate from the database. When no
// config row exists, defaultRate is saved as the initial config.
func RateLimitFromDB(redisClient *redis.Client, repo *database.RatelimitConfigRepository, defaultRate string) (func(http.Handler) http.Handler, error) {
	if defaultRate == "" {
		defaultRate = defaultRatelimitRate
	}
	ctx := context.Background()
	cfg, err := repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	rateStr := defaultRate
	if cfg != nil && cfg.Rate != "" {
		rateStr = cfg.Rate
	} else {
		if err = repo.Set(ctx, &models.RatelimitConfig{Rate: defaultRate}); err != nil {
			return nil, err
		}
	}
	rate, err := limiter.NewRateFromFormatted(rateStr)
	if err != nil {
		return nil, err
	}
	store, err := redisstore.NewStore(redisClient)
	if err != nil {
		return nil, err
	}
	instance := limiter.New(store, rate)
	keyGetter := func(r *http.Request) string {
		return request.ClientIP(r)
	}
	mw := stdlibmw.NewMiddleware(instance, stdlibmw.WithKeyGetter(keyGetter))
	return mw.Handler, nil
}

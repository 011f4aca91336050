package caching

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "licensor:"

// CacheService holds short-lived coordination state. Validation decisions are
// never cached here; every validation reads current license state.
type CacheService interface {
	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Billing event de-duplication
	MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	ForgetEvent(ctx context.Context, eventID string) error

	Ping(ctx context.Context) error
	Close() error
}

type redisCacheService struct {
	client *redis.Client
}

func NewRedisCacheService(addr, password string, db int) CacheService {
	parsedAddr := parseRedisAddr(addr)

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		slog.Warn("redis ping failed on initialization", "error", pingErr, "address", parsedAddr)
	} else {
		slog.Info("redis connected", "address", parsedAddr)
	}

	return &redisCacheService{client: client}
}

// parseRedisAddr accepts either host:port or a redis:// URL.
func parseRedisAddr(addr string) string {
	for _, scheme := range []string{"redis://", "rediss://"} {
		if strings.HasPrefix(addr, scheme) {
			hostPort := strings.TrimPrefix(addr, scheme)
			if i := strings.LastIndex(hostPort, "@"); i >= 0 {
				hostPort = hostPort[i+1:]
			}
			if i := strings.Index(hostPort, "/"); i >= 0 {
				hostPort = hostPort[:i]
			}
			return hostPort
		}
	}
	return addr
}

func rateLimitKey(key string) string {
	return fmt.Sprintf("%sratelimit:%s", keyPrefix, key)
}

func eventKey(eventID string) string {
	return fmt.Sprintf("%sevent:%s", keyPrefix, eventID)
}

// IsRateLimited counts a hit in a fixed window and reports whether the count
// is over the limit. The window key is created with its TTL and incremented
// in one MULTI/EXEC, so a counter can never outlive its window.
func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := rateLimitKey(key)

	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, cacheKey, 0, window)
		incr = pipe.Incr(ctx, cacheKey)
		return nil
	})
	if err != nil {
		return false, err
	}

	return incr.Val() > int64(limit), nil
}

// MarkEventProcessed returns true the first time an event id is seen within ttl.
func (r *redisCacheService) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, eventKey(eventID), time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// ForgetEvent releases an event id so a redelivery is processed again.
func (r *redisCacheService) ForgetEvent(ctx context.Context, eventID string) error {
	return r.client.Del(ctx, eventKey(eventID)).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCacheService) Close() error {
	return r.client.Close()
}

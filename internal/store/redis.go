package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the connection shared by the change feed, the work queue, id counters and OTP codes.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts. Pub/sub reads block, so
// ReadTimeout only bounds regular commands.
func NewRedis(addr, password string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy pings the server; it backs the redis entry of /healthz.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close closes the client.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}

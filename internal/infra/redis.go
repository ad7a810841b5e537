// README: Redis client initialization for the fuel and toll caches.
package infra

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"
)

// NewRedis returns a client even when the server is down: the caches treat
// Redis errors as misses.
func NewRedis(ctx context.Context, addr, password string, db int) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("redis unavailable addr=%s err=%v (caches disabled until it recovers)", addr, err)
	}
	return client
}

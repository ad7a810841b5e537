// README: Redis cache of the last realtime fuel price per route area.
package fuel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"chauffeur/internal/types"
)

type entry struct {
	PricePerLitre float64   `json:"pricePerLitre"`
	Countries     []string  `json:"countries,omitempty"`
	FetchedAt     time.Time `json:"fetchedAt"`
}

// Cache keeps entries for ttl; freshness is judged by the caller from
// FetchedAt so an expired-but-present entry can still serve as stale.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// cacheKey buckets points to two decimals (about 1 km).
func cacheKey(fuelType string, points []types.Point) string {
	var b strings.Builder
	b.WriteString("fuel:price:")
	b.WriteString(fuelType)
	for _, p := range points {
		fmt.Fprintf(&b, ":%.2f,%.2f", p.Lat, p.Lng)
	}
	return b.String()
}

func (c *Cache) get(ctx context.Context, key string) (entry, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return entry{}, false, nil
	}
	if err != nil {
		return entry{}, false, fmt.Errorf("fuel cache get: %w", err)
	}
	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return entry{}, false, fmt.Errorf("fuel cache decode: %w", err)
	}
	return e, true, nil
}

func (c *Cache) put(ctx context.Context, key string, e entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("fuel cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("fuel cache set: %w", err)
	}
	return nil
}

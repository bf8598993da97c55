package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Deduper remembers processed event ids per consuming service.
type Deduper struct {
	Redis   *redis.Client
	Service string
}

// First claims id and reports whether this is the first time it is seen.
func (d *Deduper) First(ctx context.Context, id string) (bool, error) {
	return Claim(ctx, d.Redis, fmt.Sprintf(KeyDedup, d.Service, id), TTLDedup)
}

// Forget releases a claim so the event can be processed again after a failure.
func (d *Deduper) Forget(ctx context.Context, id string) error {
	return d.Redis.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, id)).Err()
}

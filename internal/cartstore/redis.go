package cartstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/xenking/storefront-api/internal/domain/cart"
)

const keyPrefix = "cart:"

// Redis stores carts as JSON values with a sliding TTL, so abandoned carts
// expire on their own.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed store. A zero ttl means carts never expire.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	data, err := r.client.Get(ctx, keyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cart.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "redis get")
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "decode cart")
	}
	return &c, nil
}

func (r *Redis) Save(ctx context.Context, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode cart")
	}
	if err := r.client.Set(ctx, keyPrefix+c.UserID, data, r.ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, userID string) error {
	n, err := r.client.Del(ctx, keyPrefix+userID).Result()
	if err != nil {
		return errors.Wrap(err, "redis del")
	}
	if n == 0 {
		return cart.ErrNotFound
	}
	return nil
}

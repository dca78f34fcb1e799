package readcache

import (
	"context"
	"errors"
	"time"

	"github.com/prashanthpai/readcache/cache"
	"github.com/prashanthpai/readcache/codec"

	"github.com/redis/go-redis/v9"
)

// Redis implements cache.Cacher interface to use redis as backend with
// go-redis as the redis client library. Keys are used exactly as given.
type Redis struct {
	c     redis.UniversalClient
	codec codec.Codec
}

var _ cache.Cacher = (*Redis)(nil)

// Get gets a cache item from redis. Returns pointer to the item, a boolean
// which represents whether key exists or not and an error.
func (r *Redis) Get(ctx context.Context, key string) (*cache.Item, bool, error) {
	b, err := r.c.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		item, err := r.codec.Decode(b)
		if err != nil {
			return nil, false, err
		}
		return item, true, nil
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// Set sets the given item into redis with provided TTL duration.
// Non-positive TTLs mean no expiry.
func (r *Redis) Set(ctx context.Context, key string, item *cache.Item, ttl time.Duration) error {
	b, err := r.codec.Encode(item)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}

	return r.c.Set(ctx, key, b, ttl).Err()
}

// Delete removes the key from redis.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.c.Del(ctx, key).Err()
}

// NewRedis creates a new instance of redis backend using go-redis client.
// A nil codec defaults to codec.Msgpack.
func NewRedis(c redis.UniversalClient, cd codec.Codec) *Redis {
	if cd == nil {
		cd = codec.Msgpack{}
	}
	return &Redis{
		c:     c,
		codec: cd,
	}
}

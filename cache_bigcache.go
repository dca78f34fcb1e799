package readcache

import (
	"context"
	"errors"
	"time"

	"github.com/prashanthpai/readcache/cache"
	"github.com/prashanthpai/readcache/codec"

	"github.com/allegro/bigcache/v3"
)

// BigCache implements cache.Cacher interface on top of allegro/bigcache.
// BigCache has no per-entry TTL: every entry lives for the LifeWindow the
// *bigcache.BigCache was built with, and the TTL passed to Set is ignored.
// Pick a LifeWindow no longer than the shortest table TTL.
type BigCache struct {
	c     *bigcache.BigCache
	codec codec.Codec
}

var _ cache.Cacher = (*BigCache)(nil)

func (b *BigCache) Get(_ context.Context, key string) (*cache.Item, bool, error) {
	raw, err := b.c.Get(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	item, err := b.codec.Decode(raw)
	if err != nil {
		_ = b.c.Delete(key)
		return nil, false, err
	}
	return item, true, nil
}

func (b *BigCache) Set(_ context.Context, key string, item *cache.Item, _ time.Duration) error {
	raw, err := b.codec.Encode(item)
	if err != nil {
		return err
	}
	return b.c.Set(key, raw)
}

func (b *BigCache) Delete(_ context.Context, key string) error {
	err := b.c.Delete(key)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

// NewBigCache creates a new instance of bigcache backend. A nil codec
// defaults to codec.Msgpack.
func NewBigCache(c *bigcache.BigCache, cd codec.Codec) *BigCache {
	if cd == nil {
		cd = codec.Msgpack{}
	}
	return &BigCache{c: c, codec: cd}
}

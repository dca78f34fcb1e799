package readcache

import (
	"context"
	"fmt"
	"time"

	"github.com/prashanthpai/readcache/cache"

	"github.com/dgraph-io/ristretto"
)

// Ristretto implements cache.Cacher interface to use ristretto as an
// in-process backend.
type Ristretto struct {
	c *ristretto.Cache
}

var _ cache.Cacher = (*Ristretto)(nil)

// Get gets a cache item from ristretto. Returns pointer to the item, a boolean
// which represents whether key exists or not and an error.
func (r *Ristretto) Get(_ context.Context, key string) (*cache.Item, bool, error) {
	i, ok := r.c.Get(key)
	if !ok {
		return nil, false, nil
	}

	item, ok := i.(*cache.Item)
	if !ok {
		r.c.Del(key)
		return nil, false, fmt.Errorf("Ristretto.Get(): unexpected value type %T", i)
	}

	return item, true, nil
}

// Set sets a copy of the given item into ristretto with provided TTL
// duration. The write is visible to Get once Set returns, unless ristretto
// rejected it under cost pressure.
func (r *Ristretto) Set(_ context.Context, key string, item *cache.Item, ttl time.Duration) error {
	// using # of rows as cost
	cost := int64(len(item.Rows))
	if cost == 0 {
		cost = 1
	}
	if ttl < 0 {
		ttl = 0
	}
	_ = r.c.SetWithTTL(key, item.Clone(), cost, ttl)
	r.c.Wait()
	return nil
}

// Delete removes the key from ristretto.
func (r *Ristretto) Delete(_ context.Context, key string) error {
	r.c.Del(key)
	return nil
}

// NewRistretto creates a new instance of ristretto backend wrapping the
// provided *ristretto.Cache instance. While creating the ristretto
// instance, please note that number of rows will be used as "cost"
// (in ristretto's terminology) for each cache item.
func NewRistretto(c *ristretto.Cache) *Ristretto {
	return &Ristretto{
		c: c,
	}
}

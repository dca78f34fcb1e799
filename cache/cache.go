package cache

import (
	"context"
	"database/sql/driver"
	"time"
)

// Item represents a single item in cache and will contain the materialized
// results of a single SQL query.
type Item struct {
	Cols []string
	Rows [][]driver.Value
}

// Clone returns a deep copy of the item. Byte slices are copied so that the
// clone does not alias driver owned buffers.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}

	out := &Item{
		Cols: append([]string(nil), i.Cols...),
		Rows: make([][]driver.Value, len(i.Rows)),
	}
	for n, row := range i.Rows {
		out.Rows[n] = CopyRow(row)
	}

	return out
}

// CopyRow copies a row of driver values, including the contents of any
// []byte values.
func CopyRow(row []driver.Value) []driver.Value {
	cpy := make([]driver.Value, len(row))
	for n, v := range row {
		if b, ok := v.([]byte); ok {
			v = append([]byte(nil), b...)
		}
		cpy[n] = v
	}
	return cpy
}

// Cacher represents a backend cache that can be used by readcache package.
// Keys passed to a Cacher are already namespaced by the caller.
type Cacher interface {
	// Get must return a pointer to the item, a boolean representing whether
	// item is present or not, and an error (must be nil when key is not
	// present).
	Get(ctx context.Context, key string) (*Item, bool, error)
	// Set sets the item into cache with the given TTL.
	Set(ctx context.Context, key string, item *Item, ttl time.Duration) error
	// Delete removes the key from cache. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error
}

package analysis

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/viccon/sturdyc"

	"github.com/prashanthpai/readcache/cache"
)

// MemoConfig tunes the in-process analyze memo.
type MemoConfig struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
}

// DefaultMemoConfig returns a MemoConfig suitable for most applications.
func DefaultMemoConfig() MemoConfig {
	return MemoConfig{
		Capacity:           10000,
		NumShards:          64,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	}
}

// Memo decorates a Service and remembers analyze results per (query, args)
// pair. Concurrent analyze calls for the same pair share one round trip.
// Register and Invalidate are forwarded unchanged.
//
// Fingerprints depend only on the statement and its arguments, so a memoized
// analysis stays valid across writes.
type Memo struct {
	inner Service
	c     *sturdyc.Client[*QueryAnalysis]
}

var _ Service = (*Memo)(nil)

// NewMemo wraps inner with an analyze memo.
func NewMemo(inner Service, cfg MemoConfig) (*Memo, error) {
	if inner == nil {
		return nil, fmt.Errorf("analysis: memo needs a Service")
	}
	if cfg.Capacity <= 0 || cfg.NumShards <= 0 || cfg.TTL <= 0 {
		return nil, fmt.Errorf("analysis: invalid memo config")
	}
	if cfg.EvictionPercentage < 1 || cfg.EvictionPercentage > 100 {
		return nil, fmt.Errorf("analysis: memo eviction percentage must be between 1 and 100")
	}

	return &Memo{
		inner: inner,
		c:     sturdyc.New[*QueryAnalysis](cfg.Capacity, cfg.NumShards, cfg.TTL, cfg.EvictionPercentage),
	}, nil
}

func (m *Memo) Analyze(ctx context.Context, query string, args []driver.NamedValue) (*QueryAnalysis, error) {
	key, err := memoKey(query, args)
	if err != nil {
		return m.inner.Analyze(ctx, query, args)
	}

	return m.c.GetOrFetch(ctx, key, func(ctx context.Context) (*QueryAnalysis, error) {
		return m.inner.Analyze(ctx, query, args)
	})
}

func (m *Memo) Register(ctx context.Context, query string, args []driver.NamedValue, item *cache.Item, ttl time.Duration) error {
	return m.inner.Register(ctx, query, args, item, ttl)
}

func (m *Memo) Invalidate(ctx context.Context, query string, args []driver.NamedValue) error {
	return m.inner.Invalidate(ctx, query, args)
}

// Size returns the number of memoized analyses.
func (m *Memo) Size() int {
	return m.c.Size()
}

type memoArg struct {
	Name    string
	Ordinal int
	Type    string
	Value   any
}

// memoKey hashes the statement and its arguments. Values whose state lives in
// unexported fields (time.Time) are hashed via their string form, and the
// dynamic type is part of the key so that int64(1) and "1" differ.
func memoKey(query string, args []driver.NamedValue) (string, error) {
	margs := make([]memoArg, len(args))
	for n, a := range args {
		v := a.Value
		if t, ok := v.(time.Time); ok {
			v = t.Format(time.RFC3339Nano)
		}
		margs[n] = memoArg{Name: a.Name, Ordinal: a.Ordinal, Type: fmt.Sprintf("%T", a.Value), Value: v}
	}

	u64, err := hashstructure.Hash(struct {
		Query string
		Args  []memoArg
		Nil   bool
	}{
		Query: query,
		Args:  margs,
		Nil:   args == nil,
	}, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("q%da%dh%s", len(query), len(args), strconv.FormatUint(u64, 10)), nil
}

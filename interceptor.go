package readcache

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ngrok/sqlmw"

	"github.com/prashanthpai/readcache/analysis"
	"github.com/prashanthpai/readcache/cache"
	"github.com/prashanthpai/readcache/strategy"
)

const (
	defaultPrefix              = "sqlcache"
	defaultMarker              = "@cache"
	defaultTimeout             = 2 * time.Second
	defaultInvalidationTimeout = 5 * time.Second
	defaultInvalidationWorkers = 4
	defaultInvalidationQueue   = 1024
)

var (
	ErrNilConfig   = errors.New("config can't be nil")
	ErrNilCache    = errors.New("cache must be set in Config")
	ErrNilAnalyzer = errors.New("analyzer must be set in Config")
)

// Config is the configuration passed to NewInterceptor for creating new
// Interceptor instances. It is read once; changing it afterwards has no
// effect on the Interceptor.
type Config struct {
	// Cache must be set to a type that implements the cache.Cacher interface
	// which abstracts the backend cache implementation. This is a required
	// field and cannot be nil.
	Cache cache.Cacher
	// Analyzer classifies and fingerprints statements, typically an
	// *analysis.Client optionally wrapped by analysis.NewMemo. Required.
	Analyzer analysis.Service
	// Strategy decides cacheability and TTL. Defaults to
	// strategy.DefaultConfig().
	Strategy *strategy.Strategy
	// Prefix namespaces cache keys as Prefix + "_" + fingerprint.
	// Defaults to "sqlcache".
	Prefix string
	// Marker is the case-insensitive substring that opts a read into
	// caching. Defaults to "@cache".
	Marker string
	// Timeout bounds each analyze, cache get, cache set and register call.
	// Defaults to 2s.
	Timeout time.Duration
	// InvalidationTimeout bounds each invalidate call. Defaults to 5s.
	InvalidationTimeout time.Duration
	// InvalidationWorkers and InvalidationQueue size the background pool
	// running invalidate and register calls. Default to 4 and 1024.
	InvalidationWorkers int
	InvalidationQueue   int
	// SyncInvalidation runs invalidate and register calls inline, before the
	// statement returns to the caller.
	SyncInvalidation bool
	// Logger receives caching apparatus failures. Defaults to NopLogger.
	Logger Logger
	// OnError is called whenever the analyzer or the cache backend returns
	// an error. Such errors never reach the caller of the statement.
	OnError func(error)
}

// Interceptor is a ngrok/sqlmw interceptor that serves opted-in reads from
// cache and invalidates cached reads when writes succeed.
type Interceptor struct {
	c                   cache.Cacher
	analyzer            analysis.Service
	strategy            *strategy.Strategy
	prefix              string
	classifier          classifier
	timeout             time.Duration
	invalidationTimeout time.Duration
	dispatcher          *dispatcher
	log                 Logger
	onErr               func(error)
	stats               Stats
	disabled            int32
	sqlmw.NullInterceptor
}

// NewInterceptor returns a new instance of readcache interceptor initialised
// with the provided config.
func NewInterceptor(config *Config) (*Interceptor, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if config.Cache == nil {
		return nil, ErrNilCache
	}
	if config.Analyzer == nil {
		return nil, ErrNilAnalyzer
	}

	cfg := *config
	if cfg.Strategy == nil {
		s, err := strategy.New(strategy.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("default strategy: %w", err)
		}
		cfg.Strategy = s
	}
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.Marker == "" {
		cfg.Marker = defaultMarker
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.InvalidationTimeout <= 0 {
		cfg.InvalidationTimeout = defaultInvalidationTimeout
	}
	if cfg.InvalidationWorkers <= 0 {
		cfg.InvalidationWorkers = defaultInvalidationWorkers
	}
	if cfg.InvalidationQueue <= 0 {
		cfg.InvalidationQueue = defaultInvalidationQueue
	}
	if cfg.Logger == nil {
		cfg.Logger = NopLogger{}
	}

	return &Interceptor{
		c:                   cfg.Cache,
		analyzer:            cfg.Analyzer,
		strategy:            cfg.Strategy,
		prefix:              cfg.Prefix,
		classifier:          newClassifier(cfg.Marker),
		timeout:             cfg.Timeout,
		invalidationTimeout: cfg.InvalidationTimeout,
		dispatcher:          newDispatcher(cfg.InvalidationWorkers, cfg.InvalidationQueue, cfg.SyncInvalidation),
		log:                 cfg.Logger,
		onErr:               cfg.OnError,
	}, nil
}

// Driver wraps d so that every connection it opens is intercepted.
func (i *Interceptor) Driver(d driver.Driver) driver.Driver {
	return sqlmw.Driver(d, i)
}

// Enable enables the interceptor. Interceptor instance is enabled by default
// on creation.
func (i *Interceptor) Enable() {
	atomic.StoreInt32(&i.disabled, 0)
}

// Disable disables read caching: every read goes directly to the SQL
// backend. Successful writes still invalidate so that cached entries do not
// outlive a later Enable.
func (i *Interceptor) Disable() {
	atomic.StoreInt32(&i.disabled, 1)
}

// Close waits for pending invalidate and register calls. Statements executed
// after Close run those calls inline.
func (i *Interceptor) Close() error {
	i.dispatcher.close()
	return nil
}

// Key returns the cache key for a fingerprint.
func (i *Interceptor) Key(fingerprint string) string {
	return i.prefix + "_" + fingerprint
}

// StmtQueryContext intercepts database/sql's stmt.QueryContext calls from a prepared statement.
func (i *Interceptor) StmtQueryContext(ctx context.Context, conn driver.StmtQueryContext, query string, args []driver.NamedValue) (driver.Rows, error) {
	return i.query(ctx, query, args, func(ctx context.Context) (driver.Rows, error) {
		return conn.QueryContext(ctx, args)
	})
}

// ConnQueryContext intercepts database/sql's DB.QueryContext Conn.QueryContext calls.
func (i *Interceptor) ConnQueryContext(ctx context.Context, conn driver.QueryerContext, query string, args []driver.NamedValue) (driver.Rows, error) {
	return i.query(ctx, query, args, func(ctx context.Context) (driver.Rows, error) {
		return conn.QueryContext(ctx, query, args)
	})
}

// StmtExecContext intercepts database/sql's stmt.ExecContext calls from a prepared statement.
func (i *Interceptor) StmtExecContext(ctx context.Context, conn driver.StmtExecContext, query string, args []driver.NamedValue) (driver.Result, error) {
	return i.exec(ctx, query, args, func(ctx context.Context) (driver.Result, error) {
		return conn.ExecContext(ctx, args)
	})
}

// ConnExecContext intercepts database/sql's DB.ExecContext Conn.ExecContext calls.
func (i *Interceptor) ConnExecContext(ctx context.Context, conn driver.ExecerContext, query string, args []driver.NamedValue) (driver.Result, error) {
	return i.exec(ctx, query, args, func(ctx context.Context) (driver.Result, error) {
		return conn.ExecContext(ctx, query, args)
	})
}

func (i *Interceptor) exec(ctx context.Context, query string, args []driver.NamedValue, run func(context.Context) (driver.Result, error)) (driver.Result, error) {
	res, err := run(ctx)
	if err == nil && i.classifier.classify(query) == statementWrite {
		i.invalidate(query, args)
	}
	return res, err
}

func (i *Interceptor) query(ctx context.Context, query string, args []driver.NamedValue, run func(context.Context) (driver.Rows, error)) (driver.Rows, error) {
	switch i.classifier.classify(query) {
	case statementWrite:
		// e.g. INSERT ... RETURNING
		rows, err := run(ctx)
		if err == nil {
			i.invalidate(query, args)
		}
		return rows, err
	case statementPlain:
		atomic.AddUint64(&i.stats.Bypasses, 1)
		return run(ctx)
	}

	if atomic.LoadInt32(&i.disabled) == 1 || i.strategy.Excluded(query) {
		atomic.AddUint64(&i.stats.Bypasses, 1)
		return run(ctx)
	}

	a, err := i.analyze(ctx, query, args)
	if err != nil {
		i.fail("Analyzer.Analyze", err, Fields{"query": query})
		return i.fallback(ctx, run)
	}

	if a.OperationType != analysis.OperationRead {
		i.log.Debug("readcache: marked statement is not a read", Fields{"query": query, "operation_type": a.OperationType})
		return i.fallback(ctx, run)
	}

	if !i.strategy.ShouldCache(a) || a.Fingerprint() == "" {
		atomic.AddUint64(&i.stats.Bypasses, 1)
		return run(ctx)
	}

	key := i.Key(a.Fingerprint())
	if cached, err := i.checkCache(ctx, key); err != nil {
		return i.fallback(ctx, run)
	} else if cached != nil {
		return cached, nil
	}

	rows, err := run(ctx)
	if err != nil {
		return rows, err
	}
	if hasMoreResultSets(rows) {
		return rows, nil
	}

	item, err := materialize(rows)
	if err != nil {
		// the driver error is authoritative; replay what was read before it
		result := NewCachedResult(item)
		result.err = err
		return result, nil
	}

	attrs := getAttrs(query)
	if attrs.maxRows > 0 && len(item.Rows) > attrs.maxRows {
		return NewCachedResult(item), nil
	}

	i.store(ctx, key, query, args, item, i.strategy.TTL(a))

	return NewCachedResult(item), nil
}

func (i *Interceptor) analyze(ctx context.Context, query string, args []driver.NamedValue) (*analysis.QueryAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	a, err := i.analyzer.Analyze(ctx, query, args)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("nil analysis")
	}
	return a, nil
}

func (i *Interceptor) checkCache(ctx context.Context, key string) (driver.Rows, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	item, ok, err := i.c.Get(ctx, key)
	if err != nil {
		i.fail("Cache.Get", err, Fields{"key": key})
		return nil, err
	}

	if !ok || item == nil {
		atomic.AddUint64(&i.stats.Misses, 1)
		return nil, nil
	}
	atomic.AddUint64(&i.stats.Hits, 1)

	return NewCachedResult(item), nil
}

// store writes the item to cache and then registers it with the analysis
// service in the background. A failed write skips registration; neither
// failure reaches the caller, who already holds the rows. The statement is
// not re-run when the write fails.
func (i *Interceptor) store(ctx context.Context, key, query string, args []driver.NamedValue, item *cache.Item, ttl time.Duration) {
	args = copyArgs(args)
	setCtx, cancel := context.WithTimeout(ctx, i.timeout)
	err := i.c.Set(setCtx, key, item, ttl)
	cancel()
	if err != nil {
		i.fail("Cache.Set", err, Fields{"key": key})
		return
	}

	i.dispatcher.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), i.timeout)
		defer cancel()

		if err := i.analyzer.Register(ctx, query, args, item, ttl); err != nil {
			i.fail("Analyzer.Register", err, Fields{"key": key})
		}
	})
}

func (i *Interceptor) invalidate(query string, args []driver.NamedValue) {
	// the caller may reuse its buffers once the statement returns
	args = copyArgs(args)
	i.dispatcher.submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), i.invalidationTimeout)
		defer cancel()

		atomic.AddUint64(&i.stats.Invalidations, 1)
		if err := i.analyzer.Invalidate(ctx, query, args); err != nil {
			atomic.AddUint64(&i.stats.InvalidationErrors, 1)
			i.log.Error("readcache: invalidation failed", Fields{"query": query, "error": err.Error()})
			if i.onErr != nil {
				i.onErr(fmt.Errorf("Analyzer.Invalidate failed: %w", err))
			}
			return
		}
		i.log.Debug("readcache: invalidated", Fields{"query": query})
	})
}

// copyArgs returns a copy of args that shares no []byte with the caller.
func copyArgs(args []driver.NamedValue) []driver.NamedValue {
	if args == nil {
		return nil
	}
	out := make([]driver.NamedValue, len(args))
	for n, a := range args {
		if b, ok := a.Value.([]byte); ok {
			a.Value = append([]byte(nil), b...)
		}
		out[n] = a
	}
	return out
}

func (i *Interceptor) fallback(ctx context.Context, run func(context.Context) (driver.Rows, error)) (driver.Rows, error) {
	atomic.AddUint64(&i.stats.Fallbacks, 1)
	i.log.Debug("readcache: falling back to database", nil)
	return run(ctx)
}

func (i *Interceptor) fail(op string, err error, f Fields) {
	atomic.AddUint64(&i.stats.Errors, 1)
	f["error"] = err.Error()
	i.log.Warn("readcache: "+op+" failed", f)
	if i.onErr != nil {
		i.onErr(fmt.Errorf("%s failed: %w", op, err))
	}
}

// Stats contains readcache statistics.
type Stats struct {
	Hits               uint64
	Misses             uint64
	Bypasses           uint64
	Fallbacks          uint64
	Errors             uint64
	Invalidations      uint64
	InvalidationErrors uint64
}

// Stats returns readcache stats.
func (i *Interceptor) Stats() *Stats {
	return &Stats{
		Hits:               atomic.LoadUint64(&i.stats.Hits),
		Misses:             atomic.LoadUint64(&i.stats.Misses),
		Bypasses:           atomic.LoadUint64(&i.stats.Bypasses),
		Fallbacks:          atomic.LoadUint64(&i.stats.Fallbacks),
		Errors:             atomic.LoadUint64(&i.stats.Errors),
		Invalidations:      atomic.LoadUint64(&i.stats.Invalidations),
		InvalidationErrors: atomic.LoadUint64(&i.stats.InvalidationErrors),
	}
}

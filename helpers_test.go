package readcache

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prashanthpai/readcache/analysis"
	"github.com/prashanthpai/readcache/cache"
	"github.com/prashanthpai/readcache/mocks"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// memCache is a concurrency safe in-memory cache.Cacher that records calls.
type memCache struct {
	mu   sync.Mutex
	m    map[string]*cache.Item
	ttls map[string]time.Duration
	gets int
	sets int
	dels int
}

var _ cache.Cacher = (*memCache)(nil)

func newMemCache() *memCache {
	return &memCache{
		m:    make(map[string]*cache.Item),
		ttls: make(map[string]time.Duration),
	}
}

func (c *memCache) Get(_ context.Context, key string) (*cache.Item, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	item, ok := c.m[key]
	return item, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, item *cache.Item, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.m[key] = item.Clone()
	c.ttls[key] = ttl
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dels++
	delete(c.m, key)
	delete(c.ttls, key)
	return nil
}

func (c *memCache) keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.m))
	for k := range c.m {
		out = append(out, k)
	}
	return out
}

func (c *memCache) ttl(key string) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttls[key]
}

func readAnalysis(fingerprint string, typ analysis.KeyType, tables ...string) *analysis.QueryAnalysis {
	refs := make([]analysis.TableRef, 0, len(tables))
	for _, t := range tables {
		refs = append(refs, analysis.TableRef{Table: t})
	}
	return &analysis.QueryAnalysis{
		OperationType: analysis.OperationRead,
		CacheKey:      &analysis.CacheKey{Fingerprint: fingerprint, Type: typ, Tables: refs},
	}
}

type testEnv struct {
	db   *sql.DB
	mock sqlmock.Sqlmock
	ic   *Interceptor
	svc  *mocks.Service
}

// newTestEnv wraps a sqlmock driver with an interceptor built from cfg. A
// mocks.Service and a memCache are used when cfg leaves them unset.
func newTestEnv(t *testing.T, cfg Config) *testEnv {
	t.Helper()
	assert := require.New(t)

	dsn := fmt.Sprintf("fakeDSN:%s", t.Name())
	mockDB, qMock, err := sqlmock.NewWithDSN(dsn, sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	assert.Nil(err)
	t.Cleanup(func() { mockDB.Close() })

	svc, _ := cfg.Analyzer.(*mocks.Service)
	if cfg.Analyzer == nil {
		svc = new(mocks.Service)
		cfg.Analyzer = svc
	}
	if cfg.Cache == nil {
		cfg.Cache = newMemCache()
	}

	ic, err := NewInterceptor(&cfg)
	assert.Nil(err)
	t.Cleanup(func() { ic.Close() })

	driverName := fmt.Sprintf("mockdriver:%s", t.Name())
	sql.Register(driverName, ic.Driver(mockDB.Driver()))

	db, err := sql.Open(driverName, dsn)
	assert.Nil(err)
	t.Cleanup(func() { db.Close() })

	return &testEnv{db: db, mock: qMock, ic: ic, svc: svc}
}

func scanNames(t *testing.T, rows *sql.Rows) []string {
	t.Helper()
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.Nil(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.Nil(t, rows.Err())
	return names
}

func runQuery(t *testing.T, env *testEnv, query string, dbHitExpected bool) {
	t.Helper()

	if dbHitExpected {
		env.mock.ExpectQuery(query).WithArgs(18).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("John").AddRow("Lisa"))
	}

	rows, err := env.db.QueryContext(context.Background(), query, 18)
	require.Nil(t, err)

	require.Equal(t, []string{"John", "Lisa"}, scanNames(t, rows))
	require.Nil(t, env.mock.ExpectationsWereMet())
}

func runQueryPrepared(t *testing.T, env *testEnv, query string, dbHitExpected bool) {
	t.Helper()

	env.mock.ExpectPrepare(query)
	if dbHitExpected {
		env.mock.ExpectQuery(query).WithArgs(18).
			WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("John").AddRow("Lisa"))
	}

	stmt, err := env.db.PrepareContext(context.Background(), query)
	require.Nil(t, err)
	defer stmt.Close()

	rows, err := stmt.QueryContext(context.Background(), 18)
	require.Nil(t, err)

	require.Equal(t, []string{"John", "Lisa"}, scanNames(t, rows))
	require.Nil(t, env.mock.ExpectationsWereMet())
}

var args18 = []driver.NamedValue{{Ordinal: 1, Value: int64(18)}}

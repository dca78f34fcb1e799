/*
Package readcache provides a caching middleware for database/sql users. Reads
that opt in are served from a shared cache, and writes invalidate the cached
reads they affect. Deciding what a statement touches and which cached reads a
write makes stale is delegated to a remote analysis service; this package
only enforces its answers.

Usage:

	import (
		"database/sql"

		"github.com/jackc/pgx/v4/stdlib"
		"github.com/prashanthpai/readcache"
		"github.com/prashanthpai/readcache/analysis"
		"github.com/redis/go-redis/v9"
	)

	func main() {
		...
		rc := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{"127.0.0.1:6379"},
		})

		client, err := analysis.NewClient(analysis.Config{
			BaseURL: "http://127.0.0.1:8090",
		})
		...

		// create a readcache.Interceptor instance with the desired backend
		interceptor, err := readcache.NewInterceptor(&readcache.Config{
			Cache:    readcache.NewRedis(rc, nil),
			Analyzer: client,
		})
		...
		defer interceptor.Close()

		// wrap pgx driver with the interceptor and register it
		sql.Register("pgx-with-cache", interceptor.Driver(stdlib.GetDefaultDriver()))

		// open the database using the wrapped driver
		db, err := sql.Open("pgx-with-cache", dsn)
		...
	}

Only reads carrying the "@cache" marker (case-insensitive, usually inside a
SQL comment) are considered for caching. Statements starting with INSERT,
UPDATE or DELETE are executed and then reported to the analysis service for
invalidation. Everything else passes through untouched.

Example query:

	rows, err := db.QueryContext(context.TODO(), `
		-- @cache
		-- @cache-max-rows 10
		SELECT name, pages FROM books WHERE pages > $1`, 100)

The interceptor never deletes cache entries itself. Invalidate only tells the
analysis service about a write; stale entries are evicted because the service
deletes the {Prefix}_{fingerprint} keys it registered from the same store the
interceptor reads. Use a store shared with the service, such as Redis. A
private ristretto or bigcache instance is only evicted by its own TTL or life
window, or by code calling Cacher.Delete.

Failures of the analysis service or of the cache backend never fail a
statement: the interceptor falls back to the database and reports the error
through Config.Logger and Config.OnError.
*/
package readcache

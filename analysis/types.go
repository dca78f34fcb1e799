package analysis

import (
	"context"
	"database/sql/driver"
	"strconv"
	"time"

	"github.com/prashanthpai/readcache/cache"
)

// OperationType is the service's classification of a statement.
type OperationType string

const (
	OperationRead    OperationType = "read"
	OperationWrite   OperationType = "write"
	OperationUnknown OperationType = "unknown"
)

// KeyType describes the shape of the query a cache key was derived from.
type KeyType string

const (
	KeyRowLookup   KeyType = "row-lookup"
	KeySimpleWhere KeyType = "simple-where"
	KeyTableScan   KeyType = "table-scan"
	KeyJoin        KeyType = "join"
	KeyUpdate      KeyType = "update"
)

// TableRef names a table touched by a statement.
type TableRef struct {
	Table string `json:"table"`
}

// CacheKey is the service computed identity of a read. The first entry of
// Tables is the primary (FROM clause) table.
type CacheKey struct {
	Fingerprint string     `json:"fingerprint"`
	Type        KeyType    `json:"type"`
	Tables      []TableRef `json:"tables"`
}

// QueryAnalysis is the result of analyzing one execution of a statement.
// It is never persisted.
type QueryAnalysis struct {
	OperationType OperationType `json:"operation_type"`
	CacheKey      *CacheKey     `json:"cache_key,omitempty"`
}

// Fingerprint returns the cache key fingerprint or "" when absent.
func (a *QueryAnalysis) Fingerprint() string {
	if a == nil || a.CacheKey == nil {
		return ""
	}
	return a.CacheKey.Fingerprint
}

// Tables returns the table names in the order reported by the service.
func (a *QueryAnalysis) Tables() []string {
	if a == nil || a.CacheKey == nil {
		return nil
	}
	out := make([]string, 0, len(a.CacheKey.Tables))
	for _, t := range a.CacheKey.Tables {
		out = append(out, t.Table)
	}
	return out
}

// Result is the row set exchanged with the service on register and cache
// lookups.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewResult converts a cached item into its wire form.
func NewResult(item *cache.Item) *Result {
	if item == nil {
		return nil
	}
	r := &Result{
		Columns: item.Cols,
		Rows:    make([][]any, len(item.Rows)),
	}
	for n, row := range item.Rows {
		vals := make([]any, len(row))
		for c, v := range row {
			vals[c] = v
		}
		r.Rows[n] = vals
	}
	return r
}

// Service is the subset of the analysis service used on the statement
// execution path.
type Service interface {
	Analyze(ctx context.Context, query string, args []driver.NamedValue) (*QueryAnalysis, error)
	Register(ctx context.Context, query string, args []driver.NamedValue, item *cache.Item, ttl time.Duration) error
	Invalidate(ctx context.Context, query string, args []driver.NamedValue) error
}

// Params converts bound arguments to their JSON form. Positional arguments
// become an array ordered by ordinal; if any argument is named the result is
// an object keyed by name (unnamed ones keyed by ordinal). A nil slice maps to
// JSON null and an empty one to an empty array.
func Params(args []driver.NamedValue) any {
	if args == nil {
		return nil
	}

	named := false
	for _, a := range args {
		if a.Name != "" {
			named = true
			break
		}
	}

	if !named {
		out := make([]any, len(args))
		for n, a := range args {
			idx := n
			if a.Ordinal > 0 && a.Ordinal <= len(args) {
				idx = a.Ordinal - 1
			}
			out[idx] = a.Value
		}
		return out
	}

	out := make(map[string]any, len(args))
	for _, a := range args {
		key := a.Name
		if key == "" {
			key = strconv.Itoa(a.Ordinal)
		}
		out[key] = a.Value
	}
	return out
}

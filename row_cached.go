package readcache

import (
	"database/sql/driver"
	"io"

	"github.com/prashanthpai/readcache/cache"
)

// CachedResult is an in-memory cursor over a fixed row set. It implements
// driver.Rows and owns a private copy of its rows, so it is independent of
// the cache backend and the database once constructed.
type CachedResult struct {
	cols []string
	rows [][]driver.Value
	ptr  int
	// err is returned by Next once the rows are exhausted
	err error
}

var _ driver.Rows = (*CachedResult)(nil)

// NewCachedResult returns a CachedResult over a copy of item.
func NewCachedResult(item *cache.Item) *CachedResult {
	cpy := item.Clone()
	if cpy == nil {
		return &CachedResult{}
	}
	return &CachedResult{cols: cpy.Cols, rows: cpy.Rows}
}

func (r *CachedResult) Columns() []string {
	return r.cols
}

func (r *CachedResult) Next(dest []driver.Value) error {
	if r.ptr >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}

	copy(dest, r.rows[r.ptr])
	r.ptr++

	return nil
}

// Close disposes of the row set. Counts report zero afterwards and fetches
// report exhaustion.
func (r *CachedResult) Close() error {
	r.cols = nil
	r.rows = nil
	r.ptr = 0
	r.err = nil
	return nil
}

// Fetch returns the row under the cursor and advances it. ok is false once
// the rows are exhausted.
func (r *CachedResult) Fetch() (row []driver.Value, ok bool) {
	if r.ptr >= len(r.rows) {
		return nil, false
	}
	row = cache.CopyRow(r.rows[r.ptr])
	r.ptr++
	return row, true
}

// FetchAll returns every row regardless of the cursor position.
func (r *CachedResult) FetchAll() [][]driver.Value {
	out := make([][]driver.Value, len(r.rows))
	for n, row := range r.rows {
		out[n] = cache.CopyRow(row)
	}
	return out
}

// FetchColumn returns the first column of every row.
func (r *CachedResult) FetchColumn() []driver.Value {
	out := make([]driver.Value, 0, len(r.rows))
	for _, row := range r.rows {
		if len(row) == 0 {
			out = append(out, nil)
			continue
		}
		out = append(out, cache.CopyRow(row[:1])[0])
	}
	return out
}

// FetchScalar returns the first column of the first row.
func (r *CachedResult) FetchScalar() (driver.Value, bool) {
	if len(r.rows) == 0 || len(r.rows[0]) == 0 {
		return nil, false
	}
	return cache.CopyRow(r.rows[0][:1])[0], true
}

// RowCount returns the number of rows.
func (r *CachedResult) RowCount() int {
	return len(r.rows)
}

// ColumnCount returns the arity of the first row; zero rows means zero
// columns.
func (r *CachedResult) ColumnCount() int {
	if len(r.rows) == 0 {
		return 0
	}
	return len(r.rows[0])
}

package readcache

import (
	"database/sql/driver"
	"io"

	"github.com/prashanthpai/readcache/cache"
)

// materialize drains rows into an item and closes them. On a driver error
// the rows read so far are returned together with the error.
func materialize(rows driver.Rows) (*cache.Item, error) {
	cols := rows.Columns()
	item := &cache.Item{Cols: append([]string(nil), cols...)}

	dest := make([]driver.Value, len(cols))
	for {
		err := rows.Next(dest)
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = rows.Close()
			return item, err
		}
		// drivers may reuse dest and its byte buffers between calls
		item.Rows = append(item.Rows, cache.CopyRow(dest))
	}

	if err := rows.Close(); err != nil {
		return item, err
	}

	return item, nil
}

// hasMoreResultSets reports whether rows carry more than one result set.
// Only single result sets are cached.
func hasMoreResultSets(rows driver.Rows) bool {
	mrs, ok := rows.(driver.RowsNextResultSet)
	return ok && mrs.HasNextResultSet()
}

// Package codec serializes cached row sets for byte oriented cache backends.
//
// Values are written in a tagged form so that every driver.Value type
// (int64, float64, bool, []byte, string, time.Time and nil) decodes back to
// the exact type and value that was stored.
package codec

import "github.com/prashanthpai/readcache/cache"

// Codec encodes/decodes cache items to []byte for storage.
type Codec interface {
	Encode(*cache.Item) ([]byte, error)
	Decode([]byte) (*cache.Item, error)
}

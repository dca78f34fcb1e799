package codec

import (
	"github.com/prashanthpai/readcache/cache"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is a Codec that serializes items using vmihailenco/msgpack/v5.
// The zero value is ready to use.
type Msgpack struct{}

var _ Codec = Msgpack{}

func (Msgpack) Encode(item *cache.Item) ([]byte, error) {
	w, err := toWire(item)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(w)
}

func (Msgpack) Decode(b []byte) (*cache.Item, error) {
	var w wireItem
	if err := msgpack.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return fromWire(&w)
}

package codec

import (
	"fmt"

	"github.com/prashanthpai/readcache/cache"
)

// Limit wraps another codec to enforce a maximum allowed payload size at
// Decode time. Encode is forwarded to Inner unchanged.
// If MaxDecode <= 0, size limiting is disabled.
type Limit struct {
	Inner     Codec
	MaxDecode int
}

var _ Codec = Limit{}

func (c Limit) Encode(item *cache.Item) ([]byte, error) { return c.Inner.Encode(item) }

func (c Limit) Decode(b []byte) (*cache.Item, error) {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		return nil, fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b)
}

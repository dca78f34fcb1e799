package codec

import (
	"github.com/prashanthpai/readcache/cache"

	"github.com/fxamacker/cbor/v2"
)

// CBOR is a Codec that serializes items using fxamacker/cbor.
// The zero value is NOT ready to use. Construct with NewCBOR or MustCBOR.
//
// Use deterministic=true for canonical encoding (RFC 8949 Core Deterministic)
// when byte-for-byte stable outputs are needed.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var _ Codec = CBOR{}

// NewCBOR constructs a CBOR codec.
func NewCBOR(deterministic bool) (CBOR, error) {
	var eo cbor.EncOptions
	if deterministic {
		eo = cbor.CoreDetEncOptions()
	} else {
		eo = cbor.PreferredUnsortedEncOptions()
	}

	em, err := eo.EncMode()
	if err != nil {
		return CBOR{}, err
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return CBOR{}, err
	}
	return CBOR{enc: em, dec: dm}, nil
}

// MustCBOR is like NewCBOR but panics on error.
func MustCBOR(deterministic bool) CBOR {
	c, err := NewCBOR(deterministic)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CBOR) Encode(item *cache.Item) ([]byte, error) {
	w, err := toWire(item)
	if err != nil {
		return nil, err
	}
	return c.enc.Marshal(w)
}

func (c CBOR) Decode(b []byte) (*cache.Item, error) {
	var w wireItem
	if err := c.dec.Unmarshal(b, &w); err != nil {
		return nil, err
	}
	return fromWire(&w)
}

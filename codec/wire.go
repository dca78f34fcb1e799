package codec

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/prashanthpai/readcache/cache"
)

type kind uint8

const (
	kindNull kind = iota
	kindInt
	kindUint
	kindFloat
	kindBool
	kindBytes
	kindString
	kindTime
)

type wireValue struct {
	K kind    `msgpack:"k" cbor:"1,keyasint"`
	I int64   `msgpack:"i,omitempty" cbor:"2,keyasint,omitempty"`
	U uint64  `msgpack:"u,omitempty" cbor:"3,keyasint,omitempty"`
	F float64 `msgpack:"f,omitempty" cbor:"4,keyasint,omitempty"`
	B []byte  `msgpack:"b,omitempty" cbor:"5,keyasint,omitempty"`
	S string  `msgpack:"s,omitempty" cbor:"6,keyasint,omitempty"`
}

type wireItem struct {
	Cols []string      `msgpack:"c" cbor:"1,keyasint"`
	Rows [][]wireValue `msgpack:"r" cbor:"2,keyasint"`
}

func toWire(item *cache.Item) (*wireItem, error) {
	if item == nil {
		return nil, fmt.Errorf("nil item")
	}

	w := &wireItem{
		Cols: item.Cols,
		Rows: make([][]wireValue, len(item.Rows)),
	}
	for r, row := range item.Rows {
		wr := make([]wireValue, len(row))
		for c, v := range row {
			wv, err := encodeValue(v)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", r, c, err)
			}
			wr[c] = wv
		}
		w.Rows[r] = wr
	}

	return w, nil
}

func fromWire(w *wireItem) (*cache.Item, error) {
	item := &cache.Item{
		Cols: w.Cols,
		Rows: make([][]driver.Value, len(w.Rows)),
	}
	for r, wr := range w.Rows {
		row := make([]driver.Value, len(wr))
		for c, wv := range wr {
			v, err := decodeValue(wv)
			if err != nil {
				return nil, fmt.Errorf("row %d column %d: %w", r, c, err)
			}
			row[c] = v
		}
		item.Rows[r] = row
	}

	return item, nil
}

func encodeValue(v driver.Value) (wireValue, error) {
	switch x := v.(type) {
	case nil:
		return wireValue{K: kindNull}, nil
	case int64:
		return wireValue{K: kindInt, I: x}, nil
	case int:
		return wireValue{K: kindInt, I: int64(x)}, nil
	case int32:
		return wireValue{K: kindInt, I: int64(x)}, nil
	case uint64:
		return wireValue{K: kindUint, U: x}, nil
	case float64:
		return wireValue{K: kindFloat, F: x}, nil
	case float32:
		return wireValue{K: kindFloat, F: float64(x)}, nil
	case bool:
		if x {
			return wireValue{K: kindBool, I: 1}, nil
		}
		return wireValue{K: kindBool}, nil
	case []byte:
		if x == nil {
			return wireValue{K: kindNull}, nil
		}
		return wireValue{K: kindBytes, B: x}, nil
	case string:
		return wireValue{K: kindString, S: x}, nil
	case time.Time:
		b, err := x.MarshalBinary()
		if err != nil {
			return wireValue{}, err
		}
		return wireValue{K: kindTime, B: b}, nil
	default:
		return wireValue{}, fmt.Errorf("unsupported value type %T", v)
	}
}

func decodeValue(w wireValue) (driver.Value, error) {
	switch w.K {
	case kindNull:
		return nil, nil
	case kindInt:
		return w.I, nil
	case kindUint:
		return w.U, nil
	case kindFloat:
		return w.F, nil
	case kindBool:
		return w.I == 1, nil
	case kindBytes:
		// omitempty drops zero length slices
		if w.B == nil {
			return []byte{}, nil
		}
		return w.B, nil
	case kindString:
		return w.S, nil
	case kindTime:
		var t time.Time
		if err := t.UnmarshalBinary(w.B); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown value kind %d", w.K)
	}
}

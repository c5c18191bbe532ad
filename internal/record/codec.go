package record

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	ErrSchemaMismatch  = errors.New("record: schema/values mismatch")
	ErrBadBuffer       = errors.New("record: buffer underflow")
	ErrVarTooLong      = errors.New("record: variable length exceeds u16")
	ErrUnsupportedType = errors.New("record: unsupported column type")
)

// Encode serializes one row against its schema.
// Format: [nullmap: ceil(N/8) bytes, bit=1 => NULL] then field data in column
// order. Fixed-width fields are little-endian; TEXT/BYTES are u16 length + data.
func Encode(s Schema, values []any) ([]byte, error) {
	nc := s.NumCols()
	if len(values) != nc {
		return nil, ErrSchemaMismatch
	}

	nullmap := make([]byte, (nc+7)/8)
	var body []byte

	for i, col := range s.Cols {
		v := values[i]
		if v == nil {
			if !col.Nullable {
				return nil, ErrSchemaMismatch
			}
			nullmap[i/8] |= 1 << (uint(i) & 7)
			continue
		}

		var err error
		body, err = appendField(body, col.Type, v)
		if err != nil {
			return nil, err
		}
	}
	return append(nullmap, body...), nil
}

func appendField(out []byte, ct ColumnType, v any) ([]byte, error) {
	switch ct {
	case ColInt32:
		x, ok := asInt32(v)
		if !ok {
			return nil, ErrSchemaMismatch
		}
		return binary.LittleEndian.AppendUint32(out, uint32(x)), nil

	case ColInt64:
		x, ok := asInt64(v)
		if !ok {
			return nil, ErrSchemaMismatch
		}
		return binary.LittleEndian.AppendUint64(out, uint64(x)), nil

	case ColBool:
		x, ok := v.(bool)
		if !ok {
			return nil, ErrSchemaMismatch
		}
		if x {
			return append(out, 1), nil
		}
		return append(out, 0), nil

	case ColFloat64:
		x, ok := asFloat64(v)
		if !ok {
			return nil, ErrSchemaMismatch
		}
		return binary.LittleEndian.AppendUint64(out, math.Float64bits(x)), nil

	case ColText:
		str, ok := v.(string)
		if !ok {
			return nil, ErrSchemaMismatch
		}
		return appendVarlen(out, []byte(str))

	case ColBytes:
		bs, ok := v.([]byte)
		if !ok {
			return nil, ErrSchemaMismatch
		}
		return appendVarlen(out, bs)
	}
	return nil, ErrUnsupportedType
}

func appendVarlen(out, bs []byte) ([]byte, error) {
	if len(bs) > math.MaxUint16 {
		return nil, ErrVarTooLong
	}
	out = binary.LittleEndian.AppendUint16(out, uint16(len(bs)))
	return append(out, bs...), nil
}

// Decode deserializes one row previously produced by Encode with the same
// schema version.
func Decode(s Schema, buf []byte) ([]any, error) {
	nc := s.NumCols()
	nb := (nc + 7) / 8
	if len(buf) < nb {
		return nil, ErrBadBuffer
	}
	nullmap := buf[:nb]
	rest := buf[nb:]

	out := make([]any, nc)
	for i, col := range s.Cols {
		if (nullmap[i/8]>>(uint(i)&7))&1 == 1 {
			continue
		}
		v, n, err := readField(rest, col.Type)
		if err != nil {
			return nil, err
		}
		out[i] = v
		rest = rest[n:]
	}
	return out, nil
}

func readField(buf []byte, ct ColumnType) (any, int, error) {
	switch ct {
	case ColInt32:
		if len(buf) < 4 {
			return nil, 0, ErrBadBuffer
		}
		return int32(binary.LittleEndian.Uint32(buf)), 4, nil

	case ColInt64:
		if len(buf) < 8 {
			return nil, 0, ErrBadBuffer
		}
		return int64(binary.LittleEndian.Uint64(buf)), 8, nil

	case ColBool:
		if len(buf) < 1 {
			return nil, 0, ErrBadBuffer
		}
		return buf[0] != 0, 1, nil

	case ColFloat64:
		if len(buf) < 8 {
			return nil, 0, ErrBadBuffer
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(buf)), 8, nil

	case ColText:
		bs, n, err := readVarlen(buf)
		if err != nil {
			return nil, 0, err
		}
		return string(bs), n, nil

	case ColBytes:
		bs, n, err := readVarlen(buf)
		if err != nil {
			return nil, 0, err
		}
		// copy to avoid aliasing the source buffer
		cp := make([]byte, len(bs))
		copy(cp, bs)
		return cp, n, nil
	}
	return nil, 0, ErrUnsupportedType
}

func readVarlen(buf []byte) ([]byte, int, error) {
	if len(buf) < 2 {
		return nil, 0, ErrBadBuffer
	}
	l := int(binary.LittleEndian.Uint16(buf))
	if len(buf) < 2+l {
		return nil, 0, ErrBadBuffer
	}
	return buf[2 : 2+l], 2 + l, nil
}

// encode accepts the handful of numeric Go types callers naturally pass.
func asInt32(v any) (int32, bool) {
	switch x := v.(type) {
	case int32:
		return x, true
	case int:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x), true
		}
	case int64:
		if x >= math.MinInt32 && x <= math.MaxInt32 {
			return int32(x), true
		}
	}
	return 0, false
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	}
	return 0, false
}

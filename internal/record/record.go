package record

import (
	"errors"
	"fmt"
)

var (
	ErrFieldIndex = errors.New("record: field index out of range")
	ErrFieldType  = errors.New("record: field type mismatch")
)

// Record is one logical row: a store-assigned identifier plus positional
// field values matching some schema's columns. The ID is stable for the
// record's lifetime and survives format migrations verbatim.
//
// Field values carry the dynamic Go type of their schema column; the typed
// accessors below validate index and type instead of letting call sites
// assert blindly.
type Record struct {
	ID     int64
	Values []any
}

func (r Record) Int64At(col int) (int64, error) {
	v, err := r.at(col)
	if err != nil {
		return 0, err
	}
	x, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%w: field %d is %T, want int64", ErrFieldType, col, v)
	}
	return x, nil
}

func (r Record) Int32At(col int) (int32, error) {
	v, err := r.at(col)
	if err != nil {
		return 0, err
	}
	x, ok := v.(int32)
	if !ok {
		return 0, fmt.Errorf("%w: field %d is %T, want int32", ErrFieldType, col, v)
	}
	return x, nil
}

// SetInt64At overwrites an int64 field in place.
func (r Record) SetInt64At(col int, v int64) error {
	if _, err := r.Int64At(col); err != nil {
		return err
	}
	r.Values[col] = v
	return nil
}

// SetInt32At overwrites an int32 field in place.
func (r Record) SetInt32At(col int, v int32) error {
	if _, err := r.Int32At(col); err != nil {
		return err
	}
	r.Values[col] = v
	return nil
}

func (r Record) at(col int) (any, error) {
	if col < 0 || col >= len(r.Values) {
		return nil, fmt.Errorf("%w: %d of %d", ErrFieldIndex, col, len(r.Values))
	}
	return r.Values[col], nil
}

package arrays

import (
	"fmt"

	"github.com/vdtran/dtstore/internal/record"
	"github.com/vdtran/dtstore/internal/store"
)

const versionV0 = 0

// V0 layout: no element-length column. Reads materialize records in the
// current shape with ElementLength = noElementLength.
const (
	v0DataTypeIDCol = iota
	v0DimCol
	v0CategoryIDCol
)

// noElementLength marks records written before the element-length column
// existed; higher layers recompute the length from the element type.
const noElementLength = int32(-1)

var v0Schema = record.Schema{
	Cols: []record.Column{
		{Name: "DataTypeID", Type: record.ColInt64},
		{Name: "Dim", Type: record.ColInt32},
		{Name: "CategoryID", Type: record.ColInt64},
	},
}

// adapterV0 is the read-only adapter over the V0 legacy format. It exists
// to back read-only legacy opens and the source side of a migration; every
// write operation except DeleteTable is rejected.
type adapterV0 struct {
	table *store.Table
	name  string
}

var _ Adapter = (*adapterV0)(nil)

func openV0(h *store.Handle, prefix string) (*adapterV0, error) {
	name := prefix + tableName
	tbl, ok := h.Table(name)
	if !ok {
		return nil, fmt.Errorf("arrays: %w: %s", store.ErrNoTable, name)
	}
	return &adapterV0{table: tbl, name: name}, nil
}

func (a *adapterV0) CreateRecord(int64, int32, int32, int64) (record.Record, error) {
	return record.Record{}, ErrReadOnly
}

func (a *adapterV0) Record(id int64) (record.Record, bool, error) {
	vals, ok := a.table.Get(id)
	if !ok {
		return record.Record{}, false, nil
	}
	rec, err := translateV0(id, vals)
	if err != nil {
		return record.Record{}, false, err
	}
	return rec, true, nil
}

func (a *adapterV0) Records() (RecordCursor, error) {
	return &v0Cursor{cur: a.table.Cursor()}, nil
}

func (a *adapterV0) RemoveRecord(int64) (bool, error) {
	return false, ErrReadOnly
}

func (a *adapterV0) UpdateRecord(record.Record) error {
	return ErrReadOnly
}

func (a *adapterV0) DeleteTable(h *store.Handle) error {
	return h.DeleteTable(a.name)
}

func (a *adapterV0) RecordIDsInCategory(categoryID int64) ([]int64, error) {
	return a.table.FindInt64(v0CategoryIDCol, categoryID)
}

func (a *adapterV0) Version() int { return versionV0 }

// translateV0 lifts a stored V0 row into the current column layout. The
// open-time layout guard makes field mismatches unreachable in practice,
// but the typed accessors keep a corrupt row an error instead of a panic.
func translateV0(id int64, vals []any) (record.Record, error) {
	stored := record.Record{ID: id, Values: vals}
	dt, err := stored.Int64At(v0DataTypeIDCol)
	if err != nil {
		return record.Record{}, err
	}
	dim, err := stored.Int32At(v0DimCol)
	if err != nil {
		return record.Record{}, err
	}
	cat, err := stored.Int64At(v0CategoryIDCol)
	if err != nil {
		return record.Record{}, err
	}
	return record.Record{
		ID:     id,
		Values: []any{dt, dim, noElementLength, cat},
	}, nil
}

type v0Cursor struct {
	cur *store.Cursor
	err error
}

func (c *v0Cursor) Next() (record.Record, bool) {
	if c.err != nil {
		return record.Record{}, false
	}
	id, vals, ok := c.cur.Next()
	if !ok {
		return record.Record{}, false
	}
	rec, err := translateV0(id, vals)
	if err != nil {
		c.err = err
		return record.Record{}, false
	}
	return rec, true
}

func (c *v0Cursor) Err() error { return c.err }

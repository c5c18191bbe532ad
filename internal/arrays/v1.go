package arrays

import (
	"fmt"

	"github.com/vdtran/dtstore/internal/record"
	"github.com/vdtran/dtstore/internal/store"
)

// currentVersion is the format every write-path adapter targets.
const currentVersion = 1

// V1 layout. The constant block and the schema below are the single source
// of truth for positional access in this version; they must stay in step.
const (
	v1DataTypeIDCol = iota
	v1DimCol
	v1ElementLengthCol
	v1CategoryIDCol
)

var v1Schema = record.Schema{
	Cols: []record.Column{
		{Name: "DataTypeID", Type: record.ColInt64},
		{Name: "Dim", Type: record.ColInt32},
		{Name: "ElementLength", Type: record.ColInt32},
		{Name: "CategoryID", Type: record.ColInt64},
	},
}

// adapterV1 is the read-write adapter for the current format.
type adapterV1 struct {
	table *store.Table
	name  string
}

var _ Adapter = (*adapterV1)(nil)

func createV1(h *store.Handle, prefix string) (*adapterV1, error) {
	name := prefix + tableName
	tbl, err := h.CreateTable(name, v1Schema, currentVersion)
	if err != nil {
		return nil, fmt.Errorf("arrays: create %s: %w", name, err)
	}
	return &adapterV1{table: tbl, name: name}, nil
}

func openV1(h *store.Handle, prefix string) (*adapterV1, error) {
	name := prefix + tableName
	tbl, ok := h.Table(name)
	if !ok {
		return nil, fmt.Errorf("arrays: %w: %s", store.ErrNoTable, name)
	}
	return &adapterV1{table: tbl, name: name}, nil
}

func (a *adapterV1) CreateRecord(dataTypeID int64, dim, elementLength int32, categoryID int64) (record.Record, error) {
	id := a.table.NewID()
	vals := []any{dataTypeID, dim, elementLength, categoryID}
	if err := a.table.Put(id, vals); err != nil {
		return record.Record{}, err
	}
	return record.Record{ID: id, Values: vals}, nil
}

func (a *adapterV1) Record(id int64) (record.Record, bool, error) {
	vals, ok := a.table.Get(id)
	if !ok {
		return record.Record{}, false, nil
	}
	return record.Record{ID: id, Values: vals}, true, nil
}

func (a *adapterV1) Records() (RecordCursor, error) {
	return &v1Cursor{cur: a.table.Cursor()}, nil
}

func (a *adapterV1) RemoveRecord(id int64) (bool, error) {
	return a.table.Delete(id), nil
}

func (a *adapterV1) UpdateRecord(rec record.Record) error {
	return a.table.Put(rec.ID, rec.Values)
}

func (a *adapterV1) DeleteTable(h *store.Handle) error {
	return h.DeleteTable(a.name)
}

func (a *adapterV1) RecordIDsInCategory(categoryID int64) ([]int64, error) {
	return a.table.FindInt64(v1CategoryIDCol, categoryID)
}

func (a *adapterV1) Version() int { return currentVersion }

type v1Cursor struct {
	cur *store.Cursor
}

func (c *v1Cursor) Next() (record.Record, bool) {
	id, vals, ok := c.cur.Next()
	if !ok {
		return record.Record{}, false
	}
	return record.Record{ID: id, Values: vals}, true
}

// rows are already in the current layout; nothing can fail mid-pass
func (c *v1Cursor) Err() error { return nil }

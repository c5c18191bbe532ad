package store

import (
	"slices"

	"github.com/vdtran/dtstore/internal/record"
)

// Table holds the records of one named table at one schema format version.
// Records are keyed by store-assigned int64 ids; iteration is in id order.
type Table struct {
	Name    string
	Schema  record.Schema
	Version int

	rows   map[int64][]any
	ids    []int64 // sorted ascending, mirrors rows keys
	nextID int64
}

func newTable(name string, schema record.Schema, version int) *Table {
	return &Table{
		Name:    name,
		Schema:  schema,
		Version: version,
		rows:    make(map[int64][]any),
		nextID:  1,
	}
}

// NewID allocates the next record identifier. Ids are never reused within
// the lifetime of a table, even after deletes.
func (t *Table) NewID() int64 {
	id := t.nextID
	t.nextID++
	return id
}

// Put upserts a row at the given id. The id may come from NewID or from
// another table's record (migration replay preserves source ids); the
// allocator is advanced past it either way.
func (t *Table) Put(id int64, values []any) error {
	if len(values) != t.Schema.NumCols() {
		return ErrRowShape
	}
	if _, ok := t.rows[id]; !ok {
		pos, _ := slices.BinarySearch(t.ids, id)
		t.ids = slices.Insert(t.ids, pos, id)
	}
	t.rows[id] = slices.Clone(values)
	if id >= t.nextID {
		t.nextID = id + 1
	}
	return nil
}

// Get returns a copy of the row stored at id, or false if absent.
func (t *Table) Get(id int64) ([]any, bool) {
	vals, ok := t.rows[id]
	if !ok {
		return nil, false
	}
	return slices.Clone(vals), true
}

// Delete removes the row at id and reports whether one existed.
func (t *Table) Delete(id int64) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	pos, found := slices.BinarySearch(t.ids, id)
	if found {
		t.ids = slices.Delete(t.ids, pos, pos+1)
	}
	return true
}

func (t *Table) Len() int { return len(t.rows) }

// Cursor returns a forward-only cursor over the table in id order. Only the
// id set is snapshotted at creation: a pass visits a stable id set even if
// rows are inserted behind it, rows deleted mid-pass are skipped, and value
// reads are live (an in-pass update is observed). Migration needs only the
// stable id set, since it never mutates the table it reads from.
func (t *Table) Cursor() *Cursor {
	return &Cursor{t: t, ids: slices.Clone(t.ids)}
}

// FindInt64 returns, in id order, the ids of all rows whose column col
// equals v. An empty result is not an error.
func (t *Table) FindInt64(col int, v int64) ([]int64, error) {
	if col < 0 || col >= t.Schema.NumCols() {
		return nil, ErrRowShape
	}
	var out []int64
	for _, id := range t.ids {
		x, ok := t.rows[id][col].(int64)
		if ok && x == v {
			out = append(out, id)
		}
	}
	return out, nil
}

// clone deep-copies the table for transaction snapshots.
func (t *Table) clone() *Table {
	cp := &Table{
		Name:    t.Name,
		Schema:  t.Schema,
		Version: t.Version,
		rows:    make(map[int64][]any, len(t.rows)),
		ids:     slices.Clone(t.ids),
		nextID:  t.nextID,
	}
	for id, vals := range t.rows {
		cp.rows[id] = slices.Clone(vals)
	}
	return cp
}

type Cursor struct {
	t   *Table
	ids []int64
	pos int
}

// Next returns the next live row, or ok=false when the pass is done.
func (c *Cursor) Next() (id int64, values []any, ok bool) {
	for c.pos < len(c.ids) {
		id = c.ids[c.pos]
		c.pos++
		if vals, live := c.t.Get(id); live {
			return id, vals, true
		}
	}
	return 0, nil, false
}

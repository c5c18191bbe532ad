// Package dtstore is the top-level facade over the embedded record store and
// its versioned table adapters.
package dtstore

import (
	"github.com/vdtran/dtstore/internal/arrays"
	"github.com/vdtran/dtstore/internal/record"
	"github.com/vdtran/dtstore/internal/store"
	"github.com/vdtran/dtstore/internal/task"
)

type (
	Handle   = store.Handle
	OpenMode = store.OpenMode
	Adapter  = arrays.Adapter
	Record   = record.Record
	Monitor  = task.Monitor
)

const (
	ModeCreate   = store.ModeCreate
	ModeUpdate   = store.ModeUpdate
	ModeReadOnly = store.ModeReadOnly
	ModeUpgrade  = store.ModeUpgrade
)

// NewHandle returns an in-memory store handle.
func NewHandle() *Handle { return store.NewHandle() }

// Open binds a store handle to a data directory.
func Open(dir string) (*Handle, error) { return store.Open(dir) }

// GetAdapter opens the array-type table per the requested mode; see
// arrays.GetAdapter for mode semantics.
func GetAdapter(h *Handle, mode OpenMode, tablePrefix string, mon Monitor) (Adapter, error) {
	return arrays.GetAdapter(h, mode, tablePrefix, mon)
}

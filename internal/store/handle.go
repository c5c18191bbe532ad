package store

import (
	"errors"
	"fmt"

	"github.com/vdtran/dtstore/internal/record"
)

var (
	ErrClosed        = errors.New("store: handle is closed")
	ErrTableExists   = errors.New("store: table already exists")
	ErrNoTable       = errors.New("store: no such table")
	ErrRowShape      = errors.New("store: row does not match table schema")
	ErrNoTransaction = errors.New("store: no matching open transaction")
)

// OpenMode declares the caller's intent when opening a versioned table.
type OpenMode int

const (
	ModeCreate OpenMode = iota
	ModeUpdate
	ModeReadOnly
	ModeUpgrade
)

func (m OpenMode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeUpdate:
		return "update"
	case ModeReadOnly:
		return "read-only"
	case ModeUpgrade:
		return "upgrade"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Handle owns a set of named tables and supplies transaction boundaries.
// One handle models one record store: either purely in-memory (scratch
// space, NewHandle) or bound to a data directory (Open) where committed
// state is persisted.
//
// The model is single-threaded: one active transaction at a time, no
// concurrent calls on the same handle.
type Handle struct {
	dir     string
	tables  map[string]*Table
	dropped map[string]bool // dir-bound: table files to remove at commit
	tx      *transaction
	lastTx  int64
	closed  bool
}

type transaction struct {
	id      int64
	tables  map[string]*Table
	dropped map[string]bool
}

// NewHandle returns an in-memory store handle. Nothing it holds survives
// Close; migration uses one as private scratch space.
func NewHandle() *Handle {
	return &Handle{
		tables:  make(map[string]*Table),
		dropped: make(map[string]bool),
	}
}

// Open binds a handle to a data directory, loading any tables persisted by
// earlier committed transactions.
func Open(dir string) (*Handle, error) {
	h := NewHandle()
	h.dir = dir
	if err := h.loadAll(); err != nil {
		return nil, fmt.Errorf("store: open %s: %w", dir, err)
	}
	return h, nil
}

// CreateTable registers a new table at the given schema format version.
func (h *Handle) CreateTable(name string, schema record.Schema, version int) (*Table, error) {
	if h.closed {
		return nil, ErrClosed
	}
	if _, ok := h.tables[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, name)
	}
	t := newTable(name, schema, version)
	h.tables[name] = t
	delete(h.dropped, name)
	return t, nil
}

// Table looks up a table by name.
func (h *Handle) Table(name string) (*Table, bool) {
	t, ok := h.tables[name]
	return t, ok
}

// DeleteTable drops a table and all its records. Destructive and
// non-recoverable outside of a transaction rollback.
func (h *Handle) DeleteTable(name string) error {
	if h.closed {
		return ErrClosed
	}
	if _, ok := h.tables[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNoTable, name)
	}
	delete(h.tables, name)
	if h.dir != "" {
		h.dropped[name] = true
	}
	return nil
}

// StartTransaction snapshots the current table set and returns the
// transaction id. Only one transaction may be active; nesting is a
// programming error.
func (h *Handle) StartTransaction() int64 {
	if h.tx != nil {
		panic("store: transaction already active")
	}
	h.lastTx++
	snap := make(map[string]*Table, len(h.tables))
	for name, t := range h.tables {
		snap[name] = t.clone()
	}
	dropped := make(map[string]bool, len(h.dropped))
	for name := range h.dropped {
		dropped[name] = true
	}
	h.tx = &transaction{id: h.lastTx, tables: snap, dropped: dropped}
	return h.lastTx
}

// EndTransaction closes the transaction with the given id. On commit a
// dir-bound handle persists every table; on rollback the table set is
// restored to the StartTransaction snapshot.
func (h *Handle) EndTransaction(id int64, commit bool) error {
	if h.tx == nil || h.tx.id != id {
		return ErrNoTransaction
	}
	tx := h.tx
	h.tx = nil
	if !commit {
		h.tables = tx.tables
		h.dropped = tx.dropped
		return nil
	}
	if h.dir != "" {
		return h.flush()
	}
	return nil
}

// Close releases the handle. An active transaction is discarded; since
// durable state is only written on commit, the directory keeps the last
// committed view.
func (h *Handle) Close() error {
	if h.closed {
		return ErrClosed
	}
	h.closed = true
	h.tx = nil
	h.tables = nil
	h.dropped = nil
	return nil
}

// Package arrays is the versioned adapter for the array-type table. It hides
// which on-disk format version a table is at: callers always see records in
// the current column layout, and an explicit upgrade migrates legacy tables
// forward.
package arrays

import (
	"errors"
	"fmt"

	"github.com/vdtran/dtstore/internal/record"
	"github.com/vdtran/dtstore/internal/store"
	"github.com/vdtran/dtstore/internal/task"
)

const tableName = "Arrays"

// Column indices of records returned by any adapter, regardless of the
// stored format version. These are the current-format indices; legacy
// adapters translate on read.
const (
	DataTypeIDCol    = v1DataTypeIDCol
	DimCol           = v1DimCol
	ElementLengthCol = v1ElementLengthCol
	CategoryIDCol    = v1CategoryIDCol
)

var ErrReadOnly = errors.New("arrays: adapter is read-only")

// VersionError reports a stored table format that cannot be opened as the
// current version. Upgradable tells the caller whether an UPGRADE open
// would succeed.
type VersionError struct {
	Stored     int
	Upgradable bool
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("arrays: stored format version %d, current is %d (upgradable=%t)",
		e.Stored, currentVersion, e.Upgradable)
}

// Adapter is the version-independent contract over one array-type table.
// An adapter is bound to one table in one store handle and never outlives
// that handle.
type Adapter interface {
	// CreateRecord allocates a new id and writes a record.
	CreateRecord(dataTypeID int64, dim, elementLength int32, categoryID int64) (record.Record, error)

	// Record is a point lookup; ok=false when no such id exists.
	Record(id int64) (rec record.Record, ok bool, err error)

	// Records returns a forward-only pass over all records in id order,
	// consistent for the duration of the pass.
	Records() (RecordCursor, error)

	// RemoveRecord deletes a record and reports whether one existed.
	RemoveRecord(id int64) (bool, error)

	// UpdateRecord overwrites (or, during migration replay, inserts) the
	// record keyed by rec.ID, preserving the id verbatim.
	UpdateRecord(rec record.Record) error

	// DeleteTable drops the whole table from the given handle. Destructive;
	// used when retiring a superseded legacy table.
	DeleteTable(h *store.Handle) error

	// RecordIDsInCategory returns the ids of all records whose category
	// field equals categoryID, in id order.
	RecordIDsInCategory(categoryID int64) ([]int64, error)

	// Version is the stored format version this adapter reads.
	Version() int
}

// RecordCursor yields records in the current column layout. Next returns
// false at the end of the pass or on failure; Err distinguishes the two.
type RecordCursor interface {
	Next() (record.Record, bool)
	Err() error
}

type openStatus int

const (
	statusCurrent openStatus = iota
	statusUpgradable
	statusUnrecognized
	statusMissing
)

// probeVersion reports how the stored table relates to the current format.
// Branching on a value here keeps version dispatch out of error paths.
func probeVersion(h *store.Handle, prefix string) (openStatus, int) {
	tbl, ok := h.Table(prefix + tableName)
	if !ok {
		return statusMissing, 0
	}
	switch tbl.Version {
	case currentVersion:
		if !tbl.Schema.Equal(v1Schema) {
			// version tag says current but the layout disagrees; treat as
			// unrecognized rather than risk positional misreads
			return statusUnrecognized, tbl.Version
		}
		return statusCurrent, tbl.Version
	case versionV0:
		if !tbl.Schema.Equal(v0Schema) {
			// same guard as above for the legacy tag
			return statusUnrecognized, tbl.Version
		}
		return statusUpgradable, tbl.Version
	}
	return statusUnrecognized, tbl.Version
}

// GetAdapter opens (or creates) the array-type table and returns an adapter
// for it.
//
// CREATE builds a fresh current-format table. UPDATE and READ_ONLY open the
// stored table as-is: UPDATE demands the current format and fails with
// *VersionError on any mismatch, READ_ONLY returns a read-only legacy
// adapter for older upgradable formats. UPGRADE additionally migrates a
// legacy table to the current format before returning; migration is never
// implicit on the other modes.
func GetAdapter(h *store.Handle, mode store.OpenMode, tablePrefix string, mon task.Monitor) (Adapter, error) {
	if mode == store.ModeCreate {
		return createV1(h, tablePrefix)
	}

	status, stored := probeVersion(h, tablePrefix)
	switch status {
	case statusCurrent:
		return openV1(h, tablePrefix)

	case statusMissing:
		return nil, fmt.Errorf("arrays: %w: %s", store.ErrNoTable, tablePrefix+tableName)

	case statusUpgradable:
		if mode == store.ModeUpdate {
			return nil, &VersionError{Stored: stored, Upgradable: true}
		}
		old, err := newReadOnlyAdapter(h, tablePrefix, stored)
		if err != nil {
			return nil, err
		}
		if mode == store.ModeUpgrade {
			return upgrade(h, old, tablePrefix, mon)
		}
		return old, nil
	}

	return nil, &VersionError{Stored: stored, Upgradable: false}
}

// newReadOnlyAdapter binds the legacy adapter matching the stored version.
func newReadOnlyAdapter(h *store.Handle, prefix string, stored int) (Adapter, error) {
	switch stored {
	case versionV0:
		return openV0(h, prefix)
	}
	return nil, &VersionError{Stored: stored, Upgradable: false}
}

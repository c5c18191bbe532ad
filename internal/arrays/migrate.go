package arrays

import (
	"log/slog"

	"github.com/vdtran/dtstore/internal/store"
	"github.com/vdtran/dtstore/internal/task"
)

// upgrade rebuilds a legacy table at the current format, preserving every
// record id and field value. Records are staged through a private in-memory
// handle: the legacy table must be dropped before the current-format table
// can be created under its name, so the record set lives in scratch space
// in between. The scratch handle is released on every exit path.
//
// The legacy table is dropped before the second copy pass starts.
// Cancellation or I/O failure during the first pass leaves the caller's
// table untouched; after the drop, the caller's handle no longer holds the
// table and the caller's outer transaction is the recovery boundary.
func upgrade(h *store.Handle, old Adapter, prefix string, mon task.Monitor) (Adapter, error) {
	tmp := store.NewHandle()
	txID := tmp.StartTransaction()
	defer func() {
		_ = tmp.EndTransaction(txID, true)
		_ = tmp.Close()
	}()

	tmpAdapter, err := createV1(tmp, prefix)
	if err != nil {
		return nil, err
	}
	n, err := copyRecords(old, tmpAdapter, mon)
	if err != nil {
		return nil, err
	}

	if err := old.DeleteTable(h); err != nil {
		return nil, err
	}
	newAdapter, err := createV1(h, prefix)
	if err != nil {
		return nil, err
	}
	if _, err := copyRecords(tmpAdapter, newAdapter, mon); err != nil {
		return nil, err
	}

	slog.Info("arrays: migrated table",
		"table", prefix+tableName,
		"records", n,
		"from_version", old.Version(),
		"to_version", currentVersion)
	return newAdapter, nil
}

// copyRecords replays every record of src into dst, polling the monitor
// before each replay. Ids are preserved verbatim so foreign keys held by
// other tables stay valid.
func copyRecords(src, dst Adapter, mon task.Monitor) (int, error) {
	cur, err := src.Records()
	if err != nil {
		return 0, err
	}
	n := 0
	for {
		rec, ok := cur.Next()
		if !ok {
			return n, cur.Err()
		}
		if err := mon.CheckCancelled(); err != nil {
			return n, err
		}
		if err := dst.UpdateRecord(rec); err != nil {
			return n, err
		}
		n++
	}
}

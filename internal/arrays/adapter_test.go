package arrays

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vdtran/dtstore/internal/record"
	"github.com/vdtran/dtstore/internal/store"
	"github.com/vdtran/dtstore/internal/task"
)

const testPrefix = "dt_"

// newV0Table seeds a legacy-format table with n records and returns their
// field values keyed by id, already in the current layout for comparison.
func newV0Table(t *testing.T, h *store.Handle, n int) map[int64][]any {
	t.Helper()

	tbl, err := h.CreateTable(testPrefix+tableName, v0Schema, versionV0)
	require.NoError(t, err)

	want := make(map[int64][]any, n)
	for i := 0; i < n; i++ {
		id := tbl.NewID()
		dt := int64(100 + i)
		dim := int32(i + 1)
		cat := int64(i % 2)
		require.NoError(t, tbl.Put(id, []any{dt, dim, cat}))
		want[id] = []any{dt, dim, noElementLength, cat}
	}
	return want
}

// cancelAfter cancels on the (n+1)-th poll.
type cancelAfter struct {
	remaining int
}

func (m *cancelAfter) CheckCancelled() error {
	if m.remaining <= 0 {
		return task.ErrCancelled
	}
	m.remaining--
	return nil
}

func TestCreateRecord_RoundTrip(t *testing.T) {
	h := store.NewHandle()
	ad, err := GetAdapter(h, store.ModeCreate, testPrefix, task.None)
	require.NoError(t, err)
	require.Equal(t, currentVersion, ad.Version())

	rec, err := ad.CreateRecord(42, 16, 4, 7)
	require.NoError(t, err)
	require.Equal(t, int64(1), rec.ID)

	got, ok, err := ad.Record(rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, rec.ID, got.ID)

	dt, err := got.Int64At(DataTypeIDCol)
	require.NoError(t, err)
	require.Equal(t, int64(42), dt)
	dim, err := got.Int32At(DimCol)
	require.NoError(t, err)
	require.Equal(t, int32(16), dim)
	elemLen, err := got.Int32At(ElementLengthCol)
	require.NoError(t, err)
	require.Equal(t, int32(4), elemLen)
	cat, err := got.Int64At(CategoryIDCol)
	require.NoError(t, err)
	require.Equal(t, int64(7), cat)
}

func TestRemoveRecord(t *testing.T) {
	h := store.NewHandle()
	ad, err := GetAdapter(h, store.ModeCreate, testPrefix, task.None)
	require.NoError(t, err)

	rec, err := ad.CreateRecord(1, 2, 3, 4)
	require.NoError(t, err)

	removed, err := ad.RemoveRecord(rec.ID)
	require.NoError(t, err)
	require.True(t, removed)

	_, ok, err := ad.Record(rec.ID)
	require.NoError(t, err)
	require.False(t, ok)

	// removing an absent record is a normal false, not an error
	removed, err = ad.RemoveRecord(rec.ID)
	require.NoError(t, err)
	require.False(t, removed)
}

func TestUpdateRecord_Overwrites(t *testing.T) {
	h := store.NewHandle()
	ad, err := GetAdapter(h, store.ModeCreate, testPrefix, task.None)
	require.NoError(t, err)

	rec, err := ad.CreateRecord(1, 2, 3, 4)
	require.NoError(t, err)

	require.NoError(t, rec.SetInt32At(DimCol, 99))
	require.NoError(t, ad.UpdateRecord(rec))

	got, ok, err := ad.Record(rec.ID)
	require.NoError(t, err)
	require.True(t, ok)
	dim, err := got.Int32At(DimCol)
	require.NoError(t, err)
	require.Equal(t, int32(99), dim)
}

func TestRecordIDsInCategory(t *testing.T) {
	h := store.NewHandle()
	ad, err := GetAdapter(h, store.ModeCreate, testPrefix, task.None)
	require.NoError(t, err)

	a, err := ad.CreateRecord(1, 1, 1, 10)
	require.NoError(t, err)
	_, err = ad.CreateRecord(2, 1, 1, 20)
	require.NoError(t, err)
	c, err := ad.CreateRecord(3, 1, 1, 10)
	require.NoError(t, err)

	ids, err := ad.RecordIDsInCategory(10)
	require.NoError(t, err)
	require.Equal(t, []int64{a.ID, c.ID}, ids)

	ids, err = ad.RecordIDsInCategory(777)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestGetAdapter_CurrentVersionReopens(t *testing.T) {
	h := store.NewHandle()
	_, err := GetAdapter(h, store.ModeCreate, testPrefix, task.None)
	require.NoError(t, err)

	for _, mode := range []store.OpenMode{store.ModeUpdate, store.ModeReadOnly, store.ModeUpgrade} {
		t.Run(mode.String(), func(t *testing.T) {
			ad, err := GetAdapter(h, mode, testPrefix, task.None)
			require.NoError(t, err)
			require.Equal(t, currentVersion, ad.Version())
		})
	}
}

func TestGetAdapter_MissingTable(t *testing.T) {
	h := store.NewHandle()
	_, err := GetAdapter(h, store.ModeReadOnly, testPrefix, task.None)
	require.ErrorIs(t, err, store.ErrNoTable)
}

func TestGetAdapter_UpdateOnLegacyFails(t *testing.T) {
	h := store.NewHandle()
	want := newV0Table(t, h, 3)

	_, err := GetAdapter(h, store.ModeUpdate, testPrefix, task.None)
	var verr *VersionError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, versionV0, verr.Stored)
	require.True(t, verr.Upgradable)

	// no mutation happened
	tbl, ok := h.Table(testPrefix + tableName)
	require.True(t, ok)
	require.Equal(t, versionV0, tbl.Version)
	require.Equal(t, len(want), tbl.Len())
}

func TestGetAdapter_UnrecognizedVersion(t *testing.T) {
	h := store.NewHandle()
	_, err := h.CreateTable(testPrefix+tableName, v1Schema, 9)
	require.NoError(t, err)

	_, err = GetAdapter(h, store.ModeUpgrade, testPrefix, task.None)
	var verr *VersionError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, 9, verr.Stored)
	require.False(t, verr.Upgradable)
}

func TestGetAdapter_LegacyTagWithForeignLayout(t *testing.T) {
	h := store.NewHandle()

	// tagged as the legacy version but carrying a different column layout;
	// opening it positionally would misread every field
	foreign := record.Schema{
		Cols: []record.Column{
			{Name: "A", Type: record.ColInt64},
			{Name: "B", Type: record.ColInt64},
		},
	}
	tbl, err := h.CreateTable(testPrefix+tableName, foreign, versionV0)
	require.NoError(t, err)
	require.NoError(t, tbl.Put(tbl.NewID(), []any{int64(1), int64(2)}))

	for _, mode := range []store.OpenMode{store.ModeReadOnly, store.ModeUpgrade} {
		t.Run(mode.String(), func(t *testing.T) {
			_, err := GetAdapter(h, mode, testPrefix, task.None)
			var verr *VersionError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, versionV0, verr.Stored)
			require.False(t, verr.Upgradable)
		})
	}
}

func TestGetAdapter_ReadOnlyLegacyIdempotent(t *testing.T) {
	h := store.NewHandle()
	want := newV0Table(t, h, 4)

	readAll := func() map[int64][]any {
		ad, err := GetAdapter(h, store.ModeReadOnly, testPrefix, task.None)
		require.NoError(t, err)
		require.Equal(t, versionV0, ad.Version())

		cur, err := ad.Records()
		require.NoError(t, err)
		got := make(map[int64][]any)
		for {
			rec, ok := cur.Next()
			if !ok {
				break
			}
			got[rec.ID] = rec.Values
		}
		require.NoError(t, cur.Err())
		return got
	}

	first := readAll()
	second := readAll()
	require.Equal(t, want, first)
	require.Equal(t, first, second)

	// the store was not upgraded behind the caller's back
	tbl, ok := h.Table(testPrefix + tableName)
	require.True(t, ok)
	require.Equal(t, versionV0, tbl.Version)
}

func TestLegacyAdapter_RejectsWrites(t *testing.T) {
	h := store.NewHandle()
	newV0Table(t, h, 1)

	ad, err := GetAdapter(h, store.ModeReadOnly, testPrefix, task.None)
	require.NoError(t, err)

	_, err = ad.CreateRecord(1, 2, 3, 4)
	require.ErrorIs(t, err, ErrReadOnly)

	_, err = ad.RemoveRecord(1)
	require.ErrorIs(t, err, ErrReadOnly)

	rec, ok, err := ad.Record(1)
	require.NoError(t, err)
	require.True(t, ok)
	require.ErrorIs(t, ad.UpdateRecord(rec), ErrReadOnly)
}

func TestMigration_RoundTrip(t *testing.T) {
	h := store.NewHandle()
	want := newV0Table(t, h, 5)

	ad, err := GetAdapter(h, store.ModeUpgrade, testPrefix, task.None)
	require.NoError(t, err)
	require.Equal(t, currentVersion, ad.Version())

	// the table under the caller's handle is now current-format
	tbl, ok := h.Table(testPrefix + tableName)
	require.True(t, ok)
	require.Equal(t, currentVersion, tbl.Version)
	require.Equal(t, len(want), tbl.Len())

	cur, err := ad.Records()
	require.NoError(t, err)
	got := make(map[int64][]any)
	for {
		rec, ok := cur.Next()
		if !ok {
			break
		}
		got[rec.ID] = rec.Values
	}
	require.NoError(t, cur.Err())
	require.Equal(t, want, got)

	// migrated records are writable under the new adapter
	ids, err := ad.RecordIDsInCategory(1)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
}

func TestMigration_CancelledFirstPass(t *testing.T) {
	h := store.NewHandle()
	want := newV0Table(t, h, 5)

	// cancel before record 3 of the first copy pass
	_, err := GetAdapter(h, store.ModeUpgrade, testPrefix, &cancelAfter{remaining: 2})
	require.ErrorIs(t, err, task.ErrCancelled)

	// the legacy table is intact and untouched
	tbl, ok := h.Table(testPrefix + tableName)
	require.True(t, ok)
	require.Equal(t, versionV0, tbl.Version)
	require.Equal(t, len(want), tbl.Len())
}

func TestMigration_CancelledSecondPass(t *testing.T) {
	h := store.NewHandle()
	const n = 5
	newV0Table(t, h, n)

	// the first pass polls once per record; cancelling at n+2 aborts the
	// second pass after the legacy table has already been dropped
	_, err := GetAdapter(h, store.ModeUpgrade, testPrefix, &cancelAfter{remaining: n + 1})
	require.ErrorIs(t, err, task.ErrCancelled)

	// documented window: the legacy data is gone, the replacement table is
	// partially populated at the current version
	tbl, ok := h.Table(testPrefix + tableName)
	require.True(t, ok)
	require.Equal(t, currentVersion, tbl.Version)
	require.Less(t, tbl.Len(), n)
}

func TestMigration_PersistsThroughCommit(t *testing.T) {
	dir := t.TempDir()

	h, err := store.Open(dir)
	require.NoError(t, err)

	txID := h.StartTransaction()
	newV0Table(t, h, 3)
	require.NoError(t, h.EndTransaction(txID, true))

	txID = h.StartTransaction()
	_, err = GetAdapter(h, store.ModeUpgrade, testPrefix, task.None)
	require.NoError(t, err)
	require.NoError(t, h.EndTransaction(txID, true))
	require.NoError(t, h.Close())

	h2, err := store.Open(dir)
	require.NoError(t, err)
	defer func() { _ = h2.Close() }()

	ad, err := GetAdapter(h2, store.ModeUpdate, testPrefix, task.None)
	require.NoError(t, err)

	rec, ok, err := ad.Record(1)
	require.NoError(t, err)
	require.True(t, ok)
	elemLen, err := rec.Int32At(ElementLengthCol)
	require.NoError(t, err)
	require.Equal(t, noElementLength, elemLen)
}

func TestMigration_RollbackRestoresLegacyTable(t *testing.T) {
	h := store.NewHandle()
	want := newV0Table(t, h, 3)

	txID := h.StartTransaction()
	_, err := GetAdapter(h, store.ModeUpgrade, testPrefix, task.None)
	require.NoError(t, err)
	require.NoError(t, h.EndTransaction(txID, false))

	// the caller's transaction is the recovery boundary: rolling it back
	// restores the legacy table
	tbl, ok := h.Table(testPrefix + tableName)
	require.True(t, ok)
	require.Equal(t, versionV0, tbl.Version)
	require.Equal(t, len(want), tbl.Len())
}

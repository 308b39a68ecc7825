package sqlite_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func date(s string) generic.TimePoint { return generic.MustParseTimePoint(s) }

func joined(s string) *generic.TimePoint {
	tp := date(s)
	return &tp
}

func mark(id, day string, status attendance.RawStatus) attendance.RawDayMark {
	return attendance.RawDayMark{EmployeeID: generic.EntityID(id), Date: date(day), Status: status, Code: string(status)}
}

func window(from, to string) generic.Period {
	return generic.Period{Start: date(from), End: date(to)}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestStore_SaveAndGetEmployee(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	emp := attendance.Employee{
		ID:           "C-1",
		Name:         "Dr. Rao",
		Department:   "Cardiology",
		Organization: attendance.OrgSuperClinic,
		Category:     attendance.CategoryConsultant,
		JoiningDate:  joined("2022-06-01"),
	}
	require.NoError(t, store.SaveEmployee(ctx, emp))

	got, err := store.GetEmployee(ctx, "C-1")
	require.NoError(t, err)
	assert.Equal(t, emp.Name, got.Name)
	assert.Equal(t, attendance.OrgSuperClinic, got.Organization)
	require.NotNil(t, got.JoiningDate)
	assert.Equal(t, "2022-06-01", got.JoiningDate.String())
}

func TestStore_SaveEmployee_UpsertKeepsOneRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	emp := attendance.Employee{ID: "S-1", Name: "Nurse A", Organization: attendance.OrgHospital, Category: attendance.CategoryStaff}
	require.NoError(t, store.SaveEmployee(ctx, emp))

	emp.Department = "ICU"
	require.NoError(t, store.SaveEmployee(ctx, emp))

	all, err := store.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "ICU", all[0].Department)
	assert.Nil(t, all[0].JoiningDate)
}

func TestStore_GetEmployee_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetEmployee(context.Background(), "nobody")
	assert.ErrorIs(t, err, generic.ErrEntityNotFound)
}

// =============================================================================
// DAY MARKS
// =============================================================================

func TestStore_SaveMarks_ReuploadReplacesDay(t *testing.T) {
	// GIVEN: A day uploaded as absent
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveMarks(ctx, []attendance.RawDayMark{
		mark("E1", "2024-03-01", attendance.RawAbsent),
		mark("E1", "2024-03-02", attendance.RawPresent),
	}))

	// WHEN: The same day is uploaded again as present
	require.NoError(t, store.SaveMarks(ctx, []attendance.RawDayMark{
		mark("E1", "2024-03-01", attendance.RawPresent),
	}))

	// THEN: Only the latest mark remains
	marks, err := store.LoadMarks(ctx, "E1", window("2024-03-01", "2024-03-31"))
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, attendance.RawPresent, marks[0].Status)
	assert.Equal(t, "2024-03-01", marks[0].Date.String())
}

func TestStore_LoadMarks_WindowAndOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveMarks(ctx, []attendance.RawDayMark{
		mark("E1", "2024-03-03", attendance.RawWeeklyOff),
		mark("E1", "2024-02-29", attendance.RawPresent),
		mark("E1", "2024-03-01", attendance.RawPresent),
		mark("E1", "2024-03-02", attendance.RawAbsent),
	}))

	marks, err := store.LoadMarks(ctx, "E1", window("2024-03-01", "2024-03-02"))
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, "2024-03-01", marks[0].Date.String())
	assert.Equal(t, "2024-03-02", marks[1].Date.String())
}

func TestStore_LoadBatch_OnlyEmployeesWithMarks(t *testing.T) {
	// GIVEN: Two employees, one with marks in the window
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.SaveEmployee(ctx, attendance.Employee{ID: "E1", Name: "A", Organization: attendance.OrgHospital, Category: attendance.CategoryStaff}))
	require.NoError(t, store.SaveEmployee(ctx, attendance.Employee{ID: "E2", Name: "B", Organization: attendance.OrgHospital, Category: attendance.CategoryStaff}))
	require.NoError(t, store.SaveMarks(ctx, []attendance.RawDayMark{
		mark("E1", "2024-03-01", attendance.RawPresent),
		mark("E1", "2024-03-02", attendance.RawPresent),
		mark("ghost", "2024-03-01", attendance.RawPresent),
	}))

	// WHEN: Loading the batch
	batch, err := store.LoadBatch(ctx, window("2024-03-01", "2024-03-31"))
	require.NoError(t, err)

	// THEN: E1 has metadata and marks; the unknown employee keeps its marks
	assert.Contains(t, batch.Employees, generic.EntityID("E1"))
	assert.NotContains(t, batch.Employees, generic.EntityID("E2"))
	assert.Len(t, batch.Marks["E1"], 2)
	assert.Len(t, batch.Marks["ghost"], 1)
}

// =============================================================================
// LEDGER
// =============================================================================

func clTx(id, key, day string) generic.Transaction {
	return generic.Transaction{
		ID:             generic.TransactionID(id),
		EntityID:       "C-1",
		PolicyID:       "clinic-consultant",
		ResourceType:   attendance.ResourceCasualLeave,
		EffectiveAt:    date(day),
		Delta:          generic.Days(-1),
		Type:           generic.TxConsumption,
		IdempotencyKey: key,
	}
}

func TestStore_Append_DuplicateKeyRejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, clTx("tx-1", "k1", "2024-01-02")))
	err := store.Append(ctx, clTx("tx-2", "k1", "2024-01-02"))
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)

	exists, err := store.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestStore_AppendBatch_AtomicOnConflict(t *testing.T) {
	// GIVEN: One transaction already stored
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.Append(ctx, clTx("tx-1", "k1", "2024-01-02")))

	// WHEN: A batch repeats its key
	err := store.AppendBatch(ctx, []generic.Transaction{
		clTx("tx-2", "k2", "2024-01-03"),
		clTx("tx-3", "k1", "2024-01-02"),
	})

	// THEN: Nothing from the batch is written
	assert.ErrorIs(t, err, generic.ErrDuplicateIdempotencyKey)
	txs, err := store.Load(ctx, "C-1", "clinic-consultant")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestStore_LoadRange_RoundTripsAmounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendBatch(ctx, []generic.Transaction{
		clTx("tx-1", "k1", "2024-01-02"),
		clTx("tx-2", "k2", "2024-02-10"),
		clTx("tx-3", "k3", "2024-07-01"),
	}))

	txs, err := store.LoadRange(ctx, "C-1", "clinic-consultant", date("2024-01-01"), date("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Delta.Equal(generic.Days(-1)))
	assert.Equal(t, attendance.ResourceCasualLeave.ResourceID(), txs[0].ResourceType.ResourceID())
	assert.Equal(t, "2024-02-10", txs[1].EffectiveAt.String())
}

func TestStore_LedgerConsumedIn(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	ledger := generic.NewLedger(store)
	written, err := ledger.AppendBatch(ctx, []generic.Transaction{
		clTx("tx-1", "k1", "2024-01-02"),
		clTx("tx-2", "k2", "2024-01-03"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	consumed, err := ledger.ConsumedIn(ctx, "C-1", "clinic-consultant", window("2024-01-01", "2024-06-30"))
	require.NoError(t, err)
	assert.Equal(t, 2, consumed.IntPart())
}

// =============================================================================
// RUNS
// =============================================================================

func TestStore_Runs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveRun(ctx, sqlite.Run{ID: "r1", Period: window("2024-03-01", "2024-03-31"), Employees: 3, Succeeded: 2, Failed: 1, Persist: true, Persisted: 4}))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Failed)
	assert.True(t, runs[0].Persist)
	assert.Equal(t, 4, runs[0].Persisted)
	assert.Equal(t, "2024-03-31", runs[0].Period.End.String())

	exists, err := store.PersistedRunExists(ctx, window("2024-03-01", "2024-03-31"))
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = store.PersistedRunExists(ctx, window("2024-04-01", "2024-04-30"))
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Reset(ctx))
	runs, err = store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStore_PreviewRunDoesNotCloseWindow(t *testing.T) {
	// GIVEN: A preview run of April
	store := newTestStore(t)
	ctx := context.Background()
	april := window("2024-04-01", "2024-04-30")
	require.NoError(t, store.SaveRun(ctx, sqlite.Run{ID: "preview", Period: april, Employees: 1, Succeeded: 1}))

	// WHEN: Asking whether April was persisted
	exists, err := store.PersistedRunExists(ctx, april)

	// THEN: It was not, but the run is still listed
	require.NoError(t, err)
	assert.False(t, exists)
	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Persist)
}

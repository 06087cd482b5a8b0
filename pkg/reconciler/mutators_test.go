package reconciler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/facilog/facilog/pkg/draft"
	"github.com/facilog/facilog/pkg/storage/storagemock"
	"github.com/facilog/facilog/pkg/types"
)

// readySubstation reconciles an empty substation day so the mutators have
// an adopted session to edit.
func readySubstation(t *testing.T) (*Reconciler, *storagemock.MockDatabase, *draft.Memory) {
	t.Helper()
	db := &storagemock.MockDatabase{}
	r, drafts := newTestReconciler(db)
	expectSettings(db)
	db.On("GetDay", mock.Anything, "substation", "2025-03-09").Return(types.DailyRecord{}, false, nil)
	db.On("GetDayRange", mock.Anything, "substation", "2025-02-07", "2025-03-08").Return(nil, nil)
	db.On("GetDayRange", mock.Anything, "substation", "2025-03-01", "2025-03-08").Return([]types.DatedRecord{
		datedRecord("2025-03-05", "active_power", 100, f(400)),
	}, nil)
	_, err := r.Reconcile(context.Background(), "substation", "2025-03-09")
	require.NoError(t, err)
	return r, db, drafts
}

func readyWorkLog(t *testing.T) (*Reconciler, *storagemock.MockDatabase, *draft.Memory) {
	t.Helper()
	db := &storagemock.MockDatabase{}
	r, drafts := newTestReconciler(db)
	expectSettings(db)
	db.On("GetDay", mock.Anything, "work-log", "2025-03-09").Return(types.DailyRecord{}, false, nil)
	db.On("GetDayRange", mock.Anything, "work-log", "2025-03-02", "2025-03-08").Return(nil, nil)
	_, err := r.Reconcile(context.Background(), "work-log", "2025-03-09")
	require.NoError(t, err)
	return r, db, drafts
}

func TestMutatorsRequireAdoptedSession(t *testing.T) {
	ctx := context.Background()
	db := &storagemock.MockDatabase{}
	r, _ := newTestReconciler(db)

	_, err := r.SetMeterReading(ctx, "substation", "2025-03-09", "active_power", "currentReading", "185")
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = r.AddTask(ctx, "work-log", "2025-03-09", "facility", "today", "x")
	assert.ErrorIs(t, err, ErrNotReady)

	assert.ErrorIs(t, r.Save(ctx, "substation", "2025-03-09"), ErrNotReady)
}

func TestMutatorsRejectOtherDay(t *testing.T) {
	ctx := context.Background()
	r, _, _ := readySubstation(t)

	// the adopted session is for 2025-03-09; edits aimed at any other day
	// or subsystem are refused rather than applied to the wrong record
	_, err := r.SetMeterReading(ctx, "substation", "2025-03-10", "active_power", "currentReading", "185")
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = r.SetMeterReading(ctx, "hvac-boiler", "2025-03-09", "hvac_gas", "currentReading", "16")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestSetMeterReading(t *testing.T) {
	ctx := context.Background()
	r, _, drafts := readySubstation(t)

	rec, err := r.SetMeterReading(ctx, "substation", "2025-03-09", "active_power", "previousReading", "120")
	require.NoError(t, err)
	assert.Equal(t, 120.0, rec.Channel("active_power").PreviousReading)
	assert.False(t, rec.Synthesized["channels.active_power.previousReading"])

	rec, err = r.SetMeterReading(ctx, "substation", "2025-03-09", "active_power", "currentReading", "1,85")
	require.NoError(t, err)
	ch := rec.Channel("active_power")
	assert.Equal(t, 185.0, ch.CurrentReading)
	require.NotNil(t, ch.Usage)
	assert.Equal(t, 65.0, *ch.Usage)
	assert.Equal(t, 465.0, ch.MonthToDateTotal)

	// every edit is staged so a crash loses nothing
	staged, found, err := drafts.Get(ctx, "substation", "2025-03-09")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 185.0, staged.Channel("active_power").CurrentReading)

	_, err = r.SetMeterReading(ctx, "substation", "2025-03-09", "active_power", "usage", "10")
	assert.Error(t, err)
}

func TestSetBreakerReading(t *testing.T) {
	ctx := context.Background()
	r, _, _ := readySubstation(t)

	_, err := r.SetMeterReading(ctx, "substation", "2025-03-09", "active_power", "previousReading", "120")
	require.NoError(t, err)
	_, err = r.SetMeterReading(ctx, "substation", "2025-03-09", "active_power", "currentReading", "185")
	require.NoError(t, err)

	_, err = r.SetBreakerReading(ctx, "substation", "2025-03-09", "powerFactorRaw", "95")
	require.NoError(t, err)
	rec, err := r.SetBreakerReading(ctx, "substation", "2025-03-09", "currentAmps", "40")
	require.NoError(t, err)

	require.NotNil(t, rec.Derived)
	require.NotNil(t, rec.Derived.MaxPowerKW)
	assert.Greater(t, *rec.Derived.MaxPowerKW, 0.0)

	_, err = r.SetBreakerReading(ctx, "substation", "2025-03-09", "voltage", "22")
	assert.Error(t, err)
}

func TestBreakerRequiresBreakerSubsystem(t *testing.T) {
	ctx := context.Background()
	r, _, _ := readyWorkLog(t)

	_, err := r.SetBreakerReading(ctx, "work-log", "2025-03-09", "currentAmps", "40")
	assert.ErrorContains(t, err, "no breaker")
}

func TestTaskMutators(t *testing.T) {
	ctx := context.Background()
	r, _, drafts := readyWorkLog(t)

	_, err := r.AddTask(ctx, "work-log", "2025-03-09", "facility", "today", "   ")
	assert.Error(t, err)

	rec, err := r.AddTask(ctx, "work-log", "2025-03-09", "facility", "today", "펌프 점검")
	require.NoError(t, err)
	today := rec.TaskListFor("facility").Today
	require.Len(t, today, 1)
	assert.Equal(t, types.StatusInProgress, today[0].Status)
	id := today[0].ID
	require.NotEmpty(t, id)

	rec, err = r.AddTask(ctx, "work-log", "2025-03-09", "facility", "tomorrow", "필터 교체")
	require.NoError(t, err)
	tomorrow := rec.TaskListFor("facility").Tomorrow
	require.Len(t, tomorrow, 1)
	assert.Empty(t, tomorrow[0].Status)

	rec, err = r.SetTaskStatus(ctx, "work-log", "2025-03-09", "facility", id, types.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDone, rec.TaskListFor("facility").Today[0].Status)

	_, err = r.SetTaskStatus(ctx, "work-log", "2025-03-09", "facility", id, "paused")
	assert.Error(t, err)
	_, err = r.SetTaskStatus(ctx, "work-log", "2025-03-09", "facility", "missing", types.StatusDone)
	assert.Error(t, err)

	rec, err = r.SetTaskContent(ctx, "work-log", "2025-03-09", "facility", id, "펌프 점검 완료 확인")
	require.NoError(t, err)
	assert.Equal(t, "펌프 점검 완료 확인", rec.TaskListFor("facility").Today[0].Content)

	// blanking a task is a removal, not an edit
	_, err = r.SetTaskContent(ctx, "work-log", "2025-03-09", "facility", id, "   ")
	assert.Error(t, err)

	rec, err = r.RemoveTask(ctx, "work-log", "2025-03-09", "facility", tomorrow[0].ID)
	require.NoError(t, err)
	assert.Empty(t, rec.TaskListFor("facility").Tomorrow)
	_, err = r.RemoveTask(ctx, "work-log", "2025-03-09", "facility", "missing")
	assert.Error(t, err)

	staged, found, err := drafts.Get(ctx, "work-log", "2025-03-09")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, staged.TaskListFor("facility").Today, 1)
}

func TestMarkCarryForwardApplied(t *testing.T) {
	ctx := context.Background()
	r, _, _ := readyWorkLog(t)

	rec, err := r.MarkCarryForwardApplied(ctx, "work-log", "2025-03-09", "facility")
	require.NoError(t, err)
	assert.True(t, rec.TaskListFor("facility").CarryForwardApplied)
}

func TestSave(t *testing.T) {
	ctx := context.Background()

	t.Run("clears draft on success", func(t *testing.T) {
		r, db, drafts := readySubstation(t)
		_, err := r.SetMeterReading(ctx, "substation", "2025-03-09", "active_power", "currentReading", "185")
		require.NoError(t, err)

		db.On("PutDay", mock.Anything, "substation", "2025-03-09", mock.Anything).Return(nil)
		require.NoError(t, r.Save(ctx, "substation", "2025-03-09"))

		_, found, err := drafts.Get(ctx, "substation", "2025-03-09")
		require.NoError(t, err)
		assert.False(t, found, "draft cleared once the server owns the record")
	})

	t.Run("failure leaves record and draft intact", func(t *testing.T) {
		r, db, drafts := readySubstation(t)
		_, err := r.SetMeterReading(ctx, "substation", "2025-03-09", "active_power", "currentReading", "185")
		require.NoError(t, err)

		db.On("PutDay", mock.Anything, "substation", "2025-03-09", mock.Anything).Return(errors.New("unavailable"))
		require.Error(t, r.Save(ctx, "substation", "2025-03-09"))

		staged, found, err := drafts.Get(ctx, "substation", "2025-03-09")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 185.0, staged.Channel("active_power").CurrentReading)

		rec, err := r.Record("substation", "2025-03-09")
		require.NoError(t, err)
		assert.Equal(t, 185.0, rec.Channel("active_power").CurrentReading)
	})

	t.Run("refuses a save aimed at another day", func(t *testing.T) {
		r, db, drafts := readySubstation(t)
		_, err := r.SetMeterReading(ctx, "substation", "2025-03-09", "active_power", "currentReading", "185")
		require.NoError(t, err)

		assert.ErrorIs(t, r.Save(ctx, "substation", "2025-03-10"), ErrNotReady)
		assert.ErrorIs(t, r.Save(ctx, "hvac-boiler", "2025-03-09"), ErrNotReady)
		db.AssertNotCalled(t, "PutDay", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

		// the live record and its draft are untouched by the refused save
		staged, found, err := drafts.Get(ctx, "substation", "2025-03-09")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 185.0, staged.Channel("active_power").CurrentReading)
	})
}

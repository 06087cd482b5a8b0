package reconciler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/facilog/facilog/pkg/storage/storagemock"
	"github.com/facilog/facilog/pkg/types"
)

func TestAccumulatorSumSince(t *testing.T) {
	ctx := context.Background()

	t.Run("sums committed usage per channel", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		a := NewAccumulator(db)
		db.On("GetDayRange", mock.Anything, "substation", "2025-03-01", "2025-03-08").Return([]types.DatedRecord{
			datedRecord("2025-03-03", "active_power", 100, f(30)),
			datedRecord("2025-03-08", "active_power", 140, f(40)),
		}, nil)

		sums, err := a.SumSince(ctx, "substation", "2025-03-09")
		require.NoError(t, err)
		assert.Equal(t, 70.0, sums["active_power"])
		assert.Zero(t, sums["reactive_power"])
	})

	t.Run("nil usage days contribute zero", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		a := NewAccumulator(db)
		db.On("GetDayRange", mock.Anything, "substation", "2025-03-01", "2025-03-08").Return([]types.DatedRecord{
			datedRecord("2025-03-03", "active_power", 100, f(30)),
			datedRecord("2025-03-04", "active_power", 50, nil), // meter replaced
		}, nil)

		sums, err := a.SumSince(ctx, "substation", "2025-03-09")
		require.NoError(t, err)
		assert.Equal(t, 30.0, sums["active_power"])
	})

	t.Run("first of month issues no query", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		a := NewAccumulator(db)

		sums, err := a.SumSince(ctx, "substation", "2025-03-01")
		require.NoError(t, err)
		assert.Empty(t, sums)
		db.AssertNotCalled(t, "GetDayRange", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cached until invalidated", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		a := NewAccumulator(db)
		db.On("GetDayRange", mock.Anything, "substation", "2025-03-01", "2025-03-08").Return([]types.DatedRecord{
			datedRecord("2025-03-03", "active_power", 100, f(30)),
		}, nil)

		_, err := a.SumSince(ctx, "substation", "2025-03-09")
		require.NoError(t, err)
		_, err = a.SumSince(ctx, "substation", "2025-03-09")
		require.NoError(t, err)
		db.AssertNumberOfCalls(t, "GetDayRange", 1)

		a.Invalidate()
		_, err = a.SumSince(ctx, "substation", "2025-03-09")
		require.NoError(t, err)
		db.AssertNumberOfCalls(t, "GetDayRange", 2)
	})

	t.Run("query failure propagates", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		a := NewAccumulator(db)
		db.On("GetDayRange", mock.Anything, "substation", "2025-03-01", "2025-03-08").
			Return(nil, errors.New("unavailable"))

		_, err := a.SumSince(ctx, "substation", "2025-03-09")
		require.Error(t, err)
	})

	t.Run("bad day rejected", func(t *testing.T) {
		db := &storagemock.MockDatabase{}
		a := NewAccumulator(db)
		_, err := a.SumSince(ctx, "substation", "03/09/2025")
		require.Error(t, err)
	})
}

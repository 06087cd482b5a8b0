package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilog/facilog/pkg/types"
)

func TestMergeRecords(t *testing.T) {
	t.Run("draft scalar wins only when set", func(t *testing.T) {
		base := types.NewDailyRecord("2025-03-09")
		base.SetChannel("active_power", types.MeterChannel{PreviousReading: 120, CurrentReading: 150})

		draft := types.NewDailyRecord("2025-03-09")
		draft.SetChannel("active_power", types.MeterChannel{CurrentReading: 185})

		out := mergeRecords(base, draft, "2025-03-09")
		ch := out.Channel("active_power")
		assert.Equal(t, 120.0, ch.PreviousReading)
		assert.Equal(t, 185.0, ch.CurrentReading)
	})

	t.Run("draft channel does not erase siblings", func(t *testing.T) {
		base := types.NewDailyRecord("2025-03-09")
		base.SetChannel("hvac_gas", types.MeterChannel{CurrentReading: 14})
		base.SetChannel("boiler_gas", types.MeterChannel{CurrentReading: 130})

		draft := types.NewDailyRecord("2025-03-09")
		draft.SetChannel("hvac_gas", types.MeterChannel{CurrentReading: 16})

		out := mergeRecords(base, draft, "2025-03-09")
		assert.Equal(t, 16.0, out.Channel("hvac_gas").CurrentReading)
		assert.Equal(t, 130.0, out.Channel("boiler_gas").CurrentReading)
	})

	t.Run("breaker fields merge individually", func(t *testing.T) {
		base := types.NewDailyRecord("2025-03-09")
		base.Breaker = &types.BreakerReading{PowerFactorRaw: 95, CurrentAmps: 40}

		draft := types.NewDailyRecord("2025-03-09")
		draft.Breaker = &types.BreakerReading{CurrentAmps: 42}

		out := mergeRecords(base, draft, "2025-03-09")
		require.NotNil(t, out.Breaker)
		assert.Equal(t, 95.0, out.Breaker.PowerFactorRaw)
		assert.Equal(t, 42.0, out.Breaker.CurrentAmps)
	})

	t.Run("non-empty task list replaces, empty is silent", func(t *testing.T) {
		base := types.NewDailyRecord("2025-03-09")
		base.SetTaskList("facility", types.TaskList{
			Today:    []types.Task{{ID: "s1", Content: "server task"}},
			Tomorrow: []types.Task{{ID: "s2", Content: "server tomorrow"}},
		})

		draft := types.NewDailyRecord("2025-03-09")
		draft.SetTaskList("facility", types.TaskList{
			Today: []types.Task{{ID: "d1", Content: "draft task"}},
		})

		out := mergeRecords(base, draft, "2025-03-09")
		list := out.TaskListFor("facility")
		require.Len(t, list.Today, 1)
		assert.Equal(t, "d1", list.Today[0].ID)
		require.Len(t, list.Tomorrow, 1)
		assert.Equal(t, "s2", list.Tomorrow[0].ID)
	})

	t.Run("carry-forward marker survives either side", func(t *testing.T) {
		base := types.NewDailyRecord("2025-03-09")
		base.SetTaskList("facility", types.TaskList{CarryForwardApplied: true})

		draft := types.NewDailyRecord("2025-03-09")
		draft.SetTaskList("facility", types.TaskList{Today: []types.Task{{ID: "d1", Content: "x"}}})

		out := mergeRecords(base, draft, "2025-03-09")
		assert.True(t, out.TaskListFor("facility").CarryForwardApplied)
	})

	t.Run("inputs are not mutated", func(t *testing.T) {
		base := types.NewDailyRecord("2025-03-09")
		base.SetChannel("active_power", types.MeterChannel{PreviousReading: 120})
		draft := types.NewDailyRecord("2025-03-09")
		draft.SetChannel("active_power", types.MeterChannel{CurrentReading: 185})

		out := mergeRecords(base, draft, "2025-03-09")
		out.SetChannel("active_power", types.MeterChannel{PreviousReading: 1, CurrentReading: 2})

		assert.Equal(t, 120.0, base.Channel("active_power").PreviousReading)
		assert.Equal(t, 0.0, base.Channel("active_power").CurrentReading)
		assert.Equal(t, 185.0, draft.Channel("active_power").CurrentReading)
	})
}

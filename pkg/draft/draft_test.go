package draft

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilog/facilog/pkg/types"
)

func testCache(t *testing.T, c Cache) {
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "substation", "2025-03-09")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("put get clear", func(t *testing.T) {
		rec := types.NewDailyRecord("2025-03-09")
		rec.SetChannel("active_power", types.MeterChannel{CurrentReading: 185})
		require.NoError(t, c.Put(ctx, "substation", "2025-03-09", rec))

		got, found, err := c.Get(ctx, "substation", "2025-03-09")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 185.0, got.Channels["active_power"].CurrentReading)

		// namespaces are independent
		_, found, err = c.Get(ctx, "hvac-boiler", "2025-03-09")
		require.NoError(t, err)
		assert.False(t, found)

		require.NoError(t, c.Clear(ctx, "substation", "2025-03-09"))
		_, found, err = c.Get(ctx, "substation", "2025-03-09")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("put replaces", func(t *testing.T) {
		rec := types.NewDailyRecord("2025-03-10")
		rec.SetChannel("hvac_gas", types.MeterChannel{CurrentReading: 10})
		require.NoError(t, c.Put(ctx, "hvac-boiler", "2025-03-10", rec))

		rec.SetChannel("hvac_gas", types.MeterChannel{CurrentReading: 20})
		require.NoError(t, c.Put(ctx, "hvac-boiler", "2025-03-10", rec))

		got, found, err := c.Get(ctx, "hvac-boiler", "2025-03-10")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 20.0, got.Channels["hvac_gas"].CurrentReading)
	})

	t.Run("clear absent is fine", func(t *testing.T) {
		assert.NoError(t, c.Clear(ctx, "substation", "1999-01-01"))
	})
}

func TestMemoryCache(t *testing.T) {
	c := NewMemory()
	defer c.Close()
	testCache(t, c)

	t.Run("stored draft does not alias caller record", func(t *testing.T) {
		ctx := context.Background()
		rec := types.NewDailyRecord("2025-03-11")
		rec.SetChannel("boiler_gas", types.MeterChannel{CurrentReading: 5})
		require.NoError(t, c.Put(ctx, "hvac-boiler", "2025-03-11", rec))

		rec.SetChannel("boiler_gas", types.MeterChannel{CurrentReading: 99})
		got, found, err := c.Get(ctx, "hvac-boiler", "2025-03-11")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, 5.0, got.Channels["boiler_gas"].CurrentReading)
	})
}

func TestSQLiteCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")
	c, err := OpenSQLite(path)
	require.NoError(t, err)
	defer c.Close()
	testCache(t, c)
}

func TestSQLiteCachePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")
	ctx := context.Background()

	c, err := OpenSQLite(path)
	require.NoError(t, err)
	rec := types.NewDailyRecord("2025-03-09")
	rec.SetChannel("active_power", types.MeterChannel{CurrentReading: 42})
	require.NoError(t, c.Put(ctx, "substation", "2025-03-09", rec))
	require.NoError(t, c.Close())

	// reopen: the unsynced edit must still be there
	c2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer c2.Close()
	got, found, err := c2.Get(ctx, "substation", "2025-03-09")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 42.0, got.Channels["active_power"].CurrentReading)
}

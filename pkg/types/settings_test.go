package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSettings(t *testing.T) {
	t.Run("from zero", func(t *testing.T) {
		s, migrated, err := MigrateSettings(Settings{}, 0)
		require.NoError(t, err)
		assert.True(t, migrated)
		assert.Equal(t, 22.9, s.LineVoltageKV)
		assert.Equal(t, 1600.0, s.ContractedCapacityKW)
		assert.Equal(t, 30, s.LookbackDays)
		assert.Equal(t, 7, s.WorkLogLookbackDays)
	})

	t.Run("current version untouched", func(t *testing.T) {
		in := Settings{LineVoltageKV: 11.0, ContractedCapacityKW: 800, LookbackDays: 14, WorkLogLookbackDays: 3}
		s, migrated, err := MigrateSettings(in, CurrentSettingsVersion)
		require.NoError(t, err)
		assert.False(t, migrated)
		assert.Equal(t, in, s)
	})

	t.Run("preserves customized values", func(t *testing.T) {
		in := Settings{LineVoltageKV: 11.0}
		s, migrated, err := MigrateSettings(in, 0)
		require.NoError(t, err)
		assert.True(t, migrated)
		assert.Equal(t, 11.0, s.LineVoltageKV)
		assert.Equal(t, 1600.0, s.ContractedCapacityKW)
	})

	t.Run("unknown future version errors", func(t *testing.T) {
		_, _, err := MigrateSettings(Settings{}, -5)
		require.Error(t, err)
	})
}

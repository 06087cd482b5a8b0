package meter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testLineVoltageKV = 22.9
	testContractedKW  = 1600.0
)

func TestComputeElectrical(t *testing.T) {
	t.Run("full inputs", func(t *testing.T) {
		in := ElectricalInput{
			PowerFactorRaw:     95,
			CurrentAmps:        40,
			ActiveUsageKWH:     9600,
			ReactiveUsageKVarH: 2100,
		}
		m := ComputeElectrical(in, testLineVoltageKV, testContractedKW)

		require.NotNil(t, m.MaxPowerKW)
		expectedKW := math.Round(math.Sqrt(3) * testLineVoltageKV * 40 * 0.95)
		assert.Equal(t, expectedKW, *m.MaxPowerKW)

		require.NotNil(t, m.PowerFactorPercent)
		apparent := math.Sqrt(9600*9600 + 2100*2100)
		assert.InDelta(t, 9600/apparent*100, *m.PowerFactorPercent, 0.05)

		require.NotNil(t, m.LoadFactorPercent)
		assert.InDelta(t, (9600.0/24)/expectedKW*100, *m.LoadFactorPercent, 0.05)

		require.NotNil(t, m.DemandFactorPercent)
		assert.InDelta(t, expectedKW/testContractedKW*100, *m.DemandFactorPercent, 0.05)
	})

	t.Run("one decimal place", func(t *testing.T) {
		in := ElectricalInput{PowerFactorRaw: 90, CurrentAmps: 33, ActiveUsageKWH: 7000, ReactiveUsageKVarH: 1234}
		m := ComputeElectrical(in, testLineVoltageKV, testContractedKW)
		for _, v := range []*float64{m.PowerFactorPercent, m.LoadFactorPercent, m.DemandFactorPercent} {
			require.NotNil(t, v)
			assert.Equal(t, math.Round(*v*10)/10, *v)
		}
	})

	t.Run("zero active usage leaves power factor nil", func(t *testing.T) {
		in := ElectricalInput{PowerFactorRaw: 95, CurrentAmps: 40, ActiveUsageKWH: 0, ReactiveUsageKVarH: 500}
		m := ComputeElectrical(in, testLineVoltageKV, testContractedKW)
		assert.Nil(t, m.PowerFactorPercent)
		// max power only depends on the breaker reading
		assert.NotNil(t, m.MaxPowerKW)
	})

	t.Run("no amperage reading leaves everything dependent on it nil", func(t *testing.T) {
		in := ElectricalInput{PowerFactorRaw: 95, CurrentAmps: 0, ActiveUsageKWH: 9600}
		m := ComputeElectrical(in, testLineVoltageKV, testContractedKW)
		assert.Nil(t, m.MaxPowerKW)
		assert.Nil(t, m.LoadFactorPercent)
		assert.Nil(t, m.DemandFactorPercent)
		assert.NotNil(t, m.PowerFactorPercent)
	})

	t.Run("zero max power leaves load factor nil", func(t *testing.T) {
		in := ElectricalInput{PowerFactorRaw: 0, CurrentAmps: 40, ActiveUsageKWH: 9600}
		m := ComputeElectrical(in, testLineVoltageKV, testContractedKW)
		require.NotNil(t, m.MaxPowerKW)
		assert.Equal(t, 0.0, *m.MaxPowerKW)
		assert.Nil(t, m.LoadFactorPercent)
	})
}

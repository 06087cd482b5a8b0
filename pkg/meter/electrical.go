package meter

import (
	"math"

	"github.com/facilog/facilog/pkg/types"
)

// ElectricalInput is everything needed to derive the electrical metrics:
// the raw breaker readings plus the day's active and reactive usage totals.
type ElectricalInput struct {
	PowerFactorRaw     float64
	CurrentAmps        float64
	ActiveUsageKWH     float64
	ReactiveUsageKVarH float64
}

// ComputeElectrical derives the read-only electrical metrics from breaker
// readings and usage totals. lineVoltageKV and contractedCapacityKW come
// from site settings. Each output is nil when its inputs make it
// meaningless; nil is "not computable" which must stay distinguishable
// from a legitimate computed zero.
func ComputeElectrical(in ElectricalInput, lineVoltageKV, contractedCapacityKW float64) types.ElectricalMetrics {
	var m types.ElectricalMetrics

	// Max power needs a real amperage reading. The power factor raw value
	// is a percentage off the breaker display.
	if in.CurrentAmps > 0 && lineVoltageKV > 0 {
		kw := math.Round(math.Sqrt(3) * lineVoltageKV * in.CurrentAmps * (in.PowerFactorRaw / 100))
		m.MaxPowerKW = &kw
	}

	if in.ActiveUsageKWH != 0 {
		apparent := math.Sqrt(in.ActiveUsageKWH*in.ActiveUsageKWH + in.ReactiveUsageKVarH*in.ReactiveUsageKVarH)
		pf := round1(in.ActiveUsageKWH / apparent * 100)
		m.PowerFactorPercent = &pf
	}

	if m.MaxPowerKW != nil && *m.MaxPowerKW > 0 {
		lf := round1((in.ActiveUsageKWH / 24) / *m.MaxPowerKW * 100)
		m.LoadFactorPercent = &lf
	}

	if m.MaxPowerKW != nil && contractedCapacityKW > 0 {
		df := round1(*m.MaxPowerKW / contractedCapacityKW * 100)
		m.DemandFactorPercent = &df
	}

	return m
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

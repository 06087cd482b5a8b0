package types

import (
	"fmt"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 2

// Settings holds the site constants stored in the database. These are
// dynamic settings that can be changed without redeploying.
type Settings struct {
	// Line voltage at the main breaker in kV, used when deriving max power
	// from the breaker amperage reading.
	LineVoltageKV float64 `json:"lineVoltageKV"`

	// Contracted supply capacity in kW, the denominator of the demand
	// factor.
	ContractedCapacityKW float64 `json:"contractedCapacityKW"`

	// How many days of history to fetch when seeding previous readings for
	// meter subsystems.
	LookbackDays int `json:"lookbackDays"`

	// Lookback for work-log carry-forward. Task lists go stale much faster
	// than meter counters, so this is shorter.
	WorkLogLookbackDays int `json:"workLogLookbackDays"`

	// When true, prior-day unfinished tasks are not rolled into today.
	DisableCarryForward bool `json:"disableCarryForward"`
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were
// made, and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: site electrical constants
			if s.LineVoltageKV == 0 {
				s.LineVoltageKV = 22.9
				migrated = true
			}
			if s.ContractedCapacityKW == 0 {
				s.ContractedCapacityKW = 1600
				migrated = true
			}
			if s.LookbackDays == 0 {
				s.LookbackDays = 30
				migrated = true
			}
		case 2:
			// version 2: separate, shorter lookback for work-log subsystems
			if s.WorkLogLookbackDays == 0 {
				s.WorkLogLookbackDays = 7
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}

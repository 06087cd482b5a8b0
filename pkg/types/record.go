package types

import "sort"

// ChannelID identifies one independently metered quantity within a
// subsystem (e.g. substation active power, boiler gas).
type ChannelID string

// CategoryID identifies one work-log task category within a subsystem.
type CategoryID string

// MeterChannel holds one day's readings for a single metered quantity.
// Usage is nil when it cannot be attributed: either the current reading has
// not been entered yet, or the counter restarted because the physical meter
// was replaced. A nil Usage is displayed blank and is never negative.
type MeterChannel struct {
	PreviousReading  float64  `json:"previousReading"`
	CurrentReading   float64  `json:"currentReading"`
	Usage            *float64 `json:"usage"`
	MonthToDateTotal float64  `json:"monthToDateTotal"`
}

// BreakerReading holds the raw operator-entered readings from the
// facility's main breaker panel that feed the derived electrical metrics.
type BreakerReading struct {
	PowerFactorRaw float64 `json:"powerFactorRaw"`
	CurrentAmps    float64 `json:"currentAmps"`
}

// ElectricalMetrics are read-only values derived from breaker readings and
// the day's active/reactive usage totals. A nil field means "not
// computable" and must stay distinguishable from a computed zero.
type ElectricalMetrics struct {
	MaxPowerKW          *float64 `json:"maxPowerKW"`
	PowerFactorPercent  *float64 `json:"powerFactorPercent"`
	LoadFactorPercent   *float64 `json:"loadFactorPercent"`
	DemandFactorPercent *float64 `json:"demandFactorPercent"`
}

// DailyRecord is the resolved state of one subsystem for one calendar day.
// It is assembled by the reconciler on every date navigation and superseded
// entirely when the operator navigates to a different day. Persistence is
// field-by-field through the storage contract; the record itself is never
// stored as an object with its bookkeeping attached.
type DailyRecord struct {
	Date     string                     `json:"date"`
	Channels map[ChannelID]MeterChannel `json:"channels,omitempty"`
	Breaker  *BreakerReading            `json:"breaker,omitempty"`
	Derived  *ElectricalMetrics         `json:"derived,omitempty"`
	Tasks    map[CategoryID]TaskList    `json:"tasks,omitempty"`

	// Synthesized tracks which field paths were auto-filled (inherited
	// previous readings, computed totals, carried-forward tasks) as opposed
	// to user-entered. Bookkeeping only, never persisted.
	Synthesized map[string]bool `json:"-"`
}

// NewDailyRecord returns an all-empty record for day.
func NewDailyRecord(day string) DailyRecord {
	return DailyRecord{
		Date:        day,
		Channels:    map[ChannelID]MeterChannel{},
		Tasks:       map[CategoryID]TaskList{},
		Synthesized: map[string]bool{},
	}
}

// Channel returns the named channel, or a zero channel if absent.
func (r *DailyRecord) Channel(id ChannelID) MeterChannel {
	if r.Channels == nil {
		return MeterChannel{}
	}
	return r.Channels[id]
}

// SetChannel replaces the named channel, allocating the map if needed.
func (r *DailyRecord) SetChannel(id ChannelID, ch MeterChannel) {
	if r.Channels == nil {
		r.Channels = map[ChannelID]MeterChannel{}
	}
	r.Channels[id] = ch
}

// TaskListFor returns the task list for category, or an empty one.
func (r *DailyRecord) TaskListFor(id CategoryID) TaskList {
	if r.Tasks == nil {
		return TaskList{}
	}
	return r.Tasks[id]
}

// SetTaskList replaces the task list for category.
func (r *DailyRecord) SetTaskList(id CategoryID, l TaskList) {
	if r.Tasks == nil {
		r.Tasks = map[CategoryID]TaskList{}
	}
	r.Tasks[id] = l
}

// MarkSynthesized records that the field at path was auto-filled.
func (r *DailyRecord) MarkSynthesized(path string) {
	if r.Synthesized == nil {
		r.Synthesized = map[string]bool{}
	}
	r.Synthesized[path] = true
}

// ClearSynthesized records that the field at path is now user-entered.
func (r *DailyRecord) ClearSynthesized(path string) {
	delete(r.Synthesized, path)
}

// SynthesizedPaths returns the synthesized field paths in sorted order.
func (r *DailyRecord) SynthesizedPaths() []string {
	paths := make([]string, 0, len(r.Synthesized))
	for p := range r.Synthesized {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Clone returns a deep copy of the record. The reconciler clones before
// mutating so an adopted record never aliases fetched data.
func (r DailyRecord) Clone() DailyRecord {
	out := r
	if r.Channels != nil {
		out.Channels = make(map[ChannelID]MeterChannel, len(r.Channels))
		for id, ch := range r.Channels {
			if ch.Usage != nil {
				u := *ch.Usage
				ch.Usage = &u
			}
			out.Channels[id] = ch
		}
	}
	if r.Breaker != nil {
		b := *r.Breaker
		out.Breaker = &b
	}
	if r.Derived != nil {
		d := *r.Derived
		d.MaxPowerKW = cloneFloat(d.MaxPowerKW)
		d.PowerFactorPercent = cloneFloat(d.PowerFactorPercent)
		d.LoadFactorPercent = cloneFloat(d.LoadFactorPercent)
		d.DemandFactorPercent = cloneFloat(d.DemandFactorPercent)
		out.Derived = &d
	}
	if r.Tasks != nil {
		out.Tasks = make(map[CategoryID]TaskList, len(r.Tasks))
		for id, l := range r.Tasks {
			out.Tasks[id] = l.Clone()
		}
	}
	if r.Synthesized != nil {
		out.Synthesized = make(map[string]bool, len(r.Synthesized))
		for p, v := range r.Synthesized {
			out.Synthesized[p] = v
		}
	}
	return out
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

// DatedRecord pairs a stored record with its day key, as returned by range
// queries (ascending day order).
type DatedRecord struct {
	Date   string      `json:"date"`
	Record DailyRecord `json:"record"`
}

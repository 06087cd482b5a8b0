package reconciler

import (
	"github.com/facilog/facilog/pkg/types"
)

// mergeRecords deep-merges a draft over the server record, field by field,
// with draft values winning wherever both define a value. A draft that
// edited only one meter channel must not erase sibling channels present in
// the server record, so this is a per-field merge, never a replace.
//
// "Defines a value" in this domain: a non-zero scalar (zero readings mean
// "not entered", see the delta calculator), a non-empty task list, a
// non-nil breaker.
func mergeRecords(base, draft types.DailyRecord, day string) types.DailyRecord {
	out := base.Clone()
	out.Date = day
	if out.Synthesized == nil {
		out.Synthesized = map[string]bool{}
	}

	for id, d := range draft.Channels {
		merged := out.Channel(id)
		if d.PreviousReading != 0 {
			merged.PreviousReading = d.PreviousReading
		}
		if d.CurrentReading != 0 {
			merged.CurrentReading = d.CurrentReading
		}
		// usage and month-to-date are recomputed downstream, but carry the
		// draft's view in case a caller inspects the merged record directly
		if d.Usage != nil {
			u := *d.Usage
			merged.Usage = &u
		}
		if d.MonthToDateTotal != 0 {
			merged.MonthToDateTotal = d.MonthToDateTotal
		}
		out.SetChannel(id, merged)
	}

	if draft.Breaker != nil {
		b := types.BreakerReading{}
		if out.Breaker != nil {
			b = *out.Breaker
		}
		if draft.Breaker.PowerFactorRaw != 0 {
			b.PowerFactorRaw = draft.Breaker.PowerFactorRaw
		}
		if draft.Breaker.CurrentAmps != 0 {
			b.CurrentAmps = draft.Breaker.CurrentAmps
		}
		out.Breaker = &b
	}

	for id, d := range draft.Tasks {
		merged := out.TaskListFor(id)
		if len(d.Today) > 0 {
			merged.Today = append([]types.Task(nil), d.Today...)
		}
		if len(d.Tomorrow) > 0 {
			merged.Tomorrow = append([]types.Task(nil), d.Tomorrow...)
		}
		merged.CarryForwardApplied = merged.CarryForwardApplied || d.CarryForwardApplied
		out.SetTaskList(id, merged)
	}

	return out
}

package reconciler

import (
	"context"
	"fmt"
	"sync"

	"github.com/facilog/facilog/pkg/storage"
	"github.com/facilog/facilog/pkg/types"
)

// Accumulator computes month-to-date base sums: the total of all committed
// daily usage for a channel from month start through the day before the one
// being edited. Historical records are immutable once persisted, so results
// are cached per (subsystem, day) for the lifetime of the editing session
// and only recomputed on date change or an explicit refresh. This is an
// injected dependency with defined invalidation, not ambient module state.
type Accumulator struct {
	db storage.Database

	mu    sync.Mutex
	cache map[string]map[types.ChannelID]float64
}

// NewAccumulator returns an accumulator reading committed history from db.
func NewAccumulator(db storage.Database) *Accumulator {
	return &Accumulator{
		db:    db,
		cache: map[string]map[types.ChannelID]float64{},
	}
}

// SumSince returns the committed usage sum per channel for every persisted
// record strictly before day, back to the first of day's month. On the
// first day of a month there is nothing to sum and no history query is
// issued.
func (a *Accumulator) SumSince(ctx context.Context, subsystem, day string) (map[types.ChannelID]float64, error) {
	monthStart, err := types.MonthStart(day)
	if err != nil {
		return nil, err
	}
	if monthStart == day {
		return map[types.ChannelID]float64{}, nil
	}

	cacheKey := subsystem + "/" + day
	a.mu.Lock()
	if sums, ok := a.cache[cacheKey]; ok {
		a.mu.Unlock()
		return sums, nil
	}
	a.mu.Unlock()

	prev, err := types.PrevDay(day)
	if err != nil {
		return nil, err
	}
	recs, err := a.db.GetDayRange(ctx, subsystem, monthStart, prev)
	if err != nil {
		// all-or-nothing: a partial window would silently corrupt totals
		return nil, fmt.Errorf("month-to-date query %s [%s,%s]: %w", subsystem, monthStart, prev, err)
	}

	sums := map[types.ChannelID]float64{}
	for _, dr := range recs {
		for id, ch := range dr.Record.Channels {
			if ch.Usage != nil {
				sums[id] += *ch.Usage
			}
			// days with no recorded usage contribute 0
		}
	}

	a.mu.Lock()
	a.cache[cacheKey] = sums
	a.mu.Unlock()
	return sums, nil
}

// Invalidate drops all cached sums. Called after a save (committed usage
// feeds other days' totals) and on forced refresh.
func (a *Accumulator) Invalidate() {
	a.mu.Lock()
	a.cache = map[string]map[types.ChannelID]float64{}
	a.mu.Unlock()
}

package reconciler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/facilog/facilog/pkg/config"
	"github.com/facilog/facilog/pkg/draft"
	"github.com/facilog/facilog/pkg/log"
	"github.com/facilog/facilog/pkg/meter"
	"github.com/facilog/facilog/pkg/storage"
	"github.com/facilog/facilog/pkg/tasks"
	"github.com/facilog/facilog/pkg/types"
)

// Reconciler assembles a consistent day-record for a subsystem and date by
// merging the server-persisted record, the unsynced local draft, and
// values inherited from the most recent prior days. One generic pipeline
// serves every subsystem, parameterized by the site layout.
type Reconciler struct {
	db     storage.Database
	drafts draft.Cache
	site   *config.Site
	engine *tasks.Engine
	acc    *Accumulator

	mu            sync.Mutex
	nextSessionID uint64
	current       *session
}

// New builds a reconciler over the given store, draft cache, and site
// layout. A nil normalizer uses the default content normalization.
func New(db storage.Database, drafts draft.Cache, site *config.Site, normalize tasks.Normalizer) *Reconciler {
	return &Reconciler{
		db:     db,
		drafts: drafts,
		site:   site,
		engine: tasks.NewEngine(normalize),
		acc:    NewAccumulator(db),
	}
}

// Reconcile assembles the resolved record for one subsystem and day. It is
// idempotent: with no intervening writes, two calls return identical
// records. The three store fetches run concurrently; every transform after
// them is pure and synchronous.
func (r *Reconciler) Reconcile(ctx context.Context, subsystem, day string) (types.DailyRecord, error) {
	ctx = log.WithComponent(ctx, "reconciler")

	dayTime, err := types.ParseDay(day)
	if err != nil {
		return types.DailyRecord{}, err
	}
	sub, ok := r.site.Subsystem(subsystem)
	if !ok {
		return types.DailyRecord{}, fmt.Errorf("unknown subsystem %q", subsystem)
	}

	settings, err := r.settingsWithMigration(ctx)
	if err != nil {
		return types.DailyRecord{}, fmt.Errorf("load settings: %w", err)
	}

	r.mu.Lock()
	id := r.begin(subsystem, day)
	r.mu.Unlock()

	lookbackDays := sub.LookbackDays
	if lookbackDays <= 0 {
		if len(sub.Channels) == 0 {
			lookbackDays = settings.WorkLogLookbackDays
		} else {
			lookbackDays = settings.LookbackDays
		}
	}
	rangeStart, err := types.DaysBefore(day, lookbackDays)
	if err != nil {
		return types.DailyRecord{}, err
	}
	prevDay, err := types.PrevDay(day)
	if err != nil {
		return types.DailyRecord{}, err
	}

	var (
		serverRec   types.DailyRecord
		serverFound bool
		draftRec    types.DailyRecord
		draftFound  bool
		lookback    []types.DatedRecord
	)

	// the three fetches have no mutual dependency; failures are
	// all-or-nothing so a partial lookback can never feed the accumulation
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		serverRec, serverFound, err = r.db.GetDay(gctx, subsystem, day)
		return err
	})
	g.Go(func() error {
		var err error
		draftRec, draftFound, err = r.drafts.Get(gctx, subsystem, day)
		return err
	})
	g.Go(func() error {
		var err error
		lookback, err = r.db.GetDayRange(gctx, subsystem, rangeStart, prevDay)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.DailyRecord{}, fmt.Errorf("reconcile fetch %s/%s: %w", subsystem, day, err)
	}

	base := serverRec
	if !serverFound {
		base = types.NewDailyRecord(day)
	}
	merged := base
	if draftFound {
		merged = mergeRecords(base, draftRec, day)
	} else {
		merged = merged.Clone()
		merged.Date = day
		if merged.Synthesized == nil {
			merged.Synthesized = map[string]bool{}
		}
	}

	// most-recent-first for inheritance scans
	recent := make([]types.DatedRecord, 0, len(lookback))
	for i := len(lookback) - 1; i >= 0; i-- {
		recent = append(recent, lookback[i])
	}

	var priorSums map[types.ChannelID]float64
	if len(sub.Channels) > 0 {
		r.seedPreviousReadings(&merged, sub, recent)

		priorSums, err = r.acc.SumSince(ctx, subsystem, day)
		if err != nil {
			return types.DailyRecord{}, err
		}
		r.applyDeltas(&merged, sub, priorSums)
		r.applyDerived(&merged, sub, settings.LineVoltageKV, settings.ContractedCapacityKW)
	}

	r.applyCarryForward(&merged, sub, subsystem, day, dayTime, recent, settings)

	r.mu.Lock()
	adopted := r.adopt(id, &session{
		subsystem:     subsystem,
		day:           day,
		record:        merged.Clone(),
		priorSums:     priorSums,
		lineVoltageKV: settings.LineVoltageKV,
		contractedKW:  settings.ContractedCapacityKW,
	})
	r.mu.Unlock()

	if !adopted {
		log.Ctx(ctx).DebugContext(ctx, "reconcile result superseded by newer navigation",
			slog.String("subsystem", subsystem),
			slog.String("day", day),
		)
	} else {
		log.Ctx(ctx).DebugContext(ctx, "reconcile adopted",
			slog.String("subsystem", subsystem),
			slog.String("day", day),
			slog.Bool("serverRecord", serverFound),
			slog.Bool("draft", draftFound),
			slog.Int("lookbackRecords", len(lookback)),
		)
	}

	return merged, nil
}

// seedPreviousReadings inherits each channel's previous reading from the
// most recent prior day's current reading. This only fires when the field
// is genuinely empty; a user-entered previous reading is never overwritten.
func (r *Reconciler) seedPreviousReadings(rec *types.DailyRecord, sub config.Subsystem, recent []types.DatedRecord) {
	for _, ch := range sub.Channels {
		merged := rec.Channel(ch.ID)
		if merged.PreviousReading != 0 {
			continue
		}
		for _, prior := range recent {
			pc := prior.Record.Channel(ch.ID)
			if pc.CurrentReading > 0 {
				merged.PreviousReading = pc.CurrentReading
				rec.SetChannel(ch.ID, merged)
				rec.MarkSynthesized(channelPath(ch.ID, "previousReading"))
				break
			}
		}
	}
}

// applyDeltas recomputes usage and month-to-date totals for every channel.
func (r *Reconciler) applyDeltas(rec *types.DailyRecord, sub config.Subsystem, priorSums map[types.ChannelID]float64) {
	for _, ch := range sub.Channels {
		merged := rec.Channel(ch.ID)
		d := meter.ComputeDelta(merged.PreviousReading, merged.CurrentReading)
		merged.Usage, merged.MonthToDateTotal = meter.ApplyDelta(d, priorSums[ch.ID])
		rec.SetChannel(ch.ID, merged)
		rec.MarkSynthesized(channelPath(ch.ID, "usage"))
		rec.MarkSynthesized(channelPath(ch.ID, "monthToDateTotal"))
	}
}

// applyDerived recomputes the electrical metrics when the subsystem has a
// breaker and a reading is present.
func (r *Reconciler) applyDerived(rec *types.DailyRecord, sub config.Subsystem, lineVoltageKV, contractedKW float64) {
	if !sub.HasBreaker || rec.Breaker == nil {
		rec.Derived = nil
		return
	}
	in := meter.ElectricalInput{
		PowerFactorRaw: rec.Breaker.PowerFactorRaw,
		CurrentAmps:    rec.Breaker.CurrentAmps,
	}
	if u := rec.Channel(sub.ActiveChannel).Usage; u != nil {
		in.ActiveUsageKWH = *u
	}
	if u := rec.Channel(sub.ReactiveChannel).Usage; u != nil {
		in.ReactiveUsageKVarH = *u
	}
	m := meter.ComputeElectrical(in, lineVoltageKV, contractedKW)
	rec.Derived = &m
	rec.MarkSynthesized("derived")
}

// applyCarryForward rolls the most recent prior day's unfinished
// "tomorrow" tasks into today for each category, seeding an empty day from
// the recurring templates.
func (r *Reconciler) applyCarryForward(rec *types.DailyRecord, sub config.Subsystem, subsystem, day string, dayTime time.Time, recent []types.DatedRecord, settings types.Settings) {
	for _, cat := range sub.Categories {
		list := rec.TaskListFor(cat.ID)
		if list.CarryForwardApplied {
			continue
		}
		scope := subsystem + "/" + string(cat.ID) + "/" + day
		auto := r.engine.Generate(scope, dayTime, cat.ParsedTemplates())

		var priorTomorrow []types.Task
		if !settings.DisableCarryForward && len(recent) > 0 {
			priorTomorrow = recent[0].Record.TaskListFor(cat.ID).Tomorrow
		}

		today := r.engine.CarryForward(scope, priorTomorrow, auto, list.Today)
		if len(today) != len(list.Today) {
			rec.MarkSynthesized("tasks." + string(cat.ID) + ".today")
		}
		list.Today = today
		rec.SetTaskList(cat.ID, list)
	}
}

// settingsWithMigration loads settings and applies pending migrations,
// persisting them when anything changed.
func (r *Reconciler) settingsWithMigration(ctx context.Context) (types.Settings, error) {
	settings, version, err := r.db.GetSettings(ctx)
	if err != nil {
		return types.Settings{}, err
	}
	migrated, changed, err := types.MigrateSettings(settings, version)
	if err != nil {
		return types.Settings{}, err
	}
	if changed {
		if err := r.db.SetSettings(ctx, migrated, types.CurrentSettingsVersion); err != nil {
			// not fatal: the migrated values are still usable this session
			log.Ctx(ctx).WarnContext(ctx, "failed to persist migrated settings", slog.Any("error", err))
		}
	}
	return migrated, nil
}

// ForceRefresh drops the cached month-to-date sums and reconciles the
// current day again.
func (r *Reconciler) ForceRefresh(ctx context.Context) (types.DailyRecord, error) {
	r.mu.Lock()
	s := r.current
	r.mu.Unlock()
	if s == nil || s.state != stateReady {
		return types.DailyRecord{}, ErrNotReady
	}
	r.acc.Invalidate()
	return r.Reconcile(ctx, s.subsystem, s.day)
}

// Record returns a snapshot of the live editing record.
func (r *Reconciler) Record(subsystem, day string) (types.DailyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ready(subsystem, day)
	if err != nil {
		return types.DailyRecord{}, err
	}
	return s.record.Clone(), nil
}

func channelPath(id types.ChannelID, field string) string {
	return "channels." + string(id) + "." + field
}

package main

import (
	"context"
	"math"
	"math/rand"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/levenlabs/go-lflag"

	"github.com/facilog/facilog/pkg/log"
	"github.com/facilog/facilog/pkg/storage"
	"github.com/facilog/facilog/pkg/types"
)

// Seeds a month of plausible logbook history into the emulator so the UI
// and the reconciler have something to chew on.
func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	s := storage.Configured()
	lflag.Configure()

	ctx := context.Background()

	log.Ctx(ctx).InfoContext(ctx, "seeding logbook history")

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	settings := types.Settings{
		LineVoltageKV:        22.9,
		ContractedCapacityKW: 1600,
		LookbackDays:         30,
		WorkLogLookbackDays:  7,
	}
	if err := s.SetSettings(ctx, settings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to seed settings", "error", err)
		os.Exit(1)
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	// meter counters just keep climbing
	activeCounter := 1_240_000.0
	reactiveCounter := 310_000.0
	hvacCounter := 52_000.0
	boilerCounter := 87_000.0

	// running month-to-date per subsystem, matching what saves through the
	// reconciler would have committed
	subMTD := map[types.ChannelID]float64{}
	gasMTD := map[types.ChannelID]float64{}

	taskPool := []string{
		"배수펌프 점검",
		"필터 교체",
		"옥상 배관 동파 확인",
		"비상발전기 시운전",
		"주차장 조명 점검",
	}

	var days, records int
	for d := monthStart; d.Before(now); d = d.AddDate(0, 0, 1) {
		day := types.FormatDay(d)
		days++

		// substation: ~9.5MWh weekdays, less on weekends
		activeUsage := 9500.0 + rng.Float64()*800
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			activeUsage *= 0.6
		}
		reactiveUsage := activeUsage * (0.20 + rng.Float64()*0.05)

		sub := types.NewDailyRecord(day)
		sub.SetChannel("active_power", types.MeterChannel{
			PreviousReading: math.Round(activeCounter),
			CurrentReading:  math.Round(activeCounter + activeUsage),
		})
		sub.SetChannel("reactive_power", types.MeterChannel{
			PreviousReading: math.Round(reactiveCounter),
			CurrentReading:  math.Round(reactiveCounter + reactiveUsage),
		})
		sub.Breaker = &types.BreakerReading{
			PowerFactorRaw: 93 + rng.Float64()*4,
			CurrentAmps:    380 + rng.Float64()*60,
		}
		commitUsage(sub, subMTD)
		activeCounter += activeUsage
		reactiveCounter += reactiveUsage
		if err := s.PutDay(ctx, "substation", day, sub); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed day", "subsystem", "substation", "day", day, "error", err)
			os.Exit(1)
		}
		records++

		hvacUsage := 40 + rng.Float64()*15
		boilerUsage := 120 + rng.Float64()*40
		gas := types.NewDailyRecord(day)
		gas.SetChannel("hvac_gas", types.MeterChannel{
			PreviousReading: math.Round(hvacCounter),
			CurrentReading:  math.Round(hvacCounter + hvacUsage),
		})
		gas.SetChannel("boiler_gas", types.MeterChannel{
			PreviousReading: math.Round(boilerCounter),
			CurrentReading:  math.Round(boilerCounter + boilerUsage),
		})
		commitUsage(gas, gasMTD)
		hvacCounter += hvacUsage
		boilerCounter += boilerUsage
		if err := s.PutDay(ctx, "hvac-boiler", day, gas); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed day", "subsystem", "hvac-boiler", "day", day, "error", err)
			os.Exit(1)
		}
		records++

		work := types.NewDailyRecord(day)
		list := types.TaskList{CarryForwardApplied: true}
		for _, content := range pick(rng, taskPool, 2) {
			status := types.StatusDone
			if rng.Float64() < 0.3 {
				status = types.StatusInProgress
			}
			list.Today = append(list.Today, types.Task{
				ID:      uuid.NewString(),
				Content: content,
				Status:  status,
			})
		}
		if rng.Float64() < 0.5 {
			list.Tomorrow = append(list.Tomorrow, types.Task{
				ID:      uuid.NewString(),
				Content: taskPool[rng.Intn(len(taskPool))],
			})
		}
		work.SetTaskList("facility", list)
		if err := s.PutDay(ctx, "work-log", day, work); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to seed day", "subsystem", "work-log", "day", day, "error", err)
			os.Exit(1)
		}
		records++
	}

	if err := s.Close(); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", "error", err)
	}

	log.Ctx(ctx).InfoContext(ctx, "seed complete",
		"days", humanize.Comma(int64(days)),
		"records", humanize.Comma(int64(records)),
		"activeCounter", humanize.Commaf(math.Round(activeCounter)),
	)
}

// commitUsage fills in usage and the running month-to-date so the seeded
// history looks like records saved through the reconciler.
func commitUsage(rec types.DailyRecord, mtd map[types.ChannelID]float64) {
	for id, ch := range rec.Channels {
		u := math.Round(ch.CurrentReading - ch.PreviousReading)
		ch.Usage = &u
		mtd[id] += u
		ch.MonthToDateTotal = mtd[id]
		rec.SetChannel(id, ch)
	}
}

func pick(rng *rand.Rand, pool []string, n int) []string {
	idx := rng.Perm(len(pool))
	if n > len(idx) {
		n = len(idx)
	}
	out := make([]string, 0, n)
	for _, i := range idx[:n] {
		out = append(out, pool[i])
	}
	return out
}

package storage

import (
	"context"
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/facilog/facilog/pkg/types"
)

// Database is the server-side day-record store. Each subsystem prefix is an
// independent keyspace; within a keyspace records are keyed by canonical
// day strings so range queries are plain lexicographic scans.
type Database interface {
	// Day records
	// GetDay returns the stored record for the day. absent days return
	// found=false, not an error.
	GetDay(ctx context.Context, subsystem, day string) (types.DailyRecord, bool, error)
	// PutDay stores the record for the day, replacing any prior version.
	// There are no partial-write semantics: it either lands or errors.
	PutDay(ctx context.Context, subsystem, day string, rec types.DailyRecord) error
	// GetDayRange returns every stored record with startDay <= day <= endDay,
	// in ascending day order. Failures are all-or-nothing; callers never see
	// a partial window.
	GetDayRange(ctx context.Context, subsystem, startDay, endDay string) ([]types.DatedRecord, error)

	// Settings
	GetSettings(ctx context.Context) (types.Settings, int, error)
	SetSettings(ctx context.Context, settings types.Settings, version int) error

	// Lifecycle
	Close() error
}

// Configured sets up the storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore)")

	var p struct{ Database }

	fs := configuredFirestore()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}

package draft

import (
	"context"
	"fmt"

	"github.com/levenlabs/go-lflag"

	"github.com/facilog/facilog/pkg/types"
)

// Cache stages in-progress edits that have not been confirmed to the
// server store. It is entirely local and namespaced per subsystem so it can
// never be confused with the server keyspace. A present draft outranks the
// server record field-by-field during reconciliation, but it is never the
// sole source of truth. Zero readings in a draft mean "not entered", so a
// draft cannot clear a server value back to blank; the server value wins
// again on the next reconcile.
type Cache interface {
	// Get returns the draft for the day, found=false when none is staged.
	Get(ctx context.Context, namespace, day string) (types.DailyRecord, bool, error)
	// Put stages a draft, replacing any prior draft for the day.
	Put(ctx context.Context, namespace, day string, rec types.DailyRecord) error
	// Clear drops the draft for the day (a successful save makes it moot).
	Clear(ctx context.Context, namespace, day string) error
	Close() error
}

// Configured sets up the draft cache based on flags.
func Configured() Cache {
	backend := lflag.String("draft-backend", "sqlite", "Draft cache backend to use (available: sqlite, memory)")
	path := lflag.String("draft-path", "", "Path to the draft cache database (default: ~/.facilog-drafts.db)")

	var c struct{ Cache }

	lflag.Do(func() {
		switch *backend {
		case "sqlite":
			p := *path
			if p == "" {
				var err error
				p, err = DefaultDBPath()
				if err != nil {
					panic(fmt.Sprintf("draft cache default path: %v", err))
				}
			}
			sq, err := OpenSQLite(p)
			if err != nil {
				panic(fmt.Sprintf("draft cache init failed: %v", err))
			}
			c.Cache = sq
		case "memory":
			c.Cache = NewMemory()
		default:
			panic(fmt.Sprintf("unknown draft backend: %s", *backend))
		}
	})

	return &c
}

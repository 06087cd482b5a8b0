package reconciler

import (
	"errors"

	"github.com/facilog/facilog/pkg/types"
)

// ErrNotReady is returned by mutators while no reconciled record has been
// adopted for the requested day. Field edits during the load window must be
// suppressed, otherwise a stale empty record could be flushed to the draft
// cache and clobber a real unsynced draft.
var ErrNotReady = errors.New("reconciliation in progress, record not adopted yet")

type sessionState int

const (
	stateIdle sessionState = iota
	stateLoading
	stateReady
)

// session is one date-navigation's editing state. Each Reconcile call gets
// a monotonically increasing id; only the highest id's result is ever
// adopted, so navigating away mid-load cancels adoption of the stale
// result (last-writer-wins on the date selection, not on field contents).
type session struct {
	id        uint64
	subsystem string
	day       string
	state     sessionState

	record        types.DailyRecord
	priorSums     map[types.ChannelID]float64
	lineVoltageKV float64
	contractedKW  float64
}

// begin starts a new loading session and supersedes any session in flight.
// Caller holds r.mu.
func (r *Reconciler) begin(subsystem, day string) uint64 {
	r.nextSessionID++
	r.current = &session{
		id:        r.nextSessionID,
		subsystem: subsystem,
		day:       day,
		state:     stateLoading,
	}
	return r.nextSessionID
}

// adopt promotes the session's result to live editing state if it is still
// the newest session. Caller holds r.mu. Returns false when a newer
// navigation superseded this one.
func (r *Reconciler) adopt(id uint64, s *session) bool {
	if r.current == nil || r.current.id != id {
		return false
	}
	s.id = id
	s.state = stateReady
	r.current = s
	return true
}

// ready returns the live session if it is Ready for the given subsystem
// and day. Caller holds r.mu.
func (r *Reconciler) ready(subsystem, day string) (*session, error) {
	s := r.current
	if s == nil || s.state != stateReady || s.subsystem != subsystem || s.day != day {
		return nil, ErrNotReady
	}
	return s, nil
}

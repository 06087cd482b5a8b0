package reconciler

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/facilog/facilog/pkg/config"
	"github.com/facilog/facilog/pkg/meter"
	"github.com/facilog/facilog/pkg/types"
)

// Field mutators. Each one edits the live record, re-runs the relevant
// calculator so derived fields stay consistent, updates the synthesized
// bookkeeping, and stages the result to the draft cache. They all refuse
// to run with ErrNotReady until the day's reconciliation has been adopted;
// that is the guard that keeps a half-loaded record out of the draft
// cache.

// SetMeterReading sets a channel's "previous" or "current" reading from
// free-text input and recomputes usage, month-to-date, and the derived
// electrical metrics.
func (r *Reconciler) SetMeterReading(ctx context.Context, subsystem, day string, channel types.ChannelID, field, raw string) (types.DailyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ready(subsystem, day)
	if err != nil {
		return types.DailyRecord{}, err
	}
	sub, ok := r.site.Subsystem(subsystem)
	if !ok {
		return types.DailyRecord{}, fmt.Errorf("unknown subsystem %q", subsystem)
	}

	value := meter.ToNumber(raw)
	ch := s.record.Channel(channel)
	switch field {
	case "previousReading":
		ch.PreviousReading = value
	case "currentReading":
		ch.CurrentReading = value
	default:
		return types.DailyRecord{}, fmt.Errorf("unknown meter field %q", field)
	}
	d := meter.ComputeDelta(ch.PreviousReading, ch.CurrentReading)
	ch.Usage, ch.MonthToDateTotal = meter.ApplyDelta(d, s.priorSums[channel])
	s.record.SetChannel(channel, ch)
	s.record.ClearSynthesized(channelPath(channel, field))

	r.recomputeDerived(s, sub)
	return r.stage(ctx, s)
}

// SetBreakerReading sets one of the main-breaker readings and recomputes
// the derived metrics.
func (r *Reconciler) SetBreakerReading(ctx context.Context, subsystem, day, field, raw string) (types.DailyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ready(subsystem, day)
	if err != nil {
		return types.DailyRecord{}, err
	}
	sub, ok := r.site.Subsystem(subsystem)
	if !ok || !sub.HasBreaker {
		return types.DailyRecord{}, fmt.Errorf("subsystem %q has no breaker", subsystem)
	}

	if s.record.Breaker == nil {
		s.record.Breaker = &types.BreakerReading{}
	}
	value := meter.ToNumber(raw)
	switch field {
	case "powerFactorRaw":
		s.record.Breaker.PowerFactorRaw = value
	case "currentAmps":
		s.record.Breaker.CurrentAmps = value
	default:
		return types.DailyRecord{}, fmt.Errorf("unknown breaker field %q", field)
	}

	r.recomputeDerived(s, sub)
	return r.stage(ctx, s)
}

// AddTask appends a user-entered task to the category's today or tomorrow
// list. Unlike carried-forward entries, a direct user duplicate is allowed.
func (r *Reconciler) AddTask(ctx context.Context, subsystem, day string, category types.CategoryID, list, content string) (types.DailyRecord, error) {
	if strings.TrimSpace(content) == "" {
		return types.DailyRecord{}, fmt.Errorf("task content cannot be blank")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ready(subsystem, day)
	if err != nil {
		return types.DailyRecord{}, err
	}

	task := types.Task{ID: uuid.NewString(), Content: content}
	l := s.record.TaskListFor(category)
	switch list {
	case "today":
		task.Status = types.StatusInProgress
		l.Today = append(l.Today, task)
	case "tomorrow":
		l.Tomorrow = append(l.Tomorrow, task)
	default:
		return types.DailyRecord{}, fmt.Errorf("unknown task list %q", list)
	}
	s.record.SetTaskList(category, l)
	s.record.ClearSynthesized("tasks." + string(category) + "." + list)
	return r.stage(ctx, s)
}

// SetTaskContent replaces the content of an existing task. Blank content
// is rejected the same way AddTask rejects it; emptying a task is a
// RemoveTask, not an edit.
func (r *Reconciler) SetTaskContent(ctx context.Context, subsystem, day string, category types.CategoryID, taskID, content string) (types.DailyRecord, error) {
	if strings.TrimSpace(content) == "" {
		return types.DailyRecord{}, fmt.Errorf("task content cannot be blank")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ready(subsystem, day)
	if err != nil {
		return types.DailyRecord{}, err
	}
	if !mutateTask(&s.record, category, taskID, func(t *types.Task) {
		t.Content = content
	}) {
		return types.DailyRecord{}, fmt.Errorf("task %s not found in category %s", taskID, category)
	}
	return r.stage(ctx, s)
}

// SetTaskStatus updates the completion status of a today-list task.
func (r *Reconciler) SetTaskStatus(ctx context.Context, subsystem, day string, category types.CategoryID, taskID string, status types.TaskStatus) (types.DailyRecord, error) {
	switch status {
	case types.StatusInProgress, types.StatusDone:
	default:
		return types.DailyRecord{}, fmt.Errorf("invalid task status %q", status)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ready(subsystem, day)
	if err != nil {
		return types.DailyRecord{}, err
	}
	l := s.record.TaskListFor(category)
	found := false
	for i := range l.Today {
		if l.Today[i].ID == taskID {
			l.Today[i].Status = status
			found = true
			break
		}
	}
	if !found {
		return types.DailyRecord{}, fmt.Errorf("task %s not found in category %s", taskID, category)
	}
	s.record.SetTaskList(category, l)
	return r.stage(ctx, s)
}

// RemoveTask deletes a task from either list.
func (r *Reconciler) RemoveTask(ctx context.Context, subsystem, day string, category types.CategoryID, taskID string) (types.DailyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ready(subsystem, day)
	if err != nil {
		return types.DailyRecord{}, err
	}
	l := s.record.TaskListFor(category)
	removed := false
	l.Today = removeTask(l.Today, taskID, &removed)
	l.Tomorrow = removeTask(l.Tomorrow, taskID, &removed)
	if !removed {
		return types.DailyRecord{}, fmt.Errorf("task %s not found in category %s", taskID, category)
	}
	s.record.SetTaskList(category, l)
	return r.stage(ctx, s)
}

// MarkCarryForwardApplied records that the operator has reviewed the
// rolled-over tasks for the category, so later reconciles leave the list
// alone.
func (r *Reconciler) MarkCarryForwardApplied(ctx context.Context, subsystem, day string, category types.CategoryID) (types.DailyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ready(subsystem, day)
	if err != nil {
		return types.DailyRecord{}, err
	}
	l := s.record.TaskListFor(category)
	l.CarryForwardApplied = true
	s.record.SetTaskList(category, l)
	s.record.ClearSynthesized("tasks." + string(category) + ".today")
	return r.stage(ctx, s)
}

// Save persists the named day's record to the server store. The write is
// gated on the live session matching the request, so a stale save aimed at
// a day the operator already navigated away from returns ErrNotReady
// instead of committing the wrong record. On success the staged draft is
// cleared and cached month sums invalidated (this day's committed usage
// feeds other days' totals). On failure both the in-memory record and the
// draft are left untouched so the edit can be retried.
func (r *Reconciler) Save(ctx context.Context, subsystem, day string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.ready(subsystem, day)
	if err != nil {
		return err
	}
	if err := r.db.PutDay(ctx, s.subsystem, s.day, s.record); err != nil {
		return fmt.Errorf("save %s/%s: %w", s.subsystem, s.day, err)
	}
	if err := r.drafts.Clear(ctx, s.subsystem, s.day); err != nil {
		return fmt.Errorf("clear draft after save %s/%s: %w", s.subsystem, s.day, err)
	}
	r.acc.Invalidate()
	return nil
}

func (r *Reconciler) recomputeDerived(s *session, sub config.Subsystem) {
	r.applyDerived(&s.record, sub, s.lineVoltageKV, s.contractedKW)
}

func mutateTask(rec *types.DailyRecord, category types.CategoryID, taskID string, fn func(*types.Task)) bool {
	l := rec.TaskListFor(category)
	for i := range l.Today {
		if l.Today[i].ID == taskID {
			fn(&l.Today[i])
			rec.SetTaskList(category, l)
			return true
		}
	}
	for i := range l.Tomorrow {
		if l.Tomorrow[i].ID == taskID {
			fn(&l.Tomorrow[i])
			rec.SetTaskList(category, l)
			return true
		}
	}
	return false
}

func removeTask(list []types.Task, taskID string, removed *bool) []types.Task {
	for i := range list {
		if list[i].ID == taskID {
			*removed = true
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// stage writes the live record to the draft cache and returns a snapshot.
// Caller holds r.mu with a Ready session.
func (r *Reconciler) stage(ctx context.Context, s *session) (types.DailyRecord, error) {
	if err := r.drafts.Put(ctx, s.subsystem, s.day, s.record); err != nil {
		return types.DailyRecord{}, fmt.Errorf("stage draft %s/%s: %w", s.subsystem, s.day, err)
	}
	return s.record.Clone(), nil
}

package tasks

import (
	"time"

	"github.com/facilog/facilog/pkg/types"
)

// Template describes a recurring task configured for a category. Weekly
// templates fire on Weekday; monthly templates fire on DayOfMonth (1-31,
// clamped to the month's length implicitly by never matching).
type Template struct {
	Content    string
	Frequency  types.TaskFrequency
	Weekday    time.Weekday
	DayOfMonth int
}

// appliesOn reports whether the template generates a task on day.
func (t Template) appliesOn(day time.Time) bool {
	switch t.Frequency {
	case types.FrequencyDaily:
		return true
	case types.FrequencyWeekly:
		return day.Weekday() == t.Weekday
	case types.FrequencyMonthly:
		return day.Day() == t.DayOfMonth
	default:
		return false
	}
}

// Generate expands the templates that apply on day into the auto-generated
// seed list for scope. IDs are deterministic so regeneration is stable.
func (e *Engine) Generate(scope string, day time.Time, templates []Template) []types.Task {
	var out []types.Task
	for _, tpl := range templates {
		if tpl.Content == "" || !tpl.appliesOn(day) {
			continue
		}
		out = append(out, types.Task{
			ID:        deterministicID(scope, "auto", e.normalize(tpl.Content)),
			Content:   tpl.Content,
			Frequency: tpl.Frequency,
			Status:    types.StatusInProgress,
		})
	}
	return out
}

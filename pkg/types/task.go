package types

// TaskFrequency is how often a recurring task is expected.
type TaskFrequency string

const (
	FrequencyDaily   TaskFrequency = "daily"
	FrequencyWeekly  TaskFrequency = "weekly"
	FrequencyMonthly TaskFrequency = "monthly"
)

// TaskStatus tracks completion of a task on the "today" list. It is empty
// for tasks on the "tomorrow" list, where status is not meaningful.
type TaskStatus string

const (
	StatusNone       TaskStatus = ""
	StatusInProgress TaskStatus = "inProgress"
	StatusDone       TaskStatus = "done"
)

// Task is one work-log entry.
type Task struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Frequency TaskFrequency `json:"frequency,omitempty"`
	Status    TaskStatus    `json:"status,omitempty"`
}

// TaskList holds the work planned or done today and the work planned for
// tomorrow, for one category.
type TaskList struct {
	Today    []Task `json:"today,omitempty"`
	Tomorrow []Task `json:"tomorrow,omitempty"`

	// CarryForwardApplied records that the operator accepted (or declined)
	// the rolled-over tasks for this day, so a later reconcile does not
	// re-apply carry-forward on top of their edits.
	CarryForwardApplied bool `json:"carryForwardApplied,omitempty"`
}

// Clone returns a deep copy of the list.
func (l TaskList) Clone() TaskList {
	out := TaskList{}
	if l.Today != nil {
		out.Today = append([]Task(nil), l.Today...)
	}
	if l.Tomorrow != nil {
		out.Tomorrow = append([]Task(nil), l.Tomorrow...)
	}
	return out
}

// Empty reports whether the list has no entries at all.
func (l TaskList) Empty() bool {
	return len(l.Today) == 0 && len(l.Tomorrow) == 0
}

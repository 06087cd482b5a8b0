package tasks

import (
	"strings"

	"github.com/google/uuid"

	"github.com/facilog/facilog/pkg/types"
)

// idNamespace scopes the deterministic task IDs minted by the engine.
var idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("facilog/tasks"))

// Engine rolls unfinished work into the next day and expands recurring
// templates. All IDs it mints are derived from the scope and content, so
// running the same inputs twice produces byte-identical output.
type Engine struct {
	normalize Normalizer
}

// NewEngine returns an engine using the given normalizer, or
// DefaultNormalizer when nil.
func NewEngine(n Normalizer) *Engine {
	if n == nil {
		n = DefaultNormalizer
	}
	return &Engine{normalize: n}
}

// deterministicID mints a stable ID for a task appearing in scope (the
// subsystem/category/day the list belongs to).
func deterministicID(scope, kind, normalized string) string {
	return uuid.NewSHA1(idNamespace, []byte(scope+"|"+kind+"|"+normalized)).String()
}

// CarryForward merges the prior day's "planned for tomorrow" list into
// today's list. The working list starts from existing, or from
// autoGenerated when the day has no entries yet (recurring tasks seed an
// empty day). Each prior task with non-blank content is appended with a
// fresh ID and status forced to inProgress, unless a task with the same
// normalized content is already present. Order is append-only; existing
// entries are never reordered or removed. Blank-content tasks are
// abandoned placeholders and are silently dropped.
func (e *Engine) CarryForward(scope string, priorTomorrow, autoGenerated, existing []types.Task) []types.Task {
	working := existing
	if len(working) == 0 {
		working = autoGenerated
	}
	out := append([]types.Task(nil), working...)

	seen := make(map[string]bool, len(out))
	for _, t := range out {
		seen[e.normalize(t.Content)] = true
	}

	for _, t := range priorTomorrow {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		key := e.normalize(t.Content)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, types.Task{
			ID:        deterministicID(scope, "carry", key),
			Content:   t.Content,
			Frequency: t.Frequency,
			Status:    types.StatusInProgress,
		})
	}
	return out
}

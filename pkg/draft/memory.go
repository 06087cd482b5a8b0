package draft

import (
	"context"
	"sync"

	"github.com/facilog/facilog/pkg/types"
)

// Memory is an in-process Cache, used in tests and for ephemeral dev runs.
type Memory struct {
	mu     sync.RWMutex
	drafts map[string]types.DailyRecord
}

var _ Cache = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{drafts: map[string]types.DailyRecord{}}
}

func key(namespace, day string) string {
	return namespace + "\x00" + day
}

func (m *Memory) Get(_ context.Context, namespace, day string) (types.DailyRecord, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.drafts[key(namespace, day)]
	if !ok {
		return types.DailyRecord{}, false, nil
	}
	return rec.Clone(), true, nil
}

func (m *Memory) Put(_ context.Context, namespace, day string, rec types.DailyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[key(namespace, day)] = rec.Clone()
	return nil
}

func (m *Memory) Clear(_ context.Context, namespace, day string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drafts, key(namespace, day))
	return nil
}

func (m *Memory) Close() error {
	return nil
}

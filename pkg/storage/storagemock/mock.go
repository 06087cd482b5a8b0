package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/facilog/facilog/pkg/storage"
	"github.com/facilog/facilog/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetDay(ctx context.Context, subsystem, day string) (types.DailyRecord, bool, error) {
	args := m.Called(ctx, subsystem, day)
	if len(args) > 0 {
		return args.Get(0).(types.DailyRecord), args.Bool(1), args.Error(2)
	}
	return types.DailyRecord{}, false, nil
}

func (m *MockDatabase) PutDay(ctx context.Context, subsystem, day string, rec types.DailyRecord) error {
	args := m.Called(ctx, subsystem, day, rec)
	return args.Error(0)
}

func (m *MockDatabase) GetDayRange(ctx context.Context, subsystem, startDay, endDay string) ([]types.DatedRecord, error) {
	args := m.Called(ctx, subsystem, startDay, endDay)
	if len(args) > 0 {
		if recs, ok := args.Get(0).([]types.DatedRecord); ok {
			return recs, args.Error(1)
		}
		return nil, args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) GetSettings(ctx context.Context) (types.Settings, int, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
	}
	return types.Settings{}, 0, nil
}

func (m *MockDatabase) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	args := m.Called(ctx, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}

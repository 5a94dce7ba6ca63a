package cli

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/storyforge-labs/storyforge-core/internal/config"
	"github.com/storyforge-labs/storyforge-core/internal/core/domain"
	"github.com/storyforge-labs/storyforge-core/internal/core/ports/driven/mocks"
)

// MockSchedulerStore is a mock implementation of driven.SchedulerStore
type MockSchedulerStore struct {
	mock.Mock
}

func (m *MockSchedulerStore) GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ScheduledTask), args.Error(1)
}

func (m *MockSchedulerStore) ListScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledTask), args.Error(1)
}

func (m *MockSchedulerStore) SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockSchedulerStore) DeleteScheduledTask(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSchedulerStore) GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScheduledTask), args.Error(1)
}

func (m *MockSchedulerStore) UpdateLastRun(ctx context.Context, id string, lastError string) error {
	args := m.Called(ctx, id, lastError)
	return args.Error(0)
}

func newSchedulerTestState(interval string, count int) *rootState {
	cfg := config.Default()
	cfg.Worker.ScheduleInterval = interval
	cfg.Worker.ScheduleBatchCount = count
	return &rootState{cfg: cfg, logger: slog.Default()}
}

func TestSetupSchedulerCreatesSchedule(t *testing.T) {
	store := new(MockSchedulerStore)
	store.On("GetScheduledTask", mock.Anything, batchScheduleID).Return(nil, domain.ErrNotFound)
	store.On("SaveScheduledTask", mock.Anything, mock.MatchedBy(func(s *domain.ScheduledTask) bool {
		return s.ID == batchScheduleID &&
			s.Type == domain.TaskTypeProduceBatch &&
			s.Interval == 6*time.Hour &&
			s.Payload["count"] == "3"
	})).Return(nil)

	state := newSchedulerTestState("6h", 3)
	app := &app{schedStore: store, queue: mocks.NewMockTaskQueue(), logger: state.logger}

	scheduler, err := setupScheduler(context.Background(), state, app)
	require.NoError(t, err)
	assert.NotNil(t, scheduler)
	store.AssertExpectations(t)
}

func TestSetupSchedulerUpdatesExistingInterval(t *testing.T) {
	existing := domain.NewScheduledTask(batchScheduleID, "recurring batch produce",
		domain.TaskTypeProduceBatch, time.Hour)

	store := new(MockSchedulerStore)
	store.On("GetScheduledTask", mock.Anything, batchScheduleID).Return(existing, nil)
	store.On("SaveScheduledTask", mock.Anything, mock.MatchedBy(func(s *domain.ScheduledTask) bool {
		return s.Interval == 12*time.Hour && s.Payload["count"] == "1"
	})).Return(nil)

	state := newSchedulerTestState("12h", 1)
	app := &app{schedStore: store, queue: mocks.NewMockTaskQueue(), logger: state.logger}

	_, err := setupScheduler(context.Background(), state, app)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestSetupSchedulerNeedsStore(t *testing.T) {
	state := newSchedulerTestState("6h", 1)
	app := &app{queue: mocks.NewMockTaskQueue(), logger: state.logger}

	_, err := setupScheduler(context.Background(), state, app)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestSetupSchedulerRejectsBadInterval(t *testing.T) {
	store := new(MockSchedulerStore)
	state := newSchedulerTestState("whenever", 1)
	app := &app{schedStore: store, queue: mocks.NewMockTaskQueue(), logger: state.logger}

	_, err := setupScheduler(context.Background(), state, app)
	require.Error(t, err)
}

package service_test

import (
	"context"
	"eofficeTracker/internal/events"
	"eofficeTracker/internal/models/actor"
	"eofficeTracker/internal/models/task"
	"eofficeTracker/internal/repository"
	"eofficeTracker/internal/repository/inmemory"
	"eofficeTracker/internal/service"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTaskRepository - мок репозитория
type MockTaskRepository struct {
	mock.Mock
}

func (m *MockTaskRepository) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTaskRepository) Create(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) Update(ctx context.Context, t *task.Task) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockTaskRepository) Find(ctx context.Context, q task.Query) ([]*task.Task, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*task.Task), args.Error(1)
}

var _ service.TaskRepository = (*MockTaskRepository)(nil)

// recordingPublisher запоминает опубликованные события
type recordingPublisher struct {
	mtx    sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, ev events.Event) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Kinds() []events.Kind {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	res := []events.Kind{}
	for _, ev := range p.events {
		res = append(res, ev.Kind)
	}
	return res
}

type fixture struct {
	tasks     *inmemory.TaskStorage
	actors    *inmemory.ActorStorage
	reminders *inmemory.ReminderStorage
	publisher *recordingPublisher
	taskSvc   *service.TaskService
	remSvc    *service.ReminderService

	manager  *actor.Actor
	employee *actor.Actor
	other    *actor.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		tasks:     inmemory.NewTaskStorage(),
		actors:    inmemory.NewActorStorage(),
		reminders: inmemory.NewReminderStorage(),
		publisher: &recordingPublisher{},
		manager:   &actor.Actor{ID: uuid.New(), Username: "head", Profile: &actor.Profile{IsManager: true}},
		employee:  &actor.Actor{ID: uuid.New(), Username: "officer", Email: "officer@example.com", Profile: &actor.Profile{}},
		other:     &actor.Actor{ID: uuid.New(), Username: "clerk"},
	}
	for _, a := range []*actor.Actor{f.manager, f.employee, f.other} {
		require.NoError(t, f.actors.Save(ctx, a))
	}

	f.remSvc = service.NewReminderService(f.tasks, f.actors, f.reminders)
	f.taskSvc = service.NewTaskService(f.tasks, f.actors, f.publisher, f.remSvc)
	return f
}

func ptr[T any](v T) *T {
	return &v
}

func (f *fixture) createTask(t *testing.T, title string, assignee uuid.UUID, deadline *time.Time) *task.Task {
	t.Helper()
	created, err := f.taskSvc.CreateTask(context.Background(), f.manager, task.Fields{
		Title:      ptr(title),
		AssigneeID: ptr(assignee),
		Deadline:   deadline,
	})
	require.NoError(t, err)
	return created
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var busErr *service.BusinessError
	require.True(t, errors.As(err, &busErr), "Expected BusinessError, got %v", err)
	assert.Equal(t, code, busErr.Code)
}

// TestTaskService_CreateTask тестирует создание задачи
func TestTaskService_CreateTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	deadline := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name      string
		actor     *actor.Actor
		fields    task.Fields
		errorCode string
	}{
		{
			name:  "success - manager creates task",
			actor: f.manager,
			fields: task.Fields{
				Title:      ptr("Prepare memo"),
				AssigneeID: ptr(f.employee.ID),
				Deadline:   &deadline,
			},
		},
		{
			name:      "error - employee cannot create",
			actor:     f.employee,
			fields:    task.Fields{Title: ptr("Prepare memo"), AssigneeID: ptr(f.employee.ID)},
			errorCode: service.CodePermissionDenied,
		},
		{
			name:      "error - missing title",
			actor:     f.manager,
			fields:    task.Fields{AssigneeID: ptr(f.employee.ID)},
			errorCode: service.CodeValidation,
		},
		{
			name:      "error - blank title",
			actor:     f.manager,
			fields:    task.Fields{Title: ptr("   "), AssigneeID: ptr(f.employee.ID)},
			errorCode: service.CodeValidation,
		},
		{
			name:      "error - missing assignee",
			actor:     f.manager,
			fields:    task.Fields{Title: ptr("Prepare memo")},
			errorCode: service.CodeValidation,
		},
		{
			name:      "error - unknown assignee",
			actor:     f.manager,
			fields:    task.Fields{Title: ptr("Prepare memo"), AssigneeID: ptr(uuid.New())},
			errorCode: service.CodeNotFound,
		},
		{
			name:  "error - malformed status",
			actor: f.manager,
			fields: task.Fields{
				Title:      ptr("Prepare memo"),
				AssigneeID: ptr(f.employee.ID),
				Status:     ptr(task.Status("completed")),
			},
			errorCode: service.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := f.tasks.Find(ctx, task.Query{})
			require.NoError(t, err)

			created, err := f.taskSvc.CreateTask(ctx, tt.actor, tt.fields)

			if tt.errorCode != "" {
				assertCode(t, err, tt.errorCode)
				after, err := f.tasks.Find(ctx, task.Query{})
				require.NoError(t, err)
				assert.Len(t, after, len(before), "nothing must be written on rejection")
				return
			}

			require.NoError(t, err)
			assert.Equal(t, task.StatusDispatchedOfficer, created.Status)
			assert.Equal(t, 25, created.Progress())
			assert.False(t, created.IsArchived)
			assert.Equal(t, tt.actor.ID, created.CreatedBy)
			assert.Equal(t, f.employee.ID, created.AssigneeID)
		})
	}

	assert.Equal(t, []events.Kind{events.KindTaskAssigned}, f.publisher.Kinds())
}

// TestTaskService_SetStatus_Scenario тестирует архивирование и деактивацию напоминаний
func TestTaskService_SetStatus_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tomorrow := time.Now().Add(24 * time.Hour)
	created := f.createTask(t, "Letter to CD", f.employee.ID, &tomorrow)
	assert.Equal(t, 25, created.Progress())
	assert.False(t, created.IsArchived)

	// напоминание создаём "из будущего", когда задача уже просрочена
	later := tomorrow.Add(time.Hour)
	f.remSvc.WithClock(func() time.Time { return later })
	res, err := f.remSvc.CreateReminder(ctx, f.manager, f.employee.ID, []uuid.UUID{created.UUID}, "Please finish")
	require.NoError(t, err)
	require.Equal(t, service.OutcomeCreated, res.Outcome)
	require.True(t, res.Reminder.IsActive)

	updated, err := f.taskSvc.SetStatus(ctx, f.manager, created.UUID, task.StatusSignedDispatched)
	require.NoError(t, err)
	assert.Equal(t, 100, updated.Progress())
	assert.True(t, updated.IsArchived)

	stored, err := f.reminders.GetByID(ctx, res.Reminder.UUID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}

// TestTaskService_SetStatus тестирует права и валидацию смены статуса
func TestTaskService_SetStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := f.createTask(t, "Draft report", f.employee.ID, nil)

	t.Run("error - employee selects officer dispatch", func(t *testing.T) {
		_, err := f.taskSvc.SetStatus(ctx, f.employee, created.UUID, task.StatusDispatchedOfficer)
		assertCode(t, err, service.CodePermissionDenied)
	})

	t.Run("error - stranger", func(t *testing.T) {
		_, err := f.taskSvc.SetStatus(ctx, f.other, created.UUID, task.StatusDraft)
		assertCode(t, err, service.CodePermissionDenied)
	})

	t.Run("error - unknown status", func(t *testing.T) {
		_, err := f.taskSvc.SetStatus(ctx, f.manager, created.UUID, "completed")
		assertCode(t, err, service.CodeValidation)
	})

	t.Run("error - unknown task", func(t *testing.T) {
		_, err := f.taskSvc.SetStatus(ctx, f.manager, uuid.New(), task.StatusDraft)
		assertCode(t, err, service.CodeNotFound)
	})

	t.Run("success - is_archived follows every status", func(t *testing.T) {
		for _, s := range task.Statuses() {
			updated, err := f.taskSvc.SetStatus(ctx, f.manager, created.UUID, s)
			require.NoError(t, err)
			assert.Equal(t, task.IsTerminal(s), updated.IsArchived)

			stored, err := f.tasks.GetByID(ctx, created.UUID)
			require.NoError(t, err)
			assert.Equal(t, task.IsTerminal(s), stored.IsArchived)
			assert.Equal(t, task.ProgressFor(s), stored.Progress())
		}
	})

	t.Run("success - employee moves own task", func(t *testing.T) {
		updated, err := f.taskSvc.SetStatus(ctx, f.employee, created.UUID, task.StatusFinalizedDraft)
		require.NoError(t, err)
		assert.Equal(t, 75, updated.Progress())
	})
}

// TestTaskService_UpdateTask тестирует обновление полей
func TestTaskService_UpdateTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := f.createTask(t, "Invoice check", f.employee.ID, nil)

	t.Run("success - employee edits own task", func(t *testing.T) {
		updated, err := f.taskSvc.UpdateTask(ctx, f.employee, created.UUID, task.Fields{
			Description: ptr("Checked twice"),
			Status:      ptr(task.StatusDraft),
		})
		require.NoError(t, err)
		assert.Equal(t, "Checked twice", updated.Description)
		assert.Equal(t, 50, updated.Progress())
	})

	t.Run("success - unchanged initial status is not re-checked", func(t *testing.T) {
		fresh := f.createTask(t, "Fresh", f.employee.ID, nil)
		_, err := f.taskSvc.UpdateTask(ctx, f.employee, fresh.UUID, task.Fields{
			Title:  ptr("Fresh title"),
			Status: ptr(task.StatusDispatchedOfficer),
		})
		require.NoError(t, err)
	})

	t.Run("error - employee reassigns to someone else", func(t *testing.T) {
		_, err := f.taskSvc.UpdateTask(ctx, f.employee, created.UUID, task.Fields{AssigneeID: ptr(f.other.ID)})
		assertCode(t, err, service.CodePermissionDenied)
	})

	t.Run("error - stranger edits", func(t *testing.T) {
		_, err := f.taskSvc.UpdateTask(ctx, f.other, created.UUID, task.Fields{Title: ptr("Mine now")})
		assertCode(t, err, service.CodePermissionDenied)
	})

	t.Run("error - empty title", func(t *testing.T) {
		_, err := f.taskSvc.UpdateTask(ctx, f.manager, created.UUID, task.Fields{Title: ptr("")})
		assertCode(t, err, service.CodeValidation)
	})

	t.Run("success - manager reassigns and event is emitted", func(t *testing.T) {
		before := len(f.publisher.Kinds())
		updated, err := f.taskSvc.UpdateTask(ctx, f.manager, created.UUID, task.Fields{AssigneeID: ptr(f.other.ID)})
		require.NoError(t, err)
		assert.Equal(t, f.other.ID, updated.AssigneeID)

		kinds := f.publisher.Kinds()
		require.Len(t, kinds, before+1)
		assert.Equal(t, events.KindTaskAssigned, kinds[len(kinds)-1])
	})

	t.Run("success - same assignee emits nothing", func(t *testing.T) {
		before := len(f.publisher.Kinds())
		_, err := f.taskSvc.UpdateTask(ctx, f.manager, created.UUID, task.Fields{AssigneeID: ptr(f.other.ID)})
		require.NoError(t, err)
		assert.Len(t, f.publisher.Kinds(), before)
	})

	t.Run("success - terminal status deactivates reminders", func(t *testing.T) {
		hourAgo := time.Now().Add(-time.Hour)
		done := f.createTask(t, "Signed via edit", f.employee.ID, &hourAgo)
		pending := f.createTask(t, "Still pending", f.employee.ID, &hourAgo)

		single, err := f.remSvc.CreateReminder(ctx, f.manager, f.employee.ID, []uuid.UUID{done.UUID}, "")
		require.NoError(t, err)
		bundle, err := f.remSvc.CreateReminder(ctx, f.manager, f.employee.ID, []uuid.UUID{done.UUID, pending.UUID}, "")
		require.NoError(t, err)

		updated, err := f.taskSvc.UpdateTask(ctx, f.manager, done.UUID, task.Fields{Status: ptr(task.StatusSignedDispatched)})
		require.NoError(t, err)
		assert.True(t, updated.IsArchived)

		r, err := f.reminders.GetByID(ctx, single.Reminder.UUID)
		require.NoError(t, err)
		assert.False(t, r.IsActive)

		r, err = f.reminders.GetByID(ctx, bundle.Reminder.UUID)
		require.NoError(t, err)
		assert.True(t, r.IsActive)
	})
}

// TestTaskService_UpdateTask_VersionConflict тестирует потерянное обновление
func TestTaskService_UpdateTask_VersionConflict(t *testing.T) {
	ctx := context.Background()
	manager := &actor.Actor{ID: uuid.New(), IsSuperuser: true}
	taskID := uuid.New()

	mockRepo := new(MockTaskRepository)
	mockRepo.On("GetByID", mock.Anything, taskID).Return(&task.Task{UUID: taskID, Status: task.StatusDraft, Version: 3}, nil)
	mockRepo.On("Update", mock.Anything, mock.MatchedBy(func(t *task.Task) bool {
		return t.Status == task.StatusFinalizedDraft
	})).Return(repository.ErrVersionConflict)

	svc := service.NewTaskService(mockRepo, inmemory.NewActorStorage(), nil, nil)
	_, err := svc.SetStatus(ctx, manager, taskID, task.StatusFinalizedDraft)

	assertCode(t, err, service.CodeVersionConflict)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)
	mockRepo.AssertExpectations(t)
}

// TestTaskService_HealthCheck тестирует проверку хранилища
func TestTaskService_HealthCheck(t *testing.T) {
	ctx := context.Background()

	mockRepo := new(MockTaskRepository)
	mockRepo.On("HealthCheck", mock.Anything).Return(errors.New("connection refused")).Once()
	mockRepo.On("HealthCheck", mock.Anything).Return(nil).Once()

	svc := service.NewTaskService(mockRepo, inmemory.NewActorStorage(), nil, nil)
	assert.Error(t, svc.HealthCheck(ctx))
	assert.NoError(t, svc.HealthCheck(ctx))
	mockRepo.AssertExpectations(t)
}

// TestTaskService_VisibleTasks тестирует фильтрацию списков по ролям
func TestTaskService_VisibleTasks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.createTask(t, "Budget memo", f.employee.ID, nil)
	f.createTask(t, "Annual report", f.employee.ID, nil)
	f.createTask(t, "Clerk invoice", f.other.ID, nil)
	signed := f.createTask(t, "Signed letter", f.employee.ID, nil)
	_, err := f.taskSvc.SetStatus(ctx, f.manager, signed.UUID, task.StatusSignedDispatched)
	require.NoError(t, err)

	tests := []struct {
		name     string
		actor    *actor.Actor
		archived bool
		filters  service.TaskFilters
		expected []string
	}{
		{
			name:     "manager sees all active",
			actor:    f.manager,
			expected: []string{"Budget memo", "Annual report", "Clerk invoice"},
		},
		{
			name:     "manager archived view",
			actor:    f.manager,
			archived: true,
			expected: []string{"Signed letter"},
		},
		{
			name:     "manager filters by assignee username",
			actor:    f.manager,
			filters:  service.TaskFilters{AssigneeUsername: "clerk"},
			expected: []string{"Clerk invoice"},
		},
		{
			name:     "manager unknown username",
			actor:    f.manager,
			filters:  service.TaskFilters{AssigneeUsername: "ghost"},
			expected: []string{},
		},
		{
			name:     "employee sees own only",
			actor:    f.employee,
			expected: []string{"Budget memo", "Annual report"},
		},
		{
			name:     "employee assignee filter ignored",
			actor:    f.employee,
			filters:  service.TaskFilters{AssigneeUsername: "clerk"},
			expected: []string{"Budget memo", "Annual report"},
		},
		{
			name:     "case-insensitive search",
			actor:    f.manager,
			filters:  service.TaskFilters{Search: "REPORT"},
			expected: []string{"Annual report"},
		},
		{
			name:     "status filter",
			actor:    f.employee,
			archived: true,
			filters:  service.TaskFilters{Status: ptr(task.StatusSignedDispatched)},
			expected: []string{"Signed letter"},
		},
		{
			name:     "status filter without match",
			actor:    f.manager,
			filters:  service.TaskFilters{Status: ptr(task.StatusDraft)},
			expected: []string{},
		},
		{
			name:     "nil actor",
			actor:    nil,
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := f.taskSvc.VisibleTasks(ctx, tt.actor, tt.archived, tt.filters)
			require.NoError(t, err)

			titles := []string{}
			for _, tk := range tasks {
				titles = append(titles, tk.Title)
				if tt.actor != nil && tt.actor.ID == f.employee.ID {
					assert.Equal(t, f.employee.ID, tk.AssigneeID)
				}
			}
			assert.ElementsMatch(t, tt.expected, titles)
		})
	}
}

// TestTaskService_GetTask тестирует чтение задачи
func TestTaskService_GetTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	created := f.createTask(t, "Memo", f.employee.ID, nil)

	got, err := f.taskSvc.GetTask(ctx, f.employee, created.UUID)
	require.NoError(t, err)
	assert.Equal(t, created.UUID, got.UUID)

	_, err = f.taskSvc.GetTask(ctx, f.other, created.UUID)
	assertCode(t, err, service.CodePermissionDenied)

	_, err = f.taskSvc.GetTask(ctx, f.manager, uuid.New())
	assertCode(t, err, service.CodeNotFound)
}

package inmemory_test

import (
	"context"
	"eofficeTracker/internal/models/actor"
	"eofficeTracker/internal/models/reminder"
	"eofficeTracker/internal/models/task"
	"eofficeTracker/internal/repository"
	"eofficeTracker/internal/repository/inmemory"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(title string, assignee uuid.UUID, status task.Status, deadline *time.Time) *task.Task {
	t := &task.Task{
		UUID:       uuid.New(),
		Title:      title,
		AssigneeID: assignee,
		CreatedBy:  uuid.New(),
		Deadline:   deadline,
	}
	t.SetStatus(status)
	return t
}

// TestTaskStorage_Create тестирует создание задачи
func TestTaskStorage_Create(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("Test Task", uuid.New(), task.StatusDispatchedOfficer, nil)

	err := storage.Create(ctx, taskToCreate)
	require.NoError(t, err)

	// Проверяем, что поля заполнены
	assert.False(t, taskToCreate.CreatedAt.IsZero())
	assert.Equal(t, 1, taskToCreate.Version)

	retrievedTask, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Test Task", retrievedTask.Title)

	// Повторное создание с тем же ID
	err = storage.Create(ctx, taskToCreate)
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

// TestTaskStorage_GetByID_ReturnsCopy тестирует изоляцию хранимых данных
func TestTaskStorage_GetByID_ReturnsCopy(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("Original", uuid.New(), task.StatusDraft, nil)
	require.NoError(t, storage.Create(ctx, taskToCreate))

	got, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	got.Title = "Changed outside"

	again, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Title)

	_, err = storage.GetByID(ctx, uuid.New())
	assert.Equal(t, repository.ErrNotFound, err)
}

// TestTaskStorage_Versioning тестирует оптимистичную блокировку
func TestTaskStorage_Versioning(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	taskToCreate := newTask("Versioned Task", uuid.New(), task.StatusDraft, nil)
	require.NoError(t, storage.Create(ctx, taskToCreate))

	first, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	second, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)

	first.Title = "First writer"
	require.NoError(t, storage.Update(ctx, first))
	assert.Equal(t, 2, first.Version)
	assert.NotNil(t, first.UpdatedAt)

	// второй писатель держит устаревшую версию
	second.Title = "Second writer"
	err = storage.Update(ctx, second)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	stored, err := storage.GetByID(ctx, taskToCreate.UUID)
	require.NoError(t, err)
	assert.Equal(t, "First writer", stored.Title)

	missing := newTask("Missing", uuid.New(), task.StatusDraft, nil)
	assert.ErrorIs(t, storage.Update(ctx, missing), repository.ErrNotFound)
}

// TestTaskStorage_Find тестирует выборку по предикату и порядок создания
func TestTaskStorage_Find(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	alice := uuid.New()
	bob := uuid.New()
	past := time.Now().Add(-time.Hour)

	tasks := []*task.Task{
		newTask("Memo for HM", alice, task.StatusDraft, &past),
		newTask("Invoice", bob, task.StatusDraft, nil),
		newTask("Signed letter", alice, task.StatusSignedDispatched, &past),
		newTask("Report", alice, task.StatusFinalizedDraft, nil),
	}
	for _, tk := range tasks {
		require.NoError(t, storage.Create(ctx, tk))
	}

	active := false
	found, err := storage.Find(ctx, task.Query{Archived: &active, AssigneeID: &alice})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "Memo for HM", found[0].Title)
	assert.Equal(t, "Report", found[1].Title)

	now := time.Now()
	found, err = storage.Find(ctx, task.Query{DeadlineBefore: &now})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = storage.Find(ctx, task.Query{IDs: []uuid.UUID{tasks[1].UUID, tasks[3].UUID}})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = storage.Find(ctx, task.Query{Search: "nothing like this"})
	require.NoError(t, err)
	assert.Empty(t, found)
}

// TestTaskStorage_ConcurrentAccess тестирует конкурентный доступ
func TestTaskStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewTaskStorage()

	const workers = 20
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tk := newTask(fmt.Sprintf("Task %d", i), uuid.New(), task.StatusDraft, nil)
			assert.NoError(t, storage.Create(ctx, tk))
			_, err := storage.Find(ctx, task.Query{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := storage.Find(ctx, task.Query{})
	require.NoError(t, err)
	assert.Len(t, all, workers)
}

// TestActorStorage тестирует хранилище пользователей
func TestActorStorage(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewActorStorage()

	a := &actor.Actor{ID: uuid.New(), Username: "Officer", Email: "officer@example.com"}
	require.NoError(t, storage.Save(ctx, a))

	got, err := storage.GetByUsername(ctx, "officer")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Nil(t, got.Profile)

	a.Profile = &actor.Profile{IsManager: true, PhoneNumber: "+1234567890"}
	require.NoError(t, storage.Save(ctx, a))
	got, err = storage.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Profile)
	assert.True(t, got.Profile.IsManager)

	clash := &actor.Actor{ID: uuid.New(), Username: "OFFICER"}
	assert.ErrorIs(t, storage.Save(ctx, clash), repository.ErrDuplicate)

	_, err = storage.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestReminderStorage тестирует хранилище напоминаний
func TestReminderStorage(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.NewReminderStorage()

	user := uuid.New()
	taskID := uuid.New()

	r1 := &reminder.Reminder{UUID: uuid.New(), UserID: user, TaskIDs: []uuid.UUID{taskID}, IsActive: true}
	r2 := &reminder.Reminder{UUID: uuid.New(), UserID: user, TaskIDs: []uuid.UUID{uuid.New()}, IsActive: true}
	require.NoError(t, storage.Create(ctx, r1))
	require.NoError(t, storage.Create(ctx, r2))
	assert.False(t, r1.CreatedAt.IsZero())

	byTask, err := storage.FindActiveByTask(ctx, taskID)
	require.NoError(t, err)
	require.Len(t, byTask, 1)
	assert.Equal(t, r1.UUID, byTask[0].UUID)

	r2.IsDismissed = true
	r2.TaskIDs = nil
	require.NoError(t, storage.Update(ctx, r2))

	forUser, err := storage.FindActiveForUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, forUser, 1)
	assert.Equal(t, r1.UUID, forUser[0].UUID)

	// набор задач не меняется через Update
	stored, err := storage.GetByID(ctx, r2.UUID)
	require.NoError(t, err)
	assert.Len(t, stored.TaskIDs, 1)

	active, err := storage.ListActive(ctx, reminder.Cursor{}, 1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, r1.UUID, active[0].UUID)

	next, err := storage.ListActive(ctx, active[0].Cursor(), 1)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, r2.UUID, next[0].UUID)

	next, err = storage.ListActive(ctx, next[0].Cursor(), 1)
	require.NoError(t, err)
	assert.Empty(t, next)

	_, err = storage.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

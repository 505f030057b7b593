package service

import (
	"context"
	"eofficeTracker/internal/events"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/actor"
	"eofficeTracker/internal/models/task"
	"eofficeTracker/internal/policy"
	rep "eofficeTracker/internal/repository"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

type TaskService struct {
	tasks       TaskRepository
	actors      ActorRepository
	publisher   events.Publisher
	deactivator ReminderDeactivator
}

// TaskFilters - необязательные фильтры списка задач.
type TaskFilters struct {
	Status           *task.Status
	AssigneeUsername string
	Search           string
}

func NewTaskService(tasks TaskRepository, actors ActorRepository, publisher events.Publisher, deactivator ReminderDeactivator) *TaskService {
	if publisher == nil {
		publisher = events.Discard
	}
	return &TaskService{
		tasks:       tasks,
		actors:      actors,
		publisher:   publisher,
		deactivator: deactivator,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.tasks.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка хранилища: %w", err)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, a *actor.Actor, fields task.Fields) (*task.Task, error) {
	if !policy.IsManager(a) {
		logger.Warn("Service: Создание задачи без прав руководителя", actorField(a))
		return nil, NewPermissionDenied("create_task")
	}

	if fields.Title == nil {
		return nil, NewValidationError("title", "обязательное поле")
	}
	if fields.AssigneeID == nil || *fields.AssigneeID == uuid.Nil {
		return nil, NewValidationError("assignee", "обязательное поле")
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	if _, err := s.loadActor(ctx, *fields.AssigneeID); err != nil {
		return nil, err
	}

	newTask := &task.Task{
		UUID:      uuid.New(),
		CreatedBy: a.ID,
	}
	newTask.SetStatus(task.Initial)
	newTask.Apply(fields.Options()...)

	if err := s.tasks.Create(ctx, newTask); err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	logger.Info("Service: Задача создана",
		zap.String("task_id", newTask.UUID.String()),
		zap.String("assignee_id", newTask.AssigneeID.String()),
		zap.String("status", string(newTask.Status)))

	s.publisher.Publish(ctx, events.TaskAssigned(newTask.UUID, newTask.AssigneeID))
	return newTask, nil
}

func (s *TaskService) GetTask(ctx context.Context, a *actor.Actor, id uuid.UUID) (*task.Task, error) {
	t, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(a, t) {
		return nil, NewPermissionDenied("view_task")
	}
	return t, nil
}

// UpdateTask меняет поля задачи. Статус проверяется только если он действительно меняется.
func (s *TaskService) UpdateTask(ctx context.Context, a *actor.Actor, id uuid.UUID, fields task.Fields) (*task.Task, error) {
	if err := validateFields(fields); err != nil {
		return nil, err
	}

	t, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanEditAnyField(a, t) {
		logger.Warn("Service: Попытка изменить чужую задачу", actorField(a), zap.String("task_id", id.String()))
		return nil, NewPermissionDenied("update_task")
	}

	prevAssignee := t.AssigneeID
	prevStatus := t.Status

	if fields.AssigneeID != nil && *fields.AssigneeID != prevAssignee {
		if !policy.CanReassign(a, t, *fields.AssigneeID) {
			return nil, NewPermissionDenied("reassign_task")
		}
		if _, err := s.loadActor(ctx, *fields.AssigneeID); err != nil {
			return nil, err
		}
	}
	if fields.Status != nil && *fields.Status != prevStatus {
		if !policy.CanSetStatus(a, t, *fields.Status) {
			return nil, NewPermissionDenied("set_status")
		}
	}

	t.Apply(fields.Options()...)
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}

	if t.AssigneeID != prevAssignee {
		logger.Info("Service: Задача переназначена",
			zap.String("task_id", t.UUID.String()),
			zap.String("from", prevAssignee.String()),
			zap.String("to", t.AssigneeID.String()))
		s.publisher.Publish(ctx, events.TaskAssigned(t.UUID, t.AssigneeID))
	}
	if t.Status != prevStatus && task.IsTerminal(t.Status) {
		s.deactivateReminders(ctx, t)
	}
	return t, nil
}

func (s *TaskService) SetStatus(ctx context.Context, a *actor.Actor, id uuid.UUID, target task.Status) (*task.Task, error) {
	if !task.Valid(target) {
		return nil, NewValidationError("status", fmt.Sprintf("неизвестный статус %q", target))
	}

	t, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanSetStatus(a, t, target) {
		logger.Warn("Service: Статус недоступен актору",
			actorField(a),
			zap.String("task_id", id.String()),
			zap.String("target", string(target)))
		return nil, NewPermissionDenied("set_status")
	}

	prevStatus := t.Status
	t.SetStatus(target)
	if err := s.save(ctx, t); err != nil {
		return nil, err
	}

	logger.Info("Service: Статус задачи изменён",
		zap.String("task_id", t.UUID.String()),
		zap.String("from", string(prevStatus)),
		zap.String("to", string(target)),
		zap.Int("progress", t.Progress()))

	if task.IsTerminal(target) {
		s.deactivateReminders(ctx, t)
	}
	return t, nil
}

// VisibleTasks строит выборку задач, доступных актору.
// Сотрудник видит только свои задачи, фильтр по исполнителю для него игнорируется.
func (s *TaskService) VisibleTasks(ctx context.Context, a *actor.Actor, archived bool, filters TaskFilters) ([]*task.Task, error) {
	if a == nil {
		return []*task.Task{}, nil
	}

	query := task.Query{
		Archived: &archived,
		Status:   filters.Status,
		Search:   strings.TrimSpace(filters.Search),
	}

	if !policy.IsManager(a) {
		id := a.ID
		query.AssigneeID = &id
	} else if username := strings.TrimSpace(filters.AssigneeUsername); username != "" {
		assignee, err := s.actors.GetByUsername(ctx, username)
		if err != nil {
			if errors.Is(err, rep.ErrNotFound) {
				return []*task.Task{}, nil
			}
			return nil, fmt.Errorf("поиск исполнителя: %w", err)
		}
		query.AssigneeID = &assignee.ID
	}

	tasks, err := s.tasks.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) save(ctx context.Context, t *task.Task) error {
	if err := s.tasks.Update(ctx, t); err != nil {
		if errors.Is(err, rep.ErrVersionConflict) {
			return NewVersionConflict(t.UUID.String(), err)
		}
		if errors.Is(err, rep.ErrNotFound) {
			return NewNotFound(ResourceTask, t.UUID.String())
		}
		return fmt.Errorf("обновление задачи: %w", err)
	}
	return nil
}

func (s *TaskService) deactivateReminders(ctx context.Context, t *task.Task) {
	if s.deactivator == nil {
		return
	}
	// запись уже сохранена, ошибка здесь не отменяет изменение статуса
	if err := s.deactivator.DeactivateForTask(ctx, events.ReminderDeactivation(t.UUID, t.AssigneeID)); err != nil {
		logger.Warn("Service: Не удалось деактивировать напоминания",
			zap.String("task_id", t.UUID.String()),
			zap.Error(err))
	}
}

func (s *TaskService) loadTask(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("target_id", id.String()))
			return nil, NewNotFound(ResourceTask, id.String())
		}
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return t, nil
}

func (s *TaskService) loadActor(ctx context.Context, id uuid.UUID) (*actor.Actor, error) {
	a, err := s.actors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(ResourceActor, id.String())
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return a, nil
}

func validateFields(fields task.Fields) error {
	if fields.Title != nil {
		title := strings.TrimSpace(*fields.Title)
		if title == "" {
			return NewValidationError("title", "не может быть пустым")
		}
		if utf8.RuneCountInString(title) > task.MaxTitleLength {
			return NewValidationError("title", fmt.Sprintf("длиннее %d символов", task.MaxTitleLength))
		}
	}
	if fields.Status != nil && !task.Valid(*fields.Status) {
		return NewValidationError("status", fmt.Sprintf("неизвестный статус %q", *fields.Status))
	}
	if fields.AssigneeID != nil && *fields.AssigneeID == uuid.Nil {
		return NewValidationError("assignee", "пустой идентификатор")
	}
	return nil
}

func actorField(a *actor.Actor) zap.Field {
	if a == nil {
		return zap.String("actor_id", "")
	}
	return zap.String("actor_id", a.ID.String())
}

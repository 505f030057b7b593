package service

import (
	"context"
	"eofficeTracker/internal/events"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/actor"
	"eofficeTracker/internal/models/reminder"
	"eofficeTracker/internal/models/task"
	"eofficeTracker/internal/policy"
	rep "eofficeTracker/internal/repository"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Outcome string

const (
	OutcomeCreated         Outcome = "created"
	OutcomeNoEligibleItems Outcome = CodeNoEligibleItems
)

// CreateReminderResult - итог создания напоминания. При OutcomeNoEligibleItems запись не создаётся.
type CreateReminderResult struct {
	Outcome  Outcome
	Reminder *reminder.Reminder
	Skipped  []uuid.UUID
}

type ReminderService struct {
	tasks     TaskRepository
	actors    ActorRepository
	reminders ReminderRepository
	now       func() time.Time
	sweepSize int
}

func NewReminderService(tasks TaskRepository, actors ActorRepository, reminders ReminderRepository) *ReminderService {
	return &ReminderService{
		tasks:     tasks,
		actors:    actors,
		reminders: reminders,
		now:       time.Now,
		sweepSize: 500,
	}
}

// WithSweepPageSize задаёт размер страницы для SweepInactive.
func (s *ReminderService) WithSweepPageSize(n int) *ReminderService {
	if n > 0 {
		s.sweepSize = n
	}
	return s
}

// WithClock подменяет источник времени, по которому пересчитывается просрочка.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

func (s *ReminderService) OverdueTasks(ctx context.Context, assigneeID uuid.UUID, asOf time.Time) ([]*task.Task, error) {
	archived := false
	terminal := task.Terminal
	query := task.Query{
		Archived:       &archived,
		AssigneeID:     &assigneeID,
		DeadlineBefore: &asOf,
		ExcludeStatus:  &terminal,
	}

	found, err := s.tasks.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("получение просроченных задач: %w", err)
	}

	res := make([]*task.Task, 0, len(found))
	for _, t := range found {
		if t.IsOverdue(asOf) {
			res = append(res, t)
		}
	}
	return res, nil
}

// CreateReminder пересчитывает просрочку на сервере и не доверяет списку от клиента.
func (s *ReminderService) CreateReminder(ctx context.Context, manager *actor.Actor, assigneeID uuid.UUID, taskIDs []uuid.UUID, message string) (*CreateReminderResult, error) {
	if !policy.IsManager(manager) {
		return nil, NewPermissionDenied("create_reminder")
	}
	if assigneeID == uuid.Nil {
		return nil, NewValidationError("user", "обязательное поле")
	}
	if _, err := s.actors.GetByID(ctx, assigneeID); err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(ResourceActor, assigneeID.String())
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	overdue, err := s.OverdueTasks(ctx, assigneeID, s.now())
	if err != nil {
		return nil, err
	}

	requested := make(map[uuid.UUID]bool, len(taskIDs))
	for _, id := range taskIDs {
		requested[id] = true
	}

	eligible := []uuid.UUID{}
	for _, t := range overdue {
		if requested[t.UUID] {
			eligible = append(eligible, t.UUID)
			delete(requested, t.UUID)
		}
	}

	skipped := []uuid.UUID{}
	for _, id := range taskIDs {
		if requested[id] {
			skipped = append(skipped, id)
			delete(requested, id)
		}
	}

	if len(eligible) == 0 {
		logger.Info("Service: Нет просроченных задач для напоминания",
			zap.String("user_id", assigneeID.String()),
			zap.Int("requested", len(taskIDs)))
		return &CreateReminderResult{Outcome: OutcomeNoEligibleItems, Skipped: skipped}, nil
	}

	r := &reminder.Reminder{
		UUID:      uuid.New(),
		UserID:    assigneeID,
		TaskIDs:   eligible,
		CreatedBy: manager.ID,
		Message:   strings.TrimSpace(message),
		IsActive:  true,
	}
	if err := s.reminders.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("создание напоминания: %w", err)
	}

	logger.Info("Service: Напоминание создано",
		zap.String("reminder_id", r.UUID.String()),
		zap.String("user_id", assigneeID.String()),
		zap.Int("tasks", len(eligible)),
		zap.Int("skipped", len(skipped)))

	return &CreateReminderResult{Outcome: OutcomeCreated, Reminder: r, Skipped: skipped}, nil
}

// Dismiss скрывает напоминание для получателя. Повторный вызов ничего не меняет.
func (s *ReminderService) Dismiss(ctx context.Context, a *actor.Actor, id uuid.UUID) (*reminder.Reminder, error) {
	r, err := s.reminders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewNotFound(ResourceReminder, id.String())
		}
		return nil, fmt.Errorf("получение напоминания: %w", err)
	}
	if a == nil || r.UserID != a.ID {
		return nil, NewPermissionDenied("dismiss_reminder")
	}
	if r.IsDismissed {
		return r, nil
	}

	r.IsDismissed = true
	if err := s.reminders.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("обновление напоминания: %w", err)
	}
	return r, nil
}

func (s *ReminderService) ActiveRemindersFor(ctx context.Context, a *actor.Actor, asOf time.Time) ([]*reminder.Reminder, error) {
	if a == nil {
		return []*reminder.Reminder{}, nil
	}

	candidates, err := s.reminders.FindActiveForUser(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("получение напоминаний: %w", err)
	}

	byID, err := s.tasksOf(ctx, candidates)
	if err != nil {
		return nil, err
	}

	res := []*reminder.Reminder{}
	for _, r := range candidates {
		if !r.IsActive || r.IsDismissed {
			continue
		}
		for _, id := range r.TaskIDs {
			if t, ok := byID[id]; ok && t.IsOverdue(asOf) {
				res = append(res, r)
				break
			}
		}
	}
	return res, nil
}

// DeactivateForTask выключает напоминания, у которых все задачи дошли до архива.
func (s *ReminderService) DeactivateForTask(ctx context.Context, ev events.Event) error {
	if ev.Kind != events.KindReminderDeactivation {
		return nil
	}

	attached, err := s.reminders.FindActiveByTask(ctx, ev.TaskID)
	if err != nil {
		return fmt.Errorf("получение напоминаний задачи: %w", err)
	}

	n, err := s.deactivateClosed(ctx, attached)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("Service: Напоминания деактивированы",
			zap.String("task_id", ev.TaskID.String()),
			zap.Int("count", n))
	}
	return nil
}

// SweepInactive - страховочный проход по всем активным напоминаниям страницами по sweepSize.
func (s *ReminderService) SweepInactive(ctx context.Context) (int, error) {
	total := 0
	var after reminder.Cursor
	for {
		page, err := s.reminders.ListActive(ctx, after, s.sweepSize)
		if err != nil {
			return total, fmt.Errorf("получение активных напоминаний: %w", err)
		}
		n, err := s.deactivateClosed(ctx, page)
		total += n
		if err != nil {
			return total, err
		}
		if len(page) < s.sweepSize {
			return total, nil
		}
		after = page[len(page)-1].Cursor()
	}
}

func (s *ReminderService) deactivateClosed(ctx context.Context, reminders []*reminder.Reminder) (int, error) {
	byID, err := s.tasksOf(ctx, reminders)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, r := range reminders {
		if !r.IsActive || !allArchived(r, byID) {
			continue
		}
		r.IsActive = false
		if err := s.reminders.Update(ctx, r); err != nil {
			return count, fmt.Errorf("деактивация напоминания %s: %w", r.UUID, err)
		}
		count++
	}
	return count, nil
}

func (s *ReminderService) tasksOf(ctx context.Context, reminders []*reminder.Reminder) (map[uuid.UUID]*task.Task, error) {
	ids := []uuid.UUID{}
	seen := map[uuid.UUID]bool{}
	for _, r := range reminders {
		for _, id := range r.TaskIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	byID := make(map[uuid.UUID]*task.Task, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	found, err := s.tasks.Find(ctx, task.Query{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("получение задач напоминаний: %w", err)
	}
	for _, t := range found {
		byID[t.UUID] = t
	}
	return byID, nil
}

// пропавшая задача считается закрытой
func allArchived(r *reminder.Reminder, byID map[uuid.UUID]*task.Task) bool {
	for _, id := range r.TaskIDs {
		if t, ok := byID[id]; ok && !t.IsArchived {
			return false
		}
	}
	return true
}

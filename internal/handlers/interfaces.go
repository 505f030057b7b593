package handlers

import (
	"context"
	"eofficeTracker/internal/models/actor"
	"eofficeTracker/internal/models/reminder"
	"eofficeTracker/internal/models/task"
	"eofficeTracker/internal/service"
	"time"

	"github.com/google/uuid"
)

type TaskService interface {
	HealthCheck(context.Context) error
	CreateTask(context.Context, *actor.Actor, task.Fields) (*task.Task, error)
	GetTask(context.Context, *actor.Actor, uuid.UUID) (*task.Task, error)
	UpdateTask(context.Context, *actor.Actor, uuid.UUID, task.Fields) (*task.Task, error)
	SetStatus(context.Context, *actor.Actor, uuid.UUID, task.Status) (*task.Task, error)
	VisibleTasks(context.Context, *actor.Actor, bool, service.TaskFilters) ([]*task.Task, error)
}

type ReminderService interface {
	OverdueTasks(context.Context, uuid.UUID, time.Time) ([]*task.Task, error)
	CreateReminder(context.Context, *actor.Actor, uuid.UUID, []uuid.UUID, string) (*service.CreateReminderResult, error)
	Dismiss(context.Context, *actor.Actor, uuid.UUID) (*reminder.Reminder, error)
	ActiveRemindersFor(context.Context, *actor.Actor, time.Time) ([]*reminder.Reminder, error)
}

var (
	_ TaskService     = (*service.TaskService)(nil)
	_ ReminderService = (*service.ReminderService)(nil)
)

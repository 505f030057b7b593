package service

import (
	"context"
	"eofficeTracker/internal/events"
	"eofficeTracker/internal/models/actor"
	"eofficeTracker/internal/models/reminder"
	"eofficeTracker/internal/models/task"

	"github.com/google/uuid"
)

type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(context.Context, *task.Task) error
	Update(context.Context, *task.Task) error
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	Find(context.Context, task.Query) ([]*task.Task, error)
}

type ActorRepository interface {
	GetByID(context.Context, uuid.UUID) (*actor.Actor, error)
	GetByUsername(context.Context, string) (*actor.Actor, error)
}

type ReminderRepository interface {
	Create(context.Context, *reminder.Reminder) error
	Update(context.Context, *reminder.Reminder) error
	GetByID(context.Context, uuid.UUID) (*reminder.Reminder, error)
	FindActiveForUser(context.Context, uuid.UUID) ([]*reminder.Reminder, error)
	FindActiveByTask(context.Context, uuid.UUID) ([]*reminder.Reminder, error)
	ListActive(context.Context, reminder.Cursor, int) ([]*reminder.Reminder, error)
}

// ReminderDeactivator получает событие о финальном статусе задачи.
type ReminderDeactivator interface {
	DeactivateForTask(context.Context, events.Event) error
}

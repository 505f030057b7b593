// Package events описывает события жизненного цикла задач.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	// KindTaskAssigned - задача создана или передана другому исполнителю
	KindTaskAssigned Kind = "task_assigned"
	// KindReminderDeactivation - задача дошла до финального статуса
	KindReminderDeactivation Kind = "reminder_deactivation"
	// KindDeadlineApproaching - до дедлайна осталось меньше окна напоминаний
	KindDeadlineApproaching Kind = "deadline_approaching"
)

type Event struct {
	Kind       Kind      `json:"kind"`
	TaskID     uuid.UUID `json:"task_id"`
	AssigneeID uuid.UUID `json:"assignee_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

func TaskAssigned(taskID, assigneeID uuid.UUID) Event {
	return Event{Kind: KindTaskAssigned, TaskID: taskID, AssigneeID: assigneeID, OccurredAt: time.Now()}
}

func ReminderDeactivation(taskID, assigneeID uuid.UUID) Event {
	return Event{Kind: KindReminderDeactivation, TaskID: taskID, AssigneeID: assigneeID, OccurredAt: time.Now()}
}

func DeadlineApproaching(taskID, assigneeID uuid.UUID) Event {
	return Event{Kind: KindDeadlineApproaching, TaskID: taskID, AssigneeID: assigneeID, OccurredAt: time.Now()}
}

// Publisher принимает событие без ожидания доставки. Ошибок не возвращает:
// судьба события - забота получателя.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// PublisherFunc позволяет передать функцию как Publisher.
type PublisherFunc func(ctx context.Context, ev Event)

func (f PublisherFunc) Publish(ctx context.Context, ev Event) {
	f(ctx, ev)
}

// Discard - Publisher, который ничего не делает.
var Discard Publisher = PublisherFunc(func(context.Context, Event) {})

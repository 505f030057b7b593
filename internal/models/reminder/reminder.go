package reminder

import (
	"time"

	"github.com/google/uuid"
)

// Reminder объединяет просроченные задачи одного исполнителя с сообщением руководителя.
type Reminder struct {
	UUID        uuid.UUID   `json:"uuid" db:"uuid"`
	UserID      uuid.UUID   `json:"user_id" db:"user_id"`
	TaskIDs     []uuid.UUID `json:"task_ids"`
	CreatedBy   uuid.UUID   `json:"created_by" db:"created_by"`
	Message     string      `json:"message" db:"message"`
	IsActive    bool        `json:"is_active" db:"is_active"`
	IsDismissed bool        `json:"is_dismissed" db:"is_dismissed"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}

func (r *Reminder) References(taskID uuid.UUID) bool {
	for _, id := range r.TaskIDs {
		if id == taskID {
			return true
		}
	}
	return false
}

func (r *Reminder) Clone() *Reminder {
	if r == nil {
		return nil
	}
	c := *r
	c.TaskIDs = append([]uuid.UUID(nil), r.TaskIDs...)
	return &c
}

// Cursor - позиция постраничного обхода в порядке (created_at, uuid). Нулевое значение означает начало.
type Cursor struct {
	CreatedAt time.Time
	UUID      uuid.UUID
}

func (c Cursor) IsZero() bool {
	return c.UUID == uuid.Nil
}

func (r *Reminder) Cursor() Cursor {
	return Cursor{CreatedAt: r.CreatedAt, UUID: r.UUID}
}

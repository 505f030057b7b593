package task

import (
	"time"

	"github.com/google/uuid"
)

type Task struct {
	UUID        uuid.UUID  `json:"uuid" db:"uuid"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Status      Status     `json:"status" db:"status"`
	Deadline    *time.Time `json:"deadline,omitempty" db:"deadline"`
	AssigneeID  uuid.UUID  `json:"assignee_id" db:"assignee_id"`
	CreatedBy   uuid.UUID  `json:"created_by" db:"created_by"`
	IsArchived  bool       `json:"is_archived" db:"is_archived"`
	FileRef     string     `json:"file_ref,omitempty" db:"file_ref"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at,omitempty"`
	Version     int        `json:"version" db:"version"`
}

const MaxTitleLength = 200

// SetStatus - единственный способ сменить статус: архивный флаг пересчитывается вместе с ним.
func (t *Task) SetStatus(s Status) {
	t.Status = s
	t.IsArchived = IsTerminal(s)
}

func (t *Task) Progress() int {
	return ProgressFor(t.Status)
}

// IsOverdue - дедлайн прошёл, задача не закрыта и не в архиве.
func (t *Task) IsOverdue(asOf time.Time) bool {
	if t.Deadline == nil || t.IsArchived || IsTerminal(t.Status) {
		return false
	}
	return t.Deadline.Before(asOf)
}

// Clone нужен хранилищам в памяти, чтобы наружу не утекали внутренние указатели.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		c.UpdatedAt = &u
	}
	return &c
}

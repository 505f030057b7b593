package task

import (
	"time"

	"github.com/google/uuid"
)

type TaskOption func(*Task)

func WithTitle(title string) TaskOption {
	return func(task *Task) {
		task.Title = title
	}
}

func WithDescription(description string) TaskOption {
	return func(task *Task) {
		task.Description = description
	}
}

func WithStatus(status Status) TaskOption {
	return func(task *Task) {
		task.SetStatus(status)
	}
}

func WithDeadline(deadline *time.Time) TaskOption {
	return func(task *Task) {
		task.Deadline = deadline
	}
}

func WithAssignee(assigneeID uuid.UUID) TaskOption {
	return func(task *Task) {
		task.AssigneeID = assigneeID
	}
}

func WithFileRef(ref string) TaskOption {
	return func(task *Task) {
		task.FileRef = ref
	}
}

// Fields - набор изменяемых полей; nil означает "не менять".
type Fields struct {
	Title         *string
	Description   *string
	Status        *Status
	Deadline      *time.Time
	ClearDeadline bool
	AssigneeID    *uuid.UUID
	FileRef       *string
}

// Options переводит заполненные поля в функции обновления. Статус идёт последним.
func (f Fields) Options() []TaskOption {
	opts := []TaskOption{}
	if f.Title != nil {
		opts = append(opts, WithTitle(*f.Title))
	}
	if f.Description != nil {
		opts = append(opts, WithDescription(*f.Description))
	}
	if f.ClearDeadline {
		opts = append(opts, WithDeadline(nil))
	} else if f.Deadline != nil {
		d := *f.Deadline
		opts = append(opts, WithDeadline(&d))
	}
	if f.AssigneeID != nil {
		opts = append(opts, WithAssignee(*f.AssigneeID))
	}
	if f.FileRef != nil {
		opts = append(opts, WithFileRef(*f.FileRef))
	}
	if f.Status != nil {
		opts = append(opts, WithStatus(*f.Status))
	}
	return opts
}

func (t *Task) Apply(options ...TaskOption) {
	for _, opt := range options {
		if opt != nil {
			opt(t)
		}
	}
}

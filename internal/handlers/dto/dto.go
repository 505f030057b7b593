package dto

import (
	"eofficeTracker/internal/models/reminder"
	"eofficeTracker/internal/models/task"
	"eofficeTracker/internal/service"
	"time"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      *task.Status `json:"status,omitempty"`
	Deadline    *time.Time   `json:"deadline,omitempty"`
	AssigneeID  uuid.UUID    `json:"assignee_id"`
	FileRef     string       `json:"file_ref,omitempty"`
}

func (r CreateTaskRequest) Fields() task.Fields {
	f := task.Fields{
		Title:       &r.Title,
		Description: &r.Description,
		Status:      r.Status,
		Deadline:    r.Deadline,
	}
	if r.AssigneeID != uuid.Nil {
		f.AssigneeID = &r.AssigneeID
	}
	if r.FileRef != "" {
		f.FileRef = &r.FileRef
	}
	return f
}

type UpdateTaskRequest struct {
	Title         *string      `json:"title,omitempty"`
	Description   *string      `json:"description,omitempty"`
	Status        *task.Status `json:"status,omitempty"`
	Deadline      *time.Time   `json:"deadline,omitempty"`
	ClearDeadline bool         `json:"clear_deadline,omitempty"`
	AssigneeID    *uuid.UUID   `json:"assignee_id,omitempty"`
	FileRef       *string      `json:"file_ref,omitempty"`
}

func (r UpdateTaskRequest) Fields() task.Fields {
	return task.Fields{
		Title:         r.Title,
		Description:   r.Description,
		Status:        r.Status,
		Deadline:      r.Deadline,
		ClearDeadline: r.ClearDeadline,
		AssigneeID:    r.AssigneeID,
		FileRef:       r.FileRef,
	}
}

type SetStatusRequest struct {
	Status task.Status `json:"status"`
}

type TaskResponse struct {
	UUID        uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StatusLabel string     `json:"status_label"`
	Progress    int        `json:"progress"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	AssigneeID  uuid.UUID  `json:"assignee_id"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	IsArchived  bool       `json:"is_archived"`
	IsOverdue   bool       `json:"is_overdue"`
	FileRef     string     `json:"file_ref,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	Version     int        `json:"version"`
}

func FromTask(t *task.Task, now time.Time) TaskResponse {
	return TaskResponse{
		UUID:        t.UUID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		StatusLabel: t.Status.Label(),
		Progress:    t.Progress(),
		Deadline:    t.Deadline,
		AssigneeID:  t.AssigneeID,
		CreatedBy:   t.CreatedBy,
		IsArchived:  t.IsArchived,
		IsOverdue:   t.IsOverdue(now),
		FileRef:     t.FileRef,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Version:     t.Version,
	}
}

func FromTaskList(tasks []*task.Task, now time.Time) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t, now)
	}
	return result
}

type StatusResponse struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	Progress   int    `json:"progress"`
	Selectable bool   `json:"selectable"`
}

type CreateReminderRequest struct {
	UserID  uuid.UUID   `json:"user_id"`
	TaskIDs []uuid.UUID `json:"task_ids"`
	Message string      `json:"message"`
}

type ReminderResponse struct {
	UUID        uuid.UUID   `json:"id"`
	UserID      uuid.UUID   `json:"user_id"`
	TaskIDs     []uuid.UUID `json:"task_ids"`
	CreatedBy   uuid.UUID   `json:"created_by"`
	Message     string      `json:"message"`
	IsActive    bool        `json:"is_active"`
	IsDismissed bool        `json:"is_dismissed"`
	CreatedAt   time.Time   `json:"created_at"`
}

func FromReminder(r *reminder.Reminder) ReminderResponse {
	return ReminderResponse{
		UUID:        r.UUID,
		UserID:      r.UserID,
		TaskIDs:     r.TaskIDs,
		CreatedBy:   r.CreatedBy,
		Message:     r.Message,
		IsActive:    r.IsActive,
		IsDismissed: r.IsDismissed,
		CreatedAt:   r.CreatedAt,
	}
}

func FromReminderList(reminders []*reminder.Reminder) []ReminderResponse {
	result := make([]ReminderResponse, len(reminders))
	for i, r := range reminders {
		result[i] = FromReminder(r)
	}
	return result
}

type CreateReminderResponse struct {
	Outcome  string            `json:"outcome"`
	Reminder *ReminderResponse `json:"reminder,omitempty"`
	Skipped  []uuid.UUID       `json:"skipped"`
}

func FromCreateReminderResult(res *service.CreateReminderResult) CreateReminderResponse {
	out := CreateReminderResponse{
		Outcome: string(res.Outcome),
		Skipped: res.Skipped,
	}
	if out.Skipped == nil {
		out.Skipped = []uuid.UUID{}
	}
	if res.Reminder != nil {
		r := FromReminder(res.Reminder)
		out.Reminder = &r
	}
	return out
}

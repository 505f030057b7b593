package task

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Query - предикат выборки задач, который исполняет хранилище.
type Query struct {
	Archived       *bool
	AssigneeID     *uuid.UUID
	Status         *Status
	Search         string
	DeadlineBefore *time.Time
	DeadlineAfter  *time.Time
	ExcludeStatus  *Status
	IDs            []uuid.UUID
}

// Match - эталонная реализация предиката, используется хранилищем в памяти.
func (q Query) Match(t *Task) bool {
	if q.Archived != nil && t.IsArchived != *q.Archived {
		return false
	}
	if q.AssigneeID != nil && t.AssigneeID != *q.AssigneeID {
		return false
	}
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.ExcludeStatus != nil && t.Status == *q.ExcludeStatus {
		return false
	}
	if q.DeadlineBefore != nil && (t.Deadline == nil || !t.Deadline.Before(*q.DeadlineBefore)) {
		return false
	}
	if q.DeadlineAfter != nil && (t.Deadline == nil || t.Deadline.Before(*q.DeadlineAfter)) {
		return false
	}
	if len(q.IDs) > 0 && !containsID(q.IDs, t.UUID) {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

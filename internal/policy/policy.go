// Package policy решает, что актор может видеть и менять.
// Роль руководителя вычисляется только здесь.
package policy

import (
	"eofficeTracker/internal/models/actor"
	"eofficeTracker/internal/models/task"

	"github.com/google/uuid"
)

// IsManager: суперпользователь или профиль с флагом руководителя.
func IsManager(a *actor.Actor) bool {
	if a == nil {
		return false
	}
	if a.IsSuperuser {
		return true
	}
	return a.Profile != nil && a.Profile.IsManager
}

func CanView(a *actor.Actor, t *task.Task) bool {
	if a == nil || t == nil {
		return false
	}
	return IsManager(a) || t.AssigneeID == a.ID
}

func CanEditAnyField(a *actor.Actor, t *task.Task) bool {
	return CanView(a, t)
}

// сотрудникам недоступен начальный статус "направлено исполнителю"
var employeeStatuses = []task.Status{
	task.StatusDraft,
	task.StatusFinalizedDraft,
	task.StatusSignedDispatched,
}

// SelectableStatuses - статусы, которые актор может выбрать, в порядке документооборота.
func SelectableStatuses(a *actor.Actor) []task.Status {
	if a == nil {
		return nil
	}
	if IsManager(a) {
		return task.Statuses()
	}
	res := make([]task.Status, len(employeeStatuses))
	copy(res, employeeStatuses)
	return res
}

func CanSetStatus(a *actor.Actor, t *task.Task, target task.Status) bool {
	if !CanEditAnyField(a, t) || !task.Valid(target) {
		return false
	}
	for _, s := range SelectableStatuses(a) {
		if s == target {
			return true
		}
	}
	return false
}

// CanReassign: руководитель назначает кого угодно, сотрудник - только себя.
func CanReassign(a *actor.Actor, t *task.Task, assigneeID uuid.UUID) bool {
	if !CanEditAnyField(a, t) {
		return false
	}
	return IsManager(a) || assigneeID == a.ID
}

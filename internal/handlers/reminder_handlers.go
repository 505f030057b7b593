package handlers

import (
	"eofficeTracker/internal/handlers/dto"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/policy"
	"eofficeTracker/internal/service"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReminderHandler struct {
	ReminderService ReminderService
	now             func() time.Time
}

func NewReminderHandler(reminderService ReminderService) *ReminderHandler {
	return &ReminderHandler{
		ReminderService: reminderService,
		now:             time.Now,
	}
}

// OverdueTasks - GET /tasks/overdue?assignee=<id>. Без параметра - свои задачи.
func (h *ReminderHandler) OverdueTasks(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}

	assigneeID := a.ID
	if raw := r.URL.Query().Get("assignee"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			responseWithError(w, http.StatusBadRequest, errBadRequest, "некорректный assignee")
			return
		}
		assigneeID = id
	}
	if assigneeID != a.ID && !policy.IsManager(a) {
		handleError(w, r, service.NewPermissionDenied("view_overdue"), "overdue_tasks")
		return
	}

	now := h.now()
	tasks, err := h.ReminderService.OverdueTasks(r.Context(), assigneeID, now)
	if err != nil {
		handleError(w, r, err, "overdue_tasks")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks, now))
}

func (h *ReminderHandler) ListReminders(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}

	reminders, err := h.ReminderService.ActiveRemindersFor(r.Context(), a, h.now())
	if err != nil {
		handleError(w, r, err, "list_reminders")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromReminderList(reminders))
}

// PostReminder возвращает 201 при создании и 200 с outcome NO_ELIGIBLE_ITEMS, если просроченных задач нет.
func (h *ReminderHandler) PostReminder(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}

	var request dto.CreateReminderRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	res, err := h.ReminderService.CreateReminder(r.Context(), a, request.UserID, request.TaskIDs, request.Message)
	if err != nil {
		handleError(w, r, err, "create_reminder")
		return
	}

	code := http.StatusCreated
	if res.Outcome != service.OutcomeCreated {
		code = http.StatusOK
	}

	logger.Info("HTTP_OUT: Запрос на напоминание обработан",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("skipped", len(res.Skipped)))
	writeJSON(w, code, dto.FromCreateReminderResult(res))
}

func (h *ReminderHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	rem, err := h.ReminderService.Dismiss(r.Context(), a, id)
	if err != nil {
		handleError(w, r, err, "dismiss_reminder")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromReminder(rem))
}

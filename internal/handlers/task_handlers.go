package handlers

import (
	"eofficeTracker/internal/handlers/dto"
	"eofficeTracker/internal/logger"
	"eofficeTracker/internal/models/task"
	"eofficeTracker/internal/policy"
	"eofficeTracker/internal/service"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type TaskHandler struct {
	TaskService TaskService
	now         func() time.Time
}

func NewTaskHandler(taskService TaskService) *TaskHandler {
	return &TaskHandler{
		TaskService: taskService,
		now:         time.Now,
	}
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Хранилище недоступно", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("error", errUnavailable),
			toPayload("status", "unavailable"),
			toPayload("service", "eoffice-tracker"),
		)
		return
	}
	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", "eoffice-tracker"),
	)
}

// ListTasks - GET /tasks?archived=&status=&assignee=&q=
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	a, ok := requireActor(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()

	archived := false
	if raw := query.Get("archived"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "archived"),
				zap.String("value", raw))
			responseWithError(w, http.StatusBadRequest, errBadRequest, "неверное значение archived")
			return
		}
		archived = v
	}

	filters := service.TaskFilters{
		AssigneeUsername: query.Get("assignee"),
		Search:           query.Get("q"),
	}
	if raw := query.Get("status"); raw != "" {
		s := task.Status(raw)
		filters.Status = &s
	}

	tasks, err := h.TaskService.VisibleTasks(r.Context(), a, archived, filters)
	if err != nil {
		handleError(w, r, err, "list_tasks")
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)))
	writeJSON(w, http.StatusOK, dto.FromTaskList(tasks, h.now()))
}

func (h *TaskHandler) PostTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	a, ok := requireActor(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := h.TaskService.CreateTask(r.Context(), a, request.Fields())
	if err != nil {
		handleError(w, r, err, "create_task")
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.UUID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))
	writeJSON(w, http.StatusCreated, dto.FromTask(created, h.now()))
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	t, err := h.TaskService.GetTask(r.Context(), a, id)
	if err != nil {
		handleError(w, r, err, "get_task")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTask(t, h.now()))
}

func (h *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.TaskService.UpdateTask(r.Context(), a, id, request.Fields())
	if err != nil {
		handleError(w, r, err, "update_task")
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)))
	writeJSON(w, http.StatusOK, dto.FromTask(updated, h.now()))
}

// SetStatus - POST /tasks/{id}/status
func (h *TaskHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var request dto.SetStatusRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.TaskService.SetStatus(r.Context(), a, id, request.Status)
	if err != nil {
		handleError(w, r, err, "set_status")
		return
	}
	writeJSON(w, http.StatusOK, dto.FromTask(updated, h.now()))
}

// Statuses отдаёт таблицу статусов с отметкой, какие доступны текущему пользователю.
func (h *TaskHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	a, ok := requireActor(w, r)
	if !ok {
		return
	}

	selectable := map[task.Status]bool{}
	for _, s := range policy.SelectableStatuses(a) {
		selectable[s] = true
	}

	res := []dto.StatusResponse{}
	for _, s := range task.Statuses() {
		res = append(res, dto.StatusResponse{
			Value:      string(s),
			Label:      s.Label(),
			Progress:   task.ProgressFor(s),
			Selectable: selectable[s],
		})
	}
	writeJSON(w, http.StatusOK, res)
}

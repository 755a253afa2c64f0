package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"taskhub/db"
	"taskhub/internal/middleware"
	"taskhub/models"

	qb "taskhub/internal/query"

	"github.com/go-chi/chi/v5"
)

var validTaskStatuses = map[string]bool{
	models.TaskNew:        true,
	models.TaskToDo:       true,
	models.TaskInProgress: true,
	models.TaskReview:     true,
	models.TaskOnHold:     true,
	models.TaskCompleted:  true,
	models.TaskCancelled:  true,
}

var validPriorities = map[string]bool{
	"low": true, "medium": true, "high": true, "urgent": true,
}

type taskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate"`
	ProjectID   int     `json:"projectId"`
	AssigneeID  int     `json:"assigneeId"`
}

func validateTaskRequest(req *taskRequest) error {
	if req.Title == "" || len(req.Title) > 200 {
		return errors.New("title is required and max length 200")
	}
	if req.Priority != "" && !validPriorities[req.Priority] {
		return errors.New("invalid priority")
	}
	if req.ProjectID <= 0 {
		return errors.New("projectId must be positive")
	}
	if req.AssigneeID <= 0 {
		return errors.New("assigneeId must be positive")
	}
	return nil
}

// CreateTaskHandler обрабатывает POST /api/tasks
func (h *Handler) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req taskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if err := validateTaskRequest(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	dueDate, err := parseDatePtr(req.DueDate)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}
	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskNew, // статус при создании всегда new
		Priority:    priority,
		DueDate:     dueDate,
		ProjectID:   req.ProjectID,
		AssigneeID:  req.AssigneeID,
		CreatedBy:   identity.ID,
	}
	if err := h.Store.CreateTask(r.Context(), &task); err != nil {
		h.storeError(w, err, "failed to create task")
		return
	}

	h.audit(r, identity.ID, "create_task", "created task "+task.Title)
	h.respond(w, http.StatusOK, task)
}

// GetTasksHandler возвращает задачи с фильтрами project_id/assignee_id/status/priority
func (h *Handler) GetTasksHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity(w, r); !ok {
		return
	}
	params := parsePaginationParams(r)

	filter := db.TaskFilter{Limit: params.Limit, Offset: params.Offset}
	if v := r.URL.Query().Get("project_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid project_id")
			return
		}
		filter.ProjectID = id
	}
	if v := r.URL.Query().Get("assignee_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid assignee_id")
			return
		}
		filter.AssigneeID = id
	}
	// Недопустимые значения статуса и приоритета молча отбрасываются
	for _, s := range qb.ParseList(r.URL.Query().Get("status")) {
		if validTaskStatuses[s] {
			filter.Statuses = append(filter.Statuses, s)
		}
	}
	for _, p := range qb.ParseList(r.URL.Query().Get("priority")) {
		if validPriorities[p] {
			filter.Priorities = append(filter.Priorities, p)
		}
	}

	tasks, err := h.Store.GetTasks(r.Context(), filter)
	if err != nil {
		h.storeError(w, err, "failed to get tasks")
		return
	}
	h.respond(w, http.StatusOK, tasks)
}

func (h *Handler) GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity(w, r); !ok {
		return
	}
	taskID, err := strconv.Atoi(chi.URLParam(r, "taskId"))
	if err != nil || taskID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid taskId")
		return
	}

	task, err := h.Store.GetTask(r.Context(), taskID)
	if err != nil {
		h.storeError(w, err, "failed to get task")
		return
	}
	h.respond(w, http.StatusOK, task)
}

// EditTaskHandler — частичное обновление задачи
func (h *Handler) EditTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	taskID, err := strconv.Atoi(chi.URLParam(r, "taskId"))
	if err != nil || taskID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid taskId")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	defer r.Body.Close()

	var input struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Priority    *string `json:"priority"`
		DueDate     *string `json:"dueDate"`
		AssigneeID  *int    `json:"assigneeId"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	task, err := h.Store.GetTask(r.Context(), taskID)
	if err != nil {
		h.storeError(w, err, "failed to get task")
		return
	}
	if !h.canTouchTask(identity, task) {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Priority != nil {
		if !validPriorities[*input.Priority] {
			h.respondError(w, http.StatusBadRequest, "invalid priority")
			return
		}
		task.Priority = *input.Priority
	}
	if input.DueDate != nil {
		d, err := parseDatePtr(input.DueDate)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		task.DueDate = d
	}
	if input.AssigneeID != nil {
		task.AssigneeID = *input.AssigneeID
	}

	if err := h.Store.UpdateTask(r.Context(), task, identity.ID); err != nil {
		h.storeError(w, err, "failed to update task")
		return
	}

	h.audit(r, identity.ID, "update_task", "updated task "+strconv.Itoa(task.ID))
	h.respond(w, http.StatusOK, task)
}

// ChangeTaskStatusHandler обрабатывает PUT /api/tasks/{taskId}/status
func (h *Handler) ChangeTaskStatusHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	taskID, err := strconv.Atoi(chi.URLParam(r, "taskId"))
	if err != nil || taskID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid taskId")
		return
	}
	newStatus := r.URL.Query().Get("status")
	if !validTaskStatuses[newStatus] {
		h.respondError(w, http.StatusBadRequest, "invalid status value")
		return
	}

	task, err := h.Store.GetTask(r.Context(), taskID)
	if err != nil {
		h.storeError(w, err, "failed to get task")
		return
	}
	if !h.canTouchTask(identity, task) {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	// Завершённые и отменённые задачи — терминальные состояния
	if task.Status == models.TaskCompleted || task.Status == models.TaskCancelled {
		h.respondError(w, http.StatusBadRequest, "task is already "+task.Status)
		return
	}

	task.Status = newStatus
	if err := h.Store.UpdateTask(r.Context(), task, identity.ID); err != nil {
		h.storeError(w, err, "failed to update task status")
		return
	}

	h.audit(r, identity.ID, "update_task_status",
		"task "+strconv.Itoa(task.ID)+" status set to "+newStatus)
	h.respond(w, http.StatusOK, task)
}

func (h *Handler) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if identity.Role != models.RoleAdmin && identity.Role != models.RoleManager {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	taskID, err := strconv.Atoi(chi.URLParam(r, "taskId"))
	if err != nil || taskID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid taskId")
		return
	}

	if err := h.Store.DeleteTask(r.Context(), taskID); err != nil {
		h.storeError(w, err, "failed to delete task")
		return
	}

	h.audit(r, identity.ID, "delete_task", "deleted task "+strconv.Itoa(taskID))
	h.respond(w, http.StatusOK, map[string]int{"deleted": taskID})
}

// canTouchTask: задачу меняет админ, менеджер, исполнитель или автор
func (h *Handler) canTouchTask(identity middleware.Identity, task *models.Task) bool {
	if identity.Role == models.RoleAdmin || identity.Role == models.RoleManager {
		return true
	}
	return identity.ID == task.AssigneeID || identity.ID == task.CreatedBy
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"taskhub/models"

	"github.com/go-chi/chi/v5"
)

type dailyUpdateRequest struct {
	Content    string  `json:"content"`
	UpdateDate string  `json:"updateDate"`
	Status     string  `json:"status"`
	HoursSpent float64 `json:"hoursSpent"`
}

func validateDailyUpdateRequest(req *dailyUpdateRequest) error {
	if req.Content == "" {
		return errors.New("content is required")
	}
	if req.HoursSpent < 0 || req.HoursSpent > 24 {
		return errors.New("hoursSpent must be between 0 and 24")
	}
	if req.Status != "" && !validTaskStatuses[req.Status] {
		return errors.New("invalid status")
	}
	return nil
}

// CreateDailyUpdateHandler обрабатывает POST /api/tasks/{taskId}/updates
func (h *Handler) CreateDailyUpdateHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	taskID, err := strconv.Atoi(chi.URLParam(r, "taskId"))
	if err != nil || taskID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid taskId")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req dailyUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if err := validateDailyUpdateRequest(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
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

	updateDate := time.Now()
	if req.UpdateDate != "" {
		updateDate, err = time.Parse("2006-01-02", req.UpdateDate)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, "updateDate must be YYYY-MM-DD")
			return
		}
	}

	upd := models.DailyUpdate{
		TaskID:     taskID,
		UserID:     identity.ID,
		Content:    req.Content,
		UpdateDate: updateDate,
		Status:     req.Status,
		HoursSpent: req.HoursSpent,
	}
	if err := h.Store.CreateDailyUpdate(r.Context(), &upd); err != nil {
		h.storeError(w, err, "failed to create daily update")
		return
	}

	// Статус в апдейте каскадно меняет задачу, терминальные не трогаем
	if req.Status != "" && req.Status != task.Status &&
		task.Status != models.TaskCompleted && task.Status != models.TaskCancelled {
		task.Status = req.Status
		if err := h.Store.UpdateTask(r.Context(), task, identity.ID); err != nil {
			h.storeError(w, err, "failed to update task status")
			return
		}
	}

	h.audit(r, identity.ID, "create_daily_update", "daily update for task "+strconv.Itoa(taskID))
	h.respond(w, http.StatusOK, upd)
}

// GetTaskUpdatesHandler возвращает все апдейты задачи
func (h *Handler) GetTaskUpdatesHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity(w, r); !ok {
		return
	}
	taskID, err := strconv.Atoi(chi.URLParam(r, "taskId"))
	if err != nil || taskID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid taskId")
		return
	}

	updates, err := h.Store.GetTaskUpdates(r.Context(), taskID)
	if err != nil {
		h.storeError(w, err, "failed to get task updates")
		return
	}
	h.respond(w, http.StatusOK, updates)
}

// TimeSummaryHandler обрабатывает GET /api/time/summary
func (h *Handler) TimeSummaryHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	userID := identity.ID
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid user_id")
			return
		}
		// Чужую сводку смотрят только админ и менеджер
		if id != identity.ID && identity.Role != models.RoleAdmin && identity.Role != models.RoleManager {
			h.respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		userID = id
	}

	startDate := r.URL.Query().Get("start_date")
	endDate := r.URL.Query().Get("end_date")
	if err := validateReportDates(startDate, endDate); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	days, err := h.Store.DailyHours(r.Context(), userID, startDate, endDate)
	if err != nil {
		h.storeError(w, err, "failed to get time summary")
		return
	}

	var total float64
	for _, d := range days {
		total += d.Hours
	}
	h.respond(w, http.StatusOK, map[string]any{
		"userId":     userID,
		"totalHours": round2(total),
		"days":       days,
	})
}

type feedbackRequest struct {
	Content string `json:"content"`
}

// CreateFeedbackHandler обрабатывает POST /api/tasks/{taskId}/feedback
func (h *Handler) CreateFeedbackHandler(w http.ResponseWriter, r *http.Request) {
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

	var req feedbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Content == "" {
		h.respondError(w, http.StatusBadRequest, "content is required")
		return
	}

	if _, err := h.Store.GetTask(r.Context(), taskID); err != nil {
		h.storeError(w, err, "failed to get task")
		return
	}

	fb := models.TaskFeedback{
		TaskID:      taskID,
		AuthorID:    identity.ID,
		Content:     req.Content,
		ReplyStatus: "pending",
	}
	if err := h.Store.CreateFeedback(r.Context(), &fb); err != nil {
		h.storeError(w, err, "failed to create feedback")
		return
	}

	h.audit(r, identity.ID, "create_feedback", "feedback for task "+strconv.Itoa(taskID))
	h.respond(w, http.StatusOK, fb)
}

func (h *Handler) GetTaskFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity(w, r); !ok {
		return
	}
	taskID, err := strconv.Atoi(chi.URLParam(r, "taskId"))
	if err != nil || taskID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid taskId")
		return
	}

	feedback, err := h.Store.GetTaskFeedback(r.Context(), taskID)
	if err != nil {
		h.storeError(w, err, "failed to get feedback")
		return
	}
	h.respond(w, http.StatusOK, feedback)
}

// ReplyFeedbackHandler обрабатывает PUT /api/feedback/{feedbackId}/reply.
// Повторный ответ на уже отвеченный фидбек даёт 409.
func (h *Handler) ReplyFeedbackHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if identity.Role != models.RoleAdmin && identity.Role != models.RoleManager {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	feedbackID, err := strconv.Atoi(chi.URLParam(r, "feedbackId"))
	if err != nil || feedbackID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid feedbackId")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	defer r.Body.Close()

	var input struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if input.Reply == "" {
		h.respondError(w, http.StatusBadRequest, "reply is required")
		return
	}

	if err := h.Store.ReplyFeedback(r.Context(), feedbackID, input.Reply); err != nil {
		h.storeError(w, err, "failed to reply to feedback")
		return
	}

	h.audit(r, identity.ID, "reply_feedback", "replied to feedback "+strconv.Itoa(feedbackID))
	h.respond(w, http.StatusOK, map[string]string{"status": "replied"})
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"taskhub/internal/apperrors"
	"taskhub/internal/middleware"

	"go.uber.org/zap"
)

// Handler оборачивает Storage для доступа к данным
type Handler struct {
	Store     StorageInterface
	Log       *zap.Logger
	JWTSecret string
	ExportDir string
}

// NewHandler создает новый Handler
func NewHandler(store StorageInterface, log *zap.Logger, jwtSecret, exportDir string) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Store: store, Log: log, JWTSecret: jwtSecret, ExportDir: exportDir}
}

// PingHandler отвечает "ok" для проверки сервера
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) respond(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// storeError превращает ошибку хранилища в HTTP-ответ. Настоящая
// причина ошибки БД клиенту не отдаётся, только в лог.
func (h *Handler) storeError(w http.ResponseWriter, err error, generic string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, apperrors.ErrForbidden):
		h.respondError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, apperrors.ErrAlreadyReplied):
		h.respondError(w, http.StatusConflict, "feedback already replied")
	case errors.Is(err, apperrors.ErrUnsupportedFormat):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.Log.Error(generic, zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, generic)
	}
}

// audit пишет строку журнала best-effort: ошибка записи не должна
// завалить сам запрос, только Warn в лог.
func (h *Handler) audit(r *http.Request, userID int, action, description string) {
	err := h.Store.CreateUserLog(r.Context(), userID, action, description, r.RemoteAddr)
	if err != nil {
		h.Log.Warn("audit log write failed",
			zap.Int("user_id", userID),
			zap.String("action", action),
			zap.Error(err))
	}
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (middleware.Identity, bool) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		h.respondError(w, http.StatusUnauthorized, "missing identity")
	}
	return id, ok
}

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams парсит limit и offset из query, с дефолтами и ограничениями
func parsePaginationParams(r *http.Request) PaginationParams {
	params := PaginationParams{Limit: 20, Offset: 0}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			params.Limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			params.Offset = o
		}
	}
	return params
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"taskhub/models"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"
)

// GetUsersHandler возвращает список пользователей с фильтрами role/status
func (h *Handler) GetUsersHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if identity.Role != models.RoleAdmin && identity.Role != models.RoleManager {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	params := parsePaginationParams(r)
	role := r.URL.Query().Get("role")
	status := r.URL.Query().Get("status")

	users, err := h.Store.GetUsers(r.Context(), role, status, params.Limit, params.Offset)
	if err != nil {
		h.storeError(w, err, "failed to get users")
		return
	}
	h.respond(w, http.StatusOK, users)
}

func (h *Handler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	userID, err := strconv.Atoi(chi.URLParam(r, "userId"))
	if err != nil || userID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid userId")
		return
	}
	// Себя видит каждый, чужие карточки — admin и manager
	if userID != identity.ID && identity.Role != models.RoleAdmin && identity.Role != models.RoleManager {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	user, err := h.Store.GetUser(r.Context(), userID)
	if err != nil {
		h.storeError(w, err, "failed to get user")
		return
	}
	h.respond(w, http.StatusOK, user)
}

type createUserRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	Status     string `json:"status"`
	WorkingFor *int   `json:"workingFor"`
}

func validateCreateUserRequest(req *createUserRequest) error {
	if req.Name == "" || len(req.Name) > 100 {
		return errors.New("name is required and max length 100")
	}
	if req.Email == "" {
		return errors.New("email is required")
	}
	if len(req.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	switch req.Role {
	case models.RoleAdmin, models.RoleManager, models.RoleEmployee,
		models.RoleConsultant, models.RoleVendor:
		// ok
	default:
		return errors.New("invalid role")
	}
	switch req.Status {
	case "", "active", "inactive", "suspended":
		// ok
	default:
		return errors.New("invalid status")
	}
	return nil
}

// CreateUserHandler — создание пользователя администратором
func (h *Handler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if identity.Role != models.RoleAdmin {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1048576)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req createUserRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if err := validateCreateUserRequest(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	status := req.Status
	if status == "" {
		status = "active"
	}
	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Status:       status,
		WorkingFor:   req.WorkingFor,
	}
	if err := h.Store.CreateUser(r.Context(), &user); err != nil {
		h.storeError(w, err, "failed to create user")
		return
	}

	h.audit(r, identity.ID, "create_user", "created user "+user.Email)
	h.respond(w, http.StatusOK, user)
}

// UpdateUserHandler — частичное обновление; роль и статус меняет только админ
func (h *Handler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	userID, err := strconv.Atoi(chi.URLParam(r, "userId"))
	if err != nil || userID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid userId")
		return
	}
	if userID != identity.ID && identity.Role != models.RoleAdmin {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	defer r.Body.Close()

	var input struct {
		Name       *string `json:"name"`
		Email      *string `json:"email"`
		Role       *string `json:"role"`
		Status     *string `json:"status"`
		WorkingFor *int    `json:"workingFor"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, err := h.Store.GetUser(r.Context(), userID)
	if err != nil {
		h.storeError(w, err, "failed to get user")
		return
	}

	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Email != nil {
		user.Email = *input.Email
	}
	if identity.Role == models.RoleAdmin {
		if input.Role != nil {
			user.Role = *input.Role
		}
		if input.Status != nil {
			user.Status = *input.Status
		}
		if input.WorkingFor != nil {
			// working_for не может указывать на самого себя
			if *input.WorkingFor == user.ID {
				h.respondError(w, http.StatusBadRequest, "workingFor cannot reference the user itself")
				return
			}
			user.WorkingFor = input.WorkingFor
		}
	}

	if err := h.Store.UpdateUser(r.Context(), user); err != nil {
		h.storeError(w, err, "failed to update user")
		return
	}

	h.audit(r, identity.ID, "update_user", "updated user "+strconv.Itoa(user.ID))
	h.respond(w, http.StatusOK, user)
}

func (h *Handler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if identity.Role != models.RoleAdmin {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	userID, err := strconv.Atoi(chi.URLParam(r, "userId"))
	if err != nil || userID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid userId")
		return
	}

	if err := h.Store.DeleteUser(r.Context(), userID); err != nil {
		h.storeError(w, err, "failed to delete user")
		return
	}

	h.audit(r, identity.ID, "delete_user", "deleted user "+strconv.Itoa(userID))
	h.respond(w, http.StatusOK, map[string]int{"deleted": userID})
}

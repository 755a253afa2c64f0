package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"taskhub/internal/apperrors"
	"taskhub/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	WorkingFor *int   `json:"workingFor"`
}

func validateRegisterRequest(req *registerRequest) error {
	if req.Name == "" || len(req.Name) > 100 {
		return errors.New("name is required and max length 100")
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return errors.New("valid email is required")
	}
	if len(req.Password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	switch req.Role {
	case models.RoleManager, models.RoleEmployee, models.RoleConsultant, models.RoleVendor:
		// ok
	case models.RoleAdmin:
		return errors.New("admin accounts cannot be self-registered")
	default:
		return errors.New("invalid role")
	}
	return nil
}

// RegisterHandler обрабатывает POST /api/auth/register
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req registerRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if err := validateRegisterRequest(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.Store.GetUserByEmail(r.Context(), req.Email); err == nil {
		h.respondError(w, http.StatusBadRequest, "email already registered")
		return
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		h.storeError(w, err, "failed to register user")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
		Status:       "active",
		WorkingFor:   req.WorkingFor,
	}
	if err := h.Store.CreateUser(r.Context(), &user); err != nil {
		h.storeError(w, err, "failed to register user")
		return
	}

	h.audit(r, user.ID, "register", "user registered")
	h.respond(w, http.StatusOK, user)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginHandler обрабатывает POST /api/auth/login и выдаёт JWT
func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1048576)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	defer r.Body.Close()

	var req loginRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if req.Email == "" || req.Password == "" {
		h.respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if errors.Is(err, apperrors.ErrNotFound) {
		h.respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err != nil {
		h.storeError(w, err, "failed to log in")
		return
	}
	if user.Status != "active" {
		h.respondError(w, http.StatusForbidden, "account is not active")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		h.respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"role":    user.Role,
		"jti":     uuid.NewString(),
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(h.JWTSecret))
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	h.audit(r, user.ID, "login", "user logged in")
	h.respond(w, http.StatusOK, map[string]interface{}{
		"token": signed,
		"user":  user,
	})
}

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

type projectRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	ManagerID   int     `json:"managerId"`
	ClientID    *int    `json:"clientId"`
	ProjectType string  `json:"projectType"`
}

func validateProjectRequest(req *projectRequest) error {
	if req.Title == "" || len(req.Title) > 200 {
		return errors.New("title is required and max length 200")
	}
	switch req.Status {
	case "", "planning", "active", "on_hold", "completed", "cancelled":
		// ok
	default:
		return errors.New("invalid status")
	}
	if req.ManagerID <= 0 {
		return errors.New("managerId must be positive")
	}
	return nil
}

func parseDatePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, errors.New("invalid date, expected YYYY-MM-DD")
	}
	return &t, nil
}

// CreateProjectHandler обрабатывает POST /api/projects
func (h *Handler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if identity.Role != models.RoleAdmin && identity.Role != models.RoleManager {
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

	var req projectRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON format")
		return
	}
	if err := validateProjectRequest(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	startDate, err := parseDatePtr(req.StartDate)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	endDate, err := parseDatePtr(req.EndDate)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	status := req.Status
	if status == "" {
		status = "planning"
	}
	project := models.Project{
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		StartDate:   startDate,
		EndDate:     endDate,
		ManagerID:   req.ManagerID,
		ClientID:    req.ClientID,
		ProjectType: req.ProjectType,
	}
	if err := h.Store.CreateProject(r.Context(), &project, identity.ID); err != nil {
		h.storeError(w, err, "failed to create project")
		return
	}

	h.audit(r, identity.ID, "create_project", "created project "+project.Title)
	h.respond(w, http.StatusOK, project)
}

func (h *Handler) GetProjectsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity(w, r); !ok {
		return
	}
	params := parsePaginationParams(r)
	status := r.URL.Query().Get("status")
	managerID := 0
	if v := r.URL.Query().Get("manager_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			h.respondError(w, http.StatusBadRequest, "invalid manager_id")
			return
		}
		managerID = id
	}

	projects, err := h.Store.GetProjects(r.Context(), status, managerID, params.Limit, params.Offset)
	if err != nil {
		h.storeError(w, err, "failed to get projects")
		return
	}
	h.respond(w, http.StatusOK, projects)
}

func (h *Handler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.identity(w, r); !ok {
		return
	}
	projectID, err := strconv.Atoi(chi.URLParam(r, "projectId"))
	if err != nil || projectID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid projectId")
		return
	}

	project, err := h.Store.GetProject(r.Context(), projectID)
	if err != nil {
		h.storeError(w, err, "failed to get project")
		return
	}
	h.respond(w, http.StatusOK, project)
}

// UpdateProjectHandler — частичное обновление проекта
func (h *Handler) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	projectID, err := strconv.Atoi(chi.URLParam(r, "projectId"))
	if err != nil || projectID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid projectId")
		return
	}

	project, err := h.Store.GetProject(r.Context(), projectID)
	if err != nil {
		h.storeError(w, err, "failed to get project")
		return
	}
	// Менять проект может админ или его менеджер
	if identity.Role != models.RoleAdmin && identity.ID != project.ManagerID {
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
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Status      *string `json:"status"`
		StartDate   *string `json:"startDate"`
		EndDate     *string `json:"endDate"`
		ManagerID   *int    `json:"managerId"`
		ClientID    *int    `json:"clientId"`
		ProjectType *string `json:"projectType"`
	}
	if err := json.Unmarshal(body, &input); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if input.Title != nil {
		project.Title = *input.Title
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Status != nil {
		project.Status = *input.Status
	}
	if input.StartDate != nil {
		d, err := parseDatePtr(input.StartDate)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		project.StartDate = d
	}
	if input.EndDate != nil {
		d, err := parseDatePtr(input.EndDate)
		if err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		project.EndDate = d
	}
	if input.ManagerID != nil {
		project.ManagerID = *input.ManagerID
	}
	if input.ClientID != nil {
		project.ClientID = input.ClientID
	}
	if input.ProjectType != nil {
		project.ProjectType = *input.ProjectType
	}

	if err := h.Store.UpdateProject(r.Context(), project, identity.ID); err != nil {
		h.storeError(w, err, "failed to update project")
		return
	}

	h.audit(r, identity.ID, "update_project", "updated project "+strconv.Itoa(project.ID))
	h.respond(w, http.StatusOK, project)
}

func (h *Handler) DeleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if identity.Role != models.RoleAdmin && identity.Role != models.RoleManager {
		h.respondError(w, http.StatusForbidden, "forbidden")
		return
	}
	projectID, err := strconv.Atoi(chi.URLParam(r, "projectId"))
	if err != nil || projectID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid projectId")
		return
	}

	if err := h.Store.DeleteProject(r.Context(), projectID); err != nil {
		h.storeError(w, err, "failed to delete project")
		return
	}

	h.audit(r, identity.ID, "delete_project", "deleted project "+strconv.Itoa(projectID))
	h.respond(w, http.StatusOK, map[string]int{"deleted": projectID})
}

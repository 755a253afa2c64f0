package handlers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"taskhub/db"
	"taskhub/internal/apperrors"
	"taskhub/internal/handlers"
	"taskhub/internal/handlers/testutils"
	"taskhub/internal/middleware"
	"taskhub/models"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockStorage реализует StorageInterface
type MockStorage struct {
	user       *models.User
	userByMail *models.User
	vendor     *models.Vendor
	task       *models.Task
	project    *models.Project
	logs       []string

	GetTasksFunc                func(ctx context.Context, f db.TaskFilter) ([]models.Task, error)
	TaskReportFunc              func(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.TaskReportRow, error)
	UserPerformanceReportFunc   func(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.UserPerformanceRow, error)
	ProjectStatusReportFunc     func(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.ProjectStatusRow, error)
	VendorPerformanceReportFunc func(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.VendorPerformanceRow, error)
	UserLogsReportFunc          func(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.UserLogRow, error)
	ReplyFeedbackFunc           func(ctx context.Context, id int, reply string) error
	DailyHoursFunc              func(ctx context.Context, userID int, startDate, endDate string) ([]db.DayHours, error)
}

func (m *MockStorage) CreateUser(ctx context.Context, u *models.User) error {
	u.ID = 42
	return nil
}
func (m *MockStorage) GetUser(ctx context.Context, id int) (*models.User, error) {
	if m.user != nil {
		return m.user, nil
	}
	return &models.User{ID: id, Name: "Test User", Email: "test@example.com", Role: models.RoleEmployee, Status: "active"}, nil
}
func (m *MockStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.userByMail != nil {
		return m.userByMail, nil
	}
	return nil, apperrors.ErrNotFound
}
func (m *MockStorage) GetUsers(ctx context.Context, role, status string, limit, offset int) ([]models.User, error) {
	return []models.User{{ID: 1, Name: "Sample User"}}, nil
}
func (m *MockStorage) UpdateUser(ctx context.Context, u *models.User) error { return nil }
func (m *MockStorage) DeleteUser(ctx context.Context, id int) error         { return nil }

func (m *MockStorage) CreateVendor(ctx context.Context, v *models.Vendor) error {
	v.ID = 7
	return nil
}
func (m *MockStorage) GetVendor(ctx context.Context, id int) (*models.Vendor, error) {
	if m.vendor != nil {
		return m.vendor, nil
	}
	return &models.Vendor{ID: id, UserID: 5, CompanyName: "Acme Consulting"}, nil
}
func (m *MockStorage) GetVendorByUserID(ctx context.Context, userID int) (*models.Vendor, error) {
	if m.vendor != nil {
		return m.vendor, nil
	}
	return nil, apperrors.ErrNotFound
}
func (m *MockStorage) GetVendors(ctx context.Context, limit, offset int) ([]models.Vendor, error) {
	return []models.Vendor{{ID: 1, CompanyName: "Acme Consulting"}}, nil
}
func (m *MockStorage) UpdateVendor(ctx context.Context, v *models.Vendor) error { return nil }
func (m *MockStorage) DeleteVendor(ctx context.Context, id int) error           { return nil }
func (m *MockStorage) GetVendorConsultants(ctx context.Context, vendorUserID int) ([]models.User, error) {
	return []models.User{{ID: 9, Name: "Consultant One", Role: models.RoleConsultant}}, nil
}

func (m *MockStorage) CreateProject(ctx context.Context, p *models.Project, actorID int) error {
	p.ID = 3
	return nil
}
func (m *MockStorage) GetProject(ctx context.Context, id int) (*models.Project, error) {
	if m.project != nil {
		return m.project, nil
	}
	return &models.Project{ID: id, Title: "Sample Project", Status: "active", ManagerID: 1}, nil
}
func (m *MockStorage) GetProjects(ctx context.Context, status string, managerID, limit, offset int) ([]models.Project, error) {
	return []models.Project{{ID: 1, Title: "Sample Project"}}, nil
}
func (m *MockStorage) UpdateProject(ctx context.Context, p *models.Project, actorID int) error {
	return nil
}
func (m *MockStorage) DeleteProject(ctx context.Context, id int) error { return nil }

func (m *MockStorage) CreateTask(ctx context.Context, t *models.Task) error {
	t.ID = 11
	return nil
}
func (m *MockStorage) GetTask(ctx context.Context, id int) (*models.Task, error) {
	if m.task != nil {
		return m.task, nil
	}
	return &models.Task{ID: id, Title: "Sample Task", Status: models.TaskInProgress, Priority: "medium", ProjectID: 1, AssigneeID: 2, CreatedBy: 1}, nil
}
func (m *MockStorage) GetTasks(ctx context.Context, f db.TaskFilter) ([]models.Task, error) {
	if m.GetTasksFunc != nil {
		return m.GetTasksFunc(ctx, f)
	}
	return []models.Task{{ID: 1, Title: "Sample Task"}}, nil
}
func (m *MockStorage) UpdateTask(ctx context.Context, t *models.Task, actorID int) error { return nil }
func (m *MockStorage) DeleteTask(ctx context.Context, id int) error                      { return nil }

func (m *MockStorage) CreateDailyUpdate(ctx context.Context, u *models.DailyUpdate) error {
	u.ID = 21
	return nil
}
func (m *MockStorage) GetTaskUpdates(ctx context.Context, taskID int) ([]models.DailyUpdate, error) {
	return []models.DailyUpdate{{ID: 1, TaskID: taskID, Content: "Daily progress"}}, nil
}
func (m *MockStorage) DailyHours(ctx context.Context, userID int, startDate, endDate string) ([]db.DayHours, error) {
	if m.DailyHoursFunc != nil {
		return m.DailyHoursFunc(ctx, userID, startDate, endDate)
	}
	return []db.DayHours{{Day: "2026-08-01", Hours: 6.5}, {Day: "2026-08-02", Hours: 1.5}}, nil
}

func (m *MockStorage) CreateFeedback(ctx context.Context, f *models.TaskFeedback) error {
	f.ID = 31
	return nil
}
func (m *MockStorage) GetTaskFeedback(ctx context.Context, taskID int) ([]models.TaskFeedback, error) {
	return []models.TaskFeedback{{ID: 1, TaskID: taskID, Content: "Looks good"}}, nil
}
func (m *MockStorage) ReplyFeedback(ctx context.Context, id int, reply string) error {
	if m.ReplyFeedbackFunc != nil {
		return m.ReplyFeedbackFunc(ctx, id, reply)
	}
	return nil
}

func (m *MockStorage) CreateUserLog(ctx context.Context, userID int, action, description, ip string) error {
	m.logs = append(m.logs, action)
	return nil
}

func (m *MockStorage) TaskReport(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.TaskReportRow, error) {
	if m.TaskReportFunc != nil {
		return m.TaskReportFunc(ctx, callerID, role, f)
	}
	return []db.TaskReportRow{{TaskID: 1, Title: "Report Task", ProjectTitle: "Sample Project"}}, nil
}
func (m *MockStorage) UserPerformanceReport(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.UserPerformanceRow, error) {
	if m.UserPerformanceReportFunc != nil {
		return m.UserPerformanceReportFunc(ctx, callerID, role, f)
	}
	return []db.UserPerformanceRow{{UserID: 1, Name: "Perf User"}}, nil
}
func (m *MockStorage) ProjectStatusReport(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.ProjectStatusRow, error) {
	if m.ProjectStatusReportFunc != nil {
		return m.ProjectStatusReportFunc(ctx, callerID, role, f)
	}
	return []db.ProjectStatusRow{}, nil
}
func (m *MockStorage) VendorPerformanceReport(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.VendorPerformanceRow, error) {
	if m.VendorPerformanceReportFunc != nil {
		return m.VendorPerformanceReportFunc(ctx, callerID, role, f)
	}
	return []db.VendorPerformanceRow{}, nil
}
func (m *MockStorage) UserLogsReport(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.UserLogRow, error) {
	if m.UserLogsReportFunc != nil {
		return m.UserLogsReportFunc(ctx, callerID, role, f)
	}
	return []db.UserLogRow{}, nil
}

// asUser подставляет аутентифицированного пользователя в контекст запроса
func asUser(req *http.Request, id int, role string) *http.Request {
	ctx := middleware.WithIdentity(req.Context(), middleware.Identity{ID: id, Role: role})
	return req.WithContext(ctx)
}

func TestPingHandler(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, nil, "secret", t.TempDir())

	req := httptest.NewRequest("GET", "/api/ping", nil)
	w := httptest.NewRecorder()

	handler.PingHandler(w, req)

	require.Equal(t, 200, w.Result().StatusCode)
	require.Equal(t, "ok", w.Body.String())
}

func TestLoginHandler(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	mockStore := &MockStorage{
		userByMail: &models.User{ID: 1, Email: "ivan@example.com", PasswordHash: string(hash), Role: models.RoleEmployee, Status: "active"},
	}
	handler := handlers.NewHandler(mockStore, nil, "secret", t.TempDir())

	reqBody := `{"email":"ivan@example.com","password":"password123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	handler.LoginHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "token")
}

func TestLoginHandlerWrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	require.NoError(t, err)

	mockStore := &MockStorage{
		userByMail: &models.User{ID: 1, Email: "ivan@example.com", PasswordHash: string(hash), Status: "active"},
	}
	handler := handlers.NewHandler(mockStore, nil, "secret", t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"ivan@example.com","password":"wrong"}`))
	w := httptest.NewRecorder()

	handler.LoginHandler(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Result().StatusCode)
}

func TestCreateTaskHandler(t *testing.T) {
	mockStore := &MockStorage{}
	handler := handlers.NewHandler(mockStore, nil, "secret", t.TempDir())

	reqBody := `{
        "title": "New Task",
        "description": "Desc",
        "priority": "high",
        "projectId": 1,
        "assigneeId": 2
    }`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, 1, models.RoleManager)
	w := httptest.NewRecorder()

	handler.CreateTaskHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "New Task")
	// статус новой задачи всегда new
	require.Contains(t, string(body), `"status":"new"`)
	require.Contains(t, mockStore.logs, "create_task")
}

func TestCreateTaskHandlerInvalidBody(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, nil, "secret", t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"title":""}`))
	req = asUser(req, 1, models.RoleManager)
	w := httptest.NewRecorder()

	handler.CreateTaskHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestChangeTaskStatusHandler(t *testing.T) {
	mockStore := &MockStorage{}
	handler := handlers.NewHandler(mockStore, nil, "secret", t.TempDir())

	req := httptest.NewRequest(http.MethodPut, "/api/tasks/11/status?status=completed", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"taskId": "11"})
	req = asUser(req, 1, models.RoleManager)
	w := httptest.NewRecorder()

	handler.ChangeTaskStatusHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), `"status":"completed"`)
}

func TestChangeTaskStatusHandlerTerminal(t *testing.T) {
	mockStore := &MockStorage{
		task: &models.Task{ID: 11, Title: "Done Task", Status: models.TaskCompleted, AssigneeID: 1, CreatedBy: 1},
	}
	handler := handlers.NewHandler(mockStore, nil, "secret", t.TempDir())

	req := httptest.NewRequest(http.MethodPut, "/api/tasks/11/status?status=in_progress", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"taskId": "11"})
	req = asUser(req, 1, models.RoleManager)
	w := httptest.NewRecorder()

	handler.ChangeTaskStatusHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestChangeTaskStatusHandlerForbidden(t *testing.T) {
	mockStore := &MockStorage{
		task: &models.Task{ID: 11, Status: models.TaskInProgress, AssigneeID: 2, CreatedBy: 3},
	}
	handler := handlers.NewHandler(mockStore, nil, "secret", t.TempDir())

	req := httptest.NewRequest(http.MethodPut, "/api/tasks/11/status?status=completed", nil)
	req = testutils.WithChiURLParams(req, map[string]string{"taskId": "11"})
	req = asUser(req, 99, models.RoleEmployee)
	w := httptest.NewRecorder()

	handler.ChangeTaskStatusHandler(w, req)

	require.Equal(t, http.StatusForbidden, w.Result().StatusCode)
}

func TestGetUsersHandlerForbiddenForEmployee(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, nil, "secret", t.TempDir())

	req := httptest.NewRequest("GET", "/api/users", nil)
	req = asUser(req, 5, models.RoleEmployee)
	w := httptest.NewRecorder()

	handler.GetUsersHandler(w, req)

	require.Equal(t, http.StatusForbidden, w.Result().StatusCode)
}

func TestReplyFeedbackHandlerConflict(t *testing.T) {
	mockStore := &MockStorage{
		ReplyFeedbackFunc: func(ctx context.Context, id int, reply string) error {
			return apperrors.ErrAlreadyReplied
		},
	}
	handler := handlers.NewHandler(mockStore, nil, "secret", t.TempDir())

	req := httptest.NewRequest(http.MethodPut, "/api/feedback/3/reply", strings.NewReader(`{"reply":"thanks"}`))
	req = testutils.WithChiURLParams(req, map[string]string{"feedbackId": "3"})
	req = asUser(req, 1, models.RoleManager)
	w := httptest.NewRecorder()

	handler.ReplyFeedbackHandler(w, req)

	require.Equal(t, http.StatusConflict, w.Result().StatusCode)
}

func TestTimeSummaryHandler(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, nil, "secret", t.TempDir())

	req := httptest.NewRequest("GET", "/api/time/summary?start_date=2026-08-01&end_date=2026-08-31", nil)
	req = asUser(req, 2, models.RoleEmployee)
	w := httptest.NewRecorder()

	handler.TimeSummaryHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), `"totalHours":8`)
}

func TestTimeSummaryHandlerForeignUserForbidden(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, nil, "secret", t.TempDir())

	req := httptest.NewRequest("GET", "/api/time/summary?user_id=7", nil)
	req = asUser(req, 2, models.RoleEmployee)
	w := httptest.NewRecorder()

	handler.TimeSummaryHandler(w, req)

	require.Equal(t, http.StatusForbidden, w.Result().StatusCode)
}

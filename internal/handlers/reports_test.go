package handlers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskhub/db"
	"taskhub/internal/handlers"
	"taskhub/models"

	"github.com/stretchr/testify/require"
)

func TestTaskReportHandler(t *testing.T) {
	mockStore := &MockStorage{
		TaskReportFunc: func(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.TaskReportRow, error) {
			require.Equal(t, 1, callerID)
			require.Equal(t, models.RoleAdmin, role)
			require.Equal(t, 5, f.ProjectID)
			require.Equal(t, "completed", f.Status)
			return []db.TaskReportRow{{TaskID: 1, Title: "Scoped Task"}}, nil
		},
	}
	handler := handlers.NewHandler(mockStore, nil, "secret", t.TempDir())

	req := httptest.NewRequest("GET", "/api/reports/tasks?project_id=5&status=completed", nil)
	req = asUser(req, 1, models.RoleAdmin)
	w := httptest.NewRecorder()

	handler.TaskReportHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Scoped Task")
	// применённые фильтры возвращаются в ответе
	require.Contains(t, string(body), `"filters"`)
	require.Contains(t, string(body), `"project_id":5`)
	require.Contains(t, mockStore.logs, "report_tasks")
}

func TestTaskReportHandlerBadDate(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, nil, "secret", t.TempDir())

	req := httptest.NewRequest("GET", "/api/reports/tasks?start_date=01-08-2026", nil)
	req = asUser(req, 1, models.RoleAdmin)
	w := httptest.NewRecorder()

	handler.TaskReportHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestTaskReportHandlerReversedDates(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, nil, "secret", t.TempDir())

	req := httptest.NewRequest("GET", "/api/reports/tasks?start_date=2026-08-31&end_date=2026-08-01", nil)
	req = asUser(req, 1, models.RoleAdmin)
	w := httptest.NewRecorder()

	handler.TaskReportHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

// Вендор без консультантов получает успешный пустой отчёт, не ошибку
func TestVendorReportEmptyScope(t *testing.T) {
	mockStore := &MockStorage{
		TaskReportFunc: func(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.TaskReportRow, error) {
			return []db.TaskReportRow{}, nil
		},
	}
	handler := handlers.NewHandler(mockStore, nil, "secret", t.TempDir())

	req := httptest.NewRequest("GET", "/api/reports/tasks", nil)
	req = asUser(req, 5, models.RoleVendor)
	w := httptest.NewRecorder()

	handler.TaskReportHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), `"success":true`)
	require.Contains(t, string(body), `"data":[]`)
}

func TestUserLogsReportHandler(t *testing.T) {
	mockStore := &MockStorage{
		UserLogsReportFunc: func(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.UserLogRow, error) {
			require.Equal(t, "login", f.Action)
			return []db.UserLogRow{{ID: 1, UserName: "Ivan", Action: "login"}}, nil
		},
	}
	handler := handlers.NewHandler(mockStore, nil, "secret", t.TempDir())

	req := httptest.NewRequest("GET", "/api/reports/user-logs?action=login", nil)
	req = asUser(req, 1, models.RoleAdmin)
	w := httptest.NewRecorder()

	handler.UserLogsReportHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "Ivan")
}

func TestExportReportHandlerCSV(t *testing.T) {
	exportDir := t.TempDir()
	handler := handlers.NewHandler(&MockStorage{}, nil, "secret", exportDir)

	reqBody := `{"report_type":"tasks","format":"csv"}`
	req := httptest.NewRequest(http.MethodPost, "/api/reports/export", strings.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, 1, models.RoleAdmin)
	w := httptest.NewRecorder()

	handler.ExportReportHandler(w, req)

	res := w.Result()
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), `"success":true`)
	require.Contains(t, string(body), `"file":"tasks_report_`)

	files, err := os.ReadDir(exportDir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, ".csv", filepath.Ext(files[0].Name()))
}

// Некорректный report_type отклоняется до какого-либо похода в хранилище
func TestExportReportHandlerBadType(t *testing.T) {
	mockStore := &MockStorage{
		TaskReportFunc: func(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.TaskReportRow, error) {
			t.Fatal("storage must not be called for invalid report_type")
			return nil, nil
		},
	}
	handler := handlers.NewHandler(mockStore, nil, "secret", t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/reports/export", strings.NewReader(`{"report_type":"nope","format":"csv"}`))
	req = asUser(req, 1, models.RoleAdmin)
	w := httptest.NewRecorder()

	handler.ExportReportHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

func TestExportReportHandlerBadFormat(t *testing.T) {
	handler := handlers.NewHandler(&MockStorage{}, nil, "secret", t.TempDir())

	req := httptest.NewRequest(http.MethodPost, "/api/reports/export", strings.NewReader(`{"report_type":"tasks","format":"pdf"}`))
	req = asUser(req, 1, models.RoleAdmin)
	w := httptest.NewRecorder()

	handler.ExportReportHandler(w, req)

	require.Equal(t, http.StatusBadRequest, w.Result().StatusCode)
}

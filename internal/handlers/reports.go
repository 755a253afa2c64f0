package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"taskhub/db"
	"taskhub/internal/export"
)

// validReportTypes — допустимые значения report_type для экспорта
var validReportTypes = map[string]bool{
	"tasks":              true,
	"user-performance":   true,
	"project-status":     true,
	"vendor-performance": true,
	"user-logs":          true,
}

// parseReportFilter собирает фильтры отчёта из query-параметров.
// Числовые id валидируются, даты — формата YYYY-MM-DD.
func parseReportFilter(r *http.Request) (db.ReportFilter, error) {
	var f db.ReportFilter
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"project_id", &f.ProjectID},
		{"user_id", &f.UserID},
		{"vendor_id", &f.VendorID},
	} {
		if v := q.Get(p.name); v != "" {
			id, err := strconv.Atoi(v)
			if err != nil || id <= 0 {
				return f, errors.New("invalid " + p.name)
			}
			*p.dst = id
		}
	}

	f.Status = q.Get("status")
	f.Priority = q.Get("priority")
	f.Action = q.Get("action")
	f.StartDate = q.Get("start_date")
	f.EndDate = q.Get("end_date")

	if err := validateReportDates(f.StartDate, f.EndDate); err != nil {
		return f, err
	}
	return f, nil
}

func validateReportDates(start, end string) error {
	var s, e time.Time
	var err error
	if start != "" {
		if s, err = time.Parse("2006-01-02", start); err != nil {
			return errors.New("start_date must be YYYY-MM-DD")
		}
	}
	if end != "" {
		if e, err = time.Parse("2006-01-02", end); err != nil {
			return errors.New("end_date must be YYYY-MM-DD")
		}
	}
	if start != "" && end != "" && e.Before(s) {
		return errors.New("end_date must not be before start_date")
	}
	return nil
}

// filtersEcho возвращает в ответе только непустые фильтры
func filtersEcho(f db.ReportFilter) map[string]any {
	echo := map[string]any{}
	if f.ProjectID > 0 {
		echo["project_id"] = f.ProjectID
	}
	if f.UserID > 0 {
		echo["user_id"] = f.UserID
	}
	if f.VendorID > 0 {
		echo["vendor_id"] = f.VendorID
	}
	if f.Status != "" {
		echo["status"] = f.Status
	}
	if f.Priority != "" {
		echo["priority"] = f.Priority
	}
	if f.Action != "" {
		echo["action"] = f.Action
	}
	if f.StartDate != "" {
		echo["start_date"] = f.StartDate
	}
	if f.EndDate != "" {
		echo["end_date"] = f.EndDate
	}
	return echo
}

func (h *Handler) respondReport(w http.ResponseWriter, data any, f db.ReportFilter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    data,
		"filters": filtersEcho(f),
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TaskReportHandler обрабатывает GET /api/reports/tasks
func (h *Handler) TaskReportHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	filter, err := parseReportFilter(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.Store.TaskReport(r.Context(), identity.ID, identity.Role, filter)
	if err != nil {
		h.storeError(w, err, "failed to build task report")
		return
	}

	h.audit(r, identity.ID, "report_tasks", "generated task report")
	h.respondReport(w, rows, filter)
}

// UserPerformanceReportHandler обрабатывает GET /api/reports/user-performance
func (h *Handler) UserPerformanceReportHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	filter, err := parseReportFilter(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.Store.UserPerformanceReport(r.Context(), identity.ID, identity.Role, filter)
	if err != nil {
		h.storeError(w, err, "failed to build user performance report")
		return
	}

	h.audit(r, identity.ID, "report_user_performance", "generated user performance report")
	h.respondReport(w, rows, filter)
}

// ProjectStatusReportHandler обрабатывает GET /api/reports/project-status
func (h *Handler) ProjectStatusReportHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	filter, err := parseReportFilter(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.Store.ProjectStatusReport(r.Context(), identity.ID, identity.Role, filter)
	if err != nil {
		h.storeError(w, err, "failed to build project status report")
		return
	}

	h.audit(r, identity.ID, "report_project_status", "generated project status report")
	h.respondReport(w, rows, filter)
}

// VendorPerformanceReportHandler обрабатывает GET /api/reports/vendor-performance.
// Доступен только админу и вендору.
func (h *Handler) VendorPerformanceReportHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	filter, err := parseReportFilter(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.Store.VendorPerformanceReport(r.Context(), identity.ID, identity.Role, filter)
	if err != nil {
		h.storeError(w, err, "failed to build vendor performance report")
		return
	}

	h.audit(r, identity.ID, "report_vendor_performance", "generated vendor performance report")
	h.respondReport(w, rows, filter)
}

// UserLogsReportHandler обрабатывает GET /api/reports/user-logs
func (h *Handler) UserLogsReportHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	filter, err := parseReportFilter(r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.Store.UserLogsReport(r.Context(), identity.ID, identity.Role, filter)
	if err != nil {
		h.storeError(w, err, "failed to build user logs report")
		return
	}

	h.audit(r, identity.ID, "report_user_logs", "generated user logs report")
	h.respondReport(w, rows, filter)
}

type exportRequest struct {
	ReportType string `json:"report_type"`
	Format     string `json:"format"`
	Filters    struct {
		ProjectID int    `json:"project_id"`
		UserID    int    `json:"user_id"`
		VendorID  int    `json:"vendor_id"`
		Status    string `json:"status"`
		Priority  string `json:"priority"`
		Action    string `json:"action"`
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	} `json:"filters"`
}

// ExportReportHandler обрабатывает POST /api/reports/export: гоняет тот же
// отчёт с теми же правилами видимости и пишет файл в каталог экспорта.
// report_type и format проверяются до любого похода в БД.
func (h *Handler) ExportReportHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "cannot read body")
		return
	}
	defer r.Body.Close()

	var req exportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !validReportTypes[req.ReportType] {
		h.respondError(w, http.StatusBadRequest, "invalid report_type")
		return
	}
	if req.Format == "" {
		req.Format = "csv"
	}
	if req.Format != "csv" && req.Format != "xlsx" {
		h.respondError(w, http.StatusBadRequest, "unsupported export format: "+req.Format)
		return
	}

	filter := db.ReportFilter{
		ProjectID: req.Filters.ProjectID,
		UserID:    req.Filters.UserID,
		VendorID:  req.Filters.VendorID,
		Status:    req.Filters.Status,
		Priority:  req.Filters.Priority,
		Action:    req.Filters.Action,
		StartDate: req.Filters.StartDate,
		EndDate:   req.Filters.EndDate,
	}
	if err := validateReportDates(filter.StartDate, filter.EndDate); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var records []export.Record
	switch req.ReportType {
	case "tasks":
		rows, rerr := h.Store.TaskReport(r.Context(), identity.ID, identity.Role, filter)
		if rerr != nil {
			h.storeError(w, rerr, "failed to build task report")
			return
		}
		records = db.TaskReportRecords(rows)
	case "user-performance":
		rows, rerr := h.Store.UserPerformanceReport(r.Context(), identity.ID, identity.Role, filter)
		if rerr != nil {
			h.storeError(w, rerr, "failed to build user performance report")
			return
		}
		records = db.UserPerformanceRecords(rows)
	case "project-status":
		rows, rerr := h.Store.ProjectStatusReport(r.Context(), identity.ID, identity.Role, filter)
		if rerr != nil {
			h.storeError(w, rerr, "failed to build project status report")
			return
		}
		records = db.ProjectStatusRecords(rows)
	case "vendor-performance":
		rows, rerr := h.Store.VendorPerformanceReport(r.Context(), identity.ID, identity.Role, filter)
		if rerr != nil {
			h.storeError(w, rerr, "failed to build vendor performance report")
			return
		}
		records = db.VendorPerformanceRecords(rows)
	case "user-logs":
		rows, rerr := h.Store.UserLogsReport(r.Context(), identity.ID, identity.Role, filter)
		if rerr != nil {
			h.storeError(w, rerr, "failed to build user logs report")
			return
		}
		records = db.UserLogRecords(rows)
	}

	filename, err := export.Write(h.ExportDir, req.ReportType, req.Format, records)
	if err != nil {
		h.storeError(w, err, "failed to write export file")
		return
	}

	h.audit(r, identity.ID, "export_report", "exported "+req.ReportType+" report to "+filename)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"file":    filename,
	})
}

package db

import (
	"context"
	"errors"
	"math"
	"time"

	"taskhub/internal/apperrors"
	qb "taskhub/internal/query"
	"taskhub/models"
)

// Scope — множество user id, строки которых видит вызывающий.
// Admin не ограничен; вендор видит своих консультантов (пустое
// множество допустимо и означает "нет видимых строк"); остальные —
// только себя. Резолвится заново на каждый запрос, состав
// консультантов между запросами может меняться.
type Scope struct {
	Unrestricted  bool
	UserIDs       []int
	VendorCompany string
}

func (s Scope) Empty() bool {
	return !s.Unrestricted && len(s.UserIDs) == 0
}

func (s *Storage) ResolveScope(ctx context.Context, callerID int, role string) (Scope, error) {
	switch role {
	case models.RoleAdmin:
		return Scope{Unrestricted: true}, nil
	case models.RoleVendor:
		v, err := s.GetVendorByUserID(ctx, callerID)
		if errors.Is(err, apperrors.ErrNotFound) {
			// Роль vendor без записи вендора — доступ запрещён
			return Scope{}, apperrors.ErrForbidden
		}
		if err != nil {
			return Scope{}, err
		}
		ids, err := s.GetConsultantIDs(ctx, callerID)
		if err != nil {
			return Scope{}, err
		}
		return Scope{UserIDs: ids, VendorCompany: v.CompanyName}, nil
	default:
		return Scope{UserIDs: []int{callerID}}, nil
	}
}

// Общие фильтры отчётов. Наполняется хендлером из query-параметров,
// даты уже провалидированы как YYYY-MM-DD.
type ReportFilter struct {
	ProjectID int
	UserID    int
	VendorID  int
	Status    string
	Priority  string
	Action    string
	StartDate string
	EndDate   string
}

// Отчёт по задачам

type TaskReportRow struct {
	TaskID       int        `db:"task_id" json:"taskId"`
	Title        string     `db:"title" json:"title"`
	Status       string     `db:"status" json:"status"`
	Priority     string     `db:"priority" json:"priority"`
	DueDate      *time.Time `db:"due_date" json:"dueDate,omitempty"`
	AssigneeID   int        `db:"assignee_id" json:"assigneeId"`
	AssigneeName string     `db:"assignee_name" json:"assigneeName"`
	ProjectID    int        `db:"project_id" json:"projectId"`
	ProjectTitle string     `db:"project_title" json:"projectTitle"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
}

func (s *Storage) TaskReport(ctx context.Context, callerID int, role string, f ReportFilter) ([]TaskReportRow, error) {
	scope, err := s.ResolveScope(ctx, callerID, role)
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return []TaskReportRow{}, nil
	}

	b := qb.NewBuilder()
	if f.ProjectID > 0 {
		b.Where("p.id = ?", f.ProjectID)
	}
	if f.UserID > 0 {
		b.Where("t.assignee_id = ?", f.UserID)
	}
	addListFilter(b, "t.status", f.Status)
	addListFilter(b, "t.priority", f.Priority)
	addDateBounds(b, "t.created_at", f)
	if !scope.Unrestricted {
		b.WhereIn("t.assignee_id", idsToAny(scope.UserIDs)...)
	}
	b.OrderBy("p.title", "ASC")
	b.OrderBy("t.due_date", "ASC")

	q, args := b.Build(`
        SELECT t.id AS task_id, t.title, t.status, t.priority, t.due_date,
               u.id AS assignee_id, u.name AS assignee_name,
               p.id AS project_id, p.title AS project_title, t.created_at
        FROM tasks t
        JOIN users u ON u.id = t.assignee_id
        JOIN projects p ON p.id = t.project_id`)

	rows := []TaskReportRow{}
	err = s.db.SelectContext(ctx, &rows, q, args...)
	return rows, err
}

// Отчёт по производительности пользователей

type DayHours struct {
	Day   string  `db:"day" json:"day"`
	Hours float64 `db:"hours" json:"hours"`
}

type UserPerformanceRow struct {
	UserID            int        `db:"user_id" json:"userId"`
	Name              string     `db:"name" json:"name"`
	Role              string     `db:"role" json:"role"`
	TotalTasks        int        `db:"total_tasks" json:"totalTasks"`
	CompletedTasks    int        `db:"completed_tasks" json:"completedTasks"`
	InProgressTasks   int        `db:"in_progress_tasks" json:"inProgressTasks"`
	OverdueTasks      int        `db:"overdue_tasks" json:"overdueTasks"`
	AvgCompletionDays *float64   `db:"avg_completion_days" json:"avgCompletionDays"`
	TotalHours        float64    `db:"-" json:"totalHours"`
	AvgDailyHours     float64    `db:"-" json:"avgDailyHours"`
	DailyHours        []DayHours `db:"-" json:"dailyHours"`
}

func (s *Storage) UserPerformanceReport(ctx context.Context, callerID int, role string, f ReportFilter) ([]UserPerformanceRow, error) {
	scope, err := s.ResolveScope(ctx, callerID, role)
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return []UserPerformanceRow{}, nil
	}

	// Фильтры по датам относятся к задачам, поэтому живут в условии
	// JOIN — иначе LEFT JOIN перестаёт отдавать пользователей без задач.
	join := ` LEFT JOIN tasks t ON t.assignee_id = u.id`
	joinArgs := []interface{}{}
	if f.StartDate != "" {
		join += ` AND t.created_at::date >= ?`
		joinArgs = append(joinArgs, f.StartDate)
	}
	if f.EndDate != "" {
		join += ` AND t.created_at::date <= ?`
		joinArgs = append(joinArgs, f.EndDate)
	}

	b := qb.NewBuilder()
	b.Where("u.status = ?", "active")
	if f.UserID > 0 {
		b.Where("u.id = ?", f.UserID)
	}
	if !scope.Unrestricted {
		b.WhereIn("u.id", idsToAny(scope.UserIDs)...)
	}
	where, whereArgs := b.WhereClause()

	q := qb.Number(`
        SELECT u.id AS user_id, u.name, u.role,
               COUNT(t.id)::int AS total_tasks,
               COUNT(CASE WHEN t.status = 'completed' THEN 1 END)::int AS completed_tasks,
               COUNT(CASE WHEN t.status = 'in_progress' THEN 1 END)::int AS in_progress_tasks,
               COUNT(CASE WHEN t.status NOT IN ('completed', 'cancelled')
                          AND t.due_date < CURRENT_DATE THEN 1 END)::int AS overdue_tasks,
               ROUND((AVG(CASE WHEN t.status = 'completed'
                          THEN EXTRACT(EPOCH FROM (t.updated_at - t.created_at)) / 3600.0 END) / 24.0)::numeric, 2)::float8
                   AS avg_completion_days
        FROM users u` + join + where + `
        GROUP BY u.id, u.name, u.role
        ORDER BY u.name ASC`)
	args := append(joinArgs, whereArgs...)

	rows := []UserPerformanceRow{}
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	for i := range rows {
		if err := s.attachDailyHours(ctx, &rows[i], f); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// attachDailyHours — fan-out запрос на строку отчёта: разбивка часов
// по дням плюс агрегаты
func (s *Storage) attachDailyHours(ctx context.Context, row *UserPerformanceRow, f ReportFilter) error {
	days, err := s.DailyHours(ctx, row.UserID, f.StartDate, f.EndDate)
	if err != nil {
		return err
	}
	row.DailyHours = days
	row.TotalHours, row.AvgDailyHours = summarizeDailyHours(days)
	return nil
}

// summarizeDailyHours считает сумму и среднее по дням. Деления на ноль
// нет: при нуле дней знаменатель 1.
func summarizeDailyHours(days []DayHours) (total, avgDaily float64) {
	for _, d := range days {
		total += d.Hours
	}
	denom := len(days)
	if denom == 0 {
		denom = 1
	}
	return round2(total), round2(total / float64(denom))
}

// DailyHours возвращает часы по дням для пользователя. Используется и
// отчётом производительности, и эндпоинтом /api/time/summary.
func (s *Storage) DailyHours(ctx context.Context, userID int, startDate, endDate string) ([]DayHours, error) {
	b := qb.NewBuilder()
	b.Where("du.user_id = ?", userID)
	if startDate != "" {
		b.Where("du.update_date >= ?::date", startDate)
	}
	if endDate != "" {
		b.Where("du.update_date <= ?::date", endDate)
	}
	where, args := b.WhereClause()

	q := qb.Number(`
        SELECT to_char(du.update_date, 'YYYY-MM-DD') AS day,
               COALESCE(SUM(du.hours_spent), 0)::float8 AS hours
        FROM daily_updates du` + where + `
        GROUP BY du.update_date
        ORDER BY du.update_date ASC`)

	days := []DayHours{}
	err := s.db.SelectContext(ctx, &days, q, args...)
	return days, err
}

// Отчёт по статусам проектов

type TeamMember struct {
	UserID    int    `db:"user_id" json:"userId"`
	Name      string `db:"name" json:"name"`
	TaskCount int    `db:"task_count" json:"taskCount"`
}

type ProjectStatusRow struct {
	ProjectID            int          `db:"project_id" json:"projectId"`
	Title                string       `db:"title" json:"title"`
	Status               string       `db:"status" json:"status"`
	StartDate            *time.Time   `db:"start_date" json:"startDate,omitempty"`
	EndDate              *time.Time   `db:"end_date" json:"endDate,omitempty"`
	TotalTasks           int          `db:"total_tasks" json:"totalTasks"`
	CompletedTasks       int          `db:"completed_tasks" json:"completedTasks"`
	InProgressTasks      int          `db:"in_progress_tasks" json:"inProgressTasks"`
	OverdueTasks         int          `db:"overdue_tasks" json:"overdueTasks"`
	CompletionPercentage float64      `db:"-" json:"completionPercentage"`
	Team                 []TeamMember `db:"-" json:"team"`
}

func (s *Storage) ProjectStatusReport(ctx context.Context, callerID int, role string, f ReportFilter) ([]ProjectStatusRow, error) {
	scope, err := s.ResolveScope(ctx, callerID, role)
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return []ProjectStatusRow{}, nil
	}

	b := qb.NewBuilder()
	if f.ProjectID > 0 {
		b.Where("p.id = ?", f.ProjectID)
	}
	if f.Status != "" {
		b.Where("p.status = ?", f.Status)
	}
	addDateBounds(b, "p.created_at", f)
	if !scope.Unrestricted {
		if scope.VendorCompany != "" {
			// Вендорские проекты опознаются по текстовой конвенции project_type
			b.Where("p.project_type LIKE ?", vendorProjectPattern(scope.VendorCompany))
		} else {
			// Сотрудник видит проекты, которыми управляет или где у него задачи
			id := scope.UserIDs[0]
			b.Where(`(p.manager_id = ? OR EXISTS (
                SELECT 1 FROM tasks ts WHERE ts.project_id = p.id AND ts.assignee_id = ?))`, id, id)
		}
	}
	where, args := b.WhereClause()

	q := qb.Number(`
        SELECT p.id AS project_id, p.title, p.status, p.start_date, p.end_date,
               COUNT(t.id)::int AS total_tasks,
               COUNT(CASE WHEN t.status = 'completed' THEN 1 END)::int AS completed_tasks,
               COUNT(CASE WHEN t.status = 'in_progress' THEN 1 END)::int AS in_progress_tasks,
               COUNT(CASE WHEN t.status NOT IN ('completed', 'cancelled')
                          AND t.due_date < CURRENT_DATE THEN 1 END)::int AS overdue_tasks
        FROM projects p
        LEFT JOIN tasks t ON t.project_id = p.id` + where + `
        GROUP BY p.id, p.title, p.status, p.start_date, p.end_date
        ORDER BY p.title ASC`)

	rows := []ProjectStatusRow{}
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	for i := range rows {
		// Ровно 0 (не null и не NaN) для проекта без задач
		rows[i].CompletionPercentage = completionPercent(rows[i].CompletedTasks, rows[i].TotalTasks)
		if err := s.attachTeamMembers(ctx, &rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// attachTeamMembers — fan-out: участники проекта, выведенные из задач
func (s *Storage) attachTeamMembers(ctx context.Context, row *ProjectStatusRow) error {
	team := []TeamMember{}
	query := `
        SELECT u.id AS user_id, u.name, COUNT(t.id)::int AS task_count
        FROM tasks t
        JOIN users u ON u.id = t.assignee_id
        WHERE t.project_id = $1
        GROUP BY u.id, u.name
        ORDER BY u.name ASC`
	if err := s.db.SelectContext(ctx, &team, query, row.ProjectID); err != nil {
		return err
	}
	row.Team = team
	return nil
}

// Отчёт по производительности вендоров

type ConsultantRollup struct {
	UserID            int      `db:"user_id" json:"userId"`
	Name              string   `db:"name" json:"name"`
	TotalTasks        int      `db:"total_tasks" json:"totalTasks"`
	CompletedTasks    int      `db:"completed_tasks" json:"completedTasks"`
	InProgressTasks   int      `db:"in_progress_tasks" json:"inProgressTasks"`
	OverdueTasks      int      `db:"overdue_tasks" json:"overdueTasks"`
	CompletionHours   *float64 `db:"completion_hours" json:"-"`
	AvgCompletionDays *float64 `db:"-" json:"avgCompletionDays"`
}

type VendorProjectRollup struct {
	ProjectID      int    `db:"project_id" json:"projectId"`
	Title          string `db:"title" json:"title"`
	Status         string `db:"status" json:"status"`
	TotalTasks     int    `db:"total_tasks" json:"totalTasks"`
	CompletedTasks int    `db:"completed_tasks" json:"completedTasks"`
}

type VendorPerformanceRow struct {
	VendorID          int                   `db:"vendor_id" json:"vendorId"`
	CompanyName       string                `db:"company_name" json:"companyName"`
	VendorUserID      int                   `db:"user_id" json:"vendorUserId"`
	VendorName        string                `db:"vendor_name" json:"vendorName"`
	TotalConsultants  int                   `db:"-" json:"totalConsultants"`
	TotalProjects     int                   `db:"-" json:"totalProjects"`
	TotalTasks        int                   `db:"-" json:"totalTasks"`
	CompletedTasks    int                   `db:"-" json:"completedTasks"`
	CompletionRate    float64               `db:"-" json:"completionRate"`
	AvgCompletionDays *float64              `db:"-" json:"avgCompletionDays"`
	Consultants       []ConsultantRollup    `db:"-" json:"consultants"`
	Projects          []VendorProjectRollup `db:"-" json:"projects"`
}

func (s *Storage) VendorPerformanceReport(ctx context.Context, callerID int, role string, f ReportFilter) ([]VendorPerformanceRow, error) {
	b := qb.NewBuilder()
	switch role {
	case models.RoleAdmin:
		if f.VendorID > 0 {
			b.Where("v.id = ?", f.VendorID)
		}
	case models.RoleVendor:
		scope, err := s.ResolveScope(ctx, callerID, role)
		if err != nil {
			return nil, err
		}
		if scope.Empty() {
			return []VendorPerformanceRow{}, nil
		}
		// Вендор видит только собственную строку
		own, err := s.GetVendorByUserID(ctx, callerID)
		if err != nil {
			return nil, err
		}
		if f.VendorID > 0 && f.VendorID != own.ID {
			return nil, apperrors.ErrForbidden
		}
		b.Where("v.id = ?", own.ID)
	default:
		return nil, apperrors.ErrForbidden
	}
	b.OrderBy("v.company_name", "ASC")

	q, args := b.Build(`
        SELECT v.id AS vendor_id, v.company_name, v.user_id, u.name AS vendor_name
        FROM vendors v
        JOIN users u ON u.id = v.user_id`)

	rows := []VendorPerformanceRow{}
	if err := s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	// Ограниченный fan-out: по два дополнительных запроса на вендора
	for i := range rows {
		if err := s.attachConsultantRollup(ctx, &rows[i]); err != nil {
			return nil, err
		}
		if err := s.attachProjectRollup(ctx, &rows[i]); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// attachConsultantRollup — fan-out: разбивка по консультантам вендора
func (s *Storage) attachConsultantRollup(ctx context.Context, row *VendorPerformanceRow) error {
	consultants := []ConsultantRollup{}
	query := `
        SELECT u.id AS user_id, u.name,
               COUNT(t.id)::int AS total_tasks,
               COUNT(CASE WHEN t.status = 'completed' THEN 1 END)::int AS completed_tasks,
               COUNT(CASE WHEN t.status = 'in_progress' THEN 1 END)::int AS in_progress_tasks,
               COUNT(CASE WHEN t.status NOT IN ('completed', 'cancelled')
                          AND t.due_date < CURRENT_DATE THEN 1 END)::int AS overdue_tasks,
               SUM(CASE WHEN t.status = 'completed'
                        THEN EXTRACT(EPOCH FROM (t.updated_at - t.created_at)) / 3600.0 END)::float8
                   AS completion_hours
        FROM users u
        LEFT JOIN tasks t ON t.assignee_id = u.id
        WHERE u.role = 'consultant' AND u.working_for = $1
        GROUP BY u.id, u.name
        ORDER BY u.name ASC`
	if err := s.db.SelectContext(ctx, &consultants, query, row.VendorUserID); err != nil {
		return err
	}
	applyConsultantRollup(row, consultants)
	return nil
}

// applyConsultantRollup выводит общие показатели вендора из разбивки по
// консультантам. Консультанты без задач остаются в списке с нулями.
func applyConsultantRollup(row *VendorPerformanceRow, consultants []ConsultantRollup) {
	totalHours := 0.0
	for i := range consultants {
		c := &consultants[i]
		row.TotalTasks += c.TotalTasks
		row.CompletedTasks += c.CompletedTasks
		if c.CompletionHours != nil && c.CompletedTasks > 0 {
			totalHours += *c.CompletionHours
			avg := round2(*c.CompletionHours / float64(c.CompletedTasks) / 24.0)
			c.AvgCompletionDays = &avg
		}
	}
	row.Consultants = consultants
	row.TotalConsultants = len(consultants)
	row.CompletionRate = completionPercent(row.CompletedTasks, row.TotalTasks)
	if row.CompletedTasks > 0 {
		avg := round2(totalHours / float64(row.CompletedTasks) / 24.0)
		row.AvgCompletionDays = &avg
	}
}

// attachProjectRollup — проекты вендора по конвенции project_type
func (s *Storage) attachProjectRollup(ctx context.Context, row *VendorPerformanceRow) error {
	projects := []VendorProjectRollup{}
	query := `
        SELECT p.id AS project_id, p.title, p.status,
               COUNT(t.id)::int AS total_tasks,
               COUNT(CASE WHEN t.status = 'completed' THEN 1 END)::int AS completed_tasks
        FROM projects p
        LEFT JOIN tasks t ON t.project_id = p.id
        WHERE p.project_type LIKE $1
        GROUP BY p.id, p.title, p.status
        ORDER BY p.title ASC`
	if err := s.db.SelectContext(ctx, &projects, query, vendorProjectPattern(row.CompanyName)); err != nil {
		return err
	}
	row.Projects = projects
	row.TotalProjects = len(projects)
	return nil
}

// Отчёт по журналу действий

type UserLogRow struct {
	ID          int       `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"userId"`
	UserName    string    `db:"user_name" json:"userName"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description"`
	IPAddress   *string   `db:"ip_address" json:"ipAddress,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

func (s *Storage) UserLogsReport(ctx context.Context, callerID int, role string, f ReportFilter) ([]UserLogRow, error) {
	scope, err := s.ResolveScope(ctx, callerID, role)
	if err != nil {
		return nil, err
	}
	if scope.Empty() {
		return []UserLogRow{}, nil
	}

	b := qb.NewBuilder()
	if f.UserID > 0 {
		b.Where("l.user_id = ?", f.UserID)
	}
	if f.Action != "" {
		b.Where("l.action ILIKE ?", "%"+f.Action+"%")
	}
	addTimestampBounds(b, "l.created_at", f)
	if !scope.Unrestricted {
		b.WhereIn("l.user_id", idsToAny(scope.UserIDs)...)
	}
	b.OrderBy("l.created_at", "DESC")

	q, args := b.Build(`
        SELECT l.id, l.user_id, u.name AS user_name, l.action, l.description,
               l.ip_address, l.created_at
        FROM user_logs l
        JOIN users u ON u.id = l.user_id`)

	rows := []UserLogRow{}
	err = s.db.SelectContext(ctx, &rows, q, args...)
	return rows, err
}

// Вспомогательное

func vendorProjectPattern(company string) string {
	return "%Vendor - " + company + "%"
}

func completionPercent(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(completed) / float64(total) * 100)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// addDateBounds — включительные границы сравнением по date-касту,
// используется отчётами по задачам и проектам.
func addDateBounds(b *qb.Builder, col string, f ReportFilter) {
	if f.StartDate != "" {
		b.Where(col+"::date >= ?", f.StartDate)
	}
	if f.EndDate != "" {
		b.Where(col+"::date <= ?", f.EndDate)
	}
}

// addTimestampBounds — для журнала действий: end_date включителен до
// конца дня, в отличие от date-каста выше.
func addTimestampBounds(b *qb.Builder, col string, f ReportFilter) {
	if f.StartDate != "" {
		b.Where(col+" >= ?::date", f.StartDate)
	}
	if f.EndDate != "" {
		b.Where(col+" < ?::date + INTERVAL '1 day'", f.EndDate)
	}
}

func addListFilter(b *qb.Builder, col, raw string) {
	if raw == "" {
		return
	}
	vals := qb.ParseList(raw)
	switch len(vals) {
	case 0:
	case 1:
		b.Where(col+" = ?", vals[0])
	default:
		b.WhereIn(col, toAny(vals)...)
	}
}

func idsToAny(ids []int) []interface{} {
	out := make([]interface{}, len(ids))
	for i, v := range ids {
		out[i] = v
	}
	return out
}

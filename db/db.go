package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"taskhub/internal/apperrors"
	qb "taskhub/internal/query"
	"taskhub/models"

	"github.com/jmoiron/sqlx"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{db: db}
}

// Пользователи

func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	query := `
        INSERT INTO users (name, email, password_hash, role, status, working_for)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`
	return s.db.QueryRowContext(ctx, query,
		u.Name, u.Email, u.PasswordHash, u.Role, u.Status, u.WorkingFor).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (s *Storage) GetUser(ctx context.Context, id int) (*models.User, error) {
	u := &models.User{}
	err := s.db.GetContext(ctx, u, `SELECT * FROM users WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return u, err
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u := &models.User{}
	err := s.db.GetContext(ctx, u, `SELECT * FROM users WHERE email=$1`, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return u, err
}

func (s *Storage) GetUsers(ctx context.Context, role, status string, limit, offset int) ([]models.User, error) {
	b := qb.NewBuilder()
	if role != "" {
		b.Where("role = ?", role)
	}
	if status != "" {
		b.Where("status = ?", status)
	}
	b.OrderBy("name", "ASC")
	q, args := b.Build(`SELECT * FROM users`)
	q += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	users := []models.User{}
	err := s.db.SelectContext(ctx, &users, q, args...)
	return users, err
}

func (s *Storage) UpdateUser(ctx context.Context, u *models.User) error {
	query := `
        UPDATE users
        SET name=$1, email=$2, role=$3, status=$4, working_for=$5, updated_at=NOW()
        WHERE id=$6`
	res, err := s.db.ExecContext(ctx, query,
		u.Name, u.Email, u.Role, u.Status, u.WorkingFor, u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Вендоры

func (s *Storage) CreateVendor(ctx context.Context, v *models.Vendor) error {
	query := `
        INSERT INTO vendors (user_id, company_name, contact_email)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query, v.UserID, v.CompanyName, v.ContactEmail).
		Scan(&v.ID, &v.CreatedAt)
}

func (s *Storage) GetVendor(ctx context.Context, id int) (*models.Vendor, error) {
	v := &models.Vendor{}
	err := s.db.GetContext(ctx, v, `SELECT * FROM vendors WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return v, err
}

func (s *Storage) GetVendorByUserID(ctx context.Context, userID int) (*models.Vendor, error) {
	v := &models.Vendor{}
	err := s.db.GetContext(ctx, v, `SELECT * FROM vendors WHERE user_id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return v, err
}

func (s *Storage) GetVendors(ctx context.Context, limit, offset int) ([]models.Vendor, error) {
	vendors := []models.Vendor{}
	query := `SELECT * FROM vendors ORDER BY company_name ASC LIMIT $1 OFFSET $2`
	err := s.db.SelectContext(ctx, &vendors, query, limit, offset)
	return vendors, err
}

func (s *Storage) UpdateVendor(ctx context.Context, v *models.Vendor) error {
	query := `UPDATE vendors SET company_name=$1, contact_email=$2 WHERE id=$3`
	res, err := s.db.ExecContext(ctx, query, v.CompanyName, v.ContactEmail, v.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteVendor(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vendors WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Консультанты вендора всегда вычисляются через working_for, без кеша
func (s *Storage) GetVendorConsultants(ctx context.Context, vendorUserID int) ([]models.User, error) {
	users := []models.User{}
	query := `
        SELECT * FROM users
        WHERE role = 'consultant' AND working_for = $1
        ORDER BY name ASC`
	err := s.db.SelectContext(ctx, &users, query, vendorUserID)
	return users, err
}

func (s *Storage) GetConsultantIDs(ctx context.Context, vendorUserID int) ([]int, error) {
	ids := []int{}
	query := `SELECT id FROM users WHERE role = 'consultant' AND working_for = $1 ORDER BY id`
	err := s.db.SelectContext(ctx, &ids, query, vendorUserID)
	return ids, err
}

// Проекты. Создание и изменение пишут строку аудита в той же транзакции.

func (s *Storage) CreateProject(ctx context.Context, p *models.Project, actorID int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO projects
            (title, description, status, start_date, end_date, manager_id, client_id, project_type)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, query,
		p.Title, p.Description, p.Status, p.StartDate, p.EndDate,
		p.ManagerID, p.ClientID, p.ProjectType).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO project_logs (project_id, user_id, action, description) VALUES ($1, $2, $3, $4)`,
		p.ID, actorID, "create", fmt.Sprintf("project %q created", p.Title))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Storage) GetProject(ctx context.Context, id int) (*models.Project, error) {
	p := &models.Project{}
	err := s.db.GetContext(ctx, p, `SELECT * FROM projects WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return p, err
}

func (s *Storage) GetProjects(ctx context.Context, status string, managerID, limit, offset int) ([]models.Project, error) {
	b := qb.NewBuilder()
	if status != "" {
		b.Where("status = ?", status)
	}
	if managerID > 0 {
		b.Where("manager_id = ?", managerID)
	}
	b.OrderBy("title", "ASC")
	q, args := b.Build(`SELECT * FROM projects`)
	q += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	projects := []models.Project{}
	err := s.db.SelectContext(ctx, &projects, q, args...)
	return projects, err
}

func (s *Storage) UpdateProject(ctx context.Context, p *models.Project, actorID int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        UPDATE projects
        SET title=$1, description=$2, status=$3, start_date=$4, end_date=$5,
            manager_id=$6, client_id=$7, project_type=$8, updated_at=NOW()
        WHERE id=$9`
	res, err := tx.ExecContext(ctx, query,
		p.Title, p.Description, p.Status, p.StartDate, p.EndDate,
		p.ManagerID, p.ClientID, p.ProjectType, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO project_logs (project_id, user_id, action, description) VALUES ($1, $2, $3, $4)`,
		p.ID, actorID, "update", fmt.Sprintf("project %q updated", p.Title))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Storage) DeleteProject(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Задачи

type TaskFilter struct {
	ProjectID  int
	AssigneeID int
	Statuses   []string
	Priorities []string
	Limit      int
	Offset     int
}

func (s *Storage) CreateTask(ctx context.Context, t *models.Task) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO tasks
            (title, description, status, priority, due_date, project_id, assignee_id, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`
	err = tx.QueryRowContext(ctx, query,
		t.Title, t.Description, t.Status, t.Priority, t.DueDate,
		t.ProjectID, t.AssigneeID, t.CreatedBy).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO task_logs (task_id, user_id, action, description) VALUES ($1, $2, $3, $4)`,
		t.ID, t.CreatedBy, "create", fmt.Sprintf("task %q created", t.Title))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Storage) GetTask(ctx context.Context, id int) (*models.Task, error) {
	t := &models.Task{}
	err := s.db.GetContext(ctx, t, `SELECT * FROM tasks WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	return t, err
}

func (s *Storage) GetTasks(ctx context.Context, f TaskFilter) ([]models.Task, error) {
	b := qb.NewBuilder()
	if f.ProjectID > 0 {
		b.Where("project_id = ?", f.ProjectID)
	}
	if f.AssigneeID > 0 {
		b.Where("assignee_id = ?", f.AssigneeID)
	}
	if len(f.Statuses) > 0 {
		b.WhereIn("status", toAny(f.Statuses)...)
	}
	if len(f.Priorities) > 0 {
		b.WhereIn("priority", toAny(f.Priorities)...)
	}
	b.OrderBy("due_date", "ASC")
	q, args := b.Build(`SELECT * FROM tasks`)
	q += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)

	tasks := []models.Task{}
	err := s.db.SelectContext(ctx, &tasks, q, args...)
	return tasks, err
}

func (s *Storage) UpdateTask(ctx context.Context, t *models.Task, actorID int) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        UPDATE tasks
        SET title=$1, description=$2, status=$3, priority=$4, due_date=$5,
            project_id=$6, assignee_id=$7, updated_at=NOW()
        WHERE id=$8`
	res, err := tx.ExecContext(ctx, query,
		t.Title, t.Description, t.Status, t.Priority, t.DueDate,
		t.ProjectID, t.AssigneeID, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO task_logs (task_id, user_id, action, description) VALUES ($1, $2, $3, $4)`,
		t.ID, actorID, "update", fmt.Sprintf("task %q updated, status %s", t.Title, t.Status))
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Storage) DeleteTask(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Ежедневные апдейты

func (s *Storage) CreateDailyUpdate(ctx context.Context, u *models.DailyUpdate) error {
	query := `
        INSERT INTO daily_updates (task_id, user_id, content, update_date, status, hours_spent)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at`
	return s.db.QueryRowContext(ctx, query,
		u.TaskID, u.UserID, u.Content, u.UpdateDate, u.Status, u.HoursSpent).
		Scan(&u.ID, &u.CreatedAt)
}

func (s *Storage) GetTaskUpdates(ctx context.Context, taskID int) ([]models.DailyUpdate, error) {
	updates := []models.DailyUpdate{}
	query := `SELECT * FROM daily_updates WHERE task_id=$1 ORDER BY update_date DESC, id DESC`
	err := s.db.SelectContext(ctx, &updates, query, taskID)
	return updates, err
}

// Фидбек по задаче

func (s *Storage) CreateFeedback(ctx context.Context, f *models.TaskFeedback) error {
	query := `
        INSERT INTO task_feedback (task_id, author_id, content, reply_status)
        VALUES ($1, $2, $3, 'pending')
        RETURNING id, reply_status, created_at`
	return s.db.QueryRowContext(ctx, query, f.TaskID, f.AuthorID, f.Content).
		Scan(&f.ID, &f.ReplyStatus, &f.CreatedAt)
}

func (s *Storage) GetTaskFeedback(ctx context.Context, taskID int) ([]models.TaskFeedback, error) {
	feedback := []models.TaskFeedback{}
	query := `SELECT * FROM task_feedback WHERE task_id=$1 ORDER BY created_at DESC`
	err := s.db.SelectContext(ctx, &feedback, query, taskID)
	return feedback, err
}

// ReplyFeedback переводит pending -> replied одним UPDATE, повторный
// ответ невозможен независимо от порядка конкурирующих запросов.
func (s *Storage) ReplyFeedback(ctx context.Context, id int, reply string) error {
	query := `
        UPDATE task_feedback
        SET reply=$1, reply_status='replied', replied_at=NOW()
        WHERE id=$2 AND reply_status='pending'`
	res, err := s.db.ExecContext(ctx, query, reply, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM task_feedback WHERE id=$1)`, id); err != nil {
		return err
	}
	if !exists {
		return apperrors.ErrNotFound
	}
	return apperrors.ErrAlreadyReplied
}

// Аудит. Пишется на каждую мутацию и на каждый отчёт.

func (s *Storage) CreateUserLog(ctx context.Context, userID int, action, description, ip string) error {
	query := `INSERT INTO user_logs (user_id, action, description, ip_address) VALUES ($1, $2, $3, $4)`
	_, err := s.db.ExecContext(ctx, query, userID, action, description, nullIfEmpty(ip))
	return err
}

// nullIfEmpty: пустая строка пишется в nullable-колонку как NULL
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func toAny(vals []string) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

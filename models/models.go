package models

import "time"

// Роли пользователей
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleEmployee   = "employee"
	RoleConsultant = "consultant"
	RoleVendor     = "vendor"
)

// Статусы задач
const (
	TaskNew        = "new"
	TaskToDo       = "to_do"
	TaskInProgress = "in_progress"
	TaskReview     = "review"
	TaskOnHold     = "on_hold"
	TaskCompleted  = "completed"
	TaskCancelled  = "cancelled"
)

// Сущность Пользователя
type User struct {
	ID           int       `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	Status       string    `db:"status" json:"status"`
	WorkingFor   *int      `db:"working_for" json:"workingFor,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"-"`
}

// Сущность Вендора. Консультанты вендора не хранятся явной связью:
// это пользователи с role=consultant и working_for = vendors.user_id.
type Vendor struct {
	ID           int       `db:"id" json:"id"`
	UserID       int       `db:"user_id" json:"userId"`
	CompanyName  string    `db:"company_name" json:"companyName"`
	ContactEmail string    `db:"contact_email" json:"contactEmail"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Сущность Проекта. Принадлежность вендору кодируется текстом в
// project_type по шаблону "Vendor - <company_name>".
type Project struct {
	ID          int        `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Status      string     `db:"status" json:"status"`
	StartDate   *time.Time `db:"start_date" json:"startDate,omitempty"`
	EndDate     *time.Time `db:"end_date" json:"endDate,omitempty"`
	ManagerID   int        `db:"manager_id" json:"managerId"`
	ClientID    *int       `db:"client_id" json:"clientId,omitempty"`
	ProjectType string     `db:"project_type" json:"projectType"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"-"`
}

// Сущность Задачи
type Task struct {
	ID          int        `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	Status      string     `db:"status" json:"status"`
	Priority    string     `db:"priority" json:"priority"`
	DueDate     *time.Time `db:"due_date" json:"dueDate,omitempty"`
	ProjectID   int        `db:"project_id" json:"projectId"`
	AssigneeID  int        `db:"assignee_id" json:"assigneeId"`
	CreatedBy   int        `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// Ежедневный апдейт по задаче, с учётом потраченных часов
type DailyUpdate struct {
	ID         int       `db:"id" json:"id"`
	TaskID     int       `db:"task_id" json:"taskId"`
	UserID     int       `db:"user_id" json:"userId"`
	Content    string    `db:"content" json:"content"`
	UpdateDate time.Time `db:"update_date" json:"updateDate"`
	Status     string    `db:"status" json:"status"`
	HoursSpent float64   `db:"hours_spent" json:"hoursSpent"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Фидбек по задаче с одним ответом (pending -> replied)
type TaskFeedback struct {
	ID          int        `db:"id" json:"id"`
	TaskID      int        `db:"task_id" json:"taskId"`
	AuthorID    int        `db:"author_id" json:"authorId"`
	Content     string     `db:"content" json:"content"`
	Reply       *string    `db:"reply" json:"reply,omitempty"`
	ReplyStatus string     `db:"reply_status" json:"replyStatus"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	RepliedAt   *time.Time `db:"replied_at" json:"repliedAt,omitempty"`
}

package handlers

import (
	"context"

	"taskhub/db"
	"taskhub/models"
)

type StorageInterface interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id int) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsers(ctx context.Context, role, status string, limit, offset int) ([]models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id int) error

	CreateVendor(ctx context.Context, v *models.Vendor) error
	GetVendor(ctx context.Context, id int) (*models.Vendor, error)
	GetVendorByUserID(ctx context.Context, userID int) (*models.Vendor, error)
	GetVendors(ctx context.Context, limit, offset int) ([]models.Vendor, error)
	UpdateVendor(ctx context.Context, v *models.Vendor) error
	DeleteVendor(ctx context.Context, id int) error
	GetVendorConsultants(ctx context.Context, vendorUserID int) ([]models.User, error)

	CreateProject(ctx context.Context, p *models.Project, actorID int) error
	GetProject(ctx context.Context, id int) (*models.Project, error)
	GetProjects(ctx context.Context, status string, managerID, limit, offset int) ([]models.Project, error)
	UpdateProject(ctx context.Context, p *models.Project, actorID int) error
	DeleteProject(ctx context.Context, id int) error

	CreateTask(ctx context.Context, t *models.Task) error
	GetTask(ctx context.Context, id int) (*models.Task, error)
	GetTasks(ctx context.Context, f db.TaskFilter) ([]models.Task, error)
	UpdateTask(ctx context.Context, t *models.Task, actorID int) error
	DeleteTask(ctx context.Context, id int) error

	CreateDailyUpdate(ctx context.Context, u *models.DailyUpdate) error
	GetTaskUpdates(ctx context.Context, taskID int) ([]models.DailyUpdate, error)
	DailyHours(ctx context.Context, userID int, startDate, endDate string) ([]db.DayHours, error)

	CreateFeedback(ctx context.Context, f *models.TaskFeedback) error
	GetTaskFeedback(ctx context.Context, taskID int) ([]models.TaskFeedback, error)
	ReplyFeedback(ctx context.Context, id int, reply string) error

	CreateUserLog(ctx context.Context, userID int, action, description, ip string) error

	TaskReport(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.TaskReportRow, error)
	UserPerformanceReport(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.UserPerformanceRow, error)
	ProjectStatusReport(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.ProjectStatusRow, error)
	VendorPerformanceReport(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.VendorPerformanceRow, error)
	UserLogsReport(ctx context.Context, callerID int, role string, f db.ReportFilter) ([]db.UserLogRow, error)
}

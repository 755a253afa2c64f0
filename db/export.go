package db

import "taskhub/internal/export"

// Преобразование строк отчётов в записи экспорта. Порядок ключей
// фиксирован и совпадает с заголовками CSV/XLSX; вложенные разбивки
// в плоский файл не выгружаются.

func TaskReportRecords(rows []TaskReportRow) []export.Record {
	keys := []string{"task_id", "title", "status", "priority", "due_date",
		"assignee_id", "assignee_name", "project_id", "project_title", "created_at"}
	out := make([]export.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, export.Record{Keys: keys, Values: []interface{}{
			r.TaskID, r.Title, r.Status, r.Priority, r.DueDate,
			r.AssigneeID, r.AssigneeName, r.ProjectID, r.ProjectTitle, r.CreatedAt,
		}})
	}
	return out
}

func UserPerformanceRecords(rows []UserPerformanceRow) []export.Record {
	keys := []string{"user_id", "name", "role", "total_tasks", "completed_tasks",
		"in_progress_tasks", "overdue_tasks", "avg_completion_days",
		"total_hours", "avg_daily_hours"}
	out := make([]export.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, export.Record{Keys: keys, Values: []interface{}{
			r.UserID, r.Name, r.Role, r.TotalTasks, r.CompletedTasks,
			r.InProgressTasks, r.OverdueTasks, r.AvgCompletionDays,
			r.TotalHours, r.AvgDailyHours,
		}})
	}
	return out
}

func ProjectStatusRecords(rows []ProjectStatusRow) []export.Record {
	keys := []string{"project_id", "title", "status", "start_date", "end_date",
		"total_tasks", "completed_tasks", "in_progress_tasks", "overdue_tasks",
		"completion_percentage"}
	out := make([]export.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, export.Record{Keys: keys, Values: []interface{}{
			r.ProjectID, r.Title, r.Status, r.StartDate, r.EndDate,
			r.TotalTasks, r.CompletedTasks, r.InProgressTasks, r.OverdueTasks,
			r.CompletionPercentage,
		}})
	}
	return out
}

func VendorPerformanceRecords(rows []VendorPerformanceRow) []export.Record {
	keys := []string{"vendor_id", "company_name", "vendor_name", "total_consultants",
		"total_projects", "total_tasks", "completed_tasks", "completion_rate",
		"avg_completion_days"}
	out := make([]export.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, export.Record{Keys: keys, Values: []interface{}{
			r.VendorID, r.CompanyName, r.VendorName, r.TotalConsultants,
			r.TotalProjects, r.TotalTasks, r.CompletedTasks, r.CompletionRate,
			r.AvgCompletionDays,
		}})
	}
	return out
}

func UserLogRecords(rows []UserLogRow) []export.Record {
	keys := []string{"id", "user_id", "user_name", "action", "description",
		"ip_address", "created_at"}
	out := make([]export.Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, export.Record{Keys: keys, Values: []interface{}{
			r.ID, r.UserID, r.UserName, r.Action, r.Description,
			r.IPAddress, r.CreatedAt,
		}})
	}
	return out
}

package main

import (
	"log"
	"net/http"

	"taskhub/db"
	"taskhub/db/migrations"
	"taskhub/internal/config"
	"taskhub/internal/handlers"
	"taskhub/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var logger *zap.Logger
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		logger.Fatal("cannot connect to DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := migrations.Run(dbConn, cfg.MigrationsDir); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	store := db.NewStorage(dbConn)
	h := handlers.NewHandler(store, logger, cfg.JWTSecret, cfg.ExportDir)

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		r.Post("/auth/register", h.RegisterHandler)
		r.Post("/auth/login", h.LoginHandler)

		// всё остальное под JWT
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWTSecret))

			// пользователи
			r.Get("/users", h.GetUsersHandler)
			r.Post("/users", h.CreateUserHandler)
			r.Get("/users/{userId}", h.GetUserHandler)
			r.Patch("/users/{userId}", h.UpdateUserHandler)
			r.Delete("/users/{userId}", h.DeleteUserHandler)

			// проекты
			r.Post("/projects", h.CreateProjectHandler)
			r.Get("/projects", h.GetProjectsHandler)
			r.Get("/projects/{projectId}", h.GetProjectHandler)
			r.Patch("/projects/{projectId}", h.UpdateProjectHandler)
			r.Delete("/projects/{projectId}", h.DeleteProjectHandler)

			// задачи
			r.Post("/tasks", h.CreateTaskHandler)
			r.Get("/tasks", h.GetTasksHandler)
			r.Get("/tasks/{taskId}", h.GetTaskHandler)
			r.Patch("/tasks/{taskId}", h.EditTaskHandler)
			r.Put("/tasks/{taskId}/status", h.ChangeTaskStatusHandler)
			r.Delete("/tasks/{taskId}", h.DeleteTaskHandler)

			// ежедневные апдейты и учёт времени
			r.Post("/tasks/{taskId}/updates", h.CreateDailyUpdateHandler)
			r.Get("/tasks/{taskId}/updates", h.GetTaskUpdatesHandler)
			r.Get("/time/summary", h.TimeSummaryHandler)

			// фидбек
			r.Post("/tasks/{taskId}/feedback", h.CreateFeedbackHandler)
			r.Get("/tasks/{taskId}/feedback", h.GetTaskFeedbackHandler)
			r.Put("/feedback/{feedbackId}/reply", h.ReplyFeedbackHandler)

			// вендоры
			r.Post("/vendors", h.CreateVendorHandler)
			r.Get("/vendors", h.GetVendorsHandler)
			r.Get("/vendors/{vendorId}", h.GetVendorHandler)
			r.Patch("/vendors/{vendorId}", h.EditVendorHandler)
			r.Delete("/vendors/{vendorId}", h.DeleteVendorHandler)
			r.Get("/vendors/{vendorId}/consultants", h.GetVendorConsultantsHandler)

			// отчёты
			r.Get("/reports/tasks", h.TaskReportHandler)
			r.Get("/reports/user-performance", h.UserPerformanceReportHandler)
			r.Get("/reports/project-status", h.ProjectStatusReportHandler)
			r.Get("/reports/vendor-performance", h.VendorPerformanceReportHandler)
			r.Get("/reports/user-logs", h.UserLogsReportHandler)
			r.Post("/reports/export", h.ExportReportHandler)
		})
	})

	logger.Info("starting server", zap.String("addr", cfg.ServerAddress))
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

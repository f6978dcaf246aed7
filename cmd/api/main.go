package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"taskManager/internal/config"
	"taskManager/internal/handlers"
	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/repository/inter"
	"taskManager/internal/repository/task/inmemory"
	"taskManager/internal/repository/task/postgres"
	"taskManager/internal/service"
	"taskManager/internal/worker"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	logger.Init(cfg.Logging.Development)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store inter.Store

	switch cfg.Repository.Type {
	case "postgres":
		logger.Info("Применение миграций", zap.String("repository", "postgres"))
		if err := postgres.Migrate(cfg.Database.URL); err != nil {
			logger.Error("Не удалось применить миграции", err)
			os.Exit(1)
		}

		pgStore, err := postgres.New(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("Не удалось подключиться к базе", err)
			os.Exit(1)
		}
		defer pgStore.Close()
		store = pgStore
	default:
		logger.Info("Используется inmemory хранилище")
		store = inmemory.New()
	}

	notifier := service.NewNotifier(store)
	taskService := service.NewTaskService(store, notifier)
	insightsService := service.NewInsightsService(store)

	taskHandler := handlers.NewTaskHandler(&taskService)
	commentHandler := handlers.NewCommentHandler(&taskService)
	notificationHandler := handlers.NewNotificationHandler(notifier)
	insightsHandler := handlers.NewInsightsHandler(&insightsService)

	dueDateWorker := worker.NewDueDateWorker(notifier, cfg.Worker.DueDateInterval)
	go dueDateWorker.Start(ctx)

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID", "X-User-ID", "X-User-Role"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.RateLimit(100))

	r.Get("/health", taskHandler.HealthCheck)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.ListTasks)   // GET /tasks
			r.Post("/", taskHandler.CreateTask) // POST /tasks

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.GetTaskByID)       // GET /tasks/{id}
				r.Put("/", taskHandler.UpdateTaskByID)    // PUT /tasks/{id}
				r.Delete("/", taskHandler.DeleteTaskByID) // DELETE /tasks/{id}

				r.Post("/expedite", taskHandler.ExpediteTask)   // POST /tasks/{id}/expedite
				r.Post("/comments", commentHandler.AddComment)  // POST /tasks/{id}/comments
			})
		})

		r.Route("/comments/{id}", func(r chi.Router) {
			r.Put("/", commentHandler.UpdateComment)    // PUT /comments/{id}
			r.Delete("/", commentHandler.DeleteComment) // DELETE /comments/{id}
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.ListNotifications)            // GET /notifications
			r.Post("/", notificationHandler.SendNotification)            // POST /notifications
			r.Post("/broadcast", notificationHandler.Broadcast)          // POST /notifications/broadcast
			r.Post("/check-due-dates", notificationHandler.CheckDueDates) // POST /notifications/check-due-dates
			r.Put("/read-all", notificationHandler.MarkAllRead)          // PUT /notifications/read-all

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/read", notificationHandler.MarkRead)          // PUT /notifications/{id}/read
				r.Delete("/", notificationHandler.DeleteNotification) // DELETE /notifications/{id}
			})
		})

		r.Route("/insights", func(r chi.Router) {
			r.Get("/", insightsHandler.GetInsights)              // GET /insights
			r.Get("/user/{id}", insightsHandler.GetUserInsights) // GET /insights/user/{id}
		})
	})

	server := &http.Server{
		Addr:    cfg.GetServerAddr(),
		Handler: r,
	}

	go func() {
		logger.Info("Server started", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Ошибка сервера", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("Остановка сервера")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ошибка при остановке сервера", err)
	}
}

package inter

import (
	"context"

	"github.com/google/uuid"

	"taskManager/internal/models"
	"taskManager/internal/repository"
)

// Store - транзакционное хранилище всех сущностей трекера.
// Реализации: repository/task/postgres и repository/task/inmemory.
type Store interface {
	// задачи
	CreateTask(ctx context.Context, task *models.Task) error
	GetTaskByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	// UpdateTaskWithHistory записывает запись истории (если history != nil)
	// и новые поля задачи одним атомарным блоком: читатель никогда не видит
	// новый процент без соответствующей записи истории.
	UpdateTaskWithHistory(ctx context.Context, task *models.Task, history *models.ProgressHistory) error
	// DeleteTaskCascade удаляет историю прогресса, комментарии, привязанные
	// к задаче записи аудита и уведомления, затем саму задачу.
	DeleteTaskCascade(ctx context.Context, id uuid.UUID) error
	ListTasks(ctx context.Context, filter repository.TaskFilter) ([]*models.Task, error)
	CountTasks(ctx context.Context, filter repository.TaskFilter) (int, error)
	GroupTasksBy(ctx context.Context, field string, filter repository.TaskFilter) ([]repository.GroupCount, error)

	// история прогресса
	CreateProgressHistory(ctx context.Context, entry *models.ProgressHistory) error
	ListProgressHistory(ctx context.Context, taskID uuid.UUID) ([]*models.ProgressHistory, error)

	// комментарии
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	DeleteComment(ctx context.Context, id uuid.UUID) error
	ListComments(ctx context.Context, taskID uuid.UUID) ([]*models.Comment, error)

	// уведомления
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetNotificationByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListNotifications(ctx context.Context, filter repository.NotificationFilter) ([]*models.Notification, error)
	MarkNotificationRead(ctx context.Context, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error
	DeleteNotification(ctx context.Context, id uuid.UUID) error

	// аудит
	CreateAuditLog(ctx context.Context, entry *models.AuditLog) error

	// пользователи
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListActiveUsers(ctx context.Context) ([]*models.User, error)

	HealthCheck(ctx context.Context) error
}

package handlers

import (
	"context"

	"github.com/google/uuid"

	"taskManager/internal/models"
	"taskManager/internal/repository"
	"taskManager/internal/service"
)

type TaskService interface {
	CreateTask(ctx context.Context, requesterID uuid.UUID, req service.CreateTaskRequest) (*models.Task, error)
	GetTask(ctx context.Context, taskID, requesterID uuid.UUID, requesterRole models.Role) (*service.TaskDetail, error)
	ListTasks(ctx context.Context, requesterID uuid.UUID, requesterRole models.Role, filter repository.TaskFilter) ([]*models.Task, error)
	UpdateTask(ctx context.Context, taskID, requesterID uuid.UUID, requesterRole models.Role, req service.UpdateTaskRequest) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID, requesterID uuid.UUID, requesterRole models.Role) error
	ExpediteTask(ctx context.Context, taskID, requesterID uuid.UUID, requesterRole models.Role, message string) (*models.Comment, error)
	AddComment(ctx context.Context, taskID, requesterID uuid.UUID, requesterRole models.Role, content string) (*models.Comment, error)
	UpdateComment(ctx context.Context, commentID, requesterID uuid.UUID, requesterRole models.Role, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, commentID, requesterID uuid.UUID, requesterRole models.Role) error
	HealthCheck(ctx context.Context) error
}

type NotificationService interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, notificationID, requesterID uuid.UUID) error
	MarkAllRead(ctx context.Context, requesterID uuid.UUID) error
	DeleteNotification(ctx context.Context, notificationID, requesterID uuid.UUID, requesterRole models.Role) error
	SendToUser(ctx context.Context, requesterID uuid.UUID, requesterRole models.Role, userID uuid.UUID, title, message string, typ models.NotificationType, taskID *uuid.UUID) (*models.Notification, error)
	SendToAll(ctx context.Context, requesterID uuid.UUID, requesterRole models.Role, title, message string, typ models.NotificationType, taskID *uuid.UUID) (int, error)
	CheckDueDates(ctx context.Context) (int, error)
}

type InsightsService interface {
	Generate(ctx context.Context) (*service.InsightsReport, error)
	GenerateForUser(ctx context.Context, userID uuid.UUID) (*service.UserInsightsReport, error)
}

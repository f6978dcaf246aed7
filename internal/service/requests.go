package service

import (
	"time"

	"github.com/google/uuid"

	"taskManager/internal/models"
)

type CreateTaskRequest struct {
	Title                string
	Description          string
	Category             string
	Status               models.Status
	Priority             models.Priority
	CompletionPercentage int
	DueDate              *time.Time
	AssignedTo           *uuid.UUID
}

// UpdateTaskRequest - частичное обновление задачи. nil-поле не трогает
// текущее значение. Для DueDate нулевое время означает "очистить дедлайн",
// для AssignedTo uuid.Nil означает "снять назначение".
type UpdateTaskRequest struct {
	Title                *string
	Description          *string
	Category             *string
	Status               *models.Status
	Priority             *models.Priority
	CompletionPercentage *int
	DueDate              *time.Time
	AssignedTo           *uuid.UUID
	Comment              *string
}

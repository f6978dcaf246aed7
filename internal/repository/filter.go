package repository

import (
	"time"

	"github.com/google/uuid"

	"taskManager/internal/models"
)

// TaskFilter - условия выборки задач. nil-поле означает "не фильтровать".
type TaskFilter struct {
	Status       *models.Status
	NotStatus    *models.Status
	Category     *string
	AssignedTo   *uuid.UUID
	CreatedBy    *uuid.UUID
	InvolvedUser *uuid.UUID // создатель ИЛИ исполнитель
	AssignedOnly bool       // только задачи с исполнителем
	DueAfter     *time.Time
	DueBefore    *time.Time
	CreatedAfter *time.Time
	Page         int
	Limit        int
}

type GroupCount struct {
	Key   string
	Count int
}

// NotificationFilter - условия выборки уведомлений получателя.
type NotificationFilter struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Page       int
	Limit      int
}

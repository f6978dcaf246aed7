package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const NotificationInfo NotificationType = "INFO"
const NotificationWarning NotificationType = "WARNING"
const NotificationError NotificationType = "ERROR"
const NotificationSuccess NotificationType = "SUCCESS"

func ValidNotificationType(t NotificationType) bool {
	switch t {
	case NotificationInfo, NotificationWarning, NotificationError, NotificationSuccess:
		return true
	}
	return false
}

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	Type      NotificationType `json:"type" db:"type"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	TaskID    *uuid.UUID       `json:"task_id,omitempty" db:"task_id"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

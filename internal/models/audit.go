package models

import (
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const ActionCreate AuditAction = "CREATE"
const ActionUpdate AuditAction = "UPDATE"
const ActionDelete AuditAction = "DELETE"
const ActionLogin AuditAction = "LOGIN"
const ActionExpedite AuditAction = "EXPEDITE"
const ActionDeactivate AuditAction = "DEACTIVATE"

// AuditLog - неизменяемая запись о значимом действии.
// Записи не обновляются, чистка выполняется только retention-политикой снаружи.
type AuditLog struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	Action    AuditAction `json:"action" db:"action"`
	Entity    string      `json:"entity" db:"entity"`
	EntityID  *uuid.UUID  `json:"entity_id,omitempty" db:"entity_id"`
	UserID    uuid.UUID   `json:"user_id" db:"user_id"`
	TaskID    *uuid.UUID  `json:"task_id,omitempty" db:"task_id"`
	Details   string      `json:"details" db:"details"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

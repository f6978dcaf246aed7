package models

import (
	"time"

	"github.com/google/uuid"
)

type Status string
type Priority string

const StatusPending Status = "PENDING"
const StatusInProgress Status = "IN_PROGRESS"
const StatusCompleted Status = "COMPLETED"
const StatusDelayed Status = "DELAYED"

const PriorityLow Priority = "LOW"
const PriorityMedium Priority = "MEDIUM"
const PriorityHigh Priority = "HIGH"
const PriorityUrgent Priority = "URGENT"

type Task struct {
	ID                   uuid.UUID  `json:"id" db:"id"`
	Title                string     `json:"title" db:"title"`
	Description          string     `json:"description" db:"description"`
	Category             string     `json:"category" db:"category"`
	Status               Status     `json:"status" db:"status"`
	Priority             Priority   `json:"priority" db:"priority"`
	CompletionPercentage int        `json:"completion_percentage" db:"completion_percentage"`
	DueDate              *time.Time `json:"due_date,omitempty" db:"due_date"`
	AssignedTo           *uuid.UUID `json:"assigned_to,omitempty" db:"assigned_to"`
	CreatedBy            uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt            time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at,omitempty" db:"updated_at"`

	// денормализованные поля для ответов API, в БД не хранятся
	Assignee *UserRef `json:"assignee,omitempty" db:"-"`
	Creator  *UserRef `json:"creator,omitempty" db:"-"`
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusDelayed:
		return true
	}
	return false
}

func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

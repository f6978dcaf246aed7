package models

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TaskID    uuid.UUID  `json:"task_id" db:"task_id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	Content   string     `json:"content" db:"content"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`

	Author *UserRef `json:"author,omitempty" db:"-"`
}

// ProgressHistory - append-only журнал изменения процента выполнения.
// Записи никогда не редактируются, удаляются только каскадно вместе с задачей.
type ProgressHistory struct {
	ID                 uuid.UUID `json:"id" db:"id"`
	TaskID             uuid.UUID `json:"task_id" db:"task_id"`
	PreviousPercentage int       `json:"previous_percentage" db:"previous_percentage"`
	NewPercentage      int       `json:"new_percentage" db:"new_percentage"`
	Comment            string    `json:"comment" db:"comment"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

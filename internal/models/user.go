package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const RoleAdmin Role = "ADMIN"
const RoleManager Role = "MANAGER"
const RoleUser Role = "USER"

type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// UserRef - краткая форма пользователя для вложенных ответов
type UserRef struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleManager, RoleUser:
		return true
	}
	return false
}

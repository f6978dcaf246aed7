package service

import (
	"github.com/google/uuid"

	"taskManager/internal/models"
)

// Правила доступа собраны в одном месте, чтобы их можно было проверять
// напрямую, а не разбрасывать проверки ролей по операциям.

// CanEditTask - обновлять задачу могут админ, менеджер, создатель и исполнитель.
func CanEditTask(userID uuid.UUID, role models.Role, t *models.Task) bool {
	if role == models.RoleAdmin || role == models.RoleManager {
		return true
	}
	if t.CreatedBy == userID {
		return true
	}
	return t.AssignedTo != nil && *t.AssignedTo == userID
}

// CanViewTask совпадает с правом на редактирование.
func CanViewTask(userID uuid.UUID, role models.Role, t *models.Task) bool {
	return CanEditTask(userID, role, t)
}

// CanDeleteTask - удалять задачу могут админ, менеджер и создатель.
// Исполнителю удаление не разрешено.
func CanDeleteTask(userID uuid.UUID, role models.Role, t *models.Task) bool {
	if role == models.RoleAdmin || role == models.RoleManager {
		return true
	}
	return t.CreatedBy == userID
}

// CanExpediteTask - только админ или менеджер.
func CanExpediteTask(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

// CanModerateComment - автор комментария, менеджер или админ.
func CanModerateComment(userID uuid.UUID, role models.Role, c *models.Comment) bool {
	if role == models.RoleAdmin || role == models.RoleManager {
		return true
	}
	return c.UserID == userID
}

// CanBroadcast - массовую рассылку делают только админ и менеджер.
func CanBroadcast(role models.Role) bool {
	return role == models.RoleAdmin || role == models.RoleManager
}

// CanDeleteNotification - получатель или админ.
func CanDeleteNotification(userID uuid.UUID, role models.Role, n *models.Notification) bool {
	if role == models.RoleAdmin {
		return true
	}
	return n.UserID == userID
}

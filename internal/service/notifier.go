package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskManager/internal/logger"
	"taskManager/internal/models"
	"taskManager/internal/repository"
	"taskManager/internal/repository/inter"
)

// Notifier отвечает за все уведомления: примитив создания одной записи,
// сборку уведомлений по событиям задачи и их доставку после того,
// как основная запись уже зафиксирована.
type Notifier struct {
	store inter.Store
}

func NewNotifier(store inter.Store) *Notifier {
	return &Notifier{store: store}
}

// PendingNotification - команда на создание уведомления. Оркестратор
// собирает их во время мутации, а Dispatch выполняет после коммита.
type PendingNotification struct {
	UserID  uuid.UUID
	Title   string
	Message string
	Type    models.NotificationType
	TaskID  *uuid.UUID
}

// Notify создаёт одну запись уведомления.
func (n *Notifier) Notify(ctx context.Context, userID uuid.UUID, title, message string, typ models.NotificationType, taskID *uuid.UUID) error {
	notification := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		TaskID:    taskID,
		CreatedAt: time.Now(),
	}

	if err := n.store.CreateNotification(ctx, notification); err != nil {
		return fmt.Errorf("создание уведомления: %w", err)
	}
	return nil
}

// Dispatch доставляет собранные уведомления по принципу best-effort.
// Основная мутация к этому моменту уже зафиксирована, поэтому ошибки
// только логируются и никогда не возвращаются наверх.
func (n *Notifier) Dispatch(ctx context.Context, batch []PendingNotification) int {
	delivered := 0
	for _, p := range batch {
		if err := n.Notify(ctx, p.UserID, p.Title, p.Message, p.Type, p.TaskID); err != nil {
			logger.Warn("Notifier: Уведомление не доставлено",
				zap.String("recipient", p.UserID.String()),
				zap.String("title", p.Title),
				zap.Error(err))
			continue
		}
		delivered++
	}
	return delivered
}

// taskRecipients - создатель и исполнитель задачи без дублей и без самого
// инициатора события.
func taskRecipients(t *models.Task, actorID uuid.UUID) []uuid.UUID {
	recipients := []uuid.UUID{}
	seen := map[uuid.UUID]bool{actorID: true}

	for _, candidate := range []*uuid.UUID{&t.CreatedBy, t.AssignedTo} {
		if candidate == nil {
			continue
		}
		if seen[*candidate] {
			continue
		}
		seen[*candidate] = true
		recipients = append(recipients, *candidate)
	}
	return recipients
}

func actorName(actor *models.User, fallback string) string {
	if actor == nil || actor.Username == "" {
		return fallback
	}
	return actor.Username
}

func roleTitle(role models.Role) string {
	switch role {
	case models.RoleAdmin:
		return "Admin"
	case models.RoleManager:
		return "Manager"
	default:
		return "User"
	}
}

func assignmentNotification(t *models.Task, assigneeID uuid.UUID, actor *models.User) PendingNotification {
	taskID := t.ID
	return PendingNotification{
		UserID: assigneeID,
		Title:  "New Task Assignment",
		Message: fmt.Sprintf("You have been assigned to task %q by %s",
			t.Title, actorName(actor, "a manager")),
		Type:   models.NotificationInfo,
		TaskID: &taskID,
	}
}

func statusChangeNotifications(t *models.Task, newStatus models.Status, actor *models.User) []PendingNotification {
	taskID := t.ID
	pending := []PendingNotification{}
	for _, recipient := range taskRecipients(t, actor.ID) {
		pending = append(pending, PendingNotification{
			UserID: recipient,
			Title:  "Task Status Updated",
			Message: fmt.Sprintf("Task %q status has been changed to %s by %s",
				t.Title, newStatus, actorName(actor, "a team member")),
			Type:   models.NotificationInfo,
			TaskID: &taskID,
		})
	}
	return pending
}

func progressNotifications(t *models.Task, previous, current int, actor *models.User) []PendingNotification {
	taskID := t.ID

	typ := models.NotificationInfo
	title := "Task Progress Updated"
	if current == 100 {
		typ = models.NotificationSuccess
		title = "Task Completed"
	}

	pending := []PendingNotification{}
	for _, recipient := range taskRecipients(t, actor.ID) {
		pending = append(pending, PendingNotification{
			UserID: recipient,
			Title:  title,
			Message: fmt.Sprintf("%s updated progress on task %q from %d%% to %d%%",
				actorName(actor, "Someone"), t.Title, previous, current),
			Type:   typ,
			TaskID: &taskID,
		})
	}
	return pending
}

func commentNotifications(t *models.Task, content string, actor *models.User) []PendingNotification {
	taskID := t.ID

	preview := content
	if len([]rune(content)) > 50 {
		preview = string([]rune(content)[:50]) + "..."
	}

	// комментарий от менеджера или админа помечается как важный
	fromManagement := actor.Role == models.RoleAdmin || actor.Role == models.RoleManager

	title := "New Comment on Task"
	typ := models.NotificationInfo
	message := fmt.Sprintf("%s commented on task %q: %q",
		actorName(actor, "Someone"), t.Title, preview)

	if fromManagement {
		title = "Important: Management Comment on Task"
		typ = models.NotificationWarning
		message = fmt.Sprintf("%s %s commented on task %q: %q",
			roleTitle(actor.Role), actorName(actor, "Someone"), t.Title, preview)
	}

	pending := []PendingNotification{}
	for _, recipient := range taskRecipients(t, actor.ID) {
		pending = append(pending, PendingNotification{
			UserID:  recipient,
			Title:   title,
			Message: message,
			Type:    typ,
			TaskID:  &taskID,
		})
	}
	return pending
}

func expediteNotifications(t *models.Task, message string, actor *models.User) []PendingNotification {
	taskID := t.ID
	pending := []PendingNotification{}
	for _, recipient := range taskRecipients(t, actor.ID) {
		pending = append(pending, PendingNotification{
			UserID: recipient,
			Title:  "URGENT: Task Needs Immediate Attention",
			Message: fmt.Sprintf("%s %s has requested to expedite task %q: %q",
				roleTitle(actor.Role), actorName(actor, "Someone"), t.Title, message),
			Type:   models.NotificationWarning,
			TaskID: &taskID,
		})
	}
	return pending
}

func dueDateNotification(t *models.Task, now time.Time) PendingNotification {
	taskID := t.ID

	daysRemaining := int(math.Ceil(t.DueDate.Sub(now).Hours() / 24))

	message := ""
	typ := models.NotificationInfo
	switch {
	case daysRemaining <= 0:
		message = fmt.Sprintf("Task %q is overdue!", t.Title)
		typ = models.NotificationWarning
	case daysRemaining == 1:
		message = fmt.Sprintf("Task %q is due tomorrow!", t.Title)
		typ = models.NotificationWarning
	case daysRemaining <= 3:
		message = fmt.Sprintf("Task %q is due in %d days.", t.Title, daysRemaining)
		typ = models.NotificationWarning
	default:
		message = fmt.Sprintf("Task %q is due in %d days.", t.Title, daysRemaining)
	}

	return PendingNotification{
		UserID:  *t.AssignedTo,
		Title:   "Due Date Reminder",
		Message: message,
		Type:    typ,
		TaskID:  &taskID,
	}
}

// SendToAll - рассылка всем активным пользователям. Доступна только
// админу и менеджеру, само событие пишется в аудит.
func (n *Notifier) SendToAll(ctx context.Context, requesterID uuid.UUID, requesterRole models.Role, title, message string, typ models.NotificationType, taskID *uuid.UUID) (int, error) {
	if !CanBroadcast(requesterRole) {
		return 0, NewForbidden("broadcast_notification")
	}
	if title == "" {
		return 0, NewValidationError("title", "заголовок обязателен")
	}
	if message == "" {
		return 0, NewValidationError("message", "текст обязателен")
	}

	users, err := n.store.ListActiveUsers(ctx)
	if err != nil {
		return 0, NewStorageError("list_active_users", err)
	}

	created := 0
	for _, u := range users {
		if err := n.Notify(ctx, u.ID, title, message, typ, taskID); err != nil {
			return created, NewStorageError("broadcast_notification", err)
		}
		created++
	}

	audit := &models.AuditLog{
		ID:        uuid.New(),
		Action:    models.ActionCreate,
		Entity:    "NOTIFICATION",
		UserID:    requesterID,
		TaskID:    taskID,
		Details:   fmt.Sprintf("Notification %q sent to %d users", title, created),
		CreatedAt: time.Now(),
	}
	if err := n.store.CreateAuditLog(ctx, audit); err != nil {
		return created, NewStorageError("audit_log", err)
	}

	logger.Info("Notifier: Массовая рассылка завершена",
		zap.String("title", title),
		zap.Int("recipients", created))
	return created, nil
}

// SendToUser - адресное уведомление от админа или менеджера конкретному
// активному пользователю, с записью в аудит.
func (n *Notifier) SendToUser(ctx context.Context, requesterID uuid.UUID, requesterRole models.Role, userID uuid.UUID, title, message string, typ models.NotificationType, taskID *uuid.UUID) (*models.Notification, error) {
	if !CanBroadcast(requesterRole) {
		return nil, NewForbidden("send_notification")
	}
	if title == "" {
		return nil, NewValidationError("title", "заголовок обязателен")
	}
	if message == "" {
		return nil, NewValidationError("message", "текст обязателен")
	}

	recipient, err := n.store.GetUserByID(ctx, userID)
	if err != nil || !recipient.IsActive {
		return nil, NewValidationError("user_id", "пользователь не найден или деактивирован")
	}

	notification := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		TaskID:    taskID,
		CreatedAt: time.Now(),
	}
	if err := n.store.CreateNotification(ctx, notification); err != nil {
		return nil, NewStorageError("create_notification", err)
	}

	audit := &models.AuditLog{
		ID:        uuid.New(),
		Action:    models.ActionCreate,
		Entity:    "NOTIFICATION",
		EntityID:  &notification.ID,
		UserID:    requesterID,
		TaskID:    taskID,
		Details:   fmt.Sprintf("Notification %q sent to user %s", title, recipient.Username),
		CreatedAt: time.Now(),
	}
	if err := n.store.CreateAuditLog(ctx, audit); err != nil {
		return nil, NewStorageError("audit_log", err)
	}

	return notification, nil
}

// CheckDueDates находит незавершённые задачи с дедлайном в ближайшие три дня
// и напоминает исполнителям. Вызывается фоновым воркером по расписанию.
func (n *Notifier) CheckDueDates(ctx context.Context) (int, error) {
	now := time.Now()
	deadline := now.AddDate(0, 0, 3)
	notCompleted := models.StatusCompleted

	tasks, err := n.store.ListTasks(ctx, repository.TaskFilter{
		DueAfter:     &now,
		DueBefore:    &deadline,
		NotStatus:    &notCompleted,
		AssignedOnly: true,
	})
	if err != nil {
		return 0, NewStorageError("list_tasks_due_soon", err)
	}

	created := 0
	for _, t := range tasks {
		if t.AssignedTo == nil || t.DueDate == nil {
			continue
		}

		p := dueDateNotification(t, now)
		if err := n.Notify(ctx, p.UserID, p.Title, p.Message, p.Type, p.TaskID); err != nil {
			logger.Warn("Notifier: Напоминание о дедлайне не создано",
				zap.String("task_id", t.ID.String()),
				zap.Error(err))
			continue
		}
		created++
	}

	return created, nil
}

// ListNotifications - уведомления получателя, новые сверху.
func (n *Notifier) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, page, limit int) ([]*models.Notification, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	notifications, err := n.store.ListNotifications(ctx, repository.NotificationFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Page:       page,
		Limit:      limit,
	})
	if err != nil {
		return nil, NewStorageError("list_notifications", err)
	}
	return notifications, nil
}

func (n *Notifier) MarkRead(ctx context.Context, notificationID, requesterID uuid.UUID) error {
	notification, err := n.store.GetNotificationByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("уведомление", notificationID.String())
		}
		return NewStorageError("get_notification", err)
	}

	if notification.UserID != requesterID {
		return NewForbidden("mark_notification_read")
	}

	if err := n.store.MarkNotificationRead(ctx, notificationID); err != nil {
		return NewStorageError("mark_notification_read", err)
	}
	return nil
}

func (n *Notifier) MarkAllRead(ctx context.Context, requesterID uuid.UUID) error {
	if err := n.store.MarkAllNotificationsRead(ctx, requesterID); err != nil {
		return NewStorageError("mark_all_read", err)
	}
	return nil
}

func (n *Notifier) DeleteNotification(ctx context.Context, notificationID, requesterID uuid.UUID, requesterRole models.Role) error {
	notification, err := n.store.GetNotificationByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("уведомление", notificationID.String())
		}
		return NewStorageError("get_notification", err)
	}

	if !CanDeleteNotification(requesterID, requesterRole, notification) {
		return NewForbidden("delete_notification")
	}

	if err := n.store.DeleteNotification(ctx, notificationID); err != nil {
		return NewStorageError("delete_notification", err)
	}
	return nil
}

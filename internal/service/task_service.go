package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskManager/internal/logger"
	"taskManager/internal/models"
	"taskManager/internal/repository"
	"taskManager/internal/repository/inter"
)

// TaskService - оркестратор мутаций задачи. Каждая операция выполняет
// основные записи (задача, история, комментарий, аудит), и только после
// их успеха отдаёт собранные уведомления диспетчеру. Падение уведомлений
// не откатывает уже зафиксированную мутацию.
//
// Конкурентные обновления одной задачи не примиряются: действует
// last-writer-wins на уровне хранилища. Это осознанное ограничение.
type TaskService struct {
	store    inter.Store
	notifier *Notifier
}

func NewTaskService(store inter.Store, notifier *Notifier) TaskService {
	return TaskService{
		store:    store,
		notifier: notifier,
	}
}

// TaskDetail - задача вместе с комментариями и историей прогресса.
type TaskDetail struct {
	Task     *models.Task              `json:"task"`
	Comments []*models.Comment         `json:"comments"`
	History  []*models.ProgressHistory `json:"progress_history"`
}

func (s *TaskService) getRequester(ctx context.Context, requesterID uuid.UUID) (*models.User, error) {
	requester, err := s.store.GetUserByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Service: Пользователь не найден", zap.String("user_id", requesterID.String()))
			return nil, NewNotFound("пользователь", requesterID.String())
		}
		return nil, NewStorageError("get_user", err)
	}
	return requester, nil
}

func (s *TaskService) getTask(ctx context.Context, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Service: Задача не найдена", zap.String("task_id", taskID.String()))
			return nil, NewNotFound("задача", taskID.String())
		}
		return nil, NewStorageError("get_task", err)
	}
	return task, nil
}

// denormalize заполняет отображаемые поля создателя и исполнителя.
func (s *TaskService) denormalize(ctx context.Context, t *models.Task) {
	if creator, err := s.store.GetUserByID(ctx, t.CreatedBy); err == nil {
		t.Creator = creator.Ref()
	}
	if t.AssignedTo != nil {
		if assignee, err := s.store.GetUserByID(ctx, *t.AssignedTo); err == nil {
			t.Assignee = assignee.Ref()
		}
	}
}

func (s *TaskService) audit(ctx context.Context, entry *models.AuditLog) error {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	if err := s.store.CreateAuditLog(ctx, entry); err != nil {
		return NewStorageError("audit_log", err)
	}
	return nil
}

func (s *TaskService) CreateTask(ctx context.Context, requesterID uuid.UUID, req CreateTaskRequest) (*models.Task, error) {
	requester, err := s.getRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	if req.Title == "" {
		return nil, NewValidationError("title", "название обязательно")
	}
	if req.Description == "" {
		return nil, NewValidationError("description", "описание обязательно")
	}
	if req.Category == "" {
		return nil, NewValidationError("category", "категория обязательна")
	}
	if req.CompletionPercentage < 0 || req.CompletionPercentage > 100 {
		return nil, NewValidationError("completion_percentage", "процент должен быть от 0 до 100")
	}

	status := req.Status
	if status == "" {
		status = models.StatusPending
	}
	if !models.ValidStatus(status) {
		return nil, NewValidationError("status", fmt.Sprintf("неизвестный статус %q", status))
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		return nil, NewValidationError("priority", fmt.Sprintf("неизвестный приоритет %q", priority))
	}

	if req.AssignedTo != nil && *req.AssignedTo != uuid.Nil {
		assignee, err := s.store.GetUserByID(ctx, *req.AssignedTo)
		if err != nil || !assignee.IsActive {
			return nil, NewValidationError("assigned_to", "пользователь не найден или деактивирован")
		}
	}

	task := &models.Task{
		ID:                   uuid.New(),
		Title:                req.Title,
		Description:          req.Description,
		Category:             req.Category,
		Status:               status,
		Priority:             priority,
		CompletionPercentage: req.CompletionPercentage,
		DueDate:              req.DueDate,
		CreatedBy:            requesterID,
		CreatedAt:            time.Now(),
	}
	if req.AssignedTo != nil && *req.AssignedTo != uuid.Nil {
		task.AssignedTo = req.AssignedTo
	}

	if err := s.store.CreateTask(ctx, task); err != nil {
		return nil, NewStorageError("create_task", err)
	}

	// первая запись истории пишется всегда, даже при нулевом проценте
	initial := &models.ProgressHistory{
		ID:                 uuid.New(),
		TaskID:             task.ID,
		PreviousPercentage: 0,
		NewPercentage:      task.CompletionPercentage,
		Comment:            "Task created",
		CreatedAt:          time.Now(),
	}
	if err := s.store.CreateProgressHistory(ctx, initial); err != nil {
		return nil, NewStorageError("create_progress_history", err)
	}

	taskID := task.ID
	if err := s.audit(ctx, &models.AuditLog{
		Action:   models.ActionCreate,
		Entity:   "TASK",
		EntityID: &taskID,
		UserID:   requesterID,
		TaskID:   &taskID,
		Details:  fmt.Sprintf("Task %q created by %s", task.Title, requester.Email),
	}); err != nil {
		return nil, err
	}

	if task.AssignedTo != nil && *task.AssignedTo != requesterID {
		s.notifier.Dispatch(ctx, []PendingNotification{
			assignmentNotification(task, *task.AssignedTo, requester),
		})
	}

	logger.Info("Service: Задача создана",
		zap.String("task_id", task.ID.String()),
		zap.String("created_by", requesterID.String()))

	s.denormalize(ctx, task)
	return task, nil
}

func (s *TaskService) GetTask(ctx context.Context, taskID, requesterID uuid.UUID, requesterRole models.Role) (*TaskDetail, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !CanViewTask(requesterID, requesterRole, task) {
		return nil, NewForbidden("view_task")
	}

	comments, err := s.store.ListComments(ctx, taskID)
	if err != nil {
		return nil, NewStorageError("list_comments", err)
	}
	history, err := s.store.ListProgressHistory(ctx, taskID)
	if err != nil {
		return nil, NewStorageError("list_progress_history", err)
	}

	s.denormalize(ctx, task)
	for _, c := range comments {
		if author, err := s.store.GetUserByID(ctx, c.UserID); err == nil {
			c.Author = author.Ref()
		}
	}

	return &TaskDetail{Task: task, Comments: comments, History: history}, nil
}

// ListTasks - выборка задач с фильтрами. Обычный пользователь видит только
// свои задачи (созданные им или назначенные на него).
func (s *TaskService) ListTasks(ctx context.Context, requesterID uuid.UUID, requesterRole models.Role, filter repository.TaskFilter) ([]*models.Task, error) {
	if requesterRole != models.RoleAdmin && requesterRole != models.RoleManager {
		filter.InvolvedUser = &requesterID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}

	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, NewStorageError("list_tasks", err)
	}

	for _, t := range tasks {
		s.denormalize(ctx, t)
	}
	return tasks, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, taskID, requesterID uuid.UUID, requesterRole models.Role, req UpdateTaskRequest) (*models.Task, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !CanEditTask(requesterID, requesterRole, task) {
		logger.Warn("Service: Попытка обновления без прав",
			zap.String("task_id", taskID.String()),
			zap.String("user_id", requesterID.String()))
		return nil, NewForbidden("update_task")
	}

	requester, err := s.getRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	resolution, err := ResolveUpdate(task, req)
	if err != nil {
		return nil, err
	}

	// уведомления собираются по состоянию ДО записи
	pending := []PendingNotification{}

	if req.AssignedTo != nil && *req.AssignedTo != uuid.Nil {
		newAssignee := *req.AssignedTo
		sameAsBefore := task.AssignedTo != nil && *task.AssignedTo == newAssignee
		if !sameAsBefore && newAssignee != requesterID {
			pending = append(pending, assignmentNotification(task, newAssignee, requester))
		}
	}

	if req.Status != nil && *req.Status != task.Status {
		pending = append(pending, statusChangeNotifications(task, *req.Status, requester)...)
	}

	if resolution.History != nil {
		pending = append(pending, progressNotifications(task,
			resolution.History.PreviousPercentage,
			resolution.History.NewPercentage,
			requester)...)
	}

	// история и поля задачи пишутся одним атомарным блоком
	if err := s.store.UpdateTaskWithHistory(ctx, resolution.Task, resolution.History); err != nil {
		return nil, NewStorageError("update_task", err)
	}

	if req.Comment != nil && *req.Comment != "" {
		comment := &models.Comment{
			ID:        uuid.New(),
			TaskID:    taskID,
			UserID:    requesterID,
			Content:   *req.Comment,
			CreatedAt: time.Now(),
		}
		if err := s.store.CreateComment(ctx, comment); err != nil {
			return nil, NewStorageError("create_comment", err)
		}
		pending = append(pending, commentNotifications(task, *req.Comment, requester)...)
	}

	if err := s.audit(ctx, &models.AuditLog{
		Action:   models.ActionUpdate,
		Entity:   "TASK",
		EntityID: &taskID,
		UserID:   requesterID,
		TaskID:   &taskID,
		Details:  fmt.Sprintf("Task %q updated by %s", resolution.Task.Title, requester.Email),
	}); err != nil {
		return nil, err
	}

	// основная мутация зафиксирована, дальше только best-effort
	s.notifier.Dispatch(ctx, pending)

	logger.Info("Service: Задача обновлена",
		zap.String("task_id", taskID.String()),
		zap.String("user_id", requesterID.String()),
		zap.Bool("progress_changed", resolution.History != nil))

	s.denormalize(ctx, resolution.Task)
	return resolution.Task, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, taskID, requesterID uuid.UUID, requesterRole models.Role) error {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}

	if !CanDeleteTask(requesterID, requesterRole, task) {
		return NewForbidden("delete_task")
	}

	requester, err := s.getRequester(ctx, requesterID)
	if err != nil {
		return err
	}

	// каскад: история, комментарии, привязанный аудит, уведомления, задача
	if err := s.store.DeleteTaskCascade(ctx, taskID); err != nil {
		return NewStorageError("delete_task", err)
	}

	// запись об удалении уже не привязана к задаче: привязанные только что удалены
	if err := s.audit(ctx, &models.AuditLog{
		Action:   models.ActionDelete,
		Entity:   "TASK",
		EntityID: &taskID,
		UserID:   requesterID,
		Details:  fmt.Sprintf("Task %q deleted by %s", task.Title, requester.Email),
	}); err != nil {
		return err
	}

	logger.Info("Service: Задача удалена",
		zap.String("task_id", taskID.String()),
		zap.String("user_id", requesterID.String()))
	return nil
}

func (s *TaskService) ExpediteTask(ctx context.Context, taskID, requesterID uuid.UUID, requesterRole models.Role, message string) (*models.Comment, error) {
	if !CanExpediteTask(requesterRole) {
		return nil, NewForbidden("expedite_task")
	}
	if message == "" {
		return nil, NewValidationError("message", "текст запроса обязателен")
	}

	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	requester, err := s.getRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:        uuid.New(),
		TaskID:    taskID,
		UserID:    requesterID,
		Content:   "URGENT: " + message,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, NewStorageError("create_comment", err)
	}

	if err := s.audit(ctx, &models.AuditLog{
		Action:   models.ActionExpedite,
		Entity:   "TASK",
		EntityID: &taskID,
		UserID:   requesterID,
		TaskID:   &taskID,
		Details:  fmt.Sprintf("Task %q expedite requested by %s with message: %s", task.Title, requester.Email, message),
	}); err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, expediteNotifications(task, message, requester))

	logger.Info("Service: Задача помечена срочной",
		zap.String("task_id", taskID.String()),
		zap.String("user_id", requesterID.String()))
	return comment, nil
}

func (s *TaskService) AddComment(ctx context.Context, taskID, requesterID uuid.UUID, requesterRole models.Role, content string) (*models.Comment, error) {
	if content == "" {
		return nil, NewValidationError("content", "текст комментария обязателен")
	}

	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if !CanViewTask(requesterID, requesterRole, task) {
		return nil, NewForbidden("comment_task")
	}

	requester, err := s.getRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ID:        uuid.New(),
		TaskID:    taskID,
		UserID:    requesterID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, NewStorageError("create_comment", err)
	}

	commentID := comment.ID
	taskRef := taskID
	if err := s.audit(ctx, &models.AuditLog{
		Action:   models.ActionCreate,
		Entity:   "COMMENT",
		EntityID: &commentID,
		UserID:   requesterID,
		TaskID:   &taskRef,
		Details:  fmt.Sprintf("Comment added to task %q by %s", task.Title, requester.Email),
	}); err != nil {
		return nil, err
	}

	s.notifier.Dispatch(ctx, commentNotifications(task, content, requester))

	comment.Author = requester.Ref()
	return comment, nil
}

func (s *TaskService) UpdateComment(ctx context.Context, commentID, requesterID uuid.UUID, requesterRole models.Role, content string) (*models.Comment, error) {
	if content == "" {
		return nil, NewValidationError("content", "текст комментария обязателен")
	}

	comment, err := s.store.GetCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("комментарий", commentID.String())
		}
		return nil, NewStorageError("get_comment", err)
	}

	if !CanModerateComment(requesterID, requesterRole, comment) {
		return nil, NewForbidden("update_comment")
	}

	now := time.Now()
	comment.Content = content
	comment.UpdatedAt = &now

	if err := s.store.UpdateComment(ctx, comment); err != nil {
		return nil, NewStorageError("update_comment", err)
	}
	return comment, nil
}

func (s *TaskService) DeleteComment(ctx context.Context, commentID, requesterID uuid.UUID, requesterRole models.Role) error {
	comment, err := s.store.GetCommentByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewNotFound("комментарий", commentID.String())
		}
		return NewStorageError("get_comment", err)
	}

	if !CanModerateComment(requesterID, requesterRole, comment) {
		return NewForbidden("delete_comment")
	}

	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return NewStorageError("delete_comment", err)
	}

	commentRef := commentID
	taskRef := comment.TaskID
	return s.audit(ctx, &models.AuditLog{
		Action:   models.ActionDelete,
		Entity:   "COMMENT",
		EntityID: &commentRef,
		UserID:   requesterID,
		TaskID:   &taskRef,
		Details:  fmt.Sprintf("Comment %s deleted", commentID),
	})
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	if err := s.store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("проверка здоровья сервиса: %w", err)
	}
	return nil
}

package inmemory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"taskManager/internal/models"
	"taskManager/internal/repository"
)

// Storage - потокобезопасное хранилище в памяти. Используется в юнит-тестах
// и при repository.type: inmemory. Порядок вставки сохраняется в срезах id.
type Storage struct {
	mtx *sync.RWMutex

	tasks   map[uuid.UUID]*models.Task
	taskIds []uuid.UUID

	history    map[uuid.UUID][]*models.ProgressHistory // ключ - id задачи
	comments   map[uuid.UUID]*models.Comment
	commentIds []uuid.UUID

	notifications   map[uuid.UUID]*models.Notification
	notificationIds []uuid.UUID

	auditLogs []*models.AuditLog

	users map[uuid.UUID]*models.User
}

func New() *Storage {
	return &Storage{
		mtx:             &sync.RWMutex{},
		tasks:           make(map[uuid.UUID]*models.Task),
		taskIds:         []uuid.UUID{},
		history:         make(map[uuid.UUID][]*models.ProgressHistory),
		comments:        make(map[uuid.UUID]*models.Comment),
		commentIds:      []uuid.UUID{},
		notifications:   make(map[uuid.UUID]*models.Notification),
		notificationIds: []uuid.UUID{},
		auditLogs:       []*models.AuditLog{},
		users:           make(map[uuid.UUID]*models.User),
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	return nil
}

// AddUser - заполнение справочника пользователей. В памяти нет регистрации,
// поэтому пользователи заводятся напрямую (тесты, сиды).
func (s *Storage) AddUser(u *models.User) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.users[u.ID] = u
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	copied := *task
	s.tasks[task.ID] = &copied
	s.taskIds = append(s.taskIds, task.ID)
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *task
	return &copied, nil
}

func (s *Storage) UpdateTaskWithHistory(ctx context.Context, task *models.Task, history *models.ProgressHistory) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return repository.ErrNotFound
	}

	// под одним локом: читатель не увидит процент без записи истории
	if history != nil {
		copiedHistory := *history
		s.history[task.ID] = append(s.history[task.ID], &copiedHistory)
	}

	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *Storage) DeleteTaskCascade(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return repository.ErrNotFound
	}

	delete(s.history, id)

	for cid, c := range s.comments {
		if c.TaskID == id {
			delete(s.comments, cid)
			s.commentIds = removeId(s.commentIds, cid)
		}
	}

	for nid, n := range s.notifications {
		if n.TaskID != nil && *n.TaskID == id {
			delete(s.notifications, nid)
			s.notificationIds = removeId(s.notificationIds, nid)
		}
	}

	kept := s.auditLogs[:0]
	for _, entry := range s.auditLogs {
		if entry.TaskID != nil && *entry.TaskID == id {
			continue
		}
		kept = append(kept, entry)
	}
	s.auditLogs = kept

	delete(s.tasks, id)
	s.taskIds = removeId(s.taskIds, id)
	return nil
}

func removeId(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, val := range ids {
		if val == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func matchesFilter(t *models.Task, f repository.TaskFilter) bool {
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.NotStatus != nil && t.Status == *f.NotStatus {
		return false
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	if f.AssignedTo != nil {
		if t.AssignedTo == nil || *t.AssignedTo != *f.AssignedTo {
			return false
		}
	}
	if f.CreatedBy != nil && t.CreatedBy != *f.CreatedBy {
		return false
	}
	if f.InvolvedUser != nil {
		involved := t.CreatedBy == *f.InvolvedUser ||
			(t.AssignedTo != nil && *t.AssignedTo == *f.InvolvedUser)
		if !involved {
			return false
		}
	}
	if f.AssignedOnly && t.AssignedTo == nil {
		return false
	}
	if f.DueAfter != nil {
		if t.DueDate == nil || t.DueDate.Before(*f.DueAfter) {
			return false
		}
	}
	if f.DueBefore != nil {
		if t.DueDate == nil || t.DueDate.After(*f.DueBefore) {
			return false
		}
	}
	if f.CreatedAfter != nil && t.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	return true
}

func (s *Storage) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]*models.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	matched := []*models.Task{}
	for _, id := range s.taskIds {
		t := s.tasks[id]
		if matchesFilter(t, filter) {
			copied := *t
			matched = append(matched, &copied)
		}
	}

	if filter.Limit > 0 {
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.Limit
		}
		if offset >= len(matched) {
			return []*models.Task{}, nil
		}
		end := offset + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[offset:end]
	}

	return matched, nil
}

func (s *Storage) CountTasks(ctx context.Context, filter repository.TaskFilter) (int, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	count := 0
	for _, t := range s.tasks {
		if matchesFilter(t, filter) {
			count++
		}
	}
	return count, nil
}

func (s *Storage) GroupTasksBy(ctx context.Context, field string, filter repository.TaskFilter) ([]repository.GroupCount, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	counts := map[string]int{}
	order := []string{}

	for _, id := range s.taskIds {
		t := s.tasks[id]
		if !matchesFilter(t, filter) {
			continue
		}

		key := ""
		switch field {
		case "status":
			key = string(t.Status)
		case "category":
			key = t.Category
		case "assigned_to":
			if t.AssignedTo == nil {
				continue
			}
			key = t.AssignedTo.String()
		default:
			return nil, repository.ErrNotFound
		}

		if _, seen := counts[key]; !seen {
			order = append(order, key)
		}
		counts[key]++
	}

	result := make([]repository.GroupCount, len(order))
	for i, key := range order {
		result[i] = repository.GroupCount{Key: key, Count: counts[key]}
	}
	return result, nil
}

func (s *Storage) CreateProgressHistory(ctx context.Context, entry *models.ProgressHistory) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	copied := *entry
	s.history[entry.TaskID] = append(s.history[entry.TaskID], &copied)
	return nil
}

func (s *Storage) ListProgressHistory(ctx context.Context, taskID uuid.UUID) ([]*models.ProgressHistory, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	entries := s.history[taskID]
	result := make([]*models.ProgressHistory, len(entries))
	for i, e := range entries {
		copied := *e
		result[i] = &copied
	}
	return result, nil
}

func (s *Storage) CreateComment(ctx context.Context, comment *models.Comment) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	copied := *comment
	s.comments[comment.ID] = &copied
	s.commentIds = append(s.commentIds, comment.ID)
	return nil
}

func (s *Storage) GetCommentByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *comment
	return &copied, nil
}

func (s *Storage) UpdateComment(ctx context.Context, comment *models.Comment) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.comments[comment.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *comment
	s.comments[comment.ID] = &copied
	return nil
}

func (s *Storage) DeleteComment(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.comments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.comments, id)
	s.commentIds = removeId(s.commentIds, id)
	return nil
}

func (s *Storage) ListComments(ctx context.Context, taskID uuid.UUID) ([]*models.Comment, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	result := []*models.Comment{}
	for _, id := range s.commentIds {
		c := s.comments[id]
		if c.TaskID == taskID {
			copied := *c
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (s *Storage) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	copied := *n
	s.notifications[n.ID] = &copied
	s.notificationIds = append(s.notificationIds, n.ID)
	return nil
}

func (s *Storage) GetNotificationByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *n
	return &copied, nil
}

func (s *Storage) ListNotifications(ctx context.Context, filter repository.NotificationFilter) ([]*models.Notification, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	matched := []*models.Notification{}
	// новые сверху
	for i := len(s.notificationIds) - 1; i >= 0; i-- {
		n := s.notifications[s.notificationIds[i]]
		if n.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		copied := *n
		matched = append(matched, &copied)
	}

	if filter.Limit > 0 {
		offset := 0
		if filter.Page > 1 {
			offset = (filter.Page - 1) * filter.Limit
		}
		if offset >= len(matched) {
			return []*models.Notification{}, nil
		}
		end := offset + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		matched = matched[offset:end]
	}

	return matched, nil
}

func (s *Storage) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.IsRead = true
	return nil
}

func (s *Storage) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	for _, n := range s.notifications {
		if n.UserID == userID {
			n.IsRead = true
		}
	}
	return nil
}

func (s *Storage) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if _, ok := s.notifications[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.notifications, id)
	s.notificationIds = removeId(s.notificationIds, id)
	return nil
}

func (s *Storage) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	copied := *entry
	s.auditLogs = append(s.auditLogs, &copied)
	return nil
}

// ListAuditLogs - доступ к журналу для тестов и отладки.
func (s *Storage) ListAuditLogs() []*models.AuditLog {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	result := make([]*models.AuditLog, len(s.auditLogs))
	copy(result, s.auditLogs)
	return result
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *Storage) ListActiveUsers(ctx context.Context) ([]*models.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	result := []*models.User{}
	for _, u := range s.users {
		if u.IsActive {
			copied := *u
			result = append(result, &copied)
		}
	}
	return result, nil
}

// Seed - удобный помощник для наполнения хранилища в тестах.
func (s *Storage) Seed(users []*models.User, tasks []*models.Task) {
	for _, u := range users {
		s.AddUser(u)
	}
	for _, t := range tasks {
		s.CreateTask(context.Background(), t)
	}
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"taskManager/internal/logger"
	"taskManager/internal/models"
	"taskManager/internal/repository"
)

func (s *Storage) CreateComment(ctx context.Context, comment *models.Comment) error {
	start := time.Now()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO comments (id, task_id, user_id, content, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
		comment.ID,
		comment.TaskID,
		comment.UserID,
		comment.Content,
		comment.CreatedAt,
	)
	if err != nil {
		logger.Error("Repository: Не удалось добавить комментарий", err)
		return fmt.Errorf("добавление комментария: %w", err)
	}

	warnSlow(start, "create_comment")
	return nil
}

func (s *Storage) GetCommentByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	c := &models.Comment{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, task_id, user_id, content, created_at, updated_at
			FROM comments WHERE id = $1`, id).
		Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить комментарий", err)
		return nil, fmt.Errorf("получение комментария: %w", err)
	}
	return c, nil
}

func (s *Storage) UpdateComment(ctx context.Context, comment *models.Comment) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE comments SET content = $1, updated_at = $2 WHERE id = $3`,
		comment.Content, comment.UpdatedAt, comment.ID)
	if err != nil {
		logger.Error("Repository: Не удалось обновить комментарий", err)
		return fmt.Errorf("обновление комментария: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Storage) DeleteComment(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить комментарий", err)
		return fmt.Errorf("удаление комментария: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Storage) ListComments(ctx context.Context, taskID uuid.UUID) ([]*models.Comment, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, user_id, content, created_at, updated_at
			FROM comments WHERE task_id = $1 ORDER BY created_at`,
		taskID)
	if err != nil {
		logger.Error("Repository: Не удалось получить комментарии", err)
		return nil, fmt.Errorf("получение комментариев: %w", err)
	}
	defer rows.Close()

	comments := []*models.Comment{}
	for rows.Next() {
		c := &models.Comment{}
		err := rows.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования комментария", zap.Error(err))
			continue
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnSlow(start, "list_comments")
	return comments, nil
}

func (s *Storage) CreateNotification(ctx context.Context, n *models.Notification) error {
	start := time.Now()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, title, message, type, is_read, task_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID,
		n.UserID,
		n.Title,
		n.Message,
		n.Type,
		n.IsRead,
		n.TaskID,
		n.CreatedAt,
	)
	if err != nil {
		logger.Error("Repository: Не удалось создать уведомление", err)
		return fmt.Errorf("создание уведомления: %w", err)
	}

	warnSlow(start, "create_notification")
	return nil
}

func (s *Storage) GetNotificationByID(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	n := &models.Notification{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, title, message, type, is_read, task_id, created_at
			FROM notifications WHERE id = $1`, id).
		Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.TaskID, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить уведомление", err)
		return nil, fmt.Errorf("получение уведомления: %w", err)
	}
	return n, nil
}

func (s *Storage) ListNotifications(ctx context.Context, filter repository.NotificationFilter) ([]*models.Notification, error) {
	start := time.Now()

	query := `SELECT id, user_id, title, message, type, is_read, task_id, created_at
		FROM notifications WHERE user_id = $1`
	args := []any{filter.UserID}

	if filter.UnreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, filter.Limit, (page-1)*filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить уведомления", err)
		return nil, fmt.Errorf("получение уведомлений: %w", err)
	}
	defer rows.Close()

	notifications := []*models.Notification{}
	for rows.Next() {
		n := &models.Notification{}
		err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.TaskID, &n.CreatedAt)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования уведомления", zap.Error(err))
			continue
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnSlow(start, "list_notifications")
	return notifications, nil
}

func (s *Storage) MarkNotificationRead(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось отметить уведомление", err)
		return fmt.Errorf("отметка уведомления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Storage) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		logger.Error("Repository: Не удалось отметить уведомления", err)
		return fmt.Errorf("отметка уведомлений: %w", err)
	}
	return nil
}

func (s *Storage) DeleteNotification(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить уведомление", err)
		return fmt.Errorf("удаление уведомления: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Storage) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	start := time.Now()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_logs (id, action, entity, entity_id, user_id, task_id, details, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID,
		entry.Action,
		entry.Entity,
		entry.EntityID,
		entry.UserID,
		entry.TaskID,
		entry.Details,
		entry.CreatedAt,
	)
	if err != nil {
		logger.Error("Repository: Не удалось записать аудит", err)
		return fmt.Errorf("запись аудита: %w", err)
	}

	warnSlow(start, "create_audit_log")
	return nil
}

func (s *Storage) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, role, is_active, created_at
			FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return u, nil
}

func (s *Storage) ListActiveUsers(ctx context.Context) ([]*models.User, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx,
		`SELECT id, username, email, password_hash, role, is_active, created_at
			FROM users WHERE is_active = TRUE ORDER BY username`)
	if err != nil {
		logger.Error("Repository: Не удалось получить пользователей", err)
		return nil, fmt.Errorf("получение пользователей: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u := &models.User{}
		err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования пользователя", zap.Error(err))
			continue
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnSlow(start, "list_active_users")
	return users, nil
}

// CreateUser используется интеграционными тестами и сидами.
func (s *Storage) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("создание пользователя: %w", err)
	}
	return nil
}

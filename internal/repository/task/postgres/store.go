package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskManager/internal/logger"
	"taskManager/internal/models"
	"taskManager/internal/repository"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Storage struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*Storage, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		logger.Error("Repository: Ошибка загрузки конфига", err)
		return nil, fmt.Errorf("загрузка конфига: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnIdleTime = time.Minute * 5

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		logger.Error("Repository: Ошибка создания пула", err)
		return nil, fmt.Errorf("создание пула: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	logger.Info("Repository: Успешное создание подключения к PostgreSQL")
	return &Storage{pool: pool}, nil
}

func (s *Storage) Close() {
	s.pool.Close()
	logger.Info("Repository: Закрытие всех соединений PostgreSQL")
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	err := s.pool.Ping(ctx)
	if err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

// Migrate накатывает встроенные миграции через golang-migrate.
func Migrate(connString string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("чтение миграций: %w", err)
	}

	// golang-migrate ожидает схему pgx5 для драйвера pgx/v5
	url := strings.Replace(connString, "postgres://", "pgx5://", 1)

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		return fmt.Errorf("инициализация миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("применение миграций: %w", err)
	}

	logger.Info("Repository: Миграции применены")
	return nil
}

func warnSlow(start time.Time, op string) {
	if time.Since(start) > time.Millisecond*100 {
		logger.Warn("Repository: Медленная операция",
			zap.String("operation", op),
			zap.Duration("ms", time.Since(start)))
	}
}

const taskColumns = `id, title, description, category, status, priority,
	completion_percentage, due_date, assigned_to, created_by, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	t := &models.Task{}
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Category,
		&t.Status,
		&t.Priority,
		&t.CompletionPercentage,
		&t.DueDate,
		&t.AssignedTo,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// buildTaskWhere собирает условие WHERE из фильтра. Возвращает строку
// (возможно пустую) и позиционные аргументы.
func buildTaskWhere(f repository.TaskFilter) (string, []any) {
	conditions := []string{}
	args := []any{}

	add := func(cond string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.NotStatus != nil {
		add("status != $%d", *f.NotStatus)
	}
	if f.Category != nil {
		add("category = $%d", *f.Category)
	}
	if f.AssignedTo != nil {
		add("assigned_to = $%d", *f.AssignedTo)
	}
	if f.CreatedBy != nil {
		add("created_by = $%d", *f.CreatedBy)
	}
	if f.InvolvedUser != nil {
		args = append(args, *f.InvolvedUser)
		conditions = append(conditions,
			fmt.Sprintf("(created_by = $%d OR assigned_to = $%d)", len(args), len(args)))
	}
	if f.AssignedOnly {
		conditions = append(conditions, "assigned_to IS NOT NULL")
	}
	if f.DueAfter != nil {
		add("due_date >= $%d", *f.DueAfter)
	}
	if f.DueBefore != nil {
		add("due_date <= $%d", *f.DueBefore)
	}
	if f.CreatedAfter != nil {
		add("created_at >= $%d", *f.CreatedAfter)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (s *Storage) CreateTask(ctx context.Context, task *models.Task) error {
	start := time.Now()

	query := `INSERT INTO tasks
				(id, title, description, category, status, priority,
				 completion_percentage, due_date, assigned_to, created_by, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Category,
		task.Status,
		task.Priority,
		task.CompletionPercentage,
		task.DueDate,
		task.AssignedTo,
		task.CreatedBy,
		task.CreatedAt,
	)

	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("добавление задачи: %w", err)
	}

	warnSlow(start, "create_task")
	return nil
}

func (s *Storage) GetTaskByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	start := time.Now()

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}

	warnSlow(start, "get_task")
	return task, nil
}

// UpdateTaskWithHistory пишет запись истории и поля задачи в одной
// транзакции: читатель никогда не увидит новый процент без записи истории.
func (s *Storage) UpdateTaskWithHistory(ctx context.Context, task *models.Task, history *models.ProgressHistory) error {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось открыть транзакцию", err)
		return fmt.Errorf("открытие транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if history != nil {
		_, err = tx.Exec(ctx,
			`INSERT INTO progress_history
				(id, task_id, previous_percentage, new_percentage, comment, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
			history.ID,
			history.TaskID,
			history.PreviousPercentage,
			history.NewPercentage,
			history.Comment,
			history.CreatedAt,
		)
		if err != nil {
			logger.Error("Repository: Не удалось записать историю прогресса", err)
			return fmt.Errorf("запись истории: %w", err)
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE tasks
			SET title = $1,
				description = $2,
				category = $3,
				status = $4,
				priority = $5,
				completion_percentage = $6,
				due_date = $7,
				assigned_to = $8,
				updated_at = $9
			WHERE id = $10`,
		task.Title,
		task.Description,
		task.Category,
		task.Status,
		task.Priority,
		task.CompletionPercentage,
		task.DueDate,
		task.AssignedTo,
		task.UpdatedAt,
		task.ID,
	)
	if err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err)
		return fmt.Errorf("обновление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: Не удалось зафиксировать транзакцию", err)
		return fmt.Errorf("фиксация транзакции: %w", err)
	}

	warnSlow(start, "update_task")
	return nil
}

// DeleteTaskCascade удаляет связанные записи и задачу одной транзакцией.
func (s *Storage) DeleteTaskCascade(ctx context.Context, id uuid.UUID) error {
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		logger.Error("Repository: Не удалось открыть транзакцию", err)
		return fmt.Errorf("открытие транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, query := range []string{
		`DELETE FROM progress_history WHERE task_id = $1`,
		`DELETE FROM comments WHERE task_id = $1`,
		`DELETE FROM audit_logs WHERE task_id = $1`,
		`DELETE FROM notifications WHERE task_id = $1`,
	} {
		if _, err := tx.Exec(ctx, query, id); err != nil {
			logger.Error("Repository: Ошибка каскадного удаления", err)
			return fmt.Errorf("каскадное удаление: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.Error("Repository: Не удалось удалить задачу", err)
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		logger.Error("Repository: Не удалось зафиксировать транзакцию", err)
		return fmt.Errorf("фиксация транзакции: %w", err)
	}

	warnSlow(start, "delete_task")
	return nil
}

func (s *Storage) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]*models.Task, error) {
	start := time.Now()

	where, args := buildTaskWhere(filter)
	query := `SELECT ` + taskColumns + ` FROM tasks` + where + ` ORDER BY created_at`

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))

		page := filter.Page
		if page < 1 {
			page = 1
		}
		args = append(args, (page-1)*filter.Limit)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования задачи", zap.Error(err))
			continue
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnSlow(start, "list_tasks")
	return tasks, nil
}

func (s *Storage) CountTasks(ctx context.Context, filter repository.TaskFilter) (int, error) {
	start := time.Now()

	where, args := buildTaskWhere(filter)
	query := `SELECT COUNT(*) FROM tasks` + where

	count := 0
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		logger.Error("Repository: Не удалось посчитать задачи", err)
		return 0, fmt.Errorf("подсчёт задач: %w", err)
	}

	warnSlow(start, "count_tasks")
	return count, nil
}

func (s *Storage) GroupTasksBy(ctx context.Context, field string, filter repository.TaskFilter) ([]repository.GroupCount, error) {
	start := time.Now()

	// имя колонки подставляется только из белого списка
	column := ""
	switch field {
	case "status":
		column = "status"
	case "category":
		column = "category"
	case "assigned_to":
		column = "assigned_to::text"
	default:
		return nil, fmt.Errorf("группировка по %q не поддерживается", field)
	}

	where, args := buildTaskWhere(filter)
	query := `SELECT ` + column + ` AS grp, COUNT(*) FROM tasks` + where +
		` GROUP BY grp ORDER BY grp`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось сгруппировать задачи", err)
		return nil, fmt.Errorf("группировка задач: %w", err)
	}
	defer rows.Close()

	result := []repository.GroupCount{}
	for rows.Next() {
		var key *string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			logger.Warn("Repository: Ошибка сканирования группы", zap.Error(err))
			continue
		}
		if key == nil {
			continue
		}
		result = append(result, repository.GroupCount{Key: *key, Count: count})
	}

	if err := rows.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnSlow(start, "group_tasks")
	return result, nil
}

func (s *Storage) CreateProgressHistory(ctx context.Context, entry *models.ProgressHistory) error {
	start := time.Now()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO progress_history
			(id, task_id, previous_percentage, new_percentage, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID,
		entry.TaskID,
		entry.PreviousPercentage,
		entry.NewPercentage,
		entry.Comment,
		entry.CreatedAt,
	)
	if err != nil {
		logger.Error("Repository: Не удалось записать историю прогресса", err)
		return fmt.Errorf("запись истории: %w", err)
	}

	warnSlow(start, "create_progress_history")
	return nil
}

func (s *Storage) ListProgressHistory(ctx context.Context, taskID uuid.UUID) ([]*models.ProgressHistory, error) {
	start := time.Now()

	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, previous_percentage, new_percentage, comment, created_at
			FROM progress_history WHERE task_id = $1 ORDER BY created_at`,
		taskID)
	if err != nil {
		logger.Error("Repository: Не удалось получить историю", err)
		return nil, fmt.Errorf("получение истории: %w", err)
	}
	defer rows.Close()

	entries := []*models.ProgressHistory{}
	for rows.Next() {
		e := &models.ProgressHistory{}
		err := rows.Scan(&e.ID, &e.TaskID, &e.PreviousPercentage, &e.NewPercentage, &e.Comment, &e.CreatedAt)
		if err != nil {
			logger.Warn("Repository: Ошибка сканирования истории", zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}

	warnSlow(start, "list_progress_history")
	return entries, nil
}

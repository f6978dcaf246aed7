package inmemory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskManager/internal/models"
	"taskManager/internal/repository"
	"taskManager/internal/repository/task/inmemory"
)

func newTask(title string) *models.Task {
	return &models.Task{
		ID:        uuid.New(),
		Title:     title,
		Category:  "General",
		Status:    models.StatusPending,
		Priority:  models.PriorityMedium,
		CreatedBy: uuid.New(),
		CreatedAt: time.Now(),
	}
}

// TestStorage_New тестирует создание хранилища
func TestStorage_New(t *testing.T) {
	storage := inmemory.New()
	assert.NotNil(t, storage)
}

// TestStorage_HealthCheck тестирует проверку здоровья
func TestStorage_HealthCheck(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	err := storage.HealthCheck(ctx)
	assert.NoError(t, err)
}

// TestStorage_CreateAndGet тестирует создание и чтение задачи
func TestStorage_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	created := newTask("Test Task")
	err := storage.CreateTask(ctx, created)
	require.NoError(t, err)

	retrieved, err := storage.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Task", retrieved.Title)

	// хранилище отдаёт копию, а не свой внутренний указатель
	retrieved.Title = "Mutated"
	again, err := storage.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Task", again.Title)
}

// TestStorage_GetMissing тестирует чтение несуществующей задачи
func TestStorage_GetMissing(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	_, err := storage.GetTaskByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestStorage_UpdateTaskWithHistory тестирует атомарное обновление
func TestStorage_UpdateTaskWithHistory(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	created := newTask("Progress")
	require.NoError(t, storage.CreateTask(ctx, created))

	updated := *created
	updated.CompletionPercentage = 40
	entry := &models.ProgressHistory{
		ID:            uuid.New(),
		TaskID:        created.ID,
		NewPercentage: 40,
		Comment:       "Progress updated from 0% to 40%",
		CreatedAt:     time.Now(),
	}

	require.NoError(t, storage.UpdateTaskWithHistory(ctx, &updated, entry))

	task, err := storage.GetTaskByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, task.CompletionPercentage)

	history, err := storage.ListProgressHistory(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 40, history[0].NewPercentage)

	t.Run("nil history updates fields only", func(t *testing.T) {
		updated.Title = "Renamed"
		require.NoError(t, storage.UpdateTaskWithHistory(ctx, &updated, nil))

		task, err := storage.GetTaskByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", task.Title)

		history, err := storage.ListProgressHistory(ctx, created.ID)
		require.NoError(t, err)
		assert.Len(t, history, 1)
	})

	t.Run("missing task returns error", func(t *testing.T) {
		ghost := newTask("Ghost")
		err := storage.UpdateTaskWithHistory(ctx, ghost, nil)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

// TestStorage_DeleteTaskCascade тестирует каскадное удаление
func TestStorage_DeleteTaskCascade(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	task := newTask("Doomed")
	other := newTask("Survivor")
	require.NoError(t, storage.CreateTask(ctx, task))
	require.NoError(t, storage.CreateTask(ctx, other))

	userID := uuid.New()
	taskID := task.ID
	otherID := other.ID

	require.NoError(t, storage.CreateProgressHistory(ctx, &models.ProgressHistory{
		ID: uuid.New(), TaskID: taskID, NewPercentage: 10, CreatedAt: time.Now(),
	}))
	require.NoError(t, storage.CreateComment(ctx, &models.Comment{
		ID: uuid.New(), TaskID: taskID, UserID: userID, Content: "bye", CreatedAt: time.Now(),
	}))
	keepComment := &models.Comment{
		ID: uuid.New(), TaskID: otherID, UserID: userID, Content: "stay", CreatedAt: time.Now(),
	}
	require.NoError(t, storage.CreateComment(ctx, keepComment))
	require.NoError(t, storage.CreateNotification(ctx, &models.Notification{
		ID: uuid.New(), UserID: userID, Title: "bye", TaskID: &taskID, CreatedAt: time.Now(),
	}))
	keepNotification := &models.Notification{
		ID: uuid.New(), UserID: userID, Title: "stay", CreatedAt: time.Now(),
	}
	require.NoError(t, storage.CreateNotification(ctx, keepNotification))
	require.NoError(t, storage.CreateAuditLog(ctx, &models.AuditLog{
		ID: uuid.New(), Action: models.ActionUpdate, Entity: "TASK", UserID: userID, TaskID: &taskID, CreatedAt: time.Now(),
	}))
	require.NoError(t, storage.CreateAuditLog(ctx, &models.AuditLog{
		ID: uuid.New(), Action: models.ActionDelete, Entity: "TASK", UserID: userID, CreatedAt: time.Now(),
	}))

	require.NoError(t, storage.DeleteTaskCascade(ctx, taskID))

	_, err := storage.GetTaskByID(ctx, taskID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	history, err := storage.ListProgressHistory(ctx, taskID)
	require.NoError(t, err)
	assert.Empty(t, history)

	comments, err := storage.ListComments(ctx, taskID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	// чужие записи не тронуты
	survivors, err := storage.ListComments(ctx, otherID)
	require.NoError(t, err)
	assert.Len(t, survivors, 1)

	notifications, err := storage.ListNotifications(ctx, repository.NotificationFilter{UserID: userID})
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, keepNotification.ID, notifications[0].ID)

	// привязанный аудит удалён, непривязанный остался
	logs := storage.ListAuditLogs()
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].TaskID)

	t.Run("missing task returns error", func(t *testing.T) {
		err := storage.DeleteTaskCascade(ctx, uuid.New())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

// TestStorage_ListTasks тестирует фильтры выборки
func TestStorage_ListTasks(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	creator := uuid.New()
	assignee := uuid.New()
	due := time.Now().Add(24 * time.Hour)

	first := newTask("first")
	first.CreatedBy = creator
	first.Status = models.StatusCompleted
	first.Category = "Backend"

	second := newTask("second")
	second.AssignedTo = &assignee
	second.Status = models.StatusInProgress
	second.DueDate = &due

	third := newTask("third")
	third.Category = "Backend"

	for _, task := range []*models.Task{first, second, third} {
		require.NoError(t, storage.CreateTask(ctx, task))
	}

	t.Run("no filter keeps insertion order", func(t *testing.T) {
		tasks, err := storage.ListTasks(ctx, repository.TaskFilter{})
		require.NoError(t, err)
		require.Len(t, tasks, 3)
		assert.Equal(t, "first", tasks[0].Title)
		assert.Equal(t, "third", tasks[2].Title)
	})

	t.Run("by status", func(t *testing.T) {
		status := models.StatusCompleted
		tasks, err := storage.ListTasks(ctx, repository.TaskFilter{Status: &status})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "first", tasks[0].Title)
	})

	t.Run("excluding status", func(t *testing.T) {
		status := models.StatusCompleted
		tasks, err := storage.ListTasks(ctx, repository.TaskFilter{NotStatus: &status})
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("by category", func(t *testing.T) {
		category := "Backend"
		tasks, err := storage.ListTasks(ctx, repository.TaskFilter{Category: &category})
		require.NoError(t, err)
		assert.Len(t, tasks, 2)
	})

	t.Run("by involved user", func(t *testing.T) {
		tasks, err := storage.ListTasks(ctx, repository.TaskFilter{InvolvedUser: &assignee})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "second", tasks[0].Title)

		tasks, err = storage.ListTasks(ctx, repository.TaskFilter{InvolvedUser: &creator})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "first", tasks[0].Title)
	})

	t.Run("assigned only", func(t *testing.T) {
		tasks, err := storage.ListTasks(ctx, repository.TaskFilter{AssignedOnly: true})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "second", tasks[0].Title)
	})

	t.Run("due window", func(t *testing.T) {
		now := time.Now()
		horizon := now.Add(3 * 24 * time.Hour)
		tasks, err := storage.ListTasks(ctx, repository.TaskFilter{DueAfter: &now, DueBefore: &horizon})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "second", tasks[0].Title)
	})

	t.Run("pagination", func(t *testing.T) {
		tasks, err := storage.ListTasks(ctx, repository.TaskFilter{Page: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "third", tasks[0].Title)

		tasks, err = storage.ListTasks(ctx, repository.TaskFilter{Page: 5, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, tasks)
	})
}

// TestStorage_GroupTasksBy тестирует группировку
func TestStorage_GroupTasksBy(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	assignee := uuid.New()

	for i := 0; i < 3; i++ {
		task := newTask(fmt.Sprintf("backend-%d", i))
		task.Category = "Backend"
		require.NoError(t, storage.CreateTask(ctx, task))
	}
	frontend := newTask("frontend")
	frontend.Category = "Frontend"
	frontend.Status = models.StatusCompleted
	frontend.AssignedTo = &assignee
	require.NoError(t, storage.CreateTask(ctx, frontend))

	t.Run("by category", func(t *testing.T) {
		groups, err := storage.GroupTasksBy(ctx, "category", repository.TaskFilter{})
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, repository.GroupCount{Key: "Backend", Count: 3}, groups[0])
		assert.Equal(t, repository.GroupCount{Key: "Frontend", Count: 1}, groups[1])
	})

	t.Run("by assignee skips unassigned", func(t *testing.T) {
		groups, err := storage.GroupTasksBy(ctx, "assigned_to", repository.TaskFilter{})
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, assignee.String(), groups[0].Key)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := storage.GroupTasksBy(ctx, "priority_made_up", repository.TaskFilter{})
		assert.Error(t, err)
	})
}

// TestStorage_Comments тестирует CRUD комментариев
func TestStorage_Comments(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	task := newTask("commented")
	require.NoError(t, storage.CreateTask(ctx, task))

	comment := &models.Comment{
		ID:        uuid.New(),
		TaskID:    task.ID,
		UserID:    uuid.New(),
		Content:   "looks good",
		CreatedAt: time.Now(),
	}
	require.NoError(t, storage.CreateComment(ctx, comment))

	retrieved, err := storage.GetCommentByID(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "looks good", retrieved.Content)

	retrieved.Content = "edited"
	require.NoError(t, storage.UpdateComment(ctx, retrieved))

	list, err := storage.ListComments(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "edited", list[0].Content)

	require.NoError(t, storage.DeleteComment(ctx, comment.ID))
	_, err = storage.GetCommentByID(ctx, comment.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestStorage_Notifications тестирует жизненный цикл уведомлений
func TestStorage_Notifications(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	userID := uuid.New()
	for i := 0; i < 3; i++ {
		require.NoError(t, storage.CreateNotification(ctx, &models.Notification{
			ID:        uuid.New(),
			UserID:    userID,
			Title:     fmt.Sprintf("notification-%d", i),
			Type:      models.NotificationInfo,
			CreatedAt: time.Now(),
		}))
	}

	t.Run("newest first", func(t *testing.T) {
		list, err := storage.ListNotifications(ctx, repository.NotificationFilter{UserID: userID})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "notification-2", list[0].Title)
		assert.Equal(t, "notification-0", list[2].Title)
	})

	t.Run("unread filter and mark read", func(t *testing.T) {
		list, err := storage.ListNotifications(ctx, repository.NotificationFilter{UserID: userID})
		require.NoError(t, err)

		require.NoError(t, storage.MarkNotificationRead(ctx, list[0].ID))

		unread, err := storage.ListNotifications(ctx, repository.NotificationFilter{UserID: userID, UnreadOnly: true})
		require.NoError(t, err)
		assert.Len(t, unread, 2)

		require.NoError(t, storage.MarkAllNotificationsRead(ctx, userID))
		unread, err = storage.ListNotifications(ctx, repository.NotificationFilter{UserID: userID, UnreadOnly: true})
		require.NoError(t, err)
		assert.Empty(t, unread)
	})

	t.Run("pagination", func(t *testing.T) {
		list, err := storage.ListNotifications(ctx, repository.NotificationFilter{UserID: userID, Page: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, list, 1)
	})

	t.Run("delete", func(t *testing.T) {
		list, err := storage.ListNotifications(ctx, repository.NotificationFilter{UserID: userID})
		require.NoError(t, err)

		require.NoError(t, storage.DeleteNotification(ctx, list[0].ID))
		_, err = storage.GetNotificationByID(ctx, list[0].ID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

// TestStorage_Users тестирует справочник пользователей
func TestStorage_Users(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	active := &models.User{ID: uuid.New(), Username: "alive", IsActive: true}
	inactive := &models.User{ID: uuid.New(), Username: "gone", IsActive: false}
	storage.AddUser(active)
	storage.AddUser(inactive)

	user, err := storage.GetUserByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, "alive", user.Username)

	users, err := storage.ListActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, active.ID, users[0].ID)

	_, err = storage.GetUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// TestStorage_ConcurrentAccess тестирует потокобезопасность
func TestStorage_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	storage := inmemory.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			task := newTask(fmt.Sprintf("concurrent-%d", n))
			_ = storage.CreateTask(ctx, task)
			_, _ = storage.ListTasks(ctx, repository.TaskFilter{})
			_, _ = storage.CountTasks(ctx, repository.TaskFilter{})
		}(i)
	}
	wg.Wait()

	count, err := storage.CountTasks(ctx, repository.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

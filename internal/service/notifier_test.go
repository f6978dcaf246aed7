package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskManager/internal/models"
	"taskManager/internal/repository/task/inmemory"
	"taskManager/internal/service"
)

func seedUsers(store *inmemory.Storage, users ...*models.User) {
	for _, u := range users {
		store.AddUser(u)
	}
}

// TestNotifier_SendToAll тестирует массовую рассылку
func TestNotifier_SendToAll(t *testing.T) {
	ctx := context.Background()

	t.Run("success - only active users receive", func(t *testing.T) {
		store := inmemory.New()
		admin := testUser(models.RoleAdmin)
		active1 := testUser(models.RoleUser)
		active2 := testUser(models.RoleUser)
		inactive := testUser(models.RoleUser)
		inactive.IsActive = false
		seedUsers(store, admin, active1, active2, inactive)

		notifier := service.NewNotifier(store)
		count, err := notifier.SendToAll(ctx, admin.ID, models.RoleAdmin, "Maintenance", "Downtime at 22:00", models.NotificationInfo, nil)

		require.NoError(t, err)
		assert.Equal(t, 3, count) // admin тоже активен

		received, err := notifier.ListNotifications(ctx, active1.ID, false, 1, 10)
		require.NoError(t, err)
		require.Len(t, received, 1)
		assert.Equal(t, "Maintenance", received[0].Title)

		skipped, err := notifier.ListNotifications(ctx, inactive.ID, false, 1, 10)
		require.NoError(t, err)
		assert.Empty(t, skipped)

		// рассылка фиксируется в аудите
		logs := store.ListAuditLogs()
		require.Len(t, logs, 1)
		assert.Equal(t, "NOTIFICATION", logs[0].Entity)
	})

	t.Run("error - forbidden for regular user", func(t *testing.T) {
		store := inmemory.New()
		user := testUser(models.RoleUser)
		seedUsers(store, user)

		notifier := service.NewNotifier(store)
		_, err := notifier.SendToAll(ctx, user.ID, models.RoleUser, "Spam", "text", models.NotificationInfo, nil)

		require.Error(t, err)
		businessErr, ok := err.(*service.BusinessError)
		require.True(t, ok)
		assert.Equal(t, "FORBIDDEN", businessErr.Code)
	})

	t.Run("error - empty title", func(t *testing.T) {
		store := inmemory.New()

		notifier := service.NewNotifier(store)
		_, err := notifier.SendToAll(ctx, uuid.New(), models.RoleManager, "", "text", models.NotificationInfo, nil)

		require.Error(t, err)
		businessErr, ok := err.(*service.BusinessError)
		require.True(t, ok)
		assert.Equal(t, "VALIDATION_ERROR", businessErr.Code)
	})
}

// TestNotifier_SendToUser тестирует адресную отправку
func TestNotifier_SendToUser(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		store := inmemory.New()
		manager := testUser(models.RoleManager)
		recipient := testUser(models.RoleUser)
		seedUsers(store, manager, recipient)

		notifier := service.NewNotifier(store)
		n, err := notifier.SendToUser(ctx, manager.ID, models.RoleManager, recipient.ID, "Reminder", "Standup at 10", models.NotificationInfo, nil)

		require.NoError(t, err)
		assert.Equal(t, recipient.ID, n.UserID)

		received, err := notifier.ListNotifications(ctx, recipient.ID, false, 1, 10)
		require.NoError(t, err)
		require.Len(t, received, 1)
	})

	t.Run("error - inactive recipient", func(t *testing.T) {
		store := inmemory.New()
		manager := testUser(models.RoleManager)
		recipient := testUser(models.RoleUser)
		recipient.IsActive = false
		seedUsers(store, manager, recipient)

		notifier := service.NewNotifier(store)
		_, err := notifier.SendToUser(ctx, manager.ID, models.RoleManager, recipient.ID, "Reminder", "text", models.NotificationInfo, nil)

		require.Error(t, err)
		businessErr, ok := err.(*service.BusinessError)
		require.True(t, ok)
		assert.Equal(t, "VALIDATION_ERROR", businessErr.Code)
	})

	t.Run("error - forbidden for regular user", func(t *testing.T) {
		store := inmemory.New()

		notifier := service.NewNotifier(store)
		_, err := notifier.SendToUser(ctx, uuid.New(), models.RoleUser, uuid.New(), "Hi", "text", models.NotificationInfo, nil)

		require.Error(t, err)
	})
}

// TestNotifier_CheckDueDates тестирует напоминания о дедлайнах
func TestNotifier_CheckDueDates(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	assignee := testUser(models.RoleUser)
	creator := testUser(models.RoleManager)
	seedUsers(store, assignee, creator)

	tomorrow := time.Now().Add(24 * time.Hour)
	inFiveDays := time.Now().Add(5 * 24 * time.Hour)

	makeTask := func(title string, due *time.Time, status models.Status, assigned *uuid.UUID) *models.Task {
		return &models.Task{
			ID:         uuid.New(),
			Title:      title,
			Status:     status,
			DueDate:    due,
			AssignedTo: assigned,
			CreatedBy:  creator.ID,
			CreatedAt:  time.Now(),
		}
	}

	store.Seed(nil, []*models.Task{
		makeTask("due tomorrow", &tomorrow, models.StatusInProgress, &assignee.ID),
		makeTask("outside window", &inFiveDays, models.StatusInProgress, &assignee.ID),
		makeTask("already completed", &tomorrow, models.StatusCompleted, &assignee.ID),
		makeTask("nobody assigned", &tomorrow, models.StatusPending, nil),
		makeTask("no due date", nil, models.StatusPending, &assignee.ID),
	})

	notifier := service.NewNotifier(store)
	created, err := notifier.CheckDueDates(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, created)

	received, err := notifier.ListNotifications(ctx, assignee.ID, false, 1, 10)
	require.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "Due Date Reminder", received[0].Title)
	assert.Equal(t, models.NotificationWarning, received[0].Type)
	assert.Contains(t, received[0].Message, "due tomorrow")
}

// TestNotifier_MarkRead тестирует отметку о прочтении
func TestNotifier_MarkRead(t *testing.T) {
	ctx := context.Background()

	t.Run("owner marks own notification", func(t *testing.T) {
		store := inmemory.New()
		owner := testUser(models.RoleUser)
		seedUsers(store, owner)

		notifier := service.NewNotifier(store)
		require.NoError(t, notifier.Notify(ctx, owner.ID, "Hello", "text", models.NotificationInfo, nil))

		unread, err := notifier.ListNotifications(ctx, owner.ID, true, 1, 10)
		require.NoError(t, err)
		require.Len(t, unread, 1)

		require.NoError(t, notifier.MarkRead(ctx, unread[0].ID, owner.ID))

		unread, err = notifier.ListNotifications(ctx, owner.ID, true, 1, 10)
		require.NoError(t, err)
		assert.Empty(t, unread)
	})

	t.Run("error - foreign notification", func(t *testing.T) {
		store := inmemory.New()
		owner := testUser(models.RoleUser)
		stranger := testUser(models.RoleUser)
		seedUsers(store, owner, stranger)

		notifier := service.NewNotifier(store)
		require.NoError(t, notifier.Notify(ctx, owner.ID, "Private", "text", models.NotificationInfo, nil))

		list, err := notifier.ListNotifications(ctx, owner.ID, false, 1, 10)
		require.NoError(t, err)
		require.Len(t, list, 1)

		err = notifier.MarkRead(ctx, list[0].ID, stranger.ID)
		require.Error(t, err)
		businessErr, ok := err.(*service.BusinessError)
		require.True(t, ok)
		assert.Equal(t, "FORBIDDEN", businessErr.Code)
	})

	t.Run("mark all read", func(t *testing.T) {
		store := inmemory.New()
		owner := testUser(models.RoleUser)
		seedUsers(store, owner)

		notifier := service.NewNotifier(store)
		for i := 0; i < 3; i++ {
			require.NoError(t, notifier.Notify(ctx, owner.ID, "Bulk", "text", models.NotificationInfo, nil))
		}

		require.NoError(t, notifier.MarkAllRead(ctx, owner.ID))

		unread, err := notifier.ListNotifications(ctx, owner.ID, true, 1, 10)
		require.NoError(t, err)
		assert.Empty(t, unread)
	})
}

// TestNotifier_DeleteNotification тестирует удаление уведомлений
func TestNotifier_DeleteNotification(t *testing.T) {
	ctx := context.Background()
	store := inmemory.New()
	owner := testUser(models.RoleUser)
	stranger := testUser(models.RoleUser)
	seedUsers(store, owner, stranger)

	notifier := service.NewNotifier(store)
	require.NoError(t, notifier.Notify(ctx, owner.ID, "Removable", "text", models.NotificationInfo, nil))

	list, err := notifier.ListNotifications(ctx, owner.ID, false, 1, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// чужой пользователь без прав админа удалить не может
	err = notifier.DeleteNotification(ctx, list[0].ID, stranger.ID, models.RoleUser)
	require.Error(t, err)

	// админ может удалить любое
	require.NoError(t, notifier.DeleteNotification(ctx, list[0].ID, stranger.ID, models.RoleAdmin))

	list, err = notifier.ListNotifications(ctx, owner.ID, false, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

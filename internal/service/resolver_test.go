package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskManager/internal/models"
	"taskManager/internal/service"
)

func ptrInt(v int) *int                              { return &v }
func ptrStr(v string) *string                        { return &v }
func ptrStatus(v models.Status) *models.Status       { return &v }
func ptrPriority(v models.Priority) *models.Priority { return &v }

func baseTask() *models.Task {
	return &models.Task{
		ID:                   uuid.New(),
		Title:                "Deploy service",
		Description:          "Roll out to production",
		Category:             "DevOps",
		Status:               models.StatusPending,
		Priority:             models.PriorityMedium,
		CompletionPercentage: 0,
		CreatedBy:            uuid.New(),
		CreatedAt:            time.Now().Add(-48 * time.Hour),
	}
}

// TestResolveUpdate_PercentageValidation тестирует валидацию процента
func TestResolveUpdate_PercentageValidation(t *testing.T) {
	tests := []struct {
		name        string
		percentage  int
		expectError bool
	}{
		{name: "negative percentage", percentage: -1, expectError: true},
		{name: "over hundred", percentage: 101, expectError: true},
		{name: "lower bound", percentage: 0, expectError: false},
		{name: "upper bound", percentage: 100, expectError: false},
		{name: "middle", percentage: 50, expectError: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := baseTask()
			resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
				CompletionPercentage: ptrInt(tt.percentage),
			})

			if tt.expectError {
				assert.Error(t, err)
				businessErr, ok := err.(*service.BusinessError)
				require.True(t, ok)
				assert.Equal(t, "VALIDATION_ERROR", businessErr.Code)
				assert.Nil(t, resolution)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, resolution)
			}
		})
	}
}

// TestResolveUpdate_History тестирует создание записи истории
func TestResolveUpdate_History(t *testing.T) {
	t.Run("history created when percentage changes", func(t *testing.T) {
		old := baseTask()
		old.CompletionPercentage = 25

		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			CompletionPercentage: ptrInt(50),
		})

		require.NoError(t, err)
		require.NotNil(t, resolution.History)
		assert.Equal(t, old.ID, resolution.History.TaskID)
		assert.Equal(t, 25, resolution.History.PreviousPercentage)
		assert.Equal(t, 50, resolution.History.NewPercentage)
		assert.Equal(t, "Progress updated from 25% to 50%", resolution.History.Comment)
		assert.Equal(t, 50, resolution.Task.CompletionPercentage)
	})

	t.Run("no history when percentage equals current", func(t *testing.T) {
		old := baseTask()
		old.CompletionPercentage = 50

		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			CompletionPercentage: ptrInt(50),
		})

		require.NoError(t, err)
		assert.Nil(t, resolution.History)
		assert.Equal(t, 50, resolution.Task.CompletionPercentage)
	})

	t.Run("no history when percentage absent", func(t *testing.T) {
		old := baseTask()

		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			Title: ptrStr("New title"),
		})

		require.NoError(t, err)
		assert.Nil(t, resolution.History)
	})

	t.Run("caller comment overrides default", func(t *testing.T) {
		old := baseTask()

		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			CompletionPercentage: ptrInt(40),
			Comment:              ptrStr("Halfway through the rollout"),
		})

		require.NoError(t, err)
		require.NotNil(t, resolution.History)
		assert.Equal(t, "Halfway through the rollout", resolution.History.Comment)
	})

	t.Run("empty caller comment keeps default", func(t *testing.T) {
		old := baseTask()

		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			CompletionPercentage: ptrInt(40),
			Comment:              ptrStr(""),
		})

		require.NoError(t, err)
		require.NotNil(t, resolution.History)
		assert.Equal(t, "Progress updated from 0% to 40%", resolution.History.Comment)
	})
}

// TestResolveUpdate_AutoStatus тестирует автопереходы статуса
func TestResolveUpdate_AutoStatus(t *testing.T) {
	tests := []struct {
		name           string
		oldStatus      models.Status
		oldPercentage  int
		newPercentage  *int
		reqStatus      *models.Status
		expectedStatus models.Status
	}{
		{
			name:           "hundred percent promotes to completed",
			oldStatus:      models.StatusInProgress,
			newPercentage:  ptrInt(100),
			expectedStatus: models.StatusCompleted,
		},
		{
			name:           "partial progress promotes pending to in progress",
			oldStatus:      models.StatusPending,
			newPercentage:  ptrInt(30),
			expectedStatus: models.StatusInProgress,
		},
		{
			name:           "partial progress does not touch delayed",
			oldStatus:      models.StatusDelayed,
			newPercentage:  ptrInt(30),
			expectedStatus: models.StatusDelayed,
		},
		{
			name:           "no promotion without percentage change",
			oldStatus:      models.StatusPending,
			oldPercentage:  30,
			newPercentage:  ptrInt(30),
			expectedStatus: models.StatusPending,
		},
		{
			name:           "auto promotion wins over explicit status",
			oldStatus:      models.StatusInProgress,
			newPercentage:  ptrInt(100),
			reqStatus:      ptrStatus(models.StatusDelayed),
			expectedStatus: models.StatusCompleted,
		},
		{
			name:           "zero percent never promotes",
			oldStatus:      models.StatusPending,
			oldPercentage:  50,
			newPercentage:  ptrInt(0),
			expectedStatus: models.StatusPending,
		},
		{
			name:           "completed stays completed at hundred",
			oldStatus:      models.StatusCompleted,
			oldPercentage:  90,
			newPercentage:  ptrInt(100),
			expectedStatus: models.StatusCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := baseTask()
			old.Status = tt.oldStatus
			old.CompletionPercentage = tt.oldPercentage

			resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
				CompletionPercentage: tt.newPercentage,
				Status:               tt.reqStatus,
			})

			require.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, resolution.Task.Status)
		})
	}
}

// TestResolveUpdate_FieldPassthrough тестирует частичное обновление полей
func TestResolveUpdate_FieldPassthrough(t *testing.T) {
	t.Run("absent fields keep current values", func(t *testing.T) {
		old := baseTask()

		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{})

		require.NoError(t, err)
		assert.Equal(t, old.Title, resolution.Task.Title)
		assert.Equal(t, old.Description, resolution.Task.Description)
		assert.Equal(t, old.Category, resolution.Task.Category)
		assert.Equal(t, old.Priority, resolution.Task.Priority)
		assert.Equal(t, old.Status, resolution.Task.Status)
		assert.NotNil(t, resolution.Task.UpdatedAt)
	})

	t.Run("empty strings are ignored", func(t *testing.T) {
		old := baseTask()

		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			Title:       ptrStr(""),
			Description: ptrStr(""),
			Category:    ptrStr(""),
		})

		require.NoError(t, err)
		assert.Equal(t, old.Title, resolution.Task.Title)
		assert.Equal(t, old.Description, resolution.Task.Description)
		assert.Equal(t, old.Category, resolution.Task.Category)
	})

	t.Run("explicit fields replace values", func(t *testing.T) {
		old := baseTask()

		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			Title:    ptrStr("Renamed"),
			Priority: ptrPriority(models.PriorityUrgent),
			Status:   ptrStatus(models.StatusDelayed),
		})

		require.NoError(t, err)
		assert.Equal(t, "Renamed", resolution.Task.Title)
		assert.Equal(t, models.PriorityUrgent, resolution.Task.Priority)
		assert.Equal(t, models.StatusDelayed, resolution.Task.Status)
	})

	t.Run("unknown status rejected", func(t *testing.T) {
		old := baseTask()

		_, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			Status: ptrStatus("ARCHIVED"),
		})

		assert.Error(t, err)
	})

	t.Run("unknown priority rejected", func(t *testing.T) {
		old := baseTask()

		_, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			Priority: ptrPriority("CRITICAL"),
		})

		assert.Error(t, err)
	})

	t.Run("original task is not modified", func(t *testing.T) {
		old := baseTask()
		titleBefore := old.Title
		pctBefore := old.CompletionPercentage

		_, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			Title:                ptrStr("Changed"),
			CompletionPercentage: ptrInt(77),
		})

		require.NoError(t, err)
		assert.Equal(t, titleBefore, old.Title)
		assert.Equal(t, pctBefore, old.CompletionPercentage)
		assert.Nil(t, old.UpdatedAt)
	})
}

// TestResolveUpdate_TriState тестирует трёхзначную семантику dueDate и assignedTo
func TestResolveUpdate_TriState(t *testing.T) {
	assignee := uuid.New()
	due := time.Now().Add(72 * time.Hour)

	t.Run("absent pointers keep values", func(t *testing.T) {
		old := baseTask()
		old.AssignedTo = &assignee
		old.DueDate = &due

		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{})

		require.NoError(t, err)
		require.NotNil(t, resolution.Task.AssignedTo)
		assert.Equal(t, assignee, *resolution.Task.AssignedTo)
		require.NotNil(t, resolution.Task.DueDate)
	})

	t.Run("nil uuid clears assignee", func(t *testing.T) {
		old := baseTask()
		old.AssignedTo = &assignee

		nilID := uuid.Nil
		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			AssignedTo: &nilID,
		})

		require.NoError(t, err)
		assert.Nil(t, resolution.Task.AssignedTo)
	})

	t.Run("zero time clears due date", func(t *testing.T) {
		old := baseTask()
		old.DueDate = &due

		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			DueDate: &time.Time{},
		})

		require.NoError(t, err)
		assert.Nil(t, resolution.Task.DueDate)
	})

	t.Run("new values replace", func(t *testing.T) {
		old := baseTask()

		newAssignee := uuid.New()
		newDue := time.Now().Add(7 * 24 * time.Hour)
		resolution, err := service.ResolveUpdate(old, service.UpdateTaskRequest{
			AssignedTo: &newAssignee,
			DueDate:    &newDue,
		})

		require.NoError(t, err)
		require.NotNil(t, resolution.Task.AssignedTo)
		assert.Equal(t, newAssignee, *resolution.Task.AssignedTo)
		require.NotNil(t, resolution.Task.DueDate)
		assert.True(t, resolution.Task.DueDate.Equal(newDue))
	})
}

// TestResolveUpdate_Idempotent тестирует идемпотентность повторного запроса
func TestResolveUpdate_Idempotent(t *testing.T) {
	old := baseTask()
	req := service.UpdateTaskRequest{CompletionPercentage: ptrInt(60)}

	first, err := service.ResolveUpdate(old, req)
	require.NoError(t, err)
	require.NotNil(t, first.History)

	// повторное применение того же запроса к уже обновлённой задаче
	second, err := service.ResolveUpdate(first.Task, req)
	require.NoError(t, err)
	assert.Nil(t, second.History)
	assert.Equal(t, first.Task.CompletionPercentage, second.Task.CompletionPercentage)
	assert.Equal(t, first.Task.Status, second.Task.Status)
}

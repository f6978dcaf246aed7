package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"taskManager/internal/models"
)

// Resolution - результат чистого разрешения обновления: итоговые поля задачи
// и запись истории прогресса, если процент изменился.
type Resolution struct {
	Task    *models.Task
	History *models.ProgressHistory
}

// ResolveUpdate - чистая функция без побочных эффектов. По текущему состоянию
// задачи и частичному запросу вычисляет итоговые поля, запись истории и
// автопереход статуса. Исходная задача не модифицируется.
func ResolveUpdate(old *models.Task, req UpdateTaskRequest) (*Resolution, error) {
	if req.CompletionPercentage != nil {
		if *req.CompletionPercentage < 0 || *req.CompletionPercentage > 100 {
			return nil, NewValidationError("completion_percentage", "процент должен быть от 0 до 100")
		}
	}

	if req.Status != nil && !models.ValidStatus(*req.Status) {
		return nil, NewValidationError("status", fmt.Sprintf("неизвестный статус %q", *req.Status))
	}

	if req.Priority != nil && !models.ValidPriority(*req.Priority) {
		return nil, NewValidationError("priority", fmt.Sprintf("неизвестный приоритет %q", *req.Priority))
	}

	updated := *old
	var history *models.ProgressHistory

	if req.CompletionPercentage != nil && *req.CompletionPercentage != old.CompletionPercentage {
		comment := fmt.Sprintf("Progress updated from %d%% to %d%%",
			old.CompletionPercentage, *req.CompletionPercentage)
		if req.Comment != nil && *req.Comment != "" {
			comment = *req.Comment
		}

		history = &models.ProgressHistory{
			ID:                 uuid.New(),
			TaskID:             old.ID,
			PreviousPercentage: old.CompletionPercentage,
			NewPercentage:      *req.CompletionPercentage,
			Comment:            comment,
			CreatedAt:          time.Now(),
		}
		updated.CompletionPercentage = *req.CompletionPercentage
	}

	if req.Status != nil {
		updated.Status = *req.Status
	}

	// автопереход статуса - только если процент реально поменялся,
	// и только как повышение: назад статус не откатывается
	if history != nil {
		pct := updated.CompletionPercentage
		if pct == 100 && old.Status != models.StatusCompleted {
			updated.Status = models.StatusCompleted
		} else if pct > 0 && pct < 100 && old.Status == models.StatusPending {
			updated.Status = models.StatusInProgress
		}
	}

	if req.Title != nil && *req.Title != "" {
		updated.Title = *req.Title
	}
	if req.Description != nil && *req.Description != "" {
		updated.Description = *req.Description
	}
	if req.Category != nil && *req.Category != "" {
		updated.Category = *req.Category
	}
	if req.Priority != nil {
		updated.Priority = *req.Priority
	}

	if req.DueDate != nil {
		if req.DueDate.IsZero() {
			updated.DueDate = nil
		} else {
			due := *req.DueDate
			updated.DueDate = &due
		}
	}

	if req.AssignedTo != nil {
		if *req.AssignedTo == uuid.Nil {
			updated.AssignedTo = nil
		} else {
			assignee := *req.AssignedTo
			updated.AssignedTo = &assignee
		}
	}

	now := time.Now()
	updated.UpdatedAt = &now

	return &Resolution{Task: &updated, History: history}, nil
}

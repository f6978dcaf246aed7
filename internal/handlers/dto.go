package handlers

import (
	"time"

	"github.com/google/uuid"

	"taskManager/internal/models"
	"taskManager/internal/service"
)

type CreateTaskRequest struct {
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Category             string     `json:"category"`
	Status               string     `json:"status,omitempty"`
	Priority             string     `json:"priority,omitempty"`
	CompletionPercentage int        `json:"completion_percentage"`
	DueDate              *time.Time `json:"due_date,omitempty"`
	AssignedTo           *string    `json:"assigned_to,omitempty"`
}

// UpdateTaskRequest - частичное обновление. Отсутствующее поле не меняет
// значение. Пустая строка в assigned_to снимает назначение, пустая строка
// в due_date очищает дедлайн.
type UpdateTaskRequest struct {
	Title                *string `json:"title,omitempty"`
	Description          *string `json:"description,omitempty"`
	Category             *string `json:"category,omitempty"`
	Status               *string `json:"status,omitempty"`
	Priority             *string `json:"priority,omitempty"`
	CompletionPercentage *int    `json:"completion_percentage,omitempty"`
	DueDate              *string `json:"due_date,omitempty"`
	AssignedTo           *string `json:"assigned_to,omitempty"`
	Comment              *string `json:"comment,omitempty"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

type ExpediteRequest struct {
	Message string `json:"message"`
}

type SendNotificationRequest struct {
	UserID  string  `json:"user_id"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Type    string  `json:"type,omitempty"`
	TaskID  *string `json:"task_id,omitempty"`
}

type BroadcastRequest struct {
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Type    string  `json:"type,omitempty"`
	TaskID  *string `json:"task_id,omitempty"`
}

func (r CreateTaskRequest) toService() (service.CreateTaskRequest, error) {
	req := service.CreateTaskRequest{
		Title:                r.Title,
		Description:          r.Description,
		Category:             r.Category,
		Status:               models.Status(r.Status),
		Priority:             models.Priority(r.Priority),
		CompletionPercentage: r.CompletionPercentage,
		DueDate:              r.DueDate,
	}
	if r.AssignedTo != nil && *r.AssignedTo != "" {
		id, err := uuid.Parse(*r.AssignedTo)
		if err != nil {
			return req, err
		}
		req.AssignedTo = &id
	}
	return req, nil
}

func (r UpdateTaskRequest) toService() (service.UpdateTaskRequest, error) {
	req := service.UpdateTaskRequest{
		Title:                r.Title,
		Description:          r.Description,
		Category:             r.Category,
		CompletionPercentage: r.CompletionPercentage,
		Comment:              r.Comment,
	}
	if r.Status != nil {
		status := models.Status(*r.Status)
		req.Status = &status
	}
	if r.Priority != nil {
		priority := models.Priority(*r.Priority)
		req.Priority = &priority
	}
	if r.DueDate != nil {
		if *r.DueDate == "" {
			req.DueDate = &time.Time{}
		} else {
			due, err := time.Parse(time.RFC3339, *r.DueDate)
			if err != nil {
				return req, err
			}
			req.DueDate = &due
		}
	}
	if r.AssignedTo != nil {
		if *r.AssignedTo == "" {
			nilID := uuid.Nil
			req.AssignedTo = &nilID
		} else {
			id, err := uuid.Parse(*r.AssignedTo)
			if err != nil {
				return req, err
			}
			req.AssignedTo = &id
		}
	}
	return req, nil
}

type TaskResponse struct {
	ID                   uuid.UUID       `json:"id"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	Category             string          `json:"category"`
	Status               string          `json:"status"`
	Priority             string          `json:"priority"`
	CompletionPercentage int             `json:"completion_percentage"`
	DueDate              *time.Time      `json:"due_date,omitempty"`
	AssignedTo           *uuid.UUID      `json:"assigned_to,omitempty"`
	Assignee             *models.UserRef `json:"assignee,omitempty"`
	CreatedBy            uuid.UUID       `json:"created_by"`
	Creator              *models.UserRef `json:"creator,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            *time.Time      `json:"updated_at,omitempty"`
	IsOverdue            bool            `json:"is_overdue"`
}

func fromTask(t *models.Task) TaskResponse {
	return TaskResponse{
		ID:                   t.ID,
		Title:                t.Title,
		Description:          t.Description,
		Category:             t.Category,
		Status:               string(t.Status),
		Priority:             string(t.Priority),
		CompletionPercentage: t.CompletionPercentage,
		DueDate:              t.DueDate,
		AssignedTo:           t.AssignedTo,
		Assignee:             t.Assignee,
		CreatedBy:            t.CreatedBy,
		Creator:              t.Creator,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
		IsOverdue: t.Status != models.StatusCompleted &&
			t.DueDate != nil && t.DueDate.Before(time.Now()),
	}
}

func fromTaskList(tasks []*models.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = fromTask(t)
	}
	return result
}

type TaskDetailResponse struct {
	TaskResponse
	Comments []*models.Comment         `json:"comments"`
	History  []*models.ProgressHistory `json:"progress_history"`
}

func fromTaskDetail(d *service.TaskDetail) TaskDetailResponse {
	return TaskDetailResponse{
		TaskResponse: fromTask(d.Task),
		Comments:     d.Comments,
		History:      d.History,
	}
}

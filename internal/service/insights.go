package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskManager/internal/logger"
	"taskManager/internal/models"
	"taskManager/internal/repository"
	"taskManager/internal/repository/inter"
)

// InsightsService - агрегация статистики по корпусу задач.
// Только чтение, никакого состояния между вызовами.
type InsightsService struct {
	store inter.Store
}

func NewInsightsService(store inter.Store) InsightsService {
	return InsightsService{store: store}
}

type InsightsSummary struct {
	TotalTasks      int `json:"totalTasks"`
	CompletedTasks  int `json:"completedTasks"`
	InProgressTasks int `json:"inProgressTasks"`
	PendingTasks    int `json:"pendingTasks"`
	DelayedTasks    int `json:"delayedTasks"`
	TasksDueSoon    int `json:"tasksDueSoon"`
	OverdueTasks    int `json:"overdueTasks"`
}

type StatusCount struct {
	Status     string `json:"status"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type CategoryCount struct {
	Category   string `json:"category"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type TaskDistribution struct {
	ByStatus   []StatusCount   `json:"byStatus"`
	ByCategory []CategoryCount `json:"byCategory"`
}

type Performer struct {
	User           *models.UserRef `json:"user"`
	CompletedTasks int             `json:"completedTasks"`
}

type Performance struct {
	AverageCompletionDays float64     `json:"averageCompletionDays"`
	TopPerformers         []Performer `json:"topPerformers"`
}

type Recommendation struct {
	Type    string `json:"type"` // warning, danger, info, success
	Message string `json:"message"`
}

type InsightsReport struct {
	Summary          InsightsSummary  `json:"summary"`
	TaskDistribution TaskDistribution `json:"taskDistribution"`
	Performance      Performance      `json:"performance"`
	Recommendations  []Recommendation `json:"recommendations"`
}

type MonthCount struct {
	Month string `json:"month"` // формат 2006-01
	Count int    `json:"count"`
}

type UserInsightsReport struct {
	User                  *models.UserRef `json:"user"`
	Role                  models.Role     `json:"role"`
	TotalTasks            int             `json:"totalTasks"`
	ByStatus              []StatusCount   `json:"byStatus"`
	ByCategory            []CategoryCount `json:"byCategory"`
	CompletedLast30Days   int             `json:"completedLast30Days"`
	AverageCompletionDays float64         `json:"averageCompletionDays"`
	TasksMonthly          []MonthCount    `json:"tasksMonthly"`
}

// percentage с защитой от деления на ноль: пустой корпус - это 0%, не ошибка.
func percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) / float64(total) * 100))
}

func roundDays(days float64) float64 {
	return math.Round(days*10) / 10
}

// averageCompletionDays - среднее (updatedAt - createdAt) в днях по
// завершённым задачам, один знак после запятой. Без завершённых задач - 0.
func averageCompletionDays(tasks []*models.Task) float64 {
	if len(tasks) == 0 {
		return 0
	}

	totalDays := 0.0
	for _, t := range tasks {
		finished := t.CreatedAt
		if t.UpdatedAt != nil {
			finished = *t.UpdatedAt
		}
		totalDays += finished.Sub(t.CreatedAt).Hours() / 24
	}
	return roundDays(totalDays / float64(len(tasks)))
}

func (s *InsightsService) Generate(ctx context.Context) (*InsightsReport, error) {
	start := time.Now()

	totalTasks, err := s.store.CountTasks(ctx, repository.TaskFilter{})
	if err != nil {
		return nil, NewStorageError("count_tasks", err)
	}

	byStatus, err := s.store.GroupTasksBy(ctx, "status", repository.TaskFilter{})
	if err != nil {
		return nil, NewStorageError("group_by_status", err)
	}

	byCategory, err := s.store.GroupTasksBy(ctx, "category", repository.TaskFilter{})
	if err != nil {
		return nil, NewStorageError("group_by_category", err)
	}

	statusCount := func(status models.Status) int {
		for _, g := range byStatus {
			if g.Key == string(status) {
				return g.Count
			}
		}
		return 0
	}

	now := time.Now()
	nextWeek := now.AddDate(0, 0, 7)
	notCompleted := models.StatusCompleted

	tasksDueSoon, err := s.store.CountTasks(ctx, repository.TaskFilter{
		DueAfter:  &now,
		DueBefore: &nextWeek,
		NotStatus: &notCompleted,
	})
	if err != nil {
		return nil, NewStorageError("count_due_soon", err)
	}

	overdueTasks, err := s.store.CountTasks(ctx, repository.TaskFilter{
		DueBefore: &now,
		NotStatus: &notCompleted,
	})
	if err != nil {
		return nil, NewStorageError("count_overdue", err)
	}

	completedStatus := models.StatusCompleted
	completedTasks, err := s.store.ListTasks(ctx, repository.TaskFilter{Status: &completedStatus})
	if err != nil {
		return nil, NewStorageError("list_completed", err)
	}

	topPerformers, err := s.topPerformers(ctx)
	if err != nil {
		return nil, err
	}

	summary := InsightsSummary{
		TotalTasks:      totalTasks,
		CompletedTasks:  statusCount(models.StatusCompleted),
		InProgressTasks: statusCount(models.StatusInProgress),
		PendingTasks:    statusCount(models.StatusPending),
		DelayedTasks:    statusCount(models.StatusDelayed),
		TasksDueSoon:    tasksDueSoon,
		OverdueTasks:    overdueTasks,
	}

	report := &InsightsReport{
		Summary: summary,
		TaskDistribution: TaskDistribution{
			ByStatus:   statusDistribution(byStatus, totalTasks),
			ByCategory: categoryDistribution(byCategory, totalTasks),
		},
		Performance: Performance{
			AverageCompletionDays: averageCompletionDays(completedTasks),
			TopPerformers:         topPerformers,
		},
	}
	report.Recommendations = recommendations(summary, report.Performance.AverageCompletionDays)

	logger.Info("Insights: Отчёт собран",
		zap.Int("total_tasks", totalTasks),
		zap.Duration("ms", time.Since(start)))
	return report, nil
}

func statusDistribution(groups []repository.GroupCount, total int) []StatusCount {
	result := make([]StatusCount, len(groups))
	for i, g := range groups {
		result[i] = StatusCount{
			Status:     g.Key,
			Count:      g.Count,
			Percentage: percentage(g.Count, total),
		}
	}
	return result
}

func categoryDistribution(groups []repository.GroupCount, total int) []CategoryCount {
	result := make([]CategoryCount, len(groups))
	for i, g := range groups {
		result[i] = CategoryCount{
			Category:   g.Key,
			Count:      g.Count,
			Percentage: percentage(g.Count, total),
		}
	}
	return result
}

// topPerformers - пять пользователей с наибольшим числом завершённых задач.
// При равенстве счётчиков порядок детерминирован сортировкой по id.
func (s *InsightsService) topPerformers(ctx context.Context) ([]Performer, error) {
	completed := models.StatusCompleted
	groups, err := s.store.GroupTasksBy(ctx, "assigned_to", repository.TaskFilter{
		Status:       &completed,
		AssignedOnly: true,
	})
	if err != nil {
		return nil, NewStorageError("group_by_assignee", err)
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Count != groups[j].Count {
			return groups[i].Count > groups[j].Count
		}
		return groups[i].Key < groups[j].Key
	})

	if len(groups) > 5 {
		groups = groups[:5]
	}

	performers := []Performer{}
	for _, g := range groups {
		userID, err := uuid.Parse(g.Key)
		if err != nil {
			continue
		}
		user, err := s.store.GetUserByID(ctx, userID)
		if err != nil {
			logger.Warn("Insights: Исполнитель не найден", zap.String("user_id", g.Key))
			continue
		}
		performers = append(performers, Performer{
			User:           user.Ref(),
			CompletedTasks: g.Count,
		})
	}
	return performers, nil
}

// recommendations - независимые правила, срабатывают все применимые.
func recommendations(s InsightsSummary, avgDays float64) []Recommendation {
	result := []Recommendation{}

	if s.DelayedTasks > 0 {
		result = append(result, Recommendation{
			Type:    "warning",
			Message: fmt.Sprintf("You have %d delayed tasks. Consider reassigning or breaking them down into smaller tasks.", s.DelayedTasks),
		})
	}

	if s.OverdueTasks > 0 {
		result = append(result, Recommendation{
			Type:    "danger",
			Message: fmt.Sprintf("%d tasks are overdue. Prioritize these tasks to avoid further delays.", s.OverdueTasks),
		})
	}

	if s.TasksDueSoon > 0 {
		result = append(result, Recommendation{
			Type:    "info",
			Message: fmt.Sprintf("%d tasks are due in the next 7 days. Plan your resources accordingly.", s.TasksDueSoon),
		})
	}

	if s.TotalTasks > 0 {
		completionRate := float64(s.CompletedTasks) / float64(s.TotalTasks) * 100
		if completionRate < 30 {
			result = append(result, Recommendation{
				Type:    "warning",
				Message: fmt.Sprintf("Your task completion rate is low (%d%%). Consider reviewing your task assignment strategy.", int(math.Round(completionRate))),
			})
		} else if completionRate > 80 {
			result = append(result, Recommendation{
				Type:    "success",
				Message: fmt.Sprintf("Great job! Your team has a high task completion rate (%d%%).", int(math.Round(completionRate))),
			})
		}
	}

	if avgDays > 14 {
		result = append(result, Recommendation{
			Type:    "info",
			Message: fmt.Sprintf("Tasks take an average of %.1f days to complete. Consider breaking down tasks into smaller, more manageable pieces.", avgDays),
		})
	}

	if len(result) == 0 {
		result = append(result, Recommendation{
			Type:    "success",
			Message: "Your project is on track. Keep up the good work!",
		})
	}

	return result
}

// GenerateForUser - статистика по задачам одного пользователя плюс помесячный
// ряд созданных задач за последние полгода для графика тренда.
func (s *InsightsService) GenerateForUser(ctx context.Context, userID uuid.UUID) (*UserInsightsReport, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewNotFound("пользователь", userID.String())
		}
		return nil, NewStorageError("get_user", err)
	}

	byStatus, err := s.store.GroupTasksBy(ctx, "status", repository.TaskFilter{InvolvedUser: &userID})
	if err != nil {
		return nil, NewStorageError("group_by_status", err)
	}

	byCategory, err := s.store.GroupTasksBy(ctx, "category", repository.TaskFilter{InvolvedUser: &userID})
	if err != nil {
		return nil, NewStorageError("group_by_category", err)
	}

	total := 0
	for _, g := range byStatus {
		total += g.Count
	}

	completed := models.StatusCompleted
	completedTasks, err := s.store.ListTasks(ctx, repository.TaskFilter{
		Status:       &completed,
		InvolvedUser: &userID,
	})
	if err != nil {
		return nil, NewStorageError("list_completed", err)
	}

	monthAgo := time.Now().AddDate(0, 0, -30)
	completedRecently := 0
	for _, t := range completedTasks {
		if t.UpdatedAt != nil && t.UpdatedAt.After(monthAgo) {
			completedRecently++
		}
	}

	sixMonthsAgo := time.Now().AddDate(0, -6, 0)
	recentTasks, err := s.store.ListTasks(ctx, repository.TaskFilter{
		InvolvedUser: &userID,
		CreatedAfter: &sixMonthsAgo,
	})
	if err != nil {
		return nil, NewStorageError("list_recent", err)
	}

	monthly := map[string]int{}
	for _, t := range recentTasks {
		monthly[t.CreatedAt.Format("2006-01")]++
	}
	months := make([]string, 0, len(monthly))
	for m := range monthly {
		months = append(months, m)
	}
	sort.Strings(months)

	series := make([]MonthCount, len(months))
	for i, m := range months {
		series[i] = MonthCount{Month: m, Count: monthly[m]}
	}

	return &UserInsightsReport{
		User:                  user.Ref(),
		Role:                  user.Role,
		TotalTasks:            total,
		ByStatus:              statusDistribution(byStatus, total),
		ByCategory:            categoryDistribution(byCategory, total),
		CompletedLast30Days:   completedRecently,
		AverageCompletionDays: averageCompletionDays(completedTasks),
		TasksMonthly:          series,
	}, nil
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/models"
	"taskManager/internal/repository"
)

type TaskHandler struct {
	TaskService TaskService
}

func NewTaskHandler(taskService TaskService) TaskHandler {
	return TaskHandler{
		TaskService: taskService,
	}
}

// parseID достаёт uuid из параметра пути.
func parseID(r *http.Request, param string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, param))
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	if !checkContentType(r, "application/json") {

		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusUnsupportedMediaType, "Content-Type должен быть application/json")
		return
	}

	var request CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {

		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	serviceReq, err := request.toService()
	if err != nil {

		logger.Warn("HTTP: Ошибка валидации",
			zap.String("field", "assigned_to"),
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверный идентификатор исполнителя:"+err.Error())
		return
	}

	requesterID := middleware.GetUserID(r.Context())

	logger.Info("HTTP: Вызов сервиса создания задачи")

	task, err := h.TaskService.CreateTask(r.Context(), requesterID, serviceReq)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "create_task"),
			zap.String("client_ip", r.RemoteAddr),
			zap.Duration("ms", time.Since(start)))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", task.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, toPayload("task", fromTask(task)))
}

func (h *TaskHandler) GetTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseID(r, "id")
	if err != nil {

		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id:"+err.Error())
		return
	}

	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	logger.Info("HTTP: Вызов сервиса для получения задачи")

	detail, err := h.TaskService.GetTask(r.Context(), id, requesterID, requesterRole)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка в Service", err,
			zap.String("operation", "get_task"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Задача получена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("task", fromTaskDetail(detail)))
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	filter := repository.TaskFilter{}

	if status := r.URL.Query().Get("status"); status != "" {
		value := models.Status(status)
		filter.Status = &value
	}

	if category := r.URL.Query().Get("category"); category != "" {
		filter.Category = &category
	}

	if page := r.URL.Query().Get("page"); page != "" {
		value, err := strconv.Atoi(page)
		if err != nil || value < 1 {

			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "page"),
				zap.String("client_ip", r.RemoteAddr))

			responseWithError(w, http.StatusBadRequest, "неверное значение page")
			return
		}
		filter.Page = value
	}

	if limit := r.URL.Query().Get("limit"); limit != "" {
		value, err := strconv.Atoi(limit)
		if err != nil || value < 1 {

			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "limit"),
				zap.String("client_ip", r.RemoteAddr))

			responseWithError(w, http.StatusBadRequest, "неверное значение limit")
			return
		}
		filter.Limit = value
	}

	if assigned := r.URL.Query().Get("assigned_to"); assigned != "" {
		id, err := uuid.Parse(assigned)
		if err != nil {

			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "assigned_to"),
				zap.Error(err),
				zap.String("client_ip", r.RemoteAddr))

			responseWithError(w, http.StatusBadRequest, "неверное значение assigned_to")
			return
		}
		filter.AssignedTo = &id
	}

	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	logger.Info("HTTP: Вызов сервиса для получения задач")

	tasks, err := h.TaskService.ListTasks(r.Context(), requesterID, requesterRole, filter)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "list_tasks"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("tasks", fromTaskList(tasks)))
}

func (h *TaskHandler) UpdateTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseID(r, "id")
	if err != nil {

		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id:"+err.Error())
		return
	}

	var request UpdateTaskRequest

	decoder := json.NewDecoder(r.Body)
	defer r.Body.Close()

	if err := decoder.Decode(&request); err != nil {

		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверно переданы параметры обновления:"+err.Error())
		return
	}

	serviceReq, err := request.toService()
	if err != nil {

		logger.Warn("HTTP: Ошибка валидации",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверно переданы параметры обновления:"+err.Error())
		return
	}

	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	logger.Info("HTTP: запрос к сервису обновления задачи")

	task, err := h.TaskService.UpdateTask(r.Context(), id, requesterID, requesterRole, serviceReq)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: ошибка в Service", err,
			zap.String("operation", "update_task"),
			zap.String("client_addr", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("task", fromTask(task)))
}

func (h *TaskHandler) DeleteTaskByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseID(r, "id")
	if err != nil {

		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id:"+err.Error())
		return
	}

	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	logger.Info("HTTP: Обращение к сервису для удаления задачи")

	if err := h.TaskService.DeleteTask(r.Context(), id, requesterID, requesterRole); err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: ошибка в Service", err,
			zap.String("operation", "delete_task"),
			zap.String("client_addr", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("message", "задача удалена"))
}

func (h *TaskHandler) ExpediteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	id, err := parseID(r, "id")
	if err != nil {

		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id:"+err.Error())
		return
	}

	var request ExpediteRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {

		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	logger.Info("HTTP: Вызов сервиса ускорения задачи")

	comment, err := h.TaskService.ExpediteTask(r.Context(), id, requesterID, requesterRole, request.Message)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "expedite_task"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Запрос на ускорение отправлен",
		zap.String("task_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("comment", comment))
}

func (h *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {

	logger.HttpRequestInfo(r, "HTTP: Health check")

	if err := h.TaskService.HealthCheck(r.Context()); err != nil {
		responseWithJSON(w, http.StatusServiceUnavailable, toPayload("status", "unhealthy"))
		return
	}

	responseWithJSON(w, http.StatusOK, toPayload("status", "ok"))
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/models"
)

type NotificationHandler struct {
	Notifications NotificationService
}

func NewNotificationHandler(notifications NotificationService) NotificationHandler {
	return NotificationHandler{
		Notifications: notifications,
	}
}

func parseNotificationType(raw string) (models.NotificationType, bool) {
	if raw == "" {
		return models.NotificationInfo, true
	}
	typ := models.NotificationType(raw)
	return typ, models.ValidNotificationType(typ)
}

func parseTaskRef(raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// ListNotifications отдаёт уведомления запрашивающего пользователя.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	unreadOnly := r.URL.Query().Get("unread") == "true"

	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {

			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "page"),
				zap.String("client_ip", r.RemoteAddr))

			responseWithError(w, http.StatusBadRequest, "неверное значение page")
			return
		}
		page = value
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 {

			logger.Warn("HTTP: Неверное значение параметра",
				zap.String("query", "limit"),
				zap.String("client_ip", r.RemoteAddr))

			responseWithError(w, http.StatusBadRequest, "неверное значение limit")
			return
		}
		limit = value
	}

	requesterID := middleware.GetUserID(r.Context())

	logger.Info("HTTP: Вызов сервиса для получения уведомлений")

	notifications, err := h.Notifications.ListNotifications(r.Context(), requesterID, unreadOnly, page, limit)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "list_notifications"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Уведомления получены",
		zap.Int("count", len(notifications)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("notifications", notifications))
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
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

	logger.Info("HTTP: Вызов сервиса отметки уведомления")

	if err := h.Notifications.MarkRead(r.Context(), id, requesterID); err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "mark_read"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Уведомление прочитано",
		zap.String("notification_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("message", "уведомление помечено прочитанным"))
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	requesterID := middleware.GetUserID(r.Context())

	logger.Info("HTTP: Вызов сервиса отметки всех уведомлений")

	if err := h.Notifications.MarkAllRead(r.Context(), requesterID); err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "mark_all_read"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Все уведомления прочитаны",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("message", "все уведомления помечены прочитанными"))
}

func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
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

	logger.Info("HTTP: Вызов сервиса удаления уведомления")

	if err := h.Notifications.DeleteNotification(r.Context(), id, requesterID, requesterRole); err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "delete_notification"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Уведомление удалено",
		zap.String("notification_id", id.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("message", "уведомление удалено"))
}

// SendNotification - адресная отправка уведомления, доступна админам и
// менеджерам.
func (h *NotificationHandler) SendNotification(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request SendNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {

		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	userID, err := uuid.Parse(request.UserID)
	if err != nil {

		logger.Warn("HTTP: Неверное значение параметра",
			zap.String("field", "user_id"),
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное значение user_id")
		return
	}

	typ, ok := parseNotificationType(request.Type)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "неверный тип уведомления")
		return
	}

	taskID, err := parseTaskRef(request.TaskID)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное значение task_id")
		return
	}

	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	logger.Info("HTTP: Вызов сервиса отправки уведомления")

	notification, err := h.Notifications.SendToUser(r.Context(), requesterID, requesterRole, userID, request.Title, request.Message, typ, taskID)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "send_notification"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Уведомление отправлено",
		zap.String("notification_id", notification.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, toPayload("notification", notification))
}

// Broadcast рассылает уведомление всем активным пользователям.
func (h *NotificationHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	var request BroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {

		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	typ, ok := parseNotificationType(request.Type)
	if !ok {
		responseWithError(w, http.StatusBadRequest, "неверный тип уведомления")
		return
	}

	taskID, err := parseTaskRef(request.TaskID)
	if err != nil {
		responseWithError(w, http.StatusBadRequest, "неверное значение task_id")
		return
	}

	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	logger.Info("HTTP: Вызов сервиса массовой рассылки")

	count, err := h.Notifications.SendToAll(r.Context(), requesterID, requesterRole, request.Title, request.Message, typ, taskID)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "broadcast"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Рассылка завершена",
		zap.Int("recipients", count),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("recipients", count))
}

// CheckDueDates запускает проверку дедлайнов вручную.
func (h *NotificationHandler) CheckDueDates(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	requesterRole := middleware.GetUserRole(r.Context())
	if requesterRole != models.RoleAdmin && requesterRole != models.RoleManager {

		logger.Warn("HTTP: Недостаточно прав",
			zap.String("role", string(requesterRole)),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusForbidden, "недостаточно прав")
		return
	}

	logger.Info("HTTP: Запуск проверки дедлайнов")

	count, err := h.Notifications.CheckDueDates(r.Context())
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "check_due_dates"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Проверка дедлайнов завершена",
		zap.Int("notifications", count),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("notifications_created", count))
}

package handlers

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"taskManager/internal/logger"
	"taskManager/internal/middleware"
	"taskManager/internal/models"
)

type InsightsHandler struct {
	Insights InsightsService
}

func NewInsightsHandler(insights InsightsService) InsightsHandler {
	return InsightsHandler{
		Insights: insights,
	}
}

// GetInsights отдаёт сводный отчёт по всему корпусу задач. Доступен
// любому аутентифицированному пользователю.
func (h *InsightsHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	logger.Info("HTTP: Вызов сервиса аналитики")

	report, err := h.Insights.Generate(r.Context())
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "insights"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Отчёт сформирован",
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("insights", report))
}

// GetUserInsights отдаёт персональный отчёт. Пользователь видит только
// свой, админ и менеджер любой.
func (h *InsightsHandler) GetUserInsights(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	userID, err := parseID(r, "id")
	if err != nil {

		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id:"+err.Error())
		return
	}

	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	if requesterRole != models.RoleAdmin && requesterRole != models.RoleManager && requesterID != userID {

		logger.Warn("HTTP: Недостаточно прав",
			zap.String("role", string(requesterRole)),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusForbidden, "недостаточно прав")
		return
	}

	logger.Info("HTTP: Вызов сервиса персональной аналитики")

	report, err := h.Insights.GenerateForUser(r.Context(), userID)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "user_insights"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Персональный отчёт сформирован",
		zap.String("user_id", userID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("insights", report))
}

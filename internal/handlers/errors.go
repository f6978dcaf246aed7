package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"taskManager/internal/logger"
	"taskManager/internal/service"
)

// handleBusinessError переводит ошибку сервиса в HTTP-ответ. Возвращает true,
// если ошибка была бизнес-ошибкой и ответ уже отправлен.
func handleBusinessError(w http.ResponseWriter, err error) bool {
	var businessErr *service.BusinessError
	if errors.As(err, &businessErr) {
		statusCode := mapBusinessErrorToHTTP(businessErr.Code)

		logger.Warn("HTTP: Бизнес-ошибка",
			zap.String("error_code", businessErr.Code),
			zap.Int("http_status", statusCode))

		responseWithJSON(w, statusCode,
			toPayload("error", businessErr.Code),
			toPayload("message", businessErr.Message),
			toPayload("details", businessErr.Details),
		)
		return true
	}
	return false
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case "NOT_FOUND":
		return http.StatusNotFound
	case "VALIDATION_ERROR":
		return http.StatusBadRequest
	case "FORBIDDEN":
		return http.StatusForbidden
	case "STORAGE_ERROR":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

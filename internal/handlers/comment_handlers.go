package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"taskManager/internal/logger"
	"taskManager/internal/middleware"
)

type CommentHandler struct {
	TaskService TaskService
}

func NewCommentHandler(taskService TaskService) CommentHandler {
	return CommentHandler{
		TaskService: taskService,
	}
}

func (h *CommentHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	taskID, err := parseID(r, "id")
	if err != nil {

		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id:"+err.Error())
		return
	}

	var request CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {

		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	logger.Info("HTTP: Вызов сервиса добавления комментария")

	comment, err := h.TaskService.AddComment(r.Context(), taskID, requesterID, requesterRole, request.Content)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "add_comment"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Комментарий добавлен",
		zap.String("comment_id", comment.ID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, toPayload("comment", comment))
}

func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	commentID, err := parseID(r, "id")
	if err != nil {

		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id:"+err.Error())
		return
	}

	var request CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {

		logger.Warn("HTTP: ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "неверное тело запроса:"+err.Error())
		return
	}

	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	logger.Info("HTTP: Вызов сервиса обновления комментария")

	comment, err := h.TaskService.UpdateComment(r.Context(), commentID, requesterID, requesterRole, request.Content)
	if err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "update_comment"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Комментарий обновлён",
		zap.String("comment_id", commentID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("comment", comment))
}

func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.HttpRequestInfo(r, "HTTP_IN:")

	commentID, err := parseID(r, "id")
	if err != nil {

		logger.Warn("HTTP: Не удалось получить id",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, "не удалось получить id:"+err.Error())
		return
	}

	requesterID := middleware.GetUserID(r.Context())
	requesterRole := middleware.GetUserRole(r.Context())

	logger.Info("HTTP: Вызов сервиса удаления комментария")

	if err := h.TaskService.DeleteComment(r.Context(), commentID, requesterID, requesterRole); err != nil {
		if handleBusinessError(w, err) {
			return
		}

		logger.Error("HTTP: Ошибка Service", err,
			zap.String("operation", "delete_comment"),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("HTTP_OUT: Комментарий удалён",
		zap.String("comment_id", commentID.String()),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, toPayload("message", "комментарий удалён"))
}

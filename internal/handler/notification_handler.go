package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hrplatform/go-notification-engine/internal/dispatch"
	"github.com/hrplatform/go-notification-engine/internal/domain"
	"github.com/hrplatform/go-notification-engine/internal/repository"
	apperrors "github.com/hrplatform/go-notification-engine/internal/shared/errors"
)

// NotificationHandler handles per-recipient notification records and ad-hoc
// sends.
type NotificationHandler struct {
	repo       *repository.NotificationRecordRepository
	dispatcher *dispatch.Dispatcher
	log        zerolog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(repo *repository.NotificationRecordRepository, dispatcher *dispatch.Dispatcher, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{repo: repo, dispatcher: dispatcher, log: log}
}

// List returns a recipient's notifications, newest first
func (h *NotificationHandler) List(c *gin.Context) {
	var req domain.ListNotificationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid request", err))
		return
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	records, total, err := h.repo.FindByRecipient(c.Request.Context(), req.RecipientID, req.Page, req.PageSize)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list notifications")
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("Failed to list notifications", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      records,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}

// MarkRead flags one notification as read by its recipient
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	recipientID := c.Query("recipient_id")
	if recipientID == "" {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("recipient_id is required", nil))
		return
	}

	err := h.repo.MarkRead(c.Request.Context(), c.Param("id"), recipientID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, apperrors.NewNotFoundError("Notification not found", err))
			return
		}
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid id", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// SendNow dispatches a notification immediately, outside any schedule
func (h *NotificationHandler) SendNow(c *gin.Context) {
	var req domain.SendNowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid request", err))
		return
	}
	if err := req.Target.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid target", err))
		return
	}

	count, err := h.dispatcher.DispatchAdHoc(c.Request.Context(), req.Title, req.Message, req.URL, req.Target)
	if err != nil {
		if errors.Is(err, dispatch.ErrEmptyAudience) {
			c.JSON(http.StatusUnprocessableEntity, apperrors.NewValidationError("No users found matching criteria", err))
			return
		}
		h.log.Error().Err(err).Msg("failed to dispatch notification")
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("Failed to dispatch notification", err))
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":         "Notification dispatched",
		"recipient_count": count,
	})
}

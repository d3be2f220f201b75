package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hrplatform/go-notification-engine/internal/domain"
	"github.com/hrplatform/go-notification-engine/internal/repository"
	apperrors "github.com/hrplatform/go-notification-engine/internal/shared/errors"
)

// ScheduledItemStore is what the handler needs from scheduled item persistence
type ScheduledItemStore interface {
	Create(ctx context.Context, item *domain.ScheduledItem) error
	FindByID(ctx context.Context, id string) (*domain.ScheduledItem, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.ScheduledItem, int64, error)
	Cancel(ctx context.Context, id string) error
}

// ScheduledHandler handles one-shot scheduled notification operations
type ScheduledHandler struct {
	repo ScheduledItemStore
	log  zerolog.Logger
}

// NewScheduledHandler creates a new scheduled handler
func NewScheduledHandler(repo ScheduledItemStore, log zerolog.Logger) *ScheduledHandler {
	return &ScheduledHandler{repo: repo, log: log}
}

// Create schedules a one-shot notification
func (h *ScheduledHandler) Create(c *gin.Context) {
	var req domain.CreateScheduledItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid request", err))
		return
	}
	if err := req.Target.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid target", err))
		return
	}
	if req.FireAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Fire time must be in the future", nil))
		return
	}

	item := &domain.ScheduledItem{
		Title:     req.Title,
		Message:   req.Message,
		URL:       req.URL,
		Target:    req.Target,
		FireAt:    req.FireAt,
		CreatedBy: req.CreatedBy,
	}
	if err := h.repo.Create(c.Request.Context(), item); err != nil {
		h.log.Error().Err(err).Msg("failed to create scheduled notification")
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("Failed to create scheduled notification", err))
		return
	}

	c.JSON(http.StatusCreated, item)
}

// Get returns one scheduled notification
func (h *ScheduledHandler) Get(c *gin.Context) {
	item, err := h.repo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, apperrors.NewNotFoundError("Scheduled notification not found", err))
			return
		}
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid id", err))
		return
	}

	c.JSON(http.StatusOK, item)
}

// List returns scheduled notifications with pagination
func (h *ScheduledHandler) List(c *gin.Context) {
	page, pageSize := pagination(c)

	items, total, err := h.repo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list scheduled notifications")
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("Failed to list scheduled notifications", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// Cancel cancels a pending scheduled notification. Items that already fired
// cannot be cancelled.
func (h *ScheduledHandler) Cancel(c *gin.Context) {
	id := c.Param("id")

	// Look the item up first so an unknown id is a 404, not a conflict:
	// Cancel's pending-only filter cannot tell the two apart.
	if _, err := h.repo.FindByID(c.Request.Context(), id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, apperrors.NewNotFoundError("Scheduled notification not found", err))
			return
		}
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid id", err))
		return
	}

	if err := h.repo.Cancel(c.Request.Context(), id); err != nil {
		if errors.Is(err, repository.ErrItemNotPending) {
			c.JSON(http.StatusConflict, apperrors.NewValidationError("Notification is not pending", err))
			return
		}
		h.log.Error().Err(err).Str("id", id).Msg("failed to cancel scheduled notification")
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("Failed to cancel notification", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification cancelled"})
}

// pagination reads page/page_size query parameters with sane defaults
func pagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

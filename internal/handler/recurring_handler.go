package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hrplatform/go-notification-engine/internal/domain"
	"github.com/hrplatform/go-notification-engine/internal/recurrence"
	apperrors "github.com/hrplatform/go-notification-engine/internal/shared/errors"
)

// RecurringItemStore is what the handler needs from recurring rule persistence
type RecurringItemStore interface {
	Create(ctx context.Context, item *domain.RecurringItem) error
	FindByID(ctx context.Context, id string) (*domain.RecurringItem, error)
	List(ctx context.Context, page, pageSize int) ([]*domain.RecurringItem, int64, error)
	SetActive(ctx context.Context, id string, active bool, nextFireAt *time.Time) error
}

// RecurringHandler handles recurring notification rule operations
type RecurringHandler struct {
	repo RecurringItemStore
	log  zerolog.Logger
}

// NewRecurringHandler creates a new recurring handler
func NewRecurringHandler(repo RecurringItemStore, log zerolog.Logger) *RecurringHandler {
	return &RecurringHandler{repo: repo, log: log}
}

// Create activates a recurring notification rule. Malformed schedules are
// rejected here, never at fire time.
func (h *RecurringHandler) Create(c *gin.Context) {
	var req domain.CreateRecurringItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid request", err))
		return
	}
	if err := req.Target.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid target", err))
		return
	}
	if err := req.Schedule.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid schedule", err))
		return
	}

	next, ok := recurrence.Next(req.Schedule, time.Now())
	if !ok {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Schedule has no future occurrences", nil))
		return
	}

	item := &domain.RecurringItem{
		Title:      req.Title,
		Message:    req.Message,
		URL:        req.URL,
		Target:     req.Target,
		Schedule:   req.Schedule,
		IsActive:   true,
		NextFireAt: &next,
		CreatedBy:  req.CreatedBy,
	}
	if err := h.repo.Create(c.Request.Context(), item); err != nil {
		h.log.Error().Err(err).Msg("failed to create recurring notification")
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("Failed to create recurring notification", err))
		return
	}

	c.JSON(http.StatusCreated, item)
}

// Get returns one recurring rule
func (h *RecurringHandler) Get(c *gin.Context) {
	item, err := h.repo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, apperrors.NewNotFoundError("Recurring notification not found", err))
			return
		}
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid id", err))
		return
	}

	c.JSON(http.StatusOK, item)
}

// List returns recurring rules with pagination
func (h *RecurringHandler) List(c *gin.Context) {
	page, pageSize := pagination(c)

	items, total, err := h.repo.List(c.Request.Context(), page, pageSize)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list recurring notifications")
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("Failed to list recurring notifications", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// SetActive activates or deactivates a rule. Activation recomputes the next
// fire time from the rule's schedule; a rule with no future occurrences
// cannot be reactivated.
func (h *RecurringHandler) SetActive(c *gin.Context) {
	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid request", err))
		return
	}

	id := c.Param("id")
	item, err := h.repo.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			c.JSON(http.StatusNotFound, apperrors.NewNotFoundError("Recurring notification not found", err))
			return
		}
		c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Invalid id", err))
		return
	}

	var nextFireAt *time.Time
	if req.IsActive {
		next, ok := recurrence.Next(item.Schedule, time.Now())
		if !ok {
			c.JSON(http.StatusBadRequest, apperrors.NewValidationError("Schedule has no future occurrences", nil))
			return
		}
		nextFireAt = &next
	}

	if err := h.repo.SetActive(c.Request.Context(), id, req.IsActive, nextFireAt); err != nil {
		h.log.Error().Err(err).Str("id", id).Msg("failed to update recurring notification")
		c.JSON(http.StatusInternalServerError, apperrors.NewInternalError("Failed to update recurring notification", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Notification updated"})
}

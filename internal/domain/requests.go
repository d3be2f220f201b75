package domain

import "time"

// CreateScheduledItemRequest creates a one-shot notification
type CreateScheduledItemRequest struct {
	Title     string     `json:"title" binding:"required"`
	Message   string     `json:"message" binding:"required"`
	URL       string     `json:"url,omitempty"`
	Target    TargetSpec `json:"target" binding:"required"`
	FireAt    time.Time  `json:"fire_at" binding:"required"`
	CreatedBy string     `json:"created_by,omitempty"`
}

// CreateRecurringItemRequest creates a recurring notification rule
type CreateRecurringItemRequest struct {
	Title     string     `json:"title" binding:"required"`
	Message   string     `json:"message" binding:"required"`
	URL       string     `json:"url,omitempty"`
	Target    TargetSpec `json:"target" binding:"required"`
	Schedule  Schedule   `json:"schedule" binding:"required"`
	CreatedBy string     `json:"created_by,omitempty"`
}

// SendNowRequest dispatches an ad-hoc notification immediately
type SendNowRequest struct {
	Title   string     `json:"title" binding:"required"`
	Message string     `json:"message" binding:"required"`
	URL     string     `json:"url,omitempty"`
	Target  TargetSpec `json:"target" binding:"required"`
}

// ListNotificationsRequest pages through a recipient's notification records
type ListNotificationsRequest struct {
	RecipientID string `form:"recipient_id" binding:"required"`
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
}

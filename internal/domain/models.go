package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemStatus represents the lifecycle status of a scheduled item
type ItemStatus string

const (
	ItemStatusPending   ItemStatus = "pending"
	ItemStatusSent      ItemStatus = "sent"
	ItemStatusFailed    ItemStatus = "failed"
	ItemStatusCancelled ItemStatus = "cancelled"
)

// ScheduledItem is a one-shot notification that fires at a specific instant.
// Status only ever moves pending->sent, pending->failed or pending->cancelled;
// the dispatcher is the sole writer after creation.
type ScheduledItem struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title          string             `json:"title" bson:"title"`
	Message        string             `json:"message" bson:"message"`
	URL            string             `json:"url,omitempty" bson:"url,omitempty"`
	Target         TargetSpec         `json:"target" bson:"target"`
	FireAt         time.Time          `json:"fire_at" bson:"fireAt"`
	Status         ItemStatus         `json:"status" bson:"status"`
	SentAt         *time.Time         `json:"sent_at,omitempty" bson:"sentAt,omitempty"`
	RecipientCount int                `json:"recipient_count" bson:"recipientCount"`
	SuccessCount   int                `json:"success_count" bson:"successCount"`
	LastError      string             `json:"last_error,omitempty" bson:"lastError,omitempty"`
	CreatedBy      string             `json:"created_by,omitempty" bson:"createdBy,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"createdAt"`
	UpdatedAt      time.Time          `json:"updated_at" bson:"updatedAt"`
}

// RecurringItem is a repeating notification rule. NextFireAt is nil once the
// rule has no further occurrences, and IsActive must be cleared in the same
// update that nils it out.
type RecurringItem struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title        string             `json:"title" bson:"title"`
	Message      string             `json:"message" bson:"message"`
	URL          string             `json:"url,omitempty" bson:"url,omitempty"`
	Target       TargetSpec         `json:"target" bson:"target"`
	Schedule     Schedule           `json:"schedule" bson:"schedule"`
	IsActive     bool               `json:"is_active" bson:"isActive"`
	NextFireAt   *time.Time         `json:"next_fire_at,omitempty" bson:"nextFireAt,omitempty"`
	LastFiredAt  *time.Time         `json:"last_fired_at,omitempty" bson:"lastFiredAt,omitempty"`
	TotalSent    int                `json:"total_sent" bson:"totalSent"`
	TotalSuccess int                `json:"total_success" bson:"totalSuccess"`
	TotalFailure int                `json:"total_failure" bson:"totalFailure"`
	CreatedBy    string             `json:"created_by,omitempty" bson:"createdBy,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updatedAt"`
}

// SourceKind identifies which item type produced a notification record
type SourceKind string

const (
	SourceScheduled SourceKind = "scheduled"
	SourceRecurring SourceKind = "recurring"
)

// SourceRef points a notification record back at the item that produced it.
// Nil on the record means an ad-hoc send.
type SourceRef struct {
	Kind SourceKind         `json:"kind" bson:"kind"`
	ID   primitive.ObjectID `json:"id" bson:"id"`
}

// ChannelDelivery tracks the outcome of one delivery channel for one recipient
type ChannelDelivery struct {
	Attempted bool       `json:"attempted" bson:"attempted"`
	Succeeded bool       `json:"succeeded" bson:"succeeded"`
	At        *time.Time `json:"at,omitempty" bson:"at,omitempty"`
}

// NotificationRecord is the durable per-recipient artifact of a delivery.
// It is written before any send attempt so a crash loses at most the attempt,
// never the intent.
type NotificationRecord struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RecipientID string             `json:"recipient_id" bson:"recipientId"`
	Title       string             `json:"title" bson:"title"`
	Message     string             `json:"message" bson:"message"`
	URL         string             `json:"url,omitempty" bson:"url,omitempty"`
	Source      *SourceRef         `json:"source,omitempty" bson:"source,omitempty"`
	Read        bool               `json:"read" bson:"read"`
	ReadAt      *time.Time         `json:"read_at,omitempty" bson:"readAt,omitempty"`
	Push        ChannelDelivery    `json:"push" bson:"push"`
	Email       ChannelDelivery    `json:"email" bson:"email"`
	CreatedAt   time.Time          `json:"created_at" bson:"createdAt"`
	ExpiresAt   *time.Time         `json:"expires_at,omitempty" bson:"expiresAt,omitempty"`
}

// User is a directory user account
type User struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email    string             `json:"email" bson:"email"`
	Role     string             `json:"role" bson:"role"`
	IsActive bool               `json:"is_active" bson:"isActive"`
}

// Employee is a directory employee, optionally linked to a user account
type Employee struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	DepartmentID string              `json:"department_id" bson:"departmentId"`
	UserID       *primitive.ObjectID `json:"user_id,omitempty" bson:"userId,omitempty"`
	IsActive     bool                `json:"is_active" bson:"isActive"`
}

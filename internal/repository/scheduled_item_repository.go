package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hrplatform/go-notification-engine/internal/domain"
	"github.com/hrplatform/go-notification-engine/internal/shared/mongodb"
)

const scheduledItemsCollection = "scheduled_notifications"

// ErrItemNotPending is returned when a status transition requires a pending item
var ErrItemNotPending = errors.New("scheduled item is not pending")

// ScheduledItemRepository handles scheduled item data operations
type ScheduledItemRepository struct {
	client *mongodb.MongoClient
}

// NewScheduledItemRepository creates a new repository
func NewScheduledItemRepository(client *mongodb.MongoClient) *ScheduledItemRepository {
	return &ScheduledItemRepository{client: client}
}

// EnsureIndexes creates the indexes the dispatch query shapes rely on
func (r *ScheduledItemRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "fireAt", Value: 1}},
			Options: options.Index().SetName("status_fire_at_idx"),
		},
	}
	return r.client.CreateIndexes(ctx, scheduledItemsCollection, indexes)
}

// Create creates a new scheduled item with status pending
func (r *ScheduledItemRepository) Create(ctx context.Context, item *domain.ScheduledItem) error {
	item.ID = primitive.NewObjectID()
	item.Status = domain.ItemStatusPending
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()

	_, err := r.client.Collection(scheduledItemsCollection).InsertOne(ctx, item)
	return err
}

// FindByID finds a scheduled item by ID
func (r *ScheduledItemRepository) FindByID(ctx context.Context, id string) (*domain.ScheduledItem, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var item domain.ScheduledItem
	err = r.client.Collection(scheduledItemsCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns scheduled items with pagination, newest first
func (r *ScheduledItemRepository) List(ctx context.Context, page, pageSize int) ([]*domain.ScheduledItem, int64, error) {
	filter := bson.M{}

	total, err := r.client.Collection(scheduledItemsCollection).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (page - 1) * pageSize
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.client.Collection(scheduledItemsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []*domain.ScheduledItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FindDue returns pending items whose fire time has arrived
func (r *ScheduledItemRepository) FindDue(ctx context.Context, now time.Time) ([]*domain.ScheduledItem, error) {
	filter := bson.M{
		"status": domain.ItemStatusPending,
		"fireAt": bson.M{"$lte": now},
	}

	cursor, err := r.client.Collection(scheduledItemsCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*domain.ScheduledItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// MarkSent transitions a pending item to sent and records the audience counts
func (r *ScheduledItemRepository) MarkSent(ctx context.Context, id primitive.ObjectID, sentAt time.Time, recipientCount, successCount int) error {
	filter := bson.M{"_id": id, "status": domain.ItemStatusPending}
	update := bson.M{
		"$set": bson.M{
			"status":         domain.ItemStatusSent,
			"sentAt":         sentAt,
			"recipientCount": recipientCount,
			"successCount":   successCount,
			"updatedAt":      time.Now(),
		},
	}

	res, err := r.client.Collection(scheduledItemsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrItemNotPending
	}
	return nil
}

// MarkFailed transitions a pending item to failed with an error message
func (r *ScheduledItemRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, errMsg string) error {
	filter := bson.M{"_id": id, "status": domain.ItemStatusPending}
	update := bson.M{
		"$set": bson.M{
			"status":    domain.ItemStatusFailed,
			"lastError": errMsg,
			"updatedAt": time.Now(),
		},
	}

	res, err := r.client.Collection(scheduledItemsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrItemNotPending
	}
	return nil
}

// Cancel transitions a pending item to cancelled; items that already fired
// cannot be cancelled.
func (r *ScheduledItemRepository) Cancel(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": objectID, "status": domain.ItemStatusPending}
	update := bson.M{
		"$set": bson.M{
			"status":    domain.ItemStatusCancelled,
			"updatedAt": time.Now(),
		},
	}

	res, err := r.client.Collection(scheduledItemsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrItemNotPending
	}
	return nil
}

package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hrplatform/go-notification-engine/internal/domain"
	"github.com/hrplatform/go-notification-engine/internal/shared/mongodb"
)

const recurringItemsCollection = "recurring_notifications"

// RecurringItemRepository handles recurring item data operations
type RecurringItemRepository struct {
	client *mongodb.MongoClient
}

// NewRecurringItemRepository creates a new repository
func NewRecurringItemRepository(client *mongodb.MongoClient) *RecurringItemRepository {
	return &RecurringItemRepository{client: client}
}

// EnsureIndexes creates the indexes the dispatch query shapes rely on
func (r *RecurringItemRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "nextFireAt", Value: 1}},
			Options: options.Index().SetName("active_next_fire_idx"),
		},
	}
	return r.client.CreateIndexes(ctx, recurringItemsCollection, indexes)
}

// Create creates a new recurring item
func (r *RecurringItemRepository) Create(ctx context.Context, item *domain.RecurringItem) error {
	item.ID = primitive.NewObjectID()
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()

	_, err := r.client.Collection(recurringItemsCollection).InsertOne(ctx, item)
	return err
}

// FindByID finds a recurring item by ID
func (r *RecurringItemRepository) FindByID(ctx context.Context, id string) (*domain.RecurringItem, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var item domain.RecurringItem
	err = r.client.Collection(recurringItemsCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&item)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns recurring items with pagination, newest first
func (r *RecurringItemRepository) List(ctx context.Context, page, pageSize int) ([]*domain.RecurringItem, int64, error) {
	filter := bson.M{}

	total, err := r.client.Collection(recurringItemsCollection).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (page - 1) * pageSize
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.client.Collection(recurringItemsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var items []*domain.RecurringItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// FindDue returns active rules whose next fire time has arrived and whose
// validity window has not ended.
func (r *RecurringItemRepository) FindDue(ctx context.Context, now time.Time) ([]*domain.RecurringItem, error) {
	filter := bson.M{
		"isActive":   true,
		"nextFireAt": bson.M{"$lte": now},
		"$or": bson.A{
			bson.M{"schedule.endDate": nil},
			bson.M{"schedule.endDate": bson.M{"$gte": now}},
		},
	}

	cursor, err := r.client.Collection(recurringItemsCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*domain.RecurringItem
	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// RecordFiring persists the outcome of one firing: the counters, the next
// fire time, and deactivation when there is no next occurrence. A nil
// nextFireAt always clears isActive in the same update.
func (r *RecurringItemRepository) RecordFiring(ctx context.Context, id primitive.ObjectID, firedAt time.Time, nextFireAt *time.Time, succeeded bool) error {
	set := bson.M{
		"updatedAt":  time.Now(),
		"isActive":   nextFireAt != nil,
		"nextFireAt": nextFireAt,
	}
	inc := bson.M{}
	if succeeded {
		set["lastFiredAt"] = firedAt
		inc["totalSent"] = 1
		inc["totalSuccess"] = 1
	} else {
		inc["totalFailure"] = 1
	}

	update := bson.M{"$set": set, "$inc": inc}
	_, err := r.client.Collection(recurringItemsCollection).UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

// SetActive flips a rule's active flag. Activation must supply the freshly
// computed next fire time; deactivation clears it.
func (r *RecurringItemRepository) SetActive(ctx context.Context, id string, active bool, nextFireAt *time.Time) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	set := bson.M{
		"isActive":  active,
		"updatedAt": time.Now(),
	}
	if active {
		set["nextFireAt"] = nextFireAt
	} else {
		set["nextFireAt"] = nil
	}

	_, err = r.client.Collection(recurringItemsCollection).UpdateOne(ctx, bson.M{"_id": objectID}, bson.M{"$set": set})
	return err
}

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

const notificationRecordsCollection = "notifications"

// NotificationRecordRepository handles per-recipient notification records
type NotificationRecordRepository struct {
	client *mongodb.MongoClient
}

// NewNotificationRecordRepository creates a new repository
func NewNotificationRecordRepository(client *mongodb.MongoClient) *NotificationRecordRepository {
	return &NotificationRecordRepository{client: client}
}

// EnsureIndexes creates the recipient listing index
func (r *NotificationRecordRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "recipientId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("recipient_created_idx"),
		},
	}
	return r.client.CreateIndexes(ctx, notificationRecordsCollection, indexes)
}

// InsertMany persists one record per recipient. Records must be durable
// before their send task is enqueued; the retry queue is not.
func (r *NotificationRecordRepository) InsertMany(ctx context.Context, records []*domain.NotificationRecord) error {
	if len(records) == 0 {
		return nil
	}

	docs := make([]interface{}, len(records))
	now := time.Now()
	for i, rec := range records {
		rec.ID = primitive.NewObjectID()
		rec.CreatedAt = now
		docs[i] = rec
	}

	_, err := r.client.Collection(notificationRecordsCollection).InsertMany(ctx, docs)
	return err
}

// FindByRecipient returns a recipient's records with pagination, newest first
func (r *NotificationRecordRepository) FindByRecipient(ctx context.Context, recipientID string, page, pageSize int) ([]*domain.NotificationRecord, int64, error) {
	filter := bson.M{"recipientId": recipientID}

	total, err := r.client.Collection(notificationRecordsCollection).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (page - 1) * pageSize
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.client.Collection(notificationRecordsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var records []*domain.NotificationRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

// MarkRead flags a record as read by its recipient
func (r *NotificationRecordRepository) MarkRead(ctx context.Context, id, recipientID string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": objectID, "recipientId": recipientID}
	update := bson.M{
		"$set": bson.M{
			"read":   true,
			"readAt": time.Now(),
		},
	}

	res, err := r.client.Collection(notificationRecordsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetPushOutcome records the push channel outcome on a batch of records
func (r *NotificationRecordRepository) SetPushOutcome(ctx context.Context, ids []primitive.ObjectID, succeeded bool, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	filter := bson.M{"_id": bson.M{"$in": ids}}
	update := bson.M{
		"$set": bson.M{
			"push.attempted": true,
			"push.succeeded": succeeded,
			"push.at":        at,
		},
	}

	_, err := r.client.Collection(notificationRecordsCollection).UpdateMany(ctx, filter, update)
	return err
}

// SetEmailOutcome records the email channel outcome on one record
func (r *NotificationRecordRepository) SetEmailOutcome(ctx context.Context, id primitive.ObjectID, succeeded bool, at time.Time) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"email.attempted": true,
			"email.succeeded": succeeded,
			"email.at":        at,
		},
	}

	_, err := r.client.Collection(notificationRecordsCollection).UpdateOne(ctx, filter, update)
	return err
}

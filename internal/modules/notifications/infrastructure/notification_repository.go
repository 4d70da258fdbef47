// Package infrastructure contains the MongoDB repositories and outbound
// adapters for the notifications module.
package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"primeNotify/internal/modules/notifications/domain"
)

const notificationsCollection = "notifications"

// NotificationRepository is the MongoDB-backed notification store. All reads
// and mutations are scoped to the recipient so one user can never touch
// another user's notifications.
type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{collection: db.Collection(notificationsCollection)}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now

	res, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	created := *n
	created.ID = res.InsertedID.(primitive.ObjectID)
	return &created, nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}

	var n domain.Notification
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return &n, nil
}

// ListByRecipient returns the user's notifications newest first. Only the
// known message types are returned so records written by a newer deployment
// do not leak into older clients.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipient string) ([]domain.Notification, error) {
	filter := bson.M{
		"recipient":   recipient,
		"messageType": bson.M{"$in": domain.MessageTypes()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := make([]domain.Notification, 0)
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flips read to true and returns the updated document. Marking an
// already-read notification succeeds unchanged.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipient string) (*domain.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}

	update := bson.M{"$set": bson.M{"read": true, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var n domain.Notification
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": oid, "recipient": recipient}, update, opts).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return &n, nil
}

func (r *NotificationRepository) Delete(ctx context.Context, id, recipient string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}

	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid, "recipient": recipient})
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *NotificationRepository) DeleteAllForRecipient(ctx context.Context, recipient string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"recipient": recipient})
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return res.DeletedCount, nil
}

// UpdateStatus records the delivery outcome. A notification already marked
// sent is never demoted back to pending by a late consumer.
func (r *NotificationRepository) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("notification %s: %w", id, domain.ErrNotFound)
	}

	filter := bson.M{"_id": oid}
	if status == domain.StatusPending {
		filter["status"] = bson.M{"$ne": domain.StatusSent}
	}
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	return nil
}

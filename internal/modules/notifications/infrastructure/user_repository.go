package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"primeNotify/internal/modules/notifications/domain"
)

const usersCollection = "users"

// UserRepository resolves recipients against the marketplace user collection.
// The notifications module only reads users; account management lives in the
// main marketplace service.
type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(usersCollection)}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}

	var doc struct {
		ID        primitive.ObjectID `bson:"_id"`
		Name      string             `bson:"name"`
		Email     string             `bson:"email"`
		PushToken string             `bson:"pushToken"`
	}
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	return &domain.User{
		ID:        doc.ID.Hex(),
		Name:      doc.Name,
		Email:     doc.Email,
		PushToken: doc.PushToken,
	}, nil
}

package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository reads owner e-mail addresses from the shared users collection.
type UserRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewUserRepository(db *mongo.Database, log *logger.Logger) *UserRepository {
	return &UserRepository{
		collection: db.Collection(userCollectionName),
		logger:     log.Named("UserRepository"),
	}
}

// GetEmailByID looks the user up by hex ObjectID.
func (r *UserRepository) GetEmailByID(ctx context.Context, userID string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return "", fmt.Errorf("invalid user ID format: %w", err)
	}

	var userDoc struct {
		Email string `bson:"email"`
	}
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&userDoc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			r.logger.Info("User not found", zap.String("user_id", userID))
			return "", ErrUserNotFound
		}
		r.logger.Error("Failed to find user", zap.String("user_id", userID), zap.Error(err))
		return "", fmt.Errorf("UserRepository.GetEmailByID: %w", err)
	}
	return userDoc.Email, nil
}

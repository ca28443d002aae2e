package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type FavoriteRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewFavoriteRepository(db *mongo.Database, log *logger.Logger) (*FavoriteRepository, error) {
	collection := db.Collection(favoriteCollectionName)
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "listing_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if err := ensureIndexes(collection, indexes); err != nil {
		log.Error("Failed to create indexes for favorites collection", zap.Error(err))
		return nil, err
	}
	return &FavoriteRepository{collection: collection, logger: log.Named("FavoriteRepository")}, nil
}

// Add upserts the favorite. A concurrent duplicate counts as already present.
func (r *FavoriteRepository) Add(ctx context.Context, userID, listingID string) (bool, error) {
	filter := bson.M{"user_id": userID, "listing_id": listingID}
	update := bson.M{"$setOnInsert": bson.M{"created_at": time.Now().UTC()}}
	res, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		r.logger.Error("Failed to add favorite", zap.String("user_id", userID), zap.String("listing_id", listingID), zap.Error(err))
		return false, fmt.Errorf("FavoriteRepository.Add: %w", err)
	}
	return res.UpsertedCount > 0, nil
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID, listingID string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID, "listing_id": listingID})
	if err != nil {
		r.logger.Error("Failed to remove favorite", zap.String("user_id", userID), zap.String("listing_id", listingID), zap.Error(err))
		return false, fmt.Errorf("FavoriteRepository.Remove: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *FavoriteRepository) Exists(ctx context.Context, userID, listingID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID, "listing_id": listingID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("FavoriteRepository.Exists: %w", err)
	}
	return n > 0, nil
}

func (r *FavoriteRepository) ListingIDs(ctx context.Context, userID string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"listing_id": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("FavoriteRepository.ListingIDs: %w", err)
	}
	return decodeListingIDs(ctx, cursor)
}

func (r *FavoriteRepository) PageListingIDs(ctx context.Context, userID string, skip, limit int64) ([]string, int64, error) {
	filter := bson.M{"user_id": userID}
	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("FavoriteRepository.PageListingIDs: count: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetProjection(bson.M{"listing_id": 1}).
		SetSkip(skip).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("FavoriteRepository.PageListingIDs: %w", err)
	}
	ids, err := decodeListingIDs(ctx, cursor)
	if err != nil {
		return nil, 0, err
	}
	return ids, total, nil
}

func decodeListingIDs(ctx context.Context, cursor *mongo.Cursor) ([]string, error) {
	var docs []favoriteDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("FavoriteRepository: decode: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ListingID)
	}
	return ids, nil
}

package mongodb

import (
	"context"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// LinkRepository stores listing-image links, unique per pair.
type LinkRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewLinkRepository(db *mongo.Database, log *logger.Logger) (*LinkRepository, error) {
	collection := db.Collection(linkCollectionName)
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "image_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "listing_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "image_id", Value: 1}}},
	}
	if err := ensureIndexes(collection, indexes); err != nil {
		log.Error("Failed to create indexes for listing_images collection", zap.Error(err))
		return nil, err
	}
	return &LinkRepository{collection: collection, logger: log.Named("LinkRepository")}, nil
}

// Link upserts the pair. Linking an existing pair reports false without a
// write error, so an enclosing transaction stays usable.
func (r *LinkRepository) Link(ctx context.Context, link *domain.Link) (bool, error) {
	id := primitive.NewObjectID()
	filter := bson.M{"listing_id": link.ListingID, "image_id": link.ImageID}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        id,
		"cover":      link.Cover,
		"created_at": link.CreatedAt,
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		// Two concurrent upserts outside a transaction can still race on the unique index.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		r.logger.Error("Failed to upsert link",
			zap.String("listing_id", link.ListingID), zap.String("image_id", link.ImageID), zap.Error(err))
		return false, fmt.Errorf("LinkRepository.Link: %w", err)
	}
	if res.UpsertedCount == 0 {
		return false, nil
	}
	link.ID = id.Hex()
	return true, nil
}

func (r *LinkRepository) Unlink(ctx context.Context, listingID, imageID string) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"listing_id": listingID, "image_id": imageID})
	if err != nil {
		return false, fmt.Errorf("LinkRepository.Unlink: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *LinkRepository) SetCover(ctx context.Context, listingID, imageID string) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"listing_id": listingID, "image_id": bson.M{"$ne": imageID}, "cover": true},
		bson.M{"$set": bson.M{"cover": false}})
	if err != nil {
		return fmt.Errorf("LinkRepository.SetCover: clear: %w", err)
	}
	_, err = r.collection.UpdateOne(ctx,
		bson.M{"listing_id": listingID, "image_id": imageID},
		bson.M{"$set": bson.M{"cover": true}})
	if err != nil {
		return fmt.Errorf("LinkRepository.SetCover: set: %w", err)
	}
	return nil
}

func (r *LinkRepository) CountByImage(ctx context.Context, imageID string) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"image_id": imageID})
	if err != nil {
		return 0, fmt.Errorf("LinkRepository.CountByImage: %w", err)
	}
	return n, nil
}

func (r *LinkRepository) ListByListing(ctx context.Context, listingID string) ([]*domain.Link, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"listing_id": listingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("LinkRepository.ListByListing: %w", err)
	}
	var docs []*linkDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("LinkRepository.ListByListing: decode: %w", err)
	}
	out := make([]*domain.Link, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDomainLink(d))
	}
	return out, nil
}

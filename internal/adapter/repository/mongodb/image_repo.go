package mongodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ImageRepository is the image registry. URLs are unique.
type ImageRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewImageRepository(db *mongo.Database, log *logger.Logger) (*ImageRepository, error) {
	collection := db.Collection(imageCollectionName)
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "url", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if err := ensureIndexes(collection, indexes); err != nil {
		log.Error("Failed to create indexes for images collection", zap.Error(err))
		return nil, err
	}
	return &ImageRepository{collection: collection, logger: log.Named("ImageRepository")}, nil
}

// FindOrCreateByURL upserts on url so an already registered URL never
// raises a duplicate key error inside a transaction.
func (r *ImageRepository) FindOrCreateByURL(ctx context.Context, image *domain.Image) (domain.FindOrCreateResult[*domain.Image], error) {
	var zero domain.FindOrCreateResult[*domain.Image]
	doc := &imageDocument{
		ID:        primitive.NewObjectID(),
		URL:       image.URL,
		AltText:   image.AltText,
		CreatedAt: image.CreatedAt,
	}
	insert := bson.M{"_id": doc.ID, "created_at": doc.CreatedAt}
	if doc.AltText != nil {
		insert["alt_text"] = *doc.AltText
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"url": image.URL},
		bson.M{"$setOnInsert": insert},
		options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		r.logger.Error("Failed to upsert image", zap.String("url", image.URL), zap.Error(err))
		return zero, fmt.Errorf("ImageRepository.FindOrCreateByURL: %w", err)
	}
	if err == nil && res.UpsertedCount > 0 {
		return domain.FindOrCreateResult[*domain.Image]{Record: toDomainImage(doc), Created: true}, nil
	}

	existing, err := r.FindByURL(ctx, image.URL)
	if err != nil {
		return zero, fmt.Errorf("ImageRepository.FindOrCreateByURL: %w: %v", domain.ErrConflict, err)
	}
	r.logger.Debug("Image URL already registered", zap.String("url", image.URL), zap.String("image_id", existing.ID))
	return domain.FindOrCreateResult[*domain.Image]{Record: existing}, nil
}

func (r *ImageRepository) FindByID(ctx context.Context, id string) (*domain.Image, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrImageNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *ImageRepository) FindByURL(ctx context.Context, url string) (*domain.Image, error) {
	return r.findOne(ctx, bson.M{"url": url})
}

func (r *ImageRepository) findOne(ctx context.Context, filter bson.M) (*domain.Image, error) {
	var doc imageDocument
	if err := r.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrImageNotFound
		}
		return nil, fmt.Errorf("ImageRepository.findOne: %w", err)
	}
	return toDomainImage(&doc), nil
}

func (r *ImageRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Image, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []*domain.Image{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("ImageRepository.FindByIDs: %w", err)
	}
	var docs []*imageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ImageRepository.FindByIDs: decode: %w", err)
	}
	out := make([]*domain.Image, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDomainImage(d))
	}
	return out, nil
}

func (r *ImageRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrImageNotFound
	}
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		r.logger.Error("Failed to delete image", zap.String("image_id", id), zap.Error(err))
		return fmt.Errorf("ImageRepository.Delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrImageNotFound
	}
	return nil
}

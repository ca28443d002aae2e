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

// ListingRepository implements domain.ListingRepository using MongoDB.
type ListingRepository struct {
	collection *mongo.Collection
	logger     *logger.Logger
}

func NewListingRepository(db *mongo.Database, log *logger.Logger) (*ListingRepository, error) {
	collection := db.Collection(listingCollectionName)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "is_published", Value: 1},
			{Key: "is_sponsored", Value: -1},
			{Key: "updated_at", Value: -1},
		}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}}},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "client_ref", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"client_ref": bson.M{"$type": "string"}}),
		},
	}
	if err := ensureIndexes(collection, indexes); err != nil {
		log.Error("Failed to create indexes for listings collection", zap.Error(err))
		return nil, err
	}

	return &ListingRepository{
		collection: collection,
		logger:     log.Named("ListingRepository"),
	}, nil
}

// FindOrCreate inserts listing. A duplicate (user_id, client_ref) resolves to
// the stored record.
func (r *ListingRepository) FindOrCreate(ctx context.Context, listing *domain.Listing) (domain.FindOrCreateResult[*domain.Listing], error) {
	var zero domain.FindOrCreateResult[*domain.Listing]

	doc, err := toListingDocument(listing)
	if err != nil {
		return zero, err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}

	_, err = r.collection.InsertOne(ctx, doc)
	if err == nil {
		return domain.FindOrCreateResult[*domain.Listing]{Record: toDomainListing(doc), Created: true}, nil
	}
	if !mongo.IsDuplicateKeyError(err) || listing.ClientRef == nil {
		r.logger.Error("Failed to insert listing", zap.String("user_id", listing.UserID), zap.Error(err))
		return zero, fmt.Errorf("ListingRepository.FindOrCreate: %w", err)
	}

	var existing listingDocument
	err = r.collection.FindOne(ctx, bson.M{"user_id": listing.UserID, "client_ref": *listing.ClientRef}).Decode(&existing)
	if err != nil {
		r.logger.Error("Duplicate client_ref but existing listing not readable",
			zap.String("user_id", listing.UserID), zap.String("client_ref", *listing.ClientRef), zap.Error(err))
		return zero, fmt.Errorf("ListingRepository.FindOrCreate: %w: %v", domain.ErrConflict, err)
	}
	r.logger.Debug("Listing create resolved by client_ref", zap.String("listing_id", existing.ID.Hex()))
	return domain.FindOrCreateResult[*domain.Listing]{Record: toDomainListing(&existing)}, nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrListingNotFound
	}
	var doc listingDocument
	if err := r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrListingNotFound
		}
		r.logger.Error("Failed to get listing by ID", zap.String("listing_id", id), zap.Error(err))
		return nil, fmt.Errorf("ListingRepository.FindByID: %w", err)
	}
	return toDomainListing(&doc), nil
}

// FindByIDs returns the listings that exist among ids, in no particular order.
func (r *ListingRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Listing, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []*domain.Listing{}, nil
	}
	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.FindByIDs: %w", err)
	}
	var docs []*listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ListingRepository.FindByIDs: decode: %w", err)
	}
	return toDomainListings(docs), nil
}

// Update writes the owner-editable fields and status. The image projection
// is owned by SetImageProjection and is never written here.
func (r *ListingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	oid, err := primitive.ObjectIDFromHex(listing.ID)
	if err != nil {
		return domain.ErrListingNotFound
	}
	set := bson.M{
		"type_annonce_id":    listing.TypeAnnonceID,
		"type_annonce_name":  listing.TypeAnnonceName,
		"category_id":        listing.CategoryID,
		"category_name":      listing.CategoryName,
		"subcategory_id":     listing.SubcategoryID,
		"subcategory_name":   listing.SubcategoryName,
		"title":              listing.Title,
		"description":        listing.Description,
		"price":              listing.Price,
		"region_id":          listing.RegionID,
		"city_id":            listing.CityID,
		"direct_negotiation": listing.DirectNegotiation,
		"is_sponsored":       listing.IsSponsored,
		"is_published":       listing.IsPublished,
		"status":             listing.Status,
		"updated_at":         listing.UpdatedAt,
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		r.logger.Error("Failed to update listing", zap.String("listing_id", listing.ID), zap.Error(err))
		return fmt.Errorf("ListingRepository.Update: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) SetImageProjection(ctx context.Context, id string, projection domain.ImageProjection) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrListingNotFound
	}
	update := bson.M{"$set": bson.M{
		"have_image":       projection.HaveImage,
		"first_image_path": projection.FirstImagePath,
	}}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		r.logger.Error("Failed to store image projection", zap.String("listing_id", id), zap.Error(err))
		return fmt.Errorf("ListingRepository.SetImageProjection: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, q domain.ListingQuery) ([]*domain.Listing, int64, error) {
	filter := buildFilter(q)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count listings", zap.Error(err))
		return nil, 0, fmt.Errorf("ListingRepository.Search: count: %w", err)
	}
	if total == 0 {
		return []*domain.Listing{}, 0, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "is_sponsored", Value: -1}, {Key: "updated_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(q.Skip)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to search listings", zap.Error(err))
		return nil, 0, fmt.Errorf("ListingRepository.Search: find: %w", err)
	}
	var docs []*listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("ListingRepository.Search: decode: %w", err)
	}
	return toDomainListings(docs), total, nil
}

func (r *ListingRepository) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	filter := bson.M{}
	if afterID != "" {
		oid, err := primitive.ObjectIDFromHex(afterID)
		if err != nil {
			return nil, fmt.Errorf("ListingRepository.ListIDs: %w", err)
		}
		filter["_id"] = bson.M{"$gt": oid}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("ListingRepository.ListIDs: %w", err)
	}
	var docs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("ListingRepository.ListIDs: decode: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID.Hex())
	}
	return ids, nil
}

// buildFilter translates a query into a conjunction of equality predicates.
// A restricted query with no ids matches nothing.
func buildFilter(q domain.ListingQuery) bson.M {
	filter := bson.M{}
	if q.Status != nil {
		filter["status"] = *q.Status
	}
	if q.IsPublished != nil {
		filter["is_published"] = *q.IsPublished
	}
	if q.UserID != nil {
		filter["user_id"] = *q.UserID
	}
	if q.TypeAnnonceID != nil {
		filter["type_annonce_id"] = *q.TypeAnnonceID
	}
	if q.CategoryID != nil {
		filter["category_id"] = *q.CategoryID
	}
	if q.SubcategoryID != nil {
		filter["subcategory_id"] = *q.SubcategoryID
	}
	if q.RegionID != nil {
		filter["region_id"] = *q.RegionID
	}
	if q.CityID != nil {
		filter["city_id"] = *q.CityID
	}
	if q.Price != nil {
		filter["price"] = *q.Price
	}
	if q.IsSponsored != nil {
		filter["is_sponsored"] = *q.IsSponsored
	}
	if q.DirectNegotiation != nil {
		filter["direct_negotiation"] = *q.DirectNegotiation
	}
	if q.RestrictIDs {
		filter["_id"] = bson.M{"$in": objectIDs(q.IDs)}
	}
	return filter
}

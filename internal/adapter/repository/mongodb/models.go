package mongodb

import (
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listingDocument struct {
	ID                primitive.ObjectID   `bson:"_id,omitempty"`
	UserID            string               `bson:"user_id"`
	TypeAnnonceID     string               `bson:"type_annonce_id"`
	TypeAnnonceName   string               `bson:"type_annonce_name"`
	CategoryID        *string              `bson:"category_id"`
	CategoryName      *string              `bson:"category_name"`
	SubcategoryID     *string              `bson:"subcategory_id"`
	SubcategoryName   *string              `bson:"subcategory_name"`
	Title             *string              `bson:"title"`
	Description       string               `bson:"description"`
	Price             *float64             `bson:"price"`
	RegionID          *string              `bson:"region_id"`
	CityID            *string              `bson:"city_id"`
	DirectNegotiation bool                 `bson:"direct_negotiation"`
	IsSponsored       bool                 `bson:"is_sponsored"`
	IsPublished       bool                 `bson:"is_published"`
	Status            domain.ListingStatus `bson:"status"`
	HaveImage         bool                 `bson:"have_image"`
	FirstImagePath    *string              `bson:"first_image_path"`
	ClientRef         *string              `bson:"client_ref,omitempty"`
	CreatedAt         time.Time            `bson:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at"`
}

type imageDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	URL       string             `bson:"url"`
	AltText   *string            `bson:"alt_text,omitempty"`
	CreatedAt time.Time          `bson:"created_at"`
}

type linkDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	ListingID string             `bson:"listing_id"`
	ImageID   string             `bson:"image_id"`
	Cover     bool               `bson:"cover"`
	CreatedAt time.Time          `bson:"created_at"`
}

type favoriteDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	ListingID string             `bson:"listing_id"`
	CreatedAt time.Time          `bson:"created_at"`
}

// objectID converts a domain id. An empty id yields NilObjectID so the
// driver generates one on insert.
func objectID(id string) (primitive.ObjectID, error) {
	if id == "" {
		return primitive.NilObjectID, nil
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid id %q: %w", id, err)
	}
	return oid, nil
}

// objectIDs converts ids, dropping the ones that are not valid hex.
func objectIDs(ids []string) []primitive.ObjectID {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	return oids
}

func toListingDocument(l *domain.Listing) (*listingDocument, error) {
	oid, err := objectID(l.ID)
	if err != nil {
		return nil, fmt.Errorf("toListingDocument: %w", err)
	}
	return &listingDocument{
		ID:                oid,
		UserID:            l.UserID,
		TypeAnnonceID:     l.TypeAnnonceID,
		TypeAnnonceName:   l.TypeAnnonceName,
		CategoryID:        l.CategoryID,
		CategoryName:      l.CategoryName,
		SubcategoryID:     l.SubcategoryID,
		SubcategoryName:   l.SubcategoryName,
		Title:             l.Title,
		Description:       l.Description,
		Price:             l.Price,
		RegionID:          l.RegionID,
		CityID:            l.CityID,
		DirectNegotiation: l.DirectNegotiation,
		IsSponsored:       l.IsSponsored,
		IsPublished:       l.IsPublished,
		Status:            l.Status,
		HaveImage:         l.HaveImage,
		FirstImagePath:    l.FirstImagePath,
		ClientRef:         l.ClientRef,
		CreatedAt:         l.CreatedAt,
		UpdatedAt:         l.UpdatedAt,
	}, nil
}

func toDomainListing(d *listingDocument) *domain.Listing {
	return &domain.Listing{
		ID:                d.ID.Hex(),
		UserID:            d.UserID,
		TypeAnnonceID:     d.TypeAnnonceID,
		TypeAnnonceName:   d.TypeAnnonceName,
		CategoryID:        d.CategoryID,
		CategoryName:      d.CategoryName,
		SubcategoryID:     d.SubcategoryID,
		SubcategoryName:   d.SubcategoryName,
		Title:             d.Title,
		Description:       d.Description,
		Price:             d.Price,
		RegionID:          d.RegionID,
		CityID:            d.CityID,
		DirectNegotiation: d.DirectNegotiation,
		IsSponsored:       d.IsSponsored,
		IsPublished:       d.IsPublished,
		Status:            d.Status,
		HaveImage:         d.HaveImage,
		FirstImagePath:    d.FirstImagePath,
		ClientRef:         d.ClientRef,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func toDomainListings(docs []*listingDocument) []*domain.Listing {
	out := make([]*domain.Listing, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDomainListing(d))
	}
	return out
}

func toDomainImage(d *imageDocument) *domain.Image {
	return &domain.Image{
		ID:        d.ID.Hex(),
		URL:       d.URL,
		AltText:   d.AltText,
		CreatedAt: d.CreatedAt,
	}
}

func toDomainLink(d *linkDocument) *domain.Link {
	return &domain.Link{
		ID:        d.ID.Hex(),
		ListingID: d.ListingID,
		ImageID:   d.ImageID,
		Cover:     d.Cover,
		CreatedAt: d.CreatedAt,
	}
}

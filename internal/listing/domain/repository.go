package domain

import (
	"context"
	"time"
)

// ListingRepository persists listings. Search orders by sponsorship, then
// update time descending, then insertion order.
type ListingRepository interface {
	FindOrCreate(ctx context.Context, listing *Listing) (FindOrCreateResult[*Listing], error)
	FindByID(ctx context.Context, id string) (*Listing, error)
	FindByIDs(ctx context.Context, ids []string) ([]*Listing, error)
	Update(ctx context.Context, listing *Listing) error
	SetImageProjection(ctx context.Context, id string, projection ImageProjection) error
	Search(ctx context.Context, query ListingQuery) ([]*Listing, int64, error)
	// ListIDs returns up to limit listing ids greater than afterID, ascending.
	ListIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}

type ImageRepository interface {
	FindOrCreateByURL(ctx context.Context, image *Image) (FindOrCreateResult[*Image], error)
	FindByID(ctx context.Context, id string) (*Image, error)
	FindByURL(ctx context.Context, url string) (*Image, error)
	FindByIDs(ctx context.Context, ids []string) ([]*Image, error)
	Delete(ctx context.Context, id string) error
}

// LinkRepository is the source of truth for which images belong to which listing.
type LinkRepository interface {
	// Link inserts the pair; created is false when it already existed.
	Link(ctx context.Context, link *Link) (created bool, err error)
	// Unlink removes the pair; deleted is false when no link existed.
	Unlink(ctx context.Context, listingID, imageID string) (deleted bool, err error)
	SetCover(ctx context.Context, listingID, imageID string) error
	CountByImage(ctx context.Context, imageID string) (int64, error)
	// ListByListing returns links ordered by creation time ascending.
	ListByListing(ctx context.Context, listingID string) ([]*Link, error)
}

type FavoriteRepository interface {
	Add(ctx context.Context, userID, listingID string) (created bool, err error)
	Remove(ctx context.Context, userID, listingID string) (removed bool, err error)
	Exists(ctx context.Context, userID, listingID string) (bool, error)
	// ListingIDs returns the user's full favorite set in one query.
	ListingIDs(ctx context.Context, userID string) ([]string, error)
	// PageListingIDs returns favorite listing ids newest first, plus the total.
	PageListingIDs(ctx context.Context, userID string, skip, limit int64) ([]string, int64, error)
}

// TxRunner runs fn atomically when the backing store supports it, otherwise
// it just runs fn.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BlobStore writes image bytes and returns their public URL.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// SemanticSearcher returns listing ids ranked by free-text similarity.
type SemanticSearcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// ListingCache is a read-through cache for listing details.
type ListingCache interface {
	Get(ctx context.Context, id string) (*Listing, error)
	Set(ctx context.Context, listing *Listing, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
}

// ListingNotifier tells an owner about their listing.
type ListingNotifier interface {
	NotifyListingCreated(ctx context.Context, listing *Listing) error
}

package domain

import "time"

type ListingStatus string

const (
	StatusActive  ListingStatus = "active"
	StatusDeleted ListingStatus = "deleted"
)

// Listing is a single classified ad. HaveImage and FirstImagePath are a cache
// of the listing's links; RecomputeProjection is the only writer.
type Listing struct {
	ID     string
	UserID string

	TypeAnnonceID   string
	TypeAnnonceName string
	CategoryID      *string
	CategoryName    *string
	SubcategoryID   *string
	SubcategoryName *string

	Title       *string
	Description string
	Price       *float64
	RegionID    *string
	CityID      *string

	DirectNegotiation bool
	IsSponsored       bool
	IsPublished       bool
	Status            ListingStatus

	HaveImage      bool
	FirstImagePath *string

	// ClientRef is an optional per-owner idempotency key for create.
	ClientRef *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// VisibleTo reports whether viewerID may read the listing detail.
func (l *Listing) VisibleTo(viewerID string) bool {
	if l.Status == StatusDeleted {
		return false
	}
	if l.IsPublished {
		return true
	}
	return viewerID != "" && viewerID == l.UserID
}

// Image is a registry entry for an uploaded file, keyed by its unique URL.
type Image struct {
	ID        string
	URL       string
	AltText   *string
	CreatedAt time.Time
}

// Link attaches an image to a listing. Cover marks the image chosen as the
// listing's main picture.
type Link struct {
	ID        string
	ListingID string
	ImageID   string
	Cover     bool
	CreatedAt time.Time
}

type Favorite struct {
	ID        string
	UserID    string
	ListingID string
	CreatedAt time.Time
}

// FindOrCreateResult tags a record with whether the call inserted it or found
// an existing one after a uniqueness conflict.
type FindOrCreateResult[T any] struct {
	Record  T
	Created bool
}

// ImageProjection is the denormalized image state stored on a listing.
type ImageProjection struct {
	HaveImage      bool
	FirstImagePath *string
}

// Equal compares two projections by value.
func (p ImageProjection) Equal(other ImageProjection) bool {
	if p.HaveImage != other.HaveImage {
		return false
	}
	if p.FirstImagePath == nil || other.FirstImagePath == nil {
		return p.FirstImagePath == nil && other.FirstImagePath == nil
	}
	return *p.FirstImagePath == *other.FirstImagePath
}

// ListingView is a listing annotated for one viewer.
type ListingView struct {
	*Listing
	IsFavorite bool
}

// Page is one page of ranked listings.
type Page struct {
	Items      []ListingView
	TotalCount int64
	Page       int
	TotalPages int
}

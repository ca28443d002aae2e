package domain

// Filter is the request-scoped search filter set. Nil fields are not applied.
type Filter struct {
	TypeAnnonceID     *string
	CategoryID        *string
	SubcategoryID     *string
	RegionID          *string
	CityID            *string
	Price             *float64
	IsSponsored       *bool
	DirectNegotiation *bool
	Query             string
	Page              int
}

// ListingQuery is the predicate handed to ListingRepository.Search. All set
// fields are combined with AND. Matching is exact.
type ListingQuery struct {
	Status      *ListingStatus
	IsPublished *bool
	UserID      *string

	TypeAnnonceID     *string
	CategoryID        *string
	SubcategoryID     *string
	RegionID          *string
	CityID            *string
	Price             *float64
	IsSponsored       *bool
	DirectNegotiation *bool

	// RestrictIDs limits matches to IDs. An empty IDs with RestrictIDs set
	// matches nothing.
	RestrictIDs bool
	IDs         []string

	Skip  int64
	Limit int64
}

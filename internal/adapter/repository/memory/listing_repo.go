// Package memory provides in-process repositories. They enforce the same
// uniqueness rules as the MongoDB indexes and back the "memory" storage driver.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ListingRepository struct {
	mu       sync.RWMutex
	listings map[string]*domain.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{listings: make(map[string]*domain.Listing)}
}

func cloneListing(l *domain.Listing) *domain.Listing {
	c := *l
	return &c
}

func (r *ListingRepository) FindOrCreate(ctx context.Context, listing *domain.Listing) (domain.FindOrCreateResult[*domain.Listing], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if listing.ClientRef != nil {
		for _, existing := range r.listings {
			if existing.UserID == listing.UserID && existing.ClientRef != nil && *existing.ClientRef == *listing.ClientRef {
				return domain.FindOrCreateResult[*domain.Listing]{Record: cloneListing(existing)}, nil
			}
		}
	}
	stored := cloneListing(listing)
	stored.ID = primitive.NewObjectID().Hex()
	r.listings[stored.ID] = stored
	listing.ID = stored.ID
	return domain.FindOrCreateResult[*domain.Listing]{Record: cloneListing(stored), Created: true}, nil
}

func (r *ListingRepository) FindByID(ctx context.Context, id string) (*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.listings[id]
	if !ok {
		return nil, domain.ErrListingNotFound
	}
	return cloneListing(l), nil
}

func (r *ListingRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.listings[id]; ok {
			out = append(out, cloneListing(l))
		}
	}
	return out, nil
}

// Update replaces the mutable fields. The image projection is left untouched.
func (r *ListingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.listings[listing.ID]
	if !ok {
		return domain.ErrListingNotFound
	}
	updated := cloneListing(listing)
	updated.HaveImage = existing.HaveImage
	updated.FirstImagePath = existing.FirstImagePath
	updated.CreatedAt = existing.CreatedAt
	updated.UserID = existing.UserID
	updated.ClientRef = existing.ClientRef
	r.listings[listing.ID] = updated
	return nil
}

func (r *ListingRepository) SetImageProjection(ctx context.Context, id string, projection domain.ImageProjection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listings[id]
	if !ok {
		return domain.ErrListingNotFound
	}
	l.HaveImage = projection.HaveImage
	l.FirstImagePath = nil
	if projection.FirstImagePath != nil {
		p := *projection.FirstImagePath
		l.FirstImagePath = &p
	}
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, q domain.ListingQuery) ([]*domain.Listing, int64, error) {
	r.mu.RLock()
	var restrict map[string]struct{}
	if q.RestrictIDs {
		restrict = make(map[string]struct{}, len(q.IDs))
		for _, id := range q.IDs {
			restrict[id] = struct{}{}
		}
	}
	matched := make([]*domain.Listing, 0)
	for _, l := range r.listings {
		if restrict != nil {
			if _, ok := restrict[l.ID]; !ok {
				continue
			}
		}
		if matches(l, q) {
			matched = append(matched, cloneListing(l))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.IsSponsored != b.IsSponsored {
			return a.IsSponsored
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})

	total := int64(len(matched))
	start := q.Skip
	if start < 0 {
		start = 0
	}
	if start > total {
		start = total
	}
	end := total
	if q.Limit > 0 && q.Limit < end-start {
		end = start + q.Limit
	}
	return matched[start:end], total, nil
}

func (r *ListingRepository) ListIDs(ctx context.Context, afterID string, limit int) ([]string, error) {
	r.mu.RLock()
	ids := make([]string, 0, len(r.listings))
	for id := range r.listings {
		if id > afterID {
			ids = append(ids, id)
		}
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func matches(l *domain.Listing, q domain.ListingQuery) bool {
	if q.Status != nil && l.Status != *q.Status {
		return false
	}
	if q.IsPublished != nil && l.IsPublished != *q.IsPublished {
		return false
	}
	if q.UserID != nil && l.UserID != *q.UserID {
		return false
	}
	if q.TypeAnnonceID != nil && l.TypeAnnonceID != *q.TypeAnnonceID {
		return false
	}
	if !equalOptional(q.CategoryID, l.CategoryID) ||
		!equalOptional(q.SubcategoryID, l.SubcategoryID) ||
		!equalOptional(q.RegionID, l.RegionID) ||
		!equalOptional(q.CityID, l.CityID) {
		return false
	}
	if q.Price != nil && (l.Price == nil || *l.Price != *q.Price) {
		return false
	}
	if q.IsSponsored != nil && l.IsSponsored != *q.IsSponsored {
		return false
	}
	if q.DirectNegotiation != nil && l.DirectNegotiation != *q.DirectNegotiation {
		return false
	}
	return true
}

// equalOptional reports whether value satisfies an optional equality filter.
func equalOptional(filter, value *string) bool {
	if filter == nil {
		return true
	}
	return value != nil && *value == *filter
}

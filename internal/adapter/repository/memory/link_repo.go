package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type linkKey struct {
	listingID string
	imageID   string
}

type LinkRepository struct {
	mu    sync.RWMutex
	links map[linkKey]*domain.Link
}

func NewLinkRepository() *LinkRepository {
	return &LinkRepository{links: make(map[linkKey]*domain.Link)}
}

func (r *LinkRepository) Link(ctx context.Context, link *domain.Link) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := linkKey{link.ListingID, link.ImageID}
	if _, ok := r.links[key]; ok {
		return false, nil
	}
	stored := *link
	stored.ID = primitive.NewObjectID().Hex()
	r.links[key] = &stored
	return true, nil
}

func (r *LinkRepository) Unlink(ctx context.Context, listingID, imageID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := linkKey{listingID, imageID}
	if _, ok := r.links[key]; !ok {
		return false, nil
	}
	delete(r.links, key)
	return true, nil
}

// SetCover marks imageID as the listing's cover and clears the flag on every
// other link of the listing.
func (r *LinkRepository) SetCover(ctx context.Context, listingID, imageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, l := range r.links {
		if key.listingID == listingID {
			l.Cover = key.imageID == imageID
		}
	}
	return nil
}

func (r *LinkRepository) CountByImage(ctx context.Context, imageID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for key := range r.links {
		if key.imageID == imageID {
			n++
		}
	}
	return n, nil
}

func (r *LinkRepository) ListByListing(ctx context.Context, listingID string) ([]*domain.Link, error) {
	r.mu.RLock()
	out := make([]*domain.Link, 0)
	for key, l := range r.links {
		if key.listingID == listingID {
			c := *l
			out = append(out, &c)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

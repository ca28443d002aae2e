package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type favoriteKey struct {
	userID    string
	listingID string
}

type FavoriteRepository struct {
	mu        sync.RWMutex
	favorites map[favoriteKey]*domain.Favorite
}

func NewFavoriteRepository() *FavoriteRepository {
	return &FavoriteRepository{favorites: make(map[favoriteKey]*domain.Favorite)}
}

func (r *FavoriteRepository) Add(ctx context.Context, userID, listingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := favoriteKey{userID, listingID}
	if _, ok := r.favorites[key]; ok {
		return false, nil
	}
	r.favorites[key] = &domain.Favorite{
		ID:        primitive.NewObjectID().Hex(),
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: time.Now().UTC(),
	}
	return true, nil
}

func (r *FavoriteRepository) Remove(ctx context.Context, userID, listingID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := favoriteKey{userID, listingID}
	if _, ok := r.favorites[key]; !ok {
		return false, nil
	}
	delete(r.favorites, key)
	return true, nil
}

func (r *FavoriteRepository) Exists(ctx context.Context, userID, listingID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.favorites[favoriteKey{userID, listingID}]
	return ok, nil
}

func (r *FavoriteRepository) ListingIDs(ctx context.Context, userID string) ([]string, error) {
	favs := r.ofUser(userID)
	ids := make([]string, len(favs))
	for i, f := range favs {
		ids[i] = f.ListingID
	}
	return ids, nil
}

func (r *FavoriteRepository) PageListingIDs(ctx context.Context, userID string, skip, limit int64) ([]string, int64, error) {
	favs := r.ofUser(userID)
	total := int64(len(favs))
	if skip < 0 {
		skip = 0
	}
	if skip > total {
		skip = total
	}
	end := total
	if limit > 0 && limit < end-skip {
		end = skip + limit
	}
	ids := make([]string, 0, end-skip)
	for _, f := range favs[skip:end] {
		ids = append(ids, f.ListingID)
	}
	return ids, total, nil
}

// ofUser returns the user's favorites newest first.
func (r *FavoriteRepository) ofUser(userID string) []*domain.Favorite {
	r.mu.RLock()
	out := make([]*domain.Favorite, 0)
	for key, f := range r.favorites {
		if key.userID == userID {
			c := *f
			out = append(out, &c)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

package memory

import (
	"context"
	"sync"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ImageRepository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Image
	byURL map[string]string
}

func NewImageRepository() *ImageRepository {
	return &ImageRepository{
		byID:  make(map[string]*domain.Image),
		byURL: make(map[string]string),
	}
}

func (r *ImageRepository) FindOrCreateByURL(ctx context.Context, image *domain.Image) (domain.FindOrCreateResult[*domain.Image], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byURL[image.URL]; ok {
		existing := *r.byID[id]
		return domain.FindOrCreateResult[*domain.Image]{Record: &existing}, nil
	}
	stored := *image
	stored.ID = primitive.NewObjectID().Hex()
	r.byID[stored.ID] = &stored
	r.byURL[stored.URL] = stored.ID
	out := stored
	return domain.FindOrCreateResult[*domain.Image]{Record: &out, Created: true}, nil
}

func (r *ImageRepository) FindByID(ctx context.Context, id string) (*domain.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	img, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrImageNotFound
	}
	out := *img
	return &out, nil
}

func (r *ImageRepository) FindByURL(ctx context.Context, url string) (*domain.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byURL[url]
	if !ok {
		return nil, domain.ErrImageNotFound
	}
	out := *r.byID[id]
	return &out, nil
}

func (r *ImageRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Image, 0, len(ids))
	for _, id := range ids {
		if img, ok := r.byID[id]; ok {
			c := *img
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *ImageRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.byID[id]
	if !ok {
		return domain.ErrImageNotFound
	}
	delete(r.byURL, img.URL)
	delete(r.byID, id)
	return nil
}

package usecase

import (
	"context"
	"fmt"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"go.uber.org/zap"
)

// Projector derives a listing's haveImage/firstImagePath from its links.
// It is the only code that writes those two fields.
type Projector struct {
	links    domain.LinkRepository
	images   domain.ImageRepository
	listings domain.ListingRepository
	cache    domain.ListingCache
	logger   *logger.Logger
}

func NewProjector(listings domain.ListingRepository, images domain.ImageRepository, links domain.LinkRepository, cache domain.ListingCache, log *logger.Logger) *Projector {
	return &Projector{
		links:    links,
		images:   images,
		listings: listings,
		cache:    cache,
		logger:   log.Named("Projector"),
	}
}

// Derive reads the current links of listingID and returns the projection
// together with the attached image URLs in link order. Nothing is written.
func (p *Projector) Derive(ctx context.Context, listingID string) (domain.ImageProjection, []string, error) {
	links, err := p.links.ListByListing(ctx, listingID)
	if err != nil {
		return domain.ImageProjection{}, nil, fmt.Errorf("Projector.Derive: list links: %w", err)
	}
	if len(links) == 0 {
		return domain.ImageProjection{}, []string{}, nil
	}

	ids := make([]string, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ImageID)
	}
	images, err := p.images.FindByIDs(ctx, ids)
	if err != nil {
		return domain.ImageProjection{}, nil, fmt.Errorf("Projector.Derive: load images: %w", err)
	}
	byID := make(map[string]*domain.Image, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}

	urls := make([]string, 0, len(links))
	var cover *string
	for _, l := range links {
		img, ok := byID[l.ImageID]
		if !ok {
			p.logger.Warn("Link references missing image",
				zap.String("listing_id", listingID), zap.String("image_id", l.ImageID))
			continue
		}
		urls = append(urls, img.URL)
		if l.Cover && cover == nil {
			u := img.URL
			cover = &u
		}
	}

	projection := domain.ImageProjection{HaveImage: len(urls) > 0}
	switch {
	case cover != nil:
		projection.FirstImagePath = cover
	case len(urls) > 0:
		first := urls[0]
		projection.FirstImagePath = &first
	}
	return projection, urls, nil
}

// Recompute derives the projection and stores it on the listing.
func (p *Projector) Recompute(ctx context.Context, listingID string) (domain.ImageProjection, []string, error) {
	projection, urls, err := p.Derive(ctx, listingID)
	if err != nil {
		return domain.ImageProjection{}, nil, err
	}
	if err := p.listings.SetImageProjection(ctx, listingID, projection); err != nil {
		return domain.ImageProjection{}, nil, fmt.Errorf("Projector.Recompute: %w", err)
	}
	p.invalidate(ctx, listingID)
	return projection, urls, nil
}

func (p *Projector) invalidate(ctx context.Context, listingID string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Delete(ctx, listingID); err != nil {
		p.logger.Warn("Failed to invalidate listing cache", zap.String("listing_id", listingID), zap.Error(err))
	}
}

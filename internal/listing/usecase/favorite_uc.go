package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/metrics"
	"go.uber.org/zap"
)

type FavoriteUsecase struct {
	favorites domain.FavoriteRepository
	listings  domain.ListingRepository
	metrics   *metrics.MetricsManager
	logger    *logger.Logger
}

func NewFavoriteUsecase(favorites domain.FavoriteRepository, listings domain.ListingRepository, m *metrics.MetricsManager, log *logger.Logger) *FavoriteUsecase {
	return &FavoriteUsecase{
		favorites: favorites,
		listings:  listings,
		metrics:   m,
		logger:    log.Named("FavoriteUsecase"),
	}
}

// Toggle sets the favorite state of listingID for userID. Both directions are
// idempotent. It returns the resulting state.
func (uc *FavoriteUsecase) Toggle(ctx context.Context, userID, listingID string, isFavorite bool) (bool, error) {
	if userID == "" {
		return false, domain.ErrUnauthorized
	}
	listingID = strings.TrimSpace(listingID)
	if listingID == "" {
		return false, fmt.Errorf("%w: annonceId is required", domain.ErrValidation)
	}

	if !isFavorite {
		removed, err := uc.favorites.Remove(ctx, userID, listingID)
		if err != nil {
			uc.logger.Error("Failed to remove favorite", zap.String("user_id", userID), zap.String("listing_id", listingID), zap.Error(err))
			return false, fmt.Errorf("FavoriteUsecase.Toggle: %w", err)
		}
		if removed {
			uc.metrics.FavoriteToggled(false)
		}
		return false, nil
	}

	listing, err := uc.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return false, domain.ErrListingNotFound
		}
		return false, fmt.Errorf("FavoriteUsecase.Toggle: %w", err)
	}
	if listing.Status == domain.StatusDeleted {
		return false, domain.ErrListingNotFound
	}

	created, err := uc.favorites.Add(ctx, userID, listingID)
	if err != nil {
		uc.logger.Error("Failed to add favorite", zap.String("user_id", userID), zap.String("listing_id", listingID), zap.Error(err))
		return false, fmt.Errorf("FavoriteUsecase.Toggle: %w", err)
	}
	if created {
		uc.metrics.FavoriteToggled(true)
	}
	return true, nil
}

// List returns the user's favorites, newest first. Only the listings of the
// requested page are loaded. Favorites whose listing no longer exists are
// skipped.
func (uc *FavoriteUsecase) List(ctx context.Context, userID string, page int) (*domain.Page, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	page = normalizePage(page)
	skip := pageSkip(page, OwnerPageSize)

	ids, total, err := uc.favorites.PageListingIDs(ctx, userID, skip, OwnerPageSize)
	if err != nil {
		return nil, fmt.Errorf("FavoriteUsecase.List: %w", err)
	}
	listings, err := uc.listings.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("FavoriteUsecase.List: %w", err)
	}
	byID := make(map[string]*domain.Listing, len(listings))
	for _, l := range listings {
		byID[l.ID] = l
	}

	items := make([]domain.ListingView, 0, len(ids))
	for _, id := range ids {
		l, ok := byID[id]
		if !ok {
			uc.logger.Debug("Favorite points at missing listing", zap.String("user_id", userID), zap.String("listing_id", id))
			continue
		}
		items = append(items, domain.ListingView{Listing: l, IsFavorite: true})
	}
	uc.metrics.SearchServed("favorites")
	return &domain.Page{
		Items:      items,
		TotalCount: total,
		Page:       page,
		TotalPages: totalPages(total, OwnerPageSize),
	}, nil
}

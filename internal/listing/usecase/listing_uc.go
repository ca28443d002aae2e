package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("annonce-service/usecase")

const (
	SubjectListingCreated = "listing.created"
	SubjectListingUpdated = "listing.updated"
	SubjectListingDeleted = "listing.deleted"

	notifyTimeout = 15 * time.Second
)

// CreateListingInput carries raw submission fields. Optional fields that are
// blank are stored as null.
type CreateListingInput struct {
	TypeAnnonceID     string
	TypeAnnonceName   string
	CategoryID        string
	CategoryName      string
	SubcategoryID     string
	SubcategoryName   string
	Title             string
	Description       string
	Price             string
	RegionID          string
	CityID            string
	DirectNegotiation bool
	IsPublished       *bool
	ClientRef         string
}

// UpdateListingInput is a patch: nil fields are left unchanged, blank optional
// fields are cleared.
type UpdateListingInput struct {
	TypeAnnonceID     *string
	TypeAnnonceName   *string
	CategoryID        *string
	CategoryName      *string
	SubcategoryID     *string
	SubcategoryName   *string
	Title             *string
	Description       *string
	Price             *string
	RegionID          *string
	CityID            *string
	DirectNegotiation *bool
	IsPublished       *bool
}

type ListingUsecase struct {
	listings  domain.ListingRepository
	favorites domain.FavoriteRepository
	cache     domain.ListingCache
	cacheTTL  time.Duration
	publisher domain.EventPublisher
	notifier  domain.ListingNotifier
	metrics   *metrics.MetricsManager
	logger    *logger.Logger
}

// ListingOption configures optional collaborators of ListingUsecase.
type ListingOption func(*ListingUsecase)

func WithListingCache(cache domain.ListingCache, ttl time.Duration) ListingOption {
	return func(uc *ListingUsecase) {
		uc.cache = cache
		uc.cacheTTL = ttl
	}
}

func WithListingPublisher(p domain.EventPublisher) ListingOption {
	return func(uc *ListingUsecase) { uc.publisher = p }
}

func WithListingNotifier(n domain.ListingNotifier) ListingOption {
	return func(uc *ListingUsecase) { uc.notifier = n }
}

func WithListingMetrics(m *metrics.MetricsManager) ListingOption {
	return func(uc *ListingUsecase) { uc.metrics = m }
}

func NewListingUsecase(listings domain.ListingRepository, favorites domain.FavoriteRepository, log *logger.Logger, opts ...ListingOption) *ListingUsecase {
	uc := &ListingUsecase{
		listings:  listings,
		favorites: favorites,
		cacheTTL:  10 * time.Minute,
		logger:    log.Named("ListingUsecase"),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Create stores a new listing for ownerID. When the submission carries a
// ClientRef already used by the same owner, the existing listing is returned
// with Created=false.
func (uc *ListingUsecase) Create(ctx context.Context, ownerID string, in CreateListingInput) (domain.FindOrCreateResult[*domain.Listing], error) {
	var zero domain.FindOrCreateResult[*domain.Listing]
	if ownerID == "" {
		return zero, domain.ErrUnauthorized
	}

	ctx, span := tracer.Start(ctx, "ListingUsecase.Create", oteltrace.WithAttributes(attribute.String("owner_id", ownerID)))
	defer span.End()

	typeID := strings.TrimSpace(in.TypeAnnonceID)
	if typeID == "" {
		return zero, fmt.Errorf("%w: typeAnnonceId is required", domain.ErrValidation)
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return zero, fmt.Errorf("%w: description is required", domain.ErrValidation)
	}
	price, err := optionalPrice(in.Price)
	if err != nil {
		return zero, err
	}

	published := true
	if in.IsPublished != nil {
		published = *in.IsPublished
	}

	now := time.Now().UTC()
	listing := &domain.Listing{
		UserID:            ownerID,
		TypeAnnonceID:     typeID,
		TypeAnnonceName:   strings.TrimSpace(in.TypeAnnonceName),
		CategoryID:        optionalString(in.CategoryID),
		CategoryName:      optionalString(in.CategoryName),
		SubcategoryID:     optionalString(in.SubcategoryID),
		SubcategoryName:   optionalString(in.SubcategoryName),
		Title:             optionalString(in.Title),
		Description:       description,
		Price:             price,
		RegionID:          optionalString(in.RegionID),
		CityID:            optionalString(in.CityID),
		DirectNegotiation: in.DirectNegotiation,
		IsPublished:       published,
		Status:            domain.StatusActive,
		ClientRef:         optionalString(in.ClientRef),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	res, err := uc.listings.FindOrCreate(ctx, listing)
	if err != nil {
		span.RecordError(err)
		uc.logger.Error("Failed to create listing", zap.String("owner_id", ownerID), zap.Error(err))
		return zero, fmt.Errorf("ListingUsecase.Create: %w", err)
	}
	if !res.Created {
		uc.logger.Info("Listing create resolved to existing record",
			zap.String("listing_id", res.Record.ID), zap.String("owner_id", ownerID))
		return res, nil
	}

	uc.metrics.ListingCreated()
	uc.publish(ctx, SubjectListingCreated, res.Record)
	uc.notifyCreated(ctx, res.Record)
	uc.logger.Info("Listing created", zap.String("listing_id", res.Record.ID), zap.String("owner_id", ownerID))
	return res, nil
}

// Update applies patch to a listing owned by ownerID.
func (uc *ListingUsecase) Update(ctx context.Context, listingID, ownerID string, patch UpdateListingInput) (*domain.Listing, error) {
	ctx, span := tracer.Start(ctx, "ListingUsecase.Update", oteltrace.WithAttributes(attribute.String("listing_id", listingID)))
	defer span.End()

	listing, err := uc.ownedForWrite(ctx, listingID, ownerID)
	if err != nil {
		return nil, err
	}
	if err := applyPatch(listing, patch); err != nil {
		return nil, err
	}
	listing.UpdatedAt = time.Now().UTC()

	if err := uc.listings.Update(ctx, listing); err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, domain.ErrNotFoundOrForbidden
		}
		uc.logger.Error("Failed to update listing", zap.String("listing_id", listingID), zap.Error(err))
		return nil, fmt.Errorf("ListingUsecase.Update: %w", err)
	}

	uc.invalidate(ctx, listingID)
	uc.publish(ctx, SubjectListingUpdated, listing)
	return listing, nil
}

// SoftDelete marks a listing owned by ownerID as deleted.
func (uc *ListingUsecase) SoftDelete(ctx context.Context, listingID, ownerID string) error {
	ctx, span := tracer.Start(ctx, "ListingUsecase.SoftDelete", oteltrace.WithAttributes(attribute.String("listing_id", listingID)))
	defer span.End()

	listing, err := uc.ownedForWrite(ctx, listingID, ownerID)
	if err != nil {
		return err
	}
	listing.Status = domain.StatusDeleted
	listing.UpdatedAt = time.Now().UTC()

	if err := uc.listings.Update(ctx, listing); err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrListingNotFound) {
			return domain.ErrNotFoundOrForbidden
		}
		return fmt.Errorf("ListingUsecase.SoftDelete: %w", err)
	}

	uc.invalidate(ctx, listingID)
	uc.publish(ctx, SubjectListingDeleted, listing)
	uc.logger.Info("Listing soft-deleted", zap.String("listing_id", listingID), zap.String("owner_id", ownerID))
	return nil
}

// Get returns the listing detail as seen by viewerID (empty for anonymous).
func (uc *ListingUsecase) Get(ctx context.Context, listingID, viewerID string) (*domain.ListingView, error) {
	listing, err := uc.load(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.VisibleTo(viewerID) {
		return nil, domain.ErrListingNotFound
	}

	view := &domain.ListingView{Listing: listing}
	if viewerID != "" && uc.favorites != nil {
		fav, err := uc.favorites.Exists(ctx, viewerID, listingID)
		if err != nil {
			return nil, fmt.Errorf("ListingUsecase.Get: favorite lookup: %w", err)
		}
		view.IsFavorite = fav
	}
	return view, nil
}

func (uc *ListingUsecase) load(ctx context.Context, listingID string) (*domain.Listing, error) {
	if uc.cache != nil {
		cached, err := uc.cache.Get(ctx, listingID)
		if err == nil && cached != nil {
			return cached, nil
		}
		if err != nil {
			uc.logger.Debug("Listing cache miss", zap.String("listing_id", listingID), zap.Error(err))
		}
	}

	listing, err := uc.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("ListingUsecase.load: %w", err)
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, listing, uc.cacheTTL); err != nil {
			uc.logger.Warn("Failed to cache listing", zap.String("listing_id", listingID), zap.Error(err))
		}
	}
	return listing, nil
}

// ownedForWrite loads a live listing and checks ownership. Missing, deleted
// and foreign listings all yield ErrNotFoundOrForbidden.
func (uc *ListingUsecase) ownedForWrite(ctx context.Context, listingID, ownerID string) (*domain.Listing, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	listing, err := uc.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, domain.ErrNotFoundOrForbidden
		}
		return nil, fmt.Errorf("ListingUsecase: load listing %s: %w", listingID, err)
	}
	if listing.Status == domain.StatusDeleted || listing.UserID != ownerID {
		uc.logger.Warn("Write rejected on listing",
			zap.String("listing_id", listingID),
			zap.String("user_id", ownerID),
			zap.String("status", string(listing.Status)))
		return nil, domain.ErrNotFoundOrForbidden
	}
	return listing, nil
}

func applyPatch(l *domain.Listing, p UpdateListingInput) error {
	if p.TypeAnnonceID != nil {
		typeID := strings.TrimSpace(*p.TypeAnnonceID)
		if typeID == "" {
			return fmt.Errorf("%w: typeAnnonceId cannot be blank", domain.ErrValidation)
		}
		l.TypeAnnonceID = typeID
	}
	if p.Description != nil {
		description := strings.TrimSpace(*p.Description)
		if description == "" {
			return fmt.Errorf("%w: description cannot be blank", domain.ErrValidation)
		}
		l.Description = description
	}
	if p.Price != nil {
		price, err := optionalPrice(*p.Price)
		if err != nil {
			return err
		}
		l.Price = price
	}
	if p.TypeAnnonceName != nil {
		l.TypeAnnonceName = strings.TrimSpace(*p.TypeAnnonceName)
	}

	optionals := []struct {
		in  *string
		out **string
	}{
		{p.CategoryID, &l.CategoryID},
		{p.CategoryName, &l.CategoryName},
		{p.SubcategoryID, &l.SubcategoryID},
		{p.SubcategoryName, &l.SubcategoryName},
		{p.Title, &l.Title},
		{p.RegionID, &l.RegionID},
		{p.CityID, &l.CityID},
	}
	for _, f := range optionals {
		if f.in != nil {
			*f.out = optionalString(*f.in)
		}
	}

	if p.DirectNegotiation != nil {
		l.DirectNegotiation = *p.DirectNegotiation
	}
	if p.IsPublished != nil {
		l.IsPublished = *p.IsPublished
	}
	return nil
}

func (uc *ListingUsecase) invalidate(ctx context.Context, listingID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, listingID); err != nil {
		uc.logger.Warn("Failed to invalidate listing cache", zap.String("listing_id", listingID), zap.Error(err))
	}
}

func (uc *ListingUsecase) publish(ctx context.Context, subject string, l *domain.Listing) {
	if uc.publisher == nil {
		return
	}
	event := map[string]interface{}{
		"id":            l.ID,
		"user_id":       l.UserID,
		"status":        string(l.Status),
		"is_published":  l.IsPublished,
		"type_annonce":  l.TypeAnnonceID,
		"updated_at_ms": l.UpdatedAt.UnixMilli(),
	}
	if err := uc.publisher.Publish(ctx, subject, event); err != nil {
		uc.logger.Warn("Failed to publish listing event", zap.String("subject", subject), zap.String("listing_id", l.ID), zap.Error(err))
	}
}

func (uc *ListingUsecase) notifyCreated(ctx context.Context, l *domain.Listing) {
	if uc.notifier == nil {
		return
	}
	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := uc.notifier.NotifyListingCreated(nctx, l); err != nil {
			uc.logger.Warn("Failed to notify owner about new listing", zap.String("listing_id", l.ID), zap.Error(err))
		}
	}()
}

package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/metrics"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	PublicPageSize = 16
	OwnerPageSize  = 6
)

type SearchUsecase struct {
	listings  domain.ListingRepository
	favorites domain.FavoriteRepository
	semantic  domain.SemanticSearcher
	metrics   *metrics.MetricsManager
	logger    *logger.Logger
}

// NewSearchUsecase builds the search engine. semantic may be nil, in which
// case every free-text query matches nothing.
func NewSearchUsecase(listings domain.ListingRepository, favorites domain.FavoriteRepository, semantic domain.SemanticSearcher, m *metrics.MetricsManager, log *logger.Logger) *SearchUsecase {
	return &SearchUsecase{
		listings:  listings,
		favorites: favorites,
		semantic:  semantic,
		metrics:   m,
		logger:    log.Named("SearchUsecase"),
	}
}

// Search returns one page of published active listings matching f, ranked
// sponsored first, then most recently updated.
func (uc *SearchUsecase) Search(ctx context.Context, f domain.Filter, viewerID string) (*domain.Page, error) {
	ctx, span := tracer.Start(ctx, "SearchUsecase.Search", oteltrace.WithAttributes(
		attribute.Int("page", f.Page),
		attribute.Bool("free_text", strings.TrimSpace(f.Query) != ""),
	))
	defer span.End()

	active := domain.StatusActive
	published := true
	q := domain.ListingQuery{
		Status:            &active,
		IsPublished:       &published,
		TypeAnnonceID:     f.TypeAnnonceID,
		CategoryID:        f.CategoryID,
		SubcategoryID:     f.SubcategoryID,
		RegionID:          f.RegionID,
		CityID:            f.CityID,
		Price:             f.Price,
		IsSponsored:       f.IsSponsored,
		DirectNegotiation: f.DirectNegotiation,
	}

	kind := "filter"
	if text := strings.TrimSpace(f.Query); text != "" {
		kind = "semantic"
		q.RestrictIDs = true
		q.IDs = uc.semanticCandidates(ctx, text)
	}
	uc.metrics.SearchServed(kind)

	return uc.page(ctx, q, f.Page, PublicPageSize, viewerID)
}

// ListOwn returns the owner's active listings, published or not.
func (uc *SearchUsecase) ListOwn(ctx context.Context, ownerID string, page int) (*domain.Page, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	ctx, span := tracer.Start(ctx, "SearchUsecase.ListOwn", oteltrace.WithAttributes(attribute.String("owner_id", ownerID)))
	defer span.End()

	active := domain.StatusActive
	q := domain.ListingQuery{Status: &active, UserID: &ownerID}
	uc.metrics.SearchServed("owner")
	return uc.page(ctx, q, page, OwnerPageSize, ownerID)
}

// semanticCandidates asks the semantic service for matching ids. A failure
// degrades to an empty candidate set.
func (uc *SearchUsecase) semanticCandidates(ctx context.Context, text string) []string {
	if uc.semantic == nil {
		uc.logger.Warn("Free-text query received but semantic search is not configured", zap.String("q", text))
		return []string{}
	}
	ids, err := uc.semantic.Search(ctx, text)
	if err != nil {
		uc.metrics.SemanticFailed()
		uc.logger.Warn("Semantic search failed, returning no results", zap.String("q", text), zap.Error(err))
		return []string{}
	}
	if ids == nil {
		return []string{}
	}
	return ids
}

func (uc *SearchUsecase) page(ctx context.Context, q domain.ListingQuery, page, size int, viewerID string) (*domain.Page, error) {
	page = normalizePage(page)
	q.Skip = pageSkip(page, size)
	q.Limit = int64(size)

	listings, total, err := uc.listings.Search(ctx, q)
	if err != nil {
		uc.logger.Error("Listing search failed", zap.Error(err))
		return nil, fmt.Errorf("SearchUsecase: %w", err)
	}
	items, err := overlayFavorites(ctx, uc.favorites, viewerID, listings)
	if err != nil {
		return nil, fmt.Errorf("SearchUsecase: %w", err)
	}
	return &domain.Page{
		Items:      items,
		TotalCount: total,
		Page:       page,
		TotalPages: totalPages(total, size),
	}, nil
}

// overlayFavorites marks the viewer's favorites in listings using a single
// lookup of the viewer's favorite set.
func overlayFavorites(ctx context.Context, favorites domain.FavoriteRepository, viewerID string, listings []*domain.Listing) ([]domain.ListingView, error) {
	items := make([]domain.ListingView, len(listings))
	for i, l := range listings {
		items[i] = domain.ListingView{Listing: l}
	}
	if viewerID == "" || favorites == nil || len(listings) == 0 {
		return items, nil
	}
	ids, err := favorites.ListingIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("favorite overlay: %w", err)
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for i := range items {
		_, items[i].IsFavorite = set[items[i].ID]
	}
	return items, nil
}

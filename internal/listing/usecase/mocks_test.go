package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/adapter/repository/memory"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/stretchr/testify/mock"
)

type MockSemanticSearcher struct{ mock.Mock }

func (m *MockSemanticSearcher) Search(ctx context.Context, query string) ([]string, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockEventPublisher struct{ mock.Mock }

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

type MockListingCache struct{ mock.Mock }

func (m *MockListingCache) Get(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}
func (m *MockListingCache) Set(ctx context.Context, listing *domain.Listing, ttl time.Duration) error {
	args := m.Called(ctx, listing, ttl)
	return args.Error(0)
}
func (m *MockListingCache) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// fakeBlobStore hands out deterministic URLs. When fixedURL is set every
// write resolves to it, which simulates re-uploading stored bytes.
type fakeBlobStore struct {
	mu       sync.Mutex
	keys     []string
	fixedURL string
	failAt   int
}

func newFakeBlobStore() *fakeBlobStore { return &fakeBlobStore{failAt: -1} }

func (b *fakeBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failAt == len(b.keys) {
		b.keys = append(b.keys, "")
		return "", fmt.Errorf("blob store unavailable")
	}
	b.keys = append(b.keys, key)
	if b.fixedURL != "" {
		return b.fixedURL, nil
	}
	return "http://blobs.local/annonce-images/" + key, nil
}

func (b *fakeBlobStore) writes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.keys)
}

// testEnv wires every usecase over the memory repositories.
type testEnv struct {
	listings  *memory.ListingRepository
	images    *memory.ImageRepository
	links     *memory.LinkRepository
	favorites *memory.FavoriteRepository
	blobs     *fakeBlobStore
	semantic  *MockSemanticSearcher

	projector  *Projector
	listingUC  *ListingUsecase
	assetUC    *AssetUsecase
	searchUC   *SearchUsecase
	favoriteUC *FavoriteUsecase
	reconciler *Reconciler
}

func newTestEnv() *testEnv {
	log := logger.NewNop()
	env := &testEnv{
		listings:  memory.NewListingRepository(),
		images:    memory.NewImageRepository(),
		links:     memory.NewLinkRepository(),
		favorites: memory.NewFavoriteRepository(),
		blobs:     newFakeBlobStore(),
		semantic:  &MockSemanticSearcher{},
	}
	env.projector = NewProjector(env.listings, env.images, env.links, nil, log)
	env.listingUC = NewListingUsecase(env.listings, env.favorites, log)
	env.assetUC = NewAssetUsecase(env.listings, env.images, env.links, env.blobs, memory.TxRunner{}, env.projector, nil, nil, log)
	env.searchUC = NewSearchUsecase(env.listings, env.favorites, env.semantic, nil, log)
	env.favoriteUC = NewFavoriteUsecase(env.favorites, env.listings, nil, log)
	env.reconciler = NewReconciler(env.listings, env.projector, nil, log)
	return env
}

func (e *testEnv) createListing(ctx context.Context, ownerID string, in CreateListingInput) *domain.Listing {
	if in.TypeAnnonceID == "" {
		in.TypeAnnonceID = "sale"
	}
	if in.Description == "" {
		in.Description = "a listing"
	}
	res, err := e.listingUC.Create(ctx, ownerID, in)
	if err != nil {
		panic(err)
	}
	return res.Record
}

func jpeg(name string) UploadFile {
	return UploadFile{Filename: name, ContentType: "image/jpeg", Data: []byte("\xff\xd8\xff" + name)}
}

func strPtr(s string) *string { return &s }

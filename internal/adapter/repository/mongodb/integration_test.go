package mongodb

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	testClient *mongo.Client
	skipReason string
)

// TestMain starts a throwaway single-node MongoDB replica set so transactions
// are available. Without Docker the tests in this package are skipped.
func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		skipReason = "short mode"
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		skipReason = fmt.Sprintf("docker unavailable: %v", err)
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "6.0",
		Cmd:        []string{"--replSet", "rs0", "--bind_ip_all"},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("Could not start MongoDB resource: %s", err)
	}
	_ = resource.Expire(120)
	uri := fmt.Sprintf("mongodb://%s/?directConnection=true", resource.GetHostPort("27017/tcp"))

	if err := pool.Retry(func() error {
		var errRetry error
		testClient, errRetry = mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
		if errRetry != nil {
			return errRetry
		}
		return testClient.Ping(context.Background(), nil)
	}); err != nil {
		log.Fatalf("Could not connect to MongoDB: %s", err)
	}
	if err := initReplicaSet(pool); err != nil {
		log.Fatalf("Could not initiate replica set: %s", err)
	}

	code := m.Run()

	_ = testClient.Disconnect(context.Background())
	if err := pool.Purge(resource); err != nil {
		log.Printf("Could not purge MongoDB resource: %s", err)
	}
	os.Exit(code)
}

func initReplicaSet(pool *dockertest.Pool) error {
	admin := testClient.Database("admin")
	err := admin.RunCommand(context.Background(), bson.D{{Key: "replSetInitiate", Value: bson.M{}}}).Err()
	if err != nil && !strings.Contains(err.Error(), "already initialized") {
		return err
	}
	return pool.Retry(func() error {
		var hello struct {
			IsWritablePrimary bool `bson:"isWritablePrimary"`
		}
		if err := admin.RunCommand(context.Background(), bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
			return err
		}
		if !hello.IsWritablePrimary {
			return errors.New("replica set has no primary yet")
		}
		return nil
	})
}

func testDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	if skipReason != "" {
		t.Skip(skipReason)
	}
	db := testClient.Database(fmt.Sprintf("annonces_it_%d", time.Now().UnixNano()))
	t.Cleanup(func() { _ = db.Drop(context.Background()) })
	return db
}

func TestListingRepository_SearchAndProjection(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	repo, err := NewListingRepository(db, logger.NewNop())
	require.NoError(t, err)

	price := 500.0
	base := time.Now().UTC().Truncate(time.Millisecond)
	var ids []string
	for i := 0; i < 3; i++ {
		res, err := repo.FindOrCreate(ctx, &domain.Listing{
			UserID:        "u1",
			TypeAnnonceID: "sale",
			Description:   "bike",
			Price:         &price,
			Status:        domain.StatusActive,
			IsPublished:   true,
			IsSponsored:   i == 0,
			CreatedAt:     base,
			UpdatedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.True(t, res.Created)
		ids = append(ids, res.Record.ID)
	}

	active := domain.StatusActive
	listings, total, err := repo.Search(ctx, domain.ListingQuery{Status: &active, Price: &price, Limit: 16})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, listings, 3)
	assert.Equal(t, ids[0], listings[0].ID)
	assert.Equal(t, ids[2], listings[1].ID)
	assert.Equal(t, ids[1], listings[2].ID)

	_, total, err = repo.Search(ctx, domain.ListingQuery{RestrictIDs: true, IDs: []string{}})
	require.NoError(t, err)
	assert.Zero(t, total)

	url := "http://blobs/x.jpg"
	require.NoError(t, repo.SetImageProjection(ctx, ids[1], domain.ImageProjection{HaveImage: true, FirstImagePath: &url}))
	l, err := repo.FindByID(ctx, ids[1])
	require.NoError(t, err)
	assert.True(t, l.HaveImage)
	assert.Equal(t, url, *l.FirstImagePath)

	l.Description = "edited"
	require.NoError(t, repo.Update(ctx, l))
	l, err = repo.FindByID(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "edited", l.Description)
	assert.True(t, l.HaveImage)

	page, err := repo.ListIDs(ctx, ids[0], 10)
	require.NoError(t, err)
	assert.Equal(t, ids[1:], page)
}

func TestListingRepository_ClientRefConflictReturnsExisting(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	repo, err := NewListingRepository(db, logger.NewNop())
	require.NoError(t, err)

	ref := "form-1"
	newListing := func() *domain.Listing {
		return &domain.Listing{UserID: "u1", TypeAnnonceID: "sale", Description: "d", Status: domain.StatusActive, ClientRef: &ref}
	}
	first, err := repo.FindOrCreate(ctx, newListing())
	require.NoError(t, err)
	second, err := repo.FindOrCreate(ctx, newListing())
	require.NoError(t, err)

	assert.True(t, first.Created)
	assert.False(t, second.Created)
	assert.Equal(t, first.Record.ID, second.Record.ID)

	// Listings without a client ref never collide.
	for i := 0; i < 2; i++ {
		res, err := repo.FindOrCreate(ctx, &domain.Listing{UserID: "u1", TypeAnnonceID: "sale", Description: "d"})
		require.NoError(t, err)
		assert.True(t, res.Created)
	}
}

func TestImageAndLinkRepositories(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	images, err := NewImageRepository(db, logger.NewNop())
	require.NoError(t, err)
	links, err := NewLinkRepository(db, logger.NewNop())
	require.NoError(t, err)

	first, err := images.FindOrCreateByURL(ctx, &domain.Image{URL: "http://blobs/a.jpg", CreatedAt: time.Now()})
	require.NoError(t, err)
	again, err := images.FindOrCreateByURL(ctx, &domain.Image{URL: "http://blobs/a.jpg", CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.False(t, again.Created)
	assert.Equal(t, first.Record.ID, again.Record.ID)

	created, err := links.Link(ctx, &domain.Link{ListingID: "l1", ImageID: first.Record.ID, CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.True(t, created)
	created, err = links.Link(ctx, &domain.Link{ListingID: "l1", ImageID: first.Record.ID, CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, links.SetCover(ctx, "l1", first.Record.ID))
	list, err := links.ListByListing(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Cover)

	n, err := links.CountByImage(ctx, first.Record.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	deleted, err := links.Unlink(ctx, "l1", first.Record.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = links.Unlink(ctx, "l1", first.Record.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, images.Delete(ctx, first.Record.ID))
	_, err = images.FindByID(ctx, first.Record.ID)
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}

func TestTxRunner_RepeatedImageAndLinkCommitOnce(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	images, err := NewImageRepository(db, logger.NewNop())
	require.NoError(t, err)
	links, err := NewLinkRepository(db, logger.NewNop())
	require.NoError(t, err)
	tx := NewTxRunner(testClient, true, logger.NewNop())

	url := "http://blobs/tx.jpg"
	attempts := 0
	err = tx.WithinTransaction(ctx, func(ctx context.Context) error {
		attempts++
		var imageID string
		for i := 0; i < 2; i++ {
			res, err := images.FindOrCreateByURL(ctx, &domain.Image{URL: url, CreatedAt: time.Now()})
			if err != nil {
				return err
			}
			assert.Equal(t, i == 0, res.Created)
			imageID = res.Record.ID
			created, err := links.Link(ctx, &domain.Link{ListingID: "l1", ImageID: imageID, CreatedAt: time.Now()})
			if err != nil {
				return err
			}
			assert.Equal(t, i == 0, created)
		}
		return links.SetCover(ctx, "l1", imageID)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)

	// A second transaction re-linking the committed pair also commits.
	err = tx.WithinTransaction(ctx, func(ctx context.Context) error {
		res, err := images.FindOrCreateByURL(ctx, &domain.Image{URL: url, CreatedAt: time.Now()})
		if err != nil {
			return err
		}
		assert.False(t, res.Created)
		created, err := links.Link(ctx, &domain.Link{ListingID: "l1", ImageID: res.Record.ID, CreatedAt: time.Now()})
		assert.False(t, created)
		return err
	})
	require.NoError(t, err)

	list, err := links.ListByListing(ctx, "l1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Cover)
	n, err := db.Collection(imageCollectionName).CountDocuments(ctx, bson.M{"url": url})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestFavoriteRepository_Idempotent(t *testing.T) {
	db := testDatabase(t)
	ctx := context.Background()
	repo, err := NewFavoriteRepository(db, logger.NewNop())
	require.NoError(t, err)

	created, err := repo.Add(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repo.Add(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.False(t, created)
	_, err = repo.Add(ctx, "u1", "l2")
	require.NoError(t, err)

	ids, total, err := repo.PageListingIDs(ctx, "u1", 0, 6)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, []string{"l2", "l1"}, ids)

	removed, err := repo.Remove(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Remove(ctx, "u1", "l1")
	require.NoError(t, err)
	assert.False(t, removed)

	all, err := repo.ListingIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"l2"}, all)
}

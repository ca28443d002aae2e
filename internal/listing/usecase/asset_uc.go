package usecase

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/metrics"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	MaxFilesPerUpload = 8
	MaxFileSize       = 10 << 20

	SubjectImagesUploaded = "listing.images.uploaded"
	SubjectImageRemoved   = "listing.image.removed"
	SubjectImageOrphaned  = "image.orphaned"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/avif": ".avif",
}

// UploadFile is one image of an upload batch.
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

type UploadedImage struct {
	URL    string
	IsMain bool
}

type UploadResult struct {
	Images         []UploadedImage
	FirstImagePath *string
}

type DeleteImageResult struct {
	Removed   string
	Remaining []string
	domain.ImageProjection
}

type ImagesView struct {
	domain.ImageProjection
	Images []string
}

type AssetUsecase struct {
	listings  domain.ListingRepository
	images    domain.ImageRepository
	links     domain.LinkRepository
	blobs     domain.BlobStore
	tx        domain.TxRunner
	projector *Projector
	publisher domain.EventPublisher
	metrics   *metrics.MetricsManager
	logger    *logger.Logger
	now       func() time.Time
}

func NewAssetUsecase(
	listings domain.ListingRepository,
	images domain.ImageRepository,
	links domain.LinkRepository,
	blobs domain.BlobStore,
	tx domain.TxRunner,
	projector *Projector,
	publisher domain.EventPublisher,
	m *metrics.MetricsManager,
	log *logger.Logger,
) *AssetUsecase {
	return &AssetUsecase{
		listings:  listings,
		images:    images,
		links:     links,
		blobs:     blobs,
		tx:        tx,
		projector: projector,
		publisher: publisher,
		metrics:   m,
		logger:    log.Named("AssetUsecase"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// UploadImages stores files for a listing owned by ownerID and attaches them.
// The whole batch is validated before any blob is written. Blobs already
// written are kept if a later step fails.
func (uc *AssetUsecase) UploadImages(ctx context.Context, listingID, ownerID string, files []UploadFile, mainIndex int) (*UploadResult, error) {
	ctx, span := tracer.Start(ctx, "AssetUsecase.UploadImages", oteltrace.WithAttributes(
		attribute.String("listing_id", listingID),
		attribute.Int("files", len(files)),
	))
	defer span.End()

	if _, err := uc.ownedListing(ctx, listingID, ownerID); err != nil {
		return nil, err
	}
	contentTypes, err := validateBatch(files)
	if err != nil {
		return nil, err
	}
	if mainIndex < 0 {
		mainIndex = 0
	}
	if mainIndex > len(files)-1 {
		mainIndex = len(files) - 1
	}

	urls := make([]string, len(files))
	for i, f := range files {
		key := fmt.Sprintf("listings/%s/%s%s", listingID, uuid.NewString(), allowedImageTypes[contentTypes[i]])
		url, err := uc.blobs.Put(ctx, key, f.Data, contentTypes[i])
		if err != nil {
			span.RecordError(err)
			uc.logger.Error("Blob write failed",
				zap.String("listing_id", listingID), zap.Int("file_index", i), zap.Error(err))
			return nil, fmt.Errorf("AssetUsecase.UploadImages: write file %d: %w", i, err)
		}
		urls[i] = url
	}
	uc.metrics.ImagesUploaded(len(urls))

	base := uc.now()
	var projection domain.ImageProjection
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var coverID string
		for i, url := range urls {
			res, err := uc.images.FindOrCreateByURL(ctx, &domain.Image{URL: url, CreatedAt: base})
			if err != nil {
				return fmt.Errorf("register image %d: %w", i, err)
			}
			created, err := uc.links.Link(ctx, &domain.Link{
				ListingID: listingID,
				ImageID:   res.Record.ID,
				CreatedAt: base.Add(time.Duration(i) * time.Millisecond),
			})
			if err != nil {
				return fmt.Errorf("link image %d: %w", i, err)
			}
			if !created {
				uc.logger.Debug("Image already linked", zap.String("listing_id", listingID), zap.String("image_id", res.Record.ID))
			}
			if i == mainIndex {
				coverID = res.Record.ID
			}
		}
		if err := uc.links.SetCover(ctx, listingID, coverID); err != nil {
			return fmt.Errorf("set cover: %w", err)
		}
		projection, _, err = uc.projector.Recompute(ctx, listingID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		uc.logger.Error("Failed to attach uploaded images", zap.String("listing_id", listingID), zap.Error(err))
		return nil, fmt.Errorf("AssetUsecase.UploadImages: %w", err)
	}

	result := &UploadResult{
		Images:         make([]UploadedImage, len(urls)),
		FirstImagePath: projection.FirstImagePath,
	}
	for i, url := range urls {
		result.Images[i] = UploadedImage{URL: url, IsMain: i == mainIndex}
	}

	uc.publish(ctx, SubjectImagesUploaded, map[string]interface{}{
		"listing_id":       listingID,
		"urls":             urls,
		"first_image_path": projection.FirstImagePath,
	})
	uc.logger.Info("Images attached to listing",
		zap.String("listing_id", listingID), zap.Int("count", len(urls)), zap.Int("main_index", mainIndex))
	return result, nil
}

// DeleteImage detaches the image referenced by imageRef (id or URL) from the
// listing and removes the image record when no other listing uses it.
func (uc *AssetUsecase) DeleteImage(ctx context.Context, listingID, ownerID, imageRef string) (*DeleteImageResult, error) {
	ctx, span := tracer.Start(ctx, "AssetUsecase.DeleteImage", oteltrace.WithAttributes(attribute.String("listing_id", listingID)))
	defer span.End()

	if _, err := uc.ownedListing(ctx, listingID, ownerID); err != nil {
		return nil, err
	}
	image, err := uc.resolveImage(ctx, imageRef)
	if err != nil {
		return nil, err
	}

	var (
		orphaned   bool
		projection domain.ImageProjection
		remaining  []string
	)
	err = uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		deleted, err := uc.links.Unlink(ctx, listingID, image.ID)
		if err != nil {
			return fmt.Errorf("unlink: %w", err)
		}
		if !deleted {
			return domain.ErrLinkNotFound
		}
		count, err := uc.links.CountByImage(ctx, image.ID)
		if err != nil {
			return fmt.Errorf("count links: %w", err)
		}
		if count == 0 {
			if err := uc.images.Delete(ctx, image.ID); err != nil && !errors.Is(err, domain.ErrImageNotFound) {
				return fmt.Errorf("collect image: %w", err)
			}
			orphaned = true
		}
		projection, remaining, err = uc.projector.Recompute(ctx, listingID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrLinkNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		span.RecordError(err)
		uc.logger.Error("Failed to delete image", zap.String("listing_id", listingID), zap.String("image_id", image.ID), zap.Error(err))
		return nil, fmt.Errorf("AssetUsecase.DeleteImage: %w", err)
	}

	if orphaned {
		uc.metrics.ImageCollected()
		uc.publish(ctx, SubjectImageOrphaned, map[string]interface{}{
			"image_id": image.ID,
			"url":      image.URL,
		})
		uc.logger.Info("Orphaned image collected", zap.String("image_id", image.ID), zap.String("url", image.URL))
	}
	uc.publish(ctx, SubjectImageRemoved, map[string]interface{}{
		"listing_id": listingID,
		"url":        image.URL,
	})

	return &DeleteImageResult{
		Removed:         image.URL,
		Remaining:       remaining,
		ImageProjection: projection,
	}, nil
}

// ListImages returns the images attached to a listing in link order.
func (uc *AssetUsecase) ListImages(ctx context.Context, listingID string) (*ImagesView, error) {
	listing, err := uc.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("AssetUsecase.ListImages: %w", err)
	}
	if listing.Status == domain.StatusDeleted {
		return nil, domain.ErrListingNotFound
	}
	projection, urls, err := uc.projector.Derive(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("AssetUsecase.ListImages: %w", err)
	}
	return &ImagesView{ImageProjection: projection, Images: urls}, nil
}

func (uc *AssetUsecase) ownedListing(ctx context.Context, listingID, ownerID string) (*domain.Listing, error) {
	if ownerID == "" {
		return nil, domain.ErrUnauthorized
	}
	listing, err := uc.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			return nil, domain.ErrListingNotFound
		}
		return nil, fmt.Errorf("AssetUsecase: load listing %s: %w", listingID, err)
	}
	if listing.Status == domain.StatusDeleted {
		return nil, domain.ErrListingNotFound
	}
	if listing.UserID != ownerID {
		uc.logger.Warn("Image change rejected, caller does not own listing",
			zap.String("listing_id", listingID), zap.String("user_id", ownerID))
		return nil, domain.ErrForbidden
	}
	return listing, nil
}

func (uc *AssetUsecase) resolveImage(ctx context.Context, ref string) (*domain.Image, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: imageId or url is required", domain.ErrValidation)
	}
	image, err := uc.images.FindByID(ctx, ref)
	if err == nil {
		return image, nil
	}
	if !errors.Is(err, domain.ErrImageNotFound) {
		return nil, fmt.Errorf("AssetUsecase: resolve image: %w", err)
	}
	image, err = uc.images.FindByURL(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrImageNotFound) {
			return nil, domain.ErrImageNotFound
		}
		return nil, fmt.Errorf("AssetUsecase: resolve image: %w", err)
	}
	return image, nil
}

func (uc *AssetUsecase) publish(ctx context.Context, subject string, event map[string]interface{}) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, subject, event); err != nil {
		uc.logger.Warn("Failed to publish asset event", zap.String("subject", subject), zap.Error(err))
	}
}

// validateBatch checks count, size and media type of every file and returns
// the normalized content type of each.
func validateBatch(files []UploadFile) ([]string, error) {
	if len(files) == 0 {
		return nil, domain.ErrNoFiles
	}
	if len(files) > MaxFilesPerUpload {
		return nil, fmt.Errorf("%w: %d files, at most %d allowed", domain.ErrTooManyFiles, len(files), MaxFilesPerUpload)
	}
	types := make([]string, len(files))
	for i, f := range files {
		if len(f.Data) > MaxFileSize {
			return nil, fmt.Errorf("%w: %q exceeds %d bytes", domain.ErrFileTooLarge, f.Filename, MaxFileSize)
		}
		ct := normalizeContentType(f.ContentType, f.Filename)
		if _, ok := allowedImageTypes[ct]; !ok {
			return nil, fmt.Errorf("%w: %q has type %q", domain.ErrUnsupportedMediaType, f.Filename, ct)
		}
		types[i] = ct
	}
	return types, nil
}

func normalizeContentType(contentType, filename string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct == "" || ct == "application/octet-stream" {
		ct = mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	}
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mediaType
	}
	if ct == "image/jpg" || ct == "image/pjpeg" {
		ct = "image/jpeg"
	}
	return ct
}

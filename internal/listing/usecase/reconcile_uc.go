package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/annonce-service/internal/platform/metrics"
	"go.uber.org/zap"
)

const reconcileBatchSize = 200

type ReconcileReport struct {
	Scanned  int
	Repaired int
}

// Reconciler re-derives every listing's image projection and repairs drift
// left behind by partially failed writes.
type Reconciler struct {
	listings  domain.ListingRepository
	projector *Projector
	metrics   *metrics.MetricsManager
	logger    *logger.Logger
	batchSize int
}

func NewReconciler(listings domain.ListingRepository, projector *Projector, m *metrics.MetricsManager, log *logger.Logger) *Reconciler {
	return &Reconciler{
		listings:  listings,
		projector: projector,
		metrics:   m,
		logger:    log.Named("Reconciler"),
		batchSize: reconcileBatchSize,
	}
}

// ReconcileListing repairs a single listing and reports whether it drifted.
func (r *Reconciler) ReconcileListing(ctx context.Context, listingID string) (bool, error) {
	listing, err := r.listings.FindByID(ctx, listingID)
	if err != nil {
		return false, fmt.Errorf("Reconciler.ReconcileListing: %w", err)
	}
	derived, _, err := r.projector.Derive(ctx, listingID)
	if err != nil {
		return false, fmt.Errorf("Reconciler.ReconcileListing: %w", err)
	}
	stored := domain.ImageProjection{HaveImage: listing.HaveImage, FirstImagePath: listing.FirstImagePath}
	if stored.Equal(derived) {
		return false, nil
	}
	if _, _, err := r.projector.Recompute(ctx, listingID); err != nil {
		return false, fmt.Errorf("Reconciler.ReconcileListing: %w", err)
	}
	r.metrics.ProjectionRepaired()
	r.logger.Info("Repaired image projection",
		zap.String("listing_id", listingID),
		zap.Bool("have_image", derived.HaveImage))
	return true, nil
}

// RunOnce scans all listings in id order.
func (r *Reconciler) RunOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ids, err := r.listings.ListIDs(ctx, after, r.batchSize)
		if err != nil {
			return report, fmt.Errorf("Reconciler.RunOnce: %w", err)
		}
		for _, id := range ids {
			repaired, err := r.ReconcileListing(ctx, id)
			if err != nil {
				r.logger.Warn("Failed to reconcile listing", zap.String("listing_id", id), zap.Error(err))
				continue
			}
			report.Scanned++
			if repaired {
				report.Repaired++
			}
		}
		if len(ids) < r.batchSize {
			return report, nil
		}
		after = ids[len(ids)-1]
	}
}

// Run calls RunOnce every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		r.logger.Info("Reconciliation disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reconciler stopped")
			return
		case <-ticker.C:
			report, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.Error("Reconciliation pass failed", zap.Error(err))
				continue
			}
			r.logger.Info("Reconciliation pass finished",
				zap.Int("scanned", report.Scanned),
				zap.Int("repaired", report.Repaired))
		}
	}
}

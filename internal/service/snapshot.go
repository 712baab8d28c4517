package service

import (
	"context"
	"time"

	"github.com/gobihapalanivel/VendorPulse/internal/models"
	"github.com/gobihapalanivel/VendorPulse/internal/redisclient"
	"github.com/gobihapalanivel/VendorPulse/internal/upstream"
	"github.com/gobihapalanivel/VendorPulse/internal/util"

	"go.uber.org/zap"
)

// VendorSnapshot serves the supplier directory through a short-lived
// Redis cache, falling back to the procurement backend on a miss. The
// cache is dropped whenever scores are recalculated or an order batch
// completes, since both move the numbers the scorecard shows.
type VendorSnapshot struct {
	upstream *upstream.Client
	redis    *redisclient.Client
	ttl      time.Duration
	logger   *zap.Logger
}

// NewVendorSnapshot creates a new vendor snapshot provider
func NewVendorSnapshot(upstreamClient *upstream.Client, redis *redisclient.Client, ttl time.Duration) *VendorSnapshot {
	return &VendorSnapshot{
		upstream: upstreamClient,
		redis:    redis,
		ttl:      ttl,
		logger:   util.GetLogger(),
	}
}

// Vendors returns the current vendor list, cached when possible.
func (vs *VendorSnapshot) Vendors(ctx context.Context, session *upstream.Session) ([]models.Vendor, error) {
	ctx, span := util.StartSpan(ctx, "VendorSnapshot.Vendors")
	defer span.End()

	cached, hit, err := vs.redis.GetVendorSnapshot(ctx)
	if err != nil {
		vs.logger.Warn("Vendor snapshot read failed, falling back to upstream", zap.Error(err))
	}
	if hit {
		util.VendorSnapshotHitsTotal.WithLabelValues("hit").Inc()
		return cached, nil
	}
	util.VendorSnapshotHitsTotal.WithLabelValues("miss").Inc()

	vendors, err := vs.upstream.ListSuppliers(ctx, session)
	if err != nil {
		return nil, err
	}

	if err := vs.redis.SetVendorSnapshot(ctx, vendors, vs.ttl); err != nil {
		vs.logger.Warn("Failed to cache vendor snapshot", zap.Error(err))
	}

	return vendors, nil
}

// Invalidate drops the cached vendor list.
func (vs *VendorSnapshot) Invalidate(ctx context.Context) error {
	return vs.redis.InvalidateVendorSnapshot(ctx)
}

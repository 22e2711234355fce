package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/gasmarket/marketplace-api/internal/models"
	"github.com/gasmarket/marketplace-api/pkg/logger"
)

// CachedListingRepository wraps ListingRepository with a Redis
// read-through cache on single-listing reads. Catalog reads tolerate a
// short-TTL stale quantity; the conditional decrement at approval time
// always goes to Postgres, so the cache never affects overselling.
type CachedListingRepository struct {
	inner  *ListingRepository
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

// NewCachedListingRepository creates a cached wrapper around the listing
// repository
func NewCachedListingRepository(inner *ListingRepository, client *redis.Client, ttl time.Duration, logger logger.Logger) *CachedListingRepository {
	return &CachedListingRepository{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func listingCacheKey(id string) string {
	return "listing:" + id
}

// GetByID tries the cache first and falls back to the database on a miss
// or any cache error
func (r *CachedListingRepository) GetByID(ctx context.Context, id string) (*models.GasListing, error) {
	key := listingCacheKey(id)

	data, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var listing models.GasListing
		if err := json.Unmarshal(data, &listing); err == nil {
			return &listing, nil
		}
		r.logger.Warn("Failed to decode cached listing, falling back to database", "listingID", id)
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("Redis get failed, falling back to database", "error", err, "listingID", id)
	}

	listing, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(listing); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("Failed to cache listing", "error", err, "listingID", id)
		}
	}

	return listing, nil
}

// Create delegates to the database; nothing is cached until first read
func (r *CachedListingRepository) Create(ctx context.Context, listing *models.GasListing) error {
	return r.inner.Create(ctx, listing)
}

// Update delegates to the database and drops the cached copy
func (r *CachedListingRepository) Update(ctx context.Context, listing *models.GasListing) error {
	if err := r.inner.Update(ctx, listing); err != nil {
		return err
	}
	r.invalidate(ctx, listing.ID)
	return nil
}

// List always queries the database; filtered catalog pages are not cached
func (r *CachedListingRepository) List(ctx context.Context, filter ListingFilter) ([]*models.GasListing, error) {
	return r.inner.List(ctx, filter)
}

// Invalidate drops the cached copy of a listing, used after order
// transitions change its quantity outside this wrapper
func (r *CachedListingRepository) Invalidate(ctx context.Context, id string) {
	r.invalidate(ctx, id)
}

func (r *CachedListingRepository) invalidate(ctx context.Context, id string) {
	if err := r.client.Del(ctx, listingCacheKey(id)).Err(); err != nil {
		r.logger.Warn("Failed to invalidate cached listing", "error", err, "listingID", id)
	}
}

package gallery

import (
	"context"
	"time"

	"github.com/andresuchdata/gallery-feed/internal/cache"
	"github.com/andresuchdata/gallery-feed/internal/domain"
)

// ProcessTier is the name of the server-side cache tier.
const ProcessTier = "process"

// Service serves aggregated items through the process cache tier.
type Service struct {
	tier *cache.Tier
}

func NewService(agg *Aggregator, ttl time.Duration, opts ...cache.Option) *Service {
	return &Service{tier: cache.NewTier(ProcessTier, ttl, agg.Aggregate, opts...)}
}

// Items returns the cached item list, refreshing it first when fresh is set or the
// entry is no longer valid.
func (s *Service) Items(ctx context.Context, fresh bool) ([]domain.GalleryItem, error) {
	return s.tier.Get(ctx, fresh)
}

// Sorted is Items followed by Sort.
func (s *Service) Sorted(ctx context.Context, fresh bool, criterion domain.SortCriterion) ([]domain.GalleryItem, error) {
	items, err := s.Items(ctx, fresh)
	if err != nil {
		return items, err
	}
	return Sort(items, criterion), nil
}

func (s *Service) Tier() *cache.Tier { return s.tier }

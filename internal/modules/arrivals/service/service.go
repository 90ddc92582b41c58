package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/arrivals/types"
)

// ArrivalsSource fetches a live-arrivals snapshot from the remote collaborator.
type ArrivalsSource interface {
	FetchArrivals(ctx context.Context, busStopCode string) (types.StopArrivals, error)
}

// ServiceMetrics is the subset of the metrics collector the service reports to.
type ServiceMetrics interface {
	ArrivalPollInc()
	ArrivalPollErrInc()
	ArrivalPollObserve(d time.Duration)
	ArrivalCacheHitInc()
}

// ArrivalsService answers arrival queries, throttling repeat lookups of the
// same stop through a short-lived snapshot cache.
type ArrivalsService interface {
	GetArrivals(ctx context.Context, busStopCode string) (types.StopArrivals, error)
}

type arrivalsServiceImpl struct {
	source  ArrivalsSource
	cache   *gocache.Cache
	logger  *slog.Logger
	metrics ServiceMetrics
}

// NewService wires the arrivals service. Snapshots are cached per stop for
// throttle, so callers hitting the same stop faster than that interval reuse
// the last snapshot instead of polling upstream again. metrics may be nil.
func NewService(source ArrivalsSource, throttle time.Duration, logger *slog.Logger, metrics ServiceMetrics) ArrivalsService {
	return &arrivalsServiceImpl{
		source:  source,
		cache:   gocache.New(throttle, 2*throttle),
		logger:  logger,
		metrics: metrics,
	}
}

func (s *arrivalsServiceImpl) GetArrivals(ctx context.Context, busStopCode string) (types.StopArrivals, error) {
	if busStopCode == "" {
		return types.StopArrivals{}, errors.New("bus stop code required")
	}

	if cached, found := s.cache.Get(busStopCode); found {
		if s.metrics != nil {
			s.metrics.ArrivalCacheHitInc()
		}
		return cached.(types.StopArrivals), nil
	}

	start := time.Now()
	snapshot, err := s.source.FetchArrivals(ctx, busStopCode)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ArrivalPollErrInc()
		}
		return types.StopArrivals{}, fmt.Errorf("fetch arrivals for %s: %w", busStopCode, err)
	}

	s.cache.Set(busStopCode, snapshot, gocache.DefaultExpiration)
	if s.metrics != nil {
		s.metrics.ArrivalPollInc()
		s.metrics.ArrivalPollObserve(time.Since(start))
	}
	s.logger.Debug("fetched arrivals", "busStopCode", busStopCode, "services", len(snapshot.Services))
	return snapshot, nil
}

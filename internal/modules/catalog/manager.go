// Package catalog owns the locally cached bus-stop catalog: deciding when the
// remote reference data must be re-fetched versus served from the embedded
// store, and answering searches from it.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/minggliangg/my-bus-assistant-sub001/internal/datamall"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/repository"
	"github.com/minggliangg/my-bus-assistant-sub001/internal/modules/catalog/types"
)

// CatalogSource fetches raw catalog documents; pagination is its concern.
type CatalogSource interface {
	FetchBusStops(ctx context.Context) ([]datamall.BusStopsDocument, error)
}

// ManagerMetrics is the subset of the metrics collector the manager reports to.
type ManagerMetrics interface {
	CatalogRefreshInc()
	CatalogRefreshErrInc()
	CatalogRefreshObserve(d time.Duration)
	CatalogSetStops(n int)
}

type Manager struct {
	repo          repository.CatalogRepository
	source        CatalogSource
	refreshWindow time.Duration
	logger        *slog.Logger
	metrics       ManagerMetrics

	group singleflight.Group

	mu         sync.Mutex
	populating bool

	now func() time.Time
}

// NewManager wires the cache manager. metrics may be nil.
func NewManager(repo repository.CatalogRepository, source CatalogSource, refreshWindow time.Duration, logger *slog.Logger, metrics ManagerMetrics) *Manager {
	return &Manager{
		repo:          repo,
		source:        source,
		refreshWindow: refreshWindow,
		logger:        logger,
		metrics:       metrics,
		now:           time.Now,
	}
}

// Refresh re-populates the catalog when it is empty or the refresh window has
// elapsed (inclusive boundary), and is a no-op otherwise. Concurrent callers
// share a single in-flight refresh. On failure the previously cached catalog
// is left untouched and remains usable.
func (m *Manager) Refresh(ctx context.Context) error {
	stale, err := m.isStale()
	if err != nil {
		return err
	}
	if !stale {
		return nil
	}

	_, err, _ = m.group.Do("catalog-refresh", func() (any, error) {
		// Re-check after waiting: the refresh we piggybacked on may have
		// already brought the catalog up to date.
		stale, err := m.isStale()
		if err != nil || !stale {
			return nil, err
		}
		return nil, m.populate(ctx)
	})
	return err
}

// Search answers entirely from the local cache; it never touches the network.
func (m *Manager) Search(query string) ([]types.BusStop, error) {
	return m.repo.Search(query)
}

func (m *Manager) GetStop(code string) (types.BusStop, bool, error) {
	return m.repo.GetStop(code)
}

// State reports where the cache currently is in its lifecycle.
func (m *Manager) State() (types.State, error) {
	m.mu.Lock()
	populating := m.populating
	m.mu.Unlock()
	if populating {
		return types.StatePopulating, nil
	}

	last, ok, err := m.repo.LastRefreshedAt()
	if err != nil {
		return types.StateEmpty, err
	}
	if !ok {
		return types.StateEmpty, nil
	}
	if m.now().Sub(last) >= m.refreshWindow {
		return types.StateStale, nil
	}
	return types.StateFresh, nil
}

func (m *Manager) isStale() (bool, error) {
	last, ok, err := m.repo.LastRefreshedAt()
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return m.now().Sub(last) >= m.refreshWindow, nil
}

func (m *Manager) populate(ctx context.Context) error {
	m.mu.Lock()
	m.populating = true
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.populating = false
		m.mu.Unlock()
	}()

	start := m.now()
	docs, err := m.source.FetchBusStops(ctx)
	if err != nil {
		if m.metrics != nil {
			m.metrics.CatalogRefreshErrInc()
		}
		m.logger.Warn("catalog refresh failed, serving cached data", "error", err)
		return fmt.Errorf("refresh catalog: %w", err)
	}

	var stops []types.BusStop
	for _, doc := range docs {
		stops = append(stops, mapBusStops(doc)...)
	}

	if err := m.repo.ReplaceAll(stops, m.now()); err != nil {
		if m.metrics != nil {
			m.metrics.CatalogRefreshErrInc()
		}
		return fmt.Errorf("store catalog: %w", err)
	}

	if m.metrics != nil {
		m.metrics.CatalogRefreshInc()
		m.metrics.CatalogRefreshObserve(m.now().Sub(start))
		m.metrics.CatalogSetStops(len(stops))
	}
	m.logger.Info("catalog refreshed", "stops", len(stops), "duration_ms", m.now().Sub(start).Milliseconds())
	return nil
}

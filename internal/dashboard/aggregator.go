package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/assets"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inventory"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
)

const (
	statsKey      = "stats"
	recentPrefix  = "recent:"
	defaultRecent = 5
	maxRecent     = 50
)

// TrailerSource lists the fleet.
type TrailerSource interface {
	ListTrailers(ctx context.Context, query string) ([]assets.Trailer, error)
}

type InspectionSource interface {
	ListInspections(ctx context.Context, filter inspection.ListFilter) ([]inspection.Record, error)
}

type InventorySource interface {
	ListItems(ctx context.Context) (*inventory.ListResponse, error)
}

type WorkOrderSource interface {
	List(ctx context.Context, trailerID string) ([]workorders.WorkOrder, error)
}

// Sources are the read paths the aggregator draws from.
type Sources struct {
	Trailers    TrailerSource
	Inspections InspectionSource
	Inventory   InventorySource
	WorkOrders  WorkOrderSource
}

// AggregatorConfig controls the pending window and recent list size.
type AggregatorConfig struct {
	PendingWindow time.Duration
	RecentLimit   int
}

// Aggregator computes dashboard figures and keeps them in the cache.
type Aggregator struct {
	sources Sources
	cache   *Cache
	config  AggregatorConfig
	logger  *zap.Logger
	now     func() time.Time
}

func NewAggregator(sources Sources, cache *Cache, config AggregatorConfig, logger *zap.Logger) *Aggregator {
	if config.PendingWindow <= 0 {
		config.PendingWindow = 30 * 24 * time.Hour
	}
	if config.RecentLimit <= 0 {
		config.RecentLimit = defaultRecent
	}
	return &Aggregator{
		sources: sources,
		cache:   cache,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Stats returns cached stats, computing them on a miss.
func (a *Aggregator) Stats(ctx context.Context) (*Stats, error) {
	if cached, ok := a.cache.Get(statsKey); ok {
		if s, ok := cached.(*Stats); ok {
			return s, nil
		}
	}
	return a.Refresh(ctx)
}

// Refresh recomputes stats and replaces the cached copy.
func (a *Aggregator) Refresh(ctx context.Context) (*Stats, error) {
	stats, err := a.compute(ctx)
	if err != nil {
		return nil, err
	}
	a.cache.Set(statsKey, stats)
	return stats, nil
}

// Invalidate drops every cached aggregate.
func (a *Aggregator) Invalidate() {
	a.cache.Clear()
}

func (a *Aggregator) compute(ctx context.Context) (*Stats, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		errs     []error
		trailers []assets.Trailer
		records  []inspection.Record
		stock    *inventory.ListResponse
		orders   []workorders.WorkOrder
	)
	fail := func(source string, err error) {
		mu.Lock()
		errs = append(errs, fmt.Errorf("%s: %w", source, err))
		mu.Unlock()
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		list, err := a.sources.Trailers.ListTrailers(ctx, "")
		if err != nil {
			fail("trailers", err)
			return
		}
		trailers = list
	}()
	go func() {
		defer wg.Done()
		list, err := a.sources.Inspections.ListInspections(ctx, inspection.ListFilter{})
		if err != nil {
			fail("inspections", err)
			return
		}
		records = list
	}()
	go func() {
		defer wg.Done()
		resp, err := a.sources.Inventory.ListItems(ctx)
		if err != nil {
			fail("inventory", err)
			return
		}
		stock = resp
	}()
	go func() {
		defer wg.Done()
		list, err := a.sources.WorkOrders.List(ctx, "")
		if err != nil {
			fail("work orders", err)
			return
		}
		orders = list
	}()
	wg.Wait()

	if len(errs) > 0 {
		a.logger.Error("Failed to compute dashboard stats", zap.Errors("errors", errs))
		return nil, fmt.Errorf("failed to compute dashboard stats: %w", errs[0])
	}

	now := a.now()
	cutoff := now.Add(-a.config.PendingWindow)
	stats := &Stats{
		TotalTrailers: len(trailers),
		ComputedAt:    now,
	}

	inspected := make(map[string]bool)
	for _, r := range records {
		switch r.Outcome {
		case inspection.OutcomePassed:
			stats.PassedInspections++
		case inspection.OutcomeFailed:
			stats.FailedInspections++
		}
		if !r.InspectionDate.Before(cutoff) {
			inspected[r.TrailerID] = true
		}
	}
	for _, t := range trailers {
		if !inspected[t.ID] {
			stats.InspectionsPending++
		}
	}

	if stock != nil {
		stats.UsedInventory = stock.TotalUsed
		stats.PendingInventory = stock.TotalPending
		stats.LowStockItems = stock.LowStockCount
	}
	for _, wo := range orders {
		if wo.Status != workorders.StatusCompleted {
			stats.OpenWorkOrders++
		}
	}

	a.logger.Debug("Computed dashboard stats",
		zap.Int("trailers", stats.TotalTrailers),
		zap.Int("pending", stats.InspectionsPending))
	return stats, nil
}

// RecentInspections returns the newest inspections, at most limit of them.
func (a *Aggregator) RecentInspections(ctx context.Context, limit int) ([]RecentInspection, error) {
	if limit <= 0 {
		limit = a.config.RecentLimit
	}
	if limit > maxRecent {
		limit = maxRecent
	}
	key := fmt.Sprintf("%s%d", recentPrefix, limit)
	if cached, ok := a.cache.Get(key); ok {
		if list, ok := cached.([]RecentInspection); ok {
			return list, nil
		}
	}

	records, err := a.sources.Inspections.ListInspections(ctx, inspection.ListFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list recent inspections: %w", err)
	}
	if len(records) > limit {
		records = records[:limit]
	}
	recent := make([]RecentInspection, 0, len(records))
	for _, r := range records {
		recent = append(recent, toRecent(r))
	}
	a.cache.Set(key, recent)
	return recent, nil
}

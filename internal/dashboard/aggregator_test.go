package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/assets"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inventory"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
	"fleetops/fleet-portal/fleet-portal-backend/pkg/airtable"
)

var dashboardNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type staticOrders []workorders.WorkOrder

func (s staticOrders) List(ctx context.Context, trailerID string) ([]workorders.WorkOrder, error) {
	return s, nil
}

type brokenInventory struct{}

func (brokenInventory) ListItems(ctx context.Context) (*inventory.ListResponse, error) {
	return nil, errors.New("airtable: Unknown error (status 500)")
}

// MockSink is a mock implementation of the Sink interface
type MockSink struct {
	mock.Mock
}

func (m *MockSink) PublishStats(ctx context.Context, stats *Stats) error {
	args := m.Called(stats.TotalTrailers)
	return args.Error(0)
}

type fixture struct {
	aggregator  *Aggregator
	inspections inspection.Repository
	sources     Sources
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	ctx := context.Background()

	inspections := inspection.NewMemoryRepository()
	for _, rec := range []inspection.Record{
		{ID: "INS-1", TrailerID: "1", TrailerNumber: "TRL-001", Outcome: inspection.OutcomePassed, InspectionDate: dashboardNow.AddDate(0, 0, -5)},
		{ID: "INS-2", TrailerID: "2", TrailerNumber: "TRL-002", Outcome: inspection.OutcomeFailed, InspectionDate: dashboardNow.AddDate(0, 0, -40)},
	} {
		rec := rec
		_, err := inspections.SubmitInspection(ctx, &rec, nil)
		require.NoError(t, err)
	}

	sources := Sources{
		Trailers:    assets.NewService(assets.NewMemoryRepository(assets.SeedTrailers()...), logger),
		Inspections: inspections,
		Inventory:   inventory.NewService(inventory.NewMemoryRepository(inventory.SeedItems()...), 10, logger),
		WorkOrders: staticOrders{
			{Number: "WO-2026-001", Status: workorders.StatusCompleted},
			{Number: "WO-2026-002", Status: workorders.StatusInProgress},
			{Number: "WO-2026-003", Status: workorders.StatusPending},
		},
	}
	cache := NewCache(time.Minute)
	t.Cleanup(cache.Stop)

	a := NewAggregator(sources, cache, AggregatorConfig{PendingWindow: 30 * 24 * time.Hour}, logger)
	a.now = func() time.Time { return dashboardNow }
	return &fixture{aggregator: a, inspections: inspections, sources: sources}
}

func TestStats(t *testing.T) {
	f := newFixture(t)

	stats, err := f.aggregator.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalTrailers)
	assert.Equal(t, 4, stats.InspectionsPending, "only TRL-001 was inspected within 30 days")
	assert.Equal(t, 140, stats.UsedInventory)
	assert.Equal(t, 51, stats.PendingInventory)
	assert.Equal(t, 1, stats.PassedInspections)
	assert.Equal(t, 1, stats.FailedInspections)
	assert.Equal(t, 2, stats.OpenWorkOrders)
	assert.Equal(t, 0, stats.LowStockItems)
	assert.Equal(t, dashboardNow, stats.ComputedAt)
}

func TestStatsCachedUntilInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.aggregator.Stats(ctx)
	require.NoError(t, err)

	_, err = f.inspections.SubmitInspection(ctx, &inspection.Record{
		ID: "INS-3", TrailerID: "3", Outcome: inspection.OutcomePassed, InspectionDate: dashboardNow,
	}, nil)
	require.NoError(t, err)

	cached, err := f.aggregator.Stats(ctx)
	require.NoError(t, err)
	assert.Same(t, first, cached)

	NewInvalidator(f.aggregator).InspectionSubmitted(ctx, inspection.Record{ID: "INS-3"})

	fresh, err := f.aggregator.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.InspectionsPending)
	assert.Equal(t, 2, fresh.PassedInspections)

	cs := f.aggregator.cache.Stats()
	assert.Equal(t, int64(1), cs.Hits)
}

func TestStatsSourceFailure(t *testing.T) {
	f := newFixture(t)
	f.aggregator.sources.Inventory = brokenInventory{}

	stats, err := f.aggregator.Stats(context.Background())
	assert.Nil(t, stats)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory")
	assert.Equal(t, 0, f.aggregator.cache.Stats().Size)
}

func TestRecentInspections(t *testing.T) {
	f := newFixture(t)

	recent, err := f.aggregator.RecentInspections(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "INS-1", recent[0].ID, "newest first")
	assert.Equal(t, "TRL-001", recent[0].TrailerNumber)

	all, err := f.aggregator.RecentInspections(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSchedulerRunOncePublishes(t *testing.T) {
	f := newFixture(t)
	sink := new(MockSink)
	sink.On("PublishStats", 5).Return(nil).Once()
	failing := new(MockSink)
	failing.On("PublishStats", 5).Return(errors.New("offline")).Once()

	s := NewScheduler(f.aggregator, zap.NewNop(), failing, sink)
	s.RunOnce(context.Background())

	sink.AssertExpectations(t)
	failing.AssertExpectations(t)
}

func TestSchedulerStartStop(t *testing.T) {
	f := newFixture(t)
	s := NewScheduler(f.aggregator, zap.NewNop())

	assert.Error(t, s.Start("every tuesday"))
	require.NoError(t, s.Start("*/5 * * * *"))
	assert.False(t, s.NextRun().IsZero())
	s.Stop()
	assert.True(t, s.NextRun().IsZero())

	assert.NoError(t, ValidateSchedule("@hourly"))
	assert.Error(t, ValidateSchedule("* * * * * *"))
}

func TestAirtableSinkCreatesThenUpdates(t *testing.T) {
	var methods []string
	var written map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		switch r.Method {
		case http.MethodGet:
			records := []airtable.Record{}
			if written != nil {
				records = append(records, airtable.Record{ID: "recStats", Fields: written})
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"records": records})
		default:
			var body airtable.Record
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			written = body.Fields
			_ = json.NewEncoder(w).Encode(airtable.Record{ID: "recStats", Fields: body.Fields})
		}
	}))
	defer server.Close()

	sink := NewAirtableSink(airtable.NewClient(airtable.Config{APIKey: "key", BaseID: "app1", BaseURL: server.URL}), "")
	ctx := context.Background()

	require.NoError(t, sink.PublishStats(ctx, &Stats{TotalTrailers: 5, InspectionsPending: 4}))
	require.NoError(t, sink.PublishStats(ctx, &Stats{TotalTrailers: 6, InspectionsPending: 4}))

	assert.Equal(t, []string{http.MethodGet, http.MethodPost, http.MethodGet, http.MethodPatch}, methods)
	assert.Equal(t, float64(6), written["Total Trailers"])
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	router := gin.New()
	NewHandler(f.aggregator, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/api/v1/dashboard/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var stats Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 5, stats.TotalTrailers)

	w = get("/api/v1/dashboard/recent-inspections?limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	var recent []RecentInspection
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recent))
	assert.Len(t, recent, 1)

	assert.Equal(t, http.StatusBadRequest, get("/api/v1/dashboard/recent-inspections?limit=zero").Code)
	assert.Equal(t, http.StatusOK, get("/api/v1/dashboard/stats?refresh=true").Code)

	f.aggregator.sources.Inventory = brokenInventory{}
	f.aggregator.Invalidate()
	assert.Equal(t, http.StatusBadGateway, get("/api/v1/dashboard/stats").Code)
}

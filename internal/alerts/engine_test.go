package alerts

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inventory"
	"fleetops/fleet-portal/fleet-portal-backend/internal/notifications/websocket"
)

var fixedNow = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

type staticInventory struct {
	resp *inventory.ListResponse
	err  error
}

func (s staticInventory) ListItems(ctx context.Context) (*inventory.ListResponse, error) {
	return s.resp, s.err
}

type staticInspections []inspection.Record

func (s staticInspections) ListInspections(ctx context.Context, filter inspection.ListFilter) ([]inspection.Record, error) {
	return s, nil
}

type recordingHub struct {
	mu   sync.Mutex
	msgs []websocket.Message
}

func (h *recordingHub) Broadcast(msg websocket.Message) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	return 1
}

func (h *recordingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

func day(offset int) time.Time {
	return fixedNow.AddDate(0, 0, offset)
}

func newTestEngine(items []inventory.Item, records []inspection.Record) *Engine {
	e := NewEngine(Sources{
		Inventory:   staticInventory{resp: &inventory.ListResponse{Items: items, LowStockThreshold: 10}},
		Inspections: staticInspections(records),
	}, nil, zap.NewNop())
	e.now = func() time.Time { return fixedNow }
	return e
}

func TestEvaluateRaisesEachCondition(t *testing.T) {
	items := []inventory.Item{
		{ID: "1", Name: "Brake Pads", Available: 4},
		{ID: "2", Name: "Oil Filter", Available: 80},
	}
	records := []inspection.Record{
		{ID: "INS-old", TrailerID: "1", TrailerNumber: "TRL-001", InspectionDate: day(-400), NextDueDate: day(-35)},
		{ID: "INS-new", TrailerID: "1", TrailerNumber: "TRL-001", InspectionDate: day(-10), NextDueDate: day(355)},
		{ID: "INS-2", TrailerID: "2", TrailerNumber: "TRL-002", InspectionDate: day(-370), NextDueDate: day(-5)},
		{ID: "INS-3", TrailerID: "3", TrailerNumber: "TRL-003", InspectionDate: day(-80), NextDueDate: day(10)},
	}
	e := newTestEngine(items, records)

	raised, err := e.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, raised, 3)

	assert.Equal(t, "low-stock", raised[0].RuleID)
	assert.Equal(t, "Brake Pads", raised[0].Subject)
	assert.Equal(t, "inspection-overdue", raised[1].RuleID)
	assert.Equal(t, "TRL-002", raised[1].Subject, "only the latest inspection of a trailer counts")
	assert.Equal(t, SeverityCritical, raised[1].Severity)
	assert.Equal(t, "inspection-due-soon", raised[2].RuleID)
	assert.Equal(t, "TRL-003", raised[2].Subject)

	recent := e.Recent(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "TRL-003", recent[0].Subject, "newest first")
}

func TestCooldownSuppressesRepeats(t *testing.T) {
	e := newTestEngine([]inventory.Item{{ID: "1", Name: "Brake Pads", Available: 1}}, nil)

	first, err := e.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 1)

	second, err := e.Evaluate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestConcurrentEvaluateRaisesOnce(t *testing.T) {
	e := newTestEngine([]inventory.Item{{ID: "1", Name: "Brake Pads", Available: 1}}, nil)

	var (
		mu    sync.Mutex
		total int
		wg    sync.WaitGroup
	)
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			raised, err := e.Evaluate(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			total += len(raised)
			mu.Unlock()
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, total)
	assert.Len(t, e.Recent(0), 1)
}

func TestEvaluateSourceError(t *testing.T) {
	e := NewEngine(Sources{
		Inventory:   staticInventory{err: errors.New("base unreachable")},
		Inspections: staticInspections(nil),
	}, nil, zap.NewNop())

	_, err := e.Evaluate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "low-stock")
}

func TestDispatchBroadcastsQueuedAlerts(t *testing.T) {
	e := newTestEngine([]inventory.Item{{ID: "1", Name: "Brake Pads", Available: 1}}, nil)
	hub := &recordingHub{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Dispatch(ctx, e, hub, zap.NewNop())

	require.NoError(t, e.PublishStats(ctx, nil))
	assert.Eventually(t, func() bool { return hub.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, EventAlertRaised, hub.msgs[0].Type)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := newTestEngine([]inventory.Item{{ID: "1", Name: "Brake Pads", Available: 1}}, nil)
	router := gin.New()
	NewHandler(e, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"), func(c *gin.Context) { c.Next() })

	do := func(method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	w := do(http.MethodPost, "/api/v1/alerts/evaluate")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)

	w = do(http.MethodGet, "/api/v1/alerts")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Brake Pads")

	assert.Equal(t, http.StatusOK, do(http.MethodGet, "/api/v1/alerts/rules").Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodGet, "/api/v1/alerts?limit=x").Code)
}

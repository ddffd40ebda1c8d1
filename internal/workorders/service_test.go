package workorders

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/assets"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inventory"
)

// MockListener records work order events
type MockListener struct {
	mock.Mock
	wg sync.WaitGroup
}

func (m *MockListener) WorkOrderCreated(ctx context.Context, wo WorkOrder) {
	defer m.wg.Done()
	m.Called(wo.Number)
}

func (m *MockListener) WorkOrderStatusChanged(ctx context.Context, wo WorkOrder, from Status) {
	defer m.wg.Done()
	m.Called(wo.Number, from, wo.Status)
}

type stubRenderer struct{}

func (stubRenderer) RenderWorkOrder(ctx context.Context, wo *WorkOrder) ([]byte, error) {
	return []byte("%PDF " + wo.Number), nil
}

type fixture struct {
	svc       Service
	inventory inventory.Service
	listener  *MockListener
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	inv := inventory.NewService(inventory.NewMemoryRepository(inventory.SeedItems()...), 10, logger)
	trailers := assets.NewService(assets.NewMemoryRepository(assets.SeedTrailers()...), logger)
	listener := &MockListener{}
	svc := NewService(NewMemoryRepository(SeedWorkOrders()...), inv, trailers, stubRenderer{}, logger, listener)
	svc.(*workOrderService).now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return &fixture{svc: svc, inventory: inv, listener: listener}
}

func validRequest() CreateRequest {
	return CreateRequest{
		TrailerID:      "2",
		TechnicianName: "J. Smith",
		IssueNotes:     "Replace brake pads on axle 2",
		Items:          []Item{{ItemName: "Brake Pads", Quantity: 4}, {ItemName: "LED Light Kit", Quantity: 1}},
	}
}

func TestCreateWorkOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.listener.On("WorkOrderCreated", "WO-2026-003").Once()
	f.listener.wg.Add(1)

	result, err := f.svc.Create(ctx, "user-1", validRequest())
	require.NoError(t, err)
	f.listener.wg.Wait()

	wo := result.WorkOrder
	assert.Equal(t, "WO-2026-003", wo.Number)
	assert.Equal(t, "TRL-002", wo.TrailerNumber)
	assert.Equal(t, StatusPending, wo.Status)
	assert.Equal(t, PriorityMedium, wo.Priority)
	assert.Empty(t, result.Warnings)

	resp, err := f.inventory.ListItems(ctx)
	require.NoError(t, err)
	for _, it := range resp.Items {
		switch it.Name {
		case "Brake Pads":
			assert.Equal(t, 46, it.Available)
			assert.Equal(t, 24, it.Used)
		case "LED Light Kit":
			assert.Equal(t, 24, it.Available)
		}
	}
	f.listener.AssertExpectations(t)
}

func TestCreateWorkOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *CreateRequest)
		field  string
	}{
		{"no trailer", func(r *CreateRequest) { r.TrailerID = "" }, "trailer_id"},
		{"unknown trailer", func(r *CreateRequest) { r.TrailerID = "99" }, "trailer_id"},
		{"no technician", func(r *CreateRequest) { r.TechnicianName = " " }, "technician_name"},
		{"no notes", func(r *CreateRequest) { r.IssueNotes = "" }, "issue_notes"},
		{"no items", func(r *CreateRequest) { r.Items = nil }, "items"},
		{"zero quantity", func(r *CreateRequest) { r.Items = []Item{{ItemName: "Brake Pads"}} }, "items[0]"},
		{"unknown part", func(r *CreateRequest) { r.Items = []Item{{ItemName: "Flux Capacitor", Quantity: 1}} }, "items"},
		{"short stock across lines", func(r *CreateRequest) {
			r.Items = []Item{{ItemName: "LED Light Kit", Quantity: 20}, {ItemName: "LED Light Kit", Quantity: 6}}
		}, "items"},
		{"bad priority", func(r *CreateRequest) { r.Priority = "urgent" }, "priority"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := f.svc.Create(ctx, "user-1", req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	resp, err := f.inventory.ListItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, 140, resp.TotalUsed, "rejected orders consume nothing")
}

func TestStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.listener.On("WorkOrderCreated", mock.Anything)
	f.listener.On("WorkOrderStatusChanged", "WO-2026-003", StatusPending, StatusInProgress).Once()
	f.listener.wg.Add(2)

	result, err := f.svc.Create(ctx, "user-1", validRequest())
	require.NoError(t, err)

	wo, err := f.svc.UpdateStatus(ctx, result.WorkOrder.Number, StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, wo.Status)
	f.listener.wg.Wait()

	_, err = f.svc.UpdateStatus(ctx, "WO-2026-001", StatusPending)
	assert.ErrorIs(t, err, ErrInvalidTransition, "completed is terminal")

	_, err = f.svc.UpdateStatus(ctx, wo.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, "WO-1999-999", StatusCompleted)
	assert.ErrorIs(t, err, ErrWorkOrderNotFound)
}

// staleRepository serves the status a concurrent request would have read
// before another request changed it.
type staleRepository struct {
	Repository
	status Status
}

func (r staleRepository) Get(ctx context.Context, id string) (*WorkOrder, error) {
	wo, err := r.Repository.Get(ctx, id)
	if wo != nil {
		wo.Status = r.status
	}
	return wo, err
}

func TestUpdateStatusRejectsStaleRead(t *testing.T) {
	repo := NewMemoryRepository(SeedWorkOrders()...)
	svc := NewService(staleRepository{Repository: repo, status: StatusPending}, nil, nil, stubRenderer{}, zap.NewNop())
	ctx := context.Background()

	_, err := svc.UpdateStatus(ctx, "WO-2026-001", StatusInProgress)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	wo, err := repo.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, wo.Status, "completed order must not be reopened")
}

func TestMemoryRepositoryConditionalStatus(t *testing.T) {
	repo := NewMemoryRepository(SeedWorkOrders()...)
	ctx := context.Background()

	assert.ErrorIs(t, repo.UpdateStatus(ctx, "1", StatusPending, StatusInProgress), ErrInvalidTransition)
	assert.ErrorIs(t, repo.UpdateStatus(ctx, "missing", StatusPending, StatusInProgress), ErrWorkOrderNotFound)
}

func TestConcurrentStatusChangesKeepCompletedTerminal(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		f.listener.On("WorkOrderCreated", mock.Anything).Maybe()
		f.listener.On("WorkOrderStatusChanged", mock.Anything, mock.Anything, mock.Anything).Maybe()
		f.listener.wg.Add(3)
		ctx := context.Background()

		result, err := f.svc.Create(ctx, "user-1", validRequest())
		require.NoError(t, err)
		number := result.WorkOrder.Number

		targets := []Status{StatusCompleted, StatusInProgress}
		errs := make([]error, len(targets))
		var wg sync.WaitGroup
		start := make(chan struct{})
		for j, to := range targets {
			wg.Add(1)
			go func(j int, to Status) {
				defer wg.Done()
				<-start
				_, errs[j] = f.svc.UpdateStatus(ctx, number, to)
			}(j, to)
		}
		close(start)
		wg.Wait()

		wo, err := f.svc.Get(ctx, number)
		require.NoError(t, err)
		require.NoError(t, errs[0])
		assert.Equal(t, StatusCompleted, wo.Status)
		if errs[1] != nil {
			assert.ErrorIs(t, errs[1], ErrInvalidTransition)
			f.listener.wg.Done()
		}
		f.listener.wg.Wait()
	}
}

func TestListFiltersByTrailer(t *testing.T) {
	f := newFixture(t)
	orders, err := f.svc.List(context.Background(), "3")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "WO-2026-002", orders[0].Number)

	all, err := f.svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "WO-2026-002", all[0].Number, "newest first")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "WO-2026-001", FormatNumber(2026, 1))
	assert.Equal(t, "WO-2026-042", FormatNumber(2026, 42))
	assert.Equal(t, "WO-2027-1000", FormatNumber(2027, 1000))
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	f := newFixture(t)
	f.listener.On("WorkOrderCreated", mock.Anything)
	f.listener.wg.Add(1)
	router := gin.New()
	NewHandler(f.svc, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))

	body := `{"trailer_id":"1","technician_name":"J. Smith","issue_notes":"Lights out","items":[{"item_name":"LED Light Kit","quantity":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/work-orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "WO-2026-003")
	f.listener.wg.Wait()

	req = httptest.NewRequest(http.MethodPost, "/api/v1/work-orders", strings.NewReader(`{"trailer_id":"1"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/work-orders/WO-2026-001/status", strings.NewReader(`{"status":"pending"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/work-orders/WO-2026-002/pdf", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "attachment; filename=WO-2026-002.pdf", w.Header().Get("Content-Disposition"))
}

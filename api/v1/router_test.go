package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/app"
	"fleetops/fleet-portal/fleet-portal-backend/internal/auth"
	"fleetops/fleet-portal/fleet-portal-backend/internal/config"
	"fleetops/fleet-portal/fleet-portal-backend/internal/dashboard"
	"fleetops/fleet-portal/fleet-portal-backend/internal/documents"
	"fleetops/fleet-portal/fleet-portal-backend/internal/inspection"
	"fleetops/fleet-portal/fleet-portal-backend/internal/workorders"
)

type client struct {
	t      *testing.T
	router *gin.Engine
	token  string
}

func (c *client) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)
	return w
}

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	portal, err := app.Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(portal.Close)
	return NewRouter(portal)
}

func login(t *testing.T, router *gin.Engine, email, password string) *client {
	t.Helper()
	c := &client{t: t, router: router}
	w := c.do(http.MethodPost, "/api/v1/users/login", auth.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp auth.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	c.token = resp.Token
	return c
}

func stats(t *testing.T, c *client) dashboard.Stats {
	t.Helper()
	w := c.do(http.MethodGet, "/api/v1/dashboard/stats?refresh=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var s dashboard.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	return s
}

func TestHealthAndAuthGate(t *testing.T) {
	router := setup(t)
	anon := &client{t: t, router: router}

	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/v1/dashboard/stats", nil).Code)

	w := anon.do(http.MethodOptions, "/api/v1/trailers", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestTechnicianFlow(t *testing.T) {
	router := setup(t)
	tech := login(t, router, "tech@fleetops.com", "tech123")

	before := stats(t, tech)
	assert.Equal(t, 5, before.TotalTrailers)
	assert.Equal(t, 5, before.InspectionsPending)
	assert.Equal(t, 140, before.UsedInventory)
	assert.Equal(t, 51, before.PendingInventory)
	assert.Equal(t, 0, before.OpenWorkOrders)

	w := tech.do(http.MethodPost, "/api/v1/inspections/wizards", inspection.CreateWizardRequest{Kind: inspection.KindDOTAnnual})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var view inspection.WizardView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	base := "/api/v1/inspections/wizards/" + view.ID

	require.Equal(t, http.StatusOK, tech.do(http.MethodPut, base+"/asset", inspection.SelectAssetRequest{AssetID: "1"}).Code)
	for i := 0; i < 4; i++ {
		require.Equal(t, http.StatusOK, tech.do(http.MethodPost, base+"/next", nil).Code)
	}
	w = tech.do(http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var submitted inspection.SubmitResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))

	w = tech.do(http.MethodPost, "/api/v1/work-orders", workorders.CreateRequest{
		TrailerID:      "1",
		TechnicianName: "Technician User",
		Date:           "2026-03-01",
		IssueNotes:     "Replace worn brake pads",
		Items:          []workorders.Item{{ItemName: "Brake Pads", Quantity: 2}},
		Priority:       workorders.PriorityHigh,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	after := stats(t, tech)
	assert.Equal(t, 4, after.InspectionsPending)
	assert.Equal(t, 1, after.PassedInspections)
	assert.Equal(t, 142, after.UsedInventory)
	assert.Equal(t, 1, after.OpenWorkOrders)

	assert.Eventually(t, func() bool {
		w := tech.do(http.MethodGet, "/api/v1/documents?kind=inspection&subject_id="+submitted.Record.ID, nil)
		var docs []documents.Document
		return w.Code == http.StatusOK && json.Unmarshal(w.Body.Bytes(), &docs) == nil && len(docs) == 1
	}, 2*time.Second, 20*time.Millisecond)

	w = tech.do(http.MethodGet, "/api/v1/reports/inspections/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), submitted.Record.ID)
}

func TestAdminOnlyRoutes(t *testing.T) {
	router := setup(t)
	tech := login(t, router, "tech@fleetops.com", "tech123")
	admin := login(t, router, "admin@fleetops.com", "admin123")

	assert.Equal(t, http.StatusForbidden, tech.do(http.MethodGet, "/api/v1/notifications/connections", nil).Code)
	assert.Equal(t, http.StatusOK, admin.do(http.MethodGet, "/api/v1/notifications/connections", nil).Code)

	assert.Equal(t, http.StatusForbidden, tech.do(http.MethodGet, "/api/v1/admin/logs", nil).Code)
	assert.Equal(t, http.StatusServiceUnavailable, admin.do(http.MethodGet, "/api/v1/admin/logs", nil).Code)
}

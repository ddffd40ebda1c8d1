package inspection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/auth"
)

type staticAssets []AssetRef

func (s staticAssets) List(ctx context.Context) ([]AssetRef, error) { return s, nil }

type stubRenderer struct{}

func (stubRenderer) RenderInspection(ctx context.Context, rec *Record) ([]byte, error) {
	return []byte("%PDF-1.3 " + rec.ID), nil
}

type rejectingPersistence struct{ Repository }

func (rejectingPersistence) SubmitInspection(ctx context.Context, rec *Record, att []Attachment) (string, error) {
	return "", errors.New("INVALID_PERMISSIONS")
}

var testTrailers = staticAssets{
	trl001,
	{ID: "2", Number: "TRL-002", Make: "Great Dane", Model: "Champion", Year: 2019},
	{ID: "3", Number: "TRL-003", Make: "Wabash", Model: "DuraPlate", Year: 2021},
}

func setupRouter(t *testing.T, repo Repository, persistence Persistence, userID string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	svc := NewService(repo, testTrailers, NewSessionStore(0), NewAssembler(persistence, NewDataURLEncoder(), logger),
		stubRenderer{}, ServiceOptions{}, logger)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		s := &auth.Session{UserID: c.GetHeader("X-Test-User"), Name: "J. Smith", Role: auth.RoleTechnician}
		if s.UserID == "" {
			s.UserID = userID
		}
		c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), s))
		c.Next()
	})
	NewHandler(svc, logger).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) WizardView {
	t.Helper()
	var v WizardView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func startWizard(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(router, http.MethodPost, "/api/v1/inspections/wizards", CreateWizardRequest{Kind: KindDOTAnnual})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeView(t, w).ID
}

func TestWizardHTTPFlow(t *testing.T) {
	repo := NewMemoryRepository()
	router := setupRouter(t, repo, repo, "user-1")

	w := doJSON(router, http.MethodPost, "/api/v1/inspections/wizards", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	v := decodeView(t, w)
	assert.Equal(t, "J. Smith", v.OperatorName, "operator prefilled from the session")
	assert.Equal(t, KindDOTAnnual, v.Kind)
	base := "/api/v1/inspections/wizards/" + v.ID

	w = doJSON(router, http.MethodPost, base+"/next", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(router, http.MethodGet, base+"/assets?q=trl-00", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var assets []AssetRef
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &assets))
	assert.Len(t, assets, 3)

	w = doJSON(router, http.MethodPut, base+"/asset", SelectAssetRequest{AssetID: "1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeView(t, w).CanAdvance)

	for _, want := range []Step{StepDetails, StepInspect, StepPhotos, StepReview} {
		w = doJSON(router, http.MethodPost, base+"/next", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, want, decodeView(t, w).CurrentStep)
	}

	w = doJSON(router, http.MethodPut, base+"/items/brake_hoses", ItemRequest{Status: statusPtr(StatusFail), Notes: strPtr("cracked housing")})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Brake Hoses: cracked housing"}, decodeView(t, w).Summary.Defects)

	w = doJSON(router, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result SubmitResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, OutcomeFailed, result.Record.Outcome)

	w = doJSON(router, http.MethodGet, "/api/v1/inspections/"+result.Record.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/inspections/"+result.Record.ID+"/pdf", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))

	w = doJSON(router, http.MethodGet, "/api/v1/inspections?outcome=failed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 1)
}

func TestSubmitRejectedReturnsBadGateway(t *testing.T) {
	repo := NewMemoryRepository()
	router := setupRouter(t, repo, rejectingPersistence{repo}, "user-1")
	id := startWizard(t, router)
	base := "/api/v1/inspections/wizards/" + id

	doJSON(router, http.MethodPut, base+"/asset", SelectAssetRequest{AssetID: "2"})
	for i := 0; i < 4; i++ {
		doJSON(router, http.MethodPost, base+"/next", nil)
	}

	w := doJSON(router, http.MethodPost, base+"/submit", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_PERMISSIONS")

	w = doJSON(router, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	v := decodeView(t, w)
	assert.Equal(t, StepReview, v.CurrentStep)
	assert.Equal(t, "TRL-002", v.SelectedAsset.Number)
}

func TestWizardOwnership(t *testing.T) {
	repo := NewMemoryRepository()
	router := setupRouter(t, repo, repo, "user-1")
	id := startWizard(t, router)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/inspections/wizards/"+id, nil)
	req.Header.Set("X-Test-User", "user-2")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/inspections/wizards/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWizardErrorMapping(t *testing.T) {
	repo := NewMemoryRepository()
	router := setupRouter(t, repo, repo, "user-1")
	id := startWizard(t, router)
	base := "/api/v1/inspections/wizards/" + id

	w := doJSON(router, http.MethodPut, base+"/section", SectionRequest{Index: intPtr(99)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodPut, base+"/items/warp_drive", ItemRequest{Status: statusPtr(StatusPass)})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPut, base+"/asset", SelectAssetRequest{AssetID: "404"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPut, base+"/details", DetailsRequest{OperatorName: strPtr("  ")})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeView(t, w).State.CanAdvance(StepDetails))

	w = doJSON(router, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(router, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttachPhotosRejectsNonImages(t *testing.T) {
	repo := NewMemoryRepository()
	router := setupRouter(t, repo, repo, "user-1")
	id := startWizard(t, router)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("photos", "brake.png")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	fw, err = mw.CreateFormFile("photos", "notes.txt")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("plain text"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/inspections/wizards/"+id+"/photos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Wizard   WizardView `json:"wizard"`
		Warnings []string   `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Wizard.Photos, 1)
	assert.Equal(t, "brake.png", resp.Wizard.Photos[0].Filename)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "notes.txt")

	w = doJSON(router, http.MethodDelete, "/api/v1/inspections/wizards/"+id+"/photos/5", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func intPtr(i int) *int { return &i }

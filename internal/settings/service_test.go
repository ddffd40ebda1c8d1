package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/auth"
)

func langPtr(l Language) *Language { return &l }
func strPtr(s string) *string      { return &s }

func TestGetProfileDefaults(t *testing.T) {
	svc := NewService(NewMemoryRepository(), zap.NewNop())

	profile, err := svc.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, LanguageEnglish, profile.Language)
	assert.Equal(t, "UTC", profile.Timezone)
	assert.True(t, profile.Notifications.Data()[ChannelDefectAlerts])
}

func TestUpdateProfile(t *testing.T) {
	svc := NewService(NewMemoryRepository(), zap.NewNop())
	ctx := context.Background()

	profile, err := svc.UpdateProfile(ctx, "user-1", UpdateProfileRequest{
		Language: langPtr(LanguageMexicanSpanish),
		Timezone: strPtr("America/Chicago"),
	})
	require.NoError(t, err)
	assert.Equal(t, LanguageMexicanSpanish, profile.Language)

	profile, err = svc.UpdateProfile(ctx, "user-1", UpdateProfileRequest{DisplayName: strPtr("  Juan ")})
	require.NoError(t, err)
	assert.Equal(t, "Juan", profile.DisplayName)
	assert.Equal(t, LanguageMexicanSpanish, profile.Language, "unset fields are kept")
	assert.Equal(t, "America/Chicago", profile.Timezone)

	_, err = svc.UpdateProfile(ctx, "user-1", UpdateProfileRequest{Language: langPtr("fr")})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.UpdateProfile(ctx, "user-1", UpdateProfileRequest{Timezone: strPtr("Mars/Olympus")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateNotifications(t *testing.T) {
	svc := NewService(NewMemoryRepository(), zap.NewNop())
	ctx := context.Background()

	assert.True(t, svc.Enabled(ctx, "user-1", ChannelLowStock))

	profile, err := svc.UpdateNotifications(ctx, "user-1", Channels{ChannelLowStock: false})
	require.NoError(t, err)
	assert.False(t, profile.Notifications.Data()[ChannelLowStock])
	assert.True(t, profile.Notifications.Data()[ChannelWorkOrders])
	assert.False(t, svc.Enabled(ctx, "user-1", ChannelLowStock))

	_, err = svc.UpdateNotifications(ctx, "user-1", Channels{"carrier_pigeon": true})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestHandlerProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		if id := c.GetHeader("X-Test-User"); id != "" {
			c.Request = c.Request.WithContext(auth.WithSession(c.Request.Context(), &auth.Session{UserID: id}))
		}
		c.Next()
	})
	NewHandler(NewService(NewMemoryRepository(), zap.NewNop()), zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))

	do := func(method, body string, user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/v1/settings/profile", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do(http.MethodGet, "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPut, `{"language":"de"}`, "user-1").Code)

	w := do(http.MethodPut, `{"language":"es"}`, "user-1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(http.MethodGet, "", "user-1")
	require.Equal(t, http.StatusOK, w.Code)
	var profile UserProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, LanguageSpanish, profile.Language)

	w = do(http.MethodGet, "", "user-2")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, LanguageEnglish, profile.Language, "profiles are per user")
}

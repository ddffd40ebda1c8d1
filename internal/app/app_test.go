package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"fleetops/fleet-portal/fleet-portal-backend/internal/auth"
	"fleetops/fleet-portal/fleet-portal-backend/internal/config"
)

var demoAdmin = auth.LoginRequest{Email: "admin@fleetops.com", Password: "admin123"}

func TestDemoUsersSeededInLocalModeOnly(t *testing.T) {
	ctx := context.Background()

	local, err := Build(ctx, config.Default(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(local.Close)

	resp, err := local.Auth.Login(ctx, demoAdmin)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, resp.User.Role)

	cfg := config.Default()
	cfg.Persistence.Backend = config.BackendAirtable
	cfg.Airtable.APIKey = "key"
	cfg.Airtable.BaseID = "app1"
	cfg.Airtable.BaseURL = "http://127.0.0.1:0"

	remote, err := Build(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(remote.Close)

	_, err = remote.Auth.Login(ctx, demoAdmin)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestBuildRejectsDefaultSecretInRelease(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Mode = config.ModeRelease

	a, err := Build(context.Background(), cfg, zap.NewNop())
	assert.Nil(t, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mstepanenko/sprintdesk/internal/app"
	"github.com/mstepanenko/sprintdesk/internal/database"
	"github.com/mstepanenko/sprintdesk/pkg/logger"
)

func TestConvertDatabaseConfig(t *testing.T) {
	cfg := &app.Config{}
	cfg.Database.Driver = " SQLite "
	cfg.Database.Path = " data/sprintdesk.db "

	dbCfg := convertDatabaseConfig(cfg)
	require.Equal(t, "sqlite", dbCfg.Driver)
	require.Equal(t, "data/sprintdesk.db", dbCfg.Path)

	cfg = &app.Config{}
	cfg.Database.Driver = "postgresql"
	cfg.Database.Postgres = app.DBAuthConfig{
		Host:     "db.internal",
		Port:     5432,
		Database: "sprintdesk",
		Username: "svc",
		Password: "hunter2",
	}

	dbCfg = convertDatabaseConfig(cfg)
	require.Equal(t, "postgres", dbCfg.Driver)
	require.Equal(t, "db.internal", dbCfg.Host)
	require.Equal(t, 5432, dbCfg.Port)
	require.Equal(t, "sprintdesk", dbCfg.Name)
	require.Equal(t, "svc", dbCfg.User)

	cfg = &app.Config{}
	cfg.Database.Driver = "oracle"
	dbCfg = convertDatabaseConfig(cfg)
	require.Equal(t, "oracle", dbCfg.Driver)

	_, err := database.Open(dbCfg)
	require.Error(t, err)
}

func TestBootstrapRuntime(t *testing.T) {
	require.NoError(t, logger.Init("info"))

	cfg := &app.Config{}
	cfg.Server.Port = 0
	cfg.Server.PublicRoutes = []string{"/authorization", "/health", "/metrics"}
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "file:bootstraptest?mode=memory&cache=shared&_foreign_keys=1"
	cfg.Auth.JWT.Secret = "bootstrap-test-secret"
	cfg.Auth.JWT.Issuer = "sprintdesk"
	cfg.Auth.JWT.TTL = 15 * time.Minute
	cfg.Invitation.TTL = time.Hour
	cfg.Invitation.CodeLength = 6
	cfg.Invitation.SweepInterval = time.Minute

	log := logger.WithModule("bootstrap-test")

	stack, err := bootstrapRuntime(context.Background(), cfg, log)
	require.NoError(t, err)
	require.NotNil(t, stack.DB)
	require.NotNil(t, stack.Credentials)
	require.NotNil(t, stack.Invitations)
	require.NotNil(t, stack.Sweeper)
	require.NotNil(t, stack.Router)

	stack.Shutdown(context.Background(), log)
}

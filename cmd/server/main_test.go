package main

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"ridefuture-be/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	cfg := config.FromEnv()
	cfg.AppPort = "8080"
	cfg.AppEnv = "test"
	cfg.JWTSecret = "test-secret"
	cfg.MediaRoot = ""
	return cfg
}

func TestNewServer(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s, err := newServer(testConfig(), db)
	require.NoError(t, err)
	require.NotNil(t, s.handler)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/order-success/abc/", http.StatusNotFound},
		{http.MethodGet, "/api/admin/metrics/", http.StatusUnauthorized},
		{http.MethodGet, "/api/profile/", http.StatusUnauthorized},
		{http.MethodPost, "/health", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rr := httptest.NewRecorder()
		s.handler.ServeHTTP(rr, req)
		assert.Equal(t, tt.want, rr.Code, "%s %s", tt.method, tt.path)
	}
}

func TestNewServer_RequiresJWTSecret(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cfg := testConfig()
	cfg.JWTSecret = ""

	_, err = newServer(cfg, db)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	origInitDB := initDBFunc
	defer func() { initDBFunc = origInitDB }()
	initDBFunc = func(cfg *config.Config) *sql.DB {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		return db
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	origStartServer := startServerFunc
	defer func() { startServerFunc = origStartServer }()
	startServerFunc = func(srv *http.Server) error {
		assert.Equal(t, ":8080", srv.Addr)
		cancel()
		return nil
	}

	t.Setenv("APP_PORT", "8080")
	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_USER", "user")
	t.Setenv("DB_PASSWORD", "pass")
	t.Setenv("DB_NAME", "db")
	t.Setenv("JWT_SECRET", "secret")

	assert.NoError(t, run(ctx))
}

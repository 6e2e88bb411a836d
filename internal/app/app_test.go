package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beltche-mcp/internal/config"
	"beltche-mcp/internal/server"
	"beltche-mcp/internal/tokenstore"
	"beltche-mcp/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.InitForCLI(logging.LevelError, os.Stderr)
	os.Exit(m.Run())
}

func testConfig(env config.Environment) *config.Config {
	return &config.Config{
		Environment: env,
		Port:        0,
		LogFormat:   logging.FormatText,
		OAuth: config.OAuthConfig{
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			AuthorizeURL: "https://auth.example.com/authorize",
			TokenURL:     "https://auth.example.com/token",
			RedirectURI:  "http://localhost:3000/auth/callback",
			Scope:        "openid",
		},
		Beltche: config.BeltcheConfig{
			BaseURL:    "https://beltche.example.com/api/v1",
			MaxRetries: 3,
			RetryDelay: time.Millisecond,
		},
		TokenStore: config.TokenStoreConfig{MaxSize: 10, DefaultTTL: time.Hour},
		RateLimit:  config.RateLimitConfig{Window: time.Minute, MaxRequests: 100},
	}
}

func TestBuildServicesWiresHTTP(t *testing.T) {
	cfg := testConfig(config.EnvTest)
	svc := buildServices(cfg, tokenstore.NewMemoryStore(10, time.Hour), "1.0.0")
	h := svc.HTTP.Handler()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, server.PathHealth, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var health server.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "1.0.0", health.Version)
	assert.Equal(t, "test", health.Environment)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, server.PathCallback+"?state=x", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBuildServicesRegistersTools(t *testing.T) {
	svc := buildServices(testConfig(config.EnvTest), tokenstore.NewMemoryStore(10, time.Hour), "1.0.0")

	resp := svc.MCP.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"authorize", "get_students", "create_gym"} {
		assert.Contains(t, string(raw), `"`+name+`"`)
	}
}

func TestMaintenanceSweep(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := tokenstore.NewMemoryStore(10, time.Hour, tokenstore.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	expired := now.Add(-time.Minute)
	require.NoError(t, store.Set(ctx, "old", &tokenstore.Record{AccessToken: "a", ExpiresAt: expired, CreatedAt: now}))
	require.NoError(t, store.Set(ctx, "fresh", &tokenstore.Record{AccessToken: "b", CreatedAt: now}))

	m := newMaintenance(&Services{Store: store}, time.Hour)
	m.sweep(ctx)

	assert.Equal(t, 1, store.Stats().Size)
	ok, err := store.Has(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

type countingStore struct {
	tokenstore.Store
	calls chan struct{}
}

func (s *countingStore) ClearExpired(context.Context) (int, error) {
	s.calls <- struct{}{}
	return 0, errors.New("backend down")
}

func TestMaintenanceRunStopsOnCancel(t *testing.T) {
	store := &countingStore{calls: make(chan struct{}, 16)}
	m := newMaintenance(&Services{Store: store}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.run(ctx)
		close(done)
	}()

	select {
	case <-store.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("maintenance never swept")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("maintenance did not stop")
	}
}

func TestRunShutsDownOnCancel(t *testing.T) {
	cfg := testConfig(config.EnvTest)
	a := &Application{
		config:   cfg,
		services: buildServices(cfg, tokenstore.NewMemoryStore(10, time.Hour), "1.0.0"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestNewApplication(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"OAUTH_CLIENT_ID=client-id\n"+
			"OAUTH_CLIENT_SECRET=client-secret\n"+
			"OAUTH_AUTHORIZE_URL=https://auth.example.com/authorize\n"+
			"OAUTH_TOKEN_URL=https://auth.example.com/token\n"+
			"OAUTH_REDIRECT_URI=http://localhost:3000/auth/callback\n"+
			"APP_ENV=test\n",
	), 0o600))
	for _, key := range []string{
		"OAUTH_CLIENT_ID", "OAUTH_CLIENT_SECRET", "OAUTH_AUTHORIZE_URL", "OAUTH_TOKEN_URL",
		"OAUTH_REDIRECT_URI", "APP_ENV", "REDIS_URL", "AWS_SECRETS_MANAGER_SECRET_ID", "AWS_SECRET_ID",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Cleanup(func() { logging.InitForCLI(logging.LevelError, os.Stderr) })

	a, err := NewApplication(context.Background(), NewConfig(false, envFile, "2.0.0"))
	require.NoError(t, err)
	assert.True(t, a.config.IsTest())
	assert.NotNil(t, a.Services().OAuth)
	assert.NoError(t, a.Services().Store.Close())
}

func TestNewApplicationInvalidConfig(t *testing.T) {
	for _, key := range []string{"OAUTH_CLIENT_ID", "OAUTH_CLIENT_SECRET", "AWS_SECRETS_MANAGER_SECRET_ID", "AWS_SECRET_ID"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Cleanup(func() { logging.InitForCLI(logging.LevelError, os.Stderr) })

	_, err := NewApplication(context.Background(), NewConfig(false, filepath.Join(t.TempDir(), "missing.env"), ""))
	require.Error(t, err)

	var verrs config.ValidationErrors
	assert.True(t, errors.As(err, &verrs))
}

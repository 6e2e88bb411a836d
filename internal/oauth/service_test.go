package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beltche-mcp/internal/config"
	"beltche-mcp/internal/linktoken"
	"beltche-mcp/internal/tokenstore"
	"beltche-mcp/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.InitForCLI(logging.LevelError, os.Stderr)
	os.Exit(m.Run())
}

// fakeProvider is a token endpoint that records every form it receives.
type fakeProvider struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	forms    []url.Values
	exchange func(w http.ResponseWriter, form url.Values)
	refresh  func(w http.ResponseWriter, form url.Values)
	calls    atomic.Int32
}

func newFakeProvider(t *testing.T) *fakeProvider {
	p := &fakeProvider{t: t}
	p.exchange = func(w http.ResponseWriter, form url.Values) {
		writeToken(w, map[string]any{
			"access_token":  "access-" + form.Get("code"),
			"refresh_token": "refresh-1",
			"expires_in":    3600,
			"token_type":    "Bearer",
			"scope":         "openid profile email",
		})
	}
	p.refresh = func(w http.ResponseWriter, form url.Values) {
		writeToken(w, map[string]any{
			"access_token": "access-refreshed",
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	}
	p.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.calls.Add(1)
		require.NoError(t, r.ParseForm())
		p.mu.Lock()
		p.forms = append(p.forms, r.PostForm)
		p.mu.Unlock()

		switch r.PostForm.Get("grant_type") {
		case "authorization_code":
			p.exchange(w, r.PostForm)
		case "refresh_token":
			p.refresh(w, r.PostForm)
		default:
			http.Error(w, `{"error":"unsupported_grant_type"}`, http.StatusBadRequest)
		}
	}))
	t.Cleanup(p.server.Close)
	return p
}

func (p *fakeProvider) lastForm() url.Values {
	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(p.t, p.forms)
	return p.forms[len(p.forms)-1]
}

func writeToken(w http.ResponseWriter, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(status int) func(w http.ResponseWriter, form url.Values) {
	return func(w http.ResponseWriter, _ url.Values) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"refresh token revoked"}`))
	}
}

func testOAuthConfig(tokenURL string) config.OAuthConfig {
	return config.OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		AuthorizeURL: "https://auth.example.com/oauth2/authorize",
		TokenURL:     tokenURL,
		RedirectURI:  "http://localhost:3000/auth/callback",
		Scope:        "openid profile email",
	}
}

func newTestService(t *testing.T, p *fakeProvider) (*Service, *tokenstore.MemoryStore) {
	t.Helper()
	store := tokenstore.NewMemoryStore(100, 24*time.Hour)
	svc := NewService(testOAuthConfig(p.server.URL+"/oauth2/token"), store, WithHTTPClient(p.server.Client()))
	return svc, store
}

func TestGenerateLinkToken(t *testing.T) {
	svc := NewService(testOAuthConfig("https://auth.example.com/token"), tokenstore.NewMemoryStore(1, time.Hour))

	tok, err := svc.GenerateLinkToken()
	require.NoError(t, err)
	assert.True(t, linktoken.Valid(tok))
	assert.Equal(t, "http://localhost:3000/auth/callback", svc.RedirectURI())
}

func TestCreateAuthorizationURL(t *testing.T) {
	svc := NewService(testOAuthConfig("https://auth.example.com/token"), tokenstore.NewMemoryStore(1, time.Hour))
	handle := "0b9a1e3c-5d7f-4e2a-9c1b-3f4d5e6a7b8c"

	res := svc.CreateAuthorizationURL(handle)
	assert.Equal(t, handle, res.LinkToken)
	assert.Contains(t, res.AuthURL, "state="+handle)

	u, err := url.Parse(res.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, "auth.example.com", u.Host)
	assert.Equal(t, "/oauth2/authorize", u.Path)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "http://localhost:3000/auth/callback", q.Get("redirect_uri"))
	assert.Equal(t, handle, q.Get("state"))
	assert.Equal(t, "openid profile email", q.Get("scope"))

	// deterministic for the same handle
	assert.Equal(t, res.AuthURL, svc.CreateAuthorizationURL(handle).AuthURL)
}

func TestExchangeCodeForToken(t *testing.T) {
	p := newFakeProvider(t)
	svc, store := newTestService(t, p)
	ctx := context.Background()

	before := time.Now()
	rec, err := svc.ExchangeCodeForToken(ctx, "abc", "handle-1")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "access-abc", rec.AccessToken)
	assert.Equal(t, "refresh-1", rec.RefreshToken)
	assert.WithinDuration(t, before.Add(time.Hour), rec.ExpiresAt, 5*time.Second)
	assert.WithinDuration(t, before, rec.CreatedAt, 5*time.Second)

	form := p.lastForm()
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "abc", form.Get("code"))
	assert.Equal(t, "http://localhost:3000/auth/callback", form.Get("redirect_uri"))
	assert.Equal(t, "client-id", form.Get("client_id"))
	assert.Equal(t, "client-secret", form.Get("client_secret"))

	stored, err := store.Get(ctx, "handle-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "access-abc", stored.AccessToken)
}

func TestExchangeWithoutExpiryUsesStoreDefault(t *testing.T) {
	p := newFakeProvider(t)
	p.exchange = func(w http.ResponseWriter, _ url.Values) {
		writeToken(w, map[string]any{"access_token": "a", "token_type": "Bearer"})
	}
	svc, store := newTestService(t, p)

	rec, err := svc.ExchangeCodeForToken(context.Background(), "abc", "h")
	require.NoError(t, err)
	assert.False(t, rec.HasExpiry())

	stored, err := store.Get(context.Background(), "h")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), stored.ExpiresAt, 5*time.Second)
}

func TestExchangeFailures(t *testing.T) {
	tests := []struct {
		name    string
		respond func(w http.ResponseWriter, form url.Values)
	}{
		{name: "provider rejects code", respond: writeError(http.StatusBadRequest)},
		{name: "provider error", respond: writeError(http.StatusInternalServerError)},
		{
			name: "missing access token",
			respond: func(w http.ResponseWriter, _ url.Values) {
				writeToken(w, map[string]any{"token_type": "Bearer"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider(t)
			p.exchange = tt.respond
			svc, store := newTestService(t, p)

			rec, err := svc.ExchangeCodeForToken(context.Background(), "abc", "h")
			require.ErrorIs(t, err, ErrTokenExchangeFailed)
			assert.Nil(t, rec)

			ok, err := store.Has(context.Background(), "h")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestGetValidTokenUnknownHandle(t *testing.T) {
	p := newFakeProvider(t)
	svc, _ := newTestService(t, p)

	rec, err := svc.GetValidToken(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, int32(0), p.calls.Load())
}

func TestGetValidTokenRefreshBuffer(t *testing.T) {
	tests := []struct {
		name        string
		expiresIn   time.Duration
		wantRefresh bool
	}{
		{name: "expires in one minute", expiresIn: time.Minute, wantRefresh: true},
		{name: "expires in one hour", expiresIn: time.Hour, wantRefresh: false},
		{name: "already expired", expiresIn: -time.Minute, wantRefresh: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider(t)
			now := time.Now()
			store := tokenstore.NewMemoryStore(10, time.Hour, tokenstore.WithClock(func() time.Time { return now.Add(-2 * time.Hour) }))
			svc := NewService(testOAuthConfig(p.server.URL), store,
				WithHTTPClient(p.server.Client()),
				WithClock(func() time.Time { return now }))

			// written through a clock in the past so the store does not purge it on read
			require.NoError(t, store.Set(context.Background(), "h", &tokenstore.Record{
				AccessToken:  "access-old",
				RefreshToken: "refresh-old",
				ExpiresAt:    now.Add(tt.expiresIn),
				CreatedAt:    now.Add(-time.Hour),
			}))

			rec, err := svc.GetValidToken(context.Background(), "h")
			require.NoError(t, err)
			require.NotNil(t, rec)

			if tt.wantRefresh {
				assert.Equal(t, int32(1), p.calls.Load())
				assert.Equal(t, "access-refreshed", rec.AccessToken)
				assert.Equal(t, "refresh_token", p.lastForm().Get("grant_type"))
				assert.Equal(t, "refresh-old", p.lastForm().Get("refresh_token"))
			} else {
				assert.Equal(t, int32(0), p.calls.Load())
				assert.Equal(t, "access-old", rec.AccessToken)
			}
		})
	}
}

func TestRefreshCarriesOverRefreshToken(t *testing.T) {
	p := newFakeProvider(t)
	svc, store := newTestService(t, p)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "h", &tokenstore.Record{AccessToken: "a", RefreshToken: "refresh-keep"}))

	rec, err := svc.RefreshToken(ctx, "h")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "access-refreshed", rec.AccessToken)
	assert.Equal(t, "refresh-keep", rec.RefreshToken)

	stored, err := store.Get(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, "refresh-keep", stored.RefreshToken)
}

func TestRefreshUsesRotatedRefreshToken(t *testing.T) {
	p := newFakeProvider(t)
	p.refresh = func(w http.ResponseWriter, _ url.Values) {
		writeToken(w, map[string]any{"access_token": "a2", "refresh_token": "refresh-rotated", "token_type": "Bearer"})
	}
	svc, store := newTestService(t, p)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "h", &tokenstore.Record{AccessToken: "a", RefreshToken: "refresh-old"}))

	rec, err := svc.RefreshToken(ctx, "h")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "refresh-rotated", rec.RefreshToken)
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	p := newFakeProvider(t)
	svc, store := newTestService(t, p)
	ctx := context.Background()

	rec, err := svc.RefreshToken(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, store.Set(ctx, "h", &tokenstore.Record{AccessToken: "a"}))
	rec, err = svc.RefreshToken(ctx, "h")
	require.NoError(t, err)
	assert.Nil(t, rec)

	// no provider call, and the record is left alone
	assert.Equal(t, int32(0), p.calls.Load())
	ok, err := store.Has(ctx, "h")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFailedRefreshDeletesRecord(t *testing.T) {
	p := newFakeProvider(t)
	p.refresh = writeError(http.StatusBadRequest)
	now := time.Now()
	store := tokenstore.NewMemoryStore(10, time.Hour)
	svc := NewService(testOAuthConfig(p.server.URL), store, WithHTTPClient(p.server.Client()))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "h", &tokenstore.Record{
		AccessToken:  "a",
		RefreshToken: "revoked",
		ExpiresAt:    now.Add(time.Minute),
	}))

	rec, err := svc.GetValidToken(ctx, "h")
	require.NoError(t, err)
	assert.Nil(t, rec)

	ok, err := store.Has(ctx, "h")
	require.NoError(t, err)
	assert.False(t, ok)

	rec, err = svc.GetValidToken(ctx, "h")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestRefreshUnreachableProviderKeepsRecord(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	tokenURL := closed.URL + "/oauth2/token"
	closed.Close()

	store := tokenstore.NewMemoryStore(10, time.Hour)
	svc := NewService(testOAuthConfig(tokenURL), store, WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "h", &tokenstore.Record{
		AccessToken:  "a",
		RefreshToken: "still-valid",
		ExpiresAt:    time.Now().Add(time.Minute),
	}))

	rec, err := svc.GetValidToken(ctx, "h")
	require.NoError(t, err)
	assert.Nil(t, rec)

	kept, err := store.Get(ctx, "h")
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, "still-valid", kept.RefreshToken)
}

func TestRefreshWithoutAccessTokenDeletesRecord(t *testing.T) {
	p := newFakeProvider(t)
	p.refresh = func(w http.ResponseWriter, _ url.Values) {
		writeToken(w, map[string]any{"token_type": "Bearer", "expires_in": 3600})
	}
	svc, store := newTestService(t, p)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "h", &tokenstore.Record{
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(time.Minute),
	}))

	rec, err := svc.GetValidToken(ctx, "h")
	require.NoError(t, err)
	assert.Nil(t, rec)

	ok, err := store.Has(ctx, "h")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConcurrentExchangesWithDifferentCodes(t *testing.T) {
	p := newFakeProvider(t)
	release := make(chan struct{})
	p.exchange = func(w http.ResponseWriter, form url.Values) {
		<-release
		writeToken(w, map[string]any{"access_token": "access-" + form.Get("code"), "expires_in": 3600, "token_type": "Bearer"})
	}
	svc, _ := newTestService(t, p)
	ctx := context.Background()

	codes := []string{"code-a", "code-b"}
	results := make([]string, len(codes))
	var wg sync.WaitGroup
	for i, code := range codes {
		wg.Add(1)
		go func(i int, code string) {
			defer wg.Done()
			rec, err := svc.ExchangeCodeForToken(ctx, code, "same-handle")
			if err == nil {
				results[i] = rec.AccessToken
			}
		}(i, code)
	}

	// both codes must reach the provider
	require.Eventually(t, func() bool { return p.calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, []string{"access-code-a", "access-code-b"}, results)
}

func TestConcurrentRefreshIsSingleFlight(t *testing.T) {
	p := newFakeProvider(t)
	release := make(chan struct{})
	p.refresh = func(w http.ResponseWriter, _ url.Values) {
		<-release
		writeToken(w, map[string]any{"access_token": "access-refreshed", "expires_in": 3600, "token_type": "Bearer"})
	}
	svc, store := newTestService(t, p)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "h", &tokenstore.Record{
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresAt:    time.Now().Add(time.Minute),
	}))

	const callers = 5
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec, err := svc.GetValidToken(ctx, "h")
			if err == nil && rec != nil {
				results[i] = rec.AccessToken
			}
		}(i)
	}

	// let every caller reach the provider call before it answers
	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), p.calls.Load())
	for _, got := range results {
		assert.Equal(t, "access-refreshed", got)
	}
}

func TestRevoke(t *testing.T) {
	p := newFakeProvider(t)
	svc, _ := newTestService(t, p)
	ctx := context.Background()

	_, err := svc.ExchangeCodeForToken(ctx, "abc", "h")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, "h"))
	require.NoError(t, svc.Revoke(ctx, "h"))

	rec, err := svc.GetValidToken(ctx, "h")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

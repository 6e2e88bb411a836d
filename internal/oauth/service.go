package oauth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"beltche-mcp/internal/config"
	"beltche-mcp/internal/linktoken"
	"beltche-mcp/internal/tokenstore"
	"beltche-mcp/pkg/logging"
)

const (
	// RefreshBuffer is how long before expiry a token is already treated as expired,
	// so it cannot run out while a downstream call is in flight.
	RefreshBuffer = 5 * time.Minute

	// DefaultHTTPTimeout bounds each call to the provider's token endpoint.
	DefaultHTTPTimeout = 30 * time.Second
)

// AuthorizationResult is what an agent needs to start the browser flow.
type AuthorizationResult struct {
	LinkToken string `json:"linkToken"`
	AuthURL   string `json:"authUrl"`
}

// Service runs the authorization-code flow and is the only writer of token records.
type Service struct {
	conf       *oauth2.Config
	store      tokenstore.Store
	httpClient *http.Client
	now        func() time.Time

	// flights collapses concurrent exchanges and refreshes for the same link token.
	flights singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the client used to reach the token endpoint.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithClock replaces time.Now, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service for the provider described by cfg.
func NewService(cfg config.OAuthConfig, store tokenstore.Store, opts ...Option) *Service {
	s := &Service{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: cfg.RedirectURI,
			Scopes:      strings.Fields(cfg.Scope),
		},
		store:      store,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateLinkToken returns a fresh link token. Nothing is stored until the callback.
func (s *Service) GenerateLinkToken() (string, error) {
	return linktoken.Generate()
}

// RedirectURI returns the registered callback URL.
func (s *Service) RedirectURI() string {
	return s.conf.RedirectURL
}

// CreateAuthorizationURL builds the provider URL for handle, carried as the state parameter.
func (s *Service) CreateAuthorizationURL(handle string) AuthorizationResult {
	authURL := s.conf.AuthCodeURL(handle)
	logging.Debug("OAuth", "Created authorization URL for %s", logging.MaskHandle(handle))
	return AuthorizationResult{LinkToken: handle, AuthURL: authURL}
}

// ExchangeCodeForToken trades an authorization code for tokens and stores them under handle.
// Provider failures are reported as ErrTokenExchangeFailed.
func (s *Service) ExchangeCodeForToken(ctx context.Context, code, handle string) (*tokenstore.Record, error) {
	v, err, _ := s.flights.Do("exchange:"+handle+":"+code, func() (interface{}, error) {
		return s.exchange(context.WithoutCancel(ctx), code, handle)
	})
	if err != nil {
		return nil, err
	}
	return v.(*tokenstore.Record), nil
}

func (s *Service) exchange(ctx context.Context, code, handle string) (*tokenstore.Record, error) {
	logging.Info("OAuth", "Exchanging authorization code for %s", logging.MaskHandle(handle))

	tok, err := s.conf.Exchange(s.providerContext(ctx), code)
	if err != nil {
		logProviderError("Token exchange", err)
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	if tok.AccessToken == "" {
		logging.Error("OAuth", nil, "No access_token in token response")
		return nil, fmt.Errorf("%w: missing access_token", ErrTokenExchangeFailed)
	}

	rec := s.recordFrom(tok, "")
	if err := s.store.Set(ctx, handle, rec); err != nil {
		return nil, fmt.Errorf("failed to store token: %w", err)
	}

	logging.Info("OAuth", "Token exchange successful for %s (access=%s refresh=%s expires=%s)",
		logging.MaskHandle(handle), NewRedactedToken(rec.AccessToken), NewRedactedToken(rec.RefreshToken), formatExpiry(rec))
	return rec, nil
}

// RefreshToken renews the access token for handle using its refresh token.
//
// It returns nil without error when there is nothing to refresh or when the
// refresh fails. A provider rejection deletes the record and the user must
// authorize again; an unreachable provider leaves it in place for the next
// call. Errors are only returned for store failures.
func (s *Service) RefreshToken(ctx context.Context, handle string) (*tokenstore.Record, error) {
	v, err, _ := s.flights.Do("refresh:"+handle, func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx), handle)
	})
	if err != nil {
		return nil, err
	}
	rec, _ := v.(*tokenstore.Record)
	return rec, nil
}

func (s *Service) refresh(ctx context.Context, handle string) (*tokenstore.Record, error) {
	existing, err := s.store.Get(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if existing == nil || existing.RefreshToken == "" {
		logging.Warn("OAuth", "No refresh token available for %s", logging.MaskHandle(handle))
		return nil, nil
	}

	logging.Info("OAuth", "Refreshing token for %s", logging.MaskHandle(handle))

	src := s.conf.TokenSource(s.providerContext(ctx), &oauth2.Token{RefreshToken: existing.RefreshToken})
	tok, err := src.Token()
	if err != nil && isTransportFailure(err) {
		// The provider never answered; the refresh token may still be good.
		logging.Error("OAuth", err, "Token refresh for %s could not reach the provider", logging.MaskHandle(handle))
		return nil, nil
	}
	if err != nil || tok.AccessToken == "" {
		if err == nil {
			err = fmt.Errorf("missing access_token")
		}
		logProviderError("Token refresh", err)
		if delErr := s.store.Delete(ctx, handle); delErr != nil {
			return nil, fmt.Errorf("failed to delete token after failed refresh: %w", delErr)
		}
		logging.Info("OAuth", "Revoked %s after failed refresh", logging.MaskHandle(handle))
		return nil, nil
	}

	rec := s.recordFrom(tok, existing.RefreshToken)
	if err := s.store.Set(ctx, handle, rec); err != nil {
		return nil, fmt.Errorf("failed to store refreshed token: %w", err)
	}

	logging.Info("OAuth", "Token refresh successful for %s (expires=%s)", logging.MaskHandle(handle), formatExpiry(rec))
	return rec, nil
}

// GetValidToken returns a usable record for handle, refreshing it when it
// expires within RefreshBuffer. It returns nil when the user must authorize.
func (s *Service) GetValidToken(ctx context.Context, handle string) (*tokenstore.Record, error) {
	rec, err := s.store.Get(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to load token: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	if rec.HasExpiry() && s.now().After(rec.ExpiresAt.Add(-RefreshBuffer)) {
		logging.Debug("OAuth", "Token for %s expires at %s, attempting refresh", logging.MaskHandle(handle), formatExpiry(rec))
		return s.RefreshToken(ctx, handle)
	}
	return rec, nil
}

// Revoke forgets the tokens stored for handle.
func (s *Service) Revoke(ctx context.Context, handle string) error {
	if err := s.store.Delete(ctx, handle); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	logging.Info("OAuth", "Revoked %s", logging.MaskHandle(handle))
	return nil
}

// providerContext routes oauth2 requests through the service's HTTP client.
func (s *Service) providerContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// recordFrom maps a provider token onto a record, keeping previousRefresh when
// the provider did not rotate the refresh token.
func (s *Service) recordFrom(tok *oauth2.Token, previousRefresh string) *tokenstore.Record {
	rec := &tokenstore.Record{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		CreatedAt:    s.now(),
	}
	if rec.RefreshToken == "" {
		rec.RefreshToken = previousRefresh
	}
	if expiresIn := tok.ExpiresIn; expiresIn > 0 {
		rec.ExpiresAt = rec.CreatedAt.Add(time.Duration(expiresIn) * time.Second)
	} else if !tok.Expiry.IsZero() {
		rec.ExpiresAt = tok.Expiry
	}
	return rec
}

func formatExpiry(rec *tokenstore.Record) string {
	if !rec.HasExpiry() {
		return "never"
	}
	return rec.ExpiresAt.Format(time.RFC3339)
}

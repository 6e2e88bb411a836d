package config

import (
	"net/url"
	"time"

	"beltche-mcp/pkg/logging"
)

// Environment is the deployment environment the process runs in.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
	EnvTest        Environment = "test"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultPort                 = 3000
	DefaultOAuthScope           = "openid profile email"
	DefaultBeltcheAPIBaseURL    = "https://beltche.com/api/v1"
	DefaultRateLimitWindow      = 60 * time.Second
	DefaultRateLimitMaxRequests = 100
	DefaultTokenStoreMaxSize    = 10000
	DefaultTokenTTL             = 24 * time.Hour
	DefaultAPIMaxRetries        = 3
	DefaultAPIRetryDelay        = time.Second
)

// Config is the validated process configuration.
type Config struct {
	Environment Environment    `json:"environment" yaml:"environment"`
	Port        int            `json:"port" yaml:"port"`
	LogFormat   logging.Format `json:"logFormat" yaml:"logFormat"`

	OAuth      OAuthConfig      `json:"oauth" yaml:"oauth"`
	Beltche    BeltcheConfig    `json:"beltche" yaml:"beltche"`
	TokenStore TokenStoreConfig `json:"tokenStore" yaml:"tokenStore"`
	RateLimit  RateLimitConfig  `json:"rateLimit" yaml:"rateLimit"`
}

// OAuthConfig describes the OAuth2 client registration at the provider.
type OAuthConfig struct {
	ClientID     string `json:"clientId" yaml:"clientId"`
	ClientSecret string `json:"clientSecret" yaml:"clientSecret"`
	AuthorizeURL string `json:"authorizeUrl" yaml:"authorizeUrl"`
	TokenURL     string `json:"tokenUrl" yaml:"tokenUrl"`
	RedirectURI  string `json:"redirectUri" yaml:"redirectUri"`
	Scope        string `json:"scope" yaml:"scope"`
}

// BeltcheConfig configures the downstream API client.
type BeltcheConfig struct {
	BaseURL    string        `json:"baseUrl" yaml:"baseUrl"`
	MaxRetries int           `json:"maxRetries" yaml:"maxRetries"`
	RetryDelay time.Duration `json:"retryDelay" yaml:"retryDelay"`
}

// TokenStoreConfig selects and sizes the token record store.
// An empty RedisURL selects the in-process store.
type TokenStoreConfig struct {
	RedisURL   string        `json:"redisUrl,omitempty" yaml:"redisUrl,omitempty"`
	MaxSize    int           `json:"maxSize" yaml:"maxSize"`
	DefaultTTL time.Duration `json:"defaultTtl" yaml:"defaultTtl"`
}

// RateLimitConfig bounds requests per client over a fixed window.
type RateLimitConfig struct {
	Window      time.Duration `json:"window" yaml:"window"`
	MaxRequests int           `json:"maxRequests" yaml:"maxRequests"`
}

func (c *Config) IsDevelopment() bool { return c.Environment == EnvDevelopment }
func (c *Config) IsProduction() bool  { return c.Environment == EnvProduction }
func (c *Config) IsTest() bool        { return c.Environment == EnvTest }

// LogLevel is debug in development and info everywhere else.
func (c *Config) LogLevel() logging.LogLevel {
	if c.IsDevelopment() {
		return logging.LevelDebug
	}
	return logging.LevelInfo
}

// Redacted returns a copy of c that is safe to print.
func (c *Config) Redacted() Config {
	out := *c
	out.OAuth.ClientSecret = redact(out.OAuth.ClientSecret)
	out.TokenStore.RedisURL = redactURL(out.TokenStore.RedisURL)
	return out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// redactURL masks the password of a connection URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "[REDACTED]"
	}
	return u.Redacted()
}

package config

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"beltche-mcp/pkg/logging"
)

// LookupFunc resolves one environment variable.
type LookupFunc func(key string) (string, bool)

// Options control where Load reads its inputs from.
type Options struct {
	// EnvFile overrides ENV_FILE_PATH. Missing files are not an error.
	EnvFile string
	// Secrets overrides the AWS Secrets Manager client, used in tests.
	Secrets SecretsClient
}

// Load populates the environment from an optional AWS Secrets Manager secret
// and an optional .env file, then builds and validates the configuration.
func Load(ctx context.Context, opts Options) (*Config, error) {
	if err := loadSecretsIntoEnv(ctx, opts.Secrets); err != nil {
		logging.Warn("Bootstrap", "Skipping AWS Secrets Manager load: %v", err)
	}
	loadDotEnv(opts.EnvFile)
	return FromLookup(os.LookupEnv)
}

func loadDotEnv(envFile string) {
	if envFile == "" {
		envFile = os.Getenv("ENV_FILE_PATH")
	}
	if envFile == "" {
		envFile = ".env"
	}

	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(envFile); err != nil {
		if os.Getenv("KUBERNETES_SERVICE_HOST") == "" {
			logging.Debug("Bootstrap", ".env file not found at %s, using process environment", envFile)
		}
	}
}

// FromLookup builds a Config from lookup and validates it.
// All problems are collected and returned together as ValidationErrors.
func FromLookup(lookup LookupFunc) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	var errs ValidationErrors
	cfg := &Config{}

	env := get("APP_ENV")
	if env == "" {
		env = get("NODE_ENV")
	}
	if env == "" {
		env = string(EnvDevelopment)
	}
	validateOneOf(&errs, "NODE_ENV", env, []string{string(EnvDevelopment), string(EnvProduction), string(EnvTest)})
	cfg.Environment = Environment(env)

	cfg.Port = parsePositiveInt(&errs, "PORT", get("PORT"), DefaultPort)
	if cfg.Port > 65535 {
		errs.Add("PORT", "must be a valid TCP port", cfg.Port)
	}

	switch format := get("LOG_FORMAT"); format {
	case "":
		cfg.LogFormat = logging.FormatText
		if cfg.Environment == EnvProduction {
			cfg.LogFormat = logging.FormatJSON
		}
	case string(logging.FormatText), string(logging.FormatJSON):
		cfg.LogFormat = logging.Format(format)
	default:
		errs.Add("LOG_FORMAT", "must be one of: text, json", format)
	}

	cfg.OAuth = OAuthConfig{
		ClientID:     get("OAUTH_CLIENT_ID"),
		ClientSecret: get("OAUTH_CLIENT_SECRET"),
		AuthorizeURL: get("OAUTH_AUTHORIZE_URL"),
		TokenURL:     get("OAUTH_TOKEN_URL"),
		RedirectURI:  get("OAUTH_REDIRECT_URI"),
		Scope:        get("OAUTH_SCOPE"),
	}
	if cfg.OAuth.Scope == "" {
		cfg.OAuth.Scope = DefaultOAuthScope
	}
	validateRequired(&errs, "OAUTH_CLIENT_ID", cfg.OAuth.ClientID)
	validateRequired(&errs, "OAUTH_CLIENT_SECRET", cfg.OAuth.ClientSecret)
	validateURL(&errs, "OAUTH_AUTHORIZE_URL", cfg.OAuth.AuthorizeURL)
	validateURL(&errs, "OAUTH_TOKEN_URL", cfg.OAuth.TokenURL)
	validateURL(&errs, "OAUTH_REDIRECT_URI", cfg.OAuth.RedirectURI)

	cfg.Beltche = BeltcheConfig{
		BaseURL:    strings.TrimRight(get("BELTCHE_API_BASE_URL"), "/"),
		MaxRetries: DefaultAPIMaxRetries,
		RetryDelay: parseDuration(&errs, "API_RETRY_DELAY", get("API_RETRY_DELAY"), DefaultAPIRetryDelay),
	}
	if cfg.Beltche.BaseURL == "" {
		cfg.Beltche.BaseURL = DefaultBeltcheAPIBaseURL
	}
	validateURL(&errs, "BELTCHE_API_BASE_URL", cfg.Beltche.BaseURL)
	if raw := get("API_MAX_RETRIES"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			errs.Add("API_MAX_RETRIES", "must be a number of at least 1", raw)
		} else {
			cfg.Beltche.MaxRetries = n
		}
	}

	cfg.TokenStore = TokenStoreConfig{
		RedisURL:   get("REDIS_URL"),
		MaxSize:    parsePositiveInt(&errs, "TOKEN_STORE_MAX_SIZE", get("TOKEN_STORE_MAX_SIZE"), DefaultTokenStoreMaxSize),
		DefaultTTL: parseDuration(&errs, "TOKEN_DEFAULT_TTL", get("TOKEN_DEFAULT_TTL"), DefaultTokenTTL),
	}
	if cfg.TokenStore.RedisURL != "" {
		validateURL(&errs, "REDIS_URL", cfg.TokenStore.RedisURL)
	}

	windowMs := parsePositiveInt(&errs, "RATE_LIMIT_WINDOW_MS", get("RATE_LIMIT_WINDOW_MS"), int(DefaultRateLimitWindow/time.Millisecond))
	cfg.RateLimit = RateLimitConfig{
		Window:      time.Duration(windowMs) * time.Millisecond,
		MaxRequests: parsePositiveInt(&errs, "RATE_LIMIT_MAX_REQUESTS", get("RATE_LIMIT_MAX_REQUESTS"), DefaultRateLimitMaxRequests),
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return cfg, nil
}

// parseDuration accepts a Go duration ("1s", "24h") or a bare number of milliseconds.
func parseDuration(errs *ValidationErrors, field, raw string, def time.Duration) time.Duration {
	if raw == "" {
		return def
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		if ms <= 0 {
			errs.Add(field, "must be greater than zero", raw)
			return def
		}
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		errs.Add(field, "must be a positive duration such as 1s or 24h", raw)
		return def
	}
	return d
}

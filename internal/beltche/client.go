// Package beltche is the HTTP client for the Beltche REST API.
package beltche

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"beltche-mcp/internal/apperrors"
	"beltche-mcp/pkg/logging"
)

const (
	// ServiceName identifies Beltche in ExternalAPI errors.
	ServiceName = "Beltche"

	defaultTimeout  = 30 * time.Second
	maxLoggedBody   = 200
	defaultAttempts = 3
)

// Client calls the Beltche API with a caller-supplied bearer token.
//
// Responses with status >= 500 and transport failures are retried with a
// linear backoff; 4xx responses are returned at once. The client never
// refreshes tokens, so a 401 surfaces as an error.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
}

// Options configure a Client. Zero values fall back to defaults.
type Options struct {
	// MaxAttempts bounds the total number of attempts, first one included.
	MaxAttempts int
	// RetryDelay is the wait before the first retry; the n-th retry waits n times as long.
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = opts.HTTPClient
	rc.RetryMax = opts.MaxAttempts - 1
	rc.RetryWaitMin = opts.RetryDelay
	rc.RetryWaitMax = opts.RetryDelay * time.Duration(opts.MaxAttempts)
	rc.Backoff = LinearBackoff
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = logging.NewLeveledLogger("BeltcheAPI")

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
	}
}

// LinearBackoff waits base*(n+1) before retry n, counting from zero.
func LinearBackoff(base, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
	return base * time.Duration(attemptNum+1)
}

// checkRetry retries transport failures and 5xx responses only.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	return resp.StatusCode >= http.StatusInternalServerError, nil
}

// GetStudents lists the students visible to the token's owner.
func (c *Client) GetStudents(ctx context.Context, accessToken string) ([]Student, error) {
	var students []Student
	if err := c.do(ctx, http.MethodGet, "/students", accessToken, nil, &students); err != nil {
		return nil, err
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

// CreateGym validates in, applies currency defaults and creates the gym.
func (c *Client) CreateGym(ctx context.Context, accessToken string, in CreateGymInput) (*Gym, error) {
	in.ApplyDefaults()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var gym Gym
	if err := c.do(ctx, http.MethodPost, "/gyms", accessToken, in, &gym); err != nil {
		return nil, err
	}
	return &gym, nil
}

func (c *Client) do(ctx context.Context, method, path, accessToken string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var reqBody interface{}
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logging.Debug("BeltcheAPI", "Making API request: %s %s", method, path)

	resp, err := c.http.Do(req)
	if err != nil {
		logging.Error("BeltcheAPI", err, "Request failed: %s %s", method, path)
		return apperrors.ExternalAPI(ServiceName, 0, fmt.Sprintf("Beltche API request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		logging.Warn("BeltcheAPI", "Beltche API error response: status=%d path=%s body=%q",
			resp.StatusCode, path, logging.Truncate(string(errBody), maxLoggedBody))
		return apperrors.ExternalAPI(ServiceName, resp.StatusCode,
			fmt.Sprintf("Beltche API error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.ExternalAPI(ServiceName, resp.StatusCode, fmt.Sprintf("Beltche API returned an invalid body: %v", err))
	}
	logging.Debug("BeltcheAPI", "API request successful: %s %s", method, path)
	return nil
}

package oauth

import (
	"errors"
	"net/url"

	"golang.org/x/oauth2"

	"beltche-mcp/pkg/logging"
)

// ErrTokenExchangeFailed is returned when the provider rejects an authorization
// code or answers without an access token.
var ErrTokenExchangeFailed = errors.New("token exchange failed")

// maxLoggedBody bounds how much of a provider error body reaches the logs.
const maxLoggedBody = 200

// isTransportFailure reports whether err means the token endpoint was never
// reached or never answered, as opposed to answering with a rejection.
func isTransportFailure(err error) bool {
	var ue *url.Error
	return errors.As(err, &ue)
}

// logProviderError logs a token endpoint failure with the upstream status and body when available.
func logProviderError(op string, err error) {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		logging.Error("OAuth", nil, "%s failed: status=%d body=%q",
			op, re.Response.StatusCode, logging.Truncate(string(re.Body), maxLoggedBody))
		return
	}
	logging.Error("OAuth", err, "%s failed", op)
}

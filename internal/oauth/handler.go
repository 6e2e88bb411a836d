package oauth

import (
	"context"
	"net/http"

	"beltche-mcp/internal/tokenstore"
	"beltche-mcp/pkg/logging"
)

// CodeExchanger is the part of Service the callback needs.
type CodeExchanger interface {
	ExchangeCodeForToken(ctx context.Context, code, handle string) (*tokenstore.Record, error)
}

// Handler serves the provider's redirect back to us.
type Handler struct {
	exchanger CodeExchanger
}

func NewHandler(exchanger CodeExchanger) *Handler {
	return &Handler{exchanger: exchanger}
}

// ServeHTTP makes Handler mountable on a mux.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.HandleCallback(w, r)
}

// HandleCallback completes the browser side of the flow. The state parameter
// is the link token and is used as-is.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")

	if errParam := query.Get("error"); errParam != "" {
		desc := query.Get("error_description")
		logging.Warn("OAuth", "OAuth callback received error: %s - %s", errParam, desc)
		if desc == "" {
			desc = errParam
		}
		renderErrorPage(w, http.StatusBadRequest, "The provider reported: "+desc, "Please try again.")
		return
	}

	if code == "" {
		logging.Warn("OAuth", "OAuth callback missing code parameter")
		renderErrorPage(w, http.StatusBadRequest, "Missing authorization code. Please try again.")
		return
	}
	if state == "" {
		logging.Warn("OAuth", "OAuth callback missing state parameter")
		renderErrorPage(w, http.StatusBadRequest, "Missing state parameter. Please try again.")
		return
	}

	if _, err := h.exchanger.ExchangeCodeForToken(r.Context(), code, state); err != nil {
		logging.Error("OAuth", err, "Failed to complete authorization for %s", logging.MaskHandle(state))
		renderErrorPage(w, http.StatusInternalServerError,
			"Failed to exchange authorization code for token.",
			"Please check the server logs and try again.")
		return
	}

	logging.Info("OAuth", "Authorization complete for %s", logging.MaskHandle(state))
	renderSuccessPage(w, state)
}

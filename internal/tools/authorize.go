package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"beltche-mcp/pkg/logging"
)

// AuthorizeResult is the structured content of a successful authorize call.
type AuthorizeResult struct {
	LinkToken    string `json:"linkToken"`
	AuthURL      string `json:"authUrl"`
	Instructions string `json:"instructions"`
}

func authorizeTool() mcp.Tool {
	return mcp.NewTool("authorize",
		mcp.WithDescription("Get authorization URL to connect your Beltche account. Call this first before using other tools."),
	)
}

// Authorize starts the browser flow and hands the agent a fresh linkToken.
func (h *Handlers) Authorize(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	linkToken, err := h.auth.GenerateLinkToken()
	if err != nil {
		logging.Error("Tools", err, "Failed to generate link token")
		return errorResult(ErrException, "Failed to start authorization", render(exceptionText, err.Error())), nil
	}

	auth := h.auth.CreateAuthorizationURL(linkToken)
	logging.Info("Tools", "Generated authorization URL for %s", logging.MaskHandle(linkToken))

	instructions := render(authorizeText, auth)
	return mcp.NewToolResultStructured(AuthorizeResult{
		LinkToken:    auth.LinkToken,
		AuthURL:      auth.AuthURL,
		Instructions: instructions,
	}, instructions), nil
}

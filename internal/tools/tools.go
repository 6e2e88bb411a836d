// Package tools implements the MCP tools exposed to agents.
//
// Handlers never return Go errors to the transport. Every failure becomes a
// tool result with IsError set, a structured {error, message} payload and a
// text explanation of what the user should do next.
package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"beltche-mcp/internal/beltche"
	"beltche-mcp/internal/oauth"
	"beltche-mcp/internal/tokenstore"
	"beltche-mcp/pkg/logging"
)

// Error codes carried in ErrorPayload.Error.
const (
	ErrNotAuthorized = "not_authorized"
	ErrFetchFailed   = "fetch_failed"
	ErrCreateFailed  = "create_failed"
	ErrInvalidInput  = "invalid_input"
	ErrException     = "exception"
)

// Authorizer is the part of the OAuth service the tools use.
type Authorizer interface {
	GenerateLinkToken() (string, error)
	CreateAuthorizationURL(handle string) oauth.AuthorizationResult
	GetValidToken(ctx context.Context, handle string) (*tokenstore.Record, error)
}

// BeltcheAPI is the part of the Beltche client the tools use.
type BeltcheAPI interface {
	GetStudents(ctx context.Context, accessToken string) ([]beltche.Student, error)
	CreateGym(ctx context.Context, accessToken string, in beltche.CreateGymInput) (*beltche.Gym, error)
}

// Handlers holds the dependencies shared by all tools.
type Handlers struct {
	auth Authorizer
	api  BeltcheAPI
}

func NewHandlers(auth Authorizer, api BeltcheAPI) *Handlers {
	return &Handlers{auth: auth, api: api}
}

// ErrorPayload is the structured content of a failed tool call.
type ErrorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Register adds every tool to s.
func (h *Handlers) Register(s *server.MCPServer) {
	logging.Info("Tools", "Registering MCP tools...")

	s.AddTool(authorizeTool(), h.Authorize)
	s.AddTool(getStudentsTool(), h.GetStudents)
	s.AddTool(createGymTool(), h.CreateGym)

	logging.Info("Tools", "All MCP tools registered")
}

func linkTokenParam() mcp.ToolOption {
	return mcp.WithString("linkToken",
		mcp.Required(),
		mcp.Description("The linkToken received from the authorize tool"),
	)
}

func errorResult(code, message, text string) *mcp.CallToolResult {
	result := mcp.NewToolResultStructured(ErrorPayload{Error: code, Message: message}, text)
	result.IsError = true
	return result
}

// resolveToken returns the access token for the linkToken argument, or a
// ready-made error result when the caller has to authorize first.
func (h *Handlers) resolveToken(ctx context.Context, req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	linkToken, err := req.RequireString("linkToken")
	if err != nil || linkToken == "" {
		return "", errorResult(ErrInvalidInput, "linkToken is required", render(notAuthorizedText, nil))
	}

	rec, err := h.auth.GetValidToken(ctx, linkToken)
	if err != nil {
		logging.Error("Tools", err, "Failed to resolve token for %s", logging.MaskHandle(linkToken))
		return "", errorResult(ErrException, "Failed to look up authorization, please try again", render(exceptionText, err.Error()))
	}
	if rec == nil {
		logging.Warn("Tools", "Invalid or expired linkToken %s", logging.MaskHandle(linkToken))
		return "", errorResult(ErrNotAuthorized, "No valid authorization found for this linkToken. Call authorize again.", render(notAuthorizedText, nil))
	}
	return rec.AccessToken, nil
}

package tools

import (
	"context"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"beltche-mcp/internal/apperrors"
	"beltche-mcp/internal/beltche"
	"beltche-mcp/pkg/logging"
)

// GymResult is the structured content of a successful create_gym call.
type GymResult struct {
	Gym     *beltche.Gym `json:"gym"`
	Success bool         `json:"success"`
}

type createGymArgs struct {
	LinkToken string `json:"linkToken"`
	beltche.CreateGymInput
}

func createGymTool() mcp.Tool {
	return mcp.NewTool("create_gym",
		mcp.WithDescription(`Creates a new gym/club in your Beltche account. You must authorize first using the "authorize" tool and provide the linkToken.`),
		linkTokenParam(),
		mcp.WithString("name", mcp.Required(), mcp.Description("Name of the gym")),
		mcp.WithString("city", mcp.Required(), mcp.Description("City where the gym is located")),
		mcp.WithString("street", mcp.Required(), mcp.Description("Street address")),
		mcp.WithString("zipcode", mcp.Required(), mcp.Description("Postal/ZIP code")),
		mcp.WithString("email", mcp.Required(), mcp.Description("Contact email")),
		mcp.WithString("phone", mcp.Required(), mcp.Description("Contact phone number")),
		mcp.WithNumber("payment_day", mcp.Required(), mcp.Min(1), mcp.Max(31),
			mcp.Description("Day of month for payments (1-31)")),
		mcp.WithString("description", mcp.Description("Description of the gym")),
		mcp.WithString("website", mcp.Description("Website URL")),
		mcp.WithString("facebook_url", mcp.Description("Facebook page URL")),
		mcp.WithString("instagram_url", mcp.Description("Instagram profile URL")),
		mcp.WithString("currency", mcp.DefaultString(beltche.DefaultCurrency),
			mcp.Description("Currency code (e.g., PLN, EUR, USD)")),
		mcp.WithString("currency_symbol", mcp.DefaultString(beltche.DefaultCurrencySymbol),
			mcp.Description("Currency symbol")),
		mcp.WithString("currency_position", mcp.DefaultString(beltche.DefaultCurrencyPosition),
			mcp.Enum("before", "after"), mcp.Description("Position of currency symbol")),
	)
}

// CreateGym creates a gym in the authorized account.
func (h *Handlers) CreateGym(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args createGymArgs
	if err := req.BindArguments(&args); err != nil {
		return errorResult(ErrInvalidInput, "Invalid arguments: "+err.Error(), render(createFailedText, err.Error())), nil
	}

	// Input is checked before the link token is resolved.
	in := args.CreateGymInput
	in.ApplyDefaults()
	if err := in.Validate(); err != nil {
		return errorResult(ErrInvalidInput, validationMessage(err), render(createFailedText, validationMessage(err))), nil
	}

	accessToken, failure := h.resolveToken(ctx, req)
	if failure != nil {
		return failure, nil
	}

	gym, err := h.api.CreateGym(ctx, accessToken, in)
	if err != nil {
		logging.Error("Tools", err, "Failed to create gym")
		code := ErrCreateFailed
		if apperrors.StatusOf(err) == http.StatusBadRequest && !apperrors.IsExternalAPI(err) {
			code = ErrInvalidInput
		}
		return errorResult(code, err.Error(), render(createFailedText, err.Error())), nil
	}

	logging.Info("Tools", "Created gym id=%s name=%q", gym.ID, gym.Name)
	return mcp.NewToolResultStructured(GymResult{Gym: gym, Success: true}, render(gymCreatedText, gym)), nil
}

func validationMessage(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	return err.Error()
}

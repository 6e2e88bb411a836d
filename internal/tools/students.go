package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"beltche-mcp/internal/beltche"
	"beltche-mcp/pkg/logging"
)

// StudentsResult is the structured content of a successful get_students call.
type StudentsResult struct {
	Students []beltche.Student `json:"students"`
	Count    int               `json:"count"`
}

func getStudentsTool() mcp.Tool {
	return mcp.NewTool("get_students",
		mcp.WithDescription(`Returns a list of students from your Beltche account. You must authorize first using the "authorize" tool and provide the linkToken.`),
		linkTokenParam(),
	)
}

// GetStudents lists the students of the authorized account.
func (h *Handlers) GetStudents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	accessToken, failure := h.resolveToken(ctx, req)
	if failure != nil {
		return failure, nil
	}

	students, err := h.api.GetStudents(ctx, accessToken)
	if err != nil {
		logging.Error("Tools", err, "Failed to fetch students")
		return errorResult(ErrFetchFailed, err.Error(), render(fetchFailedText, err.Error())), nil
	}

	logging.Info("Tools", "Fetched %d students", len(students))

	text := render(studentsText, map[string]interface{}{
		"Students": students,
		"Limit":    maxListedStudents,
	})
	return mcp.NewToolResultStructured(StudentsResult{Students: students, Count: len(students)}, text), nil
}

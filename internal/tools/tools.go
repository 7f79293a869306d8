// Package tools exposes the issue pipeline as MCP tools. Each tool is a
// struct with a Definition and a Handle, registered by the server package.
// Failures become structured error results, never a process crash.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hha-nguyen/huly-mcp-server/internal/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
)

// Pipeline is the slice of the issue pipeline the tools call into.
type Pipeline interface {
	ListProjects(ctx context.Context) ([]pipeline.ProjectSummary, error)
	ListIssues(ctx context.Context, projectRef string, limit int) ([]pipeline.Issue, error)
	GetIssue(ctx context.Context, identifier string) (pipeline.Issue, error)
	CreateIssue(ctx context.Context, spec pipeline.CreateIssueSpec) (pipeline.CreateIssueResult, error)
	UpdateIssue(ctx context.Context, identifier string, update pipeline.IssueUpdate) error
	DeleteIssue(ctx context.Context, identifier string) error
	AddComment(ctx context.Context, identifier, text string) (string, error)
	ListComments(ctx context.Context, identifier string) ([]pipeline.Comment, error)
	DeleteComment(ctx context.Context, identifier, commentID string) error
	CreateDocument(ctx context.Context, spec pipeline.CreateDocumentSpec) (string, error)
	CreateLabel(ctx context.Context, title string, color int) (string, error)
	AttachLabel(ctx context.Context, identifier, labelTitle string) error
}

// jsonResult marshals v into a text result so clients get a structured
// payload back.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}

func errResult(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
}

// intArg extracts a numeric argument, which arrives as float64 over JSON.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// floatArg returns the numeric argument and whether it was supplied.
func floatArg(req mcp.CallToolRequest, key string) (float64, bool) {
	v, ok := req.GetArguments()[key].(float64)
	return v, ok
}

// stringArg returns the string argument and whether it was supplied, so
// callers can distinguish "absent" from "explicitly empty".
func stringArg(req mcp.CallToolRequest, key string) (string, bool) {
	v, ok := req.GetArguments()[key].(string)
	return v, ok
}

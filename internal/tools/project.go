package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// ListProjectsTool handles the huly_list_projects MCP tool.
type ListProjectsTool struct {
	pipeline Pipeline
}

func NewListProjectsTool(p Pipeline) *ListProjectsTool {
	return &ListProjectsTool{pipeline: p}
}

func (t *ListProjectsTool) Definition() mcp.Tool {
	return mcp.NewTool("huly_list_projects",
		mcp.WithDescription("List all tracker projects in the workspace with their names and identifiers."),
	)
}

func (t *ListProjectsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := t.pipeline.ListProjects(ctx)
	if err != nil {
		return errResult("list projects", err), nil
	}
	return jsonResult(projects), nil
}

// ListIssuesTool handles the huly_list_issues MCP tool.
type ListIssuesTool struct {
	pipeline Pipeline
}

func NewListIssuesTool(p Pipeline) *ListIssuesTool {
	return &ListIssuesTool{pipeline: p}
}

func (t *ListIssuesTool) Definition() mcp.Tool {
	return mcp.NewTool("huly_list_issues",
		mcp.WithDescription("List the newest issues of a project, or fetch a single issue by identifier (e.g. 'PROJ-12')."),
		mcp.WithString("project",
			mcp.Description("Project name, id or identifier prefix. Required unless 'identifier' is given."),
		),
		mcp.WithString("identifier",
			mcp.Description("Issue identifier to fetch exactly one issue."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of issues to return (default 50)."),
		),
	)
}

func (t *ListIssuesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if identifier := req.GetString("identifier", ""); identifier != "" {
		issue, err := t.pipeline.GetIssue(ctx, identifier)
		if err != nil {
			return errResult("get issue", err), nil
		}
		return jsonResult(issue), nil
	}

	project := req.GetString("project", "")
	if project == "" {
		return mcp.NewToolResultError("'project' is required when no 'identifier' is given"), nil
	}
	limit := intArg(req, "limit", 50)
	issues, err := t.pipeline.ListIssues(ctx, project, limit)
	if err != nil {
		return errResult("list issues", err), nil
	}
	return jsonResult(issues), nil
}

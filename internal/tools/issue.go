package tools

import (
	"context"
	"fmt"

	"github.com/hha-nguyen/huly-mcp-server/internal/identity"
	"github.com/hha-nguyen/huly-mcp-server/internal/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
)

// CreateIssueTool handles the huly_create_issue MCP tool.
type CreateIssueTool struct {
	pipeline Pipeline
}

func NewCreateIssueTool(p Pipeline) *CreateIssueTool {
	return &CreateIssueTool{pipeline: p}
}

func (t *CreateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("huly_create_issue",
		mcp.WithDescription("Create a new issue in a project. Returns the issue id and its identifier (e.g. 'PROJ-13')."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project name, id or identifier prefix."),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Issue title."),
		),
		mcp.WithString("description",
			mcp.Description("Issue description as plain text. Lines starting with '-' become bullet items."),
		),
		mcp.WithString("priority",
			mcp.Description("One of: urgent, high, medium, low, nopriority (default nopriority)."),
		),
		mcp.WithString("assignee",
			mcp.Description("Person name to assign, e.g. 'Grace Hopper' or 'Hopper, Grace'."),
		),
		mcp.WithString("assigner",
			mcp.Description("Person name recorded as creator; defaults to the session account."),
		),
		mcp.WithString("label",
			mcp.Description("Label title to create and attach to the new issue."),
		),
	)
}

func (t *CreateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	title := req.GetString("title", "")
	if project == "" {
		return mcp.NewToolResultError("'project' is required"), nil
	}
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}

	result, err := t.pipeline.CreateIssue(ctx, pipeline.CreateIssueSpec{
		Project:     project,
		Title:       title,
		Description: req.GetString("description", ""),
		Priority:    req.GetString("priority", ""),
		Assignee:    req.GetString("assignee", ""),
		Assigner:    req.GetString("assigner", ""),
		Label:       req.GetString("label", ""),
	})
	if err != nil {
		return errResult("create issue", err), nil
	}
	return jsonResult(map[string]any{
		"id":         result.ID,
		"sequence":   result.Sequence,
		"identifier": result.Identifier,
	}), nil
}

// UpdateIssueTool handles the huly_update_issue MCP tool.
type UpdateIssueTool struct {
	pipeline Pipeline
}

func NewUpdateIssueTool(p Pipeline) *UpdateIssueTool {
	return &UpdateIssueTool{pipeline: p}
}

func (t *UpdateIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("huly_update_issue",
		mcp.WithDescription("Update fields of an existing issue. Omitted fields stay untouched. "+
			"Setting 'assignee' to an empty string clears the assignment."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Issue identifier, e.g. 'PROJ-12'."),
		),
		mcp.WithString("title", mcp.Description("New title.")),
		mcp.WithString("description", mcp.Description("New description content ref or plain text.")),
		mcp.WithString("priority", mcp.Description("One of: urgent, high, medium, low, nopriority.")),
		mcp.WithString("status", mcp.Description("Status name (e.g. 'Done') or status id.")),
		mcp.WithString("assignee", mcp.Description("Person name to assign; empty string clears the assignee.")),
		mcp.WithNumber("estimation", mcp.Description("Estimation in hours; recomputes remaining time.")),
		mcp.WithNumber("spent_time", mcp.Description("Reported time in hours; recomputes remaining time, floored at 0.")),
		mcp.WithNumber("remaining_time", mcp.Description("Explicit remaining time; overrides any recompute.")),
	)
}

func (t *UpdateIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier := req.GetString("identifier", "")
	if identifier == "" {
		return mcp.NewToolResultError("'identifier' is required"), nil
	}

	update := pipeline.IssueUpdate{}
	if v, ok := stringArg(req, "title"); ok {
		update.Title = &v
	}
	if v, ok := stringArg(req, "description"); ok {
		update.Description = &v
	}
	if v, ok := stringArg(req, "priority"); ok {
		update.Priority = &v
	}
	if v, ok := stringArg(req, "status"); ok {
		update.Status = &v
	}
	if v, ok := stringArg(req, "assignee"); ok {
		if v == "" {
			update.Assignee = identity.Clear()
		} else {
			update.Assignee = identity.Set(v)
		}
	}
	if v, ok := floatArg(req, "estimation"); ok {
		update.Estimation = &v
	}
	if v, ok := floatArg(req, "spent_time"); ok {
		update.SpentTime = &v
	}
	if v, ok := floatArg(req, "remaining_time"); ok {
		update.RemainingTime = &v
	}

	if err := t.pipeline.UpdateIssue(ctx, identifier, update); err != nil {
		return errResult("update issue", err), nil
	}
	issue, err := t.pipeline.GetIssue(ctx, identifier)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Updated %s", identifier)), nil
	}
	return jsonResult(issue), nil
}

// DeleteIssueTool handles the huly_delete_issue MCP tool.
type DeleteIssueTool struct {
	pipeline Pipeline
}

func NewDeleteIssueTool(p Pipeline) *DeleteIssueTool {
	return &DeleteIssueTool{pipeline: p}
}

func (t *DeleteIssueTool) Definition() mcp.Tool {
	return mcp.NewTool("huly_delete_issue",
		mcp.WithDescription("Delete an issue. The transaction log and activity feed keep a removal record."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Issue identifier, e.g. 'PROJ-12'."),
		),
	)
}

func (t *DeleteIssueTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier := req.GetString("identifier", "")
	if identifier == "" {
		return mcp.NewToolResultError("'identifier' is required"), nil
	}
	if err := t.pipeline.DeleteIssue(ctx, identifier); err != nil {
		return errResult("delete issue", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted %s", identifier)), nil
}

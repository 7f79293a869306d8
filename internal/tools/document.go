package tools

import (
	"context"
	"fmt"

	"github.com/hha-nguyen/huly-mcp-server/internal/pipeline"
	"github.com/mark3labs/mcp-go/mcp"
)

// CreateDocumentTool handles the huly_create_document MCP tool.
type CreateDocumentTool struct {
	pipeline Pipeline
}

func NewCreateDocumentTool(p Pipeline) *CreateDocumentTool {
	return &CreateDocumentTool{pipeline: p}
}

func (t *CreateDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("huly_create_document",
		mcp.WithDescription("Create a document in a project's document space. Returns the document id."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project name, id or identifier prefix."),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Document title."),
		),
		mcp.WithString("content",
			mcp.Description("Document body as plain text. Lines starting with '-' become bullet items."),
		),
	)
}

func (t *CreateDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	title := req.GetString("title", "")
	if project == "" {
		return mcp.NewToolResultError("'project' is required"), nil
	}
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}
	id, err := t.pipeline.CreateDocument(ctx, pipeline.CreateDocumentSpec{
		Project: project,
		Title:   title,
		Content: req.GetString("content", ""),
	})
	if err != nil {
		return errResult("create document", err), nil
	}
	return jsonResult(map[string]string{"id": id}), nil
}

// CreateLabelTool handles the huly_create_label MCP tool.
type CreateLabelTool struct {
	pipeline Pipeline
}

func NewCreateLabelTool(p Pipeline) *CreateLabelTool {
	return &CreateLabelTool{pipeline: p}
}

func (t *CreateLabelTool) Definition() mcp.Tool {
	return mcp.NewTool("huly_create_label",
		mcp.WithDescription("Create a label, optionally attaching it to an issue."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Label title."),
		),
		mcp.WithString("identifier",
			mcp.Description("Issue identifier to attach the new label to."),
		),
		mcp.WithNumber("color",
			mcp.Description("Color index 0-8; derived from the title when omitted."),
		),
	)
}

func (t *CreateLabelTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title := req.GetString("title", "")
	if title == "" {
		return mcp.NewToolResultError("'title' is required"), nil
	}

	if identifier := req.GetString("identifier", ""); identifier != "" {
		if err := t.pipeline.AttachLabel(ctx, identifier, title); err != nil {
			return errResult("attach label", err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Attached label %q to %s", title, identifier)), nil
	}

	id, err := t.pipeline.CreateLabel(ctx, title, intArg(req, "color", -1))
	if err != nil {
		return errResult("create label", err), nil
	}
	return jsonResult(map[string]string{"id": id}), nil
}

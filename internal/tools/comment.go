package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// AddCommentTool handles the huly_add_comment MCP tool.
type AddCommentTool struct {
	pipeline Pipeline
}

func NewAddCommentTool(p Pipeline) *AddCommentTool {
	return &AddCommentTool{pipeline: p}
}

func (t *AddCommentTool) Definition() mcp.Tool {
	return mcp.NewTool("huly_add_comment",
		mcp.WithDescription("Add a comment to an issue. Returns the comment id."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Issue identifier, e.g. 'PROJ-12'."),
		),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Comment text. Lines starting with '-' become bullet items."),
		),
	)
}

func (t *AddCommentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier := req.GetString("identifier", "")
	text := req.GetString("text", "")
	if identifier == "" {
		return mcp.NewToolResultError("'identifier' is required"), nil
	}
	if text == "" {
		return mcp.NewToolResultError("'text' is required"), nil
	}
	id, err := t.pipeline.AddComment(ctx, identifier, text)
	if err != nil {
		return errResult("add comment", err), nil
	}
	return jsonResult(map[string]string{"id": id}), nil
}

// ListCommentsTool handles the huly_list_comments MCP tool.
type ListCommentsTool struct {
	pipeline Pipeline
}

func NewListCommentsTool(p Pipeline) *ListCommentsTool {
	return &ListCommentsTool{pipeline: p}
}

func (t *ListCommentsTool) Definition() mcp.Tool {
	return mcp.NewTool("huly_list_comments",
		mcp.WithDescription("List the comments of an issue, oldest first."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Issue identifier, e.g. 'PROJ-12'."),
		),
	)
}

func (t *ListCommentsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier := req.GetString("identifier", "")
	if identifier == "" {
		return mcp.NewToolResultError("'identifier' is required"), nil
	}
	comments, err := t.pipeline.ListComments(ctx, identifier)
	if err != nil {
		return errResult("list comments", err), nil
	}
	return jsonResult(comments), nil
}

// DeleteCommentTool handles the huly_delete_comment MCP tool.
type DeleteCommentTool struct {
	pipeline Pipeline
}

func NewDeleteCommentTool(p Pipeline) *DeleteCommentTool {
	return &DeleteCommentTool{pipeline: p}
}

func (t *DeleteCommentTool) Definition() mcp.Tool {
	return mcp.NewTool("huly_delete_comment",
		mcp.WithDescription("Delete a comment from an issue and decrement its comment counter."),
		mcp.WithString("identifier",
			mcp.Required(),
			mcp.Description("Issue identifier the comment is attached to."),
		),
		mcp.WithString("comment_id",
			mcp.Required(),
			mcp.Description("Id of the comment to delete."),
		),
	)
}

func (t *DeleteCommentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	identifier := req.GetString("identifier", "")
	commentID := req.GetString("comment_id", "")
	if identifier == "" {
		return mcp.NewToolResultError("'identifier' is required"), nil
	}
	if commentID == "" {
		return mcp.NewToolResultError("'comment_id' is required"), nil
	}
	if err := t.pipeline.DeleteComment(ctx, identifier, commentID); err != nil {
		return errResult("delete comment", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted comment %s from %s", commentID, identifier)), nil
}

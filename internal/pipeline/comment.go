package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hha-nguyen/huly-mcp-server/internal/richtext"
	"github.com/hha-nguyen/huly-mcp-server/internal/store"
)

// Comment is one chat message attached to an issue.
type Comment struct {
	ID        string
	Text      string
	Author    string
	CreatedOn int64
}

// AddComment appends a ChatMessage activity record to the issue and bumps
// the issue's comment counter in the same logical operation.
func (s *Service) AddComment(ctx context.Context, identifier, text string) (string, error) {
	row, workspaceID, err := s.findIssue(ctx, identifier)
	if err != nil {
		return "", err
	}

	commentID, err := s.writeActivity(ctx, ClassChatMessage, workspaceID, row.Space, row.ID, map[string]any{
		"message": richtext.EncodeJSON(text),
	})
	if err != nil {
		return "", fmt.Errorf("write comment: %w", err)
	}

	if err := s.adjustCommentCount(ctx, workspaceID, row, +1); err != nil {
		return "", err
	}
	return commentID, nil
}

// ListComments merges ChatMessage entries with legacy reference entries for
// the issue, oldest first. Only ChatMessage bodies run through the codec;
// other classes are already plain text.
func (s *Service) ListComments(ctx context.Context, identifier string) ([]Comment, error) {
	row, workspaceID, err := s.findIssue(ctx, identifier)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListActivity(ctx, workspaceID, row.ID, []string{ClassChatMessage, classActivityReference})
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	comments := make([]Comment, 0, len(entries))
	for _, entry := range entries {
		var data struct {
			Message string `json:"message"`
		}
		_ = entry.DecodeData(&data)
		text := data.Message
		if entry.Class == ClassChatMessage {
			text = richtext.Decode(text)
		}
		comments = append(comments, Comment{
			ID:        entry.ID,
			Text:      text,
			Author:    entry.CreatedBy,
			CreatedOn: entry.CreatedOn,
		})
	}
	return comments, nil
}

// DeleteComment removes one comment and decrements the issue's counter,
// which never goes below zero.
func (s *Service) DeleteComment(ctx context.Context, identifier, commentID string) error {
	row, workspaceID, err := s.findIssue(ctx, identifier)
	if err != nil {
		return err
	}

	entry, err := s.store.GetDoc(ctx, store.TableActivity, workspaceID, commentID)
	if errors.Is(err, store.ErrNoRow) {
		return &NotFoundError{Kind: "comment", Ref: commentID}
	}
	if err != nil {
		return fmt.Errorf("find comment: %w", err)
	}
	if entry.AttachedTo != row.ID || entry.Class != ClassChatMessage {
		return &NotFoundError{Kind: "comment", Ref: commentID}
	}

	if err := s.store.DeleteDoc(ctx, store.TableActivity, workspaceID, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	return s.adjustCommentCount(ctx, workspaceID, row, -1)
}

// adjustCommentCount read-modify-writes the counter on the primary record,
// rehashing it like any other in-place update.
func (s *Service) adjustCommentCount(ctx context.Context, workspaceID string, row store.DocRow, delta int) error {
	current, err := s.store.GetDoc(ctx, store.TableTask, workspaceID, row.ID)
	if err != nil {
		return fmt.Errorf("reread issue: %w", err)
	}
	payload := map[string]any{}
	if err := current.DecodeData(&payload); err != nil {
		return fmt.Errorf("decode issue payload: %w", err)
	}
	count := int(floatField(payload, "comments")) + delta
	if count < 0 {
		count = 0
	}
	payload["comments"] = count

	stamp := s.millis()
	hash, err := IntegrityHash(payload, row.ID, stamp)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := s.store.UpdateDocData(ctx, store.TableTask, workspaceID, row.ID, data, hash, s.actor(), stamp); err != nil {
		return fmt.Errorf("update comment counter: %w", err)
	}
	return nil
}

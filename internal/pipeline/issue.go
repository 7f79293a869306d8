package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hha-nguyen/huly-mcp-server/internal/identity"
	"github.com/hha-nguyen/huly-mcp-server/internal/richtext"
	"github.com/hha-nguyen/huly-mcp-server/internal/store"
)

// CreateIssueSpec is a logical create-issue mutation.
type CreateIssueSpec struct {
	Project     string
	Title       string
	Description string
	Priority    string
	Assignee    string
	Assigner    string
	Label       string
}

// CreateIssueResult identifies the new record.
type CreateIssueResult struct {
	ID         string
	Sequence   int64
	Identifier string
}

// IssueUpdate is a partial update; nil fields are untouched. The explicit
// RemainingTime always wins over the recomputed one.
type IssueUpdate struct {
	Title         *string
	Description   *string
	Priority      *string
	Status        *string
	Estimation    *float64
	SpentTime     *float64
	RemainingTime *float64
	Assignee      identity.Assignment
}

// Issue is the read-side projection returned by lookups.
type Issue struct {
	ID          string
	Identifier  string
	Title       string
	Description string
	Status      string
	Priority    string
	Assignee    string
	Comments    int
	ModifiedOn  int64
}

// CreateIssue replicates the platform's own create sequence: primary task
// row, TxCreateDoc log row, DocUpdateMessage activity row, in that order.
func (s *Service) CreateIssue(ctx context.Context, spec CreateIssueSpec) (CreateIssueResult, error) {
	info, err := s.projects.Resolve(ctx, spec.Project)
	if err != nil {
		return CreateIssueResult{}, err
	}

	workspaceID := info.WorkspaceID
	if workspaceID == "" {
		workspaceID, err = s.workspaceFor(ctx, info.ID)
		if err != nil {
			return CreateIssueResult{}, err
		}
	}

	identifiers, err := s.store.ListIssueIdentifiers(ctx, workspaceID, info.ID)
	if err != nil {
		return CreateIssueResult{}, fmt.Errorf("scan sibling issues: %w", err)
	}
	sequence := NextSequence(identifiers)
	issueIdentifier := fmt.Sprintf("%s-%d", info.Identifier, sequence)

	id := s.newID()

	// The description travels through the ingestion path; the primary
	// record stores only the content ref. A failed upload degrades to an
	// empty description instead of failing the creation.
	descriptionRef := ""
	if spec.Description != "" {
		ref, err := s.uploader.Upload(ctx, ClassIssue, id, "description", richtext.EncodeJSON(spec.Description))
		if err != nil {
			s.logf("pipeline: description upload failed, creating without one: %v", err)
		} else {
			descriptionRef = ref
		}
	}

	var assignee any
	if spec.Assignee != "" {
		if resolved, ok := s.ids.Assignee(spec.Assignee); ok {
			assignee = resolved
		} else {
			s.logf("pipeline: assignee %q not in identity table, leaving unassigned", spec.Assignee)
		}
	}
	assigner := s.actor()
	if spec.Assigner != "" {
		if resolved, ok := s.ids.Creator(spec.Assigner); ok {
			assigner = resolved
		}
	}

	labels := 0
	if spec.Label != "" {
		labels = 1
	}
	payload := map[string]any{
		"title":         spec.Title,
		"description":   descriptionRef,
		"identifier":    issueIdentifier,
		"number":        sequence,
		"priority":      PriorityValue(spec.Priority),
		"status":        info.DefaultIssueStatus,
		"kind":          info.DefaultTaskKind,
		"assignee":      assignee,
		"estimation":    0,
		"remainingTime": 0,
		"reportedTime":  0,
		"comments":      0,
		"subIssues":     0,
		"labels":        labels,
		"rank":          Rank(sequence),
	}

	stamp := s.millis()
	hash, err := IntegrityHash(payload, id, stamp)
	if err != nil {
		return CreateIssueResult{}, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return CreateIssueResult{}, err
	}

	err = s.store.InsertDoc(ctx, store.TableTask, store.DocRow{
		WorkspaceID: workspaceID,
		ID:          id,
		Class:       ClassIssue,
		Space:       info.ID,
		ModifiedBy:  assigner,
		CreatedBy:   assigner,
		ModifiedOn:  stamp,
		CreatedOn:   stamp,
		Hash:        hash,
		Data:        data,
	})
	if err != nil {
		return CreateIssueResult{}, fmt.Errorf("write primary record: %w", err)
	}
	if err := s.writeTx(ctx, ClassTxCreateDoc, workspaceID, info.ID, id, payload); err != nil {
		return CreateIssueResult{}, fmt.Errorf("write transaction log: %w", err)
	}
	if _, err := s.writeActivity(ctx, ClassDocUpdateMessage, workspaceID, info.ID, id, map[string]any{
		"action":      "create",
		"objectClass": ClassIssue,
		"objectId":    id,
	}); err != nil {
		return CreateIssueResult{}, fmt.Errorf("write activity record: %w", err)
	}

	if spec.Label != "" {
		if err := s.attachLabel(ctx, workspaceID, info.ID, id, spec.Label); err != nil {
			return CreateIssueResult{}, fmt.Errorf("attach label: %w", err)
		}
	}

	return CreateIssueResult{ID: id, Sequence: sequence, Identifier: issueIdentifier}, nil
}

// UpdateIssue merges a partial update into the current payload, rewrites
// the primary record in place, and appends exactly one TxUpdateDoc entry
// carrying the full merged payload. Updates produce no activity entry.
func (s *Service) UpdateIssue(ctx context.Context, identifier string, update IssueUpdate) error {
	row, workspaceID, err := s.findIssue(ctx, identifier)
	if err != nil {
		return err
	}

	payload := map[string]any{}
	if err := row.DecodeData(&payload); err != nil {
		return fmt.Errorf("decode issue payload: %w", err)
	}

	estimation := floatField(payload, "estimation")
	spent := floatField(payload, "reportedTime")
	if update.Estimation != nil {
		estimation = *update.Estimation
		payload["estimation"] = estimation
	}
	if update.SpentTime != nil {
		spent = *update.SpentTime
		payload["reportedTime"] = spent
	}
	switch {
	case update.RemainingTime != nil:
		payload["remainingTime"] = *update.RemainingTime
	case update.SpentTime != nil:
		remaining := estimation - spent
		if remaining < 0 {
			remaining = 0
		}
		payload["remainingTime"] = remaining
	case update.Estimation != nil:
		payload["remainingTime"] = estimation - spent
	}

	if update.Title != nil {
		payload["title"] = *update.Title
	}
	if update.Description != nil {
		payload["description"] = *update.Description
	}
	if update.Priority != nil {
		payload["priority"] = PriorityValue(*update.Priority)
	}
	if update.Status != nil {
		payload["status"] = s.resolveStatus(ctx, workspaceID, *update.Status)
	}
	if !update.Assignee.IsUnset() {
		if who, ok := update.Assignee.ID(); ok {
			// Accept either a person name or an already-resolved ref.
			if resolved, found := s.ids.Assignee(who); found {
				who = resolved
			}
			payload["assignee"] = who
		} else {
			payload["assignee"] = nil
		}
	}

	return s.rewriteIssue(ctx, workspaceID, row, payload)
}

// DeleteIssue writes the log and activity records first, then hard-deletes
// the primary record, so the audit trail survives a partial failure.
func (s *Service) DeleteIssue(ctx context.Context, identifier string) error {
	row, workspaceID, err := s.findIssue(ctx, identifier)
	if err != nil {
		return err
	}

	if err := s.writeTx(ctx, ClassTxRemoveDoc, workspaceID, row.Space, row.ID, map[string]any{}); err != nil {
		return fmt.Errorf("write transaction log: %w", err)
	}
	if _, err := s.writeActivity(ctx, ClassDocRemoveMessage, workspaceID, row.Space, row.ID, map[string]any{
		"action":      "remove",
		"objectClass": ClassIssue,
		"objectId":    row.ID,
	}); err != nil {
		return fmt.Errorf("write activity record: %w", err)
	}
	if err := s.store.DeleteDoc(ctx, store.TableTask, workspaceID, row.ID); err != nil {
		return fmt.Errorf("delete primary record: %w", err)
	}
	return nil
}

// GetIssue returns the current projection of one issue.
func (s *Service) GetIssue(ctx context.Context, identifier string) (Issue, error) {
	row, _, err := s.findIssue(ctx, identifier)
	if err != nil {
		return Issue{}, err
	}
	return projectIssue(row), nil
}

// ListIssues returns the newest issues of a project.
func (s *Service) ListIssues(ctx context.Context, projectRef string, limit int) ([]Issue, error) {
	info, err := s.projects.Resolve(ctx, projectRef)
	if err != nil {
		return nil, err
	}
	workspaceID := info.WorkspaceID
	if workspaceID == "" {
		workspaceID, err = s.workspaceFor(ctx, info.ID)
		if err != nil {
			return nil, err
		}
	}
	rows, err := s.store.ListIssuesBySpace(ctx, workspaceID, info.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	issues := make([]Issue, 0, len(rows))
	for _, row := range rows {
		issues = append(issues, projectIssue(row))
	}
	return issues, nil
}

func (s *Service) findIssue(ctx context.Context, identifier string) (store.DocRow, string, error) {
	workspaceID, err := s.workspaceFor(ctx, "")
	if err != nil {
		return store.DocRow{}, "", err
	}
	row, err := s.store.FindIssueByIdentifier(ctx, workspaceID, identifier)
	if errors.Is(err, store.ErrNoRow) {
		return store.DocRow{}, "", &NotFoundError{Kind: "issue", Ref: identifier}
	}
	if err != nil {
		return store.DocRow{}, "", fmt.Errorf("find issue: %w", err)
	}
	return row, workspaceID, nil
}

// rewriteIssue stamps, rehashes, updates the primary record in place, and
// appends the TxUpdateDoc snapshot of the full merged payload.
func (s *Service) rewriteIssue(ctx context.Context, workspaceID string, row store.DocRow, payload map[string]any) error {
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
		return fmt.Errorf("update primary record: %w", err)
	}
	if err := s.writeTx(ctx, ClassTxUpdateDoc, workspaceID, row.Space, row.ID, payload); err != nil {
		return fmt.Errorf("write transaction log: %w", err)
	}
	return nil
}

func projectIssue(row store.DocRow) Issue {
	var data struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Identifier  string  `json:"identifier"`
		Status      string  `json:"status"`
		Priority    int     `json:"priority"`
		Assignee    *string `json:"assignee"`
		Comments    int     `json:"comments"`
	}
	_ = row.DecodeData(&data)
	issue := Issue{
		ID:          row.ID,
		Identifier:  data.Identifier,
		Title:       data.Title,
		Description: data.Description,
		Status:      data.Status,
		Priority:    PriorityName(data.Priority),
		Comments:    data.Comments,
		ModifiedOn:  row.ModifiedOn,
	}
	if data.Assignee != nil {
		issue.Assignee = *data.Assignee
	}
	return issue
}

func floatField(payload map[string]any, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}

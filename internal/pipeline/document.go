package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hha-nguyen/huly-mcp-server/internal/richtext"
	"github.com/hha-nguyen/huly-mcp-server/internal/store"
)

// CreateDocumentSpec is a logical create-document mutation. Content is
// plain text; it is codec-encoded into the separate content record.
type CreateDocumentSpec struct {
	Project string
	Title   string
	Content string
}

// CreateDocument writes the primary document row plus its content record,
// then the same tx/activity pair issue creation writes.
func (s *Service) CreateDocument(ctx context.Context, spec CreateDocumentSpec) (string, error) {
	info, err := s.projects.Resolve(ctx, spec.Project)
	if err != nil {
		return "", err
	}
	workspaceID := info.WorkspaceID
	if workspaceID == "" {
		workspaceID, err = s.workspaceFor(ctx, info.ID)
		if err != nil {
			return "", err
		}
	}

	id := s.newID()
	contentRef := s.newID()
	stamp := s.millis()

	payload := map[string]any{
		"title":    spec.Title,
		"content":  contentRef,
		"parent":   nil,
		"children": 0,
		"rank":     Rank(1),
	}
	hash, err := IntegrityHash(payload, id, stamp)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	err = s.store.InsertDoc(ctx, store.TableDocument, store.DocRow{
		WorkspaceID: workspaceID,
		ID:          id,
		Class:       ClassDocument,
		Space:       info.ID,
		ModifiedBy:  s.actor(),
		CreatedBy:   s.actor(),
		ModifiedOn:  stamp,
		CreatedOn:   stamp,
		Hash:        hash,
		Data:        data,
	})
	if err != nil {
		return "", fmt.Errorf("write primary record: %w", err)
	}

	contentPayload := map[string]any{"content": richtext.EncodeJSON(spec.Content)}
	contentHash, err := IntegrityHash(contentPayload, contentRef, stamp)
	if err != nil {
		return "", err
	}
	contentData, err := json.Marshal(contentPayload)
	if err != nil {
		return "", err
	}
	err = s.store.InsertDoc(ctx, store.TableDocumentContent, store.DocRow{
		WorkspaceID: workspaceID,
		ID:          contentRef,
		Class:       ClassDocumentContent,
		Space:       info.ID,
		ModifiedBy:  s.actor(),
		CreatedBy:   s.actor(),
		ModifiedOn:  stamp,
		CreatedOn:   stamp,
		AttachedTo:  id,
		Hash:        contentHash,
		Data:        contentData,
	})
	if err != nil {
		return "", fmt.Errorf("write content record: %w", err)
	}

	if err := s.writeTx(ctx, ClassTxCreateDoc, workspaceID, info.ID, id, payload); err != nil {
		return "", fmt.Errorf("write transaction log: %w", err)
	}
	if _, err := s.writeActivity(ctx, ClassDocUpdateMessage, workspaceID, info.ID, id, map[string]any{
		"action":      "create",
		"objectClass": ClassDocument,
		"objectId":    id,
	}); err != nil {
		return "", fmt.Errorf("write activity record: %w", err)
	}
	return id, nil
}

// CreateLabel writes a tag element usable on issues workspace-wide. A
// negative color picks a stable one from the title.
func (s *Service) CreateLabel(ctx context.Context, title string, color int) (string, error) {
	workspaceID, err := s.workspaceFor(ctx, "")
	if err != nil {
		return "", err
	}
	if color < 0 {
		color = colorFor(title)
	}
	return s.createTagElement(ctx, workspaceID, title, color)
}

// AttachLabel links an existing-or-new label to an issue and bumps the
// issue's label counter.
func (s *Service) AttachLabel(ctx context.Context, identifier, labelTitle string) error {
	row, workspaceID, err := s.findIssue(ctx, identifier)
	if err != nil {
		return err
	}
	if err := s.attachLabel(ctx, workspaceID, row.Space, row.ID, labelTitle); err != nil {
		return err
	}

	payload := map[string]any{}
	if err := row.DecodeData(&payload); err != nil {
		return fmt.Errorf("decode issue payload: %w", err)
	}
	payload["labels"] = int(floatField(payload, "labels")) + 1
	return s.rewriteIssue(ctx, workspaceID, row, payload)
}

func (s *Service) createTagElement(ctx context.Context, workspaceID, title string, color int) (string, error) {
	id := s.newID()
	stamp := s.millis()
	payload := map[string]any{
		"title":       title,
		"color":       color,
		"category":    "tracker:category:Other",
		"targetClass": ClassIssue,
	}
	hash, err := IntegrityHash(payload, id, stamp)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	err = s.store.InsertDoc(ctx, store.TableTags, store.DocRow{
		WorkspaceID: workspaceID,
		ID:          id,
		Class:       ClassTagElement,
		Space:       "core:space:Workspace",
		ModifiedBy:  s.actor(),
		CreatedBy:   s.actor(),
		ModifiedOn:  stamp,
		CreatedOn:   stamp,
		Hash:        hash,
		Data:        data,
	})
	if err != nil {
		return "", fmt.Errorf("write tag element: %w", err)
	}
	return id, nil
}

// attachLabel creates the tag element and the reference row linking it to
// the issue. Runs after the issue's own three inserts have succeeded.
func (s *Service) attachLabel(ctx context.Context, workspaceID, space, issueID, title string) error {
	elementID, err := s.createTagElement(ctx, workspaceID, title, colorFor(title))
	if err != nil {
		return err
	}

	id := s.newID()
	stamp := s.millis()
	payload := map[string]any{
		"title": title,
		"tag":   elementID,
		"color": colorFor(title),
	}
	hash, err := IntegrityHash(payload, id, stamp)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	err = s.store.InsertDoc(ctx, store.TableTags, store.DocRow{
		WorkspaceID: workspaceID,
		ID:          id,
		Class:       ClassTagReference,
		Space:       space,
		ModifiedBy:  s.actor(),
		CreatedBy:   s.actor(),
		ModifiedOn:  stamp,
		CreatedOn:   stamp,
		AttachedTo:  issueID,
		Hash:        hash,
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("write tag reference: %w", err)
	}
	return nil
}

// colorFor picks a stable color index from the label title.
func colorFor(title string) int {
	sum := 0
	for _, r := range title {
		sum += int(r)
	}
	return sum % 9
}

// ProjectSummary is the read-side projection of one project.
type ProjectSummary struct {
	ID         string
	Name       string
	Identifier string
}

// ListProjects queries the full project list over the socket session.
func (s *Service) ListProjects(ctx context.Context) ([]ProjectSummary, error) {
	docs, err := s.rt.FindAll(ctx, "tracker:class:Project", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := make([]ProjectSummary, 0, len(docs))
	for _, raw := range docs {
		var doc struct {
			ID         string `json:"_id"`
			Name       string `json:"name"`
			Identifier string `json:"identifier"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		projects = append(projects, ProjectSummary{ID: doc.ID, Name: doc.Name, Identifier: doc.Identifier})
	}
	return projects, nil
}

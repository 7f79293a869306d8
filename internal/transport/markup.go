package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MarkupUploader pushes codec-encoded markup through the platform's
// rich-text ingestion path and returns the content ref the primary record
// stores instead of the text itself.
type MarkupUploader struct {
	BaseURL        string
	WorkspaceToken string
}

// Upload sends one markup document. A fresh HTTP client is used and its
// idle connections closed immediately after: the platform does not permit
// multiple concurrent callers of this path per session token.
func (u *MarkupUploader) Upload(ctx context.Context, objectClass, objectID, attribute, markup string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"objectClass": objectClass,
		"objectId":    objectID,
		"objectAttr":  attribute,
		"markup":      markup,
	})
	if err != nil {
		return "", fmt.Errorf("marshal markup request: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.BaseURL+"/api/markup", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build markup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+u.WorkspaceToken)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload markup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload markup: unexpected status %d", resp.StatusCode)
	}
	var decoded struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode markup response: %w", err)
	}
	if decoded.ID == "" {
		return "", fmt.Errorf("upload markup: empty content ref")
	}
	return decoded.ID, nil
}

// Package transport owns the session against the platform's realtime API:
// the two-step HTTP login handshake, the persistent websocket, and the
// correlation of concurrent request/response pairs over it.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Credentials for the accounts handshake.
type Credentials struct {
	Email     string
	Password  string
	Workspace string
}

// Handshake is the outcome of a successful login: the account-level bearer,
// the workspace-scoped socket token, and the social id the accounts service
// reported for us (the session's own identity, may be empty).
type Handshake struct {
	Token          string
	WorkspaceToken string
	SocialID       string
}

type accountRequest struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

type accountResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// Login performs the two-step handshake: login for an account bearer, then
// selectWorkspace for a workspace-scoped token. Any response carrying an
// error field aborts with AuthError; the socket is never dialed after a
// failed handshake.
func Login(ctx context.Context, client *http.Client, accountsURL string, creds Credentials) (*Handshake, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	loginResult, err := accountCall(ctx, client, accountsURL, "", accountRequest{
		Method: "login",
		Params: map[string]string{"email": creds.Email, "password": creds.Password},
	})
	if err != nil {
		return nil, err
	}
	var login struct {
		Token    string `json:"token"`
		SocialID string `json:"socialId"`
	}
	if err := json.Unmarshal(loginResult, &login); err != nil {
		return nil, fmt.Errorf("decode login result: %w", err)
	}
	if login.Token == "" {
		return nil, &AuthError{Step: "login", Raw: loginResult}
	}

	selectResult, err := accountCall(ctx, client, accountsURL, login.Token, accountRequest{
		Method: "selectWorkspace",
		Params: map[string]string{"workspaceUrl": creds.Workspace, "kind": "external"},
	})
	if err != nil {
		return nil, err
	}
	var selected struct {
		Token    string `json:"token"`
		SocialID string `json:"socialId"`
	}
	if err := json.Unmarshal(selectResult, &selected); err != nil {
		return nil, fmt.Errorf("decode selectWorkspace result: %w", err)
	}
	if selected.Token == "" {
		return nil, &AuthError{Step: "selectWorkspace", Raw: selectResult}
	}

	socialID := selected.SocialID
	if socialID == "" {
		socialID = login.SocialID
	}
	return &Handshake{
		Token:          login.Token,
		WorkspaceToken: selected.Token,
		SocialID:       socialID,
	}, nil
}

func accountCall(ctx context.Context, client *http.Client, url, bearer string, reqBody accountRequest) (json.RawMessage, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", reqBody.Method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", reqBody.Method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", reqBody.Method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var decoded accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", reqBody.Method, err)
	}
	if len(decoded.Error) > 0 && string(decoded.Error) != "null" {
		return nil, &AuthError{Step: reqBody.Method, Raw: decoded.Error}
	}
	return decoded.Result, nil
}

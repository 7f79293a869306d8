package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func accountsStub(t *testing.T, handler func(method string, params map[string]string, bearer string) (any, any)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params map[string]string `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		result, errPayload := handler(req.Method, req.Params, bearer)
		resp := map[string]any{}
		if errPayload != nil {
			resp["error"] = errPayload
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestLoginHandshake(t *testing.T) {
	var sawBearer string
	srv := accountsStub(t, func(method string, params map[string]string, bearer string) (any, any) {
		switch method {
		case "login":
			if params["email"] != "a@b.c" || params["password"] != "pw" {
				t.Errorf("unexpected login params: %v", params)
			}
			return map[string]string{"token": "acct-token", "socialId": "social:me"}, nil
		case "selectWorkspace":
			sawBearer = bearer
			if params["workspaceUrl"] != "my-ws" || params["kind"] != "external" {
				t.Errorf("unexpected selectWorkspace params: %v", params)
			}
			return map[string]string{"token": "ws-token"}, nil
		}
		t.Errorf("unexpected method %q", method)
		return nil, map[string]string{"code": "unexpected"}
	})
	defer srv.Close()

	hs, err := Login(context.Background(), srv.Client(), srv.URL, Credentials{
		Email: "a@b.c", Password: "pw", Workspace: "my-ws",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if hs.Token != "acct-token" || hs.WorkspaceToken != "ws-token" {
		t.Errorf("handshake = %+v", hs)
	}
	if hs.SocialID != "social:me" {
		t.Errorf("social id = %q, want carried over from login", hs.SocialID)
	}
	if sawBearer != "acct-token" {
		t.Errorf("selectWorkspace bearer = %q, want acct-token", sawBearer)
	}
}

func TestLoginRejected(t *testing.T) {
	calls := 0
	srv := accountsStub(t, func(method string, params map[string]string, bearer string) (any, any) {
		calls++
		return nil, map[string]string{"code": "InvalidPassword"}
	})
	defer srv.Close()

	_, err := Login(context.Background(), srv.Client(), srv.URL, Credentials{Email: "a@b.c"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Step != "login" {
		t.Errorf("step = %q, want login", authErr.Step)
	}
	if !strings.Contains(string(authErr.Raw), "InvalidPassword") {
		t.Errorf("payload not carried: %s", authErr.Raw)
	}
	if calls != 1 {
		t.Errorf("expected handshake to stop after the rejected login, saw %d calls", calls)
	}
}

func TestSelectWorkspaceRejected(t *testing.T) {
	srv := accountsStub(t, func(method string, params map[string]string, bearer string) (any, any) {
		if method == "login" {
			return map[string]string{"token": "acct-token"}, nil
		}
		return nil, map[string]string{"code": "WorkspaceNotFound"}
	})
	defer srv.Close()

	_, err := Login(context.Background(), srv.Client(), srv.URL, Credentials{Workspace: "nope"})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Step != "selectWorkspace" {
		t.Errorf("step = %q, want selectWorkspace", authErr.Step)
	}
}

func TestLoginEmptyToken(t *testing.T) {
	srv := accountsStub(t, func(method string, params map[string]string, bearer string) (any, any) {
		return map[string]string{}, nil
	})
	defer srv.Close()

	_, err := Login(context.Background(), srv.Client(), srv.URL, Credentials{})
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError for tokenless result, got %v", err)
	}
}

func TestSocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://huly.example.com", "wss://huly.example.com/tok"},
		{"http://localhost:8087", "ws://localhost:8087/tok"},
	}
	for _, tt := range tests {
		got, err := SocketURL(tt.base, "tok")
		if err != nil {
			t.Fatalf("SocketURL(%q): %v", tt.base, err)
		}
		if got != tt.want {
			t.Errorf("SocketURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

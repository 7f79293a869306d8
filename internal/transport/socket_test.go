package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// socketStub upgrades one connection and passes each inbound frame to
// respond, which may write any number of frames back.
func socketStub(t *testing.T, respond func(conn *websocket.Conn, frame map[string]any)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			var frame map[string]any
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			respond(conn, frame)
		}
	}))
}

func dialStub(t *testing.T, srv *httptest.Server, timeout time.Duration) *Client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := Dial(context.Background(), url, timeout)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestCallCorrelation(t *testing.T) {
	srv := socketStub(t, func(conn *websocket.Conn, frame map[string]any) {
		_ = conn.WriteJSON(map[string]any{
			"id":     frame["id"],
			"result": map[string]any{"echo": frame["method"]},
		})
	})
	defer srv.Close()
	client := dialStub(t, srv, time.Second)

	raw, err := client.Call(context.Background(), "ping")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	var result struct {
		Echo string `json:"echo"`
	}
	if err := json.Unmarshal(raw, &result); err != nil || result.Echo != "ping" {
		t.Errorf("result = %s err = %v", raw, err)
	}
}

func TestConcurrentCallsDoNotCross(t *testing.T) {
	srv := socketStub(t, func(conn *websocket.Conn, frame map[string]any) {
		method, _ := frame["method"].(string)
		// Delay the first reply so replies arrive out of request order.
		if method == "slow" {
			time.Sleep(50 * time.Millisecond)
		}
		_ = conn.WriteJSON(map[string]any{
			"id":     frame["id"],
			"result": method,
		})
	})
	defer srv.Close()
	client := dialStub(t, srv, 2*time.Second)

	type outcome struct {
		method string
		raw    json.RawMessage
		err    error
	}
	results := make(chan outcome, 2)
	for _, method := range []string{"slow", "fast"} {
		go func(m string) {
			raw, err := client.Call(context.Background(), m)
			results <- outcome{method: m, raw: raw, err: err}
		}(method)
	}
	for i := 0; i < 2; i++ {
		got := <-results
		if got.err != nil {
			t.Fatalf("%s: %v", got.method, got.err)
		}
		var echoed string
		_ = json.Unmarshal(got.raw, &echoed)
		if echoed != got.method {
			t.Errorf("reply for %q delivered to %q waiter", echoed, got.method)
		}
	}
}

func TestCallTimeoutAndLateReply(t *testing.T) {
	release := make(chan struct{})
	srv := socketStub(t, func(conn *websocket.Conn, frame map[string]any) {
		method, _ := frame["method"].(string)
		if method == "never" {
			go func() {
				<-release
				_ = conn.WriteJSON(map[string]any{"id": frame["id"], "result": "too late"})
			}()
			return
		}
		_ = conn.WriteJSON(map[string]any{"id": frame["id"], "result": method})
	})
	defer srv.Close()
	client := dialStub(t, srv, 30*time.Millisecond)

	_, err := client.Call(context.Background(), "never")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	// Let the late reply arrive; it must be dropped without disturbing a
	// subsequent call on the same socket.
	close(release)
	time.Sleep(50 * time.Millisecond)

	client.callTimeout = time.Second
	raw, err := client.Call(context.Background(), "after")
	if err != nil {
		t.Fatalf("call after late reply: %v", err)
	}
	if string(raw) != `"after"` {
		t.Errorf("result = %s, want \"after\"", raw)
	}
}

func TestErrorReplyRejectsWaiter(t *testing.T) {
	srv := socketStub(t, func(conn *websocket.Conn, frame map[string]any) {
		_ = conn.WriteJSON(map[string]any{
			"id":    frame["id"],
			"error": map[string]any{"code": "Forbidden"},
		})
	})
	defer srv.Close()
	client := dialStub(t, srv, time.Second)

	_, err := client.Call(context.Background(), "denied")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if !strings.Contains(string(apiErr.Raw), "Forbidden") {
		t.Errorf("payload not carried: %s", apiErr.Raw)
	}
}

func TestMalformedFrameIgnored(t *testing.T) {
	srv := socketStub(t, func(conn *websocket.Conn, frame map[string]any) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json"))
		_ = conn.WriteJSON(map[string]any{"result": "unsolicited, no id"})
		_ = conn.WriteJSON(map[string]any{"id": frame["id"], "result": "ok"})
	})
	defer srv.Close()
	client := dialStub(t, srv, time.Second)

	raw, err := client.Call(context.Background(), "robust")
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if string(raw) != `"ok"` {
		t.Errorf("result = %s, want \"ok\"", raw)
	}
}

func TestSocketCloseRejectsPendingWaiters(t *testing.T) {
	srv := socketStub(t, func(conn *websocket.Conn, frame map[string]any) {
		_ = conn.Close()
	})
	defer srv.Close()
	client := dialStub(t, srv, 5*time.Second)

	_, err := client.Call(context.Background(), "doomed")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError when socket closes mid-call, got %v", err)
	}

	// The session is dead; further calls fail fast instead of hanging.
	_, err = client.Call(context.Background(), "dead")
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError on dead session, got %v", err)
	}
}

func TestExtractList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantLen int
		wantErr bool
	}{
		{"bare array", `[{"a":1},{"a":2}]`, 2, false},
		{"value envelope", `{"value":[{"a":1}]}`, 1, false},
		{"docs envelope", `{"docs":[{"a":1},{"a":2},{"a":3}]}`, 3, false},
		{"empty array", `[]`, 0, false},
		{"empty value", `{"value":[]}`, 0, false},
		{"nothing", ``, 0, false},
		{"unknown shape", `{"items":[]}`, 0, true},
		{"scalar", `42`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := ExtractList(json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", list)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractList: %v", err)
			}
			if len(list) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(list), tt.wantLen)
			}
		})
	}
}

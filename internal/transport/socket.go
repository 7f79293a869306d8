package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Client multiplexes concurrent request/response pairs over one persistent
// websocket. There is no automatic reconnect: once the socket errors or
// closes, every pending and future call fails with TransportError and the
// caller must open a fresh session.
type Client struct {
	conn        *websocket.Conn
	callTimeout time.Duration

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan callResult

	nextID atomic.Int64

	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

type callResult struct {
	result json.RawMessage
	err    error
}

type outboundFrame struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params []any  `json:"params"`
}

type inboundFrame struct {
	ID     *int64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

// SocketURL converts the deployment base URL into the websocket endpoint
// for a workspace token: wss://{host}/{token}.
func SocketURL(baseURL, workspaceToken string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	scheme := "wss"
	if parsed.Scheme == "http" || parsed.Scheme == "ws" {
		scheme = "ws"
	}
	return scheme + "://" + parsed.Host + "/" + workspaceToken, nil
}

// Dial opens the socket for an authenticated workspace token.
func Dial(ctx context.Context, socketURL string, callTimeout time.Duration) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, socketURL, nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	c := &Client{
		conn:        conn,
		callTimeout: callTimeout,
		pending:     map[int64]chan callResult{},
		closed:      make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Call sends {id, method, params} and waits for the reply carrying the same
// id. Exactly one of reply, timeout, context cancellation, or socket close
// settles the call, and the pending entry is removed exactly once.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	select {
	case <-c.closed:
		return nil, &TransportError{Err: c.closeErr}
	default:
	}

	id := c.nextID.Add(1)
	ch := make(chan callResult, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	if params == nil {
		params = []any{}
	}
	c.writeMu.Lock()
	err := c.conn.WriteJSON(outboundFrame{ID: id, Method: method, Params: params})
	c.writeMu.Unlock()
	if err != nil {
		c.unregister(id)
		c.fail(err)
		return nil, &TransportError{Err: err}
	}

	timer := time.NewTimer(c.callTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.result, nil
	case <-timer.C:
		c.unregister(id)
		return nil, fmt.Errorf("%s after %s: %w", method, c.callTimeout, ErrTimeout)
	case <-ctx.Done():
		c.unregister(id)
		return nil, ctx.Err()
	case <-c.closed:
		// readLoop already rejected the waiter set; the channel may or may
		// not carry our rejection depending on ordering.
		return nil, &TransportError{Err: c.closeErr}
	}
}

// FindAll queries the given class over the socket and normalizes the result
// envelope to a flat list.
func (c *Client) FindAll(ctx context.Context, class string, query, options map[string]any) ([]json.RawMessage, error) {
	if query == nil {
		query = map[string]any{}
	}
	if options == nil {
		options = map[string]any{}
	}
	raw, err := c.Call(ctx, "findAll", class, query, options)
	if err != nil {
		return nil, err
	}
	return ExtractList(raw)
}

// Close tears the socket down and rejects anything still pending.
func (c *Client) Close() error {
	err := c.conn.Close()
	c.fail(fmt.Errorf("session closed"))
	return err
}

func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.fail(err)
			return
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			log.Printf("transport: dropping malformed frame: %v", err)
			continue
		}
		if frame.ID == nil {
			// Unsolicited push; nothing is waiting on it.
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[*frame.ID]
		if ok {
			delete(c.pending, *frame.ID)
		}
		c.mu.Unlock()
		if !ok {
			// Late reply for a timed-out call, or an id we never issued.
			continue
		}
		if len(frame.Error) > 0 && string(frame.Error) != "null" {
			ch <- callResult{err: &APIError{Raw: frame.Error}}
			continue
		}
		ch <- callResult{result: frame.Result}
	}
}

// fail marks the session dead and rejects all pending waiters. Leaving a
// waiter hanging after the socket dies would block its caller forever.
func (c *Client) fail(cause error) {
	c.closeOnce.Do(func() {
		c.closeErr = cause
		close(c.closed)
	})
	c.mu.Lock()
	waiters := c.pending
	c.pending = map[int64]chan callResult{}
	c.mu.Unlock()
	for _, ch := range waiters {
		ch <- callResult{err: &TransportError{Err: cause}}
	}
}

func (c *Client) unregister(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

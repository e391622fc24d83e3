package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/altoslab447/openclaw-dashboard/internal/domain"
)

// Client provides typed access to the dashboard API for interactive tools.
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithDialer overrides the websocket dialer used by Follow.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		if d != nil {
			c.dialer = d
		}
	}
}

// New constructs a Client pointing at the provided dashboard base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:3456"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	if _, err := url.Parse(trimmed); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
	}
	for _, opt := range opts {
		opt(cli)
	}
	return cli, nil
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		msg := extractError(resp.Body)
		return APIError{Status: resp.StatusCode, Message: msg}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractError(body io.Reader) string {
	if body == nil {
		return ""
	}
	var payload struct {
		Error string `json:"error"`
	}
	data, err := io.ReadAll(body)
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return strings.TrimSpace(payload.Error)
}

// Health is the /healthz payload.
type Health struct {
	Status   string `json:"status"`
	Watching struct {
		Log        bool `json:"log"`
		StatePaths int  `json:"statePaths"`
	} `json:"watching"`
	Subscribers int    `json:"subscribers"`
	Timestamp   string `json:"timestamp"`
}

// Health reports server liveness and what it is watching.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	err := c.get(ctx, "/healthz", &h)
	return h, err
}

// FetchLogs returns the most recent log records, oldest first. count <= 0
// lets the server pick its default.
func (c *Client) FetchLogs(ctx context.Context, count int) ([]domain.LogRecord, error) {
	path := "/api/logs"
	if count > 0 {
		path += "?count=" + strconv.Itoa(count)
	}
	var records []domain.LogRecord
	if err := c.get(ctx, path, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// FetchSnapshot returns the aggregate state view.
func (c *Client) FetchSnapshot(ctx context.Context) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := c.get(ctx, "/api/all", &snap)
	return snap, err
}

// FetchRawSnapshot returns /api/all undecoded, preserving fields this client
// does not model.
func (c *Client) FetchRawSnapshot(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	err := c.get(ctx, "/api/all", &raw)
	return raw, err
}

// Event is one envelope received from the push stream.
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// Record decodes a log event payload.
func (e Event) Record() (domain.LogRecord, error) {
	var rec domain.LogRecord
	if e.Type != domain.EnvelopeLog {
		return rec, fmt.Errorf("event %q is not a log event", e.Type)
	}
	err := json.Unmarshal(e.Data, &rec)
	return rec, err
}

// ChangedFile returns the file name of a data-changed event.
func (e Event) ChangedFile() string {
	var payload struct {
		File string `json:"file"`
	}
	_ = json.Unmarshal(e.Data, &payload)
	return payload.File
}

// Follow streams push events to handle until ctx is cancelled, the server
// closes the stream, or handle returns an error. Cancellation returns nil.
func (c *Client) Follow(ctx context.Context, handle func(Event) error) error {
	endpoint, err := c.streamURL()
	if err != nil {
		return err
	}
	conn, resp, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return APIError{Status: resp.StatusCode, Message: extractError(resp.Body)}
		}
		return fmt.Errorf("dial %s: %w", endpoint, err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-stop:
		}
	}()

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read event: %w", err)
		}
		if err := handle(ev); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
	}
}

// ErrStop ends Follow without an error when returned by the handler.
var ErrStop = errors.New("stop following")

func (c *Client) streamURL() (string, error) {
	u, err := url.Parse(c.baseURL + "/ws")
	if err != nil {
		return "", fmt.Errorf("invalid stream url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	return u.String(), nil
}

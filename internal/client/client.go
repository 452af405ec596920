// Package client is the widget's HTTP transport to the chat backend. It covers the buffered chat
// endpoint, the server-sent event stream, the streaming trigger, and the log refresh endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/MegaGrindStone/chatwidget/internal/models"
)

// Client talks to the chat backend rooted at a base URL.
type Client struct {
	baseURL *url.URL
	client  *http.Client

	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// StatusError is returned when the backend answers with a non-200 status.
type StatusError struct {
	Code int
	Body string
}

const (
	chatPath        = "/api/chat"
	refreshLogsPath = "/api/refresh-logs"

	errBodyLimit = 512
)

// WithHTTPClient replaces the default http.Client. Streaming requests share it, so its Timeout should be
// zero or long enough for a whole response.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.client = hc
	}
}

// WithLogger sets the logger used for transport diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the backend at baseURL, which must be an absolute http or https URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q: missing host", baseURL)
	}

	c := &Client{
		baseURL: u,
		client:  &http.Client{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(slog.String("module", "client"))
	return c, nil
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d, body: %s", e.Code, e.Body)
}

// Chat sends message to POST /api/chat and returns the buffered response text.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	resp, err := c.postJSON(ctx, chatPath, models.ChatRequest{Message: message})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var res models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}
	return res.Response, nil
}

// Trigger sends message to POST /api/chat and discards the reply. Streaming mode uses it to start
// generation while the output arrives on the event stream.
func (c *Client) Trigger(ctx context.Context, message string) error {
	resp, err := c.postJSON(ctx, chatPath, models.ChatRequest{Message: message})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// RefreshLogs calls POST /api/refresh-logs. An in-band failure is reported through the returned
// response's Status, not as an error.
func (c *Client) RefreshLogs(ctx context.Context) (models.RefreshLogsResponse, error) {
	resp, err := c.do(ctx, http.MethodPost, c.endpoint(refreshLogsPath, nil), nil)
	if err != nil {
		return models.RefreshLogsResponse{}, err
	}
	defer resp.Body.Close()

	var res models.RefreshLogsResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return models.RefreshLogsResponse{}, fmt.Errorf("error decoding response: %w", err)
	}
	return res, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	c.logger.Debug("Request Body", slog.String("path", path), slog.String("body", string(jsonBody)))

	return c.do(ctx, http.MethodPost, c.endpoint(path, nil), bytes.NewReader(jsonBody))
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
	return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Package syncdoapi implements the service.Service interface over the SyncDo REST API.
package syncdoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"syncdo/internal/config"
	"syncdo/internal/service"
)

const (
	// DefaultTimeout is used when the config does not set one.
	DefaultTimeout = 10 * time.Second

	// RequestIDHeader carries a per-request id for correlating logs.
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 64 << 10
)

// Client implements service.Service over HTTP.
// Task requests go through an oauth2.Transport fed by the session store, so the
// bearer header always reflects the credential current at send time.
type Client struct {
	baseURL string
	auth    *http.Client
	tasks   *http.Client
	timeout time.Duration
	log     log.FieldLogger
}

// New creates a client for cfg.APIURL. tokens supplies the bearer credential
// for task operations.
func New(cfg *config.Config, tokens oauth2.TokenSource, logger log.FieldLogger) *Client {
	c := NewWithHTTPClient(cfg.APIURL, http.DefaultClient, tokens, logger)
	if cfg.RequestTimeout > 0 {
		c.timeout = cfg.RequestTimeout
	}
	return c
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(baseURL string, httpClient *http.Client, tokens oauth2.TokenSource, logger log.FieldLogger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    httpClient,
		tasks: &http.Client{
			Transport:     &oauth2.Transport{Source: tokens, Base: base},
			CheckRedirect: httpClient.CheckRedirect,
			Jar:           httpClient.Jar,
		},
		timeout: DefaultTimeout,
		log:     logger,
	}
}

// Login implements service.Service.
func (c *Client) Login(ctx context.Context, creds service.Credentials) (string, error) {
	creds, err := creds.Normalize()
	if err != nil {
		return "", err
	}
	var resp service.TokenResponse
	if err := c.do(ctx, c.auth, http.MethodPost, "/auth/login", creds, &resp); err != nil {
		return "", err
	}
	return tokenFrom(resp)
}

// Signup implements service.Service.
func (c *Client) Signup(ctx context.Context, req service.Signup) (string, error) {
	req, err := req.Normalize()
	if err != nil {
		return "", err
	}
	var resp service.TokenResponse
	if err := c.do(ctx, c.auth, http.MethodPost, "/auth/signup", req, &resp); err != nil {
		return "", err
	}
	return tokenFrom(resp)
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context) ([]service.Task, error) {
	var tasks []service.Task
	if err := c.do(ctx, c.tasks, http.MethodGet, "/tasks/", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	task, err := task.Normalize()
	if err != nil {
		return service.Task{}, err
	}
	var created service.Task
	if err := c.do(ctx, c.tasks, http.MethodPost, "/tasks/", task, &created); err != nil {
		return service.Task{}, err
	}
	if created.ID == "" {
		return service.Task{}, errors.New("server returned a task without an id")
	}
	return created, nil
}

// SetCompleted implements service.Service.
func (c *Client) SetCompleted(ctx context.Context, id service.TaskID, completed bool) (service.Task, error) {
	var updated service.Task
	body := service.CompletionUpdate{IsCompleted: completed}
	if err := c.do(ctx, c.tasks, http.MethodPut, taskPath(id), body, &updated); err != nil {
		return service.Task{}, err
	}
	return updated, nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id service.TaskID) error {
	return c.do(ctx, c.tasks, http.MethodDelete, taskPath(id), nil, nil)
}

func taskPath(id service.TaskID) string {
	return "/tasks/" + url.PathEscape(string(id))
}

func tokenFrom(resp service.TokenResponse) (string, error) {
	if resp.AccessToken == "" {
		return "", errors.New("server returned no access token")
	}
	return resp.AccessToken, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		buf := new(bytes.Buffer)
		if err := json.NewEncoder(buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	entry := c.log.WithFields(log.Fields{
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		entry.WithError(err).Debug("request failed")
		return wrapError(err)
	}
	defer resp.Body.Close()

	entry = entry.WithFields(log.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond).String(),
	})
	entry.Debug("request complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError reads the server's {"detail": ...} body. FastAPI validation
// failures send a list there; it is passed through as compact JSON.
func decodeError(resp *http.Response) error {
	apiErr := &service.APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || len(payload.Detail) == 0 {
		return apiErr
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		apiErr.Detail = detail
		return apiErr
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, payload.Detail); err == nil {
		apiErr.Detail = compact.String()
	}
	return apiErr
}

// wrapError wraps transport errors with user-friendly messages.
func wrapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", context.DeadlineExceeded)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s %s: %w", urlErr.Op, urlErr.URL, urlErr.Err)
	}
	return err
}

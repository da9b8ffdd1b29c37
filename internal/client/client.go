// Package client talks to a running API Factory server.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Octrafic/api-factory/internal/core/analyzer"
	"github.com/Octrafic/api-factory/internal/core/auth"
	"github.com/Octrafic/api-factory/internal/infra/logger"
	"github.com/tidwall/gjson"
)

var ErrNotFound = errors.New("not found")

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Detail)
}

// Unwrap maps 404 answers to ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

type UploadResult struct {
	TaskID  string
	Message string
}

type TaskStatus struct {
	TaskID         string
	Status         string
	Logs           []string
	Preview        []analyzer.EndpointSummary
	ArtifactsReady []string
}

// Done reports whether the task reached completed or failed.
func (s *TaskStatus) Done() bool {
	return s.Status == "completed" || s.Status == "failed"
}

type Client struct {
	baseURL      string
	client       *http.Client
	authProvider auth.AuthProvider
}

func New(baseURL string, authProvider auth.AuthProvider, timeout time.Duration) *Client {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		authProvider: authProvider,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Upload sends a workbook and returns the new task id.
func (c *Client) Upload(ctx context.Context, path string) (*UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload: %w", err)
	}

	data, err := c.call(ctx, http.MethodPost, "/api/upload", &body, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	return &UploadResult{
		TaskID:  gjson.GetBytes(data, "task_id").String(),
		Message: gjson.GetBytes(data, "message").String(),
	}, nil
}

func (c *Client) Status(ctx context.Context, taskID string) (*TaskStatus, error) {
	data, err := c.call(ctx, http.MethodGet, "/api/status/"+url.PathEscape(taskID), nil, "")
	if err != nil {
		return nil, err
	}

	res := gjson.ParseBytes(data)
	status := &TaskStatus{
		TaskID:         res.Get("task_id").String(),
		Status:         res.Get("status").String(),
		Logs:           stringArray(res.Get("logs")),
		ArtifactsReady: stringArray(res.Get("artifacts_ready")),
	}
	for _, ep := range res.Get("api_preview").Array() {
		status.Preview = append(status.Preview, analyzer.EndpointSummary{
			Name:             ep.Get("name").String(),
			Module:           ep.Get("module").String(),
			Method:           ep.Get("method").String(),
			URL:              ep.Get("url").String(),
			BodyMode:         ep.Get("body_mode").String(),
			AuthScope:        ep.Get("auth_scope").String(),
			TokenVariable:    ep.Get("token_variable").String(),
			IsTokenGenerator: ep.Get("is_token_generator").Bool(),
		})
	}
	return status, nil
}

// Download streams an artifact into w and returns the file name the server
// suggested.
func (c *Client) Download(ctx context.Context, taskID, kind string, w io.Writer) (string, error) {
	path := "/api/download/" + url.PathEscape(taskID) + "/" + url.PathEscape(kind)
	resp, err := c.send(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return "", err
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("failed to read artifact: %w", err)
	}

	name := kind
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return name, nil
}

// Health checks that the server answers /health with status ok.
func (c *Client) Health(ctx context.Context) error {
	data, err := c.call(ctx, http.MethodGet, "/health", nil, "")
	if err != nil {
		return err
	}
	if status := gjson.GetBytes(data, "status").String(); status != "ok" {
		return fmt.Errorf("unexpected health status: %q", status)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	resp, err := c.send(ctx, method, path, body, contentType)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return data, nil
}

func (c *Client) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.authProvider != nil {
		if err := c.authProvider.Apply(req); err != nil {
			return nil, fmt.Errorf("failed to apply auth: %w", err)
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	logger.Debug("API call",
		logger.String("method", method),
		logger.String("path", path),
		logger.Int("status", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	detail := gjson.GetBytes(data, "detail").String()
	if detail == "" {
		detail = strings.TrimSpace(string(data))
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: detail}
}

func stringArray(r gjson.Result) []string {
	out := []string{}
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}

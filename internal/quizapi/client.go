// Package quizapi is the client of the quiz backend REST API.
package quizapi

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

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/metrics"
	"github.com/stemsi/exstem-proctor/internal/model"
)

// Errors returned by the client.
var (
	ErrNotFound = errors.New("quiz backend: resource not found")
)

// StatusError is returned for any non-2xx response other than 404.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("quiz backend %s: HTTP error! status: %d", e.Op, e.Status)
}

// Client talks to the quiz backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	origin     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a Client. baseURL includes the API prefix, e.g.
// "https://quiz.example.com/api"; asset paths are resolved against its origin.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	origin := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}
	return &Client{
		baseURL:    baseURL,
		origin:     origin,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With().Str("component", "quiz_api").Logger(),
	}
}

// GetQuizSession looks up a quiz definition by join code. The code is
// upper-cased before the lookup.
func (c *Client) GetQuizSession(ctx context.Context, code string) (*model.QuizSession, error) {
	var quiz model.QuizSession
	path := "/quiz-sessions/" + url.PathEscape(strings.ToUpper(strings.TrimSpace(code)))
	if _, err := c.do(ctx, "get_quiz_session", http.MethodGet, path, nil, &quiz); err != nil {
		return nil, err
	}
	return &quiz, nil
}

// CreateViolation records a suspension and returns its id.
func (c *Client) CreateViolation(ctx context.Context, req *model.ViolationRequest) (string, error) {
	var out model.ViolationCreated
	if _, err := c.do(ctx, "create_violation", http.MethodPost, "/quiz-violations", req, &out); err != nil {
		return "", err
	}
	if out.ViolationID == "" {
		return "", errors.New("quiz backend create_violation: empty violationId")
	}
	return out.ViolationID, nil
}

// CheckPending asks whether the student already has an unresolved suspension.
func (c *Client) CheckPending(ctx context.Context, req *model.PendingCheckRequest) (*model.PendingCheckResponse, error) {
	var out model.PendingCheckResponse
	if _, err := c.do(ctx, "check_pending", http.MethodPost, "/quiz-violations/check-pending", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Continue fetches the admin decision for a violation. An empty body or
// success=false yields a response whose Decided() is false.
func (c *Client) Continue(ctx context.Context, violationID string) (*model.ContinueResponse, error) {
	var out model.ContinueResponse
	path := "/quiz-violations/" + url.PathEscape(violationID) + "/continue"
	empty, err := c.do(ctx, "continue", http.MethodPost, path, nil, &out)
	if err != nil {
		return nil, err
	}
	if empty {
		return &model.ContinueResponse{}, nil
	}
	return &out, nil
}

// SubmitResult posts a completed attempt.
func (c *Client) SubmitResult(ctx context.Context, req *model.ResultRequest) error {
	_, err := c.do(ctx, "submit_result", http.MethodPost, "/quiz-results", req, nil)
	return err
}

// AssetURL resolves an uploaded asset path against the backend origin.
func (c *Client) AssetURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.origin + path
}

// do performs a JSON request. It reports whether the response body was empty.
func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) (bool, error) {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("marshal %s: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return false, fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveBackend(op, 0, start)
		return false, fmt.Errorf("quiz backend %s: %w", op, err)
	}
	defer resp.Body.Close()
	metrics.ObserveBackend(op, resp.StatusCode, start)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return false, fmt.Errorf("read %s response: %w", op, err)
	}

	c.log.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("Backend call")

	if resp.StatusCode == http.StatusNotFound {
		return false, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, &StatusError{Op: op, Status: resp.StatusCode, Body: string(data)}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte("false")) {
		return true, nil
	}
	if out == nil {
		return false, nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return false, fmt.Errorf("decode %s response: %w", op, err)
	}
	return false, nil
}

// Package client talks to the harp API server. Every call is a single
// request/response with no retries; failures come back as *NetworkError or
// *APIError.
package client

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

	"github.com/hackutd/harp-sub000/internal/pagination"
	"github.com/hackutd/harp-sub000/internal/storage"
)

// Client is the review repository used by the triage views.
// This abstraction allows for easy mocking in tests.
type Client interface {
	// ListPendingReviews returns the caller's undecided reviews.
	ListPendingReviews(ctx context.Context) ([]storage.Review, error)

	// ListCompletedReviews returns the caller's decided reviews.
	ListCompletedReviews(ctx context.Context) ([]storage.Review, error)

	// SubmitVote decides a review. It is the only mutating call.
	SubmitVote(ctx context.Context, reviewID string, p storage.VotePayload) (*storage.Review, error)

	// FetchPeerNotes returns the notes reviewers left on an application.
	FetchPeerNotes(ctx context.Context, applicationID string) ([]storage.ReviewNote, error)

	// FetchApplication returns the full applicant record.
	FetchApplication(ctx context.Context, applicationID string) (*storage.Application, error)

	// ListApplications returns one page of the applications list.
	ListApplications(ctx context.Context, req pagination.Request) (pagination.Page[storage.ApplicationListItem], error)

	// ApplicationStats returns application counts per status.
	ApplicationStats(ctx context.Context) (*storage.ApplicationStats, error)

	// NextReview asks the server to assign one more application.
	NextReview(ctx context.Context) (*storage.Review, error)
}

// DefaultTimeout bounds each request.
const DefaultTimeout = 10 * time.Second

// NetworkError means the request never produced a usable response: the
// transport failed or the body could not be decoded.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response. Message is the server's error text.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return e.Message
}

// IsConflict reports whether err is a 409 from the server.
func IsConflict(err error) bool { return hasStatus(err, http.StatusConflict) }

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

func hasStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// HTTPClient is the default HTTP-based implementation of Client
type HTTPClient struct {
	addr       string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the server at addr ("http://host:port").
func NewHTTPClient(addr, token string) *HTTPClient {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &HTTPClient{
		addr:       strings.TrimRight(addr, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// Addr returns the server base URL.
func (c *HTTPClient) Addr() string {
	return c.addr
}

func (c *HTTPClient) ListPendingReviews(ctx context.Context) ([]storage.Review, error) {
	var resp struct {
		Reviews []storage.Review `json:"reviews"`
	}
	if err := c.do(ctx, "list pending reviews", http.MethodGet, "/api/reviews/pending", nil, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Reviews), nil
}

func (c *HTTPClient) ListCompletedReviews(ctx context.Context) ([]storage.Review, error) {
	var resp struct {
		Reviews []storage.Review `json:"reviews"`
	}
	if err := c.do(ctx, "list completed reviews", http.MethodGet, "/api/reviews/completed", nil, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Reviews), nil
}

func (c *HTTPClient) SubmitVote(ctx context.Context, reviewID string, p storage.VotePayload) (*storage.Review, error) {
	var resp struct {
		Review storage.Review `json:"review"`
	}
	path := "/api/reviews/" + url.PathEscape(reviewID)
	if err := c.do(ctx, "submit vote", http.MethodPut, path, p, &resp); err != nil {
		return nil, err
	}
	return &resp.Review, nil
}

func (c *HTTPClient) FetchPeerNotes(ctx context.Context, applicationID string) ([]storage.ReviewNote, error) {
	var resp struct {
		Notes []storage.ReviewNote `json:"notes"`
	}
	path := "/api/applications/" + url.PathEscape(applicationID) + "/notes"
	if err := c.do(ctx, "fetch notes", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return nonNil(resp.Notes), nil
}

func (c *HTTPClient) FetchApplication(ctx context.Context, applicationID string) (*storage.Application, error) {
	var app storage.Application
	path := "/api/applications/" + url.PathEscape(applicationID)
	if err := c.do(ctx, "fetch application", http.MethodGet, path, nil, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *HTTPClient) ListApplications(ctx context.Context, req pagination.Request) (pagination.Page[storage.ApplicationListItem], error) {
	var resp storage.ApplicationListResult
	path := "/api/applications"
	if q := req.Values().Encode(); q != "" {
		path += "?" + q
	}
	if err := c.do(ctx, "list applications", http.MethodGet, path, nil, &resp); err != nil {
		return pagination.Page[storage.ApplicationListItem]{}, err
	}
	return resp.Page(), nil
}

func (c *HTTPClient) ApplicationStats(ctx context.Context) (*storage.ApplicationStats, error) {
	var stats storage.ApplicationStats
	if err := c.do(ctx, "application stats", http.MethodGet, "/api/applications/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *HTTPClient) NextReview(ctx context.Context) (*storage.Review, error) {
	var resp struct {
		Review storage.Review `json:"review"`
	}
	if err := c.do(ctx, "next review", http.MethodGet, "/api/reviews/next", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Review, nil
}

// Health returns the server's health report.
func (c *HTTPClient) Health(ctx context.Context) (map[string]string, error) {
	var resp map[string]string
	if err := c.do(ctx, "health", http.MethodGet, "/api/health", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.addr+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Callers distinguish cancellation from network failure.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

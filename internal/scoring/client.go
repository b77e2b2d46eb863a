// Package scoring calls the external ML scoring service. Every job gets
// exactly one attempt; retries are deliberately absent.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Sentinel errors for scoring service failures.
var (
	ErrScoringUnavailable = errors.New("scoring service unreachable")
	ErrScoringTimeout     = errors.New("scoring call timeout")
	ErrScoringRejected    = errors.New("scoring service rejected request")
	ErrInvalidResponse    = errors.New("scoring service returned invalid response")
)

// Client is the interface for the scoring service. One method per ingestion
// mode; all three return the same result shape.
type Client interface {
	AnalyzeWords(ctx context.Context, req WordsRequest) (*Result, error)
	AnalyzeBlob(ctx context.Context, req BlobRequest) (*Result, error)
	AnalyzeDrive(ctx context.Context, req DriveRequest) (*Result, error)
}

// WordsRequest carries locally extracted, tokenized text.
type WordsRequest struct {
	Filename    string   `json:"filename"`
	Words       []string `json:"words"`
	Description string   `json:"description"`
}

// BlobRequest points the scorer at a presigned blob URL.
type BlobRequest struct {
	Filename    string `json:"filename"`
	FileURL     string `json:"file_url"`
	Description string `json:"description"`
}

// DriveRequest lets the scorer fetch a Drive file itself using the caller's
// delegated token.
type DriveRequest struct {
	FileID      string `json:"file_id"`
	GoogleToken string `json:"google_token"`
	Filename    string `json:"filename"`
	MIMEType    string `json:"mime_type"`
	Description string `json:"description"`
}

// Result is the scoring response. Absent fields keep their zero values.
type Result struct {
	MatchScore float64        `json:"match_score"`
	Details    map[string]any `json:"analysis_details"`
}

// HTTPClient implements Client over the scoring service's HTTP API.
type HTTPClient struct {
	baseURL       string
	uploadTimeout time.Duration
	driveTimeout  time.Duration
	client        *http.Client
}

// NewHTTPClient creates a scoring client. driveTimeout should exceed
// uploadTimeout since Drive calls combine fetch and analysis on the far side.
func NewHTTPClient(baseURL string, uploadTimeout, driveTimeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:       baseURL,
		uploadTimeout: uploadTimeout,
		driveTimeout:  driveTimeout,
		client:        &http.Client{},
	}
}

func (c *HTTPClient) AnalyzeWords(ctx context.Context, req WordsRequest) (*Result, error) {
	return c.post(ctx, "/analyze", req, c.uploadTimeout)
}

func (c *HTTPClient) AnalyzeBlob(ctx context.Context, req BlobRequest) (*Result, error) {
	return c.post(ctx, "/analyze-s3", req, c.uploadTimeout)
}

func (c *HTTPClient) AnalyzeDrive(ctx context.Context, req DriveRequest) (*Result, error) {
	return c.post(ctx, "/analyze-drive", req, c.driveTimeout)
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any, timeout time.Duration) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrScoringRejected, resp.StatusCode, detail)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if result.Details == nil {
		result.Details = map[string]any{}
	}
	return &result, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrScoringTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrScoringTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
	}

	return fmt.Errorf("%w: %v", ErrScoringUnavailable, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

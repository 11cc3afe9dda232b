// Package detect calls the external table-detection model: one page
// raster plus its word tokens in, zero or more CSV tables out.
package detect

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tablewise/pdf-tables/internal/domain"
	"github.com/tablewise/pdf-tables/internal/observability"
)

const defaultTimeout = 120 * time.Second

// Client talks to the table-detection inference endpoint. It implements
// domain.Detector.
type Client struct {
	endpoint   string
	httpClient *http.Client
	retry      *RetryConfig
	log        *observability.Logger
}

// request is the detection request payload. The raster travels as a
// base64 data URL so the endpoint never needs filesystem access.
type request struct {
	Page     int            `json:"page"`
	ImageURL string         `json:"image_url"`
	Words    []domain.Token `json:"words"`
}

// response is the detection response payload.
type response struct {
	Tables []responseTable `json:"tables"`
}

type responseTable struct {
	CSV string `json:"csv"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryConfig overrides the retry behavior.
func WithRetryConfig(rc *RetryConfig) Option {
	return func(c *Client) { c.retry = rc }
}

// NewClient creates a detection client for the given endpoint URL.
func NewClient(endpoint string, log *observability.Logger, opts ...Option) *Client {
	if log == nil {
		log = observability.Nop()
	}
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retry:      DefaultRetryConfig(),
		log:        log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Detect sends the page's raster and tokens to the model and returns
// the CSV text of every table it found. A page with no tables returns
// an empty slice and no error.
func (c *Client) Detect(ctx context.Context, artifact domain.PageArtifact) ([]domain.DetectedTable, error) {
	imageData, err := os.ReadFile(artifact.ImagePath)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to read page image %s", artifact.ImagePath), err)
	}

	payload := request{
		Page:     artifact.PageNumber(),
		ImageURL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageData),
		Words:    artifact.Tokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.DetectionError("failed to marshal detection request", err)
	}

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, domain.DetectionError(
			fmt.Sprintf("detection endpoint returned HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(msg)), nil)
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, domain.DetectionError("failed to decode detection response", err)
	}

	tables := make([]domain.DetectedTable, 0, len(parsed.Tables))
	for _, t := range parsed.Tables {
		if t.CSV == "" {
			continue
		}
		tables = append(tables, domain.DetectedTable{CSV: t.CSV})
	}

	c.log.Debug().
		Int("page", artifact.PageNumber()).
		Int("tables", len(tables)).
		Msg("table detection complete")

	return tables, nil
}

// Package extractor is the public entry point for the table extraction
// library: open a PDF, classify and process its pages, run table
// detection, and merge cross-page table fragments.
package extractor

import (
	"context"
	"os"

	"github.com/tablewise/pdf-tables/internal/config"
	"github.com/tablewise/pdf-tables/internal/detect"
	"github.com/tablewise/pdf-tables/internal/domain"
	"github.com/tablewise/pdf-tables/internal/extract"
	"github.com/tablewise/pdf-tables/internal/observability"
	"github.com/tablewise/pdf-tables/internal/ocr"
)

// Re-export event and result types for the public API.
type (
	StreamEvent     = domain.StreamEvent
	EventType       = domain.EventType
	PageResult      = domain.PageResult
	MergedTable     = domain.MergedTable
	ProcessingStats = domain.ProcessingStats
	Result          = extract.Result
)

// Event type constants.
const (
	EventStart          = domain.EventStart
	EventPageProcessing = domain.EventPageProcessing
	EventPageComplete   = domain.EventPageComplete
	EventDetecting      = domain.EventDetecting
	EventError          = domain.EventError
	EventComplete       = domain.EventComplete
)

// Client is the main entry point for the table extraction library.
type Client struct {
	service *extract.Service
	cfg     *config.Config
	log     *observability.Logger
}

// Config holds client configuration options.
type Config struct {
	// ModelURL is the table-detection inference endpoint. Required.
	ModelURL string

	// OCRLanguage selects the single Tesseract language. Defaults to eng.
	OCRLanguage string

	// Workers bounds parallel page processing. Defaults to 1.
	Workers int

	// OutputDir receives page rasters and token sidecars. Defaults to
	// the working directory.
	OutputDir string

	// Logger overrides the default logger.
	Logger *observability.Logger
}

// NewClient creates a client configured from the environment
// (TABLE_MODEL_URL, OCR_LANGUAGE, PIPELINE_WORKERS, OUTPUT_DIR).
func NewClient() (*Client, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, err
	}
	return NewClientWithConfig(&Config{
		ModelURL:    cfg.ModelURL,
		OCRLanguage: cfg.OCRLanguage,
		Workers:     cfg.Workers,
		OutputDir:   cfg.OutputDir,
	})
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(c *Config) (*Client, error) {
	cfg := config.Default()
	cfg.ModelURL = c.ModelURL
	if c.OCRLanguage != "" {
		cfg.OCRLanguage = c.OCRLanguage
	}
	if c.Workers > 0 {
		cfg.Workers = c.Workers
	}
	if c.OutputDir != "" {
		cfg.OutputDir = c.OutputDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := c.Logger
	if log == nil {
		log = observability.DefaultLogger()
	}

	service := extract.NewService(extract.Options{
		Detector: detect.NewClient(cfg.ModelURL, log),
		NewRecognizer: func() (domain.Recognizer, error) {
			return ocr.NewExtractor(cfg.OCRLanguage, log)
		},
		OutputDir: cfg.OutputDir,
		Workers:   cfg.Workers,
		Log:       log,
	})

	return &Client{service: service, cfg: cfg, log: log}, nil
}

// Process extracts tables from a PDF file asynchronously. Events stream
// on the returned channel as extraction progresses; the final Result
// arrives on the result channel once the event channel closes. Failures
// surface both as an error event and on the result channel.
func (c *Client) Process(ctx context.Context, pdfPath string) (<-chan StreamEvent, <-chan ProcessOutcome, error) {
	if _, err := os.Stat(pdfPath); os.IsNotExist(err) {
		return nil, nil, domain.ValidationError("PDF file not found", err)
	}

	eventCh := make(chan StreamEvent, 100)
	resultCh := make(chan ProcessOutcome, 1)

	go func() {
		defer close(eventCh)
		defer close(resultCh)
		result, err := c.service.Process(ctx, pdfPath, eventCh)
		resultCh <- ProcessOutcome{Result: result, Err: err}
	}()

	return eventCh, resultCh, nil
}

// Extract runs the whole pipeline synchronously and returns the result.
func (c *Client) Extract(ctx context.Context, pdfPath string) (*Result, error) {
	return c.service.Process(ctx, pdfPath, nil)
}

// ExtractWithEvents runs the pipeline synchronously while streaming
// progress into the caller's channel. The channel is not closed.
func (c *Client) ExtractWithEvents(ctx context.Context, pdfPath string, events chan<- StreamEvent) (*Result, error) {
	return c.service.Process(ctx, pdfPath, events)
}

// ProcessOutcome carries the terminal state of an asynchronous run.
type ProcessOutcome struct {
	Result *Result
	Err    error
}

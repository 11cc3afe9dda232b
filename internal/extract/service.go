// Package extract orchestrates the page pipeline: classify each page,
// render it, extract word tokens natively or via OCR, persist the
// page artifacts, then run table detection and cross-page merging.
package extract

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tablewise/pdf-tables/internal/domain"
	"github.com/tablewise/pdf-tables/internal/observability"
	"github.com/tablewise/pdf-tables/internal/pdf"
	"github.com/tablewise/pdf-tables/internal/tables"
)

// Options configures a Service.
type Options struct {
	// Classify decides extraction mode and render scale per page.
	// Defaults to pdf.Classify.
	Classify domain.ClassifyFunc

	// Detector finds tables on page artifacts.
	Detector domain.Detector

	// NewRecognizer builds one OCR engine. Engines are not safe for
	// concurrent use, so the service creates up to Workers of them.
	NewRecognizer func() (domain.Recognizer, error)

	// OpenDocument opens a PDF. Defaults to the go-fitz backed reader.
	OpenDocument func(path string) (domain.Document, error)

	// OutputDir receives page rasters and token sidecars.
	OutputDir string

	// Workers bounds page-level parallelism. Defaults to 1.
	Workers int

	Merger *tables.Merger
	Log    *observability.Logger
}

// Service runs the end-to-end extraction workflow for one document.
type Service struct {
	classify      domain.ClassifyFunc
	detector      domain.Detector
	newRecognizer func() (domain.Recognizer, error)
	open          func(path string) (domain.Document, error)
	merger        *tables.Merger
	outputDir     string
	workers       int
	log           *observability.Logger

	// The rasterizer handle is not safe for concurrent use. Rendering is
	// serialized; OCR, which dominates runtime, still runs in parallel.
	renderMu sync.Mutex
}

// Result is the outcome of processing one document.
type Result struct {
	Pages     []domain.PageResult
	Fragments []domain.Fragment
	Tables    []domain.MergedTable
	Stats     domain.ProcessingStats
}

// NewService creates an extraction service.
func NewService(opts Options) *Service {
	if opts.Classify == nil {
		opts.Classify = pdf.Classify
	}
	if opts.Log == nil {
		opts.Log = observability.Nop()
	}
	if opts.OpenDocument == nil {
		log := opts.Log
		opts.OpenDocument = func(path string) (domain.Document, error) {
			return pdf.Open(path, log)
		}
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Merger == nil {
		opts.Merger = tables.NewMerger(opts.Log)
	}
	return &Service{
		classify:      opts.Classify,
		detector:      opts.Detector,
		newRecognizer: opts.NewRecognizer,
		open:          opts.OpenDocument,
		merger:        opts.Merger,
		outputDir:     opts.OutputDir,
		workers:       opts.Workers,
		log:           opts.Log.WithOperation("extract"),
	}
}

// Process handles the complete workflow for one PDF. Page failures
// degrade that page only; the document keeps going. The returned error
// is non-nil only for failures that stop the whole run.
func (s *Service) Process(ctx context.Context, pdfPath string, eventCh chan<- domain.StreamEvent) (*Result, error) {
	startTime := time.Now()
	runID := uuid.NewString()
	log := s.log.WithRunID(runID)

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventStart,
		Payload:   fmt.Sprintf("Starting extraction of %s", pdfPath),
		Timestamp: time.Now(),
	})

	doc, err := s.open(pdfPath)
	if err != nil {
		s.emitError(eventCh, err)
		return nil, err
	}
	defer doc.Close()

	log.Info().Str("pdf", pdfPath).Int("pages", doc.PageCount()).Msg("document opened")

	pages, err := s.processPages(ctx, doc, eventCh)
	if err != nil {
		s.emitError(eventCh, err)
		return nil, err
	}

	// Token-level degradation is survivable: the raster still goes to
	// detection. Only a document where no page produced a raster at all
	// is a failed run.
	noRaster := 0
	for _, p := range pages {
		if p.Artifact.ImagePath == "" {
			noRaster++
		}
	}
	if len(pages) > 0 && noRaster == len(pages) {
		err := domain.RenderError("all pages failed to process", nil)
		s.emitError(eventCh, err)
		return nil, err
	}

	fragments, err := s.detectTables(ctx, pages, eventCh)
	if err != nil {
		s.emitError(eventCh, err)
		return nil, err
	}

	merged := s.merger.Merge(fragments)

	stats := buildStats(runID, time.Since(startTime), pages, len(fragments), len(merged))

	// A document with no tables is a valid empty result.
	if stats.TablesFound == 0 {
		log.Warn().Msg("no tables detected in document")
	}

	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventComplete,
		Payload:   stats,
		Timestamp: time.Now(),
	})

	log.Info().
		Int("pages", stats.PagesProcessed).
		Int("degraded", stats.DegradedPages).
		Int("tables_found", stats.TablesFound).
		Int("tables_merged", stats.TablesMerged).
		Dur("total", stats.TotalTime).
		Msg("extraction complete")

	return &Result{Pages: pages, Fragments: fragments, Tables: merged, Stats: stats}, nil
}

// processPage produces one page's artifact. The returned result always
// carries the page index; Err records any degradation.
func (s *Service) processPage(doc domain.Document, i int, pool *recognizerPool) domain.PageResult {
	artifact := domain.PageArtifact{PageIndex: i}

	info, err := doc.Page(i)
	if err != nil {
		return domain.PageResult{Artifact: artifact, Err: err}
	}

	decision := s.classify(info)
	artifact.Mode = decision.Mode

	s.renderMu.Lock()
	img, err := doc.Render(i, decision.Scale)
	s.renderMu.Unlock()
	if err != nil {
		return domain.PageResult{Artifact: artifact, Err: err}
	}

	// Token extraction failures degrade to an empty list; the rendered
	// page still goes to detection, which can work from pixels alone.
	var tokens []domain.Token
	var pageErr error
	if decision.Mode.RequiresOCR() {
		tokens, pageErr = s.recognize(img, pool)
	} else {
		s.renderMu.Lock()
		tokens, pageErr = doc.NativeTokens(i, decision.Scale)
		s.renderMu.Unlock()
	}
	if pageErr != nil {
		s.log.Warn().Int("page", i+1).Err(pageErr).Msg("token extraction degraded to empty list")
		tokens = nil
	}

	domain.FillTokenMetadata(tokens)

	imagePath, tokenPath, err := writeArtifacts(s.outputDir, i+1, img, tokens)
	if err != nil {
		return domain.PageResult{Artifact: artifact, Err: err}
	}

	artifact.ImagePath = imagePath
	artifact.TokenPath = tokenPath
	artifact.Tokens = tokens
	return domain.PageResult{Artifact: artifact, Err: pageErr}
}

func (s *Service) recognize(img image.Image, pool *recognizerPool) ([]domain.Token, error) {
	rec, err := pool.get()
	if err != nil {
		return nil, err
	}
	defer pool.put(rec)
	return rec.Recognize(img)
}

// detectTables runs the detection model over every page that produced a
// raster. A page's detection failure drops that page's tables only.
func (s *Service) detectTables(ctx context.Context, pages []domain.PageResult, eventCh chan<- domain.StreamEvent) ([]domain.Fragment, error) {
	if s.detector == nil {
		return nil, nil
	}

	var fragments []domain.Fragment
	for _, p := range pages {
		if p.Artifact.ImagePath == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := p.Artifact.PageNumber()
		s.emitEvent(eventCh, domain.StreamEvent{
			Type:       domain.EventDetecting,
			PageNumber: page,
			Payload:    fmt.Sprintf("Detecting tables on page %d", page),
			Timestamp:  time.Now(),
		})

		detected, err := s.detector.Detect(ctx, p.Artifact)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			s.log.Error().Int("page", page).Err(err).Msg("table detection failed, skipping page")
			s.emitError(eventCh, fmt.Errorf("page %d: %w", page, err))
			continue
		}

		for ti, table := range detected {
			fragments = append(fragments, domain.Fragment{
				Filename: tables.FragmentName(page, ti+1),
				CSV:      table.CSV,
			})
		}
	}
	return fragments, nil
}

func buildStats(runID string, total time.Duration, pages []domain.PageResult, found, merged int) domain.ProcessingStats {
	stats := domain.ProcessingStats{
		RunID:          runID,
		TotalTime:      total,
		PagesProcessed: len(pages),
		TablesFound:    found,
		TablesMerged:   merged,
	}
	for _, p := range pages {
		if p.Degraded() {
			stats.DegradedPages++
		}
		if p.Artifact.Mode.RequiresOCR() {
			stats.OCRPages++
		} else if p.Artifact.Mode == domain.ModeNative {
			stats.NativePages++
		}
	}
	return stats
}

// emitEvent safely emits an event; a full channel drops the event
// instead of blocking the pipeline.
func (s *Service) emitEvent(eventCh chan<- domain.StreamEvent, event domain.StreamEvent) {
	if eventCh == nil {
		return
	}
	select {
	case eventCh <- event:
	default:
		s.log.Warn().Str("event", string(event.Type)).Msg("event channel full, dropping event")
	}
}

func (s *Service) emitError(eventCh chan<- domain.StreamEvent, err error) {
	s.emitEvent(eventCh, domain.StreamEvent{
		Type:      domain.EventError,
		Payload:   err.Error(),
		Timestamp: time.Now(),
	})
}

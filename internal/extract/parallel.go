package extract

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tablewise/pdf-tables/internal/domain"
)

// processPages runs the per-page pipeline over the whole document with
// at most s.workers pages in flight. Results land in document order
// regardless of completion order. Page failures are recorded in their
// slot, never propagated; only cancellation aborts the sweep.
func (s *Service) processPages(ctx context.Context, doc domain.Document, eventCh chan<- domain.StreamEvent) ([]domain.PageResult, error) {
	n := doc.PageCount()
	results := make([]domain.PageResult, n)

	pool := newRecognizerPool(s.newRecognizer, s.workers)
	defer pool.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			s.emitEvent(eventCh, domain.StreamEvent{
				Type:       domain.EventPageProcessing,
				PageNumber: i + 1,
				Payload:    fmt.Sprintf("Processing page %d", i+1),
				Timestamp:  time.Now(),
			})

			results[i] = s.processPage(doc, i, pool)

			if err := results[i].Err; err != nil {
				s.log.Warn().Int("page", i+1).Err(err).Msg("page degraded")
				s.emitError(eventCh, fmt.Errorf("page %d: %w", i+1, err))
			}
			s.emitEvent(eventCh, domain.StreamEvent{
				Type:       domain.EventPageComplete,
				PageNumber: i + 1,
				Payload:    fmt.Sprintf("Completed page %d (%s)", i+1, results[i].Artifact.Mode),
				Timestamp:  time.Now(),
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// recognizerPool lazily builds up to size OCR engines and hands them
// out one per in-flight page. An idle engine is always preferred over
// building a new one; a document with no OCR pages never builds any.
type recognizerPool struct {
	factory func() (domain.Recognizer, error)
	sem     chan struct{} // caps engines handed out at once

	mu   sync.Mutex
	idle []domain.Recognizer
}

func newRecognizerPool(factory func() (domain.Recognizer, error), size int) *recognizerPool {
	return &recognizerPool{
		factory: factory,
		sem:     make(chan struct{}, size),
	}
}

func (p *recognizerPool) get() (domain.Recognizer, error) {
	p.sem <- struct{}{}

	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		rec := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return rec, nil
	}
	p.mu.Unlock()

	if p.factory == nil {
		<-p.sem
		return nil, domain.OCRError("no OCR engine configured", nil)
	}
	rec, err := p.factory()
	if err != nil {
		<-p.sem
		return nil, domain.OCRError("failed to initialize OCR engine", err)
	}
	return rec, nil
}

func (p *recognizerPool) put(rec domain.Recognizer) {
	p.mu.Lock()
	p.idle = append(p.idle, rec)
	p.mu.Unlock()
	<-p.sem
}

// Close releases every engine the pool built. Call only after all
// borrowed engines have been returned.
func (p *recognizerPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var first error
	for _, rec := range p.idle {
		if err := rec.Close(); err != nil && first == nil {
			first = err
		}
	}
	p.idle = nil
	return first
}

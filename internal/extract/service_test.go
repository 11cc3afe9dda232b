package extract

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tablewise/pdf-tables/internal/domain"
	"github.com/tablewise/pdf-tables/internal/observability"
)

var longText = strings.Repeat("lorem ipsum ", 20)

type fakePage struct {
	info      domain.PageInfo
	infoErr   error
	renderErr error
	tokens    []domain.Token
	tokensErr error
}

type fakeDocument struct {
	pages  []fakePage
	closed bool
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) Page(i int) (domain.PageInfo, error) {
	return d.pages[i].info, d.pages[i].infoErr
}

func (d *fakeDocument) Render(i int, scale float64) (image.Image, error) {
	if err := d.pages[i].renderErr; err != nil {
		return nil, err
	}
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

func (d *fakeDocument) NativeTokens(i int, scale float64) ([]domain.Token, error) {
	return d.pages[i].tokens, d.pages[i].tokensErr
}

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

type fakeRecognizer struct {
	tokens []domain.Token
	err    error
	closed bool
}

func (r *fakeRecognizer) Recognize(img image.Image) ([]domain.Token, error) {
	return r.tokens, r.err
}

func (r *fakeRecognizer) Close() error {
	r.closed = true
	return nil
}

// fakeDetector returns per-page canned CSV tables keyed by 1-based page
// number.
type fakeDetector struct {
	tables map[int][]string
	errs   map[int]error
	seen   []domain.PageArtifact
}

func (d *fakeDetector) Detect(ctx context.Context, artifact domain.PageArtifact) ([]domain.DetectedTable, error) {
	d.seen = append(d.seen, artifact)
	page := artifact.PageNumber()
	if err := d.errs[page]; err != nil {
		return nil, err
	}
	var out []domain.DetectedTable
	for _, csv := range d.tables[page] {
		out = append(out, domain.DetectedTable{CSV: csv})
	}
	return out, nil
}

func newTestService(t *testing.T, doc *fakeDocument, rec *fakeRecognizer, det *fakeDetector) *Service {
	t.Helper()
	opts := Options{
		OutputDir: t.TempDir(),
		Log:       observability.Nop(),
		OpenDocument: func(string) (domain.Document, error) {
			return doc, nil
		},
	}
	if rec != nil {
		opts.NewRecognizer = func() (domain.Recognizer, error) { return rec, nil }
	}
	if det != nil {
		opts.Detector = det
	}
	return NewService(opts)
}

func nativePage(tokens ...domain.Token) fakePage {
	return fakePage{
		info:   domain.PageInfo{Text: longText, ImageCount: 0, Width: 612, Height: 792},
		tokens: tokens,
	}
}

func scannedPage() fakePage {
	return fakePage{info: domain.PageInfo{Text: "", ImageCount: 1, Width: 612, Height: 792}}
}

func TestProcess_TwoPageDocument(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		nativePage(domain.Token{Text: "Revenue", BBox: domain.BBox{1, 2, 30, 12}}),
		scannedPage(),
	}}
	rec := &fakeRecognizer{tokens: []domain.Token{
		{Text: "Total", BBox: domain.BBox{5, 5, 40, 15}},
		{Text: "42", BBox: domain.BBox{50, 5, 70, 15}},
	}}
	det := &fakeDetector{tables: map[int][]string{
		1: {"A,B\n1,2\n"},
		2: {"A,B\n3,4\n"},
	}}

	svc := newTestService(t, doc, rec, det)
	result, err := svc.Process(context.Background(), "doc.pdf", nil)

	require.NoError(t, err)
	require.Len(t, result.Pages, 2)
	assert.True(t, doc.closed)

	first, second := result.Pages[0], result.Pages[1]
	assert.Equal(t, domain.ModeNative, first.Artifact.Mode)
	assert.Equal(t, domain.ModeOCRScanned, second.Artifact.Mode)
	assert.False(t, first.Degraded())
	assert.False(t, second.Degraded())

	// One raster and one token sidecar per page, named by 1-based ordinal.
	assert.Equal(t, "page_001.jpg", filepath.Base(first.Artifact.ImagePath))
	assert.Equal(t, "page_002_words.json", filepath.Base(second.Artifact.TokenPath))
	for _, p := range result.Pages {
		assert.FileExists(t, p.Artifact.ImagePath)
		assert.FileExists(t, p.Artifact.TokenPath)
	}

	// Consecutive pages with identical headers collapse into one table.
	require.Len(t, result.Fragments, 2)
	assert.Equal(t, "Page_01_Table_01.csv", result.Fragments[0].Filename)
	require.Len(t, result.Tables, 1)
	assert.Equal(t, "Page_01_Table_01.csv", result.Tables[0].Filename)
	assert.Equal(t, "A,B\n1,2\n3,4\n", result.Tables[0].CSV)

	stats := result.Stats
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, 2, stats.PagesProcessed)
	assert.Equal(t, 1, stats.NativePages)
	assert.Equal(t, 1, stats.OCRPages)
	assert.Equal(t, 0, stats.DegradedPages)
	assert.Equal(t, 2, stats.TablesFound)
	assert.Equal(t, 1, stats.TablesMerged)
}

func TestProcess_TokenSidecarShape(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		nativePage(
			domain.Token{Text: "a", BBox: domain.BBox{0, 0, 5, 5}},
			domain.Token{Text: "b", BBox: domain.BBox{6, 0, 11, 5}},
		),
	}}

	svc := newTestService(t, doc, nil, nil)
	result, err := svc.Process(context.Background(), "doc.pdf", nil)
	require.NoError(t, err)

	data, err := os.ReadFile(result.Pages[0].Artifact.TokenPath)
	require.NoError(t, err)

	var sidecar struct {
		Words []domain.Token `json:"words"`
	}
	require.NoError(t, json.Unmarshal(data, &sidecar))
	require.Len(t, sidecar.Words, 2)
	assert.Equal(t, 0, sidecar.Words[0].SpanNum)
	assert.Equal(t, 1, sidecar.Words[1].SpanNum, "span numbers follow token order")
}

func TestProcess_PageFailureIsIsolated(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		nativePage(domain.Token{Text: "ok", BBox: domain.BBox{0, 0, 5, 5}}),
		{info: domain.PageInfo{Text: longText}, renderErr: domain.RenderError("mupdf exploded", nil)},
		nativePage(domain.Token{Text: "also ok", BBox: domain.BBox{0, 0, 5, 5}}),
	}}
	det := &fakeDetector{tables: map[int][]string{}}

	svc := newTestService(t, doc, nil, det)
	result, err := svc.Process(context.Background(), "doc.pdf", nil)

	require.NoError(t, err, "one bad page never fails the document")
	assert.False(t, result.Pages[0].Degraded())
	assert.True(t, result.Pages[1].Degraded())
	assert.False(t, result.Pages[2].Degraded())
	assert.Equal(t, 1, result.Stats.DegradedPages)

	// The failed page produced no raster, so detection skips it.
	require.Len(t, det.seen, 2)
	assert.Equal(t, 1, det.seen[0].PageNumber())
	assert.Equal(t, 3, det.seen[1].PageNumber())
}

func TestProcess_OCRFailureDegradesToEmptyTokens(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{scannedPage()}}
	rec := &fakeRecognizer{err: domain.OCRError("tesseract crashed", nil)}
	det := &fakeDetector{}

	svc := newTestService(t, doc, rec, det)
	result, err := svc.Process(context.Background(), "doc.pdf", nil)

	require.NoError(t, err)
	page := result.Pages[0]
	assert.True(t, page.Degraded())
	assert.Empty(t, page.Artifact.Tokens)

	// The raster still exists and still goes to detection.
	assert.FileExists(t, page.Artifact.ImagePath)
	require.Len(t, det.seen, 1)

	data, err := os.ReadFile(page.Artifact.TokenPath)
	require.NoError(t, err)
	assert.JSONEq(t, `{"words":[]}`, string(data))
}

func TestProcess_EveryPageTokenDegradedStillSucceeds(t *testing.T) {
	// Token extraction failing on every single page is survivable: each
	// raster still exists and still goes to detection.
	doc := &fakeDocument{pages: []fakePage{scannedPage(), scannedPage()}}
	rec := &fakeRecognizer{err: domain.OCRError("tesseract crashed", nil)}
	det := &fakeDetector{tables: map[int][]string{1: {"A,B\n1,2\n"}}}

	svc := newTestService(t, doc, rec, det)
	result, err := svc.Process(context.Background(), "doc.pdf", nil)

	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.DegradedPages)
	require.Len(t, det.seen, 2)
	require.Len(t, result.Tables, 1)
}

func TestProcess_AllPagesFailed(t *testing.T) {
	boom := domain.RenderError("render failed", nil)
	doc := &fakeDocument{pages: []fakePage{
		{info: domain.PageInfo{Text: longText}, renderErr: boom},
		{info: domain.PageInfo{Text: longText}, renderErr: boom},
	}}

	svc := newTestService(t, doc, nil, nil)
	_, err := svc.Process(context.Background(), "doc.pdf", nil)

	require.Error(t, err)
	var de *domain.DomainError
	require.True(t, errors.As(err, &de))
}

func TestProcess_DetectionFailureSkipsPage(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{
		nativePage(), nativePage(),
	}}
	det := &fakeDetector{
		tables: map[int][]string{2: {"A,B\n1,2\n"}},
		errs:   map[int]error{1: domain.DetectionError("model unavailable", nil)},
	}

	svc := newTestService(t, doc, nil, det)
	result, err := svc.Process(context.Background(), "doc.pdf", nil)

	require.NoError(t, err)
	require.Len(t, result.Fragments, 1)
	assert.Equal(t, "Page_02_Table_01.csv", result.Fragments[0].Filename)
}

func TestProcess_ContextCancellation(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{nativePage(), nativePage()}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTestService(t, doc, nil, nil)
	_, err := svc.Process(ctx, "doc.pdf", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess_EmitsLifecycleEvents(t *testing.T) {
	doc := &fakeDocument{pages: []fakePage{nativePage()}}
	det := &fakeDetector{}
	events := make(chan domain.StreamEvent, 64)

	svc := newTestService(t, doc, nil, det)
	_, err := svc.Process(context.Background(), "doc.pdf", events)
	require.NoError(t, err)
	close(events)

	var types []domain.EventType
	var last domain.StreamEvent
	for ev := range events {
		types = append(types, ev.Type)
		last = ev
	}
	stats, ok := last.Payload.(domain.ProcessingStats)
	require.True(t, ok, "the complete event carries the run stats")
	assert.Equal(t, 1, stats.PagesProcessed)
	assert.Equal(t, []domain.EventType{
		domain.EventStart,
		domain.EventPageProcessing,
		domain.EventPageComplete,
		domain.EventDetecting,
		domain.EventComplete,
	}, types)
}

func TestProcess_OpenFailure(t *testing.T) {
	svc := NewService(Options{
		Log:       observability.Nop(),
		OutputDir: t.TempDir(),
		OpenDocument: func(string) (domain.Document, error) {
			return nil, domain.ValidationError("no such file", nil)
		},
	})

	events := make(chan domain.StreamEvent, 4)
	_, err := svc.Process(context.Background(), "missing.pdf", events)

	require.Error(t, err)
	close(events)
	<-events // start event
	assert.Equal(t, domain.EventError, (<-events).Type)
}

func TestProcess_ParallelWorkersKeepPageOrder(t *testing.T) {
	var pages []fakePage
	for i := 0; i < 12; i++ {
		pages = append(pages, nativePage(domain.Token{Text: "w", BBox: domain.BBox{0, 0, 5, 5}}))
	}
	doc := &fakeDocument{pages: pages}

	svc := NewService(Options{
		OutputDir:    t.TempDir(),
		Workers:      4,
		Log:          observability.Nop(),
		OpenDocument: func(string) (domain.Document, error) { return doc, nil },
	})

	result, err := svc.Process(context.Background(), "doc.pdf", nil)
	require.NoError(t, err)
	require.Len(t, result.Pages, 12)
	for i, p := range result.Pages {
		assert.Equal(t, i, p.Artifact.PageIndex)
		assert.Equal(t, imageName(i+1), filepath.Base(p.Artifact.ImagePath))
	}
}

func TestRecognizerPool_ReusesAndCloses(t *testing.T) {
	created := 0
	rec := &fakeRecognizer{}
	pool := newRecognizerPool(func() (domain.Recognizer, error) {
		created++
		return rec, nil
	}, 2)

	r1, err := pool.get()
	require.NoError(t, err)
	pool.put(r1)

	r2, err := pool.get()
	require.NoError(t, err)
	pool.put(r2)

	assert.Equal(t, 1, created, "an idle engine is reused, not rebuilt")
	require.NoError(t, pool.Close())
	assert.True(t, rec.closed)
}

func TestRecognizerPool_CapsConcurrentEngines(t *testing.T) {
	created := 0
	pool := newRecognizerPool(func() (domain.Recognizer, error) {
		created++
		return &fakeRecognizer{}, nil
	}, 2)

	r1, err := pool.get()
	require.NoError(t, err)
	r2, err := pool.get()
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	pool.put(r1)
	pool.put(r2)

	// With both engines idle, further gets build nothing new.
	r3, err := pool.get()
	require.NoError(t, err)
	r4, err := pool.get()
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	pool.put(r3)
	pool.put(r4)
	require.NoError(t, pool.Close())
}

func TestRecognizerPool_NoFactory(t *testing.T) {
	pool := newRecognizerPool(nil, 1)
	_, err := pool.get()
	require.Error(t, err)

	// The slot is returned on failure, so the pool never deadlocks.
	_, err = pool.get()
	require.Error(t, err)
}

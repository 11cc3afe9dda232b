package domain

import (
	"time"
)

// PageMode identifies how a page's tokens were (or will be) extracted.
type PageMode string

const (
	// ModeNative extracts tokens from the PDF's embedded text layer.
	ModeNative PageMode = "native"
	// ModeOCRHybrid runs OCR on a text-rich page that also embeds images,
	// because an image could hide tabular content the text layer misses.
	ModeOCRHybrid PageMode = "ocr_hybrid"
	// ModeOCRScanned runs OCR on a page with little or no text layer.
	ModeOCRScanned PageMode = "ocr_scanned"
)

// RequiresOCR reports whether the mode runs the OCR engine.
func (m PageMode) RequiresOCR() bool {
	return m == ModeOCRHybrid || m == ModeOCRScanned
}

// RenderDecision is the classifier's verdict for a single page.
type RenderDecision struct {
	Mode  PageMode
	Scale float64 // raster zoom factor: 2.0 for small OCR pages, else 1.0
}

// BBox is an axis-aligned box in rendered-raster pixel space,
// top-left origin: [x0, y0, x1, y1] with x0 < x1 and y0 < y1.
type BBox [4]float64

// Valid reports whether the box is non-degenerate and non-negative.
func (b BBox) Valid() bool {
	return b[0] >= 0 && b[1] >= 0 && b[0] < b[2] && b[1] < b[3]
}

// Width returns x1 - x0.
func (b BBox) Width() float64 { return b[2] - b[0] }

// Height returns y1 - y0.
func (b BBox) Height() float64 { return b[3] - b[1] }

// Token is a single recognized word with its bounding box and the
// positional metadata the detection model expects.
type Token struct {
	Text     string  `json:"text"`
	BBox     BBox    `json:"bbox"`
	SpanNum  int     `json:"span_num"`
	LineNum  int     `json:"line_num"`
	BlockNum int     `json:"block_num"`
}

// FillTokenMetadata default-fills span/line/block numbers in place:
// span_num becomes the token's index, line_num and block_num stay zero.
// The detection model requires these fields to be present on every token.
func FillTokenMetadata(tokens []Token) {
	for i := range tokens {
		tokens[i].SpanNum = i
	}
}

// PageInfo summarizes the features the classifier inspects on a page.
type PageInfo struct {
	Text       string  // text-layer content, empty for scanned pages
	ImageCount int     // embedded raster images on the page
	Width      float64 // page width in points (width of a 1.0-scale raster)
	Height     float64 // page height in points
}

// PageArtifact is one page's rendered image plus its token list, the
// unit handed to the detection model.
type PageArtifact struct {
	PageIndex int     // 0-based page index in document order
	Mode      PageMode
	ImagePath string  // rendered raster (JPEG) on disk
	TokenPath string  // JSON sidecar holding {"words": [...]}
	Tokens    []Token
}

// PageNumber returns the 1-based page ordinal.
func (a PageArtifact) PageNumber() int { return a.PageIndex + 1 }

// PageResult carries a page's artifact together with any degradation
// that occurred while producing it. A failed page still yields an
// artifact (with empty tokens) so document processing can continue;
// callers inspect Err to learn which pages degraded.
type PageResult struct {
	Artifact PageArtifact
	Err      error
}

// Degraded reports whether the page's extraction failed in some way.
func (r PageResult) Degraded() bool { return r.Err != nil }

// DetectedTable is one table the external model found on a page.
type DetectedTable struct {
	CSV string // CSV-formatted cell content
}

// Fragment is one detected table's CSV output from a single page,
// possibly part of a larger logical table spanning page boundaries.
type Fragment struct {
	Filename string // Page_<NN>_Table_<MM>.csv, 1-based indices
	CSV      string
}

// MergedTable is the result of stitching one or more consecutive-page
// fragments into a single table. Filename is the first constituent's.
type MergedTable struct {
	Filename string
	CSV      string
}

// EventType represents the type of stream event.
type EventType string

const (
	EventStart          EventType = "start"
	EventPageProcessing EventType = "page_processing"
	EventPageComplete   EventType = "page_complete"
	EventDetecting      EventType = "detecting"
	EventError          EventType = "error"
	EventComplete       EventType = "complete"
)

// StreamEvent is emitted as processing progresses.
type StreamEvent struct {
	Type       EventType   `json:"type"`
	PageNumber int         `json:"page_number,omitempty"`
	Payload    interface{} `json:"payload,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// ProcessingStats summarizes a completed extraction run.
type ProcessingStats struct {
	RunID          string
	TotalTime      time.Duration
	PagesProcessed int
	NativePages    int
	OCRPages       int
	DegradedPages  int
	TablesFound    int
	TablesMerged   int // final count after cross-page merging
}

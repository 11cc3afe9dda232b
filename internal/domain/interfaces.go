package domain

import (
	"context"
	"image"
)

// Document is an opened PDF: it renders pages to rasters and exposes the
// features the classifier and the native extractor need.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// Page returns the classifier-relevant features of page i (0-based).
	Page(i int) (PageInfo, error)

	// Render rasterizes page i at the given zoom factor relative to the
	// page's natural (72 DPI) size.
	Render(i int, scale float64) (image.Image, error)

	// NativeTokens extracts word tokens from the text layer of page i,
	// with bounding boxes scaled into the rendered raster's pixel space.
	NativeTokens(i int, scale float64) ([]Token, error)

	// Close releases the underlying document handles.
	Close() error
}

// Recognizer turns a rendered page raster into word tokens via OCR.
type Recognizer interface {
	// Recognize runs OCR on the image and returns word tokens with
	// bounding boxes in the image's own pixel space.
	Recognize(img image.Image) ([]Token, error)

	// Close releases engine resources.
	Close() error
}

// Detector is the external table-detection model: one image and one
// token list per page in, CSV text per detected table out.
type Detector interface {
	Detect(ctx context.Context, artifact PageArtifact) ([]DetectedTable, error)
}

// ClassifyFunc decides a page's extraction mode and rendering scale.
// It must be pure: same features in, same decision out.
type ClassifyFunc func(info PageInfo) RenderDecision

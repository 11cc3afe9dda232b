package pdf

import (
	"unicode/utf8"

	"github.com/tablewise/pdf-tables/internal/domain"
)

const (
	// textLengthThreshold separates pages with a usable text layer from
	// pages that are effectively scans.
	textLengthThreshold = 100

	// minOCRWidth is the raster width below which OCR pages are
	// upscaled for better recognition.
	minOCRWidth = 1500.0

	// ocrUpscale is the zoom applied to small OCR pages.
	ocrUpscale = 2.0
)

// Classify decides a page's extraction mode and rendering scale.
//
// The policy, first match wins:
//  1. Substantial text and no embedded images: the text layer is
//     trusted as complete, extract natively.
//  2. Substantial text but embedded images present: an image could hold
//     a table the text layer misses, so OCR the whole page.
//  3. Little or no text: treat the page as a scan, OCR it.
//
// OCR pages whose natural raster is narrower than 1500 px render at
// 2.0x to improve recognition; everything else renders at 1.0x to keep
// memory bounded on long documents.
func Classify(info domain.PageInfo) domain.RenderDecision {
	// The threshold counts characters, not bytes, so non-ASCII text
	// layers classify the same as ASCII ones of equal length.
	textLen := utf8.RuneCountInString(info.Text)

	var mode domain.PageMode
	switch {
	case textLen > textLengthThreshold && info.ImageCount == 0:
		mode = domain.ModeNative
	case textLen > textLengthThreshold:
		mode = domain.ModeOCRHybrid
	default:
		mode = domain.ModeOCRScanned
	}

	scale := 1.0
	if mode.RequiresOCR() && info.Width < minOCRWidth {
		scale = ocrUpscale
	}

	return domain.RenderDecision{Mode: mode, Scale: scale}
}

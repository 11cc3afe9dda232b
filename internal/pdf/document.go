// Package pdf opens PDF documents and provides page rendering, page
// feature inspection, and text-layer token extraction.
//
// Rendering and plain text go through go-fitz (MuPDF). Structure-level
// access (embedded image resources, positioned characters) goes through
// ledongthuc/pdf, which reads the same file independently.
package pdf

import (
	"fmt"
	"image"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/tablewise/pdf-tables/internal/domain"
	"github.com/tablewise/pdf-tables/internal/observability"
)

// baseDPI is the PDF's natural resolution: a 1.0-scale raster has one
// pixel per point.
const baseDPI = 72.0

// Letter-size fallback when a page carries no resolvable MediaBox.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// Document is an opened PDF backed by both readers.
type Document struct {
	path string
	fz   *fitz.Document
	file *os.File
	rd   *pdf.Reader
	log  *observability.Logger
}

// Open validates and opens a PDF for processing.
func Open(path string, log *observability.Logger) (*Document, error) {
	if log == nil {
		log = observability.Nop()
	}
	if err := ValidatePDFPath(path); err != nil {
		return nil, err
	}

	fz, err := fitz.New(path)
	if err != nil {
		return nil, domain.RenderError("failed to open PDF", err)
	}

	file, rd, err := pdf.Open(path)
	if err != nil {
		fz.Close()
		return nil, domain.ValidationError("failed to read PDF structure", err)
	}

	return &Document{path: path, fz: fz, file: file, rd: rd, log: log}, nil
}

// PageCount returns the number of pages in the document.
func (d *Document) PageCount() int {
	return d.fz.NumPage()
}

// Page returns the features of page i (0-based) that the classifier
// inspects: text-layer content, embedded image count, and page size.
func (d *Document) Page(i int) (domain.PageInfo, error) {
	text, err := d.fz.Text(i)
	if err != nil {
		return domain.PageInfo{}, domain.RenderError(fmt.Sprintf("failed to read text of page %d", i+1), err)
	}

	info := domain.PageInfo{Text: text}
	info.Width, info.Height = d.pageSize(i)
	info.ImageCount = d.countImages(i)
	return info, nil
}

// Render rasterizes page i at the given zoom factor relative to the
// page's natural 72 DPI size.
func (d *Document) Render(i int, scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, domain.ValidationError(fmt.Sprintf("invalid render scale %v", scale), nil)
	}
	img, err := d.fz.ImageDPI(i, baseDPI*scale)
	if err != nil {
		return nil, domain.RenderError(fmt.Sprintf("failed to render page %d", i+1), err)
	}
	return img, nil
}

// Close releases the underlying document handles.
func (d *Document) Close() error {
	var firstErr error
	if d.fz != nil {
		if err := d.fz.Close(); err != nil {
			firstErr = err
		}
		d.fz = nil
	}
	if d.file != nil {
		if err := d.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.file = nil
		d.rd = nil
	}
	return firstErr
}

// pageSize resolves the page's MediaBox in points. Malformed documents
// fall back to US Letter rather than failing the page.
func (d *Document) pageSize(i int) (w, h float64) {
	w, h = defaultPageWidth, defaultPageHeight

	defer func() {
		if r := recover(); r != nil {
			d.log.Warn().Int("page", i+1).Msgf("panic reading MediaBox: %v", r)
			w, h = defaultPageWidth, defaultPageHeight
		}
	}()

	page := d.rd.Page(i + 1)
	if page.V.IsNull() {
		return w, h
	}
	box := page.V.Key("MediaBox")
	if box.IsNull() || box.Kind() != pdf.Array || box.Len() != 4 {
		return w, h
	}

	coords := make([]float64, 4)
	for j := 0; j < 4; j++ {
		val := box.Index(j)
		switch val.Kind() {
		case pdf.Integer:
			coords[j] = float64(val.Int64())
		case pdf.Real:
			coords[j] = val.Float64()
		default:
			return w, h
		}
	}
	if coords[2] > coords[0] && coords[3] > coords[1] {
		w = coords[2] - coords[0]
		h = coords[3] - coords[1]
	}
	return w, h
}

// countImages walks the page's XObject resources and counts entries
// with Subtype Image. Malformed resource dictionaries count as zero
// images rather than failing the page.
func (d *Document) countImages(i int) (count int) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Warn().Int("page", i+1).Msgf("panic counting images: %v", r)
			count = 0
		}
	}()

	page := d.rd.Page(i + 1)
	if page.V.IsNull() {
		return 0
	}
	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return 0
	}
	xObjects := resources.Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return 0
	}

	for _, key := range xObjects.Keys() {
		obj := xObjects.Key(key)
		if obj.IsNull() {
			continue
		}
		subtype := obj.Key("Subtype")
		if !subtype.IsNull() && subtype.Name() == "Image" {
			count++
		}
	}
	return count
}

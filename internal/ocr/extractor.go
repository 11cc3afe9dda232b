package ocr

import (
	"bytes"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/tablewise/pdf-tables/internal/domain"
	"github.com/tablewise/pdf-tables/internal/observability"
)

// Extractor recognizes word tokens on rendered page rasters. It
// implements domain.Recognizer.
type Extractor struct {
	client *Client
	log    *observability.Logger
}

// NewExtractor creates an OCR token extractor for the given language.
func NewExtractor(language string, log *observability.Logger) (*Extractor, error) {
	if log == nil {
		log = observability.Nop()
	}
	client, err := NewClient(language)
	if err != nil {
		return nil, err
	}
	return &Extractor{client: client, log: log}, nil
}

// Recognize preprocesses the raster and runs OCR on it. Boxes come
// back in the raster's own pixel space, so no scaling is applied.
// Tokens with empty text are discarded.
func (e *Extractor) Recognize(img image.Image) ([]domain.Token, error) {
	prepared := Preprocess(img)

	var buf bytes.Buffer
	if err := png.Encode(&buf, prepared); err != nil {
		return nil, domain.OCRError("failed to encode preprocessed image", err)
	}

	boxes, err := e.client.WordBoxes(buf.Bytes())
	if err != nil {
		return nil, err
	}

	tokens := make([]domain.Token, 0, len(boxes))
	for _, box := range boxes {
		tok, ok := boxToken(box)
		if !ok {
			continue
		}
		tokens = append(tokens, tok)
	}

	e.log.Debug().Int("tokens", len(tokens)).Msg("ocr recognition complete")
	return tokens, nil
}

// Close releases engine resources.
func (e *Extractor) Close() error {
	return e.client.Close()
}

// boxToken converts one Tesseract word box into a Token, rejecting
// empty words and degenerate boxes.
func boxToken(box gosseract.BoundingBox) (domain.Token, bool) {
	text := strings.TrimSpace(box.Word)
	if text == "" {
		return domain.Token{}, false
	}

	r := box.Box
	bbox := domain.BBox{
		float64(r.Min.X),
		float64(r.Min.Y),
		float64(r.Max.X),
		float64(r.Max.Y),
	}
	if !bbox.Valid() {
		return domain.Token{}, false
	}

	return domain.Token{
		Text:     text,
		BBox:     bbox,
		LineNum:  box.LineNum,
		BlockNum: box.BlockNum,
	}, true
}

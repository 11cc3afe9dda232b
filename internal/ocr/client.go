// Package ocr wraps the Tesseract OCR engine (via gosseract) to turn
// rendered page rasters into word tokens with bounding boxes.
//
// Tesseract must be installed on the system. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr libtesseract-dev
package ocr

import (
	"github.com/otiai10/gosseract/v2"

	"github.com/tablewise/pdf-tables/internal/domain"
)

// Client wraps Tesseract for OCR operations.
type Client struct {
	client *gosseract.Client
}

// NewClient creates an OCR client fixed to a single language and the
// "single uniform block of text" segmentation mode, which works best on
// table imagery. The client must be closed to release engine resources.
func NewClient(language string) (*Client, error) {
	client := gosseract.NewClient()

	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, domain.OCRError("failed to set OCR language", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, domain.OCRError("failed to set page segmentation mode", err)
	}

	return &Client{client: client}, nil
}

// Close releases OCR resources.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// WordBoxes runs recognition on image data (PNG, JPEG, TIFF) and
// returns the word-level boxes Tesseract found.
func (c *Client) WordBoxes(imageData []byte) ([]gosseract.BoundingBox, error) {
	if err := c.client.SetImageFromBytes(imageData); err != nil {
		return nil, domain.OCRError("failed to set image", err)
	}

	boxes, err := c.client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, domain.OCRError("recognition failed", err)
	}
	return boxes, nil
}

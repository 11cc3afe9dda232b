package extract

import (
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/tablewise/pdf-tables/internal/domain"
)

const jpegQuality = 85

// tokenSidecar is the on-disk shape of a page's token list.
type tokenSidecar struct {
	Words []domain.Token `json:"words"`
}

// imageName returns the raster filename for a 1-based page number.
// Three digits cover typical documents; the width grows past that
// rather than truncating.
func imageName(page int) string {
	return fmt.Sprintf("page_%03d.jpg", page)
}

// tokenName returns the token-sidecar filename for a 1-based page number.
func tokenName(page int) string {
	return fmt.Sprintf("page_%03d_words.json", page)
}

// writeArtifacts persists a page's raster and token sidecar next to each
// other in dir and returns the two paths.
func writeArtifacts(dir string, page int, img image.Image, tokens []domain.Token) (imagePath, tokenPath string, err error) {
	imagePath = filepath.Join(dir, imageName(page))
	tokenPath = filepath.Join(dir, tokenName(page))

	f, err := os.Create(imagePath)
	if err != nil {
		return "", "", domain.IOError(fmt.Sprintf("failed to create %s", imagePath), err)
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		return "", "", domain.IOError(fmt.Sprintf("failed to encode %s", imagePath), err)
	}
	if err := f.Close(); err != nil {
		return "", "", domain.IOError(fmt.Sprintf("failed to close %s", imagePath), err)
	}

	// An empty token list still serializes as {"words": []}, never null.
	if tokens == nil {
		tokens = []domain.Token{}
	}
	data, err := json.Marshal(tokenSidecar{Words: tokens})
	if err != nil {
		return "", "", domain.IOError(fmt.Sprintf("failed to marshal tokens for page %d", page), err)
	}
	if err := os.WriteFile(tokenPath, data, 0o644); err != nil {
		return "", "", domain.IOError(fmt.Sprintf("failed to write %s", tokenPath), err)
	}

	return imagePath, tokenPath, nil
}
